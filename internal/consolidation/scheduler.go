package consolidation

import (
	"context"
	"log/slog"
	"time"

	"marketparticipant/pkg/requestcontext"
)

// Scheduler runs due consolidations on a fixed interval.
type Scheduler struct {
	service  *Service
	interval time.Duration
	clock    func() time.Time
	logger   *slog.Logger
}

type SchedulerOption func(*Scheduler)

func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func WithClock(clock func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

func NewScheduler(service *Service, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		service:  service,
		interval: time.Minute,
		clock:    func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Tick executes every consolidation due at the scheduler's clock.
func (s *Scheduler) Tick(ctx context.Context) int {
	ctx = requestcontext.WithTime(ctx, s.clock())
	n, err := s.service.ExecuteDue(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "consolidation run incomplete", "executed", n, "error", err)
	} else if n > 0 {
		s.logger.InfoContext(ctx, "consolidations executed", "count", n)
	}
	return n
}
