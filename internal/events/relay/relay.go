// Package relay publishes stored outbox messages to the message broker.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"marketparticipant/internal/events"
	"marketparticipant/pkg/platform/tx"
	"marketparticipant/pkg/requestcontext"
)

// Producer delivers messages to the broker. Publish returns only once every
// message is acknowledged.
type Producer interface {
	Publish(ctx context.Context, msgs []events.Message) error
}

// Metrics tracks relay throughput.
type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketparticipant_outbox_published_total",
			Help: "Total number of outbox messages published to the broker",
		}),
		Failures: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketparticipant_outbox_publish_failures_total",
			Help: "Total number of failed outbox publish batches",
		}),
	}
}

// Relay drains the outbox in batches.
type Relay struct {
	store     events.RelayStore
	producer  Producer
	tx        tx.Runner
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
	metrics   *Metrics
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func New(store events.RelayStore, producer Producer, runner tx.Runner, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		producer:  producer,
		tx:        runner,
		batchSize: 100,
		interval:  time.Second,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.Flush(ctx); err != nil {
			r.logger.WarnContext(ctx, "outbox relay batch failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Flush publishes one batch and returns the number of messages published.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	var published int
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		msgs, err := r.store.Pending(ctx, r.batchSize)
		if err != nil || len(msgs) == 0 {
			return err
		}
		if err := r.producer.Publish(ctx, msgs); err != nil {
			return err
		}
		ids := make([]string, 0, len(msgs))
		for _, m := range msgs {
			ids = append(ids, m.ID)
		}
		if err := r.store.MarkPublished(ctx, ids, requestcontext.Now(ctx)); err != nil {
			return err
		}
		published = len(msgs)
		return nil
	})
	if err != nil {
		if r.metrics != nil {
			r.metrics.Failures.Inc()
		}
		return 0, err
	}
	if published > 0 {
		if r.metrics != nil {
			r.metrics.Published.Add(float64(published))
		}
		r.logger.DebugContext(ctx, "outbox batch published", "count", published)
	}
	return published, nil
}
