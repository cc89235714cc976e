package consolidation

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	actormodels "marketparticipant/internal/actor/models"
	"marketparticipant/internal/auditlog"
	"marketparticipant/internal/events"
	gridareamodels "marketparticipant/internal/gridarea/models"
	"marketparticipant/internal/marketrole"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
	"marketparticipant/pkg/platform/sentinel"
	"marketparticipant/pkg/platform/tx"
	"marketparticipant/pkg/requestcontext"
)

var tracer = otel.Tracer("marketparticipant/consolidation")

type ActorStore interface {
	Get(ctx context.Context, actorID id.ActorID) (*actormodels.Actor, error)
	AddOrUpdate(ctx context.Context, actor *actormodels.Actor) (id.ActorID, error)
}

type ReservationRule interface {
	Apply(ctx context.Context, actorID id.ActorID, role marketrole.ActorMarketRole) error
}

// GridAreaStore ends transferred grid areas and takes the explicit
// consolidation audit records.
type GridAreaStore interface {
	SetValidTo(ctx context.Context, gridAreaIDs []id.GridAreaID, validTo time.Time) error
	AppendAudit(ctx context.Context, records ...gridareamodels.AuditRecord) error
}

type EventOutbox interface {
	Enqueue(ctx context.Context, sources ...events.Source) error
}

// Store keeps scheduled consolidations.
type Store interface {
	Add(ctx context.Context, c *ActorConsolidation) error
	Update(ctx context.Context, c *ActorConsolidation) error
	ListDue(ctx context.Context, now time.Time) ([]*ActorConsolidation, error)
	ListPending(ctx context.Context) ([]*ActorConsolidation, error)
}

type Metrics struct {
	Executed    prometheus.Counter
	Failed      prometheus.Counter
	Transferred prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Executed: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketparticipant_consolidations_executed_total",
			Help: "Total number of executed actor consolidations",
		}),
		Failed: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketparticipant_consolidations_failed_total",
			Help: "Total number of actor consolidations that failed",
		}),
		Transferred: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketparticipant_consolidation_grid_areas_transferred_total",
			Help: "Total number of grid areas moved by consolidations",
		}),
	}
}

type Service struct {
	actors      ActorStore
	reservation ReservationRule
	gridAreas   GridAreaStore
	outbox      EventOutbox
	store       Store
	runner      tx.Runner
	logger      *slog.Logger
	metrics     *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(actors ActorStore, reservation ReservationRule, gridAreas GridAreaStore, outbox EventOutbox, store Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		actors:      actors,
		reservation: reservation,
		gridAreas:   gridAreas,
		outbox:      outbox,
		store:       store,
		runner:      runner,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Consolidate moves every grid area of from that to does not already hold
// over to to, deactivates from and ends the transferred grid areas at
// consolidateAt. Both actors must be distinct grid access providers; anything
// else is a programmer error. All writes share one unit of work.
func (s *Service) Consolidate(ctx context.Context, fromID, toID id.ActorID, consolidateAt time.Time) error {
	ctx, span := tracer.Start(ctx, "consolidation.Consolidate", trace.WithAttributes(
		attribute.String("from_actor_id", fromID.String()),
		attribute.String("to_actor_id", toID.String()),
	))
	defer span.End()

	var transferred int
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		n, err := s.consolidate(ctx, fromID, toID, consolidateAt)
		transferred = n
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if s.metrics != nil {
			s.metrics.Failed.Inc()
		}
		s.logger.ErrorContext(ctx, "consolidation failed",
			"from_actor_id", fromID.String(),
			"to_actor_id", toID.String(),
			"key", dErrors.KeyOf(err),
			"error", err,
		)
		return err
	}

	if s.metrics != nil {
		s.metrics.Executed.Inc()
		s.metrics.Transferred.Add(float64(transferred))
	}
	s.logger.InfoContext(ctx, "actors consolidated",
		"from_actor_id", fromID.String(),
		"to_actor_id", toID.String(),
		"grid_areas", transferred,
	)
	return nil
}

func (s *Service) consolidate(ctx context.Context, fromID, toID id.ActorID, consolidateAt time.Time) (int, error) {
	if fromID == toID {
		return 0, dErrors.New(dErrors.CodeInvariantViolation, "an actor cannot be consolidated into itself")
	}
	now := requestcontext.Now(ctx)
	by := requestcontext.UserID(ctx)

	from, err := s.loadActor(ctx, fromID)
	if err != nil {
		return 0, err
	}
	to, err := s.loadActor(ctx, toID)
	if err != nil {
		return 0, err
	}
	if from.MarketRole.Function != marketrole.GridAccessProvider || to.MarketRole.Function != marketrole.GridAccessProvider {
		return 0, dErrors.New(dErrors.CodeInvariantViolation, "only grid access providers can be consolidated")
	}

	var transfer []marketrole.ActorGridArea
	for _, ga := range from.MarketRole.GridAreas {
		if !to.MarketRole.HasGridArea(ga.GridAreaID) {
			transfer = append(transfer, ga)
		}
	}
	transferIDs := make([]id.GridAreaID, len(transfer))
	for i, ga := range transfer {
		transferIDs[i] = ga.GridAreaID
	}

	if err := s.audit(ctx, gridareamodels.AuditFieldConsolidationRequested, transferIDs, from, to, by, now); err != nil {
		return 0, err
	}

	if err := from.TransferGridAreas(nil, now); err != nil {
		return 0, err
	}
	if err := s.reservation.Apply(ctx, from.ID, from.MarketRole); err != nil {
		return 0, err
	}
	from.RemoveCredentials(now)
	from.ApplyDeactivation(now)

	if err := to.TransferGridAreas(slices.Concat(to.MarketRole.GridAreas, transfer), now); err != nil {
		return 0, err
	}
	if err := s.reservation.Apply(ctx, to.ID, to.MarketRole); err != nil {
		return 0, err
	}

	for _, a := range []*actormodels.Actor{from, to} {
		if _, err := s.actors.AddOrUpdate(ctx, a); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "save actor")
		}
	}
	if err := s.outbox.Enqueue(ctx, from, to); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "enqueue actor events")
	}

	if len(transferIDs) > 0 {
		if err := s.gridAreas.SetValidTo(ctx, transferIDs, consolidateAt); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "end transferred grid areas")
		}
	}
	if err := s.audit(ctx, gridareamodels.AuditFieldConsolidationCompleted, transferIDs, from, to, by, now); err != nil {
		return 0, err
	}
	return len(transfer), nil
}

func (s *Service) audit(ctx context.Context, field gridareamodels.AuditField, gridAreaIDs []id.GridAreaID, from, to *actormodels.Actor, by id.UserID, now time.Time) error {
	if len(gridAreaIDs) == 0 {
		return nil
	}
	records := make([]gridareamodels.AuditRecord, len(gridAreaIDs))
	for i, gridAreaID := range gridAreaIDs {
		records[i] = gridareamodels.AuditRecord{
			GridAreaID: gridAreaID,
			Entry: auditlog.Entry[gridareamodels.AuditField]{
				Field:     field,
				Previous:  from.ActorNumber.Value,
				Current:   to.ActorNumber.Value,
				ChangedBy: by,
				Timestamp: now,
			},
		}
	}
	if err := s.gridAreas.AppendAudit(ctx, records...); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "write consolidation audit")
	}
	return nil
}

func (s *Service) loadActor(ctx context.Context, actorID id.ActorID) (*actormodels.Actor, error) {
	a, err := s.actors.Get(ctx, actorID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "actor %s not found", actorID).WithKey("actor.not_found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load actor")
	}
	return a, nil
}

// Schedule records a consolidation to run at consolidateAt. Both actors must
// exist and be grid access providers.
func (s *Service) Schedule(ctx context.Context, fromID, toID id.ActorID, consolidateAt time.Time) (*ActorConsolidation, error) {
	if fromID == toID {
		return nil, dErrors.Validation("consolidation.same_actor", "an actor cannot be consolidated into itself")
	}
	var c *ActorConsolidation
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		for _, actorID := range []id.ActorID{fromID, toID} {
			a, err := s.loadActor(ctx, actorID)
			if err != nil {
				return err
			}
			if a.MarketRole.Function != marketrole.GridAccessProvider {
				return dErrors.Validation("consolidation.not_grid_access_provider", "only grid access providers can be consolidated")
			}
		}
		pending, err := s.store.ListPending(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "list pending consolidations")
		}
		for _, p := range pending {
			if p.From == fromID || p.From == toID {
				return dErrors.Validation("consolidation.already_scheduled", "actor already has a pending consolidation")
			}
		}

		c = &ActorConsolidation{
			ID:            id.ConsolidationID(uuid.New()),
			From:          fromID,
			To:            toID,
			ConsolidateAt: consolidateAt.UTC(),
			Status:        StatusPending,
		}
		if err := s.store.Add(ctx, c); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "save consolidation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "consolidation scheduled",
		"consolidation_id", c.ID.String(),
		"from_actor_id", fromID.String(),
		"to_actor_id", toID.String(),
		"consolidate_at", c.ConsolidateAt,
	)
	return c, nil
}

// ExecuteDue runs every pending consolidation whose time has come. Each one
// runs in its own unit of work; a failure is logged and the rest continue.
// It returns the number executed.
func (s *Service) ExecuteDue(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "list due consolidations")
	}

	executed := 0
	var errs []error
	for _, c := range due {
		err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
			if err := s.Consolidate(ctx, c.From, c.To, c.ConsolidateAt); err != nil {
				return err
			}
			if err := c.MarkExecuted(now); err != nil {
				return err
			}
			return s.store.Update(ctx, c)
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		executed++
	}
	return executed, errors.Join(errs...)
}
