package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"marketparticipant/internal/actor/models"
	"marketparticipant/internal/auditlog"
	delegationmodels "marketparticipant/internal/delegation/models"
	"marketparticipant/internal/events"
	"marketparticipant/internal/marketrole"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
	"marketparticipant/pkg/platform/sentinel"
	"marketparticipant/pkg/platform/tx"
	"marketparticipant/pkg/requestcontext"
)

var tracer = otel.Tracer("marketparticipant/actor")

type ActorStore interface {
	Get(ctx context.Context, actorID id.ActorID) (*models.Actor, error)
	GetByNumber(ctx context.Context, number models.ActorNumber) (*models.Actor, error)
	AddOrUpdate(ctx context.Context, actor *models.Actor) (id.ActorID, error)
	History(ctx context.Context, actorID id.ActorID) ([]auditlog.Snapshot[models.Actor], error)
}

type ReservationRule interface {
	Apply(ctx context.Context, actorID id.ActorID, role marketrole.ActorMarketRole) error
}

type EventOutbox interface {
	Enqueue(ctx context.Context, sources ...events.Source) error
}

// GridAreaLookup confirms that grid areas referenced by a market role exist.
type GridAreaLookup interface {
	Exists(ctx context.Context, gridAreaID id.GridAreaID) (bool, error)
}

// DelegationSource lists the delegations an actor has handed out.
type DelegationSource interface {
	ListByDelegator(ctx context.Context, actorID id.ActorID) ([]*delegationmodels.Delegation, error)
}

// RoleResolver maps a market role function to the identity-provider
// application role granted to actors holding it.
type RoleResolver interface {
	RoleID(f marketrole.EicFunction) (uuid.UUID, error)
}

// Metrics counts actor lifecycle operations.
type Metrics struct {
	Created     prometheus.Counter
	Transitions *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketparticipant_actors_created_total",
			Help: "Total number of actors created",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketparticipant_actor_operations_total",
			Help: "Total number of committed actor operations",
		}, []string{"operation"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketparticipant_actor_rejections_total",
			Help: "Total number of rejected actor operations by error code",
		}, []string{"operation", "code"}),
	}
}

// Service runs actor operations, each inside one unit of work.
type Service struct {
	actors      ActorStore
	reservation ReservationRule
	outbox      EventOutbox
	runner      tx.Runner
	gridAreas   GridAreaLookup
	delegations DelegationSource
	roles       RoleResolver
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

func WithGridAreaLookup(lookup GridAreaLookup) Option {
	return func(s *Service) {
		s.gridAreas = lookup
	}
}

func WithDelegationSource(source DelegationSource) Option {
	return func(s *Service) {
		s.delegations = source
	}
}

func WithRoleResolver(roles RoleResolver) Option {
	return func(s *Service) {
		s.roles = roles
	}
}

func New(actors ActorStore, reservation ReservationRule, outbox EventOutbox, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		actors:      actors,
		reservation: reservation,
		outbox:      outbox,
		runner:      runner,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutate loads the actor, applies fn and persists the result with its
// events. A rejected fn leaves nothing behind.
func (s *Service) mutate(ctx context.Context, operation string, actorID id.ActorID, fn func(ctx context.Context, a *models.Actor, now time.Time) error) (*models.Actor, error) {
	ctx, span := tracer.Start(ctx, "actor."+operation,
		trace.WithAttributes(attribute.String("actor_id", actorID.String())),
	)
	defer span.End()

	var result *models.Actor
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		a, err := s.actors.Get(ctx, actorID)
		if err != nil {
			return translate(err, "load actor")
		}
		if err := fn(ctx, a, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := s.save(ctx, a); err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		s.reject(ctx, span, operation, err)
		return nil, err
	}

	s.count(operation)
	s.logger.InfoContext(ctx, "actor updated",
		"operation", operation,
		"actor_id", actorID.String(),
		"status", string(result.Status),
	)
	return result, nil
}

func (s *Service) save(ctx context.Context, a *models.Actor) error {
	if _, err := s.actors.AddOrUpdate(ctx, a); err != nil {
		return translate(err, "save actor")
	}
	if err := s.outbox.Enqueue(ctx, a); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "enqueue actor events")
	}
	return nil
}

func (s *Service) reject(ctx context.Context, span trace.Span, operation string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if s.metrics != nil {
		s.metrics.Rejections.WithLabelValues(operation, string(dErrors.CodeOf(err))).Inc()
	}
	level := slog.LevelInfo
	if dErrors.IsFatal(err) || dErrors.HasCode(err, dErrors.CodeInternal) {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "actor operation rejected",
		"operation", operation,
		"code", string(dErrors.CodeOf(err)),
		"key", dErrors.KeyOf(err),
		"error", err,
	)
}

func (s *Service) count(operation string) {
	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(operation).Inc()
	}
}

// translate maps store facts to coded errors. Coded errors pass through.
func translate(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "actor not found").WithKey("actor.not_found")
	case errors.Is(err, models.ErrThumbprintCredentialsConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "certificate is assigned to another actor").
			WithKey("actor.credentials.thumbprint_already_used")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeConflict, "actor number is already used").
			WithKey("actor.number.already_used")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
