// Package service runs delegation operations. Each operation resolves the
// actors involved, applies the chain rule and the aggregate's own checks and
// persists the ledger with its events in one unit of work.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	actormodels "marketparticipant/internal/actor/models"
	"marketparticipant/internal/delegation/models"
	"marketparticipant/internal/events"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
	"marketparticipant/pkg/platform/sentinel"
	"marketparticipant/pkg/platform/tx"
	"marketparticipant/pkg/requestcontext"
)

var tracer = otel.Tracer("marketparticipant/delegation")

type DelegationStore interface {
	Get(ctx context.Context, delegationID id.DelegationID) (*models.Delegation, error)
	Find(ctx context.Context, kind models.Kind, delegatedBy id.ActorID, subject string) (*models.Delegation, error)
	ListByDelegator(ctx context.Context, actorID id.ActorID) ([]*models.Delegation, error)
	Links(ctx context.Context, kind models.Kind) ([]models.Link, error)
	Save(ctx context.Context, d *models.Delegation) error
}

type ActorLookup interface {
	Get(ctx context.Context, actorID id.ActorID) (*actormodels.Actor, error)
}

type EventOutbox interface {
	Enqueue(ctx context.Context, sources ...events.Source) error
}

type Metrics struct {
	Configured *prometheus.CounterVec
	Rejected   *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Configured: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketparticipant_delegations_configured_total",
			Help: "Total number of delegation periods added or stopped",
		}, []string{"kind", "operation"}),
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "marketparticipant_delegations_rejected_total",
			Help: "Total number of rejected delegation operations by error key",
		}, []string{"kind", "key"}),
	}
}

type Service struct {
	store   DelegationStore
	actors  ActorLookup
	outbox  EventOutbox
	runner  tx.Runner
	logger  *slog.Logger
	metrics *Metrics
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

func New(store DelegationStore, actors ActorLookup, outbox EventOutbox, runner tx.Runner, opts ...Option) *Service {
	s := &Service{store: store, actors: actors, outbox: outbox, runner: runner, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DelegateRequest describes a new period. A nil StopsAt leaves it open.
type DelegateRequest struct {
	DelegatedBy id.ActorID
	DelegatedTo id.ActorID
	GridAreaID  id.GridAreaID
	StartsAt    time.Time
	StopsAt     *time.Time
}

func (s *Service) DelegateMessage(ctx context.Context, messageType models.MessageType, req DelegateRequest) (*models.Delegation, error) {
	return s.delegate(ctx, models.KindMessage, string(messageType), req, func(a *actormodels.Actor) (*models.Delegation, error) {
		return models.NewMessageDelegation(a, messageType)
	})
}

func (s *Service) DelegateProcess(ctx context.Context, process models.DelegatedProcess, req DelegateRequest) (*models.Delegation, error) {
	return s.delegate(ctx, models.KindProcess, string(process), req, func(a *actormodels.Actor) (*models.Delegation, error) {
		return models.NewProcessDelegation(a, process)
	})
}

func (s *Service) delegate(ctx context.Context, kind models.Kind, subject string, req DelegateRequest, create func(*actormodels.Actor) (*models.Delegation, error)) (*models.Delegation, error) {
	ctx, span := tracer.Start(ctx, "delegation.DelegateTo", trace.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("subject", subject),
		attribute.String("delegated_by", req.DelegatedBy.String()),
		attribute.String("delegated_to", req.DelegatedTo.String()),
	))
	defer span.End()

	var result *models.Delegation
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		delegator, err := s.loadActor(ctx, req.DelegatedBy)
		if err != nil {
			return err
		}
		if _, err := s.loadActor(ctx, req.DelegatedTo); err != nil {
			return err
		}

		links, err := s.store.Links(ctx, kind)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "load delegation links")
		}
		if err := models.VerifyChain(kind, req.DelegatedBy, req.DelegatedTo, links); err != nil {
			return err
		}

		d, err := s.store.Find(ctx, kind, req.DelegatedBy, subject)
		if errors.Is(err, sentinel.ErrNotFound) {
			d, err = create(delegator)
		}
		if err != nil {
			return translate(err, "load delegation")
		}

		if _, err := d.DelegateTo(delegator, req.DelegatedTo, req.GridAreaID, req.StartsAt, req.StopsAt, requestcontext.UserID(ctx)); err != nil {
			return err
		}
		if err := s.persist(ctx, d); err != nil {
			return err
		}
		result = d
		return nil
	})
	if err != nil {
		s.reject(ctx, span, kind, err)
		return nil, err
	}
	s.configured(kind, "delegate")
	s.logger.InfoContext(ctx, "delegation configured",
		"delegation_id", result.ID.String(),
		"kind", string(kind),
		"subject", subject,
		"delegated_by", req.DelegatedBy.String(),
		"delegated_to", req.DelegatedTo.String(),
		"grid_area_id", req.GridAreaID.String(),
	)
	return result, nil
}

// StopDelegation ends an open period at stopsAt. A stop at or before the
// period's start cancels it.
func (s *Service) StopDelegation(ctx context.Context, delegationID id.DelegationID, periodID id.PeriodID, stopsAt time.Time) (*models.Delegation, error) {
	ctx, span := tracer.Start(ctx, "delegation.StopDelegation", trace.WithAttributes(
		attribute.String("delegation_id", delegationID.String()),
		attribute.String("period_id", periodID.String()),
	))
	defer span.End()

	var result *models.Delegation
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		d, err := s.store.Get(ctx, delegationID)
		if err != nil {
			return translate(err, "load delegation")
		}
		if _, err := d.StopDelegation(periodID, stopsAt, requestcontext.UserID(ctx)); err != nil {
			return err
		}
		if err := s.persist(ctx, d); err != nil {
			return err
		}
		result = d
		return nil
	})
	if err != nil {
		s.reject(ctx, span, "", err)
		return nil, err
	}
	s.configured(result.Kind, "stop")
	s.logger.InfoContext(ctx, "delegation stopped",
		"delegation_id", delegationID.String(),
		"period_id", periodID.String(),
		"stops_at", stopsAt,
	)
	return result, nil
}

// ListByDelegator returns the delegations an actor has handed out.
func (s *Service) ListByDelegator(ctx context.Context, actorID id.ActorID) ([]*models.Delegation, error) {
	out, err := s.store.ListByDelegator(ctx, actorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list delegations")
	}
	return out, nil
}

func (s *Service) persist(ctx context.Context, d *models.Delegation) error {
	if err := s.store.Save(ctx, d); err != nil {
		return translate(err, "save delegation")
	}
	if err := s.outbox.Enqueue(ctx, d); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "enqueue delegation events")
	}
	return nil
}

func (s *Service) loadActor(ctx context.Context, actorID id.ActorID) (*actormodels.Actor, error) {
	a, err := s.actors.Get(ctx, actorID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "actor %s not found", actorID).WithKey("actor.not_found")
	}
	if err != nil {
		return nil, translate(err, "load actor")
	}
	return a, nil
}

func (s *Service) reject(ctx context.Context, span trace.Span, kind models.Kind, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if s.metrics != nil {
		s.metrics.Rejected.WithLabelValues(string(kind), dErrors.KeyOf(err)).Inc()
	}
	s.logger.InfoContext(ctx, "delegation rejected",
		"kind", string(kind),
		"code", string(dErrors.CodeOf(err)),
		"key", dErrors.KeyOf(err),
		"error", err,
	)
}

func (s *Service) configured(kind models.Kind, operation string) {
	if s.metrics != nil {
		s.metrics.Configured.WithLabelValues(string(kind), operation).Inc()
	}
}

func translate(err error, msg string) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "delegation not found").WithKey("delegation.not_found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Wrap(err, dErrors.CodeConflict, "delegation already exists").WithKey("delegation.already_exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
