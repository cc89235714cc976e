// Package reservation guarantees that a grid area is held by at most one
// actor per market-role function.
//
// The guarantee rests on the backing store: TryReserve is a single atomic
// conditional insert against a uniqueness constraint on (function, grid
// area), never a read followed by a write. A false result is an ordinary
// business rejection and must not be retried with the same assignment.
package reservation

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"marketparticipant/internal/marketrole"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
)

// Reservation is one claimed (function, grid area) pair.
type Reservation struct {
	ActorID    id.ActorID
	Function   marketrole.EicFunction
	GridAreaID id.GridAreaID
}

// Store is the reservation table. Implementations join the unit of work in
// context so a failed enclosing operation leaves no reservation behind.
type Store interface {
	// TryReserve claims the pair for actorID. It returns false, not an error,
	// when the pair is already claimed by any actor.
	TryReserve(ctx context.Context, actorID id.ActorID, function marketrole.EicFunction, gridAreaID id.GridAreaID) (bool, error)
	// ReleaseAll drops every reservation held by actorID. No-op when none exist.
	ReleaseAll(ctx context.Context, actorID id.ActorID) error
	ListByActor(ctx context.Context, actorID id.ActorID) ([]Reservation, error)
}

// Metrics counts reservation outcomes.
type Metrics struct {
	Reserved  prometheus.Counter
	Conflicts prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Reserved: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketparticipant_grid_area_reservations_total",
			Help: "Total number of grid area reservations taken",
		}),
		Conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "marketparticipant_grid_area_reservation_conflicts_total",
			Help: "Total number of grid area reservations rejected because another actor holds them",
		}),
	}
}

// Rule keeps an actor's reservations in line with its market role.
type Rule struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Rule)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Rule) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Rule) {
		r.metrics = m
	}
}

func NewRule(store Store, opts ...Option) *Rule {
	r := &Rule{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply releases the actor's reservations and claims every grid area of the
// role when its function requires exclusive ownership. Must run inside the
// unit of work that persists the role.
func (r *Rule) Apply(ctx context.Context, actorID id.ActorID, role marketrole.ActorMarketRole) error {
	if err := r.store.ReleaseAll(ctx, actorID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "release grid area reservations")
	}
	if !role.Function.RequiresUniqueGridAreas() {
		return nil
	}
	for _, ga := range role.GridAreas {
		ok, err := r.store.TryReserve(ctx, actorID, role.Function, ga.GridAreaID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "reserve grid area")
		}
		if !ok {
			if r.metrics != nil {
				r.metrics.Conflicts.Inc()
			}
			r.logger.InfoContext(ctx, "grid area already reserved",
				"actor_id", actorID.String(),
				"grid_area_id", ga.GridAreaID.String(),
				"function", role.Function.String(),
			)
			return dErrors.New(dErrors.CodeConflict, "grid area is reserved by another actor").
				WithKey("actor.grid_area_reserved_by_other_actor")
		}
		if r.metrics != nil {
			r.metrics.Reserved.Inc()
		}
	}
	return nil
}
