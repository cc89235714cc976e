// Package app assembles the services over either Postgres or in-memory
// storage.
package app

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	actorservice "marketparticipant/internal/actor/service"
	actorstore "marketparticipant/internal/actor/store"
	"marketparticipant/internal/auditlog"
	"marketparticipant/internal/consolidation"
	consolidationstore "marketparticipant/internal/consolidation/store"
	delegationservice "marketparticipant/internal/delegation/service"
	delegationstore "marketparticipant/internal/delegation/store"
	"marketparticipant/internal/events"
	"marketparticipant/internal/events/relay"
	eventmemory "marketparticipant/internal/events/store/memory"
	eventpostgres "marketparticipant/internal/events/store/postgres"
	gridareaservice "marketparticipant/internal/gridarea/service"
	gridareastore "marketparticipant/internal/gridarea/store"
	"marketparticipant/internal/identity"
	"marketparticipant/internal/organization"
	"marketparticipant/internal/reservation"
	reservationstore "marketparticipant/internal/reservation/store"
	"marketparticipant/internal/userrole"
	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/tx"
)

// App holds the wired services and workers.
type App struct {
	Actors         *actorservice.Service
	GridAreas      *gridareaservice.Service
	Delegations    *delegationservice.Service
	Consolidations *consolidation.Service
	Organizations  *organization.Auditor
	UserRoles      *userrole.Auditor
	Scheduler      *consolidation.Scheduler

	// Roles is the process-wide, read-only role lookup table.
	Roles *identity.RoleMap
	// Relay is nil when no producer is configured.
	Relay *relay.Relay
}

// Options tune the workers. A nil Roles selects the compiled role map.
type Options struct {
	Logger                *slog.Logger
	Registerer            prometheus.Registerer
	Roles                 *identity.RoleMap
	Producer              relay.Producer
	ConsolidationInterval time.Duration
	OutboxInterval        time.Duration
	OutboxBatchSize       int
}

type actorStore interface {
	actorservice.ActorStore
	consolidation.ActorStore
}

type gridAreaStore interface {
	gridareaservice.GridAreaStore
	consolidation.GridAreaStore
}

type stores struct {
	actors         actorStore
	gridAreas      gridAreaStore
	delegations    delegationservice.DelegationStore
	consolidations consolidation.Store
	reservations   reservation.Store
	outbox         events.Store
	relay          events.RelayStore
	organizations  auditlog.HistorySource[id.OrganizationID, organization.Organization]
	userRoles      auditlog.HistorySource[id.UserRoleID, userrole.UserRole]
	runner         tx.Runner
}

// NewPostgres wires Postgres-backed stores. reservations may be a Redis
// store; when nil the Postgres reservation table is used.
func NewPostgres(db *sql.DB, reservations reservation.Store, txTimeout time.Duration, opts Options) *App {
	actors := actorstore.NewPostgres(db)
	gridAreas := gridareastore.NewPostgres(db)
	outbox := eventpostgres.New(db)
	if reservations == nil {
		reservations = reservationstore.NewPostgres(db)
	}
	return build(stores{
		actors:         actors,
		gridAreas:      gridAreas,
		delegations:    delegationstore.NewPostgres(db),
		consolidations: consolidationstore.NewPostgres(db),
		reservations:   reservations,
		outbox:         outbox,
		relay:          outbox,
		organizations:  auditlog.NewPostgresHistory[id.OrganizationID, organization.Organization](db, "organization_history", "organization_id"),
		userRoles:      auditlog.NewPostgresHistory[id.UserRoleID, userrole.UserRole](db, "user_role_history", "user_role_id"),
		runner:         tx.NewPostgresRunner(db, tx.WithTimeout(txTimeout)),
	}, opts)
}

// InMemory exposes the backing stores of an in-memory App so callers can seed
// and inspect state.
type InMemory struct {
	*App
	Outbox              *eventmemory.InMemoryStore
	OrganizationHistory *auditlog.MemoryHistory[id.OrganizationID, organization.Organization]
	UserRoleHistory     *auditlog.MemoryHistory[id.UserRoleID, userrole.UserRole]
}

// NewInMemory wires in-memory stores sharing one memory runner.
func NewInMemory(opts Options) *InMemory {
	actors := actorstore.NewInMemory()
	gridAreas := gridareastore.NewInMemory()
	outbox := eventmemory.NewInMemoryStore()
	orgs := auditlog.NewMemoryHistory[id.OrganizationID, organization.Organization]()
	roles := auditlog.NewMemoryHistory[id.UserRoleID, userrole.UserRole]()
	a := build(stores{
		actors:         actors,
		gridAreas:      gridAreas,
		delegations:    delegationstore.NewInMemory(),
		consolidations: consolidationstore.NewInMemory(),
		reservations:   reservationstore.NewInMemory(),
		outbox:         outbox,
		relay:          outbox,
		organizations:  orgs,
		userRoles:      roles,
		runner:         tx.NewMemoryRunner(),
	}, opts)
	return &InMemory{App: a, Outbox: outbox, OrganizationHistory: orgs, UserRoleHistory: roles}
}

func build(s stores, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	roles := opts.Roles
	if roles == nil {
		roles = identity.MustDefault()
	}

	outbox := events.NewOutbox(s.outbox)
	rule := reservation.NewRule(s.reservations,
		reservation.WithLogger(logger),
		reservation.WithMetrics(reservation.NewMetrics(reg)),
	)
	gridAreas := gridareaservice.New(s.gridAreas, s.runner, gridareaservice.WithLogger(logger))
	delegations := delegationservice.New(s.delegations, s.actors, outbox, s.runner,
		delegationservice.WithLogger(logger),
		delegationservice.WithMetrics(delegationservice.NewMetrics(reg)),
	)
	actors := actorservice.New(s.actors, rule, outbox, s.runner,
		actorservice.WithLogger(logger),
		actorservice.WithMetrics(actorservice.NewMetrics(reg)),
		actorservice.WithGridAreaLookup(gridAreas),
		actorservice.WithDelegationSource(delegations),
		actorservice.WithRoleResolver(roles),
	)
	consolidations := consolidation.New(s.actors, rule, s.gridAreas, outbox, s.consolidations, s.runner,
		consolidation.WithLogger(logger),
		consolidation.WithMetrics(consolidation.NewMetrics(reg)),
	)

	a := &App{
		Actors:         actors,
		GridAreas:      gridAreas,
		Delegations:    delegations,
		Consolidations: consolidations,
		Organizations:  organization.NewAuditor(s.organizations),
		UserRoles:      userrole.NewAuditor(s.userRoles),
		Roles:          roles,
		Scheduler: consolidation.NewScheduler(consolidations,
			consolidation.WithInterval(opts.ConsolidationInterval),
			consolidation.WithSchedulerLogger(logger),
		),
	}
	if opts.Producer != nil {
		a.Relay = relay.New(s.relay, opts.Producer, s.runner,
			relay.WithLogger(logger),
			relay.WithMetrics(relay.NewMetrics(reg)),
			relay.WithInterval(opts.OutboxInterval),
			relay.WithBatchSize(opts.OutboxBatchSize),
		)
	}
	return a
}
