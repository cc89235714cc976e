package consolidation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	actormodels "marketparticipant/internal/actor/models"
	actorstore "marketparticipant/internal/actor/store"
	"marketparticipant/internal/consolidation"
	"marketparticipant/internal/consolidation/store"
	"marketparticipant/internal/events"
	eventstore "marketparticipant/internal/events/store/memory"
	gridareamodels "marketparticipant/internal/gridarea/models"
	gridareastore "marketparticipant/internal/gridarea/store"
	"marketparticipant/internal/marketrole"
	"marketparticipant/internal/reservation"
	reservationstore "marketparticipant/internal/reservation/store"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
	"marketparticipant/pkg/platform/tx"
	"marketparticipant/pkg/requestcontext"
	mptestutil "marketparticipant/pkg/testutil"
)

type ConsolidationSuite struct {
	suite.Suite
	ctx          context.Context
	actors       *actorstore.InMemory
	reservations *reservationstore.InMemory
	rule         *reservation.Rule
	gridAreas    *gridareastore.InMemory
	outbox       *eventstore.InMemoryStore
	store        *store.InMemory
	metrics      *consolidation.Metrics
	service      *consolidation.Service
	areas        map[string]id.GridAreaID
}

func TestConsolidationSuite(t *testing.T) {
	suite.Run(t, new(ConsolidationSuite))
}

func (s *ConsolidationSuite) SetupTest() {
	s.ctx, _ = mptestutil.AdminContext()
	s.actors = actorstore.NewInMemory()
	s.reservations = reservationstore.NewInMemory()
	s.rule = reservation.NewRule(s.reservations)
	s.gridAreas = gridareastore.NewInMemory()
	s.outbox = eventstore.NewInMemoryStore()
	s.store = store.NewInMemory()
	s.metrics = consolidation.NewMetrics(prometheus.NewRegistry())
	s.service = consolidation.New(s.actors, s.rule, s.gridAreas, events.NewOutbox(s.outbox), s.store, tx.NewMemoryRunner(),
		consolidation.WithMetrics(s.metrics),
	)

	s.areas = make(map[string]id.GridAreaID)
	for _, code := range []string{"101", "102", "103"} {
		c, err := gridareamodels.ParseCode(code)
		s.Require().NoError(err)
		g, err := gridareamodels.NewGridArea(c, "Area "+code, gridareamodels.PriceAreaDK1, gridareamodels.TypeDistribution, mptestutil.FixedNow.AddDate(-1, 0, 0), nil)
		s.Require().NoError(err)
		gridAreaID, err := s.gridAreas.AddOrUpdate(s.ctx, g)
		s.Require().NoError(err)
		s.areas[code] = gridAreaID
	}
}

// provider persists an active grid access provider holding codes, with
// reservations claimed.
func (s *ConsolidationSuite) provider(number string, fn marketrole.EicFunction, codes ...string) *actormodels.Actor {
	n, err := actormodels.ParseActorNumber(number)
	s.Require().NoError(err)
	var gas []marketrole.ActorGridArea
	for _, code := range codes {
		gas = append(gas, marketrole.ActorGridArea{GridAreaID: s.areas[code]})
	}
	a, err := actormodels.NewActor(id.OrganizationID(uuid.New()), n, "Provider "+number,
		marketrole.ActorMarketRole{Function: fn, GridAreas: gas}, mptestutil.FixedNow)
	s.Require().NoError(err)
	actorID, err := s.actors.AddOrUpdate(s.ctx, a)
	s.Require().NoError(err)
	a.ID = actorID

	s.Require().NoError(a.Activate(mptestutil.FixedNow))
	a.ClearEvents()
	_, err = s.actors.AddOrUpdate(s.ctx, a)
	s.Require().NoError(err)
	s.Require().NoError(s.rule.Apply(s.ctx, a.ID, a.MarketRole))
	return a
}

func (s *ConsolidationSuite) TestConsolidateTransfersGridAreas() {
	from := s.provider("5790000555550", marketrole.GridAccessProvider, "101", "102")
	to := s.provider("5790000000005", marketrole.GridAccessProvider, "103")

	creds, err := actormodels.NewCertificateCredentials("ab12", "lookup")
	s.Require().NoError(err)
	s.Require().NoError(from.AssignCredentials(creds, mptestutil.FixedNow))
	from.ClearEvents()
	_, err = s.actors.AddOrUpdate(s.ctx, from)
	s.Require().NoError(err)

	at := mptestutil.FixedNow.AddDate(0, 0, 7)
	s.Require().NoError(s.service.Consolidate(s.ctx, from.ID, to.ID, at))

	gotFrom, err := s.actors.Get(s.ctx, from.ID)
	s.Require().NoError(err)
	s.Equal(actormodels.ActorStatusInactive, gotFrom.Status)
	s.Empty(gotFrom.MarketRole.GridAreas)
	s.Nil(gotFrom.Credentials)

	gotTo, err := s.actors.Get(s.ctx, to.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]id.GridAreaID{s.areas["101"], s.areas["102"], s.areas["103"]}, gotTo.MarketRole.GridAreaIDs())

	held, err := s.reservations.ListByActor(s.ctx, to.ID)
	s.Require().NoError(err)
	s.Len(held, 3)
	released, err := s.reservations.ListByActor(s.ctx, from.ID)
	s.Require().NoError(err)
	s.Empty(released)

	for _, code := range []string{"101", "102"} {
		records, err := s.gridAreas.AuditRecords(s.ctx, s.areas[code])
		s.Require().NoError(err)
		s.Require().Len(records, 2, code)
		s.Equal(gridareamodels.AuditFieldConsolidationRequested, records[0].Field)
		s.Equal(gridareamodels.AuditFieldConsolidationCompleted, records[1].Field)
		s.Equal("5790000555550", records[0].Previous)
		s.Equal("5790000000005", records[0].Current)

		g, err := s.gridAreas.Get(s.ctx, s.areas[code])
		s.Require().NoError(err)
		s.Require().NotNil(g.ValidTo)
		s.True(at.Equal(*g.ValidTo))
	}
	untouched, err := s.gridAreas.AuditRecords(s.ctx, s.areas["103"])
	s.Require().NoError(err)
	s.Empty(untouched)

	s.Subset(s.outbox.Types(), []string{"ActorCredentialsRemoved", "ActorDeactivated", "GridAreaOwnershipAssigned"})
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Executed))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Transferred))
}

func (s *ConsolidationSuite) TestSharedGridAreaIsNotTransferredTwice() {
	from := s.provider("5790000555550", marketrole.GridAccessProvider, "101")
	to := s.provider("5790000000005", marketrole.GridAccessProvider, "102")
	to.MarketRole.GridAreas = append(to.MarketRole.GridAreas, marketrole.ActorGridArea{GridAreaID: s.areas["101"]})
	_, err := s.actors.AddOrUpdate(s.ctx, to)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Consolidate(s.ctx, from.ID, to.ID, mptestutil.FixedNow))

	gotTo, err := s.actors.Get(s.ctx, to.ID)
	s.Require().NoError(err)
	s.Equal([]id.GridAreaID{s.areas["102"], s.areas["101"]}, gotTo.MarketRole.GridAreaIDs())
	records, err := s.gridAreas.AuditRecords(s.ctx, s.areas["101"])
	s.Require().NoError(err)
	s.Empty(records)
	s.Equal(0.0, testutil.ToFloat64(s.metrics.Transferred))
}

func (s *ConsolidationSuite) TestConsolidateRejectsOtherFunctions() {
	from := s.provider("5790000555550", marketrole.GridAccessProvider, "101")
	to := s.provider("5790000000005", marketrole.EnergySupplier, "102")

	err := s.service.Consolidate(s.ctx, from.ID, to.ID, mptestutil.FixedNow)
	s.Require().Error(err)
	s.True(dErrors.IsFatal(err))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Failed))
}

func (s *ConsolidationSuite) TestConsolidateIntoItselfIsFatal() {
	a := s.provider("5790000555550", marketrole.GridAccessProvider, "101", "102")

	err := s.service.Consolidate(s.ctx, a.ID, a.ID, mptestutil.FixedNow)
	s.Require().Error(err)
	s.True(dErrors.IsFatal(err))

	got, err := s.actors.Get(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(actormodels.ActorStatusActive, got.Status)
	s.Len(got.MarketRole.GridAreas, 2)
	s.Empty(s.outbox.Types())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Failed))
}

func (s *ConsolidationSuite) TestConsolidateRollsBackOnFailure() {
	from := s.provider("5790000555550", marketrole.GridAccessProvider, "101")
	to := s.provider("5790000000005", marketrole.GridAccessProvider, "103")

	// An area unknown to the grid area registry makes SetValidTo fail after
	// both actors were written.
	missing := id.GridAreaID(uuid.New())
	from.MarketRole.GridAreas = append(from.MarketRole.GridAreas, marketrole.ActorGridArea{GridAreaID: missing})
	_, err := s.actors.AddOrUpdate(s.ctx, from)
	s.Require().NoError(err)

	err = s.service.Consolidate(s.ctx, from.ID, to.ID, mptestutil.FixedNow)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	gotFrom, err := s.actors.Get(s.ctx, from.ID)
	s.Require().NoError(err)
	s.Equal(actormodels.ActorStatusActive, gotFrom.Status)
	s.Len(gotFrom.MarketRole.GridAreas, 2)

	gotTo, err := s.actors.Get(s.ctx, to.ID)
	s.Require().NoError(err)
	s.Equal([]id.GridAreaID{s.areas["103"]}, gotTo.MarketRole.GridAreaIDs())

	records, err := s.gridAreas.AuditRecords(s.ctx, s.areas["101"])
	s.Require().NoError(err)
	s.Empty(records)
	s.Empty(s.outbox.All())
}

func (s *ConsolidationSuite) TestScheduleAndExecuteDue() {
	from := s.provider("5790000555550", marketrole.GridAccessProvider, "101")
	to := s.provider("5790000000005", marketrole.GridAccessProvider, "103")
	at := mptestutil.FixedNow.AddDate(0, 0, 1)

	c, err := s.service.Schedule(s.ctx, from.ID, to.ID, at)
	s.Require().NoError(err)
	s.Equal(consolidation.StatusPending, c.Status)

	_, err = s.service.Schedule(s.ctx, from.ID, to.ID, at)
	s.Equal("consolidation.already_scheduled", dErrors.KeyOf(err))

	n, err := s.service.ExecuteDue(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	later := requestcontext.WithTime(s.ctx, at.Add(time.Minute))
	n, err = s.service.ExecuteDue(later)
	s.Require().NoError(err)
	s.Equal(1, n)

	pending, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Empty(pending)

	gotTo, err := s.actors.Get(s.ctx, to.ID)
	s.Require().NoError(err)
	s.Len(gotTo.MarketRole.GridAreas, 2)
}

func (s *ConsolidationSuite) TestScheduleRejections() {
	gap := s.provider("5790000555550", marketrole.GridAccessProvider, "101")
	supplier := s.provider("5790000000005", marketrole.EnergySupplier, "103")

	_, err := s.service.Schedule(s.ctx, gap.ID, gap.ID, mptestutil.FixedNow)
	s.Equal("consolidation.same_actor", dErrors.KeyOf(err))

	_, err = s.service.Schedule(s.ctx, gap.ID, supplier.ID, mptestutil.FixedNow)
	s.Equal("consolidation.not_grid_access_provider", dErrors.KeyOf(err))

	_, err = s.service.Schedule(s.ctx, gap.ID, id.ActorID(uuid.New()), mptestutil.FixedNow)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ConsolidationSuite) TestSchedulerTick() {
	from := s.provider("5790000555550", marketrole.GridAccessProvider, "101")
	to := s.provider("5790000000005", marketrole.GridAccessProvider, "103")
	at := mptestutil.FixedNow.AddDate(0, 0, 1)
	_, err := s.service.Schedule(s.ctx, from.ID, to.ID, at)
	s.Require().NoError(err)

	scheduler := consolidation.NewScheduler(s.service, consolidation.WithClock(func() time.Time { return at }))
	s.Equal(1, scheduler.Tick(context.Background()))
	s.Equal(0, scheduler.Tick(context.Background()))
}
