package service_test

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"marketparticipant/internal/actor/models"
	"marketparticipant/internal/actor/service"
	"marketparticipant/internal/actor/service/mocks"
	actorstore "marketparticipant/internal/actor/store"
	"marketparticipant/internal/auditlog"
	delegationmodels "marketparticipant/internal/delegation/models"
	"marketparticipant/internal/events"
	eventstore "marketparticipant/internal/events/store/memory"
	"marketparticipant/internal/marketrole"
	"marketparticipant/internal/reservation"
	reservationstore "marketparticipant/internal/reservation/store"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
	"marketparticipant/pkg/platform/sentinel"
	"marketparticipant/pkg/platform/tx"
	mptestutil "marketparticipant/pkg/testutil"
)

type ActorServiceSuite struct {
	suite.Suite
	ctx          context.Context
	actors       *actorstore.InMemory
	reservations *reservationstore.InMemory
	outbox       *eventstore.InMemoryStore
	metrics      *service.Metrics
	service      *service.Service
	org          id.OrganizationID
	gridA        id.GridAreaID
	gridB        id.GridAreaID
}

func TestActorServiceSuite(t *testing.T) {
	suite.Run(t, new(ActorServiceSuite))
}

func (s *ActorServiceSuite) SetupTest() {
	s.ctx, _ = mptestutil.AdminContext()
	s.actors = actorstore.NewInMemory()
	s.reservations = reservationstore.NewInMemory()
	s.outbox = eventstore.NewInMemoryStore()
	s.metrics = service.NewMetrics(prometheus.NewRegistry())
	s.service = service.New(
		s.actors,
		reservation.NewRule(s.reservations),
		events.NewOutbox(s.outbox),
		tx.NewMemoryRunner(),
		service.WithMetrics(s.metrics),
	)
	s.org = id.OrganizationID(uuid.New())
	s.gridA = id.GridAreaID(uuid.New())
	s.gridB = id.GridAreaID(uuid.New())
}

func (s *ActorServiceSuite) gridAccessProvider(areas ...id.GridAreaID) marketrole.ActorMarketRole {
	role := marketrole.ActorMarketRole{Function: marketrole.GridAccessProvider}
	for _, a := range areas {
		role.GridAreas = append(role.GridAreas, marketrole.ActorGridArea{GridAreaID: a})
	}
	return role
}

func (s *ActorServiceSuite) create(number string, role marketrole.ActorMarketRole) *models.Actor {
	a, err := s.service.CreateActor(s.ctx, service.CreateActorRequest{
		OrganizationID: s.org,
		ActorNumber:    number,
		Name:           "Actor " + number,
		MarketRole:     role,
	})
	s.Require().NoError(err)
	return a
}

func (s *ActorServiceSuite) TestCreateActor() {
	s.Run("persists a New actor and reserves its grid areas", func() {
		a := s.create("5790000555550", s.gridAccessProvider(s.gridA))

		s.False(a.ID.IsNil())
		s.Equal(models.ActorStatusNew, a.Status)

		held, err := s.reservations.ListByActor(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Len(held, 1)
		s.Equal(float64(1), testutil.ToFloat64(s.metrics.Created))
	})

	s.Run("rejects a duplicate actor number", func() {
		_, err := s.service.CreateActor(s.ctx, service.CreateActorRequest{
			OrganizationID: s.org,
			ActorNumber:    "5790000555550",
			Name:           "Copy",
			MarketRole:     marketrole.ActorMarketRole{Function: marketrole.EnergySupplier},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("actor.number.already_used", dErrors.KeyOf(err))
	})

	s.Run("rejects a grid area held by another grid access provider", func() {
		_, err := s.service.CreateActor(s.ctx, service.CreateActorRequest{
			OrganizationID: s.org,
			ActorNumber:    "5790000000005",
			Name:           "Other",
			MarketRole:     s.gridAccessProvider(s.gridA),
		})
		s.Equal("actor.grid_area_reserved_by_other_actor", dErrors.KeyOf(err))

		n, _ := models.ParseActorNumber("5790000000005")
		_, err = s.actors.GetByNumber(s.ctx, n)
		s.ErrorIs(err, sentinel.ErrNotFound, "the actor write is rolled back")
	})

	s.Run("rejects a malformed actor number", func() {
		_, err := s.service.CreateActor(s.ctx, service.CreateActorRequest{
			OrganizationID: s.org,
			ActorNumber:    "5790000555551",
			Name:           "Bad",
			MarketRole:     marketrole.ActorMarketRole{Function: marketrole.EnergySupplier},
		})
		s.Require().Error(err)
	})
}

func (s *ActorServiceSuite) TestActivateEnqueuesEvents() {
	a := s.create("5790000555550", s.gridAccessProvider(s.gridA, s.gridB))

	activated, err := s.service.Activate(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(models.ActorStatusActive, activated.Status)
	s.Empty(activated.PendingEvents(), "events are cleared after commit")

	s.Equal([]string{"ActorActivated", "GridAreaOwnershipAssigned", "GridAreaOwnershipAssigned"}, s.outbox.Types())
}

func (s *ActorServiceSuite) TestRejectedTransitionLeavesNoTrace() {
	a := s.create("5790000555550", marketrole.ActorMarketRole{Function: marketrole.EnergySupplier})
	c, err := models.NewCertificateCredentials("abc", "lookup")
	s.Require().NoError(err)
	_, err = s.service.Activate(s.ctx, a.ID)
	s.Require().NoError(err)
	_, err = s.service.AssignCredentials(s.ctx, a.ID, c)
	s.Require().NoError(err)
	before := len(s.outbox.All())

	_, err = s.service.Deactivate(s.ctx, a.ID)
	s.Equal("actor.credentials.must_be_removed", dErrors.KeyOf(err))

	stored, err := s.actors.Get(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(models.ActorStatusActive, stored.Status)
	s.Len(s.outbox.All(), before)
}

func (s *ActorServiceSuite) TestDeactivateAfterRemovingCredentials() {
	a := s.create("5790000555550", marketrole.ActorMarketRole{Function: marketrole.EnergySupplier})
	c, err := models.NewClientSecretCredentials("client", "secret", mptestutil.FixedNow.AddDate(1, 0, 0))
	s.Require().NoError(err)

	_, err = s.service.Activate(s.ctx, a.ID)
	s.Require().NoError(err)
	_, err = s.service.AssignCredentials(s.ctx, a.ID, c)
	s.Require().NoError(err)
	_, err = s.service.RemoveCredentials(s.ctx, a.ID)
	s.Require().NoError(err)
	deactivated, err := s.service.Deactivate(s.ctx, a.ID)
	s.Require().NoError(err)

	s.Equal(models.ActorStatusInactive, deactivated.Status)
	s.Equal([]string{
		"ActorActivated",
		"ActorCredentialsAssigned",
		"ActorCredentialsRemoved",
		"ActorDeactivated",
	}, s.outbox.Types())
}

func (s *ActorServiceSuite) TestAssignCredentialsThumbprintConflict() {
	first := s.create("5790000555550", marketrole.ActorMarketRole{Function: marketrole.EnergySupplier})
	second := s.create("5790000000005", marketrole.ActorMarketRole{Function: marketrole.EnergySupplier})
	c, err := models.NewCertificateCredentials("ABC", "lookup")
	s.Require().NoError(err)

	_, err = s.service.AssignCredentials(s.ctx, first.ID, c)
	s.Require().NoError(err)
	_, err = s.service.AssignCredentials(s.ctx, second.ID, c)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal("actor.credentials.thumbprint_already_used", dErrors.KeyOf(err))
}

func (s *ActorServiceSuite) TestUpdateMarketRoleReappliesReservations() {
	a := s.create("5790000555550", s.gridAccessProvider(s.gridA))

	_, err := s.service.UpdateMarketRole(s.ctx, a.ID, s.gridAccessProvider(s.gridB))
	s.Require().NoError(err)

	other := s.create("5790000000005", s.gridAccessProvider(s.gridA))
	s.False(other.ID.IsNil(), "released grid area can be claimed again")

	_, err = s.service.Activate(s.ctx, a.ID)
	s.Require().NoError(err)
	_, err = s.service.UpdateMarketRole(s.ctx, a.ID, s.gridAccessProvider(s.gridA, s.gridB))
	s.Equal("actor.market_role.immutable", dErrors.KeyOf(err))
}

func (s *ActorServiceSuite) TestUnknownActor() {
	_, err := s.service.Activate(s.ctx, id.ActorID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Rejections.WithLabelValues("activate", string(dErrors.CodeNotFound))))
}

func (s *ActorServiceSuite) TestBuildAuditLog() {
	a := s.create("5790000555550", marketrole.ActorMarketRole{Function: marketrole.EnergySupplier})

	later := mptestutil.Context(mptestutil.FixedNow.Add(time.Hour), id.UserID(uuid.New()))
	_, err := s.service.Rename(later, a.ID, "Renamed")
	s.Require().NoError(err)
	evenLater := mptestutil.Context(mptestutil.FixedNow.Add(2*time.Hour), id.UserID(uuid.New()))
	_, err = s.service.Activate(evenLater, a.ID)
	s.Require().NoError(err)

	entries, err := s.service.BuildAuditLog(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(service.AuditFieldCreated, entries[0].Field)
	s.Equal(service.AuditFieldName, entries[1].Field)
	s.Equal("Renamed", entries[1].Current)
	s.Equal(service.AuditFieldStatus, entries[2].Field)
	s.Equal("Active", entries[2].Current)
}

func TestBuildAuditLogMergesDelegations(t *testing.T) {
	ctrl := gomock.NewController(t)
	actors := mocks.NewMockActorStore(ctrl)
	delegations := mocks.NewMockDelegationSource(ctrl)
	svc := service.New(actors, mocks.NewMockReservationRule(ctrl), mocks.NewMockEventOutbox(ctrl), tx.NewMemoryRunner(),
		service.WithDelegationSource(delegations),
	)

	ctx, _ := mptestutil.AdminContext()
	actorID := id.ActorID(uuid.New())
	created := mptestutil.FixedNow
	start := created.Add(24 * time.Hour)
	stop := start.Add(24 * time.Hour)
	starter, stopper := id.UserID(uuid.New()), id.UserID(uuid.New())
	actor := models.Actor{ID: actorID, Name: "Grid Co", Status: models.ActorStatusActive}

	actors.EXPECT().Get(gomock.Any(), actorID).Return(&actor, nil)
	actors.EXPECT().History(gomock.Any(), actorID).Return(
		[]auditlog.Snapshot[models.Actor]{{State: actor, ValidFrom: created}}, nil,
	)
	delegations.EXPECT().ListByDelegator(gomock.Any(), actorID).Return([]*delegationmodels.Delegation{{
		ID:          id.DelegationID(uuid.New()),
		Kind:        delegationmodels.KindMessage,
		Subject:     string(delegationmodels.MessageRSM012Inbound),
		DelegatedBy: actorID,
		Periods: []delegationmodels.Period{{
			ID:          id.PeriodID(uuid.New()),
			DelegatedTo: id.ActorID(uuid.New()),
			GridAreaID:  id.GridAreaID(uuid.New()),
			StartsAt:    start,
			StopsAt:     &stop,
			StartedBy:   starter,
			StoppedBy:   stopper,
		}},
	}}, nil)

	entries, err := svc.BuildAuditLog(ctx, actorID)
	require.NoError(t, err)
	fields := make([]service.AuditField, 0, len(entries))
	for _, e := range entries {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []service.AuditField{
		service.AuditFieldCreated,
		service.AuditFieldDelegationStart,
		service.AuditFieldDelegationStop,
	}, fields)
	assert.Equal(t, starter, entries[1].ChangedBy)
	assert.Equal(t, stopper, entries[2].ChangedBy)
}

func TestCreateActorWrapsStoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	actors := mocks.NewMockActorStore(ctrl)
	svc := service.New(actors, mocks.NewMockReservationRule(ctrl), mocks.NewMockEventOutbox(ctrl), tx.NewMemoryRunner())

	actors.EXPECT().GetByNumber(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
	actors.EXPECT().AddOrUpdate(gomock.Any(), gomock.Any()).Return(id.ActorID{}, errors.New("disk full"))

	ctx, _ := mptestutil.AdminContext()
	_, err := svc.CreateActor(ctx, service.CreateActorRequest{
		OrganizationID: id.OrganizationID(uuid.New()),
		ActorNumber:    "5790000555550",
		Name:           "Supplier",
		MarketRole:     marketrole.ActorMarketRole{Function: marketrole.EnergySupplier},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestAppRoleID(t *testing.T) {
	ctrl := gomock.NewController(t)
	actors := mocks.NewMockActorStore(ctrl)
	roles := mocks.NewMockRoleResolver(ctrl)
	svc := service.New(actors, mocks.NewMockReservationRule(ctrl), mocks.NewMockEventOutbox(ctrl), tx.NewMemoryRunner(),
		service.WithRoleResolver(roles),
	)

	actorID := id.ActorID(uuid.New())
	roleID := uuid.New()
	actor := models.Actor{ID: actorID, MarketRole: marketrole.ActorMarketRole{Function: marketrole.GridAccessProvider}}
	actors.EXPECT().Get(gomock.Any(), actorID).Return(&actor, nil)
	roles.EXPECT().RoleID(marketrole.GridAccessProvider).Return(roleID, nil)

	ctx, _ := mptestutil.AdminContext()
	got, err := svc.AppRoleID(ctx, actorID)
	require.NoError(t, err)
	assert.Equal(t, roleID, got)
}

func TestAppRoleIDWithoutRoleMap(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := service.New(mocks.NewMockActorStore(ctrl), mocks.NewMockReservationRule(ctrl), mocks.NewMockEventOutbox(ctrl), tx.NewMemoryRunner())

	ctx, _ := mptestutil.AdminContext()
	_, err := svc.AppRoleID(ctx, id.ActorID(uuid.New()))
	assert.True(t, dErrors.IsFatal(err))
}
