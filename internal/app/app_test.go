package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	actormodels "marketparticipant/internal/actor/models"
	actorservice "marketparticipant/internal/actor/service"
	"marketparticipant/internal/events"
	gridareamodels "marketparticipant/internal/gridarea/models"
	gridareaservice "marketparticipant/internal/gridarea/service"
	"marketparticipant/internal/marketrole"
	"marketparticipant/internal/organization"
	id "marketparticipant/pkg/domain"
	mptestutil "marketparticipant/pkg/testutil"
)

type capturingProducer struct {
	mu   sync.Mutex
	msgs []events.Message
}

func (p *capturingProducer) Publish(_ context.Context, msgs []events.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msgs...)
	return nil
}

type InMemoryAppSuite struct {
	suite.Suite
	ctx      context.Context
	producer *capturingProducer
	app      *InMemory
}

func TestInMemoryAppSuite(t *testing.T) {
	suite.Run(t, new(InMemoryAppSuite))
}

func (s *InMemoryAppSuite) SetupTest() {
	s.ctx, _ = mptestutil.AdminContext()
	s.producer = &capturingProducer{}
	s.app = NewInMemory(Options{Producer: s.producer})
}

func (s *InMemoryAppSuite) gridArea(code string) id.GridAreaID {
	g, err := s.app.GridAreas.CreateGridArea(s.ctx, gridareaservice.CreateGridAreaRequest{
		Code:          code,
		Name:          "Area " + code,
		PriceAreaCode: "DK1",
		Type:          gridareamodels.TypeDistribution,
		ValidFrom:     mptestutil.FixedNow.AddDate(-1, 0, 0),
	})
	s.Require().NoError(err)
	return g.ID
}

func (s *InMemoryAppSuite) provider(number string, areas ...id.GridAreaID) *actormodels.Actor {
	var gas []marketrole.ActorGridArea
	for _, a := range areas {
		gas = append(gas, marketrole.ActorGridArea{GridAreaID: a})
	}
	a, err := s.app.Actors.CreateActor(s.ctx, actorservice.CreateActorRequest{
		OrganizationID: id.OrganizationID(uuid.New()),
		ActorNumber:    number,
		Name:           "Provider " + number,
		MarketRole:     marketrole.ActorMarketRole{Function: marketrole.GridAccessProvider, GridAreas: gas},
	})
	s.Require().NoError(err)
	a, err = s.app.Actors.Activate(s.ctx, a.ID)
	s.Require().NoError(err)
	return a
}

func (s *InMemoryAppSuite) TestScheduledConsolidationEndToEnd() {
	a, b, c := s.gridArea("101"), s.gridArea("102"), s.gridArea("103")
	from := s.provider("5790000555550", a, b)
	to := s.provider("5790000000005", c)

	at := mptestutil.FixedNow.AddDate(0, 0, 3)
	_, err := s.app.Consolidations.Schedule(s.ctx, from.ID, to.ID, at)
	s.Require().NoError(err)

	n, err := s.app.Relay.Flush(s.ctx)
	s.Require().NoError(err)
	s.Positive(n)
	published := len(s.producer.msgs)

	executed, err := s.app.Consolidations.ExecuteDue(s.ctx)
	s.Require().NoError(err)
	s.Zero(executed)

	later := mptestutil.Context(at.Add(time.Hour), id.UserID(uuid.New()))
	executed, err = s.app.Consolidations.ExecuteDue(later)
	s.Require().NoError(err)
	s.Equal(1, executed)

	gotTo, err := s.app.Actors.Get(s.ctx, to.ID)
	s.Require().NoError(err)
	s.ElementsMatch([]id.GridAreaID{a, b, c}, gotTo.MarketRole.GridAreaIDs())

	gotFrom, err := s.app.Actors.Get(s.ctx, from.ID)
	s.Require().NoError(err)
	s.Equal(actormodels.ActorStatusInactive, gotFrom.Status)

	entries, err := s.app.GridAreas.BuildAuditLog(s.ctx, a)
	s.Require().NoError(err)
	var fields []gridareamodels.AuditField
	for _, e := range entries {
		fields = append(fields, e.Field)
	}
	s.Subset(fields, []gridareamodels.AuditField{
		gridareamodels.AuditFieldConsolidationRequested,
		gridareamodels.AuditFieldValidTo,
		gridareamodels.AuditFieldConsolidationCompleted,
	})

	actorLog, err := s.app.Actors.BuildAuditLog(s.ctx, from.ID)
	s.Require().NoError(err)
	var statusChanges []string
	for _, e := range actorLog {
		if e.Field == actorservice.AuditFieldStatus {
			statusChanges = append(statusChanges, e.Current)
		}
	}
	s.Equal([]string{"Active", "Inactive"}, statusChanges)

	_, err = s.app.Relay.Flush(s.ctx)
	s.Require().NoError(err)
	var types []string
	for _, m := range s.producer.msgs[published:] {
		types = append(types, m.EventType)
	}
	s.Contains(types, "ActorDeactivated")
	s.Contains(types, "GridAreaOwnershipAssigned")
}

func (s *InMemoryAppSuite) TestNoRelayWithoutProducer() {
	s.Nil(NewInMemory(Options{}).Relay)
}

func (s *InMemoryAppSuite) TestOrganizationAuditFromRecordedHistory() {
	orgID := id.OrganizationID(uuid.New())
	org, err := organization.New(orgID, "Grid Co", "12345678", []string{"grid.example"})
	s.Require().NoError(err)

	ctx, _ := mptestutil.AdminContext()
	s.Require().NoError(s.app.OrganizationHistory.Record(ctx, orgID, *org, mptestutil.FixedNow, id.UserID{}))
	s.Require().NoError(org.SetStatus(organization.StatusActive))
	s.Require().NoError(s.app.OrganizationHistory.Record(ctx, orgID, *org, mptestutil.FixedNow.Add(time.Hour), id.UserID{}))

	entries, err := s.app.Organizations.BuildAuditLog(s.ctx, orgID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(organization.AuditFieldStatus, entries[0].Field)
	s.Equal("New", entries[0].Previous)
	s.Equal("Active", entries[0].Current)
}

func (s *InMemoryAppSuite) TestActorRoleResolvedFromRoleMap() {
	a := s.provider("5790000555550", s.gridArea("101"))

	roleID, err := s.app.Actors.AppRoleID(s.ctx, a.ID)
	s.Require().NoError(err)
	want, err := s.app.Roles.RoleID(marketrole.GridAccessProvider)
	s.Require().NoError(err)
	s.Equal(want, roleID)
}
