package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"marketparticipant/internal/actor/models"
	"marketparticipant/internal/marketrole"
	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/sentinel"
	"marketparticipant/pkg/platform/tx"
	"marketparticipant/pkg/testutil"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	user  id.UserID
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx, s.user = testutil.AdminContext()
}

func (s *InMemoryStoreSuite) actor(number string) *models.Actor {
	n, err := models.ParseActorNumber(number)
	s.Require().NoError(err)
	a, err := models.NewActor(id.OrganizationID(uuid.New()), n, "Supplier", marketrole.ActorMarketRole{
		Function: marketrole.EnergySupplier,
	}, testutil.FixedNow)
	s.Require().NoError(err)
	return a
}

func (s *InMemoryStoreSuite) TestAddAllocatesID() {
	a := s.actor("5790000555550")

	actorID, err := s.store.AddOrUpdate(s.ctx, a)
	s.Require().NoError(err)
	s.False(actorID.IsNil())
	s.True(a.ID.IsNil(), "caller's aggregate is not mutated")

	got, err := s.store.Get(s.ctx, actorID)
	s.Require().NoError(err)
	s.Equal(actorID, got.ID)
	s.Equal("Supplier", got.Name)
}

func (s *InMemoryStoreSuite) TestGetUnknown() {
	_, err := s.store.Get(s.ctx, id.ActorID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)

	n, _ := models.ParseActorNumber("5790000000005")
	_, err = s.store.GetByNumber(s.ctx, n)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestDuplicateNumber() {
	_, err := s.store.AddOrUpdate(s.ctx, s.actor("5790000555550"))
	s.Require().NoError(err)

	_, err = s.store.AddOrUpdate(s.ctx, s.actor("5790000555550"))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *InMemoryStoreSuite) TestDuplicateThumbprint() {
	first := s.actor("5790000555550")
	c, err := models.NewCertificateCredentials("abc123", "lookup-1")
	s.Require().NoError(err)
	s.Require().NoError(first.AssignCredentials(c, testutil.FixedNow))
	_, err = s.store.AddOrUpdate(s.ctx, first)
	s.Require().NoError(err)

	second := s.actor("5790000000005")
	c2, err := models.NewCertificateCredentials("ABC123", "lookup-2")
	s.Require().NoError(err)
	s.Require().NoError(second.AssignCredentials(c2, testutil.FixedNow))
	_, err = s.store.AddOrUpdate(s.ctx, second)
	s.ErrorIs(err, models.ErrThumbprintCredentialsConflict)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestRollbackRestoresPreviousState() {
	a := s.actor("5790000555550")
	actorID, err := s.store.AddOrUpdate(s.ctx, a)
	s.Require().NoError(err)

	runner := tx.NewMemoryRunner()
	err = runner.RunInTx(s.ctx, func(ctx context.Context) error {
		loaded, err := s.store.Get(ctx, actorID)
		if err != nil {
			return err
		}
		if err := loaded.Rename("Renamed", testutil.FixedNow); err != nil {
			return err
		}
		if _, err := s.store.AddOrUpdate(ctx, loaded); err != nil {
			return err
		}
		_, err = s.store.AddOrUpdate(ctx, s.actor("5790000000005"))
		s.Require().NoError(err)
		return errors.New("abort")
	})
	s.Require().Error(err)

	got, err := s.store.Get(s.ctx, actorID)
	s.Require().NoError(err)
	s.Equal("Supplier", got.Name)

	n, _ := models.ParseActorNumber("5790000000005")
	_, err = s.store.GetByNumber(s.ctx, n)
	s.ErrorIs(err, sentinel.ErrNotFound)

	history, err := s.store.History(s.ctx, actorID)
	s.Require().NoError(err)
	s.Len(history, 1)
	s.Nil(history[0].ValidTo)
}

func (s *InMemoryStoreSuite) TestHistoryVersions() {
	a := s.actor("5790000555550")
	actorID, err := s.store.AddOrUpdate(s.ctx, a)
	s.Require().NoError(err)

	later := testutil.Context(testutil.FixedNow.Add(time.Hour), s.user)
	loaded, err := s.store.Get(later, actorID)
	s.Require().NoError(err)
	s.Require().NoError(loaded.Rename("Renamed", testutil.FixedNow.Add(time.Hour)))
	_, err = s.store.AddOrUpdate(later, loaded)
	s.Require().NoError(err)

	history, err := s.store.History(s.ctx, actorID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("Supplier", history[0].State.Name)
	s.Equal("Renamed", history[1].State.Name)
	s.Require().NotNil(history[0].ValidTo)
	s.Equal(testutil.FixedNow.Add(time.Hour), *history[0].ValidTo)
	s.Equal(s.user, history[1].ChangedBy)
}
