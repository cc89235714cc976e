package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"marketparticipant/internal/marketrole"
	id "marketparticipant/pkg/domain"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) TestTryReserve() {
	s.Run("second claim of the same tuple returns false", func() {
		actor := id.ActorID(uuid.New())
		grid := id.GridAreaID(uuid.New())

		ok, err := s.store.TryReserve(s.ctx, actor, marketrole.GridAccessProvider, grid)
		s.Require().NoError(err)
		s.True(ok)

		ok, err = s.store.TryReserve(s.ctx, actor, marketrole.GridAccessProvider, grid)
		s.Require().NoError(err)
		s.False(ok)

		held, err := s.store.ListByActor(s.ctx, actor)
		s.Require().NoError(err)
		s.Len(held, 1, "losing racer does not corrupt the first claim")
	})

	s.Run("same grid area under another function is independent", func() {
		grid := id.GridAreaID(uuid.New())
		ok, err := s.store.TryReserve(s.ctx, id.ActorID(uuid.New()), marketrole.GridAccessProvider, grid)
		s.Require().NoError(err)
		s.True(ok)
		ok, err = s.store.TryReserve(s.ctx, id.ActorID(uuid.New()), marketrole.MeterOperator, grid)
		s.Require().NoError(err)
		s.True(ok)
	})
}

func (s *InMemoryStoreSuite) TestReleaseAll() {
	s.Run("no-op for an actor without claims", func() {
		s.NoError(s.store.ReleaseAll(s.ctx, id.ActorID(uuid.New())))
	})

	s.Run("frees only the actor's claims", func() {
		a, b := id.ActorID(uuid.New()), id.ActorID(uuid.New())
		gridA, gridB := id.GridAreaID(uuid.New()), id.GridAreaID(uuid.New())
		_, _ = s.store.TryReserve(s.ctx, a, marketrole.GridAccessProvider, gridA)
		_, _ = s.store.TryReserve(s.ctx, b, marketrole.GridAccessProvider, gridB)

		s.Require().NoError(s.store.ReleaseAll(s.ctx, a))

		heldA, _ := s.store.ListByActor(s.ctx, a)
		heldB, _ := s.store.ListByActor(s.ctx, b)
		s.Empty(heldA)
		s.Len(heldB, 1)
	})
}

func (s *InMemoryStoreSuite) TestConcurrentClaims() {
	grid := id.GridAreaID(uuid.New())
	const goroutines = 50

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.store.TryReserve(s.ctx, id.ActorID(uuid.New()), marketrole.GridAccessProvider, grid)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one actor claims the grid area")
}
