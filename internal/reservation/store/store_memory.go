// Package store provides the reservation table implementations.
package store

import (
	"context"
	"sync"

	"marketparticipant/internal/marketrole"
	"marketparticipant/internal/reservation"
	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/tx"
)

type claim struct {
	function   marketrole.EicFunction
	gridAreaID id.GridAreaID
}

// InMemory is a process-local reservation table. Changes made inside a unit
// of work are undone when it rolls back.
type InMemory struct {
	mu     sync.Mutex
	claims map[claim]id.ActorID
}

func NewInMemory() *InMemory {
	return &InMemory{claims: make(map[claim]id.ActorID)}
}

func (s *InMemory) TryReserve(ctx context.Context, actorID id.ActorID, function marketrole.EicFunction, gridAreaID id.GridAreaID) (bool, error) {
	key := claim{function: function, gridAreaID: gridAreaID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.claims[key]; taken {
		return false, nil
	}
	s.claims[key] = actorID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.claims[key] == actorID {
			delete(s.claims, key)
		}
	})
	return true, nil
}

func (s *InMemory) ReleaseAll(ctx context.Context, actorID id.ActorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var released []claim
	for key, holder := range s.claims {
		if holder == actorID {
			released = append(released, key)
			delete(s.claims, key)
		}
	}
	if len(released) > 0 {
		tx.OnRollback(ctx, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, key := range released {
				s.claims[key] = actorID
			}
		})
	}
	return nil
}

func (s *InMemory) ListByActor(_ context.Context, actorID id.ActorID) ([]reservation.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reservation.Reservation
	for key, holder := range s.claims {
		if holder == actorID {
			out = append(out, reservation.Reservation{ActorID: holder, Function: key.function, GridAreaID: key.gridAreaID})
		}
	}
	return out, nil
}
