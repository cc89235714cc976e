// Package store persists delegation aggregates.
package store

import (
	"context"
	"sync"

	"marketparticipant/internal/delegation/models"
	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/sentinel"
	"marketparticipant/pkg/platform/tx"
)

type InMemory struct {
	mu          sync.RWMutex
	delegations map[id.DelegationID]*models.Delegation
}

func NewInMemory() *InMemory {
	return &InMemory{delegations: make(map[id.DelegationID]*models.Delegation)}
}

func (s *InMemory) Get(_ context.Context, delegationID id.DelegationID) (*models.Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.delegations[delegationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

// Find returns the delegator's ledger for a message type or process.
func (s *InMemory) Find(_ context.Context, kind models.Kind, delegatedBy id.ActorID, subject string) (*models.Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.delegations {
		if d.Kind == kind && d.DelegatedBy == delegatedBy && d.Subject == subject {
			return d.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListByDelegator(_ context.Context, actorID id.ActorID) ([]*models.Delegation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Delegation
	for _, d := range s.delegations {
		if d.DelegatedBy == actorID {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

// Links returns every non-cancelled delegator to delegate link of a kind.
func (s *InMemory) Links(_ context.Context, kind models.Kind) ([]models.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Link
	for _, d := range s.delegations {
		if d.Kind == kind {
			out = append(out, d.Links()...)
		}
	}
	return out, nil
}

func (s *InMemory) Save(ctx context.Context, d *models.Delegation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.delegations {
		if other.ID != d.ID && other.Kind == d.Kind && other.DelegatedBy == d.DelegatedBy && other.Subject == d.Subject {
			return sentinel.ErrAlreadyUsed
		}
	}
	previous, existed := s.delegations[d.ID]
	s.delegations[d.ID] = d.Clone()
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existed {
			s.delegations[d.ID] = previous
			return
		}
		delete(s.delegations, d.ID)
	})
	return nil
}
