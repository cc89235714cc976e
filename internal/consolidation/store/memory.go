// Package store persists scheduled actor consolidations.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"marketparticipant/internal/consolidation"
	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/sentinel"
	"marketparticipant/pkg/platform/tx"
)

type InMemory struct {
	mu    sync.RWMutex
	items map[id.ConsolidationID]*consolidation.ActorConsolidation
}

func NewInMemory() *InMemory {
	return &InMemory{items: make(map[id.ConsolidationID]*consolidation.ActorConsolidation)}
}

func (s *InMemory) Add(ctx context.Context, c *consolidation.ActorConsolidation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[c.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.items[c.ID] = c.Clone()
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.items, c.ID)
	})
	return nil
}

func (s *InMemory) Update(ctx context.Context, c *consolidation.ActorConsolidation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.items[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.items[c.ID] = c.Clone()
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.items[c.ID] = prev
	})
	return nil
}

// ListDue returns pending consolidations at or before now, oldest first.
func (s *InMemory) ListDue(_ context.Context, now time.Time) ([]*consolidation.ActorConsolidation, error) {
	return s.list(func(c *consolidation.ActorConsolidation) bool { return c.IsDue(now) }), nil
}

func (s *InMemory) ListPending(_ context.Context) ([]*consolidation.ActorConsolidation, error) {
	return s.list(func(c *consolidation.ActorConsolidation) bool {
		return c.Status == consolidation.StatusPending
	}), nil
}

func (s *InMemory) list(keep func(*consolidation.ActorConsolidation) bool) []*consolidation.ActorConsolidation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*consolidation.ActorConsolidation
	for _, c := range s.items {
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *consolidation.ActorConsolidation) int {
		return a.ConsolidateAt.Compare(b.ConsolidateAt)
	})
	return out
}
