// Package store persists grid areas, their version history and their
// explicit audit records.
package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketparticipant/internal/auditlog"
	"marketparticipant/internal/gridarea/models"
	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/sentinel"
	"marketparticipant/pkg/platform/tx"
	"marketparticipant/pkg/requestcontext"
)

type InMemory struct {
	mu      sync.RWMutex
	areas   map[id.GridAreaID]*models.GridArea
	audit   []models.AuditRecord
	history *auditlog.MemoryHistory[id.GridAreaID, models.GridArea]
}

func NewInMemory() *InMemory {
	return &InMemory{
		areas:   make(map[id.GridAreaID]*models.GridArea),
		history: auditlog.NewMemoryHistory[id.GridAreaID, models.GridArea](),
	}
}

func (s *InMemory) Get(_ context.Context, gridAreaID id.GridAreaID) (*models.GridArea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.areas[gridAreaID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return g.Clone(), nil
}

func (s *InMemory) GetByCode(_ context.Context, code models.Code) (*models.GridArea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.areas {
		if g.Code == code {
			return g.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List returns all grid areas ordered by code.
func (s *InMemory) List(_ context.Context) ([]*models.GridArea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.GridArea, 0, len(s.areas))
	for _, g := range s.areas {
		out = append(out, g.Clone())
	}
	slices.SortFunc(out, func(a, b *models.GridArea) int {
		switch {
		case a.Code < b.Code:
			return -1
		case a.Code > b.Code:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *InMemory) AddOrUpdate(ctx context.Context, g *models.GridArea) (id.GridAreaID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gridAreaID := g.ID
	if gridAreaID.IsNil() {
		gridAreaID = id.GridAreaID(uuid.New())
	}
	for otherID, other := range s.areas {
		if otherID != gridAreaID && other.Code == g.Code {
			return id.GridAreaID{}, sentinel.ErrAlreadyUsed
		}
	}

	stored := g.Clone()
	stored.ID = gridAreaID
	if err := s.put(ctx, stored); err != nil {
		return id.GridAreaID{}, err
	}
	return gridAreaID, nil
}

// SetValidTo ends the validity of every listed grid area at validTo.
func (s *InMemory) SetValidTo(ctx context.Context, gridAreaIDs []id.GridAreaID, validTo time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, gridAreaID := range gridAreaIDs {
		current, ok := s.areas[gridAreaID]
		if !ok {
			return sentinel.ErrNotFound
		}
		next := current.Clone()
		v := validTo.UTC()
		next.ValidTo = &v
		if err := s.put(ctx, next); err != nil {
			return err
		}
	}
	return nil
}

// put stores g and records a history version. Callers hold s.mu.
func (s *InMemory) put(ctx context.Context, g *models.GridArea) error {
	previous, existed := s.areas[g.ID]
	s.areas[g.ID] = g
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existed {
			s.areas[g.ID] = previous
			return
		}
		delete(s.areas, g.ID)
	})
	return s.history.Record(ctx, g.ID, *g.Clone(), requestcontext.Now(ctx), requestcontext.UserID(ctx))
}

func (s *InMemory) History(ctx context.Context, gridAreaID id.GridAreaID) ([]auditlog.Snapshot[models.GridArea], error) {
	return s.history.History(ctx, gridAreaID)
}

// AppendAudit stores explicit audit records.
func (s *InMemory) AppendAudit(ctx context.Context, records ...models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mark := len(s.audit)
	s.audit = append(s.audit, records...)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.audit = s.audit[:mark]
	})
	return nil
}

// AuditRecords returns the explicit audit records of a grid area in write
// order.
func (s *InMemory) AuditRecords(_ context.Context, gridAreaID id.GridAreaID) ([]models.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AuditRecord
	for _, r := range s.audit {
		if r.GridAreaID == gridAreaID {
			out = append(out, r)
		}
	}
	return out, nil
}
