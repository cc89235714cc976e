// Package store persists actors and their version history.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"marketparticipant/internal/actor/models"
	"marketparticipant/internal/auditlog"
	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/sentinel"
	"marketparticipant/pkg/platform/tx"
	"marketparticipant/pkg/requestcontext"
)

// InMemory keeps actors in process. Writes inside a unit of work are undone
// when it rolls back.
type InMemory struct {
	mu      sync.RWMutex
	actors  map[id.ActorID]*models.Actor
	history *auditlog.MemoryHistory[id.ActorID, models.Actor]
}

func NewInMemory() *InMemory {
	return &InMemory{
		actors:  make(map[id.ActorID]*models.Actor),
		history: auditlog.NewMemoryHistory[id.ActorID, models.Actor](),
	}
}

func (s *InMemory) Get(_ context.Context, actorID id.ActorID) (*models.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[actorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return a.Clone(), nil
}

func (s *InMemory) GetByNumber(_ context.Context, number models.ActorNumber) (*models.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.actors {
		if a.ActorNumber.Value == number.Value {
			return a.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// ListByOrganization returns the organization's actors in no particular order.
func (s *InMemory) ListByOrganization(_ context.Context, organizationID id.OrganizationID) ([]*models.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Actor
	for _, a := range s.actors {
		if a.OrganizationID == organizationID {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

// AddOrUpdate saves the actor, allocating an ID on first save, and records a
// history version.
func (s *InMemory) AddOrUpdate(ctx context.Context, actor *models.Actor) (id.ActorID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	actorID := actor.ID
	if actorID.IsNil() {
		actorID = id.ActorID(uuid.New())
	}
	for otherID, other := range s.actors {
		if otherID == actorID {
			continue
		}
		if other.ActorNumber.Value == actor.ActorNumber.Value {
			return id.ActorID{}, sentinel.ErrAlreadyUsed
		}
		if thumbprint(other) != "" && thumbprint(other) == thumbprint(actor) {
			return id.ActorID{}, models.ErrThumbprintCredentialsConflict
		}
	}

	stored := actor.Clone()
	stored.ID = actorID
	previous, existed := s.actors[actorID]
	s.actors[actorID] = stored
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existed {
			s.actors[actorID] = previous
			return
		}
		delete(s.actors, actorID)
	})

	if err := s.history.Record(ctx, actorID, *stored.Clone(), requestcontext.Now(ctx), requestcontext.UserID(ctx)); err != nil {
		return id.ActorID{}, err
	}
	return actorID, nil
}

// History returns the recorded versions of the actor.
func (s *InMemory) History(ctx context.Context, actorID id.ActorID) ([]auditlog.Snapshot[models.Actor], error) {
	return s.history.History(ctx, actorID)
}

func thumbprint(a *models.Actor) string {
	if a.Credentials == nil || a.Credentials.Certificate == nil {
		return ""
	}
	return a.Credentials.Certificate.Thumbprint
}
