package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"marketparticipant/internal/events"
	"marketparticipant/pkg/platform/tx"
)

// InMemoryStore keeps outbox messages in process. Appends made inside a unit
// of work are removed again when it rolls back.
type InMemoryStore struct {
	mu   sync.RWMutex
	msgs []events.Message
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, msgs []events.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msgs...)

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	tx.OnRollback(ctx, func() { s.remove(ids) })
	return nil
}

func (s *InMemoryStore) remove(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = slices.DeleteFunc(s.msgs, func(m events.Message) bool {
		return slices.Contains(ids, m.ID)
	})
}

func (s *InMemoryStore) Pending(_ context.Context, limit int) ([]events.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []events.Message
	for _, m := range s.msgs {
		if m.PublishedAt != nil {
			continue
		}
		out = append(out, m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.msgs {
		if slices.Contains(ids, s.msgs[i].ID) {
			published := at
			s.msgs[i].PublishedAt = &published
		}
	}
	return nil
}

// All returns every stored message in append order.
func (s *InMemoryStore) All() []events.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.msgs)
}

// Types returns the event types of every stored message in append order.
func (s *InMemoryStore) Types() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, m.EventType)
	}
	return out
}
