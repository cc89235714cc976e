package auditlog

import (
	"context"
	"slices"
	"sync"
	"time"

	id "marketparticipant/pkg/domain"
	"marketparticipant/pkg/platform/tx"
)

// MemoryHistory records snapshots in process, closing the previous version
// of a key whenever a new one is recorded.
type MemoryHistory[K comparable, T any] struct {
	mu       sync.RWMutex
	versions map[K][]Snapshot[T]
}

func NewMemoryHistory[K comparable, T any]() *MemoryHistory[K, T] {
	return &MemoryHistory[K, T]{versions: make(map[K][]Snapshot[T])}
}

// Record appends a version of key valid from at. Inside a unit of work the
// version is withdrawn again on rollback.
func (h *MemoryHistory[K, T]) Record(ctx context.Context, key K, state T, at time.Time, by id.UserID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	versions := h.versions[key]
	var closed *Snapshot[T]
	if n := len(versions); n > 0 && versions[n-1].ValidTo == nil {
		end := at
		versions[n-1].ValidTo = &end
		closed = &versions[n-1]
	}
	h.versions[key] = append(versions, Snapshot[T]{State: state, ValidFrom: at, ChangedBy: by})

	tx.OnRollback(ctx, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		v := h.versions[key]
		if len(v) == 0 {
			return
		}
		v = v[:len(v)-1]
		if closed != nil && len(v) > 0 {
			v[len(v)-1].ValidTo = nil
		}
		h.versions[key] = v
	})
	return nil
}

// Close ends the current version of key without starting a new one, as when
// the entity is deleted.
func (h *MemoryHistory[K, T]) Close(ctx context.Context, key K, at time.Time, by id.UserID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	versions := h.versions[key]
	n := len(versions)
	if n == 0 || versions[n-1].ValidTo != nil {
		return nil
	}
	end := at
	versions[n-1].ValidTo = &end
	versions[n-1].ClosedBy = by
	tx.OnRollback(ctx, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if v := h.versions[key]; len(v) >= n {
			v[n-1].ValidTo = nil
			v[n-1].ClosedBy = id.UserID{}
		}
	})
	return nil
}

func (h *MemoryHistory[K, T]) History(_ context.Context, key K) ([]Snapshot[T], error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.versions[key]), nil
}
