// Package events carries domain events from aggregates to the outbox.
//
// Aggregates record events while they mutate. The persistence boundary hands
// the aggregate to Outbox.Enqueue inside the unit of work; the events are
// written to the outbox store in the same transaction and cleared from the
// aggregate only once that transaction commits. A relay later publishes the
// stored messages.
package events

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"marketparticipant/pkg/platform/tx"
	"marketparticipant/pkg/requestcontext"
)

// DomainEvent is a fact recorded by an aggregate.
type DomainEvent interface {
	EventType() string
}

// Source is an aggregate with pending events.
type Source interface {
	AggregateType() string
	AggregateID() string
	PendingEvents() []DomainEvent
	ClearEvents()
}

// Recorder is embedded by aggregates to accumulate events.
type Recorder struct {
	pending []DomainEvent
}

// Record appends an event to the pending list.
func (r *Recorder) Record(e DomainEvent) {
	r.pending = append(r.pending, e)
}

// PendingEvents returns a copy of the events recorded since the last clear.
func (r *Recorder) PendingEvents() []DomainEvent {
	return slices.Clone(r.pending)
}

// ClearEvents drops the pending events.
func (r *Recorder) ClearEvents() {
	r.pending = nil
}

// Message is the stored form of a domain event.
type Message struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// Store persists outbox messages. Append joins the unit of work in context.
type Store interface {
	Append(ctx context.Context, msgs []Message) error
}

// RelayStore is the read side used by the relay.
type RelayStore interface {
	Pending(ctx context.Context, limit int) ([]Message, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
}

// Outbox turns pending aggregate events into stored messages.
type Outbox struct {
	store Store
}

func NewOutbox(store Store) *Outbox {
	return &Outbox{store: store}
}

// Enqueue stores the pending events of every source. The sources are cleared
// after the enclosing unit of work commits; on rollback they keep their
// events untouched.
func (o *Outbox) Enqueue(ctx context.Context, sources ...Source) error {
	now := requestcontext.Now(ctx)
	var msgs []Message
	for _, src := range sources {
		for _, e := range src.PendingEvents() {
			payload, err := json.Marshal(e)
			if err != nil {
				return err
			}
			msgs = append(msgs, Message{
				ID:            NewID(now),
				AggregateType: src.AggregateType(),
				AggregateID:   src.AggregateID(),
				EventType:     e.EventType(),
				Payload:       payload,
				CreatedAt:     now,
			})
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := o.store.Append(ctx, msgs); err != nil {
		return err
	}
	for _, src := range sources {
		tx.AfterCommit(ctx, src.ClearEvents)
	}
	return nil
}
