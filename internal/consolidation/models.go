// Package consolidation moves grid area ownership from one grid access
// provider to another and retires the former.
package consolidation

import (
	"time"

	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusExecuted Status = "Executed"
)

// ActorConsolidation is a scheduled consolidation of From into To.
type ActorConsolidation struct {
	ID            id.ConsolidationID `json:"id"`
	From          id.ActorID         `json:"from"`
	To            id.ActorID         `json:"to"`
	ConsolidateAt time.Time          `json:"consolidate_at"`
	Status        Status             `json:"status"`
	ExecutedAt    *time.Time         `json:"executed_at,omitempty"`
}

// IsDue reports whether a pending consolidation should run at now.
func (c *ActorConsolidation) IsDue(now time.Time) bool {
	return c.Status == StatusPending && !c.ConsolidateAt.After(now)
}

// MarkExecuted records that the consolidation ran at now.
func (c *ActorConsolidation) MarkExecuted(now time.Time) error {
	if c.Status != StatusPending {
		return dErrors.Validation("consolidation.already_executed", "consolidation has already been executed")
	}
	c.Status = StatusExecuted
	c.ExecutedAt = &now
	return nil
}

func (c *ActorConsolidation) Clone() *ActorConsolidation {
	out := *c
	if c.ExecutedAt != nil {
		v := *c.ExecutedAt
		out.ExecutedAt = &v
	}
	return &out
}
