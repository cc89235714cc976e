package models

import (
	"time"

	id "marketparticipant/pkg/domain"
)

// DelegationConfigured is recorded whenever a period is added or stopped.
// Open-ended periods report StopsAt as interval.MaxInstant.
type DelegationConfigured struct {
	DelegationID id.DelegationID `json:"delegation_id"`
	Kind         Kind            `json:"kind"`
	Subject      string          `json:"subject"`
	DelegatedBy  id.ActorID      `json:"delegated_by"`
	DelegatedTo  id.ActorID      `json:"delegated_to"`
	GridAreaID   id.GridAreaID   `json:"grid_area_id"`
	PeriodID     id.PeriodID     `json:"period_id"`
	StartsAt     time.Time       `json:"starts_at"`
	StopsAt      time.Time       `json:"stops_at"`
}

func (DelegationConfigured) EventType() string { return "DelegationConfigured" }
