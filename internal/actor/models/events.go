package models

import (
	"time"

	"marketparticipant/internal/marketrole"
	id "marketparticipant/pkg/domain"
)

// ActorActivated is recorded when an actor goes live.
type ActorActivated struct {
	ActorID     id.ActorID             `json:"actor_id"`
	ActorNumber string                 `json:"actor_number"`
	Function    marketrole.EicFunction `json:"function"`
	ValidFrom   time.Time              `json:"valid_from"`
}

func (ActorActivated) EventType() string { return "ActorActivated" }

// ActorDeactivated is recorded when a live actor becomes inactive.
type ActorDeactivated struct {
	ActorID     id.ActorID `json:"actor_id"`
	ActorNumber string     `json:"actor_number"`
	ValidFrom   time.Time  `json:"valid_from"`
}

func (ActorDeactivated) EventType() string { return "ActorDeactivated" }

// GridAreaOwnershipAssigned is recorded for every grid area a live grid
// access provider takes ownership of.
type GridAreaOwnershipAssigned struct {
	ActorID     id.ActorID             `json:"actor_id"`
	ActorNumber string                 `json:"actor_number"`
	Function    marketrole.EicFunction `json:"function"`
	GridAreaID  id.GridAreaID          `json:"grid_area_id"`
	ValidFrom   time.Time              `json:"valid_from"`
}

func (GridAreaOwnershipAssigned) EventType() string { return "GridAreaOwnershipAssigned" }

// ActorCredentialsAssigned is recorded when a live actor gains credentials.
type ActorCredentialsAssigned struct {
	ActorID     id.ActorID `json:"actor_id"`
	ActorNumber string     `json:"actor_number"`
	Kind        string     `json:"kind"`
	Identifier  string     `json:"identifier"`
	ValidFrom   time.Time  `json:"valid_from"`
}

func (ActorCredentialsAssigned) EventType() string { return "ActorCredentialsAssigned" }

// ActorCredentialsRemoved is recorded when a live actor loses credentials.
type ActorCredentialsRemoved struct {
	ActorID     id.ActorID `json:"actor_id"`
	ActorNumber string     `json:"actor_number"`
	Kind        string     `json:"kind"`
	Identifier  string     `json:"identifier"`
	ValidFrom   time.Time  `json:"valid_from"`
}

func (ActorCredentialsRemoved) EventType() string { return "ActorCredentialsRemoved" }
