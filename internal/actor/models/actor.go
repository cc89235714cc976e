package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketparticipant/internal/events"
	"marketparticipant/internal/marketrole"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
	"marketparticipant/pkg/platform/sentinel"
)

// Actor is the aggregate root for a market participant holding one market
// role.
//
// Invariants:
//   - ID is nil until the actor has been persisted once
//   - Status transitions follow the table below; rejected transitions leave
//     the actor and its pending events unchanged
//   - MarketRole can only change while Status is New
//   - Credentials hold a certificate or a client secret, never both
//   - Credentials must be removed before an actor can be deactivated
//
// Transitions:
//
//	Activate:     New, Active           -> Active
//	Deactivate:   Active, Passive, Inactive -> Inactive
//	SetAsPassive: Active, Passive       -> Passive
//
// Activating an actor without an ID is a programmer error and fails with
// CodeInvariantViolation instead of a validation error.
type Actor struct {
	events.Recorder `json:"-"`

	ID              id.ActorID                 `json:"id"`
	OrganizationID  id.OrganizationID          `json:"organization_id"`
	ActorNumber     ActorNumber                `json:"actor_number"`
	Name            string                     `json:"name"`
	Status          ActorStatus                `json:"status"`
	MarketRole      marketrole.ActorMarketRole `json:"market_role"`
	Credentials     *Credentials               `json:"credentials,omitempty"`
	ExternalActorID *uuid.UUID                 `json:"external_actor_id,omitempty"`
	UpdatedAt       time.Time                  `json:"updated_at"`
}

// NewActor validates the input and returns an actor in status New without an
// ID. The store allocates the ID on first save.
func NewActor(organizationID id.OrganizationID, number ActorNumber, name string, role marketrole.ActorMarketRole, now time.Time) (*Actor, error) {
	if organizationID.IsNil() {
		return nil, dErrors.Validation("actor.organization_required", "organization is required")
	}
	if number.IsZero() {
		return nil, dErrors.Validation("actor.number.invalid", "actor number is required")
	}
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := role.Validate(); err != nil {
		return nil, err
	}
	return &Actor{
		OrganizationID: organizationID,
		ActorNumber:    number,
		Name:           name,
		Status:         ActorStatusNew,
		MarketRole:     role.WithGridAreas(role.GridAreas),
		UpdatedAt:      now,
	}, nil
}

func validateName(name string) error {
	if name == "" {
		return dErrors.Validation("actor.name.required", "actor name is required")
	}
	if len(name) > 512 {
		return dErrors.Validation("actor.name.too_long", "actor name must be 512 characters or less")
	}
	return nil
}

func (a *Actor) AggregateType() string { return "actor" }
func (a *Actor) AggregateID() string   { return a.ID.String() }

func invalidTransition(action string, from ActorStatus) error {
	return dErrors.Validation("actor.status.invalid_transition",
		fmt.Sprintf("cannot %s an actor in status %s", action, from))
}

// CanActivate checks if the actor can transition to Active.
func (a *Actor) CanActivate() error {
	if a.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "actor must be persisted before it can be activated")
	}
	switch a.Status {
	case ActorStatusNew, ActorStatusActive:
		return nil
	default:
		return invalidTransition("activate", a.Status)
	}
}

// ApplyActivation moves the actor to Active and records the go-live events.
// Re-activating an active actor records nothing.
func (a *Actor) ApplyActivation(now time.Time) {
	if a.Status == ActorStatusActive {
		return
	}
	a.Status = ActorStatusActive
	a.UpdatedAt = now
	a.Record(ActorActivated{
		ActorID:     a.ID,
		ActorNumber: a.ActorNumber.Value,
		Function:    a.MarketRole.Function,
		ValidFrom:   now,
	})
	a.recordOwnership(a.MarketRole.GridAreaIDs(), now)
	if a.Credentials != nil {
		a.recordCredentialsAssigned(now)
	}
}

// Activate validates and applies activation in one call.
func (a *Actor) Activate(now time.Time) error {
	if err := a.CanActivate(); err != nil {
		return err
	}
	a.ApplyActivation(now)
	return nil
}

// CanDeactivate checks if the actor can transition to Inactive.
func (a *Actor) CanDeactivate() error {
	if a.Status == ActorStatusNew {
		return invalidTransition("deactivate", a.Status)
	}
	if a.Credentials != nil {
		return dErrors.Validation("actor.credentials.must_be_removed", "credentials must be removed before the actor can be deactivated")
	}
	return nil
}

func (a *Actor) ApplyDeactivation(now time.Time) {
	if a.Status.IsLive() {
		a.Record(ActorDeactivated{
			ActorID:     a.ID,
			ActorNumber: a.ActorNumber.Value,
			ValidFrom:   now,
		})
	}
	a.Status = ActorStatusInactive
	a.ExternalActorID = nil
	a.UpdatedAt = now
}

func (a *Actor) Deactivate(now time.Time) error {
	if err := a.CanDeactivate(); err != nil {
		return err
	}
	a.ApplyDeactivation(now)
	return nil
}

// CanSetAsPassive checks if the actor can transition to Passive.
func (a *Actor) CanSetAsPassive() error {
	if !a.Status.IsLive() {
		return invalidTransition("set as passive", a.Status)
	}
	return nil
}

func (a *Actor) ApplySetAsPassive(now time.Time) {
	if a.Status == ActorStatusPassive {
		return
	}
	a.Status = ActorStatusPassive
	a.UpdatedAt = now
}

func (a *Actor) SetAsPassive(now time.Time) error {
	if err := a.CanSetAsPassive(); err != nil {
		return err
	}
	a.ApplySetAsPassive(now)
	return nil
}

// UpdateMarketRole replaces the market role. Only allowed while New; a live
// actor's role changes through consolidation.
func (a *Actor) UpdateMarketRole(role marketrole.ActorMarketRole, now time.Time) error {
	if a.Status != ActorStatusNew {
		return dErrors.Validation("actor.market_role.immutable",
			fmt.Sprintf("market role cannot change for an actor in status %s", a.Status))
	}
	if err := role.Validate(); err != nil {
		return err
	}
	a.MarketRole = role.WithGridAreas(role.GridAreas)
	a.UpdatedAt = now
	return nil
}

// TransferGridAreas replaces the grid areas of a grid access provider role
// regardless of status. Consolidation is the only caller; gained areas are
// announced when the actor is live.
func (a *Actor) TransferGridAreas(gridAreas []marketrole.ActorGridArea, now time.Time) error {
	if a.MarketRole.Function != marketrole.GridAccessProvider {
		return dErrors.New(dErrors.CodeInvariantViolation, "grid areas can only be transferred between grid access providers")
	}
	next := a.MarketRole.WithGridAreas(gridAreas)
	if err := next.Validate(); err != nil {
		return err
	}

	var gained []id.GridAreaID
	for _, gridAreaID := range next.GridAreaIDs() {
		if !a.MarketRole.HasGridArea(gridAreaID) {
			gained = append(gained, gridAreaID)
		}
	}

	a.MarketRole = next
	a.UpdatedAt = now
	if a.Status.IsLive() {
		a.recordOwnership(gained, now)
	}
	return nil
}

// AssignCredentials sets credentials on an actor that has none.
func (a *Actor) AssignCredentials(c *Credentials, now time.Time) error {
	if c == nil {
		return dErrors.Validation("actor.credentials.exactly_one", "credentials are required")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if a.Status == ActorStatusInactive {
		return dErrors.Validation("actor.credentials.inactive_actor", "credentials cannot be assigned to an inactive actor")
	}
	if a.Credentials != nil {
		return dErrors.Validation("actor.credentials.already_assigned", "actor already has credentials")
	}
	a.Credentials = c.clone()
	a.UpdatedAt = now
	if a.Status.IsLive() {
		a.recordCredentialsAssigned(now)
	}
	return nil
}

// RemoveCredentials clears the actor's credentials. No-op when none are set.
func (a *Actor) RemoveCredentials(now time.Time) {
	if a.Credentials == nil {
		return
	}
	removed := a.Credentials
	a.Credentials = nil
	a.UpdatedAt = now
	if a.Status.IsLive() {
		a.Record(ActorCredentialsRemoved{
			ActorID:     a.ID,
			ActorNumber: a.ActorNumber.Value,
			Kind:        removed.Kind(),
			Identifier:  removed.Identifier(),
			ValidFrom:   now,
		})
	}
}

// SetExternalActorID links the actor to its identity-provider application.
// Only live actors can be linked; clearing is always allowed.
func (a *Actor) SetExternalActorID(externalID *uuid.UUID, now time.Time) error {
	if externalID != nil && !a.Status.IsLive() {
		return dErrors.Validation("actor.external_actor_id.not_live", "only active or passive actors can be linked to an external application")
	}
	a.ExternalActorID = externalID
	a.UpdatedAt = now
	return nil
}

// Rename changes the display name.
func (a *Actor) Rename(name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	a.Name = name
	a.UpdatedAt = now
	return nil
}

func (a *Actor) recordOwnership(gridAreas []id.GridAreaID, now time.Time) {
	if a.MarketRole.Function != marketrole.GridAccessProvider {
		return
	}
	for _, gridAreaID := range gridAreas {
		a.Record(GridAreaOwnershipAssigned{
			ActorID:     a.ID,
			ActorNumber: a.ActorNumber.Value,
			Function:    a.MarketRole.Function,
			GridAreaID:  gridAreaID,
			ValidFrom:   now,
		})
	}
}

func (a *Actor) recordCredentialsAssigned(now time.Time) {
	a.Record(ActorCredentialsAssigned{
		ActorID:     a.ID,
		ActorNumber: a.ActorNumber.Value,
		Kind:        a.Credentials.Kind(),
		Identifier:  a.Credentials.Identifier(),
		ValidFrom:   now,
	})
}

// Clone returns a deep copy without pending events. Stores hand out clones so
// callers never share aggregate state.
func (a *Actor) Clone() *Actor {
	out := &Actor{
		ID:             a.ID,
		OrganizationID: a.OrganizationID,
		ActorNumber:    a.ActorNumber,
		Name:           a.Name,
		Status:         a.Status,
		MarketRole:     a.MarketRole.WithGridAreas(cloneGridAreas(a.MarketRole.GridAreas)),
		Credentials:    a.Credentials.clone(),
		UpdatedAt:      a.UpdatedAt,
	}
	if a.ExternalActorID != nil {
		ext := *a.ExternalActorID
		out.ExternalActorID = &ext
	}
	return out
}

func cloneGridAreas(in []marketrole.ActorGridArea) []marketrole.ActorGridArea {
	out := make([]marketrole.ActorGridArea, 0, len(in))
	for _, ga := range in {
		out = append(out, marketrole.ActorGridArea{
			GridAreaID:         ga.GridAreaID,
			MeteringPointTypes: slices.Clone(ga.MeteringPointTypes),
		})
	}
	return out
}

// ErrThumbprintCredentialsConflict is returned by stores when another actor
// already uses the certificate thumbprint.
var ErrThumbprintCredentialsConflict = fmt.Errorf("%w: certificate thumbprint is used by another actor", sentinel.ErrConflict)
