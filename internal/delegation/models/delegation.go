// Package models holds the delegation aggregate: a ledger of time-bounded
// periods during which a delegating actor hands a message type or a process
// to another actor for one grid area.
package models

import (
	"slices"
	"time"

	"github.com/google/uuid"

	actormodels "marketparticipant/internal/actor/models"
	"marketparticipant/internal/events"
	"marketparticipant/internal/interval"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
)

// Period is one delegation entry. StopsAt is nil while open ended. Periods
// are appended and only ever stopped, never removed. StartedBy and StoppedBy
// identify the users who configured and ended the period.
type Period struct {
	ID          id.PeriodID   `json:"id"`
	DelegatedTo id.ActorID    `json:"delegated_to"`
	GridAreaID  id.GridAreaID `json:"grid_area_id"`
	StartsAt    time.Time     `json:"starts_at"`
	StopsAt     *time.Time    `json:"stops_at,omitempty"`
	StartedBy   id.UserID     `json:"started_by"`
	StoppedBy   id.UserID     `json:"stopped_by"`
}

func (p Period) Interval() interval.Period {
	return interval.Period{Start: p.StartsAt, End: p.StopsAt}
}

// Delegation is the aggregate behind both message and process delegations.
// Kind tells them apart and Subject names the message type or process.
type Delegation struct {
	events.Recorder `json:"-"`

	ID          id.DelegationID `json:"id"`
	Kind        Kind            `json:"kind"`
	Subject     string          `json:"subject"`
	DelegatedBy id.ActorID      `json:"delegated_by"`
	Periods     []Period        `json:"periods"`
}

// NewMessageDelegation starts an empty ledger for delegator's messageType.
func NewMessageDelegation(delegator *actormodels.Actor, messageType MessageType) (*Delegation, error) {
	return newDelegation(KindMessage, string(messageType), delegator)
}

// NewProcessDelegation starts an empty ledger for delegator's process.
func NewProcessDelegation(delegator *actormodels.Actor, process DelegatedProcess) (*Delegation, error) {
	return newDelegation(KindProcess, string(process), delegator)
}

func newDelegation(kind Kind, subject string, delegator *actormodels.Actor) (*Delegation, error) {
	if delegator == nil || delegator.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "delegating actor must be persisted")
	}
	if subject == "" {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s subject is required", kind)
	}
	return &Delegation{
		ID:          id.DelegationID(uuid.New()),
		Kind:        kind,
		Subject:     subject,
		DelegatedBy: delegator.ID,
	}, nil
}

func (d *Delegation) AggregateType() string { return d.Kind.ErrorPrefix() }
func (d *Delegation) AggregateID() string   { return d.ID.String() }

func (d *Delegation) key(suffix string) string {
	return d.Kind.ErrorPrefix() + "." + suffix
}

// DelegateTo appends a period handing the subject for gridAreaID to the actor
// to. The delegator must hold gridAreaID in its market role and the new
// period must not overlap another period for the same (to, grid area) pair.
// A stopsAt at or before startsAt inserts an already cancelled period, which
// is kept as history and never blocks later periods.
func (d *Delegation) DelegateTo(delegator *actormodels.Actor, to id.ActorID, gridAreaID id.GridAreaID, startsAt time.Time, stopsAt *time.Time, by id.UserID) (Period, error) {
	if delegator == nil || delegator.ID != d.DelegatedBy {
		return Period{}, dErrors.New(dErrors.CodeInvariantViolation, "delegator does not own this delegation")
	}
	if to == d.DelegatedBy {
		return Period{}, dErrors.Validation(d.key("delegate_to_self"), "an actor cannot delegate to itself")
	}
	if !delegator.MarketRole.HasGridArea(gridAreaID) {
		return Period{}, dErrors.Validation(d.key("grid_area_not_allowed"), "delegating actor has no authority over the grid area")
	}
	if startsAt.IsZero() {
		return Period{}, dErrors.Validation(d.key("invalid_period"), "a delegation needs a start time")
	}

	p := Period{
		ID:          id.PeriodID(uuid.New()),
		DelegatedTo: to,
		GridAreaID:  gridAreaID,
		StartsAt:    startsAt.UTC(),
		StopsAt:     utcPtr(stopsAt),
		StartedBy:   by,
	}
	if stopsAt != nil {
		p.StoppedBy = by
	}
	candidate := append(slices.Clone(d.Periods), p)
	if err := d.validatePair(candidate, to, gridAreaID); err != nil {
		return Period{}, err
	}

	d.Periods = candidate
	d.recordConfigured(p)
	return p, nil
}

// StopDelegation sets the end of an open period. A stop at or before the
// start cancels the period. Periods that already have an end are final.
func (d *Delegation) StopDelegation(periodID id.PeriodID, stopsAt time.Time, by id.UserID) (Period, error) {
	i := slices.IndexFunc(d.Periods, func(p Period) bool { return p.ID == periodID })
	if i < 0 {
		return Period{}, dErrors.New(dErrors.CodeNotFound, "delegation period not found").
			WithKey(d.key("period_not_found"))
	}
	if d.Periods[i].StopsAt != nil {
		return Period{}, dErrors.Validation(d.key("period_already_stopped"), "the delegation period has already been stopped")
	}

	candidate := slices.Clone(d.Periods)
	stopped := candidate[i]
	stopped.StopsAt = utcPtr(&stopsAt)
	stopped.StoppedBy = by
	candidate[i] = stopped
	if err := d.validatePair(candidate, stopped.DelegatedTo, stopped.GridAreaID); err != nil {
		return Period{}, err
	}

	d.Periods = candidate
	d.recordConfigured(stopped)
	return stopped, nil
}

func (d *Delegation) validatePair(periods []Period, to id.ActorID, gridAreaID id.GridAreaID) error {
	var pair []interval.Period
	for _, p := range periods {
		if p.DelegatedTo == to && p.GridAreaID == gridAreaID {
			pair = append(pair, p.Interval())
		}
	}
	return interval.ValidateNoOverlap(d.Kind.ErrorPrefix(), pair)
}

// ActivePeriods returns the periods that have not been cancelled.
func (d *Delegation) ActivePeriods() []Period {
	var out []Period
	for _, p := range d.Periods {
		if !p.Interval().IsCancelled() {
			out = append(out, p)
		}
	}
	return out
}

// Links returns one delegator to delegate link per non-cancelled period.
func (d *Delegation) Links() []Link {
	var out []Link
	for _, p := range d.ActivePeriods() {
		out = append(out, Link{From: d.DelegatedBy, To: p.DelegatedTo})
	}
	return out
}

// Clone returns a deep copy without pending events.
func (d *Delegation) Clone() *Delegation {
	c := &Delegation{
		ID:          d.ID,
		Kind:        d.Kind,
		Subject:     d.Subject,
		DelegatedBy: d.DelegatedBy,
		Periods:     make([]Period, len(d.Periods)),
	}
	for i, p := range d.Periods {
		p.StopsAt = utcPtr(p.StopsAt)
		c.Periods[i] = p
	}
	return c
}

func (d *Delegation) recordConfigured(p Period) {
	d.Record(DelegationConfigured{
		DelegationID: d.ID,
		Kind:         d.Kind,
		Subject:      d.Subject,
		DelegatedBy:  d.DelegatedBy,
		DelegatedTo:  p.DelegatedTo,
		GridAreaID:   p.GridAreaID,
		PeriodID:     p.ID,
		StartsAt:     p.StartsAt,
		StopsAt:      p.Interval().EffectiveEnd(),
	})
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
