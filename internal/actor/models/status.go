package models

// ActorStatus is the lifecycle state of an actor.
type ActorStatus string

const (
	ActorStatusNew      ActorStatus = "New"
	ActorStatusActive   ActorStatus = "Active"
	ActorStatusInactive ActorStatus = "Inactive"
	ActorStatusPassive  ActorStatus = "Passive"
)

func (s ActorStatus) IsValid() bool {
	switch s {
	case ActorStatusNew, ActorStatusActive, ActorStatusInactive, ActorStatusPassive:
		return true
	}
	return false
}

// IsLive reports whether the actor participates in the market. Credentials
// and the external actor id only matter in these states.
func (s ActorStatus) IsLive() bool {
	return s == ActorStatusActive || s == ActorStatusPassive
}

func (s ActorStatus) String() string { return string(s) }
