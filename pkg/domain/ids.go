// Package domain holds the typed identifiers shared across bounded contexts.
//
// Each identifier is a distinct named type over uuid.UUID so the compiler
// rejects passing an ActorID where a GridAreaID is expected. Construct them via
// the Parse functions at trust boundaries; direct conversion from uuid.UUID is
// reserved for stores and factories that allocate fresh identifiers.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "marketparticipant/pkg/domain-errors"
)

type (
	ActorID         uuid.UUID
	GridAreaID      uuid.UUID
	OrganizationID  uuid.UUID
	UserID          uuid.UUID
	UserRoleID      uuid.UUID
	DelegationID    uuid.UUID
	PeriodID        uuid.UUID
	ConsolidationID uuid.UUID
)

func parseUUID(kind, s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid %s", kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", kind)
	}
	return u, nil
}

func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID("actor id", s)
	return ActorID(u), err
}

func ParseGridAreaID(s string) (GridAreaID, error) {
	u, err := parseUUID("grid area id", s)
	return GridAreaID(u), err
}

func ParseOrganizationID(s string) (OrganizationID, error) {
	u, err := parseUUID("organization id", s)
	return OrganizationID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user id", s)
	return UserID(u), err
}

func ParseUserRoleID(s string) (UserRoleID, error) {
	u, err := parseUUID("user role id", s)
	return UserRoleID(u), err
}

func ParseDelegationID(s string) (DelegationID, error) {
	u, err := parseUUID("delegation id", s)
	return DelegationID(u), err
}

func ParsePeriodID(s string) (PeriodID, error) {
	u, err := parseUUID("delegation period id", s)
	return PeriodID(u), err
}

func ParseConsolidationID(s string) (ConsolidationID, error) {
	u, err := parseUUID("consolidation id", s)
	return ConsolidationID(u), err
}

func (id ActorID) String() string                  { return uuid.UUID(id).String() }
func (id ActorID) IsNil() bool                     { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id *ActorID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id GridAreaID) String() string               { return uuid.UUID(id).String() }
func (id GridAreaID) IsNil() bool                  { return uuid.UUID(id) == uuid.Nil }
func (id GridAreaID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *GridAreaID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
func (id OrganizationID) String() string               { return uuid.UUID(id).String() }
func (id OrganizationID) IsNil() bool                  { return uuid.UUID(id) == uuid.Nil }
func (id OrganizationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *OrganizationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
func (id UserID) String() string                      { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool                         { return uuid.UUID(id) == uuid.Nil }
func (id UserID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id *UserID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id UserRoleID) String() string                  { return uuid.UUID(id).String() }
func (id UserRoleID) IsNil() bool                     { return uuid.UUID(id) == uuid.Nil }
func (id UserRoleID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id *UserRoleID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id DelegationID) String() string                { return uuid.UUID(id).String() }
func (id DelegationID) IsNil() bool                   { return uuid.UUID(id) == uuid.Nil }
func (id DelegationID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id *DelegationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id PeriodID) String() string                    { return uuid.UUID(id).String() }
func (id PeriodID) IsNil() bool                       { return uuid.UUID(id) == uuid.Nil }
func (id PeriodID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id *PeriodID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id ConsolidationID) String() string             { return uuid.UUID(id).String() }
func (id ConsolidationID) IsNil() bool                { return uuid.UUID(id) == uuid.Nil }
func (id ConsolidationID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}
func (id *ConsolidationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
