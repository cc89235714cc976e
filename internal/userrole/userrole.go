// Package userrole models the permission bundles assignable to users and
// rebuilds their audit log, including per-permission grants and removals.
package userrole

import (
	"slices"
	"strings"

	"marketparticipant/internal/marketrole"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
)

type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// Permission is a stable permission claim such as "actors:manage".
type Permission string

type UserRole struct {
	ID          id.UserRoleID          `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	EicFunction marketrole.EicFunction `json:"eic_function"`
	Status      Status                 `json:"status"`
	Permissions []Permission           `json:"permissions"`
}

func New(userRoleID id.UserRoleID, name, description string, function marketrole.EicFunction, permissions []Permission) (*UserRole, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.Validation("user_role.name.required", "user role name is required")
	}
	if !function.IsValid() {
		return nil, dErrors.Validation("user_role.eic_function.invalid", "unknown market role function")
	}
	r := &UserRole{
		ID:          userRoleID,
		Name:        name,
		Description: strings.TrimSpace(description),
		EicFunction: function,
		Status:      StatusActive,
	}
	r.SetPermissions(permissions)
	return r, nil
}

// SetPermissions replaces the permission set, sorted and deduplicated.
func (r *UserRole) SetPermissions(permissions []Permission) {
	p := slices.Clone(permissions)
	slices.Sort(p)
	r.Permissions = slices.Compact(p)
}

func (r *UserRole) Deactivate() {
	r.Status = StatusInactive
}

func (r *UserRole) HasPermission(p Permission) bool {
	_, found := slices.BinarySearch(r.Permissions, p)
	return found
}
