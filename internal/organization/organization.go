// Package organization models the legal entity owning actors and rebuilds
// its audit log from history.
package organization

import (
	"slices"
	"strings"

	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
)

type Status string

const (
	StatusNew     Status = "New"
	StatusActive  Status = "Active"
	StatusBlocked Status = "Blocked"
	StatusDeleted Status = "Deleted"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusActive, StatusBlocked, StatusDeleted:
		return true
	}
	return false
}

type Organization struct {
	ID                         id.OrganizationID `json:"id"`
	Name                       string            `json:"name"`
	BusinessRegisterIdentifier string            `json:"business_register_identifier"`
	Domains                    []string          `json:"domains"`
	Status                     Status            `json:"status"`
}

// New validates and normalizes an organization. Domains are lower-cased,
// deduplicated and sorted.
func New(organizationID id.OrganizationID, name, businessRegisterIdentifier string, domains []string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.Validation("organization.name.required", "organization name is required")
	}
	if strings.TrimSpace(businessRegisterIdentifier) == "" {
		return nil, dErrors.Validation("organization.business_register_identifier.required", "business register identifier is required")
	}
	normalized, err := normalizeDomains(domains)
	if err != nil {
		return nil, err
	}
	return &Organization{
		ID:                         organizationID,
		Name:                       name,
		BusinessRegisterIdentifier: strings.TrimSpace(businessRegisterIdentifier),
		Domains:                    normalized,
		Status:                     StatusNew,
	}, nil
}

func normalizeDomains(domains []string) ([]string, error) {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" || strings.ContainsAny(d, " @/") || !strings.Contains(d, ".") {
			return nil, dErrors.Validation("organization.domain.invalid", "domain must be a host name such as example.com")
		}
		out = append(out, d)
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil, dErrors.Validation("organization.domain.required", "at least one domain is required")
	}
	return out, nil
}

func (o *Organization) SetDomains(domains []string) error {
	normalized, err := normalizeDomains(domains)
	if err != nil {
		return err
	}
	o.Domains = normalized
	return nil
}

func (o *Organization) SetStatus(status Status) error {
	if !status.IsValid() {
		return dErrors.Validation("organization.status.invalid", "unknown organization status")
	}
	o.Status = status
	return nil
}
