package organization

import (
	"context"
	"strings"

	"marketparticipant/internal/auditlog"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
)

type AuditField string

const (
	AuditFieldName   AuditField = "Name"
	AuditFieldDomain AuditField = "Domain"
	AuditFieldStatus AuditField = "Status"
)

func AuditRules() []auditlog.Rule[Organization, AuditField] {
	return []auditlog.Rule[Organization, AuditField]{
		auditlog.OnChange[Organization](AuditFieldName, func(o Organization) string { return o.Name }),
		auditlog.OnChange[Organization](AuditFieldDomain, func(o Organization) string { return strings.Join(o.Domains, ",") }),
		auditlog.OnChange[Organization](AuditFieldStatus, func(o Organization) string { return string(o.Status) }),
	}
}

// Auditor rebuilds organization audit logs from a history source.
type Auditor struct {
	history auditlog.HistorySource[id.OrganizationID, Organization]
}

func NewAuditor(history auditlog.HistorySource[id.OrganizationID, Organization]) *Auditor {
	return &Auditor{history: history}
}

func (a *Auditor) BuildAuditLog(ctx context.Context, organizationID id.OrganizationID) ([]auditlog.Entry[AuditField], error) {
	snapshots, err := a.history.History(ctx, organizationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load organization history")
	}
	if len(snapshots) == 0 {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "organization %s not found", organizationID).WithKey("organization.not_found")
	}
	return auditlog.Build(snapshots, AuditRules()), nil
}
