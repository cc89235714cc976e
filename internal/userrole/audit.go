package userrole

import (
	"context"
	"fmt"

	"marketparticipant/internal/auditlog"
	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
)

type AuditField string

const (
	AuditFieldName              AuditField = "Name"
	AuditFieldDescription       AuditField = "Description"
	AuditFieldStatus            AuditField = "Status"
	AuditFieldPermissionAdded   AuditField = "PermissionAdded"
	AuditFieldPermissionRemoved AuditField = "PermissionRemoved"
)

func AuditRules() []auditlog.Rule[UserRole, AuditField] {
	return []auditlog.Rule[UserRole, AuditField]{
		auditlog.OnChange[UserRole](AuditFieldName, func(r UserRole) string { return r.Name }),
		auditlog.OnChange[UserRole](AuditFieldDescription, func(r UserRole) string { return r.Description }),
		auditlog.OnChange[UserRole](AuditFieldStatus, func(r UserRole) string { return string(r.Status) }),
	}
}

// grant is one uninterrupted period in which a role held a permission.
type grant struct {
	Permission Permission
	Seq        int
}

func permissionRules() []auditlog.Rule[grant, AuditField] {
	value := func(g grant) string { return string(g.Permission) }
	return []auditlog.Rule[grant, AuditField]{
		auditlog.OnCreation[grant](AuditFieldPermissionAdded, value),
		auditlog.OnDeletion[grant](AuditFieldPermissionRemoved, value),
	}
}

// grants derives one snapshot per permission grant from role versions. A
// grant opens in the first version holding the permission and closes in the
// first later version without it.
func grants(versions []auditlog.Snapshot[UserRole]) []auditlog.Snapshot[grant] {
	var out []auditlog.Snapshot[grant]
	active := map[Permission]int{}
	seq := map[Permission]int{}

	for _, v := range versions {
		for p, i := range active {
			if v.State.HasPermission(p) {
				continue
			}
			end := v.ValidFrom
			out[i].ValidTo = &end
			out[i].ClosedBy = v.ChangedBy
			delete(active, p)
		}
		for _, p := range v.State.Permissions {
			if _, ok := active[p]; ok {
				continue
			}
			seq[p]++
			active[p] = len(out)
			out = append(out, auditlog.Snapshot[grant]{
				State:     grant{Permission: p, Seq: seq[p]},
				ValidFrom: v.ValidFrom,
				ChangedBy: v.ChangedBy,
			})
		}
	}
	return out
}

// Auditor rebuilds user role audit logs from a history source.
type Auditor struct {
	history auditlog.HistorySource[id.UserRoleID, UserRole]
}

func NewAuditor(history auditlog.HistorySource[id.UserRoleID, UserRole]) *Auditor {
	return &Auditor{history: history}
}

// BuildAuditLog merges field changes with permission grants and removals.
// Permission entries carry the permission and grant number as their group.
func (a *Auditor) BuildAuditLog(ctx context.Context, userRoleID id.UserRoleID) ([]auditlog.Entry[AuditField], error) {
	versions, err := a.history.History(ctx, userRoleID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load user role history")
	}
	if len(versions) == 0 {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "user role %s not found", userRoleID).WithKey("user_role.not_found")
	}

	fields := auditlog.Build(versions, AuditRules())
	permissions := auditlog.Build(grants(versions), permissionRules(),
		auditlog.WithGroupBy(func(g grant) string { return fmt.Sprintf("%s#%d", g.Permission, g.Seq) }),
	)
	return auditlog.Merge(fields, permissions), nil
}
