package models

import (
	"marketparticipant/internal/auditlog"
	id "marketparticipant/pkg/domain"
)

// AuditField names a tracked aspect of a grid area.
type AuditField string

const (
	AuditFieldName                   AuditField = "Name"
	AuditFieldValidTo                AuditField = "ValidTo"
	AuditFieldConsolidationRequested AuditField = "ConsolidationRequested"
	AuditFieldConsolidationCompleted AuditField = "ConsolidationCompleted"
)

// AuditRecord is an audit entry written explicitly rather than derived from
// history. Consolidation is the only writer.
type AuditRecord struct {
	GridAreaID id.GridAreaID
	auditlog.Entry[AuditField]
}
