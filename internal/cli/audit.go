package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	actormodels "marketparticipant/internal/actor/models"
	actorservice "marketparticipant/internal/actor/service"
	"marketparticipant/internal/auditlog"
	gridareamodels "marketparticipant/internal/gridarea/models"
	gridareaservice "marketparticipant/internal/gridarea/service"
	"marketparticipant/internal/organization"
	"marketparticipant/internal/userrole"
	id "marketparticipant/pkg/domain"
)

// AuditOptions holds flags for the audit commands.
type AuditOptions struct {
	*RootOptions
	Dir string
	ID  string
}

// NewAuditCommand rebuilds audit logs from exported JSONL histories, one
// "<id>.jsonl" file per entity in --dir.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Rebuild an audit log from a history export",
		Long: `Rebuild the audit log of one entity from an exported history.

Examples:
  mpadmin audit organization --dir ./exports/organizations --id 6f1c2a8e-3b4d-4c5e-8f90-1a2b3c4d5e6f
  mpadmin audit actor --dir ./exports/actors --id <actor id> --format json`,
	}
	cmd.PersistentFlags().StringVar(&opts.Dir, "dir", ".", "directory holding <id>.jsonl history files")
	cmd.PersistentFlags().StringVar(&opts.ID, "id", "", "entity id (required)")
	_ = cmd.MarkPersistentFlagRequired("id")

	cmd.AddCommand(
		auditSubcommand("actor", "Actor field changes", opts, auditActor),
		auditSubcommand("grid-area", "Grid area field changes", opts, auditGridArea),
		auditSubcommand("organization", "Organization field changes", opts, auditOrganization),
		auditSubcommand("user-role", "User role field changes and permission grants", opts, auditUserRole),
	)
	return cmd
}

func auditSubcommand(use, short string, opts *AuditOptions, run func(context.Context, *AuditOptions) ([]row, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return writeRows(cmd.OutOrStdout(), opts.Format, rows)
		},
	}
}

func auditActor(ctx context.Context, opts *AuditOptions) ([]row, error) {
	actorID, err := id.ParseActorID(opts.ID)
	if err != nil {
		return nil, err
	}
	history := auditlog.NewJSONLHistory[id.ActorID, actormodels.Actor](opts.Dir)
	snapshots, err := history.History(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return toRows(auditlog.Build(snapshots, actorservice.AuditRules())), nil
}

func auditGridArea(ctx context.Context, opts *AuditOptions) ([]row, error) {
	gridAreaID, err := id.ParseGridAreaID(opts.ID)
	if err != nil {
		return nil, err
	}
	history := auditlog.NewJSONLHistory[id.GridAreaID, gridareamodels.GridArea](opts.Dir)
	snapshots, err := history.History(ctx, gridAreaID)
	if err != nil {
		return nil, err
	}
	return toRows(auditlog.Build(snapshots, gridareaservice.AuditRules())), nil
}

func auditOrganization(ctx context.Context, opts *AuditOptions) ([]row, error) {
	organizationID, err := id.ParseOrganizationID(opts.ID)
	if err != nil {
		return nil, err
	}
	auditor := organization.NewAuditor(auditlog.NewJSONLHistory[id.OrganizationID, organization.Organization](opts.Dir))
	entries, err := auditor.BuildAuditLog(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return toRows(entries), nil
}

func auditUserRole(ctx context.Context, opts *AuditOptions) ([]row, error) {
	userRoleID, err := id.ParseUserRoleID(opts.ID)
	if err != nil {
		return nil, err
	}
	auditor := userrole.NewAuditor(auditlog.NewJSONLHistory[id.UserRoleID, userrole.UserRole](opts.Dir))
	entries, err := auditor.BuildAuditLog(ctx, userRoleID)
	if err != nil {
		return nil, err
	}
	return toRows(entries), nil
}

// row is the printable form of an audit entry of any entity.
type row struct {
	Timestamp time.Time `json:"timestamp"`
	Field     string    `json:"field"`
	Group     string    `json:"group,omitempty"`
	Previous  string    `json:"previous"`
	Current   string    `json:"current"`
	ChangedBy string    `json:"changed_by,omitempty"`
}

func toRows[F ~string](entries []auditlog.Entry[F]) []row {
	out := make([]row, 0, len(entries))
	for _, e := range entries {
		r := row{
			Timestamp: e.Timestamp.UTC(),
			Field:     string(e.Field),
			Group:     e.Group,
			Previous:  e.Previous,
			Current:   e.Current,
		}
		if !e.ChangedBy.IsNil() {
			r.ChangedBy = e.ChangedBy.String()
		}
		out = append(out, r)
	}
	return out
}

func writeRows(w io.Writer, format string, rows []row) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	for _, r := range rows {
		field := r.Field
		if r.Group != "" {
			field += " [" + r.Group + "]"
		}
		by := r.ChangedBy
		if by == "" {
			by = "system"
		}
		if _, err := fmt.Fprintf(w, "%s %s: %q -> %q (by %s)\n",
			r.Timestamp.Format(time.RFC3339), field, r.Previous, r.Current, by); err != nil {
			return err
		}
	}
	return nil
}
