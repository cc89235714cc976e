package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"marketparticipant/internal/platform/config"
	"marketparticipant/internal/platform/postgres"
)

// NewMigrateCommand applies the embedded schema to the configured database.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(rootOpts.EnvFile)
			if err != nil {
				return err
			}
			cfg.Postgres.ApplyMigrations = true
			db, err := postgres.Open(cmd.Context(), cfg.Postgres)
			if err != nil {
				return err
			}
			defer db.Close()
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return err
		},
	}
}
