package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"marketparticipant/internal/identity"
	"marketparticipant/internal/marketrole"
)

// NewRolesCommand validates a role map file and prints the resolved ids.
func NewRolesCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Validate and print the identity provider role map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := identity.Load(file)
			if err != nil {
				return err
			}
			resolved := make([][2]string, 0, len(marketrole.AllFunctions))
			for _, f := range marketrole.AllFunctions {
				roleID, err := m.RoleID(f)
				if err != nil {
					return err
				}
				resolved = append(resolved, [2]string{f.String(), roleID.String()})
			}

			w := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				out := make(map[string]string, len(resolved))
				for _, r := range resolved {
					out[r[0]] = r[1]
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			for _, r := range resolved {
				if _, err := fmt.Fprintf(w, "%-31s %s\n", r[0], r[1]); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "role map file (defaults to the compiled-in map)")
	return cmd
}
