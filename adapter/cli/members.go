package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var membersJSON bool

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List the product team roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return errNoApp
		}
		members := app.Members.Handle(cmd.Context())
		out := cmd.OutOrStdout()

		if membersJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(members)
		}
		if len(members) == 0 {
			fmt.Fprintln(out, "No members configured.")
			return nil
		}
		for _, m := range members {
			fmt.Fprintf(out, "%s  %s  %s\n", phaseStyle.Render(m.Name), m.Role, mutedStyle.Render(m.Part))
		}
		return nil
	},
}

func init() {
	membersCmd.Flags().BoolVar(&membersJSON, "json", false, "print the roster as JSON")
	rootCmd.AddCommand(membersCmd)
}
