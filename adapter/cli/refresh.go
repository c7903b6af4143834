package cli

import (
	"encoding/json"
	"io"

	"github.com/letsur-product-team/product-team-dashboard/adapter/api"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch, normalize and publish the task snapshot",
	Long: `Run one refresh cycle and print the JSON envelope:

  {"success": true, "tasks": [...]}      on success
  {"success": false, "error": "..."}     on failure (exit status 1)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return errNoApp
		}
		snapshot, err := app.Refresh.Handle(cmd.Context())
		return writeRefreshEnvelope(cmd.OutOrStdout(), snapshot, err)
	},
}

// writeRefreshEnvelope prints the refresh outcome and returns the refresh
// error, if any, so the process exits non-zero.
func writeRefreshEnvelope(w io.Writer, snapshot *domain.Snapshot, refreshErr error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if refreshErr != nil {
		if err := enc.Encode(map[string]any{"success": false, "error": refreshErr.Error()}); err != nil {
			return err
		}
		return refreshErr
	}

	tasks := snapshot.Tasks
	if tasks == nil {
		tasks = []domain.NormalizedTask{}
	}
	refreshedAt := snapshot.RefreshedAt
	return enc.Encode(api.RefreshResponse{
		Success:     true,
		Generation:  snapshot.Generation,
		RefreshedAt: &refreshedAt,
		Skipped:     snapshot.Skipped,
		Tasks:       tasks,
	})
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
