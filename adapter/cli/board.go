package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/application/queries"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
	"github.com/spf13/cobra"
)

var (
	boardMember  string
	boardTab     string
	boardRefresh bool
)

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	phaseStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the discovery/delivery board",
	Long: `Print every category with its discovery and delivery tasks.

Examples:
  dashboard board
  dashboard board --member 조원우
  dashboard board --tab done --refresh`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return errNoApp
		}
		tab, err := domain.ParseTab(boardTab)
		if err != nil {
			return fmt.Errorf("--tab must be all, ongoing or done: %w", err)
		}
		member := domain.NormalizeText(boardMember)

		snapshot, err := app.snapshot(cmd.Context(), boardRefresh)
		if err != nil {
			return err
		}
		renderBoard(cmd.OutOrStdout(), snapshot, queries.BuildBoard(snapshot.Tasks, member, tab), member, tab)
		return nil
	},
}

func renderBoard(w io.Writer, snapshot *domain.Snapshot, sections []queries.BoardSection, member string, tab domain.Tab) {
	filter := "everyone"
	if member != "" {
		filter = member
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("generation %d · %s · %s · tab %s",
		snapshot.Generation, snapshot.RefreshedAt.Local().Format("2006-01-02 15:04"), filter, tab)))

	for _, section := range sections {
		fmt.Fprintln(w)
		fmt.Fprintln(w, sectionStyle.Render(section.Label)+" "+mutedStyle.Render(section.Description))
		renderCell(w, "Discovery", section.Discovery)
		renderCell(w, "Delivery", section.Delivery)
	}
}

func renderCell(w io.Writer, title string, cell queries.BoardCell) {
	fmt.Fprintf(w, "  %s (%d)\n", phaseStyle.Render(title), len(cell.Tasks))
	if len(cell.Tasks) == 0 {
		fmt.Fprintln(w, "    "+mutedStyle.Render("-"))
		return
	}
	for _, t := range cell.Tasks {
		status := t.Status
		if t.IsDone() {
			status = doneStyle.Render(status)
		}
		fmt.Fprintf(w, "    %s [%s] %s\n", t.Title, status, mutedStyle.Render(strings.Join(t.Owners(cell.Phase), ", ")))
	}
}

func init() {
	boardCmd.Flags().StringVarP(&boardMember, "member", "m", "", "only show tasks owned by this member")
	boardCmd.Flags().StringVarP(&boardTab, "tab", "t", "all", "all, ongoing or done")
	boardCmd.Flags().BoolVar(&boardRefresh, "refresh", false, "refresh before rendering")
	rootCmd.AddCommand(boardCmd)
}
