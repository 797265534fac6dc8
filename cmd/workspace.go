package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/loomterm/loom/internal/config"
	"github.com/loomterm/loom/internal/infrastructure/sqlite"
)

var workspaceListCmd = &cobra.Command{
	Use:   "workspace:list",
	Short: "List saved workspaces",
	Long: `List saved workspaces with their tab counts and last-saved time.

Workspaces are saved automatically on exit when loom runs with --workspace.`,
	RunE: runWorkspaceList,
}

var workspaceDeleteCmd = &cobra.Command{
	Use:   "workspace:delete NAME",
	Short: "Delete a saved workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspaceDelete,
}

func init() {
	rootCmd.AddCommand(workspaceListCmd)
	rootCmd.AddCommand(workspaceDeleteCmd)
}

func openWorkspaceRepo() (*sqlite.WorkspaceRepository, func(), error) {
	db, err := sqlite.NewDB(config.DefaultWorkspacePath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening workspace store: %w", err)
	}
	return sqlite.NewWorkspaceRepository(db), func() { _ = db.Close() }, nil
}

func runWorkspaceList(cmd *cobra.Command, args []string) error {
	repo, closeDB, err := openWorkspaceRepo()
	if err != nil {
		return err
	}
	defer closeDB()

	summaries, err := repo.List()
	if err != nil {
		return fmt.Errorf("listing workspaces: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Println("no saved workspaces")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTABS\tSAVED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%s\n", s.Name, s.TabCount, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runWorkspaceDelete(cmd *cobra.Command, args []string) error {
	repo, closeDB, err := openWorkspaceRepo()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := repo.Delete(args[0]); err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}
	fmt.Printf("deleted workspace %q\n", args[0])
	return nil
}
