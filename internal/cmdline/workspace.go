package cmdline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sapic/core/internal/project"
	"github.com/sapic/core/internal/workspace"
)

var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Manage workbench workspaces",
}

var workspaceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known workspaces",
	RunE:  runWorkspaceList,
}

var workspaceCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspaceCreate,
}

var workspaceOpenCmd = &cobra.Command{
	Use:   "open ID",
	Short: "Open a workspace, stamping its last-opened time",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkspaceOpen,
}

func init() {
	rootCmd.AddCommand(workspaceCmd)
	workspaceCmd.AddCommand(workspaceListCmd, workspaceCreateCmd, workspaceOpenCmd)
}

func runWorkspaceList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	workspaces, warnings, err := workspace.List(ctx, a.cfg.WorkspacesDir, a.storage)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		warnf("%s: %s", w.Path, w.Message)
	}
	for _, w := range workspaces {
		fmt.Printf("%s\t%s\topened %s\n", w.ID, w.Name, relativeTime(w.LastOpenedAt))
	}
	return nil
}

func runWorkspaceCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id := uuid.NewString()
	ws, err := workspace.Create(context.Background(), a.cfg.WorkspacesDir, id, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("created workspace %s (%s)\n", ws.ID, ws.Name)
	return nil
}

func runWorkspaceOpen(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	ws, err := workspace.Open(ctx, a.cfg.WorkspacesDir, a.storage, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("opened workspace %s (%s) at %s\n", ws.ID, ws.Name, ws.Path)

	results, err := project.Restore(ctx, ws.ProjectsDir(), a.profile.AccountExists)
	if err != nil {
		return err
	}
	for _, r := range results {
		for _, w := range r.Warnings {
			warnf("project %s: %s", w.ProjectID, w.Message)
		}
		if r.Project != nil {
			fmt.Printf("  project %s\t%s\n", r.Project.ID, r.Project.Name)
		}
	}
	return nil
}
