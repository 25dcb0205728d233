package cmdline

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sapic/core/internal/project"
)

var workspaceIDFlag string

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects within a workspace",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectCreate,
}

var projectCloneCmd = &cobra.Command{
	Use:   "clone URL",
	Short: "Clone a project from a git repository",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectClone,
}

var projectImportArchiveCmd = &cobra.Command{
	Use:   "import-archive PATH NAME",
	Short: "Import a project from an exported archive",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectImportArchive,
}

var projectImportExternalCmd = &cobra.Command{
	Use:   "import-external PATH NAME",
	Short: "Bind a project to an existing external directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectImportExternal,
}

var projectExportArchiveCmd = &cobra.Command{
	Use:   "export-archive ID DEST",
	Short: "Export a project to a zip archive",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectExportArchive,
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a project and its storage",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectDelete,
}

var (
	cloneBranch    string
	cloneAccountID string
)

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.PersistentFlags().StringVarP(&workspaceIDFlag, "workspace", "w", "", "workspace id (required)")
	_ = projectCmd.MarkPersistentFlagRequired("workspace")

	projectCloneCmd.Flags().StringVar(&cloneBranch, "branch", "", "branch to check out after cloning")
	projectCloneCmd.Flags().StringVar(&cloneAccountID, "account", "", "account id to bind and authenticate with")

	projectCmd.AddCommand(
		projectCreateCmd,
		projectCloneCmd,
		projectImportArchiveCmd,
		projectImportExternalCmd,
		projectExportArchiveCmd,
		projectDeleteCmd,
	)
}

func projectsDirForWorkspace(a *app) string {
	return a.cfg.WorkspacesDir + "/" + workspaceIDFlag + "/projects"
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	projectsDir := projectsDirForWorkspace(a)
	proj, warnings, err := project.Create(context.Background(), projectsDir, project.CreateParams{Name: args[0]})
	if err != nil {
		return err
	}
	for _, w := range warnings {
		warnf("%s", w.Message)
	}
	fmt.Printf("created project %s (%s)\n", proj.ID, proj.Name)
	return nil
}

func runProjectClone(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	projectsDir := projectsDirForWorkspace(a)

	creds := project.Credentials{}
	if cloneAccountID != "" {
		sessions, err := a.profile.Sessions()
		if err != nil {
			return err
		}
		for _, s := range sessions {
			if s.Account.ID == cloneAccountID {
				secret, err := s.Secret()
				if err != nil {
					return err
				}
				creds = project.Credentials{Username: s.Account.Username, Token: secret}
				break
			}
		}
	}

	proj, err := project.Clone(context.Background(), projectsDir, creds, project.CloneParams{
		RepositoryURL: args[0],
		Branch:        cloneBranch,
		AccountID:     cloneAccountID,
	})
	if err != nil {
		return err
	}
	fmt.Printf("cloned project %s (%s)\n", proj.ID, proj.Name)
	return nil
}

func runProjectImportArchive(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	projectsDir := projectsDirForWorkspace(a)
	proj, err := project.ImportArchive(context.Background(), projectsDir, project.ImportArchiveParams{
		ArchivePath: args[0],
		Name:        args[1],
	})
	if err != nil {
		return err
	}
	fmt.Printf("imported project %s (%s)\n", proj.ID, proj.Name)
	return nil
}

func runProjectImportExternal(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	projectsDir := projectsDirForWorkspace(a)
	proj, err := project.ImportExternal(context.Background(), projectsDir, project.ImportExternalParams{
		ExternalPath: args[0],
		Name:         args[1],
	})
	if err != nil {
		return err
	}
	fmt.Printf("bound external project %s (%s) -> %s\n", proj.ID, proj.Name, proj.ExternalPath)
	return nil
}

func runProjectExportArchive(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	projectsDir := projectsDirForWorkspace(a)
	proj := &project.Project{ID: args[0], InternalPath: projectsDir + "/" + args[0]}
	if err := project.ExportArchive(context.Background(), proj, args[1]); err != nil {
		return err
	}
	fmt.Printf("exported project %s to %s\n", args[0], args[1])
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	projectsDir := projectsDirForWorkspace(a)
	proj := &project.Project{ID: args[0], InternalPath: projectsDir + "/" + args[0]}
	if err := project.Delete(context.Background(), proj, a.storage); err != nil {
		return err
	}
	fmt.Printf("deleted project %s\n", args[0])
	return nil
}
