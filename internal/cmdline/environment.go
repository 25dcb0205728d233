package cmdline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sapic/core/internal/environment"
	"github.com/sapic/core/internal/project"
)

var envProjectIDFlag string

var environmentCmd = &cobra.Command{
	Use:   "environment",
	Short: "Manage a project's environment files",
}

var environmentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List environments in a project",
	RunE:  runEnvironmentList,
}

var environmentCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new environment",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnvironmentCreate,
}

var environmentRenameCmd = &cobra.Command{
	Use:   "rename ID NAME",
	Short: "Rename an environment",
	Args:  cobra.ExactArgs(2),
	RunE:  runEnvironmentRename,
}

var environmentSetColorCmd = &cobra.Command{
	Use:   "set-color ID COLOR",
	Short: "Set an environment's color",
	Args:  cobra.ExactArgs(2),
	RunE:  runEnvironmentSetColor,
}

var environmentClearColorCmd = &cobra.Command{
	Use:   "clear-color ID",
	Short: "Clear an environment's color",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnvironmentClearColor,
}

var environmentVarAddCmd = &cobra.Command{
	Use:   "var-add ID NAME VALUE",
	Short: "Add a variable to an environment",
	Args:  cobra.ExactArgs(3),
	RunE:  runEnvironmentVarAdd,
}

var environmentVarRemoveCmd = &cobra.Command{
	Use:   "var-remove ID VAR_ID",
	Short: "Remove a variable from an environment",
	Args:  cobra.ExactArgs(2),
	RunE:  runEnvironmentVarRemove,
}

func init() {
	rootCmd.AddCommand(environmentCmd)
	environmentCmd.PersistentFlags().StringVarP(&workspaceIDFlag, "workspace", "w", "", "workspace id (required)")
	environmentCmd.PersistentFlags().StringVarP(&envProjectIDFlag, "project", "p", "", "project id (required)")
	_ = environmentCmd.MarkPersistentFlagRequired("workspace")
	_ = environmentCmd.MarkPersistentFlagRequired("project")

	environmentCmd.AddCommand(
		environmentListCmd,
		environmentCreateCmd,
		environmentRenameCmd,
		environmentSetColorCmd,
		environmentClearColorCmd,
		environmentVarAddCmd,
		environmentVarRemoveCmd,
	)
}

func environmentsDirForFlags(a *app) string {
	projectsDir := projectsDirForWorkspace(a)
	proj := &project.Project{ID: envProjectIDFlag, InternalPath: projectsDir + "/" + envProjectIDFlag}
	return proj.EnvironmentsDir()
}

func runEnvironmentList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := environment.List(context.Background(), environmentsDirForFlags(a))
	if err != nil {
		return err
	}
	for _, d := range docs {
		color := "none"
		if d.Metadata.Color != nil {
			color = *d.Metadata.Color
		}
		fmt.Printf("%s\t%s\tcolor=%s\tvars=%d\n", d.ID, d.Metadata.Name, color, len(d.Variables))
	}
	return nil
}

func runEnvironmentCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := environment.Create(context.Background(), environmentsDirForFlags(a), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("created environment %s (%s)\n", doc.ID, doc.Metadata.Name)
	return nil
}

func runEnvironmentRename(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	name := args[1]
	doc, err := environment.Edit(context.Background(), environmentsDirForFlags(a), args[0], environment.EditParams{Name: &name})
	if err != nil {
		return err
	}
	fmt.Printf("renamed environment %s to %s\n", doc.ID, doc.Metadata.Name)
	return nil
}

func runEnvironmentSetColor(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	color := args[1]
	doc, err := environment.Edit(context.Background(), environmentsDirForFlags(a), args[0], environment.EditParams{SetColor: &color})
	if err != nil {
		return err
	}
	fmt.Printf("set color of environment %s to %s\n", doc.ID, *doc.Metadata.Color)
	return nil
}

func runEnvironmentClearColor(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := environment.Edit(context.Background(), environmentsDirForFlags(a), args[0], environment.EditParams{ClearColor: true})
	if err != nil {
		return err
	}
	fmt.Printf("cleared color of environment %s\n", doc.ID)
	return nil
}

func runEnvironmentVarAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	value, err := json.Marshal(args[2])
	if err != nil {
		return err
	}
	doc, err := environment.Edit(context.Background(), environmentsDirForFlags(a), args[0], environment.EditParams{
		AddVariables: []environment.AddVariableParams{{ID: uuid.NewString(), Name: args[1], Value: value}},
	})
	if err != nil {
		return err
	}
	fmt.Printf("added variable %s to environment %s\n", args[1], doc.ID)
	return nil
}

func runEnvironmentVarRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := environment.Edit(context.Background(), environmentsDirForFlags(a), args[0], environment.EditParams{
		RemoveVariables: []string{args[1]},
	})
	if err != nil {
		return err
	}
	fmt.Printf("removed variable %s from environment %s\n", args[1], doc.ID)
	return nil
}
