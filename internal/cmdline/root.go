// Package cmdline is the CLI surface over the core workbench engine
// (project lifecycle, workspace service, profile/account management): a
// cobra command tree with humanized output and TTY-aware formatting.
package cmdline

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "sapic",
	Short: "Manage sapic workbench workspaces, projects, and profiles",
	Long: `sapic is the command-line surface over the core API-development
workbench engine: workspaces hold projects, projects hold a worktree of
requests and endpoints, and profiles bind the accounts a project's version
control needs.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (currently ignored: configuration is always read from $XDG_CONFIG_HOME/sapic/config.yaml, or ~/.config/sapic/config.yaml)")
}
