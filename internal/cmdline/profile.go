package cmdline

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sapic/core/internal/profile"
)

var (
	addAccountHost string
	addAccountKind string
	addAccountPAT  string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage profiles and bound accounts",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered profiles and their accounts",
	RunE:  runProfileList,
}

var profileAddAccountCmd = &cobra.Command{
	Use:   "add-account",
	Short: "Bind an account to the active profile",
	RunE:  runProfileAddAccount,
}

var profileRemoveAccountCmd = &cobra.Command{
	Use:   "remove-account ID",
	Short: "Remove an account from the active profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileRemoveAccount,
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd, profileAddAccountCmd, profileRemoveAccountCmd)

	profileAddAccountCmd.Flags().StringVar(&addAccountHost, "host", "github.com", "hosting provider host")
	profileAddAccountCmd.Flags().StringVar(&addAccountKind, "kind", "github", "account kind: github or gitlab")
	profileAddAccountCmd.Flags().StringVar(&addAccountPAT, "pat", "", "personal access token (omit to use OAuth)")
}

func runProfileList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	for _, p := range a.profile.Profiles() {
		fmt.Printf("%s\t%s", p.ID, p.Name)
		if p.IsDefault {
			fmt.Print("\t(default)")
		}
		fmt.Println()
		for _, acc := range p.Accounts {
			fmt.Printf("  %s\t%s@%s\t%s\n", acc.ID, acc.Username, acc.Host, acc.Kind)
		}
	}
	return nil
}

func runProfileAddAccount(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var kind profile.AccountKind
	if err := kind.UnmarshalText([]byte(addAccountKind)); err != nil {
		return err
	}

	if _, err := a.profile.ActiveProfile(); err != nil {
		defaultProfile := a.profile.Profiles()[0]
		if err := a.profile.Activate(defaultProfile.ID); err != nil {
			return err
		}
	}

	var pat *string
	if addAccountPAT != "" {
		pat = &addAccountPAT
	}

	acc, err := a.profile.AddAccount(context.Background(), addAccountHost, kind, pat)
	if err != nil {
		return err
	}
	fmt.Printf("bound account %s (%s@%s)\n", acc.ID, acc.Username, acc.Host)
	return nil
}

func runProfileRemoveAccount(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	warnings, err := a.profile.RemoveAccount(args[0])
	if err != nil {
		return err
	}
	for _, w := range warnings {
		warnf("%s", w.Message)
	}
	fmt.Printf("removed account %s\n", args[0])
	return nil
}
