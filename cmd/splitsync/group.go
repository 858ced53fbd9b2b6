package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitsync/internal/models"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Create and inspect the expense group",
}

var groupCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new group and store its token",
	Long: `Create a new expense group on the server.

The server answers with a bearer token that authenticates all later commands
for this group. The token is saved in the data directory and printed once;
share it with the other members.

Example:
  splitsync group create "Ski Trip" --member Alice --member Bob`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		members, _ := cmd.Flags().GetStringArray("member")
		if len(members) == 0 {
			fail(fmt.Errorf("at least one --member is required"))
		}

		app, err := newApp()
		if err != nil {
			fail(err)
		}
		defer app.Close()

		group, token, err := app.ledger.CreateGroup(context.Background(), args[0], members)
		if err != nil {
			fail(err)
		}
		if err := app.saveToken(token); err != nil {
			fail(err)
		}

		fmt.Printf("Created group %q with %d members\n", group.Name, len(group.Members))
		fmt.Printf("Token (saved to %s):\n%s\n", app.tokenPath(), token)
	},
}

var groupShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current group and its members",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fail(err)
		}
		defer app.Close()

		token, err := app.token()
		if err != nil {
			fail(err)
		}
		group, err := app.ledger.Group(context.Background(), token)
		if err != nil {
			fail(err)
		}

		fmt.Printf("%s (%s)\n\n", group.Name, group.ID)
		printMembers(group.Members)
	},
}

func printMembers(members []models.Member) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPAYPAL\tIBAN")
	for _, m := range members {
		name := m.Name
		if models.IsLocalID(m.ID) {
			name += " (pending)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, name, m.PayPalEmail, m.IBAN)
	}
	w.Flush()
}

func init() {
	groupCreateCmd.Flags().StringArray("member", nil, "member name (repeatable)")
	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupShowCmd)
	rootCmd.AddCommand(groupCmd)
}
