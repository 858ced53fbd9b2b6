package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage group members",
}

var memberAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a member to the group",
	Args:  cobra.ExactArgs(1),
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
		group, err := app.ledger.AddMember(context.Background(), token, args[0])
		if err != nil {
			fail(err)
		}

		fmt.Printf("Added %q, group now has %d members\n", args[0], len(group.Members))
		printMembers(group.Members)
	},
}

var memberPaymentCmd = &cobra.Command{
	Use:   "payment MEMBER_ID",
	Short: "Set a member's payment details",
	Long: `Set the PayPal address and/or IBAN shown next to settlement suggestions.

Example:
  splitsync member payment m-42 --paypal alice@example.com --iban DE89370400440532013000`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		paypal, _ := cmd.Flags().GetString("paypal")
		iban, _ := cmd.Flags().GetString("iban")
		if paypal == "" && iban == "" {
			fail(fmt.Errorf("nothing to update: pass --paypal and/or --iban"))
		}

		app, err := newApp()
		if err != nil {
			fail(err)
		}
		defer app.Close()

		token, err := app.token()
		if err != nil {
			fail(err)
		}
		member, err := app.ledger.UpdatePayment(context.Background(), token, args[0], paypal, iban)
		if err != nil {
			fail(err)
		}

		fmt.Printf("Updated payment details for %s\n", member.Name)
	},
}

func init() {
	memberPaymentCmd.Flags().String("paypal", "", "PayPal email address")
	memberPaymentCmd.Flags().String("iban", "", "bank account IBAN")
	memberCmd.AddCommand(memberAddCmd)
	memberCmd.AddCommand(memberPaymentCmd)
	rootCmd.AddCommand(memberCmd)
}
