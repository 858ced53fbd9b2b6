package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitsync/internal/models"
)

var expenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Record and manage ledger entries",
}

var expenseAddCmd = &cobra.Command{
	Use:   "add DESCRIPTION AMOUNT",
	Short: "Record a shared expense",
	Long: `Record an expense paid by one member and split equally.

The amount is in currency units, e.g. 24.99. When the server is unreachable
the expense is stored locally with a pending id and uploaded on the next sync.

Example:
  splitsync expense add "Groceries" 54.20 --paid-by m-1 --split m-1 --split m-2`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		paidBy, _ := cmd.Flags().GetString("paid-by")
		split, _ := cmd.Flags().GetStringArray("split")
		date, _ := cmd.Flags().GetString("date")

		amount, err := models.CentsFromString(args[1])
		if err != nil {
			fail(err)
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

		e := models.NewExpense(args[0], amount, paidBy, split)
		if date != "" {
			e.Date = date
		}
		created, err := app.ledger.CreateExpense(context.Background(), token, e)
		if err != nil {
			fail(err)
		}
		printExpenseResult(created)
	},
}

var expenseIncomeCmd = &cobra.Command{
	Use:   "income DESCRIPTION AMOUNT",
	Short: "Record money received on behalf of the group",
	Long: `Record an income, e.g. a deposit refund, received by one member and
owed to the split members in equal shares.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		receivedBy, _ := cmd.Flags().GetString("received-by")
		split, _ := cmd.Flags().GetStringArray("split")

		amount, err := models.CentsFromString(args[1])
		if err != nil {
			fail(err)
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

		created, err := app.ledger.CreateExpense(context.Background(), token,
			models.NewIncome(args[0], amount, receivedBy, split))
		if err != nil {
			fail(err)
		}
		printExpenseResult(created)
	},
}

var expenseTransferCmd = &cobra.Command{
	Use:   "transfer AMOUNT",
	Short: "Record a direct payment between two members",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		description, _ := cmd.Flags().GetString("description")

		amount, err := models.CentsFromString(args[0])
		if err != nil {
			fail(err)
		}
		if description == "" {
			description = "Transfer"
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

		created, err := app.ledger.CreateExpense(context.Background(), token,
			models.NewTransfer(description, amount, from, to))
		if err != nil {
			fail(err)
		}
		printExpenseResult(created)
	},
}

var expenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the group's ledger entries",
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
		expenses, err := app.ledger.Expenses(context.Background(), token)
		if err != nil {
			fail(err)
		}
		if len(expenses) == 0 {
			fmt.Println("No expenses recorded yet")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tTYPE\tDESCRIPTION\tAMOUNT")
		for _, e := range expenses {
			id := e.ID
			if e.Pending() {
				id += " (pending)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", id, e.Date, e.Kind, e.Description, e.Amount)
		}
		w.Flush()
	},
}

var expenseUpdateCmd = &cobra.Command{
	Use:   "update EXPENSE_ID",
	Short: "Change fields of an existing entry",
	Long: `Change the description, amount, payer, or split of an entry.
Unset flags keep their current value. Entries still pending upload cannot be
changed until the server has confirmed them.`,
	Args: cobra.ExactArgs(1),
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
		ctx := context.Background()

		expenses, err := app.ledger.Expenses(ctx, token)
		if err != nil {
			fail(err)
		}
		var target *models.Expense
		for i := range expenses {
			if expenses[i].ID == args[0] {
				target = &expenses[i]
				break
			}
		}
		if target == nil {
			fail(fmt.Errorf("no expense with id %q", args[0]))
		}

		if cmd.Flags().Changed("description") {
			target.Description, _ = cmd.Flags().GetString("description")
		}
		if cmd.Flags().Changed("amount") {
			raw, _ := cmd.Flags().GetString("amount")
			amount, err := models.CentsFromString(raw)
			if err != nil {
				fail(err)
			}
			target.Amount = amount
		}
		if cmd.Flags().Changed("paid-by") {
			target.PaidBy, _ = cmd.Flags().GetString("paid-by")
		}
		if cmd.Flags().Changed("split") {
			target.SplitBetween, _ = cmd.Flags().GetStringArray("split")
		}
		if cmd.Flags().Changed("date") {
			target.Date, _ = cmd.Flags().GetString("date")
		}

		updated, err := app.ledger.UpdateExpense(ctx, token, *target)
		if err != nil {
			fail(err)
		}
		fmt.Printf("Updated %s: %s %s\n", updated.ID, updated.Description, updated.Amount)
	},
}

var expenseDeleteCmd = &cobra.Command{
	Use:   "delete EXPENSE_ID",
	Short: "Delete an entry",
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
		if err := app.ledger.DeleteExpense(context.Background(), token, args[0]); err != nil {
			fail(err)
		}
		fmt.Printf("Deleted %s\n", args[0])
	},
}

func printExpenseResult(e *models.Expense) {
	if e.Pending() {
		fmt.Printf("Recorded %s %s locally, pending upload (id %s)\n", e.Description, e.Amount, e.ID)
		return
	}
	fmt.Printf("Recorded %s %s (id %s)\n", e.Description, e.Amount, e.ID)
}

func init() {
	expenseAddCmd.Flags().String("paid-by", "", "member id who paid")
	expenseAddCmd.Flags().StringArray("split", nil, "member id to split between (repeatable)")
	expenseAddCmd.Flags().String("date", "", "expense date as YYYY-MM-DD (default today)")
	expenseAddCmd.MarkFlagRequired("paid-by")
	expenseAddCmd.MarkFlagRequired("split")

	expenseIncomeCmd.Flags().String("received-by", "", "member id who received the money")
	expenseIncomeCmd.Flags().StringArray("split", nil, "member id owed a share (repeatable)")
	expenseIncomeCmd.MarkFlagRequired("received-by")
	expenseIncomeCmd.MarkFlagRequired("split")

	expenseTransferCmd.Flags().String("from", "", "member id who paid")
	expenseTransferCmd.Flags().String("to", "", "member id who was paid")
	expenseTransferCmd.Flags().String("description", "", "entry description")
	expenseTransferCmd.MarkFlagRequired("from")
	expenseTransferCmd.MarkFlagRequired("to")

	expenseUpdateCmd.Flags().String("description", "", "new description")
	expenseUpdateCmd.Flags().String("amount", "", "new amount in currency units")
	expenseUpdateCmd.Flags().String("paid-by", "", "new payer member id")
	expenseUpdateCmd.Flags().StringArray("split", nil, "new split member ids")
	expenseUpdateCmd.Flags().String("date", "", "new date as YYYY-MM-DD")

	expenseCmd.AddCommand(expenseAddCmd)
	expenseCmd.AddCommand(expenseIncomeCmd)
	expenseCmd.AddCommand(expenseTransferCmd)
	expenseCmd.AddCommand(expenseListCmd)
	expenseCmd.AddCommand(expenseUpdateCmd)
	expenseCmd.AddCommand(expenseDeleteCmd)
	rootCmd.AddCommand(expenseCmd)
}
