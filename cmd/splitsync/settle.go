package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitsync/internal/api"
	"github.com/mmynk/splitsync/internal/planner"
	"github.com/mmynk/splitsync/internal/service"
)

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show who owes and who is owed",
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
		balances, err := app.ledger.Balances(context.Background(), token)
		if err != nil {
			fail(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MEMBER\tNET")
		for _, b := range balances {
			fmt.Fprintf(w, "%s\t%s\n", b.MemberName, b.Net)
		}
		w.Flush()
	},
}

var settleCmd = &cobra.Command{
	Use:   "settle",
	Short: "Suggest the fewest transfers that settle all debts",
	Long: `Compute the smallest list of member-to-member transfers that brings
every balance to zero. The plan is a suggestion and is recomputed from live
balances on every call; record an actual payment with "expense transfer", or
move a debt into another group with "settle move".`,
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
		plan, err := app.ledger.SettlementPlan(context.Background(), token)
		if err != nil {
			fail(err)
		}
		if len(plan) == 0 {
			fmt.Println("All settled, nothing to pay")
			return
		}

		for i, s := range plan {
			fmt.Printf("#%d  %s pays %s %s\n", i+1, s.FromName, s.ToName, s.Amount)
		}
	},
}

var settleMoveCmd = &cobra.Command{
	Use:   "move INDEX",
	Short: "Move a suggested debt into another group",
	Long: `Move entry INDEX of the settlement plan into another group: the debt
is settled here with a transfer and recreated in the target group between the
matching members, so it can be paid together with the debts over there.

Members are matched across groups by name. If a member cannot be matched,
rerun with an explicit mapping:
  splitsync settle move 1 --target-token TOKEN --link m-2=x-7

Both writes go straight to the server; this command does not work offline.
If the second write fails the source group is already settled and the target
entry must be added by hand.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		targetToken, _ := cmd.Flags().GetString("target-token")
		links, _ := cmd.Flags().GetStringArray("link")

		index, err := strconv.Atoi(args[0])
		if err != nil || index < 1 {
			fail(fmt.Errorf("INDEX must be a positive plan entry number, got %q", args[0]))
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
		ctx := context.Background()

		sourceGroupID, err := api.GroupIDFromToken(token)
		if err != nil {
			fail(err)
		}
		targetGroupID, err := api.GroupIDFromToken(targetToken)
		if err != nil {
			fail(fmt.Errorf("target token: %w", err))
		}
		for _, link := range links {
			src, dst, ok := strings.Cut(link, "=")
			if !ok || src == "" || dst == "" {
				fail(fmt.Errorf("invalid --link %q, want SOURCE_MEMBER_ID=TARGET_MEMBER_ID", link))
			}
			app.ledger.LinkIdentity(sourceGroupID, src, targetGroupID, dst)
		}

		plan, err := app.ledger.SettlementPlan(ctx, token)
		if err != nil {
			fail(err)
		}
		if index > len(plan) {
			fail(fmt.Errorf("plan has only %d entries", len(plan)))
		}
		s := plan[index-1]

		err = app.ledger.ExecuteCrossLedgerTransfer(ctx, token, targetToken, s)
		var unresolved *planner.UnresolvedIdentityError
		if errors.As(err, &unresolved) {
			fail(fmt.Errorf("%v: rerun with --link %s=TARGET_MEMBER_ID", err, unresolved.MemberID))
		}
		if pte, ok := service.IsPartialTransfer(err); ok && pte.SourceDone {
			fmt.Fprintf(os.Stderr, "Warning: the debt was settled in this group but could not be recorded in the target group.\n")
			fmt.Fprintf(os.Stderr, "Add it there by hand: %s owes %s %s\n", s.FromName, s.ToName, s.Amount)
			fail(err)
		}
		if err != nil {
			fail(err)
		}

		fmt.Printf("Moved debt: %s pays %s %s in the target group now\n", s.FromName, s.ToName, s.Amount)
	},
}

func init() {
	settleMoveCmd.Flags().String("target-token", "", "bearer token of the group the debt moves into")
	settleMoveCmd.Flags().StringArray("link", nil, "manual member mapping SOURCE_MEMBER_ID=TARGET_MEMBER_ID (repeatable)")
	settleMoveCmd.MarkFlagRequired("target-token")

	settleCmd.AddCommand(settleMoveCmd)
	rootCmd.AddCommand(balancesCmd)
	rootCmd.AddCommand(settleCmd)
}
