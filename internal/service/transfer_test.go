package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mmynk/splitsync/internal/api"
	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/planner"
)

func crossLedgerFixture(t *testing.T) (*Ledger, *fakeRemote, string, string) {
	t.Helper()
	remote := newFakeRemote()
	srcToken := testToken(t, "g-src")
	dstToken := testToken(t, "g-dst")
	seedGroup(remote, srcToken, "g-src", "Road Trip", "Alice", "Bob")
	seedGroup(remote, dstToken, "g-dst", "Flat Share", "Alice Smith", "Bob Jones")
	ledger, _, _ := newTestLedger(t, remote)
	return ledger, remote, srcToken, dstToken
}

func TestExecuteCrossLedgerTransfer(t *testing.T) {
	ledger, remote, srcToken, dstToken := crossLedgerFixture(t)

	s := models.Settlement{
		FromID: "g-src-m1", FromName: "Alice",
		ToID: "g-src-m2", ToName: "Bob",
		Amount: 2000,
	}
	if err := ledger.ExecuteCrossLedgerTransfer(context.Background(), srcToken, dstToken, s); err != nil {
		t.Fatalf("ExecuteCrossLedgerTransfer failed: %v", err)
	}

	if got, want := len(remote.created), 2; got != want {
		t.Fatalf("recorded %d transfers, want %d", got, want)
	}

	settle := remote.created[0]
	if settle.token != srcToken {
		t.Errorf("first write went to the wrong group")
	}
	if settle.expense.Kind != models.KindTransfer || settle.expense.Amount != 2000 {
		t.Errorf("settling transfer = %+v, want a 2000 cent transfer", settle.expense)
	}
	if settle.expense.PaidBy != "g-src-m1" || settle.expense.TransferTo != "g-src-m2" {
		t.Errorf("settling transfer pays from %q to %q, want debtor to creditor",
			settle.expense.PaidBy, settle.expense.TransferTo)
	}

	carry := remote.created[1]
	if carry.token != dstToken {
		t.Errorf("second write went to the wrong group")
	}
	// The direction flips so the debt reappears in the target group.
	if carry.expense.PaidBy != "g-dst-m2" || carry.expense.TransferTo != "g-dst-m1" {
		t.Errorf("carried transfer pays from %q to %q, want mapped creditor to mapped debtor",
			carry.expense.PaidBy, carry.expense.TransferTo)
	}
	if carry.expense.Amount != 2000 {
		t.Errorf("carried amount = %s, want 2000", carry.expense.Amount)
	}
}

func TestExecuteCrossLedgerTransferBlocksOnUnresolvedIdentity(t *testing.T) {
	ledger, remote, srcToken, dstToken := crossLedgerFixture(t)

	s := models.Settlement{
		FromID: "g-src-m9", FromName: "Zed",
		ToID: "g-src-m2", ToName: "Bob",
		Amount: 500,
	}
	err := ledger.ExecuteCrossLedgerTransfer(context.Background(), srcToken, dstToken, s)
	var unresolved *planner.UnresolvedIdentityError
	if !errors.As(err, &unresolved) {
		t.Fatalf("error = %v, want an unresolved identity", err)
	}
	if unresolved.MemberName != "Zed" {
		t.Errorf("unresolved member = %q, want %q", unresolved.MemberName, "Zed")
	}
	if len(remote.created) != 0 {
		t.Errorf("writes were issued despite the unresolved identity")
	}
}

func TestExecuteCrossLedgerTransferManualLinkUnblocks(t *testing.T) {
	ledger, remote, srcToken, dstToken := crossLedgerFixture(t)
	ctx := context.Background()

	// "Rob" matches neither "Alice Smith" nor "Bob Jones" by any strategy.
	s := models.Settlement{
		FromID: "g-src-m2", FromName: "Rob",
		ToID: "g-src-m1", ToName: "Alice",
		Amount: 700,
	}
	err := ledger.ExecuteCrossLedgerTransfer(ctx, srcToken, dstToken, s)
	var unresolved *planner.UnresolvedIdentityError
	if !errors.As(err, &unresolved) {
		t.Fatalf("first attempt: error = %v, want an unresolved identity", err)
	}

	ledger.LinkIdentity("g-src", "g-src-m2", "g-dst", "g-dst-m2")
	if err := ledger.ExecuteCrossLedgerTransfer(ctx, srcToken, dstToken, s); err != nil {
		t.Fatalf("after linking: %v", err)
	}
	if got, want := len(remote.created), 2; got != want {
		t.Fatalf("recorded %d transfers after linking, want %d", got, want)
	}
	if got, want := remote.created[1].expense.TransferTo, "g-dst-m2"; got != want {
		t.Errorf("carried transfer targets %q, want manually linked %q", got, want)
	}
}

func TestExecuteCrossLedgerTransferPartialFailure(t *testing.T) {
	ledger, remote, srcToken, dstToken := crossLedgerFixture(t)
	remote.failCreate[dstToken] = fmt.Errorf("create expense: %w", api.ErrUnavailable)

	s := models.Settlement{
		FromID: "g-src-m1", FromName: "Alice",
		ToID: "g-src-m2", ToName: "Bob",
		Amount: 2000,
	}
	err := ledger.ExecuteCrossLedgerTransfer(context.Background(), srcToken, dstToken, s)
	pte, ok := IsPartialTransfer(err)
	if !ok {
		t.Fatalf("error = %v, want a partial transfer failure", err)
	}
	if !pte.SourceDone {
		t.Errorf("SourceDone = false, want true: the source write succeeded")
	}
	if got, want := pte.Stage, StageTarget; got != want {
		t.Errorf("failed stage = %q, want %q", got, want)
	}
	if got, want := len(remote.created), 1; got != want {
		t.Errorf("recorded %d transfers, want %d (only the source settle)", got, want)
	}
}

func TestExecuteCrossLedgerTransferRejectsSameGroup(t *testing.T) {
	ledger, _, srcToken, _ := crossLedgerFixture(t)

	s := models.Settlement{FromID: "g-src-m1", FromName: "Alice", ToID: "g-src-m2", ToName: "Bob", Amount: 100}
	if err := ledger.ExecuteCrossLedgerTransfer(context.Background(), srcToken, srcToken, s); err == nil {
		t.Errorf("transfer into the same group succeeded, want an error")
	}
}
