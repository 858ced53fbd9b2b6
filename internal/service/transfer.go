package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/splitsync/internal/api"
	"github.com/mmynk/splitsync/internal/cache"
	"github.com/mmynk/splitsync/internal/models"
)

// Stages of a cross-ledger transfer, reported by PartialTransferError.
const (
	StageSource = "source"
	StageTarget = "target"
)

// PartialTransferError reports a cross-ledger transfer that stopped between
// its two writes. There is no automatic rollback; the caller must inspect
// SourceDone and repair by hand.
type PartialTransferError struct {
	// SourceDone is true when the settling transfer in the source group was
	// recorded before the failure.
	SourceDone bool
	// Stage names the write that failed, StageSource or StageTarget.
	Stage string
	Err   error
}

func (e *PartialTransferError) Error() string {
	if e.SourceDone {
		return fmt.Sprintf("cross-ledger transfer incomplete: source group settled but %s write failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("cross-ledger transfer failed at %s write: %v", e.Stage, e.Err)
}

func (e *PartialTransferError) Unwrap() error { return e.Err }

// LinkIdentity records that a member of one group is the same person as a
// member of another group. Manual links take precedence over name matching
// and are how an unresolved transfer is unblocked.
func (l *Ledger) LinkIdentity(sourceGroupID, sourceMemberID, targetGroupID, targetMemberID string) {
	l.registry.Link(sourceGroupID, sourceMemberID, targetGroupID, targetMemberID)
	slog.Info("identity linked",
		"source_group", sourceGroupID, "source_member", sourceMemberID,
		"target_group", targetGroupID, "target_member", targetMemberID)
}

// ExecuteCrossLedgerTransfer moves a debt from the source group into the
// target group: the settlement is cleared at the source with a direct
// transfer and recreated at the target with the direction flipped, so the
// debtor owes the same amount there. Both parties must resolve to target
// members first; an *planner.UnresolvedIdentityError blocks the operation.
//
// The two writes are independent and are sent straight to the server, never
// queued. If the second write fails after the first succeeded the books
// disagree and a *PartialTransferError says which side is missing.
func (l *Ledger) ExecuteCrossLedgerTransfer(ctx context.Context, sourceToken, targetToken string, s models.Settlement) error {
	if s.Amount <= 0 {
		return fmt.Errorf("settlement amount must be positive, got %s", s.Amount)
	}
	sourceGroupID, err := api.GroupIDFromToken(sourceToken)
	if err != nil {
		return fmt.Errorf("source token: %w", err)
	}
	targetGroupID, err := api.GroupIDFromToken(targetToken)
	if err != nil {
		return fmt.Errorf("target token: %w", err)
	}
	if sourceGroupID == targetGroupID {
		return fmt.Errorf("source and target group are the same")
	}

	sourceGroup, err := l.Group(ctx, sourceToken)
	if err != nil {
		return fmt.Errorf("failed to load source group: %w", err)
	}
	targetGroup, err := l.Group(ctx, targetToken)
	if err != nil {
		return fmt.Errorf("failed to load target group: %w", err)
	}

	debtor := models.Member{ID: s.FromID, Name: s.FromName}
	creditor := models.Member{ID: s.ToID, Name: s.ToName}
	targetDebtor, err := l.registry.Resolve(sourceGroupID, debtor, targetGroupID, targetGroup.Members)
	if err != nil {
		return err
	}
	targetCreditor, err := l.registry.Resolve(sourceGroupID, creditor, targetGroupID, targetGroup.Members)
	if err != nil {
		return err
	}

	settle := models.NewTransfer(
		fmt.Sprintf("Debt moved to %s", targetGroup.Name),
		s.Amount, s.FromID, s.ToID,
	)
	created, err := l.remote.CreateExpense(ctx, sourceToken, settle)
	if err != nil {
		return &PartialTransferError{SourceDone: false, Stage: StageSource, Err: err}
	}
	l.updateSnapshot(ctx, sourceGroupID, func(snap *cache.Snapshot) {
		snap.ApplyExpenseCreate(*created)
	})

	// Flipped on purpose: recording the creditor as payer makes the debtor
	// owe the amount in the target group.
	carry := models.NewTransfer(
		fmt.Sprintf("Debt moved from %s", sourceGroup.Name),
		s.Amount, targetCreditor.ID, targetDebtor.ID,
	)
	created, err = l.remote.CreateExpense(ctx, targetToken, carry)
	if err != nil {
		slog.Error("cross-ledger transfer stopped after source write",
			"source_group", sourceGroupID, "target_group", targetGroupID, "error", err)
		return &PartialTransferError{SourceDone: true, Stage: StageTarget, Err: err}
	}
	l.updateSnapshot(ctx, targetGroupID, func(snap *cache.Snapshot) {
		snap.ApplyExpenseCreate(*created)
	})

	slog.Info("cross-ledger transfer executed",
		"source_group", sourceGroupID, "target_group", targetGroupID,
		"amount", s.Amount, "debtor", s.FromName, "creditor", s.ToName)
	return nil
}

// IsPartialTransfer unwraps err as a *PartialTransferError.
func IsPartialTransfer(err error) (*PartialTransferError, bool) {
	var pte *PartialTransferError
	if errors.As(err, &pte) {
		return pte, true
	}
	return nil, false
}
