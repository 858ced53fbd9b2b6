// Package service is the offline-first facade a presentation layer talks
// to. Reads prefer the remote service and fall back to the local cache;
// writes prefer the remote service and degrade to an optimistic local
// projection plus a queued mutation. Explicit server rejections always
// surface; only outages degrade.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/splitsync/internal/api"
	"github.com/mmynk/splitsync/internal/cache"
	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/planner"
	"github.com/mmynk/splitsync/internal/queue"
	"github.com/mmynk/splitsync/internal/storage"
	"github.com/mmynk/splitsync/internal/sync"
)

// ErrPendingRecord is returned when updating or deleting a record whose
// server id is not confirmed yet. The server cannot address the record, so
// the caller must wait for a sync first.
var ErrPendingRecord = errors.New("record is pending sync and cannot be modified yet")

// Remote is everything the facade calls on the remote service. It is the
// coordinator's replay surface plus group creation, which is never queued.
type Remote interface {
	sync.Remote
	CreateGroup(ctx context.Context, name string, memberNames []string) (*models.Group, string, error)
}

var _ Remote = (*api.Client)(nil)

// Ledger combines the remote client, cache, queue, and coordinator behind
// the operations a consumer calls. Group identity always derives from the
// bearer token.
type Ledger struct {
	remote   Remote
	cache    *cache.Cache
	queue    *queue.Queue
	coord    *sync.Coordinator
	registry *planner.IdentityRegistry
}

// NewLedger creates the facade over an already wired coordinator stack.
func NewLedger(remote Remote, c *cache.Cache, q *queue.Queue, coord *sync.Coordinator) *Ledger {
	return &Ledger{
		remote:   remote,
		cache:    c,
		queue:    q,
		coord:    coord,
		registry: planner.NewIdentityRegistry(),
	}
}

// Status reports connectivity, queue depth, sync state, and the last
// replay rejection.
func (l *Ledger) Status(ctx context.Context) (sync.Status, error) {
	return l.coord.Status(ctx)
}

// TriggerSync runs a sync pass now. Coalesced if one is already running.
func (l *Ledger) TriggerSync(ctx context.Context) error {
	return l.coord.TriggerSync(ctx)
}

// SetOnline feeds an explicit platform connectivity signal to the
// coordinator.
func (l *Ledger) SetOnline(ctx context.Context, online bool) {
	l.coord.SetOnline(ctx, online)
}

// CreateGroup registers a new group remotely and caches its initial
// snapshot. There is no token before the group exists, so this operation
// cannot be queued; offline failure surfaces directly.
func (l *Ledger) CreateGroup(ctx context.Context, name string, memberNames []string) (*models.Group, string, error) {
	group, token, err := l.remote.CreateGroup(ctx, name, memberNames)
	if err != nil {
		slog.Error("CreateGroup failed", "name", name, "error", err)
		return nil, "", err
	}

	balances := make([]models.Balance, 0, len(group.Members))
	for _, m := range group.Members {
		balances = append(balances, models.Balance{MemberID: m.ID, MemberName: m.Name})
	}
	snap := &cache.Snapshot{Group: *group, Balances: balances, FetchedAt: time.Now()}
	if err := l.cache.Put(ctx, snap); err != nil {
		slog.Warn("failed to cache new group", "group_id", group.ID, "error", err)
	}

	slog.Info("group created", "group_id", group.ID, "members", len(group.Members))
	return group, token, nil
}

// Group returns the group for the token, from the server when reachable
// and from the cache otherwise.
func (l *Ledger) Group(ctx context.Context, token string) (*models.Group, error) {
	groupID, err := api.GroupIDFromToken(token)
	if err != nil {
		return nil, err
	}

	group, err := l.remote.GetGroup(ctx, token)
	if err == nil {
		l.updateSnapshot(ctx, groupID, func(snap *cache.Snapshot) {
			snap.Group = *group
		})
		return group, nil
	}
	if !errors.Is(err, api.ErrUnavailable) {
		return nil, err
	}

	recordCacheFallback("group")
	snap, cacheErr := l.cache.Get(ctx, groupID)
	if cacheErr != nil {
		return nil, fmt.Errorf("no cached group to fall back to: %w", err)
	}
	slog.Info("serving group from cache", "group_id", groupID)
	group = &snap.Group
	return group, nil
}

// Expenses returns the group's expense list, cache-backed when offline.
func (l *Ledger) Expenses(ctx context.Context, token string) ([]models.Expense, error) {
	groupID, err := api.GroupIDFromToken(token)
	if err != nil {
		return nil, err
	}

	expenses, err := l.remote.ListExpenses(ctx, token)
	if err == nil {
		l.updateSnapshot(ctx, groupID, func(snap *cache.Snapshot) {
			snap.Expenses = expenses
		})
		return expenses, nil
	}
	if !errors.Is(err, api.ErrUnavailable) {
		return nil, err
	}

	recordCacheFallback("expenses")
	snap, cacheErr := l.cache.Get(ctx, groupID)
	if cacheErr != nil {
		return nil, fmt.Errorf("no cached expenses to fall back to: %w", err)
	}
	slog.Info("serving expenses from cache", "group_id", groupID)
	return snap.Expenses, nil
}

// Balances returns the group's net balances, cache-backed when offline.
func (l *Ledger) Balances(ctx context.Context, token string) ([]models.Balance, error) {
	groupID, err := api.GroupIDFromToken(token)
	if err != nil {
		return nil, err
	}

	balances, err := l.remote.GetBalances(ctx, token)
	if err == nil {
		l.updateSnapshot(ctx, groupID, func(snap *cache.Snapshot) {
			snap.Balances = balances
		})
		return balances, nil
	}
	if !errors.Is(err, api.ErrUnavailable) {
		return nil, err
	}

	recordCacheFallback("balances")
	snap, cacheErr := l.cache.Get(ctx, groupID)
	if cacheErr != nil {
		return nil, fmt.Errorf("no cached balances to fall back to: %w", err)
	}
	slog.Info("serving balances from cache", "group_id", groupID)
	return snap.Balances, nil
}

// CreateExpense records an expense. When the service is unreachable the
// expense is projected into the cache under a temporary local id, queued,
// and returned with Pending() == true.
func (l *Ledger) CreateExpense(ctx context.Context, token string, e models.Expense) (*models.Expense, error) {
	groupID, err := api.GroupIDFromToken(token)
	if err != nil {
		return nil, err
	}
	e.GroupID = groupID
	if e.Date == "" {
		e.Date = time.Now().Format(models.DateLayout)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	created, err := l.remote.CreateExpense(ctx, token, e)
	if err == nil {
		l.updateSnapshot(ctx, groupID, func(snap *cache.Snapshot) {
			snap.ApplyExpenseCreate(*created)
		})
		slog.Info("expense created", "group_id", groupID, "expense_id", created.ID)
		return created, nil
	}
	if !errors.Is(err, api.ErrUnavailable) {
		slog.Error("CreateExpense rejected", "group_id", groupID, "error", err)
		return nil, err
	}

	e.ID = models.NewLocalID()
	e.CreatedAt = time.Now()
	l.updateSnapshot(ctx, groupID, func(snap *cache.Snapshot) {
		snap.ApplyExpenseCreate(e)
	})
	if err := l.enqueue(ctx, groupID, token, models.ActionCreateExpense, models.ExpensePayload{
		LocalID:      e.ID,
		Description:  e.Description,
		Amount:       e.Amount,
		PaidBy:       e.PaidBy,
		Kind:         e.Kind,
		SplitBetween: e.SplitBetween,
		TransferTo:   e.TransferTo,
		Date:         e.Date,
	}); err != nil {
		return nil, err
	}
	slog.Info("expense queued for sync", "group_id", groupID, "local_id", e.ID)
	return &e, nil
}

// UpdateExpense replaces an expense by id. Records still waiting for their
// server id cannot be updated.
func (l *Ledger) UpdateExpense(ctx context.Context, token string, e models.Expense) (*models.Expense, error) {
	groupID, err := api.GroupIDFromToken(token)
	if err != nil {
		return nil, err
	}
	if models.IsLocalID(e.ID) {
		return nil, ErrPendingRecord
	}
	e.GroupID = groupID
	if err := e.Validate(); err != nil {
		return nil, err
	}

	updated, err := l.remote.UpdateExpense(ctx, token, e)
	if err == nil {
		l.updateSnapshot(ctx, groupID, func(snap *cache.Snapshot) {
			snap.ApplyExpenseUpdate(*updated)
		})
		return updated, nil
	}
	if !errors.Is(err, api.ErrUnavailable) {
		slog.Error("UpdateExpense rejected", "group_id", groupID, "expense_id", e.ID, "error", err)
		return nil, err
	}

	l.updateSnapshot(ctx, groupID, func(snap *cache.Snapshot) {
		snap.ApplyExpenseUpdate(e)
	})
	if err := l.enqueue(ctx, groupID, token, models.ActionUpdateExpense, models.ExpensePayload{
		ExpenseID:    e.ID,
		Description:  e.Description,
		Amount:       e.Amount,
		PaidBy:       e.PaidBy,
		Kind:         e.Kind,
		SplitBetween: e.SplitBetween,
		TransferTo:   e.TransferTo,
		Date:         e.Date,
	}); err != nil {
		return nil, err
	}
	slog.Info("expense update queued for sync", "group_id", groupID, "expense_id", e.ID)
	return &e, nil
}

// DeleteExpense removes an expense by id. Records still waiting for their
// server id cannot be deleted.
func (l *Ledger) DeleteExpense(ctx context.Context, token, expenseID string) error {
	groupID, err := api.GroupIDFromToken(token)
	if err != nil {
		return err
	}
	if models.IsLocalID(expenseID) {
		return ErrPendingRecord
	}

	err = l.remote.DeleteExpense(ctx, token, expenseID)
	if err == nil {
		l.updateSnapshot(ctx, groupID, func(snap *cache.Snapshot) {
			snap.ApplyExpenseDelete(expenseID)
		})
		return nil
	}
	if !errors.Is(err, api.ErrUnavailable) {
		slog.Error("DeleteExpense rejected", "group_id", groupID, "expense_id", expenseID, "error", err)
		return err
	}

	l.updateSnapshot(ctx, groupID, func(snap *cache.Snapshot) {
		snap.ApplyExpenseDelete(expenseID)
	})
	if err := l.enqueue(ctx, groupID, token, models.ActionDeleteExpense, models.DeleteExpensePayload{
		ExpenseID: expenseID,
	}); err != nil {
		return err
	}
	slog.Info("expense delete queued for sync", "group_id", groupID, "expense_id", expenseID)
	return nil
}

// AddMember adds a member by name and returns the updated group, projected
// locally with a temporary member id when offline.
func (l *Ledger) AddMember(ctx context.Context, token, name string) (*models.Group, error) {
	groupID, err := api.GroupIDFromToken(token)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("member name must not be empty")
	}

	group, err := l.remote.AddMember(ctx, token, name)
	if err == nil {
		l.updateSnapshot(ctx, groupID, func(snap *cache.Snapshot) {
			snap.Group = *group
		})
		slog.Info("member added", "group_id", groupID, "name", name)
		return group, nil
	}
	if !errors.Is(err, api.ErrUnavailable) {
		slog.Error("AddMember rejected", "group_id", groupID, "error", err)
		return nil, err
	}

	member := models.Member{ID: models.NewLocalID(), Name: name}
	projected := models.Group{ID: groupID, Members: []models.Member{member}}
	if snap := l.updateSnapshot(ctx, groupID, func(snap *cache.Snapshot) {
		snap.ApplyMemberAdd(member)
	}); snap != nil {
		projected = snap.Group
	}
	if err := l.enqueue(ctx, groupID, token, models.ActionAddMember, models.AddMemberPayload{
		Name:    name,
		LocalID: member.ID,
	}); err != nil {
		return nil, err
	}
	slog.Info("member add queued for sync", "group_id", groupID, "local_id", member.ID)
	return &projected, nil
}

// UpdatePayment sets a member's payment details. Members that only exist
// locally cannot carry payment details yet.
func (l *Ledger) UpdatePayment(ctx context.Context, token, memberID, paypalEmail, iban string) (*models.Member, error) {
	groupID, err := api.GroupIDFromToken(token)
	if err != nil {
		return nil, err
	}
	if models.IsLocalID(memberID) {
		return nil, ErrPendingRecord
	}

	member, err := l.remote.UpdatePayment(ctx, token, memberID, paypalEmail, iban)
	if err == nil {
		l.updateSnapshot(ctx, groupID, func(snap *cache.Snapshot) {
			snap.ApplyPaymentUpdate(memberID, member.PayPalEmail, member.IBAN)
		})
		return member, nil
	}
	if !errors.Is(err, api.ErrUnavailable) {
		slog.Error("UpdatePayment rejected", "group_id", groupID, "member_id", memberID, "error", err)
		return nil, err
	}

	projected := models.Member{ID: memberID, PayPalEmail: paypalEmail, IBAN: iban}
	if snap := l.updateSnapshot(ctx, groupID, func(snap *cache.Snapshot) {
		snap.ApplyPaymentUpdate(memberID, paypalEmail, iban)
	}); snap != nil {
		if m, ok := snap.Group.Member(memberID); ok {
			projected = m
		}
	}
	if err := l.enqueue(ctx, groupID, token, models.ActionUpdatePayment, models.UpdatePaymentPayload{
		MemberID:    memberID,
		PayPalEmail: paypalEmail,
		IBAN:        iban,
	}); err != nil {
		return nil, err
	}
	slog.Info("payment update queued for sync", "group_id", groupID, "member_id", memberID)
	return &projected, nil
}

// SettlementPlan derives the minimal transfer list from current balances.
// The plan is recomputed on every call and never stored.
func (l *Ledger) SettlementPlan(ctx context.Context, token string) ([]models.Settlement, error) {
	balances, err := l.Balances(ctx, token)
	if err != nil {
		return nil, err
	}
	return planner.Plan(balances), nil
}

// enqueue marshals and appends one mutation, counting it in metrics.
func (l *Ledger) enqueue(ctx context.Context, groupID, token string, kind models.ActionKind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	m := &models.Mutation{
		GroupID:   groupID,
		AuthToken: token,
		Kind:      kind,
		Payload:   data,
	}
	if err := l.queue.Enqueue(ctx, m); err != nil {
		return fmt.Errorf("failed to queue %s: %w", kind, err)
	}
	recordQueuedWrite(string(kind))
	return nil
}

// updateSnapshot applies mutate to the cached snapshot of groupID, creating
// an empty snapshot when none exists, and returns the mutated snapshot.
// Cache failures are logged, not propagated: a stale snapshot only degrades
// offline reads. Returns nil when the existing snapshot could not be read.
func (l *Ledger) updateSnapshot(ctx context.Context, groupID string, mutate func(*cache.Snapshot)) *cache.Snapshot {
	snap, err := l.cache.Get(ctx, groupID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		snap = &cache.Snapshot{}
	case err != nil:
		slog.Warn("failed to load snapshot", "group_id", groupID, "error", err)
		return nil
	}

	mutate(snap)
	if snap.Group.ID == "" {
		snap.Group.ID = groupID
	}
	snap.FetchedAt = time.Now()
	if err := l.cache.Put(ctx, snap); err != nil {
		slog.Warn("failed to store snapshot", "group_id", groupID, "error", err)
	}
	return snap
}
