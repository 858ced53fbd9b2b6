// Package sync drains the mutation queue against the remote service and
// reconciles the local cache with the server's authoritative state.
//
// The coordinator has two states, idle and syncing. Triggers arriving while
// a pass is running are coalesced into no-ops; replay within a pass is
// strictly sequential and halts at the first failure so that later
// mutations never run ahead of one they may depend on.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mmynk/splitsync/internal/api"
	"github.com/mmynk/splitsync/internal/cache"
	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/queue"
)

// Remote is the slice of the ledger API the coordinator needs. *api.Client
// satisfies it; tests substitute a fake.
type Remote interface {
	CreateExpense(ctx context.Context, token string, e models.Expense) (*models.Expense, error)
	UpdateExpense(ctx context.Context, token string, e models.Expense) (*models.Expense, error)
	DeleteExpense(ctx context.Context, token, expenseID string) error
	AddMember(ctx context.Context, token, name string) (*models.Group, error)
	UpdatePayment(ctx context.Context, token, memberID, paypalEmail, iban string) (*models.Member, error)
	GetGroup(ctx context.Context, token string) (*models.Group, error)
	ListExpenses(ctx context.Context, token string) ([]models.Expense, error)
	GetBalances(ctx context.Context, token string) ([]models.Balance, error)
	Health(ctx context.Context) error
}

// Status is the coordinator state exposed to the presentation layer.
type Status struct {
	Online       bool
	Syncing      bool
	PendingCount int
	SyncVersion  uint64
	// LastRejected is the rejection that halted the most recent pass, nil
	// if the pass completed or halted on an outage instead.
	LastRejected *api.RejectedError
}

// Coordinator owns the replay loop. Safe for concurrent use.
type Coordinator struct {
	remote Remote
	cache  *cache.Cache
	queue  *queue.Queue
	logger *slog.Logger

	syncing      atomic.Bool
	online       atomic.Bool
	syncVersion  atomic.Uint64
	lastRejected atomic.Pointer[api.RejectedError]
}

// New creates a coordinator. A nil logger falls back to slog.Default().
func New(remote Remote, c *cache.Cache, q *queue.Queue, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		remote: remote,
		cache:  c,
		queue:  q,
		logger: logger,
	}
}

// IsOnline reports the last known connectivity state.
func (c *Coordinator) IsOnline() bool {
	return c.online.Load()
}

// SyncVersion returns the reconciliation counter. It increases after every
// pass that confirmed at least one mutation, signalling consumers to
// re-read.
func (c *Coordinator) SyncVersion() uint64 {
	return c.syncVersion.Load()
}

// Status reports the coordinator state plus the current queue depth.
func (c *Coordinator) Status(ctx context.Context) (Status, error) {
	pending, err := c.queue.Len(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Online:       c.online.Load(),
		Syncing:      c.syncing.Load(),
		PendingCount: pending,
		SyncVersion:  c.syncVersion.Load(),
		LastRejected: c.lastRejected.Load(),
	}, nil
}

// SetOnline records a connectivity signal. An offline-to-online transition
// triggers a sync pass on the caller's goroutine; platform callbacks that
// must not block should invoke this from their own goroutine.
func (c *Coordinator) SetOnline(ctx context.Context, online bool) {
	was := c.online.Swap(online)
	if was == online {
		return
	}
	if !online {
		c.logger.Info("connectivity lost; writes will queue locally")
		return
	}
	c.logger.Info("connectivity restored; starting sync")
	if err := c.TriggerSync(ctx); err != nil {
		c.logger.Warn("sync after reconnect failed", "error", err)
	}
}

// TriggerSync runs one replay pass. If a pass is already running the call
// is coalesced and returns nil immediately. The returned error is the
// failure that halted the pass, nil when every pending mutation was
// confirmed.
func (c *Coordinator) TriggerSync(ctx context.Context) error {
	if !c.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer c.syncing.Store(false)
	return c.runPass(ctx)
}

// touchedGroup records one group whose mutations were confirmed, with the
// token to re-fetch it under.
type touchedGroup struct {
	groupID string
	token   string
}

func (c *Coordinator) runPass(ctx context.Context) error {
	start := time.Now()
	c.lastRejected.Store(nil)

	pending, err := c.queue.Pending(ctx)
	if err != nil {
		recordSyncRun("error", time.Since(start))
		return fmt.Errorf("failed to read pending mutations: %w", err)
	}
	setPendingMutations(len(pending))
	if len(pending) == 0 {
		recordSyncRun("success", time.Since(start))
		return nil
	}

	c.logger.Info("sync pass started", "pending", len(pending))

	var (
		touched   []touchedGroup
		touchedAt = make(map[string]int)
		halted    error
		confirmed int
	)
	for _, m := range pending {
		if err := c.replay(ctx, m); err != nil {
			halted = fmt.Errorf("replay of mutation %d (%s) halted: %w", m.ID, m.Kind, err)
			c.noteReplayFailure(m, err)
			break
		}
		recordReplay(string(m.Kind), "ok")
		if err := c.queue.Remove(ctx, m.ID); err != nil {
			// The write reached the server but the queue entry survived;
			// the next pass will replay it again. Halting keeps the
			// failure visible instead of double-applying the tail.
			halted = fmt.Errorf("failed to remove confirmed mutation %d: %w", m.ID, err)
			break
		}
		confirmed++
		if _, seen := touchedAt[m.GroupID]; !seen {
			touchedAt[m.GroupID] = len(touched)
			touched = append(touched, touchedGroup{groupID: m.GroupID, token: m.AuthToken})
		} else {
			touched[touchedAt[m.GroupID]].token = m.AuthToken
		}
	}

	for _, t := range touched {
		if err := c.reconcile(ctx, t.groupID, t.token); err != nil {
			reconcileFailures.Inc()
			c.logger.Warn("failed to reconcile group after replay",
				"group_id", t.groupID,
				"error", err,
			)
		}
	}
	if len(touched) > 0 {
		c.syncVersion.Add(1)
	}

	if n, err := c.queue.Len(ctx); err == nil {
		setPendingMutations(n)
	}

	result := "success"
	switch {
	case halted == nil:
	case errors.Is(halted, api.ErrUnavailable):
		result = "unavailable"
	default:
		if _, ok := api.IsRejected(halted); ok {
			result = "rejected"
		} else {
			result = "error"
		}
	}
	recordSyncRun(result, time.Since(start))

	c.logger.Info("sync pass finished",
		"confirmed", confirmed,
		"groups_reconciled", len(touched),
		"result", result,
		"duration", time.Since(start),
	)
	return halted
}

// replay invokes the remote write a queued mutation stands for.
func (c *Coordinator) replay(ctx context.Context, m models.Mutation) error {
	switch m.Kind {
	case models.ActionCreateExpense, models.ActionUpdateExpense:
		var p models.ExpensePayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", m.Kind, err)
		}
		e := models.Expense{
			ID:           p.ExpenseID,
			GroupID:      m.GroupID,
			Description:  p.Description,
			Amount:       p.Amount,
			PaidBy:       p.PaidBy,
			Kind:         p.Kind,
			SplitBetween: p.SplitBetween,
			TransferTo:   p.TransferTo,
			Date:         p.Date,
		}
		var err error
		if m.Kind == models.ActionCreateExpense {
			_, err = c.remote.CreateExpense(ctx, m.AuthToken, e)
		} else {
			_, err = c.remote.UpdateExpense(ctx, m.AuthToken, e)
		}
		return err
	case models.ActionDeleteExpense:
		var p models.DeleteExpensePayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode delete payload: %w", err)
		}
		return c.remote.DeleteExpense(ctx, m.AuthToken, p.ExpenseID)
	case models.ActionAddMember:
		var p models.AddMemberPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode add member payload: %w", err)
		}
		_, err := c.remote.AddMember(ctx, m.AuthToken, p.Name)
		return err
	case models.ActionUpdatePayment:
		var p models.UpdatePaymentPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return fmt.Errorf("failed to decode payment payload: %w", err)
		}
		_, err := c.remote.UpdatePayment(ctx, m.AuthToken, p.MemberID, p.PayPalEmail, p.IBAN)
		return err
	default:
		return fmt.Errorf("unknown action kind %q", m.Kind)
	}
}

// noteReplayFailure classifies a halt for metrics and, for explicit
// rejections, records it so the presentation layer can surface a mutation
// the server will never accept.
func (c *Coordinator) noteReplayFailure(m models.Mutation, err error) {
	switch {
	case errors.Is(err, api.ErrUnavailable):
		recordReplay(string(m.Kind), "unavailable")
		c.logger.Info("service unavailable; mutations stay queued",
			"mutation_id", m.ID,
			"kind", m.Kind,
		)
	default:
		if rejected, ok := api.IsRejected(err); ok {
			recordReplay(string(m.Kind), "rejected")
			c.lastRejected.Store(rejected)
			c.logger.Error("server rejected queued mutation; manual intervention needed",
				"mutation_id", m.ID,
				"kind", m.Kind,
				"status", rejected.Status,
				"message", rejected.Message,
			)
			return
		}
		recordReplay(string(m.Kind), "invalid")
		c.logger.Error("failed to replay mutation",
			"mutation_id", m.ID,
			"kind", m.Kind,
			"error", err,
		)
	}
}

// reconcile overwrites the cached snapshot of one group with the server's
// state. Server-assigned ids replace temporary local ids here.
func (c *Coordinator) reconcile(ctx context.Context, groupID, token string) error {
	group, err := c.remote.GetGroup(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to fetch group: %w", err)
	}
	expenses, err := c.remote.ListExpenses(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to fetch expenses: %w", err)
	}
	balances, err := c.remote.GetBalances(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to fetch balances: %w", err)
	}

	snap := &cache.Snapshot{
		Group:     *group,
		Expenses:  expenses,
		Balances:  balances,
		FetchedAt: time.Now(),
	}
	if err := c.cache.Put(ctx, snap); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	c.logger.Debug("group reconciled", "group_id", groupID)
	return nil
}
