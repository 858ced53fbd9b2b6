package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/storage/memory"
)

func testMutation(kind models.ActionKind) *models.Mutation {
	payload, _ := json.Marshal(models.ExpensePayload{
		Description: "Groceries",
		Amount:      1250,
		PaidBy:      "m1",
		Kind:        models.KindExpense,
	})
	return &models.Mutation{
		GroupID:   "g1",
		AuthToken: "token",
		Kind:      kind,
		Payload:   payload,
	}
}

func TestQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("Enqueue assigns monotonic ids and timestamps", func(t *testing.T) {
		store := memory.New()
		q, err := New(ctx, store)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		first := testMutation(models.ActionCreateExpense)
		second := testMutation(models.ActionUpdateExpense)
		if err := q.Enqueue(ctx, first); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		if err := q.Enqueue(ctx, second); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}

		if first.ID == 0 {
			t.Error("Expected first mutation to get a non-zero id")
		}
		if second.ID <= first.ID {
			t.Errorf("Expected monotonic ids, got %d then %d", first.ID, second.ID)
		}
		if first.Timestamp == 0 {
			t.Error("Expected timestamp to be stamped on enqueue")
		}
	})

	t.Run("Pending returns mutations in insertion order", func(t *testing.T) {
		store := memory.New()
		q, err := New(ctx, store)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		kinds := []models.ActionKind{
			models.ActionCreateExpense,
			models.ActionAddMember,
			models.ActionDeleteExpense,
		}
		for _, k := range kinds {
			if err := q.Enqueue(ctx, testMutation(k)); err != nil {
				t.Fatalf("Enqueue failed: %v", err)
			}
		}

		pending, err := q.Pending(ctx)
		if err != nil {
			t.Fatalf("Pending failed: %v", err)
		}
		if len(pending) != 3 {
			t.Fatalf("Expected 3 pending mutations, got %d", len(pending))
		}
		for i, m := range pending {
			if m.Kind != kinds[i] {
				t.Errorf("Position %d: got kind %s, want %s", i, m.Kind, kinds[i])
			}
			if i > 0 && pending[i].ID <= pending[i-1].ID {
				t.Errorf("Ids out of order: %d after %d", pending[i].ID, pending[i-1].ID)
			}
		}
	})

	t.Run("Remove deletes a confirmed mutation", func(t *testing.T) {
		store := memory.New()
		q, err := New(ctx, store)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		m := testMutation(models.ActionCreateExpense)
		if err := q.Enqueue(ctx, m); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		if err := q.Remove(ctx, m.ID); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}

		n, err := q.Len(ctx)
		if err != nil {
			t.Fatalf("Len failed: %v", err)
		}
		if n != 0 {
			t.Errorf("Expected empty queue after remove, got %d", n)
		}
	})

	t.Run("Enqueue rejects unknown action kinds", func(t *testing.T) {
		store := memory.New()
		q, err := New(ctx, store)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		m := testMutation("renameGroup")
		if err := q.Enqueue(ctx, m); err == nil {
			t.Error("Expected error for unknown action kind, got nil")
		}
	})

	t.Run("Id counter resumes after reopening", func(t *testing.T) {
		store := memory.New()
		q, err := New(ctx, store)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		m := testMutation(models.ActionCreateExpense)
		if err := q.Enqueue(ctx, m); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}

		reopened, err := New(ctx, store)
		if err != nil {
			t.Fatalf("Reopen failed: %v", err)
		}
		next := testMutation(models.ActionUpdatePayment)
		if err := reopened.Enqueue(ctx, next); err != nil {
			t.Fatalf("Enqueue after reopen failed: %v", err)
		}
		if next.ID <= m.ID {
			t.Errorf("Expected id to continue past %d, got %d", m.ID, next.ID)
		}
	})
}
