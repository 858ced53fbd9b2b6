// Package queue persists mutations that could not be delivered to the
// server. Entries are append-only and replayed in insertion order; an entry
// leaves the queue only after the server has confirmed it.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/storage"
)

// Queue is a durable FIFO of pending mutations backed by a storage.KV.
//
// Ordering relies on two facts: ids are assigned from a monotonic counter,
// and keys are the ids zero-padded to a fixed width so that the store's
// ascending key order equals insertion order.
type Queue struct {
	store  storage.KV
	lastID atomic.Uint64
}

// New opens the queue over store. The id counter resumes from the highest
// id already persisted, so ids stay monotonic across restarts.
func New(ctx context.Context, store storage.KV) (*Queue, error) {
	q := &Queue{store: store}

	entries, err := store.List(ctx, storage.BucketQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to scan queue: %w", err)
	}
	if len(entries) > 0 {
		var last uint64
		if _, err := fmt.Sscanf(entries[len(entries)-1].Key, "%016d", &last); err != nil {
			return nil, fmt.Errorf("failed to parse queue key %q: %w", entries[len(entries)-1].Key, err)
		}
		q.lastID.Store(last)
	}
	return q, nil
}

func keyFor(id uint64) string {
	return fmt.Sprintf("%016d", id)
}

// Enqueue assigns the next id to m, stamps it if the caller left the
// timestamp zero, and persists it. The entry is immutable once stored.
func (q *Queue) Enqueue(ctx context.Context, m *models.Mutation) error {
	if !m.Kind.Valid() {
		return fmt.Errorf("invalid action kind %q", m.Kind)
	}
	if m.GroupID == "" {
		return fmt.Errorf("mutation missing group id")
	}

	m.ID = q.lastID.Add(1)
	if m.Timestamp == 0 {
		m.Timestamp = time.Now().Unix()
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode mutation: %w", err)
	}
	if err := q.store.Put(ctx, storage.BucketQueue, keyFor(m.ID), data); err != nil {
		return fmt.Errorf("failed to enqueue mutation %d: %w", m.ID, err)
	}
	return nil
}

// Pending returns all queued mutations in insertion order.
func (q *Queue) Pending(ctx context.Context) ([]models.Mutation, error) {
	entries, err := q.store.List(ctx, storage.BucketQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}

	mutations := make([]models.Mutation, 0, len(entries))
	for _, e := range entries {
		var m models.Mutation
		if err := json.Unmarshal(e.Value, &m); err != nil {
			return nil, fmt.Errorf("failed to decode queued mutation %s: %w", e.Key, err)
		}
		mutations = append(mutations, m)
	}
	return mutations, nil
}

// Len reports how many mutations are waiting for replay.
func (q *Queue) Len(ctx context.Context) (int, error) {
	entries, err := q.store.List(ctx, storage.BucketQueue)
	if err != nil {
		return 0, fmt.Errorf("failed to list queue: %w", err)
	}
	return len(entries), nil
}

// Remove deletes the mutation with the given id. Callers must only do this
// after the server has acknowledged the replayed mutation.
func (q *Queue) Remove(ctx context.Context, id uint64) error {
	if err := q.store.Delete(ctx, storage.BucketQueue, keyFor(id)); err != nil {
		return fmt.Errorf("failed to remove mutation %d: %w", id, err)
	}
	return nil
}
