// Package cache stores the last known server state per group so reads keep
// working offline. Snapshots are last-writer-wins and never expire; a newer
// fetch simply overwrites the previous one.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mmynk/splitsync/internal/models"
	"github.com/mmynk/splitsync/internal/storage"
)

// Snapshot is the cached view of one group: the group itself, its expense
// list, and the balance list as last confirmed by the server (possibly with
// optimistic local mutations projected on top).
type Snapshot struct {
	Group     models.Group     `json:"group"`
	Expenses  []models.Expense `json:"expenses"`
	Balances  []models.Balance `json:"balances"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// Cache persists snapshots in the cache bucket of a storage.KV, keyed by
// group id.
type Cache struct {
	store storage.KV
}

// New returns a cache over store.
func New(store storage.KV) *Cache {
	return &Cache{store: store}
}

// Get returns the stored snapshot for groupID, or storage.ErrNotFound if the
// group has never been cached.
func (c *Cache) Get(ctx context.Context, groupID string) (*Snapshot, error) {
	data, err := c.store.Get(ctx, storage.BucketCache, groupID)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for group %s: %w", groupID, err)
	}
	return &snap, nil
}

// Put stores snap under its group id, overwriting any previous snapshot.
func (c *Cache) Put(ctx context.Context, snap *Snapshot) error {
	if snap.Group.ID == "" {
		return fmt.Errorf("snapshot missing group id")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for group %s: %w", snap.Group.ID, err)
	}
	if err := c.store.Put(ctx, storage.BucketCache, snap.Group.ID, data); err != nil {
		return fmt.Errorf("failed to store snapshot for group %s: %w", snap.Group.ID, err)
	}
	return nil
}

// Delete removes the snapshot for groupID.
func (c *Cache) Delete(ctx context.Context, groupID string) error {
	return c.store.Delete(ctx, storage.BucketCache, groupID)
}

// GroupIDs returns the ids of all cached groups in ascending order.
func (c *Cache) GroupIDs(ctx context.Context) ([]string, error) {
	entries, err := c.store.List(ctx, storage.BucketCache)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached groups: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Key)
	}
	return ids, nil
}
