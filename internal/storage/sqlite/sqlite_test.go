package sqlite

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmynk/splitsync/internal/storage"
)

func TestSQLiteStore(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "splitsync-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	t.Run("Put then Get round-trips", func(t *testing.T) {
		value := []byte(`{"group_id":"g1"}`)
		if err := store.Put(ctx, storage.BucketCache, "g1", value); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, err := store.Get(ctx, storage.BucketCache, "g1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, value) {
			t.Errorf("Get mismatch: got %s, want %s", got, value)
		}
	})

	t.Run("Put overwrites existing value", func(t *testing.T) {
		if err := store.Put(ctx, storage.BucketCache, "g2", []byte("old")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := store.Put(ctx, storage.BucketCache, "g2", []byte("new")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, err := store.Get(ctx, storage.BucketCache, "g2")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "new" {
			t.Errorf("Expected overwritten value, got %s", got)
		}
	})

	t.Run("Get returns ErrNotFound for missing key", func(t *testing.T) {
		_, err := store.Get(ctx, storage.BucketCache, "missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete removes key", func(t *testing.T) {
		if err := store.Put(ctx, storage.BucketQueue, "0000000000000001", []byte("m1")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := store.Delete(ctx, storage.BucketQueue, "0000000000000001"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		_, err := store.Get(ctx, storage.BucketQueue, "0000000000000001")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("Delete returns ErrNotFound for missing key", func(t *testing.T) {
		err := store.Delete(ctx, storage.BucketQueue, "never-stored")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List returns entries in ascending key order", func(t *testing.T) {
		keys := []string{"0000000000000003", "0000000000000001", "0000000000000002"}
		for _, k := range keys {
			if err := store.Put(ctx, storage.BucketQueue, k, []byte("v-"+k)); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
		}

		entries, err := store.List(ctx, storage.BucketQueue)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("Expected 3 entries, got %d", len(entries))
		}
		for i := 1; i < len(entries); i++ {
			if entries[i-1].Key >= entries[i].Key {
				t.Errorf("Entries out of order: %s before %s", entries[i-1].Key, entries[i].Key)
			}
		}
	})

	t.Run("Buckets are isolated", func(t *testing.T) {
		if err := store.Put(ctx, storage.BucketCache, "shared", []byte("cache-value")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := store.Put(ctx, storage.BucketQueue, "shared", []byte("queue-value")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, err := store.Get(ctx, storage.BucketCache, "shared")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "cache-value" {
			t.Errorf("Cache bucket value mismatch: got %s", got)
		}
	})
}

func TestSQLiteStorePersistence(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "splitsync-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "test.db")
	ctx := context.Background()

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Put(ctx, storage.BucketCache, "g1", []byte("survives")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, storage.BucketCache, "g1")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != "survives" {
		t.Errorf("Expected value to survive reopen, got %s", got)
	}
}
