// Package storage provides the durable key/value substrate behind the local
// cache and the mutation queue.
package storage

import (
	"context"
	"errors"
)

// Bucket names used by the client core.
const (
	// BucketCache holds per-group snapshots keyed by group id.
	BucketCache = "cache"
	// BucketQueue holds queued mutations keyed by zero-padded sequence number.
	BucketQueue = "queue"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

// Entry is one stored key/value pair.
type Entry struct {
	Key   string
	Value []byte
}

// KV is the injected persistence substrate. This abstraction allows swapping
// storage backends (SQLite, Badger, in-memory) without changing the cache,
// queue, or sync layers, and lets tests run against an in-memory fake.
//
// Implementations must be safe for concurrent use. List must return entries in
// ascending key order; the mutation queue relies on this for replay order.
type KV interface {
	// Get returns the value stored under (bucket, key), or ErrNotFound.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Put stores value under (bucket, key), overwriting unconditionally.
	Put(ctx context.Context, bucket, key string, value []byte) error

	// Delete removes (bucket, key). Returns ErrNotFound if the key is absent.
	Delete(ctx context.Context, bucket, key string) error

	// List returns every entry in bucket in ascending key order.
	List(ctx context.Context, bucket string) ([]Entry, error)

	// Close releases any resources held by the store.
	Close() error
}
