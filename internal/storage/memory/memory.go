// Package memory provides an in-memory implementation of storage.KV for tests
// and explicitly ephemeral use. Contents do not survive process restarts.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mmynk/splitsync/internal/storage"
)

// Ensure Store implements storage.KV
var _ storage.KV = (*Store)(nil)

// Store implements storage.KV with plain maps guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{buckets: make(map[string]map[string][]byte)}
}

// Get returns a copy of the value stored under (bucket, key).
func (s *Store) Get(_ context.Context, bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.buckets[bucket][key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Put stores a copy of value under (bucket, key).
func (s *Store) Put(_ context.Context, bucket, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string][]byte)
		s.buckets[bucket] = b
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	b[key] = stored
	return nil
}

// Delete removes (bucket, key).
func (s *Store) Delete(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buckets[bucket][key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.buckets[bucket], key)
	return nil
}

// List returns all entries in bucket in ascending key order.
func (s *Store) List(_ context.Context, bucket string) ([]storage.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := s.buckets[bucket]
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]storage.Entry, 0, len(keys))
	for _, k := range keys {
		value := make([]byte, len(b[k]))
		copy(value, b[k])
		entries = append(entries, storage.Entry{Key: k, Value: value})
	}
	return entries, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
