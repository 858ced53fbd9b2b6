// Package badger implements storage.KV on top of BadgerDB. It is the
// embedded alternative to the SQLite backend for hosts that prefer a pure
// LSM store; both speak the same bucket/key contract.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/mmynk/splitsync/internal/storage"
)

// Config controls how the Badger store is opened.
type Config struct {
	// Path is the directory for database files. Required unless InMemory.
	Path string

	// InMemory opens a non-persistent database, mainly for tests.
	InMemory bool

	// SyncWrites forces fsync on every write. The mutation queue depends on
	// queued entries surviving a crash, so this defaults to true.
	SyncWrites bool

	// Logger receives Badger's internal messages. Nil silences them.
	Logger *slog.Logger
}

// DefaultConfig returns a durable on-disk configuration rooted at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
	}
}

// InMemoryConfig returns a volatile configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store is a storage.KV backed by BadgerDB. Buckets are encoded as key
// prefixes, so List is a prefix scan and inherits Badger's byte-ordered
// iteration.
type Store struct {
	db *badger.DB
}

var _ storage.KV = (*Store)(nil)

// New opens (or creates) a Badger store with the given configuration.
func New(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// keyFor flattens (bucket, key) into a single Badger key. The separator
// cannot appear in bucket names, which are fixed constants.
func keyFor(bucket, key string) []byte {
	return []byte(bucket + "/" + key)
}

func bucketPrefix(bucket string) []byte {
	return []byte(bucket + "/")
}

// Get returns the value stored under (bucket, key).
func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyFor(bucket, key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", bucket, key, err)
	}
	return value, nil
}

// Put stores value under (bucket, key), overwriting any existing value.
func (s *Store) Put(ctx context.Context, bucket, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyFor(bucket, key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Delete removes (bucket, key). Badger's Delete is a no-op on absent keys,
// so existence is checked inside the same transaction to honor the
// ErrNotFound contract.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		k := keyFor(bucket, key)
		if _, err := txn.Get(k); err != nil {
			return err
		}
		return txn.Delete(k)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", bucket, key, err)
	}
	return nil
}

// List returns every entry in bucket in ascending key order.
func (s *Store) List(ctx context.Context, bucket string) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := bucketPrefix(bucket)
	var entries []storage.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			entries = append(entries, storage.Entry{
				Key:   string(item.Key()[len(prefix):]),
				Value: value,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket %s: %w", bucket, err)
	}
	return entries, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger adapts Badger's logger interface to slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
