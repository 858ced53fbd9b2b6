// Package sqlite provides a SQLite-backed implementation of the storage.KV
// interface using a pure Go driver (no CGO).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/splitsync/internal/storage"
)

// Ensure Store implements storage.KV
var _ storage.KV = (*Store)(nil)

// Store implements storage.KV on a single kv table.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path. It creates the parent
// directories and runs migrations automatically.
func New(dbPath string) (*Store, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL keeps concurrent readers from blocking queue appends
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under (bucket, key).
func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv WHERE bucket = ? AND key = ?",
		bucket, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get value: %w", err)
	}
	return value, nil
}

// Put stores value under (bucket, key), overwriting unconditionally.
func (s *Store) Put(ctx context.Context, bucket, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (bucket, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(bucket, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		bucket, key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to put value: %w", err)
	}
	return nil
}

// Delete removes (bucket, key).
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM kv WHERE bucket = ? AND key = ?",
		bucket, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete value: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List returns all entries in bucket in ascending key order.
func (s *Store) List(ctx context.Context, bucket string) ([]storage.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM kv WHERE bucket = ? ORDER BY key",
		bucket,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket: %w", err)
	}
	defer rows.Close()

	var entries []storage.Entry
	for rows.Next() {
		var e storage.Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bucket: %w", err)
	}
	return entries, nil
}
