// Copyright (c) 2026 Howkings. All rights reserved.

package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);`

// SQLiteStore is a [Store] backed by a single-table SQLite database.
//
// # Why SQLite?
//
// The cgo-free modernc driver gives the CLI durable storage without any
// external service, and WAL mode keeps concurrent readers cheap when several
// client processes share one profile directory.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dsn and ensures the schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("kv: open sqlite: %w", err)
	}

	// Enable WAL mode for concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: set WAL mode: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kv: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get returns the value for key, or [ErrNotFound].
func (store *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := store.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv: sqlite get: %w", err)
	}

	return value, nil
}

// Set upserts the value for key.
func (store *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := store.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("kv: sqlite set: %w", err)
	}
	return nil
}

// Delete removes the key. Absent keys are ignored.
func (store *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := store.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv: sqlite delete: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (store *SQLiteStore) Close() error {
	return store.db.Close()
}
