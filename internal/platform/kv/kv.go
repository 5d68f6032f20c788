// Copyright (c) 2026 Howkings. All rights reserved.

/*
Package kv provides the durable key-value storage the client persists its
state into: credentials, cookie consent, and saved form drafts.

It plays the role the browser's localStorage plays for the web client, so the
contract is deliberately small: string keys, string values, idempotent
deletes.

Backends:

  - Memory: volatile, used by tests and as a last-resort fallback.
  - File: a JSON document under the user config directory (CLI default).
  - SQLite: a single-table WAL database for installations that want history-
    friendly durability.
  - Redis: for headless or server-side deployments that share one session.

All writes to credential keys go through the auth layer; nothing else in the
system touches tokens directly.
*/
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by [Store.Get] when the key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is the minimal key-value contract the client persists state through.
//
// # Concurrency
//
// Implementations must be safe for concurrent use. The client tolerates
// eventually-consistent reads within a single operation, so no transactional
// guarantees are required.
type Store interface {
	// Get returns the value for key.
	//
	// Returns [ErrNotFound] if the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Set writes the value for key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}
