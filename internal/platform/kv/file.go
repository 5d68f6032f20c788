// Copyright (c) 2026 Howkings. All rights reserved.

package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is a [Store] persisted as a single JSON document on disk.
//
// # Durability
//
// Every write rewrites the whole document atomically (temp file + rename),
// which is fine for the handful of small entries the client keeps. The
// document is loaded once at construction; the in-memory map is the source
// of truth afterwards.
type FileStore struct {
	mu      sync.Mutex
	path    string
	entries map[string]string
}

// NewFileStore opens (or creates) the JSON store at path.
//
// Parent directories are created as needed. A corrupt document is treated as
// empty rather than failing startup: losing saved drafts is preferable to a
// client that cannot start.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("kv: create store directory: %w", err)
	}

	store := &FileStore{
		path:    path,
		entries: make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: start empty.
	case err != nil:
		return nil, fmt.Errorf("kv: read store file: %w", err)
	default:
		if jsonErr := json.Unmarshal(raw, &store.entries); jsonErr != nil {
			store.entries = make(map[string]string)
		}
	}

	return store, nil
}

// Get returns the value for key, or [ErrNotFound].
func (store *FileStore) Get(_ context.Context, key string) (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	value, ok := store.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set writes the value for key and flushes the document to disk.
func (store *FileStore) Set(_ context.Context, key, value string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.entries[key] = value
	return store.flushLocked()
}

// Delete removes the key and flushes the document to disk.
func (store *FileStore) Delete(_ context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, ok := store.entries[key]; !ok {
		return nil
	}

	delete(store.entries, key)
	return store.flushLocked()
}

// Close flushes any pending state. The store stays usable afterwards.
func (store *FileStore) Close() error {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.flushLocked()
}

// flushLocked writes the document atomically. Caller must hold the mutex.
func (store *FileStore) flushLocked() error {
	raw, err := json.MarshalIndent(store.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("kv: marshal store: %w", err)
	}

	tmp := store.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("kv: write store file: %w", err)
	}

	if err := os.Rename(tmp, store.path); err != nil {
		return fmt.Errorf("kv: replace store file: %w", err)
	}

	return nil
}
