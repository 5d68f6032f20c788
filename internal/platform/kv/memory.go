// Copyright (c) 2026 Howkings. All rights reserved.

package kv

import (
	"context"
	"sync"
)

// MemoryStore is a volatile in-memory [Store].
//
// # Usage
//
// It backs unit tests and acts as the fallback when no durable backend is
// configured. Everything is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

// Get returns the value for key, or [ErrNotFound].
func (store *MemoryStore) Get(_ context.Context, key string) (string, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	value, ok := store.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set writes the value for key.
func (store *MemoryStore) Set(_ context.Context, key, value string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.entries[key] = value
	return nil
}

// Delete removes the key. Absent keys are ignored.
func (store *MemoryStore) Delete(_ context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.entries, key)
	return nil
}

// Close is a no-op for the in-memory backend.
func (store *MemoryStore) Close() error { return nil }
