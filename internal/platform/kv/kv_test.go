// Copyright (c) 2026 Howkings. All rights reserved.

package kv_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/howkings/howkings-go/internal/platform/kv"
)

// openers lists the backends that can run without external services.
func openers(t *testing.T) map[string]func(t *testing.T) kv.Store {
	return map[string]func(t *testing.T) kv.Store{
		"memory": func(t *testing.T) kv.Store {
			return kv.NewMemoryStore()
		},
		"file": func(t *testing.T) kv.Store {
			store, err := kv.NewFileStore(filepath.Join(t.TempDir(), "store.json"))
			require.NoError(t, err)
			return store
		},
		"sqlite": func(t *testing.T) kv.Store {
			store, err := kv.NewSQLiteStore(filepath.Join(t.TempDir(), "store.db"))
			require.NoError(t, err)
			return store
		},
	}
}

/*
TestStore_Contract runs the shared Store contract against every local backend.
*/
func TestStore_Contract(t *testing.T) {
	for name, open := range openers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := open(t)
			defer store.Close()

			// Missing key.
			_, err := store.Get(ctx, "absent")
			assert.ErrorIs(t, err, kv.ErrNotFound)

			// Round trip.
			require.NoError(t, store.Set(ctx, "user", `{"id":1}`))
			value, err := store.Get(ctx, "user")
			require.NoError(t, err)
			assert.Equal(t, `{"id":1}`, value)

			// Overwrite.
			require.NoError(t, store.Set(ctx, "user", `{"id":2}`))
			value, err = store.Get(ctx, "user")
			require.NoError(t, err)
			assert.Equal(t, `{"id":2}`, value)

			// Delete is idempotent.
			require.NoError(t, store.Delete(ctx, "user"))
			require.NoError(t, store.Delete(ctx, "user"))
			_, err = store.Get(ctx, "user")
			assert.ErrorIs(t, err, kv.ErrNotFound)
		})
	}
}

/*
TestFileStore_Reopen confirms entries survive a close and reopen.
*/
func TestFileStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	first, err := kv.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "access_token", "abc"))
	require.NoError(t, first.Close())

	second, err := kv.NewFileStore(path)
	require.NoError(t, err)
	defer second.Close()

	value, err := second.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.Equal(t, "abc", value)
}

/*
TestFileStore_CorruptDocument starts empty instead of failing.
*/
func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := kv.NewFileStore(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(context.Background(), "anything")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}
