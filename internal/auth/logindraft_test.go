// Copyright (c) 2026 Howkings. All rights reserved.

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/howkings/howkings-go/internal/auth"
	"github.com/howkings/howkings-go/internal/platform/constants"
	"github.com/howkings/howkings-go/internal/platform/kv"
)

/*
TestLoginDraft_RoundTrip remembers the email across instances and never
stores anything else.
*/
func TestLoginDraft_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	auth.NewLoginDraft(store, discardLogger()).Save(ctx, "jonas@example.com")

	resumed := auth.NewLoginDraft(store, discardLogger())
	assert.Equal(t, "jonas@example.com", resumed.Load(ctx))

	raw, err := store.Get(ctx, constants.StorageKeyLoginDraft)
	require.NoError(t, err)
	assert.NotContains(t, raw, "password")
}

/*
TestLoginDraft_MissingOrCorrupt degrades to an empty form.
*/
func TestLoginDraft_MissingOrCorrupt(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	draft := auth.NewLoginDraft(store, discardLogger())

	assert.Empty(t, draft.Load(ctx))

	require.NoError(t, store.Set(ctx, constants.StorageKeyLoginDraft, "{not json"))
	assert.Empty(t, draft.Load(ctx))
}

/*
TestLoginDraft_Clear removes the stored email.
*/
func TestLoginDraft_Clear(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	draft := auth.NewLoginDraft(store, discardLogger())

	draft.Save(ctx, "jonas@example.com")
	draft.Clear(ctx)
	assert.Empty(t, draft.Load(ctx))
}
