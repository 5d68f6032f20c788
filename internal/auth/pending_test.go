// Copyright (c) 2026 Howkings. All rights reserved.

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/howkings/howkings-go/internal/auth"
)

/*
TestQueue_SingleSlot keeps only the most recent action and reports the drop.
*/
func TestQueue_SingleSlot(t *testing.T) {
	queue := auth.NewQueue()

	displaced := queue.Defer(auth.PendingAction{Type: auth.ActionVote, ModuleRequestID: 1, Language: "en"})
	assert.Nil(t, displaced)

	displaced = queue.Defer(auth.PendingAction{Type: auth.ActionVote, ModuleRequestID: 2, Language: "lt"})
	require.NotNil(t, displaced)
	assert.Equal(t, int64(1), displaced.ModuleRequestID)

	stored := queue.Peek()
	require.NotNil(t, stored)
	assert.Equal(t, int64(2), stored.ModuleRequestID)
}

/*
TestQueue_TakeClearsBeforeDispatch guarantees at-most-once replay.
*/
func TestQueue_TakeClearsBeforeDispatch(t *testing.T) {
	queue := auth.NewQueue()
	queue.Defer(auth.PendingAction{Type: auth.ActionCreateRequest, Request: &auth.ModuleRequestInput{ModuleName: "Quantum Computing"}})

	taken := queue.Take()
	require.NotNil(t, taken)
	assert.Equal(t, auth.ActionCreateRequest, taken.Type)

	// Even if the dispatch of `taken` fails, nothing remains to replay.
	assert.Nil(t, queue.Take())
	assert.Nil(t, queue.Peek())
}

/*
TestQueue_EmptyTake returns nil without side effects.
*/
func TestQueue_EmptyTake(t *testing.T) {
	queue := auth.NewQueue()
	assert.Nil(t, queue.Take())
}
