// Copyright (c) 2026 Howkings. All rights reserved.

package auth

import (
	"context"
	"sync"
)

// ActionType is the closed set of deferrable user intents.
type ActionType string

const (
	// ActionVote is a request-pool vote interrupted by an auth failure.
	ActionVote ActionType = "vote"

	// ActionCreateRequest is a module-request submission interrupted by an
	// auth failure.
	ActionCreateRequest ActionType = "create_request"
)

// ModuleRequestInput is the payload of an [ActionCreateRequest] action.
// It lives here (rather than in the request-pool package) so the pending
// queue's payload types form a closed, dependency-free set.
type ModuleRequestInput struct {
	ModuleName  string   `json:"module_name"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	Tags        []string `json:"tags"`
}

// PendingAction is a deferred user intent captured when an operation failed
// for lack of authentication.
type PendingAction struct {
	Type ActionType

	// ModuleRequestID and Language are set for ActionVote.
	ModuleRequestID int64
	Language        string

	// Request is set for ActionCreateRequest.
	Request *ModuleRequestInput

	// OnComplete runs after the action replays successfully.
	OnComplete func()
}

// Dispatcher executes a pending action's network call during replay.
// The request-pool service implements it; the indirection keeps this
// package free of a dependency on its own consumers.
type Dispatcher interface {
	Dispatch(ctx context.Context, action PendingAction) error
}

// Queue holds at most one pending action.
//
// # Trade-off
//
// A new deferred action overwrites any previous one (last action wins). That
// is the documented behavior, not an accident: the user re-authenticates in
// response to whatever they tried most recently. [Queue.Defer] returns the
// displaced action so the drop is observable.
type Queue struct {
	mu     sync.Mutex
	action *PendingAction
}

// NewQueue creates an empty pending-action queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Defer stores the action, replacing any previously stored one.
// It returns the displaced action, or nil if the slot was empty.
func (q *Queue) Defer(action PendingAction) *PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()

	displaced := q.action
	q.action = &action
	return displaced
}

// Take returns the stored action and clears the slot.
//
// The slot is cleared before the caller dispatches anything, so a failure
// during replay can never re-trigger replay.
func (q *Queue) Take() *PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()

	action := q.action
	q.action = nil
	return action
}

// Peek returns the stored action without clearing it.
func (q *Queue) Peek() *PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.action
}
