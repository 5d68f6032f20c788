// Copyright (c) 2026 Howkings. All rights reserved.

/*
Package events provides the in-process signal bus that decouples the auth
and request-pool layers from whatever front end is driving them.

It replaces the web client's DOM CustomEvent wiring with an explicit typed
publish/subscribe channel: consumers subscribe to the topics they care about
and receive events on a buffered channel, with an explicit Close handle so
listeners cannot leak.
*/
package events

import "time"

// Topic identifies a signal category on the bus.
type Topic string

const (
	// TopicShowLogin asks the UI to present the login form; published when an
	// authenticated-only call fails for lack of a session.
	TopicShowLogin Topic = "auth:show-login"

	// TopicLoginSuccess fires after a successful login; pending requests and
	// deferred actions replay on this signal.
	TopicLoginSuccess Topic = "auth:login-success"

	// TopicRegistrationSuccess fires after a successful registration (which
	// also establishes a session).
	TopicRegistrationSuccess Topic = "auth:registration-success"

	// TopicTokenInvalid fires when periodic validation gives up on the stored
	// session outside the initial bootstrap.
	TopicTokenInvalid Topic = "auth:token-invalid"

	// TopicLoggedOut fires after a logout or account deletion; the UI returns
	// to the anonymous landing state on this signal.
	TopicLoggedOut Topic = "auth:logged-out"

	// TopicToast carries user-facing notifications.
	TopicToast Topic = "app:show-toast"

	// TopicModuleVoted announces a successful request-pool vote.
	TopicModuleVoted Topic = "module:voted"
)

// ToastType is the visual severity of a toast notification.
type ToastType string

const (
	ToastError   ToastType = "error"
	ToastSuccess ToastType = "success"
	ToastInfo    ToastType = "info"
	ToastWarning ToastType = "warning"
)

// Toast is the payload of a [TopicToast] event.
type Toast struct {
	Message string    `json:"message"`
	Type    ToastType `json:"type"`
}

// VoteResult is the payload of a [TopicModuleVoted] event.
type VoteResult struct {
	ModuleRequestID int64 `json:"module_request_id"`
	Votes           int   `json:"votes"`
}

// Event is a single signal on the bus. Payload fields are set according to
// the topic; unrelated fields stay nil.
type Event struct {
	Topic Topic
	Time  time.Time

	Toast *Toast
	Vote  *VoteResult
}

// Bus distributes events to subscribers.
type Bus interface {
	// Publish sends an event to all subscribers of its topic.
	Publish(event Event)

	// Subscribe registers a subscriber for the given topics.
	// Returns a Subscription that must be closed when done.
	Subscribe(topics ...Topic) Subscription

	// Close shuts down the bus and all subscriptions.
	Close() error
}

// Subscription receives events.
type Subscription interface {
	// Events returns the channel of events for this subscription.
	Events() <-chan Event

	// Close unsubscribes and releases resources.
	Close() error
}

// PublishToast is a convenience for the most common signal.
func PublishToast(bus Bus, message string, toastType ToastType) {
	bus.Publish(Event{
		Topic: TopicToast,
		Time:  time.Now(),
		Toast: &Toast{Message: message, Type: toastType},
	})
}
