// Copyright (c) 2026 Howkings. All rights reserved.

/*
Package apperr defines the centralized error taxonomy for the Howkings client.

It provides a rich error type that bridges the gap between raw transport
failures and the normalized categories the UI layer reacts to.

Architecture:

  - AppError: A struct carrying a machine-readable Kind and a user-facing message.
  - Normalization: Backend response bodies are mapped onto a closed set of Kinds.
  - Locality: RateLimited and Validation errors are produced locally and
    never correspond to a network round trip.

Every error that leaves an operation should be wrapped as an [AppError] so
callers can switch on Kind instead of string-matching messages.
*/
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable category of a client error.
type Kind string

const (
	// KindRateLimited is a local pre-network rejection with a cooldown.
	KindRateLimited Kind = "RATE_LIMITED"
	// KindInvalidCredentials is a backend-confirmed bad login.
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	// KindUnauthenticated is a mid-session auth failure that triggers the
	// re-auth-and-replay flow. It is not shown to the user directly.
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	// KindConflict is a domain conflict (HTTP 409), e.g. a duplicate vote.
	KindConflict Kind = "CONFLICT"
	// KindValidation is a client-side field violation; never reaches the network.
	KindValidation Kind = "VALIDATION_ERROR"
	// KindNetwork is a connectivity failure (DNS, refused, timeout).
	KindNetwork Kind = "NETWORK_ERROR"
	// KindServer is any other backend failure.
	KindServer Kind = "SERVER_ERROR"
)

// AppError is the canonical error type for the Howkings client.
//
// It carries a Kind for programmatic handling, a message safe to surface as a
// toast, and an optional slice of field-level validation errors.
type AppError struct {
	// Kind is the machine-readable error category.
	Kind Kind `json:"kind"`
	// Message is a human-readable description safe to show to the user.
	Message string `json:"message"`
	// RetryAfterSeconds is the remaining cooldown for RATE_LIMITED errors.
	RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`
	// HTTPStatus is the backend status code, when the error came off the wire.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, kept for logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the form field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the user-facing message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Local Errors

// RateLimited creates a pre-network rejection carrying the remaining cooldown.
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Kind:              KindRateLimited,
		Message:           fmt.Sprintf("Too many attempts. Try again in %ds.", retryAfterSeconds),
		RetryAfterSeconds: retryAfterSeconds,
	}
}

// Validation creates a client-side validation error with per-field details.
func Validation(msg string, details ...FieldError) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: msg,
		Details: details,
	}
}

// # Normalized Backend Errors

// InvalidCredentials creates a backend-confirmed bad-login error.
func InvalidCredentials(msg string) *AppError {
	if msg == "" {
		msg = "Invalid credentials"
	}
	return &AppError{Kind: KindInvalidCredentials, Message: msg}
}

// Unauthenticated creates a mid-session auth failure.
func Unauthenticated(msg string) *AppError {
	if msg == "" {
		msg = "Authentication required"
	}
	return &AppError{Kind: KindUnauthenticated, Message: msg}
}

// Conflict creates a domain-conflict error (duplicate vote, taken email).
func Conflict(msg string) *AppError {
	return &AppError{Kind: KindConflict, Message: msg, HTTPStatus: 409}
}

// Network wraps a connectivity failure. The cause is kept for logging; the
// message shown to the user is always the generic fallback.
func Network(cause error) *AppError {
	return &AppError{
		Kind:    KindNetwork,
		Message: "Network error. Please check your connection.",
		Cause:   cause,
	}
}

// Server creates a generic backend failure. The backend message is surfaced
// verbatim when present, otherwise a fallback is used.
func Server(status int, msg string) *AppError {
	if msg == "" {
		msg = "An unexpected error occurred"
	}
	return &AppError{Kind: KindServer, Message: msg, HTTPStatus: status}
}

// # Helpers

// IsKind reports whether err (or any error in its chain) is an [*AppError]
// of the given kind.
func IsKind(err error, kind Kind) bool {
	ae := As(err)
	return ae != nil && ae.Kind == kind
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
