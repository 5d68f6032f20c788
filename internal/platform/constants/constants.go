// Copyright (c) 2026 Howkings. All rights reserved.

/*
Package constants provides centralized, immutable values for the client.

It defines default timeouts, rate limits, storage keys, and cross-cutting
header names shared between layers.

Categories:

  - Storage Keys: Names of the persisted key-value entries.
  - Rate Limiting: Attempt budgets for login and registration.
  - Security: Header and cookie names for bearer and CSRF credentials.

Using this package keeps magic strings and magic numbers out of the
business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "howkings-client"
	AppVersion = "0.1.0-dev"
)

// # Storage Keys

const (
	// StorageKeyUser holds the JSON-serialized user record.
	StorageKeyUser = "user"

	// StorageKeyAccessToken holds the (possibly sealed) access token.
	StorageKeyAccessToken = "access_token"

	// StorageKeyRefreshToken holds the (possibly sealed) refresh token.
	StorageKeyRefreshToken = "refresh_token"

	// StorageKeyCookieConsent holds the JSON cookie-consent record.
	StorageKeyCookieConsent = "cookie_consent"

	// StorageKeySignupDraft holds saved signup form fields (never the password).
	StorageKeySignupDraft = "signup_form"

	// StorageKeyLoginDraft holds the saved login email.
	StorageKeyLoginDraft = "login_form"
)

// # Rate Limiting

const (
	// LoginMaxAttempts is the number of login tries allowed per window.
	LoginMaxAttempts = 3

	// LoginWindow is the fixed rate-limit window for login attempts.
	LoginWindow = 5 * time.Minute

	// RegisterMaxAttempts is the number of registration tries allowed per window.
	RegisterMaxAttempts = 5

	// RegisterWindow is the fixed rate-limit window for registration attempts.
	RegisterWindow = 15 * time.Minute

	// RateLimitKeyLogin prefixes per-email login buckets.
	RateLimitKeyLogin = "login_"

	// RateLimitKeyRegister prefixes per-email registration buckets.
	RateLimitKeyRegister = "register_"

	// PasswordResetMaxAttempts is the number of reset requests allowed per
	// window. Shares the login budget; each send costs an email.
	PasswordResetMaxAttempts = 3

	// PasswordResetWindow is the fixed rate-limit window for reset requests.
	PasswordResetWindow = 5 * time.Minute

	// RateLimitKeyPasswordReset prefixes per-email reset buckets.
	RateLimitKeyPasswordReset = "password_reset_"
)

// # Session Lifecycle

const (
	// RevalidateInterval is how often the session manager re-validates the
	// stored access token against the backend.
	RevalidateInterval = 5 * time.Minute

	// ReloginWait is how long an intercepted request waits for the user to
	// complete a new login before its promise is rejected.
	ReloginWait = 2 * time.Minute
)

// # Security

const (
	// HeaderAuthorization carries the bearer access token.
	HeaderAuthorization = "Authorization"

	// HeaderCSRFToken echoes the CSRF cookie value back to the backend.
	HeaderCSRFToken = "X-CSRF-TOKEN"

	// HeaderXRequestID carries the correlation ID for log tracing.
	HeaderXRequestID = "X-Request-ID"

	// CSRFCookieName is the non-HttpOnly cookie primed by GET /api/csrf-token.
	CSRFCookieName = "XSRF-TOKEN"
)

// # Cookie Consent

const (
	// ConsentTTL is how long a stored consent record stays valid.
	ConsentTTL = 2 * time.Hour
)

// # HTTP Client Timing

const (
	// DefaultRequestTimeout bounds a single backend round trip.
	DefaultRequestTimeout = 30 * time.Second
)

// # JSON Field Identifiers

const (
	FieldStatus  = "status"
	FieldMessage = "message"
	FieldData    = "data"
	FieldTokens  = "tokens"
	FieldVotes   = "votes"

	// StatusSuccess and StatusError are the backend envelope status values.
	StatusSuccess = "success"
	StatusError   = "error"

	// UnauthenticatedMessage is the backend body marker that forces re-auth,
	// regardless of the HTTP status code it arrives with.
	UnauthenticatedMessage = "Unauthenticated"
)

// # Key-Value Store

const (
	// RedisPrefixKV namespaces all client entries in a shared Redis.
	RedisPrefixKV = "howkings:kv:"
)
