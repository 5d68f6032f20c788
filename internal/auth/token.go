// Copyright (c) 2026 Howkings. All rights reserved.

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInspector decodes access-token expiry without verifying signatures.
//
// # Why unverified?
//
// The client never needs to cryptographically verify its own token: the
// backend re-validates it on every request over the same channel that issued
// it. The interface exists so a server-verified variant can replace the
// decoder without touching callers.
type TokenInspector interface {
	// DecodeExpiry returns the token's expiry claim.
	// The second result is false when the token carries no decodable expiry.
	DecodeExpiry(token string) (time.Time, bool)

	// IsExpired reports whether the token should be treated as stale.
	//
	// Fail-closed: malformed tokens and tokens without an expiry claim are
	// always expired.
	IsExpired(token string) bool
}

// UnverifiedInspector reads the exp claim straight out of the JWT payload.
type UnverifiedInspector struct {
	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewInspector creates the standard unverified token inspector.
func NewInspector() *UnverifiedInspector {
	return &UnverifiedInspector{now: time.Now}
}

// DecodeExpiry parses the token payload without signature verification and
// returns its expiry claim. Malformed input returns (zero, false), never a
// panic or an error the caller has to branch on.
func (inspector *UnverifiedInspector) DecodeExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, false
	}

	return expiry.Time, true
}

// IsExpired compares the decoded expiry to the current time.
func (inspector *UnverifiedInspector) IsExpired(token string) bool {
	expiry, ok := inspector.DecodeExpiry(token)
	if !ok {
		return true
	}
	return !expiry.After(inspector.now())
}
