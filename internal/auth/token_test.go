// Copyright (c) 2026 Howkings. All rights reserved.

package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/howkings/howkings-go/internal/auth"
)

// signedToken mints a syntactically valid JWT with the given expiry.
func signedToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": expiry.Unix(),
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)
	return token
}

// tokenWithoutExpiry mints a JWT that carries no exp claim at all.
func tokenWithoutExpiry(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)
	return token
}

/*
TestDecodeExpiry reads the exp claim without verifying the signature.
*/
func TestDecodeExpiry(t *testing.T) {
	inspector := auth.NewInspector()
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)

	decoded, ok := inspector.DecodeExpiry(signedToken(t, expiry))
	require.True(t, ok)
	assert.True(t, decoded.Equal(expiry))
}

/*
TestDecodeExpiry_Malformed returns (zero, false) for anything undecodable.
*/
func TestDecodeExpiry_Malformed(t *testing.T) {
	inspector := auth.NewInspector()

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"two_segments", "aaaa.bbbb"},
		{"bad_payload", "aaaa.!!!!.cccc"},
		{"no_exp_claim", tokenWithoutExpiry(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := inspector.DecodeExpiry(tt.token)
			assert.False(t, ok)
		})
	}
}

/*
TestIsExpired fails closed: undecodable tokens count as expired.
*/
func TestIsExpired(t *testing.T) {
	inspector := auth.NewInspector()

	assert.False(t, inspector.IsExpired(signedToken(t, time.Now().Add(time.Hour))))
	assert.True(t, inspector.IsExpired(signedToken(t, time.Now().Add(-time.Hour))))
	assert.True(t, inspector.IsExpired("garbage"))
	assert.True(t, inspector.IsExpired(""))
	assert.True(t, inspector.IsExpired(tokenWithoutExpiry(t)))
}
