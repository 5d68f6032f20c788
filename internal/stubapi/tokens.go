// Copyright (c) 2026 Howkings. All rights reserved.

package stubapi

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// accessTokenTTL keeps access tokens short-lived so the SDK's refresh path
// gets exercised during normal development.
const accessTokenTTL = 15 * time.Minute

// tokenIssuer mints and verifies HS256 access tokens, and issues opaque
// rotating refresh tokens.
type tokenIssuer struct {
	secret []byte
}

func newTokenIssuer(secret string) *tokenIssuer {
	return &tokenIssuer{secret: []byte(secret)}
}

// issueAccess mints a signed access token for the user.
func (issuer *tokenIssuer) issueAccess(userID int64, name string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", userID),
		"name": name,
		"iat":  now.Unix(),
		"exp":  now.Add(accessTokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(issuer.secret)
}

// issueRefresh mints an opaque refresh token. Rotation is the store's job:
// the old token is invalidated when a new one is bound to the user.
func (issuer *tokenIssuer) issueRefresh() string {
	return uuid.NewString()
}

// verify parses and validates an access token, returning the user ID.
func (issuer *tokenIssuer) verify(token string) (int64, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return issuer.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, fmt.Errorf("stubapi: invalid access token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("stubapi: malformed claims")
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("stubapi: missing subject: %w", err)
	}

	var userID int64
	if _, err := fmt.Sscanf(subject, "%d", &userID); err != nil {
		return 0, fmt.Errorf("stubapi: non-numeric subject %q", subject)
	}
	return userID, nil
}
