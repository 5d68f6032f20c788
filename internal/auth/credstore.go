// Copyright (c) 2026 Howkings. All rights reserved.

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/howkings/howkings-go/internal/platform/constants"
	"github.com/howkings/howkings-go/internal/platform/cryptobox"
	"github.com/howkings/howkings-go/internal/platform/kv"
)

// Credentials is the loaded form of a persisted session.
type Credentials struct {
	User         *User
	AccessToken  string
	RefreshToken string
}

// CredentialStore owns the persisted session exclusively.
//
// # Ownership
//
// Every other component reads session state through the auth operations API;
// nothing else writes the user or token entries. The user record is stored
// as plain JSON; both tokens are sealed with the same key when sealing is
// configured, so partial encryption never occurs.
type CredentialStore struct {
	store  kv.Store
	box    *cryptobox.Box // nil disables sealing
	logger *slog.Logger
}

// NewCredentialStore wires the credential store over a key-value backend.
func NewCredentialStore(store kv.Store, box *cryptobox.Box, logger *slog.Logger) *CredentialStore {
	return &CredentialStore{store: store, box: box, logger: logger}
}

// Save writes the user record and both tokens.
//
// Storage failures are reported to the caller but deliberately not fatal to
// the session: an in-memory session still works for the process lifetime.
func (cs *CredentialStore) Save(ctx context.Context, user *User, accessToken, refreshToken string) error {
	rawUser, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("credstore: marshal user: %w", err)
	}

	storedAccess, storedRefresh := accessToken, refreshToken
	if cs.box != nil {
		// Both tokens use the same key; a failure on either aborts the write
		// so a half-sealed envelope can never be persisted.
		if storedAccess, err = cs.box.Seal(accessToken); err != nil {
			return fmt.Errorf("credstore: seal access token: %w", err)
		}
		if storedRefresh, err = cs.box.Seal(refreshToken); err != nil {
			return fmt.Errorf("credstore: seal refresh token: %w", err)
		}
	}

	if err := cs.store.Set(ctx, constants.StorageKeyUser, string(rawUser)); err != nil {
		return fmt.Errorf("credstore: persist user: %w", err)
	}
	if err := cs.store.Set(ctx, constants.StorageKeyAccessToken, storedAccess); err != nil {
		return fmt.Errorf("credstore: persist access token: %w", err)
	}
	if err := cs.store.Set(ctx, constants.StorageKeyRefreshToken, storedRefresh); err != nil {
		return fmt.Errorf("credstore: persist refresh token: %w", err)
	}

	return nil
}

// Load reads the persisted session.
//
// Returns nil (no error) when any of the three entries is missing or a token
// fails to unseal. An incomplete envelope is treated as "no session" so the
// client falls back to anonymous instead of starting half-authenticated.
func (cs *CredentialStore) Load(ctx context.Context) (*Credentials, error) {
	rawUser, err := cs.store.Get(ctx, constants.StorageKeyUser)
	if err != nil {
		return nil, ignoreNotFound(err)
	}

	storedAccess, err := cs.store.Get(ctx, constants.StorageKeyAccessToken)
	if err != nil {
		return nil, ignoreNotFound(err)
	}

	storedRefresh, err := cs.store.Get(ctx, constants.StorageKeyRefreshToken)
	if err != nil {
		return nil, ignoreNotFound(err)
	}

	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		cs.logger.Warn("credstore_corrupt_user_record", slog.Any("error", err))
		return nil, nil
	}

	accessToken, refreshToken := storedAccess, storedRefresh
	if cs.box != nil {
		if accessToken, err = cs.box.Open(storedAccess); err != nil {
			cs.logger.Warn("credstore_unseal_failed", slog.String("entry", constants.StorageKeyAccessToken))
			return nil, nil
		}
		if refreshToken, err = cs.box.Open(storedRefresh); err != nil {
			cs.logger.Warn("credstore_unseal_failed", slog.String("entry", constants.StorageKeyRefreshToken))
			return nil, nil
		}
	}

	return &Credentials{
		User:         &user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Clear removes all three entries unconditionally. It is idempotent.
func (cs *CredentialStore) Clear(ctx context.Context) error {
	var firstErr error
	for _, key := range []string{
		constants.StorageKeyUser,
		constants.StorageKeyAccessToken,
		constants.StorageKeyRefreshToken,
	} {
		if err := cs.store.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("credstore: clear %s: %w", key, err)
		}
	}
	return firstErr
}

// ClearAccessToken removes only the access-token entry. The interceptor
// chain calls this when the backend rejects the token mid-session, leaving
// the refresh token in place for the re-auth flow.
func (cs *CredentialStore) ClearAccessToken(ctx context.Context) error {
	return cs.store.Delete(ctx, constants.StorageKeyAccessToken)
}

// ignoreNotFound maps kv.ErrNotFound to a clean nil; any other storage
// failure propagates.
func ignoreNotFound(err error) error {
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	return err
}
