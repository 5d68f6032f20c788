// Copyright (c) 2026 Howkings. All rights reserved.

package auth

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/howkings/howkings-go/internal/platform/constants"
	"github.com/howkings/howkings-go/internal/platform/kv"
)

// loginDraft is the persisted shape of the login form. The password is never
// part of it.
type loginDraft struct {
	Email string `json:"email"`
}

// LoginDraft remembers the email from the last sign-in attempt so the login
// form can be pre-filled. Storage failures are logged and swallowed; a
// missing draft simply means an empty form.
type LoginDraft struct {
	store  kv.Store
	logger *slog.Logger
}

func NewLoginDraft(store kv.Store, logger *slog.Logger) *LoginDraft {
	return &LoginDraft{store: store, logger: logger}
}

// Save records the email for the next session.
func (draft *LoginDraft) Save(ctx context.Context, email string) {
	raw, err := json.Marshal(loginDraft{Email: email})
	if err != nil {
		return
	}
	if err := draft.store.Set(ctx, constants.StorageKeyLoginDraft, string(raw)); err != nil {
		draft.logger.Warn("login_draft_save_failed", slog.Any("error", err))
	}
}

// Load returns the remembered email, or "" when none is stored or the stored
// document is unreadable.
func (draft *LoginDraft) Load(ctx context.Context) string {
	raw, err := draft.store.Get(ctx, constants.StorageKeyLoginDraft)
	if err != nil {
		return ""
	}

	var stored loginDraft
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		draft.logger.Warn("login_draft_corrupt", slog.Any("error", err))
		return ""
	}
	return stored.Email
}

// Clear removes the remembered email.
func (draft *LoginDraft) Clear(ctx context.Context) {
	if err := draft.store.Delete(ctx, constants.StorageKeyLoginDraft); err != nil {
		draft.logger.Warn("login_draft_clear_failed", slog.Any("error", err))
	}
}
