// Copyright (c) 2026 Howkings. All rights reserved.

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/howkings/howkings-go/internal/platform/apperr"
	"github.com/howkings/howkings-go/internal/platform/constants"
	"github.com/howkings/howkings-go/internal/platform/events"
	"github.com/howkings/howkings-go/internal/transport"
)

// State is the session lifecycle phase.
type State string

const (
	// StateUninitialized means Bootstrap has not run yet.
	StateUninitialized State = "uninitialized"

	// StateValidating means a bootstrap or refresh is in flight.
	StateValidating State = "validating"

	// StateAuthenticated means a live session with a usable access token.
	StateAuthenticated State = "authenticated"

	// StateAnonymous means no session; the client acts as a guest.
	StateAnonymous State = "anonymous"
)

// bootstrapFlight is the shared result of a coalesced Bootstrap call.
type bootstrapFlight struct {
	done  chan struct{}
	state State
	err   error
}

// Manager owns the in-memory session and its lifecycle.
//
// # Lifecycle
//
// Bootstrap restores a persisted session on startup: a stored access token
// that has not expired is adopted as-is, with no network call, so an offline
// start keeps the session usable. An expired token is exchanged through a
// silent refresh; only a backend rejection of that refresh clears storage.
// After bootstrap, [Manager.StartRevalidation] re-checks the session against
// the backend on a fixed schedule; a session that stops validating and
// cannot be refreshed is cleared and announced with
// [events.TopicTokenInvalid].
//
// Concurrent Bootstrap calls coalesce into a single flight; every caller
// observes the same outcome.
//
// The manager also implements [transport.TokenSource], feeding the bearer
// token into the HTTP interceptor chain.
type Manager struct {
	creds     *CredentialStore
	inspector TokenInspector
	client    *transport.Client
	bus       events.Bus
	logger    *slog.Logger

	mu      sync.Mutex
	state   State
	session *Credentials

	flightMu sync.Mutex
	flight   *bootstrapFlight

	cron *cron.Cron
}

// NewManager wires the session manager. Call [transport.Client.BindTokenSource]
// with the result to close the loop with the HTTP layer.
func NewManager(creds *CredentialStore, inspector TokenInspector, client *transport.Client, bus events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		creds:     creds,
		inspector: inspector,
		client:    client,
		bus:       bus,
		logger:    logger,
		state:     StateUninitialized,
	}
}

// # Session Snapshot

// SessionState returns the current lifecycle phase.
func (manager *Manager) SessionState() State {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return manager.state
}

// CurrentUser returns the signed-in user, or nil.
func (manager *Manager) CurrentUser() *User {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.session == nil {
		return nil
	}
	return manager.session.User
}

// IsAuthenticated reports whether a usable session exists right now.
//
// Derived, never cached: a session whose access token expired between checks
// stops counting as authenticated without any state transition.
func (manager *Manager) IsAuthenticated() bool {
	manager.mu.Lock()
	session := manager.session
	manager.mu.Unlock()

	if session == nil || session.User == nil || session.AccessToken == "" {
		return false
	}
	return !manager.inspector.IsExpired(session.AccessToken)
}

// # TokenSource

// AccessToken implements [transport.TokenSource].
func (manager *Manager) AccessToken(ctx context.Context) string {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.session == nil {
		return ""
	}
	return manager.session.AccessToken
}

// InvalidateAccessToken implements [transport.TokenSource]. It drops the
// access token from memory and storage but keeps the refresh token and user
// record, so the re-auth flow can restore the session.
func (manager *Manager) InvalidateAccessToken(ctx context.Context) {
	manager.mu.Lock()
	if manager.session != nil {
		manager.session.AccessToken = ""
	}
	manager.mu.Unlock()

	if err := manager.creds.ClearAccessToken(ctx); err != nil {
		manager.logger.Warn("session_clear_access_token_failed", slog.Any("error", err))
	}
}

// # Bootstrap

// Bootstrap restores the persisted session, if any.
//
// The returned state is either StateAuthenticated or StateAnonymous; an
// error is returned only when the calling context is canceled. Failures on
// the network or in storage degrade to anonymous rather than erroring, so
// the client always starts in a usable state.
func (manager *Manager) Bootstrap(ctx context.Context) (State, error) {
	manager.flightMu.Lock()
	if flight := manager.flight; flight != nil {
		manager.flightMu.Unlock()
		select {
		case <-flight.done:
			return flight.state, flight.err
		case <-ctx.Done():
			return StateValidating, ctx.Err()
		}
	}

	flight := &bootstrapFlight{done: make(chan struct{})}
	manager.flight = flight
	manager.flightMu.Unlock()

	flight.state, flight.err = manager.bootstrap(ctx)

	manager.flightMu.Lock()
	manager.flight = nil
	manager.flightMu.Unlock()
	close(flight.done)

	return flight.state, flight.err
}

func (manager *Manager) bootstrap(ctx context.Context) (State, error) {
	manager.setState(StateValidating)

	stored, err := manager.creds.Load(ctx)
	if err != nil {
		manager.logger.Warn("session_load_failed", slog.Any("error", err))
	}
	if stored == nil {
		manager.setAnonymous()
		manager.logger.Info("session_bootstrap_anonymous")
		return StateAnonymous, nil
	}

	// 1. An expired access token needs the refresh path.
	if manager.inspector.IsExpired(stored.AccessToken) {
		return manager.refreshOrClear(ctx, stored)
	}

	// 2. The token is still live; adopt it as-is. Confirming it against the
	// backend is the periodic revalidation loop's job, so an offline start
	// does not cost the user their session.
	manager.adopt(stored)
	manager.logger.Info("session_bootstrap_restored", slog.Int64("user_id", stored.User.ID))
	return StateAuthenticated, nil
}

// refreshOrClear tries a silent refresh and degrades to anonymous on failure.
// Storage is cleared only when the backend actually rejected the refresh; a
// network failure keeps the persisted session for the next start.
func (manager *Manager) refreshOrClear(ctx context.Context, stored *Credentials) (State, error) {
	refreshed, err := manager.refresh(ctx, stored)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNetwork) {
			manager.logger.Info("session_bootstrap_offline", slog.Any("error", err))
			manager.setAnonymous()
			return StateAnonymous, nil
		}

		manager.logger.Info("session_bootstrap_refresh_failed", slog.Any("error", err))
		manager.clearSession(ctx)
		return StateAnonymous, nil
	}

	manager.adopt(refreshed)
	manager.logger.Info("session_bootstrap_refreshed", slog.Int64("user_id", refreshed.User.ID))
	return StateAuthenticated, nil
}

// # Validation and Refresh

// validate asks the backend whether the current access token is live.
func (manager *Manager) validate(ctx context.Context) error {
	_, err := manager.client.Do(transport.WithoutReauth(ctx), http.MethodGet, "/api/validate-token", nil)
	return err
}

// refresh exchanges the refresh token for a new token pair and persists it.
func (manager *Manager) refresh(ctx context.Context, stored *Credentials) (*Credentials, error) {
	if stored.RefreshToken == "" {
		return nil, fmt.Errorf("session: no refresh token")
	}

	envelope, err := manager.client.Do(transport.WithoutReauth(ctx), http.MethodPost, "/auth/refresh-token",
		map[string]string{"refresh_token": stored.RefreshToken})
	if err != nil {
		return nil, err
	}

	// The refresh endpoint returns tokens at the envelope's top level, not
	// inside data.
	var pair TokenPair
	if err := json.Unmarshal(envelope.Tokens, &pair); err != nil {
		return nil, fmt.Errorf("session: decode refreshed tokens: %w", err)
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("session: refresh returned empty access token")
	}

	refreshed := &Credentials{
		User:         stored.User,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = stored.RefreshToken
	}

	if err := manager.creds.Save(ctx, refreshed.User, refreshed.AccessToken, refreshed.RefreshToken); err != nil {
		manager.logger.Warn("session_persist_refreshed_failed", slog.Any("error", err))
	}

	return refreshed, nil
}

// # Periodic Revalidation

// StartRevalidation begins the background session check.
//
// Every interval the manager validates the access token, falls back to a
// silent refresh, and as a last resort clears the session and publishes
// [events.TopicTokenInvalid]. Stop with [Manager.StopRevalidation].
func (manager *Manager) StartRevalidation() {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	if manager.cron != nil {
		return
	}

	manager.cron = cron.New()
	spec := fmt.Sprintf("@every %s", constants.RevalidateInterval)
	if _, err := manager.cron.AddFunc(spec, manager.revalidateTick); err != nil {
		manager.logger.Error("session_revalidation_schedule_failed", slog.Any("error", err))
		manager.cron = nil
		return
	}
	manager.cron.Start()
	manager.logger.Info("session_revalidation_started", slog.String("interval", constants.RevalidateInterval.String()))
}

// StopRevalidation halts the background check. Safe to call when not running.
func (manager *Manager) StopRevalidation() {
	manager.mu.Lock()
	runner := manager.cron
	manager.cron = nil
	manager.mu.Unlock()

	if runner != nil {
		runner.Stop()
	}
}

func (manager *Manager) revalidateTick() {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultRequestTimeout)
	defer cancel()

	manager.mu.Lock()
	session := manager.session
	manager.mu.Unlock()

	if session == nil || session.AccessToken == "" {
		return
	}

	if err := manager.validate(ctx); err == nil {
		return
	}

	refreshed, err := manager.refresh(ctx, session)
	if err == nil {
		manager.adopt(refreshed)
		manager.logger.Info("session_revalidation_refreshed")
		return
	}

	// A transient outage is not a verdict on the session; the next tick
	// retries.
	if apperr.IsKind(err, apperr.KindNetwork) {
		manager.logger.Info("session_revalidation_unreachable", slog.Any("error", err))
		return
	}

	manager.logger.Info("session_revalidation_gave_up", slog.Any("error", err))
	manager.clearSession(ctx)
	manager.bus.Publish(events.Event{Topic: events.TopicTokenInvalid})
}

// # Mutation

// EstablishSession installs a fresh session after login or registration.
func (manager *Manager) EstablishSession(ctx context.Context, user *User, tokens TokenPair) error {
	err := manager.creds.Save(ctx, user, tokens.AccessToken, tokens.RefreshToken)
	if err != nil {
		// The in-memory session still works for this process; persistence is
		// reported but not fatal.
		manager.logger.Warn("session_persist_failed", slog.Any("error", err))
	}

	manager.adopt(&Credentials{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
	return err
}

// ClearSession drops the session from memory and storage.
func (manager *Manager) ClearSession(ctx context.Context) {
	manager.clearSession(ctx)
}

func (manager *Manager) clearSession(ctx context.Context) {
	if err := manager.creds.Clear(ctx); err != nil {
		manager.logger.Warn("session_clear_failed", slog.Any("error", err))
	}

	manager.mu.Lock()
	manager.session = nil
	manager.state = StateAnonymous
	manager.mu.Unlock()
}

func (manager *Manager) adopt(session *Credentials) {
	manager.mu.Lock()
	manager.session = session
	manager.state = StateAuthenticated
	manager.mu.Unlock()
}

func (manager *Manager) setState(state State) {
	manager.mu.Lock()
	manager.state = state
	manager.mu.Unlock()
}

func (manager *Manager) setAnonymous() {
	manager.mu.Lock()
	manager.session = nil
	manager.state = StateAnonymous
	manager.mu.Unlock()
}
