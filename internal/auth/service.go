// Copyright (c) 2026 Howkings. All rights reserved.

package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/howkings/howkings-go/internal/platform/apperr"
	"github.com/howkings/howkings-go/internal/platform/constants"
	"github.com/howkings/howkings-go/internal/platform/events"
	"github.com/howkings/howkings-go/internal/platform/validate"
	"github.com/howkings/howkings-go/internal/transport"
)

// Service exposes the authentication operations.
//
// # Flow
//
// Login and Register are rate limited locally before any network call. A
// success persists the session, resets the attempt bucket, announces itself
// on the bus, and replays at most one deferred action. Logout always clears
// the local session, even when the backend is unreachable.
type Service struct {
	session *Manager
	client  *transport.Client
	bus     events.Bus
	pending *Queue
	logger  *slog.Logger

	loginLimiter    *AttemptLimiter
	registerLimiter *AttemptLimiter
	resetLimiter    *AttemptLimiter

	// dispatcher replays deferred actions; bound after construction because
	// the request-pool service that implements it depends on this package.
	dispatcher Dispatcher
}

// NewService wires the auth operations.
func NewService(session *Manager, client *transport.Client, bus events.Bus, pending *Queue, logger *slog.Logger) *Service {
	return &Service{
		session:         session,
		client:          client,
		bus:             bus,
		pending:         pending,
		logger:          logger,
		loginLimiter:    NewAttemptLimiter(constants.LoginMaxAttempts, constants.LoginWindow),
		registerLimiter: NewAttemptLimiter(constants.RegisterMaxAttempts, constants.RegisterWindow),
		resetLimiter:    NewAttemptLimiter(constants.PasswordResetMaxAttempts, constants.PasswordResetWindow),
	}
}

// SetDispatcher binds the deferred-action executor.
func (service *Service) SetDispatcher(dispatcher Dispatcher) {
	service.dispatcher = dispatcher
}

// Pending returns the deferred-action queue so callers can park an intent.
func (service *Service) Pending() *Queue {
	return service.pending
}

// Session returns the session manager backing this service.
func (service *Service) Session() *Manager {
	return service.session
}

// # Login

// Login authenticates with email and password.
//
// The attempt budget is checked first: a denied attempt never reaches the
// network and carries the remaining cooldown. Backend rejections of any
// 4xx shape normalize to INVALID_CREDENTIALS so the form shows one message
// regardless of how the backend phrased it.
func (service *Service) Login(ctx context.Context, email, password string) (*User, error) {
	var v validate.Validator
	if err := v.Required("email", email).Required("password", password).Err(); err != nil {
		return nil, err
	}

	key := constants.RateLimitKeyLogin + normalizeKey(email)
	if !service.loginLimiter.CanAttempt(key) {
		cooldown := service.loginLimiter.RemainingCooldown(key)
		service.logger.Info("login_rate_limited", slog.String("key", key))
		return nil, apperr.RateLimited(ceilSeconds(cooldown))
	}

	envelope, err := service.client.Do(transport.WithoutReauth(ctx), http.MethodPost, "/api/login",
		map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, normalizeLoginError(err)
	}

	user, tokens, err := decodeSession(envelope.Data)
	if err != nil {
		return nil, err
	}

	if err := service.session.EstablishSession(ctx, user, tokens); err != nil {
		service.logger.Warn("login_session_persist_failed", slog.Any("error", err))
	}
	service.loginLimiter.Reset(key)

	service.logger.Info("login_succeeded", slog.Int64("user_id", user.ID))
	events.PublishToast(service.bus, fmt.Sprintf("Welcome back, %s!", user.Name), events.ToastSuccess)
	service.bus.Publish(events.Event{Topic: events.TopicLoginSuccess, Time: time.Now()})

	service.replayPending(ctx)
	return user, nil
}

// normalizeLoginError collapses backend rejections into the two kinds the
// login form distinguishes: connectivity problems and bad credentials.
func normalizeLoginError(err error) error {
	ae := apperr.As(err)
	if ae == nil {
		return err
	}

	switch {
	case ae.Kind == apperr.KindNetwork:
		return err
	case ae.Kind == apperr.KindUnauthenticated,
		ae.HTTPStatus >= 400 && ae.HTTPStatus < 500:
		return apperr.InvalidCredentials(ae.Message)
	default:
		return err
	}
}

// # Registration

// Register enrolls a new member and signs them in.
//
// Individual accounts require first and last name; organization accounts a
// single organization name. The input is fully validated before the rate
// limiter is consulted, so a malformed form never burns an attempt.
func (service *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	key := constants.RateLimitKeyRegister + normalizeKey(input.Email)
	if !service.registerLimiter.CanAttempt(key) {
		cooldown := service.registerLimiter.RemainingCooldown(key)
		service.logger.Info("register_rate_limited", slog.String("key", key))
		return nil, apperr.RateLimited(ceilSeconds(cooldown))
	}

	envelope, err := service.client.Do(transport.WithoutReauth(ctx), http.MethodPost, "/api/register", input)
	if err != nil {
		return nil, err
	}

	user, tokens, err := decodeSession(envelope.Data)
	if err != nil {
		return nil, err
	}

	if err := service.session.EstablishSession(ctx, user, tokens); err != nil {
		service.logger.Warn("register_session_persist_failed", slog.Any("error", err))
	}
	service.registerLimiter.Reset(key)

	service.logger.Info("registration_succeeded", slog.Int64("user_id", user.ID))
	events.PublishToast(service.bus, "Registration successful. Welcome to Howkings!", events.ToastSuccess)
	service.bus.Publish(events.Event{Topic: events.TopicRegistrationSuccess, Time: time.Now()})

	service.replayPending(ctx)
	return user, nil
}

func validateRegisterInput(input RegisterInput) error {
	var v validate.Validator

	switch input.Type {
	case AccountOrganization:
		v.Required("organizationName", input.OrganizationName).
			Name("organizationName", input.OrganizationName)
	default:
		v.Required("firstName", input.FirstName).
			Name("firstName", input.FirstName).
			Required("lastName", input.LastName).
			Name("lastName", input.LastName)
	}

	return v.
		Required("email", input.Email).
		Email("email", input.Email).
		Required("phone", input.Phone).
		Phone("phone", input.Phone).
		Password("password", input.Password).
		Err()
}

// # Password Recovery

// ForgotPassword asks the backend to send reset instructions.
//
// Rate limited like login, per email. The attempt is never refunded on
// success: every accepted request costs an email, so the budget counts sends,
// not failures. The backend answers the same way whether or not the address
// is registered, and so does this method.
func (service *Service) ForgotPassword(ctx context.Context, email string) error {
	var v validate.Validator
	if err := v.Required("email", email).Email("email", email).Err(); err != nil {
		return err
	}

	key := constants.RateLimitKeyPasswordReset + normalizeKey(email)
	if !service.resetLimiter.CanAttempt(key) {
		cooldown := service.resetLimiter.RemainingCooldown(key)
		service.logger.Info("forgot_password_rate_limited", slog.String("key", key))
		return apperr.RateLimited(ceilSeconds(cooldown))
	}

	_, err := service.client.Do(transport.WithoutReauth(ctx), http.MethodPost, "/api/forgot-password",
		map[string]string{"email": email})
	if err != nil {
		return err
	}

	service.logger.Info("forgot_password_requested")
	events.PublishToast(service.bus, "If that email is registered, reset instructions are on their way.", events.ToastInfo)
	return nil
}

// ResetPassword completes the forgot-password flow with the emailed token.
//
// The new password must satisfy the same policy as registration. A rejected
// token surfaces as-is; the session is untouched either way, and the user
// signs in with the new password afterwards.
func (service *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	var v validate.Validator
	if err := v.Required("token", token).Password("password", newPassword).Err(); err != nil {
		return err
	}

	_, err := service.client.Do(transport.WithoutReauth(ctx), http.MethodPost, "/api/reset-password",
		map[string]string{"token": token, "password": newPassword})
	if err != nil {
		return err
	}

	service.logger.Info("password_reset_completed")
	events.PublishToast(service.bus, "Your password has been updated. Please sign in.", events.ToastSuccess)
	return nil
}

// # Logout

// Logout ends the session.
//
// The local session is cleared unconditionally: a backend that cannot be
// reached must not leave the client signed in with tokens it can no longer
// refresh. The network failure is logged, not returned.
func (service *Service) Logout(ctx context.Context) {
	_, err := service.client.Do(transport.WithoutReauth(ctx), http.MethodPost, "/api/logout", nil)
	if err != nil {
		service.logger.Warn("logout_backend_failed", slog.Any("error", err))
	}

	service.session.ClearSession(ctx)
	service.logger.Info("logout_completed")
	service.bus.Publish(events.Event{Topic: events.TopicLoggedOut, Time: time.Now()})
	events.PublishToast(service.bus, "Logged out", events.ToastInfo)
}

// # Account Deletion

// DeleteAccount permanently removes the account.
//
// Unlike Logout, the local session is cleared only when the backend confirms
// the deletion; a failed call leaves the session intact so the user can
// retry.
func (service *Service) DeleteAccount(ctx context.Context) error {
	if _, err := service.client.Do(ctx, http.MethodDelete, "/auth/account", nil); err != nil {
		return err
	}

	service.session.ClearSession(ctx)
	service.logger.Info("account_deleted")
	service.bus.Publish(events.Event{Topic: events.TopicLoggedOut, Time: time.Now()})
	events.PublishToast(service.bus, "Your account has been deleted", events.ToastInfo)
	return nil
}

// # Pending Replay

// replayPending takes the deferred action, if any, and dispatches it once.
//
// The slot is cleared before dispatch, so whatever the outcome the action
// runs at most once. A duplicate-vote conflict is downgraded to a warning
// toast; any other failure gets a generic error toast.
func (service *Service) replayPending(ctx context.Context) {
	action := service.pending.Take()
	if action == nil || service.dispatcher == nil {
		return
	}

	service.logger.Info("pending_action_replayed", slog.String("type", string(action.Type)))

	if err := service.dispatcher.Dispatch(ctx, *action); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			events.PublishToast(service.bus, err.Error(), events.ToastWarning)
			return
		}
		service.logger.Warn("pending_action_failed",
			slog.String("type", string(action.Type)),
			slog.Any("error", err),
		)
		events.PublishToast(service.bus, "We couldn't complete your earlier action. Please try again.", events.ToastError)
		return
	}

	if action.OnComplete != nil {
		action.OnComplete()
	}
}

// # Helpers

// decodeSession extracts the user and token pair from a login or register
// envelope.
func decodeSession(data json.RawMessage) (*User, TokenPair, error) {
	var session sessionData
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, TokenPair{}, apperr.Server(0, "Malformed session payload")
	}
	if session.User == nil || session.Tokens.AccessToken == "" {
		return nil, TokenPair{}, apperr.Server(0, "Incomplete session payload")
	}
	return session.User, session.Tokens, nil
}

// normalizeKey canonicalizes an email for rate-limit bucketing.
func normalizeKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ceilSeconds rounds a cooldown up to whole seconds for display.
func ceilSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
