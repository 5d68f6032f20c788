// Copyright (c) 2026 Howkings. All rights reserved.

package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/howkings/howkings-go/internal/auth"
	"github.com/howkings/howkings-go/internal/modulepool"
	"github.com/howkings/howkings-go/internal/platform/apperr"
	"github.com/howkings/howkings-go/internal/platform/config"
	"github.com/howkings/howkings-go/internal/platform/constants"
	"github.com/howkings/howkings-go/internal/platform/events"
	"github.com/howkings/howkings-go/internal/platform/kv"
	"github.com/howkings/howkings-go/internal/stubapi"
	"github.com/howkings/howkings-go/internal/transport"
)

// Seeded dev account in the stub backend.
const (
	seedEmail    = "jonas@example.com"
	seedPassword = "stiprusSlaptazodis123!"
)

// serviceFixture is the full client stack wired against the stub backend.
type serviceFixture struct {
	backend *httptest.Server
	store   kv.Store
	bus     events.Bus
	session *auth.Manager
	service *auth.Service
	pool    *modulepool.Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	cfg := &config.Config{StubJWTSecret: "test-secret", Environment: "test"}
	stub := stubapi.NewServer(context.Background(), cfg, discardLogger())

	backend := httptest.NewServer(stub.Handler())
	t.Cleanup(backend.Close)

	bus := events.NewMemBus(events.MemBusConfig{})
	t.Cleanup(func() { _ = bus.Close() })

	client, err := transport.NewClient(backend.URL, bus, discardLogger())
	require.NoError(t, err)

	store := kv.NewMemoryStore()
	creds := auth.NewCredentialStore(store, nil, discardLogger())
	session := auth.NewManager(creds, auth.NewInspector(), client, bus, discardLogger())
	client.BindTokenSource(session)

	pending := auth.NewQueue()
	service := auth.NewService(session, client, bus, pending, discardLogger())
	pool := modulepool.NewService(client, bus, pending, session, discardLogger())
	service.SetDispatcher(pool)

	return &serviceFixture{
		backend: backend,
		store:   store,
		bus:     bus,
		session: session,
		service: service,
		pool:    pool,
	}
}

// expectEvent waits for one event on the subscription.
func expectEvent(t *testing.T, sub events.Subscription) events.Event {
	t.Helper()
	select {
	case event := <-sub.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

/*
TestLogin_Success establishes and persists a session, and announces it.
*/
func TestLogin_Success(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	loginEvents := fixture.bus.Subscribe(events.TopicLoginSuccess)
	defer loginEvents.Close()

	user, err := fixture.service.Login(ctx, seedEmail, seedPassword)
	require.NoError(t, err)
	assert.Equal(t, "Jonas", user.Name)

	assert.Equal(t, events.TopicLoginSuccess, expectEvent(t, loginEvents).Topic)
	assert.True(t, fixture.session.IsAuthenticated())

	// Session survives in storage.
	_, err = fixture.store.Get(ctx, constants.StorageKeyUser)
	assert.NoError(t, err)
}

/*
TestLogin_WrongCredentials normalizes to INVALID_CREDENTIALS and stores
nothing.
*/
func TestLogin_WrongCredentials(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	_, err := fixture.service.Login(ctx, seedEmail, "wrong-password")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidCredentials))

	assert.False(t, fixture.session.IsAuthenticated())
	_, err = fixture.store.Get(ctx, constants.StorageKeyUser)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

/*
TestLogin_RateLimited rejects the fourth attempt locally with a cooldown.
*/
func TestLogin_RateLimited(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	for i := 0; i < constants.LoginMaxAttempts; i++ {
		_, err := fixture.service.Login(ctx, seedEmail, "wrong-password")
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidCredentials))
	}

	_, err := fixture.service.Login(ctx, seedEmail, "wrong-password")
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.KindRateLimited, ae.Kind)
	assert.Positive(t, ae.RetryAfterSeconds)
}

/*
TestLogin_SuccessResetsLimiter restores the budget after a good login.
*/
func TestLogin_SuccessResetsLimiter(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	_, err := fixture.service.Login(ctx, seedEmail, "wrong-password")
	require.Error(t, err)

	_, err = fixture.service.Login(ctx, seedEmail, seedPassword)
	require.NoError(t, err)

	fixture.service.Logout(ctx)

	// The bucket was reset, so three fresh attempts are available.
	for i := 0; i < constants.LoginMaxAttempts; i++ {
		_, err := fixture.service.Login(ctx, seedEmail, "wrong-password")
		assert.True(t, apperr.IsKind(err, apperr.KindInvalidCredentials))
	}
}

/*
TestRegister_Success enrolls, signs in, and announces the registration.
*/
func TestRegister_Success(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	registered := fixture.bus.Subscribe(events.TopicRegistrationSuccess)
	defer registered.Close()

	user, err := fixture.service.Register(ctx, auth.RegisterInput{
		Type:      auth.AccountIndividual,
		FirstName: "Greta",
		LastName:  "Kazlauskaitė",
		Email:     "greta@example.com",
		Phone:     "+37069876543",
		Password:  "Slaptazodis9!",
	})
	require.NoError(t, err)
	assert.Equal(t, "Greta Kazlauskaitė", user.Name)

	assert.Equal(t, events.TopicRegistrationSuccess, expectEvent(t, registered).Topic)
	assert.True(t, fixture.session.IsAuthenticated())
}

/*
TestRegister_ValidationNeverBurnsAttempts rejects bad input before the
limiter or the network.
*/
func TestRegister_ValidationNeverBurnsAttempts(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	for i := 0; i < constants.RegisterMaxAttempts*2; i++ {
		_, err := fixture.service.Register(ctx, auth.RegisterInput{
			Type:  auth.AccountIndividual,
			Email: "not-an-email",
		})
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	}
}

/*
TestRegister_DuplicateEmail surfaces the backend conflict.
*/
func TestRegister_DuplicateEmail(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	_, err := fixture.service.Register(ctx, auth.RegisterInput{
		Type:      auth.AccountIndividual,
		FirstName: "Jonas",
		LastName:  "Jonaitis",
		Email:     seedEmail,
		Phone:     "+37069876543",
		Password:  "Slaptazodis9!",
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

// requestResetToken drives the forgot-password endpoint directly; the stub
// hands the minted token back in data since it has no mailer.
func requestResetToken(t *testing.T, backendURL, email string) string {
	t.Helper()

	payload, err := json.Marshal(map[string]string{"email": email})
	require.NoError(t, err)

	response, err := http.Post(backendURL+"/api/forgot-password", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer response.Body.Close()

	var body struct {
		Data struct {
			ResetToken string `json:"reset_token"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	require.NotEmpty(t, body.Data.ResetToken)
	return body.Data.ResetToken
}

/*
TestPasswordReset_Flow runs forgot, reset, and a login with the new password.
*/
func TestPasswordReset_Flow(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, fixture.service.ForgotPassword(ctx, seedEmail))
	token := requestResetToken(t, fixture.backend.URL, seedEmail)

	const newPassword = "NaujasSlaptazodis7!"
	require.NoError(t, fixture.service.ResetPassword(ctx, token, newPassword))

	// The old password is dead, the new one works.
	_, err := fixture.service.Login(ctx, seedEmail, seedPassword)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidCredentials))

	user, err := fixture.service.Login(ctx, seedEmail, newPassword)
	require.NoError(t, err)
	assert.Equal(t, "Jonas", user.Name)
}

/*
TestForgotPassword_RateLimited counts every send against the budget; success
never refunds an attempt.
*/
func TestForgotPassword_RateLimited(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	for i := 0; i < constants.PasswordResetMaxAttempts; i++ {
		require.NoError(t, fixture.service.ForgotPassword(ctx, seedEmail))
	}

	err := fixture.service.ForgotPassword(ctx, seedEmail)
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.KindRateLimited, ae.Kind)
	assert.Greater(t, ae.RetryAfterSeconds, 0)
}

/*
TestForgotPassword_ValidatesEmail rejects a malformed address before the
limiter or the network is consulted.
*/
func TestForgotPassword_ValidatesEmail(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	for i := 0; i < constants.PasswordResetMaxAttempts*2; i++ {
		err := fixture.service.ForgotPassword(ctx, "not-an-email")
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	}
}

/*
TestResetPassword_UnknownToken surfaces the backend rejection unchanged.
*/
func TestResetPassword_UnknownToken(t *testing.T) {
	fixture := newServiceFixture(t)

	err := fixture.service.ResetPassword(context.Background(), "bogus-token", "NaujasSlaptazodis7!")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

/*
TestLogout_ClearsSessionEvenWhenBackendIsDown never leaves stale tokens.
*/
func TestLogout_ClearsSessionEvenWhenBackendIsDown(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	_, err := fixture.service.Login(ctx, seedEmail, seedPassword)
	require.NoError(t, err)

	fixture.backend.Close()
	fixture.service.Logout(ctx)

	assert.False(t, fixture.session.IsAuthenticated())
	_, err = fixture.store.Get(ctx, constants.StorageKeyUser)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

/*
TestDeleteAccount removes the account and the local session.
*/
func TestDeleteAccount(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	_, err := fixture.service.Login(ctx, seedEmail, seedPassword)
	require.NoError(t, err)

	require.NoError(t, fixture.service.DeleteAccount(ctx))
	assert.False(t, fixture.session.IsAuthenticated())

	// The credentials are gone for good.
	_, err = fixture.service.Login(ctx, seedEmail, seedPassword)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidCredentials))
}

/*
TestVote_DeferredUntilLogin parks the vote and replays it exactly once after
the next successful login.
*/
func TestVote_DeferredUntilLogin(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	showLogin := fixture.bus.Subscribe(events.TopicShowLogin)
	defer showLogin.Close()
	voted := fixture.bus.Subscribe(events.TopicModuleVoted)
	defer voted.Close()

	err := fixture.pool.Vote(ctx, 1, "en")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
	assert.Equal(t, events.TopicShowLogin, expectEvent(t, showLogin).Topic)

	// Re-park the same intent with a completion hook attached.
	replayed := false
	fixture.service.Pending().Defer(auth.PendingAction{
		Type:            auth.ActionVote,
		ModuleRequestID: 1,
		Language:        "en",
		OnComplete:      func() { replayed = true },
	})

	_, err = fixture.service.Login(ctx, seedEmail, seedPassword)
	require.NoError(t, err)

	event := expectEvent(t, voted)
	require.NotNil(t, event.Vote)
	assert.Equal(t, int64(1), event.Vote.ModuleRequestID)
	assert.Equal(t, 1, event.Vote.Votes)
	assert.True(t, replayed)

	// The slot is empty; a second login replays nothing.
	assert.Nil(t, fixture.service.Pending().Peek())
}

/*
TestVote_DuplicateConflict downgrades the second vote to a warning toast.
*/
func TestVote_DuplicateConflict(t *testing.T) {
	fixture := newServiceFixture(t)
	ctx := context.Background()

	_, err := fixture.service.Login(ctx, seedEmail, seedPassword)
	require.NoError(t, err)

	require.NoError(t, fixture.pool.Vote(ctx, 1, "en"))

	toasts := fixture.bus.Subscribe(events.TopicToast)
	defer toasts.Close()

	err = fixture.pool.Vote(ctx, 1, "en")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	toast := expectEvent(t, toasts)
	require.NotNil(t, toast.Toast)
	assert.Equal(t, events.ToastWarning, toast.Toast.Type)
}
