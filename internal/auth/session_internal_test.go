// Copyright (c) 2026 Howkings. All rights reserved.

package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/howkings/howkings-go/internal/platform/events"
	"github.com/howkings/howkings-go/internal/platform/kv"
	"github.com/howkings/howkings-go/internal/transport"
)

func mintToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": expiry.Unix(),
	}).SignedString([]byte("any-key"))
	require.NoError(t, err)
	return token
}

// newTickFixture wires a manager with an adopted session for driving the
// revalidation tick by hand.
func newTickFixture(t *testing.T, handler http.Handler) (*Manager, *CredentialStore, *httptest.Server, events.Bus) {
	t.Helper()

	backend := httptest.NewServer(handler)
	t.Cleanup(backend.Close)

	bus := events.NewMemBus(events.MemBusConfig{})
	t.Cleanup(func() { _ = bus.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := transport.NewClient(backend.URL, bus, logger)
	require.NoError(t, err)

	creds := NewCredentialStore(kv.NewMemoryStore(), nil, logger)
	manager := NewManager(creds, NewInspector(), client, bus, logger)
	client.BindTokenSource(manager)

	return manager, creds, backend, bus
}

func answerJSON(writer http.ResponseWriter, status int, body map[string]any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(body)
}

/*
TestRevalidateTick_RejectedTokenRefreshes covers a live-looking token the
backend no longer accepts: the tick falls back to a silent refresh and adopts
the rotated pair.
*/
func TestRevalidateTick_RejectedTokenRefreshes(t *testing.T) {
	newAccess := mintToken(t, time.Now().Add(time.Hour))

	manager, _, _, _ := newTickFixture(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/api/validate-token":
			answerJSON(writer, http.StatusUnauthorized, map[string]any{
				"status": "error", "message": "Unauthenticated",
			})
		case "/auth/refresh-token":
			answerJSON(writer, http.StatusOK, map[string]any{
				"status": "success",
				"tokens": map[string]string{"access_token": newAccess, "refresh_token": "refresh-2"},
			})
		default:
			t.Errorf("unexpected request to %s", request.URL.Path)
		}
	}))

	ctx := context.Background()
	live := mintToken(t, time.Now().Add(time.Hour))
	require.NoError(t, manager.EstablishSession(ctx, &User{ID: 1, Name: "Jonas"}, TokenPair{
		AccessToken:  live,
		RefreshToken: "refresh-1",
	}))

	manager.revalidateTick()

	assert.Equal(t, newAccess, manager.AccessToken(ctx))
	assert.True(t, manager.IsAuthenticated())
}

/*
TestRevalidateTick_OutageKeepsSession leaves the session alone when the
backend is unreachable; the next tick retries.
*/
func TestRevalidateTick_OutageKeepsSession(t *testing.T) {
	manager, creds, backend, bus := newTickFixture(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	ctx := context.Background()
	live := mintToken(t, time.Now().Add(time.Hour))
	require.NoError(t, manager.EstablishSession(ctx, &User{ID: 1, Name: "Jonas"}, TokenPair{
		AccessToken:  live,
		RefreshToken: "refresh-1",
	}))

	invalid := bus.Subscribe(events.TopicTokenInvalid)
	defer invalid.Close()

	backend.Close()
	manager.revalidateTick()

	assert.True(t, manager.IsAuthenticated())
	stored, err := creds.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)

	select {
	case <-invalid.Events():
		t.Fatal("an outage must not invalidate the session")
	case <-time.After(50 * time.Millisecond):
	}
}

/*
TestRevalidateTick_RejectedRefreshClears gives up once the backend rejects
both the token and its refresh, clearing storage and announcing the loss.
*/
func TestRevalidateTick_RejectedRefreshClears(t *testing.T) {
	manager, creds, _, bus := newTickFixture(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		answerJSON(writer, http.StatusUnauthorized, map[string]any{
			"status": "error", "message": "Unauthenticated",
		})
	}))

	ctx := context.Background()
	live := mintToken(t, time.Now().Add(time.Hour))
	require.NoError(t, manager.EstablishSession(ctx, &User{ID: 1, Name: "Jonas"}, TokenPair{
		AccessToken:  live,
		RefreshToken: "refresh-dead",
	}))

	invalid := bus.Subscribe(events.TopicTokenInvalid)
	defer invalid.Close()

	manager.revalidateTick()

	assert.False(t, manager.IsAuthenticated())
	stored, err := creds.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)

	select {
	case <-invalid.Events():
	case <-time.After(time.Second):
		t.Fatal("expected a token-invalid signal")
	}
}
