// Copyright (c) 2026 Howkings. All rights reserved.

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/howkings/howkings-go/internal/auth"
	"github.com/howkings/howkings-go/internal/platform/events"
	"github.com/howkings/howkings-go/internal/platform/kv"
	"github.com/howkings/howkings-go/internal/transport"
)

// sessionFixture bundles a manager wired against a scripted backend.
type sessionFixture struct {
	manager *auth.Manager
	creds   *auth.CredentialStore
	store   kv.Store
	bus     events.Bus
	backend *httptest.Server
}

func newSessionFixture(t *testing.T, handler http.Handler) *sessionFixture {
	t.Helper()

	backend := httptest.NewServer(handler)
	t.Cleanup(backend.Close)

	bus := events.NewMemBus(events.MemBusConfig{})
	t.Cleanup(func() { _ = bus.Close() })

	client, err := transport.NewClient(backend.URL, bus, discardLogger())
	require.NoError(t, err)

	store := kv.NewMemoryStore()
	creds := auth.NewCredentialStore(store, nil, discardLogger())
	manager := auth.NewManager(creds, auth.NewInspector(), client, bus, discardLogger())
	client.BindTokenSource(manager)

	return &sessionFixture{manager: manager, creds: creds, store: store, bus: bus, backend: backend}
}

func writeEnvelope(writer http.ResponseWriter, status int, body map[string]any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(body)
}

/*
TestBootstrap_NoStoredSession lands in the anonymous state.
*/
func TestBootstrap_NoStoredSession(t *testing.T) {
	fixture := newSessionFixture(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		t.Errorf("unexpected request to %s", request.URL.Path)
	}))

	state, err := fixture.manager.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, auth.StateAnonymous, state)
	assert.False(t, fixture.manager.IsAuthenticated())
	assert.Nil(t, fixture.manager.CurrentUser())
}

/*
TestBootstrap_ValidToken restores a session with a live token without
touching the backend.
*/
func TestBootstrap_ValidToken(t *testing.T) {
	fixture := newSessionFixture(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		t.Errorf("unexpected request to %s", request.URL.Path)
	}))

	ctx := context.Background()
	token := signedToken(t, time.Now().Add(time.Hour))
	require.NoError(t, fixture.creds.Save(ctx, testUser(), token, "refresh-1"))

	state, err := fixture.manager.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.StateAuthenticated, state)
	assert.True(t, fixture.manager.IsAuthenticated())
	assert.Equal(t, "Jonas", fixture.manager.CurrentUser().Name)
	assert.Equal(t, token, fixture.manager.AccessToken(ctx))
}

/*
TestBootstrap_OfflineRestoresLiveToken keeps a fresh session usable when the
backend is unreachable at startup.
*/
func TestBootstrap_OfflineRestoresLiveToken(t *testing.T) {
	fixture := newSessionFixture(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	fixture.backend.Close()

	ctx := context.Background()
	token := signedToken(t, time.Now().Add(time.Hour))
	require.NoError(t, fixture.creds.Save(ctx, testUser(), token, "refresh-1"))

	state, err := fixture.manager.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.StateAuthenticated, state)
	assert.True(t, fixture.manager.IsAuthenticated())
}

/*
TestBootstrap_OfflineKeepsExpiredSessionStored degrades to anonymous when the
refresh cannot reach the backend, but leaves the persisted session in place
for the next start.
*/
func TestBootstrap_OfflineKeepsExpiredSessionStored(t *testing.T) {
	fixture := newSessionFixture(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	fixture.backend.Close()

	ctx := context.Background()
	expired := signedToken(t, time.Now().Add(-time.Hour))
	require.NoError(t, fixture.creds.Save(ctx, testUser(), expired, "refresh-1"))

	state, err := fixture.manager.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.StateAnonymous, state)

	stored, err := fixture.creds.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "refresh-1", stored.RefreshToken)
}

/*
TestBootstrap_ExpiredTokenRefreshes exchanges the refresh token silently.
*/
func TestBootstrap_ExpiredTokenRefreshes(t *testing.T) {
	newAccess := signedToken(t, time.Now().Add(time.Hour))

	fixture := newSessionFixture(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "/auth/refresh-token", request.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(request.Body).Decode(&body))
		require.Equal(t, "refresh-1", body["refresh_token"])

		writeEnvelope(writer, http.StatusOK, map[string]any{
			"status": "success",
			"tokens": map[string]string{"access_token": newAccess, "refresh_token": "refresh-2"},
		})
	}))

	ctx := context.Background()
	expired := signedToken(t, time.Now().Add(-time.Hour))
	require.NoError(t, fixture.creds.Save(ctx, testUser(), expired, "refresh-1"))

	state, err := fixture.manager.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.StateAuthenticated, state)
	assert.Equal(t, newAccess, fixture.manager.AccessToken(ctx))

	// The rotated pair is persisted.
	stored, err := fixture.creds.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "refresh-2", stored.RefreshToken)
}

/*
TestBootstrap_RefreshRejected degrades to anonymous and clears storage.
*/
func TestBootstrap_RefreshRejected(t *testing.T) {
	fixture := newSessionFixture(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeEnvelope(writer, http.StatusUnauthorized, map[string]any{
			"status": "error", "message": "Unauthenticated",
		})
	}))

	ctx := context.Background()
	expired := signedToken(t, time.Now().Add(-time.Hour))
	require.NoError(t, fixture.creds.Save(ctx, testUser(), expired, "refresh-dead"))

	state, err := fixture.manager.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.StateAnonymous, state)

	stored, err := fixture.creds.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

/*
TestBootstrap_SingleFlight coalesces concurrent bootstraps into one backend
round trip.
*/
func TestBootstrap_SingleFlight(t *testing.T) {
	var refreshCalls atomic.Int32
	newAccess := signedToken(t, time.Now().Add(time.Hour))

	fixture := newSessionFixture(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "/auth/refresh-token", request.URL.Path)
		refreshCalls.Add(1)
		time.Sleep(100 * time.Millisecond)
		writeEnvelope(writer, http.StatusOK, map[string]any{
			"status": "success",
			"tokens": map[string]string{"access_token": newAccess, "refresh_token": "refresh-2"},
		})
	}))

	ctx := context.Background()
	expired := signedToken(t, time.Now().Add(-time.Hour))
	require.NoError(t, fixture.creds.Save(ctx, testUser(), expired, "refresh-1"))

	var wg sync.WaitGroup
	states := make([]auth.State, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			state, err := fixture.manager.Bootstrap(ctx)
			assert.NoError(t, err)
			states[slot] = state
		}(i)
	}
	wg.Wait()

	for _, state := range states {
		assert.Equal(t, auth.StateAuthenticated, state)
	}
	assert.Equal(t, int32(1), refreshCalls.Load())
}

/*
TestInvalidateAccessToken drops only the access token.
*/
func TestInvalidateAccessToken(t *testing.T) {
	fixture := newSessionFixture(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeEnvelope(writer, http.StatusOK, map[string]any{"status": "success"})
	}))

	ctx := context.Background()
	token := signedToken(t, time.Now().Add(time.Hour))
	require.NoError(t, fixture.manager.EstablishSession(ctx, testUser(), auth.TokenPair{
		AccessToken:  token,
		RefreshToken: "refresh-1",
	}))

	fixture.manager.InvalidateAccessToken(ctx)

	assert.Empty(t, fixture.manager.AccessToken(ctx))
	assert.False(t, fixture.manager.IsAuthenticated())
	assert.NotNil(t, fixture.manager.CurrentUser())
}

/*
TestIsAuthenticated_Derived stops counting once the token expires.
*/
func TestIsAuthenticated_Derived(t *testing.T) {
	fixture := newSessionFixture(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writeEnvelope(writer, http.StatusOK, map[string]any{"status": "success"})
	}))

	ctx := context.Background()
	expired := signedToken(t, time.Now().Add(-time.Minute))
	require.NoError(t, fixture.manager.EstablishSession(ctx, testUser(), auth.TokenPair{
		AccessToken:  expired,
		RefreshToken: "refresh-1",
	}))

	assert.False(t, fixture.manager.IsAuthenticated())
}
