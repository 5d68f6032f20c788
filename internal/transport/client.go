// Copyright (c) 2026 Howkings. All rights reserved.

/*
Package transport implements the HTTP client the Howkings SDK talks to the
backend with.

Every request flows through a single interceptor chain that attaches the
bearer token, CSRF header and correlation ID on the way out, and normalizes
failures into the [apperr] taxonomy on the way back. When the backend rejects
a request as unauthenticated, the chain clears the stale access token, asks
the UI (over the event bus) to show the login form, waits for a successful
re-login bounded by a deadline, and replays the original request exactly once.

Auth-flow requests themselves (login, register, refresh) opt out of the
re-auth interception with [WithoutReauth], otherwise a failed login would
recurse into itself.
*/
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/howkings/howkings-go/internal/platform/apperr"
	"github.com/howkings/howkings-go/internal/platform/constants"
	"github.com/howkings/howkings-go/internal/platform/events"
)

// TokenSource supplies the bearer credential for outgoing requests.
//
// The session manager implements it. The indirection exists because the
// session manager also sends requests through this client; binding happens
// after both sides are constructed.
type TokenSource interface {
	// AccessToken returns the current access token, or "" for anonymous.
	AccessToken(ctx context.Context) string

	// InvalidateAccessToken discards the access token after the backend has
	// rejected it, leaving the refresh token untouched.
	InvalidateAccessToken(ctx context.Context)
}

// Envelope is the backend's uniform response shape.
//
// Data stays raw so each caller decodes only the slice it understands.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`

	// Tokens appears top-level only on the refresh endpoint.
	Tokens json.RawMessage `json:"tokens,omitempty"`

	// Meta carries pagination info on list endpoints.
	Meta json.RawMessage `json:"meta,omitempty"`

	// HTTPStatus is the status code the envelope arrived with.
	HTTPStatus int `json:"-"`
}

// Client is the interceptor-wrapped HTTP client.
type Client struct {
	baseURL string
	http    *http.Client
	bus     events.Bus
	tokens  TokenSource
	logger  *slog.Logger

	// reloginWait bounds how long an intercepted request waits for the user
	// to complete a new login.
	reloginWait time.Duration
}

// NewClient builds the client against the given base URL.
//
// The cookie jar is mandatory: CSRF protection rides on the XSRF-TOKEN
// cookie the backend sets, and the jar is what carries it between calls.
func NewClient(baseURL string, bus events.Bus, logger *slog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("transport: cookie jar: %w", err)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: constants.DefaultRequestTimeout,
		},
		bus:         bus,
		logger:      logger,
		reloginWait: constants.ReloginWait,
	}, nil
}

// BindTokenSource attaches the session manager after construction.
func (client *Client) BindTokenSource(tokens TokenSource) {
	client.tokens = tokens
}

// # Context Flags

type ctxKey int

const (
	ctxKeyWithoutReauth ctxKey = iota
	ctxKeyRetried
)

// WithoutReauth marks the request as part of the auth flow itself, so an
// Unauthenticated response is returned to the caller instead of triggering
// the show-login-and-replay interception.
func WithoutReauth(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeyWithoutReauth, true)
}

func isWithoutReauth(ctx context.Context) bool {
	flagged, _ := ctx.Value(ctxKeyWithoutReauth).(bool)
	return flagged
}

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKeyRetried, true)
}

func isRetried(ctx context.Context) bool {
	retried, _ := ctx.Value(ctxKeyRetried).(bool)
	return retried
}

// # Request Pipeline

// Do sends one request through the interceptor chain.
//
// body is JSON-marshaled when non-nil. The returned envelope is non-nil only
// on success (2xx); every failure comes back as an [*apperr.AppError].
func (client *Client) Do(ctx context.Context, method, path string, body any) (*Envelope, error) {
	// 1. Marshal the body once so the request can be rebuilt on replay.
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("transport: marshal body: %w", err)
		}
	}

	envelope, err := client.send(ctx, method, path, payload)
	if err == nil {
		return envelope, nil
	}

	// 2. Decide whether this failure should trigger the re-auth flow.
	if !client.shouldReauth(ctx, err) {
		return nil, err
	}

	// 3. Drop the rejected token, ask for a login, and wait for it.
	client.tokens.InvalidateAccessToken(ctx)
	if waitErr := client.awaitRelogin(ctx); waitErr != nil {
		return nil, waitErr
	}

	// 4. Replay exactly once; a second rejection propagates.
	client.logger.Info("request_replayed_after_relogin",
		slog.String("method", method),
		slog.String("path", path),
	)
	return client.send(markRetried(ctx), method, path, payload)
}

// send performs one round trip and normalizes the outcome.
func (client *Client) send(ctx context.Context, method, path string, payload []byte) (*Envelope, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}

	client.decorate(ctx, request)

	response, err := client.http.Do(request)
	if err != nil {
		client.logger.Warn("request_network_failure",
			slog.String("method", method),
			slog.String("path", path),
			slog.Any("error", err),
		)
		return nil, apperr.Network(err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, apperr.Network(err)
	}

	envelope := &Envelope{HTTPStatus: response.StatusCode}
	if len(raw) > 0 {
		// A non-JSON body is tolerated; the status code still classifies it.
		_ = json.Unmarshal(raw, envelope)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return envelope, nil
	}

	return nil, normalize(envelope)
}

// decorate attaches the outgoing headers: content negotiation, correlation
// ID, bearer token and the CSRF echo.
func (client *Client) decorate(ctx context.Context, request *http.Request) {
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	request.Header.Set(constants.HeaderXRequestID, uuid.NewString())

	if client.tokens != nil {
		if token := client.tokens.AccessToken(ctx); token != "" {
			request.Header.Set(constants.HeaderAuthorization, "Bearer "+token)
		}
	}

	if csrf := client.csrfCookie(); csrf != "" {
		request.Header.Set(constants.HeaderCSRFToken, csrf)
	}
}

// shouldReauth reports whether the failed request qualifies for the
// show-login-and-replay flow.
func (client *Client) shouldReauth(ctx context.Context, err error) bool {
	if client.tokens == nil || isWithoutReauth(ctx) || isRetried(ctx) {
		return false
	}
	return apperr.IsKind(err, apperr.KindUnauthenticated)
}

// awaitRelogin publishes the show-login signal and blocks until a login or
// registration succeeds, the wait window elapses, or ctx is done.
//
// The subscription is opened before the signal is published so a login that
// completes immediately cannot be missed.
func (client *Client) awaitRelogin(ctx context.Context) error {
	subscription := client.bus.Subscribe(events.TopicLoginSuccess, events.TopicRegistrationSuccess)
	defer subscription.Close()

	client.bus.Publish(events.Event{Topic: events.TopicShowLogin, Time: time.Now()})

	timer := time.NewTimer(client.reloginWait)
	defer timer.Stop()

	select {
	case _, ok := <-subscription.Events():
		if !ok {
			return apperr.Unauthenticated("Session expired")
		}
		return nil
	case <-timer.C:
		return apperr.Unauthenticated("Login timed out")
	case <-ctx.Done():
		return apperr.Unauthenticated("Session expired")
	}
}

// normalize maps a non-2xx envelope onto the error taxonomy.
func normalize(envelope *Envelope) error {
	switch {
	case envelope.HTTPStatus == http.StatusUnauthorized,
		envelope.Message == constants.UnauthenticatedMessage:
		err := apperr.Unauthenticated(envelope.Message)
		err.HTTPStatus = envelope.HTTPStatus
		return err

	case envelope.HTTPStatus == http.StatusConflict:
		return apperr.Conflict(envelope.Message)

	case envelope.HTTPStatus == http.StatusUnprocessableEntity:
		return apperr.Validation(envelope.Message, decodeFieldErrors(envelope.Data)...)

	default:
		return apperr.Server(envelope.HTTPStatus, envelope.Message)
	}
}

// decodeFieldErrors flattens the backend's {"errors": {field: [msgs]}} shape.
func decodeFieldErrors(data json.RawMessage) []apperr.FieldError {
	if len(data) == 0 {
		return nil
	}

	var body struct {
		Errors map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil
	}

	var details []apperr.FieldError
	for field, messages := range body.Errors {
		for _, message := range messages {
			details = append(details, apperr.FieldError{Field: field, Message: message})
		}
	}
	return details
}

// # Shorthand Verbs

// Get sends a GET request with optional query parameters.
func (client *Client) Get(ctx context.Context, path string, query url.Values) (*Envelope, error) {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return client.Do(ctx, http.MethodGet, path, nil)
}

// Post sends a POST request with a JSON body.
func (client *Client) Post(ctx context.Context, path string, body any) (*Envelope, error) {
	return client.Do(ctx, http.MethodPost, path, body)
}

// Delete sends a DELETE request.
func (client *Client) Delete(ctx context.Context, path string) (*Envelope, error) {
	return client.Do(ctx, http.MethodDelete, path, nil)
}
