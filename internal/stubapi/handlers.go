// Copyright (c) 2026 Howkings. All rights reserved.

package stubapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/howkings/howkings-go/internal/auth"
	"github.com/howkings/howkings-go/internal/platform/constants"
	"github.com/howkings/howkings-go/internal/platform/validate"
	"github.com/howkings/howkings-go/pkg/pagination"
	"github.com/howkings/howkings-go/pkg/slug"
)

// Handler carries the stub's dependencies into the route functions.
type Handler struct {
	store  *memoryStore
	issuer *tokenIssuer
	logger *slog.Logger
}

func newHandler(store *memoryStore, issuer *tokenIssuer, logger *slog.Logger) *Handler {
	return &Handler{store: store, issuer: issuer, logger: logger}
}

// # Auth Helpers

// authenticatedUser resolves the bearer token to an account. The zero
// account and false mean the request is anonymous or carries a dead token.
func (handler *Handler) authenticatedUser(request *http.Request) (*account, bool) {
	header := request.Header.Get(constants.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return nil, false
	}

	userID, err := handler.issuer.verify(token)
	if err != nil {
		return nil, false
	}

	member, err := handler.store.account(userID)
	if err != nil {
		return nil, false
	}
	return member, true
}

func userPayload(member *account) *auth.User {
	return &auth.User{ID: member.ID, Name: member.Name, Email: member.Email}
}

// issuePair mints and binds a fresh token pair for the account.
func (handler *Handler) issuePair(member *account) (auth.TokenPair, error) {
	access, err := handler.issuer.issueAccess(member.ID, member.Name)
	if err != nil {
		return auth.TokenPair{}, err
	}

	refresh := handler.issuer.issueRefresh()
	handler.store.bindRefresh(refresh, member.ID)
	return auth.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// failValidation writes a 422 whose data carries the per-field error map the
// SDK merges back into its form state.
func failValidation(writer http.ResponseWriter, fields map[string][]string) {
	writeJSON(writer, http.StatusUnprocessableEntity, envelope{
		Status:  constants.StatusError,
		Message: "Validation failed",
		Data:    map[string]any{"errors": fields},
	})
}

// # Session Endpoints

// Login handles POST /api/login.
func (handler *Handler) Login(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		fail(writer, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	member, err := handler.store.authenticate(body.Email, body.Password)
	if err != nil {
		fail(writer, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	tokens, err := handler.issuePair(member)
	if err != nil {
		fail(writer, http.StatusInternalServerError, "Token issuance failed")
		return
	}

	handler.logger.Info("stub_login", slog.Int64("user_id", member.ID))
	ok(writer, "Login successful", map[string]any{
		"user":   userPayload(member),
		"tokens": tokens,
	})
}

// Register handles POST /api/register.
func (handler *Handler) Register(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		FirstName        string `json:"firstName"`
		LastName         string `json:"lastName"`
		OrganizationName string `json:"organizationName"`
		Email            string `json:"email"`
		Phone            string `json:"phone"`
		Password         string `json:"password"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		fail(writer, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	var v validate.Validator
	if body.OrganizationName != "" {
		v.Name("organizationName", body.OrganizationName)
	} else {
		v.Required("firstName", body.FirstName).
			Name("firstName", body.FirstName).
			Required("lastName", body.LastName).
			Name("lastName", body.LastName)
	}
	v.Required("email", body.Email).
		Email("email", body.Email).
		Required("phone", body.Phone).
		Phone("phone", body.Phone).
		Password("password", body.Password)

	if v.HasErrors() {
		fields := make(map[string][]string)
		for _, fieldErr := range v.Fields() {
			fields[fieldErr.Field] = append(fields[fieldErr.Field], fieldErr.Message)
		}
		failValidation(writer, fields)
		return
	}

	name := body.OrganizationName
	if name == "" {
		name = body.FirstName + " " + body.LastName
	}

	member, err := handler.store.createAccount(name, body.Email, body.Phone, body.Password)
	if err != nil {
		if errors.Is(err, errEmailTaken) {
			fail(writer, http.StatusConflict, "This email is already registered")
			return
		}
		fail(writer, http.StatusInternalServerError, "Registration failed")
		return
	}

	tokens, err := handler.issuePair(member)
	if err != nil {
		fail(writer, http.StatusInternalServerError, "Token issuance failed")
		return
	}

	handler.logger.Info("stub_register", slog.Int64("user_id", member.ID))
	created(writer, "Registration successful", map[string]any{
		"user":   userPayload(member),
		"tokens": tokens,
	})
}

// ForgotPassword handles POST /api/forgot-password.
//
// The answer is the same whether or not the email is registered. Because the
// stub has no mailer, a minted token rides along in data so the development
// flow can be completed end to end.
func (handler *Handler) ForgotPassword(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		fail(writer, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	var v validate.Validator
	v.Required("email", body.Email).Email("email", body.Email)
	if v.HasErrors() {
		failValidation(writer, map[string][]string{"email": {"Must be a valid email address"}})
		return
	}

	const message = "If that email is registered, reset instructions have been sent"

	token := uuid.NewString()
	if !handler.store.bindResetToken(token, body.Email) {
		ok(writer, message, nil)
		return
	}

	handler.logger.Info("stub_password_reset_requested")
	ok(writer, message, map[string]string{"reset_token": token})
}

// ResetPassword handles POST /api/reset-password. The token is single use;
// redeeming it swaps the password and revokes the account's refresh tokens.
func (handler *Handler) ResetPassword(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		fail(writer, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	var v validate.Validator
	v.Required("token", body.Token).Password("password", body.Password)
	if v.HasErrors() {
		fields := make(map[string][]string)
		for _, fieldErr := range v.Fields() {
			fields[fieldErr.Field] = append(fields[fieldErr.Field], fieldErr.Message)
		}
		failValidation(writer, fields)
		return
	}

	userID, err := handler.store.consumeResetToken(body.Token)
	if err != nil {
		fail(writer, http.StatusUnprocessableEntity, "This reset link is invalid or has expired")
		return
	}

	if err := handler.store.updatePassword(userID, body.Password); err != nil {
		fail(writer, http.StatusInternalServerError, "Password update failed")
		return
	}

	handler.logger.Info("stub_password_reset_completed", slog.Int64("user_id", userID))
	ok(writer, "Password updated", nil)
}

// Logout handles POST /api/logout. Anonymous calls succeed too: logout must
// be idempotent from the client's point of view.
func (handler *Handler) Logout(writer http.ResponseWriter, request *http.Request) {
	if member, authed := handler.authenticatedUser(request); authed {
		handler.store.revokeRefreshFor(member.ID)
		handler.logger.Info("stub_logout", slog.Int64("user_id", member.ID))
	}
	ok(writer, "Logged out", nil)
}

// ValidateToken handles GET /api/validate-token.
func (handler *Handler) ValidateToken(writer http.ResponseWriter, request *http.Request) {
	member, authed := handler.authenticatedUser(request)
	if !authed {
		unauthenticated(writer)
		return
	}
	ok(writer, "Token is valid", map[string]any{"user": userPayload(member)})
}

// Refresh handles POST /auth/refresh-token. Refresh tokens rotate: the
// presented token is consumed and a fresh pair is returned at the envelope's
// top level.
func (handler *Handler) Refresh(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		fail(writer, http.StatusBadRequest, "Missing refresh token")
		return
	}

	userID, err := handler.store.rotateRefresh(body.RefreshToken)
	if err != nil {
		unauthenticated(writer)
		return
	}

	member, err := handler.store.account(userID)
	if err != nil {
		unauthenticated(writer)
		return
	}

	tokens, err := handler.issuePair(member)
	if err != nil {
		fail(writer, http.StatusInternalServerError, "Token issuance failed")
		return
	}

	handler.logger.Info("stub_token_refreshed", slog.Int64("user_id", member.ID))
	writeJSON(writer, http.StatusOK, envelope{
		Status: constants.StatusSuccess,
		Tokens: tokens,
	})
}

// DeleteAccount handles DELETE /auth/account.
func (handler *Handler) DeleteAccount(writer http.ResponseWriter, request *http.Request) {
	member, authed := handler.authenticatedUser(request)
	if !authed {
		unauthenticated(writer)
		return
	}

	if err := handler.store.deleteAccount(member.ID); err != nil {
		fail(writer, http.StatusInternalServerError, "Deletion failed")
		return
	}

	handler.logger.Info("stub_account_deleted", slog.Int64("user_id", member.ID))
	ok(writer, "Account deleted", nil)
}

// CSRFToken handles GET /api/csrf-token: it primes the double-submit cookie.
// The cookie is deliberately not HttpOnly so the client can echo it back.
func (handler *Handler) CSRFToken(writer http.ResponseWriter, request *http.Request) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.CSRFCookieName,
		Value:    uuid.NewString(),
		Path:     "/",
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
	ok(writer, "CSRF cookie set", nil)
}

// # Request Pool Endpoints

// ListRequests handles GET /api/module-requests.
func (handler *Handler) ListRequests(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	page, total := handler.store.listRequests(params.Offset(), params.Limit)
	paginated(writer, page, pagination.NewMeta(params.Page, params.Limit, total))
}

// CreateRequest handles POST /api/module-requests.
func (handler *Handler) CreateRequest(writer http.ResponseWriter, request *http.Request) {
	if _, authed := handler.authenticatedUser(request); !authed {
		unauthenticated(writer)
		return
	}

	var body struct {
		ModuleName  string   `json:"module_name"`
		Description string   `json:"description"`
		Language    string   `json:"language"`
		Tags        []string `json:"tags"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		fail(writer, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	var v validate.Validator
	v.Required("module_name", body.ModuleName).
		Required("description", body.Description).
		Required("language", body.Language)
	if v.HasErrors() {
		fields := make(map[string][]string)
		for _, fieldErr := range v.Fields() {
			fields[fieldErr.Field] = append(fields[fieldErr.Field], fieldErr.Message)
		}
		failValidation(writer, fields)
		return
	}

	stored := handler.store.createRequest(body.ModuleName, body.Description, body.Language, slug.Tags(body.Tags))
	handler.logger.Info("stub_request_created", slog.Int64("module_request_id", stored.ID))
	created(writer, "Request created", stored)
}

// Vote handles POST /api/module-requests/vote. A repeat vote for the same
// request and language returns 409.
func (handler *Handler) Vote(writer http.ResponseWriter, request *http.Request) {
	member, authed := handler.authenticatedUser(request)
	if !authed {
		unauthenticated(writer)
		return
	}

	var body struct {
		ModuleRequestID int64  `json:"module_request_id"`
		Language        string `json:"language"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		fail(writer, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	votes, err := handler.store.vote(body.ModuleRequestID, member.ID, body.Language)
	switch {
	case errors.Is(err, errDuplicateVote):
		fail(writer, http.StatusConflict, "You have already voted for this request")
		return
	case errors.Is(err, errUnknownRequest):
		fail(writer, http.StatusNotFound, "Module request not found")
		return
	case err != nil:
		fail(writer, http.StatusInternalServerError, "Vote failed")
		return
	}

	handler.logger.Info("stub_vote_recorded",
		slog.Int64("module_request_id", body.ModuleRequestID),
		slog.Int64("user_id", member.ID),
	)
	ok(writer, "Vote recorded", map[string]int{"votes": votes})
}
