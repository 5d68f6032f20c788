// Copyright (c) 2026 Howkings. All rights reserved.

/*
Package modulepool implements the request-pool client: listing community
module requests, submitting new ones, and voting.

Voting and submission require a session. When none exists the intent is not
dropped: it is parked in the pending-action queue, the login form is
requested over the bus, and the auth layer replays the intent after the next
successful login. The package therefore also implements [auth.Dispatcher].
*/
package modulepool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/howkings/howkings-go/internal/auth"
	"github.com/howkings/howkings-go/internal/platform/apperr"
	"github.com/howkings/howkings-go/internal/platform/events"
	"github.com/howkings/howkings-go/internal/platform/validate"
	"github.com/howkings/howkings-go/internal/transport"
	"github.com/howkings/howkings-go/pkg/pagination"
	"github.com/howkings/howkings-go/pkg/slug"
)

// ModuleRequest is one entry in the community request pool.
type ModuleRequest struct {
	ID          int64     `json:"id"`
	ModuleName  string    `json:"module_name"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Tags        []string  `json:"tags"`
	Votes       int       `json:"votes"`
	CreatedAt   time.Time `json:"created_at"`
}

// SessionChecker is the slice of the session manager this package needs.
type SessionChecker interface {
	IsAuthenticated() bool
}

// Service exposes the request-pool operations.
type Service struct {
	client  *transport.Client
	bus     events.Bus
	pending *auth.Queue
	session SessionChecker
	logger  *slog.Logger
}

// NewService wires the request-pool client.
func NewService(client *transport.Client, bus events.Bus, pending *auth.Queue, session SessionChecker, logger *slog.Logger) *Service {
	return &Service{
		client:  client,
		bus:     bus,
		pending: pending,
		session: session,
		logger:  logger,
	}
}

// # Listing

// List fetches one page of the request pool. No session required.
func (service *Service) List(ctx context.Context, params pagination.Params) ([]ModuleRequest, pagination.Meta, error) {
	envelope, err := service.client.Get(ctx, "/api/module-requests", params.Query())
	if err != nil {
		return nil, pagination.Meta{}, err
	}

	var requests []ModuleRequest
	if err := json.Unmarshal(envelope.Data, &requests); err != nil {
		return nil, pagination.Meta{}, apperr.Server(0, "Malformed request-pool payload")
	}

	var meta pagination.Meta
	if len(envelope.Meta) > 0 {
		_ = json.Unmarshal(envelope.Meta, &meta)
	}

	return requests, meta, nil
}

// # Voting

// Vote records the user's vote for a module request in a given language.
//
// Without a session the vote is deferred, the login form is requested, and
// UNAUTHENTICATED is returned so the caller knows nothing was recorded yet.
// A duplicate vote surfaces as a warning, not an error dialog.
func (service *Service) Vote(ctx context.Context, moduleRequestID int64, language string) error {
	if !service.session.IsAuthenticated() {
		displaced := service.pending.Defer(auth.PendingAction{
			Type:            auth.ActionVote,
			ModuleRequestID: moduleRequestID,
			Language:        language,
		})
		if displaced != nil {
			service.logger.Info("pending_action_displaced", slog.String("type", string(displaced.Type)))
		}

		service.bus.Publish(events.Event{Topic: events.TopicShowLogin, Time: time.Now()})
		return apperr.Unauthenticated("Sign in to vote")
	}

	votes, err := service.submitVote(ctx, moduleRequestID, language)
	if err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			events.PublishToast(service.bus, "You have already voted for this request", events.ToastWarning)
		}
		return err
	}

	events.PublishToast(service.bus, "Vote recorded", events.ToastSuccess)
	service.logger.Info("module_vote_recorded",
		slog.Int64("module_request_id", moduleRequestID),
		slog.Int("votes", votes),
	)
	return nil
}

// submitVote performs the network call and announces the new tally.
func (service *Service) submitVote(ctx context.Context, moduleRequestID int64, language string) (int, error) {
	envelope, err := service.client.Do(ctx, http.MethodPost, "/api/module-requests/vote", map[string]any{
		"module_request_id": moduleRequestID,
		"language":          language,
	})
	if err != nil {
		return 0, err
	}

	var result struct {
		Votes int `json:"votes"`
	}
	if err := json.Unmarshal(envelope.Data, &result); err != nil {
		return 0, apperr.Server(0, "Malformed vote payload")
	}

	service.bus.Publish(events.Event{
		Topic: events.TopicModuleVoted,
		Time:  time.Now(),
		Vote:  &events.VoteResult{ModuleRequestID: moduleRequestID, Votes: result.Votes},
	})
	return result.Votes, nil
}

// # Submission

// Create submits a new module request.
//
// Tags are slug-normalized and deduplicated before validation, so "Quantum
// Computing" and "quantum-computing" count as the same tag. Without a
// session the submission is deferred just like a vote.
func (service *Service) Create(ctx context.Context, input auth.ModuleRequestInput) error {
	input.Tags = slug.Tags(input.Tags)

	var v validate.Validator
	if err := v.
		Required("module_name", input.ModuleName).
		MaxLen("module_name", input.ModuleName, 100).
		Required("description", input.Description).
		MaxLen("description", input.Description, 1000).
		Required("language", input.Language).
		Err(); err != nil {
		return err
	}

	if !service.session.IsAuthenticated() {
		displaced := service.pending.Defer(auth.PendingAction{
			Type:    auth.ActionCreateRequest,
			Request: &input,
		})
		if displaced != nil {
			service.logger.Info("pending_action_displaced", slog.String("type", string(displaced.Type)))
		}

		service.bus.Publish(events.Event{Topic: events.TopicShowLogin, Time: time.Now()})
		return apperr.Unauthenticated("Sign in to submit a request")
	}

	if err := service.submitCreate(ctx, input); err != nil {
		return err
	}

	events.PublishToast(service.bus, "Request submitted. Thanks for contributing!", events.ToastSuccess)
	return nil
}

func (service *Service) submitCreate(ctx context.Context, input auth.ModuleRequestInput) error {
	_, err := service.client.Do(ctx, http.MethodPost, "/api/module-requests", input)
	if err != nil {
		return err
	}

	service.logger.Info("module_request_created", slog.String("module_name", input.ModuleName))
	return nil
}

// # Deferred Replay

// Dispatch implements [auth.Dispatcher]. It executes a parked intent after
// a successful login, bypassing the re-auth interception so the replay makes
// exactly one network attempt.
func (service *Service) Dispatch(ctx context.Context, action auth.PendingAction) error {
	ctx = transport.WithoutReauth(ctx)

	switch action.Type {
	case auth.ActionVote:
		_, err := service.submitVote(ctx, action.ModuleRequestID, action.Language)
		if err != nil {
			return err
		}
		events.PublishToast(service.bus, "Vote recorded", events.ToastSuccess)
		return nil

	case auth.ActionCreateRequest:
		if action.Request == nil {
			return fmt.Errorf("modulepool: create action without payload")
		}
		if err := service.submitCreate(ctx, *action.Request); err != nil {
			return err
		}
		events.PublishToast(service.bus, "Request submitted. Thanks for contributing!", events.ToastSuccess)
		return nil

	default:
		return fmt.Errorf("modulepool: unknown pending action %q", action.Type)
	}
}
