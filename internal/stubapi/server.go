// Copyright (c) 2026 Howkings. All rights reserved.

/*
Package stubapi is the in-memory development backend for the Howkings SDK.

It speaks the exact wire contract the production backend does: the
{status, message, data} envelope, rotating refresh tokens, the
"Unauthenticated" body marker, the XSRF-TOKEN double-submit cookie, and the
409 on duplicate votes. The SDK can be developed and its interceptor
chain exercised without the real platform.

State lives in memory and resets on every start. A dev account
(jonas@example.com) is pre-seeded.
*/
package stubapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/howkings/howkings-go/internal/platform/config"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer constructs the router with the full middleware chain and all
// routes registered.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) *Server {
	handler := newHandler(newMemoryStore(), newTokenIssuer(cfg.StubJWTSecret), logger)

	router := chi.NewRouter()

	// Middleware, in execution order.
	router.Use(requestID())
	router.Use(structuredLogger(logger))
	router.Use(chimw.Timeout(30 * time.Second))
	router.Use(rateLimit(ctx))
	router.Use(panicRecovery(logger))
	router.Use(csrfGuard())
	router.Use(chimw.CleanPath)

	router.Route("/api", func(api chi.Router) {
		api.Get("/csrf-token", handler.CSRFToken)
		api.Post("/login", handler.Login)
		api.Post("/register", handler.Register)
		api.Post("/logout", handler.Logout)
		api.Post("/forgot-password", handler.ForgotPassword)
		api.Post("/reset-password", handler.ResetPassword)
		api.Get("/validate-token", handler.ValidateToken)

		api.Get("/module-requests", handler.ListRequests)
		api.Post("/module-requests", handler.CreateRequest)
		api.Post("/module-requests/vote", handler.Vote)
	})

	router.Route("/auth", func(authRoutes chi.Router) {
		authRoutes.Post("/refresh-token", handler.Refresh)
		authRoutes.Delete("/account", handler.DeleteAccount)
	})

	return &Server{
		logger: logger,
		httpServer: &http.Server{
			Addr:              cfg.StubListenAddr,
			Handler:           router,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler exposes the routed handler so tests can mount the stub inside an
// httptest server.
func (server *Server) Handler() http.Handler {
	return server.httpServer.Handler
}

// # Server Lifecycle

// ListenAndServe starts the server and blocks until it is closed.
func (server *Server) ListenAndServe() error {
	server.logger.Info("stub_server_starting", slog.String("addr", server.httpServer.Addr))
	return server.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (server *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.httpServer.Shutdown(ctx)
}
