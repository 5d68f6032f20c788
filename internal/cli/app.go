// Copyright (c) 2026 Howkings. All rights reserved.

/*
Package cli implements the howkings command-line client.

It is a thin shell over the SDK: each subcommand wires the full client
stack (config, key-value store, event bus, transport, session manager, auth
and request-pool services), performs one operation, and prints the result.
Toasts published on the bus are printed to stderr so the command output on
stdout stays machine-readable.
*/
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/howkings/howkings-go/internal/auth"
	"github.com/howkings/howkings-go/internal/consent"
	"github.com/howkings/howkings-go/internal/modulepool"
	"github.com/howkings/howkings-go/internal/platform/config"
	"github.com/howkings/howkings-go/internal/platform/cryptobox"
	"github.com/howkings/howkings-go/internal/platform/events"
	"github.com/howkings/howkings-go/internal/platform/kv"
	"github.com/howkings/howkings-go/internal/transport"
)

// App is the fully wired client stack shared by all subcommands.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   kv.Store
	Bus     events.Bus
	Client  *transport.Client
	Session *auth.Manager
	Auth    *auth.Service
	Pool    *modulepool.Service
	Consent *consent.Gate

	toastSub events.Subscription
}

// NewApp builds the client stack from configuration.
//
// Wiring order matters: the transport client and session manager have a
// mutual dependency that is closed with BindTokenSource, and the request
// pool doubles as the auth service's deferred-action dispatcher.
func NewApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", "howkings"))

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	bus := events.NewMemBus(events.MemBusConfig{})

	client, err := transport.NewClient(cfg.APIBaseURL, bus, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	box := cryptobox.New(cfg.TokenEncryptionKey)
	creds := auth.NewCredentialStore(store, box, logger)
	session := auth.NewManager(creds, auth.NewInspector(), client, bus, logger)
	client.BindTokenSource(session)

	pending := auth.NewQueue()
	authService := auth.NewService(session, client, bus, pending, logger)
	pool := modulepool.NewService(client, bus, pending, session, logger)
	authService.SetDispatcher(pool)

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Bus:     bus,
		Client:  client,
		Session: session,
		Auth:    authService,
		Pool:    pool,
		Consent: consent.NewGate(store, consent.Defaults{
			Analytics: cfg.ConsentDefaultAnalytics,
			Marketing: cfg.ConsentDefaultMarketing,
		}, logger),
	}
	app.printToasts()
	return app, nil
}

// Close releases the stack in reverse wiring order.
func (app *App) Close() {
	if app.toastSub != nil {
		app.toastSub.Close()
	}
	if err := app.Bus.Close(); err != nil {
		app.Logger.Warn("bus_close_failed", slog.Any("error", err))
	}
	if err := app.Store.Close(); err != nil {
		app.Logger.Warn("store_close_failed", slog.Any("error", err))
	}
}

// openStore selects the key-value backend from configuration.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (kv.Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return kv.NewMemoryStore(), nil
	case "file":
		return kv.NewFileStore(cfg.StorePath)
	case "sqlite":
		return kv.NewSQLiteStore(cfg.StorePath)
	case "redis":
		return kv.NewRedisStore(ctx, cfg.RedisURL, logger)
	default:
		return nil, fmt.Errorf("cli: unknown store backend %q", cfg.StoreBackend)
	}
}

// printToasts forwards bus toasts to stderr for the duration of the command.
func (app *App) printToasts() {
	app.toastSub = app.Bus.Subscribe(events.TopicToast)
	go func() {
		for event := range app.toastSub.Events() {
			if event.Toast != nil {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", event.Toast.Type, event.Toast.Message)
			}
		}
	}()
}
