// Copyright (c) 2026 Howkings. All rights reserved.

/*
Package consent implements the cookie-consent gate.

A stored consent record is honored for a fixed time window; after the window
elapses the user must be asked again, so expired records degrade to the
configured defaults. The necessary category can never be declined.
*/
package consent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/howkings/howkings-go/internal/platform/constants"
	"github.com/howkings/howkings-go/internal/platform/kv"
)

// Record is one consent decision.
type Record struct {
	Necessary bool      `json:"necessary"`
	Analytics bool      `json:"analytics"`
	Marketing bool      `json:"marketing"`
	Timestamp time.Time `json:"timestamp"`
}

// Expired reports whether the record is older than the consent TTL.
func (record Record) Expired(now time.Time) bool {
	return now.Sub(record.Timestamp) > constants.ConsentTTL
}

// Defaults are the category values applied when no live record exists.
type Defaults struct {
	Analytics bool
	Marketing bool
}

// Gate reads and writes the consent record.
type Gate struct {
	store    kv.Store
	defaults Defaults
	logger   *slog.Logger

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewGate wires the consent gate over a key-value backend.
func NewGate(store kv.Store, defaults Defaults, logger *slog.Logger) *Gate {
	return &Gate{store: store, defaults: defaults, logger: logger, now: time.Now}
}

// Get returns the effective consent record.
//
// A missing, corrupt, or expired record yields the configured defaults with
// a zero timestamp, which callers can use to decide whether to re-prompt.
// Necessary is always true on every path.
func (gate *Gate) Get(ctx context.Context) Record {
	fallback := Record{
		Necessary: true,
		Analytics: gate.defaults.Analytics,
		Marketing: gate.defaults.Marketing,
	}

	raw, err := gate.store.Get(ctx, constants.StorageKeyCookieConsent)
	if err != nil {
		return fallback
	}

	var record Record
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		gate.logger.Warn("consent_record_corrupt", slog.Any("error", err))
		return fallback
	}

	if record.Expired(gate.now()) {
		return fallback
	}

	record.Necessary = true
	return record
}

// Set stores a fresh consent decision stamped with the current time.
// The necessary category is forced on regardless of the input.
func (gate *Gate) Set(ctx context.Context, analytics, marketing bool) error {
	record := Record{
		Necessary: true,
		Analytics: analytics,
		Marketing: marketing,
		Timestamp: gate.now(),
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if err := gate.store.Set(ctx, constants.StorageKeyCookieConsent, string(raw)); err != nil {
		return err
	}

	gate.logger.Info("consent_recorded",
		slog.Bool("analytics", analytics),
		slog.Bool("marketing", marketing),
	)
	return nil
}

// Clear removes the stored record, forcing a re-prompt.
func (gate *Gate) Clear(ctx context.Context) error {
	return gate.store.Delete(ctx, constants.StorageKeyCookieConsent)
}

// AnalyticsEnabled reports whether analytics integrations may run.
func (gate *Gate) AnalyticsEnabled(ctx context.Context) bool {
	return gate.Get(ctx).Analytics
}

// MarketingEnabled reports whether marketing integrations may run.
func (gate *Gate) MarketingEnabled(ctx context.Context) bool {
	return gate.Get(ctx).Marketing
}
