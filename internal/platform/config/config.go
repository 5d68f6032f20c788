// Copyright (c) 2026 Howkings. All rights reserved.

/*
Package config handles client-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-
typed Go struct, with two optional lower-precedence sources layered under it:

  - A local .env file (godotenv), the development convenience the web client
    also used.
  - A YAML profile at ~/.howkings/config.yaml for CLI installations.

Precedence: explicit environment > YAML profile > built-in default.

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to components via constructors.
  - Zero Hidden State: No global variables store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// # Configuration Schema

// Config holds all runtime configuration for the Howkings client.
type Config struct {

	// Backend endpoint
	APIBaseURL  string `env:"HOWKINGS_API_URL" envDefault:"http://bos.howkings.local"`
	Environment string `env:"HOWKINGS_ENV"     envDefault:"development"`
	Debug       bool   `env:"HOWKINGS_DEBUG"   envDefault:"false"`

	// Key-value storage backend: memory | file | sqlite | redis
	StoreBackend string `env:"HOWKINGS_STORE"      envDefault:"file"`
	StorePath    string `env:"HOWKINGS_STORE_PATH"`
	RedisURL     string `env:"HOWKINGS_REDIS_URL"`

	// TokenEncryptionKey seals tokens at rest. Empty disables sealing.
	TokenEncryptionKey string `env:"HOWKINGS_TOKEN_ENCRYPTION_KEY"`

	// Feature toggles mirrored from the web client
	FeatureOrgRegistration bool `env:"HOWKINGS_FEATURE_ORG_REGISTRATION" envDefault:"false"`
	FeatureSearch          bool `env:"HOWKINGS_FEATURE_SEARCH"           envDefault:"true"`
	FeatureFacebookLogin   bool `env:"HOWKINGS_FEATURE_FACEBOOK_LOGIN"   envDefault:"false"`
	FeatureLanguageSwitch  bool `env:"HOWKINGS_FEATURE_LANGUAGE_SWITCH"  envDefault:"true"`

	// Analytics consent defaults applied when no stored record exists
	ConsentDefaultAnalytics bool `env:"HOWKINGS_CONSENT_ANALYTICS" envDefault:"false"`
	ConsentDefaultMarketing bool `env:"HOWKINGS_CONSENT_MARKETING" envDefault:"false"`

	// Stub backend (development only)
	StubListenAddr string `env:"HOWKINGS_STUB_ADDR"       envDefault:":8089"`
	StubJWTSecret  string `env:"HOWKINGS_STUB_JWT_SECRET" envDefault:"howkings-dev-secret"`
}

// profile is the YAML shape of ~/.howkings/config.yaml. Only commonly
// profile-worthy settings are exposed there; everything is still overridable
// through the environment.
type profile struct {
	APIURL             string `yaml:"api_url"`
	Store              string `yaml:"store"`
	StorePath          string `yaml:"store_path"`
	RedisURL           string `yaml:"redis_url"`
	TokenEncryptionKey string `yaml:"token_encryption_key"`
}

// # Configuration Loading

// Load parses configuration from all sources in precedence order.
func Load() (*Config, error) {

	// .env is a development convenience; a missing file is not an error.
	_ = godotenv.Load()

	// The YAML profile acts as a set of defaults: its values are promoted to
	// the environment only when the variable is not already set.
	if err := applyProfile(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.StorePath == "" {
		cfg.StorePath = defaultStorePath(cfg.StoreBackend)
	}

	return cfg, nil
}

// IsDevelopment reports whether the client is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the client is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// applyProfile loads ~/.howkings/config.yaml and promotes its values into
// unset environment variables, preserving env > yaml precedence.
func applyProfile() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil // No home directory, no profile.
	}

	raw, err := os.ReadFile(filepath.Join(home, ".howkings", "config.yaml"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read profile: %w", err)
	}

	var p profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("config: parse profile: %w", err)
	}

	promote := map[string]string{
		"HOWKINGS_API_URL":              p.APIURL,
		"HOWKINGS_STORE":                p.Store,
		"HOWKINGS_STORE_PATH":           p.StorePath,
		"HOWKINGS_REDIS_URL":            p.RedisURL,
		"HOWKINGS_TOKEN_ENCRYPTION_KEY": p.TokenEncryptionKey,
	}
	for name, value := range promote {
		if value != "" && os.Getenv(name) == "" {
			if err := os.Setenv(name, value); err != nil {
				return fmt.Errorf("config: apply profile value %s: %w", name, err)
			}
		}
	}

	return nil
}

// defaultStorePath places the store under the user's home profile directory.
func defaultStorePath(backend string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	dir := filepath.Join(home, ".howkings")
	if backend == "sqlite" {
		return filepath.Join(dir, "howkings.db")
	}
	return filepath.Join(dir, "store.json")
}
