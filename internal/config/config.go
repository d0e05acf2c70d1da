// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	DBPath     string

	// BackendURL is the externally reachable base URL used to build OAuth
	// redirect URIs, e.g. "http://localhost:8080".
	BackendURL string

	StravaClientID     string
	StravaClientSecret string

	WhoopClientID     string
	WhoopClientSecret string
	// WhoopAccessToken is an optional long-lived token used when Whoop has
	// never been connected through the OAuth flow.
	WhoopAccessToken string

	ProviderTimeout time.Duration
}

// HasStravaCredentials returns true when the Strava application registration
// is configured. Without it the Strava OAuth endpoints reject requests but
// manual token injection still works.
func (c *Config) HasStravaCredentials() bool {
	return c.StravaClientID != "" && c.StravaClientSecret != ""
}

// HasWhoopCredentials returns true when the Whoop application registration is
// configured.
func (c *Config) HasWhoopCredentials() bool {
	return c.WhoopClientID != "" && c.WhoopClientSecret != ""
}

// StravaRedirectURI returns the callback URL registered with Strava.
func (c *Config) StravaRedirectURI() string {
	return c.BackendURL + "/api/v1/auth/strava/callback"
}

// WhoopRedirectURI returns the callback URL registered with Whoop.
func (c *Config) WhoopRedirectURI() string {
	return c.BackendURL + "/api/v1/auth/whoop/callback"
}

// Load reads configuration from environment variables and returns a validated
// Config. Provider credentials are optional; endpoints for an unconfigured
// provider report not-authenticated until credentials or a manual token are
// supplied. Optional variables with defaults: TRAINTRACK_LISTEN_ADDR
// (127.0.0.1:8080), TRAINTRACK_DB_PATH (traintrack.db), TRAINTRACK_BACKEND_URL
// (http://localhost:8080), TRAINTRACK_PROVIDER_TIMEOUT (15s).
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("TRAINTRACK_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "traintrack.db"
	if v, ok := os.LookupEnv("TRAINTRACK_DB_PATH"); ok {
		dbPath = v
	}

	backendURL := "http://localhost:8080"
	if v, ok := os.LookupEnv("TRAINTRACK_BACKEND_URL"); ok {
		backendURL = strings.TrimRight(v, "/")
	}

	providerTimeout := 15 * time.Second
	if v, ok := os.LookupEnv("TRAINTRACK_PROVIDER_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TRAINTRACK_PROVIDER_TIMEOUT has invalid duration %q: %w", v, err)
		}
		providerTimeout = parsed
	}

	return &Config{
		ListenAddr:         listenAddr,
		DBPath:             dbPath,
		BackendURL:         backendURL,
		StravaClientID:     os.Getenv("TRAINTRACK_STRAVA_CLIENT_ID"),
		StravaClientSecret: os.Getenv("TRAINTRACK_STRAVA_CLIENT_SECRET"),
		WhoopClientID:      os.Getenv("TRAINTRACK_WHOOP_CLIENT_ID"),
		WhoopClientSecret:  os.Getenv("TRAINTRACK_WHOOP_CLIENT_SECRET"),
		WhoopAccessToken:   os.Getenv("TRAINTRACK_WHOOP_ACCESS_TOKEN"),
		ProviderTimeout:    providerTimeout,
	}, nil
}
