package model

import (
	"fmt"
	"time"
)

// Provider identifies an external fitness service we hold OAuth tokens for.
type Provider string

const (
	ProviderStrava Provider = "strava"
	ProviderWhoop  Provider = "whoop"
)

// Providers lists every known provider in stable order.
func Providers() []Provider {
	return []Provider{ProviderStrava, ProviderWhoop}
}

// ParseProvider validates a provider name from an external source (URL path,
// request body) and returns the canonical value.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderStrava:
		return ProviderStrava, nil
	case ProviderWhoop:
		return ProviderWhoop, nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// ExpiryBuffer is subtracted from a token's expiry when deciding whether to
// refresh, so a token about to expire mid-request is refreshed up front
// rather than failing mid-flight.
const ExpiryBuffer = 5 * time.Minute

// Credential is one stored OAuth token set. There is at most one row per
// provider; refreshes update it in place. A nil ExpiresAt means the token is
// treated as non-expiring (e.g. a manually supplied long-lived token).
type Credential struct {
	ID           int64
	Provider     Provider
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	UpdatedAt    time.Time
}

// Expired reports whether a token with the given expiry should be refreshed
// before use. An unknown expiry (nil) is treated as expired so a refresh is
// attempted.
func Expired(expiresAt *time.Time, buffer time.Duration) bool {
	if expiresAt == nil {
		return true
	}
	return !time.Now().Before(expiresAt.Add(-buffer))
}

// NeedsRefresh applies the default buffer to the credential's expiry.
// A credential stored without an expiry is never considered expired.
func (c *Credential) NeedsRefresh() bool {
	if c.ExpiresAt == nil {
		return false
	}
	return Expired(c.ExpiresAt, ExpiryBuffer)
}

// RedactToken renders a token safe for status and debug output: first 8 and
// last 4 characters only. Full tokens must never be surfaced.
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "..."
	}
	return token[:8] + "..." + token[len(token)-4:]
}
