package oauthapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
)

// Encoding selects how a provider's token endpoint expects request bodies.
// This is a real interoperability detail: Strava's endpoint takes JSON,
// Whoop's takes form-urlencoded, and neither accepts the other.
type Encoding int

const (
	// EncodeForm sends application/x-www-form-urlencoded bodies.
	EncodeForm Encoding = iota
	// EncodeJSON sends application/json bodies.
	EncodeJSON
)

// Config is the static per-provider OAuth configuration, passed explicitly
// at construction rather than read from the environment at import time.
type Config struct {
	Provider     model.Provider
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	APIBase      string
	Scopes       string
	Encoding     Encoding
	// NumericClientID encodes client_id as a JSON number rather than a
	// string; Strava rejects string client ids in JSON bodies.
	NumericClientID bool
}

// TokenResponse is the provider token endpoint's success payload. Providers
// report expiry either as an absolute epoch (expires_at) or a relative
// lifetime (expires_in); Expiry normalizes the two.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`

	// Athlete carries the profile metadata Strava includes inline with a
	// grant; other providers omit it.
	Athlete json.RawMessage `json:"athlete,omitempty"`
}

// Expiry returns the absolute expiry time, or nil when the provider reported
// none (the token is then treated as non-expiring by the store).
func (t *TokenResponse) Expiry() *time.Time {
	switch {
	case t.ExpiresAt > 0:
		v := time.Unix(t.ExpiresAt, 0)
		return &v
	case t.ExpiresIn > 0:
		v := time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
		return &v
	}
	return nil
}

// APIError is a non-2xx response from a provider endpoint. It carries the
// raw body because provider-side failures (rate limits, malformed scopes)
// are only diagnosable from it.
type APIError struct {
	Provider model.Provider
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.Status, e.Body)
}

// requestToken POSTs a grant to the provider's token endpoint using the
// configured body encoding and decodes the response.
func requestToken(ctx context.Context, httpClient *http.Client, cfg Config, params map[string]string) (*TokenResponse, error) {
	req, err := encodeTokenRequest(ctx, cfg, params)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s token endpoint: %w", cfg.Provider, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("%s token endpoint: read body: %w", cfg.Provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Provider: cfg.Provider, Status: resp.StatusCode, Body: buf.String()}
	}

	var token TokenResponse
	if err := json.Unmarshal(buf.Bytes(), &token); err != nil {
		return nil, fmt.Errorf("%s token endpoint: invalid response %q: %w", cfg.Provider, buf.String(), err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%s token endpoint: response missing access_token", cfg.Provider)
	}

	return &token, nil
}

func encodeTokenRequest(ctx context.Context, cfg Config, params map[string]string) (*http.Request, error) {
	base := map[string]string{
		"client_id":     cfg.ClientID,
		"client_secret": cfg.ClientSecret,
	}
	for k, v := range params {
		base[k] = v
	}

	switch cfg.Encoding {
	case EncodeJSON:
		body := make(map[string]any, len(base))
		for k, v := range base {
			body[k] = v
		}
		if cfg.NumericClientID {
			id, err := strconv.Atoi(cfg.ClientID)
			if err != nil {
				return nil, fmt.Errorf("%s client id %q is not numeric: %w", cfg.Provider, cfg.ClientID, err)
			}
			body["client_id"] = id
		}
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode token request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("build token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil

	default:
		form := url.Values{}
		for k, v := range base {
			form.Set(k, v)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, bytes.NewBufferString(form.Encode()))
		if err != nil {
			return nil, fmt.Errorf("build token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}
}
