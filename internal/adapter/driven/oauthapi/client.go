// Package oauthapi is the shared OAuth2 plumbing under both provider
// adapters: token exchange and refresh with per-provider body encoding, and
// authenticated request execution with a single transparent
// refresh-and-retry on 401.
package oauthapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

// maxAuthRetries bounds refresh-and-retry to exactly one attempt per logical
// request chain. This prevents an infinite refresh loop when the refreshed
// token is itself rejected (e.g. revoked consent) while still covering the
// common merely-stale-token case.
const maxAuthRetries = 1

// Client is one authenticated session against a provider API. It holds a
// working copy of the tokens and a retry counter, so an instance must not be
// shared across concurrent requests; construct one per call chain.
//
// Refreshes are deduplicated across instances through a shared singleflight
// group keyed by provider, so two requests that both discover a stale token
// trigger one refresh call and share its result.
type Client struct {
	cfg    Config
	store  driven.CredentialStore
	http   *http.Client
	logger *slog.Logger
	group  *singleflight.Group

	accessToken  string
	refreshToken string
	expiresAt    *time.Time
	retries      int
}

// NewClient creates a bare session. It is immediately usable for API calls
// if an access token is set afterwards; otherwise it can still drive the
// authorization-code exchange.
func NewClient(cfg Config, store driven.CredentialStore, httpClient *http.Client, logger *slog.Logger, group *singleflight.Group) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		store:  store,
		http:   httpClient,
		logger: logger,
		group:  group,
	}
}

// SetToken installs a token set on the session.
func (c *Client) SetToken(access, refresh string, expiresAt *time.Time) {
	c.accessToken = access
	c.refreshToken = refresh
	c.expiresAt = expiresAt
}

// AccessToken returns the session's current access token.
func (c *Client) AccessToken() string { return c.accessToken }

// Clone returns a session sharing the same configuration, store, transport,
// and refresh deduplication group, with its own retry counter. Callers that
// issue concurrent requests give each goroutine its own clone.
func (c *Client) Clone() *Client {
	clone := NewClient(c.cfg, c.store, c.http, c.logger, c.group)
	clone.SetToken(c.accessToken, c.refreshToken, c.expiresAt)
	return clone
}

// AuthorizationURL builds the provider consent URL. extra carries
// provider-specific query parameters (anti-forgery state, approval prompts).
func (c *Client) AuthorizationURL(extra url.Values) string {
	params := url.Values{}
	params.Set("client_id", c.cfg.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", c.cfg.RedirectURI)
	params.Set("scope", c.cfg.Scopes)
	for k, vs := range extra {
		for _, v := range vs {
			params.Set(k, v)
		}
	}
	return c.cfg.AuthURL + "?" + params.Encode()
}

// Exchange trades an authorization code for tokens, persists them, and
// installs them on the session. extra carries grant parameters beyond the
// code itself (e.g. redirect_uri where the provider requires it).
func (c *Client) Exchange(ctx context.Context, code string, extra map[string]string) (*TokenResponse, error) {
	params := map[string]string{
		"grant_type": "authorization_code",
		"code":       code,
	}
	for k, v := range extra {
		params[k] = v
	}

	token, err := requestToken(ctx, c.http, c.cfg, params)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	expiry := token.Expiry()
	if err := c.store.Save(ctx, c.cfg.Provider, driven.TokenUpdate{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiry,
	}); err != nil {
		return nil, fmt.Errorf("persist exchanged token: %w", err)
	}

	c.SetToken(token.AccessToken, token.RefreshToken, expiry)
	c.logger.Info("authorization code exchanged", "provider", c.cfg.Provider)
	return token, nil
}

// Refresh obtains a new access token using the refresh token, persisting the
// result. When the session lacks a refresh token it falls back to the stored
// one before giving up with ErrNoRefreshToken. A refresh failure propagates:
// continuing with a stale token would just fail again downstream.
func (c *Client) Refresh(ctx context.Context) error {
	if c.refreshToken == "" {
		cred, err := c.store.Get(ctx, c.cfg.Provider)
		if err != nil {
			return fmt.Errorf("load stored refresh token: %w", err)
		}
		if cred == nil || cred.RefreshToken == "" {
			return fmt.Errorf("%s: %w", c.cfg.Provider, driven.ErrNoRefreshToken)
		}
		c.refreshToken = cred.RefreshToken
	}

	do := func() (any, error) {
		c.logger.Info("refreshing access token", "provider", c.cfg.Provider)
		token, err := requestToken(ctx, c.http, c.cfg, map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": c.refreshToken,
		})
		if err != nil {
			return nil, fmt.Errorf("refresh token: %w", err)
		}
		if err := c.store.Save(ctx, c.cfg.Provider, driven.TokenUpdate{
			AccessToken:  token.AccessToken,
			RefreshToken: token.RefreshToken,
			ExpiresAt:    token.Expiry(),
		}); err != nil {
			return nil, fmt.Errorf("persist refreshed token: %w", err)
		}
		return token, nil
	}

	var (
		result any
		err    error
	)
	if c.group != nil {
		result, err, _ = c.group.Do(string(c.cfg.Provider), do)
	} else {
		result, err = do()
	}
	if err != nil {
		return err
	}

	token := result.(*TokenResponse)
	c.accessToken = token.AccessToken
	// Providers are not required to rotate the refresh token every time.
	if token.RefreshToken != "" {
		c.refreshToken = token.RefreshToken
	}
	c.expiresAt = token.Expiry()
	return nil
}

// Get executes an authenticated GET against the provider API.
//
// The call is a small explicit state machine: send; on 401 with the retry
// budget unspent, refresh and reissue the identical request exactly once; on
// 401 with the budget spent or a failed refresh, surface an authentication
// failure; on any other non-2xx, fail with the status and raw body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.accessToken == "" {
		return nil, fmt.Errorf("%s: %w", c.cfg.Provider, driven.ErrNotAuthenticated)
	}

	u := c.cfg.APIBase + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.cfg.Provider, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request %s: %w", c.cfg.Provider, path, err)
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("%s request %s: read body: %w", c.cfg.Provider, path, readErr)
	}

	if resp.StatusCode == http.StatusUnauthorized && c.retries < maxAuthRetries {
		c.retries++
		c.logger.Info("provider returned 401, attempting token refresh", "provider", c.cfg.Provider, "path", path)
		if err := c.Refresh(ctx); err != nil {
			return nil, fmt.Errorf("authentication failed: %w", err)
		}
		// Reissue with the same options; only the token has changed.
		return c.Get(ctx, path, query)
	}

	c.retries = 0

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Provider: c.cfg.Provider, Status: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// Provider returns the provider this session talks to.
func (c *Client) Provider() model.Provider { return c.cfg.Provider }
