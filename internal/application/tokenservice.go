package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

// ProviderStatus describes the stored credential state for one provider.
// TokenPreview never carries the full token.
type ProviderStatus struct {
	Provider        model.Provider
	HasAccessToken  bool
	HasRefreshToken bool
	ExpiresAt       *time.Time
	IsExpired       bool
	LastUpdated     *time.Time
	TokenPreview    string
	Source          string
}

// ManualToken is an operator-supplied token set. Exactly one of ExpiresAt
// (absolute unix seconds) or ExpiresIn (relative seconds) may be set; with
// neither the token is stored as non-expiring.
type ManualToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
	ExpiresIn    int64
}

// TokenService exposes the credential lifecycle operations that are not tied
// to a specific provider's OAuth flow.
type TokenService struct {
	store            driven.CredentialStore
	whoopStaticToken string
	logger           *slog.Logger
}

// NewTokenService creates the service. whoopStaticToken is the optional
// environment fallback surfaced in status output.
func NewTokenService(store driven.CredentialStore, whoopStaticToken string, logger *slog.Logger) *TokenService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenService{store: store, whoopStaticToken: whoopStaticToken, logger: logger}
}

// AuthStatus reports the credential state for every provider. A store read
// failure degrades that provider to "no credentials" rather than failing the
// whole status call.
func (s *TokenService) AuthStatus(ctx context.Context) []ProviderStatus {
	statuses := make([]ProviderStatus, 0, len(model.Providers()))
	for _, provider := range model.Providers() {
		statuses = append(statuses, s.providerStatus(ctx, provider))
	}
	return statuses
}

// Status reports the credential state for a single provider.
func (s *TokenService) Status(ctx context.Context, provider model.Provider) ProviderStatus {
	return s.providerStatus(ctx, provider)
}

func (s *TokenService) providerStatus(ctx context.Context, provider model.Provider) ProviderStatus {
	status := ProviderStatus{Provider: provider}

	cred, err := s.store.Get(ctx, provider)
	if err != nil {
		s.logger.Error("failed to read credentials for status", "provider", provider, "error", err)
		cred = nil
	}

	if cred == nil {
		if provider == model.ProviderWhoop && s.whoopStaticToken != "" {
			status.HasAccessToken = true
			status.TokenPreview = model.RedactToken(s.whoopStaticToken)
			status.Source = "environment"
		}
		return status
	}

	status.HasAccessToken = cred.AccessToken != ""
	status.HasRefreshToken = cred.RefreshToken != ""
	status.ExpiresAt = cred.ExpiresAt
	status.IsExpired = model.Expired(cred.ExpiresAt, 0) && cred.ExpiresAt != nil
	status.TokenPreview = model.RedactToken(cred.AccessToken)
	status.Source = "database"
	if !cred.UpdatedAt.IsZero() {
		updated := cred.UpdatedAt
		status.LastUpdated = &updated
	}
	return status
}

// SaveManualToken stores an operator-supplied token set for a provider.
func (s *TokenService) SaveManualToken(ctx context.Context, provider model.Provider, token ManualToken) error {
	if token.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}

	var expiresAt *time.Time
	switch {
	case token.ExpiresAt > 0:
		t := time.Unix(token.ExpiresAt, 0).UTC()
		expiresAt = &t
	case token.ExpiresIn > 0:
		t := time.Now().UTC().Add(time.Duration(token.ExpiresIn) * time.Second)
		expiresAt = &t
	}

	update := driven.TokenUpdate{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
	}
	if err := s.store.Save(ctx, provider, update); err != nil {
		return fmt.Errorf("save %s token: %w", provider, err)
	}

	s.logger.Info("stored manual token", "provider", provider, "expires", expiresAt)
	return nil
}

// Disconnect removes the stored credentials for a provider.
func (s *TokenService) Disconnect(ctx context.Context, provider model.Provider) error {
	if err := s.store.Delete(ctx, provider); err != nil {
		return fmt.Errorf("delete %s credentials: %w", provider, err)
	}
	s.logger.Info("disconnected provider", "provider", provider)
	return nil
}
