package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/traintrack/internal/application"
	"github.com/ericfisherdev/traintrack/internal/domain/model"
)

func TestAuthStatusCoversAllProviders(t *testing.T) {
	store := newMockCredentialStore()
	expiresAt := time.Now().Add(time.Hour)
	store.creds[model.ProviderStrava] = &model.Credential{
		Provider:     model.ProviderStrava,
		AccessToken:  "strava-access-token-value",
		RefreshToken: "strava-refresh",
		ExpiresAt:    &expiresAt,
		UpdatedAt:    time.Now(),
	}

	svc := application.NewTokenService(store, "", nil)

	statuses := svc.AuthStatus(context.Background())
	require.Len(t, statuses, 2)

	byProvider := map[model.Provider]application.ProviderStatus{}
	for _, s := range statuses {
		byProvider[s.Provider] = s
	}

	strava := byProvider[model.ProviderStrava]
	assert.True(t, strava.HasAccessToken)
	assert.True(t, strava.HasRefreshToken)
	assert.False(t, strava.IsExpired)
	assert.Equal(t, "database", strava.Source)
	assert.NotNil(t, strava.LastUpdated)
	assert.NotContains(t, strava.TokenPreview, "strava-access-token-value")

	whoop := byProvider[model.ProviderWhoop]
	assert.False(t, whoop.HasAccessToken)
	assert.Empty(t, whoop.Source)
}

func TestStatusReportsExpiredStoredToken(t *testing.T) {
	store := newMockCredentialStore()
	expired := time.Now().Add(-time.Hour)
	store.creds[model.ProviderWhoop] = &model.Credential{
		Provider:    model.ProviderWhoop,
		AccessToken: "old",
		ExpiresAt:   &expired,
	}

	svc := application.NewTokenService(store, "", nil)

	status := svc.Status(context.Background(), model.ProviderWhoop)
	assert.True(t, status.HasAccessToken)
	assert.True(t, status.IsExpired)
}

func TestStatusNonExpiringTokenIsNotExpired(t *testing.T) {
	store := newMockCredentialStore()
	store.creds[model.ProviderWhoop] = &model.Credential{
		Provider:    model.ProviderWhoop,
		AccessToken: "manual",
	}

	svc := application.NewTokenService(store, "", nil)

	status := svc.Status(context.Background(), model.ProviderWhoop)
	assert.True(t, status.HasAccessToken)
	assert.False(t, status.IsExpired)
	assert.Nil(t, status.ExpiresAt)
}

func TestStatusFallsBackToEnvironmentToken(t *testing.T) {
	svc := application.NewTokenService(newMockCredentialStore(), "static-whoop-token-value", nil)

	status := svc.Status(context.Background(), model.ProviderWhoop)
	assert.True(t, status.HasAccessToken)
	assert.False(t, status.HasRefreshToken)
	assert.Equal(t, "environment", status.Source)
	assert.NotContains(t, status.TokenPreview, "static-whoop-token-value")
}

func TestStatusStoredCredentialWinsOverEnvironment(t *testing.T) {
	store := newMockCredentialStore()
	store.creds[model.ProviderWhoop] = &model.Credential{
		Provider:    model.ProviderWhoop,
		AccessToken: "stored",
	}

	svc := application.NewTokenService(store, "static", nil)

	status := svc.Status(context.Background(), model.ProviderWhoop)
	assert.Equal(t, "database", status.Source)
}

func TestAuthStatusDegradesOnStoreFailure(t *testing.T) {
	store := newMockCredentialStore()
	store.getErr = errors.New("database locked")

	svc := application.NewTokenService(store, "", nil)

	statuses := svc.AuthStatus(context.Background())
	require.Len(t, statuses, 2)
	for _, s := range statuses {
		if s.Provider == model.ProviderWhoop {
			continue
		}
		assert.False(t, s.HasAccessToken)
	}
}

func TestSaveManualTokenAbsoluteExpiry(t *testing.T) {
	store := newMockCredentialStore()
	svc := application.NewTokenService(store, "", nil)

	epoch := time.Now().Add(6 * time.Hour).Unix()
	err := svc.SaveManualToken(context.Background(), model.ProviderStrava, application.ManualToken{
		AccessToken:  "t1",
		RefreshToken: "r1",
		ExpiresAt:    epoch,
	})
	require.NoError(t, err)

	cred := store.creds[model.ProviderStrava]
	require.NotNil(t, cred)
	assert.Equal(t, "t1", cred.AccessToken)
	require.NotNil(t, cred.ExpiresAt)
	assert.Equal(t, epoch, cred.ExpiresAt.Unix())
}

func TestSaveManualTokenRelativeExpiry(t *testing.T) {
	store := newMockCredentialStore()
	svc := application.NewTokenService(store, "", nil)

	err := svc.SaveManualToken(context.Background(), model.ProviderWhoop, application.ManualToken{
		AccessToken: "t1",
		ExpiresIn:   3600,
	})
	require.NoError(t, err)

	cred := store.creds[model.ProviderWhoop]
	require.NotNil(t, cred.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *cred.ExpiresAt, 5*time.Second)
}

func TestSaveManualTokenWithoutExpiryStoresNonExpiring(t *testing.T) {
	store := newMockCredentialStore()
	svc := application.NewTokenService(store, "", nil)

	err := svc.SaveManualToken(context.Background(), model.ProviderWhoop, application.ManualToken{
		AccessToken: "long-lived",
	})
	require.NoError(t, err)
	assert.Nil(t, store.creds[model.ProviderWhoop].ExpiresAt)
}

func TestSaveManualTokenRequiresAccessToken(t *testing.T) {
	svc := application.NewTokenService(newMockCredentialStore(), "", nil)

	err := svc.SaveManualToken(context.Background(), model.ProviderStrava, application.ManualToken{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access token is required")
}

func TestDisconnectRemovesCredentials(t *testing.T) {
	store := newMockCredentialStore()
	store.creds[model.ProviderStrava] = &model.Credential{Provider: model.ProviderStrava, AccessToken: "t"}

	svc := application.NewTokenService(store, "", nil)

	require.NoError(t, svc.Disconnect(context.Background(), model.ProviderStrava))
	assert.Empty(t, store.creds)
	assert.Equal(t, []model.Provider{model.ProviderStrava}, store.deletes)
}
