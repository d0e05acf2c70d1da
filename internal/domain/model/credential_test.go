package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpired_NilExpiryIsExpired(t *testing.T) {
	assert.True(t, Expired(nil, ExpiryBuffer))
}

func TestExpired_BufferBoundaries(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Duration
		want    bool
	}{
		{"well beyond buffer", ExpiryBuffer + time.Hour, false},
		{"just outside buffer", ExpiryBuffer + 10*time.Second, false},
		{"inside buffer", ExpiryBuffer - 10*time.Second, true},
		{"already expired", -time.Minute, true},
		{"long expired", -24 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expiresAt := time.Now().Add(tt.expires)
			assert.Equal(t, tt.want, Expired(&expiresAt, ExpiryBuffer))
		})
	}
}

func TestExpired_ZeroBuffer(t *testing.T) {
	future := time.Now().Add(time.Minute)
	past := time.Now().Add(-time.Minute)

	assert.False(t, Expired(&future, 0))
	assert.True(t, Expired(&past, 0))
}

func TestCredential_NeedsRefresh(t *testing.T) {
	soon := time.Now().Add(time.Minute)
	later := time.Now().Add(time.Hour)

	assert.True(t, (&Credential{ExpiresAt: &soon}).NeedsRefresh())
	assert.False(t, (&Credential{ExpiresAt: &later}).NeedsRefresh())

	// A stored credential without an expiry is a deliberately non-expiring
	// token; it must never trigger a refresh.
	assert.False(t, (&Credential{}).NeedsRefresh())
}

func TestRedactToken(t *testing.T) {
	assert.Equal(t, "", RedactToken(""))
	assert.Equal(t, "...", RedactToken("short"))
	assert.Equal(t, "...", RedactToken("exactly12chr"))
	assert.Equal(t, "abcdefgh...wxyz", RedactToken("abcdefghijklmnopqrstuvwxyz"))
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("strava")
	require.NoError(t, err)
	assert.Equal(t, ProviderStrava, p)

	p, err = ParseProvider("whoop")
	require.NoError(t, err)
	assert.Equal(t, ProviderWhoop, p)

	_, err = ParseProvider("garmin")
	assert.Error(t, err)
}
