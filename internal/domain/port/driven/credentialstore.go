package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
)

// ErrStateMismatch is returned when an OAuth callback presents a state value
// that was never issued or has already been consumed.
var ErrStateMismatch = errors.New("oauth state missing or already used")

// TokenUpdate is the payload for a credential upsert. RefreshToken may be
// empty: providers do not always rotate the refresh token, and the store must
// preserve the previously stored one in that case. ExpiresAt is absolute;
// callers converting a relative expires_in value do so before saving.
type TokenUpdate struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// CredentialStore defines the driven port for per-provider OAuth token
// persistence. There is at most one credential row per provider.
type CredentialStore interface {
	// Get returns the stored credential for the provider, or (nil, nil)
	// when none exists. "No credentials" is a normal state, not an error.
	Get(ctx context.Context, provider model.Provider) (*model.Credential, error)

	// Save upserts the credential for the provider. An empty RefreshToken
	// in the update leaves any previously stored refresh token intact.
	// Failures must propagate to the caller: silently losing a refreshed
	// token causes repeated re-auth loops.
	Save(ctx context.Context, provider model.Provider, update TokenUpdate) error

	// Delete removes the credential for the provider. Used for explicit
	// disconnect only; credentials are never deleted automatically.
	Delete(ctx context.Context, provider model.Provider) error
}

// StateStore persists pending OAuth anti-forgery state values across the
// authorization redirect round-trip. States are single-use and expire.
type StateStore interface {
	// Put records a freshly issued state for the provider.
	Put(ctx context.Context, state string, provider model.Provider) error

	// Consume atomically validates and removes a state. Returns
	// ErrStateMismatch if the state is unknown, expired, or already used.
	Consume(ctx context.Context, state string) (model.Provider, error)
}
