package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// One row per provider, updated in place on every refresh.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new CredentialRepo.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Get returns the stored credential for the provider, or (nil, nil) when no
// row exists.
func (r *CredentialRepo) Get(ctx context.Context, provider model.Provider) (*model.Credential, error) {
	const query = `SELECT id, provider, access_token, refresh_token, expires_at, updated_at
		FROM auth_credentials WHERE provider = ?`

	var (
		cred         model.Credential
		refreshToken sql.NullString
		expiresAt    sql.NullString
		updatedAt    string
	)
	err := r.db.Reader.QueryRowContext(ctx, query, string(provider)).Scan(
		&cred.ID, &cred.Provider, &cred.AccessToken, &refreshToken, &expiresAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credentials %q: %w", provider, err)
	}

	cred.RefreshToken = refreshToken.String
	if expiresAt.Valid {
		t, err := parseTime(expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse expires_at for %q: %w", provider, err)
		}
		cred.ExpiresAt = &t
	}
	cred.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at for %q: %w", provider, err)
	}

	return &cred, nil
}

// Save upserts the credential for the provider. An empty RefreshToken in the
// update preserves any previously stored refresh token, since providers do
// not always return a fresh one on refresh.
func (r *CredentialRepo) Save(ctx context.Context, provider model.Provider, update driven.TokenUpdate) error {
	const query = `INSERT INTO auth_credentials (provider, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, NULLIF(?, ''), ?, CURRENT_TIMESTAMP)
		ON CONFLICT(provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = COALESCE(NULLIF(excluded.refresh_token, ''), auth_credentials.refresh_token),
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP`

	var expiresAt any
	if update.ExpiresAt != nil {
		expiresAt = update.ExpiresAt.UTC().Format(time.RFC3339)
	}

	_, err := r.db.Writer.ExecContext(ctx, query, string(provider), update.AccessToken, update.RefreshToken, expiresAt)
	if err != nil {
		return fmt.Errorf("save credentials %q: %w", provider, err)
	}
	return nil
}

// Delete removes the credential for the provider.
func (r *CredentialRepo) Delete(ctx context.Context, provider model.Provider) error {
	const query = `DELETE FROM auth_credentials WHERE provider = ?`
	_, err := r.db.Writer.ExecContext(ctx, query, string(provider))
	if err != nil {
		return fmt.Errorf("delete credentials %q: %w", provider, err)
	}
	return nil
}
