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
var _ driven.StateStore = (*StateRepo)(nil)

// stateTTL bounds how long an issued OAuth state remains valid. The redirect
// round-trip is interactive; anything older is stale.
const stateTTL = 10 * time.Minute

// StateRepo persists pending OAuth anti-forgery states. Backing them with
// the database instead of a process-local map keeps the round-trip valid
// across restarts.
type StateRepo struct {
	db *DB
}

// NewStateRepo creates a new StateRepo.
func NewStateRepo(db *DB) *StateRepo {
	return &StateRepo{db: db}
}

// Put records a freshly issued state for the provider.
func (r *StateRepo) Put(ctx context.Context, state string, provider model.Provider) error {
	const query = `INSERT INTO oauth_states (state, provider, created_at) VALUES (?, ?, ?)`
	_, err := r.db.Writer.ExecContext(ctx, query, state, string(provider), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store oauth state: %w", err)
	}
	return nil
}

// Consume validates and removes a state in one step. Expired states are
// treated as unknown.
func (r *StateRepo) Consume(ctx context.Context, state string) (model.Provider, error) {
	const query = `DELETE FROM oauth_states WHERE state = ? AND created_at >= ? RETURNING provider`

	cutoff := time.Now().Add(-stateTTL).UTC().Format(time.RFC3339)

	var provider string
	err := r.db.Writer.QueryRowContext(ctx, query, state, cutoff).Scan(&provider)
	if errors.Is(err, sql.ErrNoRows) {
		// Opportunistically drop anything stale so the table stays small.
		_, _ = r.db.Writer.ExecContext(ctx, `DELETE FROM oauth_states WHERE created_at < ?`, cutoff)
		return "", driven.ErrStateMismatch
	}
	if err != nil {
		return "", fmt.Errorf("consume oauth state: %w", err)
	}

	return model.Provider(provider), nil
}
