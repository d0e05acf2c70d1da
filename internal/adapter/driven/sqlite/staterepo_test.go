package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

func TestStateRepo_PutAndConsume(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStateRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "state-abc", model.ProviderWhoop))

	provider, err := repo.Consume(ctx, "state-abc")
	require.NoError(t, err)
	assert.Equal(t, model.ProviderWhoop, provider)
}

func TestStateRepo_ConsumeIsSingleUse(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStateRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, "state-once", model.ProviderWhoop))

	_, err := repo.Consume(ctx, "state-once")
	require.NoError(t, err)

	_, err = repo.Consume(ctx, "state-once")
	assert.ErrorIs(t, err, driven.ErrStateMismatch)
}

func TestStateRepo_ConsumeUnknown(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStateRepo(db)

	_, err := repo.Consume(context.Background(), "never-issued")
	assert.ErrorIs(t, err, driven.ErrStateMismatch)
}

func TestStateRepo_ConsumeExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStateRepo(db)
	ctx := context.Background()

	// Insert a state as if it was issued beyond the TTL.
	stale := time.Now().UTC().Add(-stateTTL - time.Minute).Format(time.RFC3339)
	_, err := db.Writer.ExecContext(ctx,
		`INSERT INTO oauth_states (state, provider, created_at) VALUES (?, ?, ?)`,
		"state-old", string(model.ProviderWhoop), stale)
	require.NoError(t, err)

	_, err = repo.Consume(ctx, "state-old")
	assert.ErrorIs(t, err, driven.ErrStateMismatch)

	// The stale row is purged on the failed consume.
	var count int
	require.NoError(t, db.Reader.QueryRowContext(ctx, "SELECT COUNT(*) FROM oauth_states").Scan(&count))
	assert.Equal(t, 0, count)
}
