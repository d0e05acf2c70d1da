package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
)

// WorkoutLogStore defines the driven port for completed-workout persistence.
type WorkoutLogStore interface {
	// SaveWorkout stores a workout with its exercises and sets, and
	// updates personal records from the completed sets. Totals must be
	// computed by the caller before saving.
	SaveWorkout(ctx context.Context, workout *model.WorkoutLog) (*model.WorkoutLog, error)

	// History returns workout summaries (no nested exercises) matching
	// the filter, newest first, plus the total match count for paging.
	History(ctx context.Context, filter model.WorkoutHistoryFilter) ([]model.WorkoutLog, int, error)

	// GetWorkout returns one workout with nested exercises and sets, or
	// (nil, nil) when it does not exist.
	GetWorkout(ctx context.Context, id int64) (*model.WorkoutLog, error)

	// DeleteWorkout removes a workout and its nested records.
	DeleteWorkout(ctx context.Context, id int64) error

	// Stats aggregates workouts completed within [start, end].
	Stats(ctx context.Context, start, end time.Time) (model.WorkoutStats, error)

	// PersonalRecords returns current PRs, optionally filtered to one
	// exercise, best weight first.
	PersonalRecords(ctx context.Context, exercise string) ([]model.PersonalRecord, error)

	// RecentPersonalRecords returns PRs achieved in the last N days.
	RecentPersonalRecords(ctx context.Context, days int) ([]model.PersonalRecord, error)
}
