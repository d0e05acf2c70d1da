package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

// WorkoutHistory pairs one page of workout summaries with the total match
// count.
type WorkoutHistory struct {
	Workouts []model.WorkoutLog
	Total    int
	Limit    int
	Offset   int
}

// WorkoutService owns the completed-workout log: saving sessions, history,
// stats, and personal records.
type WorkoutService struct {
	store  driven.WorkoutLogStore
	logger *slog.Logger
}

// NewWorkoutService creates the service.
func NewWorkoutService(store driven.WorkoutLogStore, logger *slog.Logger) *WorkoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkoutService{store: store, logger: logger}
}

// Complete validates and stores a finished workout. Totals are recomputed
// from the sets, ignoring whatever the caller sent.
func (s *WorkoutService) Complete(ctx context.Context, workout *model.WorkoutLog) (*model.WorkoutLog, error) {
	if workout.RoutineName == "" {
		return nil, fmt.Errorf("routine name is required")
	}
	if len(workout.Exercises) == 0 {
		return nil, fmt.Errorf("workout has no exercises")
	}
	if workout.CompletedAt.IsZero() {
		workout.CompletedAt = time.Now().UTC()
	}
	if workout.DurationSeconds == 0 && !workout.StartedAt.IsZero() {
		workout.DurationSeconds = int(workout.CompletedAt.Sub(workout.StartedAt).Seconds())
	}
	workout.ComputeTotals()

	saved, err := s.store.SaveWorkout(ctx, workout)
	if err != nil {
		return nil, fmt.Errorf("save workout: %w", err)
	}

	s.logger.Info("workout completed",
		"id", saved.ID,
		"routine", saved.RoutineName,
		"sets", saved.TotalSets,
		"volume", saved.TotalVolume)
	return saved, nil
}

// History returns a page of workout summaries. Limit defaults to 20 and is
// capped at 100.
func (s *WorkoutService) History(ctx context.Context, filter model.WorkoutHistoryFilter) (*WorkoutHistory, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	workouts, total, err := s.store.History(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &WorkoutHistory{
		Workouts: workouts,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}

// Get returns one workout with nested exercises and sets, or (nil, nil)
// when it does not exist.
func (s *WorkoutService) Get(ctx context.Context, id int64) (*model.WorkoutLog, error) {
	return s.store.GetWorkout(ctx, id)
}

// Delete removes a workout and everything nested under it.
func (s *WorkoutService) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteWorkout(ctx, id)
}

// Stats aggregates workouts over [start, end]. A zero start means 30 days
// back; a zero end means now.
func (s *WorkoutService) Stats(ctx context.Context, start, end time.Time) (model.WorkoutStats, error) {
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}
	return s.store.Stats(ctx, start, end)
}

// PersonalRecords returns current PRs, optionally for one exercise.
func (s *WorkoutService) PersonalRecords(ctx context.Context, exercise string) ([]model.PersonalRecord, error) {
	return s.store.PersonalRecords(ctx, exercise)
}

// RecentPersonalRecords returns PRs achieved in the last N days, defaulting
// to 30.
func (s *WorkoutService) RecentPersonalRecords(ctx context.Context, days int) ([]model.PersonalRecord, error) {
	if days <= 0 {
		days = 30
	}
	return s.store.RecentPersonalRecords(ctx, days)
}
