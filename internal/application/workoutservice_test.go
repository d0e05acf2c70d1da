package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/traintrack/internal/application"
	"github.com/ericfisherdev/traintrack/internal/domain/model"
)

func weight(v float64) *float64 { return &v }
func reps(v int) *int           { return &v }

func benchWorkout() *model.WorkoutLog {
	return &model.WorkoutLog{
		RoutineName: "Push Day",
		WorkoutType: "strength",
		Exercises: []model.ExerciseLog{
			{
				ExerciseName: "Bench Press",
				Sets: []model.SetLog{
					{Weight: weight(80), Reps: reps(8)},
					{Weight: weight(85), Reps: reps(5)},
				},
			},
		},
	}
}

func TestCompleteRecomputesTotals(t *testing.T) {
	store := &mockWorkoutLogStore{}
	svc := application.NewWorkoutService(store, nil)

	workout := benchWorkout()
	workout.TotalVolume = 999999 // caller-sent totals are ignored
	workout.TotalSets = 42

	saved, err := svc.Complete(context.Background(), workout)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.TotalSets)
	assert.Equal(t, 13, saved.TotalReps)
	assert.InDelta(t, 80*8+85*5, saved.TotalVolume, 0.001)
	assert.False(t, saved.CompletedAt.IsZero())
}

func TestCompleteDerivesDurationFromStart(t *testing.T) {
	store := &mockWorkoutLogStore{}
	svc := application.NewWorkoutService(store, nil)

	workout := benchWorkout()
	workout.CompletedAt = time.Now().UTC()
	workout.StartedAt = workout.CompletedAt.Add(-45 * time.Minute)

	saved, err := svc.Complete(context.Background(), workout)
	require.NoError(t, err)
	assert.Equal(t, 2700, saved.DurationSeconds)
}

func TestCompleteKeepsExplicitDuration(t *testing.T) {
	svc := application.NewWorkoutService(&mockWorkoutLogStore{}, nil)

	workout := benchWorkout()
	workout.StartedAt = time.Now().Add(-2 * time.Hour)
	workout.DurationSeconds = 1800

	saved, err := svc.Complete(context.Background(), workout)
	require.NoError(t, err)
	assert.Equal(t, 1800, saved.DurationSeconds)
}

func TestCompleteRejectsInvalidWorkouts(t *testing.T) {
	svc := application.NewWorkoutService(&mockWorkoutLogStore{}, nil)

	_, err := svc.Complete(context.Background(), &model.WorkoutLog{
		Exercises: []model.ExerciseLog{{ExerciseName: "Squat"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "routine name")

	_, err = svc.Complete(context.Background(), &model.WorkoutLog{RoutineName: "Leg Day"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no exercises")
}

func TestHistoryAppliesPagingDefaults(t *testing.T) {
	store := &mockWorkoutLogStore{
		history: []model.WorkoutLog{{ID: 1}, {ID: 2}},
		total:   12,
	}
	svc := application.NewWorkoutService(store, nil)

	history, err := svc.History(context.Background(), model.WorkoutHistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 20, store.gotFilter.Limit)
	assert.Equal(t, 0, store.gotFilter.Offset)
	assert.Equal(t, 12, history.Total)
	assert.Len(t, history.Workouts, 2)
}

func TestHistoryCapsLimit(t *testing.T) {
	store := &mockWorkoutLogStore{}
	svc := application.NewWorkoutService(store, nil)

	_, err := svc.History(context.Background(), model.WorkoutHistoryFilter{Limit: 5000, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, 100, store.gotFilter.Limit)
	assert.Equal(t, 0, store.gotFilter.Offset)
}

func TestStatsDefaultsToLastThirtyDays(t *testing.T) {
	store := &mockWorkoutLogStore{stats: model.WorkoutStats{WorkoutCount: 4}}
	svc := application.NewWorkoutService(store, nil)

	stats, err := svc.Stats(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.WorkoutCount)

	assert.WithinDuration(t, time.Now(), store.statsEnd, 5*time.Second)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -30), store.statsStart, 5*time.Second)
}

func TestStatsHonorsExplicitRange(t *testing.T) {
	store := &mockWorkoutLogStore{}
	svc := application.NewWorkoutService(store, nil)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Stats(context.Background(), start, end)
	require.NoError(t, err)
	assert.Equal(t, start, store.statsStart)
	assert.Equal(t, end, store.statsEnd)
}

func TestRecentPersonalRecordsDefaultsDays(t *testing.T) {
	store := &mockWorkoutLogStore{records: []model.PersonalRecord{{ExerciseName: "Bench Press"}}}
	svc := application.NewWorkoutService(store, nil)

	records, err := svc.RecentPersonalRecords(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 30, store.gotDays)
	require.Len(t, records, 1)
}

func TestDeleteForwardsToStore(t *testing.T) {
	store := &mockWorkoutLogStore{}
	svc := application.NewWorkoutService(store, nil)

	require.NoError(t, svc.Delete(context.Background(), 77))
	assert.Equal(t, []int64{77}, store.deleted)
}
