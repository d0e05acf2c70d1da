package model

import "time"

// WorkoutLog is a completed gym session with computed totals.
type WorkoutLog struct {
	ID               int64
	RoutineID        string
	RoutineName      string
	WorkoutType      string
	StartedAt        time.Time
	CompletedAt      time.Time
	DurationSeconds  int
	TotalVolume      float64
	TotalSets        int
	TotalReps        int
	Notes            string
	EffortRating     *int
	StravaActivityID *int64
	WhoopWorkoutID   string
	Exercises        []ExerciseLog
}

// ExerciseLog is one exercise within a workout, in performed order.
type ExerciseLog struct {
	ID             int64
	WorkoutLogID   int64
	ExerciseID     string
	ExerciseName   string
	ExerciseOrder  int
	IsSuperset     bool
	SupersetGroup  string
	Notes          string
	Sets           []SetLog
}

// SetLog is one completed set.
type SetLog struct {
	ID              int64
	ExerciseLogID   int64
	SetNumber       int
	SetType         string
	Weight          *float64
	Reps            *int
	DurationSeconds *int
	RPE             *float64
	Notes           string
}

// ComputeTotals derives volume, set count, and rep count from the attached
// sets. Volume only counts sets that carry both weight and reps.
func (w *WorkoutLog) ComputeTotals() {
	w.TotalVolume = 0
	w.TotalSets = 0
	w.TotalReps = 0
	for _, ex := range w.Exercises {
		for _, set := range ex.Sets {
			w.TotalSets++
			if set.Reps != nil {
				w.TotalReps += *set.Reps
				if set.Weight != nil {
					w.TotalVolume += *set.Weight * float64(*set.Reps)
				}
			}
		}
	}
}

// PersonalRecord is the best recorded weight for an exercise at a given rep
// count. Updated by max comparison when a heavier set is logged.
type PersonalRecord struct {
	ID           int64
	ExerciseName string
	Reps         int
	Weight       float64
	AchievedAt   time.Time
	WorkoutLogID int64
}

// WorkoutStats aggregates workout logs over a date range.
type WorkoutStats struct {
	WorkoutCount    int
	TotalVolume     float64
	TotalSets       int
	TotalReps       int
	TotalDuration   int
	AverageDuration float64
}

// WorkoutHistoryFilter narrows and pages the workout history listing.
type WorkoutHistoryFilter struct {
	Limit       int
	Offset      int
	StartDate   *time.Time
	EndDate     *time.Time
	RoutineID   string
	WorkoutType string
}
