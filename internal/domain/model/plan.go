package model

import "time"

// Plan is one day of the training plan, keyed by (week, day-of-week).
type Plan struct {
	ID            int64
	Week          int
	Day           string
	PrimaryType   string
	SecondaryType string
	Description   string
	TargetPace    string
	DurationMin   int
}

// WorkoutLabel combines the primary and secondary workout types into the
// display label used by the day summary.
func (p *Plan) WorkoutLabel() string {
	if p.SecondaryType == "" {
		return p.PrimaryType
	}
	return p.PrimaryType + " + " + p.SecondaryType
}

// ChecklistItem is one exercise on a plan day's checklist.
type ChecklistItem struct {
	ID          int64
	PlanID      int64
	Exercise    string
	IsCompleted bool
}

// DailyLog records how a plan day actually went, including links to external
// provider records. At most one per plan day; it may legitimately not exist
// yet for days that have not been logged.
type DailyLog struct {
	ID               int64
	PlanID           int64
	EffortRating     *int
	RecoveryScore    *float64
	StravaActivityID *int64
	IsDayComplete    bool
	CreatedAt        time.Time
}

// Progress summarizes overall plan completion.
type Progress struct {
	TotalDays          int
	CompletedDays      int
	TotalExercises     int
	CompletedExercises int
}

// DayPercent returns completed days as a percentage of total days.
func (p Progress) DayPercent() float64 {
	if p.TotalDays == 0 {
		return 0
	}
	return float64(p.CompletedDays) / float64(p.TotalDays) * 100
}

// ExercisePercent returns completed exercises as a percentage of the total.
func (p Progress) ExercisePercent() float64 {
	if p.TotalExercises == 0 {
		return 0
	}
	return float64(p.CompletedExercises) / float64(p.TotalExercises) * 100
}

// WeekPlan is a plan day with its checklist and log attached, as returned by
// the week listing.
type WeekPlan struct {
	Plan      Plan
	Checklist []ChecklistItem
	DailyLog  *DailyLog
}
