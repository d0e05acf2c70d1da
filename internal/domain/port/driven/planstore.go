package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
)

// ErrPlanNotFound is returned when no plan exists for a requested week/day.
var ErrPlanNotFound = errors.New("no plan for this day")

// DailyLogUpdate is a partial update for a plan day's log. Nil pointer
// fields are left unchanged.
type DailyLogUpdate struct {
	EffortRating     *int
	RecoveryScore    *float64
	StravaActivityID *int64
	MarkComplete     bool
}

// PlanStore defines the driven port for training plan persistence.
type PlanStore interface {
	// GetPlan returns the plan for (week, day). Day matching is
	// case-insensitive. Returns ErrPlanNotFound when no plan exists.
	GetPlan(ctx context.Context, week int, day string) (*model.Plan, error)

	// GetChecklist returns the checklist items for a plan, ordered by id.
	GetChecklist(ctx context.Context, planID int64) ([]model.ChecklistItem, error)

	// SetChecklistItem sets an item's completion state and returns the
	// updated item.
	SetChecklistItem(ctx context.Context, id int64, completed bool) (*model.ChecklistItem, error)

	// GetChecklistItem returns a single checklist item by id, or (nil, nil)
	// when it does not exist.
	GetChecklistItem(ctx context.Context, id int64) (*model.ChecklistItem, error)

	// GetDailyLog returns the log for a plan, or (nil, nil) when the day
	// has not been logged yet.
	GetDailyLog(ctx context.Context, planID int64) (*model.DailyLog, error)

	// UpsertDailyLog creates or partially updates the log for a plan and
	// returns the stored row.
	UpsertDailyLog(ctx context.Context, planID int64, update DailyLogUpdate) (*model.DailyLog, error)

	// WeekPlans returns every plan day in a week with checklist and log.
	WeekPlans(ctx context.Context, week int) ([]model.WeekPlan, error)

	// Progress returns overall completion counts across the whole plan.
	Progress(ctx context.Context) (model.Progress, error)
}
