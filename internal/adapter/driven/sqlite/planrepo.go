package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PlanStore = (*PlanRepo)(nil)

// PlanRepo is the SQLite implementation of the PlanStore port.
type PlanRepo struct {
	db *DB
}

// NewPlanRepo creates a new PlanRepo.
func NewPlanRepo(db *DB) *PlanRepo {
	return &PlanRepo{db: db}
}

// GetPlan returns the plan for (week, day), matching day case-insensitively.
func (r *PlanRepo) GetPlan(ctx context.Context, week int, day string) (*model.Plan, error) {
	const query = `SELECT id, week, day, primary_type, secondary_type, description, target_pace, duration_min
		FROM training_plan WHERE week = ? AND day = ? COLLATE NOCASE`

	plan, err := scanPlan(r.db.Reader.QueryRowContext(ctx, query, week, day))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driven.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plan week %d %s: %w", week, day, err)
	}
	return plan, nil
}

// GetChecklist returns the checklist items for a plan, ordered by id.
func (r *PlanRepo) GetChecklist(ctx context.Context, planID int64) ([]model.ChecklistItem, error) {
	const query = `SELECT id, plan_id, exercise_name, is_completed
		FROM exercise_checklists WHERE plan_id = ? ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("get checklist for plan %d: %w", planID, err)
	}
	defer rows.Close()

	items := []model.ChecklistItem{}
	for rows.Next() {
		var item model.ChecklistItem
		if err := rows.Scan(&item.ID, &item.PlanID, &item.Exercise, &item.IsCompleted); err != nil {
			return nil, fmt.Errorf("scan checklist item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checklist: %w", err)
	}
	return items, nil
}

// GetChecklistItem returns a single checklist item, or (nil, nil) when it
// does not exist.
func (r *PlanRepo) GetChecklistItem(ctx context.Context, id int64) (*model.ChecklistItem, error) {
	const query = `SELECT id, plan_id, exercise_name, is_completed FROM exercise_checklists WHERE id = ?`

	var item model.ChecklistItem
	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(&item.ID, &item.PlanID, &item.Exercise, &item.IsCompleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checklist item %d: %w", id, err)
	}
	return &item, nil
}

// SetChecklistItem sets an item's completion state and returns the updated row.
func (r *PlanRepo) SetChecklistItem(ctx context.Context, id int64, completed bool) (*model.ChecklistItem, error) {
	const query = `UPDATE exercise_checklists SET is_completed = ? WHERE id = ?
		RETURNING id, plan_id, exercise_name, is_completed`

	var item model.ChecklistItem
	err := r.db.Writer.QueryRowContext(ctx, query, completed, id).Scan(&item.ID, &item.PlanID, &item.Exercise, &item.IsCompleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("checklist item %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("update checklist item %d: %w", id, err)
	}
	return &item, nil
}

// GetDailyLog returns the log for a plan, or (nil, nil) when the day has not
// been logged yet.
func (r *PlanRepo) GetDailyLog(ctx context.Context, planID int64) (*model.DailyLog, error) {
	const query = `SELECT id, plan_id, effort_rating, recovery_score, strava_activity_id, is_day_complete, created_at
		FROM daily_logs WHERE plan_id = ?`

	log, err := scanDailyLog(r.db.Reader.QueryRowContext(ctx, query, planID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily log for plan %d: %w", planID, err)
	}
	return log, nil
}

// UpsertDailyLog creates or partially updates the log for a plan. Nil fields
// in the update leave existing values unchanged.
func (r *PlanRepo) UpsertDailyLog(ctx context.Context, planID int64, update driven.DailyLogUpdate) (*model.DailyLog, error) {
	const query = `INSERT INTO daily_logs (plan_id, effort_rating, recovery_score, strava_activity_id, is_day_complete)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(plan_id) DO UPDATE SET
			effort_rating = COALESCE(excluded.effort_rating, daily_logs.effort_rating),
			recovery_score = COALESCE(excluded.recovery_score, daily_logs.recovery_score),
			strava_activity_id = COALESCE(excluded.strava_activity_id, daily_logs.strava_activity_id),
			is_day_complete = MAX(excluded.is_day_complete, daily_logs.is_day_complete)
		RETURNING id, plan_id, effort_rating, recovery_score, strava_activity_id, is_day_complete, created_at`

	log, err := scanDailyLog(r.db.Writer.QueryRowContext(ctx, query,
		planID, update.EffortRating, update.RecoveryScore, update.StravaActivityID, update.MarkComplete))
	if err != nil {
		return nil, fmt.Errorf("upsert daily log for plan %d: %w", planID, err)
	}
	return log, nil
}

// WeekPlans returns every plan day in a week with checklist and log attached.
func (r *PlanRepo) WeekPlans(ctx context.Context, week int) ([]model.WeekPlan, error) {
	const query = `SELECT id, week, day, primary_type, secondary_type, description, target_pace, duration_min
		FROM training_plan WHERE week = ? ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query, week)
	if err != nil {
		return nil, fmt.Errorf("list week %d plans: %w", week, err)
	}
	defer rows.Close()

	plans := []model.WeekPlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, model.WeekPlan{Plan: *plan})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}

	for i := range plans {
		checklist, err := r.GetChecklist(ctx, plans[i].Plan.ID)
		if err != nil {
			return nil, err
		}
		plans[i].Checklist = checklist

		log, err := r.GetDailyLog(ctx, plans[i].Plan.ID)
		if err != nil {
			return nil, err
		}
		plans[i].DailyLog = log
	}

	return plans, nil
}

// Progress returns overall completion counts across the whole plan.
func (r *PlanRepo) Progress(ctx context.Context) (model.Progress, error) {
	const query = `SELECT
		(SELECT COUNT(*) FROM training_plan),
		(SELECT COUNT(*) FROM daily_logs WHERE is_day_complete = 1),
		(SELECT COUNT(*) FROM exercise_checklists),
		(SELECT COUNT(*) FROM exercise_checklists WHERE is_completed = 1)`

	var p model.Progress
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(
		&p.TotalDays, &p.CompletedDays, &p.TotalExercises, &p.CompletedExercises,
	)
	if err != nil {
		return model.Progress{}, fmt.Errorf("compute progress: %w", err)
	}
	return p, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*model.Plan, error) {
	var (
		plan          model.Plan
		secondaryType sql.NullString
		description   sql.NullString
		targetPace    sql.NullString
	)
	err := row.Scan(&plan.ID, &plan.Week, &plan.Day, &plan.PrimaryType,
		&secondaryType, &description, &targetPace, &plan.DurationMin)
	if err != nil {
		return nil, err
	}
	plan.SecondaryType = secondaryType.String
	plan.Description = description.String
	plan.TargetPace = targetPace.String
	return &plan, nil
}

func scanDailyLog(row rowScanner) (*model.DailyLog, error) {
	var (
		log              model.DailyLog
		effortRating     sql.NullInt64
		recoveryScore    sql.NullFloat64
		stravaActivityID sql.NullInt64
		createdAt        string
	)
	err := row.Scan(&log.ID, &log.PlanID, &effortRating, &recoveryScore,
		&stravaActivityID, &log.IsDayComplete, &createdAt)
	if err != nil {
		return nil, err
	}
	if effortRating.Valid {
		v := int(effortRating.Int64)
		log.EffortRating = &v
	}
	if recoveryScore.Valid {
		v := recoveryScore.Float64
		log.RecoveryScore = &v
	}
	if stravaActivityID.Valid {
		v := stravaActivityID.Int64
		log.StravaActivityID = &v
	}
	log.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &log, nil
}
