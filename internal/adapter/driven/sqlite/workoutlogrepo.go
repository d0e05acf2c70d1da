package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WorkoutLogStore = (*WorkoutLogRepo)(nil)

// WorkoutLogRepo is the SQLite implementation of the WorkoutLogStore port.
type WorkoutLogRepo struct {
	db *DB
}

// NewWorkoutLogRepo creates a new WorkoutLogRepo.
func NewWorkoutLogRepo(db *DB) *WorkoutLogRepo {
	return &WorkoutLogRepo{db: db}
}

// SaveWorkout stores a workout with its exercises and sets in one
// transaction, then updates personal records from the completed sets.
func (r *WorkoutLogRepo) SaveWorkout(ctx context.Context, workout *model.WorkoutLog) (*model.WorkoutLog, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin save workout: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	completedAt := workout.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	var startedAt any
	if !workout.StartedAt.IsZero() {
		startedAt = workout.StartedAt.UTC().Format(time.RFC3339)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO workout_logs (routine_id, routine_name, workout_type, started_at, completed_at,
			duration_seconds, total_volume, total_sets, total_reps, notes, effort_rating,
			strava_activity_id, whoop_workout_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		workout.RoutineID, workout.RoutineName, workout.WorkoutType, startedAt,
		completedAt.UTC().Format(time.RFC3339), workout.DurationSeconds,
		workout.TotalVolume, workout.TotalSets, workout.TotalReps, workout.Notes,
		workout.EffortRating, workout.StravaActivityID, workout.WhoopWorkoutID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert workout log: %w", err)
	}
	workoutID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("workout log id: %w", err)
	}

	for i := range workout.Exercises {
		ex := &workout.Exercises[i]
		res, err := tx.ExecContext(ctx,
			`INSERT INTO exercise_logs (workout_log_id, exercise_id, exercise_name, exercise_order,
				is_superset, superset_group, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			workoutID, ex.ExerciseID, ex.ExerciseName, i, ex.IsSuperset, ex.SupersetGroup, ex.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("insert exercise log %q: %w", ex.ExerciseName, err)
		}
		exerciseLogID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("exercise log id: %w", err)
		}
		ex.ID = exerciseLogID
		ex.WorkoutLogID = workoutID
		ex.ExerciseOrder = i

		for j := range ex.Sets {
			set := &ex.Sets[j]
			setNumber := set.SetNumber
			if setNumber == 0 {
				setNumber = j + 1
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO set_logs (exercise_log_id, set_number, set_type, weight, reps, duration_seconds, rpe, notes)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				exerciseLogID, setNumber, orDefault(set.SetType, "working"),
				set.Weight, set.Reps, set.DurationSeconds, set.RPE, set.Notes,
			); err != nil {
				return nil, fmt.Errorf("insert set log: %w", err)
			}
		}

		if err := updatePersonalRecords(ctx, tx, ex.ExerciseName, ex.Sets, workoutID, completedAt); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit save workout: %w", err)
	}

	workout.ID = workoutID
	workout.CompletedAt = completedAt
	return workout, nil
}

// updatePersonalRecords applies max-comparison upserts per (exercise, reps)
// for every set carrying both weight and reps.
func updatePersonalRecords(ctx context.Context, tx *sql.Tx, exercise string, sets []model.SetLog, workoutID int64, achievedAt time.Time) error {
	const query = `INSERT INTO personal_records (exercise_name, reps, weight, achieved_at, workout_log_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(exercise_name, reps) DO UPDATE SET
			weight = excluded.weight,
			achieved_at = excluded.achieved_at,
			workout_log_id = excluded.workout_log_id
		WHERE excluded.weight > personal_records.weight`

	for _, set := range sets {
		if set.Weight == nil || set.Reps == nil || *set.Reps <= 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, query,
			exercise, *set.Reps, *set.Weight, achievedAt.UTC().Format(time.RFC3339), workoutID,
		); err != nil {
			return fmt.Errorf("update PR for %q: %w", exercise, err)
		}
	}
	return nil
}

// History returns workout summaries matching the filter, newest first, plus
// the total match count for paging.
func (r *WorkoutLogRepo) History(ctx context.Context, filter model.WorkoutHistoryFilter) ([]model.WorkoutLog, int, error) {
	where := []string{"1=1"}
	args := []any{}

	if filter.StartDate != nil {
		where = append(where, "completed_at >= ?")
		args = append(args, filter.StartDate.UTC().Format(time.RFC3339))
	}
	if filter.EndDate != nil {
		where = append(where, "completed_at <= ?")
		args = append(args, filter.EndDate.UTC().Format(time.RFC3339))
	}
	if filter.RoutineID != "" {
		where = append(where, "routine_id = ?")
		args = append(args, filter.RoutineID)
	}
	if filter.WorkoutType != "" {
		where = append(where, "workout_type = ?")
		args = append(args, filter.WorkoutType)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.Reader.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM workout_logs WHERE "+cond, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count workout history: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, routine_id, routine_name, workout_type, started_at, completed_at,
			duration_seconds, total_volume, total_sets, total_reps, notes, effort_rating,
			strava_activity_id, whoop_workout_id
		FROM workout_logs WHERE ` + cond + ` ORDER BY completed_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.Reader.QueryContext(ctx, query, append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list workout history: %w", err)
	}
	defer rows.Close()

	workouts := []model.WorkoutLog{}
	for rows.Next() {
		w, err := scanWorkoutLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan workout log: %w", err)
		}
		workouts = append(workouts, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate workout history: %w", err)
	}

	return workouts, total, nil
}

// GetWorkout returns one workout with nested exercises and sets, or
// (nil, nil) when it does not exist.
func (r *WorkoutLogRepo) GetWorkout(ctx context.Context, id int64) (*model.WorkoutLog, error) {
	const query = `SELECT id, routine_id, routine_name, workout_type, started_at, completed_at,
			duration_seconds, total_volume, total_sets, total_reps, notes, effort_rating,
			strava_activity_id, whoop_workout_id
		FROM workout_logs WHERE id = ?`

	workout, err := scanWorkoutLog(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workout %d: %w", id, err)
	}

	exRows, err := r.db.Reader.QueryContext(ctx,
		`SELECT id, workout_log_id, exercise_id, exercise_name, exercise_order, is_superset, superset_group, notes
		FROM exercise_logs WHERE workout_log_id = ? ORDER BY exercise_order`, id)
	if err != nil {
		return nil, fmt.Errorf("list exercises for workout %d: %w", id, err)
	}
	defer exRows.Close()

	for exRows.Next() {
		var (
			ex            model.ExerciseLog
			exerciseID    sql.NullString
			supersetGroup sql.NullString
			notes         sql.NullString
		)
		if err := exRows.Scan(&ex.ID, &ex.WorkoutLogID, &exerciseID, &ex.ExerciseName,
			&ex.ExerciseOrder, &ex.IsSuperset, &supersetGroup, &notes); err != nil {
			return nil, fmt.Errorf("scan exercise log: %w", err)
		}
		ex.ExerciseID = exerciseID.String
		ex.SupersetGroup = supersetGroup.String
		ex.Notes = notes.String
		workout.Exercises = append(workout.Exercises, ex)
	}
	if err := exRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exercises: %w", err)
	}

	for i := range workout.Exercises {
		sets, err := r.setsForExercise(ctx, workout.Exercises[i].ID)
		if err != nil {
			return nil, err
		}
		workout.Exercises[i].Sets = sets
	}

	return workout, nil
}

func (r *WorkoutLogRepo) setsForExercise(ctx context.Context, exerciseLogID int64) ([]model.SetLog, error) {
	rows, err := r.db.Reader.QueryContext(ctx,
		`SELECT id, exercise_log_id, set_number, set_type, weight, reps, duration_seconds, rpe, notes
		FROM set_logs WHERE exercise_log_id = ? ORDER BY set_number`, exerciseLogID)
	if err != nil {
		return nil, fmt.Errorf("list sets for exercise %d: %w", exerciseLogID, err)
	}
	defer rows.Close()

	sets := []model.SetLog{}
	for rows.Next() {
		var (
			set      model.SetLog
			weight   sql.NullFloat64
			reps     sql.NullInt64
			duration sql.NullInt64
			rpe      sql.NullFloat64
			notes    sql.NullString
		)
		if err := rows.Scan(&set.ID, &set.ExerciseLogID, &set.SetNumber, &set.SetType,
			&weight, &reps, &duration, &rpe, &notes); err != nil {
			return nil, fmt.Errorf("scan set log: %w", err)
		}
		if weight.Valid {
			v := weight.Float64
			set.Weight = &v
		}
		if reps.Valid {
			v := int(reps.Int64)
			set.Reps = &v
		}
		if duration.Valid {
			v := int(duration.Int64)
			set.DurationSeconds = &v
		}
		if rpe.Valid {
			v := rpe.Float64
			set.RPE = &v
		}
		set.Notes = notes.String
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sets: %w", err)
	}
	return sets, nil
}

// DeleteWorkout removes a workout; nested exercise and set rows cascade.
func (r *WorkoutLogRepo) DeleteWorkout(ctx context.Context, id int64) error {
	_, err := r.db.Writer.ExecContext(ctx, `DELETE FROM workout_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete workout %d: %w", id, err)
	}
	return nil
}

// Stats aggregates workouts completed within [start, end].
func (r *WorkoutLogRepo) Stats(ctx context.Context, start, end time.Time) (model.WorkoutStats, error) {
	const query = `SELECT COUNT(*),
			COALESCE(SUM(total_volume), 0),
			COALESCE(SUM(total_sets), 0),
			COALESCE(SUM(total_reps), 0),
			COALESCE(SUM(duration_seconds), 0),
			COALESCE(AVG(duration_seconds), 0)
		FROM workout_logs WHERE completed_at >= ? AND completed_at <= ?`

	var stats model.WorkoutStats
	err := r.db.Reader.QueryRowContext(ctx, query,
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339),
	).Scan(&stats.WorkoutCount, &stats.TotalVolume, &stats.TotalSets,
		&stats.TotalReps, &stats.TotalDuration, &stats.AverageDuration)
	if err != nil {
		return model.WorkoutStats{}, fmt.Errorf("compute workout stats: %w", err)
	}
	return stats, nil
}

// PersonalRecords returns current PRs, best weight first, optionally
// filtered to one exercise.
func (r *WorkoutLogRepo) PersonalRecords(ctx context.Context, exercise string) ([]model.PersonalRecord, error) {
	query := `SELECT id, exercise_name, reps, weight, achieved_at, COALESCE(workout_log_id, 0)
		FROM personal_records`
	args := []any{}
	if exercise != "" {
		query += ` WHERE exercise_name = ?`
		args = append(args, exercise)
	}
	query += ` ORDER BY weight DESC, exercise_name`

	return r.queryPRs(ctx, query, args...)
}

// RecentPersonalRecords returns PRs achieved in the last N days.
func (r *WorkoutLogRepo) RecentPersonalRecords(ctx context.Context, days int) ([]model.PersonalRecord, error) {
	cutoff := time.Now().AddDate(0, 0, -days).UTC().Format(time.RFC3339)
	const query = `SELECT id, exercise_name, reps, weight, achieved_at, COALESCE(workout_log_id, 0)
		FROM personal_records WHERE achieved_at >= ? ORDER BY achieved_at DESC`
	return r.queryPRs(ctx, query, cutoff)
}

func (r *WorkoutLogRepo) queryPRs(ctx context.Context, query string, args ...any) ([]model.PersonalRecord, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list personal records: %w", err)
	}
	defer rows.Close()

	prs := []model.PersonalRecord{}
	for rows.Next() {
		var (
			pr         model.PersonalRecord
			achievedAt string
		)
		if err := rows.Scan(&pr.ID, &pr.ExerciseName, &pr.Reps, &pr.Weight, &achievedAt, &pr.WorkoutLogID); err != nil {
			return nil, fmt.Errorf("scan personal record: %w", err)
		}
		pr.AchievedAt, err = parseTime(achievedAt)
		if err != nil {
			return nil, fmt.Errorf("parse achieved_at: %w", err)
		}
		prs = append(prs, pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate personal records: %w", err)
	}
	return prs, nil
}

func scanWorkoutLog(row rowScanner) (*model.WorkoutLog, error) {
	var (
		w            model.WorkoutLog
		routineID    sql.NullString
		startedAt    sql.NullString
		completedAt  string
		notes        sql.NullString
		effortRating sql.NullInt64
		stravaID     sql.NullInt64
		whoopID      sql.NullString
	)
	err := row.Scan(&w.ID, &routineID, &w.RoutineName, &w.WorkoutType, &startedAt, &completedAt,
		&w.DurationSeconds, &w.TotalVolume, &w.TotalSets, &w.TotalReps, &notes, &effortRating,
		&stravaID, &whoopID)
	if err != nil {
		return nil, err
	}
	w.RoutineID = routineID.String
	w.Notes = notes.String
	w.WhoopWorkoutID = whoopID.String
	if startedAt.Valid {
		t, err := parseTime(startedAt.String)
		if err != nil {
			return nil, err
		}
		w.StartedAt = t
	}
	w.CompletedAt, err = parseTime(completedAt)
	if err != nil {
		return nil, err
	}
	if effortRating.Valid {
		v := int(effortRating.Int64)
		w.EffortRating = &v
	}
	if stravaID.Valid {
		v := stravaID.Int64
		w.StravaActivityID = &v
	}
	return &w, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
