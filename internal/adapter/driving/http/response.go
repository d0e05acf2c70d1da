package httphandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ericfisherdev/traintrack/internal/adapter/driven/oauthapi"
	"github.com/ericfisherdev/traintrack/internal/adapter/driven/strava"
	"github.com/ericfisherdev/traintrack/internal/application"
	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeProviderError maps a provider-layer failure onto the API contract:
// missing authorization is 401 with a pointer at the auth endpoint, an
// upstream rejection is 502 with the provider's status and body, anything
// else is 500.
func writeProviderError(w http.ResponseWriter, provider model.Provider, err error) {
	if errors.Is(err, driven.ErrNotAuthenticated) || errors.Is(err, driven.ErrNoRefreshToken) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{
			Error:   err.Error(),
			AuthURL: "/api/v1/auth/" + string(provider),
		})
		return
	}

	var apiErr *oauthapi.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:          apiErr.Error(),
			ProviderStatus: apiErr.Status,
		})
		return
	}

	writeError(w, http.StatusInternalServerError, err.Error())
}

// errorResponse is the standard error response body. AuthURL points at the
// authorization endpoint when the failure is a missing connection.
type errorResponse struct {
	Error          string `json:"error"`
	AuthURL        string `json:"authUrl,omitempty"`
	ProviderStatus int    `json:"providerStatus,omitempty"`
}

// messageResponse is the standard success body for mutations that return no
// resource.
type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// AuthURLResponse carries a provider consent URL for the frontend to open.
type AuthURLResponse struct {
	Provider string `json:"provider"`
	AuthURL  string `json:"authUrl"`
}

// ConnectResponse is the callback success body.
type ConnectResponse struct {
	Success   bool             `json:"success"`
	Provider  string           `json:"provider"`
	ExpiresAt string           `json:"expires_at,omitempty"`
	Athlete   *AthleteResponse `json:"athlete,omitempty"`
}

// TokenRequest is the JSON body for manual token injection. ExpiresAt is
// absolute unix seconds; ExpiresIn is relative seconds; at most one applies.
type TokenRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ChecklistRequest is the JSON body for the checklist toggle endpoint. A nil
// Completed flips the current state.
type ChecklistRequest struct {
	Completed *bool `json:"completed"`
}

// DailyLogRequest is the JSON body for the day completion endpoint.
type DailyLogRequest struct {
	Week         int    `json:"week"`
	Day          string `json:"day"`
	EffortRating *int   `json:"effort_rating"`
}

// LinkMetricsRequest is the JSON body for attaching provider records to a
// plan day.
type LinkMetricsRequest struct {
	Week             int      `json:"week"`
	Day              string   `json:"day"`
	StravaActivityID *int64   `json:"strava_activity_id"`
	RecoveryScore    *float64 `json:"whoop_recovery_score"`
}

// WorkoutLogRequest is the JSON body for workout completion. Totals are
// recomputed server-side, so the caller need not send them.
type WorkoutLogRequest struct {
	RoutineID        string               `json:"routine_id"`
	RoutineName      string               `json:"routine_name"`
	WorkoutType      string               `json:"workout_type"`
	StartedAt        *time.Time           `json:"started_at"`
	CompletedAt      *time.Time           `json:"completed_at"`
	DurationSeconds  int                  `json:"duration_seconds"`
	Notes            string               `json:"notes"`
	EffortRating     *int                 `json:"effort_rating"`
	StravaActivityID *int64               `json:"strava_activity_id"`
	WhoopWorkoutID   string               `json:"whoop_workout_id"`
	Exercises        []ExerciseLogRequest `json:"exercises"`
}

// ExerciseLogRequest is one exercise in a workout completion body.
type ExerciseLogRequest struct {
	ExerciseID    string          `json:"exercise_id"`
	ExerciseName  string          `json:"exercise_name"`
	ExerciseOrder int             `json:"exercise_order"`
	IsSuperset    bool            `json:"is_superset"`
	SupersetGroup string          `json:"superset_group"`
	Notes         string          `json:"notes"`
	Sets          []SetLogRequest `json:"sets"`
}

// SetLogRequest is one completed set in a workout completion body.
type SetLogRequest struct {
	SetNumber       int      `json:"set_number"`
	SetType         string   `json:"set_type"`
	Weight          *float64 `json:"weight"`
	Reps            *int     `json:"reps"`
	DurationSeconds *int     `json:"duration_seconds"`
	RPE             *float64 `json:"rpe"`
	Notes           string   `json:"notes"`
}

func (r WorkoutLogRequest) toModel() *model.WorkoutLog {
	workout := &model.WorkoutLog{
		RoutineID:        r.RoutineID,
		RoutineName:      r.RoutineName,
		WorkoutType:      r.WorkoutType,
		DurationSeconds:  r.DurationSeconds,
		Notes:            r.Notes,
		EffortRating:     r.EffortRating,
		StravaActivityID: r.StravaActivityID,
		WhoopWorkoutID:   r.WhoopWorkoutID,
	}
	if r.StartedAt != nil {
		workout.StartedAt = *r.StartedAt
	}
	if r.CompletedAt != nil {
		workout.CompletedAt = *r.CompletedAt
	}
	for _, ex := range r.Exercises {
		exercise := model.ExerciseLog{
			ExerciseID:    ex.ExerciseID,
			ExerciseName:  ex.ExerciseName,
			ExerciseOrder: ex.ExerciseOrder,
			IsSuperset:    ex.IsSuperset,
			SupersetGroup: ex.SupersetGroup,
			Notes:         ex.Notes,
		}
		for _, set := range ex.Sets {
			exercise.Sets = append(exercise.Sets, model.SetLog{
				SetNumber:       set.SetNumber,
				SetType:         set.SetType,
				Weight:          set.Weight,
				Reps:            set.Reps,
				DurationSeconds: set.DurationSeconds,
				RPE:             set.RPE,
				Notes:           set.Notes,
			})
		}
		workout.Exercises = append(workout.Exercises, exercise)
	}
	return workout
}

// PlanResponse is the JSON representation of one plan day.
type PlanResponse struct {
	ID            int64  `json:"id"`
	Week          int    `json:"week"`
	Day           string `json:"day"`
	PrimaryType   string `json:"primary_type"`
	SecondaryType string `json:"secondary_type,omitempty"`
	Description   string `json:"description,omitempty"`
	TargetPace    string `json:"target_pace,omitempty"`
	DurationMin   int    `json:"duration_min,omitempty"`
	Workout       string `json:"workout"`
}

// ChecklistItemResponse is the JSON representation of one checklist item.
type ChecklistItemResponse struct {
	ID          int64  `json:"id"`
	PlanID      int64  `json:"plan_id"`
	Exercise    string `json:"exercise"`
	IsCompleted bool   `json:"is_completed"`
}

// DailyLogResponse is the JSON representation of a plan day's log.
type DailyLogResponse struct {
	ID               int64    `json:"id"`
	PlanID           int64    `json:"plan_id"`
	EffortRating     *int     `json:"effort_rating,omitempty"`
	RecoveryScore    *float64 `json:"recovery_score,omitempty"`
	StravaActivityID *int64   `json:"strava_activity_id,omitempty"`
	IsDayComplete    bool     `json:"is_day_complete"`
	CreatedAt        string   `json:"created_at"`
}

// WeekPlanResponse pairs a plan day with its checklist and log.
type WeekPlanResponse struct {
	Plan      PlanResponse            `json:"plan"`
	Checklist []ChecklistItemResponse `json:"checklist"`
	DailyLog  *DailyLogResponse       `json:"daily_log,omitempty"`
}

// ProgressResponse is the overall plan completion summary.
type ProgressResponse struct {
	TotalDays          int     `json:"total_days"`
	CompletedDays      int     `json:"completed_days"`
	DayPercent         float64 `json:"day_percent"`
	TotalExercises     int     `json:"total_exercises"`
	CompletedExercises int     `json:"completed_exercises"`
	ExercisePercent    float64 `json:"exercise_percent"`
}

// RunResponse is the JSON representation of a Strava run with formatted
// display fields alongside the raw values.
type RunResponse struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	StartDate     string  `json:"start_date"`
	DistanceM     float64 `json:"distance_m"`
	Distance      string  `json:"distance"`
	MovingTimeS   int     `json:"moving_time_s"`
	Duration      string  `json:"duration"`
	Pace          string  `json:"pace"`
	ElevationGain float64 `json:"elevation_gain"`
	AverageHR     float64 `json:"average_hr,omitempty"`
	MaxHR         float64 `json:"max_hr,omitempty"`
}

func toPlanResponse(p *model.Plan) PlanResponse {
	return PlanResponse{
		ID:            p.ID,
		Week:          p.Week,
		Day:           p.Day,
		PrimaryType:   p.PrimaryType,
		SecondaryType: p.SecondaryType,
		Description:   p.Description,
		TargetPace:    p.TargetPace,
		DurationMin:   p.DurationMin,
		Workout:       p.WorkoutLabel(),
	}
}

func toChecklistItemResponse(item model.ChecklistItem) ChecklistItemResponse {
	return ChecklistItemResponse{
		ID:          item.ID,
		PlanID:      item.PlanID,
		Exercise:    item.Exercise,
		IsCompleted: item.IsCompleted,
	}
}

func toDailyLogResponse(log *model.DailyLog) *DailyLogResponse {
	if log == nil {
		return nil
	}
	return &DailyLogResponse{
		ID:               log.ID,
		PlanID:           log.PlanID,
		EffortRating:     log.EffortRating,
		RecoveryScore:    log.RecoveryScore,
		StravaActivityID: log.StravaActivityID,
		IsDayComplete:    log.IsDayComplete,
		CreatedAt:        log.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toWeekPlanResponse(wp model.WeekPlan) WeekPlanResponse {
	checklist := make([]ChecklistItemResponse, 0, len(wp.Checklist))
	for _, item := range wp.Checklist {
		checklist = append(checklist, toChecklistItemResponse(item))
	}
	return WeekPlanResponse{
		Plan:      toPlanResponse(&wp.Plan),
		Checklist: checklist,
		DailyLog:  toDailyLogResponse(wp.DailyLog),
	}
}

// WorkoutLogResponse is the JSON representation of a completed workout.
// Exercises are omitted on summary listings.
type WorkoutLogResponse struct {
	ID               int64                 `json:"id"`
	RoutineID        string                `json:"routine_id,omitempty"`
	RoutineName      string                `json:"routine_name"`
	WorkoutType      string                `json:"workout_type,omitempty"`
	StartedAt        string                `json:"started_at,omitempty"`
	CompletedAt      string                `json:"completed_at"`
	DurationSeconds  int                   `json:"duration_seconds"`
	TotalVolume      float64               `json:"total_volume"`
	TotalSets        int                   `json:"total_sets"`
	TotalReps        int                   `json:"total_reps"`
	Notes            string                `json:"notes,omitempty"`
	EffortRating     *int                  `json:"effort_rating,omitempty"`
	StravaActivityID *int64                `json:"strava_activity_id,omitempty"`
	WhoopWorkoutID   string                `json:"whoop_workout_id,omitempty"`
	Exercises        []ExerciseLogResponse `json:"exercises,omitempty"`
}

// ExerciseLogResponse is one exercise within a workout response.
type ExerciseLogResponse struct {
	ID            int64            `json:"id"`
	ExerciseID    string           `json:"exercise_id,omitempty"`
	ExerciseName  string           `json:"exercise_name"`
	ExerciseOrder int              `json:"exercise_order"`
	IsSuperset    bool             `json:"is_superset,omitempty"`
	SupersetGroup string           `json:"superset_group,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Sets          []SetLogResponse `json:"sets"`
}

// SetLogResponse is one completed set within a workout response.
type SetLogResponse struct {
	ID              int64    `json:"id"`
	SetNumber       int      `json:"set_number"`
	SetType         string   `json:"set_type"`
	Weight          *float64 `json:"weight,omitempty"`
	Reps            *int     `json:"reps,omitempty"`
	DurationSeconds *int     `json:"duration_seconds,omitempty"`
	RPE             *float64 `json:"rpe,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// WorkoutHistoryResponse pairs one page of summaries with paging info.
type WorkoutHistoryResponse struct {
	Workouts []WorkoutLogResponse `json:"workouts"`
	Total    int                  `json:"total"`
	Limit    int                  `json:"limit"`
	Offset   int                  `json:"offset"`
}

// PersonalRecordResponse is one PR entry.
type PersonalRecordResponse struct {
	ID           int64   `json:"id"`
	ExerciseName string  `json:"exercise_name"`
	Reps         int     `json:"reps"`
	Weight       float64 `json:"weight"`
	AchievedAt   string  `json:"achieved_at"`
	WorkoutLogID int64   `json:"workout_log_id"`
}

// WorkoutStatsResponse aggregates workouts over a date range.
type WorkoutStatsResponse struct {
	WorkoutCount    int     `json:"workout_count"`
	TotalVolume     float64 `json:"total_volume"`
	TotalSets       int     `json:"total_sets"`
	TotalReps       int     `json:"total_reps"`
	TotalDuration   int     `json:"total_duration"`
	AverageDuration float64 `json:"average_duration"`
}

func toWorkoutLogResponse(w *model.WorkoutLog) WorkoutLogResponse {
	resp := WorkoutLogResponse{
		ID:               w.ID,
		RoutineID:        w.RoutineID,
		RoutineName:      w.RoutineName,
		WorkoutType:      w.WorkoutType,
		CompletedAt:      w.CompletedAt.UTC().Format(time.RFC3339),
		DurationSeconds:  w.DurationSeconds,
		TotalVolume:      w.TotalVolume,
		TotalSets:        w.TotalSets,
		TotalReps:        w.TotalReps,
		Notes:            w.Notes,
		EffortRating:     w.EffortRating,
		StravaActivityID: w.StravaActivityID,
		WhoopWorkoutID:   w.WhoopWorkoutID,
	}
	if !w.StartedAt.IsZero() {
		resp.StartedAt = w.StartedAt.UTC().Format(time.RFC3339)
	}
	for _, ex := range w.Exercises {
		sets := make([]SetLogResponse, 0, len(ex.Sets))
		for _, set := range ex.Sets {
			sets = append(sets, SetLogResponse{
				ID:              set.ID,
				SetNumber:       set.SetNumber,
				SetType:         set.SetType,
				Weight:          set.Weight,
				Reps:            set.Reps,
				DurationSeconds: set.DurationSeconds,
				RPE:             set.RPE,
				Notes:           set.Notes,
			})
		}
		resp.Exercises = append(resp.Exercises, ExerciseLogResponse{
			ID:            ex.ID,
			ExerciseID:    ex.ExerciseID,
			ExerciseName:  ex.ExerciseName,
			ExerciseOrder: ex.ExerciseOrder,
			IsSuperset:    ex.IsSuperset,
			SupersetGroup: ex.SupersetGroup,
			Notes:         ex.Notes,
			Sets:          sets,
		})
	}
	return resp
}

func toWorkoutHistoryResponse(h *application.WorkoutHistory) WorkoutHistoryResponse {
	workouts := make([]WorkoutLogResponse, 0, len(h.Workouts))
	for i := range h.Workouts {
		workouts = append(workouts, toWorkoutLogResponse(&h.Workouts[i]))
	}
	return WorkoutHistoryResponse{
		Workouts: workouts,
		Total:    h.Total,
		Limit:    h.Limit,
		Offset:   h.Offset,
	}
}

func toPersonalRecordResponses(records []model.PersonalRecord) []PersonalRecordResponse {
	resp := make([]PersonalRecordResponse, 0, len(records))
	for _, pr := range records {
		resp = append(resp, PersonalRecordResponse{
			ID:           pr.ID,
			ExerciseName: pr.ExerciseName,
			Reps:         pr.Reps,
			Weight:       pr.Weight,
			AchievedAt:   pr.AchievedAt.UTC().Format(time.RFC3339),
			WorkoutLogID: pr.WorkoutLogID,
		})
	}
	return resp
}

func toWorkoutStatsResponse(s model.WorkoutStats) WorkoutStatsResponse {
	return WorkoutStatsResponse{
		WorkoutCount:    s.WorkoutCount,
		TotalVolume:     s.TotalVolume,
		TotalSets:       s.TotalSets,
		TotalReps:       s.TotalReps,
		TotalDuration:   s.TotalDuration,
		AverageDuration: s.AverageDuration,
	}
}

func toRunResponse(run model.Run) RunResponse {
	return RunResponse{
		ID:            run.ID,
		Name:          run.Name,
		StartDate:     run.StartDate.UTC().Format(time.RFC3339),
		DistanceM:     run.Distance,
		Distance:      strava.FormatDistance(run.Distance),
		MovingTimeS:   run.MovingTime,
		Duration:      strava.FormatDuration(run.MovingTime),
		Pace:          strava.FormatPace(run.AverageSpeed),
		ElevationGain: run.ElevationGain,
		AverageHR:     run.AverageHR,
		MaxHR:         run.MaxHR,
	}
}

func toProgressResponse(p model.Progress) ProgressResponse {
	return ProgressResponse{
		TotalDays:          p.TotalDays,
		CompletedDays:      p.CompletedDays,
		DayPercent:         p.DayPercent(),
		TotalExercises:     p.TotalExercises,
		CompletedExercises: p.CompletedExercises,
		ExercisePercent:    p.ExercisePercent(),
	}
}
