// Package httphandler is the HTTP driving adapter serving the REST API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/traintrack/internal/adapter/driven/strava"
	"github.com/ericfisherdev/traintrack/internal/adapter/driven/whoop"
	"github.com/ericfisherdev/traintrack/internal/application"
	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	tokenSvc   *application.TokenService
	daySvc     *application.DayService
	workoutSvc *application.WorkoutService
	strava     *strava.Service
	whoop      *whoop.Service
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	tokenSvc *application.TokenService,
	daySvc *application.DayService,
	workoutSvc *application.WorkoutService,
	stravaSvc *strava.Service,
	whoopSvc *whoop.Service,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		tokenSvc:   tokenSvc,
		daySvc:     daySvc,
		workoutSvc: workoutSvc,
		strava:     stravaSvc,
		whoop:      whoopSvc,
		logger:     logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Aggregated views.
	mux.HandleFunc("GET /api/v1/day/{week}/{day}", h.GetDay)
	mux.HandleFunc("GET /api/v1/metrics/sync", h.SyncMetrics)
	mux.HandleFunc("POST /api/v1/metrics/link", h.LinkMetrics)

	// Training plan.
	mux.HandleFunc("GET /api/v1/plan/{week}/{day}", h.GetPlan)
	mux.HandleFunc("GET /api/v1/plan/week/{week}", h.GetWeek)
	mux.HandleFunc("PATCH /api/v1/checklist/{id}", h.ToggleChecklist)
	mux.HandleFunc("POST /api/v1/daily-log/complete", h.CompleteDay)
	mux.HandleFunc("GET /api/v1/progress", h.GetProgress)

	// Authentication and provider credentials.
	mux.HandleFunc("GET /api/v1/auth/status", h.AuthStatus)
	mux.HandleFunc("GET /api/v1/auth/strava", h.StravaAuthURL)
	mux.HandleFunc("GET /api/v1/auth/strava/callback", h.StravaCallback)
	mux.HandleFunc("GET /api/v1/auth/whoop", h.WhoopAuthURL)
	mux.HandleFunc("GET /api/v1/auth/whoop/callback", h.WhoopCallback)
	mux.HandleFunc("DELETE /api/v1/auth/{provider}", h.Disconnect)
	mux.HandleFunc("POST /api/v1/strava/token", h.SaveStravaToken)
	mux.HandleFunc("POST /api/v1/whoop/token", h.SaveWhoopToken)

	// Provider data.
	mux.HandleFunc("GET /api/v1/strava/status", h.StravaStatus)
	mux.HandleFunc("GET /api/v1/strava/activities", h.StravaActivities)
	mux.HandleFunc("GET /api/v1/strava/today", h.StravaToday)
	mux.HandleFunc("GET /api/v1/whoop/status", h.WhoopStatus)
	mux.HandleFunc("GET /api/v1/whoop/recovery", h.WhoopRecovery)
	mux.HandleFunc("GET /api/v1/whoop/sleep", h.WhoopSleep)
	mux.HandleFunc("GET /api/v1/whoop/metrics", h.WhoopMetrics)

	// Workout log.
	mux.HandleFunc("POST /api/v1/workouts/complete", h.CompleteWorkout)
	mux.HandleFunc("GET /api/v1/workouts/history", h.WorkoutHistory)
	mux.HandleFunc("GET /api/v1/workouts/{id}", h.GetWorkout)
	mux.HandleFunc("DELETE /api/v1/workouts/{id}", h.DeleteWorkout)
	mux.HandleFunc("GET /api/v1/stats/workouts", h.WorkoutStats)
	mux.HandleFunc("GET /api/v1/prs", h.PersonalRecords)
	mux.HandleFunc("GET /api/v1/prs/recent", h.RecentPersonalRecords)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetDay returns the aggregated view of one plan day.
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	week, day, ok := weekDayParams(w, r)
	if !ok {
		return
	}

	view, err := h.daySvc.Day(r.Context(), week, day)
	if err != nil {
		if errors.Is(err, driven.ErrPlanNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to build day view", "week", week, "day", day, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toDayViewResponse(view))
}

// SyncMetrics returns a concurrent snapshot of both providers.
func (h *Handler) SyncMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSyncResponse(h.daySvc.Sync(r.Context())))
}

// LinkMetrics attaches provider records to a plan day's log.
func (h *Handler) LinkMetrics(w http.ResponseWriter, r *http.Request) {
	var req LinkMetricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Week <= 0 || req.Day == "" {
		writeError(w, http.StatusBadRequest, "week and day are required")
		return
	}

	log, err := h.daySvc.LinkMetrics(r.Context(), req.Week, req.Day, req.StravaActivityID, req.RecoveryScore)
	if err != nil {
		if errors.Is(err, driven.ErrPlanNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to link metrics", "week", req.Week, "day", req.Day, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toDailyLogResponse(log))
}

// GetPlan returns the bare plan row for one day.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	week, day, ok := weekDayParams(w, r)
	if !ok {
		return
	}

	plan, err := h.daySvc.Plan(r.Context(), week, day)
	if err != nil {
		if errors.Is(err, driven.ErrPlanNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to get plan", "week", week, "day", day, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toPlanResponse(plan))
}

// GetWeek returns every plan day in a week with checklist and log.
func (h *Handler) GetWeek(w http.ResponseWriter, r *http.Request) {
	week, err := strconv.Atoi(r.PathValue("week"))
	if err != nil || week <= 0 {
		writeError(w, http.StatusBadRequest, "invalid week")
		return
	}

	plans, err := h.daySvc.Week(r.Context(), week)
	if err != nil {
		h.logger.Error("failed to list week", "week", week, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]WeekPlanResponse, 0, len(plans))
	for _, wp := range plans {
		resp = append(resp, toWeekPlanResponse(wp))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ToggleChecklist sets or flips a checklist item's completion.
func (h *Handler) ToggleChecklist(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid checklist item id")
		return
	}

	var req ChecklistRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	item, err := h.daySvc.ToggleChecklist(r.Context(), id, req.Completed)
	if err != nil {
		h.logger.Error("failed to toggle checklist item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "checklist item not found")
		return
	}

	writeJSON(w, http.StatusOK, toChecklistItemResponse(*item))
}

// CompleteDay marks a plan day's log complete.
func (h *Handler) CompleteDay(w http.ResponseWriter, r *http.Request) {
	var req DailyLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Week <= 0 || req.Day == "" {
		writeError(w, http.StatusBadRequest, "week and day are required")
		return
	}
	if req.EffortRating != nil && (*req.EffortRating < 1 || *req.EffortRating > 10) {
		writeError(w, http.StatusBadRequest, "effort_rating must be between 1 and 10")
		return
	}

	log, err := h.daySvc.CompleteDay(r.Context(), req.Week, req.Day, req.EffortRating)
	if err != nil {
		if errors.Is(err, driven.ErrPlanNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to complete day", "week", req.Week, "day", req.Day, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toDailyLogResponse(log))
}

// GetProgress returns the overall plan completion summary.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.daySvc.Progress(r.Context())
	if err != nil {
		h.logger.Error("failed to compute progress", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toProgressResponse(progress))
}

// CompleteWorkout stores a finished workout session.
func (h *Handler) CompleteWorkout(w http.ResponseWriter, r *http.Request) {
	var req WorkoutLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.workoutSvc.Complete(r.Context(), req.toModel())
	if err != nil {
		h.logger.Error("failed to save workout", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toWorkoutLogResponse(saved))
}

// WorkoutHistory returns a filtered, paged workout listing.
func (h *Handler) WorkoutHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.WorkoutHistoryFilter{
		RoutineID:   q.Get("routine_id"),
		WorkoutType: q.Get("workout_type"),
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}
	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date")
			return
		}
		filter.StartDate = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date")
			return
		}
		filter.EndDate = &t
	}

	history, err := h.workoutSvc.History(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list workouts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutHistoryResponse(history))
}

// GetWorkout returns one workout with nested exercises and sets.
func (h *Handler) GetWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid workout id")
		return
	}

	workout, err := h.workoutSvc.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get workout", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if workout == nil {
		writeError(w, http.StatusNotFound, "workout not found")
		return
	}

	writeJSON(w, http.StatusOK, toWorkoutLogResponse(workout))
}

// DeleteWorkout removes a workout and its nested records.
func (h *Handler) DeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid workout id")
		return
	}

	if err := h.workoutSvc.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete workout", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "workout deleted"})
}

// WorkoutStats aggregates workouts over a date range.
func (h *Handler) WorkoutStats(w http.ResponseWriter, r *http.Request) {
	var start, end time.Time
	q := r.URL.Query()
	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date")
			return
		}
		start = t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date")
			return
		}
		end = t
	}

	stats, err := h.workoutSvc.Stats(r.Context(), start, end)
	if err != nil {
		h.logger.Error("failed to compute workout stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutStatsResponse(stats))
}

// PersonalRecords returns current PRs, optionally filtered to one exercise.
func (h *Handler) PersonalRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.workoutSvc.PersonalRecords(r.Context(), r.URL.Query().Get("exercise"))
	if err != nil {
		h.logger.Error("failed to list personal records", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toPersonalRecordResponses(records))
}

// RecentPersonalRecords returns PRs achieved in the last N days.
func (h *Handler) RecentPersonalRecords(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		days, _ = strconv.Atoi(v)
	}

	records, err := h.workoutSvc.RecentPersonalRecords(r.Context(), days)
	if err != nil {
		h.logger.Error("failed to list recent personal records", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toPersonalRecordResponses(records))
}

// weekDayParams extracts and validates the {week}/{day} path parameters,
// writing a 400 on failure.
func weekDayParams(w http.ResponseWriter, r *http.Request) (int, string, bool) {
	week, err := strconv.Atoi(r.PathValue("week"))
	if err != nil || week <= 0 {
		writeError(w, http.StatusBadRequest, "invalid week")
		return 0, "", false
	}
	day := r.PathValue("day")
	if day == "" {
		writeError(w, http.StatusBadRequest, "invalid day")
		return 0, "", false
	}
	return week, day, true
}
