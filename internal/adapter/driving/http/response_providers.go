package httphandler

import (
	"time"

	"github.com/ericfisherdev/traintrack/internal/application"
	"github.com/ericfisherdev/traintrack/internal/domain/model"
)

// ProviderStatusResponse is the credential state for one provider.
type ProviderStatusResponse struct {
	Provider        string `json:"provider"`
	HasAccessToken  bool   `json:"has_access_token"`
	HasRefreshToken bool   `json:"has_refresh_token"`
	ExpiresAt       string `json:"expires_at,omitempty"`
	IsExpired       bool   `json:"is_expired"`
	LastUpdated     string `json:"last_updated,omitempty"`
	TokenPreview    string `json:"token_preview,omitempty"`
	Source          string `json:"source,omitempty"`
}

// AthleteResponse is the Strava profile of the connected user.
type AthleteResponse struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Country   string `json:"country,omitempty"`
	Profile   string `json:"profile,omitempty"`
}

// RecoveryResponse is one Whoop recovery record.
type RecoveryResponse struct {
	CycleID          int64    `json:"cycle_id"`
	SleepID          string   `json:"sleep_id,omitempty"`
	RecoveryScore    *float64 `json:"recovery_score,omitempty"`
	RestingHeartRate *float64 `json:"resting_heart_rate,omitempty"`
	HRVRmssd         *float64 `json:"hrv_rmssd_milli,omitempty"`
	SpO2Percentage   *float64 `json:"spo2_percentage,omitempty"`
	SkinTempCelsius  *float64 `json:"skin_temp_celsius,omitempty"`
	UpdatedAt        string   `json:"updated_at,omitempty"`
}

// SleepResponse is one Whoop sleep record.
type SleepResponse struct {
	ID             string   `json:"id"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	TimezoneOffset string   `json:"timezone_offset,omitempty"`
	Nap            bool     `json:"nap"`
	InBedMilli     *int64   `json:"total_in_bed_time_milli,omitempty"`
	Efficiency     *float64 `json:"sleep_efficiency_percentage,omitempty"`
	RespRate       *float64 `json:"respiratory_rate,omitempty"`
	Consistency    *float64 `json:"sleep_consistency_percentage,omitempty"`
}

// WhoopWorkoutResponse is one Whoop workout record.
type WhoopWorkoutResponse struct {
	ID        string   `json:"id"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	SportID   int      `json:"sport_id"`
	Strain    *float64 `json:"strain,omitempty"`
	AverageHR *float64 `json:"average_heart_rate,omitempty"`
	MaxHR     *float64 `json:"max_heart_rate,omitempty"`
	Calories  *float64 `json:"calories,omitempty"`
	DistanceM *float64 `json:"distance_meter,omitempty"`
}

// DailyMetricsResponse bundles one day of Whoop data with per-section errors.
type DailyMetricsResponse struct {
	Recovery  *RecoveryResponse      `json:"recovery,omitempty"`
	Sleep     *SleepResponse         `json:"sleep,omitempty"`
	Workouts  []WhoopWorkoutResponse `json:"workouts"`
	FetchedAt string                 `json:"fetched_at"`
	Errors    map[string]string      `json:"errors,omitempty"`
}

// RecoverySectionResponse is a degraded-tolerant Whoop section of an
// aggregated view.
type RecoverySectionResponse struct {
	Connected bool              `json:"connected"`
	Error     string            `json:"error,omitempty"`
	Recovery  *RecoveryResponse `json:"recovery,omitempty"`
}

// StravaSectionResponse is the degraded-tolerant Strava section.
type StravaSectionResponse struct {
	Connected bool          `json:"connected"`
	Error     string        `json:"error,omitempty"`
	LatestRun *RunResponse  `json:"latest_run,omitempty"`
	TodayRuns []RunResponse `json:"today_runs,omitempty"`
}

// DaySummaryResponse condenses a plan day.
type DaySummaryResponse struct {
	Workout        string `json:"workout"`
	TargetPace     string `json:"target_pace,omitempty"`
	DurationMin    int    `json:"duration_min,omitempty"`
	ExercisesDone  int    `json:"exercises_done"`
	ExercisesTotal int    `json:"exercises_total"`
	IsComplete     bool   `json:"is_complete"`
}

// DayViewResponse is the aggregated state of one plan day.
type DayViewResponse struct {
	Plan      PlanResponse            `json:"plan"`
	Checklist []ChecklistItemResponse `json:"checklist"`
	DailyLog  *DailyLogResponse       `json:"daily_log,omitempty"`
	Recovery  RecoverySectionResponse `json:"recovery"`
	Summary   DaySummaryResponse      `json:"summary"`
}

// SyncResponse is a snapshot of both providers.
type SyncResponse struct {
	Whoop    RecoverySectionResponse `json:"whoop"`
	Strava   StravaSectionResponse   `json:"strava"`
	SyncedAt string                  `json:"synced_at"`
}

func toProviderStatusResponse(s application.ProviderStatus) ProviderStatusResponse {
	resp := ProviderStatusResponse{
		Provider:        string(s.Provider),
		HasAccessToken:  s.HasAccessToken,
		HasRefreshToken: s.HasRefreshToken,
		IsExpired:       s.IsExpired,
		TokenPreview:    s.TokenPreview,
		Source:          s.Source,
	}
	if s.ExpiresAt != nil {
		resp.ExpiresAt = s.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if s.LastUpdated != nil {
		resp.LastUpdated = s.LastUpdated.UTC().Format(time.RFC3339)
	}
	return resp
}

func toAthleteResponse(a *model.Athlete) *AthleteResponse {
	if a == nil {
		return nil
	}
	return &AthleteResponse{
		ID:        a.ID,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		City:      a.City,
		State:     a.State,
		Country:   a.Country,
		Profile:   a.Profile,
	}
}

func toRecoveryResponse(r *model.Recovery) *RecoveryResponse {
	if r == nil {
		return nil
	}
	resp := &RecoveryResponse{
		CycleID:          r.CycleID,
		SleepID:          r.SleepID,
		RecoveryScore:    r.RecoveryScore,
		RestingHeartRate: r.RestingHeartRate,
		HRVRmssd:         r.HRVRmssd,
		SpO2Percentage:   r.SpO2Percentage,
		SkinTempCelsius:  r.SkinTempCelsius,
	}
	if !r.UpdatedAt.IsZero() {
		resp.UpdatedAt = r.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toSleepResponse(s *model.Sleep) *SleepResponse {
	if s == nil {
		return nil
	}
	return &SleepResponse{
		ID:             s.ID,
		Start:          s.Start.UTC().Format(time.RFC3339),
		End:            s.End.UTC().Format(time.RFC3339),
		TimezoneOffset: s.TimezoneOffset,
		Nap:            s.Nap,
		InBedMilli:     s.InBedMilli,
		Efficiency:     s.Efficiency,
		RespRate:       s.RespRate,
		Consistency:    s.Consistency,
	}
}

func toWhoopWorkoutResponse(w model.WhoopWorkout) WhoopWorkoutResponse {
	return WhoopWorkoutResponse{
		ID:        w.ID,
		Start:     w.Start.UTC().Format(time.RFC3339),
		End:       w.End.UTC().Format(time.RFC3339),
		SportID:   w.SportID,
		Strain:    w.Strain,
		AverageHR: w.AverageHR,
		MaxHR:     w.MaxHR,
		Calories:  w.Calories,
		DistanceM: w.DistanceM,
	}
}

func toDailyMetricsResponse(m *model.DailyMetrics) DailyMetricsResponse {
	resp := DailyMetricsResponse{
		Recovery:  toRecoveryResponse(m.Recovery),
		Sleep:     toSleepResponse(m.Sleep),
		Workouts:  make([]WhoopWorkoutResponse, 0, len(m.Workouts)),
		FetchedAt: m.FetchedAt.UTC().Format(time.RFC3339),
	}
	for _, w := range m.Workouts {
		resp.Workouts = append(resp.Workouts, toWhoopWorkoutResponse(w))
	}
	errs := map[string]string{}
	if m.Errs.Recovery != "" {
		errs["recovery"] = m.Errs.Recovery
	}
	if m.Errs.Sleep != "" {
		errs["sleep"] = m.Errs.Sleep
	}
	if m.Errs.Workouts != "" {
		errs["workouts"] = m.Errs.Workouts
	}
	if len(errs) > 0 {
		resp.Errors = errs
	}
	return resp
}

func toRecoverySectionResponse(s application.RecoverySection) RecoverySectionResponse {
	return RecoverySectionResponse{
		Connected: s.Connected,
		Error:     s.Error,
		Recovery:  toRecoveryResponse(s.Recovery),
	}
}

func toStravaSectionResponse(s application.StravaSection) StravaSectionResponse {
	resp := StravaSectionResponse{
		Connected: s.Connected,
		Error:     s.Error,
	}
	if s.LatestRun != nil {
		run := toRunResponse(*s.LatestRun)
		resp.LatestRun = &run
	}
	for _, run := range s.TodayRuns {
		resp.TodayRuns = append(resp.TodayRuns, toRunResponse(run))
	}
	return resp
}

func toDayViewResponse(v *application.DayView) DayViewResponse {
	checklist := make([]ChecklistItemResponse, 0, len(v.Checklist))
	for _, item := range v.Checklist {
		checklist = append(checklist, toChecklistItemResponse(item))
	}
	return DayViewResponse{
		Plan:      toPlanResponse(v.Plan),
		Checklist: checklist,
		DailyLog:  toDailyLogResponse(v.DailyLog),
		Recovery:  toRecoverySectionResponse(v.Recovery),
		Summary: DaySummaryResponse{
			Workout:        v.Summary.Workout,
			TargetPace:     v.Summary.TargetPace,
			DurationMin:    v.Summary.DurationMin,
			ExercisesDone:  v.Summary.ExercisesDone,
			ExercisesTotal: v.Summary.ExercisesTotal,
			IsComplete:     v.Summary.IsComplete,
		},
	}
}

func toSyncResponse(r *application.SyncResult) SyncResponse {
	return SyncResponse{
		Whoop:    toRecoverySectionResponse(r.Whoop),
		Strava:   toStravaSectionResponse(r.Strava),
		SyncedAt: r.SyncedAt.UTC().Format(time.RFC3339),
	}
}
