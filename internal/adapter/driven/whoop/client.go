// Package whoop implements the WhoopClient port against the Whoop developer API.
package whoop

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gregjones/httpcache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/traintrack/internal/adapter/driven/oauthapi"
	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

const (
	defaultAPIBase  = "https://api.prod.whoop.com/developer/v1"
	defaultAuthURL  = "https://api.prod.whoop.com/oauth/oauth2/auth"
	defaultTokenURL = "https://api.prod.whoop.com/oauth/oauth2/token"

	// scopes is fixed. "offline" is what makes a refresh token obtainable
	// at all; omitting it silently prevents future refreshes.
	scopes = "offline read:recovery read:workout"
)

// Config carries the Whoop application registration plus optional endpoint
// overrides for tests. StaticToken is an optional long-lived access token
// used when no credentials are stored.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	StaticToken  string
	Timeout      time.Duration

	AuthURL  string
	TokenURL string
	APIBase  string
}

// Compile-time interface satisfaction checks.
var (
	_ driven.WhoopClient    = (*Client)(nil)
	_ driven.WhoopConnector = (*Service)(nil)
)

// Service is the long-lived Whoop adapter; per-request sessions are built
// through it.
type Service struct {
	cfg         oauthapi.Config
	staticToken string
	store       driven.CredentialStore
	states      driven.StateStore
	http        *http.Client
	logger      *slog.Logger
	group       singleflight.Group
}

// NewService creates the Whoop adapter.
func NewService(cfg Config, store driven.CredentialStore, states driven.StateStore, logger *slog.Logger) *Service {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cfg: oauthapi.Config{
			Provider:     model.ProviderWhoop,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURI:  cfg.RedirectURI,
			AuthURL:      cfg.AuthURL,
			TokenURL:     cfg.TokenURL,
			APIBase:      cfg.APIBase,
			Scopes:       scopes,
			// Whoop's token endpoint requires form-urlencoded bodies.
			Encoding: oauthapi.EncodeForm,
		},
		staticToken: cfg.StaticToken,
		store:       store,
		states:      states,
		http: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   cfg.Timeout,
		},
		logger: logger,
	}
}

// Configured reports whether an application registration is present.
func (s *Service) Configured() bool {
	return s.cfg.ClientID != "" && s.cfg.ClientSecret != ""
}

func (s *Service) newSession() *oauthapi.Client {
	return oauthapi.NewClient(s.cfg, s.store, s.http, s.logger, &s.group)
}

// AuthorizationURL returns the consent URL with a fresh anti-forgery state.
// The state is persisted and must round-trip through the callback, where it
// is validated and consumed.
func (s *Service) AuthorizationURL(ctx context.Context) (authURL, state string, err error) {
	state = uuid.NewString()
	if err := s.states.Put(ctx, state, model.ProviderWhoop); err != nil {
		return "", "", err
	}
	return s.newSession().AuthorizationURL(url.Values{"state": {state}}), state, nil
}

// ValidateState consumes a callback state value, failing with
// ErrStateMismatch when it was never issued or has already been used.
func (s *Service) ValidateState(ctx context.Context, state string) error {
	provider, err := s.states.Consume(ctx, state)
	if err != nil {
		return err
	}
	if provider != model.ProviderWhoop {
		return driven.ErrStateMismatch
	}
	return nil
}

// Exchange trades an authorization code for tokens and persists them.
func (s *Service) Exchange(ctx context.Context, code string) (*oauthapi.TokenResponse, error) {
	// Whoop requires the redirect_uri to be replayed in the grant.
	return s.newSession().Exchange(ctx, code, map[string]string{
		"redirect_uri": s.cfg.RedirectURI,
	})
}

// WithToken returns a session using an explicitly supplied access token.
func (s *Service) WithToken(accessToken string) *Client {
	session := s.newSession()
	session.SetToken(accessToken, "", nil)
	return &Client{api: session}
}

// HasStaticToken reports whether a fallback token is configured.
func (s *Service) HasStaticToken() bool { return s.staticToken != "" }

// StaticTokenPreview returns the redacted fallback token for status output.
func (s *Service) StaticTokenPreview() string { return model.RedactToken(s.staticToken) }

// Connect builds a session from stored credentials, eagerly refreshing an
// expired token. When nothing is stored it falls back to the configured
// static token; with neither, ErrNotAuthenticated.
func (s *Service) Connect(ctx context.Context) (driven.WhoopClient, error) {
	cred, err := s.store.Get(ctx, model.ProviderWhoop)
	if err != nil {
		return nil, fmt.Errorf("load whoop credentials: %w", err)
	}
	if cred == nil {
		if s.staticToken != "" {
			s.logger.Info("using whoop token from environment")
			return s.WithToken(s.staticToken), nil
		}
		return nil, fmt.Errorf("whoop: %w", driven.ErrNotAuthenticated)
	}

	session := s.newSession()
	session.SetToken(cred.AccessToken, cred.RefreshToken, cred.ExpiresAt)

	if cred.NeedsRefresh() {
		s.logger.Info("whoop token expired, refreshing before use")
		if err := session.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	return &Client{api: session}, nil
}

// Client is one authenticated Whoop session.
type Client struct {
	api *oauthapi.Client
}

// Profile fetches the basic user profile.
func (c *Client) Profile(ctx context.Context) (*model.WhoopProfile, error) {
	body, err := c.api.Get(ctx, "/user/profile/basic", nil)
	if err != nil {
		return nil, err
	}

	var wire struct {
		UserID    int64  `json:"user_id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &model.WhoopProfile{
		UserID:    wire.UserID,
		FirstName: wire.FirstName,
		LastName:  wire.LastName,
		Email:     wire.Email,
	}, nil
}

// RecoveryRange fetches recovery records within [start, end].
func (c *Client) RecoveryRange(ctx context.Context, start, end time.Time) ([]model.Recovery, error) {
	records, err := c.recoveryWindow(ctx, start, end, 0)
	if err != nil {
		return nil, err
	}
	out := make([]model.Recovery, 0, len(records))
	for _, r := range records {
		out = append(out, r.toModel())
	}
	return out, nil
}

// TodayRecovery returns the most recent recovery in the yesterday-through-
// today window, or (nil, nil) when no record exists yet.
func (c *Client) TodayRecovery(ctx context.Context) (*model.Recovery, error) {
	start, end := todayWindow()
	records, err := c.recoveryWindow(ctx, start, end, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	rec := records[0].toModel()
	return &rec, nil
}

// TodaySleep returns the most recent sleep in the yesterday-through-today
// window, or (nil, nil) when none exists.
func (c *Client) TodaySleep(ctx context.Context) (*model.Sleep, error) {
	start, end := todayWindow()
	body, err := c.api.Get(ctx, "/activity/sleep", windowParams(start, end, 1))
	if err != nil {
		return nil, err
	}

	var wire struct {
		Records []wireSleep `json:"records"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode sleep: %w", err)
	}
	if len(wire.Records) == 0 {
		return nil, nil
	}
	sleep := wire.Records[0].toModel()
	return &sleep, nil
}

// TodayWorkouts returns today's workout records.
func (c *Client) TodayWorkouts(ctx context.Context) ([]model.WhoopWorkout, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Millisecond)

	body, err := c.api.Get(ctx, "/activity/workout", windowParams(start, end, 0))
	if err != nil {
		return nil, err
	}

	var wire struct {
		Records []wireWorkout `json:"records"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode workouts: %w", err)
	}

	workouts := make([]model.WhoopWorkout, 0, len(wire.Records))
	for _, w := range wire.Records {
		workouts = append(workouts, w.toModel())
	}
	return workouts, nil
}

// DailyMetrics fetches recovery, sleep, and workouts concurrently. Each
// section fails independently; a section error never blanks the others.
func (c *Client) DailyMetrics(ctx context.Context) (*model.DailyMetrics, error) {
	metrics := &model.DailyMetrics{FetchedAt: time.Now()}

	// Sessions own a retry counter, so each branch gets its own.
	recoveryClient := &Client{api: c.api.Clone()}
	sleepClient := &Client{api: c.api.Clone()}
	workoutClient := &Client{api: c.api.Clone()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recovery, err := recoveryClient.TodayRecovery(gctx)
		if err != nil {
			metrics.Errs.Recovery = err.Error()
			return nil
		}
		metrics.Recovery = recovery
		return nil
	})
	g.Go(func() error {
		sleep, err := sleepClient.TodaySleep(gctx)
		if err != nil {
			metrics.Errs.Sleep = err.Error()
			return nil
		}
		metrics.Sleep = sleep
		return nil
	})
	g.Go(func() error {
		workouts, err := workoutClient.TodayWorkouts(gctx)
		if err != nil {
			metrics.Errs.Workouts = err.Error()
			return nil
		}
		metrics.Workouts = workouts
		return nil
	})
	_ = g.Wait()

	return metrics, nil
}

func (c *Client) recoveryWindow(ctx context.Context, start, end time.Time, limit int) ([]wireRecovery, error) {
	body, err := c.api.Get(ctx, "/recovery", windowParams(start, end, limit))
	if err != nil {
		return nil, err
	}

	var wire struct {
		Records []wireRecovery `json:"records"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode recovery: %w", err)
	}
	return wire.Records, nil
}

// todayWindow spans yesterday 00:00 UTC through the end of today, the query
// window Whoop expects for "today's" values.
func todayWindow() (time.Time, time.Time) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -1)
	end := today.Add(24*time.Hour - time.Millisecond)
	return start, end
}

func windowParams(start, end time.Time, limit int) url.Values {
	params := url.Values{}
	params.Set("start", start.UTC().Format("2006-01-02T15:04:05.000Z"))
	params.Set("end", end.UTC().Format("2006-01-02T15:04:05.000Z"))
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	return params
}

// wireRecovery is Whoop's recovery record shape. Score fields are pointers
// because the score block is absent while still being computed.
type wireRecovery struct {
	CycleID   int64     `json:"cycle_id"`
	SleepID   string    `json:"sleep_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Score     *struct {
		RecoveryScore    *float64 `json:"recovery_score"`
		RestingHeartRate *float64 `json:"resting_heart_rate"`
		HRVRmssdMilli    *float64 `json:"hrv_rmssd_milli"`
		SpO2Percentage   *float64 `json:"spo2_percentage"`
		SkinTempCelsius  *float64 `json:"skin_temp_celsius"`
	} `json:"score"`
}

func (w wireRecovery) toModel() model.Recovery {
	rec := model.Recovery{
		CycleID:   w.CycleID,
		SleepID:   w.SleepID,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
	if w.Score != nil {
		rec.RecoveryScore = w.Score.RecoveryScore
		rec.RestingHeartRate = w.Score.RestingHeartRate
		rec.HRVRmssd = w.Score.HRVRmssdMilli
		rec.SpO2Percentage = w.Score.SpO2Percentage
		rec.SkinTempCelsius = w.Score.SkinTempCelsius
	}
	return rec
}

type wireSleep struct {
	ID             string    `json:"id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	TimezoneOffset string    `json:"timezone_offset"`
	Nap            bool      `json:"nap"`
	Score          *struct {
		StageSummary *struct {
			TotalInBedTimeMilli *int64 `json:"total_in_bed_time_milli"`
		} `json:"stage_summary"`
		SleepEfficiencyPercentage  *float64 `json:"sleep_efficiency_percentage"`
		RespiratoryRate            *float64 `json:"respiratory_rate"`
		SleepConsistencyPercentage *float64 `json:"sleep_consistency_percentage"`
	} `json:"score"`
}

func (w wireSleep) toModel() model.Sleep {
	sleep := model.Sleep{
		ID:             w.ID,
		Start:          w.Start,
		End:            w.End,
		TimezoneOffset: w.TimezoneOffset,
		Nap:            w.Nap,
	}
	if w.Score != nil {
		sleep.Efficiency = w.Score.SleepEfficiencyPercentage
		sleep.RespRate = w.Score.RespiratoryRate
		sleep.Consistency = w.Score.SleepConsistencyPercentage
		if w.Score.StageSummary != nil {
			sleep.InBedMilli = w.Score.StageSummary.TotalInBedTimeMilli
		}
	}
	return sleep
}

type wireWorkout struct {
	ID      string    `json:"id"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	SportID int       `json:"sport_id"`
	Score   *struct {
		Strain           *float64 `json:"strain"`
		AverageHeartRate *float64 `json:"average_heart_rate"`
		MaxHeartRate     *float64 `json:"max_heart_rate"`
		Kilojoule        *float64 `json:"kilojoule"`
		DistanceMeter    *float64 `json:"distance_meter"`
	} `json:"score"`
}

func (w wireWorkout) toModel() model.WhoopWorkout {
	workout := model.WhoopWorkout{
		ID:      w.ID,
		Start:   w.Start,
		End:     w.End,
		SportID: w.SportID,
	}
	if w.Score != nil {
		workout.Strain = w.Score.Strain
		workout.AverageHR = w.Score.AverageHeartRate
		workout.MaxHR = w.Score.MaxHeartRate
		workout.DistanceM = w.Score.DistanceMeter
		if w.Score.Kilojoule != nil {
			kcal := *w.Score.Kilojoule * 0.239 // kJ to kcal
			workout.Calories = &kcal
		}
	}
	return workout
}
