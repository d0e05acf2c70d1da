// Package strava implements the StravaClient port against the Strava v3 API.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/traintrack/internal/adapter/driven/oauthapi"
	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

const (
	defaultAPIBase  = "https://www.strava.com/api/v3"
	defaultAuthURL  = "https://www.strava.com/oauth/authorize"
	defaultTokenURL = "https://www.strava.com/oauth/token"

	// scopes is fixed: read-only activity access.
	scopes = "read,activity:read,activity:read_all"
)

// Config carries the Strava application registration plus optional endpoint
// overrides for tests.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Timeout      time.Duration

	AuthURL  string
	TokenURL string
	APIBase  string
}

// Grant is the user-facing result of an authorization-code exchange.
type Grant struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Athlete      *model.Athlete
}

// Compile-time interface satisfaction checks.
var (
	_ driven.StravaClient    = (*Client)(nil)
	_ driven.StravaConnector = (*Service)(nil)
)

// Service is the long-lived Strava adapter. It owns the static config, the
// HTTP transport stack, and the refresh-deduplication group; per-request
// sessions are built through it.
type Service struct {
	cfg    oauthapi.Config
	store  driven.CredentialStore
	http   *http.Client
	logger *slog.Logger
	group  singleflight.Group
}

// NewService creates the Strava adapter. The HTTP stack mirrors the rest of
// the driven adapters: a memory cache transport under a bounded-timeout
// client, so a slow provider cannot stall an aggregated response.
func NewService(cfg Config, store driven.CredentialStore, logger *slog.Logger) *Service {
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
			Provider:     model.ProviderStrava,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURI:  cfg.RedirectURI,
			AuthURL:      cfg.AuthURL,
			TokenURL:     cfg.TokenURL,
			APIBase:      cfg.APIBase,
			Scopes:       scopes,
			// Strava's token endpoint takes JSON with a numeric client_id.
			Encoding:        oauthapi.EncodeJSON,
			NumericClientID: true,
		},
		store: store,
		http: &http.Client{
			Transport: httpcache.NewMemoryCacheTransport(),
			Timeout:   cfg.Timeout,
		},
		logger: logger,
	}
}

// Configured reports whether an application registration is present. The
// OAuth endpoints need it; manual token injection works without one.
func (s *Service) Configured() bool {
	return s.cfg.ClientID != "" && s.cfg.ClientSecret != ""
}

func (s *Service) newSession() *oauthapi.Client {
	return oauthapi.NewClient(s.cfg, s.store, s.http, s.logger, &s.group)
}

// AuthorizationURL returns the consent URL the user must visit.
// approval_prompt=force makes Strava re-issue a refresh token even when the
// app was previously authorized.
func (s *Service) AuthorizationURL() string {
	return s.newSession().AuthorizationURL(url.Values{"approval_prompt": {"force"}})
}

// Exchange trades an authorization code for tokens, persists them, and
// returns the grant with the athlete metadata Strava includes inline.
func (s *Service) Exchange(ctx context.Context, code string) (*Grant, error) {
	token, err := s.newSession().Exchange(ctx, code, nil)
	if err != nil {
		return nil, err
	}

	grant := &Grant{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry(),
	}
	if len(token.Athlete) > 0 {
		var wire wireAthlete
		if err := json.Unmarshal(token.Athlete, &wire); err == nil {
			grant.Athlete = wire.toModel()
		}
	}
	return grant, nil
}

// WithToken returns a session using an explicitly supplied access token,
// bypassing the store. Used for manually injected tokens.
func (s *Service) WithToken(accessToken string) *Client {
	session := s.newSession()
	session.SetToken(accessToken, "", nil)
	return &Client{api: session}
}

// Connect builds a session from stored credentials, eagerly refreshing an
// expired token so callers are guaranteed a usable client on success.
// Returns ErrNotAuthenticated when nothing is stored.
func (s *Service) Connect(ctx context.Context) (driven.StravaClient, error) {
	cred, err := s.store.Get(ctx, model.ProviderStrava)
	if err != nil {
		return nil, fmt.Errorf("load strava credentials: %w", err)
	}
	if cred == nil {
		return nil, fmt.Errorf("strava: %w", driven.ErrNotAuthenticated)
	}

	session := s.newSession()
	session.SetToken(cred.AccessToken, cred.RefreshToken, cred.ExpiresAt)

	if cred.NeedsRefresh() {
		s.logger.Info("strava token expired, refreshing before use")
		if err := session.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	return &Client{api: session}, nil
}

// Client is one authenticated Strava session.
type Client struct {
	api *oauthapi.Client
}

// Athlete fetches the authenticated athlete's profile.
func (c *Client) Athlete(ctx context.Context) (*model.Athlete, error) {
	body, err := c.api.Get(ctx, "/athlete", nil)
	if err != nil {
		return nil, err
	}
	var wire wireAthlete
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode athlete: %w", err)
	}
	return wire.toModel(), nil
}

// Activities fetches a page of activities within the query's time window.
func (c *Client) Activities(ctx context.Context, q driven.ActivityQuery) ([]model.Run, error) {
	page := q.Page
	if page <= 0 {
		page = 1
	}
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = 30
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	if !q.Before.IsZero() {
		params.Set("before", strconv.FormatInt(q.Before.Unix(), 10))
	}
	if !q.After.IsZero() {
		params.Set("after", strconv.FormatInt(q.After.Unix(), 10))
	}

	body, err := c.api.Get(ctx, "/athlete/activities", params)
	if err != nil {
		return nil, err
	}

	var wire []wireActivity
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}

	runs := make([]model.Run, 0, len(wire))
	for _, a := range wire {
		runs = append(runs, a.toModel())
	}
	return runs, nil
}

// TodayRuns returns today's run activities (local midnight onward).
func (c *Client) TodayRuns(ctx context.Context) ([]model.Run, error) {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	activities, err := c.Activities(ctx, driven.ActivityQuery{After: midnight})
	if err != nil {
		return nil, err
	}
	return filterRuns(activities), nil
}

// LatestRun returns the most recent run, or (nil, nil) when the athlete has
// no runs within the lookback page.
func (c *Client) LatestRun(ctx context.Context) (*model.Run, error) {
	activities, err := c.Activities(ctx, driven.ActivityQuery{PerPage: 50})
	if err != nil {
		return nil, err
	}
	for i := range activities {
		if activities[i].IsRun() {
			return &activities[i], nil
		}
	}
	return nil, nil
}

// RunsForDate returns the runs recorded on one calendar day.
func (c *Client) RunsForDate(ctx context.Context, date time.Time) ([]model.Run, error) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.AddDate(0, 0, 1)

	activities, err := c.Activities(ctx, driven.ActivityQuery{After: start, Before: end})
	if err != nil {
		return nil, err
	}
	return filterRuns(activities), nil
}

func filterRuns(activities []model.Run) []model.Run {
	runs := []model.Run{}
	for _, a := range activities {
		if a.IsRun() {
			runs = append(runs, a)
		}
	}
	return runs
}

// wireAthlete is Strava's athlete payload shape.
type wireAthlete struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	City      string `json:"city"`
	State     string `json:"state"`
	Country   string `json:"country"`
	Profile   string `json:"profile"`
}

func (w wireAthlete) toModel() *model.Athlete {
	return &model.Athlete{
		ID:        w.ID,
		FirstName: w.FirstName,
		LastName:  w.LastName,
		City:      w.City,
		State:     w.State,
		Country:   w.Country,
		Profile:   w.Profile,
	}
}

// wireActivity is Strava's summary activity payload shape.
type wireActivity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	StartDateLocal     time.Time `json:"start_date_local"`
	Timezone           string    `json:"timezone"`
	Distance           float64   `json:"distance"`
	MovingTime         int       `json:"moving_time"`
	ElapsedTime        int       `json:"elapsed_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	AverageSpeed       float64   `json:"average_speed"`
	MaxSpeed           float64   `json:"max_speed"`
	AverageHeartrate   float64   `json:"average_heartrate"`
	MaxHeartrate       float64   `json:"max_heartrate"`
	Calories           float64   `json:"calories"`
	SufferScore        float64   `json:"suffer_score"`
	HasHeartrate       bool      `json:"has_heartrate"`
	Map                struct {
		SummaryPolyline string `json:"summary_polyline"`
	} `json:"map"`
}

func (w wireActivity) toModel() model.Run {
	return model.Run{
		ID:             w.ID,
		Name:           w.Name,
		Type:           w.Type,
		SportType:      w.SportType,
		StartDate:      w.StartDate,
		StartDateLocal: w.StartDateLocal,
		Timezone:       w.Timezone,
		Distance:       w.Distance,
		MovingTime:     w.MovingTime,
		ElapsedTime:    w.ElapsedTime,
		ElevationGain:  w.TotalElevationGain,
		AverageSpeed:   w.AverageSpeed,
		MaxSpeed:       w.MaxSpeed,
		AverageHR:      w.AverageHeartrate,
		MaxHR:          w.MaxHeartrate,
		Calories:       w.Calories,
		SufferScore:    w.SufferScore,
		HasHeartrate:   w.HasHeartrate,
		MapPolyline:    w.Map.SummaryPolyline,
	}
}
