package whoop

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
	"github.com/ericfisherdev/traintrack/internal/domain/port/driven"
)

type memStore struct {
	mu    sync.Mutex
	creds map[model.Provider]*model.Credential
}

func newMemStore() *memStore {
	return &memStore{creds: make(map[model.Provider]*model.Credential)}
}

func (s *memStore) Get(_ context.Context, provider model.Provider) (*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[provider]
	if !ok {
		return nil, nil
	}
	copied := *cred
	return &copied, nil
}

func (s *memStore) Save(_ context.Context, provider model.Provider, update driven.TokenUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[provider]
	if !ok {
		cred = &model.Credential{Provider: provider}
		s.creds[provider] = cred
	}
	cred.AccessToken = update.AccessToken
	if update.RefreshToken != "" {
		cred.RefreshToken = update.RefreshToken
	}
	cred.ExpiresAt = update.ExpiresAt
	return nil
}

func (s *memStore) Delete(_ context.Context, provider model.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, provider)
	return nil
}

func (s *memStore) put(t *testing.T, cred model.Credential) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.Provider] = &cred
}

// memStateStore is an in-memory StateStore with single-use consume.
type memStateStore struct {
	mu     sync.Mutex
	states map[string]model.Provider
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: make(map[string]model.Provider)}
}

func (s *memStateStore) Put(_ context.Context, state string, provider model.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = provider
	return nil
}

func (s *memStateStore) Consume(_ context.Context, state string) (model.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	provider, ok := s.states[state]
	if !ok {
		return "", driven.ErrStateMismatch
	}
	delete(s.states, state)
	return provider, nil
}

func newTestService(t *testing.T, store *memStore, states driven.StateStore, mux *http.ServeMux) *Service {
	t.Helper()
	if mux == nil {
		mux = http.NewServeMux()
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	if states == nil {
		states = newMemStateStore()
	}
	return NewService(Config{
		ClientID:     "whoop-client",
		ClientSecret: "whoop-secret",
		RedirectURI:  "http://localhost:8080/api/v1/auth/whoop/callback",
		AuthURL:      server.URL + "/oauth/oauth2/auth",
		TokenURL:     server.URL + "/oauth/oauth2/token",
		APIBase:      server.URL,
	}, store, states, nil)
}

func recordsJSON(t *testing.T, records ...map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{"records": records})
	require.NoError(t, err)
	return body
}

func TestAuthorizationURLPersistsState(t *testing.T) {
	states := newMemStateStore()
	svc := newTestService(t, newMemStore(), states, nil)

	authURL, state, err := svc.AuthorizationURL(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, state)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, "whoop-client", q.Get("client_id"))
	assert.Equal(t, "offline read:recovery read:workout", q.Get("scope"))

	require.NoError(t, svc.ValidateState(context.Background(), state))
}

func TestValidateStateIsSingleUse(t *testing.T) {
	svc := newTestService(t, newMemStore(), nil, nil)

	_, state, err := svc.AuthorizationURL(context.Background())
	require.NoError(t, err)

	require.NoError(t, svc.ValidateState(context.Background(), state))
	require.ErrorIs(t, svc.ValidateState(context.Background(), state), driven.ErrStateMismatch)
}

func TestValidateStateRejectsForeignProvider(t *testing.T) {
	states := newMemStateStore()
	require.NoError(t, states.Put(context.Background(), "cross-state", model.ProviderStrava))

	svc := newTestService(t, newMemStore(), states, nil)

	require.ErrorIs(t, svc.ValidateState(context.Background(), "cross-state"), driven.ErrStateMismatch)
}

func TestExchangeSendsFormBodyWithRedirectURI(t *testing.T) {
	store := newMemStore()

	var gotForm url.Values
	var gotContentType string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "t1",
			"refresh_token": "r1",
			"expires_in":    3600,
		})
	})

	svc := newTestService(t, store, nil, mux)

	token, err := svc.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "t1", token.AccessToken)

	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "authorization_code", gotForm.Get("grant_type"))
	assert.Equal(t, "auth-code", gotForm.Get("code"))
	assert.Equal(t, "http://localhost:8080/api/v1/auth/whoop/callback", gotForm.Get("redirect_uri"))

	cred, err := store.Get(context.Background(), model.ProviderWhoop)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "t1", cred.AccessToken)
	assert.Equal(t, "r1", cred.RefreshToken)
}

func TestConnectFallsBackToStaticToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/profile/basic", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer static-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user_id":    42,
			"first_name": "Jo",
			"email":      "jo@example.com",
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	svc := NewService(Config{
		StaticToken: "static-token",
		APIBase:     server.URL,
	}, newMemStore(), newMemStateStore(), nil)

	require.True(t, svc.HasStaticToken())

	client, err := svc.Connect(context.Background())
	require.NoError(t, err)

	profile, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), profile.UserID)
	assert.Equal(t, "Jo", profile.FirstName)
}

func TestConnectPrefersStoredCredentialsOverStaticToken(t *testing.T) {
	store := newMemStore()
	store.put(t, model.Credential{Provider: model.ProviderWhoop, AccessToken: "stored-token"})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /user/profile/basic", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer stored-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"user_id": 1})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	svc := NewService(Config{
		StaticToken: "static-token",
		APIBase:     server.URL,
	}, store, newMemStateStore(), nil)

	client, err := svc.Connect(context.Background())
	require.NoError(t, err)

	_, err = client.Profile(context.Background())
	require.NoError(t, err)
}

func TestConnectWithNothingConfigured(t *testing.T) {
	svc := newTestService(t, newMemStore(), nil, nil)

	_, err := svc.Connect(context.Background())
	require.ErrorIs(t, err, driven.ErrNotAuthenticated)
}

func TestTodayRecoveryWithNoRecords(t *testing.T) {
	store := newMemStore()
	store.put(t, model.Credential{Provider: model.ProviderWhoop, AccessToken: "tok"})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /recovery", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(recordsJSON(t))
	})

	svc := newTestService(t, store, nil, mux)
	client, err := svc.Connect(context.Background())
	require.NoError(t, err)

	recovery, err := client.TodayRecovery(context.Background())
	require.NoError(t, err)
	assert.Nil(t, recovery)
}

func TestTodayRecoveryQueriesYesterdayThroughToday(t *testing.T) {
	store := newMemStore()
	store.put(t, model.Credential{Provider: model.ProviderWhoop, AccessToken: "tok"})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /recovery", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		start, err := time.Parse("2006-01-02T15:04:05.000Z", q.Get("start"))
		require.NoError(t, err)
		end, err := time.Parse("2006-01-02T15:04:05.000Z", q.Get("end"))
		require.NoError(t, err)
		assert.Equal(t, 48*time.Hour-time.Millisecond, end.Sub(start))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(recordsJSON(t, map[string]any{
			"cycle_id": 7,
			"sleep_id": "s-1",
			"score": map[string]any{
				"recovery_score":     88.0,
				"resting_heart_rate": 52.0,
				"hrv_rmssd_milli":    64.5,
			},
		}))
	})

	svc := newTestService(t, store, nil, mux)
	client, err := svc.Connect(context.Background())
	require.NoError(t, err)

	recovery, err := client.TodayRecovery(context.Background())
	require.NoError(t, err)
	require.NotNil(t, recovery)
	assert.Equal(t, int64(7), recovery.CycleID)
	require.NotNil(t, recovery.RecoveryScore)
	assert.InDelta(t, 88.0, *recovery.RecoveryScore, 0.001)
	require.NotNil(t, recovery.HRVRmssd)
	assert.InDelta(t, 64.5, *recovery.HRVRmssd, 0.001)
}

func TestRecoveryWithPendingScore(t *testing.T) {
	store := newMemStore()
	store.put(t, model.Credential{Provider: model.ProviderWhoop, AccessToken: "tok"})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /recovery", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(recordsJSON(t, map[string]any{"cycle_id": 3, "sleep_id": "s-2"}))
	})

	svc := newTestService(t, store, nil, mux)
	client, err := svc.Connect(context.Background())
	require.NoError(t, err)

	recovery, err := client.TodayRecovery(context.Background())
	require.NoError(t, err)
	require.NotNil(t, recovery)
	assert.Nil(t, recovery.RecoveryScore)
	assert.Nil(t, recovery.RestingHeartRate)
}

func TestTodaySleepDecodesScore(t *testing.T) {
	store := newMemStore()
	store.put(t, model.Credential{Provider: model.ProviderWhoop, AccessToken: "tok"})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /activity/sleep", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(recordsJSON(t, map[string]any{
			"id":  "sleep-1",
			"nap": false,
			"score": map[string]any{
				"stage_summary": map[string]any{
					"total_in_bed_time_milli": 28800000,
				},
				"sleep_efficiency_percentage": 91.5,
				"respiratory_rate":            14.2,
			},
		}))
	})

	svc := newTestService(t, store, nil, mux)
	client, err := svc.Connect(context.Background())
	require.NoError(t, err)

	sleep, err := client.TodaySleep(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sleep)
	assert.Equal(t, "sleep-1", sleep.ID)
	require.NotNil(t, sleep.InBedMilli)
	assert.Equal(t, int64(28800000), *sleep.InBedMilli)
	require.NotNil(t, sleep.Efficiency)
	assert.InDelta(t, 91.5, *sleep.Efficiency, 0.001)
	assert.Nil(t, sleep.Consistency)
}

func TestTodayWorkoutsConvertsKilojoulesToCalories(t *testing.T) {
	store := newMemStore()
	store.put(t, model.Credential{Provider: model.ProviderWhoop, AccessToken: "tok"})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /activity/workout", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(recordsJSON(t, map[string]any{
			"id":       "workout-1",
			"sport_id": 45,
			"score": map[string]any{
				"strain":    12.4,
				"kilojoule": 2000.0,
			},
		}))
	})

	svc := newTestService(t, store, nil, mux)
	client, err := svc.Connect(context.Background())
	require.NoError(t, err)

	workouts, err := client.TodayWorkouts(context.Background())
	require.NoError(t, err)
	require.Len(t, workouts, 1)
	require.NotNil(t, workouts[0].Calories)
	assert.InDelta(t, 478.0, *workouts[0].Calories, 0.001)
	require.NotNil(t, workouts[0].Strain)
	assert.InDelta(t, 12.4, *workouts[0].Strain, 0.001)
}

func TestDailyMetricsToleratesPartialFailure(t *testing.T) {
	store := newMemStore()
	store.put(t, model.Credential{Provider: model.ProviderWhoop, AccessToken: "tok"})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /recovery", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(recordsJSON(t, map[string]any{
			"cycle_id": 5,
			"score":    map[string]any{"recovery_score": 70.0},
		}))
	})
	mux.HandleFunc("GET /activity/sleep", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("sleep backend down"))
	})
	mux.HandleFunc("GET /activity/workout", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(recordsJSON(t, map[string]any{"id": "w-1", "sport_id": 45}))
	})

	svc := newTestService(t, store, nil, mux)
	client, err := svc.Connect(context.Background())
	require.NoError(t, err)

	metrics, err := client.DailyMetrics(context.Background())
	require.NoError(t, err, "one failing section must not fail the aggregate")
	require.NotNil(t, metrics.Recovery)
	assert.Equal(t, int64(5), metrics.Recovery.CycleID)
	assert.Nil(t, metrics.Sleep)
	assert.Contains(t, metrics.Errs.Sleep, "sleep backend down")
	require.Len(t, metrics.Workouts, 1)
	assert.Empty(t, metrics.Errs.Recovery)
	assert.Empty(t, metrics.Errs.Workouts)
	assert.False(t, metrics.FetchedAt.IsZero())
}

func TestRecoveryRangeReturnsAllRecords(t *testing.T) {
	store := newMemStore()
	store.put(t, model.Credential{Provider: model.ProviderWhoop, AccessToken: "tok"})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /recovery", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(recordsJSON(t,
			map[string]any{"cycle_id": 1},
			map[string]any{"cycle_id": 2},
			map[string]any{"cycle_id": 3},
		))
	})

	svc := newTestService(t, store, nil, mux)
	client, err := svc.Connect(context.Background())
	require.NoError(t, err)

	records, err := client.RecoveryRange(context.Background(), time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(2), records[1].CycleID)
}
