package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/traintrack/internal/domain/model"
)

// ErrNotAuthenticated is returned when no usable token exists for a provider
// and no fallback is configured. The caller should direct the user at the
// provider's authorization endpoint.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrNoRefreshToken is returned when a refresh is required but neither the
// client nor the store holds a refresh token; the user must re-authorize.
var ErrNoRefreshToken = errors.New("no refresh token available, re-authorization required")

// ActivityQuery bounds and pages a Strava activity listing. Zero time values
// leave the corresponding bound open.
type ActivityQuery struct {
	Before  time.Time
	After   time.Time
	Page    int
	PerPage int
}

// StravaClient is a ready-to-use authenticated Strava session. Token refresh
// is transparent to callers of these methods.
type StravaClient interface {
	Athlete(ctx context.Context) (*model.Athlete, error)
	Activities(ctx context.Context, q ActivityQuery) ([]model.Run, error)
	// TodayRuns returns today's run activities, which may be empty.
	TodayRuns(ctx context.Context) ([]model.Run, error)
	// LatestRun returns the most recent run, or (nil, nil) when the
	// athlete has no runs at all.
	LatestRun(ctx context.Context) (*model.Run, error)
}

// WhoopClient is a ready-to-use authenticated Whoop session.
type WhoopClient interface {
	Profile(ctx context.Context) (*model.WhoopProfile, error)
	RecoveryRange(ctx context.Context, start, end time.Time) ([]model.Recovery, error)
	// TodayRecovery returns the most recent recovery record in the
	// yesterday-through-today window, or (nil, nil) when none exists yet.
	TodayRecovery(ctx context.Context) (*model.Recovery, error)
	TodaySleep(ctx context.Context) (*model.Sleep, error)
	TodayWorkouts(ctx context.Context) ([]model.WhoopWorkout, error)
	DailyMetrics(ctx context.Context) (*model.DailyMetrics, error)
}

// StravaConnector builds Strava sessions from stored credentials. Connect
// guarantees a usable client on success: an expired token is refreshed
// eagerly before the client is returned.
type StravaConnector interface {
	Connect(ctx context.Context) (StravaClient, error)
}

// WhoopConnector builds Whoop sessions from stored credentials, falling back
// to a statically configured token when nothing is stored.
type WhoopConnector interface {
	Connect(ctx context.Context) (WhoopClient, error)
}
