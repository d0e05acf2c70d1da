package model

import "time"

// Run is a running activity fetched from Strava, mapped to domain units
// (meters, seconds, meters/second).
type Run struct {
	ID             int64
	Name           string
	Type           string
	SportType      string
	StartDate      time.Time
	StartDateLocal time.Time
	Timezone       string
	Distance       float64
	MovingTime     int
	ElapsedTime    int
	ElevationGain  float64
	AverageSpeed   float64
	MaxSpeed       float64
	AverageHR      float64
	MaxHR          float64
	Calories       float64
	SufferScore    float64
	HasHeartrate   bool
	MapPolyline    string
}

// IsRun reports whether the activity is a run in either the legacy type or
// the newer sport_type field.
func (r *Run) IsRun() bool {
	return r.Type == "Run" || r.SportType == "Run"
}

// Athlete is the Strava profile of the authenticated user.
type Athlete struct {
	ID        int64
	FirstName string
	LastName  string
	City      string
	State     string
	Country   string
	Profile   string
}

// Recovery is one Whoop recovery record. Score fields are pointers because
// Whoop omits them while a score is still being computed.
type Recovery struct {
	CycleID          int64
	SleepID          string
	RecoveryScore    *float64
	RestingHeartRate *float64
	HRVRmssd         *float64
	SpO2Percentage   *float64
	SkinTempCelsius  *float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Sleep is one Whoop sleep record.
type Sleep struct {
	ID             string
	Start          time.Time
	End            time.Time
	TimezoneOffset string
	Nap            bool
	InBedMilli     *int64
	Efficiency     *float64
	RespRate       *float64
	Consistency    *float64
}

// WhoopWorkout is one Whoop strain/workout record. Calories are converted
// from the wire kilojoule value.
type WhoopWorkout struct {
	ID        string
	Start     time.Time
	End       time.Time
	SportID   int
	Strain    *float64
	AverageHR *float64
	MaxHR     *float64
	Calories  *float64
	DistanceM *float64
}

// WhoopProfile is the basic Whoop user profile.
type WhoopProfile struct {
	UserID    int64
	FirstName string
	LastName  string
	Email     string
}

// DailyMetrics bundles one day of Whoop data. Each section is independent;
// Errs records per-section failures without blanking the others.
type DailyMetrics struct {
	Recovery  *Recovery
	Sleep     *Sleep
	Workouts  []WhoopWorkout
	FetchedAt time.Time
	Errs      DailyMetricsErrors
}

// DailyMetricsErrors carries the per-section failure messages for a
// DailyMetrics fetch; empty strings mean the section succeeded.
type DailyMetricsErrors struct {
	Recovery string
	Sleep    string
	Workouts string
}
