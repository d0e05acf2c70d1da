package strava

import (
	"fmt"
	"math"
)

// notAvailable is the sentinel for metrics that are zero or missing; the
// formatters never divide by zero or emit NaN.
const notAvailable = "N/A"

// FormatPace converts a speed in m/s to a min/km pace string ("5:30/km").
func FormatPace(speedMs float64) string {
	if speedMs <= 0 || math.IsNaN(speedMs) || math.IsInf(speedMs, 0) {
		return notAvailable
	}

	paceMinPerKm := 1000 / (speedMs * 60)
	minutes := int(paceMinPerKm)
	seconds := int(math.Round((paceMinPerKm - float64(minutes)) * 60))
	if seconds == 60 {
		minutes++
		seconds = 0
	}

	return fmt.Sprintf("%d:%02d/km", minutes, seconds)
}

// FormatDistance converts meters to a kilometer string ("10.25 km").
func FormatDistance(meters float64) string {
	if meters <= 0 || math.IsNaN(meters) || math.IsInf(meters, 0) {
		return notAvailable
	}
	return fmt.Sprintf("%.2f km", meters/1000)
}

// FormatDuration converts seconds to "H:MM:SS", or "M:SS" under an hour.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return notAvailable
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}
