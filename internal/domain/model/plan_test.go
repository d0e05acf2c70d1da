package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlan_WorkoutLabel(t *testing.T) {
	p := Plan{PrimaryType: "Easy Run"}
	assert.Equal(t, "Easy Run", p.WorkoutLabel())

	p.SecondaryType = "Core"
	assert.Equal(t, "Easy Run + Core", p.WorkoutLabel())
}

func TestProgress_Percentages(t *testing.T) {
	p := Progress{
		TotalDays:          8,
		CompletedDays:      2,
		TotalExercises:     10,
		CompletedExercises: 5,
	}
	assert.Equal(t, 25.0, p.DayPercent())
	assert.Equal(t, 50.0, p.ExercisePercent())
}

func TestProgress_EmptyPlanIsZeroNotNaN(t *testing.T) {
	var p Progress
	assert.Equal(t, 0.0, p.DayPercent())
	assert.Equal(t, 0.0, p.ExercisePercent())
}

func TestRun_IsRun(t *testing.T) {
	assert.True(t, (&Run{Type: "Run"}).IsRun())
	assert.True(t, (&Run{SportType: "Run"}).IsRun())
	assert.False(t, (&Run{Type: "Ride", SportType: "Ride"}).IsRun())
}
