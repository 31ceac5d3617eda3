package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"10", 10},
		{"62.5", 62.5},
		{"-5", -5},
		{"abc", 0},
		{"", 0},
		{" 10", 0},
		{"10kg", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"1e400", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNumber(tt.in))
		})
	}
}

func TestWorkoutRecord_TotalVolumeTreatsNonNumericAsZero(t *testing.T) {
	w := WorkoutRecord{
		Exercises: []ExerciseEntry{
			{Name: "Squat", Sets: []SetEntry{
				{Reps: "5", Weight: "100"},
				{Reps: "10", Weight: "abc"},
				{Reps: "", Weight: "60"},
			}},
			{Name: "Row", Sets: []SetEntry{
				{Reps: "8", Weight: "42.5", IsWarmup: true},
			}},
		},
	}

	assert.Equal(t, 500.0+340.0, w.TotalVolume())
	assert.Equal(t, 4, w.TotalSets())
}

func TestWorkoutRecord_CloneIsDeep(t *testing.T) {
	w := WorkoutRecord{ID: "a", Exercises: []ExerciseEntry{{Name: "Bench", Sets: []SetEntry{{Reps: "5"}}}}}

	c := w.Clone()
	c.Exercises[0].Sets[0].Reps = "99"
	c.Exercises[0].Name = "Press"

	assert.Equal(t, "5", w.Exercises[0].Sets[0].Reps)
	assert.Equal(t, "Bench", w.Exercises[0].Name)
}

func TestNewWorkoutRecord_AssignsUniqueIDs(t *testing.T) {
	now := time.Now()
	a := NewWorkoutRecord("Push", now)
	b := NewWorkoutRecord("Push", now)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotNil(t, a.Exercises)
}

func TestWorkoutRecord_DecodesLegacyJSONWithoutFavorite(t *testing.T) {
	legacy := `{"id":"w1","name":"Legs","date":"2024-03-01T18:00:00Z","exercises":[{"name":"Squat","sets":[{"reps":"5","weight":"100","rpe":"8","isCompleted":true,"isWarmup":false,"isDropSet":false}],"notes":""}]}`

	var w WorkoutRecord
	require.NoError(t, json.Unmarshal([]byte(legacy), &w))

	assert.False(t, w.IsFavorite)
	assert.Equal(t, "w1", w.ID)
	assert.Equal(t, 500.0, w.TotalVolume())
}
