package stats

import (
	"alcyxob/workout-ledger/internal/clock"
	"alcyxob/workout-ledger/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday afternoon.
var now = time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)

func daysAgo(n int, hour int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d-n, hour, 0, 0, 0, time.UTC)
}

func workoutOn(id string, date time.Time, exercises ...string) domain.WorkoutRecord {
	w := domain.WorkoutRecord{ID: id, Name: id, Date: date}
	for _, name := range exercises {
		w.Exercises = append(w.Exercises, domain.ExerciseEntry{
			Name: name,
			Sets: []domain.SetEntry{{Reps: "10", Weight: "20"}},
		})
	}
	return w
}

func TestCompute_EmptyLedger(t *testing.T) {
	s := Compute(nil, now, time.Sunday)

	assert.Equal(t, domain.WorkoutStats{}, s)
	assert.Nil(t, s.FavoriteExercise)
}

func TestCompute_StreakTodayYesterdayAndDayBefore(t *testing.T) {
	ledger := []domain.WorkoutRecord{
		workoutOn("a", daysAgo(0, 7)),
		workoutOn("b", daysAgo(1, 22)),
		workoutOn("c", daysAgo(2, 6)),
	}

	s := Compute(ledger, now, time.Sunday)

	assert.Equal(t, 3, s.CurrentStreak)
	assert.GreaterOrEqual(t, s.LongestStreak, 3)
}

func TestCompute_StreakBrokenWhenNothingTodayOrYesterday(t *testing.T) {
	ledger := []domain.WorkoutRecord{
		workoutOn("a", daysAgo(3, 10)),
		workoutOn("b", daysAgo(4, 10)),
	}

	s := Compute(ledger, now, time.Sunday)

	assert.Equal(t, 0, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
}

func TestCompute_StreakAnchorsOnYesterday(t *testing.T) {
	ledger := []domain.WorkoutRecord{
		workoutOn("a", daysAgo(1, 10)),
		workoutOn("b", daysAgo(2, 10)),
		workoutOn("c", daysAgo(4, 10)),
	}

	s := Compute(ledger, now, time.Sunday)

	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
}

func TestCompute_SameDayWorkoutsCountOnce(t *testing.T) {
	ledger := []domain.WorkoutRecord{
		workoutOn("a", daysAgo(0, 6)),
		workoutOn("b", daysAgo(0, 18)),
		workoutOn("c", daysAgo(1, 9)),
	}

	s := Compute(ledger, now, time.Sunday)

	assert.Equal(t, 3, s.TotalWorkouts)
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 2, s.LongestStreak)
}

func TestCompute_LongestStreakFindsEarlierRun(t *testing.T) {
	ledger := []domain.WorkoutRecord{
		workoutOn("a", daysAgo(0, 10)),
		workoutOn("b", daysAgo(10, 10)),
		workoutOn("c", daysAgo(11, 10)),
		workoutOn("d", daysAgo(12, 10)),
		workoutOn("e", daysAgo(13, 10)),
		workoutOn("f", daysAgo(20, 10)),
	}

	s := Compute(ledger, now, time.Sunday)

	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 4, s.LongestStreak)
}

func TestCompute_LongestStreakIncludesFinalRun(t *testing.T) {
	ledger := []domain.WorkoutRecord{
		workoutOn("a", daysAgo(9, 10)),
		workoutOn("b", daysAgo(2, 10)),
		workoutOn("c", daysAgo(1, 10)),
		workoutOn("d", daysAgo(0, 10)),
	}

	s := Compute(ledger, now, time.Sunday)

	assert.Equal(t, 3, s.LongestStreak)
}

func TestCompute_CalendarDaysFollowNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	localNow := time.Date(2024, 5, 15, 12, 0, 0, 0, loc)
	// 02:00 UTC on the 15th is still the 14th in UTC-5.
	ledger := []domain.WorkoutRecord{
		workoutOn("a", time.Date(2024, 5, 15, 2, 0, 0, 0, time.UTC)),
	}

	s := Compute(ledger, localNow, time.Sunday)

	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 1, s.LongestStreak)
}

func TestCompute_Totals(t *testing.T) {
	ledger := []domain.WorkoutRecord{
		{
			ID:   "a",
			Date: daysAgo(0, 8),
			Exercises: []domain.ExerciseEntry{
				{Name: "Squat", Sets: []domain.SetEntry{
					{Reps: "5", Weight: "100"},
					{Reps: "10", Weight: "abc"},
				}},
				{Name: "Lunge", Sets: []domain.SetEntry{{Reps: "12", Weight: "20"}}},
			},
		},
		{
			ID:        "b",
			Date:      daysAgo(3, 8),
			Exercises: []domain.ExerciseEntry{{Name: "Squat", Sets: []domain.SetEntry{{Reps: "x", Weight: "50"}}}},
		},
	}

	s := Compute(ledger, now, time.Sunday)

	assert.Equal(t, 2, s.TotalWorkouts)
	assert.Equal(t, 3, s.TotalExercises)
	assert.Equal(t, 4, s.TotalSets)
	assert.Equal(t, 740.0, s.TotalVolume)
	require.NotNil(t, s.FavoriteExercise)
	assert.Equal(t, "Squat", *s.FavoriteExercise)
}

func TestCompute_FavoriteTieBreaksLexicographically(t *testing.T) {
	ledger := []domain.WorkoutRecord{
		workoutOn("a", daysAgo(0, 8), "Row", "Bench"),
		workoutOn("b", daysAgo(1, 8), "Deadlift", "Row"),
		workoutOn("c", daysAgo(2, 8), "Bench", "Deadlift"),
	}

	for i := 0; i < 20; i++ {
		s := Compute(ledger, now, time.Sunday)
		require.NotNil(t, s.FavoriteExercise)
		assert.Equal(t, "Bench", *s.FavoriteExercise)
	}
}

func TestCompute_WeeklyAndMonthlyCounts(t *testing.T) {
	// now is Wednesday 2024-05-15; Sunday-start week is [May 12, May 19).
	ledger := []domain.WorkoutRecord{
		workoutOn("sun", time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)),
		workoutOn("sat-before", time.Date(2024, 5, 11, 23, 59, 0, 0, time.UTC)),
		workoutOn("sat-after", time.Date(2024, 5, 18, 23, 59, 0, 0, time.UTC)),
		workoutOn("next-sun", time.Date(2024, 5, 19, 0, 0, 0, 0, time.UTC)),
		workoutOn("may-1", time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		workoutOn("april", time.Date(2024, 4, 30, 9, 0, 0, 0, time.UTC)),
		workoutOn("last-year", time.Date(2023, 5, 15, 9, 0, 0, 0, time.UTC)),
	}

	s := Compute(ledger, now, time.Sunday)
	assert.Equal(t, 2, s.WorkoutsThisWeek)
	assert.Equal(t, 5, s.WorkoutsThisMonth)

	// Monday-start week is [May 13, May 20).
	s = Compute(ledger, now, time.Monday)
	assert.Equal(t, 2, s.WorkoutsThisWeek)
}

func TestEngine_UsesInjectedClock(t *testing.T) {
	c := clock.NewFixed(now)
	e := NewEngine(c, time.Sunday)
	ledger := []domain.WorkoutRecord{workoutOn("a", daysAgo(0, 8))}

	assert.Equal(t, 1, e.Compute(ledger).CurrentStreak)

	c.Advance(72 * time.Hour)
	assert.Equal(t, 0, e.Compute(ledger).CurrentStreak)
}

func TestParseWeekday(t *testing.T) {
	wd, ok := ParseWeekday("Monday")
	assert.True(t, ok)
	assert.Equal(t, time.Monday, wd)

	wd, ok = ParseWeekday("sun")
	assert.True(t, ok)
	assert.Equal(t, time.Sunday, wd)

	_, ok = ParseWeekday("funday")
	assert.False(t, ok)
}
