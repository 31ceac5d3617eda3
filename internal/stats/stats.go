// Package stats derives WorkoutStats from a ledger snapshot.
//
// Everything here is a pure function of the workouts and the supplied "now".
// Calendar days, weeks and months are evaluated in now's location.
package stats

import (
	"alcyxob/workout-ledger/internal/clock"
	"alcyxob/workout-ledger/internal/domain"
	"sort"
	"strings"
	"time"
)

// Engine binds Compute to a clock and a week start.
type Engine struct {
	Clock     clock.Clock
	WeekStart time.Weekday
}

// NewEngine returns an Engine; a nil clock means the system clock.
func NewEngine(c clock.Clock, weekStart time.Weekday) *Engine {
	if c == nil {
		c = clock.System()
	}
	return &Engine{Clock: c, WeekStart: weekStart}
}

// Compute runs the stats over workouts at the engine's current time.
func (e *Engine) Compute(workouts []domain.WorkoutRecord) domain.WorkoutStats {
	return Compute(workouts, e.Clock.Now(), e.WeekStart)
}

// Compute returns the stats for workouts as seen at now.
func Compute(workouts []domain.WorkoutRecord, now time.Time, weekStart time.Weekday) domain.WorkoutStats {
	loc := now.Location()
	s := domain.WorkoutStats{TotalWorkouts: len(workouts)}

	for _, w := range workouts {
		s.TotalExercises += len(w.Exercises)
		s.TotalSets += w.TotalSets()
		s.TotalVolume += w.TotalVolume()
	}

	days := distinctDays(workouts, loc)
	today := dayOf(now, loc)
	s.CurrentStreak = currentStreak(days, today)
	s.LongestStreak = longestStreak(days)
	s.FavoriteExercise = favoriteExercise(workouts)

	weekFrom := startOfWeek(now, weekStart)
	weekTo := weekFrom.AddDate(0, 0, 7)
	for _, w := range workouts {
		if !w.Date.Before(weekFrom) && w.Date.Before(weekTo) {
			s.WorkoutsThisWeek++
		}
		d := w.Date.In(loc)
		if d.Year() == now.Year() && d.Month() == now.Month() {
			s.WorkoutsThisMonth++
		}
	}
	return s
}

// day is a calendar date encoded as days since 1970-01-01.
type day int64

func dayOf(t time.Time, loc *time.Location) day {
	y, m, d := t.In(loc).Date()
	return day(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func distinctDays(workouts []domain.WorkoutRecord, loc *time.Location) map[day]struct{} {
	days := make(map[day]struct{}, len(workouts))
	for _, w := range workouts {
		days[dayOf(w.Date, loc)] = struct{}{}
	}
	return days
}

// currentStreak counts back from today, or from yesterday when today has no
// workout yet.
func currentStreak(days map[day]struct{}, today day) int {
	anchor := today
	if _, ok := days[anchor]; !ok {
		anchor = today - 1
		if _, ok := days[anchor]; !ok {
			return 0
		}
	}
	streak := 0
	for {
		if _, ok := days[anchor]; !ok {
			return streak
		}
		streak++
		anchor--
	}
}

func longestStreak(days map[day]struct{}) int {
	if len(days) == 0 {
		return 0
	}
	sorted := make([]day, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// favoriteExercise picks the most frequent exercise name. Ties go to the
// lexicographically smallest name so the result is stable across runs.
func favoriteExercise(workouts []domain.WorkoutRecord) *string {
	counts := make(map[string]int)
	for _, w := range workouts {
		for _, ex := range w.Exercises {
			counts[ex.Name]++
		}
	}
	if len(counts) == 0 {
		return nil
	}
	best, bestCount := "", -1
	for name, n := range counts {
		if n > bestCount || (n == bestCount && name < best) {
			best, bestCount = name, n
		}
	}
	return &best
}

func startOfWeek(now time.Time, weekStart time.Weekday) time.Time {
	offset := (int(now.Weekday()) - int(weekStart) + 7) % 7
	y, m, d := now.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location())
}

// ParseWeekday maps "sunday".."saturday" (or "sun".."sat") to a time.Weekday.
func ParseWeekday(name string) (time.Weekday, bool) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		full := wd.String()
		if strings.EqualFold(name, full) || strings.EqualFold(name, full[:3]) {
			return wd, true
		}
	}
	return time.Sunday, false
}
