package domain

import (
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// WorkoutRecord is a single finished workout session in a user's ledger.
// ID never changes once assigned; everything else may be edited.
type WorkoutRecord struct {
	ID         string          `bson:"_id" json:"id"`
	Name       string          `bson:"name" json:"name"`
	Date       time.Time       `bson:"date" json:"date"`
	Exercises  []ExerciseEntry `bson:"exercises" json:"exercises"`
	IsFavorite bool            `bson:"isFavorite" json:"isFavorite"` // Absent in older cache files, decodes as false
}

// ExerciseEntry is one exercise performed during a workout.
type ExerciseEntry struct {
	Name  string     `bson:"name" json:"name"`
	Sets  []SetEntry `bson:"sets" json:"sets"`
	Notes string     `bson:"notes,omitempty" json:"notes"`
}

// SetEntry keeps reps and weight exactly as the user typed them.
// Use ParseNumber when a numeric value is needed.
type SetEntry struct {
	Reps        string `bson:"reps" json:"reps"`
	Weight      string `bson:"weight" json:"weight"`
	RPE         string `bson:"rpe,omitempty" json:"rpe"`
	IsCompleted bool   `bson:"isCompleted" json:"isCompleted"`
	IsWarmup    bool   `bson:"isWarmup" json:"isWarmup"`
	IsDropSet   bool   `bson:"isDropSet" json:"isDropSet"`
}

// NewWorkoutRecord creates an empty record with a fresh id.
func NewWorkoutRecord(name string, date time.Time) WorkoutRecord {
	return WorkoutRecord{
		ID:        uuid.NewString(),
		Name:      name,
		Date:      date,
		Exercises: []ExerciseEntry{},
	}
}

// Volume is weight*reps for the set, 0 if either field is not a number.
func (s SetEntry) Volume() float64 {
	return ParseNumber(s.Weight) * ParseNumber(s.Reps)
}

// TotalVolume sums the volume of every set of every exercise.
func (w WorkoutRecord) TotalVolume() float64 {
	total := 0.0
	for _, ex := range w.Exercises {
		for _, set := range ex.Sets {
			total += set.Volume()
		}
	}
	return total
}

// TotalSets counts all sets, warmups and drop sets included.
func (w WorkoutRecord) TotalSets() int {
	count := 0
	for _, ex := range w.Exercises {
		count += len(ex.Sets)
	}
	return count
}

// Clone returns a deep copy so callers can't alias ledger internals.
func (w WorkoutRecord) Clone() WorkoutRecord {
	out := w
	if w.Exercises != nil {
		out.Exercises = make([]ExerciseEntry, len(w.Exercises))
		for i, ex := range w.Exercises {
			out.Exercises[i] = ex
			if ex.Sets != nil {
				out.Exercises[i].Sets = append([]SetEntry(nil), ex.Sets...)
			}
		}
	}
	return out
}

// CloneWorkouts deep-copies a ledger. A nil input yields an empty, non-nil slice.
func CloneWorkouts(workouts []WorkoutRecord) []WorkoutRecord {
	out := make([]WorkoutRecord, len(workouts))
	for i, w := range workouts {
		out[i] = w.Clone()
	}
	return out
}

// ParseNumber is the lenient numeric parse used for every aggregate.
// Anything that is not a finite decimal number counts as 0.
func ParseNumber(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
