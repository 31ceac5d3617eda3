package domain

// SyncStatus is the coordinator's last known connectivity. Never persisted.
type SyncStatus string

const (
	SyncOnline  SyncStatus = "online"
	SyncOffline SyncStatus = "offline"
	SyncSyncing SyncStatus = "syncing" // A network call is in flight
)

// WorkoutStats is derived from a ledger snapshot and always recomputable.
type WorkoutStats struct {
	TotalWorkouts     int     `json:"totalWorkouts"`
	CurrentStreak     int     `json:"currentStreak"`
	LongestStreak     int     `json:"longestStreak"`
	TotalVolume       float64 `json:"totalVolume"`
	TotalSets         int     `json:"totalSets"`
	TotalExercises    int     `json:"totalExercises"`
	FavoriteExercise  *string `json:"favoriteExercise"` // nil when the ledger has no exercises
	WorkoutsThisWeek  int     `json:"workoutsThisWeek"`
	WorkoutsThisMonth int     `json:"workoutsThisMonth"`
}

// LedgerUpdate is emitted to watchers after every mutation or status change.
type LedgerUpdate struct {
	Workouts []WorkoutRecord `json:"workouts"`
	Status   SyncStatus      `json:"status"`
}
