package repository

import (
	"alcyxob/workout-ledger/internal/domain"
	"context"
	"sort"
)

// Error constants for repository layer
var (
	ErrNotFound      = RepositoryError("not found")
	ErrUnavailable   = RepositoryError("remote ledger unavailable")
	ErrInvalidRecord = RepositoryError("workout record cannot be encoded")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// LedgerRepository is the remote, per-user collection of workout documents.
// Document id equals the record id. Any method may fail on connectivity;
// callers treat that as "offline", never as fatal.
type LedgerRepository interface {
	// FetchAll returns the user's workouts ordered by date, newest first.
	FetchAll(ctx context.Context, userID string) ([]domain.WorkoutRecord, error)
	// Put creates or replaces one record.
	Put(ctx context.Context, userID string, record domain.WorkoutRecord) error
	// Delete removes one record. Deleting a missing id is not an error.
	Delete(ctx context.Context, userID, id string) error
	// PutBatch writes many records at once. Records that cannot be encoded are
	// logged and skipped; written counts the ones sent.
	PutBatch(ctx context.Context, userID string, records []domain.WorkoutRecord) (written int, err error)
	// Subscribe delivers the full ordered collection once on open and again
	// after every change, until the subscription is canceled.
	Subscribe(ctx context.Context, userID string, onSnapshot func([]domain.WorkoutRecord), onError func(error)) (Subscription, error)
}

// Subscription is a live change feed. Cancel blocks until no further
// callbacks will run.
type Subscription interface {
	Cancel()
}

// SortNewestFirst orders workouts by date descending, ties by id, in place.
func SortNewestFirst(workouts []domain.WorkoutRecord) {
	sort.SliceStable(workouts, func(i, j int) bool {
		if !workouts[i].Date.Equal(workouts[j].Date) {
			return workouts[i].Date.After(workouts[j].Date)
		}
		return workouts[i].ID < workouts[j].ID
	})
}

// ValidateRecord reports whether a record can be stored remotely.
func ValidateRecord(record domain.WorkoutRecord) error {
	if record.ID == "" {
		return ErrInvalidRecord
	}
	return nil
}
