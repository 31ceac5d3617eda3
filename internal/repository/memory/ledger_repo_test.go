package memory

import (
	"alcyxob/workout-ledger/internal/domain"
	"alcyxob/workout-ledger/internal/repository"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, day int) domain.WorkoutRecord {
	return domain.WorkoutRecord{ID: id, Name: id, Date: time.Date(2024, 5, day, 12, 0, 0, 0, time.UTC)}
}

func ids(workouts []domain.WorkoutRecord) []string {
	out := make([]string, len(workouts))
	for i, w := range workouts {
		out[i] = w.ID
	}
	return out
}

type recorder struct {
	mu        sync.Mutex
	snapshots [][]domain.WorkoutRecord
	errs      []error
}

func (r *recorder) onSnapshot(w []domain.WorkoutRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, w)
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) count() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots), len(r.errs)
}

func (r *recorder) last() []domain.WorkoutRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

func TestLedgerRepository_FetchAllOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()
	require.NoError(t, repo.Put(ctx, "u1", rec("b", 2)))
	require.NoError(t, repo.Put(ctx, "u1", rec("c", 3)))
	require.NoError(t, repo.Put(ctx, "u1", rec("a", 1)))
	require.NoError(t, repo.Put(ctx, "u2", rec("other", 9)))

	got, err := repo.FetchAll(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(got))
}

func TestLedgerRepository_PutReplacesAndDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()
	require.NoError(t, repo.Put(ctx, "u1", rec("a", 1)))

	updated := rec("a", 1)
	updated.Name = "renamed"
	require.NoError(t, repo.Put(ctx, "u1", updated))

	got, err := repo.FetchAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "renamed", got[0].Name)

	require.NoError(t, repo.Delete(ctx, "u1", "a"))
	require.NoError(t, repo.Delete(ctx, "u1", "a"))
	got, err = repo.FetchAll(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLedgerRepository_UnavailableFailsEverything(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()
	repo.SetAvailable(false)

	_, err := repo.FetchAll(ctx, "u1")
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	assert.ErrorIs(t, repo.Put(ctx, "u1", rec("a", 1)), repository.ErrUnavailable)
	assert.ErrorIs(t, repo.Delete(ctx, "u1", "a"), repository.ErrUnavailable)
	_, err = repo.PutBatch(ctx, "u1", []domain.WorkoutRecord{rec("a", 1)})
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	_, err = repo.Subscribe(ctx, "u1", func([]domain.WorkoutRecord) {}, func(error) {})
	assert.ErrorIs(t, err, repository.ErrUnavailable)

	repo.SetAvailable(true)
	_, err = repo.FetchAll(ctx, "u1")
	assert.NoError(t, err)
}

func TestLedgerRepository_PutBatchSkipsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()

	written, err := repo.PutBatch(ctx, "u1", []domain.WorkoutRecord{rec("a", 1), {Name: "no id"}, rec("b", 2)})
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	got, err := repo.FetchAll(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(got))
}

func TestLedgerRepository_SubscribeDeliversInitialAndChangeSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()
	repo.Seed("u1", rec("a", 1))

	r := &recorder{}
	sub, err := repo.Subscribe(ctx, "u1", r.onSnapshot, r.onError)
	require.NoError(t, err)
	defer sub.Cancel()

	require.Eventually(t, func() bool { n, _ := r.count(); return n == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a"}, ids(r.last()))

	require.NoError(t, repo.Put(ctx, "u1", rec("b", 2)))
	require.Eventually(t, func() bool { n, _ := r.count(); return n == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"b", "a"}, ids(r.last()))

	require.NoError(t, repo.Put(ctx, "u2", rec("x", 3)))
	repo.InjectError("u1", errors.New("stream reset"))
	require.Eventually(t, func() bool { _, e := r.count(); return e == 1 }, time.Second, 5*time.Millisecond)
	n, _ := r.count()
	assert.Equal(t, 2, n, "other users' writes are not delivered")
}

func TestLedgerRepository_CancelStopsDelivery(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()

	r := &recorder{}
	sub, err := repo.Subscribe(ctx, "u1", r.onSnapshot, r.onError)
	require.NoError(t, err)
	require.Eventually(t, func() bool { n, _ := r.count(); return n == 1 }, time.Second, 5*time.Millisecond)

	sub.Cancel()
	require.NoError(t, repo.Put(ctx, "u1", rec("a", 1)))
	time.Sleep(20 * time.Millisecond)

	n, _ := r.count()
	assert.Equal(t, 1, n)
}
