package cache

import (
	"alcyxob/workout-ledger/internal/domain"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftStore_Lifecycle(t *testing.T) {
	fsys := afero.NewMemMapFs()
	drafts := NewDraftStore(fsys, "/data")

	_, ok := drafts.Load()
	assert.False(t, ok)

	draft := domain.WorkoutRecord{ID: "d1", Name: "In progress", Date: time.Date(2024, 5, 3, 6, 0, 0, 0, time.UTC)}
	require.NoError(t, drafts.Save(draft))

	got, ok := drafts.Load()
	require.True(t, ok)
	assert.Equal(t, "d1", got.ID)

	require.NoError(t, drafts.Clear())
	_, ok = drafts.Load()
	assert.False(t, ok)

	require.NoError(t, drafts.Clear(), "clearing twice is fine")
}

func TestDraftStore_IndependentOfLedger(t *testing.T) {
	fsys := afero.NewMemMapFs()
	ledger := NewFileStore(fsys, "/data")
	drafts := NewDraftStore(fsys, "/data")

	require.NoError(t, ledger.Save([]domain.WorkoutRecord{{ID: "w1"}}))
	require.NoError(t, drafts.Save(domain.WorkoutRecord{ID: "d1"}))
	require.NoError(t, drafts.Clear())

	assert.Len(t, ledger.Load(), 1)
}

func TestDraftStore_CorruptDraftIgnored(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/data/draft.json", []byte("]["), 0o644))

	_, ok := NewDraftStore(fsys, "/data").Load()
	assert.False(t, ok)
}
