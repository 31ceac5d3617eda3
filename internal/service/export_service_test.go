package service

import (
	"alcyxob/workout-ledger/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	mu         sync.Mutex
	objects    map[string][]byte
	presignErr error
	deleted    []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) PutObject(_ context.Context, key, _ string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = body
	return nil
}

func (f *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://bucket.example/" + key + "?sig=1", nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func TestExportService_UploadsLedger(t *testing.T) {
	f := newFixture(t, StaticIdentity(""))
	require.NoError(t, f.svc.Save(workout("a", 0)))
	store := newFakeStorage()

	result, err := NewExportService(f.svc, StaticIdentity("u1"), store, time.Minute).ExportLedger(context.Background())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(result.ObjectKey, "exports/u1/"))
	assert.True(t, strings.HasSuffix(result.ObjectKey, ".json"))
	assert.Contains(t, result.DownloadURL, result.ObjectKey)
	assert.Equal(t, 1, result.Workouts)

	var exported []domain.WorkoutRecord
	require.NoError(t, json.Unmarshal(store.objects[result.ObjectKey], &exported))
	assert.Equal(t, []string{"a"}, workoutIDs(exported))
}

func TestExportService_Errors(t *testing.T) {
	f := newFixture(t, StaticIdentity(""))
	ctx := context.Background()

	_, err := NewExportService(f.svc, StaticIdentity("u1"), nil, 0).ExportLedger(ctx)
	assert.ErrorIs(t, err, ErrExportUnavailable)

	_, err = NewExportService(f.svc, StaticIdentity(""), newFakeStorage(), 0).ExportLedger(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	store := newFakeStorage()
	store.presignErr = errors.New("signing failed")
	_, err = NewExportService(f.svc, StaticIdentity("u1"), store, 0).ExportLedger(ctx)
	require.Error(t, err)
	assert.Len(t, store.deleted, 1)
	assert.Empty(t, store.objects, "unreachable exports are removed")
}
