package cache

import (
	"alcyxob/workout-ledger/internal/domain"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
)

// DraftStore autosaves the single in-progress workout, separate from the ledger.
type DraftStore struct {
	fs   afero.Fs
	path string
}

func NewDraftStore(fsys afero.Fs, dir string) *DraftStore {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &DraftStore{fs: fsys, path: filepath.Join(dir, DraftFileName)}
}

// Load returns the saved draft, if any. A corrupt draft is treated as absent.
func (s *DraftStore) Load() (*domain.WorkoutRecord, bool) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("WARN: Failed to read workout draft %s: %v", s.path, err)
		}
		return nil, false
	}
	var draft domain.WorkoutRecord
	if err := json.Unmarshal(data, &draft); err != nil {
		log.Printf("WARN: Workout draft %s is corrupt, ignoring: %v", s.path, err)
		return nil, false
	}
	return &draft, true
}

func (s *DraftStore) Save(draft domain.WorkoutRecord) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode workout draft: %w", err)
	}
	if err := writeFileAtomic(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("write workout draft: %w", err)
	}
	return nil
}

// Clear removes the draft. Clearing when there is none is not an error.
func (s *DraftStore) Clear() error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear workout draft: %w", err)
	}
	return nil
}
