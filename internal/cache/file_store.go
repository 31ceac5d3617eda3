// Package cache keeps the on-device copy of the workout ledger.
package cache

import (
	"alcyxob/workout-ledger/internal/domain"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	LedgerFileName = "workouts.json"
	DraftFileName  = "draft.json"
)

// FileStore persists the full workout list as one JSON array file.
// It holds no lock of its own; the ledger service serializes access.
type FileStore struct {
	fs   afero.Fs
	path string
}

// NewFileStore stores the ledger at dir/workouts.json on fsys.
// A nil fsys means the OS filesystem.
func NewFileStore(fsys afero.Fs, dir string) *FileStore {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &FileStore{fs: fsys, path: filepath.Join(dir, LedgerFileName)}
}

// Path returns the ledger file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load never fails: a missing or unreadable file is an empty ledger.
func (s *FileStore) Load() []domain.WorkoutRecord {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("WARN: Failed to read workout cache %s: %v", s.path, err)
		}
		return []domain.WorkoutRecord{}
	}
	var workouts []domain.WorkoutRecord
	if err := json.Unmarshal(data, &workouts); err != nil {
		log.Printf("WARN: Workout cache %s is corrupt, starting empty: %v", s.path, err)
		return []domain.WorkoutRecord{}
	}
	if workouts == nil {
		workouts = []domain.WorkoutRecord{}
	}
	return workouts
}

// Save replaces the file contents with workouts. The old file stays intact
// if anything fails.
func (s *FileStore) Save(workouts []domain.WorkoutRecord) error {
	if workouts == nil {
		workouts = []domain.WorkoutRecord{}
	}
	data, err := json.Marshal(workouts)
	if err != nil {
		return fmt.Errorf("encode workout cache: %w", err)
	}
	if err := writeFileAtomic(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("write workout cache: %w", err)
	}
	return nil
}

func writeFileAtomic(fsys afero.Fs, path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmpFile, err := afero.TempFile(fsys, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = fsys.Remove(tmpName)
		}
	}()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := fsys.Chmod(tmpName, mode); err != nil {
		return err
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
