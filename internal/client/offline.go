package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"oftalmonet/valeda-app/internal/domain"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no offline snapshot")

// OfflineStore persists the last known treatment list for offline use.
type OfflineStore interface {
	Load() (treatments []domain.Treatment, savedAt time.Time, err error)
	Save(treatments []domain.Treatment) error
}

type snapshot struct {
	SavedAt    time.Time          `json:"savedAt"`
	Treatments []domain.Treatment `json:"treatments"`
}

// FileStore keeps the snapshot in a single JSON file. Writes go to a
// temporary file in the same directory and are renamed into place, so a
// crash never leaves a truncated snapshot.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() ([]domain.Treatment, time.Time, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	if snap.Treatments == nil {
		snap.Treatments = []domain.Treatment{}
	}
	return snap.Treatments, snap.SavedAt, nil
}

func (s *FileStore) Save(treatments []domain.Treatment) error {
	if treatments == nil {
		treatments = []domain.Treatment{}
	}
	raw, err := json.Marshal(snapshot{SavedAt: time.Now().UTC(), Treatments: treatments})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
