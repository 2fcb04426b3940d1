package client

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"oftalmonet/valeda-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFileStore_MissingSnapshot(t *testing.T) {
	_, _, err := NewFileStore(filepath.Join(t.TempDir(), "none.json")).Load()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "nested", "snapshot.json"))

	day := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	tr := sampleTreatment("Ana")
	tr.ID = primitive.NewObjectID()
	tr.Sessions = domain.DefaultSessions()
	tr.Sessions[0].Date = &day

	require.NoError(t, store.Save([]domain.Treatment{tr}))

	before := time.Now()
	require.NoError(t, store.Save([]domain.Treatment{tr, tr}))

	loaded, savedAt, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.WithinDuration(t, before, savedAt, 5*time.Second)
	assert.Equal(t, tr.ID, loaded[0].ID)
	require.NotNil(t, loaded[0].Sessions[0].Date)
	assert.True(t, day.Equal(*loaded[0].Sessions[0].Date))

	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStore_CorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := NewFileStore(path).Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSnapshot)
}
