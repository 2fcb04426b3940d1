package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"oftalmonet/valeda-app/internal/repository/memory"
	"oftalmonet/valeda-app/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) PutObject(_ context.Context, key, _ string, body []byte) error {
	m.objects[key] = body
	return nil
}

func (m *memoryStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + key, nil
}

func (m *memoryStorage) DeleteObject(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func TestExportRoute_DisabledWithoutStorage(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/treatments/export", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportRoute_UploadsMatchingTreatments(t *testing.T) {
	store := &memoryStorage{objects: map[string][]byte{}}
	repo := memory.NewTreatmentRepository()
	s := newTestServerWithRepo(t, repo, func(d *Dependencies) {
		d.Archive = service.NewArchiveService(repo, store, nil, nil)
	})
	s.do(t, http.MethodPost, "/api/treatments", treatmentBody("Ana"))
	s.do(t, http.MethodPost, "/api/treatments", treatmentBody("Bea"))

	rec := s.do(t, http.MethodPost, "/api/treatments/export?name=ana", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	export := decode[service.ArchiveExport](t, rec)
	assert.Equal(t, 1, export.Count)
	assert.Contains(t, store.objects, export.Key)
	assert.Equal(t, "https://storage.test/"+export.Key, export.URL)
}
