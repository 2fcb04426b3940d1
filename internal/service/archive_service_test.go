package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"oftalmonet/valeda-app/internal/domain"
	"oftalmonet/valeda-app/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTreatments(t *testing.T, repo *memory.TreatmentRepository, n int, tt domain.TreatmentType) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := repo.Create(context.Background(), &domain.Treatment{
			Patient:       domain.Patient{Name: "Paciente", Age: 70, BirthDate: time.Date(1954, 1, 1, 0, 0, 0, 0, time.UTC)},
			Doctor:        domain.DoctorRef{Name: "Dr. X"},
			TreatmentType: tt,
			Sessions:      domain.DefaultSessions(),
		})
		require.NoError(t, err)
	}
}

func TestArchiveService_ExportPagesThroughEverything(t *testing.T) {
	repo := memory.NewTreatmentRepository()
	seedTreatments(t, repo, domain.MaxLimit+5, domain.TreatmentRightEye)
	seedTreatments(t, repo, 3, domain.TreatmentLeftEye)

	store := &MockFileStorage{}
	events := &MockEventRecorder{}
	svc := NewArchiveService(repo, store, nil, events)

	export, err := svc.Export(context.Background(), domain.SearchFilters{TreatmentType: domain.TreatmentRightEye})
	require.NoError(t, err)

	assert.Equal(t, domain.MaxLimit+5, export.Count)
	assert.True(t, strings.HasPrefix(export.Key, "archives/treatments-"))
	assert.True(t, strings.HasSuffix(export.Key, ".json"))
	assert.Equal(t, "https://storage.test/"+export.Key, export.URL)

	var archived []domain.Treatment
	require.NoError(t, json.Unmarshal(store.Objects[export.Key], &archived))
	assert.Len(t, archived, domain.MaxLimit+5)
	assert.Equal(t, []int{domain.MaxLimit + 5}, events.Exports)
}

func TestArchiveService_PresignFailureRemovesObject(t *testing.T) {
	repo := memory.NewTreatmentRepository()
	seedTreatments(t, repo, 2, domain.TreatmentBothEyes)

	store := &MockFileStorage{
		PresignFunc: func(ctx context.Context, key string, expires time.Duration) (string, error) {
			return "", errors.New("signing failed")
		},
	}
	events := &MockEventRecorder{}
	svc := NewArchiveService(repo, store, nil, events)

	_, err := svc.Export(context.Background(), domain.SearchFilters{})
	require.Error(t, err)
	require.Len(t, store.Deleted, 1)
	require.Len(t, events.ExportErrors, 1)
	assert.Error(t, events.ExportErrors[0])
}

func TestArchiveService_EmptyExport(t *testing.T) {
	store := &MockFileStorage{}
	svc := NewArchiveService(memory.NewTreatmentRepository(), store, nil, nil)

	export, err := svc.Export(context.Background(), domain.SearchFilters{})
	require.NoError(t, err)
	assert.Equal(t, 0, export.Count)
	assert.Equal(t, "[]", string(store.Objects[export.Key]))
}
