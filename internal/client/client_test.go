package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"oftalmonet/valeda-app/internal/api"
	"oftalmonet/valeda-app/internal/domain"
	"oftalmonet/valeda-app/internal/repository/memory"
	"oftalmonet/valeda-app/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := api.NewRouter(api.Dependencies{
		Treatments: service.NewTreatmentService(memory.NewTreatmentRepository(), nil, nil),
		Doctors:    service.NewDoctorService(memory.NewDoctorRepository(), nil),
		Pinger:     memory.Pinger{},
		Version:    "test",
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func sampleTreatment(name string) domain.Treatment {
	return domain.Treatment{
		Patient:       domain.Patient{Name: name, BirthDate: time.Date(1948, 11, 2, 0, 0, 0, 0, time.UTC)},
		Doctor:        domain.DoctorRef{Name: "Dra. Ana Martínez"},
		TreatmentType: domain.TreatmentLeftEye,
	}
}

func TestClient_RoundTrip(t *testing.T) {
	srv := newAPIServer(t)
	c := New(srv.URL + "/api")
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	in := sampleTreatment("Lucía Fernández")
	created, err := c.CreateTreatment(ctx, &in)
	require.NoError(t, err)
	assert.False(t, created.ID.IsZero())
	assert.Len(t, created.Sessions, domain.DefaultSessionCount)
	assert.Greater(t, created.Patient.Age, 70)

	got, err := c.GetTreatment(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Lucía Fernández", got.Patient.Name)

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	sessions := got.Sessions
	sessions[0].Date = &day
	sessions[0].Time = "11:00"
	updated, err := c.UpdateTreatment(ctx, created.ID.Hex(), domain.TreatmentPatch{Sessions: sessions, SessionsSet: true})
	require.NoError(t, err)
	require.NotNil(t, updated.Sessions[0].Date)
	assert.True(t, day.Equal(*updated.Sessions[0].Date))

	res, err := c.SearchTreatments(ctx, domain.SearchFilters{Name: "lucía"}, domain.PaginationOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Pagination.TotalItems)

	stats, err := c.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.CompletedSessions)

	require.NoError(t, c.DeleteTreatment(ctx, created.ID.Hex()))
	err = c.DeleteTreatment(ctx, created.ID.Hex())
	assert.True(t, IsNotFound(err))
}

func TestClient_ValidationError(t *testing.T) {
	srv := newAPIServer(t)
	c := New(srv.URL + "/api")

	in := sampleTreatment("")
	_, err := c.CreateTreatment(context.Background(), &in)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.Details)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestClient_UnreachableServer(t *testing.T) {
	srv := newAPIServer(t)
	url := srv.URL
	srv.Close()

	_, err := New(url+"/api", WithTimeout(time.Second)).ListTreatments(context.Background(), domain.PaginationOptions{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_StoreUnavailableResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Database temporarily unavailable","code":"STORE_UNAVAILABLE"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetTreatment(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrUnavailable)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Database temporarily unavailable", apiErr.Message)
}

func TestPatchPayload_OnlyPresentFields(t *testing.T) {
	indications := "x"
	body := patchPayload(domain.TreatmentPatch{AdditionalIndications: &indications})
	assert.Equal(t, map[string]any{"additionalIndications": "x"}, body)

	body = patchPayload(domain.TreatmentPatch{SessionsSet: true})
	assert.Contains(t, body, "sessions")
}
