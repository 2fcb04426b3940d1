package mongo

import (
	"errors"
	"math"
	"testing"
	"time"

	"oftalmonet/valeda-app/internal/domain"
	"oftalmonet/valeda-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestTreatmentFilter_Empty(t *testing.T) {
	assert.Empty(t, treatmentFilter(domain.SearchFilters{}))
}

func TestTreatmentFilter_OnePredicatePerField(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	filter := treatmentFilter(domain.SearchFilters{
		Name:          "gar",
		Doctor:        "Mendoza",
		TreatmentType: domain.TreatmentRightEye,
		DateFrom:      &from,
		DateTo:        &to,
	})

	require.Len(t, filter, 4)
	assert.Equal(t, primitive.Regex{Pattern: "gar", Options: "i"}, filter["patient.name"])
	assert.Equal(t, primitive.Regex{Pattern: "Mendoza", Options: "i"}, filter["doctor.name"])
	assert.Equal(t, "right-eye", filter["treatmentType"])
	assert.Equal(t, bson.M{"$gte": from, "$lte": to}, filter["creationDate"])
}

func TestTreatmentFilter_OpenEndedDateRange(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	filter := treatmentFilter(domain.SearchFilters{DateFrom: &from})
	assert.Equal(t, bson.M{"$gte": from}, filter["creationDate"])
}

func TestTreatmentFilter_EscapesMetacharacters(t *testing.T) {
	filter := treatmentFilter(domain.SearchFilters{Name: "a.b*(c)"})
	assert.Equal(t, primitive.Regex{Pattern: `a\.b\*\(c\)`, Options: "i"}, filter["patient.name"])
}

func TestTreatmentSort_TieBreaksOnID(t *testing.T) {
	desc := treatmentSort(domain.PaginationOptions{}.Normalize())
	assert.Equal(t, bson.D{{Key: "lastModified", Value: -1}, {Key: "_id", Value: -1}}, desc)

	asc := treatmentSort(domain.PaginationOptions{SortBy: "patient.name", SortOrder: domain.SortAsc}.Normalize())
	assert.Equal(t, bson.D{{Key: "patient.name", Value: 1}, {Key: "_id", Value: 1}}, asc)
}

func TestTreatmentFindOptions_SkipAndLimit(t *testing.T) {
	opts := treatmentFindOptions(domain.PaginationOptions{Page: 3, Limit: 20}.Normalize())
	require.NotNil(t, opts.Skip)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(40), *opts.Skip)
	assert.Equal(t, int64(20), *opts.Limit)

	far := treatmentFindOptions(domain.PaginationOptions{Page: math.MaxInt, Limit: 50}.Normalize())
	assert.Positive(t, *far.Skip)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(mongo.ErrNoDocuments), repository.ErrNotFound)
	assert.ErrorIs(t, mapError(mongo.ErrClientDisconnected), repository.ErrUnavailable)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, mapError(dup), repository.ErrDuplicate)

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}
