package service

import (
	"context"
	"testing"

	"oftalmonet/valeda-app/internal/domain"
	"oftalmonet/valeda-app/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDoctorService_GetOrSeedSampleIsIdempotent(t *testing.T) {
	svc := NewDoctorService(memory.NewDoctorRepository(), nil)
	ctx := context.Background()

	first, err := svc.GetOrSeedSample(ctx)
	require.NoError(t, err)
	require.Len(t, first, 4)

	second, err := svc.GetOrSeedSample(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 4)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestDoctorService_CreateDefaultsAndConflicts(t *testing.T) {
	svc := NewDoctorService(memory.NewDoctorRepository(), nil)
	ctx := context.Background()

	d, err := svc.Create(ctx, "  Dr. Nuevo  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Nuevo", d.Name)
	assert.Equal(t, domain.DefaultSpecialization, d.Specialization)
	assert.True(t, d.IsActive)

	_, err = svc.SoftDelete(ctx, d.ID.Hex())
	require.NoError(t, err)

	// Inactive doctors still hold their name.
	_, err = svc.Create(ctx, "Dr. Nuevo", "Retina")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Create(ctx, "   ", "")
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestDoctorService_SoftDeleteHidesFromActive(t *testing.T) {
	svc := NewDoctorService(memory.NewDoctorRepository(), nil)
	ctx := context.Background()

	seeded, err := svc.GetOrSeedSample(ctx)
	require.NoError(t, err)

	gone, err := svc.SoftDelete(ctx, seeded[0].ID.Hex())
	require.NoError(t, err)
	assert.False(t, gone.IsActive)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3)

	// Reseeding does not reactivate the record.
	active, err = svc.GetOrSeedSample(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3)

	_, err = svc.SoftDelete(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestDoctorService_UpdateRenameConflict(t *testing.T) {
	svc := NewDoctorService(memory.NewDoctorRepository(), nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, "Dr. A", "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "Dr. B", "")
	require.NoError(t, err)

	name := "Dr. B"
	_, err = svc.Update(ctx, a.ID.Hex(), domain.DoctorPatch{Name: &name})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Update(ctx, "bad", domain.DoctorPatch{})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestDoctorService_SearchByName(t *testing.T) {
	svc := NewDoctorService(memory.NewDoctorRepository(), nil)
	ctx := context.Background()
	_, err := svc.GetOrSeedSample(ctx)
	require.NoError(t, err)

	found, err := svc.SearchByName(ctx, "MART")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Dra. Ana Martínez", found[0].Name)

	_, err = svc.SearchByName(ctx, "  ")
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}
