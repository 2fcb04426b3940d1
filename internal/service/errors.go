package service

import (
	"context"
	"errors"
	"fmt"

	"oftalmonet/valeda-app/internal/domain"
	"oftalmonet/valeda-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrNotFound          = errors.New("not found")
	ErrTreatmentNotFound = fmt.Errorf("treatment %w", ErrNotFound)
	ErrDoctorNotFound    = fmt.Errorf("doctor %w", ErrNotFound)
	ErrInvalidID         = errors.New("invalid identifier")
	ErrConflict          = errors.New("conflict")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// ValidationError lists every violated rule. Use errors.As to inspect it.
type ValidationError = domain.ValidationError

// parseID converts a hex identifier, rejecting anything that is not a
// 24-character ObjectID.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

// translate maps repository errors onto the service taxonomy. notFound is
// the entity-specific error to use for repository.ErrNotFound.
func translate(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, repository.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

// EventRecorder receives business events for metrics.
type EventRecorder interface {
	TreatmentCreated()
	TreatmentDeleted()
	ArchiveExported(count int, err error)
}

type noopRecorder struct{}

func (noopRecorder) TreatmentCreated() {}
func (noopRecorder) TreatmentDeleted() {}
func (noopRecorder) ArchiveExported(int, error) {}
