package repository

import (
	"context"

	"oftalmonet/valeda-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound    = RepositoryError("not found")
	ErrDuplicate   = RepositoryError("duplicate key")
	ErrUnavailable = RepositoryError("store unavailable")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// TreatmentRepository persists Treatment aggregates.
type TreatmentRepository interface {
	// Create stamps creationDate and lastModified and inserts t.
	Create(ctx context.Context, t *domain.Treatment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Treatment, error)
	// Search returns one sorted page of matches and the total match count.
	Search(ctx context.Context, filters domain.SearchFilters, opts domain.PaginationOptions) ([]domain.Treatment, int64, error)
	// Update overwrites the mutable fields of t and stamps lastModified.
	// creationDate is never written.
	Update(ctx context.Context, t *domain.Treatment) (*domain.Treatment, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	TallyByType(ctx context.Context) ([]domain.TypeTally, error)
}

// DoctorRepository persists the doctor reference list.
type DoctorRepository interface {
	Create(ctx context.Context, d *domain.Doctor) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Doctor, error)
	ListActive(ctx context.Context) ([]domain.Doctor, error)
	SearchActiveByName(ctx context.Context, query string, limit int64) ([]domain.Doctor, error)
	Update(ctx context.Context, id primitive.ObjectID, patch domain.DoctorPatch) (*domain.Doctor, error)
	// InsertIfMissing inserts d unless a doctor with the same name exists.
	// Existing records are left untouched.
	InsertIfMissing(ctx context.Context, d domain.Doctor) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
