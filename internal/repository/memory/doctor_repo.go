package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"oftalmonet/valeda-app/internal/domain"
	"oftalmonet/valeda-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DoctorRepository is an in-memory repository.DoctorRepository. Names are
// unique, as with the MongoDB unique index.
type DoctorRepository struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]domain.Doctor
	now   func() time.Time
}

// NewDoctorRepository returns an empty repository.
func NewDoctorRepository() *DoctorRepository {
	return &DoctorRepository{
		items: make(map[primitive.ObjectID]domain.Doctor),
		now:   now,
	}
}

var _ repository.DoctorRepository = (*DoctorRepository)(nil)

func (r *DoctorRepository) Create(ctx context.Context, d *domain.Doctor) (primitive.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return primitive.NilObjectID, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(d.Name, primitive.NilObjectID) {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	d.ID = primitive.NewObjectID()
	d.CreationDate = r.now()
	r.items[d.ID] = *d
	return d.ID, nil
}

func (r *DoctorRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Doctor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *DoctorRepository) ListActive(ctx context.Context) ([]domain.Doctor, error) {
	return r.activeMatching(ctx, "", 0)
}

func (r *DoctorRepository) SearchActiveByName(ctx context.Context, query string, limit int64) ([]domain.Doctor, error) {
	return r.activeMatching(ctx, query, limit)
}

func (r *DoctorRepository) activeMatching(ctx context.Context, query string, limit int64) ([]domain.Doctor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	doctors := []domain.Doctor{}
	q := strings.ToLower(query)
	for _, d := range r.items {
		if d.IsActive && strings.Contains(strings.ToLower(d.Name), q) {
			doctors = append(doctors, d)
		}
	}
	r.mu.RUnlock()

	sort.Slice(doctors, func(i, j int) bool { return doctors[i].Name < doctors[j].Name })
	if limit > 0 && int64(len(doctors)) > limit {
		doctors = doctors[:limit]
	}
	return doctors, nil
}

func (r *DoctorRepository) Update(ctx context.Context, id primitive.ObjectID, patch domain.DoctorPatch) (*domain.Doctor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Name != nil {
		if r.nameTaken(*patch.Name, id) {
			return nil, repository.ErrDuplicate
		}
		d.Name = *patch.Name
	}
	if patch.Specialization != nil {
		d.Specialization = *patch.Specialization
	}
	if patch.IsActive != nil {
		d.IsActive = *patch.IsActive
	}
	r.items[id] = d
	return &d, nil
}

func (r *DoctorRepository) InsertIfMissing(ctx context.Context, d domain.Doctor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(d.Name, primitive.NilObjectID) {
		return nil
	}
	d.ID = primitive.NewObjectID()
	d.CreationDate = r.now()
	r.items[d.ID] = d
	return nil
}

// nameTaken must be called with mu held.
func (r *DoctorRepository) nameTaken(name string, self primitive.ObjectID) bool {
	for id, d := range r.items {
		if id != self && d.Name == name {
			return true
		}
	}
	return false
}
