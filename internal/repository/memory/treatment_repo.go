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

// TreatmentRepository is an in-memory repository.TreatmentRepository. It
// follows the same filter, sort and paging rules as the MongoDB store.
type TreatmentRepository struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]domain.Treatment
	now   func() time.Time
}

// NewTreatmentRepository returns an empty repository.
func NewTreatmentRepository() *TreatmentRepository {
	return &TreatmentRepository{
		items: make(map[primitive.ObjectID]domain.Treatment),
		now:   now,
	}
}

var _ repository.TreatmentRepository = (*TreatmentRepository)(nil)

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (r *TreatmentRepository) Create(ctx context.Context, t *domain.Treatment) (primitive.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return primitive.NilObjectID, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t.ID = primitive.NewObjectID()
	ts := r.now()
	t.CreationDate = ts
	t.LastModified = ts
	r.items[t.ID] = cloneTreatment(*t)
	return t.ID, nil
}

func (r *TreatmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Treatment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneTreatment(t)
	return &out, nil
}

func (r *TreatmentRepository) Search(ctx context.Context, filters domain.SearchFilters, opts domain.PaginationOptions) ([]domain.Treatment, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	opts = opts.Normalize()

	r.mu.RLock()
	matched := make([]domain.Treatment, 0, len(r.items))
	for _, t := range r.items {
		if filters.Matches(&t) {
			matched = append(matched, cloneTreatment(t))
		}
	}
	r.mu.RUnlock()

	SortTreatments(matched, opts.SortBy, opts.SortOrder)

	total := int64(len(matched))
	start := opts.Skip()
	if start < 0 || start >= total {
		return []domain.Treatment{}, total, nil
	}
	end := start + int64(opts.Limit)
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *TreatmentRepository) Update(ctx context.Context, t *domain.Treatment) (*domain.Treatment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[t.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	updated := cloneTreatment(*t)
	updated.CreationDate = stored.CreationDate
	updated.LastModified = r.now()
	r.items[t.ID] = updated

	out := cloneTreatment(updated)
	return &out, nil
}

func (r *TreatmentRepository) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

func (r *TreatmentRepository) TallyByType(ctx context.Context) ([]domain.TypeTally, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	byType := map[domain.TreatmentType]*domain.TypeTally{}
	for _, t := range r.items {
		tally, ok := byType[t.TreatmentType]
		if !ok {
			tally = &domain.TypeTally{Type: t.TreatmentType}
			byType[t.TreatmentType] = tally
		}
		tally.Count++
		tally.CompletedSessions += domain.CountCompletedSessions(t.Sessions)
	}
	r.mu.RUnlock()

	tallies := make([]domain.TypeTally, 0, len(byType))
	for _, tally := range byType {
		tallies = append(tallies, *tally)
	}
	sort.Slice(tallies, func(i, j int) bool { return tallies[i].Type < tallies[j].Type })
	return tallies, nil
}

// SortTreatments orders treatments by one sortable key, breaking ties by id
// in the same direction.
func SortTreatments(ts []domain.Treatment, sortBy string, order domain.SortOrder) {
	sort.SliceStable(ts, func(i, j int) bool {
		c := compareField(&ts[i], &ts[j], sortBy)
		if c == 0 {
			c = strings.Compare(ts[i].ID.Hex(), ts[j].ID.Hex())
		}
		if order == domain.SortAsc {
			return c < 0
		}
		return c > 0
	})
}

func compareField(a, b *domain.Treatment, field string) int {
	switch field {
	case "creationDate":
		return a.CreationDate.Compare(b.CreationDate)
	case "patient.name":
		return strings.Compare(a.Patient.Name, b.Patient.Name)
	case "doctor.name":
		return strings.Compare(a.Doctor.Name, b.Doctor.Name)
	case "treatmentType":
		return strings.Compare(string(a.TreatmentType), string(b.TreatmentType))
	default:
		return a.LastModified.Compare(b.LastModified)
	}
}

func cloneTreatment(t domain.Treatment) domain.Treatment {
	out := t
	out.Sessions = make([]domain.Session, len(t.Sessions))
	for i, s := range t.Sessions {
		if s.Date != nil {
			d := *s.Date
			s.Date = &d
		}
		out.Sessions[i] = s
	}
	return out
}
