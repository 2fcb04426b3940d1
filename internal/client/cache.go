package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"oftalmonet/valeda-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TreatmentAPI is the part of Client the cache depends on.
type TreatmentAPI interface {
	ListTreatments(ctx context.Context, opts domain.PaginationOptions) (*domain.SearchResult[domain.Treatment], error)
	CreateTreatment(ctx context.Context, t *domain.Treatment) (*domain.Treatment, error)
	UpdateTreatment(ctx context.Context, id string, patch domain.TreatmentPatch) (*domain.Treatment, error)
	DeleteTreatment(ctx context.Context, id string) error
}

// ErrTreatmentNotCached is returned by offline writes to an unknown id.
var ErrTreatmentNotCached = errors.New("treatment not in local cache")

// TreatmentCache mirrors the whole treatment list in memory for instant
// search. Writes go to the API and are followed by a refetch. When the API
// is unreachable the cache serves the offline snapshot and applies writes
// to it locally.
type TreatmentCache struct {
	api    TreatmentAPI
	store  OfflineStore
	logger *zap.Logger
	now    func() time.Time

	mu         sync.RWMutex
	treatments []domain.Treatment
	offline    bool
	loadedAt   time.Time
}

func NewTreatmentCache(api TreatmentAPI, store OfflineStore, logger *zap.Logger) *TreatmentCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreatmentCache{
		api:    api,
		store:  store,
		logger: logger.Named("cache"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Refresh reloads every treatment from the API and saves a snapshot. If the
// API is unavailable it loads the snapshot instead and marks the cache
// offline.
func (c *TreatmentCache) Refresh(ctx context.Context) error {
	treatments, err := c.fetchAll(ctx)
	if err == nil {
		c.mu.Lock()
		c.treatments = treatments
		c.offline = false
		c.loadedAt = c.now()
		c.mu.Unlock()

		if saveErr := c.store.Save(treatments); saveErr != nil {
			c.logger.Warn("failed to save offline snapshot", zap.Error(saveErr))
		}
		return nil
	}
	if !errors.Is(err, ErrUnavailable) {
		return err
	}

	c.logger.Warn("api unavailable, using offline snapshot", zap.Error(err))
	snapshot, savedAt, loadErr := c.store.Load()
	if loadErr != nil {
		return fmt.Errorf("%w; offline snapshot: %v", err, loadErr)
	}

	c.mu.Lock()
	c.treatments = snapshot
	c.offline = true
	c.loadedAt = savedAt
	c.mu.Unlock()
	return nil
}

func (c *TreatmentCache) fetchAll(ctx context.Context) ([]domain.Treatment, error) {
	opts := domain.PaginationOptions{Page: 1, Limit: domain.MaxLimit, SortBy: "lastModified", SortOrder: domain.SortDesc}
	all := []domain.Treatment{}
	for {
		res, err := c.api.ListTreatments(ctx, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, res.Data...)
		if len(res.Data) == 0 || opts.Page >= res.Pagination.TotalPages {
			return all, nil
		}
		opts.Page++
	}
}

// Offline reports whether the cache is serving the local snapshot.
func (c *TreatmentCache) Offline() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offline
}

// LoadedAt is when the current contents were fetched from the API or, while
// offline, when the snapshot being served was saved.
func (c *TreatmentCache) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Search filters the cached list with the same predicate the server uses,
// most recently modified first.
func (c *TreatmentCache) Search(filters domain.SearchFilters) []domain.Treatment {
	c.mu.RLock()
	out := make([]domain.Treatment, 0, len(c.treatments))
	for i := range c.treatments {
		if filters.Matches(&c.treatments[i]) {
			out = append(out, c.treatments[i])
		}
	}
	c.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastModified.After(out[j].LastModified)
	})
	return out
}

// Get returns a cached treatment by id.
func (c *TreatmentCache) Get(id string) (*domain.Treatment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOf(id)
	if i < 0 {
		return nil, false
	}
	t := c.treatments[i]
	return &t, true
}

// Create submits t, or stores it locally while offline.
func (c *TreatmentCache) Create(ctx context.Context, t domain.Treatment) (*domain.Treatment, error) {
	if !c.Offline() {
		created, err := c.api.CreateTreatment(ctx, &t)
		if err == nil {
			c.refetch(ctx)
			return created, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		c.goOffline(err)
	}

	now := c.now()
	if t.Patient.Age == 0 {
		t.Patient.Age = domain.AgeAt(t.Patient.BirthDate, now)
	}
	t.Normalize()
	if err := t.Validate(now); err != nil {
		return nil, err
	}
	t.ID = primitive.NewObjectID()
	t.CreationDate = now
	t.LastModified = now

	c.mu.Lock()
	c.treatments = append(c.treatments, t)
	err := c.persistLocked()
	c.mu.Unlock()
	return &t, err
}

// Update applies patch through the API, or to the local copy while offline.
func (c *TreatmentCache) Update(ctx context.Context, id string, patch domain.TreatmentPatch) (*domain.Treatment, error) {
	if !c.Offline() {
		updated, err := c.api.UpdateTreatment(ctx, id, patch)
		if err == nil {
			c.refetch(ctx)
			return updated, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		c.goOffline(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return nil, ErrTreatmentNotCached
	}
	t := c.treatments[i]
	t.Sessions = append([]domain.Session(nil), t.Sessions...)
	patch.Apply(&t)
	t.Normalize()
	now := c.now()
	if err := t.Validate(now); err != nil {
		return nil, err
	}
	t.LastModified = now
	c.treatments[i] = t

	if err := c.persistLocked(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Delete removes a treatment through the API, or locally while offline.
func (c *TreatmentCache) Delete(ctx context.Context, id string) error {
	if !c.Offline() {
		err := c.api.DeleteTreatment(ctx, id)
		if err == nil {
			c.refetch(ctx)
			return nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return err
		}
		c.goOffline(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return ErrTreatmentNotCached
	}
	c.treatments = append(c.treatments[:i], c.treatments[i+1:]...)
	return c.persistLocked()
}

// refetch reloads the list after a successful write. A failure leaves the
// previous contents in place.
func (c *TreatmentCache) refetch(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("refetch after write failed", zap.Error(err))
	}
}

func (c *TreatmentCache) goOffline(cause error) {
	c.logger.Warn("api unavailable, switching to offline mode", zap.Error(cause))
	c.mu.Lock()
	c.offline = true
	c.mu.Unlock()
}

// indexOf must be called with mu held.
func (c *TreatmentCache) indexOf(id string) int {
	for i := range c.treatments {
		if c.treatments[i].ID.Hex() == id {
			return i
		}
	}
	return -1
}

// persistLocked must be called with mu held.
func (c *TreatmentCache) persistLocked() error {
	if err := c.store.Save(c.treatments); err != nil {
		return fmt.Errorf("save offline snapshot: %w", err)
	}
	return nil
}
