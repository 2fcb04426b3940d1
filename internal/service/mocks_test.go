package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"oftalmonet/valeda-app/internal/domain"
	"oftalmonet/valeda-app/internal/repository"
	"oftalmonet/valeda-app/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- MockTreatmentRepository ---
var _ repository.TreatmentRepository = (*MockTreatmentRepository)(nil)

// MockTreatmentRepository lets a test script individual store failures.
type MockTreatmentRepository struct {
	CreateFunc      func(ctx context.Context, t *domain.Treatment) (primitive.ObjectID, error)
	GetByIDFunc     func(ctx context.Context, id primitive.ObjectID) (*domain.Treatment, error)
	SearchFunc      func(ctx context.Context, filters domain.SearchFilters, opts domain.PaginationOptions) ([]domain.Treatment, int64, error)
	UpdateFunc      func(ctx context.Context, t *domain.Treatment) (*domain.Treatment, error)
	DeleteFunc      func(ctx context.Context, id primitive.ObjectID) (bool, error)
	TallyByTypeFunc func(ctx context.Context) ([]domain.TypeTally, error)

	SearchCallCount int32
}

func (m *MockTreatmentRepository) Create(ctx context.Context, t *domain.Treatment) (primitive.ObjectID, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	return primitive.NilObjectID, errors.New("CreateFunc not implemented in mock")
}

func (m *MockTreatmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Treatment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, errors.New("GetByIDFunc not implemented in mock")
}

func (m *MockTreatmentRepository) Search(ctx context.Context, filters domain.SearchFilters, opts domain.PaginationOptions) ([]domain.Treatment, int64, error) {
	atomic.AddInt32(&m.SearchCallCount, 1)
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, filters, opts)
	}
	return nil, 0, errors.New("SearchFunc not implemented in mock")
}

func (m *MockTreatmentRepository) Update(ctx context.Context, t *domain.Treatment) (*domain.Treatment, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, t)
	}
	return nil, errors.New("UpdateFunc not implemented in mock")
}

func (m *MockTreatmentRepository) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return false, errors.New("DeleteFunc not implemented in mock")
}

func (m *MockTreatmentRepository) TallyByType(ctx context.Context) ([]domain.TypeTally, error) {
	if m.TallyByTypeFunc != nil {
		return m.TallyByTypeFunc(ctx)
	}
	return nil, errors.New("TallyByTypeFunc not implemented in mock")
}

// --- MockFileStorage ---
var _ storage.FileStorage = (*MockFileStorage)(nil)

type MockFileStorage struct {
	PutObjectFunc    func(ctx context.Context, key, contentType string, body []byte) error
	PresignFunc      func(ctx context.Context, key string, expires time.Duration) (string, error)
	DeleteObjectFunc func(ctx context.Context, key string) error

	mu      sync.Mutex
	Objects map[string][]byte
	Deleted []string
}

func (m *MockFileStorage) PutObject(ctx context.Context, key, contentType string, body []byte) error {
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, key, contentType, body)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Objects == nil {
		m.Objects = map[string][]byte{}
	}
	m.Objects[key] = body
	return nil
}

func (m *MockFileStorage) GeneratePresignedDownloadURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if m.PresignFunc != nil {
		return m.PresignFunc(ctx, key, expires)
	}
	return "https://storage.test/" + key, nil
}

func (m *MockFileStorage) DeleteObject(ctx context.Context, key string) error {
	m.mu.Lock()
	m.Deleted = append(m.Deleted, key)
	m.mu.Unlock()
	if m.DeleteObjectFunc != nil {
		return m.DeleteObjectFunc(ctx, key)
	}
	return nil
}

// --- MockEventRecorder ---
type MockEventRecorder struct {
	Created, Deleted int32
	Exports          []int
	ExportErrors     []error
}

func (m *MockEventRecorder) TreatmentCreated() { atomic.AddInt32(&m.Created, 1) }
func (m *MockEventRecorder) TreatmentDeleted() { atomic.AddInt32(&m.Deleted, 1) }
func (m *MockEventRecorder) ArchiveExported(count int, err error) {
	m.Exports = append(m.Exports, count)
	m.ExportErrors = append(m.ExportErrors, err)
}
