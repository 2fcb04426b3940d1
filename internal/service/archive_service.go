package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"oftalmonet/valeda-app/internal/domain"
	"oftalmonet/valeda-app/internal/repository"
	"oftalmonet/valeda-app/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArchiveURLExpiry is how long an export download link stays valid.
const ArchiveURLExpiry = 15 * time.Minute

// ArchiveExport describes an uploaded treatment archive.
type ArchiveExport struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"createdAt"`
}

// ArchiveService writes snapshots of the treatments collection to object storage.
type ArchiveService interface {
	Export(ctx context.Context, filters domain.SearchFilters) (*ArchiveExport, error)
}

type archiveService struct {
	repo    repository.TreatmentRepository
	storage storage.FileStorage
	logger  *zap.Logger
	events  EventRecorder
	now     func() time.Time
}

// NewArchiveService creates a new instance of archiveService.
func NewArchiveService(repo repository.TreatmentRepository, store storage.FileStorage, logger *zap.Logger, events EventRecorder) ArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = noopRecorder{}
	}
	return &archiveService{
		repo:    repo,
		storage: store,
		logger:  logger.Named("archive"),
		events:  events,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Export serializes every treatment matching filters as a JSON array,
// uploads it and returns a presigned download link.
func (s *archiveService) Export(ctx context.Context, filters domain.SearchFilters) (export *ArchiveExport, err error) {
	count := 0
	defer func() { s.events.ArchiveExported(count, err) }()

	treatments, err := s.collect(ctx, filters)
	if err != nil {
		return nil, err
	}
	count = len(treatments)

	body, err := json.Marshal(treatments)
	if err != nil {
		return nil, fmt.Errorf("encode archive: %w", err)
	}

	createdAt := s.now()
	key := fmt.Sprintf("archives/treatments-%s-%s.json", createdAt.Format("20060102T150405Z"), uuid.NewString())

	if err = s.storage.PutObject(ctx, key, "application/json", body); err != nil {
		return nil, fmt.Errorf("upload archive: %w", err)
	}

	url, err := s.storage.GeneratePresignedDownloadURL(ctx, key, ArchiveURLExpiry)
	if err != nil {
		if delErr := s.storage.DeleteObject(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove unreachable archive", zap.String("key", key), zap.Error(delErr))
		}
		return nil, fmt.Errorf("presign archive: %w", err)
	}

	s.logger.Info("archive exported", zap.String("key", key), zap.Int("count", count))
	return &ArchiveExport{Key: key, URL: url, Count: count, CreatedAt: createdAt}, nil
}

// collect pages through the repository at the maximum page size, oldest first.
func (s *archiveService) collect(ctx context.Context, filters domain.SearchFilters) ([]domain.Treatment, error) {
	opts := domain.PaginationOptions{
		Page:      1,
		Limit:     domain.MaxLimit,
		SortBy:    "creationDate",
		SortOrder: domain.SortAsc,
	}

	all := []domain.Treatment{}
	for {
		page, total, err := s.repo.Search(ctx, filters, opts)
		if err != nil {
			return nil, fmt.Errorf("collect treatments: %w", translate(err, ErrTreatmentNotFound))
		}
		all = append(all, page...)
		if len(page) == 0 || int64(len(all)) >= total {
			return all, nil
		}
		opts.Page++
	}
}
