package service

import (
	"context"
	"fmt"
	"strings"

	"oftalmonet/valeda-app/internal/domain"
	"oftalmonet/valeda-app/internal/repository"

	"go.uber.org/zap"
)

// DoctorService manages the doctor reference list.
type DoctorService interface {
	ListActive(ctx context.Context) ([]domain.Doctor, error)
	GetOrSeedSample(ctx context.Context) ([]domain.Doctor, error)
	Create(ctx context.Context, name, specialization string) (*domain.Doctor, error)
	Update(ctx context.Context, id string, patch domain.DoctorPatch) (*domain.Doctor, error)
	SoftDelete(ctx context.Context, id string) (*domain.Doctor, error)
	SearchByName(ctx context.Context, query string) ([]domain.Doctor, error)
}

type doctorService struct {
	repo   repository.DoctorRepository
	logger *zap.Logger
}

// NewDoctorService creates a new instance of doctorService.
func NewDoctorService(repo repository.DoctorRepository, logger *zap.Logger) DoctorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &doctorService{repo: repo, logger: logger.Named("doctors")}
}

// ListActive returns active doctors sorted by name.
func (s *doctorService) ListActive(ctx context.Context) ([]domain.Doctor, error) {
	doctors, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", translate(err, ErrDoctorNotFound))
	}
	return doctors, nil
}

// GetOrSeedSample inserts any missing sample doctor, leaving existing
// records untouched, and returns the active list. Safe to repeat.
func (s *doctorService) GetOrSeedSample(ctx context.Context) ([]domain.Doctor, error) {
	for _, d := range domain.SampleDoctors {
		if err := s.repo.InsertIfMissing(ctx, d); err != nil {
			return nil, fmt.Errorf("seed doctor %q: %w", d.Name, translate(err, ErrDoctorNotFound))
		}
	}
	return s.ListActive(ctx)
}

// Create adds an active doctor. Names are unique across active and
// inactive doctors.
func (s *doctorService) Create(ctx context.Context, name, specialization string) (*domain.Doctor, error) {
	d := &domain.Doctor{Name: name, Specialization: specialization, IsActive: true}
	d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.Create(ctx, d); err != nil {
		return nil, translate(err, ErrDoctorNotFound)
	}
	s.logger.Info("doctor created", zap.String("id", d.ID.Hex()), zap.String("name", d.Name))
	return d, nil
}

// Update applies a partial change. Renaming onto an existing name is a conflict.
func (s *doctorService) Update(ctx context.Context, id string, patch domain.DoctorPatch) (*domain.Doctor, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	d, err := s.repo.Update(ctx, oid, patch)
	if err != nil {
		return nil, translate(err, ErrDoctorNotFound)
	}
	s.logger.Info("doctor updated", zap.String("id", id), zap.Bool("active", d.IsActive))
	return d, nil
}

// SoftDelete deactivates a doctor; the record is kept.
func (s *doctorService) SoftDelete(ctx context.Context, id string) (*domain.Doctor, error) {
	inactive := false
	return s.Update(ctx, id, domain.DoctorPatch{IsActive: &inactive})
}

// SearchByName matches active doctors by case-insensitive substring.
func (s *doctorService) SearchByName(ctx context.Context, query string) ([]domain.Doctor, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("search query is required")
	}

	doctors, err := s.repo.SearchActiveByName(ctx, query, domain.MaxDoctorSearchResults)
	if err != nil {
		return nil, fmt.Errorf("search doctors: %w", translate(err, ErrDoctorNotFound))
	}
	return doctors, nil
}
