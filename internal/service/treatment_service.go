package service

import (
	"context"
	"fmt"
	"time"

	"oftalmonet/valeda-app/internal/domain"
	"oftalmonet/valeda-app/internal/repository"

	"go.uber.org/zap"
)

// TreatmentService covers the treatment operations exposed over HTTP.
type TreatmentService interface {
	ListAll(ctx context.Context, opts domain.PaginationOptions) (*domain.SearchResult[domain.Treatment], error)
	Search(ctx context.Context, filters domain.SearchFilters, opts domain.PaginationOptions) (*domain.SearchResult[domain.Treatment], error)
	GetByID(ctx context.Context, id string) (*domain.Treatment, error)
	Create(ctx context.Context, in CreateTreatmentInput) (*domain.Treatment, error)
	Update(ctx context.Context, id string, patch domain.TreatmentPatch) (*domain.Treatment, error)
	Delete(ctx context.Context, id string) (bool, error)
	Statistics(ctx context.Context) (*domain.TreatmentStatistics, error)
}

// CreateTreatmentInput is a new treatment as submitted. A nil PatientAge is
// derived from PatientBirthDate.
type CreateTreatmentInput struct {
	PatientName           string
	PatientAge            *int
	PatientBirthDate      time.Time
	DoctorName            string
	TreatmentType         domain.TreatmentType
	Sessions              []domain.Session
	AdditionalIndications string
}

func (in CreateTreatmentInput) treatment(now time.Time) *domain.Treatment {
	age := domain.AgeAt(in.PatientBirthDate, now)
	if in.PatientAge != nil {
		age = *in.PatientAge
	}
	return &domain.Treatment{
		Patient: domain.Patient{
			Name:      in.PatientName,
			Age:       age,
			BirthDate: in.PatientBirthDate,
		},
		Doctor:                domain.DoctorRef{Name: in.DoctorName},
		TreatmentType:         in.TreatmentType,
		Sessions:              in.Sessions,
		AdditionalIndications: in.AdditionalIndications,
	}
}

// treatmentService implements the TreatmentService interface.
type treatmentService struct {
	repo   repository.TreatmentRepository
	logger *zap.Logger
	events EventRecorder
	now    func() time.Time
}

// NewTreatmentService creates a new instance of treatmentService. A nil
// logger or recorder disables that output.
func NewTreatmentService(repo repository.TreatmentRepository, logger *zap.Logger, events EventRecorder) TreatmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if events == nil {
		events = noopRecorder{}
	}
	return &treatmentService{
		repo:   repo,
		logger: logger.Named("treatments"),
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ListAll pages through the whole collection.
func (s *treatmentService) ListAll(ctx context.Context, opts domain.PaginationOptions) (*domain.SearchResult[domain.Treatment], error) {
	return s.Search(ctx, domain.SearchFilters{}, opts)
}

// Search pages through the treatments matching filters.
func (s *treatmentService) Search(ctx context.Context, filters domain.SearchFilters, opts domain.PaginationOptions) (*domain.SearchResult[domain.Treatment], error) {
	opts = opts.Normalize()
	treatments, total, err := s.repo.Search(ctx, filters, opts)
	if err != nil {
		return nil, fmt.Errorf("search treatments: %w", translate(err, ErrTreatmentNotFound))
	}
	return domain.NewSearchResult(treatments, total, opts), nil
}

// GetByID retrieves a single treatment.
func (s *treatmentService) GetByID(ctx context.Context, id string) (*domain.Treatment, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	t, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		return nil, translate(err, ErrTreatmentNotFound)
	}
	return t, nil
}

// Create validates and stores a new treatment. Missing sessions become the
// default nine-session calendar.
func (s *treatmentService) Create(ctx context.Context, in CreateTreatmentInput) (*domain.Treatment, error) {
	now := s.now()
	t := in.treatment(now)
	t.Normalize()
	if err := t.Validate(now); err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create treatment: %w", translate(err, ErrTreatmentNotFound))
	}
	t.ID = id

	s.events.TreatmentCreated()
	s.logger.Info("treatment created",
		zap.String("id", id.Hex()),
		zap.String("treatmentType", string(t.TreatmentType)),
		zap.Int("sessions", len(t.Sessions)))
	return t, nil
}

// Update merges patch over the stored record, validates the result and
// writes it. lastModified is always refreshed, even for an empty patch.
func (s *treatmentService) Update(ctx context.Context, id string, patch domain.TreatmentPatch) (*domain.Treatment, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		return nil, translate(err, ErrTreatmentNotFound)
	}

	patch.Apply(existing)
	existing.Normalize()
	if err := existing.Validate(s.now()); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		return nil, translate(err, ErrTreatmentNotFound)
	}

	s.logger.Info("treatment updated",
		zap.String("id", id),
		zap.Int("completedSessions", int(domain.CountCompletedSessions(updated.Sessions))))
	return updated, nil
}

// Delete removes a treatment and reports whether it existed.
func (s *treatmentService) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, err
	}

	deleted, err := s.repo.Delete(ctx, oid)
	if err != nil {
		return false, fmt.Errorf("delete treatment: %w", translate(err, ErrTreatmentNotFound))
	}
	if deleted {
		s.events.TreatmentDeleted()
		s.logger.Info("treatment deleted", zap.String("id", id))
	}
	return deleted, nil
}

// Statistics summarises the collection.
func (s *treatmentService) Statistics(ctx context.Context) (*domain.TreatmentStatistics, error) {
	tallies, err := s.repo.TallyByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("treatment statistics: %w", translate(err, ErrTreatmentNotFound))
	}
	return domain.NewTreatmentStatistics(tallies), nil
}
