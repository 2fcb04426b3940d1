package api

import (
	"net/http"
	"strings"
	"time"

	"oftalmonet/valeda-app/internal/domain"
	"oftalmonet/valeda-app/internal/service"

	"github.com/gin-gonic/gin"
)

// TreatmentHandler holds the treatment service dependency.
type TreatmentHandler struct {
	treatmentService service.TreatmentService
}

// NewTreatmentHandler creates a new TreatmentHandler.
func NewTreatmentHandler(treatmentService service.TreatmentService) *TreatmentHandler {
	return &TreatmentHandler{treatmentService: treatmentService}
}

// --- DTOs for API (Data Transfer Objects) ---

type PatientRequest struct {
	Name      string `json:"name" binding:"required,max=200"`
	Age       *int   `json:"age" binding:"omitempty,min=0,max=150"`
	BirthDate Date   `json:"birthDate"`
}

type DoctorRefRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

type SessionRequest struct {
	SessionNumber int    `json:"sessionNumber" binding:"min=1,max=20"`
	Date          *Date  `json:"date"`
	Technician    string `json:"technician" binding:"max=100"`
	Time          string `json:"time" binding:"omitempty,hhmm"`
}

// CreateTreatmentRequest defines the expected JSON for creating a treatment.
// Omitted sessions become the default nine-session calendar.
type CreateTreatmentRequest struct {
	Patient               *PatientRequest   `json:"patient" binding:"required"`
	Doctor                *DoctorRefRequest `json:"doctor" binding:"required"`
	TreatmentType         string            `json:"treatmentType" binding:"required,treatmenttype"`
	Sessions              []SessionRequest  `json:"sessions" binding:"omitempty,max=20,dive"`
	AdditionalIndications string            `json:"additionalIndications" binding:"max=1000"`
}

type PatientPatchRequest struct {
	Name      *string `json:"name" binding:"omitempty,max=200"`
	Age       *int    `json:"age" binding:"omitempty,min=0,max=150"`
	BirthDate *Date   `json:"birthDate"`
}

// UpdateTreatmentRequest carries the fields to change. Absent fields keep
// their stored value; creationDate is not accepted.
type UpdateTreatmentRequest struct {
	Patient               *PatientPatchRequest `json:"patient"`
	Doctor                *DoctorRefRequest    `json:"doctor"`
	TreatmentType         *string              `json:"treatmentType" binding:"omitempty,treatmenttype"`
	Sessions              *[]SessionRequest    `json:"sessions" binding:"omitempty,max=20,dive"`
	AdditionalIndications *string              `json:"additionalIndications" binding:"omitempty,max=1000"`
}

func mapSessions(reqs []SessionRequest) []domain.Session {
	sessions := make([]domain.Session, len(reqs))
	for i, r := range reqs {
		sessions[i] = domain.Session{
			SessionNumber: r.SessionNumber,
			Technician:    r.Technician,
			Time:          r.Time,
		}
		if r.Date != nil && !r.Date.IsZero() {
			d := r.Date.Time
			sessions[i].Date = &d
		}
	}
	return sessions
}

func (r CreateTreatmentRequest) toInput() service.CreateTreatmentInput {
	in := service.CreateTreatmentInput{
		PatientName:           r.Patient.Name,
		PatientAge:            r.Patient.Age,
		PatientBirthDate:      r.Patient.BirthDate.Time,
		DoctorName:            r.Doctor.Name,
		TreatmentType:         domain.TreatmentType(r.TreatmentType),
		AdditionalIndications: r.AdditionalIndications,
	}
	if len(r.Sessions) > 0 {
		in.Sessions = mapSessions(r.Sessions)
	}
	return in
}

func (r UpdateTreatmentRequest) toPatch() domain.TreatmentPatch {
	var patch domain.TreatmentPatch
	if r.Patient != nil {
		patch.Patient = &domain.PatientPatch{Name: r.Patient.Name, Age: r.Patient.Age}
		if r.Patient.BirthDate != nil {
			bd := r.Patient.BirthDate.Time
			patch.Patient.BirthDate = &bd
		}
	}
	if r.Doctor != nil {
		patch.Doctor = &domain.DoctorRef{Name: r.Doctor.Name}
	}
	if r.TreatmentType != nil {
		tt := domain.TreatmentType(*r.TreatmentType)
		patch.TreatmentType = &tt
	}
	if r.Sessions != nil {
		patch.Sessions = mapSessions(*r.Sessions)
		patch.SessionsSet = true
	}
	patch.AdditionalIndications = r.AdditionalIndications
	return patch
}

type PatientResponse struct {
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	BirthDate time.Time `json:"birthDate"`
}

type SessionResponse struct {
	SessionNumber int        `json:"sessionNumber"`
	Date          *time.Time `json:"date"`
	Technician    string     `json:"technician"`
	Time          string     `json:"time"`
}

// TreatmentResponse is the DTO for returning treatment details.
type TreatmentResponse struct {
	ID                    string            `json:"id"`
	Patient               PatientResponse   `json:"patient"`
	Doctor                DoctorRefResponse `json:"doctor"`
	TreatmentType         string            `json:"treatmentType"`
	Sessions              []SessionResponse `json:"sessions"`
	AdditionalIndications string            `json:"additionalIndications"`
	CreationDate          time.Time         `json:"creationDate"`
	LastModified          time.Time         `json:"lastModified"`
}

type DoctorRefResponse struct {
	Name string `json:"name"`
}

// TreatmentListResponse is one page of treatments.
type TreatmentListResponse struct {
	Data       []TreatmentResponse `json:"data"`
	Pagination domain.Pagination   `json:"pagination"`
}

// MapTreatmentToResponse converts a domain.Treatment to TreatmentResponse DTO.
func MapTreatmentToResponse(t *domain.Treatment) TreatmentResponse {
	if t == nil {
		return TreatmentResponse{}
	}
	sessions := make([]SessionResponse, len(t.Sessions))
	for i, s := range t.Sessions {
		sessions[i] = SessionResponse{
			SessionNumber: s.SessionNumber,
			Date:          s.Date,
			Technician:    s.Technician,
			Time:          s.Time,
		}
	}
	return TreatmentResponse{
		ID: t.ID.Hex(),
		Patient: PatientResponse{
			Name:      t.Patient.Name,
			Age:       t.Patient.Age,
			BirthDate: t.Patient.BirthDate,
		},
		Doctor:                DoctorRefResponse{Name: t.Doctor.Name},
		TreatmentType:         string(t.TreatmentType),
		Sessions:              sessions,
		AdditionalIndications: t.AdditionalIndications,
		CreationDate:          t.CreationDate,
		LastModified:          t.LastModified,
	}
}

// MapSearchResultToResponse converts a page of treatments to its DTO.
func MapSearchResultToResponse(res *domain.SearchResult[domain.Treatment]) TreatmentListResponse {
	data := make([]TreatmentResponse, len(res.Data))
	for i := range res.Data {
		data[i] = MapTreatmentToResponse(&res.Data[i])
	}
	return TreatmentListResponse{Data: data, Pagination: res.Pagination}
}

// --- Query parsing ---

func parsePagination(c *gin.Context) domain.PaginationOptions {
	return domain.PaginationOptions{
		Page:      parseQueryInt(c, "page"),
		Limit:     parseQueryInt(c, "limit"),
		SortBy:    c.Query("sortBy"),
		SortOrder: domain.SortOrder(strings.ToLower(c.Query("sortOrder"))),
	}
}

func parseFilters(c *gin.Context) (domain.SearchFilters, error) {
	filters := domain.SearchFilters{
		Name:          strings.TrimSpace(c.Query("name")),
		Doctor:        strings.TrimSpace(c.Query("doctor")),
		TreatmentType: domain.TreatmentType(strings.TrimSpace(c.Query("treatmentType"))),
	}
	var err error
	if filters.DateFrom, err = parseDateQuery(c, "dateFrom", false); err != nil {
		return filters, err
	}
	if filters.DateTo, err = parseDateQuery(c, "dateTo", true); err != nil {
		return filters, err
	}
	return filters, nil
}

// --- Handler Methods ---

// ListTreatments godoc
// @Summary List treatments
// @Description Pages through all treatments, or searches when any filter is given.
// @Tags Treatments
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 50, max 1000)"
// @Param sortBy query string false "lastModified, creationDate, patient.name, doctor.name or treatmentType"
// @Param sortOrder query string false "asc or desc"
// @Success 200 {object} TreatmentListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /treatments [get]
func (h *TreatmentHandler) ListTreatments(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		abortWithValidation(c, []string{err.Error()})
		return
	}

	var res *domain.SearchResult[domain.Treatment]
	if filters.IsEmpty() {
		res, err = h.treatmentService.ListAll(c.Request.Context(), parsePagination(c))
	} else {
		res, err = h.treatmentService.Search(c.Request.Context(), filters, parsePagination(c))
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSearchResultToResponse(res))
}

// SearchTreatments godoc
// @Summary Search treatments
// @Description Filters by patient name, doctor name, treatment type and creation date range.
// @Tags Treatments
// @Produce json
// @Param name query string false "Patient name substring"
// @Param doctor query string false "Doctor name substring"
// @Param treatmentType query string false "Exact treatment type"
// @Param dateFrom query string false "Creation date lower bound"
// @Param dateTo query string false "Creation date upper bound, inclusive"
// @Success 200 {object} TreatmentListResponse
// @Router /treatments/search [get]
func (h *TreatmentHandler) SearchTreatments(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		abortWithValidation(c, []string{err.Error()})
		return
	}

	res, err := h.treatmentService.Search(c.Request.Context(), filters, parsePagination(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSearchResultToResponse(res))
}

// GetStatistics godoc
// @Summary Treatment statistics
// @Tags Treatments
// @Produce json
// @Success 200 {object} domain.TreatmentStatistics
// @Router /treatments/statistics [get]
func (h *TreatmentHandler) GetStatistics(c *gin.Context) {
	stats, err := h.treatmentService.Statistics(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetTreatment godoc
// @Summary Get a treatment
// @Tags Treatments
// @Produce json
// @Param id path string true "Treatment ID"
// @Success 200 {object} TreatmentResponse
// @Failure 400 {object} ErrorResponse "Invalid ID format"
// @Failure 404 {object} ErrorResponse
// @Router /treatments/{id} [get]
func (h *TreatmentHandler) GetTreatment(c *gin.Context) {
	t, err := h.treatmentService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapTreatmentToResponse(t))
}

// CreateTreatment godoc
// @Summary Create a treatment
// @Tags Treatments
// @Accept json
// @Produce json
// @Param treatment body CreateTreatmentRequest true "Treatment"
// @Success 201 {object} TreatmentResponse
// @Failure 400 {object} ErrorResponse
// @Router /treatments [post]
func (h *TreatmentHandler) CreateTreatment(c *gin.Context) {
	var req CreateTreatmentRequest
	if !bindJSON(c, &req) {
		return
	}

	t, err := h.treatmentService.Create(c.Request.Context(), req.toInput())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapTreatmentToResponse(t))
}

// UpdateTreatment godoc
// @Summary Update a treatment
// @Description Merges the supplied top-level fields into the stored treatment.
// @Tags Treatments
// @Accept json
// @Produce json
// @Param id path string true "Treatment ID"
// @Param treatment body UpdateTreatmentRequest true "Fields to change"
// @Success 200 {object} TreatmentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /treatments/{id} [put]
func (h *TreatmentHandler) UpdateTreatment(c *gin.Context) {
	var req UpdateTreatmentRequest
	if !bindJSON(c, &req) {
		return
	}

	t, err := h.treatmentService.Update(c.Request.Context(), c.Param("id"), req.toPatch())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapTreatmentToResponse(t))
}

// DeleteTreatment godoc
// @Summary Delete a treatment
// @Tags Treatments
// @Produce json
// @Param id path string true "Treatment ID"
// @Success 200 {object} gin.H "message"
// @Failure 404 {object} ErrorResponse
// @Router /treatments/{id} [delete]
func (h *TreatmentHandler) DeleteTreatment(c *gin.Context) {
	deleted, err := h.treatmentService.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !deleted {
		respondServiceError(c, service.ErrTreatmentNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Treatment deleted successfully"})
}
