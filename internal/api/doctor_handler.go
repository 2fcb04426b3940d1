package api

import (
	"net/http"
	"time"

	"oftalmonet/valeda-app/internal/domain"
	"oftalmonet/valeda-app/internal/service"

	"github.com/gin-gonic/gin"
)

// DoctorHandler serves the doctor reference list.
type DoctorHandler struct {
	doctorService service.DoctorService
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(doctorService service.DoctorService) *DoctorHandler {
	return &DoctorHandler{doctorService: doctorService}
}

// --- DTOs ---

type CreateDoctorRequest struct {
	Name           string `json:"name" binding:"required,max=200"`
	Specialization string `json:"specialization" binding:"max=100"`
}

type UpdateDoctorRequest struct {
	Name           *string `json:"name" binding:"omitempty,max=200"`
	Specialization *string `json:"specialization" binding:"omitempty,max=100"`
	IsActive       *bool   `json:"isActive"`
}

type DoctorResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	IsActive       bool      `json:"isActive"`
	CreationDate   time.Time `json:"creationDate"`
}

// MapDoctorToResponse converts a domain.Doctor to DoctorResponse DTO.
func MapDoctorToResponse(d *domain.Doctor) DoctorResponse {
	if d == nil {
		return DoctorResponse{}
	}
	return DoctorResponse{
		ID:             d.ID.Hex(),
		Name:           d.Name,
		Specialization: d.Specialization,
		IsActive:       d.IsActive,
		CreationDate:   d.CreationDate,
	}
}

// MapDoctorsToResponse converts a slice of domain.Doctor to DTOs.
func MapDoctorsToResponse(doctors []domain.Doctor) []DoctorResponse {
	responses := make([]DoctorResponse, len(doctors))
	for i := range doctors {
		responses[i] = MapDoctorToResponse(&doctors[i])
	}
	return responses
}

// --- Handler Methods ---

// ListDoctors godoc
// @Summary List active doctors
// @Tags Doctors
// @Produce json
// @Success 200 {array} DoctorResponse
// @Router /doctors [get]
func (h *DoctorHandler) ListDoctors(c *gin.Context) {
	doctors, err := h.doctorService.ListActive(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapDoctorsToResponse(doctors))
}

// GetSampleDoctors godoc
// @Summary Seed sample doctors and list active doctors
// @Tags Doctors
// @Produce json
// @Success 200 {array} DoctorResponse
// @Router /doctors/sample [get]
func (h *DoctorHandler) GetSampleDoctors(c *gin.Context) {
	doctors, err := h.doctorService.GetOrSeedSample(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapDoctorsToResponse(doctors))
}

// SearchDoctors godoc
// @Summary Autocomplete active doctors by name
// @Tags Doctors
// @Produce json
// @Param q query string true "Name substring"
// @Success 200 {array} DoctorResponse
// @Failure 400 {object} ErrorResponse
// @Router /doctors/search [get]
func (h *DoctorHandler) SearchDoctors(c *gin.Context) {
	doctors, err := h.doctorService.SearchByName(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapDoctorsToResponse(doctors))
}

// CreateDoctor godoc
// @Summary Add a doctor
// @Tags Doctors
// @Accept json
// @Produce json
// @Param doctor body CreateDoctorRequest true "Doctor"
// @Success 201 {object} DoctorResponse
// @Failure 409 {object} ErrorResponse "Name already exists"
// @Router /doctors [post]
func (h *DoctorHandler) CreateDoctor(c *gin.Context) {
	var req CreateDoctorRequest
	if !bindJSON(c, &req) {
		return
	}

	d, err := h.doctorService.Create(c.Request.Context(), req.Name, req.Specialization)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapDoctorToResponse(d))
}

// UpdateDoctor godoc
// @Summary Update a doctor
// @Tags Doctors
// @Accept json
// @Produce json
// @Param id path string true "Doctor ID"
// @Param doctor body UpdateDoctorRequest true "Fields to change"
// @Success 200 {object} DoctorResponse
// @Router /doctors/{id} [put]
func (h *DoctorHandler) UpdateDoctor(c *gin.Context) {
	var req UpdateDoctorRequest
	if !bindJSON(c, &req) {
		return
	}

	d, err := h.doctorService.Update(c.Request.Context(), c.Param("id"), domain.DoctorPatch{
		Name:           req.Name,
		Specialization: req.Specialization,
		IsActive:       req.IsActive,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapDoctorToResponse(d))
}

// DeleteDoctor godoc
// @Summary Deactivate a doctor
// @Description The record is kept with isActive=false.
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} gin.H "message"
// @Router /doctors/{id} [delete]
func (h *DoctorHandler) DeleteDoctor(c *gin.Context) {
	if _, err := h.doctorService.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Doctor deactivated successfully"})
}
