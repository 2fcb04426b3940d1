package api

import (
	"net/http"

	"oftalmonet/valeda-app/internal/service"

	"github.com/gin-gonic/gin"
)

// ArchiveHandler exposes treatment archive exports.
type ArchiveHandler struct {
	archiveService service.ArchiveService
}

func NewArchiveHandler(archiveService service.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{archiveService: archiveService}
}

// ExportTreatments godoc
// @Summary Export treatments to object storage
// @Description Accepts the same filters as the search route and returns a presigned download URL valid for 15 minutes.
// @Tags Treatments
// @Produce json
// @Success 201 {object} service.ArchiveExport
// @Failure 400 {object} ErrorResponse
// @Router /treatments/export [post]
func (h *ArchiveHandler) ExportTreatments(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		abortWithValidation(c, []string{err.Error()})
		return
	}

	export, err := h.archiveService.Export(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, export)
}
