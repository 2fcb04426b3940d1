package api

import (
	"errors"
	"net/http"

	"oftalmonet/valeda-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorCodeStoreUnavailable marks a 503 caused by the database.
const ErrorCodeStoreUnavailable = "STORE_UNAVAILABLE"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{Error: message})
}

func abortWithValidation(c *gin.Context, violations []string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   "Validation error",
		Details: violations,
	})
}

// respondServiceError maps the service error taxonomy to a status code and
// envelope. Unexpected errors are logged and hidden from the client.
func respondServiceError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		abortWithValidation(c, vErr.Violations)
	case errors.Is(err, service.ErrInvalidID):
		abortWithError(c, http.StatusBadRequest, "Invalid ID format")
	case errors.Is(err, service.ErrTreatmentNotFound):
		abortWithError(c, http.StatusNotFound, "Treatment not found")
	case errors.Is(err, service.ErrDoctorNotFound):
		abortWithError(c, http.StatusNotFound, "Doctor not found")
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrConflict):
		abortWithError(c, http.StatusConflict, "A record with the same name already exists")
	case errors.Is(err, service.ErrStoreUnavailable):
		loggerFromContext(c, nil).Warn("store unavailable", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "Database temporarily unavailable",
			Code:  ErrorCodeStoreUnavailable,
		})
	default:
		loggerFromContext(c, nil).Error("unhandled service error", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}
