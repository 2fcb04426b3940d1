package api

import (
	"context"
	"net/http"
	"time"

	"oftalmonet/valeda-app/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// HealthHandler reports liveness of the store and the build version.
type HealthHandler struct {
	pinger  repository.Pinger
	version string
}

func NewHealthHandler(pinger repository.Pinger, version string) *HealthHandler {
	return &HealthHandler{pinger: pinger, version: version}
}

// Health pings the store and answers 503 when it cannot be reached.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		loggerFromContext(c, nil).Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unavailable",
			"database": "disconnected",
			"code":     ErrorCodeStoreUnavailable,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"database":  "connected",
		"timestamp": time.Now().UTC(),
	})
}

func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": h.version})
}
