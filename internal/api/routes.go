package api

import (
	"net/http"
	"time"

	"oftalmonet/valeda-app/internal/metrics"
	"oftalmonet/valeda-app/internal/repository"
	"oftalmonet/valeda-app/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the HTTP surface needs. A nil Archive
// leaves the export route unregistered and a nil Metrics disables /metrics.
type Dependencies struct {
	Treatments  service.TreatmentService
	Doctors     service.DoctorService
	Archive     service.ArchiveService
	Pinger      repository.Pinger
	Metrics     *metrics.Collector
	Logger      *zap.Logger
	CORSOrigins []string
	Version     string
}

// NewRouter builds a gin engine with the middleware chain and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	registerValidators()

	router := gin.New()
	router.Use(RecoveryMiddleware(deps.Logger))
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(deps.Logger))
	if deps.Metrics != nil {
		router.Use(MetricsMiddleware(deps.Metrics))
	}
	router.Use(corsMiddleware(deps.CORSOrigins))
	router.Use(SecurityHeadersMiddleware())

	SetupRoutes(router, deps)
	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	treatmentHandler := NewTreatmentHandler(deps.Treatments)
	doctorHandler := NewDoctorHandler(deps.Doctors)
	healthHandler := NewHealthHandler(deps.Pinger, deps.Version)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/health", healthHandler.Health)
		api.GET("/version", healthHandler.Version)

		// --- Treatment Routes ---
		treatments := api.Group("/treatments")
		{
			treatments.GET("", NoCacheMiddleware(), treatmentHandler.ListTreatments)
			treatments.GET("/search", NoCacheMiddleware(), treatmentHandler.SearchTreatments)
			treatments.GET("/statistics", NoCacheMiddleware(), treatmentHandler.GetStatistics)
			treatments.GET("/:id", treatmentHandler.GetTreatment)
			treatments.POST("", treatmentHandler.CreateTreatment)
			treatments.PUT("/:id", treatmentHandler.UpdateTreatment)
			treatments.DELETE("/:id", treatmentHandler.DeleteTreatment)

			if deps.Archive != nil {
				archiveHandler := NewArchiveHandler(deps.Archive)
				treatments.POST("/export", archiveHandler.ExportTreatments)
			}
		}

		// --- Doctor Routes ---
		doctors := api.Group("/doctors")
		{
			doctors.GET("", NoCacheMiddleware(), doctorHandler.ListDoctors)
			doctors.GET("/sample", NoCacheMiddleware(), doctorHandler.GetSampleDoctors)
			doctors.GET("/search", NoCacheMiddleware(), doctorHandler.SearchDoctors)
			doctors.POST("", doctorHandler.CreateDoctor)
			doctors.PUT("/:id", doctorHandler.UpdateDoctor)
			doctors.DELETE("/:id", doctorHandler.DeleteDoctor)
		}
	}
}
