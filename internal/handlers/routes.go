package handlers

import (
	"github.com/gin-gonic/gin"
	"op-pipeline-backend/internal/config"
	"op-pipeline-backend/internal/middleware"
)

type Handlers struct {
	Jobs   *JobsHandler
	Upload *UploadHandler
	Export *ExportHandler
	Events *EventsHandler
	Stages *StagesHandler
}

// RegisterRoutes mounts the API under /api/v1. Health checks stay outside
// authentication.
func RegisterRoutes(router *gin.Engine, cfg *config.Config, h Handlers) {
	router.GET("/health", HealthHandler)

	api := router.Group("/api/v1")
	api.GET("/health", HealthHandler)

	secured := api.Group("")
	secured.Use(middleware.AuthMiddleware(cfg))

	secured.GET("/stages", h.Stages.GetStages)

	secured.POST("/jobs/upload", h.Upload.Upload)
	secured.POST("/jobs", h.Jobs.CreateJob)
	secured.GET("/jobs", h.Jobs.ListJobs)
	secured.GET("/jobs/summary", h.Jobs.Summary)
	secured.GET("/jobs/finished", h.Jobs.FinishedJobs)
	secured.GET("/jobs/calendar", h.Jobs.Calendar)
	secured.GET("/jobs/export", h.Export.ExportXLSX)
	secured.GET("/jobs/events", h.Events.Stream)

	secured.GET("/jobs/:id", h.Jobs.GetJob)
	secured.GET("/jobs/:id/document", h.Jobs.Document)
	secured.PUT("/jobs/:id", h.Jobs.UpdateJob)
	secured.PUT("/jobs/:id/stage", h.Jobs.TransitionJob)
	secured.DELETE("/jobs/:id", h.Jobs.DeleteJob)
}
