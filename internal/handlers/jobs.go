package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"op-pipeline-backend/internal/middleware"
	"op-pipeline-backend/internal/models"
	"op-pipeline-backend/internal/services"
)

type JobsHandler struct {
	svc *services.JobService
	now func() time.Time
}

func NewJobsHandler(svc *services.JobService) *JobsHandler {
	return &JobsHandler{svc: svc, now: time.Now}
}

// CreateJob godoc
// @Summary     Create a job manually
// @Description Registers a work order typed in by hand. The job starts in the intake stage.
// @Description due_date accepts d/m/yyyy or yyyy-mm-dd; anything else is stored as empty.
// @Tags        jobs
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.CreateJobRequest true "Job fields"
// @Success     201 {object} models.Job
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /jobs [post]
func (h *JobsHandler) CreateJob(c *gin.Context) {
	var req models.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	job, err := h.svc.CreateJob(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// ListJobs godoc
// @Summary     List jobs
// @Description Lists jobs newest first.
// @Tags        jobs
// @Produce     json
// @Security    Bearer
// @Param       view       query string false "ALL, PRODUCTION, FINISHED or ALERTS"
// @Param       stage      query string false "Only jobs currently in this stage"
// @Param       order_type query string false "SALE or RESTOCK"
// @Param       q          query string false "Search over order number, client and product"
// @Success     200 {object} models.JobListResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /jobs [get]
func (h *JobsHandler) ListJobs(c *gin.Context) {
	filter, ok := listFilter(c)
	if !ok {
		return
	}

	jobs, err := h.svc.ListJobs(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.JobListResponse{Jobs: jobs, Count: len(jobs)})
}

func listFilter(c *gin.Context) (services.ListFilter, bool) {
	view, err := services.ParseView(c.Query("view"))
	if err != nil {
		respondError(c, err)
		return services.ListFilter{}, false
	}

	filter := services.ListFilter{
		View:      view,
		Stage:     strings.TrimSpace(c.Query("stage")),
		OrderType: models.OrderType(strings.ToUpper(strings.TrimSpace(c.Query("order_type")))),
		Search:    c.Query("q"),
	}
	if filter.Stage == "ALL" {
		filter.Stage = ""
	}
	if filter.OrderType == "ALL" {
		filter.OrderType = ""
	}
	return filter, true
}

// GetJob godoc
// @Summary     Get a job
// @Tags        jobs
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Job ID (UUID)"
// @Success     200 {object} models.Job
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /jobs/{id} [get]
func (h *JobsHandler) GetJob(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}

	job, err := h.svc.GetJob(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Document godoc
// @Summary     Download the source document of a job
// @Tags        jobs
// @Produce     application/pdf
// @Security    Bearer
// @Param       id path string true "Job ID (UUID)"
// @Success     200 {file} binary
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /jobs/{id}/document [get]
func (h *JobsHandler) Document(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}

	name, data, err := h.svc.JobDocument(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", data)
}

// UpdateJob godoc
// @Summary     Edit job fields
// @Description Only the keys present in the body are changed; null clears a field.
// @Description Stage changes go through PUT /jobs/{id}/stage.
// @Tags        jobs
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       id      path string                  true "Job ID (UUID)"
// @Param       request body models.UpdateJobRequest true "Fields to change"
// @Success     200 {object} models.Job
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /jobs/{id} [put]
func (h *JobsHandler) UpdateJob(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}

	var req models.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	job, err := h.svc.UpdateJob(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// TransitionJob godoc
// @Summary     Move a job to another stage
// @Description Appends a history entry. Entering the terminal stage for the first time sets completed_at.
// @Tags        jobs
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       id      path string              true "Job ID (UUID)"
// @Param       request body models.StageRequest true "Target stage"
// @Success     200 {object} models.Job
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /jobs/{id}/stage [put]
func (h *JobsHandler) TransitionJob(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}

	var req models.StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body", Message: err.Error()})
		return
	}

	job, err := h.svc.TransitionJob(c.Request.Context(), id, req.Stage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// DeleteJob godoc
// @Summary     Delete a job
// @Tags        jobs
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Job ID (UUID)"
// @Success     200 {object} models.DeleteResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /jobs/{id} [delete]
func (h *JobsHandler) DeleteJob(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteJob(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.DeleteResponse{Message: "job deleted"})
}

// Summary godoc
// @Summary     Dashboard counters
// @Tags        jobs
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.Summary
// @Router      /jobs/summary [get]
func (h *JobsHandler) Summary(c *gin.Context) {
	sum, err := h.svc.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// FinishedJobs godoc
// @Summary     Finished jobs with production time
// @Description elapsed_hours runs from the first entry into the measured stage to completion.
// @Tags        jobs
// @Produce     json
// @Security    Bearer
// @Success     200 {object} models.FinishedListResponse
// @Router      /jobs/finished [get]
func (h *JobsHandler) FinishedJobs(c *gin.Context) {
	jobs, err := h.svc.FinishedJobs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.FinishedListResponse{Jobs: jobs, Count: len(jobs)})
}

// Calendar godoc
// @Summary     Delivery calendar
// @Description Jobs grouped by due date for one month.
// @Tags        jobs
// @Produce     json
// @Security    Bearer
// @Param       month query string false "YYYY-MM, defaults to the current month"
// @Success     200 {object} models.CalendarResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /jobs/calendar [get]
func (h *JobsHandler) Calendar(c *gin.Context) {
	month := h.now()
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid month", Message: "expected YYYY-MM"})
			return
		}
		month = parsed
	}

	cal, err := h.svc.Calendar(c.Request.Context(), month.Year(), month.Month())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}
