package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"op-pipeline-backend/internal/extraction"
	"op-pipeline-backend/internal/models"
	"op-pipeline-backend/internal/pdftext"
	"op-pipeline-backend/internal/repository"
	"op-pipeline-backend/internal/services"
	"op-pipeline-backend/internal/stages"
)

// respondError maps domain errors to HTTP statuses. Anything unrecognized is
// a 500 and the detail is only logged.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		status  int
		message string
	)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		status, message = http.StatusNotFound, "job not found"
	case errors.Is(err, services.ErrNoDocument):
		status, message = http.StatusNotFound, "job has no stored document"
	case errors.Is(err, stages.ErrUnknownStage):
		status, message = http.StatusBadRequest, "unknown stage"
	case errors.Is(err, stages.ErrTransitionNotAllowed):
		status, message = http.StatusConflict, "transition not allowed"
	case errors.Is(err, services.ErrInvalidInput):
		status, message = http.StatusBadRequest, "invalid input"
	case errors.Is(err, extraction.ErrEmptyDocument):
		status, message = http.StatusUnprocessableEntity, "document has no text"
	case errors.Is(err, pdftext.ErrNoTextLayer):
		status, message = http.StatusUnprocessableEntity, "document has no text layer"
	case errors.Is(err, pdftext.ErrUnreadable):
		status, message = http.StatusUnprocessableEntity, "document is not a readable PDF"
	case errors.Is(err, services.ErrStorage):
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to store document"})
		return
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(status, models.ErrorResponse{Error: message, Message: err.Error()})
}

func parseJobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid job id"})
		return uuid.Nil, false
	}
	return id, true
}
