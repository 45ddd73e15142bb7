package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"op-pipeline-backend/internal/middleware"
	"op-pipeline-backend/internal/models"
	"op-pipeline-backend/internal/services"
)

type UploadHandler struct {
	svc      *services.JobService
	maxBytes int64
}

func NewUploadHandler(svc *services.JobService, maxBytes int64) *UploadHandler {
	return &UploadHandler{svc: svc, maxBytes: maxBytes}
}

// Upload godoc
// @Summary     Create a job from an OP document
// @Description Reads the PDF text layer, extracts order number, client, product, quantity and dates,
// @Description and creates a job in the intake stage. Fields that could not be found are null and
// @Description can be filled in with PUT /jobs/{id}. The raw extraction is returned alongside the job.
// @Tags        upload
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       file formData file true "OP document (PDF with a text layer)"
// @Success     201 {object} services.IngestResult
// @Failure     400 {object} models.ErrorResponse
// @Failure     413 {object} models.ErrorResponse
// @Failure     422 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /jobs/upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+(1<<20))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || c.Request.ContentLength > h.maxBytes+(1<<20) {
			h.tooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "missing file", Message: "send the document in the \"file\" form field"})
		return
	}
	if fileHeader.Size > h.maxBytes {
		h.tooLarge(c)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to open file", Message: err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "failed to read file", Message: err.Error()})
		return
	}

	res, err := h.svc.IngestDocument(c.Request.Context(), services.IngestInput{
		UserID:   middleware.UserID(c),
		Filename: fileHeader.Filename,
		Data:     data,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *UploadHandler) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
		Error:   "file too large",
		Message: fmt.Sprintf("maximum size is %d MB", h.maxBytes>>20),
	})
}
