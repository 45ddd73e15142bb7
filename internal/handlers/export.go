package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"op-pipeline-backend/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportHandler struct {
	export *services.ExportService
}

func NewExportHandler(export *services.ExportService) *ExportHandler {
	return &ExportHandler{export: export}
}

// ExportXLSX godoc
// @Summary     Production report
// @Description Downloads the jobs matching the same filters as GET /jobs as an XLSX workbook.
// @Tags        jobs
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security    Bearer
// @Param       view       query string false "ALL, PRODUCTION, FINISHED or ALERTS"
// @Param       stage      query string false "Only jobs currently in this stage"
// @Param       order_type query string false "SALE or RESTOCK"
// @Param       q          query string false "Search over order number, client and product"
// @Success     200 {file} file
// @Failure     400 {object} models.ErrorResponse
// @Router      /jobs/export [get]
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	filter, ok := listFilter(c)
	if !ok {
		return
	}

	data, err := h.export.ExportXLSX(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, services.ExportFilename(time.Now())))
	c.Data(http.StatusOK, xlsxContentType, data)
}
