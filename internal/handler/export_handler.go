package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edumarket/course-market-api/internal/service"
	"github.com/edumarket/course-market-api/pkg/response"
)

// ExportHandler exposes roster export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Roster godoc
// @Summary Export course roster
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Router /courses/{id}/roster [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	format := c.DefaultQuery("format", service.FormatCSV)
	result, err := h.exports.Roster(c.Request.Context(), identityFromContext(c), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
