package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hoken-api/internal/models"
	"github.com/noah-isme/hoken-api/pkg/response"
)

type exportService interface {
	ExportStudents(ctx context.Context, filter models.StudentFilter) ([]byte, string, error)
	ExportStatistics(ctx context.Context, filter models.StatisticsFilter) ([]byte, string, error)
}

// ExportHandler streams CSV and PDF exports.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Students godoc
// @Summary Export students as CSV
// @Tags Exports
// @Produce text/csv
// @Param search query string false "Free-text search"
// @Param classId query string false "Filter by class"
// @Param grade query int false "Filter by grade"
// @Success 200 {file} file
// @Router /exports/students [get]
func (h *ExportHandler) Students(c *gin.Context) {
	var filter models.StudentFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.ClassID = c.Query("classId")
	filter.GradeID = queryIntPtr(c, "grade")
	if gender := c.Query("gender"); gender != "" {
		g := models.Gender(gender)
		filter.Gender = &g
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	data, filename, err := h.exports.ExportStudents(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// Statistics godoc
// @Summary Export the statistics report as PDF
// @Tags Exports
// @Produce application/pdf
// @Param year query int false "Academic year"
// @Param grade query int false "Grade"
// @Param classId query string false "Class"
// @Success 200 {file} file
// @Router /exports/statistics [get]
func (h *ExportHandler) Statistics(c *gin.Context) {
	filter := models.StatisticsFilter{
		Year:    queryIntPtr(c, "year"),
		Grade:   queryIntPtr(c, "grade"),
		ClassID: c.Query("classId"),
	}
	data, filename, err := h.exports.ExportStatistics(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
