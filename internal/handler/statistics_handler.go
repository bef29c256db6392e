package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hoken-api/internal/models"
	"github.com/noah-isme/hoken-api/pkg/response"
)

type statisticsService interface {
	Compute(ctx context.Context, filter models.StatisticsFilter) (*models.StatisticsReport, bool, error)
	Trend(ctx context.Context, filter models.StatisticsFilter) ([]models.TrendPoint, bool, error)
}

// StatisticsHandler exposes aggregate statistics endpoints.
type StatisticsHandler struct {
	statistics statisticsService
}

// NewStatisticsHandler constructs StatisticsHandler.
func NewStatisticsHandler(statistics statisticsService) *StatisticsHandler {
	return &StatisticsHandler{statistics: statistics}
}

func statisticsFilter(c *gin.Context) models.StatisticsFilter {
	return models.StatisticsFilter{
		Year:    queryIntPtr(c, "year"),
		Grade:   queryIntPtr(c, "grade"),
		ClassID: c.Query("classId"),
	}
}

// Report godoc
// @Summary Compute the health-check statistics report
// @Tags Statistics
// @Produce json
// @Param year query int false "Academic year"
// @Param grade query int false "Grade"
// @Param classId query string false "Class"
// @Success 200 {object} response.Envelope
// @Router /statistics [get]
func (h *StatisticsHandler) Report(c *gin.Context) {
	report, cached, err := h.statistics.Compute(c.Request.Context(), statisticsFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, map[string]interface{}{"cached": cached})
}

// Trend godoc
// @Summary Year-over-year measurement trend
// @Tags Statistics
// @Produce json
// @Param grade query int false "Grade"
// @Param classId query string false "Class"
// @Success 200 {object} response.Envelope
// @Router /statistics/trend [get]
func (h *StatisticsHandler) Trend(c *gin.Context) {
	points, cached, err := h.statistics.Trend(c.Request.Context(), statisticsFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, points, nil, map[string]interface{}{"cached": cached})
}
