package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hoken-api/internal/models"
	"github.com/noah-isme/hoken-api/internal/service"
	appErrors "github.com/noah-isme/hoken-api/pkg/errors"
	"github.com/noah-isme/hoken-api/pkg/response"
)

type nursingService interface {
	ListVisits(ctx context.Context, filter models.NursingVisitFilter) ([]models.NursingVisit, *models.Pagination, error)
	GetVisit(ctx context.Context, id string) (*models.NursingVisit, error)
	CreateVisit(ctx context.Context, input service.NursingVisitInput) (*models.NursingVisit, error)
	BulkCreateVisits(ctx context.Context, inputs []service.NursingVisitInput) ([]models.NursingVisit, error)
	UpdateVisit(ctx context.Context, id string, input service.NursingVisitInput) (*models.NursingVisit, error)
	DeleteVisit(ctx context.Context, id string) error
	GetLog(ctx context.Context, rawDate string) (*models.NursingLog, error)
	StoreLog(ctx context.Context, input service.NursingLogInput) (*models.NursingLog, error)
}

// NursingHandler exposes nursing-room visit and daily log endpoints.
type NursingHandler struct {
	nursing nursingService
}

// NewNursingHandler constructs NursingHandler.
func NewNursingHandler(nursing nursingService) *NursingHandler {
	return &NursingHandler{nursing: nursing}
}

// ListVisits godoc
// @Summary List nursing-room visits
// @Tags Nursing
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param classId query string false "Filter by class"
// @Param category query string false "Filter by category"
// @Param type query string false "Filter by visit type"
// @Param dateFrom query string false "On or after (YYYY-MM-DD)"
// @Param dateTo query string false "On or before (YYYY-MM-DD)"
// @Param sort query string false "Sort field"
// @Param order query string false "Sort direction"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /nursing/visits [get]
func (h *NursingHandler) ListVisits(c *gin.Context) {
	var filter models.NursingVisitFilter
	filter.StudentID = c.Query("studentId")
	filter.ClassID = c.Query("classId")
	if category := c.Query("category"); category != "" {
		v := models.VisitCategory(category)
		filter.Category = &v
	}
	if visitType := c.Query("type"); visitType != "" {
		v := models.VisitType(visitType)
		filter.Type = &v
	}
	filter.DateFrom = queryDatePtr(c, "dateFrom")
	filter.DateTo = queryDatePtr(c, "dateTo")
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	filter.Page, filter.PageSize = queryPage(c)

	visits, pagination, err := h.nursing.ListVisits(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visits, pagination)
}

// GetVisit godoc
// @Summary Get one nursing-room visit
// @Tags Nursing
// @Produce json
// @Param id path string true "Visit ID"
// @Success 200 {object} response.Envelope
// @Router /nursing/visits/{id} [get]
func (h *NursingHandler) GetVisit(c *gin.Context) {
	visit, err := h.nursing.GetVisit(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visit, nil)
}

// CreateVisit godoc
// @Summary Record a nursing-room visit
// @Tags Nursing
// @Accept json
// @Produce json
// @Param payload body service.NursingVisitInput true "Visit payload"
// @Success 201 {object} response.Envelope
// @Router /nursing/visits [post]
func (h *NursingHandler) CreateVisit(c *gin.Context) {
	var input service.NursingVisitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	visit, err := h.nursing.CreateVisit(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, visit)
}

// BulkVisits godoc
// @Summary Record several nursing-room visits at once
// @Tags Nursing
// @Accept json
// @Produce json
// @Param payload body []service.NursingVisitInput true "Visit payloads"
// @Success 201 {object} response.Envelope
// @Router /nursing/visits/bulk [post]
func (h *NursingHandler) BulkVisits(c *gin.Context) {
	var inputs []service.NursingVisitInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	visits, err := h.nursing.BulkCreateVisits(c.Request.Context(), inputs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, visits)
}

// UpdateVisit godoc
// @Summary Update a nursing-room visit
// @Tags Nursing
// @Accept json
// @Produce json
// @Param id path string true "Visit ID"
// @Param payload body service.NursingVisitInput true "Visit payload"
// @Success 200 {object} response.Envelope
// @Router /nursing/visits/{id} [put]
func (h *NursingHandler) UpdateVisit(c *gin.Context) {
	var input service.NursingVisitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	visit, err := h.nursing.UpdateVisit(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, visit, nil)
}

// DeleteVisit godoc
// @Summary Delete a nursing-room visit
// @Tags Nursing
// @Param id path string true "Visit ID"
// @Success 204
// @Router /nursing/visits/{id} [delete]
func (h *NursingHandler) DeleteVisit(c *gin.Context) {
	if err := h.nursing.DeleteVisit(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GetLog godoc
// @Summary Get the daily health-room log
// @Tags Nursing
// @Produce json
// @Param date path string true "Log date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /nursing/logs/{date} [get]
func (h *NursingHandler) GetLog(c *gin.Context) {
	logRow, err := h.nursing.GetLog(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logRow, nil)
}

// StoreLog godoc
// @Summary Create or replace the daily health-room log
// @Tags Nursing
// @Accept json
// @Produce json
// @Param payload body service.NursingLogInput true "Log payload"
// @Success 200 {object} response.Envelope
// @Router /nursing/logs [put]
func (h *NursingHandler) StoreLog(c *gin.Context) {
	var input service.NursingLogInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	logRow, err := h.nursing.StoreLog(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logRow, nil)
}
