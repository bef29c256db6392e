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

type healthRecordService interface {
	List(ctx context.Context, filter models.HealthRecordFilter) ([]models.HealthRecord, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.HealthRecord, error)
	Create(ctx context.Context, input service.HealthRecordInput) (*models.HealthRecord, error)
	BulkCreate(ctx context.Context, inputs []service.HealthRecordInput) ([]models.HealthRecord, error)
	Update(ctx context.Context, id string, input service.HealthRecordInput) (*models.HealthRecord, error)
	Delete(ctx context.Context, id string) error
}

// HealthRecordHandler exposes annual health-check record endpoints.
type HealthRecordHandler struct {
	records healthRecordService
}

// NewHealthRecordHandler constructs HealthRecordHandler.
func NewHealthRecordHandler(records healthRecordService) *HealthRecordHandler {
	return &HealthRecordHandler{records: records}
}

// List godoc
// @Summary List health records
// @Tags HealthRecords
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param year query int false "Filter by academic year"
// @Param classId query string false "Filter by class"
// @Param dateFrom query string false "Measured on or after (YYYY-MM-DD)"
// @Param dateTo query string false "Measured on or before (YYYY-MM-DD)"
// @Param sort query string false "Sort field"
// @Param order query string false "Sort direction"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /health-records [get]
func (h *HealthRecordHandler) List(c *gin.Context) {
	var filter models.HealthRecordFilter
	filter.StudentID = c.Query("studentId")
	filter.Year = queryIntPtr(c, "year")
	filter.ClassID = c.Query("classId")
	filter.DateFrom = queryDatePtr(c, "dateFrom")
	filter.DateTo = queryDatePtr(c, "dateTo")
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	filter.Page, filter.PageSize = queryPage(c)

	records, pagination, err := h.records.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get one health record
// @Tags HealthRecords
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /health-records/{id} [get]
func (h *HealthRecordHandler) Get(c *gin.Context) {
	record, err := h.records.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Record a health check
// @Tags HealthRecords
// @Accept json
// @Produce json
// @Param payload body service.HealthRecordInput true "Health record payload"
// @Success 201 {object} response.Envelope
// @Router /health-records [post]
func (h *HealthRecordHandler) Create(c *gin.Context) {
	var input service.HealthRecordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.records.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Bulk godoc
// @Summary Record health checks for many students at once
// @Tags HealthRecords
// @Accept json
// @Produce json
// @Param payload body []service.HealthRecordInput true "Health record payloads"
// @Success 201 {object} response.Envelope
// @Router /health-records/bulk [post]
func (h *HealthRecordHandler) Bulk(c *gin.Context) {
	var inputs []service.HealthRecordInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	records, err := h.records.BulkCreate(c.Request.Context(), inputs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, records)
}

// Update godoc
// @Summary Update a health record
// @Tags HealthRecords
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body service.HealthRecordInput true "Health record payload"
// @Success 200 {object} response.Envelope
// @Router /health-records/{id} [put]
func (h *HealthRecordHandler) Update(c *gin.Context) {
	var input service.HealthRecordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.records.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete a health record
// @Tags HealthRecords
// @Param id path string true "Record ID"
// @Success 204
// @Router /health-records/{id} [delete]
func (h *HealthRecordHandler) Delete(c *gin.Context) {
	if err := h.records.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
