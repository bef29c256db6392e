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

type attendanceService interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.AttendanceRecord, error)
	Store(ctx context.Context, input service.AttendanceInput) (*models.AttendanceRecord, error)
	BulkStore(ctx context.Context, input service.BulkAttendanceInput) ([]models.AttendanceRecord, error)
	Delete(ctx context.Context, id string) error
}

// AttendanceHandler exposes daily attendance endpoints.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// List godoc
// @Summary List attendance records
// @Tags Attendance
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param classId query string false "Filter by class"
// @Param status query string false "Filter by status"
// @Param dateFrom query string false "On or after (YYYY-MM-DD)"
// @Param dateTo query string false "On or before (YYYY-MM-DD)"
// @Param sort query string false "Sort field"
// @Param order query string false "Sort direction"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	var filter models.AttendanceFilter
	filter.StudentID = c.Query("studentId")
	filter.ClassID = c.Query("classId")
	if status := c.Query("status"); status != "" {
		s := models.AttendanceStatus(status)
		filter.Status = &s
	}
	filter.DateFrom = queryDatePtr(c, "dateFrom")
	filter.DateTo = queryDatePtr(c, "dateTo")
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	filter.Page, filter.PageSize = queryPage(c)

	records, pagination, err := h.attendance.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get one attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	record, err := h.attendance.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Store godoc
// @Summary Record attendance for one student and date
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.AttendanceInput true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Store(c *gin.Context) {
	var input service.AttendanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.attendance.Store(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Bulk godoc
// @Summary Record attendance for a whole class
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.BulkAttendanceInput true "Bulk attendance payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) Bulk(c *gin.Context) {
	var input service.BulkAttendanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	records, err := h.attendance.BulkStore(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Delete godoc
// @Summary Delete an attendance record
// @Tags Attendance
// @Param id path string true "Record ID"
// @Success 204
// @Router /attendance/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	if err := h.attendance.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
