package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hoken-api/internal/models"
	"github.com/noah-isme/hoken-api/internal/service"
	appErrors "github.com/noah-isme/hoken-api/pkg/errors"
	"github.com/noah-isme/hoken-api/pkg/response"
)

type studentService interface {
	Search(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error)
	Suggestions(ctx context.Context, query string, limit int) ([]string, error)
	Get(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, input service.StudentInput) (*models.Student, error)
	Update(ctx context.Context, id string, input service.StudentInput) (*models.Student, error)
	Delete(ctx context.Context, id string) error
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students studentService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService) *StudentHandler {
	return &StudentHandler{students: students}
}

// List godoc
// @Summary Search students
// @Tags Students
// @Produce json
// @Param search query string false "Free-text search over name, kana, student id and number"
// @Param classId query string false "Filter by class"
// @Param grade query int false "Filter by grade"
// @Param gender query string false "Filter by gender"
// @Param numberMin query int false "Minimum attendance number"
// @Param numberMax query int false "Maximum attendance number"
// @Param hasHealthRecords query bool false "Only students with (or without) health records"
// @Param recordYear query int false "Academic year for record presence checks"
// @Param hasRecordForYear query bool false "Record presence for the given recordYear"
// @Param sort query string false "Sort field"
// @Param order query string false "Sort direction"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	var filter models.StudentFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.ClassID = c.Query("classId")
	filter.GradeID = queryIntPtr(c, "grade")
	if gender := c.Query("gender"); gender != "" {
		g := models.Gender(gender)
		filter.Gender = &g
	}
	filter.NumberMin = queryIntPtr(c, "numberMin")
	filter.NumberMax = queryIntPtr(c, "numberMax")
	filter.HasHealthRecords = queryBoolPtr(c, "hasHealthRecords")
	filter.RecordYear = queryIntPtr(c, "recordYear")
	filter.HasRecordForYear = queryBoolPtr(c, "hasRecordForYear")
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	filter.Page, filter.PageSize = queryPage(c)

	students, pagination, err := h.students.Search(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Suggestions godoc
// @Summary Autocomplete student names and ids
// @Tags Students
// @Produce json
// @Param q query string true "Prefix or partial input"
// @Param limit query int false "Maximum suggestions"
// @Success 200 {object} response.Envelope
// @Router /students/suggestions [get]
func (h *StudentHandler) Suggestions(c *gin.Context) {
	limit := 10
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil {
		limit = v
	}
	suggestions, err := h.students.Suggestions(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, suggestions, nil)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Register a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.StudentInput true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var input service.StudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Create(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.StudentInput true "Student payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	var input service.StudentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.students.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete a student and their records
// @Tags Students
// @Param id path string true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
