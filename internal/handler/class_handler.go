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

type classService interface {
	List(ctx context.Context, year *int) ([]models.SchoolClass, error)
	Get(ctx context.Context, classID string) (*models.SchoolClass, error)
	Upsert(ctx context.Context, input service.ClassInput) (*models.SchoolClass, error)
}

// ClassHandler exposes class reference endpoints.
type ClassHandler struct {
	classes classService
}

// NewClassHandler constructs ClassHandler.
func NewClassHandler(classes classService) *ClassHandler {
	return &ClassHandler{classes: classes}
}

// List godoc
// @Summary List classes
// @Tags Classes
// @Produce json
// @Param year query int false "Academic year"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	classes, err := h.classes.List(c.Request.Context(), queryIntPtr(c, "year"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// Get godoc
// @Summary Get one class
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id} [get]
func (h *ClassHandler) Get(c *gin.Context) {
	class, err := h.classes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}

// Upsert godoc
// @Summary Register or update a class
// @Tags Classes
// @Accept json
// @Produce json
// @Param payload body service.ClassInput true "Class payload"
// @Success 200 {object} response.Envelope
// @Router /classes [put]
func (h *ClassHandler) Upsert(c *gin.Context) {
	var input service.ClassInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	class, err := h.classes.Upsert(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, class, nil)
}
