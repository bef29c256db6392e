package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hoken-api/internal/models"
	"github.com/noah-isme/hoken-api/internal/service"
	appErrors "github.com/noah-isme/hoken-api/pkg/errors"
	"github.com/noah-isme/hoken-api/pkg/response"
)

type studentServiceMock struct {
	searchResp   []models.StudentDetail
	searchPag    *models.Pagination
	searchErr    error
	getResp      *models.StudentDetail
	getErr       error
	createResp   *models.Student
	createErr    error
	lastFilter   models.StudentFilter
	lastInput    service.StudentInput
	searchCalled bool
	createCalled bool
	deletedID    string
}

func (m *studentServiceMock) Search(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	m.searchCalled = true
	m.lastFilter = filter
	return m.searchResp, m.searchPag, m.searchErr
}

func (m *studentServiceMock) Suggestions(ctx context.Context, query string, limit int) ([]string, error) {
	return []string{query}, nil
}

func (m *studentServiceMock) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	return m.getResp, m.getErr
}

func (m *studentServiceMock) Create(ctx context.Context, input service.StudentInput) (*models.Student, error) {
	m.createCalled = true
	m.lastInput = input
	return m.createResp, m.createErr
}

func (m *studentServiceMock) Update(ctx context.Context, id string, input service.StudentInput) (*models.Student, error) {
	m.lastInput = input
	return m.createResp, m.createErr
}

func (m *studentServiceMock) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

func TestStudentHandlerListParsesFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &studentServiceMock{
		searchResp: []models.StudentDetail{{Student: models.Student{StudentID: "0001"}}},
		searchPag:  &models.Pagination{Page: 2, PageSize: 5, TotalCount: 11, LastPage: 3},
	}
	handler := NewStudentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/students?search=田中&grade=2&hasHealthRecords=true&page=2&limit=5", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.searchCalled)
	assert.Equal(t, "田中", mockSvc.lastFilter.Search)
	require.NotNil(t, mockSvc.lastFilter.GradeID)
	assert.Equal(t, 2, *mockSvc.lastFilter.GradeID)
	require.NotNil(t, mockSvc.lastFilter.HasHealthRecords)
	assert.True(t, *mockSvc.lastFilter.HasHealthRecords)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 5, mockSvc.lastFilter.PageSize)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 11, envelope.Pagination.TotalCount)
}

func TestStudentHandlerListDefaultsPaging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &studentServiceMock{}
	handler := NewStudentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/students", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, mockSvc.lastFilter.Page)
	assert.Equal(t, 20, mockSvc.lastFilter.PageSize)
}

func TestStudentHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &studentServiceMock{}
	handler := NewStudentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/students", bytes.NewBufferString(`{"name":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.createCalled)
}

func TestStudentHandlerCreateValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &studentServiceMock{
		createErr: appErrors.Validation("validation failed", []appErrors.FieldError{
			{Field: "name", Message: "name is required"},
		}),
	}
	handler := NewStudentHandler(mockSvc)

	payload, _ := json.Marshal(service.StudentInput{Gender: "male"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/students", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	require.Len(t, envelope.Error.Details, 1)
	assert.Equal(t, "name", envelope.Error.Details[0].Field)
}

func TestStudentHandlerCreateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &studentServiceMock{
		createResp: &models.Student{StudentID: "0007", Name: "田中太郎"},
	}
	handler := NewStudentHandler(mockSvc)

	payload, _ := json.Marshal(service.StudentInput{
		Name:          "田中太郎",
		NameKana:      "たなかたろう",
		StudentNumber: "7",
		Gender:        "male",
		BirthDate:     "2009-04-02",
		ClassID:       "特進",
		GradeID:       "1",
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/students", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.createCalled)
	assert.Equal(t, "たなかたろう", mockSvc.lastInput.NameKana)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &studentServiceMock{getErr: appErrors.ErrNotFound}
	handler := NewStudentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/students/unknown", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "unknown"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestStudentHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &studentServiceMock{}
	handler := NewStudentHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/students/s-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "s-1"}}

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "s-1", mockSvc.deletedID)
}
