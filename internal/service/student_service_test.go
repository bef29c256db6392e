package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hoken-api/internal/models"
	"github.com/noah-isme/hoken-api/pkg/clock"
	appErrors "github.com/noah-isme/hoken-api/pkg/errors"
)

type fakeStudentRepo struct {
	students    []models.StudentDetail
	total       int
	listErr     error
	suggestions []string
	detail      *models.StudentDetail
	findErr     error
	exists      bool
	created     *models.Student
	updated     *models.Student
	deletedID   string
}

func (f *fakeStudentRepo) List(context.Context, models.StudentFilter) ([]models.StudentDetail, int, error) {
	return f.students, f.total, f.listErr
}

func (f *fakeStudentRepo) Suggestions(context.Context, string, int) ([]string, error) {
	return f.suggestions, nil
}

func (f *fakeStudentRepo) FindByID(context.Context, string) (*models.StudentDetail, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.detail, nil
}

func (f *fakeStudentRepo) ExistsByStudentID(context.Context, string, string) (bool, error) {
	return f.exists, nil
}

func (f *fakeStudentRepo) Create(_ context.Context, student *models.Student) error {
	f.created = student
	return nil
}

func (f *fakeStudentRepo) Update(_ context.Context, student *models.Student) error {
	f.updated = student
	return nil
}

func (f *fakeStudentRepo) Delete(_ context.Context, id string) error {
	f.deletedID = id
	return nil
}

func validStudentInput() StudentInput {
	return StudentInput{
		Name:          "田中太郎",
		NameKana:      "たなかたろう",
		StudentNumber: "7",
		Gender:        "male",
		BirthDate:     "2009-04-02",
		ClassID:       "特進",
		GradeID:       "1",
	}
}

func newTestStudentService(repo *fakeStudentRepo) *StudentService {
	return NewStudentService(repo, nil, []string{"特進", "進学", "普通"}, nil)
}

func TestStudentServiceCreateDerivesStudentID(t *testing.T) {
	repo := &fakeStudentRepo{}
	svc := newTestStudentService(repo)

	student, err := svc.Create(context.Background(), validStudentInput())
	require.NoError(t, err)
	assert.Equal(t, "0007", student.StudentID)
	assert.Equal(t, models.StudentStatusActive, student.Status)
	assert.Equal(t, 7, student.StudentNumber)
	assert.NotNil(t, repo.created)
}

func TestStudentServiceCreateNormalizesFullWidthDigits(t *testing.T) {
	repo := &fakeStudentRepo{}
	svc := newTestStudentService(repo)

	input := validStudentInput()
	input.StudentNumber = "１２"
	input.GradeID = "２"
	student, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 12, student.StudentNumber)
	assert.Equal(t, 2, student.GradeID)
}

func TestStudentServiceCreateCollectsAllFieldErrors(t *testing.T) {
	repo := &fakeStudentRepo{}
	svc := newTestStudentService(repo)

	input := StudentInput{
		NameKana:      "Tanaka",
		StudentNumber: "100",
		Gender:        "unknown",
		BirthDate:     "not-a-date",
		ClassID:       "理数",
		GradeID:       "4",
	}
	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, 422, appErr.Status)

	fields := make(map[string]bool, len(appErr.Details))
	for _, d := range appErr.Details {
		fields[d.Field] = true
	}
	for _, want := range []string{"name", "name_kana", "student_number", "gender", "birth_date", "class_id", "grade_id"} {
		assert.True(t, fields[want], "expected a field error for %s", want)
	}
}

func TestStudentServiceCreateStudentNumberBounds(t *testing.T) {
	repo := &fakeStudentRepo{}
	svc := newTestStudentService(repo)

	for _, number := range []string{"0", "100"} {
		input := validStudentInput()
		input.StudentNumber = number
		_, err := svc.Create(context.Background(), input)
		require.Error(t, err, "number %s should be rejected", number)
	}

	for _, number := range []string{"1", "99"} {
		input := validStudentInput()
		input.StudentNumber = number
		_, err := svc.Create(context.Background(), input)
		require.NoError(t, err, "number %s should be accepted", number)
	}
}

func TestStudentServiceCreateRejectsTakenStudentID(t *testing.T) {
	repo := &fakeStudentRepo{exists: true}
	svc := newTestStudentService(repo)

	_, err := svc.Create(context.Background(), validStudentInput())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateRejectsNonKanaReading(t *testing.T) {
	repo := &fakeStudentRepo{}
	svc := newTestStudentService(repo)

	input := validStudentInput()
	input.NameKana = "タナカタロウ"
	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, "name_kana", appErr.Details[0].Field)
}

func TestStudentServiceSharesValidatorWithHealthRecords(t *testing.T) {
	v := validator.New()
	studentRepo := &fakeStudentRepo{}
	recordRepo := &fakeHealthRecordRepo{}
	students := NewStudentService(studentRepo, v, []string{"特進", "進学", "普通"}, nil)
	records := NewHealthRecordService(recordRepo, nil, v, nil, clock.Fixed(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)), 2020, nil)

	_, err := students.Create(context.Background(), validStudentInput())
	require.NoError(t, err)

	_, err = records.Create(context.Background(), validHealthRecordInput())
	require.NoError(t, err)

	input := validStudentInput()
	input.GradeID = "4"
	_, err = students.Create(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, 422, appErrors.FromError(err).Status)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	repo := &fakeStudentRepo{findErr: sql.ErrNoRows}
	svc := newTestStudentService(repo)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceSuggestionsEmptyQuery(t *testing.T) {
	repo := &fakeStudentRepo{suggestions: []string{"should not surface"}}
	svc := newTestStudentService(repo)

	out, err := svc.Suggestions(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestStudentServiceDeleteCascades(t *testing.T) {
	repo := &fakeStudentRepo{detail: &models.StudentDetail{Student: models.Student{ID: "u1"}}}
	svc := newTestStudentService(repo)

	require.NoError(t, svc.Delete(context.Background(), "u1"))
	assert.Equal(t, "u1", repo.deletedID)
}
