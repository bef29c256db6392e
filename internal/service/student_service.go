package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hoken-api/internal/models"
	"github.com/noah-isme/hoken-api/internal/repository"
	appErrors "github.com/noah-isme/hoken-api/pkg/errors"
	"github.com/noah-isme/hoken-api/pkg/jptext"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	Suggestions(ctx context.Context, query string, limit int) ([]string, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ExistsByStudentID(ctx context.Context, studentID string, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

// StudentInput is the payload for creating or updating students. Numeric
// fields arrive as strings so full-width form input can be normalized before
// parsing; the validate tags run against the normalized copy.
type StudentInput struct {
	StudentID     string  `json:"student_id" validate:"omitempty,student_id"`
	Name          string  `json:"name" validate:"required,max=100"`
	NameKana      string  `json:"name_kana" validate:"required,max=100,hiragana"`
	StudentNumber string  `json:"student_number" validate:"required,student_number"`
	Gender        string  `json:"gender" validate:"required,oneof=male female"`
	BirthDate     string  `json:"birth_date" validate:"required,datetime=2006-01-02"`
	ClassID       string  `json:"class_id" validate:"required,class_track"`
	GradeID       string  `json:"grade_id" validate:"required,grade_level"`
	Status        string  `json:"status" validate:"omitempty,oneof=active inactive"`
	Allergies     *string `json:"allergies"`
	Conditions    *string `json:"conditions"`
	Medications   *string `json:"medications"`
	Notes         *string `json:"notes"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo        studentRepository
	validator   *validator.Validate
	classTracks map[string]struct{}
	logger      *zap.Logger
}

// NewStudentService constructs the student service. classTracks is the
// configured allow-list of class labels accepted for class_id; it is
// configuration rather than a live lookup so orphaned references never block
// student writes.
func NewStudentService(repo studentRepository, validate *validator.Validate, classTracks []string, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	tracks := make(map[string]struct{}, len(classTracks))
	for _, t := range classTracks {
		tracks[t] = struct{}{}
	}
	svc := &StudentService{repo: repo, validator: validate, classTracks: tracks, logger: logger}
	registerJSONTagNames(svc.validator)
	svc.validator.RegisterValidation("student_id", func(fl validator.FieldLevel) bool {
		return jptext.IsAlphanumeric(fl.Field().String())
	})
	svc.validator.RegisterValidation("hiragana", func(fl validator.FieldLevel) bool {
		return jptext.IsKana(fl.Field().String())
	})
	svc.validator.RegisterValidation("student_number", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		return err == nil && n >= 1 && n <= 99
	})
	svc.validator.RegisterValidation("class_track", func(fl validator.FieldLevel) bool {
		_, ok := svc.classTracks[fl.Field().String()]
		return ok
	})
	svc.validator.RegisterValidation("grade_level", func(fl validator.FieldLevel) bool {
		g, err := strconv.Atoi(fl.Field().String())
		return err == nil && g >= 1 && g <= 3
	})
	return svc
}

// Search returns students matching the filter plus pagination metadata. An
// empty result set is a success, not an error.
func (s *StudentService) Search(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSort) {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidArgument, err.Error())
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search students")
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Suggestions returns completion candidates for the search box.
func (s *StudentService) Suggestions(ctx context.Context, query string, limit int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return []string{}, nil
	}
	values, err := s.repo.Suggestions(ctx, query, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load suggestions")
	}
	return values, nil
}

// Get returns one student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student after validating the whole payload.
func (s *StudentService) Create(ctx context.Context, input StudentInput) (*models.Student, error) {
	student, err := s.validate(ctx, input, "")
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies an existing student.
func (s *StudentService) Update(ctx context.Context, id string, input StudentInput) (*models.Student, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	student, err := s.validate(ctx, input, id)
	if err != nil {
		return nil, err
	}
	student.ID = existing.ID
	student.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student and cascades to its health history.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.logger.Info("student deleted with dependent records", zap.String("id", id))
	return nil
}

// validate normalizes the payload, runs the tag rules and the uniqueness
// check, and builds the model. Tag failures are collected per field before
// anything returns, so the response enumerates every problem at once.
// excludeID carries the current row id on update so the uniqueness check
// skips self.
func (s *StudentService) validate(ctx context.Context, input StudentInput, excludeID string) (*models.Student, error) {
	norm := input
	norm.StudentID = strings.ToUpper(jptext.Normalize(strings.TrimSpace(input.StudentID)))
	norm.Name = strings.TrimSpace(input.Name)
	norm.NameKana = strings.TrimSpace(input.NameKana)
	norm.StudentNumber = jptext.Normalize(strings.TrimSpace(input.StudentNumber))
	norm.BirthDate = jptext.Normalize(strings.TrimSpace(input.BirthDate))
	norm.ClassID = strings.TrimSpace(input.ClassID)
	norm.GradeID = jptext.Normalize(strings.TrimSpace(input.GradeID))

	if err := s.validator.Struct(norm); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, appErrors.Validation("invalid student payload", fieldDetails(verrs, studentFieldMessage))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student")
	}

	// The tag rules guarantee these parse.
	number, _ := strconv.Atoi(norm.StudentNumber)
	birthDate, _ := time.Parse("2006-01-02", norm.BirthDate)
	grade, _ := strconv.Atoi(norm.GradeID)

	status := models.StudentStatus(norm.Status)
	if norm.Status == "" {
		status = models.StudentStatusActive
	}
	studentID := norm.StudentID
	if studentID == "" {
		studentID = fmt.Sprintf("%04d", number)
	}

	taken, err := s.repo.ExistsByStudentID(ctx, studentID, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check student id")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student id already used")
	}

	return &models.Student{
		StudentID:     studentID,
		Name:          norm.Name,
		NameKana:      norm.NameKana,
		StudentNumber: number,
		Gender:        models.Gender(norm.Gender),
		BirthDate:     birthDate,
		ClassID:       norm.ClassID,
		GradeID:       grade,
		Status:        status,
		Allergies:     input.Allergies,
		Conditions:    input.Conditions,
		Medications:   input.Medications,
		Notes:         input.Notes,
	}, nil
}

func studentFieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "student_id":
		return "student id must be alphanumeric"
	case "name":
		if fe.Tag() == "required" {
			return "name is required"
		}
		return "name must be at most 100 characters"
	case "name_kana":
		switch fe.Tag() {
		case "required":
			return "phonetic reading is required"
		case "max":
			return "phonetic reading must be at most 100 characters"
		}
		return "phonetic reading must be hiragana"
	case "student_number":
		if fe.Tag() == "required" {
			return "student number is required"
		}
		return "student number must be an integer between 1 and 99"
	case "gender":
		return "gender must be male or female"
	case "birth_date":
		if fe.Tag() == "required" {
			return "birth date is required"
		}
		return "birth date must be a valid date (YYYY-MM-DD)"
	case "class_id":
		if fe.Tag() == "required" {
			return "class is required"
		}
		return "class must be one of the configured tracks"
	case "grade_id":
		if fe.Tag() == "required" {
			return "grade is required"
		}
		return "grade must be 1, 2 or 3"
	case "status":
		return "status must be active or inactive"
	}
	return fe.Field() + " is invalid"
}
