package service

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/hoken-api/internal/models"
	appErrors "github.com/noah-isme/hoken-api/pkg/errors"
	"github.com/noah-isme/hoken-api/pkg/jptext"
)

type classRepository interface {
	List(ctx context.Context, year *int) ([]models.SchoolClass, error)
	FindByID(ctx context.Context, classID string) (*models.SchoolClass, error)
	Upsert(ctx context.Context, class *models.SchoolClass) error
}

// ClassInput is the payload for registering or updating a class.
type ClassInput struct {
	ClassID string `json:"class_id"`
	Name    string `json:"name"`
	Grade   int    `json:"grade"`
	Kumi    int    `json:"kumi"`
	Year    int    `json:"year"`
}

// ClassService manages the class reference data.
type ClassService struct {
	repo   classRepository
	logger *zap.Logger
}

// NewClassService constructs the service.
func NewClassService(repo classRepository, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, logger: logger}
}

// List returns classes, optionally limited to one academic year.
func (s *ClassService) List(ctx context.Context, year *int) ([]models.SchoolClass, error) {
	classes, err := s.repo.List(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, nil
}

// Get returns one class.
func (s *ClassService) Get(ctx context.Context, classID string) (*models.SchoolClass, error) {
	class, err := s.repo.FindByID(ctx, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Upsert validates and stores a class.
func (s *ClassService) Upsert(ctx context.Context, input ClassInput) (*models.SchoolClass, error) {
	var details []appErrors.FieldError
	fail := func(field, message string) {
		details = append(details, appErrors.FieldError{Field: field, Message: message})
	}

	classID := jptext.Normalize(strings.TrimSpace(input.ClassID))
	if classID == "" {
		fail("class_id", "class id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		fail("name", "name is required")
	}
	if input.Grade < 1 || input.Grade > 3 {
		fail("grade", "grade must be between 1 and 3")
	}
	if input.Kumi < 1 {
		fail("kumi", "kumi must be a positive number")
	}
	if input.Year < 1 {
		fail("year", "year is required")
	}
	if len(details) > 0 {
		return nil, appErrors.Validation("invalid class payload", details)
	}

	class := &models.SchoolClass{
		ClassID: classID,
		Name:    strings.TrimSpace(input.Name),
		Grade:   input.Grade,
		Kumi:    input.Kumi,
		Year:    input.Year,
	}
	if err := s.repo.Upsert(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store class")
	}
	return class, nil
}
