package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hoken-api/internal/models"
	"github.com/noah-isme/hoken-api/internal/repository"
	appErrors "github.com/noah-isme/hoken-api/pkg/errors"
	"github.com/noah-isme/hoken-api/pkg/jptext"
)

type nursingRepository interface {
	ListVisits(ctx context.Context, filter models.NursingVisitFilter) ([]models.NursingVisit, int, error)
	FindVisitByID(ctx context.Context, id string) (*models.NursingVisit, error)
	CreateVisit(ctx context.Context, visit *models.NursingVisit) error
	BulkCreateVisits(ctx context.Context, visits []models.NursingVisit) error
	UpdateVisit(ctx context.Context, visit *models.NursingVisit) error
	DeleteVisit(ctx context.Context, id string) error
	FindLogByDate(ctx context.Context, date time.Time) (*models.NursingLog, error)
	UpsertLog(ctx context.Context, logRow *models.NursingLog) (*models.NursingLog, error)
}

// NursingVisitInput is the payload for nursing-room visits.
type NursingVisitInput struct {
	StudentID         string  `json:"student_id"`
	Date              string  `json:"date"`
	Time              string  `json:"time"`
	Category          string  `json:"category"`
	Type              string  `json:"type"`
	Subject           *string `json:"subject"`
	Club              *string `json:"club"`
	Event             *string `json:"event"`
	Breakfast         *string `json:"breakfast"`
	BowelMovement     *string `json:"bowel_movement"`
	Treatment         *string `json:"treatment"`
	InjuryLocation    *string `json:"injury_location"`
	InjuryPlace       *string `json:"injury_place"`
	SurgicalTreatment *string `json:"surgical_treatment"`
	AbsenceReason     *string `json:"absence_reason"`
}

// NursingLogInput is the payload for the daily health-room log.
type NursingLogInput struct {
	Date        string             `json:"date"`
	Weather     *string            `json:"weather"`
	Temperature *float64           `json:"temperature"`
	Humidity    *float64           `json:"humidity"`
	Absences    models.LogAbsences `json:"absences"`
	Visits      models.LogVisits   `json:"visits"`
	Notes       *string            `json:"notes"`
}

// NursingService handles nursing-room visits and the daily log.
type NursingService struct {
	repo     nursingRepository
	students studentLookup
	logger   *zap.Logger
}

// NewNursingService constructs the service.
func NewNursingService(repo nursingRepository, students studentLookup, logger *zap.Logger) *NursingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NursingService{repo: repo, students: students, logger: logger}
}

// ListVisits returns nursing visits matching the filter.
func (s *NursingService) ListVisits(ctx context.Context, filter models.NursingVisitFilter) ([]models.NursingVisit, *models.Pagination, error) {
	visits, total, err := s.repo.ListVisits(ctx, filter)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSort) {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidArgument, err.Error())
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list nursing visits")
	}
	return visits, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// GetVisit returns one nursing visit.
func (s *NursingService) GetVisit(ctx context.Context, id string) (*models.NursingVisit, error) {
	visit, err := s.repo.FindVisitByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "nursing visit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load nursing visit")
	}
	return visit, nil
}

// CreateVisit validates and persists one visit.
func (s *NursingService) CreateVisit(ctx context.Context, input NursingVisitInput) (*models.NursingVisit, error) {
	visit, details := validateNursingVisit(input)
	if len(details) > 0 {
		return nil, appErrors.Validation("invalid nursing visit payload", details)
	}
	if err := s.ensureStudent(ctx, visit.StudentID); err != nil {
		return nil, err
	}
	if err := s.repo.CreateVisit(ctx, visit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create nursing visit")
	}
	return visit, nil
}

// BulkCreateVisits validates the whole batch and writes it atomically.
func (s *NursingService) BulkCreateVisits(ctx context.Context, inputs []NursingVisitInput) ([]models.NursingVisit, error) {
	if len(inputs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "no visits supplied")
	}
	var details []appErrors.FieldError
	visits := make([]models.NursingVisit, 0, len(inputs))
	for i, input := range inputs {
		visit, rowDetails := validateNursingVisit(input)
		for _, d := range rowDetails {
			details = append(details, appErrors.FieldError{
				Field:   fmt.Sprintf("visits[%d].%s", i, d.Field),
				Message: d.Message,
			})
		}
		if len(rowDetails) > 0 {
			continue
		}
		visits = append(visits, *visit)
	}
	if len(details) > 0 {
		return nil, appErrors.Validation("invalid bulk nursing visit payload", details)
	}
	for i := range visits {
		if err := s.ensureStudent(ctx, visits[i].StudentID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.BulkCreateVisits(ctx, visits); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store nursing visits")
	}
	return visits, nil
}

// UpdateVisit modifies an existing visit.
func (s *NursingService) UpdateVisit(ctx context.Context, id string, input NursingVisitInput) (*models.NursingVisit, error) {
	existing, err := s.repo.FindVisitByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "nursing visit not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load nursing visit")
	}
	visit, details := validateNursingVisit(input)
	if len(details) > 0 {
		return nil, appErrors.Validation("invalid nursing visit payload", details)
	}
	visit.ID = existing.ID
	visit.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdateVisit(ctx, visit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update nursing visit")
	}
	return visit, nil
}

// DeleteVisit removes one visit.
func (s *NursingService) DeleteVisit(ctx context.Context, id string) error {
	if _, err := s.repo.FindVisitByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "nursing visit not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load nursing visit")
	}
	if err := s.repo.DeleteVisit(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete nursing visit")
	}
	return nil
}

// GetLog returns the daily log for a date.
func (s *NursingService) GetLog(ctx context.Context, rawDate string) (*models.NursingLog, error) {
	date, err := time.Parse("2006-01-02", jptext.Normalize(rawDate))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "date must be a valid date (YYYY-MM-DD)")
	}
	logRow, err := s.repo.FindLogByDate(ctx, date)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "nursing log not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load nursing log")
	}
	return logRow, nil
}

// StoreLog validates and upserts the daily log; one row per calendar date.
func (s *NursingService) StoreLog(ctx context.Context, input NursingLogInput) (*models.NursingLog, error) {
	var details []appErrors.FieldError
	var date time.Time
	if input.Date == "" {
		details = append(details, appErrors.FieldError{Field: "date", Message: "date is required"})
	} else if d, err := time.Parse("2006-01-02", jptext.Normalize(input.Date)); err != nil {
		details = append(details, appErrors.FieldError{Field: "date", Message: "date must be a valid date (YYYY-MM-DD)"})
	} else {
		date = d
	}
	if input.Humidity != nil && (*input.Humidity < 0 || *input.Humidity > 100) {
		details = append(details, appErrors.FieldError{Field: "humidity", Message: "humidity must be between 0 and 100"})
	}
	if len(details) > 0 {
		return nil, appErrors.Validation("invalid nursing log payload", details)
	}
	logRow := &models.NursingLog{
		Date:        date,
		Weather:     input.Weather,
		Temperature: input.Temperature,
		Humidity:    input.Humidity,
		Absences:    input.Absences,
		Visits:      input.Visits,
		Notes:       input.Notes,
	}
	stored, err := s.repo.UpsertLog(ctx, logRow)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store nursing log")
	}
	return stored, nil
}

func (s *NursingService) ensureStudent(ctx context.Context, studentID string) error {
	if s.students == nil {
		return nil
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return nil
}

func validateNursingVisit(input NursingVisitInput) (*models.NursingVisit, []appErrors.FieldError) {
	var details []appErrors.FieldError
	fail := func(field, message string) {
		details = append(details, appErrors.FieldError{Field: field, Message: message})
	}

	if strings.TrimSpace(input.StudentID) == "" {
		fail("student_id", "student is required")
	}

	var date time.Time
	if input.Date == "" {
		fail("date", "date is required")
	} else if d, err := time.Parse("2006-01-02", jptext.Normalize(input.Date)); err != nil {
		fail("date", "date must be a valid date (YYYY-MM-DD)")
	} else {
		date = d
	}

	visitTime := jptext.Normalize(strings.TrimSpace(input.Time))
	if visitTime == "" {
		fail("time", "time is required")
	} else if _, err := time.Parse("15:04", visitTime); err != nil {
		fail("time", "time must be HH:MM")
	}

	category := models.VisitCategory(input.Category)
	if !category.Valid() {
		fail("category", "category must be one of internal, surgical, absence, other")
	}
	visitType := models.VisitType(input.Type)
	if !visitType.Valid() {
		fail("type", "type must be one of illness, injury, consultation, other")
	}

	return &models.NursingVisit{
		StudentID:         strings.TrimSpace(input.StudentID),
		Date:              date,
		Time:              visitTime,
		Category:          category,
		Type:              visitType,
		Subject:           input.Subject,
		Club:              input.Club,
		Event:             input.Event,
		Breakfast:         input.Breakfast,
		BowelMovement:     input.BowelMovement,
		Treatment:         input.Treatment,
		InjuryLocation:    input.InjuryLocation,
		InjuryPlace:       input.InjuryPlace,
		SurgicalTreatment: input.SurgicalTreatment,
		AbsenceReason:     input.AbsenceReason,
	}, details
}
