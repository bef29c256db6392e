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

type attendanceRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error)
	Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error)
	BulkUpsert(ctx context.Context, records []models.AttendanceRecord) ([]models.AttendanceRecord, error)
	Delete(ctx context.Context, id string) error
}

// AttendanceInput is the payload for storing one attendance row.
type AttendanceInput struct {
	StudentID     string  `json:"student_id"`
	Date          string  `json:"date"`
	Status        string  `json:"status"`
	ArrivalTime   *string `json:"arrival_time"`
	DepartureTime *string `json:"departure_time"`
	Notes         *string `json:"notes"`
}

// BulkAttendanceInput stores many rows that share one date.
type BulkAttendanceInput struct {
	Date    string            `json:"date"`
	Records []AttendanceInput `json:"records"`
}

// AttendanceService handles attendance use-cases.
type AttendanceService struct {
	repo     attendanceRepository
	students studentLookup
	logger   *zap.Logger
}

// NewAttendanceService constructs the service.
func NewAttendanceService(repo attendanceRepository, students studentLookup, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, students: students, logger: logger}
}

// List returns attendance records matching the filter.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSort) {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidArgument, err.Error())
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one attendance record.
func (s *AttendanceService) Get(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	return record, nil
}

// Store validates and upserts one attendance row; (student, date) is the
// natural key.
func (s *AttendanceService) Store(ctx context.Context, input AttendanceInput) (*models.AttendanceRecord, error) {
	record, details := validateAttendance(input, input.Date)
	if len(details) > 0 {
		return nil, appErrors.Validation("invalid attendance payload", details)
	}
	if err := s.ensureStudent(ctx, record.StudentID); err != nil {
		return nil, err
	}
	stored, err := s.repo.Upsert(ctx, record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance")
	}
	return stored, nil
}

// BulkStore validates the whole batch and writes it in one transaction.
// Any invalid row rejects the batch with every failure enumerated.
func (s *AttendanceService) BulkStore(ctx context.Context, input BulkAttendanceInput) ([]models.AttendanceRecord, error) {
	if len(input.Records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "no records supplied")
	}
	var details []appErrors.FieldError
	records := make([]models.AttendanceRecord, 0, len(input.Records))
	seen := make(map[string]int, len(input.Records))
	for i, row := range input.Records {
		date := row.Date
		if date == "" {
			date = input.Date
		}
		record, rowDetails := validateAttendance(row, date)
		for _, d := range rowDetails {
			details = append(details, appErrors.FieldError{
				Field:   fmt.Sprintf("records[%d].%s", i, d.Field),
				Message: d.Message,
			})
		}
		if len(rowDetails) > 0 {
			continue
		}
		key := record.StudentID + "@" + record.Date.Format("2006-01-02")
		if prev, ok := seen[key]; ok {
			details = append(details, appErrors.FieldError{
				Field:   fmt.Sprintf("records[%d]", i),
				Message: fmt.Sprintf("duplicates records[%d] for the same student and date", prev),
			})
			continue
		}
		seen[key] = i
		records = append(records, *record)
	}
	if len(details) > 0 {
		return nil, appErrors.Validation("invalid bulk attendance payload", details)
	}
	for i := range records {
		if err := s.ensureStudent(ctx, records[i].StudentID); err != nil {
			return nil, err
		}
	}
	stored, err := s.repo.BulkUpsert(ctx, records)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance batch")
	}
	return stored, nil
}

// Delete removes one attendance record.
func (s *AttendanceService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance record")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attendance record")
	}
	return nil
}

func (s *AttendanceService) ensureStudent(ctx context.Context, studentID string) error {
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

func validateAttendance(input AttendanceInput, rawDate string) (*models.AttendanceRecord, []appErrors.FieldError) {
	var details []appErrors.FieldError
	fail := func(field, message string) {
		details = append(details, appErrors.FieldError{Field: field, Message: message})
	}

	if strings.TrimSpace(input.StudentID) == "" {
		fail("student_id", "student is required")
	}

	var date time.Time
	if rawDate == "" {
		fail("date", "date is required")
	} else if d, err := time.Parse("2006-01-02", jptext.Normalize(rawDate)); err != nil {
		fail("date", "date must be a valid date (YYYY-MM-DD)")
	} else {
		date = d
	}

	status := models.AttendanceStatus(input.Status)
	if !status.Valid() {
		fail("status", "status must be one of present, absent, late, early_leave")
	}

	return &models.AttendanceRecord{
		StudentID:     strings.TrimSpace(input.StudentID),
		Date:          date,
		Status:        status,
		ArrivalTime:   input.ArrivalTime,
		DepartureTime: input.DepartureTime,
		Notes:         input.Notes,
	}, details
}
