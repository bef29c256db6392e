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
	"github.com/noah-isme/hoken-api/pkg/clock"
	appErrors "github.com/noah-isme/hoken-api/pkg/errors"
	"github.com/noah-isme/hoken-api/pkg/jptext"
)

type healthRecordRepository interface {
	List(ctx context.Context, filter models.HealthRecordFilter) ([]models.HealthRecord, int, error)
	FindByID(ctx context.Context, id string) (*models.HealthRecord, error)
	FindByStudentYear(ctx context.Context, studentID string, year int) ([]models.HealthRecord, error)
	Create(ctx context.Context, record *models.HealthRecord) error
	BulkCreate(ctx context.Context, records []models.HealthRecord) error
	Update(ctx context.Context, record *models.HealthRecord) error
	Delete(ctx context.Context, id string) error
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// HealthRecordInput is the payload for creating or updating health records.
// Numeric fields arrive as strings so full-width digits normalize before
// parsing; the validate tags run against the normalized copy.
type HealthRecordInput struct {
	StudentID        string             `json:"student_id" validate:"required"`
	Year             string             `json:"year" validate:"required,academic_year"`
	MeasuredDate     string             `json:"measured_date" validate:"omitempty,datetime=2006-01-02"`
	Height           string             `json:"height" validate:"omitempty,measurement=300"`
	Weight           string             `json:"weight" validate:"omitempty,measurement=200"`
	VisionLeft       string             `json:"vision_left" validate:"omitempty,vision_grade"`
	VisionRight      string             `json:"vision_right" validate:"omitempty,vision_grade"`
	VisionLeftCorr   string             `json:"vision_left_corrected" validate:"omitempty,vision_grade"`
	VisionRightCorr  string             `json:"vision_right_corrected" validate:"omitempty,vision_grade"`
	HearingLeft      *string            `json:"hearing_left"`
	HearingRight     *string            `json:"hearing_right"`
	Ophthalmology    *string            `json:"ophthalmology"`
	ENT              *string            `json:"ent"`
	InternalMedicine *string            `json:"internal_medicine"`
	HearingTest      *string            `json:"hearing_test"`
	TuberculosisTest *string            `json:"tuberculosis_test"`
	UrineTest        *string            `json:"urine_test"`
	ECG              []models.ECGResult `json:"ecg"`
}

// HealthRecordService handles health-record use-cases including the
// duplicate policy: uniqueness is keyed on (student, year, measured date),
// checked at validation time rather than by a schema constraint.
type HealthRecordService struct {
	repo      healthRecordRepository
	students  studentLookup
	validator *validator.Validate
	cache     *CacheService
	clk       clock.Clock
	minYear   int
	logger    *zap.Logger
}

// NewHealthRecordService constructs the service.
func NewHealthRecordService(repo healthRecordRepository, students studentLookup, validate *validator.Validate, cache *CacheService, clk clock.Clock, minYear int, logger *zap.Logger) *HealthRecordService {
	if validate == nil {
		validate = validator.New()
	}
	if clk == nil {
		clk = clock.System()
	}
	if minYear <= 0 {
		minYear = 2020
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &HealthRecordService{repo: repo, students: students, validator: validate, cache: cache, clk: clk, minYear: minYear, logger: logger}
	registerJSONTagNames(svc.validator)
	svc.validator.RegisterValidation("academic_year", func(fl validator.FieldLevel) bool {
		y, err := strconv.Atoi(fl.Field().String())
		return err == nil && y >= svc.minYear && y <= svc.clk.Now().Year()+1
	})
	svc.validator.RegisterValidation("measurement", func(fl validator.FieldLevel) bool {
		raw := fl.Field().String()
		max, err := strconv.ParseFloat(fl.Param(), 64)
		if err != nil {
			return false
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > max {
			return false
		}
		if idx := strings.IndexByte(raw, '.'); idx >= 0 && len(raw)-idx-1 > 2 {
			return false
		}
		return true
	})
	svc.validator.RegisterValidation("vision_grade", func(fl validator.FieldLevel) bool {
		return models.VisionGrade(fl.Field().String()).Valid()
	})
	svc.validator.RegisterStructValidation(measurementStructRules, HealthRecordInput{})
	return svc
}

// measurementStructRules holds the cross-field constraints: a record needs
// at least one measurement, and a complete height/weight pair must yield a
// plausible BMI. A zero height with a weight present is rejected here; it
// would divide to infinity downstream.
func measurementStructRules(sl validator.StructLevel) {
	input := sl.Current().Interface().(HealthRecordInput)
	if input.Height == "" && input.Weight == "" {
		sl.ReportError(input.Height, "height", "Height", "measurement_present", "")
		sl.ReportError(input.Weight, "weight", "Weight", "measurement_present", "")
		return
	}
	if input.Height == "" || input.Weight == "" {
		return
	}
	height, herr := strconv.ParseFloat(input.Height, 64)
	weight, werr := strconv.ParseFloat(input.Weight, 64)
	if herr != nil || werr != nil {
		return
	}
	if height <= 0 {
		sl.ReportError(input.Weight, "weight", "Weight", "bmi_plausible", "")
		return
	}
	meters := height / 100
	if bmi := weight / (meters * meters); bmi < 10 || bmi > 50 {
		sl.ReportError(input.Weight, "weight", "Weight", "bmi_plausible", "")
	}
}

// List returns health records matching the filter.
func (s *HealthRecordService) List(ctx context.Context, filter models.HealthRecordFilter) ([]models.HealthRecord, *models.Pagination, error) {
	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSort) {
			return nil, nil, appErrors.Clone(appErrors.ErrInvalidArgument, err.Error())
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list health records")
	}
	return records, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one health record.
func (s *HealthRecordService) Get(ctx context.Context, id string) (*models.HealthRecord, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "health record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load health record")
	}
	return record, nil
}

// Create validates and persists one health record.
func (s *HealthRecordService) Create(ctx context.Context, input HealthRecordInput) (*models.HealthRecord, error) {
	record, details := s.validate(input)
	if len(details) > 0 {
		return nil, appErrors.Validation("invalid health record payload", details)
	}
	if err := s.ensureStudent(ctx, record.StudentID); err != nil {
		return nil, err
	}
	if err := s.checkDuplicate(ctx, record, nil); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create health record")
	}
	s.invalidateStats(ctx)
	return record, nil
}

// BulkCreate validates the whole batch first and persists it atomically.
// A single bad row rejects the batch; every row's failures are enumerated.
func (s *HealthRecordService) BulkCreate(ctx context.Context, inputs []HealthRecordInput) ([]models.HealthRecord, error) {
	if len(inputs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "no records supplied")
	}
	var details []appErrors.FieldError
	records := make([]models.HealthRecord, 0, len(inputs))
	type dupKey struct {
		student string
		year    int
		date    string
	}
	seen := make(map[dupKey]int, len(inputs))
	for i, input := range inputs {
		record, rowDetails := s.validate(input)
		for _, d := range rowDetails {
			details = append(details, appErrors.FieldError{
				Field:   fmt.Sprintf("records[%d].%s", i, d.Field),
				Message: d.Message,
			})
		}
		if len(rowDetails) > 0 {
			continue
		}
		key := dupKey{student: record.StudentID, year: record.Year, date: dateKey(record.MeasuredDate)}
		if prev, ok := seen[key]; ok {
			details = append(details, appErrors.FieldError{
				Field:   fmt.Sprintf("records[%d]", i),
				Message: fmt.Sprintf("duplicates records[%d] for the same student, year and measured date", prev),
			})
			continue
		}
		seen[key] = i
		records = append(records, *record)
	}
	if len(details) > 0 {
		return nil, appErrors.Validation("invalid bulk health record payload", details)
	}
	for i := range records {
		if err := s.ensureStudent(ctx, records[i].StudentID); err != nil {
			return nil, err
		}
		if err := s.checkDuplicate(ctx, &records[i], nil); err != nil {
			return nil, err
		}
	}
	if err := s.repo.BulkCreate(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store health records")
	}
	s.invalidateStats(ctx)
	return records, nil
}

// Update validates and persists changes to an existing record. The owning
// student is fixed at creation; a student_id in the payload is ignored so
// the duplicate check and the response stay scoped to the stored student.
func (s *HealthRecordService) Update(ctx context.Context, id string, input HealthRecordInput) (*models.HealthRecord, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "health record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load health record")
	}
	record, details := s.validate(input)
	if len(details) > 0 {
		return nil, appErrors.Validation("invalid health record payload", details)
	}
	record.ID = existing.ID
	record.StudentID = existing.StudentID
	record.CreatedAt = existing.CreatedAt
	if err := s.checkDuplicate(ctx, record, &existing.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update health record")
	}
	s.invalidateStats(ctx)
	return record, nil
}

// Delete removes one record.
func (s *HealthRecordService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "health record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load health record")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete health record")
	}
	s.invalidateStats(ctx)
	return nil
}

// validate normalizes the payload, runs the tag and struct rules, and builds
// the record. All failing fields are reported together; the record is only
// meaningful when no details came back.
func (s *HealthRecordService) validate(input HealthRecordInput) (*models.HealthRecord, []appErrors.FieldError) {
	norm := input
	norm.StudentID = strings.TrimSpace(input.StudentID)
	norm.Year = jptext.Normalize(strings.TrimSpace(input.Year))
	norm.MeasuredDate = jptext.Normalize(strings.TrimSpace(input.MeasuredDate))
	norm.Height = jptext.Normalize(strings.TrimSpace(input.Height))
	norm.Weight = jptext.Normalize(strings.TrimSpace(input.Weight))
	norm.VisionLeft = strings.ToUpper(strings.TrimSpace(input.VisionLeft))
	norm.VisionRight = strings.ToUpper(strings.TrimSpace(input.VisionRight))
	norm.VisionLeftCorr = strings.ToUpper(strings.TrimSpace(input.VisionLeftCorr))
	norm.VisionRightCorr = strings.ToUpper(strings.TrimSpace(input.VisionRightCorr))

	if err := s.validator.Struct(norm); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fieldDetails(verrs, s.fieldMessage)
		}
		return nil, []appErrors.FieldError{{Field: "payload", Message: "failed to validate health record"}}
	}

	// The tag rules guarantee these parse.
	year, _ := strconv.Atoi(norm.Year)
	var measuredDate *time.Time
	if norm.MeasuredDate != "" {
		d, _ := time.Parse("2006-01-02", norm.MeasuredDate)
		measuredDate = &d
	}

	record := &models.HealthRecord{
		StudentID:        norm.StudentID,
		Year:             year,
		MeasuredDate:     measuredDate,
		Height:           measurePtr(norm.Height),
		Weight:           measurePtr(norm.Weight),
		VisionLeft:       visionGradePtr(norm.VisionLeft),
		VisionRight:      visionGradePtr(norm.VisionRight),
		VisionLeftCorr:   visionGradePtr(norm.VisionLeftCorr),
		VisionRightCorr:  visionGradePtr(norm.VisionRightCorr),
		HearingLeft:      input.HearingLeft,
		HearingRight:     input.HearingRight,
		Ophthalmology:    input.Ophthalmology,
		ENT:              input.ENT,
		InternalMedicine: input.InternalMedicine,
		HearingTest:      input.HearingTest,
		TuberculosisTest: input.TuberculosisTest,
		UrineTest:        input.UrineTest,
		ECG:              input.ECG,
	}
	return record, nil
}

func (s *HealthRecordService) fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "student_id" {
			return "student is required"
		}
		return "academic year is required"
	case "academic_year":
		raw, _ := fe.Value().(string)
		if _, err := strconv.Atoi(raw); err != nil {
			return "academic year must be an integer"
		}
		return fmt.Sprintf("academic year must be between %d and %d", s.minYear, s.clk.Now().Year()+1)
	case "datetime":
		return "measured date must be a valid date (YYYY-MM-DD)"
	case "measurement":
		max, _ := strconv.ParseFloat(fe.Param(), 64)
		return measureMessage(fe.Field(), fe.Value(), max)
	case "measurement_present":
		return "at least one of height and weight must be supplied"
	case "bmi_plausible":
		return "height/weight combination is implausible"
	case "vision_grade":
		return fe.Field() + " must be one of A, B, C, D"
	}
	return fe.Field() + " is invalid"
}

func measureMessage(field string, value interface{}, max float64) string {
	raw, _ := value.(string)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return field + " must be numeric"
	}
	if v < 0 || v > max {
		return fmt.Sprintf("%s must be between 0 and %g", field, max)
	}
	return field + " allows at most 2 decimal places"
}

// checkDuplicate enforces the scoped uniqueness rule: another record for the
// same (student, year) conflicts only when its measured date matches (two
// absent dates also collide). excludeID skips self on update.
func (s *HealthRecordService) checkDuplicate(ctx context.Context, record *models.HealthRecord, excludeID *string) error {
	existing, err := s.repo.FindByStudentYear(ctx, record.StudentID, record.Year)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicates")
	}
	for i := range existing {
		if excludeID != nil && existing[i].ID == *excludeID {
			continue
		}
		if dateKey(existing[i].MeasuredDate) == dateKey(record.MeasuredDate) {
			return appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("a health record for year %d already exists for this student; supply a distinct measured date", record.Year))
		}
	}
	return nil
}

func (s *HealthRecordService) ensureStudent(ctx context.Context, studentID string) error {
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

func (s *HealthRecordService) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "stats:*"); err != nil {
		s.logger.Warn("invalidate statistics cache", zap.Error(err))
	}
}

func measurePtr(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, _ := strconv.ParseFloat(raw, 64)
	return &v
}

func visionGradePtr(raw string) *models.VisionGrade {
	if raw == "" {
		return nil
	}
	grade := models.VisionGrade(raw)
	return &grade
}

func dateKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
