package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hoken-api/internal/models"
)

// HealthRecordRepository manages persistence for health-check records.
type HealthRecordRepository struct {
	db *sqlx.DB
}

// NewHealthRecordRepository constructs the repository.
func NewHealthRecordRepository(db *sqlx.DB) *HealthRecordRepository {
	return &HealthRecordRepository{db: db}
}

const healthRecordColumns = `hr.id, hr.student_id, hr.year, hr.measured_date, hr.height, hr.weight,
        hr.vision_left, hr.vision_right, hr.vision_left_corrected, hr.vision_right_corrected,
        hr.hearing_left, hr.hearing_right, hr.ophthalmology, hr.ent, hr.internal_medicine,
        hr.hearing_test, hr.tuberculosis_test, hr.urine_test, hr.ecg, hr.created_at, hr.updated_at`

// List returns health records matching the filter.
func (r *HealthRecordRepository) List(ctx context.Context, filter models.HealthRecordFilter) ([]models.HealthRecord, int, error) {
	base := "FROM health_records hr JOIN students s ON s.id = hr.student_id"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("hr.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Year != nil {
		where = append(where, fmt.Sprintf("hr.year = $%d", len(args)+1))
		args = append(args, *filter.Year)
	}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("hr.measured_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("hr.measured_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSort := map[string]string{
		"year":          "hr.year",
		"measured_date": "hr.measured_date",
		"created_at":    "hr.created_at",
	}
	if sortBy == "" {
		sortBy = "year"
	}
	column, ok := allowedSort[sortBy]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidSort, sortBy)
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		healthRecordColumns, base, whereClause, column, order, size, offset)

	var records []models.HealthRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list health records: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count health records: %w", err)
	}
	return records, total, nil
}

// FindByID fetches one health record.
func (r *HealthRecordRepository) FindByID(ctx context.Context, id string) (*models.HealthRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM health_records hr WHERE hr.id = $1", healthRecordColumns)
	var record models.HealthRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByStudentYear returns every record filed for (student, year). The
// duplicate policy compares measured dates against this set; uniqueness is a
// validation-time rule, not a schema constraint.
func (r *HealthRecordRepository) FindByStudentYear(ctx context.Context, studentID string, year int) ([]models.HealthRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM health_records hr WHERE hr.student_id = $1 AND hr.year = $2", healthRecordColumns)
	var records []models.HealthRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID, year); err != nil {
		return nil, fmt.Errorf("find records by student year: %w", err)
	}
	return records, nil
}

const insertHealthRecord = `INSERT INTO health_records (id, student_id, year, measured_date, height, weight,
        vision_left, vision_right, vision_left_corrected, vision_right_corrected,
        hearing_left, hearing_right, ophthalmology, ent, internal_medicine,
        hearing_test, tuberculosis_test, urine_test, ecg, created_at, updated_at)
        VALUES (:id, :student_id, :year, :measured_date, :height, :weight,
        :vision_left, :vision_right, :vision_left_corrected, :vision_right_corrected,
        :hearing_left, :hearing_right, :ophthalmology, :ent, :internal_medicine,
        :hearing_test, :tuberculosis_test, :urine_test, :ecg, :created_at, :updated_at)`

// Create inserts a new health record.
func (r *HealthRecordRepository) Create(ctx context.Context, record *models.HealthRecord) error {
	stampHealthRecord(record)
	if _, err := r.db.NamedExecContext(ctx, insertHealthRecord, record); err != nil {
		return fmt.Errorf("create health record: %w", err)
	}
	return nil
}

// BulkCreate inserts all records in one transaction; any failure rolls the
// whole batch back.
func (r *HealthRecordRepository) BulkCreate(ctx context.Context, records []models.HealthRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk health records: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	for i := range records {
		stampHealthRecord(&records[i])
		if _, err := tx.NamedExecContext(ctx, insertHealthRecord, &records[i]); err != nil {
			return fmt.Errorf("bulk insert health record %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk health records: %w", err)
	}
	committed = true
	return nil
}

// Update modifies an existing health record.
func (r *HealthRecordRepository) Update(ctx context.Context, record *models.HealthRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE health_records SET year = :year, measured_date = :measured_date, height = :height, weight = :weight,
        vision_left = :vision_left, vision_right = :vision_right,
        vision_left_corrected = :vision_left_corrected, vision_right_corrected = :vision_right_corrected,
        hearing_left = :hearing_left, hearing_right = :hearing_right,
        ophthalmology = :ophthalmology, ent = :ent, internal_medicine = :internal_medicine,
        hearing_test = :hearing_test, tuberculosis_test = :tuberculosis_test, urine_test = :urine_test,
        ecg = :ecg, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("update health record: %w", err)
	}
	return nil
}

// Delete removes one health record.
func (r *HealthRecordRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM health_records WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete health record: %w", err)
	}
	return nil
}

func stampHealthRecord(record *models.HealthRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
}
