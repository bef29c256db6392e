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

// AttendanceRepository handles persistence for attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// List returns attendance rows matching the provided filter.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error) {
	base := "FROM attendance_records ar JOIN students s ON s.id = ar.student_id"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("ar.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != nil && filter.Status.Valid() {
		where = append(where, fmt.Sprintf("ar.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("ar.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("ar.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSort := map[string]string{
		"date":       "ar.date",
		"status":     "ar.status",
		"created_at": "ar.created_at",
	}
	if sortBy == "" {
		sortBy = "date"
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

	query := fmt.Sprintf(`SELECT ar.id, ar.student_id, ar.date, ar.status, ar.arrival_time, ar.departure_time, ar.notes, ar.created_at, ar.updated_at
        %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, base, whereClause, column, order, size, offset)

	var rows []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attendance: %w", err)
	}
	return rows, total, nil
}

// FindByID fetches one attendance record.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	const query = `SELECT id, student_id, date, status, arrival_time, departure_time, notes, created_at, updated_at
        FROM attendance_records WHERE id = $1`
	var rec models.AttendanceRecord
	if err := r.db.GetContext(ctx, &rec, query, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert inserts or updates the record for (student, date).
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) (*models.AttendanceRecord, error) {
	stampAttendance(record)
	const query = `INSERT INTO attendance_records (id, student_id, date, status, arrival_time, departure_time, notes, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (student_id, date)
        DO UPDATE SET status = EXCLUDED.status, arrival_time = EXCLUDED.arrival_time, departure_time = EXCLUDED.departure_time,
                notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
        RETURNING id, student_id, date, status, arrival_time, departure_time, notes, created_at, updated_at`
	var stored models.AttendanceRecord
	if err := r.db.QueryRowxContext(ctx, query, record.ID, record.StudentID, record.Date, record.Status,
		record.ArrivalTime, record.DepartureTime, record.Notes, record.CreatedAt, record.UpdatedAt).StructScan(&stored); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// BulkUpsert writes all records in a single transaction. Either every row
// lands or none does.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []models.AttendanceRecord) ([]models.AttendanceRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk attendance: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	const query = `INSERT INTO attendance_records (id, student_id, date, status, arrival_time, departure_time, notes, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (student_id, date)
        DO UPDATE SET status = EXCLUDED.status, arrival_time = EXCLUDED.arrival_time, departure_time = EXCLUDED.departure_time,
                notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
        RETURNING id, student_id, date, status, arrival_time, departure_time, notes, created_at, updated_at`
	stored := make([]models.AttendanceRecord, 0, len(records))
	for i := range records {
		rec := &records[i]
		stampAttendance(rec)
		var row models.AttendanceRecord
		if err := tx.QueryRowxContext(ctx, query, rec.ID, rec.StudentID, rec.Date, rec.Status,
			rec.ArrivalTime, rec.DepartureTime, rec.Notes, rec.CreatedAt, rec.UpdatedAt).StructScan(&row); err != nil {
			return nil, fmt.Errorf("bulk upsert attendance row %d: %w", i, err)
		}
		stored = append(stored, row)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk attendance: %w", err)
	}
	committed = true
	return stored, nil
}

// Delete removes one attendance record.
func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM attendance_records WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}

func stampAttendance(record *models.AttendanceRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
}
