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

// NursingRepository handles persistence for nursing visits and daily logs.
type NursingRepository struct {
	db *sqlx.DB
}

// NewNursingRepository constructs the repository.
func NewNursingRepository(db *sqlx.DB) *NursingRepository {
	return &NursingRepository{db: db}
}

const nursingVisitColumns = `nv.id, nv.student_id, nv.date, nv.time, nv.category, nv.type, nv.subject, nv.club, nv.event,
        nv.breakfast, nv.bowel_movement, nv.treatment, nv.injury_location, nv.injury_place,
        nv.surgical_treatment, nv.absence_reason, nv.created_at, nv.updated_at`

// ListVisits returns nursing visits matching the filter.
func (r *NursingRepository) ListVisits(ctx context.Context, filter models.NursingVisitFilter) ([]models.NursingVisit, int, error) {
	base := "FROM nursing_visits nv JOIN students s ON s.id = nv.student_id"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("nv.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Category != nil && filter.Category.Valid() {
		where = append(where, fmt.Sprintf("nv.category = $%d", len(args)+1))
		args = append(args, *filter.Category)
	}
	if filter.Type != nil && filter.Type.Valid() {
		where = append(where, fmt.Sprintf("nv.type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("nv.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("nv.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")

	sortBy := filter.SortBy
	allowedSort := map[string]string{
		"date":       "nv.date",
		"time":       "nv.time",
		"category":   "nv.category",
		"created_at": "nv.created_at",
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

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d",
		nursingVisitColumns, base, whereClause, column, order, size, offset)

	var visits []models.NursingVisit
	if err := r.db.SelectContext(ctx, &visits, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list nursing visits: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count nursing visits: %w", err)
	}
	return visits, total, nil
}

// FindVisitByID fetches one nursing visit.
func (r *NursingRepository) FindVisitByID(ctx context.Context, id string) (*models.NursingVisit, error) {
	query := fmt.Sprintf("SELECT %s FROM nursing_visits nv WHERE nv.id = $1", nursingVisitColumns)
	var visit models.NursingVisit
	if err := r.db.GetContext(ctx, &visit, query, id); err != nil {
		return nil, err
	}
	return &visit, nil
}

const insertNursingVisit = `INSERT INTO nursing_visits (id, student_id, date, time, category, type, subject, club, event,
        breakfast, bowel_movement, treatment, injury_location, injury_place, surgical_treatment, absence_reason, created_at, updated_at)
        VALUES (:id, :student_id, :date, :time, :category, :type, :subject, :club, :event,
        :breakfast, :bowel_movement, :treatment, :injury_location, :injury_place, :surgical_treatment, :absence_reason, :created_at, :updated_at)`

// CreateVisit inserts a new nursing visit.
func (r *NursingRepository) CreateVisit(ctx context.Context, visit *models.NursingVisit) error {
	stampNursingVisit(visit)
	if _, err := r.db.NamedExecContext(ctx, insertNursingVisit, visit); err != nil {
		return fmt.Errorf("create nursing visit: %w", err)
	}
	return nil
}

// BulkCreateVisits inserts all visits in one transaction, all or nothing.
func (r *NursingRepository) BulkCreateVisits(ctx context.Context, visits []models.NursingVisit) error {
	if len(visits) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk nursing visits: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()
	for i := range visits {
		stampNursingVisit(&visits[i])
		if _, err := tx.NamedExecContext(ctx, insertNursingVisit, &visits[i]); err != nil {
			return fmt.Errorf("bulk insert nursing visit %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk nursing visits: %w", err)
	}
	committed = true
	return nil
}

// UpdateVisit modifies an existing nursing visit.
func (r *NursingRepository) UpdateVisit(ctx context.Context, visit *models.NursingVisit) error {
	visit.UpdatedAt = time.Now().UTC()
	const query = `UPDATE nursing_visits SET date = :date, time = :time, category = :category, type = :type,
        subject = :subject, club = :club, event = :event, breakfast = :breakfast, bowel_movement = :bowel_movement,
        treatment = :treatment, injury_location = :injury_location, injury_place = :injury_place,
        surgical_treatment = :surgical_treatment, absence_reason = :absence_reason, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, visit); err != nil {
		return fmt.Errorf("update nursing visit: %w", err)
	}
	return nil
}

// DeleteVisit removes one nursing visit.
func (r *NursingRepository) DeleteVisit(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM nursing_visits WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete nursing visit: %w", err)
	}
	return nil
}

// FindLogByDate fetches the daily log for a calendar date.
func (r *NursingRepository) FindLogByDate(ctx context.Context, date time.Time) (*models.NursingLog, error) {
	const query = `SELECT id, date, weather, temperature, humidity, absences, visits, notes, created_at, updated_at
        FROM nursing_logs WHERE date = $1`
	var logRow models.NursingLog
	if err := r.db.GetContext(ctx, &logRow, query, date); err != nil {
		return nil, err
	}
	return &logRow, nil
}

// UpsertLog inserts or replaces the log for its date; one row per date.
func (r *NursingRepository) UpsertLog(ctx context.Context, logRow *models.NursingLog) (*models.NursingLog, error) {
	if logRow.ID == "" {
		logRow.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if logRow.CreatedAt.IsZero() {
		logRow.CreatedAt = now
	}
	logRow.UpdatedAt = now
	const query = `INSERT INTO nursing_logs (id, date, weather, temperature, humidity, absences, visits, notes, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (date)
        DO UPDATE SET weather = EXCLUDED.weather, temperature = EXCLUDED.temperature, humidity = EXCLUDED.humidity,
                absences = EXCLUDED.absences, visits = EXCLUDED.visits, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at
        RETURNING id, date, weather, temperature, humidity, absences, visits, notes, created_at, updated_at`
	var stored models.NursingLog
	if err := r.db.QueryRowxContext(ctx, query, logRow.ID, logRow.Date, logRow.Weather, logRow.Temperature, logRow.Humidity,
		logRow.Absences, logRow.Visits, logRow.Notes, logRow.CreatedAt, logRow.UpdatedAt).StructScan(&stored); err != nil {
		return nil, fmt.Errorf("upsert nursing log: %w", err)
	}
	return &stored, nil
}

func stampNursingVisit(visit *models.NursingVisit) {
	if visit.ID == "" {
		visit.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = now
	}
	visit.UpdatedAt = now
}
