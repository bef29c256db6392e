package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hoken-api/internal/models"
)

// ClassRepository manages the class reference table. Students point at it by
// string key only, so lookups here never gate student writes.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes, optionally restricted to one academic year, ordered
// by (grade, kumi).
func (r *ClassRepository) List(ctx context.Context, year *int) ([]models.SchoolClass, error) {
	query := "SELECT class_id, name, grade, kumi, year, created_at, updated_at FROM classes"
	args := []interface{}{}
	if year != nil {
		query += " WHERE year = $1"
		args = append(args, *year)
	}
	query += " ORDER BY grade, kumi"
	var classes []models.SchoolClass
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// FindByID fetches one class by its string key.
func (r *ClassRepository) FindByID(ctx context.Context, classID string) (*models.SchoolClass, error) {
	const query = "SELECT class_id, name, grade, kumi, year, created_at, updated_at FROM classes WHERE class_id = $1"
	var class models.SchoolClass
	if err := r.db.GetContext(ctx, &class, query, classID); err != nil {
		return nil, err
	}
	return &class, nil
}

// Exists reports whether a class with the given key is registered.
func (r *ClassRepository) Exists(ctx context.Context, classID string) (bool, error) {
	var one int
	if err := r.db.GetContext(ctx, &one, "SELECT 1 FROM classes WHERE class_id = $1 LIMIT 1", classID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check class: %w", err)
	}
	return true, nil
}

// Upsert inserts or updates a class row.
func (r *ClassRepository) Upsert(ctx context.Context, class *models.SchoolClass) error {
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now
	const query = `INSERT INTO classes (class_id, name, grade, kumi, year, created_at, updated_at)
        VALUES (:class_id, :name, :grade, :kumi, :year, :created_at, :updated_at)
        ON CONFLICT (class_id)
        DO UPDATE SET name = EXCLUDED.name, grade = EXCLUDED.grade, kumi = EXCLUDED.kumi, year = EXCLUDED.year, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("upsert class: %w", err)
	}
	return nil
}
