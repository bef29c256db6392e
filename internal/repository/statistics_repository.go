package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hoken-api/internal/models"
)

// StatisticsRepository selects the measurement rows statistics are computed
// over. Aggregation itself happens in the service so the per-record BMI rule
// and the empty-set short-circuit live in one testable place.
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository constructs the repository.
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// Measurements returns records with both height and weight present, matching
// the filter. Records missing either measurement are excluded here; they
// still appear in plain record listings elsewhere.
func (r *StatisticsRepository) Measurements(ctx context.Context, filter models.StatisticsFilter) ([]models.MeasurementRow, error) {
	where := []string{"hr.height IS NOT NULL", "hr.weight IS NOT NULL"}
	args := []interface{}{}
	if filter.Year != nil {
		where = append(where, fmt.Sprintf("hr.year = $%d", len(args)+1))
		args = append(args, *filter.Year)
	}
	if filter.Grade != nil {
		where = append(where, fmt.Sprintf("s.grade_id = $%d", len(args)+1))
		args = append(args, *filter.Grade)
	}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}

	query := fmt.Sprintf(`SELECT hr.student_id, s.grade_id, s.class_id, hr.year, hr.height, hr.weight, hr.vision_left, hr.vision_right
        FROM health_records hr
        JOIN students s ON s.id = hr.student_id
        WHERE %s
        ORDER BY s.grade_id, s.class_id, hr.year`, strings.Join(where, " AND "))

	var rows []models.MeasurementRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select measurements: %w", err)
	}
	return rows, nil
}
