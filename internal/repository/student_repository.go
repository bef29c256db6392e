package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hoken-api/internal/models"
	"github.com/noah-isme/hoken-api/pkg/jptext"
)

// ErrInvalidSort is returned when a caller asks for a sort field outside the
// allow-list. Services map it onto an invalid-argument response.
var ErrInvalidSort = errors.New("invalid sort field")

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `s.id, s.student_id, s.name, s.name_kana, s.student_number, s.gender, s.birth_date,
        s.class_id, s.grade_id, s.status, s.allergies, s.conditions, s.medications, s.notes, s.created_at, s.updated_at`

// List returns students matching the provided filter together with the total
// match count. Free-text terms are OR'd across terms and across the identity
// fields; the structured filters are AND'd with the text match.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s LEFT JOIN classes c ON c.class_id = s.class_id"
	conditions := []string{"1=1"}
	args := []interface{}{}

	if terms := jptext.SplitTerms(filter.Search); len(terms) > 0 {
		termConds := make([]string, 0, len(terms))
		for _, term := range terms {
			n := len(args) + 1
			termConds = append(termConds, fmt.Sprintf(
				"(LOWER(s.name) LIKE $%d OR LOWER(s.name_kana) LIKE $%d OR LOWER(s.student_id) LIKE $%d OR CAST(s.student_number AS TEXT) LIKE $%d)",
				n, n, n, n))
			args = append(args, "%"+strings.ToLower(term)+"%")
		}
		conditions = append(conditions, "("+strings.Join(termConds, " OR ")+")")
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("s.class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.GradeID != nil {
		conditions = append(conditions, fmt.Sprintf("s.grade_id = $%d", len(args)+1))
		args = append(args, *filter.GradeID)
	}
	if filter.Gender != nil {
		conditions = append(conditions, fmt.Sprintf("s.gender = $%d", len(args)+1))
		args = append(args, *filter.Gender)
	}
	if filter.NumberMin != nil {
		conditions = append(conditions, fmt.Sprintf("s.student_number >= $%d", len(args)+1))
		args = append(args, *filter.NumberMin)
	}
	if filter.NumberMax != nil {
		conditions = append(conditions, fmt.Sprintf("s.student_number <= $%d", len(args)+1))
		args = append(args, *filter.NumberMax)
	}
	if filter.HasHealthRecords != nil {
		if *filter.HasHealthRecords {
			conditions = append(conditions, "EXISTS (SELECT 1 FROM health_records hr WHERE hr.student_id = s.id)")
		} else {
			conditions = append(conditions, "NOT EXISTS (SELECT 1 FROM health_records hr WHERE hr.student_id = s.id)")
		}
	}
	if filter.RecordYear != nil && filter.HasRecordForYear != nil {
		exists := "EXISTS"
		if !*filter.HasRecordForYear {
			exists = "NOT EXISTS"
		}
		conditions = append(conditions, fmt.Sprintf("%s (SELECT 1 FROM health_records hr WHERE hr.student_id = s.id AND hr.year = $%d)", exists, len(args)+1))
		args = append(args, *filter.RecordYear)
	}

	whereClause := strings.Join(conditions, " AND ")

	orderBy, err := studentOrderClause(filter.SortBy, filter.SortOrder)
	if err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s,
        (SELECT COUNT(*) FROM health_records hr WHERE hr.student_id = s.id) AS health_record_count,
        (SELECT MAX(hr.year) FROM health_records hr WHERE hr.student_id = s.id) AS latest_record_year
        %s WHERE %s ORDER BY %s LIMIT %d OFFSET %d`, studentColumns, base, whereClause, orderBy, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

func studentOrderClause(sortBy, sortOrder string) (string, error) {
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	if sortBy == "" {
		sortBy = "student_id"
	}
	switch sortBy {
	case "class":
		// Class ordering is (grade, kumi); the attendance number is always
		// an ascending tiebreak regardless of the requested direction.
		return fmt.Sprintf("c.grade %s, c.kumi %s, s.student_number ASC", order, order), nil
	case "health_records_count":
		return fmt.Sprintf("health_record_count %s, s.student_id ASC", order), nil
	}
	allowed := map[string]string{
		"student_id":     "s.student_id",
		"name":           "s.name",
		"name_kana":      "s.name_kana",
		"student_number": "s.student_number",
		"grade_id":       "s.grade_id",
		"birth_date":     "s.birth_date",
		"created_at":     "s.created_at",
	}
	column, ok := allowed[sortBy]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidSort, sortBy)
	}
	return fmt.Sprintf("%s %s", column, order), nil
}

// Suggestions returns up to limit distinct strings matching the query across
// name, kana and student id, in that field order, de-duplicated while
// preserving first-seen order.
func (r *StudentRepository) Suggestions(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + strings.ToLower(jptext.Normalize(query)) + "%"

	fields := []string{"name", "name_kana", "student_id"}
	seen := make(map[string]struct{}, limit)
	out := make([]string, 0, limit)
	for _, field := range fields {
		q := fmt.Sprintf("SELECT DISTINCT %s FROM students WHERE LOWER(%s) LIKE $1 ORDER BY %s LIMIT $2", field, field, field)
		var values []string
		if err := r.db.SelectContext(ctx, &values, q, pattern, limit); err != nil {
			return nil, fmt.Errorf("suggest %s: %w", field, err)
		}
		for _, v := range values {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
			if len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// FindByID fetches a student with health-record context by primary key.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s,
        (SELECT COUNT(*) FROM health_records hr WHERE hr.student_id = s.id) AS health_record_count,
        (SELECT MAX(hr.year) FROM health_records hr WHERE hr.student_id = s.id) AS latest_record_year
        FROM students s WHERE s.id = $1`, studentColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByStudentID checks whether the business key is taken, optionally
// excluding one row (self on update).
func (r *StudentRepository) ExistsByStudentID(ctx context.Context, studentID string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE student_id = $1"
	args := []interface{}{studentID}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student id: %w", err)
	}
	return true, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, student_id, name, name_kana, student_number, gender, birth_date, class_id, grade_id, status, allergies, conditions, medications, notes, created_at, updated_at)
        VALUES (:id, :student_id, :name, :name_kana, :student_number, :gender, :birth_date, :class_id, :grade_id, :status, :allergies, :conditions, :medications, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET student_id = :student_id, name = :name, name_kana = :name_kana, student_number = :student_number,
        gender = :gender, birth_date = :birth_date, class_id = :class_id, grade_id = :grade_id, status = :status,
        allergies = :allergies, conditions = :conditions, medications = :medications, notes = :notes, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student and all dependent rows inside one transaction.
// Health-sensitive history never survives its owner.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete student: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	cascades := []string{
		"DELETE FROM health_records WHERE student_id = $1",
		"DELETE FROM attendance_records WHERE student_id = $1",
		"DELETE FROM nursing_visits WHERE student_id = $1",
	}
	for _, q := range cascades {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("cascade delete student: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM students WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete student: %w", err)
	}
	committed = true
	return nil
}
