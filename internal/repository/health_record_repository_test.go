package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hoken-api/internal/models"
)

func healthRecordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_id", "year", "measured_date", "height", "weight",
		"vision_left", "vision_right", "vision_left_corrected", "vision_right_corrected",
		"hearing_left", "hearing_right", "ophthalmology", "ent", "internal_medicine",
		"hearing_test", "tuberculosis_test", "urine_test", "ecg", "created_at", "updated_at",
	})
}

func TestHealthRecordRepositoryListByStudentAndYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHealthRecordRepository(db)

	rows := healthRecordRows().AddRow(
		"r1", "u1", 2025, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), 160.5, 52.3,
		"A", "B", nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM health_records hr JOIN students s").
		WithArgs("u1", 2025).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM health_records hr JOIN students s").
		WithArgs("u1", 2025).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	year := 2025
	records, total, err := repo.List(context.Background(), models.HealthRecordFilter{StudentID: "u1", Year: &year})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, total)
	require.NotNil(t, records[0].Height)
	assert.InDelta(t, 160.5, *records[0].Height, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthRecordRepositoryListRejectsUnknownSort(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHealthRecordRepository(db)

	_, _, err := repo.List(context.Background(), models.HealthRecordFilter{SortBy: "height"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSort))
}

func TestHealthRecordRepositoryBulkCreateCommitsAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHealthRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO health_records").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO health_records").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	height := 160.0
	weight := 50.0
	records := []models.HealthRecord{
		{StudentID: "u1", Year: 2025, Height: &height, Weight: &weight},
		{StudentID: "u2", Year: 2025, Height: &height},
	}
	require.NoError(t, repo.BulkCreate(context.Background(), records))
	assert.NotEmpty(t, records[0].ID)
	assert.NotEmpty(t, records[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthRecordRepositoryBulkCreateRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHealthRecordRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO health_records").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO health_records").WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	records := []models.HealthRecord{
		{StudentID: "u1", Year: 2025},
		{StudentID: "u2", Year: 2025},
	}
	require.Error(t, repo.BulkCreate(context.Background(), records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthRecordRepositoryFindByStudentYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHealthRecordRepository(db)

	rows := healthRecordRows().AddRow(
		"r1", "u1", 2025, nil, nil, nil,
		nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM health_records hr WHERE hr.student_id").
		WithArgs("u1", 2025).
		WillReturnRows(rows)

	records, err := repo.FindByStudentYear(context.Background(), "u1", 2025)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Nil(t, records[0].MeasuredDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
