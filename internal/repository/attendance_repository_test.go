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

func attendanceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "student_id", "date", "status", "arrival_time", "departure_time", "notes", "created_at", "updated_at",
	})
}

func TestAttendanceRepositoryListByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	rows := attendanceRows().AddRow("a1", "u1", day, "absent", nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM attendance_records ar JOIN students s").
		WithArgs("absent").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM attendance_records ar JOIN students s").
		WithArgs("absent").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	status := models.AttendanceStatusAbsent
	records, total, err := repo.List(context.Background(), models.AttendanceFilter{Status: &status})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.AttendanceStatusAbsent, records[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryUpsertReturnsStoredRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnRows(attendanceRows().AddRow("a1", "u1", day, "late", nil, nil, nil, time.Now(), time.Now()))

	stored, err := repo.Upsert(context.Background(), &models.AttendanceRecord{
		StudentID: "u1",
		Date:      day,
		Status:    models.AttendanceStatusLate,
	})
	require.NoError(t, err)
	assert.Equal(t, "a1", stored.ID)
	assert.Equal(t, models.AttendanceStatusLate, stored.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRepositoryBulkUpsertRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnRows(attendanceRows().AddRow("a1", "u1", day, "present", nil, nil, nil, time.Now(), time.Now()))
	mock.ExpectQuery("INSERT INTO attendance_records").
		WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	records := []models.AttendanceRecord{
		{StudentID: "u1", Date: day, Status: models.AttendanceStatusPresent},
		{StudentID: "u2", Date: day, Status: models.AttendanceStatusPresent},
	}
	_, err := repo.BulkUpsert(context.Background(), records)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
