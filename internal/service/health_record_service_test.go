package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hoken-api/internal/models"
	"github.com/noah-isme/hoken-api/pkg/clock"
	appErrors "github.com/noah-isme/hoken-api/pkg/errors"
)

type fakeHealthRecordRepo struct {
	existing     []models.HealthRecord
	found        *models.HealthRecord
	created      *models.HealthRecord
	bulkCreated  []models.HealthRecord
	updated      *models.HealthRecord
	deletedID    string
	dupStudentID string
}

func (f *fakeHealthRecordRepo) List(context.Context, models.HealthRecordFilter) ([]models.HealthRecord, int, error) {
	return f.existing, len(f.existing), nil
}

func (f *fakeHealthRecordRepo) FindByID(context.Context, string) (*models.HealthRecord, error) {
	return f.found, nil
}

func (f *fakeHealthRecordRepo) FindByStudentYear(_ context.Context, studentID string, _ int) ([]models.HealthRecord, error) {
	f.dupStudentID = studentID
	return f.existing, nil
}

func (f *fakeHealthRecordRepo) Create(_ context.Context, record *models.HealthRecord) error {
	f.created = record
	return nil
}

func (f *fakeHealthRecordRepo) BulkCreate(_ context.Context, records []models.HealthRecord) error {
	f.bulkCreated = records
	return nil
}

func (f *fakeHealthRecordRepo) Update(_ context.Context, record *models.HealthRecord) error {
	f.updated = record
	return nil
}

func (f *fakeHealthRecordRepo) Delete(_ context.Context, id string) error {
	f.deletedID = id
	return nil
}

func newTestHealthRecordService(repo *fakeHealthRecordRepo) *HealthRecordService {
	fixed := clock.Fixed(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	return NewHealthRecordService(repo, nil, nil, nil, fixed, 2020, nil)
}

func validHealthRecordInput() HealthRecordInput {
	return HealthRecordInput{
		StudentID:    "u1",
		Year:         "2025",
		MeasuredDate: "2025-04-10",
		Height:       "160.5",
		Weight:       "52.3",
		VisionLeft:   "A",
		VisionRight:  "b",
	}
}

func TestHealthRecordServiceCreateParsesFullWidthMeasurements(t *testing.T) {
	repo := &fakeHealthRecordRepo{}
	svc := newTestHealthRecordService(repo)

	input := validHealthRecordInput()
	input.Height = "１６０．５"
	record, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, record.Height)
	assert.InDelta(t, 160.5, *record.Height, 0.001)
	require.NotNil(t, record.VisionRight)
	assert.Equal(t, models.VisionGradeB, *record.VisionRight)
}

func TestHealthRecordServiceCreateRequiresSomeMeasurement(t *testing.T) {
	repo := &fakeHealthRecordRepo{}
	svc := newTestHealthRecordService(repo)

	input := validHealthRecordInput()
	input.Height = ""
	input.Weight = ""
	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, 422, appErr.Status)
	fields := make(map[string]bool)
	for _, d := range appErr.Details {
		fields[d.Field] = true
	}
	assert.True(t, fields["height"])
	assert.True(t, fields["weight"])
}

func TestHealthRecordServiceCreateRejectsImplausibleBMI(t *testing.T) {
	repo := &fakeHealthRecordRepo{}
	svc := newTestHealthRecordService(repo)

	input := validHealthRecordInput()
	input.Height = "160"
	input.Weight = "180"
	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestHealthRecordServiceCreateRejectsZeroHeightWithWeight(t *testing.T) {
	repo := &fakeHealthRecordRepo{}
	svc := newTestHealthRecordService(repo)

	input := validHealthRecordInput()
	input.Height = "0"
	input.Weight = "50"
	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, 422, appErr.Status)
	var sawWeight bool
	for _, d := range appErr.Details {
		if d.Field == "weight" {
			sawWeight = true
		}
	}
	assert.True(t, sawWeight, "expected the zero-height pair to flag weight")
	assert.Nil(t, repo.created)
}

func TestHealthRecordServiceYearBounds(t *testing.T) {
	repo := &fakeHealthRecordRepo{}
	svc := newTestHealthRecordService(repo)

	for _, year := range []string{"2019", "2027"} {
		input := validHealthRecordInput()
		input.Year = year
		_, err := svc.Create(context.Background(), input)
		require.Error(t, err, "year %s should be rejected", year)
	}

	// The fixed clock reads 2025, so 2026 is the accepted upper bound.
	input := validHealthRecordInput()
	input.Year = "2026"
	_, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
}

func TestHealthRecordServiceDuplicatePolicy(t *testing.T) {
	measured := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeHealthRecordRepo{existing: []models.HealthRecord{
		{ID: "r1", StudentID: "u1", Year: 2025, MeasuredDate: &measured},
	}}
	svc := newTestHealthRecordService(repo)

	// Same (student, year, date) conflicts.
	_, err := svc.Create(context.Background(), validHealthRecordInput())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// A distinct measured date in the same year is allowed.
	input := validHealthRecordInput()
	input.MeasuredDate = "2025-09-01"
	_, err = svc.Create(context.Background(), input)
	require.NoError(t, err)
}

func TestHealthRecordServiceDuplicatePolicyNilDatesCollide(t *testing.T) {
	repo := &fakeHealthRecordRepo{existing: []models.HealthRecord{
		{ID: "r1", StudentID: "u1", Year: 2025},
	}}
	svc := newTestHealthRecordService(repo)

	input := validHealthRecordInput()
	input.MeasuredDate = ""
	_, err := svc.Create(context.Background(), input)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestHealthRecordServiceUpdateSkipsSelfInDuplicateCheck(t *testing.T) {
	measured := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	existing := models.HealthRecord{ID: "r1", StudentID: "u1", Year: 2025, MeasuredDate: &measured}
	repo := &fakeHealthRecordRepo{existing: []models.HealthRecord{existing}, found: &existing}
	svc := newTestHealthRecordService(repo)

	record, err := svc.Update(context.Background(), "r1", validHealthRecordInput())
	require.NoError(t, err)
	assert.Equal(t, "r1", record.ID)
}

func TestHealthRecordServiceUpdateKeepsStoredStudent(t *testing.T) {
	measured := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	existing := models.HealthRecord{ID: "r1", StudentID: "u1", Year: 2025, MeasuredDate: &measured}
	repo := &fakeHealthRecordRepo{existing: []models.HealthRecord{existing}, found: &existing}
	svc := newTestHealthRecordService(repo)

	input := validHealthRecordInput()
	input.StudentID = "u2"
	record, err := svc.Update(context.Background(), "r1", input)
	require.NoError(t, err)

	assert.Equal(t, "u1", record.StudentID)
	assert.Equal(t, "u1", repo.dupStudentID, "duplicate check must query the stored student")
	require.NotNil(t, repo.updated)
	assert.Equal(t, "u1", repo.updated.StudentID)
}

func TestHealthRecordServiceBulkCreateEnumeratesRowErrors(t *testing.T) {
	repo := &fakeHealthRecordRepo{}
	svc := newTestHealthRecordService(repo)

	bad := validHealthRecordInput()
	bad.Year = "19"
	bad.Height = "abc"
	inputs := []HealthRecordInput{validHealthRecordInput(), bad}
	// The valid first row shares the batch key with nothing; the bad second
	// row must surface indexed field errors and sink the whole batch.
	inputs[0].MeasuredDate = "2025-04-11"

	_, err := svc.BulkCreate(context.Background(), inputs)
	require.Error(t, err)
	assert.Nil(t, repo.bulkCreated)

	appErr := appErrors.FromError(err)
	var sawIndexed bool
	for _, d := range appErr.Details {
		if strings.HasPrefix(d.Field, "records[1].") {
			sawIndexed = true
		}
	}
	assert.True(t, sawIndexed, "expected field errors prefixed with records[1]")
}

func TestHealthRecordServiceBulkCreateDetectsInBatchDuplicates(t *testing.T) {
	repo := &fakeHealthRecordRepo{}
	svc := newTestHealthRecordService(repo)

	inputs := []HealthRecordInput{validHealthRecordInput(), validHealthRecordInput()}
	_, err := svc.BulkCreate(context.Background(), inputs)
	require.Error(t, err)
	assert.Nil(t, repo.bulkCreated)
}

func TestHealthRecordServiceBulkCreateAtomicSuccess(t *testing.T) {
	repo := &fakeHealthRecordRepo{}
	svc := newTestHealthRecordService(repo)

	second := validHealthRecordInput()
	second.StudentID = "u2"
	records, err := svc.BulkCreate(context.Background(), []HealthRecordInput{validHealthRecordInput(), second})
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Len(t, repo.bulkCreated, 2)
}
