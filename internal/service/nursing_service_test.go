package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hoken-api/internal/models"
	appErrors "github.com/noah-isme/hoken-api/pkg/errors"
)

type fakeNursingRepo struct {
	visits      []models.NursingVisit
	found       *models.NursingVisit
	created     *models.NursingVisit
	bulkCreated []models.NursingVisit
	updated     *models.NursingVisit
	deletedID   string
	logRow      *models.NursingLog
	upsertedLog *models.NursingLog
}

func (f *fakeNursingRepo) ListVisits(context.Context, models.NursingVisitFilter) ([]models.NursingVisit, int, error) {
	return f.visits, len(f.visits), nil
}

func (f *fakeNursingRepo) FindVisitByID(context.Context, string) (*models.NursingVisit, error) {
	return f.found, nil
}

func (f *fakeNursingRepo) CreateVisit(_ context.Context, visit *models.NursingVisit) error {
	f.created = visit
	return nil
}

func (f *fakeNursingRepo) BulkCreateVisits(_ context.Context, visits []models.NursingVisit) error {
	f.bulkCreated = visits
	return nil
}

func (f *fakeNursingRepo) UpdateVisit(_ context.Context, visit *models.NursingVisit) error {
	f.updated = visit
	return nil
}

func (f *fakeNursingRepo) DeleteVisit(_ context.Context, id string) error {
	f.deletedID = id
	return nil
}

func (f *fakeNursingRepo) FindLogByDate(context.Context, time.Time) (*models.NursingLog, error) {
	return f.logRow, nil
}

func (f *fakeNursingRepo) UpsertLog(_ context.Context, logRow *models.NursingLog) (*models.NursingLog, error) {
	f.upsertedLog = logRow
	return logRow, nil
}

func validVisitInput() NursingVisitInput {
	return NursingVisitInput{
		StudentID: "u1",
		Date:      "2025-06-02",
		Time:      "10:30",
		Category:  "internal",
		Type:      "illness",
	}
}

func TestNursingServiceCreateVisit(t *testing.T) {
	repo := &fakeNursingRepo{}
	svc := NewNursingService(repo, nil, nil)

	visit, err := svc.CreateVisit(context.Background(), validVisitInput())
	require.NoError(t, err)
	assert.Equal(t, models.VisitCategoryInternal, visit.Category)
	assert.Equal(t, "10:30", visit.Time)
	assert.NotNil(t, repo.created)
}

func TestNursingServiceCreateVisitCollectsFieldErrors(t *testing.T) {
	repo := &fakeNursingRepo{}
	svc := NewNursingService(repo, nil, nil)

	_, err := svc.CreateVisit(context.Background(), NursingVisitInput{
		Date:     "02/06/2025",
		Time:     "half past ten",
		Category: "dental",
		Type:     "checkup",
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, 422, appErr.Status)
	fields := make(map[string]bool)
	for _, d := range appErr.Details {
		fields[d.Field] = true
	}
	for _, want := range []string{"student_id", "date", "time", "category", "type"} {
		assert.True(t, fields[want], "expected a field error for %s", want)
	}
}

func TestNursingServiceBulkCreateVisitsIndexesErrors(t *testing.T) {
	repo := &fakeNursingRepo{}
	svc := NewNursingService(repo, nil, nil)

	bad := validVisitInput()
	bad.Category = "dental"
	_, err := svc.BulkCreateVisits(context.Background(), []NursingVisitInput{validVisitInput(), bad})
	require.Error(t, err)
	assert.Nil(t, repo.bulkCreated)

	appErr := appErrors.FromError(err)
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, "visits[1].category", appErr.Details[0].Field)
}

func TestNursingServiceStoreLogValidatesHumidity(t *testing.T) {
	repo := &fakeNursingRepo{}
	svc := NewNursingService(repo, nil, nil)

	humidity := 140.0
	_, err := svc.StoreLog(context.Background(), NursingLogInput{
		Date:     "2025-06-02",
		Humidity: &humidity,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, "humidity", appErr.Details[0].Field)
}

func TestNursingServiceStoreLogUpserts(t *testing.T) {
	repo := &fakeNursingRepo{}
	svc := NewNursingService(repo, nil, nil)

	weather := "雨"
	stored, err := svc.StoreLog(context.Background(), NursingLogInput{
		Date:    "2025-06-02",
		Weather: &weather,
		Absences: models.LogAbsences{
			{StudentID: "u1", Name: "田中太郎", ClassID: "特進", Reason: "発熱"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02", stored.Date.Format("2006-01-02"))
	require.NotNil(t, repo.upsertedLog)
	assert.Len(t, repo.upsertedLog.Absences, 1)
}

func TestNursingServiceGetLogRejectsBadDate(t *testing.T) {
	repo := &fakeNursingRepo{}
	svc := NewNursingService(repo, nil, nil)

	_, err := svc.GetLog(context.Background(), "june 2nd")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidArgument.Code, appErrors.FromError(err).Code)
}
