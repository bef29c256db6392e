package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hoken-api/internal/models"
	"github.com/noah-isme/hoken-api/pkg/export"
)

type fakeStudentSearcher struct {
	students []models.StudentDetail
	filter   models.StudentFilter
}

func (f *fakeStudentSearcher) Search(_ context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	f.filter = filter
	return f.students, nil, nil
}

type fakeStatisticsComputer struct {
	report *models.StatisticsReport
}

func (f *fakeStatisticsComputer) Compute(context.Context, models.StatisticsFilter) (*models.StatisticsReport, bool, error) {
	return f.report, false, nil
}

func TestExportServiceStudentsCSV(t *testing.T) {
	year := 2025
	students := &fakeStudentSearcher{students: []models.StudentDetail{
		{
			Student: models.Student{
				StudentID:     "0007",
				Name:          "田中太郎",
				NameKana:      "たなかたろう",
				StudentNumber: 7,
				Gender:        models.GenderMale,
				ClassID:       "特進",
				GradeID:       1,
				Status:        models.StudentStatusActive,
			},
			HealthRecordCount: 2,
			LatestRecordYear:  &year,
		},
	}}
	svc := NewExportService(students, nil, export.NewCSVExporter(), export.NewPDFExporter(), nil)

	data, filename, err := svc.ExportStudents(context.Background(), models.StudentFilter{Search: "田中"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	// Pagination is overridden so the export covers the whole match set.
	assert.Equal(t, 1, students.filter.Page)
	assert.Equal(t, exportPageSize, students.filter.PageSize)

	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}), "expected a UTF-8 BOM")
	body := string(data)
	assert.Contains(t, body, "学籍番号")
	assert.Contains(t, body, "田中太郎")
	assert.Contains(t, body, "0007")
	assert.Contains(t, body, "男")
	assert.Contains(t, body, "2025")
}

func TestExportServiceStatisticsPDF(t *testing.T) {
	year := 2025
	stats := &fakeStatisticsComputer{report: &models.StatisticsReport{
		Count:     2,
		AvgHeight: 165.0,
		AvgWeight: 54.5,
		AvgBMI:    20.0,
		Distribution: models.BMIDistribution{
			Normal:        2,
			NormalPercent: 100,
		},
		ByGrade: []models.GroupStats{{Grade: 1, Count: 2, AvgHeight: 165.0, AvgWeight: 54.5, AvgBMI: 20.0}},
		ByClass: []models.GroupStats{{ClassID: "特進", Count: 2, AvgHeight: 165.0, AvgWeight: 54.5, AvgBMI: 20.0}},
	}}
	svc := NewExportService(nil, stats, export.NewCSVExporter(), export.NewPDFExporter(), nil)

	data, filename, err := svc.ExportStatistics(context.Background(), models.StatisticsFilter{Year: &year})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".pdf"))
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")), "expected a PDF document")
}

func TestBuildStatisticsReportSections(t *testing.T) {
	report := &models.StatisticsReport{
		Count: 1,
		Distribution: models.BMIDistribution{
			Normal:        1,
			NormalPercent: 100,
		},
	}
	built := buildStatisticsReport(report, models.StatisticsFilter{})
	require.Len(t, built.Sections, 1)
	assert.Equal(t, "BMI分布", built.Sections[0].Title)
	assert.Len(t, built.Sections[0].Data.Rows, 4)
}
