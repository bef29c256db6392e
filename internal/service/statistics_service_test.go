package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hoken-api/internal/models"
)

type fakeStatisticsRepo struct {
	rows []models.MeasurementRow
	err  error
}

func (f *fakeStatisticsRepo) Measurements(context.Context, models.StatisticsFilter) ([]models.MeasurementRow, error) {
	return f.rows, f.err
}

func visionPtr(g models.VisionGrade) *models.VisionGrade {
	return &g
}

func TestStatisticsServiceEmptySetYieldsZeroReport(t *testing.T) {
	svc := NewStatisticsService(&fakeStatisticsRepo{}, nil, nil, nil)

	report, cached, err := svc.Compute(context.Background(), models.StatisticsFilter{})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 0, report.Count)
	assert.Zero(t, report.AvgBMI)
	assert.NotNil(t, report.ByGrade)
	assert.Empty(t, report.ByGrade)
	assert.NotNil(t, report.ByClass)
	assert.Empty(t, report.ByClass)
}

func TestStatisticsServiceAveragesPerRecordBMI(t *testing.T) {
	rows := []models.MeasurementRow{
		{StudentID: "u1", GradeID: 1, ClassID: "特進", Year: 2025, Height: 160, Weight: 51.2},
		{StudentID: "u2", GradeID: 1, ClassID: "特進", Year: 2025, Height: 170, Weight: 57.8},
	}
	svc := NewStatisticsService(&fakeStatisticsRepo{rows: rows}, nil, nil, nil)

	report, _, err := svc.Compute(context.Background(), models.StatisticsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count)
	assert.InDelta(t, 165.0, report.AvgHeight, 0.01)
	// BMI is computed per record then averaged: (20.0 + 20.0) / 2.
	assert.InDelta(t, 20.0, report.AvgBMI, 0.01)
	assert.Equal(t, models.RangeStat{Min: 160, Max: 170}, report.HeightRange)
}

func TestStatisticsServiceDistributionCountsSumToTotal(t *testing.T) {
	rows := []models.MeasurementRow{
		{Height: 170, Weight: 50, GradeID: 1, ClassID: "普通", Year: 2025},  // 17.3 underweight
		{Height: 170, Weight: 60, GradeID: 1, ClassID: "普通", Year: 2025},  // 20.8 normal
		{Height: 170, Weight: 75, GradeID: 2, ClassID: "進学", Year: 2025},  // 26.0 overweight
		{Height: 170, Weight: 90, GradeID: 3, ClassID: "特進", Year: 2025},  // 31.1 obese
	}
	svc := NewStatisticsService(&fakeStatisticsRepo{rows: rows}, nil, nil, nil)

	report, _, err := svc.Compute(context.Background(), models.StatisticsFilter{})
	require.NoError(t, err)
	d := report.Distribution
	assert.Equal(t, 1, d.Underweight)
	assert.Equal(t, 1, d.Normal)
	assert.Equal(t, 1, d.Overweight)
	assert.Equal(t, 1, d.Obese)
	assert.Equal(t, report.Count, d.Underweight+d.Normal+d.Overweight+d.Obese)
	assert.InDelta(t, 25.0, d.NormalPercent, 0.01)
}

func TestStatisticsServiceSkipsRowsWithoutUsableHeight(t *testing.T) {
	rows := []models.MeasurementRow{
		{StudentID: "u1", GradeID: 1, ClassID: "特進", Year: 2025, Height: 160, Weight: 51.2},
		{StudentID: "u2", GradeID: 1, ClassID: "特進", Year: 2025, Height: 0, Weight: 50},
	}
	svc := NewStatisticsService(&fakeStatisticsRepo{rows: rows}, nil, nil, nil)

	report, _, err := svc.Compute(context.Background(), models.StatisticsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count)
	assert.False(t, math.IsInf(report.AvgBMI, 1), "AvgBMI must stay finite")
	assert.InDelta(t, 20.0, report.AvgBMI, 0.01)
	d := report.Distribution
	assert.Equal(t, report.Count, d.Underweight+d.Normal+d.Overweight+d.Obese)
}

func TestStatisticsServiceAllRowsUnusableYieldsZeroReport(t *testing.T) {
	rows := []models.MeasurementRow{
		{StudentID: "u1", GradeID: 1, ClassID: "特進", Year: 2025, Height: 0, Weight: 50},
	}
	svc := NewStatisticsService(&fakeStatisticsRepo{rows: rows}, nil, nil, nil)

	report, _, err := svc.Compute(context.Background(), models.StatisticsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Count)
	assert.Zero(t, report.AvgBMI)

	points, _, err := svc.Trend(context.Background(), models.StatisticsFilter{})
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestStatisticsServiceGroupsAreSorted(t *testing.T) {
	rows := []models.MeasurementRow{
		{Height: 170, Weight: 60, GradeID: 3, ClassID: "普通", Year: 2025},
		{Height: 160, Weight: 50, GradeID: 1, ClassID: "特進", Year: 2025},
		{Height: 165, Weight: 55, GradeID: 2, ClassID: "進学", Year: 2025},
	}
	svc := NewStatisticsService(&fakeStatisticsRepo{rows: rows}, nil, nil, nil)

	report, _, err := svc.Compute(context.Background(), models.StatisticsFilter{})
	require.NoError(t, err)
	require.Len(t, report.ByGrade, 3)
	assert.Equal(t, 1, report.ByGrade[0].Grade)
	assert.Equal(t, 2, report.ByGrade[1].Grade)
	assert.Equal(t, 3, report.ByGrade[2].Grade)
	require.Len(t, report.ByClass, 3)
	assert.Equal(t, report.ByClass[0].ClassID < report.ByClass[1].ClassID, true)
}

func TestStatisticsServiceVisionAveragesSkipMissing(t *testing.T) {
	rows := []models.MeasurementRow{
		{Height: 160, Weight: 50, GradeID: 1, ClassID: "特進", Year: 2025, VisionLeft: visionPtr(models.VisionGradeA)},
		{Height: 160, Weight: 50, GradeID: 1, ClassID: "特進", Year: 2025, VisionLeft: visionPtr(models.VisionGradeC)},
		{Height: 160, Weight: 50, GradeID: 1, ClassID: "特進", Year: 2025},
	}
	svc := NewStatisticsService(&fakeStatisticsRepo{rows: rows}, nil, nil, nil)

	report, _, err := svc.Compute(context.Background(), models.StatisticsFilter{})
	require.NoError(t, err)
	// A=4 and C=2 average to 3.0 over the two graded records.
	assert.InDelta(t, 3.0, report.AvgVisionLeft, 0.01)
	assert.Zero(t, report.AvgVisionRight)
}

func TestStatisticsServiceTrendSortsYearsAscending(t *testing.T) {
	rows := []models.MeasurementRow{
		{Height: 165, Weight: 55, Year: 2025, GradeID: 1, ClassID: "特進"},
		{Height: 160, Weight: 50, Year: 2023, GradeID: 1, ClassID: "特進"},
		{Height: 162, Weight: 52, Year: 2024, GradeID: 1, ClassID: "特進"},
		{Height: 164, Weight: 53, Year: 2024, GradeID: 1, ClassID: "特進"},
	}
	svc := NewStatisticsService(&fakeStatisticsRepo{rows: rows}, nil, nil, nil)

	points, cached, err := svc.Trend(context.Background(), models.StatisticsFilter{})
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, points, 3)
	assert.Equal(t, 2023, points[0].Year)
	assert.Equal(t, 2024, points[1].Year)
	assert.Equal(t, 2025, points[2].Year)
	assert.Equal(t, 2, points[1].Count)
	assert.InDelta(t, 163.0, points[1].AvgHeight, 0.01)
}
