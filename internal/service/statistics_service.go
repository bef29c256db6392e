package service

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hoken-api/internal/models"
	appErrors "github.com/noah-isme/hoken-api/pkg/errors"
)

type statisticsRepository interface {
	Measurements(ctx context.Context, filter models.StatisticsFilter) ([]models.MeasurementRow, error)
}

// StatisticsService computes descriptive statistics over health records.
// Aggregation happens in memory on repository rows so the per-record BMI
// rule and the empty-set short-circuit are in one place.
type StatisticsService struct {
	repo    statisticsRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
}

// NewStatisticsService constructs the service.
func NewStatisticsService(repo statisticsRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *StatisticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatisticsService{repo: repo, cache: cache, metrics: metrics, logger: logger}
}

// Compute returns the statistics report for the filtered record set. The
// boolean indicates whether the report came from cache. An empty set yields
// an all-zero report, never an error.
func (s *StatisticsService) Compute(ctx context.Context, filter models.StatisticsFilter) (*models.StatisticsReport, bool, error) {
	cacheKey := statsCacheKey("report", filter)
	var cached models.StatisticsReport
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	rows, err := s.measurements(ctx, filter)
	if err != nil {
		return nil, false, err
	}
	report := buildReport(rows)
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, 0); err != nil {
			s.logger.Warn("cache statistics report", zap.Error(err))
		}
	}
	return report, false, nil
}

// Trend buckets the filtered record set per academic year, oldest first.
func (s *StatisticsService) Trend(ctx context.Context, filter models.StatisticsFilter) ([]models.TrendPoint, bool, error) {
	// Year filtering would collapse the series to one bucket; drop it.
	filter.Year = nil

	cacheKey := statsCacheKey("trend", filter)
	var cached []models.TrendPoint
	if s.cache != nil {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	rows, err := s.measurements(ctx, filter)
	if err != nil {
		return nil, false, err
	}

	type bucket struct {
		count  int
		height float64
		weight float64
		bmi    float64
	}
	buckets := make(map[int]*bucket)
	for _, row := range rows {
		if row.Height <= 0 {
			continue
		}
		b := buckets[row.Year]
		if b == nil {
			b = &bucket{}
			buckets[row.Year] = b
		}
		b.count++
		b.height += row.Height
		b.weight += row.Weight
		b.bmi += rawBMI(row.Height, row.Weight)
	}
	years := make([]int, 0, len(buckets))
	for year := range buckets {
		years = append(years, year)
	}
	sort.Ints(years)
	points := make([]models.TrendPoint, 0, len(years))
	for _, year := range years {
		b := buckets[year]
		n := float64(b.count)
		points = append(points, models.TrendPoint{
			Year:      year,
			Count:     b.count,
			AvgHeight: round1(b.height / n),
			AvgWeight: round1(b.weight / n),
			AvgBMI:    round1(b.bmi / n),
		})
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, points, 0); err != nil {
			s.logger.Warn("cache statistics trend", zap.Error(err))
		}
	}
	return points, false, nil
}

func (s *StatisticsService) measurements(ctx context.Context, filter models.StatisticsFilter) ([]models.MeasurementRow, error) {
	start := time.Now()
	rows, err := s.repo.Measurements(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load measurements")
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("statistics_measurements", time.Since(start))
	}
	return rows, nil
}

func buildReport(rows []models.MeasurementRow) *models.StatisticsReport {
	report := &models.StatisticsReport{
		ByGrade: []models.GroupStats{},
		ByClass: []models.GroupStats{},
	}
	if len(rows) == 0 {
		return report
	}

	agg := newAggregate()
	gradeAggs := make(map[int]*aggregate)
	classAggs := make(map[string]*aggregate)
	for _, row := range rows {
		// A non-positive height cannot produce a BMI; skip the row rather
		// than let infinity poison the sums.
		if row.Height <= 0 {
			continue
		}
		agg.add(row)
		g := gradeAggs[row.GradeID]
		if g == nil {
			g = newAggregate()
			gradeAggs[row.GradeID] = g
		}
		g.add(row)
		c := classAggs[row.ClassID]
		if c == nil {
			c = newAggregate()
			classAggs[row.ClassID] = c
		}
		c.add(row)
	}
	if agg.count == 0 {
		return report
	}

	report.Count = agg.count
	report.AvgHeight = round1(agg.heightSum / float64(agg.count))
	report.AvgWeight = round1(agg.weightSum / float64(agg.count))
	report.AvgBMI = round1(agg.bmiSum / float64(agg.count))
	report.AvgVisionLeft = agg.avgVisionLeft()
	report.AvgVisionRight = agg.avgVisionRight()
	report.HeightRange = models.RangeStat{Min: agg.heightMin, Max: agg.heightMax}
	report.WeightRange = models.RangeStat{Min: agg.weightMin, Max: agg.weightMax}
	report.BMIRange = models.RangeStat{Min: round2(agg.bmiMin), Max: round2(agg.bmiMax)}
	report.Distribution = agg.distribution()

	grades := make([]int, 0, len(gradeAggs))
	for grade := range gradeAggs {
		grades = append(grades, grade)
	}
	sort.Ints(grades)
	for _, grade := range grades {
		g := gradeAggs[grade]
		stats := g.groupStats()
		stats.Grade = grade
		report.ByGrade = append(report.ByGrade, stats)
	}

	classes := make([]string, 0, len(classAggs))
	for classID := range classAggs {
		classes = append(classes, classID)
	}
	sort.Strings(classes)
	for _, classID := range classes {
		c := classAggs[classID]
		stats := c.groupStats()
		stats.ClassID = classID
		report.ByClass = append(report.ByClass, stats)
	}

	return report
}

// aggregate accumulates one group's sums. BMI is computed per record and
// then averaged, never derived from averaged height and weight.
type aggregate struct {
	count          int
	heightSum      float64
	weightSum      float64
	bmiSum         float64
	heightMin      float64
	heightMax      float64
	weightMin      float64
	weightMax      float64
	bmiMin         float64
	bmiMax         float64
	visionLeftSum  float64
	visionLeftN    int
	visionRightSum float64
	visionRightN   int
	underweight    int
	normal         int
	overweight     int
	obese          int
}

func newAggregate() *aggregate {
	return &aggregate{
		heightMin: math.MaxFloat64,
		weightMin: math.MaxFloat64,
		bmiMin:    math.MaxFloat64,
	}
}

func (a *aggregate) add(row models.MeasurementRow) {
	bmi := rawBMI(row.Height, row.Weight)
	a.count++
	a.heightSum += row.Height
	a.weightSum += row.Weight
	a.bmiSum += bmi
	a.heightMin = math.Min(a.heightMin, row.Height)
	a.heightMax = math.Max(a.heightMax, row.Height)
	a.weightMin = math.Min(a.weightMin, row.Weight)
	a.weightMax = math.Max(a.weightMax, row.Weight)
	a.bmiMin = math.Min(a.bmiMin, bmi)
	a.bmiMax = math.Max(a.bmiMax, bmi)
	if row.VisionLeft != nil && row.VisionLeft.Valid() {
		a.visionLeftSum += row.VisionLeft.Score()
		a.visionLeftN++
	}
	if row.VisionRight != nil && row.VisionRight.Valid() {
		a.visionRightSum += row.VisionRight.Score()
		a.visionRightN++
	}
	// Bucketing uses the raw BMI; only presentation values are rounded.
	switch {
	case bmi < 18.5:
		a.underweight++
	case bmi < 25:
		a.normal++
	case bmi < 30:
		a.overweight++
	default:
		a.obese++
	}
}

func (a *aggregate) avgVisionLeft() float64 {
	if a.visionLeftN == 0 {
		return 0
	}
	return round1(a.visionLeftSum / float64(a.visionLeftN))
}

func (a *aggregate) avgVisionRight() float64 {
	if a.visionRightN == 0 {
		return 0
	}
	return round1(a.visionRightSum / float64(a.visionRightN))
}

func (a *aggregate) distribution() models.BMIDistribution {
	d := models.BMIDistribution{
		Underweight: a.underweight,
		Normal:      a.normal,
		Overweight:  a.overweight,
		Obese:       a.obese,
	}
	if a.count == 0 {
		return d
	}
	total := float64(a.count)
	d.UnderweightPercent = round1(float64(a.underweight) / total * 100)
	d.NormalPercent = round1(float64(a.normal) / total * 100)
	d.OverweightPercent = round1(float64(a.overweight) / total * 100)
	d.ObesePercent = round1(float64(a.obese) / total * 100)
	return d
}

func (a *aggregate) groupStats() models.GroupStats {
	n := float64(a.count)
	return models.GroupStats{
		Count:          a.count,
		AvgHeight:      round1(a.heightSum / n),
		AvgWeight:      round1(a.weightSum / n),
		AvgBMI:         round1(a.bmiSum / n),
		AvgVisionLeft:  a.avgVisionLeft(),
		AvgVisionRight: a.avgVisionRight(),
	}
}

func rawBMI(height, weight float64) float64 {
	meters := height / 100
	return weight / (meters * meters)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func statsCacheKey(kind string, filter models.StatisticsFilter) string {
	var b strings.Builder
	b.WriteString("stats:")
	b.WriteString(kind)
	if filter.Year != nil {
		b.WriteString(":y")
		b.WriteString(strconv.Itoa(*filter.Year))
	}
	if filter.Grade != nil {
		b.WriteString(":g")
		b.WriteString(strconv.Itoa(*filter.Grade))
	}
	if filter.ClassID != "" {
		b.WriteString(":c")
		b.WriteString(strings.ReplaceAll(filter.ClassID, ":", "|"))
	}
	return b.String()
}
