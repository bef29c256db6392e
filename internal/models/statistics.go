package models

// StatisticsFilter scopes the record set statistics are computed over.
type StatisticsFilter struct {
	Year    *int
	Grade   *int
	ClassID string
}

// MeasurementRow is the repository-level row statistics are computed from:
// a health record with both height and weight present, joined to its
// student for grouping keys.
type MeasurementRow struct {
	StudentID   string       `db:"student_id"`
	GradeID     int          `db:"grade_id"`
	ClassID     string       `db:"class_id"`
	Year        int          `db:"year"`
	Height      float64      `db:"height"`
	Weight      float64      `db:"weight"`
	VisionLeft  *VisionGrade `db:"vision_left"`
	VisionRight *VisionGrade `db:"vision_right"`
}

// RangeStat carries min/max bounds for one measure.
type RangeStat struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// BMIDistribution partitions records into the four standard BMI buckets.
// Percentages are rounded to one decimal; bucketing uses raw BMI.
type BMIDistribution struct {
	Underweight        int     `json:"underweight"`
	Normal             int     `json:"normal"`
	Overweight         int     `json:"overweight"`
	Obese              int     `json:"obese"`
	UnderweightPercent float64 `json:"underweight_percent"`
	NormalPercent      float64 `json:"normal_percent"`
	OverweightPercent  float64 `json:"overweight_percent"`
	ObesePercent       float64 `json:"obese_percent"`
}

// GroupStats is the per-grade / per-class breakdown shape.
type GroupStats struct {
	Grade          int     `json:"grade,omitempty"`
	ClassID        string  `json:"class_id,omitempty"`
	Count          int     `json:"count"`
	AvgHeight      float64 `json:"avg_height"`
	AvgWeight      float64 `json:"avg_weight"`
	AvgBMI         float64 `json:"avg_bmi"`
	AvgVisionLeft  float64 `json:"avg_vision_left"`
	AvgVisionRight float64 `json:"avg_vision_right"`
}

// StatisticsReport is the full statistics payload. An empty input set yields
// the zero value of every field rather than an error.
type StatisticsReport struct {
	Count          int             `json:"count"`
	AvgHeight      float64         `json:"avg_height"`
	AvgWeight      float64         `json:"avg_weight"`
	AvgBMI         float64         `json:"avg_bmi"`
	AvgVisionLeft  float64         `json:"avg_vision_left"`
	AvgVisionRight float64         `json:"avg_vision_right"`
	HeightRange    RangeStat       `json:"height_range"`
	WeightRange    RangeStat       `json:"weight_range"`
	BMIRange       RangeStat       `json:"bmi_range"`
	Distribution   BMIDistribution `json:"bmi_distribution"`
	ByGrade        []GroupStats    `json:"by_grade"`
	ByClass        []GroupStats    `json:"by_class"`
}

// TrendPoint is one academic-year bucket of the trend endpoint.
type TrendPoint struct {
	Year      int     `json:"year"`
	Count     int     `json:"count"`
	AvgHeight float64 `json:"avg_height"`
	AvgWeight float64 `json:"avg_weight"`
	AvgBMI    float64 `json:"avg_bmi"`
}
