package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// VisionGrade is the letter grade recorded by the school vision test.
type VisionGrade string

const (
	VisionGradeA VisionGrade = "A"
	VisionGradeB VisionGrade = "B"
	VisionGradeC VisionGrade = "C"
	VisionGradeD VisionGrade = "D"
)

// Valid returns true when the grade is a supported value.
func (v VisionGrade) Valid() bool {
	switch v {
	case VisionGradeA, VisionGradeB, VisionGradeC, VisionGradeD:
		return true
	default:
		return false
	}
}

// Score maps the letter grade onto the numeric scale used for averaging
// (A=4.0 down to D=1.0). Unknown grades score zero and are excluded by
// callers before averaging.
func (v VisionGrade) Score() float64 {
	switch v {
	case VisionGradeA:
		return 4
	case VisionGradeB:
		return 3
	case VisionGradeC:
		return 2
	case VisionGradeD:
		return 1
	default:
		return 0
	}
}

// ECGResult is one entry of the electrocardiogram exam list.
type ECGResult struct {
	ExamResult string `json:"exam_result"`
	Diagnosis  string `json:"diagnosis"`
	Treatment  string `json:"treatment"`
}

// ECGResults is stored as a JSON column; callers never touch the encoded
// string directly.
type ECGResults []ECGResult

// Value implements driver.Valuer.
func (e ECGResults) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

// Scan implements sql.Scanner.
func (e *ECGResults) Scan(src interface{}) error {
	if src == nil {
		*e = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported ecg results type %T", src)
	}
	if len(raw) == 0 {
		*e = nil
		return nil
	}
	return json.Unmarshal(raw, e)
}

// HealthRecord is one health-check measurement for a student in an academic
// year. Height and weight are nullable; several records may exist for the
// same (student, year) when their measured dates differ.
type HealthRecord struct {
	ID                string       `db:"id" json:"id"`
	StudentID         string       `db:"student_id" json:"student_id"`
	Year              int          `db:"year" json:"year"`
	MeasuredDate      *time.Time   `db:"measured_date" json:"measured_date,omitempty"`
	Height            *float64     `db:"height" json:"height,omitempty"`
	Weight            *float64     `db:"weight" json:"weight,omitempty"`
	VisionLeft        *VisionGrade `db:"vision_left" json:"vision_left,omitempty"`
	VisionRight       *VisionGrade `db:"vision_right" json:"vision_right,omitempty"`
	VisionLeftCorr    *VisionGrade `db:"vision_left_corrected" json:"vision_left_corrected,omitempty"`
	VisionRightCorr   *VisionGrade `db:"vision_right_corrected" json:"vision_right_corrected,omitempty"`
	HearingLeft       *string      `db:"hearing_left" json:"hearing_left,omitempty"`
	HearingRight      *string      `db:"hearing_right" json:"hearing_right,omitempty"`
	Ophthalmology     *string      `db:"ophthalmology" json:"ophthalmology,omitempty"`
	ENT               *string      `db:"ent" json:"ent,omitempty"`
	InternalMedicine  *string      `db:"internal_medicine" json:"internal_medicine,omitempty"`
	HearingTest       *string      `db:"hearing_test" json:"hearing_test,omitempty"`
	TuberculosisTest  *string      `db:"tuberculosis_test" json:"tuberculosis_test,omitempty"`
	UrineTest         *string      `db:"urine_test" json:"urine_test,omitempty"`
	ECG               ECGResults   `db:"ecg" json:"ecg,omitempty"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time    `db:"updated_at" json:"updated_at"`
}

// BMI derives body mass index from the stored measurements. It is never
// persisted: nil when either height or weight is absent, otherwise
// weight / (height in meters)^2 rounded to two decimals.
func (r *HealthRecord) BMI() *float64 {
	return ComputeBMI(r.Height, r.Weight)
}

// ComputeBMI calculates rounded BMI from nullable height (cm) and weight (kg).
func ComputeBMI(height, weight *float64) *float64 {
	if height == nil || weight == nil || *height == 0 {
		return nil
	}
	meters := *height / 100
	bmi := math.Round(*weight/(meters*meters)*100) / 100
	return &bmi
}

// MarshalJSON surfaces the derived bmi attribute on every read.
func (r HealthRecord) MarshalJSON() ([]byte, error) {
	type alias HealthRecord
	return json.Marshal(struct {
		alias
		BMI *float64 `json:"bmi"`
	}{alias(r), r.BMI()})
}

// HealthRecordFilter scopes health-record listing queries.
type HealthRecordFilter struct {
	StudentID string
	Year      *int
	ClassID   string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
