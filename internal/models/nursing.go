package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// VisitCategory classifies a nursing-room visit.
type VisitCategory string

const (
	VisitCategoryInternal VisitCategory = "internal"
	VisitCategorySurgical VisitCategory = "surgical"
	VisitCategoryAbsence  VisitCategory = "absence"
	VisitCategoryOther    VisitCategory = "other"
)

// Valid returns true when the category is a supported value.
func (c VisitCategory) Valid() bool {
	switch c {
	case VisitCategoryInternal, VisitCategorySurgical, VisitCategoryAbsence, VisitCategoryOther:
		return true
	default:
		return false
	}
}

// VisitType describes what brought the student in.
type VisitType string

const (
	VisitTypeIllness      VisitType = "illness"
	VisitTypeInjury       VisitType = "injury"
	VisitTypeConsultation VisitType = "consultation"
	VisitTypeOther        VisitType = "other"
)

// Valid returns true when the type is a supported value.
func (t VisitType) Valid() bool {
	switch t {
	case VisitTypeIllness, VisitTypeInjury, VisitTypeConsultation, VisitTypeOther:
		return true
	default:
		return false
	}
}

// NursingVisit records one nursing-room visit with its situational detail.
type NursingVisit struct {
	ID                string        `db:"id" json:"id"`
	StudentID         string        `db:"student_id" json:"student_id"`
	Date              time.Time     `db:"date" json:"date"`
	Time              string        `db:"time" json:"time"`
	Category          VisitCategory `db:"category" json:"category"`
	Type              VisitType     `db:"type" json:"type"`
	Subject           *string       `db:"subject" json:"subject,omitempty"`
	Club              *string       `db:"club" json:"club,omitempty"`
	Event             *string       `db:"event" json:"event,omitempty"`
	Breakfast         *string       `db:"breakfast" json:"breakfast,omitempty"`
	BowelMovement     *string       `db:"bowel_movement" json:"bowel_movement,omitempty"`
	Treatment         *string       `db:"treatment" json:"treatment,omitempty"`
	InjuryLocation    *string       `db:"injury_location" json:"injury_location,omitempty"`
	InjuryPlace       *string       `db:"injury_place" json:"injury_place,omitempty"`
	SurgicalTreatment *string       `db:"surgical_treatment" json:"surgical_treatment,omitempty"`
	AbsenceReason     *string       `db:"absence_reason" json:"absence_reason,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// NursingVisitFilter scopes visit listing queries.
type NursingVisitFilter struct {
	StudentID string
	ClassID   string
	Category  *VisitCategory
	Type      *VisitType
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// LogAbsence is one absent student summarised on the daily nursing log.
type LogAbsence struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	ClassID   string `json:"class_id"`
	Reason    string `json:"reason"`
}

// LogVisit is one visit summarised on the daily nursing log.
type LogVisit struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	ClassID   string `json:"class_id"`
	Time      string `json:"time"`
	Category  string `json:"category"`
	Treatment string `json:"treatment"`
}

// LogAbsences is persisted as a JSON column.
type LogAbsences []LogAbsence

// Value implements driver.Valuer.
func (l LogAbsences) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *LogAbsences) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// LogVisits is persisted as a JSON column.
type LogVisits []LogVisit

// Value implements driver.Valuer.
func (l LogVisits) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *LogVisits) Scan(src interface{}) error {
	return scanJSON(src, l)
}

func scanJSON(src, dest interface{}) error {
	if src == nil {
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

// NursingLog is the daily health-room log; one row per calendar date.
type NursingLog struct {
	ID          string      `db:"id" json:"id"`
	Date        time.Time   `db:"date" json:"date"`
	Weather     *string     `db:"weather" json:"weather,omitempty"`
	Temperature *float64    `db:"temperature" json:"temperature,omitempty"`
	Humidity    *float64    `db:"humidity" json:"humidity,omitempty"`
	Absences    LogAbsences `db:"absences" json:"absences,omitempty"`
	Visits      LogVisits   `db:"visits" json:"visits,omitempty"`
	Notes       *string     `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}
