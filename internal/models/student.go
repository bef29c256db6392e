package models

import "time"

// Gender enumerates accepted gender values.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid returns true when the gender is a supported value.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// StudentStatus marks whether a student is currently enrolled.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "active"
	StudentStatusInactive StudentStatus = "inactive"
)

// Valid returns true when the status is a supported value.
func (s StudentStatus) Valid() bool {
	return s == StudentStatusActive || s == StudentStatusInactive
}

// Student represents a learner tracked by the health room. ClassID is a soft
// reference: it is validated against the configured class tracks at the
// application layer, not enforced by the database.
type Student struct {
	ID            string        `db:"id" json:"id"`
	StudentID     string        `db:"student_id" json:"student_id"`
	Name          string        `db:"name" json:"name"`
	NameKana      string        `db:"name_kana" json:"name_kana"`
	StudentNumber int           `db:"student_number" json:"student_number"`
	Gender        Gender        `db:"gender" json:"gender"`
	BirthDate     time.Time     `db:"birth_date" json:"birth_date"`
	ClassID       string        `db:"class_id" json:"class_id"`
	GradeID       int           `db:"grade_id" json:"grade_id"`
	Status        StudentStatus `db:"status" json:"status"`
	Allergies     *string       `db:"allergies" json:"allergies,omitempty"`
	Conditions    *string       `db:"conditions" json:"conditions,omitempty"`
	Medications   *string       `db:"medications" json:"medications,omitempty"`
	Notes         *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentDetail extends Student with health-record context for list views.
type StudentDetail struct {
	Student
	HealthRecordCount int  `db:"health_record_count" json:"health_record_count"`
	LatestRecordYear  *int `db:"latest_record_year" json:"latest_record_year,omitempty"`
}

// StudentFilter encapsulates the search criteria for listing students.
//
// Search is free text: it is split on whitespace (full-width space included)
// into terms, and a student matches when any term matches any of name, kana,
// student id or student number.
type StudentFilter struct {
	Search           string
	ClassID          string
	GradeID          *int
	Gender           *Gender
	NumberMin        *int
	NumberMax        *int
	HasHealthRecords *bool
	RecordYear       *int
	HasRecordForYear *bool
	Page             int
	PageSize         int
	SortBy           string
	SortOrder        string
}
