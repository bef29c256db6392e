package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent    AttendanceStatus = "present"
	AttendanceStatusAbsent     AttendanceStatus = "absent"
	AttendanceStatusLate       AttendanceStatus = "late"
	AttendanceStatusEarlyLeave AttendanceStatus = "early_leave"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusEarlyLeave:
		return true
	default:
		return false
	}
}

// AttendanceRecord is one attendance row; (student_id, date) is unique.
type AttendanceRecord struct {
	ID            string           `db:"id" json:"id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	Date          time.Time        `db:"date" json:"date"`
	Status        AttendanceStatus `db:"status" json:"status"`
	ArrivalTime   *string          `db:"arrival_time" json:"arrival_time,omitempty"`
	DepartureTime *string          `db:"departure_time" json:"departure_time,omitempty"`
	Notes         *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes attendance listing queries.
type AttendanceFilter struct {
	StudentID string
	ClassID   string
	Status    *AttendanceStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
