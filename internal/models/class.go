package models

import "time"

// SchoolClass is an independent reference entity looked up by its string key
// (e.g. "2-3"). The combination (grade, kumi, year) is conceptually unique
// and the class id encodes it.
type SchoolClass struct {
	ClassID   string    `db:"class_id" json:"class_id"`
	Name      string    `db:"name" json:"name"`
	Grade     int       `db:"grade" json:"grade"`
	Kumi      int       `db:"kumi" json:"kumi"`
	Year      int       `db:"year" json:"year"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
