package models

import "time"

// StudentProgress is the latest known progress record for one student.
// Records are keyed by normalized email and replaced wholesale on every
// refresh cycle, so a record is never partially updated in place.
type StudentProgress struct {
	Email          string    `json:"email" db:"email"`
	Name           string    `json:"name" db:"name"`
	CourseID       string    `json:"course_id" db:"course_id"`
	StartDate      string    `json:"start_date" db:"start_date"`
	EndDate        string    `json:"end_date" db:"end_date"`
	Progress       float64   `json:"progress" db:"progress"`               // Completion percent of the course
	ExpectedResult float64   `json:"expected_result" db:"expected_result"` // Pace metric, positive means ahead of schedule
	FetchedAt      time.Time `json:"fetched_at" db:"fetched_at"`
}
