package models

import "time"

// Enrollment links a student to a class session. It is a relation record
// keyed by the two external ids, never a standalone addressable entity.
type Enrollment struct {
	StudentID      string    `db:"student_external_id" json:"student_id"`
	ClassSessionID string    `db:"class_session_external_id" json:"class_session_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentResult summarises a successful enrollment.
type EnrollmentResult struct {
	StudentID      string `json:"student_id"`
	ClassSessionID string `json:"class_session_id"`
	StudentName    string `json:"student_name"`
	CourseName     string `json:"course_name"`
	AvailableSeats int    `json:"available_seats"`
	Message        string `json:"message"`
}
