package models

import "time"

// ClassSession is a scheduled weekly occurrence of a course taught by a
// lecturer in a time slot and location, with a seat capacity. EnrolledCount
// is always derived from the enrollments relation, never stored.
type ClassSession struct {
	ID            string    `db:"id" json:"-"`
	ExternalID    string    `db:"external_id" json:"id"`
	CourseID      string    `db:"course_external_id" json:"course_id"`
	LecturerID    string    `db:"lecturer_external_id" json:"lecturer_id"`
	TimeSlot      TimeSlot  `json:"time_slot"`
	Location      string    `db:"location" json:"location"`
	MaxCapacity   int       `db:"max_capacity" json:"max_capacity"`
	EnrolledCount int       `db:"enrolled_count" json:"enrolled_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// AvailableSeats returns how many more students can enroll.
func (s *ClassSession) AvailableSeats() int {
	return s.MaxCapacity - s.EnrolledCount
}

// IsFull reports whether the session has no remaining seats.
func (s *ClassSession) IsFull() bool {
	return s.EnrolledCount >= s.MaxCapacity
}

// ClassSessionDetail augments a session with resolved names for responses.
type ClassSessionDetail struct {
	ClassSession
	CourseName   string `db:"course_name" json:"course_name"`
	LecturerName string `db:"lecturer_name" json:"lecturer_name"`
}

// ClassSessionFilter captures listing criteria for sessions.
type ClassSessionFilter struct {
	CourseID   string
	LecturerID string
	StudentID  string
	Day        DayOfWeek
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
