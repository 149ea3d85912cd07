package models

import "time"

// Lecturer is a member of academic staff who can be assigned to courses and
// teach class sessions.
type Lecturer struct {
	ID           string    `db:"id" json:"-"`
	ExternalID   string    `db:"external_id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	DepartmentID string    `db:"department_external_id" json:"department_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// LecturerDetail augments a lecturer with assignment and teaching counts.
type LecturerDetail struct {
	Lecturer
	CourseCount  int `db:"course_count" json:"course_count"`
	SessionCount int `db:"session_count" json:"session_count"`
}

// LecturerFilter captures listing criteria for lecturers.
type LecturerFilter struct {
	DepartmentID string
	CourseID     string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// CourseAssignment is the relation record granting a lecturer the right to
// teach a course. References are external ids only.
type CourseAssignment struct {
	LecturerID string    `db:"lecturer_external_id" json:"lecturer_id"`
	CourseID   string    `db:"course_external_id" json:"course_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AssignmentResult summarises a completed assignment operation.
type AssignmentResult struct {
	LecturerID   string `json:"lecturer_id"`
	CourseID     string `json:"course_id"`
	LecturerName string `json:"lecturer_name"`
	CourseName   string `json:"course_name"`
	Message      string `json:"message"`
}
