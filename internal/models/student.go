package models

import "time"

// Student represents a learner registered with the university.
type Student struct {
	ID             string    `db:"id" json:"-"`
	ExternalID     string    `db:"external_id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	Phone          string    `db:"phone" json:"phone"`
	DepartmentID   string    `db:"department_external_id" json:"department_id"`
	EnrollmentYear int       `db:"enrollment_year" json:"enrollment_year"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail augments a student with enrollment counts.
type StudentDetail struct {
	Student
	SessionCount int `db:"session_count" json:"session_count"`
}

// StudentFilter captures listing criteria for students.
type StudentFilter struct {
	DepartmentID   string
	ClassSessionID string
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
