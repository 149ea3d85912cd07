package models

import "time"

// Course is a unit of study offered by a department.
type Course struct {
	ID           string    `db:"id" json:"-"`
	ExternalID   string    `db:"external_id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Code         string    `db:"code" json:"code"`
	Credits      int       `db:"credits" json:"credits"`
	DepartmentID string    `db:"department_external_id" json:"department_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail augments a course with its dependent counts.
type CourseDetail struct {
	Course
	LecturerCount int `db:"lecturer_count" json:"lecturer_count"`
	SessionCount  int `db:"session_count" json:"session_count"`
}

// CourseFilter captures listing criteria for courses.
type CourseFilter struct {
	DepartmentID string
	LecturerID   string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
