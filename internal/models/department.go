package models

import "time"

// Department groups students, lecturers, and courses under one academic unit.
type Department struct {
	ID         string    `db:"id" json:"-"`
	ExternalID string    `db:"external_id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Code       string    `db:"code" json:"code"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// DepartmentDetail adds dependent counts used by responses and delete guards.
type DepartmentDetail struct {
	Department
	StudentCount  int `db:"student_count" json:"student_count"`
	LecturerCount int `db:"lecturer_count" json:"lecturer_count"`
	CourseCount   int `db:"course_count" json:"course_count"`
}

// DepartmentFilter captures listing criteria for departments.
type DepartmentFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
