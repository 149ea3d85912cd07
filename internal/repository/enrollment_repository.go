package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusflow/ums-api/internal/models"
	"github.com/campusflow/ums-api/pkg/database"
)

// EnrollmentRepository handles the student to class session roster.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) ext(ctx context.Context) sqlx.ExtContext {
	return database.Ext(ctx, r.db)
}

// Exists reports whether the student is already enrolled in the session.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, sessionID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (
        SELECT 1 FROM enrollments WHERE student_external_id = $1 AND class_session_external_id = $2)`
	if err := sqlx.GetContext(ctx, r.ext(ctx), &exists, query, studentID, sessionID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// Create records an enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO enrollments (student_external_id, class_session_external_id, created_at)
        VALUES ($1, $2, $3)`
	if _, err := r.ext(ctx).ExecContext(ctx, query,
		enrollment.StudentID, enrollment.ClassSessionID, enrollment.CreatedAt); err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// Delete removes one enrollment and reports whether a row was affected.
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, sessionID string) (bool, error) {
	res, err := r.ext(ctx).ExecContext(ctx,
		`DELETE FROM enrollments WHERE student_external_id = $1 AND class_session_external_id = $2`,
		studentID, sessionID)
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete enrollment: %w", err)
	}
	return affected > 0, nil
}

// DeleteByStudent clears a student's entire roster.
func (r *EnrollmentRepository) DeleteByStudent(ctx context.Context, studentID string) error {
	if _, err := r.ext(ctx).ExecContext(ctx,
		`DELETE FROM enrollments WHERE student_external_id = $1`, studentID); err != nil {
		return fmt.Errorf("delete student enrollments: %w", err)
	}
	return nil
}

// ListStudentIDsBySession returns the external ids of every student enrolled
// in the session.
func (r *EnrollmentRepository) ListStudentIDsBySession(ctx context.Context, sessionID string) ([]string, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &ids,
		`SELECT student_external_id FROM enrollments WHERE class_session_external_id = $1 ORDER BY created_at`,
		sessionID); err != nil {
		return nil, fmt.Errorf("list session students: %w", err)
	}
	return ids, nil
}

// CountBySession returns the number of students enrolled in a session.
func (r *EnrollmentRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var total int
	if err := sqlx.GetContext(ctx, r.ext(ctx), &total,
		`SELECT COUNT(*) FROM enrollments WHERE class_session_external_id = $1`, sessionID); err != nil {
		return 0, fmt.Errorf("count session enrollments: %w", err)
	}
	return total, nil
}
