package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusflow/ums-api/internal/models"
	"github.com/campusflow/ums-api/pkg/database"
)

// AssignmentRepository manages the lecturer ↔ course relation records.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) ext(ctx context.Context) sqlx.ExtContext {
	return database.Ext(ctx, r.db)
}

// Exists reports whether the lecturer is assigned to the course.
func (r *AssignmentRepository) Exists(ctx context.Context, lecturerID, courseID string) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM lecturer_courses
        WHERE lecturer_external_id = $1 AND course_external_id = $2)`
	var exists bool
	if err := sqlx.GetContext(ctx, r.ext(ctx), &exists, query, lecturerID, courseID); err != nil {
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return exists, nil
}

// Create records a lecturer-course assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.CourseAssignment) error {
	assignment.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO lecturer_courses (lecturer_external_id, course_external_id, created_at)
        VALUES ($1, $2, $3)`
	if _, err := r.ext(ctx).ExecContext(ctx, query,
		assignment.LecturerID, assignment.CourseID, assignment.CreatedAt); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// Delete removes a lecturer-course assignment and reports whether a row
// actually existed.
func (r *AssignmentRepository) Delete(ctx context.Context, lecturerID, courseID string) (bool, error) {
	res, err := r.ext(ctx).ExecContext(ctx,
		`DELETE FROM lecturer_courses WHERE lecturer_external_id = $1 AND course_external_id = $2`,
		lecturerID, courseID)
	if err != nil {
		return false, fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete assignment result: %w", err)
	}
	return affected > 0, nil
}

// ListCourseIDsByLecturer returns external ids of every course the lecturer
// may teach.
func (r *AssignmentRepository) ListCourseIDsByLecturer(ctx context.Context, lecturerID string) ([]string, error) {
	var ids []string
	const query = `SELECT course_external_id FROM lecturer_courses WHERE lecturer_external_id = $1 ORDER BY course_external_id`
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &ids, query, lecturerID); err != nil {
		return nil, fmt.Errorf("list assigned courses: %w", err)
	}
	return ids, nil
}
