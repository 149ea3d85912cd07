package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusflow/ums-api/internal/models"
	"github.com/campusflow/ums-api/pkg/database"
)

// CourseRepository handles persistence of courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) ext(ctx context.Context) sqlx.ExtContext {
	return database.Ext(ctx, r.db)
}

const courseDetailColumns = `c.id, c.external_id, c.name, c.code, c.credits, c.department_external_id, c.created_at, c.updated_at,
        (SELECT COUNT(*) FROM lecturer_courses lc WHERE lc.course_external_id = c.external_id) AS lecturer_count,
        (SELECT COUNT(*) FROM class_sessions cs WHERE cs.course_external_id = c.external_id) AS session_count`

// List returns courses matching the filter with a total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	base := "FROM courses c"
	var conditions []string
	var args []interface{}

	if filter.LecturerID != "" {
		base += " JOIN lecturer_courses lc ON lc.course_external_id = c.external_id"
		conditions = append(conditions, fmt.Sprintf("lc.lecturer_external_id = $%d", len(args)+1))
		args = append(args, filter.LecturerID)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("c.department_external_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(c.name ILIKE $%d OR c.code ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "c.name",
		"code":       "c.code",
		"credits":    "c.credits",
		"created_at": "c.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		courseDetailColumns, base, clause, orderBy, order, limit, offset)

	var courses []models.CourseDetail
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause)
	if err := sqlx.GetContext(ctx, r.ext(ctx), &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByExternalID returns a course with dependent counts.
func (r *CourseRepository) FindByExternalID(ctx context.Context, externalID string) (*models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c WHERE c.external_id = $1`, courseDetailColumns)
	var course models.CourseDetail
	if err := sqlx.GetContext(ctx, r.ext(ctx), &course, query, externalID); err != nil {
		return nil, err
	}
	return &course, nil
}

// NextExternalID issues a store-side sequential external id (CRS<n>).
func (r *CourseRepository) NextExternalID(ctx context.Context) (string, error) {
	var seq int64
	if err := sqlx.GetContext(ctx, r.ext(ctx), &seq, `SELECT nextval('course_external_seq')`); err != nil {
		return "", fmt.Errorf("next course external id: %w", err)
	}
	return fmt.Sprintf("CRS%d", seq), nil
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, external_id, name, code, credits, department_external_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.ext(ctx).ExecContext(ctx, query,
		course.ID, course.ExternalID, course.Name, course.Code, course.Credits, course.DepartmentID, course.CreatedAt, course.UpdatedAt); err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

// Update persists mutable course fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = $2, code = $3, credits = $4, updated_at = $5 WHERE external_id = $1`
	if _, err := r.ext(ctx).ExecContext(ctx, query,
		course.ExternalID, course.Name, course.Code, course.Credits, course.UpdatedAt); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course row.
func (r *CourseRepository) Delete(ctx context.Context, externalID string) error {
	if _, err := r.ext(ctx).ExecContext(ctx, `DELETE FROM courses WHERE external_id = $1`, externalID); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}
