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

// StudentRepository handles persistence of students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) ext(ctx context.Context) sqlx.ExtContext {
	return database.Ext(ctx, r.db)
}

const studentDetailColumns = `s.id, s.external_id, s.name, s.email, s.phone, s.department_external_id, s.enrollment_year, s.created_at, s.updated_at,
        (SELECT COUNT(*) FROM enrollments e WHERE e.student_external_id = s.external_id) AS session_count`

// List returns students matching the filter with a total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s"
	var conditions []string
	var args []interface{}

	if filter.ClassSessionID != "" {
		base += " JOIN enrollments e ON e.student_external_id = s.external_id"
		conditions = append(conditions, fmt.Sprintf("e.class_session_external_id = $%d", len(args)+1))
		args = append(args, filter.ClassSessionID)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("s.department_external_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(s.name ILIKE $%d OR s.email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":            "s.name",
		"email":           "s.email",
		"enrollment_year": "s.enrollment_year",
		"created_at":      "s.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "s.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		studentDetailColumns, base, clause, orderBy, order, limit, offset)

	var students []models.StudentDetail
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause)
	if err := sqlx.GetContext(ctx, r.ext(ctx), &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByExternalID returns a student with enrollment counts.
func (r *StudentRepository) FindByExternalID(ctx context.Context, externalID string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s WHERE s.external_id = $1`, studentDetailColumns)
	var student models.StudentDetail
	if err := sqlx.GetContext(ctx, r.ext(ctx), &student, query, externalID); err != nil {
		return nil, err
	}
	return &student, nil
}

// LockByExternalID serializes concurrent operations on one student. Only
// meaningful inside a transaction.
func (r *StudentRepository) LockByExternalID(ctx context.Context, externalID string) error {
	var id string
	if err := sqlx.GetContext(ctx, r.ext(ctx), &id, `SELECT id FROM students WHERE external_id = $1 FOR UPDATE`, externalID); err != nil {
		return err
	}
	return nil
}

// NextExternalID issues a store-side sequential external id (STU<n>).
func (r *StudentRepository) NextExternalID(ctx context.Context) (string, error) {
	var seq int64
	if err := sqlx.GetContext(ctx, r.ext(ctx), &seq, `SELECT nextval('student_external_seq')`); err != nil {
		return "", fmt.Errorf("next student external id: %w", err)
	}
	return fmt.Sprintf("STU%d", seq), nil
}

// Create inserts a new student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, external_id, name, email, phone, department_external_id, enrollment_year, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.ext(ctx).ExecContext(ctx, query,
		student.ID, student.ExternalID, student.Name, student.Email, student.Phone,
		student.DepartmentID, student.EnrollmentYear, student.CreatedAt, student.UpdatedAt); err != nil {
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// Update persists mutable student fields.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = $2, phone = $3, updated_at = $4 WHERE external_id = $1`
	if _, err := r.ext(ctx).ExecContext(ctx, query,
		student.ExternalID, student.Name, student.Phone, student.UpdatedAt); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student row.
func (r *StudentRepository) Delete(ctx context.Context, externalID string) error {
	if _, err := r.ext(ctx).ExecContext(ctx, `DELETE FROM students WHERE external_id = $1`, externalID); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}
