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

// DepartmentRepository handles persistence of departments.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) ext(ctx context.Context) sqlx.ExtContext {
	return database.Ext(ctx, r.db)
}

const departmentColumns = `d.id, d.external_id, d.name, d.code, d.created_at, d.updated_at`

const departmentDetailColumns = departmentColumns + `,
        (SELECT COUNT(*) FROM students s WHERE s.department_external_id = d.external_id) AS student_count,
        (SELECT COUNT(*) FROM lecturers l WHERE l.department_external_id = d.external_id) AS lecturer_count,
        (SELECT COUNT(*) FROM courses c WHERE c.department_external_id = d.external_id) AS course_count`

// List returns departments matching the filter with a total count.
func (r *DepartmentRepository) List(ctx context.Context, filter models.DepartmentFilter) ([]models.DepartmentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(d.name ILIKE $%d OR d.code ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "d.name",
		"code":       "d.code",
		"created_at": "d.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "d.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s FROM departments d%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		departmentDetailColumns, clause, orderBy, order, limit, offset)

	var departments []models.DepartmentDetail
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &departments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list departments: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM departments d%s", clause)
	if err := sqlx.GetContext(ctx, r.ext(ctx), &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count departments: %w", err)
	}
	return departments, total, nil
}

// FindByExternalID returns a department with dependent counts.
func (r *DepartmentRepository) FindByExternalID(ctx context.Context, externalID string) (*models.DepartmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM departments d WHERE d.external_id = $1`, departmentDetailColumns)
	var department models.DepartmentDetail
	if err := sqlx.GetContext(ctx, r.ext(ctx), &department, query, externalID); err != nil {
		return nil, err
	}
	return &department, nil
}

// NextExternalID issues a store-side sequential external id (DEP<n>).
func (r *DepartmentRepository) NextExternalID(ctx context.Context) (string, error) {
	var seq int64
	if err := sqlx.GetContext(ctx, r.ext(ctx), &seq, `SELECT nextval('department_external_seq')`); err != nil {
		return "", fmt.Errorf("next department external id: %w", err)
	}
	return fmt.Sprintf("DEP%d", seq), nil
}

// Create inserts a new department.
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) error {
	if department.ID == "" {
		department.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	department.CreatedAt = now
	department.UpdatedAt = now
	const query = `INSERT INTO departments (id, external_id, name, code, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.ext(ctx).ExecContext(ctx, query,
		department.ID, department.ExternalID, department.Name, department.Code, department.CreatedAt, department.UpdatedAt); err != nil {
		return fmt.Errorf("insert department: %w", err)
	}
	return nil
}

// Update persists mutable department fields.
func (r *DepartmentRepository) Update(ctx context.Context, department *models.Department) error {
	department.UpdatedAt = time.Now().UTC()
	const query = `UPDATE departments SET name = $2, code = $3, updated_at = $4 WHERE external_id = $1`
	if _, err := r.ext(ctx).ExecContext(ctx, query,
		department.ExternalID, department.Name, department.Code, department.UpdatedAt); err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	return nil
}

// Delete removes a department row.
func (r *DepartmentRepository) Delete(ctx context.Context, externalID string) error {
	if _, err := r.ext(ctx).ExecContext(ctx, `DELETE FROM departments WHERE external_id = $1`, externalID); err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return nil
}

// Count returns the number of departments.
func (r *DepartmentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := sqlx.GetContext(ctx, r.ext(ctx), &total, `SELECT COUNT(*) FROM departments`); err != nil {
		return 0, fmt.Errorf("count departments: %w", err)
	}
	return total, nil
}

func pageBounds(page, size int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}
