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

// LecturerRepository handles persistence of lecturers.
type LecturerRepository struct {
	db *sqlx.DB
}

// NewLecturerRepository constructs the repository.
func NewLecturerRepository(db *sqlx.DB) *LecturerRepository {
	return &LecturerRepository{db: db}
}

func (r *LecturerRepository) ext(ctx context.Context) sqlx.ExtContext {
	return database.Ext(ctx, r.db)
}

const lecturerDetailColumns = `l.id, l.external_id, l.name, l.email, l.phone, l.department_external_id, l.created_at, l.updated_at,
        (SELECT COUNT(*) FROM lecturer_courses lc WHERE lc.lecturer_external_id = l.external_id) AS course_count,
        (SELECT COUNT(*) FROM class_sessions cs WHERE cs.lecturer_external_id = l.external_id) AS session_count`

// List returns lecturers matching the filter with a total count.
func (r *LecturerRepository) List(ctx context.Context, filter models.LecturerFilter) ([]models.LecturerDetail, int, error) {
	base := "FROM lecturers l"
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		base += " JOIN lecturer_courses lc ON lc.lecturer_external_id = l.external_id"
		conditions = append(conditions, fmt.Sprintf("lc.course_external_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("l.department_external_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(l.name ILIKE $%d OR l.email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "l.name",
		"email":      "l.email",
		"created_at": "l.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "l.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		lecturerDetailColumns, base, clause, orderBy, order, limit, offset)

	var lecturers []models.LecturerDetail
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &lecturers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list lecturers: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause)
	if err := sqlx.GetContext(ctx, r.ext(ctx), &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count lecturers: %w", err)
	}
	return lecturers, total, nil
}

// FindByExternalID returns a lecturer with assignment counts.
func (r *LecturerRepository) FindByExternalID(ctx context.Context, externalID string) (*models.LecturerDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM lecturers l WHERE l.external_id = $1`, lecturerDetailColumns)
	var lecturer models.LecturerDetail
	if err := sqlx.GetContext(ctx, r.ext(ctx), &lecturer, query, externalID); err != nil {
		return nil, err
	}
	return &lecturer, nil
}

// LockByExternalID serializes concurrent operations on one lecturer. Only
// meaningful inside a transaction.
func (r *LecturerRepository) LockByExternalID(ctx context.Context, externalID string) error {
	var id string
	if err := sqlx.GetContext(ctx, r.ext(ctx), &id, `SELECT id FROM lecturers WHERE external_id = $1 FOR UPDATE`, externalID); err != nil {
		return err
	}
	return nil
}

// NextExternalID issues a store-side sequential external id (LECT<n>).
func (r *LecturerRepository) NextExternalID(ctx context.Context) (string, error) {
	var seq int64
	if err := sqlx.GetContext(ctx, r.ext(ctx), &seq, `SELECT nextval('lecturer_external_seq')`); err != nil {
		return "", fmt.Errorf("next lecturer external id: %w", err)
	}
	return fmt.Sprintf("LECT%d", seq), nil
}

// Create inserts a new lecturer.
func (r *LecturerRepository) Create(ctx context.Context, lecturer *models.Lecturer) error {
	if lecturer.ID == "" {
		lecturer.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lecturer.CreatedAt = now
	lecturer.UpdatedAt = now
	const query = `INSERT INTO lecturers (id, external_id, name, email, phone, department_external_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.ext(ctx).ExecContext(ctx, query,
		lecturer.ID, lecturer.ExternalID, lecturer.Name, lecturer.Email, lecturer.Phone, lecturer.DepartmentID, lecturer.CreatedAt, lecturer.UpdatedAt); err != nil {
		return fmt.Errorf("insert lecturer: %w", err)
	}
	return nil
}

// Update persists mutable lecturer fields.
func (r *LecturerRepository) Update(ctx context.Context, lecturer *models.Lecturer) error {
	lecturer.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lecturers SET name = $2, phone = $3, updated_at = $4 WHERE external_id = $1`
	if _, err := r.ext(ctx).ExecContext(ctx, query,
		lecturer.ExternalID, lecturer.Name, lecturer.Phone, lecturer.UpdatedAt); err != nil {
		return fmt.Errorf("update lecturer: %w", err)
	}
	return nil
}

// Delete removes a lecturer row.
func (r *LecturerRepository) Delete(ctx context.Context, externalID string) error {
	if _, err := r.ext(ctx).ExecContext(ctx, `DELETE FROM lecturers WHERE external_id = $1`, externalID); err != nil {
		return fmt.Errorf("delete lecturer: %w", err)
	}
	return nil
}
