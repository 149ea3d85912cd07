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

// ClassSessionRepository handles persistence of class sessions.
type ClassSessionRepository struct {
	db *sqlx.DB
}

// NewClassSessionRepository constructs the repository.
func NewClassSessionRepository(db *sqlx.DB) *ClassSessionRepository {
	return &ClassSessionRepository{db: db}
}

func (r *ClassSessionRepository) ext(ctx context.Context) sqlx.ExtContext {
	return database.Ext(ctx, r.db)
}

// classSessionRow flattens the time slot columns for sqlx scanning.
type classSessionRow struct {
	ID            string           `db:"id"`
	ExternalID    string           `db:"external_id"`
	CourseID      string           `db:"course_external_id"`
	LecturerID    string           `db:"lecturer_external_id"`
	Day           models.DayOfWeek `db:"day_of_week"`
	Start         models.ClockTime `db:"start_time"`
	End           models.ClockTime `db:"end_time"`
	Location      string           `db:"location"`
	MaxCapacity   int              `db:"max_capacity"`
	EnrolledCount int              `db:"enrolled_count"`
	CreatedAt     time.Time        `db:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"`
	CourseName    string           `db:"course_name"`
	LecturerName  string           `db:"lecturer_name"`
}

func (row classSessionRow) toDetail() models.ClassSessionDetail {
	return models.ClassSessionDetail{
		ClassSession: models.ClassSession{
			ID:            row.ID,
			ExternalID:    row.ExternalID,
			CourseID:      row.CourseID,
			LecturerID:    row.LecturerID,
			TimeSlot:      models.TimeSlot{Day: row.Day, Start: row.Start, End: row.End},
			Location:      row.Location,
			MaxCapacity:   row.MaxCapacity,
			EnrolledCount: row.EnrolledCount,
			CreatedAt:     row.CreatedAt,
			UpdatedAt:     row.UpdatedAt,
		},
		CourseName:   row.CourseName,
		LecturerName: row.LecturerName,
	}
}

const classSessionColumns = `cs.id, cs.external_id, cs.course_external_id, cs.lecturer_external_id,
        cs.day_of_week, cs.start_time, cs.end_time, cs.location, cs.max_capacity, cs.created_at, cs.updated_at,
        (SELECT COUNT(*) FROM enrollments e WHERE e.class_session_external_id = cs.external_id) AS enrolled_count,
        c.name AS course_name, l.name AS lecturer_name`

const classSessionBase = `FROM class_sessions cs
        JOIN courses c ON c.external_id = cs.course_external_id
        JOIN lecturers l ON l.external_id = cs.lecturer_external_id`

// List returns sessions matching the filter with a total count.
func (r *ClassSessionRepository) List(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSessionDetail, int, error) {
	base := classSessionBase
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		base += " JOIN enrollments en ON en.class_session_external_id = cs.external_id"
		conditions = append(conditions, fmt.Sprintf("en.student_external_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.course_external_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.LecturerID != "" {
		conditions = append(conditions, fmt.Sprintf("cs.lecturer_external_id = $%d", len(args)+1))
		args = append(args, filter.LecturerID)
	}
	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("cs.day_of_week = $%d", len(args)+1))
		args = append(args, filter.Day)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"start_time":  "cs.start_time",
		"day_of_week": "cs.day_of_week",
		"location":    "cs.location",
		"created_at":  "cs.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "cs.start_time"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY %s %s LIMIT %d OFFSET %d`,
		classSessionColumns, base, clause, orderBy, order, limit, offset)

	var rows []classSessionRow
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list class sessions: %w", err)
	}
	sessions := make([]models.ClassSessionDetail, len(rows))
	for i, row := range rows {
		sessions[i] = row.toDetail()
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s%s", base, clause)
	if err := sqlx.GetContext(ctx, r.ext(ctx), &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count class sessions: %w", err)
	}
	return sessions, total, nil
}

// FindByExternalID returns a session with derived enrollment counts.
func (r *ClassSessionRepository) FindByExternalID(ctx context.Context, externalID string) (*models.ClassSessionDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE cs.external_id = $1`, classSessionColumns, classSessionBase)
	var row classSessionRow
	if err := sqlx.GetContext(ctx, r.ext(ctx), &row, query, externalID); err != nil {
		return nil, err
	}
	detail := row.toDetail()
	return &detail, nil
}

// LockByExternalID serializes concurrent operations on one session. Only
// meaningful inside a transaction.
func (r *ClassSessionRepository) LockByExternalID(ctx context.Context, externalID string) error {
	var id string
	if err := sqlx.GetContext(ctx, r.ext(ctx), &id, `SELECT id FROM class_sessions WHERE external_id = $1 FOR UPDATE`, externalID); err != nil {
		return err
	}
	return nil
}

// ListByLecturer returns every session taught by the lecturer, unpaginated,
// for overlap checks.
func (r *ClassSessionRepository) ListByLecturer(ctx context.Context, lecturerID string) ([]models.ClassSessionDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE cs.lecturer_external_id = $1 ORDER BY cs.day_of_week, cs.start_time`,
		classSessionColumns, classSessionBase)
	var rows []classSessionRow
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &rows, query, lecturerID); err != nil {
		return nil, fmt.Errorf("list lecturer sessions: %w", err)
	}
	sessions := make([]models.ClassSessionDetail, len(rows))
	for i, row := range rows {
		sessions[i] = row.toDetail()
	}
	return sessions, nil
}

// ListByStudent returns every session the student is enrolled in,
// unpaginated, for overlap checks.
func (r *ClassSessionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ClassSessionDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s
        JOIN enrollments en ON en.class_session_external_id = cs.external_id
        WHERE en.student_external_id = $1 ORDER BY cs.day_of_week, cs.start_time`,
		classSessionColumns, classSessionBase)
	var rows []classSessionRow
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list student sessions: %w", err)
	}
	sessions := make([]models.ClassSessionDetail, len(rows))
	for i, row := range rows {
		sessions[i] = row.toDetail()
	}
	return sessions, nil
}

// NextExternalID issues a store-side sequential external id (CL<n>).
func (r *ClassSessionRepository) NextExternalID(ctx context.Context) (string, error) {
	var seq int64
	if err := sqlx.GetContext(ctx, r.ext(ctx), &seq, `SELECT nextval('class_session_external_seq')`); err != nil {
		return "", fmt.Errorf("next class session external id: %w", err)
	}
	return fmt.Sprintf("CL%d", seq), nil
}

// Create inserts a new class session.
func (r *ClassSessionRepository) Create(ctx context.Context, session *models.ClassSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	const query = `INSERT INTO class_sessions
        (id, external_id, course_external_id, lecturer_external_id, day_of_week, start_time, end_time, location, max_capacity, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.ext(ctx).ExecContext(ctx, query,
		session.ID, session.ExternalID, session.CourseID, session.LecturerID,
		session.TimeSlot.Day, session.TimeSlot.Start, session.TimeSlot.End,
		session.Location, session.MaxCapacity, session.CreatedAt, session.UpdatedAt); err != nil {
		return fmt.Errorf("insert class session: %w", err)
	}
	return nil
}

// Update persists the mutable session fields in one statement.
func (r *ClassSessionRepository) Update(ctx context.Context, session *models.ClassSession) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_sessions
        SET day_of_week = $2, start_time = $3, end_time = $4, location = $5, max_capacity = $6, updated_at = $7
        WHERE external_id = $1`
	if _, err := r.ext(ctx).ExecContext(ctx, query,
		session.ExternalID, session.TimeSlot.Day, session.TimeSlot.Start, session.TimeSlot.End,
		session.Location, session.MaxCapacity, session.UpdatedAt); err != nil {
		return fmt.Errorf("update class session: %w", err)
	}
	return nil
}

// Delete removes a class session row.
func (r *ClassSessionRepository) Delete(ctx context.Context, externalID string) error {
	if _, err := r.ext(ctx).ExecContext(ctx, `DELETE FROM class_sessions WHERE external_id = $1`, externalID); err != nil {
		return fmt.Errorf("delete class session: %w", err)
	}
	return nil
}

// CountByCourse returns the number of sessions scheduled for a course.
func (r *ClassSessionRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var total int
	if err := sqlx.GetContext(ctx, r.ext(ctx), &total,
		`SELECT COUNT(*) FROM class_sessions WHERE course_external_id = $1`, courseID); err != nil {
		return 0, fmt.Errorf("count course sessions: %w", err)
	}
	return total, nil
}

// CountByLecturer returns the number of sessions assigned to a lecturer.
func (r *ClassSessionRepository) CountByLecturer(ctx context.Context, lecturerID string) (int, error) {
	var total int
	if err := sqlx.GetContext(ctx, r.ext(ctx), &total,
		`SELECT COUNT(*) FROM class_sessions WHERE lecturer_external_id = $1`, lecturerID); err != nil {
		return 0, fmt.Errorf("count lecturer sessions: %w", err)
	}
	return total, nil
}

// CountByLecturerAndCourse returns how many sessions the lecturer teaches
// for one course.
func (r *ClassSessionRepository) CountByLecturerAndCourse(ctx context.Context, lecturerID, courseID string) (int, error) {
	var total int
	if err := sqlx.GetContext(ctx, r.ext(ctx), &total,
		`SELECT COUNT(*) FROM class_sessions WHERE lecturer_external_id = $1 AND course_external_id = $2`,
		lecturerID, courseID); err != nil {
		return 0, fmt.Errorf("count lecturer course sessions: %w", err)
	}
	return total, nil
}
