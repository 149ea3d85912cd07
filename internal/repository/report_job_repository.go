package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusflow/ums-api/internal/models"
	"github.com/campusflow/ums-api/pkg/database"
)

// ReportJobRepository persists background report job state.
type ReportJobRepository struct {
	db *sqlx.DB
}

// NewReportJobRepository constructs the repository.
func NewReportJobRepository(db *sqlx.DB) *ReportJobRepository {
	return &ReportJobRepository{db: db}
}

func (r *ReportJobRepository) ext(ctx context.Context) sqlx.ExtContext {
	return database.Ext(ctx, r.db)
}

// Create inserts a queued job row.
func (r *ReportJobRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = models.ReportStatusQueued
	job.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO report_jobs (id, student_external_id, format, status, created_at)
        VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.ext(ctx).ExecContext(ctx, query,
		job.ID, job.StudentID, job.Format, job.Status, job.CreatedAt); err != nil {
		return fmt.Errorf("insert report job: %w", err)
	}
	return nil
}

// FindByID returns one job row.
func (r *ReportJobRepository) FindByID(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT id, student_external_id, format, status, file_name, error_message, created_at, finished_at
        FROM report_jobs WHERE id = $1`
	var job models.ReportJob
	if err := sqlx.GetContext(ctx, r.ext(ctx), &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkProcessing flips a queued job to PROCESSING.
func (r *ReportJobRepository) MarkProcessing(ctx context.Context, id string) error {
	if _, err := r.ext(ctx).ExecContext(ctx,
		`UPDATE report_jobs SET status = $2 WHERE id = $1`, id, models.ReportStatusProcessing); err != nil {
		return fmt.Errorf("mark report job processing: %w", err)
	}
	return nil
}

// MarkFinished records the produced file name.
func (r *ReportJobRepository) MarkFinished(ctx context.Context, id, fileName string) error {
	if _, err := r.ext(ctx).ExecContext(ctx,
		`UPDATE report_jobs SET status = $2, file_name = $3, finished_at = $4 WHERE id = $1`,
		id, models.ReportStatusFinished, fileName, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark report job finished: %w", err)
	}
	return nil
}

// MarkFailed records the failure reason.
func (r *ReportJobRepository) MarkFailed(ctx context.Context, id, reason string) error {
	if _, err := r.ext(ctx).ExecContext(ctx,
		`UPDATE report_jobs SET status = $2, error_message = $3, finished_at = $4 WHERE id = $1`,
		id, models.ReportStatusFailed, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark report job failed: %w", err)
	}
	return nil
}

// DeleteFinishedBefore prunes finished and failed jobs older than the cutoff.
func (r *ReportJobRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.ext(ctx).ExecContext(ctx,
		`DELETE FROM report_jobs WHERE status IN ($1, $2) AND finished_at < $3`,
		models.ReportStatusFinished, models.ReportStatusFailed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune report jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune report jobs: %w", err)
	}
	return affected, nil
}
