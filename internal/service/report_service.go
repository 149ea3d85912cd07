package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/campusflow/ums-api/internal/models"
	appErrors "github.com/campusflow/ums-api/pkg/errors"
	"github.com/campusflow/ums-api/pkg/export"
	"github.com/campusflow/ums-api/pkg/jobs"
)

type studentReader interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.StudentDetail, error)
}

type studentSessionLister interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.ClassSessionDetail, error)
}

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	FindByID(ctx context.Context, id string) (*models.ReportJob, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkFinished(ctx context.Context, id, fileName string) error
	MarkFailed(ctx context.Context, id, reason string) error
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type reportStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ReportService generates student schedule reports, synchronously, as
// background jobs, and as bulk fan-out runs.
type ReportService struct {
	students  studentReader
	sessions  studentSessionLister
	jobStore  reportJobStore
	storage   reportStore
	renderers map[models.ReportFormat]export.Renderer
	queue     jobEnqueuer
	workers   int
	resultTTL time.Duration
	logger    *zap.Logger
}

// NewReportService constructs ReportService. Bulk generation fans out over
// the given number of workers.
func NewReportService(students studentReader, sessions studentSessionLister, jobStore reportJobStore, storage reportStore, workers int, resultTTL time.Duration, logger *zap.Logger) *ReportService {
	if workers <= 0 {
		workers = 4
	}
	if resultTTL <= 0 {
		resultTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		students: students,
		sessions: sessions,
		jobStore: jobStore,
		storage:  storage,
		renderers: map[models.ReportFormat]export.Renderer{
			models.ReportFormatTXT: export.NewTextRenderer(),
			models.ReportFormatCSV: export.NewCSVRenderer(),
			models.ReportFormatPDF: export.NewPDFRenderer(),
		},
		workers:   workers,
		resultTTL: resultTTL,
		logger:    logger,
	}
}

// AttachQueue wires the background queue used by EnqueueReport. The queue's
// handler must be ProcessJob.
func (s *ReportService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Generate renders one student's schedule report and stores the file.
func (s *ReportService) Generate(ctx context.Context, studentID string, format models.ReportFormat) (*models.ReportResult, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgs, fmt.Sprintf("unsupported report format %q", format))
	}
	student, err := s.students.FindByExternalID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	sessions, err := s.sessions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student sessions")
	}

	doc := buildScheduleDocument(student, sessions)
	data, err := s.renderers[format].Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	generatedAt := time.Now().UTC()
	fileName := fmt.Sprintf("%s_schedule_%s.%s", student.ExternalID, generatedAt.Format("20060102T150405"), format)
	if _, err := s.storage.Save(fileName, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}

	s.logger.Info("report generated",
		zap.String("student_id", student.ExternalID),
		zap.String("file", fileName))
	return &models.ReportResult{
		StudentID:   student.ExternalID,
		StudentName: student.Name,
		Format:      format,
		FileName:    fileName,
		GeneratedAt: generatedAt,
	}, nil
}

// Enqueue registers an asynchronous report job and hands it to the queue.
func (s *ReportService) Enqueue(ctx context.Context, studentID string, format models.ReportFormat) (*models.ReportJob, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgs, fmt.Sprintf("unsupported report format %q", format))
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "report queue not running")
	}
	if _, err := s.students.FindByExternalID(ctx, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	job := &models.ReportJob{StudentID: studentID, Format: format}
	if err := s.jobStore.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "student_report"}); err != nil {
		if markErr := s.jobStore.MarkFailed(ctx, job.ID, "queue unavailable"); markErr != nil {
			s.logger.Warn("report job not marked failed", zap.String("job_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue report job")
	}
	return job, nil
}

// JobStatus returns the persisted state of an asynchronous report job.
func (s *ReportService) JobStatus(ctx context.Context, jobID string) (*models.ReportJob, error) {
	job, err := s.jobStore.FindByID(ctx, jobID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	return job, nil
}

// ProcessJob is the queue handler for asynchronous report jobs.
func (s *ReportService) ProcessJob(ctx context.Context, job jobs.Job) error {
	record, err := s.jobStore.FindByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load report job %s: %w", job.ID, err)
	}
	if err := s.jobStore.MarkProcessing(ctx, record.ID); err != nil {
		return fmt.Errorf("mark report job %s: %w", record.ID, err)
	}
	result, err := s.Generate(ctx, record.StudentID, record.Format)
	if err != nil {
		if markErr := s.jobStore.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			s.logger.Warn("report job not marked failed", zap.String("job_id", record.ID), zap.Error(markErr))
		}
		return err
	}
	return s.jobStore.MarkFinished(ctx, record.ID, result.FileName)
}

// GenerateBulk renders reports for many students concurrently. Failures are
// isolated per student; the summary counts both outcomes and lists the
// produced files in request order.
func (s *ReportService) GenerateBulk(ctx context.Context, studentIDs []string, format models.ReportFormat) (*models.BulkReportSummary, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgs, fmt.Sprintf("unsupported report format %q", format))
	}
	if len(studentIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgs, "no student ids provided")
	}

	files := make([]string, len(studentIDs))
	tasks := make([]jobs.Task, len(studentIDs))
	for i, studentID := range studentIDs {
		i, studentID := i, studentID
		tasks[i] = jobs.Task{
			Key: studentID,
			Run: func(ctx context.Context) error {
				result, err := s.Generate(ctx, studentID, format)
				if err != nil {
					return err
				}
				files[i] = result.FileName
				return nil
			},
		}
	}

	results := jobs.RunBatch(ctx, s.workers, tasks)

	summary := &models.BulkReportSummary{
		TotalRequests: len(studentIDs),
		FileNames:     make([]string, 0, len(studentIDs)),
		GeneratedAt:   time.Now().UTC(),
	}
	for i, res := range results {
		if res.Err != nil {
			summary.Failed++
			s.logger.Warn("bulk report failed",
				zap.String("student_id", res.Key),
				zap.Error(res.Err))
			continue
		}
		summary.Succeeded++
		summary.FileNames = append(summary.FileNames, files[i])
	}
	return summary, nil
}

// Open returns a read handle on a previously generated report file.
func (s *ReportService) Open(fileName string) (*os.File, error) {
	file, err := s.storage.Open(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open report file")
	}
	return file, nil
}

// Cleanup removes expired report files and prunes finished job rows.
func (s *ReportService) Cleanup(ctx context.Context) {
	deleted, err := s.storage.CleanupOlderThan(s.resultTTL)
	if err != nil {
		s.logger.Warn("report file cleanup failed", zap.Error(err))
	} else if len(deleted) > 0 {
		s.logger.Info("report files pruned", zap.Int("count", len(deleted)))
	}
	pruned, err := s.jobStore.DeleteFinishedBefore(ctx, time.Now().UTC().Add(-s.resultTTL))
	if err != nil {
		s.logger.Warn("report job cleanup failed", zap.Error(err))
	} else if pruned > 0 {
		s.logger.Info("report jobs pruned", zap.Int64("count", pruned))
	}
}

func buildScheduleDocument(student *models.StudentDetail, sessions []models.ClassSessionDetail) export.Document {
	doc := export.Document{
		Title: "Student Schedule Report",
		Fields: []export.Field{
			{Label: "Student ID", Value: student.ExternalID},
			{Label: "Name", Value: student.Name},
			{Label: "Email", Value: student.Email},
			{Label: "Department", Value: student.DepartmentID},
			{Label: "Enrolled Sessions", Value: fmt.Sprintf("%d", len(sessions))},
		},
		Headers: []string{"Day", "Start", "End", "Course", "Lecturer", "Location"},
	}
	for _, session := range sessions {
		doc.Rows = append(doc.Rows, []string{
			string(session.TimeSlot.Day),
			session.TimeSlot.Start.String(),
			session.TimeSlot.End.String(),
			session.CourseName,
			session.LecturerName,
			session.Location,
		})
	}
	return doc
}
