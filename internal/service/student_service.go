package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusflow/ums-api/internal/models"
	appErrors "github.com/campusflow/ums-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.StudentDetail, error)
	LockByExternalID(ctx context.Context, externalID string) error
	NextExternalID(ctx context.Context) (string, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, externalID string) error
}

type rosterCleaner interface {
	DeleteByStudent(ctx context.Context, studentID string) error
}

// CreateStudentRequest describes a student creation payload.
type CreateStudentRequest struct {
	Name           string `json:"name" validate:"required,max=120"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"omitempty,max=32"`
	DepartmentID   string `json:"department_id" validate:"required"`
	EnrollmentYear int    `json:"enrollment_year" validate:"required,min=1990,max=2100"`
}

// UpdateStudentRequest describes a partial student update.
type UpdateStudentRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// StudentService manages student records.
type StudentService struct {
	tx          txRunner
	repo        studentRepository
	departments departmentReader
	roster      rosterCleaner
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(tx txRunner, repo studentRepository, departments departmentReader, roster rosterCleaner, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{tx: tx, repo: repo, departments: departments, roster: roster, validator: validate, logger: logger}
}

// AttachCache wires the cache so deletes evict stale session entries.
func (s *StudentService) AttachCache(cache *CacheService) {
	s.cache = cache
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one student by external id.
func (s *StudentService) Get(ctx context.Context, externalID string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student under a department.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	var created *models.Student
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.departments.FindByExternalID(ctx, req.DepartmentID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "department not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
		}
		externalID, err := s.repo.NextExternalID(ctx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue student id")
		}
		created = &models.Student{
			ExternalID:     externalID,
			Name:           req.Name,
			Email:          req.Email,
			Phone:          req.Phone,
			DepartmentID:   req.DepartmentID,
			EnrollmentYear: req.EnrollmentYear,
		}
		if err := s.repo.Create(ctx, created); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("student created", zap.String("student_id", created.ExternalID))
	return s.Get(ctx, created.ExternalID)
}

// Update applies a partial update to a student.
func (s *StudentService) Update(ctx context.Context, externalID string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	current, err := s.Get(ctx, externalID)
	if err != nil {
		return nil, err
	}
	updated := current.Student
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Email != nil {
		updated.Email = *req.Email
	}
	if req.Phone != nil {
		updated.Phone = *req.Phone
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return s.Get(ctx, externalID)
}

// Delete removes a student. Enrollments never block the removal: the roster
// is cleared first and the student row goes after it, in one transaction.
func (s *StudentService) Delete(ctx context.Context, externalID string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockByExternalID(ctx, externalID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock student")
		}
		if err := s.roster.DeleteByStudent(ctx, externalID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear enrollments")
		}
		if err := s.repo.Delete(ctx, externalID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
		}
		return nil
	})
	if err != nil {
		return err
	}
	// The cleared roster changes enrolled counts on an unknown set of
	// sessions, so the whole detail cache goes.
	if s.cache.Enabled() {
		if err := s.cache.Invalidate(ctx, "sessions:detail:*"); err != nil {
			s.logger.Warn("session cache invalidation failed", zap.Error(err))
		}
	}
	s.logger.Info("student deleted", zap.String("student_id", externalID))
	return nil
}
