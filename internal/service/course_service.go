package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusflow/ums-api/internal/models"
	appErrors "github.com/campusflow/ums-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.CourseDetail, error)
	NextExternalID(ctx context.Context) (string, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, externalID string) error
}

type departmentReader interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.DepartmentDetail, error)
}

type sessionCounter interface {
	CountByCourse(ctx context.Context, courseID string) (int, error)
}

// CreateCourseRequest describes a course creation payload.
type CreateCourseRequest struct {
	Name         string `json:"name" validate:"required,max=120"`
	Code         string `json:"code" validate:"required,max=16"`
	Credits      int    `json:"credits" validate:"required,min=1,max=30"`
	DepartmentID string `json:"department_id" validate:"required"`
}

// UpdateCourseRequest describes a partial course update.
type UpdateCourseRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Code    *string `json:"code,omitempty" validate:"omitempty,max=16"`
	Credits *int    `json:"credits,omitempty" validate:"omitempty,min=1,max=30"`
}

// CourseService manages the course catalog.
type CourseService struct {
	tx          txRunner
	repo        courseRepository
	departments departmentReader
	sessions    sessionCounter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(tx txRunner, repo courseRepository, departments departmentReader, sessions sessionCounter, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{tx: tx, repo: repo, departments: departments, sessions: sessions, validator: validate, logger: logger}
}

// List returns courses with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one course by external id.
func (s *CourseService) Get(ctx context.Context, externalID string) (*models.CourseDetail, error) {
	course, err := s.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create registers a new course under a department.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	var created *models.Course
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.departments.FindByExternalID(ctx, req.DepartmentID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "department not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
		}
		externalID, err := s.repo.NextExternalID(ctx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue course id")
		}
		created = &models.Course{
			ExternalID:   externalID,
			Name:         req.Name,
			Code:         req.Code,
			Credits:      req.Credits,
			DepartmentID: req.DepartmentID,
		}
		if err := s.repo.Create(ctx, created); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("course created", zap.String("course_id", created.ExternalID))
	return s.Get(ctx, created.ExternalID)
}

// Update applies a partial update to a course.
func (s *CourseService) Update(ctx context.Context, externalID string, req UpdateCourseRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	current, err := s.Get(ctx, externalID)
	if err != nil {
		return nil, err
	}
	updated := current.Course
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Code != nil {
		updated.Code = *req.Code
	}
	if req.Credits != nil {
		updated.Credits = *req.Credits
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return s.Get(ctx, externalID)
}

// Delete removes a course unless any class session is scheduled for it. The
// guard fires regardless of those sessions' enrollment.
func (s *CourseService) Delete(ctx context.Context, externalID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.FindByExternalID(ctx, externalID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		sessions, err := s.sessions.CountByCourse(ctx, externalID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count course sessions")
		}
		if sessions > 0 {
			return appErrors.Clone(appErrors.ErrDeleteConflict,
				fmt.Sprintf("course %s has %d scheduled class sessions", externalID, sessions))
		}
		if err := s.repo.Delete(ctx, externalID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
		}
		return nil
	})
}
