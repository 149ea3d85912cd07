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

type lecturerRepository interface {
	List(ctx context.Context, filter models.LecturerFilter) ([]models.LecturerDetail, int, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.LecturerDetail, error)
	LockByExternalID(ctx context.Context, externalID string) error
	NextExternalID(ctx context.Context) (string, error)
	Create(ctx context.Context, lecturer *models.Lecturer) error
	Update(ctx context.Context, lecturer *models.Lecturer) error
	Delete(ctx context.Context, externalID string) error
}

type assignmentRepository interface {
	Exists(ctx context.Context, lecturerID, courseID string) (bool, error)
	Create(ctx context.Context, assignment *models.CourseAssignment) error
	Delete(ctx context.Context, lecturerID, courseID string) (bool, error)
	ListCourseIDsByLecturer(ctx context.Context, lecturerID string) ([]string, error)
}

type lecturerSessionCounter interface {
	CountByLecturer(ctx context.Context, lecturerID string) (int, error)
	CountByLecturerAndCourse(ctx context.Context, lecturerID, courseID string) (int, error)
}

// CreateLecturerRequest describes a lecturer creation payload.
type CreateLecturerRequest struct {
	Name         string `json:"name" validate:"required,max=120"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"omitempty,max=32"`
	DepartmentID string `json:"department_id" validate:"required"`
}

// UpdateLecturerRequest describes a partial lecturer update.
type UpdateLecturerRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// LecturerService manages lecturers and their course assignments.
type LecturerService struct {
	tx          txRunner
	repo        lecturerRepository
	courses     courseReader
	departments departmentReader
	assignments assignmentRepository
	sessions    lecturerSessionCounter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewLecturerService constructs LecturerService.
func NewLecturerService(tx txRunner, repo lecturerRepository, courses courseReader, departments departmentReader, assignments assignmentRepository, sessions lecturerSessionCounter, validate *validator.Validate, logger *zap.Logger) *LecturerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LecturerService{tx: tx, repo: repo, courses: courses, departments: departments, assignments: assignments, sessions: sessions, validator: validate, logger: logger}
}

// List returns lecturers with pagination metadata.
func (s *LecturerService) List(ctx context.Context, filter models.LecturerFilter) ([]models.LecturerDetail, *models.Pagination, error) {
	lecturers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lecturers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return lecturers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one lecturer by external id.
func (s *LecturerService) Get(ctx context.Context, externalID string) (*models.LecturerDetail, error) {
	lecturer, err := s.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lecturer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecturer")
	}
	return lecturer, nil
}

// Create registers a new lecturer under a department.
func (s *LecturerService) Create(ctx context.Context, req CreateLecturerRequest) (*models.LecturerDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lecturer payload")
	}
	var created *models.Lecturer
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.departments.FindByExternalID(ctx, req.DepartmentID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "department not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
		}
		externalID, err := s.repo.NextExternalID(ctx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue lecturer id")
		}
		created = &models.Lecturer{
			ExternalID:   externalID,
			Name:         req.Name,
			Email:        req.Email,
			Phone:        req.Phone,
			DepartmentID: req.DepartmentID,
		}
		if err := s.repo.Create(ctx, created); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lecturer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("lecturer created", zap.String("lecturer_id", created.ExternalID))
	return s.Get(ctx, created.ExternalID)
}

// Update applies a partial update to a lecturer.
func (s *LecturerService) Update(ctx context.Context, externalID string, req UpdateLecturerRequest) (*models.LecturerDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lecturer payload")
	}
	current, err := s.Get(ctx, externalID)
	if err != nil {
		return nil, err
	}
	updated := current.Lecturer
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
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update lecturer")
	}
	return s.Get(ctx, externalID)
}

// Delete removes a lecturer unless class sessions are assigned to them.
// Course assignments alone do not block deletion and are cleared first.
func (s *LecturerService) Delete(ctx context.Context, externalID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockByExternalID(ctx, externalID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "lecturer not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock lecturer")
		}
		sessions, err := s.sessions.CountByLecturer(ctx, externalID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count lecturer sessions")
		}
		if sessions > 0 {
			return appErrors.Clone(appErrors.ErrDeleteConflict,
				fmt.Sprintf("lecturer %s is assigned to %d class sessions", externalID, sessions))
		}
		courseIDs, err := s.assignments.ListCourseIDsByLecturer(ctx, externalID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course assignments")
		}
		for _, courseID := range courseIDs {
			if _, err := s.assignments.Delete(ctx, externalID, courseID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove course assignment")
			}
		}
		if err := s.repo.Delete(ctx, externalID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lecturer")
		}
		return nil
	})
}

// AssignCourse grants a lecturer the right to teach a course.
func (s *LecturerService) AssignCourse(ctx context.Context, lecturerID, courseID string) (*models.AssignmentResult, error) {
	var result *models.AssignmentResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		lecturer, err := s.repo.FindByExternalID(ctx, lecturerID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "lecturer not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecturer")
		}
		course, err := s.courses.FindByExternalID(ctx, courseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		if err := s.repo.LockByExternalID(ctx, lecturerID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock lecturer")
		}
		exists, err := s.assignments.Exists(ctx, lecturerID, courseID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course assignment")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrAssignmentConflict,
				fmt.Sprintf("lecturer %s is already assigned to course %s", lecturerID, courseID))
		}
		if err := s.assignments.Create(ctx, &models.CourseAssignment{LecturerID: lecturerID, CourseID: courseID}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course assignment")
		}
		result = &models.AssignmentResult{
			LecturerID:   lecturerID,
			CourseID:     courseID,
			LecturerName: lecturer.Name,
			CourseName:   course.Name,
			Message:      "assignment successful",
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UnassignCourse revokes a course assignment. Sessions the lecturer still
// teaches for that course block the removal.
func (s *LecturerService) UnassignCourse(ctx context.Context, lecturerID, courseID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockByExternalID(ctx, lecturerID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "lecturer not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock lecturer")
		}
		sessions, err := s.sessions.CountByLecturerAndCourse(ctx, lecturerID, courseID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count lecturer sessions")
		}
		if sessions > 0 {
			return appErrors.Clone(appErrors.ErrDeleteConflict,
				fmt.Sprintf("lecturer %s still teaches %d sessions of course %s", lecturerID, sessions, courseID))
		}
		removed, err := s.assignments.Delete(ctx, lecturerID, courseID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course assignment")
		}
		if !removed {
			return appErrors.Clone(appErrors.ErrNotFound,
				fmt.Sprintf("lecturer %s is not assigned to course %s", lecturerID, courseID))
		}
		return nil
	})
}
