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

type departmentRepository interface {
	List(ctx context.Context, filter models.DepartmentFilter) ([]models.DepartmentDetail, int, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.DepartmentDetail, error)
	NextExternalID(ctx context.Context) (string, error)
	Create(ctx context.Context, department *models.Department) error
	Update(ctx context.Context, department *models.Department) error
	Delete(ctx context.Context, externalID string) error
}

// CreateDepartmentRequest describes a department creation payload.
type CreateDepartmentRequest struct {
	Name string `json:"name" validate:"required,max=120"`
	Code string `json:"code" validate:"required,max=16"`
}

// UpdateDepartmentRequest describes a partial department update.
type UpdateDepartmentRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Code *string `json:"code,omitempty" validate:"omitempty,max=16"`
}

// DepartmentService manages academic departments.
type DepartmentService struct {
	tx        txRunner
	repo      departmentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDepartmentService constructs DepartmentService.
func NewDepartmentService(tx txRunner, repo departmentRepository, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{tx: tx, repo: repo, validator: validate, logger: logger}
}

// List returns departments with pagination metadata.
func (s *DepartmentService) List(ctx context.Context, filter models.DepartmentFilter) ([]models.DepartmentDetail, *models.Pagination, error) {
	departments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return departments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one department by external id.
func (s *DepartmentService) Get(ctx context.Context, externalID string) (*models.DepartmentDetail, error) {
	department, err := s.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
	}
	return department, nil
}

// Create registers a new department.
func (s *DepartmentService) Create(ctx context.Context, req CreateDepartmentRequest) (*models.DepartmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}
	var created *models.Department
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		externalID, err := s.repo.NextExternalID(ctx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue department id")
		}
		created = &models.Department{ExternalID: externalID, Name: req.Name, Code: req.Code}
		if err := s.repo.Create(ctx, created); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create department")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("department created", zap.String("department_id", created.ExternalID))
	return s.Get(ctx, created.ExternalID)
}

// Update applies a partial update to a department.
func (s *DepartmentService) Update(ctx context.Context, externalID string, req UpdateDepartmentRequest) (*models.DepartmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid department payload")
	}
	current, err := s.Get(ctx, externalID)
	if err != nil {
		return nil, err
	}
	updated := current.Department
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Code != nil {
		updated.Code = *req.Code
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update department")
	}
	return s.Get(ctx, externalID)
}

// Delete removes a department unless students, lecturers, or courses still
// reference it.
func (s *DepartmentService) Delete(ctx context.Context, externalID string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		department, err := s.repo.FindByExternalID(ctx, externalID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "department not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department")
		}
		if department.StudentCount > 0 || department.LecturerCount > 0 || department.CourseCount > 0 {
			return appErrors.Clone(appErrors.ErrDeleteConflict,
				fmt.Sprintf("department %s has %d students, %d lecturers, %d courses",
					externalID, department.StudentCount, department.LecturerCount, department.CourseCount))
		}
		if err := s.repo.Delete(ctx, externalID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete department")
		}
		return nil
	})
}
