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

type enrollmentRepository interface {
	Exists(ctx context.Context, studentID, sessionID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Delete(ctx context.Context, studentID, sessionID string) (bool, error)
}

type studentLocker interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.StudentDetail, error)
	LockByExternalID(ctx context.Context, externalID string) error
}

type sessionLocker interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.ClassSessionDetail, error)
	LockByExternalID(ctx context.Context, externalID string) error
	ListByStudent(ctx context.Context, studentID string) ([]models.ClassSessionDetail, error)
}

// EnrollRequest describes an enrollment payload.
type EnrollRequest struct {
	StudentID      string `json:"student_id" validate:"required"`
	ClassSessionID string `json:"class_session_id" validate:"required"`
}

// EnrollmentService registers students into class sessions.
type EnrollmentService struct {
	tx        txRunner
	repo      enrollmentRepository
	students  studentLocker
	sessions  sessionLocker
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(tx txRunner, repo enrollmentRepository, students studentLocker, sessions sessionLocker, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{tx: tx, repo: repo, students: students, sessions: sessions, validator: validate, logger: logger}
}

// AttachCache wires the cache so roster changes evict stale session entries.
func (s *EnrollmentService) AttachCache(cache *CacheService) {
	s.cache = cache
}

func (s *EnrollmentService) invalidateSession(ctx context.Context, sessionID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, sessionCacheKey(sessionID)); err != nil {
		s.logger.Warn("session cache invalidation failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// Enroll adds a student to a class session roster. The rule order is fixed:
// existence of both entities, capacity, duplicate membership, then schedule
// overlap with the student's other sessions. Duplicate membership is checked
// before overlap so re-enrolling in the same session reports the duplicate,
// not a self-overlap.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	var result *models.EnrollmentResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		student, err := s.students.FindByExternalID(ctx, req.StudentID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}

		// Lock ordering is student first, then session, for every
		// operation touching both, so concurrent enrollments cannot
		// deadlock.
		if err := s.students.LockByExternalID(ctx, student.ExternalID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock student")
		}
		if err := s.sessions.LockByExternalID(ctx, req.ClassSessionID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "class session not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock class session")
		}
		session, err := s.sessions.FindByExternalID(ctx, req.ClassSessionID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class session")
		}

		if session.IsFull() {
			return appErrors.Clone(appErrors.ErrCapacityConflict,
				fmt.Sprintf("class session %s is full (%d/%d)", session.ExternalID, session.EnrolledCount, session.MaxCapacity))
		}

		enrolled, err := s.repo.Exists(ctx, student.ExternalID, session.ExternalID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
		}
		if enrolled {
			return appErrors.Clone(appErrors.ErrEnrollmentConflict,
				fmt.Sprintf("student %s is already enrolled in %s", student.ExternalID, session.ExternalID))
		}

		others, err := s.sessions.ListByStudent(ctx, student.ExternalID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student sessions")
		}
		for _, other := range others {
			if session.TimeSlot.Overlaps(other.TimeSlot) {
				return appErrors.Clone(appErrors.ErrEnrollmentConflict,
					fmt.Sprintf("time slot overlaps enrolled session %s at %s", other.ExternalID, other.TimeSlot))
			}
		}

		if err := s.repo.Create(ctx, &models.Enrollment{StudentID: student.ExternalID, ClassSessionID: session.ExternalID}); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
		}

		result = &models.EnrollmentResult{
			StudentID:      student.ExternalID,
			ClassSessionID: session.ExternalID,
			StudentName:    student.Name,
			CourseName:     session.CourseName,
			AvailableSeats: session.AvailableSeats() - 1,
			Message:        "enrollment successful",
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSession(ctx, result.ClassSessionID)
	s.logger.Info("student enrolled",
		zap.String("student_id", result.StudentID),
		zap.String("session_id", result.ClassSessionID),
		zap.Int("available_seats", result.AvailableSeats))
	return result, nil
}

// Withdraw removes a student from a class session roster.
func (s *EnrollmentService) Withdraw(ctx context.Context, studentID, sessionID string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.students.LockByExternalID(ctx, studentID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock student")
		}
		if err := s.sessions.LockByExternalID(ctx, sessionID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "class session not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock class session")
		}
		removed, err := s.repo.Delete(ctx, studentID, sessionID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
		}
		if !removed {
			return appErrors.Clone(appErrors.ErrNotFound,
				fmt.Sprintf("student %s is not enrolled in %s", studentID, sessionID))
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidateSession(ctx, sessionID)
	s.logger.Info("student withdrawn",
		zap.String("student_id", studentID),
		zap.String("session_id", sessionID))
	return nil
}
