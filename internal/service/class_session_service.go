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

type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type classSessionRepository interface {
	List(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSessionDetail, int, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.ClassSessionDetail, error)
	LockByExternalID(ctx context.Context, externalID string) error
	ListByLecturer(ctx context.Context, lecturerID string) ([]models.ClassSessionDetail, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.ClassSessionDetail, error)
	NextExternalID(ctx context.Context) (string, error)
	Create(ctx context.Context, session *models.ClassSession) error
	Update(ctx context.Context, session *models.ClassSession) error
	Delete(ctx context.Context, externalID string) error
}

type courseReader interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.CourseDetail, error)
}

type lecturerLocker interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.LecturerDetail, error)
	LockByExternalID(ctx context.Context, externalID string) error
}

type assignmentChecker interface {
	Exists(ctx context.Context, lecturerID, courseID string) (bool, error)
}

type rosterReader interface {
	ListStudentIDsBySession(ctx context.Context, sessionID string) ([]string, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
}

// CreateClassSessionRequest describes a session creation payload.
type CreateClassSessionRequest struct {
	CourseID    string `json:"course_id" validate:"required"`
	LecturerID  string `json:"lecturer_id" validate:"required"`
	Day         string `json:"day" validate:"required"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	Location    string `json:"location" validate:"required,max=120"`
	MaxCapacity int    `json:"max_capacity" validate:"required,min=1,max=500"`
}

// UpdateClassSessionRequest describes a partial session update.
type UpdateClassSessionRequest struct {
	Day         *string `json:"day,omitempty"`
	StartTime   *string `json:"start_time,omitempty"`
	EndTime     *string `json:"end_time,omitempty"`
	Location    *string `json:"location,omitempty" validate:"omitempty,max=120"`
	MaxCapacity *int    `json:"max_capacity,omitempty" validate:"omitempty,min=1,max=500"`
}

// ClassSessionService orchestrates class session scheduling.
type ClassSessionService struct {
	tx          txRunner
	sessions    classSessionRepository
	courses     courseReader
	lecturers   lecturerLocker
	assignments assignmentChecker
	roster      rosterReader
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClassSessionService constructs ClassSessionService.
func NewClassSessionService(tx txRunner, sessions classSessionRepository, courses courseReader, lecturers lecturerLocker, assignments assignmentChecker, roster rosterReader, validate *validator.Validate, logger *zap.Logger) *ClassSessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassSessionService{tx: tx, sessions: sessions, courses: courses, lecturers: lecturers, assignments: assignments, roster: roster, validator: validate, logger: logger}
}

// AttachCache enables read-through caching of single session lookups.
func (s *ClassSessionService) AttachCache(cache *CacheService) {
	s.cache = cache
}

func sessionCacheKey(externalID string) string {
	return "sessions:detail:" + externalID
}

func (s *ClassSessionService) invalidateSession(ctx context.Context, externalID string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, sessionCacheKey(externalID)); err != nil {
		s.logger.Warn("session cache invalidation failed", zap.String("session_id", externalID), zap.Error(err))
	}
}

// List returns sessions with pagination metadata.
func (s *ClassSessionService) List(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSessionDetail, *models.Pagination, error) {
	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class sessions")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return sessions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one session by external id.
func (s *ClassSessionService) Get(ctx context.Context, externalID string) (*models.ClassSessionDetail, error) {
	if s.cache.Enabled() {
		var cached models.ClassSessionDetail
		if hit, err := s.cache.Get(ctx, sessionCacheKey(externalID), &cached); err == nil && hit {
			return &cached, nil
		}
	}
	session, err := s.sessions.FindByExternalID(ctx, externalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class session")
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, sessionCacheKey(externalID), session, 0)
	}
	return session, nil
}

// Create schedules a new class session. The checks run in a fixed order so
// that a request failing several rules always reports the same violation:
// unknown course, unknown lecturer, missing assignment, malformed slot, then
// lecturer schedule overlap.
func (s *ClassSessionService) Create(ctx context.Context, req CreateClassSessionRequest) (*models.ClassSessionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class session payload")
	}

	var created *models.ClassSession
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		course, err := s.courses.FindByExternalID(ctx, req.CourseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		lecturer, err := s.lecturers.FindByExternalID(ctx, req.LecturerID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "lecturer not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecturer")
		}

		// Serializes concurrent scheduling for this lecturer.
		if err := s.lecturers.LockByExternalID(ctx, lecturer.ExternalID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock lecturer")
		}

		assigned, err := s.assignments.Exists(ctx, lecturer.ExternalID, course.ExternalID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course assignment")
		}
		if !assigned {
			return appErrors.Clone(appErrors.ErrAssignmentConflict,
				fmt.Sprintf("lecturer %s is not assigned to course %s", lecturer.ExternalID, course.ExternalID))
		}

		slot, err := buildTimeSlot(req.Day, req.StartTime, req.EndTime)
		if err != nil {
			return err
		}

		existing, err := s.sessions.ListByLecturer(ctx, lecturer.ExternalID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lecturer sessions")
		}
		for _, other := range existing {
			if slot.Overlaps(other.TimeSlot) {
				return appErrors.Clone(appErrors.ErrScheduleConflict,
					fmt.Sprintf("lecturer already teaches %s at %s", other.ExternalID, other.TimeSlot))
			}
		}

		externalID, err := s.sessions.NextExternalID(ctx)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue session id")
		}
		created = &models.ClassSession{
			ExternalID:  externalID,
			CourseID:    course.ExternalID,
			LecturerID:  lecturer.ExternalID,
			TimeSlot:    slot,
			Location:    req.Location,
			MaxCapacity: req.MaxCapacity,
		}
		if err := s.sessions.Create(ctx, created); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class session")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("class session created",
		zap.String("session_id", created.ExternalID),
		zap.String("course_id", created.CourseID),
		zap.String("lecturer_id", created.LecturerID))
	return s.Get(ctx, created.ExternalID)
}

// Update applies a partial update to a session. A changed time slot is
// validated against the other sessions of every currently enrolled student,
// so the walk is O(roster size x sessions per student).
func (s *ClassSessionService) Update(ctx context.Context, externalID string, req UpdateClassSessionRequest) (*models.ClassSessionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class session payload")
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.sessions.LockByExternalID(ctx, externalID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "class session not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock class session")
		}
		current, err := s.sessions.FindByExternalID(ctx, externalID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class session")
		}

		candidate := current.TimeSlot
		if req.Day != nil || req.StartTime != nil || req.EndTime != nil {
			candidate, err = mergeTimeSlot(current.TimeSlot, req.Day, req.StartTime, req.EndTime)
			if err != nil {
				return err
			}
		}

		// The conflict walk runs before the capacity check, so a request
		// violating both reports the schedule conflict.
		if !candidate.Equal(current.TimeSlot) {
			studentIDs, err := s.roster.ListStudentIDsBySession(ctx, externalID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
			}
			for _, studentID := range studentIDs {
				others, err := s.sessions.ListByStudent(ctx, studentID)
				if err != nil {
					return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student sessions")
				}
				for _, other := range others {
					if other.ExternalID == externalID {
						continue
					}
					if candidate.Overlaps(other.TimeSlot) {
						return appErrors.Clone(appErrors.ErrScheduleConflict,
							"time slot change creates conflicts for enrolled students")
					}
				}
			}
		}

		if req.MaxCapacity != nil && *req.MaxCapacity < current.EnrolledCount {
			return appErrors.Clone(appErrors.ErrCapacityConflict,
				fmt.Sprintf("capacity %d is below current enrollment %d", *req.MaxCapacity, current.EnrolledCount))
		}

		updated := current.ClassSession
		updated.TimeSlot = candidate
		if req.Location != nil {
			updated.Location = *req.Location
		}
		if req.MaxCapacity != nil {
			updated.MaxCapacity = *req.MaxCapacity
		}
		if err := s.sessions.Update(ctx, &updated); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class session")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateSession(ctx, externalID)
	return s.Get(ctx, externalID)
}

// Delete removes a session unless students are enrolled in it.
func (s *ClassSessionService) Delete(ctx context.Context, externalID string) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.sessions.LockByExternalID(ctx, externalID); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "class session not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock class session")
		}
		enrolled, err := s.roster.CountBySession(ctx, externalID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count enrollments")
		}
		if enrolled > 0 {
			return appErrors.Clone(appErrors.ErrDeleteConflict,
				fmt.Sprintf("class session has %d enrolled students", enrolled))
		}
		if err := s.sessions.Delete(ctx, externalID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class session")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidateSession(ctx, externalID)
	return nil
}

// AvailableSeats returns the remaining capacity of a session.
func (s *ClassSessionService) AvailableSeats(ctx context.Context, externalID string) (int, error) {
	session, err := s.Get(ctx, externalID)
	if err != nil {
		return 0, err
	}
	return session.AvailableSeats(), nil
}

// HasAvailableSeats reports whether at least one seat remains.
func (s *ClassSessionService) HasAvailableSeats(ctx context.Context, externalID string) (bool, error) {
	seats, err := s.AvailableSeats(ctx, externalID)
	if err != nil {
		return false, err
	}
	return seats > 0, nil
}

func buildTimeSlot(day, start, end string) (models.TimeSlot, error) {
	parsedDay, err := models.ParseDayOfWeek(day)
	if err != nil {
		return models.TimeSlot{}, err
	}
	startAt, err := models.ParseClockTime(start)
	if err != nil {
		return models.TimeSlot{}, err
	}
	endAt, err := models.ParseClockTime(end)
	if err != nil {
		return models.TimeSlot{}, err
	}
	return models.NewTimeSlot(parsedDay, startAt, endAt)
}

func mergeTimeSlot(current models.TimeSlot, day, start, end *string) (models.TimeSlot, error) {
	merged := current
	if day != nil {
		parsed, err := models.ParseDayOfWeek(*day)
		if err != nil {
			return models.TimeSlot{}, err
		}
		merged.Day = parsed
	}
	if start != nil {
		parsed, err := models.ParseClockTime(*start)
		if err != nil {
			return models.TimeSlot{}, err
		}
		merged.Start = parsed
	}
	if end != nil {
		parsed, err := models.ParseClockTime(*end)
		if err != nil {
			return models.TimeSlot{}, err
		}
		merged.End = parsed
	}
	return models.NewTimeSlot(merged.Day, merged.Start, merged.End)
}
