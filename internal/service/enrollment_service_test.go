package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusflow/ums-api/internal/models"
	appErrors "github.com/campusflow/ums-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[string]*models.StudentDetail
}

func (m *mockStudentRepo) FindByExternalID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) LockByExternalID(ctx context.Context, id string) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	return nil
}

func newEnrollmentFixture(t *testing.T) (*EnrollmentService, *ClassSessionService, *mockRoster) {
	t.Helper()
	sessionSvc, sessions, roster := newSessionFixture()
	students := &mockStudentRepo{students: map[string]*models.StudentDetail{
		"STU1001": {Student: models.Student{ExternalID: "STU1001", Name: "Alice"}},
		"STU1002": {Student: models.Student{ExternalID: "STU1002", Name: "Bob"}},
		"STU1003": {Student: models.Student{ExternalID: "STU1003", Name: "Carol"}},
	}}
	svc := NewEnrollmentService(&mockTx{}, roster, students, sessions, validator.New(), zap.NewNop())
	return svc, sessionSvc, roster
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	svc, sessionSvc, _ := newEnrollmentFixture(t)
	session, err := sessionSvc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)

	result, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "STU1001", ClassSessionID: session.ExternalID})
	require.NoError(t, err)
	assert.Equal(t, "Alice", result.StudentName)
	assert.Equal(t, "Algorithms", result.CourseName)
	assert.Equal(t, 1, result.AvailableSeats)
}

func TestEnrollmentServiceEnrollNotFound(t *testing.T) {
	svc, sessionSvc, _ := newEnrollmentFixture(t)
	session, err := sessionSvc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "STU9999", ClassSessionID: session.ExternalID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "STU1001", ClassSessionID: "CL999"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

// Exercises the whole rule chain on one session: fills the roster, then
// checks that a duplicate reports the duplicate and an overflow reports
// capacity.
func TestEnrollmentServiceCapacityAndDuplicates(t *testing.T) {
	svc, sessionSvc, _ := newEnrollmentFixture(t)
	session, err := sessionSvc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)

	result, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "STU1001", ClassSessionID: session.ExternalID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AvailableSeats)

	// Re-enrolling the same student reports the duplicate, not an overlap
	// with their own session.
	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "STU1001", ClassSessionID: session.ExternalID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrEnrollmentConflict))
	assert.Contains(t, err.Error(), "already enrolled")

	result, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "STU1002", ClassSessionID: session.ExternalID})
	require.NoError(t, err)
	assert.Equal(t, 0, result.AvailableSeats)

	// The session is now full.
	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "STU1003", ClassSessionID: session.ExternalID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCapacityConflict))
}

func TestEnrollmentServiceScheduleOverlap(t *testing.T) {
	svc, sessionSvc, _ := newEnrollmentFixture(t)
	first, err := sessionSvc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)
	second, err := sessionSvc.Create(context.Background(), createReq("MONDAY", "10:30", "12:00", 2))
	require.NoError(t, err)
	third, err := sessionSvc.Create(context.Background(), createReq("TUESDAY", "10:00", "11:00", 2))
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "STU1001", ClassSessionID: first.ExternalID})
	require.NoError(t, err)

	// Back to back on the same day is allowed.
	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "STU1001", ClassSessionID: second.ExternalID})
	require.NoError(t, err)

	// Another day never overlaps.
	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "STU1001", ClassSessionID: third.ExternalID})
	require.NoError(t, err)
}

func TestEnrollmentServiceStudentOverlap(t *testing.T) {
	svc, sessionSvc, roster := newEnrollmentFixture(t)
	first, err := sessionSvc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)

	// A clashing session taught by someone else, inserted directly.
	clash := &models.ClassSession{
		ExternalID: "CL900", CourseID: "CRS1", LecturerID: "LECT5002",
		TimeSlot: mustSlot(t, models.Monday, "10:00", "11:00"),
		Location: "Room D", MaxCapacity: 2,
	}
	require.NoError(t, roster.sessions.Create(context.Background(), clash))

	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "STU1001", ClassSessionID: first.ExternalID})
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "STU1001", ClassSessionID: "CL900"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrEnrollmentConflict))
	assert.Contains(t, err.Error(), "overlaps")
}

func TestEnrollmentServiceWithdraw(t *testing.T) {
	svc, sessionSvc, _ := newEnrollmentFixture(t)
	session, err := sessionSvc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), EnrollRequest{StudentID: "STU1001", ClassSessionID: session.ExternalID})
	require.NoError(t, err)
	require.NoError(t, svc.Withdraw(context.Background(), "STU1001", session.ExternalID))

	// Withdrawing again reports the missing roster entry.
	err = svc.Withdraw(context.Background(), "STU1001", session.ExternalID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	// The freed seat can be taken again.
	result, err := svc.Enroll(context.Background(), EnrollRequest{StudentID: "STU1002", ClassSessionID: session.ExternalID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AvailableSeats)
}

func mustSlot(t *testing.T, day models.DayOfWeek, start, end string) models.TimeSlot {
	t.Helper()
	startAt, err := models.ParseClockTime(start)
	require.NoError(t, err)
	endAt, err := models.ParseClockTime(end)
	require.NoError(t, err)
	slot, err := models.NewTimeSlot(day, startAt, endAt)
	require.NoError(t, err)
	return slot
}
