package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusflow/ums-api/internal/models"
	appErrors "github.com/campusflow/ums-api/pkg/errors"
)

type mockTx struct{}

func (m *mockTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockCourseRepo struct {
	courses map[string]*models.CourseDetail
}

func (m *mockCourseRepo) FindByExternalID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockLecturerRepo struct {
	lecturers map[string]*models.LecturerDetail
}

func (m *mockLecturerRepo) FindByExternalID(ctx context.Context, id string) (*models.LecturerDetail, error) {
	if l, ok := m.lecturers[id]; ok {
		return l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLecturerRepo) LockByExternalID(ctx context.Context, id string) error {
	if _, ok := m.lecturers[id]; !ok {
		return sql.ErrNoRows
	}
	return nil
}

type mockAssignments struct {
	assigned map[string]bool
}

func (m *mockAssignments) Exists(ctx context.Context, lecturerID, courseID string) (bool, error) {
	return m.assigned[lecturerID+"|"+courseID], nil
}

// mockRoster tracks enrollments and keeps the session counters in the
// session mock consistent, the way the derived SQL counts behave.
type mockRoster struct {
	sessions *mockSessionRepo
	pairs    map[string]map[string]bool // session id -> student ids
}

func newMockRoster(sessions *mockSessionRepo) *mockRoster {
	return &mockRoster{sessions: sessions, pairs: make(map[string]map[string]bool)}
}

func (m *mockRoster) Exists(ctx context.Context, studentID, sessionID string) (bool, error) {
	return m.pairs[sessionID][studentID], nil
}

func (m *mockRoster) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.pairs[enrollment.ClassSessionID] == nil {
		m.pairs[enrollment.ClassSessionID] = make(map[string]bool)
	}
	m.pairs[enrollment.ClassSessionID][enrollment.StudentID] = true
	m.sessions.sessions[enrollment.ClassSessionID].EnrolledCount++
	return nil
}

func (m *mockRoster) Delete(ctx context.Context, studentID, sessionID string) (bool, error) {
	if !m.pairs[sessionID][studentID] {
		return false, nil
	}
	delete(m.pairs[sessionID], studentID)
	m.sessions.sessions[sessionID].EnrolledCount--
	return true, nil
}

func (m *mockRoster) DeleteByStudent(ctx context.Context, studentID string) error {
	for sessionID, students := range m.pairs {
		if students[studentID] {
			delete(students, studentID)
			m.sessions.sessions[sessionID].EnrolledCount--
		}
	}
	return nil
}

func (m *mockRoster) ListStudentIDsBySession(ctx context.Context, sessionID string) ([]string, error) {
	var ids []string
	for studentID := range m.pairs[sessionID] {
		ids = append(ids, studentID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockRoster) CountBySession(ctx context.Context, sessionID string) (int, error) {
	return len(m.pairs[sessionID]), nil
}

type mockSessionRepo struct {
	sessions  map[string]*models.ClassSessionDetail
	roster    *mockRoster
	courses   *mockCourseRepo
	lecturers *mockLecturerRepo
	seq       int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*models.ClassSessionDetail), seq: 100}
}

func (m *mockSessionRepo) List(ctx context.Context, filter models.ClassSessionFilter) ([]models.ClassSessionDetail, int, error) {
	var out []models.ClassSessionDetail
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockSessionRepo) FindByExternalID(ctx context.Context, id string) (*models.ClassSessionDetail, error) {
	if s, ok := m.sessions[id]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) LockByExternalID(ctx context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return sql.ErrNoRows
	}
	return nil
}

func (m *mockSessionRepo) ListByLecturer(ctx context.Context, lecturerID string) ([]models.ClassSessionDetail, error) {
	var out []models.ClassSessionDetail
	for _, s := range m.sessions {
		if s.LecturerID == lecturerID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSessionRepo) ListByStudent(ctx context.Context, studentID string) ([]models.ClassSessionDetail, error) {
	var out []models.ClassSessionDetail
	for id, s := range m.sessions {
		if m.roster != nil && m.roster.pairs[id][studentID] {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSessionRepo) NextExternalID(ctx context.Context) (string, error) {
	m.seq++
	return fmt.Sprintf("CL%d", m.seq), nil
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.ClassSession) error {
	detail := &models.ClassSessionDetail{ClassSession: *session}
	// The real repository joins courses and lecturers to fill the names.
	if m.courses != nil {
		if c, ok := m.courses.courses[session.CourseID]; ok {
			detail.CourseName = c.Name
		}
	}
	if m.lecturers != nil {
		if l, ok := m.lecturers.lecturers[session.LecturerID]; ok {
			detail.LecturerName = l.Name
		}
	}
	m.sessions[session.ExternalID] = detail
	return nil
}

func (m *mockSessionRepo) Update(ctx context.Context, session *models.ClassSession) error {
	current := m.sessions[session.ExternalID]
	enrolled := current.EnrolledCount
	current.ClassSession = *session
	current.EnrolledCount = enrolled
	return nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) CountByCourse(ctx context.Context, courseID string) (int, error) {
	total := 0
	for _, s := range m.sessions {
		if s.CourseID == courseID {
			total++
		}
	}
	return total, nil
}

func (m *mockSessionRepo) CountByLecturer(ctx context.Context, lecturerID string) (int, error) {
	total := 0
	for _, s := range m.sessions {
		if s.LecturerID == lecturerID {
			total++
		}
	}
	return total, nil
}

func (m *mockSessionRepo) CountByLecturerAndCourse(ctx context.Context, lecturerID, courseID string) (int, error) {
	total := 0
	for _, s := range m.sessions {
		if s.LecturerID == lecturerID && s.CourseID == courseID {
			total++
		}
	}
	return total, nil
}

func newSessionFixture() (*ClassSessionService, *mockSessionRepo, *mockRoster) {
	sessions := newMockSessionRepo()
	roster := newMockRoster(sessions)
	sessions.roster = roster
	courses := &mockCourseRepo{courses: map[string]*models.CourseDetail{
		"CRS1": {Course: models.Course{ExternalID: "CRS1", Name: "Algorithms"}},
	}}
	lecturers := &mockLecturerRepo{lecturers: map[string]*models.LecturerDetail{
		"LECT5001": {Lecturer: models.Lecturer{ExternalID: "LECT5001", Name: "Dr. Ada"}},
	}}
	assignments := &mockAssignments{assigned: map[string]bool{"LECT5001|CRS1": true}}
	sessions.courses = courses
	sessions.lecturers = lecturers
	svc := NewClassSessionService(&mockTx{}, sessions, courses, lecturers, assignments, roster, validator.New(), zap.NewNop())
	return svc, sessions, roster
}

func createReq(day, start, end string, capacity int) CreateClassSessionRequest {
	return CreateClassSessionRequest{
		CourseID:    "CRS1",
		LecturerID:  "LECT5001",
		Day:         day,
		StartTime:   start,
		EndTime:     end,
		Location:    "Room A",
		MaxCapacity: capacity,
	}
}

func TestClassSessionServiceCreate(t *testing.T) {
	svc, sessions, _ := newSessionFixture()

	created, err := svc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)
	assert.Equal(t, "CRS1", created.CourseID)
	assert.Equal(t, "LECT5001", created.LecturerID)
	assert.Equal(t, "Algorithms", created.CourseName)
	assert.Equal(t, "Dr. Ada", created.LecturerName)
	assert.Equal(t, 0, created.EnrolledCount)
	assert.Equal(t, 2, created.AvailableSeats())
	assert.Len(t, sessions.sessions, 1)
}

func TestClassSessionServiceCreateCourseNotFound(t *testing.T) {
	svc, _, _ := newSessionFixture()

	req := createReq("MONDAY", "09:00", "10:30", 2)
	req.CourseID = "CRS999"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestClassSessionServiceCreateUnassignedLecturer(t *testing.T) {
	svc, sessions, _ := newSessionFixture()

	// LECT5002 exists but has no assignment for CRS1.
	svcLecturers := &mockLecturerRepo{lecturers: map[string]*models.LecturerDetail{
		"LECT5002": {Lecturer: models.Lecturer{ExternalID: "LECT5002"}},
	}}
	svc = NewClassSessionService(&mockTx{}, sessions,
		&mockCourseRepo{courses: map[string]*models.CourseDetail{"CRS1": {Course: models.Course{ExternalID: "CRS1"}}}},
		svcLecturers, &mockAssignments{assigned: map[string]bool{}}, sessions.roster, validator.New(), zap.NewNop())

	req := createReq("MONDAY", "09:00", "10:30", 2)
	req.LecturerID = "LECT5002"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrAssignmentConflict))
}

func TestClassSessionServiceCreateInvalidSlot(t *testing.T) {
	svc, _, _ := newSessionFixture()

	_, err := svc.Create(context.Background(), createReq("MONDAY", "10:30", "09:00", 2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidArgs))

	_, err = svc.Create(context.Background(), createReq("FUNDAY", "09:00", "10:30", 2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidArgs))
}

func TestClassSessionServiceCreateLecturerOverlap(t *testing.T) {
	svc, _, _ := newSessionFixture()

	_, err := svc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)

	// 10:00 starts before the existing session ends.
	_, err = svc.Create(context.Background(), createReq("MONDAY", "10:00", "11:00", 2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrScheduleConflict))
}

func TestClassSessionServiceCreateTouchingSlotsAllowed(t *testing.T) {
	svc, sessions, _ := newSessionFixture()

	_, err := svc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)

	// Back to back is not an overlap.
	_, err = svc.Create(context.Background(), createReq("MONDAY", "10:30", "12:00", 2))
	require.NoError(t, err)

	// Same times on another day are fine too.
	_, err = svc.Create(context.Background(), createReq("TUESDAY", "09:00", "10:30", 2))
	require.NoError(t, err)
	assert.Len(t, sessions.sessions, 3)
}

func TestClassSessionServiceUpdateCapacityBelowEnrollment(t *testing.T) {
	svc, _, roster := newSessionFixture()

	created, err := svc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 3))
	require.NoError(t, err)
	require.NoError(t, roster.Create(context.Background(), &models.Enrollment{StudentID: "STU1001", ClassSessionID: created.ExternalID}))
	require.NoError(t, roster.Create(context.Background(), &models.Enrollment{StudentID: "STU1002", ClassSessionID: created.ExternalID}))

	capacity := 1
	_, err = svc.Update(context.Background(), created.ExternalID, UpdateClassSessionRequest{MaxCapacity: &capacity})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrCapacityConflict))
}

func TestClassSessionServiceUpdateSlotConflictForEnrolled(t *testing.T) {
	svc, _, roster := newSessionFixture()

	first, err := svc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), createReq("MONDAY", "11:00", "12:00", 2))
	require.NoError(t, err)

	// Student attends both sessions.
	require.NoError(t, roster.Create(context.Background(), &models.Enrollment{StudentID: "STU1001", ClassSessionID: first.ExternalID}))
	require.NoError(t, roster.Create(context.Background(), &models.Enrollment{StudentID: "STU1001", ClassSessionID: second.ExternalID}))

	// Moving the second session onto the first one clashes for the student.
	start, end := "10:00", "11:00"
	_, err = svc.Update(context.Background(), second.ExternalID, UpdateClassSessionRequest{StartTime: &start, EndTime: &end})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrScheduleConflict))
	assert.Contains(t, err.Error(), "enrolled students")
}

func TestClassSessionServiceUpdateConflictReportedBeforeCapacity(t *testing.T) {
	svc, _, roster := newSessionFixture()

	first, err := svc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), createReq("MONDAY", "11:00", "12:00", 2))
	require.NoError(t, err)

	require.NoError(t, roster.Create(context.Background(), &models.Enrollment{StudentID: "STU1001", ClassSessionID: first.ExternalID}))
	require.NoError(t, roster.Create(context.Background(), &models.Enrollment{StudentID: "STU1001", ClassSessionID: second.ExternalID}))
	require.NoError(t, roster.Create(context.Background(), &models.Enrollment{StudentID: "STU1002", ClassSessionID: second.ExternalID}))

	// The request both clashes for STU1001 and lowers capacity below the
	// two enrolled students; the schedule conflict wins.
	start, end := "10:00", "11:00"
	capacity := 1
	_, err = svc.Update(context.Background(), second.ExternalID, UpdateClassSessionRequest{StartTime: &start, EndTime: &end, MaxCapacity: &capacity})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrScheduleConflict))
}

func TestClassSessionServiceUpdateLocationOnly(t *testing.T) {
	svc, _, _ := newSessionFixture()

	created, err := svc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)

	location := "Room B"
	updated, err := svc.Update(context.Background(), created.ExternalID, UpdateClassSessionRequest{Location: &location})
	require.NoError(t, err)
	assert.Equal(t, "Room B", updated.Location)
	assert.True(t, updated.TimeSlot.Equal(created.TimeSlot))
}

func TestClassSessionServiceDeleteGuard(t *testing.T) {
	svc, sessions, roster := newSessionFixture()

	created, err := svc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)
	require.NoError(t, roster.Create(context.Background(), &models.Enrollment{StudentID: "STU1001", ClassSessionID: created.ExternalID}))

	err = svc.Delete(context.Background(), created.ExternalID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDeleteConflict))

	_, err = roster.Delete(context.Background(), "STU1001", created.ExternalID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), created.ExternalID))
	assert.Empty(t, sessions.sessions)
}

func TestClassSessionServiceAvailableSeats(t *testing.T) {
	svc, _, roster := newSessionFixture()

	created, err := svc.Create(context.Background(), createReq("MONDAY", "09:00", "10:30", 2))
	require.NoError(t, err)

	seats, err := svc.AvailableSeats(context.Background(), created.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, 2, seats)

	require.NoError(t, roster.Create(context.Background(), &models.Enrollment{StudentID: "STU1001", ClassSessionID: created.ExternalID}))
	ok, err := svc.HasAvailableSeats(context.Background(), created.ExternalID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.AvailableSeats(context.Background(), "CL999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
