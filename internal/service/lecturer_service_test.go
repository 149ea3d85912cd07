package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusflow/ums-api/internal/models"
	appErrors "github.com/campusflow/ums-api/pkg/errors"
)

type mockLecturerFullRepo struct {
	lecturers map[string]*models.LecturerDetail
	seq       int
}

func (m *mockLecturerFullRepo) List(ctx context.Context, filter models.LecturerFilter) ([]models.LecturerDetail, int, error) {
	var out []models.LecturerDetail
	for _, l := range m.lecturers {
		out = append(out, *l)
	}
	return out, len(out), nil
}

func (m *mockLecturerFullRepo) FindByExternalID(ctx context.Context, id string) (*models.LecturerDetail, error) {
	if l, ok := m.lecturers[id]; ok {
		return l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLecturerFullRepo) LockByExternalID(ctx context.Context, id string) error {
	if _, ok := m.lecturers[id]; !ok {
		return sql.ErrNoRows
	}
	return nil
}

func (m *mockLecturerFullRepo) NextExternalID(ctx context.Context) (string, error) {
	m.seq++
	return fmt.Sprintf("LECT%d", 5000+m.seq), nil
}

func (m *mockLecturerFullRepo) Create(ctx context.Context, lecturer *models.Lecturer) error {
	if m.lecturers == nil {
		m.lecturers = make(map[string]*models.LecturerDetail)
	}
	m.lecturers[lecturer.ExternalID] = &models.LecturerDetail{Lecturer: *lecturer}
	return nil
}

func (m *mockLecturerFullRepo) Update(ctx context.Context, lecturer *models.Lecturer) error {
	m.lecturers[lecturer.ExternalID].Lecturer = *lecturer
	return nil
}

func (m *mockLecturerFullRepo) Delete(ctx context.Context, id string) error {
	delete(m.lecturers, id)
	return nil
}

type mockAssignmentsFull struct {
	assigned map[string]bool
}

func (m *mockAssignmentsFull) key(lecturerID, courseID string) string {
	return lecturerID + "|" + courseID
}

func (m *mockAssignmentsFull) Exists(ctx context.Context, lecturerID, courseID string) (bool, error) {
	return m.assigned[m.key(lecturerID, courseID)], nil
}

func (m *mockAssignmentsFull) Create(ctx context.Context, assignment *models.CourseAssignment) error {
	if m.assigned == nil {
		m.assigned = make(map[string]bool)
	}
	m.assigned[m.key(assignment.LecturerID, assignment.CourseID)] = true
	return nil
}

func (m *mockAssignmentsFull) Delete(ctx context.Context, lecturerID, courseID string) (bool, error) {
	key := m.key(lecturerID, courseID)
	if !m.assigned[key] {
		return false, nil
	}
	delete(m.assigned, key)
	return true, nil
}

func (m *mockAssignmentsFull) ListCourseIDsByLecturer(ctx context.Context, lecturerID string) ([]string, error) {
	var ids []string
	for key, ok := range m.assigned {
		if ok && len(key) > len(lecturerID) && key[:len(lecturerID)+1] == lecturerID+"|" {
			ids = append(ids, key[len(lecturerID)+1:])
		}
	}
	return ids, nil
}

func newLecturerFixture() (*LecturerService, *mockLecturerFullRepo, *mockAssignmentsFull, *mockSessionRepo) {
	repo := &mockLecturerFullRepo{}
	assignments := &mockAssignmentsFull{}
	sessions := newMockSessionRepo()
	sessions.roster = newMockRoster(sessions)
	courses := &mockCourseRepo{courses: map[string]*models.CourseDetail{
		"CRS1": {Course: models.Course{ExternalID: "CRS1", Name: "Algorithms"}},
	}}
	departments := &mockDepartmentRepo{departments: map[string]*models.DepartmentDetail{
		"DEP1": {Department: models.Department{ExternalID: "DEP1"}},
	}}
	svc := NewLecturerService(&mockTx{}, repo, courses, departments, assignments, sessions, validator.New(), zap.NewNop())
	return svc, repo, assignments, sessions
}

func TestLecturerServiceAssignCourse(t *testing.T) {
	svc, _, assignments, _ := newLecturerFixture()

	created, err := svc.Create(context.Background(), CreateLecturerRequest{
		Name: "Dr. Ada", Email: "ada@example.edu", DepartmentID: "DEP1",
	})
	require.NoError(t, err)
	assert.Equal(t, "LECT5001", created.ExternalID)

	result, err := svc.AssignCourse(context.Background(), created.ExternalID, "CRS1")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Ada", result.LecturerName)
	assert.Equal(t, "Algorithms", result.CourseName)
	assert.True(t, assignments.assigned["LECT5001|CRS1"])

	// Assigning twice is a conflict.
	_, err = svc.AssignCourse(context.Background(), created.ExternalID, "CRS1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrAssignmentConflict))
}

func TestLecturerServiceUnassignCourseGuard(t *testing.T) {
	svc, _, _, sessions := newLecturerFixture()

	created, err := svc.Create(context.Background(), CreateLecturerRequest{
		Name: "Dr. Ada", Email: "ada@example.edu", DepartmentID: "DEP1",
	})
	require.NoError(t, err)
	_, err = svc.AssignCourse(context.Background(), created.ExternalID, "CRS1")
	require.NoError(t, err)

	require.NoError(t, sessions.Create(context.Background(), &models.ClassSession{
		ExternalID: "CL101", CourseID: "CRS1", LecturerID: created.ExternalID,
		TimeSlot: mustSlot(t, models.Monday, "09:00", "10:30"), MaxCapacity: 30,
	}))

	err = svc.UnassignCourse(context.Background(), created.ExternalID, "CRS1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDeleteConflict))

	require.NoError(t, sessions.Delete(context.Background(), "CL101"))
	require.NoError(t, svc.UnassignCourse(context.Background(), created.ExternalID, "CRS1"))

	err = svc.UnassignCourse(context.Background(), created.ExternalID, "CRS1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestLecturerServiceDeleteGuard(t *testing.T) {
	svc, repo, assignments, sessions := newLecturerFixture()

	created, err := svc.Create(context.Background(), CreateLecturerRequest{
		Name: "Dr. Ada", Email: "ada@example.edu", DepartmentID: "DEP1",
	})
	require.NoError(t, err)
	_, err = svc.AssignCourse(context.Background(), created.ExternalID, "CRS1")
	require.NoError(t, err)

	require.NoError(t, sessions.Create(context.Background(), &models.ClassSession{
		ExternalID: "CL101", CourseID: "CRS1", LecturerID: created.ExternalID,
		TimeSlot: mustSlot(t, models.Monday, "09:00", "10:30"), MaxCapacity: 30,
	}))

	err = svc.Delete(context.Background(), created.ExternalID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDeleteConflict))

	// With the session gone the delete also clears remaining assignments.
	require.NoError(t, sessions.Delete(context.Background(), "CL101"))
	require.NoError(t, svc.Delete(context.Background(), created.ExternalID))
	assert.Empty(t, repo.lecturers)
	assert.Empty(t, assignments.assigned)
}
