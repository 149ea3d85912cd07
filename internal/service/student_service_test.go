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

type mockStudentFullRepo struct {
	students map[string]*models.StudentDetail
	seq      int
}

func (m *mockStudentFullRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var out []models.StudentDetail
	for _, s := range m.students {
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *mockStudentFullRepo) FindByExternalID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentFullRepo) LockByExternalID(ctx context.Context, id string) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	return nil
}

func (m *mockStudentFullRepo) NextExternalID(ctx context.Context) (string, error) {
	m.seq++
	return fmt.Sprintf("STU%d", 1000+m.seq), nil
}

func (m *mockStudentFullRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]*models.StudentDetail)
	}
	m.students[student.ExternalID] = &models.StudentDetail{Student: *student}
	return nil
}

func (m *mockStudentFullRepo) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ExternalID].Student = *student
	return nil
}

func (m *mockStudentFullRepo) Delete(ctx context.Context, id string) error {
	delete(m.students, id)
	return nil
}

func TestStudentServiceCreate(t *testing.T) {
	repo := &mockStudentFullRepo{}
	departments := &mockDepartmentRepo{departments: map[string]*models.DepartmentDetail{
		"DEP1": {Department: models.Department{ExternalID: "DEP1"}},
	}}
	sessions := newMockSessionRepo()
	roster := newMockRoster(sessions)
	sessions.roster = roster
	svc := NewStudentService(&mockTx{}, repo, departments, roster, validator.New(), zap.NewNop())

	created, err := svc.Create(context.Background(), CreateStudentRequest{
		Name: "Alice", Email: "alice@example.edu", DepartmentID: "DEP1", EnrollmentYear: 2025,
	})
	require.NoError(t, err)
	assert.Equal(t, "STU1001", created.ExternalID)

	_, err = svc.Create(context.Background(), CreateStudentRequest{
		Name: "Bob", Email: "bob@example.edu", DepartmentID: "DEP999", EnrollmentYear: 2025,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

// Deleting a student always succeeds and clears their roster entries, unlike
// the other entities whose dependents block deletion.
func TestStudentServiceDeleteClearsRoster(t *testing.T) {
	repo := &mockStudentFullRepo{students: map[string]*models.StudentDetail{
		"STU1001": {Student: models.Student{ExternalID: "STU1001", Name: "Alice"}},
	}}
	departments := &mockDepartmentRepo{}
	sessions := newMockSessionRepo()
	roster := newMockRoster(sessions)
	sessions.roster = roster
	svc := NewStudentService(&mockTx{}, repo, departments, roster, validator.New(), zap.NewNop())

	require.NoError(t, sessions.Create(context.Background(), &models.ClassSession{
		ExternalID: "CL101", CourseID: "CRS1", LecturerID: "LECT5001",
		TimeSlot: mustSlot(t, models.Monday, "09:00", "10:30"), MaxCapacity: 2,
	}))
	require.NoError(t, roster.Create(context.Background(), &models.Enrollment{StudentID: "STU1001", ClassSessionID: "CL101"}))
	require.Equal(t, 1, sessions.sessions["CL101"].EnrolledCount)

	require.NoError(t, svc.Delete(context.Background(), "STU1001"))
	assert.Empty(t, repo.students)
	assert.Equal(t, 0, sessions.sessions["CL101"].EnrolledCount)

	err := svc.Delete(context.Background(), "STU1001")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
