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

type mockDepartmentRepo struct {
	departments map[string]*models.DepartmentDetail
	seq         int
	deleted     []string
}

func (m *mockDepartmentRepo) List(ctx context.Context, filter models.DepartmentFilter) ([]models.DepartmentDetail, int, error) {
	var out []models.DepartmentDetail
	for _, d := range m.departments {
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (m *mockDepartmentRepo) FindByExternalID(ctx context.Context, id string) (*models.DepartmentDetail, error) {
	if d, ok := m.departments[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDepartmentRepo) NextExternalID(ctx context.Context) (string, error) {
	m.seq++
	return fmt.Sprintf("DEP%d", m.seq), nil
}

func (m *mockDepartmentRepo) Create(ctx context.Context, department *models.Department) error {
	if m.departments == nil {
		m.departments = make(map[string]*models.DepartmentDetail)
	}
	m.departments[department.ExternalID] = &models.DepartmentDetail{Department: *department}
	return nil
}

func (m *mockDepartmentRepo) Update(ctx context.Context, department *models.Department) error {
	m.departments[department.ExternalID].Department = *department
	return nil
}

func (m *mockDepartmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.departments, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func TestDepartmentServiceCreateAndGet(t *testing.T) {
	repo := &mockDepartmentRepo{}
	svc := NewDepartmentService(&mockTx{}, repo, validator.New(), zap.NewNop())

	created, err := svc.Create(context.Background(), CreateDepartmentRequest{Name: "Computer Science", Code: "CS"})
	require.NoError(t, err)
	assert.Equal(t, "DEP1", created.ExternalID)

	found, err := svc.Get(context.Background(), "DEP1")
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", found.Name)

	_, err = svc.Get(context.Background(), "DEP999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDepartmentServiceDeleteGuard(t *testing.T) {
	repo := &mockDepartmentRepo{departments: map[string]*models.DepartmentDetail{
		"DEP1": {Department: models.Department{ExternalID: "DEP1"}, StudentCount: 3},
		"DEP2": {Department: models.Department{ExternalID: "DEP2"}, CourseCount: 1},
		"DEP3": {Department: models.Department{ExternalID: "DEP3"}},
	}}
	svc := NewDepartmentService(&mockTx{}, repo, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), "DEP1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDeleteConflict))

	err = svc.Delete(context.Background(), "DEP2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDeleteConflict))

	require.NoError(t, svc.Delete(context.Background(), "DEP3"))
	assert.Equal(t, []string{"DEP3"}, repo.deleted)
}

func TestDepartmentServiceUpdate(t *testing.T) {
	repo := &mockDepartmentRepo{departments: map[string]*models.DepartmentDetail{
		"DEP1": {Department: models.Department{ExternalID: "DEP1", Name: "Maths", Code: "MA"}},
	}}
	svc := NewDepartmentService(&mockTx{}, repo, validator.New(), zap.NewNop())

	name := "Mathematics"
	updated, err := svc.Update(context.Background(), "DEP1", UpdateDepartmentRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", updated.Name)
	assert.Equal(t, "MA", updated.Code)
}
