package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weibaohui/recruitflow/internal/domain/approval"
	"github.com/weibaohui/recruitflow/internal/model"
)

type mockInvalidator struct {
	invalidated []uint
}

func (m *mockInvalidator) Invalidate(groupID uint) {
	m.invalidated = append(m.invalidated, groupID)
}

func TestGroupServiceLifecycle(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	cache := &mockInvalidator{}
	svc := NewGroupService(env.groups, env.employees, cache)

	hod, err := svc.Create(ctx, GroupRequest{Label: "Trưởng bộ phận", Code: "HOD", Index: 2})
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, hod.Status)
	_, err = svc.Create(ctx, GroupRequest{Label: "Nhân sự", Code: "HR", Index: 1})
	require.NoError(t, err)

	_, err = svc.Create(ctx, GroupRequest{Label: "Dup", Code: "HR"})
	assert.True(t, errors.Is(err, ErrGroupCodeExists), "got %v", err)

	groups, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "HR", groups[0].Code)

	updated, err := svc.Update(ctx, hod.ID, GroupRequest{Label: "HOD", Code: "HOD", Status: model.StatusInactive, Index: 3})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInactive, updated.Status)

	members, err := svc.SetMembers(ctx, hod.ID, []string{" E2", "E1", "E2", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"E1", "E2"}, members)

	listed, err := svc.ListMembers(ctx, hod.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"E1", "E2"}, listed)
	assert.Equal(t, []uint{hod.ID, hod.ID}, cache.invalidated)

	_, err = svc.Update(ctx, 999, GroupRequest{Label: "x", Code: "x"})
	assert.True(t, errors.Is(err, approval.ErrNotFound))
	_, err = svc.SetMembers(ctx, 999, nil)
	assert.True(t, errors.Is(err, ErrGroupNotFound))
}

func TestGroupServiceEmployees(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	svc := NewGroupService(env.groups, env.employees, nil)

	got, err := svc.UpsertEmployee(ctx, "E100", EmployeeRequest{Name: "Lan", Email: "lan@corp.vn"})
	require.NoError(t, err)
	assert.Equal(t, "E100", got.Code)

	_, err = svc.UpsertEmployee(ctx, "E100", EmployeeRequest{Name: "Lan Nguyễn", Email: "lan@corp.vn"})
	require.NoError(t, err)

	found, err := svc.GetEmployee(ctx, "E100")
	require.NoError(t, err)
	assert.Equal(t, "Lan Nguyễn", found.Name)

	_, err = svc.GetEmployee(ctx, "E404")
	assert.True(t, errors.Is(err, ErrEmployeeNotFound))

	_, err = svc.UpsertEmployee(ctx, " ", EmployeeRequest{Name: "x"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
