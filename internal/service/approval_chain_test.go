package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weibaohui/recruitflow/internal/domain/approval"
	"github.com/weibaohui/recruitflow/internal/eventbus"
	"github.com/weibaohui/recruitflow/internal/model"
	"github.com/weibaohui/recruitflow/internal/pkg/database"
	"github.com/weibaohui/recruitflow/internal/repository"
	"github.com/weibaohui/recruitflow/internal/subscriber"
	"gorm.io/gorm"
)

type chainTestEnv struct {
	db        *gorm.DB
	templates repository.TemplateRepository
	groups    repository.GroupRepository
	employees repository.EmployeeRepository
	audit     repository.AuditLogRepository
	chain     ChainService
	forms     FormTemplateService
	templ     *FormTemplateDTO
}

func newChainTestEnv(t *testing.T) *chainTestEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库每个连接独立，限制为单连接
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	env := &chainTestEnv{
		db:        db,
		templates: repository.NewTemplateRepository(db),
		groups:    repository.NewGroupRepository(db),
		employees: repository.NewEmployeeRepository(db),
		audit:     repository.NewAuditLogRepository(db),
	}
	bus := eventbus.NewChainEventBus()
	subscriber.NewChainEventSubscriber(env.audit).Register(bus)
	env.chain = NewChainService(env.templates, env.groups, env.employees, env.audit, nil, bus)
	env.forms = NewFormTemplateService(env.templates)

	env.templ, err = env.forms.Create(context.Background(), CreateFormTemplateRequest{
		NameVI:   "Đề nghị tuyển dụng",
		NameEN:   "Recruitment request",
		TypeForm: "recruitment",
	})
	require.NoError(t, err)
	return env
}

func (e *chainTestEnv) createGroup(t *testing.T, code string, members ...string) uint {
	t.Helper()
	group := &model.CodeApprovalGroup{Label: code, Code: code, Status: model.StatusActive}
	require.NoError(t, e.groups.Create(context.Background(), group))
	require.NoError(t, e.groups.ReplaceMembers(context.Background(), group.ID, members))
	return group.ID
}

func (e *chainTestEnv) addStep(t *testing.T, groupID uint, order int) *StepDTO {
	t.Helper()
	step, err := e.chain.AddStep(context.Background(), e.templ.ID, AddStepRequest{CodeApprovalID: groupID, IndexSTT: intPtr(order)})
	require.NoError(t, err)
	return step
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func uintPtr(v uint) *uint    { return &v }

func approverCodes(res *approval.Resolution) []string {
	codes := make([]string, len(res.Approvers))
	for i, a := range res.Approvers {
		codes[i] = a.EmployeeCode
	}
	return codes
}

func TestAddStepAndListOrdered(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	hr := env.createGroup(t, "HR")

	env.addStep(t, hr, 3)
	env.addStep(t, hr, 1)
	env.addStep(t, hr, 2)

	list, err := env.chain.ListSteps(ctx, env.templ.ID)
	require.NoError(t, err)
	require.Len(t, list.Steps, 3)
	for i, want := range []int{1, 2, 3} {
		assert.Equal(t, want, list.Steps[i].IndexSTT)
		assert.Equal(t, model.StatusActive, list.Steps[i].Status)
	}
	assert.Empty(t, list.Diagnostics)

	_, err = env.chain.ListSteps(ctx, 999)
	assert.True(t, errors.Is(err, approval.ErrNotFound))
}

func TestAddStepDuplicateOrder(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	hr := env.createGroup(t, "HR")
	env.addStep(t, hr, 1)

	_, err := env.chain.AddStep(ctx, env.templ.ID, AddStepRequest{CodeApprovalID: hr, IndexSTT: intPtr(1)})
	assert.True(t, errors.Is(err, approval.ErrDuplicateOrder), "got %v", err)
	assert.Equal(t, approval.ResultValidationError, approval.ResultKindOf(err))

	list, err := env.chain.ListSteps(ctx, env.templ.ID)
	require.NoError(t, err)
	assert.Len(t, list.Steps, 1)
}

func TestAddStepUnknownGroupAndTemplate(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()

	_, err := env.chain.AddStep(ctx, env.templ.ID, AddStepRequest{CodeApprovalID: 42, IndexSTT: intPtr(1)})
	assert.True(t, errors.Is(err, approval.ErrUnknownGroup), "got %v", err)

	hr := env.createGroup(t, "HR")
	_, err = env.chain.AddStep(ctx, 999, AddStepRequest{CodeApprovalID: hr, IndexSTT: intPtr(1)})
	assert.True(t, errors.Is(err, approval.ErrNotFound), "got %v", err)

	_, err = env.chain.AddStep(ctx, env.templ.ID, AddStepRequest{CodeApprovalID: hr})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestConcurrentAddStepSameOrder(t *testing.T) {
	env := newChainTestEnv(t)
	hr := env.createGroup(t, "HR")

	const workers = 2
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.chain.AddStep(context.Background(), env.templ.ID, AddStepRequest{CodeApprovalID: hr, IndexSTT: intPtr(5)})
		}(i)
	}
	wg.Wait()

	succeeded, duplicated := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, approval.ErrDuplicateOrder):
			duplicated++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, duplicated)
}

func TestUpdateStepStatusToggleKeepsOverrides(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	hr := env.createGroup(t, "HR", "E1", "E2")
	step := env.addStep(t, hr, 1)

	_, err := env.chain.AddInclude(ctx, env.templ.ID, step.ID, IncludeRequest{EmployeeCode: "E9", EmployeeName: "Chín"})
	require.NoError(t, err)
	_, err = env.chain.AddExclude(ctx, env.templ.ID, step.ID, ExcludeRequest{EmployeeCode: "E2"})
	require.NoError(t, err)

	before, err := env.chain.ResolveStep(ctx, env.templ.ID, step.ID)
	require.NoError(t, err)

	updated, err := env.chain.UpdateStep(ctx, env.templ.ID, step.ID, UpdateStepRequest{Status: strPtr(model.StatusInactive)})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInactive, updated.Status)
	assert.Len(t, updated.SpecificCodeApprove, 1)
	assert.Len(t, updated.ExcludeCodeApprove, 1)

	inactive, err := env.chain.ResolveStep(ctx, env.templ.ID, step.ID)
	require.NoError(t, err)
	assert.Empty(t, inactive.Approvers)
	require.Len(t, inactive.Diagnostics, 1)
	assert.Equal(t, approval.KindInactiveStepWarning, inactive.Diagnostics[0].Kind)

	_, err = env.chain.UpdateStep(ctx, env.templ.ID, step.ID, UpdateStepRequest{Status: strPtr(model.StatusActive)})
	require.NoError(t, err)
	after, err := env.chain.ResolveStep(ctx, env.templ.ID, step.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Approvers, after.Approvers)
}

func TestUpdateStepOnlyPatchedFields(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	hr := env.createGroup(t, "HR")
	hod := env.createGroup(t, "HOD")
	step := env.addStep(t, hr, 1)
	env.addStep(t, hr, 2)

	updated, err := env.chain.UpdateStep(ctx, env.templ.ID, step.ID, UpdateStepRequest{CodeApprovalID: uintPtr(hod)})
	require.NoError(t, err)
	assert.Equal(t, hod, updated.CodeApprovalID)
	assert.Equal(t, 1, updated.IndexSTT)
	assert.Equal(t, model.StatusActive, updated.Status)

	_, err = env.chain.UpdateStep(ctx, env.templ.ID, step.ID, UpdateStepRequest{IndexSTT: intPtr(2)})
	assert.True(t, errors.Is(err, approval.ErrDuplicateOrder), "got %v", err)

	_, err = env.chain.UpdateStep(ctx, env.templ.ID, step.ID, UpdateStepRequest{CodeApprovalID: uintPtr(999)})
	assert.True(t, errors.Is(err, approval.ErrUnknownGroup), "got %v", err)

	got, err := env.chain.GetStep(ctx, env.templ.ID, step.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.IndexSTT)
	assert.Equal(t, hod, got.CodeApprovalID)

	_, err = env.chain.UpdateStep(ctx, env.templ.ID, step.ID, UpdateStepRequest{})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestGetStepOfOtherTemplateIsNotFound(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	hr := env.createGroup(t, "HR")
	step := env.addStep(t, hr, 1)

	other, err := env.forms.Create(ctx, CreateFormTemplateRequest{NameVI: "Khác", NameEN: "Other", TypeForm: "leave"})
	require.NoError(t, err)

	_, err = env.chain.GetStep(ctx, other.ID, step.ID)
	assert.True(t, errors.Is(err, approval.ErrNotFound))
}

func TestAddIncludeUpsertAndIdentityFill(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	hr := env.createGroup(t, "HR")
	step := env.addStep(t, hr, 1)
	require.NoError(t, env.employees.Upsert(ctx, &model.Employee{Code: "E7", Name: "Bảy", Email: "e7@corp.vn"}))

	got, err := env.chain.AddInclude(ctx, env.templ.ID, step.ID, IncludeRequest{EmployeeCode: " E7 "})
	require.NoError(t, err)
	require.Len(t, got.SpecificCodeApprove, 1)
	assert.Equal(t, "E7", got.SpecificCodeApprove[0].EmployeeCode)
	assert.Equal(t, "Bảy", got.SpecificCodeApprove[0].EmployeeName)
	assert.Equal(t, "e7@corp.vn", got.SpecificCodeApprove[0].EmployeeEmail)

	got, err = env.chain.AddInclude(ctx, env.templ.ID, step.ID, IncludeRequest{EmployeeCode: "E7", EmployeeName: "Seven", EmployeeEmail: "seven@corp.vn"})
	require.NoError(t, err)
	require.Len(t, got.SpecificCodeApprove, 1, "重复新增应为更新")
	assert.Equal(t, "Seven", got.SpecificCodeApprove[0].EmployeeName)

	_, err = env.chain.AddInclude(ctx, env.templ.ID, step.ID, IncludeRequest{EmployeeCode: "  "})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestIncludeIndexAndCodeAddressing(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	hr := env.createGroup(t, "HR")
	step := env.addStep(t, hr, 1)
	for _, code := range []string{"E1", "E2", "E3"} {
		_, err := env.chain.AddInclude(ctx, env.templ.ID, step.ID, IncludeRequest{EmployeeCode: code, EmployeeName: code})
		require.NoError(t, err)
	}

	got, err := env.chain.UpdateInclude(ctx, env.templ.ID, step.ID, 1, IncludePatchRequest{EmployeeName: strPtr("Two")})
	require.NoError(t, err)
	assert.Equal(t, "Two", got.SpecificCodeApprove[1].EmployeeName)

	_, err = env.chain.UpdateInclude(ctx, env.templ.ID, step.ID, 0, IncludePatchRequest{EmployeeCode: strPtr("E3")})
	assert.True(t, errors.Is(err, approval.ErrDuplicateOverrideEntry), "got %v", err)

	_, err = env.chain.RemoveInclude(ctx, env.templ.ID, step.ID, 5)
	assert.True(t, errors.Is(err, approval.ErrIndexOutOfRange), "got %v", err)

	got, err = env.chain.RemoveIncludeByCode(ctx, env.templ.ID, step.ID, "E1")
	require.NoError(t, err)
	require.Len(t, got.SpecificCodeApprove, 2)
	assert.Equal(t, "E2", got.SpecificCodeApprove[0].EmployeeCode)
	assert.Equal(t, 0, got.SpecificCodeApprove[0].Index)

	got, err = env.chain.UpdateIncludeByCode(ctx, env.templ.ID, step.ID, "E3", IncludePatchRequest{EmployeeEmail: strPtr("e3@corp.vn")})
	require.NoError(t, err)
	assert.Equal(t, "e3@corp.vn", got.SpecificCodeApprove[1].EmployeeEmail)

	_, err = env.chain.RemoveIncludeByCode(ctx, env.templ.ID, step.ID, "E1")
	assert.True(t, errors.Is(err, approval.ErrNotFound))

	persisted, err := env.chain.GetStep(ctx, env.templ.ID, step.ID)
	require.NoError(t, err)
	assert.Equal(t, []IncludeDTO{
		{Index: 0, EmployeeCode: "E2", EmployeeName: "Two"},
		{Index: 1, EmployeeCode: "E3", EmployeeName: "E3", EmployeeEmail: "e3@corp.vn"},
	}, persisted.SpecificCodeApprove)
}

func TestExcludeOperations(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	hr := env.createGroup(t, "HR", "E1", "E2")
	step := env.addStep(t, hr, 1)

	_, err := env.chain.AddExclude(ctx, env.templ.ID, step.ID, ExcludeRequest{EmployeeCode: "E1"})
	require.NoError(t, err)
	got, err := env.chain.AddExclude(ctx, env.templ.ID, step.ID, ExcludeRequest{EmployeeCode: "E1"})
	require.NoError(t, err)
	assert.Len(t, got.ExcludeCodeApprove, 1, "重复排除不新增")

	got, err = env.chain.UpdateExclude(ctx, env.templ.ID, step.ID, 0, ExcludeRequest{EmployeeCode: "E2"})
	require.NoError(t, err)
	assert.Equal(t, "E2", got.ExcludeCodeApprove[0].EmployeeCode)

	_, err = env.chain.RemoveExclude(ctx, env.templ.ID, step.ID, 3)
	assert.True(t, errors.Is(err, approval.ErrIndexOutOfRange))

	_, err = env.chain.RemoveExcludeByCode(ctx, env.templ.ID, step.ID, "E9")
	assert.True(t, errors.Is(err, approval.ErrNotFound))

	got, err = env.chain.RemoveExcludeByCode(ctx, env.templ.ID, step.ID, "E2")
	require.NoError(t, err)
	assert.Empty(t, got.ExcludeCodeApprove)

	_, err = env.chain.AddExclude(ctx, env.templ.ID, step.ID, ExcludeRequest{EmployeeCode: "E1"})
	require.NoError(t, err)
	got, err = env.chain.RemoveExclude(ctx, env.templ.ID, step.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, got.ExcludeCodeApprove)
}

func TestResolveStepMergesOverrides(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.employees.Upsert(ctx, &model.Employee{Code: "E1", Name: "Một", Email: "e1@corp.vn"}))
	require.NoError(t, env.employees.Upsert(ctx, &model.Employee{Code: "E3", Name: "Ba", Email: "e3@corp.vn"}))
	hr := env.createGroup(t, "HR", "E3", "E1", "E2")
	step := env.addStep(t, hr, 1)

	_, err := env.chain.AddInclude(ctx, env.templ.ID, step.ID, IncludeRequest{EmployeeCode: "E9", EmployeeName: "Chín"})
	require.NoError(t, err)
	_, err = env.chain.AddInclude(ctx, env.templ.ID, step.ID, IncludeRequest{EmployeeCode: "E8", EmployeeName: "Tám"})
	require.NoError(t, err)
	_, err = env.chain.AddExclude(ctx, env.templ.ID, step.ID, ExcludeRequest{EmployeeCode: "E2"})
	require.NoError(t, err)
	_, err = env.chain.AddExclude(ctx, env.templ.ID, step.ID, ExcludeRequest{EmployeeCode: "E8"})
	require.NoError(t, err)

	res, err := env.chain.ResolveStep(ctx, env.templ.ID, step.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"E9", "E1", "E3"}, approverCodes(res), "排除优先，指定审批人在前，组成员按工号排序")
	assert.Equal(t, approval.SourceSpecific, res.Approvers[0].Source)
	assert.Equal(t, approval.SourceGroup, res.Approvers[1].Source)
	assert.Equal(t, "Một", res.Approvers[1].EmployeeName)
	assert.Equal(t, "e3@corp.vn", res.Approvers[2].EmployeeEmail)
	assert.Empty(t, res.Diagnostics)

	_, err = env.chain.ResolveStep(ctx, env.templ.ID, 999)
	assert.True(t, errors.Is(err, approval.ErrNotFound))
}

func TestResolveStepAllExcludedIsEmpty(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	hr := env.createGroup(t, "HR", "E1")
	step := env.addStep(t, hr, 1)
	_, err := env.chain.AddExclude(ctx, env.templ.ID, step.ID, ExcludeRequest{EmployeeCode: "E1"})
	require.NoError(t, err)

	res, err := env.chain.ResolveStep(ctx, env.templ.ID, step.ID)
	require.NoError(t, err)
	assert.NotNil(t, res.Approvers)
	assert.Empty(t, res.Approvers)
}

func TestResolveStepInactiveGroupStillResolves(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	hr := env.createGroup(t, "HR", "E1")
	step := env.addStep(t, hr, 1)

	group, err := env.groups.LookupGroup(ctx, hr)
	require.NoError(t, err)
	group.Status = model.StatusInactive
	require.NoError(t, env.groups.Update(ctx, group))

	res, err := env.chain.ResolveStep(ctx, env.templ.ID, step.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"E1"}, approverCodes(res))
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, approval.KindGroupInactive, res.Diagnostics[0].Kind)
}

func TestResolveStepWithoutDirectory(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	hr := env.createGroup(t, "HR", "E1")
	step := env.addStep(t, hr, 1)
	_, err := env.chain.AddInclude(ctx, env.templ.ID, step.ID, IncludeRequest{EmployeeCode: "E9"})
	require.NoError(t, err)

	chain := NewChainService(env.templates, nil, env.employees, env.audit, nil, nil)
	res, err := chain.ResolveStep(ctx, env.templ.ID, step.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"E9"}, approverCodes(res), "只保留指定审批人")
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, approval.KindUnknownGroup, res.Diagnostics[0].Kind)
}

func TestResolveChainInOrder(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := context.Background()
	hr := env.createGroup(t, "HR", "E1")
	hod := env.createGroup(t, "HOD", "E2")
	env.addStep(t, hod, 20)
	env.addStep(t, hr, 10)
	inactive, err := env.chain.AddStep(ctx, env.templ.ID, AddStepRequest{CodeApprovalID: hr, IndexSTT: intPtr(30), Status: model.StatusInactive})
	require.NoError(t, err)

	chain, err := env.chain.ResolveChain(ctx, env.templ.ID)
	require.NoError(t, err)
	require.Len(t, chain.Steps, 3)
	assert.Equal(t, 10, chain.Steps[0].Order)
	assert.Equal(t, []string{"E1"}, approverCodes(&chain.Steps[0]))
	assert.Equal(t, []string{"E2"}, approverCodes(&chain.Steps[1]))
	assert.Equal(t, inactive.ID, chain.Steps[2].StepID)
	assert.Empty(t, chain.Steps[2].Approvers)
	assert.Equal(t, approval.KindInactiveStepWarning, chain.Steps[2].Diagnostics[0].Kind)
}

func TestMutationsWriteAuditLogs(t *testing.T) {
	env := newChainTestEnv(t)
	ctx := WithOperator(context.Background(), "ADMIN01")
	hr := env.createGroup(t, "HR")

	step, err := env.chain.AddStep(ctx, env.templ.ID, AddStepRequest{CodeApprovalID: hr, IndexSTT: intPtr(1)})
	require.NoError(t, err)
	_, err = env.chain.AddInclude(ctx, env.templ.ID, step.ID, IncludeRequest{EmployeeCode: "E1"})
	require.NoError(t, err)
	_, err = env.chain.AddStep(ctx, env.templ.ID, AddStepRequest{CodeApprovalID: hr, IndexSTT: intPtr(1)})
	require.Error(t, err)

	logs, err := env.chain.ListAuditLogs(ctx, env.templ.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2, "失败的变更不记录")
	assert.Equal(t, "IncludeUpserted", logs[0].Action)
	assert.Equal(t, "StepAdded", logs[1].Action)
	assert.Equal(t, "ADMIN01", logs[0].Operator)
	assert.Equal(t, step.ID, logs[0].StepID)

	_, err = env.chain.ListAuditLogs(ctx, 999, 10)
	assert.True(t, errors.Is(err, approval.ErrNotFound))
}
