package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/weibaohui/recruitflow/internal/domain/approval"
	"github.com/weibaohui/recruitflow/internal/eventbus"
	"github.com/weibaohui/recruitflow/internal/model"
	"github.com/weibaohui/recruitflow/internal/pkg/chainlock"
	"github.com/weibaohui/recruitflow/internal/pkg/metrics"
	"github.com/weibaohui/recruitflow/internal/repository"
	"github.com/weibaohui/recruitflow/internal/service/statemachine"
	"github.com/weibaohui/recruitflow/internal/utils"
	"k8s.io/klog/v2"
)

// ChainService 审批链服务接口
type ChainService interface {
	// ListSteps 按 index_stt 升序返回步骤，顺序冲突时附带诊断
	ListSteps(ctx context.Context, templateID uint) (*StepListDTO, error)
	GetStep(ctx context.Context, templateID, stepID uint) (*StepDTO, error)

	AddStep(ctx context.Context, templateID uint, req AddStepRequest) (*StepDTO, error)
	UpdateStep(ctx context.Context, templateID, stepID uint, req UpdateStepRequest) (*StepDTO, error)

	// 指定审批人
	AddInclude(ctx context.Context, templateID, stepID uint, req IncludeRequest) (*StepDTO, error)
	UpdateInclude(ctx context.Context, templateID, stepID uint, index int, req IncludePatchRequest) (*StepDTO, error)
	RemoveInclude(ctx context.Context, templateID, stepID uint, index int) (*StepDTO, error)
	UpdateIncludeByCode(ctx context.Context, templateID, stepID uint, code string, req IncludePatchRequest) (*StepDTO, error)
	RemoveIncludeByCode(ctx context.Context, templateID, stepID uint, code string) (*StepDTO, error)

	// 排除名单
	AddExclude(ctx context.Context, templateID, stepID uint, req ExcludeRequest) (*StepDTO, error)
	UpdateExclude(ctx context.Context, templateID, stepID uint, index int, req ExcludeRequest) (*StepDTO, error)
	RemoveExclude(ctx context.Context, templateID, stepID uint, index int) (*StepDTO, error)
	RemoveExcludeByCode(ctx context.Context, templateID, stepID uint, code string) (*StepDTO, error)

	// 审批人解析
	ResolveStep(ctx context.Context, templateID, stepID uint) (*approval.Resolution, error)
	ResolveChain(ctx context.Context, templateID uint) (*ChainResolutionDTO, error)

	ListAuditLogs(ctx context.Context, templateID uint, limit int) ([]AuditLogDTO, error)
}

type operatorKey struct{}

// WithOperator 记录本次操作的员工工号，用于审计日志
func WithOperator(ctx context.Context, employeeCode string) context.Context {
	return context.WithValue(ctx, operatorKey{}, employeeCode)
}

// OperatorFrom 取出操作人工号
func OperatorFrom(ctx context.Context) string {
	code, _ := ctx.Value(operatorKey{}).(string)
	return code
}

// chainService 实现
type chainService struct {
	repo      repository.TemplateRepository
	directory repository.GroupDirectory
	identity  repository.IdentityLookup
	auditRepo repository.AuditLogRepository
	locker    chainlock.Locker
	bus       *eventbus.ChainEventBus
	validator *approval.Validator
	sm        *statemachine.StepStateMachine
}

// NewChainService 创建审批链服务，locker 为 nil 时使用进程内锁
func NewChainService(
	repo repository.TemplateRepository,
	directory repository.GroupDirectory,
	identity repository.IdentityLookup,
	auditRepo repository.AuditLogRepository,
	locker chainlock.Locker,
	bus *eventbus.ChainEventBus,
) ChainService {
	if locker == nil {
		locker = chainlock.NewLocalLocker()
	}
	s := &chainService{
		repo:      repo,
		directory: directory,
		identity:  identity,
		auditRepo: auditRepo,
		locker:    locker,
		bus:       bus,
		sm:        statemachine.NewStepStateMachine(),
	}
	s.validator = approval.NewValidator(approval.GroupCheckerFunc(s.groupExists))
	return s
}

func (s *chainService) groupExists(ctx context.Context, groupID uint) (bool, error) {
	if s.directory == nil {
		return false, nil
	}
	_, err := s.directory.LookupGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListSteps 获取审批链步骤
func (s *chainService) ListSteps(ctx context.Context, templateID uint) (*StepListDTO, error) {
	steps, diags, err := s.loadChain(ctx, templateID)
	if err != nil {
		return nil, err
	}
	return &StepListDTO{Steps: toStepDTOs(steps), Diagnostics: diags}, nil
}

// GetStep 获取单个步骤，步骤不属于该模板时同样视为不存在
func (s *chainService) GetStep(ctx context.Context, templateID, stepID uint) (*StepDTO, error) {
	steps, _, err := s.loadChain(ctx, templateID)
	if err != nil {
		return nil, err
	}
	step, err := findStep(steps, templateID, stepID)
	if err != nil {
		return nil, err
	}
	return toStepDTO(step), nil
}

// AddStep 新增步骤，同一模板内 index_stt 不可重复
func (s *chainService) AddStep(ctx context.Context, templateID uint, req AddStepRequest) (*StepDTO, error) {
	if req.IndexSTT == nil {
		return nil, fmt.Errorf("%w: index_stt is required", ErrInvalidInput)
	}
	status := req.Status
	if status == "" {
		status = model.StatusActive
	}
	to, err := statemachine.ParseStepStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.sm.Transition(statemachine.StepStatusDraft, to, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	order := *req.IndexSTT
	return s.mutate(ctx, templateID, eventbus.ChainEventStepAdded, []uint{req.CodeApprovalID}, func(steps *[]model.ApprovalStep) (*chainChange, error) {
		*steps = append(*steps, model.ApprovalStep{
			FormTemplateID: templateID,
			GroupID:        req.CodeApprovalID,
			Status:         string(to),
			Order:          order,
		})
		return &chainChange{
			step:    &(*steps)[len(*steps)-1],
			created: true,
			detail:  fmt.Sprintf("index_stt=%d, code_approval_id=%d, status=%s", order, req.CodeApprovalID, to),
		}, nil
	})
}

// UpdateStep 局部更新步骤，只写入请求中出现的字段；切换状态不影响覆盖名单
func (s *chainService) UpdateStep(ctx context.Context, templateID, stepID uint, req UpdateStepRequest) (*StepDTO, error) {
	if req.Status == nil && req.IndexSTT == nil && req.CodeApprovalID == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	var to statemachine.StepStatus
	if req.Status != nil {
		parsed, err := statemachine.ParseStepStatus(*req.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		to = parsed
	}
	var verifyGroups []uint
	if req.CodeApprovalID != nil {
		verifyGroups = []uint{*req.CodeApprovalID}
	}

	return s.mutate(ctx, templateID, eventbus.ChainEventStepUpdated, verifyGroups, func(steps *[]model.ApprovalStep) (*chainChange, error) {
		step, err := findStep(*steps, templateID, stepID)
		if err != nil {
			return nil, err
		}
		fields := make(map[string]any)
		if req.Status != nil {
			from, err := statemachine.ParseStepStatus(step.Status)
			if err != nil {
				return nil, fmt.Errorf("failed to parse stored status of step %d: %w", step.ID, err)
			}
			if err := s.sm.Transition(from, to, step.ID); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			step.Status = string(to)
			fields["status"] = step.Status
		}
		if req.IndexSTT != nil {
			step.Order = *req.IndexSTT
			fields["index_stt"] = step.Order
		}
		if req.CodeApprovalID != nil {
			step.GroupID = *req.CodeApprovalID
			fields["group_id"] = step.GroupID
		}
		return &chainChange{step: step, fields: fields, detail: utils.ToJSON(fields)}, nil
	})
}

// AddInclude 按工号新增或更新指定审批人，姓名/邮箱为空时从员工信息补全
func (s *chainService) AddInclude(ctx context.Context, templateID, stepID uint, req IncludeRequest) (*StepDTO, error) {
	code := approval.NormalizeCode(req.EmployeeCode)
	if code == "" {
		return nil, fmt.Errorf("%w: employee_code is required", ErrInvalidInput)
	}
	name, email := s.fillIdentity(ctx, code, req.EmployeeName, req.EmployeeEmail)

	return s.mutate(ctx, templateID, eventbus.ChainEventIncludeUpserted, nil, func(steps *[]model.ApprovalStep) (*chainChange, error) {
		step, err := findStep(*steps, templateID, stepID)
		if err != nil {
			return nil, err
		}
		created := approval.UpsertInclude(step, code, name, email)
		return &chainChange{step: step, includes: true, employeeCode: code, detail: upsertDetail(code, created)}, nil
	})
}

// UpdateInclude 按下标更新指定审批人
func (s *chainService) UpdateInclude(ctx context.Context, templateID, stepID uint, index int, req IncludePatchRequest) (*StepDTO, error) {
	patch, err := toIncludePatch(req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, templateID, eventbus.ChainEventIncludeUpdated, nil, func(steps *[]model.ApprovalStep) (*chainChange, error) {
		step, err := findStep(*steps, templateID, stepID)
		if err != nil {
			return nil, err
		}
		if err := approval.UpdateIncludeAt(step, index, patch); err != nil {
			return nil, err
		}
		code := step.SpecificIncludes[index].EmployeeCode
		return &chainChange{step: step, includes: true, employeeCode: code, detail: fmt.Sprintf("index=%d, employeeCode=%s", index, code)}, nil
	})
}

// RemoveInclude 按下标删除指定审批人
func (s *chainService) RemoveInclude(ctx context.Context, templateID, stepID uint, index int) (*StepDTO, error) {
	return s.mutate(ctx, templateID, eventbus.ChainEventIncludeRemoved, nil, func(steps *[]model.ApprovalStep) (*chainChange, error) {
		step, err := findStep(*steps, templateID, stepID)
		if err != nil {
			return nil, err
		}
		removed, err := approval.RemoveIncludeAt(step, index)
		if err != nil {
			return nil, err
		}
		return &chainChange{step: step, includes: true, employeeCode: removed.EmployeeCode, detail: fmt.Sprintf("index=%d, employeeCode=%s", index, removed.EmployeeCode)}, nil
	})
}

// UpdateIncludeByCode 按工号更新指定审批人
func (s *chainService) UpdateIncludeByCode(ctx context.Context, templateID, stepID uint, code string, req IncludePatchRequest) (*StepDTO, error) {
	patch, err := toIncludePatch(req)
	if err != nil {
		return nil, err
	}
	code = approval.NormalizeCode(code)
	return s.mutate(ctx, templateID, eventbus.ChainEventIncludeUpdated, nil, func(steps *[]model.ApprovalStep) (*chainChange, error) {
		step, err := findStep(*steps, templateID, stepID)
		if err != nil {
			return nil, err
		}
		index := approval.IncludeIndexOf(step, code)
		if index < 0 {
			return nil, approval.NewError(approval.KindNotFound, "employee %s is not a specific approver of step %d", code, stepID)
		}
		if err := approval.UpdateIncludeAt(step, index, patch); err != nil {
			return nil, err
		}
		newCode := step.SpecificIncludes[index].EmployeeCode
		return &chainChange{step: step, includes: true, employeeCode: newCode, detail: fmt.Sprintf("employeeCode=%s -> %s", code, newCode)}, nil
	})
}

// RemoveIncludeByCode 按工号删除指定审批人
func (s *chainService) RemoveIncludeByCode(ctx context.Context, templateID, stepID uint, code string) (*StepDTO, error) {
	code = approval.NormalizeCode(code)
	return s.mutate(ctx, templateID, eventbus.ChainEventIncludeRemoved, nil, func(steps *[]model.ApprovalStep) (*chainChange, error) {
		step, err := findStep(*steps, templateID, stepID)
		if err != nil {
			return nil, err
		}
		index := approval.IncludeIndexOf(step, code)
		if index < 0 {
			return nil, approval.NewError(approval.KindNotFound, "employee %s is not a specific approver of step %d", code, stepID)
		}
		if _, err := approval.RemoveIncludeAt(step, index); err != nil {
			return nil, err
		}
		return &chainChange{step: step, includes: true, employeeCode: code, detail: fmt.Sprintf("employeeCode=%s", code)}, nil
	})
}

// AddExclude 按工号加入排除名单，已存在时不做改动
func (s *chainService) AddExclude(ctx context.Context, templateID, stepID uint, req ExcludeRequest) (*StepDTO, error) {
	code := approval.NormalizeCode(req.EmployeeCode)
	if code == "" {
		return nil, fmt.Errorf("%w: employee_code is required", ErrInvalidInput)
	}
	return s.mutate(ctx, templateID, eventbus.ChainEventExcludeUpserted, nil, func(steps *[]model.ApprovalStep) (*chainChange, error) {
		step, err := findStep(*steps, templateID, stepID)
		if err != nil {
			return nil, err
		}
		created := approval.UpsertExclude(step, code)
		return &chainChange{step: step, excludes: created, employeeCode: code, detail: upsertDetail(code, created)}, nil
	})
}

// UpdateExclude 按下标修改排除名单中的工号
func (s *chainService) UpdateExclude(ctx context.Context, templateID, stepID uint, index int, req ExcludeRequest) (*StepDTO, error) {
	code := approval.NormalizeCode(req.EmployeeCode)
	if code == "" {
		return nil, fmt.Errorf("%w: employee_code is required", ErrInvalidInput)
	}
	return s.mutate(ctx, templateID, eventbus.ChainEventExcludeUpdated, nil, func(steps *[]model.ApprovalStep) (*chainChange, error) {
		step, err := findStep(*steps, templateID, stepID)
		if err != nil {
			return nil, err
		}
		if err := approval.UpdateExcludeAt(step, index, code); err != nil {
			return nil, err
		}
		return &chainChange{step: step, excludes: true, employeeCode: code, detail: fmt.Sprintf("index=%d, employeeCode=%s", index, code)}, nil
	})
}

// RemoveExclude 按下标移出排除名单
func (s *chainService) RemoveExclude(ctx context.Context, templateID, stepID uint, index int) (*StepDTO, error) {
	return s.mutate(ctx, templateID, eventbus.ChainEventExcludeRemoved, nil, func(steps *[]model.ApprovalStep) (*chainChange, error) {
		step, err := findStep(*steps, templateID, stepID)
		if err != nil {
			return nil, err
		}
		removed, err := approval.RemoveExcludeAt(step, index)
		if err != nil {
			return nil, err
		}
		return &chainChange{step: step, excludes: true, employeeCode: removed.EmployeeCode, detail: fmt.Sprintf("index=%d, employeeCode=%s", index, removed.EmployeeCode)}, nil
	})
}

// RemoveExcludeByCode 按工号移出排除名单
func (s *chainService) RemoveExcludeByCode(ctx context.Context, templateID, stepID uint, code string) (*StepDTO, error) {
	code = approval.NormalizeCode(code)
	return s.mutate(ctx, templateID, eventbus.ChainEventExcludeRemoved, nil, func(steps *[]model.ApprovalStep) (*chainChange, error) {
		step, err := findStep(*steps, templateID, stepID)
		if err != nil {
			return nil, err
		}
		index := approval.ExcludeIndexOf(step, code)
		if index < 0 {
			return nil, approval.NewError(approval.KindNotFound, "employee %s is not excluded from step %d", code, stepID)
		}
		if _, err := approval.RemoveExcludeAt(step, index); err != nil {
			return nil, err
		}
		return &chainChange{step: step, excludes: true, employeeCode: code, detail: fmt.Sprintf("employeeCode=%s", code)}, nil
	})
}

// ListAuditLogs 获取模板审批链的变更日志，最新的在前
func (s *chainService) ListAuditLogs(ctx context.Context, templateID uint, limit int) ([]AuditLogDTO, error) {
	if err := s.ensureTemplate(ctx, templateID); err != nil {
		return nil, err
	}
	logs, err := s.auditRepo.ListByTemplate(ctx, templateID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	result := make([]AuditLogDTO, len(logs))
	for i := range logs {
		result[i] = toAuditLogDTO(&logs[i])
	}
	return result, nil
}

func (s *chainService) ensureTemplate(ctx context.Context, templateID uint) error {
	if _, err := s.repo.GetBasic(ctx, templateID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrFormTemplateNotFound
		}
		return fmt.Errorf("failed to get form template: %w", err)
	}
	return nil
}

// loadChain 读取并排序审批链，不加锁
func (s *chainService) loadChain(ctx context.Context, templateID uint) ([]model.ApprovalStep, []approval.Diagnostic, error) {
	if err := s.ensureTemplate(ctx, templateID); err != nil {
		return nil, nil, err
	}
	steps, err := s.repo.ListSteps(ctx, templateID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list steps: %w", err)
	}
	sorted, diags := approval.SortSteps(steps)
	reportDiagnostics(templateID, diags)
	return sorted, diags, nil
}

// fillIdentity 用员工信息补全空的姓名/邮箱，查询失败不影响写入
func (s *chainService) fillIdentity(ctx context.Context, code, name, email string) (string, string) {
	if s.identity == nil || (name != "" && email != "") {
		return name, email
	}
	employee, err := s.identity.LookupEmployee(ctx, code)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			klog.Warningf("查询员工信息失败: code=%s, error=%v", code, err)
		}
		return name, email
	}
	if name == "" {
		name = employee.Name
	}
	if email == "" {
		email = employee.Email
	}
	return name, email
}

func findStep(steps []model.ApprovalStep, templateID, stepID uint) (*model.ApprovalStep, error) {
	i := approval.FindStep(steps, stepID)
	if i < 0 {
		return nil, approval.NewError(approval.KindNotFound, "step %d not found in form template %d", stepID, templateID)
	}
	return &steps[i], nil
}

func toIncludePatch(req IncludePatchRequest) (approval.IncludePatch, error) {
	patch := approval.IncludePatch{EmployeeName: req.EmployeeName, EmployeeEmail: req.EmployeeEmail}
	if req.EmployeeCode != nil {
		code := approval.NormalizeCode(*req.EmployeeCode)
		if code == "" {
			return patch, fmt.Errorf("%w: employee_code cannot be empty", ErrInvalidInput)
		}
		patch.EmployeeCode = &code
	}
	if patch.EmployeeCode == nil && patch.EmployeeName == nil && patch.EmployeeEmail == nil {
		return patch, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	return patch, nil
}

func upsertDetail(code string, created bool) string {
	if created {
		return fmt.Sprintf("employeeCode=%s, created", code)
	}
	return fmt.Sprintf("employeeCode=%s, updated", code)
}

// reportDiagnostics 诊断只记录日志与指标
func reportDiagnostics(templateID uint, diags []approval.Diagnostic) {
	for _, d := range diags {
		klog.Warningf("审批链诊断: templateID=%d, kind=%s, stepID=%d, employeeCode=%s, message=%s", templateID, d.Kind, d.StepID, d.EmployeeCode, d.Message)
		metrics.ChainDiagnosticsTotal.WithLabelValues(string(d.Kind)).Inc()
	}
}
