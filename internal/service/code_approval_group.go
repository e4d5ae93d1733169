package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/weibaohui/recruitflow/internal/domain/approval"
	"github.com/weibaohui/recruitflow/internal/model"
	"github.com/weibaohui/recruitflow/internal/repository"
	"github.com/weibaohui/recruitflow/internal/utils"
	"k8s.io/klog/v2"
)

var (
	ErrGroupNotFound    = approval.NewError(approval.KindNotFound, "code approval group not found")
	ErrGroupCodeExists  = errors.New("code approval group code already exists")
	ErrEmployeeNotFound = approval.NewError(approval.KindNotFound, "employee not found")
)

// GroupDTO 审批组
type GroupDTO struct {
	ID     uint   `json:"id"`
	Label  string `json:"label"`
	Code   string `json:"code"`
	Status string `json:"status"`
	Index  int    `json:"index"`
}

// GroupRequest 创建/修改审批组
type GroupRequest struct {
	Label  string `json:"label" binding:"required,min=1,max=100"`
	Code   string `json:"code" binding:"required,min=1,max=50"`
	Status string `json:"status" binding:"omitempty,oneof=active inactive"`
	Index  int    `json:"index"`
}

// GroupMembersRequest 整体替换审批组成员
type GroupMembersRequest struct {
	EmployeeCodes []string `json:"employee_codes"`
}

// EmployeeDTO 员工信息
type EmployeeDTO struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EmployeeRequest 维护员工信息
type EmployeeRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Email string `json:"email" binding:"omitempty,email,max=255"`
}

// GroupService 审批组服务接口
type GroupService interface {
	List(ctx context.Context) ([]GroupDTO, error)
	Create(ctx context.Context, req GroupRequest) (*GroupDTO, error)
	Update(ctx context.Context, id uint, req GroupRequest) (*GroupDTO, error)
	ListMembers(ctx context.Context, id uint) ([]string, error)
	SetMembers(ctx context.Context, id uint, codes []string) ([]string, error)

	UpsertEmployee(ctx context.Context, code string, req EmployeeRequest) (*EmployeeDTO, error)
	GetEmployee(ctx context.Context, code string) (*EmployeeDTO, error)
}

// cacheInvalidator 审批组目录缓存
type cacheInvalidator interface {
	Invalidate(groupID uint)
}

// groupService 实现
type groupService struct {
	groupRepo    repository.GroupRepository
	employeeRepo repository.EmployeeRepository
	cache        cacheInvalidator
}

// NewGroupService 创建服务实例，cache 可为 nil
func NewGroupService(groupRepo repository.GroupRepository, employeeRepo repository.EmployeeRepository, cache cacheInvalidator) GroupService {
	return &groupService{
		groupRepo:    groupRepo,
		employeeRepo: employeeRepo,
		cache:        cache,
	}
}

// List 按展示顺序获取审批组
func (s *groupService) List(ctx context.Context) ([]GroupDTO, error) {
	groups, err := s.groupRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	result := make([]GroupDTO, len(groups))
	for i := range groups {
		result[i] = toGroupDTO(&groups[i])
	}
	return result, nil
}

// Create 创建审批组
func (s *groupService) Create(ctx context.Context, req GroupRequest) (*GroupDTO, error) {
	group := &model.CodeApprovalGroup{}
	if err := applyGroupRequest(group, req); err != nil {
		return nil, err
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrGroupCodeExists
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	klog.V(6).Infof("创建审批组: id=%d, code=%s", group.ID, group.Code)
	dto := toGroupDTO(group)
	return &dto, nil
}

// Update 修改审批组，停用的审批组仍可被已有步骤引用
func (s *groupService) Update(ctx context.Context, id uint, req GroupRequest) (*GroupDTO, error) {
	group, err := s.getGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyGroupRequest(group, req); err != nil {
		return nil, err
	}
	if err := s.groupRepo.Update(ctx, group); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrGroupCodeExists
		}
		return nil, fmt.Errorf("failed to update group: %w", err)
	}
	s.invalidate(id)
	dto := toGroupDTO(group)
	return &dto, nil
}

// ListMembers 获取审批组名义成员
func (s *groupService) ListMembers(ctx context.Context, id uint) ([]string, error) {
	if _, err := s.getGroup(ctx, id); err != nil {
		return nil, err
	}
	codes, err := s.groupRepo.ListMembers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	return codes, nil
}

// SetMembers 整体替换审批组成员，工号去空格去重
func (s *groupService) SetMembers(ctx context.Context, id uint, codes []string) ([]string, error) {
	if _, err := s.getGroup(ctx, id); err != nil {
		return nil, err
	}
	normalized := utils.SortedCodes(codes)

	if err := s.groupRepo.ReplaceMembers(ctx, id, normalized); err != nil {
		return nil, fmt.Errorf("failed to replace group members: %w", err)
	}
	s.invalidate(id)
	klog.V(6).Infof("更新审批组成员: groupID=%d, count=%d", id, len(normalized))
	return normalized, nil
}

// UpsertEmployee 新增或更新员工信息
func (s *groupService) UpsertEmployee(ctx context.Context, code string, req EmployeeRequest) (*EmployeeDTO, error) {
	code = approval.NormalizeCode(code)
	name := strings.TrimSpace(req.Name)
	if code == "" || name == "" {
		return nil, fmt.Errorf("%w: employee code and name are required", ErrInvalidInput)
	}
	employee := &model.Employee{Code: code, Name: name, Email: strings.TrimSpace(req.Email)}
	if err := s.employeeRepo.Upsert(ctx, employee); err != nil {
		return nil, fmt.Errorf("failed to save employee: %w", err)
	}
	return &EmployeeDTO{Code: employee.Code, Name: employee.Name, Email: employee.Email}, nil
}

// GetEmployee 按工号获取员工信息
func (s *groupService) GetEmployee(ctx context.Context, code string) (*EmployeeDTO, error) {
	employee, err := s.employeeRepo.LookupEmployee(ctx, approval.NormalizeCode(code))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &EmployeeDTO{Code: employee.Code, Name: employee.Name, Email: employee.Email}, nil
}

func (s *groupService) getGroup(ctx context.Context, id uint) (*model.CodeApprovalGroup, error) {
	group, err := s.groupRepo.LookupGroup(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

func (s *groupService) invalidate(id uint) {
	if s.cache != nil {
		s.cache.Invalidate(id)
	}
}

func applyGroupRequest(group *model.CodeApprovalGroup, req GroupRequest) error {
	label := strings.TrimSpace(req.Label)
	code := strings.TrimSpace(req.Code)
	if label == "" || code == "" {
		return fmt.Errorf("%w: label and code are required", ErrInvalidInput)
	}
	status := req.Status
	if status == "" {
		status = model.StatusActive
	}
	if status != model.StatusActive && status != model.StatusInactive {
		return fmt.Errorf("%w: status must be active or inactive", ErrInvalidInput)
	}
	group.Label = label
	group.Code = code
	group.Status = status
	group.Index = req.Index
	return nil
}

func toGroupDTO(g *model.CodeApprovalGroup) GroupDTO {
	return GroupDTO{
		ID:     g.ID,
		Label:  g.Label,
		Code:   g.Code,
		Status: g.Status,
		Index:  g.Index,
	}
}
