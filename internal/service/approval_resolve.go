package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/weibaohui/recruitflow/internal/domain/approval"
	"github.com/weibaohui/recruitflow/internal/model"
	"github.com/weibaohui/recruitflow/internal/pkg/metrics"
	"github.com/weibaohui/recruitflow/internal/repository"
	"github.com/weibaohui/recruitflow/internal/utils"
	"k8s.io/klog/v2"
)

// ResolveStep 计算单个步骤的实际审批人
func (s *chainService) ResolveStep(ctx context.Context, templateID, stepID uint) (*approval.Resolution, error) {
	steps, _, err := s.loadChain(ctx, templateID)
	if err != nil {
		return nil, err
	}
	step, err := findStep(steps, templateID, stepID)
	if err != nil {
		return nil, err
	}
	res, err := s.resolveStep(ctx, templateID, step)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ResolveChain 按审批顺序解析整条链，未启用的步骤返回空审批人和警告
func (s *chainService) ResolveChain(ctx context.Context, templateID uint) (*ChainResolutionDTO, error) {
	steps, diags, err := s.loadChain(ctx, templateID)
	if err != nil {
		return nil, err
	}
	result := &ChainResolutionDTO{
		FormTemplateID: templateID,
		Steps:          make([]approval.Resolution, 0, len(steps)),
		Diagnostics:    diags,
	}
	for i := range steps {
		res, err := s.resolveStep(ctx, templateID, &steps[i])
		if err != nil {
			return nil, err
		}
		result.Steps = append(result.Steps, res)
	}
	return result, nil
}

// resolveStep 获取审批组名义成员并合并覆盖名单
// 审批组已停用时仍按当前成员解析，并附带 GroupInactive 诊断
func (s *chainService) resolveStep(ctx context.Context, templateID uint, step *model.ApprovalStep) (approval.Resolution, error) {
	if !step.IsActive() {
		res := approval.Resolve(step, nil)
		reportDiagnostics(templateID, res.Diagnostics)
		metrics.ChainResolutionsTotal.WithLabelValues("skipped").Inc()
		return res, nil
	}

	var extra []approval.Diagnostic
	var codes []string
	// 未配置审批组目录时按审批组不存在处理，与新增步骤时的校验一致
	var group *model.CodeApprovalGroup
	err := repository.ErrNotFound
	if s.directory != nil {
		group, err = s.directory.LookupGroup(ctx, step.GroupID)
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		extra = append(extra, approval.Diagnostic{
			Kind:    approval.KindUnknownGroup,
			StepID:  step.ID,
			Message: fmt.Sprintf("group %d referenced by step %d no longer exists", step.GroupID, step.ID),
		})
	case err != nil:
		metrics.ChainResolutionsTotal.WithLabelValues("error").Inc()
		return approval.Resolution{}, fmt.Errorf("failed to lookup group %d: %w", step.GroupID, err)
	default:
		if group.Status != model.StatusActive {
			extra = append(extra, approval.Diagnostic{
				Kind:    approval.KindGroupInactive,
				StepID:  step.ID,
				Message: fmt.Sprintf("group %s (%d) is %s", group.Code, group.ID, group.Status),
			})
		}
		codes, err = s.directory.ListMembers(ctx, step.GroupID)
		if err != nil {
			metrics.ChainResolutionsTotal.WithLabelValues("error").Inc()
			return approval.Resolution{}, fmt.Errorf("failed to list members of group %d: %w", step.GroupID, err)
		}
	}

	res := approval.Resolve(step, s.nominalMembers(ctx, codes))
	res.Diagnostics = append(res.Diagnostics, extra...)
	reportDiagnostics(templateID, res.Diagnostics)
	metrics.ChainResolutionsTotal.WithLabelValues("ok").Inc()
	metrics.ResolvedApprovers.Observe(float64(len(res.Approvers)))
	return res, nil
}

// nominalMembers 按工号排序并补全姓名与邮箱，员工信息查询失败时只返回工号
func (s *chainService) nominalMembers(ctx context.Context, codes []string) []approval.NominalMember {
	if len(codes) == 0 {
		return nil
	}
	sorted := utils.SortedCodes(codes)

	var employees map[string]model.Employee
	if s.identity != nil {
		found, err := s.identity.LookupEmployees(ctx, sorted)
		if err != nil {
			klog.Warningf("批量查询员工信息失败: count=%d, error=%v", len(sorted), err)
		} else {
			employees = found
		}
	}

	members := make([]approval.NominalMember, len(sorted))
	for i, code := range sorted {
		members[i] = approval.NominalMember{EmployeeCode: code}
		if e, ok := employees[code]; ok {
			members[i].EmployeeName = e.Name
			members[i].EmployeeEmail = e.Email
		}
	}
	return members
}
