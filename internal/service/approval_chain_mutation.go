package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/weibaohui/recruitflow/internal/domain/approval"
	"github.com/weibaohui/recruitflow/internal/eventbus"
	"github.com/weibaohui/recruitflow/internal/model"
	"github.com/weibaohui/recruitflow/internal/pkg/metrics"
	"github.com/weibaohui/recruitflow/internal/repository"
	"k8s.io/klog/v2"
)

// chainChange 一次变更需要落库的内容
type chainChange struct {
	step     *model.ApprovalStep
	created  bool
	fields   map[string]any
	includes bool
	excludes bool

	employeeCode string
	detail       string
}

// mutate 在模板锁与事务内执行变更：加载审批链 -> 内存修改 -> 校验 -> 落库，提交后发布事件
// 审批组属于外部数据，引用有效性在进入事务前校验
func (s *chainService) mutate(
	ctx context.Context,
	templateID uint,
	action eventbus.ChainEventType,
	verifyGroups []uint,
	fn func(steps *[]model.ApprovalStep) (*chainChange, error),
) (result *StepDTO, err error) {
	defer func() {
		metrics.ChainMutationsTotal.WithLabelValues(string(action), resultLabel(err)).Inc()
	}()

	unlock, err := s.locker.Lock(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock approval chain: %w", err)
	}
	defer unlock()

	if len(verifyGroups) > 0 {
		if err := s.validator.Check(ctx, nil, approval.CheckOptions{VerifyGroups: verifyGroups}); err != nil {
			return nil, err
		}
	}

	var change *chainChange
	err = s.repo.Transaction(ctx, func(store repository.ChainStore) error {
		if _, err := store.GetTemplate(templateID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrFormTemplateNotFound
			}
			return fmt.Errorf("failed to get form template: %w", err)
		}
		steps, err := store.ListSteps(templateID)
		if err != nil {
			return fmt.Errorf("failed to list steps: %w", err)
		}

		change, err = fn(&steps)
		if err != nil {
			return err
		}
		if err := s.validator.Check(ctx, steps, approval.CheckOptions{}); err != nil {
			return err
		}
		return persistChange(store, change)
	})
	if err != nil {
		klog.V(6).Infof("审批链变更失败: templateID=%d, action=%s, error=%v", templateID, action, err)
		return nil, err
	}

	klog.V(6).Infof("审批链变更成功: templateID=%d, stepID=%d, action=%s, %s", templateID, change.step.ID, action, change.detail)
	s.publish(ctx, templateID, action, change)
	return toStepDTO(change.step), nil
}

// persistChange 只写入变更涉及的列或名单，其余字段保持数据库中的值
func persistChange(store repository.ChainStore, change *chainChange) error {
	step := change.step
	if change.created {
		if err := store.CreateStep(step); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return approval.NewError(approval.KindDuplicateOrder, "order %d already used in form template %d", step.Order, step.FormTemplateID)
			}
			return fmt.Errorf("failed to create step: %w", err)
		}
	} else if len(change.fields) > 0 {
		if err := store.UpdateStepFields(step.ID, change.fields); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return approval.NewError(approval.KindDuplicateOrder, "order %d already used in form template %d", step.Order, step.FormTemplateID)
			}
			return fmt.Errorf("failed to update step: %w", err)
		}
	}
	if change.includes {
		if err := store.ReplaceIncludes(step.ID, step.SpecificIncludes); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return approval.NewError(approval.KindDuplicateOverrideEntry, "duplicate specific approver in step %d", step.ID)
			}
			return fmt.Errorf("failed to save specific approvers: %w", err)
		}
	}
	if change.excludes {
		if err := store.ReplaceExcludes(step.ID, step.Excludes); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return approval.NewError(approval.KindDuplicateOverrideEntry, "duplicate excluded employee in step %d", step.ID)
			}
			return fmt.Errorf("failed to save excludes: %w", err)
		}
	}
	return nil
}

// publish 事务已提交，订阅方失败只记录日志
func (s *chainService) publish(ctx context.Context, templateID uint, action eventbus.ChainEventType, change *chainChange) {
	if s.bus == nil {
		return
	}
	event := eventbus.ChainEvent{
		Type:           action,
		FormTemplateID: templateID,
		StepID:         change.step.ID,
		EmployeeCode:   change.employeeCode,
		Detail:         change.detail,
		Operator:       OperatorFrom(ctx),
	}
	if err := s.bus.PublishEvent(ctx, event); err != nil {
		klog.Errorf("发布审批链事件失败: templateID=%d, action=%s, error=%v", templateID, action, err)
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if kind, ok := approval.KindOf(err); ok {
		return string(kind)
	}
	if errors.Is(err, ErrInvalidInput) {
		return "invalid_input"
	}
	return "error"
}
