package approval

import (
	"context"
	"fmt"

	"github.com/weibaohui/recruitflow/internal/model"
)

// GroupChecker 判断审批组是否存在
type GroupChecker interface {
	GroupExists(ctx context.Context, groupID uint) (bool, error)
}

// GroupCheckerFunc 函数适配器
type GroupCheckerFunc func(ctx context.Context, groupID uint) (bool, error)

func (f GroupCheckerFunc) GroupExists(ctx context.Context, groupID uint) (bool, error) {
	return f(ctx, groupID)
}

// CheckOptions 校验选项
type CheckOptions struct {
	// VerifyGroups 需要校验引用有效性的审批组，仅在新增步骤或修改 GroupID 时传入
	VerifyGroups []uint
}

// Validator 审批链不变量校验，每次变更提交前同步执行
type Validator struct {
	groups GroupChecker
}

// NewValidator 创建校验器
func NewValidator(groups GroupChecker) *Validator {
	return &Validator{groups: groups}
}

// Check 依次校验：Order 唯一、覆盖名单按工号唯一、审批组引用有效
func (v *Validator) Check(ctx context.Context, steps []model.ApprovalStep, opts CheckOptions) error {
	if err := CheckOrderUnique(steps); err != nil {
		return err
	}
	for i := range steps {
		if err := CheckOverridesUnique(&steps[i]); err != nil {
			return err
		}
	}
	for _, groupID := range opts.VerifyGroups {
		if v.groups == nil {
			return NewError(KindUnknownGroup, "group %d cannot be verified", groupID)
		}
		ok, err := v.groups.GroupExists(ctx, groupID)
		if err != nil {
			return fmt.Errorf("failed to verify group %d: %w", groupID, err)
		}
		if !ok {
			return NewError(KindUnknownGroup, "group %d does not exist", groupID)
		}
	}
	return nil
}

// CheckOrderUnique 校验同一模板内 Order 不重复
func CheckOrderUnique(steps []model.ApprovalStep) error {
	seen := make(map[int]uint, len(steps))
	for _, s := range steps {
		if other, ok := seen[s.Order]; ok {
			return NewError(KindDuplicateOrder, "order %d already used by step %d", s.Order, other)
		}
		seen[s.Order] = s.ID
	}
	return nil
}

// CheckOverridesUnique 校验步骤的指定审批人与排除名单各自按工号唯一
func CheckOverridesUnique(step *model.ApprovalStep) error {
	includes := make(map[string]struct{}, len(step.SpecificIncludes))
	for _, inc := range step.SpecificIncludes {
		code := NormalizeCode(inc.EmployeeCode)
		if _, ok := includes[code]; ok {
			return NewError(KindDuplicateOverrideEntry, "employee %s duplicated in specific includes of step %d", code, step.ID)
		}
		includes[code] = struct{}{}
	}
	excludes := make(map[string]struct{}, len(step.Excludes))
	for _, ex := range step.Excludes {
		code := NormalizeCode(ex.EmployeeCode)
		if _, ok := excludes[code]; ok {
			return NewError(KindDuplicateOverrideEntry, "employee %s duplicated in excludes of step %d", code, step.ID)
		}
		excludes[code] = struct{}{}
	}
	return nil
}
