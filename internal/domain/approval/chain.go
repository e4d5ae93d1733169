package approval

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/weibaohui/recruitflow/internal/model"
)

// SortSteps 按 Order 升序排列步骤，Order 相同时按 ID 排序并返回 OrderCollisionDetected 诊断
func SortSteps(steps []model.ApprovalStep) ([]model.ApprovalStep, []Diagnostic) {
	sorted := slices.Clone(steps)
	slices.SortStableFunc(sorted, func(a, b model.ApprovalStep) int {
		if c := cmp.Compare(a.Order, b.Order); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	var diags []Diagnostic
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Order == sorted[i-1].Order {
			diags = append(diags, Diagnostic{
				Kind:    KindOrderCollisionDetected,
				StepID:  sorted[i].ID,
				Message: fmt.Sprintf("steps %d and %d share order %d", sorted[i-1].ID, sorted[i].ID, sorted[i].Order),
			})
		}
	}
	return sorted, diags
}

// FindStep 返回链中指定 ID 的步骤下标，不存在返回 -1
func FindStep(steps []model.ApprovalStep, stepID uint) int {
	return slices.IndexFunc(steps, func(s model.ApprovalStep) bool {
		return s.ID == stepID
	})
}
