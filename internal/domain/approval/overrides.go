package approval

import (
	"slices"

	"github.com/weibaohui/recruitflow/internal/model"
)

// IncludePatch 指定审批人的局部更新，nil 字段保持不变
type IncludePatch struct {
	EmployeeCode  *string
	EmployeeName  *string
	EmployeeEmail *string
}

// UpsertInclude 按工号新增或更新指定审批人，返回是否为新增
func UpsertInclude(step *model.ApprovalStep, code, name, email string) bool {
	code = NormalizeCode(code)
	if i := IncludeIndexOf(step, code); i >= 0 {
		step.SpecificIncludes[i].EmployeeName = name
		step.SpecificIncludes[i].EmployeeEmail = email
		return false
	}
	step.SpecificIncludes = append(step.SpecificIncludes, model.SpecificInclude{
		StepID:        step.ID,
		EmployeeCode:  code,
		EmployeeName:  name,
		EmployeeEmail: email,
	})
	renumberIncludes(step)
	return true
}

// UpdateIncludeAt 按下标更新指定审批人
func UpdateIncludeAt(step *model.ApprovalStep, index int, patch IncludePatch) error {
	if index < 0 || index >= len(step.SpecificIncludes) {
		return NewError(KindIndexOutOfRange, "specific include index %d out of range [0,%d)", index, len(step.SpecificIncludes))
	}
	applyIncludePatch(&step.SpecificIncludes[index], patch)
	return nil
}

// RemoveIncludeAt 按下标删除指定审批人
func RemoveIncludeAt(step *model.ApprovalStep, index int) (model.SpecificInclude, error) {
	if index < 0 || index >= len(step.SpecificIncludes) {
		return model.SpecificInclude{}, NewError(KindIndexOutOfRange, "specific include index %d out of range [0,%d)", index, len(step.SpecificIncludes))
	}
	removed := step.SpecificIncludes[index]
	step.SpecificIncludes = slices.Delete(step.SpecificIncludes, index, index+1)
	renumberIncludes(step)
	return removed, nil
}

// IncludeIndexOf 返回工号在指定审批人列表中的下标，不存在返回 -1
func IncludeIndexOf(step *model.ApprovalStep, code string) int {
	code = NormalizeCode(code)
	return slices.IndexFunc(step.SpecificIncludes, func(inc model.SpecificInclude) bool {
		return NormalizeCode(inc.EmployeeCode) == code
	})
}

// UpsertExclude 按工号新增排除项，已存在时不重复添加，返回是否为新增
func UpsertExclude(step *model.ApprovalStep, code string) bool {
	code = NormalizeCode(code)
	if ExcludeIndexOf(step, code) >= 0 {
		return false
	}
	step.Excludes = append(step.Excludes, model.ExcludeEntry{
		StepID:       step.ID,
		EmployeeCode: code,
	})
	renumberExcludes(step)
	return true
}

// UpdateExcludeAt 按下标修改排除项的工号
func UpdateExcludeAt(step *model.ApprovalStep, index int, code string) error {
	if index < 0 || index >= len(step.Excludes) {
		return NewError(KindIndexOutOfRange, "exclude index %d out of range [0,%d)", index, len(step.Excludes))
	}
	step.Excludes[index].EmployeeCode = NormalizeCode(code)
	return nil
}

// RemoveExcludeAt 按下标删除排除项
func RemoveExcludeAt(step *model.ApprovalStep, index int) (model.ExcludeEntry, error) {
	if index < 0 || index >= len(step.Excludes) {
		return model.ExcludeEntry{}, NewError(KindIndexOutOfRange, "exclude index %d out of range [0,%d)", index, len(step.Excludes))
	}
	removed := step.Excludes[index]
	step.Excludes = slices.Delete(step.Excludes, index, index+1)
	renumberExcludes(step)
	return removed, nil
}

// ExcludeIndexOf 返回工号在排除名单中的下标，不存在返回 -1
func ExcludeIndexOf(step *model.ApprovalStep, code string) int {
	code = NormalizeCode(code)
	return slices.IndexFunc(step.Excludes, func(ex model.ExcludeEntry) bool {
		return NormalizeCode(ex.EmployeeCode) == code
	})
}

func applyIncludePatch(inc *model.SpecificInclude, patch IncludePatch) {
	if patch.EmployeeCode != nil {
		inc.EmployeeCode = NormalizeCode(*patch.EmployeeCode)
	}
	if patch.EmployeeName != nil {
		inc.EmployeeName = *patch.EmployeeName
	}
	if patch.EmployeeEmail != nil {
		inc.EmployeeEmail = *patch.EmployeeEmail
	}
}

func renumberIncludes(step *model.ApprovalStep) {
	for i := range step.SpecificIncludes {
		step.SpecificIncludes[i].Position = i
	}
}

func renumberExcludes(step *model.ApprovalStep) {
	for i := range step.Excludes {
		step.Excludes[i].Position = i
	}
}
