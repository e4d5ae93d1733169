package approval

import (
	"fmt"
	"strings"

	"github.com/weibaohui/recruitflow/internal/model"
)

// ApproverSource 审批人来源
type ApproverSource string

const (
	SourceSpecific ApproverSource = "specific"
	SourceGroup    ApproverSource = "group"
)

// NominalMember 审批组的名义成员，姓名与邮箱可为空
type NominalMember struct {
	EmployeeCode  string
	EmployeeName  string
	EmployeeEmail string
}

// Approver 解析后的实际审批人
type Approver struct {
	EmployeeCode  string         `json:"employee_code"`
	EmployeeName  string         `json:"employee_name"`
	EmployeeEmail string         `json:"employee_email"`
	Source        ApproverSource `json:"source"`
}

// Resolution 单个步骤的解析结果
type Resolution struct {
	StepID      uint         `json:"step_id"`
	GroupID     uint         `json:"group_id"`
	Order       int          `json:"order"`
	Approvers   []Approver   `json:"approvers"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Resolve 计算步骤的实际审批人：(指定审批人 ∪ 名义成员) \ 排除名单
//
// 排除名单无条件优先。结果先按指定审批人的列表顺序，再按名义成员的输入顺序排列，
// 同一工号只保留首次出现的位置。指定审批人中重复出现的工号以最后一次的姓名/邮箱为准，
// 并产生 DuplicateOverrideEntry 诊断。步骤未启用时返回空结果和 InactiveStepWarning。
func Resolve(step *model.ApprovalStep, nominal []NominalMember) Resolution {
	res := Resolution{
		StepID:    step.ID,
		GroupID:   step.GroupID,
		Order:     step.Order,
		Approvers: []Approver{},
	}
	if !step.IsActive() {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Kind:    KindInactiveStepWarning,
			StepID:  step.ID,
			Message: fmt.Sprintf("step %d is %s", step.ID, step.Status),
		})
		return res
	}

	excluded := make(map[string]struct{}, len(step.Excludes))
	for _, ex := range step.Excludes {
		code := NormalizeCode(ex.EmployeeCode)
		if code == "" {
			continue
		}
		if _, dup := excluded[code]; dup {
			res.Diagnostics = append(res.Diagnostics, duplicateEntry(step.ID, code, "exclude"))
		}
		excluded[code] = struct{}{}
	}

	positions := make(map[string]int)
	candidates := make([]Approver, 0, len(step.SpecificIncludes)+len(nominal))
	for _, inc := range step.SpecificIncludes {
		code := NormalizeCode(inc.EmployeeCode)
		if code == "" {
			continue
		}
		if pos, seen := positions[code]; seen {
			res.Diagnostics = append(res.Diagnostics, duplicateEntry(step.ID, code, "specific include"))
			candidates[pos].EmployeeName = inc.EmployeeName
			candidates[pos].EmployeeEmail = inc.EmployeeEmail
			continue
		}
		positions[code] = len(candidates)
		candidates = append(candidates, Approver{
			EmployeeCode:  code,
			EmployeeName:  inc.EmployeeName,
			EmployeeEmail: inc.EmployeeEmail,
			Source:        SourceSpecific,
		})
	}

	for _, m := range nominal {
		code := NormalizeCode(m.EmployeeCode)
		if code == "" {
			continue
		}
		if pos, seen := positions[code]; seen {
			// 指定审批人缺失的资料用名义成员补齐
			if candidates[pos].EmployeeName == "" {
				candidates[pos].EmployeeName = m.EmployeeName
			}
			if candidates[pos].EmployeeEmail == "" {
				candidates[pos].EmployeeEmail = m.EmployeeEmail
			}
			continue
		}
		positions[code] = len(candidates)
		candidates = append(candidates, Approver{
			EmployeeCode:  code,
			EmployeeName:  m.EmployeeName,
			EmployeeEmail: m.EmployeeEmail,
			Source:        SourceGroup,
		})
	}

	for _, a := range candidates {
		if _, ok := excluded[a.EmployeeCode]; ok {
			continue
		}
		res.Approvers = append(res.Approvers, a)
	}
	return res
}

// NormalizeCode 规范化工号
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

func duplicateEntry(stepID uint, code, list string) Diagnostic {
	return Diagnostic{
		Kind:         KindDuplicateOverrideEntry,
		StepID:       stepID,
		EmployeeCode: code,
		Message:      fmt.Sprintf("employee %s appears more than once in %s list", code, list),
	}
}
