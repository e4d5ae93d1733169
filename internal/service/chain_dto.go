package service

import (
	"github.com/weibaohui/recruitflow/internal/domain/approval"
	"github.com/weibaohui/recruitflow/internal/model"
)

// StepDTO 审批步骤（code approval）
type StepDTO struct {
	ID                  uint         `json:"id"`
	FormTemplateID      uint         `json:"form_template_id"`
	CodeApprovalID      uint         `json:"code_approval_id"`
	Status              string       `json:"status"`
	IndexSTT            int          `json:"index_stt"`
	SpecificCodeApprove []IncludeDTO `json:"specific_code_approve"`
	ExcludeCodeApprove  []ExcludeDTO `json:"exclude_code_approve"`
}

// IncludeDTO 指定审批人，Index 为列表下标，可用于按下标修改
type IncludeDTO struct {
	Index         int    `json:"index"`
	EmployeeCode  string `json:"employee_code"`
	EmployeeName  string `json:"employee_name"`
	EmployeeEmail string `json:"employee_email"`
}

// ExcludeDTO 排除名单项
type ExcludeDTO struct {
	Index        int    `json:"index"`
	EmployeeCode string `json:"employee_code"`
}

// StepListDTO 审批链步骤列表与读取诊断
type StepListDTO struct {
	Steps       []StepDTO             `json:"steps"`
	Diagnostics []approval.Diagnostic `json:"diagnostics,omitempty"`
}

// ChainResolutionDTO 整条审批链按顺序解析的结果
type ChainResolutionDTO struct {
	FormTemplateID uint                  `json:"form_template_id"`
	Steps          []approval.Resolution `json:"steps"`
	Diagnostics    []approval.Diagnostic `json:"diagnostics,omitempty"`
}

// AuditLogDTO 审批链变更日志
type AuditLogDTO struct {
	ID        uint   `json:"id"`
	StepID    uint   `json:"step_id"`
	Action    string `json:"action"`
	Detail    string `json:"detail"`
	Operator  string `json:"operator"`
	CreatedAt string `json:"created_at"`
}

// AddStepRequest 新增审批步骤
type AddStepRequest struct {
	CodeApprovalID uint   `json:"code_approval_id" binding:"required"`
	IndexSTT       *int   `json:"index_stt" binding:"required"`
	Status         string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// UpdateStepRequest 局部更新审批步骤，只写入非空字段
type UpdateStepRequest struct {
	CodeApprovalID *uint   `json:"code_approval_id"`
	IndexSTT       *int    `json:"index_stt"`
	Status         *string `json:"status" binding:"omitempty,oneof=active inactive"`
}

// IncludeRequest 新增指定审批人，工号已存在时更新姓名与邮箱
type IncludeRequest struct {
	EmployeeCode  string `json:"employee_code" binding:"required,max=50"`
	EmployeeName  string `json:"employee_name" binding:"max=100"`
	EmployeeEmail string `json:"employee_email" binding:"max=255"`
}

// IncludePatchRequest 局部更新指定审批人
type IncludePatchRequest struct {
	EmployeeCode  *string `json:"employee_code" binding:"omitempty,max=50"`
	EmployeeName  *string `json:"employee_name" binding:"omitempty,max=100"`
	EmployeeEmail *string `json:"employee_email" binding:"omitempty,max=255"`
}

// ExcludeRequest 排除名单项
type ExcludeRequest struct {
	EmployeeCode string `json:"employee_code" binding:"required,max=50"`
}

func toStepDTO(s *model.ApprovalStep) *StepDTO {
	dto := &StepDTO{
		ID:                  s.ID,
		FormTemplateID:      s.FormTemplateID,
		CodeApprovalID:      s.GroupID,
		Status:              s.Status,
		IndexSTT:            s.Order,
		SpecificCodeApprove: make([]IncludeDTO, len(s.SpecificIncludes)),
		ExcludeCodeApprove:  make([]ExcludeDTO, len(s.Excludes)),
	}
	for i, inc := range s.SpecificIncludes {
		dto.SpecificCodeApprove[i] = IncludeDTO{
			Index:         i,
			EmployeeCode:  inc.EmployeeCode,
			EmployeeName:  inc.EmployeeName,
			EmployeeEmail: inc.EmployeeEmail,
		}
	}
	for i, ex := range s.Excludes {
		dto.ExcludeCodeApprove[i] = ExcludeDTO{Index: i, EmployeeCode: ex.EmployeeCode}
	}
	return dto
}

func toStepDTOs(steps []model.ApprovalStep) []StepDTO {
	result := make([]StepDTO, len(steps))
	for i := range steps {
		result[i] = *toStepDTO(&steps[i])
	}
	return result
}

func toAuditLogDTO(l *model.ChainAuditLog) AuditLogDTO {
	return AuditLogDTO{
		ID:        l.ID,
		StepID:    l.StepID,
		Action:    l.Action,
		Detail:    l.Detail,
		Operator:  l.Operator,
		CreatedAt: l.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
