package model

import "time"

// ApprovalStep 审批链中的一个步骤（code approval）
// 同一模板内 Order（indexSTT）唯一，值越小越先审批
type ApprovalStep struct {
	ID               uint              `gorm:"primaryKey"`
	FormTemplateID   uint              `gorm:"not null;default:0;uniqueIndex:idx_step_template_order,priority:1"`
	GroupID          uint              `gorm:"index;not null;default:0"` // 关联 CodeApprovalGroup
	Status           string            `gorm:"size:20;not null;default:'active'"`
	Order            int               `gorm:"column:index_stt;not null;default:0;uniqueIndex:idx_step_template_order,priority:2"`
	CreatedAt        time.Time         `gorm:"autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime"`
	SpecificIncludes []SpecificInclude `gorm:"foreignKey:StepID;constraint:OnDelete:CASCADE;"`
	Excludes         []ExcludeEntry    `gorm:"foreignKey:StepID;constraint:OnDelete:CASCADE;"`
}

// TableName 指定表名
func (ApprovalStep) TableName() string {
	return "approval_steps"
}

// IsActive 步骤是否参与审批人解析
func (s *ApprovalStep) IsActive() bool {
	return s.Status == StatusActive
}
