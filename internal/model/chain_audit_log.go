package model

import "time"

// ChainAuditLog 审批链变更日志
type ChainAuditLog struct {
	ID             uint      `gorm:"primaryKey"`
	FormTemplateID uint      `gorm:"index;not null;default:0"`
	StepID         uint      `gorm:"index;not null;default:0"`
	Action         string    `gorm:"size:50;not null;default:''"` // StepAdded, IncludeUpserted ...
	Detail         string    `gorm:"size:1000"`
	Operator       string    `gorm:"size:50"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (ChainAuditLog) TableName() string {
	return "chain_audit_logs"
}
