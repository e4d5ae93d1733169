package model

import (
	"time"

	"gorm.io/datatypes"
)

// 表单模板与审批步骤共用的状态值
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// LocalizedName 双语名称（越南语/英语）
type LocalizedName struct {
	VI string `json:"vi"`
	EN string `json:"en"`
}

// FormTemplate 表单模板表，拥有一条有序的审批链
type FormTemplate struct {
	ID            uint                              `gorm:"primaryKey"`
	NameForm      datatypes.JSONType[LocalizedName] `gorm:"column:name_form"`
	TypeForm      string                            `gorm:"size:50;index;not null;default:''"` // 表单类型，如 recruitment
	Version       string                            `gorm:"size:20;not null;default:'1.0.0'"`
	EffectiveDate *time.Time                        `gorm:"column:effective_date"`
	Status        string                            `gorm:"size:20;not null;default:'active'"` // active, inactive
	CreatedAt     time.Time                         `gorm:"autoCreateTime"`
	UpdatedAt     time.Time                         `gorm:"autoUpdateTime"`
	Steps         []ApprovalStep                    `gorm:"foreignKey:FormTemplateID;constraint:OnDelete:CASCADE;"`
}

// TableName 指定表名
func (FormTemplate) TableName() string {
	return "form_templates"
}
