package model

import "time"

// SpecificInclude 指定审批人（specificCodeApprove），不论是否属于审批组都会加入
type SpecificInclude struct {
	ID            uint      `gorm:"primaryKey"`
	StepID        uint      `gorm:"not null;default:0;uniqueIndex:idx_include_step_code,priority:1"`
	EmployeeCode  string    `gorm:"size:50;not null;default:'';uniqueIndex:idx_include_step_code,priority:2"`
	EmployeeName  string    `gorm:"size:100;not null;default:''"`
	EmployeeEmail string    `gorm:"size:255;not null;default:''"`
	Position      int       `gorm:"not null;default:0"` // 列表内顺序
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (SpecificInclude) TableName() string {
	return "step_specific_includes"
}

// ExcludeEntry 排除审批人（excludeCodeApprove），优先级高于审批组和指定审批人
type ExcludeEntry struct {
	ID           uint      `gorm:"primaryKey"`
	StepID       uint      `gorm:"not null;default:0;uniqueIndex:idx_exclude_step_code,priority:1"`
	EmployeeCode string    `gorm:"size:50;not null;default:'';uniqueIndex:idx_exclude_step_code,priority:2"`
	Position     int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (ExcludeEntry) TableName() string {
	return "step_excludes"
}
