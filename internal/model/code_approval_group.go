package model

import "time"

// CodeApprovalGroup 审批组，由后台维护，审批步骤只引用不拥有
type CodeApprovalGroup struct {
	ID        uint      `gorm:"primaryKey"`
	Label     string    `gorm:"size:100;not null;default:''"`
	Code      string    `gorm:"size:50;not null;default:'';uniqueIndex"`
	Status    string    `gorm:"size:20;not null;default:'active'"`
	Index     int       `gorm:"column:sort_index;not null;default:0"` // 展示顺序
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (CodeApprovalGroup) TableName() string {
	return "code_approval_groups"
}

// GroupMember 审批组成员（名义审批人）
type GroupMember struct {
	ID           uint      `gorm:"primaryKey"`
	GroupID      uint      `gorm:"not null;default:0;uniqueIndex:idx_group_member,priority:1"`
	EmployeeCode string    `gorm:"size:50;not null;default:'';uniqueIndex:idx_group_member,priority:2"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (GroupMember) TableName() string {
	return "code_approval_group_members"
}
