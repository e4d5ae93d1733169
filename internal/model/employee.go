package model

import "time"

// Employee 员工身份信息，用于按工号补全姓名与邮箱
type Employee struct {
	ID        uint      `gorm:"primaryKey"`
	Code      string    `gorm:"size:50;not null;default:'';uniqueIndex"`
	Name      string    `gorm:"size:100;not null;default:''"`
	Email     string    `gorm:"size:255;not null;default:''"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Employee) TableName() string {
	return "employees"
}
