package database

import (
	"github.com/glebarez/sqlite"
	"github.com/weibaohui/recruitflow/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch dbType {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		// 使用 github.com/glebarez/sqlite 驱动
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 同步所有表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.FormTemplate{}, &model.ApprovalStep{}, &model.SpecificInclude{}, &model.ExcludeEntry{}); err != nil {
		return err
	}
	return db.AutoMigrate(&model.CodeApprovalGroup{}, &model.GroupMember{}, &model.Employee{}, &model.ChainAuditLog{})
}
