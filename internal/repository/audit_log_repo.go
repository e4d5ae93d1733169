package repository

import (
	"context"

	"github.com/weibaohui/recruitflow/internal/model"
	"gorm.io/gorm"
)

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审批链变更日志 Repository
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, log *model.ChainAuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListByTemplate 按时间倒序获取模板的变更日志
func (r *auditLogRepository) ListByTemplate(ctx context.Context, templateID uint, limit int) ([]model.ChainAuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []model.ChainAuditLog
	err := r.db.WithContext(ctx).
		Where("form_template_id = ?", templateID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
