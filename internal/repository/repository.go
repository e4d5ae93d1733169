package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/weibaohui/recruitflow/internal/model"
	"gorm.io/gorm"
)

// ErrNotFound 记录不存在错误
var ErrNotFound = errors.New("record not found")

// ErrDuplicateKey 违反唯一约束
var ErrDuplicateKey = errors.New("duplicate key")

// TemplateRepository 表单模板及其审批链的持久化
type TemplateRepository interface {
	List(ctx context.Context) ([]model.FormTemplate, error)
	GetByID(ctx context.Context, id uint) (*model.FormTemplate, error)
	GetBasic(ctx context.Context, id uint) (*model.FormTemplate, error)
	Create(ctx context.Context, template *model.FormTemplate) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	ListSteps(ctx context.Context, templateID uint) ([]model.ApprovalStep, error)

	// Transaction 在单个事务内执行审批链变更，fn 返回错误时整体回滚
	Transaction(ctx context.Context, fn func(store ChainStore) error) error
}

// ChainStore 事务内的审批链读写
type ChainStore interface {
	GetTemplate(id uint) (*model.FormTemplate, error)
	ListSteps(templateID uint) ([]model.ApprovalStep, error)
	CreateStep(step *model.ApprovalStep) error
	UpdateStepFields(stepID uint, fields map[string]any) error
	ReplaceIncludes(stepID uint, includes []model.SpecificInclude) error
	ReplaceExcludes(stepID uint, excludes []model.ExcludeEntry) error
}

// GroupDirectory 审批组目录，提供审批组信息与名义成员
type GroupDirectory interface {
	LookupGroup(ctx context.Context, groupID uint) (*model.CodeApprovalGroup, error)
	ListMembers(ctx context.Context, groupID uint) ([]string, error)
}

// GroupRepository 审批组管理
type GroupRepository interface {
	GroupDirectory
	List(ctx context.Context) ([]model.CodeApprovalGroup, error)
	GetByCode(ctx context.Context, code string) (*model.CodeApprovalGroup, error)
	Create(ctx context.Context, group *model.CodeApprovalGroup) error
	Update(ctx context.Context, group *model.CodeApprovalGroup) error
	ReplaceMembers(ctx context.Context, groupID uint, codes []string) error
}

// IdentityLookup 按工号查询员工身份信息
type IdentityLookup interface {
	LookupEmployee(ctx context.Context, code string) (*model.Employee, error)
	LookupEmployees(ctx context.Context, codes []string) (map[string]model.Employee, error)
}

// EmployeeRepository 员工信息维护
type EmployeeRepository interface {
	IdentityLookup
	Upsert(ctx context.Context, employee *model.Employee) error
}

// AuditLogRepository 审批链变更日志
type AuditLogRepository interface {
	Create(ctx context.Context, log *model.ChainAuditLog) error
	ListByTemplate(ctx context.Context, templateID uint, limit int) ([]model.ChainAuditLog, error)
}

// isDuplicateKeyError 兼容 sqlite/mysql/postgres 的唯一约束冲突
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

func translateError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if isDuplicateKeyError(err) {
		return errors.Join(ErrDuplicateKey, err)
	}
	return err
}

// findOne 查询单条记录，未命中返回 ErrNotFound，不触发 gorm 的 record not found 日志
func findOne(query *gorm.DB, dest any) error {
	result := query.Limit(1).Find(dest)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
