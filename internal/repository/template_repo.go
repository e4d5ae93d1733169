package repository

import (
	"context"
	"errors"

	"github.com/weibaohui/recruitflow/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// templateRepository 实现
type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository 创建 Repository 实例
func NewTemplateRepository(db *gorm.DB) TemplateRepository {
	return &templateRepository{db: db}
}

// List 获取所有模板列表（不含审批链）
func (r *templateRepository) List(ctx context.Context) ([]model.FormTemplate, error) {
	var templates []model.FormTemplate
	result := r.db.WithContext(ctx).Order("id ASC").Find(&templates)
	return templates, result.Error
}

// GetByID 根据ID获取模板详情（含审批步骤和覆盖名单）
func (r *templateRepository) GetByID(ctx context.Context, id uint) (*model.FormTemplate, error) {
	var template model.FormTemplate
	result := preloadChain(r.db.WithContext(ctx), "Steps.").
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("index_stt ASC, id ASC")
		}).
		First(&template, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &template, nil
}

// GetBasic 获取模板基础信息
func (r *templateRepository) GetBasic(ctx context.Context, id uint) (*model.FormTemplate, error) {
	return getTemplate(r.db.WithContext(ctx), id)
}

// Create 创建模板
func (r *templateRepository) Create(ctx context.Context, template *model.FormTemplate) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(template).Error
}

// UpdateFields 只更新指定字段
func (r *templateRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&model.FormTemplate{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSteps 获取模板的审批步骤（含覆盖名单），按 index_stt、id 排序
func (r *templateRepository) ListSteps(ctx context.Context, templateID uint) ([]model.ApprovalStep, error) {
	return listSteps(r.db.WithContext(ctx), templateID)
}

// Transaction 在事务内执行审批链变更
func (r *templateRepository) Transaction(ctx context.Context, fn func(store ChainStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&chainStore{tx: tx})
	})
}

// chainStore 事务内实现
type chainStore struct {
	tx *gorm.DB
}

func (s *chainStore) GetTemplate(id uint) (*model.FormTemplate, error) {
	return getTemplate(s.tx, id)
}

func (s *chainStore) ListSteps(templateID uint) ([]model.ApprovalStep, error) {
	return listSteps(s.tx, templateID)
}

func (s *chainStore) CreateStep(step *model.ApprovalStep) error {
	return translateError(s.tx.Omit(clause.Associations).Create(step).Error)
}

func (s *chainStore) UpdateStepFields(stepID uint, fields map[string]any) error {
	result := s.tx.Model(&model.ApprovalStep{}).Where("id = ?", stepID).Updates(fields)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceIncludes 用新的列表整体替换步骤的指定审批人
func (s *chainStore) ReplaceIncludes(stepID uint, includes []model.SpecificInclude) error {
	if err := s.tx.Where("step_id = ?", stepID).Delete(&model.SpecificInclude{}).Error; err != nil {
		return err
	}
	if len(includes) == 0 {
		return nil
	}
	rows := make([]model.SpecificInclude, len(includes))
	for i, inc := range includes {
		rows[i] = model.SpecificInclude{
			StepID:        stepID,
			EmployeeCode:  inc.EmployeeCode,
			EmployeeName:  inc.EmployeeName,
			EmployeeEmail: inc.EmployeeEmail,
			Position:      i,
		}
	}
	return translateError(s.tx.Create(&rows).Error)
}

// ReplaceExcludes 用新的列表整体替换步骤的排除名单
func (s *chainStore) ReplaceExcludes(stepID uint, excludes []model.ExcludeEntry) error {
	if err := s.tx.Where("step_id = ?", stepID).Delete(&model.ExcludeEntry{}).Error; err != nil {
		return err
	}
	if len(excludes) == 0 {
		return nil
	}
	rows := make([]model.ExcludeEntry, len(excludes))
	for i, ex := range excludes {
		rows[i] = model.ExcludeEntry{
			StepID:       stepID,
			EmployeeCode: ex.EmployeeCode,
			Position:     i,
		}
	}
	return translateError(s.tx.Create(&rows).Error)
}

func getTemplate(db *gorm.DB, id uint) (*model.FormTemplate, error) {
	var template model.FormTemplate
	if err := db.First(&template, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &template, nil
}

func listSteps(db *gorm.DB, templateID uint) ([]model.ApprovalStep, error) {
	var steps []model.ApprovalStep
	err := preloadChain(db, "").
		Where("form_template_id = ?", templateID).
		Order("index_stt ASC, id ASC").
		Find(&steps).Error
	return steps, err
}

func preloadChain(db *gorm.DB, prefix string) *gorm.DB {
	return db.
		Preload(prefix+"SpecificIncludes", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload(prefix+"Excludes", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		})
}
