package repository

import (
	"context"

	"github.com/weibaohui/recruitflow/internal/model"
	"gorm.io/gorm"
)

type groupRepository struct {
	db *gorm.DB
}

// NewGroupRepository 创建审批组 Repository，同时作为 GroupDirectory 使用
func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &groupRepository{db: db}
}

// List 按展示顺序列出审批组
func (r *groupRepository) List(ctx context.Context) ([]model.CodeApprovalGroup, error) {
	var groups []model.CodeApprovalGroup
	err := r.db.WithContext(ctx).Order("sort_index ASC, id ASC").Find(&groups).Error
	return groups, err
}

// LookupGroup 根据ID获取审批组
func (r *groupRepository) LookupGroup(ctx context.Context, groupID uint) (*model.CodeApprovalGroup, error) {
	var group model.CodeApprovalGroup
	if err := findOne(r.db.WithContext(ctx).Where("id = ?", groupID), &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// GetByCode 根据编码获取审批组
func (r *groupRepository) GetByCode(ctx context.Context, code string) (*model.CodeApprovalGroup, error) {
	var group model.CodeApprovalGroup
	if err := findOne(r.db.WithContext(ctx).Where("code = ?", code), &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) Create(ctx context.Context, group *model.CodeApprovalGroup) error {
	return translateError(r.db.WithContext(ctx).Create(group).Error)
}

func (r *groupRepository) Update(ctx context.Context, group *model.CodeApprovalGroup) error {
	return translateError(r.db.WithContext(ctx).Save(group).Error)
}

// ListMembers 获取审批组名义成员工号，按工号排序
func (r *groupRepository) ListMembers(ctx context.Context, groupID uint) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&model.GroupMember{}).
		Where("group_id = ?", groupID).
		Order("employee_code ASC").
		Pluck("employee_code", &codes).Error
	return codes, err
}

// ReplaceMembers 整体替换审批组成员
func (r *groupRepository) ReplaceMembers(ctx context.Context, groupID uint, codes []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&model.GroupMember{}).Error; err != nil {
			return err
		}
		if len(codes) == 0 {
			return nil
		}
		rows := make([]model.GroupMember, 0, len(codes))
		for _, code := range codes {
			rows = append(rows, model.GroupMember{GroupID: groupID, EmployeeCode: code})
		}
		return translateError(tx.Create(&rows).Error)
	})
}
