package repository

import (
	"context"

	"github.com/weibaohui/recruitflow/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type employeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository 创建员工 Repository，同时作为 IdentityLookup 使用
func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

// LookupEmployee 根据工号查询员工
func (r *employeeRepository) LookupEmployee(ctx context.Context, code string) (*model.Employee, error) {
	var employee model.Employee
	if err := findOne(r.db.WithContext(ctx).Where("code = ?", code), &employee); err != nil {
		return nil, err
	}
	return &employee, nil
}

// LookupEmployees 批量查询员工，未找到的工号不出现在结果中
func (r *employeeRepository) LookupEmployees(ctx context.Context, codes []string) (map[string]model.Employee, error) {
	result := make(map[string]model.Employee, len(codes))
	if len(codes) == 0 {
		return result, nil
	}
	var employees []model.Employee
	if err := r.db.WithContext(ctx).Where("code IN ?", codes).Find(&employees).Error; err != nil {
		return nil, err
	}
	for _, e := range employees {
		result[e.Code] = e
	}
	return result, nil
}

// Upsert 按工号新增或更新员工
func (r *employeeRepository) Upsert(ctx context.Context, employee *model.Employee) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "updated_at"}),
	}).Create(employee).Error
}
