package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/weibaohui/recruitflow/internal/domain/approval"
	"github.com/weibaohui/recruitflow/internal/model"
	"github.com/weibaohui/recruitflow/internal/repository"
	"gorm.io/datatypes"
	"k8s.io/klog/v2"
)

var (
	ErrFormTemplateNotFound = approval.NewError(approval.KindNotFound, "form template not found")
	ErrInvalidInput         = errors.New("invalid input")
)

// FormTemplateDTO 表单模板数据传输对象
type FormTemplateDTO struct {
	ID            uint                `json:"id"`
	NameForm      model.LocalizedName `json:"name_form"`
	TypeForm      string              `json:"type_form"`
	Version       string              `json:"version"`
	EffectiveDate string              `json:"effective_date,omitempty"`
	Status        string              `json:"status"`
	CreatedAt     string              `json:"created_at"`
	UpdatedAt     string              `json:"updated_at"`
}

// FormTemplateDetailDTO 模板详情（含按顺序排列的审批链）
type FormTemplateDetailDTO struct {
	FormTemplateDTO
	CodeApproval []StepDTO             `json:"code_approval"`
	Diagnostics  []approval.Diagnostic `json:"diagnostics,omitempty"`
}

// CreateFormTemplateRequest 创建模板请求
type CreateFormTemplateRequest struct {
	NameVI        string     `json:"name_vi" binding:"required,min=1,max=200"`
	NameEN        string     `json:"name_en" binding:"required,min=1,max=200"`
	TypeForm      string     `json:"type_form" binding:"required,min=1,max=50"`
	Version       string     `json:"version" binding:"max=20"`
	EffectiveDate *time.Time `json:"effective_date"`
}

// UpdateFormTemplateNameRequest 修改双语名称
type UpdateFormTemplateNameRequest struct {
	NameVI string `json:"name_vi" binding:"required,min=1,max=200"`
	NameEN string `json:"name_en" binding:"required,min=1,max=200"`
}

// UpdateFormTemplateRequest 修改模板基础信息
type UpdateFormTemplateRequest struct {
	TypeForm      string     `json:"type_form" binding:"required,min=1,max=50"`
	Version       string     `json:"version" binding:"required,max=20"`
	EffectiveDate *time.Time `json:"effective_date"`
}

// UpdateStatusRequest 启用/停用
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

// FormTemplateService 表单模板服务接口
type FormTemplateService interface {
	List(ctx context.Context) ([]FormTemplateDTO, error)
	Get(ctx context.Context, id uint) (*FormTemplateDetailDTO, error)
	Create(ctx context.Context, req CreateFormTemplateRequest) (*FormTemplateDTO, error)
	UpdateName(ctx context.Context, id uint, req UpdateFormTemplateNameRequest) (*FormTemplateDTO, error)
	Update(ctx context.Context, id uint, req UpdateFormTemplateRequest) (*FormTemplateDTO, error)
	SetStatus(ctx context.Context, id uint, status string) (*FormTemplateDTO, error)
}

// formTemplateService 实现
type formTemplateService struct {
	repo repository.TemplateRepository
}

// NewFormTemplateService 创建服务实例
func NewFormTemplateService(repo repository.TemplateRepository) FormTemplateService {
	return &formTemplateService{repo: repo}
}

// List 获取模板列表
func (s *formTemplateService) List(ctx context.Context) ([]FormTemplateDTO, error) {
	templates, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list form templates: %w", err)
	}

	result := make([]FormTemplateDTO, len(templates))
	for i := range templates {
		result[i] = *toFormTemplateDTO(&templates[i])
	}
	return result, nil
}

// Get 获取模板详情
func (s *formTemplateService) Get(ctx context.Context, id uint) (*FormTemplateDetailDTO, error) {
	template, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFormTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get form template: %w", err)
	}

	steps, diags := approval.SortSteps(template.Steps)
	reportDiagnostics(template.ID, diags)

	return &FormTemplateDetailDTO{
		FormTemplateDTO: *toFormTemplateDTO(template),
		CodeApproval:    toStepDTOs(steps),
		Diagnostics:     diags,
	}, nil
}

// Create 创建模板，新模板默认启用且审批链为空
func (s *formTemplateService) Create(ctx context.Context, req CreateFormTemplateRequest) (*FormTemplateDTO, error) {
	name, err := normalizeName(req.NameVI, req.NameEN)
	if err != nil {
		return nil, err
	}
	typeForm := strings.TrimSpace(req.TypeForm)
	if typeForm == "" {
		return nil, fmt.Errorf("%w: type_form is required", ErrInvalidInput)
	}
	version := strings.TrimSpace(req.Version)
	if version == "" {
		version = "1.0.0"
	}

	template := &model.FormTemplate{
		NameForm:      datatypes.NewJSONType(name),
		TypeForm:      typeForm,
		Version:       version,
		EffectiveDate: req.EffectiveDate,
		Status:        model.StatusActive,
	}
	if err := s.repo.Create(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to create form template: %w", err)
	}

	klog.V(6).Infof("创建表单模板: id=%d, type=%s", template.ID, template.TypeForm)
	return toFormTemplateDTO(template), nil
}

// UpdateName 修改双语名称
func (s *formTemplateService) UpdateName(ctx context.Context, id uint, req UpdateFormTemplateNameRequest) (*FormTemplateDTO, error) {
	name, err := normalizeName(req.NameVI, req.NameEN)
	if err != nil {
		return nil, err
	}
	return s.updateFields(ctx, id, map[string]any{"name_form": datatypes.NewJSONType(name)})
}

// Update 修改模板类型、版本与生效日期
func (s *formTemplateService) Update(ctx context.Context, id uint, req UpdateFormTemplateRequest) (*FormTemplateDTO, error) {
	typeForm := strings.TrimSpace(req.TypeForm)
	version := strings.TrimSpace(req.Version)
	if typeForm == "" || version == "" {
		return nil, fmt.Errorf("%w: type_form and version are required", ErrInvalidInput)
	}
	return s.updateFields(ctx, id, map[string]any{
		"type_form":      typeForm,
		"version":        version,
		"effective_date": req.EffectiveDate,
	})
}

// SetStatus 启用或停用模板，模板不做物理删除
func (s *formTemplateService) SetStatus(ctx context.Context, id uint, status string) (*FormTemplateDTO, error) {
	if status != model.StatusActive && status != model.StatusInactive {
		return nil, fmt.Errorf("%w: status must be active or inactive", ErrInvalidInput)
	}
	return s.updateFields(ctx, id, map[string]any{"status": status})
}

func (s *formTemplateService) updateFields(ctx context.Context, id uint, fields map[string]any) (*FormTemplateDTO, error) {
	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFormTemplateNotFound
		}
		return nil, fmt.Errorf("failed to update form template: %w", err)
	}

	template, err := s.repo.GetBasic(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFormTemplateNotFound
		}
		return nil, fmt.Errorf("failed to get form template: %w", err)
	}
	return toFormTemplateDTO(template), nil
}

func normalizeName(vi, en string) (model.LocalizedName, error) {
	name := model.LocalizedName{VI: strings.TrimSpace(vi), EN: strings.TrimSpace(en)}
	if name.VI == "" || name.EN == "" {
		return name, fmt.Errorf("%w: both vi and en names are required", ErrInvalidInput)
	}
	return name, nil
}

// toFormTemplateDTO 转换为 DTO
func toFormTemplateDTO(t *model.FormTemplate) *FormTemplateDTO {
	dto := &FormTemplateDTO{
		ID:        t.ID,
		NameForm:  t.NameForm.Data(),
		TypeForm:  t.TypeForm,
		Version:   t.Version,
		Status:    t.Status,
		CreatedAt: t.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt: t.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
	if t.EffectiveDate != nil {
		dto.EffectiveDate = t.EffectiveDate.Format("2006-01-02")
	}
	return dto
}
