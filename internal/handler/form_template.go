package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/weibaohui/recruitflow/internal/service"
)

// FormTemplateHandler 表单模板 Handler
type FormTemplateHandler struct {
	formService  service.FormTemplateService
	chainService service.ChainService
}

// NewFormTemplateHandler 创建 Handler
func NewFormTemplateHandler(formService service.FormTemplateService, chainService service.ChainService) *FormTemplateHandler {
	return &FormTemplateHandler{
		formService:  formService,
		chainService: chainService,
	}
}

// RegisterRoutes 注册路由
func (h *FormTemplateHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/form-templates", h.List)
	router.POST("/form-templates", h.Create)
	router.GET("/form-templates/:id", h.Get)
	router.PUT("/form-templates/:id", h.Update)
	router.PUT("/form-templates/:id/name", h.UpdateName)
	router.PATCH("/form-templates/:id/status", h.SetStatus)
	router.GET("/form-templates/:id/approvers", h.ResolveChain)
	router.GET("/form-templates/:id/audit-logs", h.ListAuditLogs)
}

// List 获取模板列表
func (h *FormTemplateHandler) List(c *gin.Context) {
	templates, err := h.formService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, templates)
}

// Get 获取模板详情（含审批链）
func (h *FormTemplateHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	template, err := h.formService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, template)
}

// Create 创建模板
func (h *FormTemplateHandler) Create(c *gin.Context) {
	var req service.CreateFormTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	template, err := h.formService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, template)
}

// Update 更新模板基础信息
func (h *FormTemplateHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateFormTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	template, err := h.formService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, template)
}

// UpdateName 修改双语名称
func (h *FormTemplateHandler) UpdateName(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateFormTemplateNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	template, err := h.formService.UpdateName(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, template)
}

// SetStatus 启用/停用模板
func (h *FormTemplateHandler) SetStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	template, err := h.formService.SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, template)
}

// ResolveChain 按审批顺序返回每个步骤的实际审批人
func (h *FormTemplateHandler) ResolveChain(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	result, err := h.chainService.ResolveChain(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

// ListAuditLogs 审批链变更日志
func (h *FormTemplateHandler) ListAuditLogs(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		respondBadRequest(c, "invalid limit")
		return
	}
	logs, err := h.chainService.ListAuditLogs(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, logs)
}
