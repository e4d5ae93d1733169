package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weibaohui/recruitflow/internal/service"
)

// CodeApprovalGroupHandler 审批组与员工 Handler
type CodeApprovalGroupHandler struct {
	groupService service.GroupService
}

// NewCodeApprovalGroupHandler 创建 Handler
func NewCodeApprovalGroupHandler(groupService service.GroupService) *CodeApprovalGroupHandler {
	return &CodeApprovalGroupHandler{groupService: groupService}
}

// RegisterRoutes 注册路由
func (h *CodeApprovalGroupHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/code-approvals", h.List)
	router.POST("/code-approvals", h.Create)
	router.PUT("/code-approvals/:id", h.Update)
	router.GET("/code-approvals/:id/members", h.ListMembers)
	router.PUT("/code-approvals/:id/members", h.SetMembers)
	router.GET("/employees/:code", h.GetEmployee)
	router.PUT("/employees/:code", h.UpsertEmployee)
}

// List 获取审批组列表
func (h *CodeApprovalGroupHandler) List(c *gin.Context) {
	groups, err := h.groupService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, groups)
}

// Create 创建审批组
func (h *CodeApprovalGroupHandler) Create(c *gin.Context) {
	var req service.GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	group, err := h.groupService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, group)
}

// Update 修改审批组
func (h *CodeApprovalGroupHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	group, err := h.groupService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, group)
}

// ListMembers 获取审批组成员
func (h *CodeApprovalGroupHandler) ListMembers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	members, err := h.groupService.ListMembers(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, members)
}

// SetMembers 替换审批组成员
func (h *CodeApprovalGroupHandler) SetMembers(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.GroupMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	members, err := h.groupService.SetMembers(c.Request.Context(), id, req.EmployeeCodes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, members)
}

// GetEmployee 按工号获取员工
func (h *CodeApprovalGroupHandler) GetEmployee(c *gin.Context) {
	employee, err := h.groupService.GetEmployee(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, employee)
}

// UpsertEmployee 新增或更新员工
func (h *CodeApprovalGroupHandler) UpsertEmployee(c *gin.Context) {
	var req service.EmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	employee, err := h.groupService.UpsertEmployee(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, employee)
}
