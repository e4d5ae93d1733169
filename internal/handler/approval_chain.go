package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weibaohui/recruitflow/internal/service"
)

// ApprovalChainHandler 审批链 Handler
type ApprovalChainHandler struct {
	chainService service.ChainService
}

// NewApprovalChainHandler 创建 Handler
func NewApprovalChainHandler(chainService service.ChainService) *ApprovalChainHandler {
	return &ApprovalChainHandler{chainService: chainService}
}

// RegisterRoutes 注册路由，覆盖名单同时支持按下标和按工号操作
func (h *ApprovalChainHandler) RegisterRoutes(router *gin.RouterGroup) {
	steps := router.Group("/form-templates/:id/code-approval")
	{
		steps.GET("", h.ListSteps)
		steps.POST("", h.AddStep)
		steps.GET("/:stepId", h.GetStep)
		steps.PUT("/:stepId", h.UpdateStep)
		steps.GET("/:stepId/approvers", h.ResolveStep)

		steps.POST("/:stepId/specific-code-approve", h.AddInclude)
		steps.PUT("/:stepId/specific-code-approve/code/:code", h.UpdateIncludeByCode)
		steps.DELETE("/:stepId/specific-code-approve/code/:code", h.RemoveIncludeByCode)
		steps.PUT("/:stepId/specific-code-approve/:index", h.UpdateInclude)
		steps.DELETE("/:stepId/specific-code-approve/:index", h.RemoveInclude)

		steps.POST("/:stepId/exclude-code-approve", h.AddExclude)
		steps.DELETE("/:stepId/exclude-code-approve/code/:code", h.RemoveExcludeByCode)
		steps.PUT("/:stepId/exclude-code-approve/:index", h.UpdateExclude)
		steps.DELETE("/:stepId/exclude-code-approve/:index", h.RemoveExclude)
	}
}

// operatorContext 把请求头中的操作人带入 context
func operatorContext(c *gin.Context) context.Context {
	return service.WithOperator(c.Request.Context(), c.GetHeader(OperatorHeader))
}

// stepIDs 解析模板ID与步骤ID
func stepIDs(c *gin.Context) (uint, uint, bool) {
	templateID, ok := parseID(c, "id")
	if !ok {
		return 0, 0, false
	}
	stepID, ok := parseID(c, "stepId")
	if !ok {
		return 0, 0, false
	}
	return templateID, stepID, true
}

// ListSteps 获取审批链步骤
func (h *ApprovalChainHandler) ListSteps(c *gin.Context) {
	templateID, ok := parseID(c, "id")
	if !ok {
		return
	}
	steps, err := h.chainService.ListSteps(c.Request.Context(), templateID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, steps)
}

// GetStep 获取单个步骤
func (h *ApprovalChainHandler) GetStep(c *gin.Context) {
	templateID, stepID, ok := stepIDs(c)
	if !ok {
		return
	}
	step, err := h.chainService.GetStep(c.Request.Context(), templateID, stepID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, step)
}

// AddStep 新增步骤
func (h *ApprovalChainHandler) AddStep(c *gin.Context) {
	templateID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.AddStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	step, err := h.chainService.AddStep(operatorContext(c), templateID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, step)
}

// UpdateStep 局部更新步骤
func (h *ApprovalChainHandler) UpdateStep(c *gin.Context) {
	templateID, stepID, ok := stepIDs(c)
	if !ok {
		return
	}
	var req service.UpdateStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	step, err := h.chainService.UpdateStep(operatorContext(c), templateID, stepID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, step)
}

// ResolveStep 计算步骤的实际审批人
func (h *ApprovalChainHandler) ResolveStep(c *gin.Context) {
	templateID, stepID, ok := stepIDs(c)
	if !ok {
		return
	}
	res, err := h.chainService.ResolveStep(c.Request.Context(), templateID, stepID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, res)
}

// AddInclude 新增指定审批人
func (h *ApprovalChainHandler) AddInclude(c *gin.Context) {
	templateID, stepID, ok := stepIDs(c)
	if !ok {
		return
	}
	var req service.IncludeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	step, err := h.chainService.AddInclude(operatorContext(c), templateID, stepID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, step)
}

// UpdateInclude 按下标更新指定审批人
func (h *ApprovalChainHandler) UpdateInclude(c *gin.Context) {
	templateID, stepID, ok := stepIDs(c)
	if !ok {
		return
	}
	index, ok := parseIndex(c)
	if !ok {
		return
	}
	var req service.IncludePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	step, err := h.chainService.UpdateInclude(operatorContext(c), templateID, stepID, index, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, step)
}

// RemoveInclude 按下标删除指定审批人
func (h *ApprovalChainHandler) RemoveInclude(c *gin.Context) {
	templateID, stepID, ok := stepIDs(c)
	if !ok {
		return
	}
	index, ok := parseIndex(c)
	if !ok {
		return
	}
	step, err := h.chainService.RemoveInclude(operatorContext(c), templateID, stepID, index)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, step)
}

// UpdateIncludeByCode 按工号更新指定审批人
func (h *ApprovalChainHandler) UpdateIncludeByCode(c *gin.Context) {
	templateID, stepID, ok := stepIDs(c)
	if !ok {
		return
	}
	var req service.IncludePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	step, err := h.chainService.UpdateIncludeByCode(operatorContext(c), templateID, stepID, c.Param("code"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, step)
}

// RemoveIncludeByCode 按工号删除指定审批人
func (h *ApprovalChainHandler) RemoveIncludeByCode(c *gin.Context) {
	templateID, stepID, ok := stepIDs(c)
	if !ok {
		return
	}
	step, err := h.chainService.RemoveIncludeByCode(operatorContext(c), templateID, stepID, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, step)
}

// AddExclude 加入排除名单
func (h *ApprovalChainHandler) AddExclude(c *gin.Context) {
	templateID, stepID, ok := stepIDs(c)
	if !ok {
		return
	}
	var req service.ExcludeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	step, err := h.chainService.AddExclude(operatorContext(c), templateID, stepID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, step)
}

// UpdateExclude 按下标修改排除项
func (h *ApprovalChainHandler) UpdateExclude(c *gin.Context) {
	templateID, stepID, ok := stepIDs(c)
	if !ok {
		return
	}
	index, ok := parseIndex(c)
	if !ok {
		return
	}
	var req service.ExcludeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}
	step, err := h.chainService.UpdateExclude(operatorContext(c), templateID, stepID, index, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, step)
}

// RemoveExclude 按下标移出排除名单
func (h *ApprovalChainHandler) RemoveExclude(c *gin.Context) {
	templateID, stepID, ok := stepIDs(c)
	if !ok {
		return
	}
	index, ok := parseIndex(c)
	if !ok {
		return
	}
	step, err := h.chainService.RemoveExclude(operatorContext(c), templateID, stepID, index)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, step)
}

// RemoveExcludeByCode 按工号移出排除名单
func (h *ApprovalChainHandler) RemoveExcludeByCode(c *gin.Context) {
	templateID, stepID, ok := stepIDs(c)
	if !ok {
		return
	}
	step, err := h.chainService.RemoveExcludeByCode(operatorContext(c), templateID, stepID, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, step)
}
