package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/weibaohui/recruitflow/internal/domain/approval"
	"github.com/weibaohui/recruitflow/internal/service"
	"k8s.io/klog/v2"
)

// OperatorHeader 操作人工号，写入审计日志
const OperatorHeader = "X-Employee-Code"

// 所有接口统一返回 {"kind": Ok|ValidationError|NotFound|Error, "data"|"error", "reason"}
func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"kind": approval.ResultOk, "data": data})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"kind":   approval.ResultValidationError,
		"reason": "InvalidInput",
		"error":  message,
	})
}

func respondError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidInput) {
		respondBadRequest(c, err.Error())
		return
	}
	if errors.Is(err, service.ErrGroupCodeExists) {
		c.JSON(http.StatusConflict, gin.H{
			"kind":   approval.ResultValidationError,
			"reason": "DuplicateCode",
			"error":  err.Error(),
		})
		return
	}

	kind, ok := approval.KindOf(err)
	if !ok {
		klog.Errorf("请求处理失败: %s %s, error=%v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"kind": approval.ResultError, "error": err.Error()})
		return
	}
	c.JSON(statusOf(kind), gin.H{
		"kind":   approval.ResultKindOf(err),
		"reason": kind,
		"error":  err.Error(),
	})
}

func statusOf(kind approval.ErrorKind) int {
	switch kind {
	case approval.KindNotFound:
		return http.StatusNotFound
	case approval.KindDuplicateOrder, approval.KindDuplicateOverrideEntry:
		return http.StatusConflict
	case approval.KindUnknownGroup, approval.KindIndexOutOfRange:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func parseIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondBadRequest(c, "invalid index")
		return 0, false
	}
	return index, true
}
