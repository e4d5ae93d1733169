package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weibaohui/recruitflow/config"
	"github.com/weibaohui/recruitflow/internal/handler"
	"github.com/weibaohui/recruitflow/internal/service"
)

func newRouter(rps float64, burst int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Server.Mode = "debug"
	cfg.Server.RateLimit = config.RateLimitConfig{RPS: rps, Burst: burst}

	// 只验证路由层，服务为空实现
	var chain service.ChainService
	var forms service.FormTemplateService
	var groups service.GroupService
	return Setup(cfg,
		handler.NewFormTemplateHandler(forms, chain),
		handler.NewApprovalChainHandler(chain),
		handler.NewCodeApprovalGroupHandler(groups),
	)
}

func TestHealthzAndRequestID(t *testing.T) {
	r := newRouter(0, 0)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	r := newRouter(0, 0)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "recruitflow_api_requests_total"))
}

func TestRateLimitOnAPI(t *testing.T) {
	r := newRouter(0.001, 1)

	// 无效ID在进入服务前返回 400，只消耗令牌
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/form-templates/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/form-templates/abc", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RateLimited")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code, "健康检查不限流")
}
