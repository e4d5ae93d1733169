package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/weibaohui/recruitflow/config"
	"github.com/weibaohui/recruitflow/internal/handler"
)

func Setup(
	cfg *config.Config,
	formHandler *handler.FormTemplateHandler,
	chainHandler *handler.ApprovalChainHandler,
	groupHandler *handler.CodeApprovalGroupHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", handler.OperatorHeader, RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: true,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(RequestID())
	r.Use(Metrics())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(RateLimit(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst))
	{
		// 表单模板
		formHandler.RegisterRoutes(api)
		// 审批链步骤与覆盖名单
		chainHandler.RegisterRoutes(api)
		// 审批组与员工
		groupHandler.RegisterRoutes(api)
	}

	return r
}
