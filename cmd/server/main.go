package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/weibaohui/recruitflow/config"
	"github.com/weibaohui/recruitflow/internal/eventbus"
	"github.com/weibaohui/recruitflow/internal/handler"
	"github.com/weibaohui/recruitflow/internal/pkg/chainlock"
	"github.com/weibaohui/recruitflow/internal/pkg/database"
	"github.com/weibaohui/recruitflow/internal/pkg/directory"
	"github.com/weibaohui/recruitflow/internal/repository"
	"github.com/weibaohui/recruitflow/internal/router"
	"github.com/weibaohui/recruitflow/internal/service"
	"github.com/weibaohui/recruitflow/internal/subscriber"
)

func main() {
	// 初始化 klog
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	klog.V(6).Info("服务启动中...")

	cfg := config.GetConfig()

	if cfg.Database.Type == "" || cfg.Database.Type == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	// 初始化数据库
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 初始化 Repository
	templateRepo := repository.NewTemplateRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// 审批组目录带缓存，成员变更时主动失效
	groupDirectory := directory.NewCached(groupRepo, cfg.Directory.CacheTTL)

	// 未配置 Redis 时只做进程内互斥
	redisClient := chainlock.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if redisClient != nil {
		defer redisClient.Close()
	}
	locker := chainlock.NewRedisLocker(redisClient, cfg.Chain.LockTTL)

	// 事件总线：审批链变更提交后写审计日志
	chainBus := eventbus.NewChainEventBus()
	subscriber.NewChainEventSubscriber(auditRepo).Register(chainBus)

	// 初始化 Service
	formService := service.NewFormTemplateService(templateRepo)
	chainService := service.NewChainService(templateRepo, groupDirectory, employeeRepo, auditRepo, locker, chainBus)
	groupService := service.NewGroupService(groupRepo, employeeRepo, groupDirectory)

	// 初始化 Handler
	formHandler := handler.NewFormTemplateHandler(formService, chainService)
	chainHandler := handler.NewApprovalChainHandler(chainService)
	groupHandler := handler.NewCodeApprovalGroupHandler(groupService)

	// 设置路由
	r := router.Setup(cfg, formHandler, chainHandler, groupHandler)

	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
