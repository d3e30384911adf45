package main

import (
	"context"
	"log"

	"github.com/blues/cfp/internal/catalog"
	"github.com/blues/cfp/internal/clock"
	"github.com/blues/cfp/internal/config"
	"github.com/blues/cfp/internal/event"
	"github.com/blues/cfp/internal/gateway"
	"github.com/blues/cfp/internal/logger"
	"github.com/blues/cfp/internal/logic"
	"github.com/blues/cfp/internal/repository"
	"github.com/blues/cfp/internal/router"
	"github.com/blues/cfp/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	logger.Setup(cfg.Log)

	// 初始化数据库
	db, err := repository.Init(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 仓储层
	projectRepo := repository.NewProjectRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	backingRepo := repository.NewBackingRepository(db)

	// 事件总线
	bus := event.NewBus()
	bus.Subscribe(event.TypeProjectSettled, func(ctx context.Context, ev event.Event) {
		logger.Info("Project %d settled with outcome %s", ev.ProjectId, ev.Outcome)
	})
	bus.Subscribe(event.TypeRefundFailed, func(ctx context.Context, ev event.Event) {
		logger.Warn("Refund failed for backing %d (project %d), amount %d", ev.BackingId, ev.ProjectId, ev.Amount)
	})

	// 外部服务客户端
	paymentGateway := gateway.Init(cfg.Gateway)
	productCatalog := catalog.Init(cfg.Catalog)

	// 业务逻辑层
	clk := clock.NewSystem()
	projectLogic := logic.NewProjectLogic(projectRepo, clk, bus)
	rewardLogic := logic.NewRewardLogic(rewardRepo, projectRepo)
	backingLogic := logic.NewBackingLogic(backingRepo, projectRepo, rewardLogic, paymentGateway, clk, bus)
	settlementLogic, err := logic.NewSettlementLogic(projectRepo, backingRepo, rewardLogic,
		paymentGateway, productCatalog, clk, bus, cfg.Task.RefundWorkers)
	if err != nil {
		log.Fatalf("Failed to initialize settlement logic: %v", err)
	}
	defer settlementLogic.Release()
	dashboardLogic := logic.NewDashboardLogic(projectRepo, rewardRepo, backingRepo, clk)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(projectLogic, rewardLogic, backingLogic, settlementLogic, dashboardLogic)

	// 启动定时任务
	manager := task.Start(cfg, projectRepo, settlementLogic, backingRepo)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
