package task

import (
	"github.com/blues/cfp/internal/config"
	"github.com/blues/cfp/internal/logger"
	"github.com/blues/cfp/internal/logic"
	"github.com/go-co-op/gocron/v2"
)

// Job 定时任务接口
type Job interface {
	GetName() string
	GetSchedule() gocron.JobDefinition
	Execute()
}

// Manager 任务管理器
type Manager struct {
	scheduler gocron.Scheduler
	config    *config.Config
}

// NewManager 创建新的任务管理器
func NewManager(cfg *config.Config) *Manager {
	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal("Failed to create scheduler: %v", err)
	}

	return &Manager{
		scheduler: s,
		config:    cfg,
	}
}

// Start 启动任务管理器
func Start(cfg *config.Config, projectRepo logic.ProjectRepository, settlementLogic *logic.SettlementLogic, backingRepo logic.BackingRepository) *Manager {
	manager := NewManager(cfg)

	// 注册所有任务
	manager.Register(NewFundingEndJob(cfg, projectRepo, settlementLogic))
	manager.Register(NewRefundRetryJob(cfg, settlementLogic))
	manager.Register(NewLedgerAuditJob(cfg, projectRepo, backingRepo))

	// 启动调度器
	manager.scheduler.Start()

	logger.Info("Task manager started successfully")
	return manager
}

// Register 注册任务，单例模式防止同一任务重叠执行
func (m *Manager) Register(job Job) {
	_, err := m.scheduler.NewJob(
		job.GetSchedule(),
		gocron.NewTask(job.Execute),
		gocron.WithName(job.GetName()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("Failed to register job %s: %v", job.GetName(), err)
	}
}

// Stop 停止任务管理器
func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logger.Error("Failed to shutdown scheduler: %v", err)
	}
	logger.Info("Task manager stopped")
}
