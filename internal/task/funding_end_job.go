package task

import (
	"context"
	"time"

	"github.com/blues/cfp/internal/config"
	"github.com/blues/cfp/internal/logger"
	"github.com/blues/cfp/internal/logic"
	"github.com/go-co-op/gocron/v2"
)

// FundingEndJob 众筹结束扫描任务
// 找出已过结束时间仍在进行中的项目逐个结算；
// EndFunding本身幂等，两轮扫描重叠也只会结算一次
type FundingEndJob struct {
	config          *config.Config
	projectRepo     logic.ProjectRepository
	settlementLogic *logic.SettlementLogic
}

// NewFundingEndJob 创建众筹结束扫描任务
func NewFundingEndJob(cfg *config.Config, projectRepo logic.ProjectRepository, settlementLogic *logic.SettlementLogic) *FundingEndJob {
	return &FundingEndJob{
		config:          cfg,
		projectRepo:     projectRepo,
		settlementLogic: settlementLogic,
	}
}

// GetName 获取任务名称
func (j *FundingEndJob) GetName() string {
	return "funding_end_sweeper"
}

// GetSchedule 获取调度配置
func (j *FundingEndJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行任务
func (j *FundingEndJob) Execute() {
	logger.Info("Starting funding end sweep")

	ctx := context.Background()
	now := time.Now()

	projects, err := j.projectRepo.FindEndedActive(ctx, now)
	if err != nil {
		logger.Error("Failed to fetch projects for settlement: %v", err)
		return
	}

	settledCount := 0

	for _, project := range projects {
		// 单个项目失败不影响其余项目，下一轮扫描会重试
		result, err := j.settlementLogic.EndFunding(ctx, project.Id)
		if err != nil {
			logger.Error("Failed to settle project %d: %v", project.Id, err)
			continue
		}

		logger.Info("Settled project %d with status %s", project.Id, result.Status)
		settledCount++
	}

	// 补做之前商品创建失败、卡在successful的项目
	recovered, err := j.settlementLogic.RecoverStuckConversions(ctx)
	if err != nil {
		logger.Error("Failed to recover stuck conversions: %v", err)
	} else if recovered > 0 {
		logger.Info("Recovered %d stuck product conversions", recovered)
	}

	logger.Info("Funding end sweep completed. Settled %d projects", settledCount)
}
