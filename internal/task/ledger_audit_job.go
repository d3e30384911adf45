package task

import (
	"context"
	"time"

	"github.com/blues/cfp/internal/config"
	"github.com/blues/cfp/internal/logger"
	"github.com/blues/cfp/internal/logic"
	"github.com/blues/cfp/internal/model"
	"github.com/go-co-op/gocron/v2"
)

// LedgerAuditJob 账目核对任务
// 核对进行中项目的current_amount与已确认支持金额之和，
// 发现不一致只上报，不自动修复
type LedgerAuditJob struct {
	config      *config.Config
	projectRepo logic.ProjectRepository
	backingRepo logic.BackingRepository
}

// NewLedgerAuditJob 创建账目核对任务
func NewLedgerAuditJob(cfg *config.Config, projectRepo logic.ProjectRepository, backingRepo logic.BackingRepository) *LedgerAuditJob {
	return &LedgerAuditJob{
		config:      cfg,
		projectRepo: projectRepo,
		backingRepo: backingRepo,
	}
}

// GetName 获取任务名称
func (j *LedgerAuditJob) GetName() string {
	return "ledger_auditor"
}

// GetSchedule 获取调度配置
func (j *LedgerAuditJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.AuditInterval) * time.Second)
}

// Execute 执行任务
func (j *LedgerAuditJob) Execute() {
	logger.Info("Starting ledger audit task")

	ctx := context.Background()

	projects, err := j.projectRepo.FindByStatus(ctx, model.ProjectStatusActive)
	if err != nil {
		logger.Error("Failed to fetch active projects for audit: %v", err)
		return
	}

	mismatchCount := 0

	for _, project := range projects {
		sum, err := j.backingRepo.SumAmountInStatuses(ctx, project.Id, []model.BackingStatus{
			model.BackingStatusConfirmed,
			model.BackingStatusRefunding,
			model.BackingStatusRefundFailed,
		})
		if err != nil {
			logger.Error("Failed to sum backings for project %d: %v", project.Id, err)
			continue
		}

		if sum != project.CurrentAmount {
			// 需要人工对账处理
			logger.Error("Ledger mismatch for project %d: current_amount=%d, confirmed sum=%d",
				project.Id, project.CurrentAmount, sum)
			mismatchCount++
		}
	}

	if mismatchCount > 0 {
		logger.Error("Ledger audit completed with %d mismatches", mismatchCount)
	} else {
		logger.Info("Ledger audit completed. All %d active projects consistent", len(projects))
	}
}
