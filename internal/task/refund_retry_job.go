package task

import (
	"context"
	"time"

	"github.com/blues/cfp/internal/config"
	"github.com/blues/cfp/internal/logger"
	"github.com/blues/cfp/internal/logic"
	"github.com/go-co-op/gocron/v2"
)

// RefundRetryJob 退款重试任务
// 重新提交refund_failed的退款，项目的退款全部完成后转为ended
type RefundRetryJob struct {
	config          *config.Config
	settlementLogic *logic.SettlementLogic
}

// NewRefundRetryJob 创建退款重试任务
func NewRefundRetryJob(cfg *config.Config, settlementLogic *logic.SettlementLogic) *RefundRetryJob {
	return &RefundRetryJob{
		config:          cfg,
		settlementLogic: settlementLogic,
	}
}

// GetName 获取任务名称
func (j *RefundRetryJob) GetName() string {
	return "refund_retrier"
}

// GetSchedule 获取调度配置
func (j *RefundRetryJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.RefundInterval) * time.Second)
}

// Execute 执行任务
func (j *RefundRetryJob) Execute() {
	logger.Info("Starting refund retry task")

	retried, err := j.settlementLogic.RetryFailedRefunds(context.Background())
	if err != nil {
		logger.Error("Refund retry task failed: %v", err)
		return
	}

	logger.Info("Refund retry task completed. Retried %d refunds", retried)
}
