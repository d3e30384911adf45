package logic

import (
	"context"
	"fmt"
	"sync"

	"github.com/blues/cfp/internal/catalog"
	"github.com/blues/cfp/internal/clock"
	"github.com/blues/cfp/internal/event"
	"github.com/blues/cfp/internal/gateway"
	"github.com/blues/cfp/internal/logger"
	"github.com/blues/cfp/internal/model"
	"github.com/panjf2000/ants/v2"
)

// 结算时仍占用项目金额的支付状态
var outstandingStatuses = []model.BackingStatus{
	model.BackingStatusConfirmed,
	model.BackingStatusRefunding,
	model.BackingStatusRefundFailed,
}

// SettlementLogic 结算业务逻辑：众筹结束后将项目转为商品或批量退款
type SettlementLogic struct {
	projectRepo ProjectRepository
	backingRepo BackingRepository
	rewardLogic *RewardLogic
	gateway     gateway.PaymentGateway
	catalog     catalog.ProductCatalog
	clock       clock.Clock
	publisher   event.Publisher
	pool        *ants.Pool
}

// NewSettlementLogic 创建结算业务逻辑，refundWorkers 控制退款并发度
func NewSettlementLogic(
	projectRepo ProjectRepository,
	backingRepo BackingRepository,
	rewardLogic *RewardLogic,
	pg gateway.PaymentGateway,
	pc catalog.ProductCatalog,
	clk clock.Clock,
	publisher event.Publisher,
	refundWorkers int,
) (*SettlementLogic, error) {
	if refundWorkers <= 0 {
		refundWorkers = 8
	}
	pool, err := ants.NewPool(refundWorkers)
	if err != nil {
		return nil, fmt.Errorf("创建退款协程池失败: %w", err)
	}

	return &SettlementLogic{
		projectRepo: projectRepo,
		backingRepo: backingRepo,
		rewardLogic: rewardLogic,
		gateway:     pg,
		catalog:     pc,
		clock:       clk,
		publisher:   publisher,
		pool:        pool,
	}, nil
}

// Release 释放协程池
func (s *SettlementLogic) Release() {
	s.pool.Release()
}

// EndFunding 结束众筹，幂等：项目已离开active时返回既有结果不重复处理
// active -> successful|failed 的变更是条件更新，并发调用只有一个生效
func (s *SettlementLogic) EndFunding(ctx context.Context, projectId int64) (*model.ProjectModel, error) {
	project, err := s.projectRepo.Get(ctx, projectId)
	if err != nil {
		return nil, err
	}

	if project.Status != model.ProjectStatusActive {
		// 成功但商品还没创建时补做转换，不会重复创建
		if project.Status == model.ProjectStatusSuccessful && project.ProductId == 0 {
			if err := s.convertToProduct(ctx, project); err != nil {
				return project, err
			}
			return s.projectRepo.Get(ctx, projectId)
		}
		return project, nil
	}

	// 结算前核对账目：金额对不上属于数据完整性问题，不自动修复
	if err := s.verifyLedger(ctx, project); err != nil {
		return nil, err
	}

	outcome := model.ProjectStatusFailed
	if project.CurrentAmount >= project.TargetAmount {
		outcome = model.ProjectStatusSuccessful
	}

	ok, err := s.projectRepo.TransitionStatus(ctx, projectId, model.ProjectStatusActive, outcome, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 另一个结算流程已经处理过
		return s.projectRepo.Get(ctx, projectId)
	}

	logger.Info("Project %d funding ended with outcome %s: %d/%d",
		projectId, outcome, project.CurrentAmount, project.TargetAmount)

	s.publisher.Publish(ctx, event.Event{
		Type:       event.TypeProjectSettled,
		ProjectId:  projectId,
		Outcome:    string(outcome),
		OccurredAt: s.clock.Now(),
	})

	project.Status = outcome
	if outcome == model.ProjectStatusSuccessful {
		if err := s.convertToProduct(ctx, project); err != nil {
			return project, err
		}
	} else {
		s.processRefunds(ctx, project)
		if err := s.finishFailedProject(ctx, projectId); err != nil {
			return project, err
		}
	}

	return s.projectRepo.Get(ctx, projectId)
}

// RetryFailedRefunds 重试所有失败项目的未完成退款，全部退完后项目转为ended
// 除refund_failed外，也回收上一轮结算中断遗留的confirmed和refunding记录，
// 否则这些支持者永远拿不到退款
func (s *SettlementLogic) RetryFailedRefunds(ctx context.Context) (int, error) {
	projects, err := s.projectRepo.FindByStatus(ctx, model.ProjectStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("查询待退款项目失败: %w", err)
	}

	retried := 0
	for _, project := range projects {
		for _, from := range []model.BackingStatus{model.BackingStatusRefundFailed, model.BackingStatusConfirmed} {
			backings, err := s.backingRepo.ListByProjectAndStatus(ctx, project.Id, from)
			if err != nil {
				logger.Error("Failed to list %s backings for project %d: %v", from, project.Id, err)
				continue
			}

			for _, backing := range backings {
				ok, err := s.backingRepo.TransitionStatus(ctx, backing.Id,
					from, model.BackingStatusRefunding, nil)
				if err != nil || !ok {
					continue
				}
				s.refundBacking(ctx, backing)
				retried++
			}
		}

		// 卡在refunding的（结算中途崩溃遗留）直接重发，网关靠幂等键去重
		stale, err := s.backingRepo.ListByProjectAndStatus(ctx, project.Id, model.BackingStatusRefunding)
		if err != nil {
			logger.Error("Failed to list refunding backings for project %d: %v", project.Id, err)
		} else {
			for _, backing := range stale {
				s.refundBacking(ctx, backing)
				retried++
			}
		}

		if err := s.finishFailedProject(ctx, project.Id); err != nil {
			logger.Error("Failed to finish project %d: %v", project.Id, err)
		}
	}

	return retried, nil
}

// RecoverStuckConversions 补做卡在successful但商品还没创建的项目转换
// convertToProduct瞬时失败后，由下一轮扫描把项目驱动到ended
func (s *SettlementLogic) RecoverStuckConversions(ctx context.Context) (int, error) {
	projects, err := s.projectRepo.FindByStatus(ctx, model.ProjectStatusSuccessful)
	if err != nil {
		return 0, fmt.Errorf("查询待转换项目失败: %w", err)
	}

	recovered := 0
	for _, project := range projects {
		if project.ProductId != 0 {
			continue
		}
		if _, err := s.EndFunding(ctx, project.Id); err != nil {
			logger.Error("Failed to recover conversion for project %d: %v", project.Id, err)
			continue
		}
		recovered++
	}

	return recovered, nil
}

// convertToProduct 项目成功：生成商品快照并调用商品目录，然后转为ended
func (s *SettlementLogic) convertToProduct(ctx context.Context, project *model.ProjectModel) error {
	tiers, err := s.rewardLogic.GetProjectRewards(ctx, project.Id)
	if err != nil {
		return fmt.Errorf("查询回报档位失败: %w", err)
	}

	snapshot := catalog.ProjectSnapshot{
		ProjectId:   project.Id,
		Title:       project.Title,
		Description: project.Description,
		Category:    project.Category,
		ImageURL:    project.ImageURL,
		CreatorId:   project.CreatorId,
	}
	for _, tier := range tiers {
		snapshot.Rewards = append(snapshot.Rewards, catalog.RewardSnapshot{
			RewardId:    tier.Id,
			Title:       tier.Title,
			Description: tier.Description,
			Price:       tier.Price,
			Quantity:    tier.RemainingQuantity,
		})
	}

	productId, err := s.catalog.CreateProduct(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("创建商品失败: %w", err)
	}

	ok, err := s.projectRepo.TransitionStatus(ctx, project.Id,
		model.ProjectStatusSuccessful, model.ProjectStatusEnded, map[string]interface{}{
			"product_id": productId,
		})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: 项目 %d 不在successful状态", model.ErrInvalidStateTransition, project.Id)
	}

	logger.Info("Project %d converted to product %d", project.Id, productId)
	return nil
}

// processRefunds 项目失败：逐笔退款，单笔失败不影响其他支持者
func (s *SettlementLogic) processRefunds(ctx context.Context, project *model.ProjectModel) {
	backings, err := s.backingRepo.ListByProjectAndStatus(ctx, project.Id, model.BackingStatusConfirmed)
	if err != nil {
		logger.Error("Failed to list confirmed backings for project %d: %v", project.Id, err)
		return
	}

	var wg sync.WaitGroup
	for _, backing := range backings {
		backing := backing

		ok, err := s.backingRepo.TransitionStatus(ctx, backing.Id,
			model.BackingStatusConfirmed, model.BackingStatusRefunding, nil)
		if err != nil {
			logger.Error("Failed to mark backing %d refunding: %v", backing.Id, err)
			continue
		}
		if !ok {
			continue
		}

		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			s.refundBacking(ctx, backing)
		})
		if submitErr != nil {
			wg.Done()
			logger.Error("Failed to submit refund for backing %d: %v", backing.Id, submitErr)
		}
	}
	wg.Wait()

	logger.Info("Refund processing completed for project %d, %d backings", project.Id, len(backings))
}

// refundBacking 退款单笔支持记录，调用前状态必须已置为refunding
func (s *SettlementLogic) refundBacking(ctx context.Context, backing model.BackingModel) {
	if err := s.gateway.Refund(ctx, backing.Id, backing.Amount); err != nil {
		logger.Error("Refund failed for backing %d: %v", backing.Id, err)
		if _, terr := s.backingRepo.TransitionStatus(ctx, backing.Id,
			model.BackingStatusRefunding, model.BackingStatusRefundFailed, map[string]interface{}{
				"refund_reason": err.Error(),
			}); terr != nil {
			logger.Error("Failed to mark backing %d refund_failed: %v", backing.Id, terr)
		}
		s.publisher.Publish(ctx, event.Event{
			Type:       event.TypeRefundFailed,
			ProjectId:  backing.ProjectId,
			BackingId:  backing.Id,
			Amount:     backing.Amount,
			OccurredAt: s.clock.Now(),
		})
		return
	}

	err := s.backingRepo.WithTx(ctx, func(txCtx context.Context) error {
		ok, err := s.backingRepo.TransitionStatus(txCtx, backing.Id,
			model.BackingStatusRefunding, model.BackingStatusRefunded, map[string]interface{}{
				"refund_reason": "众筹未达标退款",
			})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: 支持记录 %d 不在refunding状态", model.ErrInvalidStateTransition, backing.Id)
		}

		if err := s.projectRepo.AddCurrentAmount(txCtx, backing.ProjectId, -backing.Amount); err != nil {
			return err
		}

		allocations, err := s.backingRepo.ListUnreleasedAllocations(txCtx, backing.Id)
		if err != nil {
			return err
		}
		if err := s.rewardLogic.ReleaseAllocations(txCtx, allocations); err != nil {
			return err
		}
		return s.backingRepo.MarkAllocationsReleased(txCtx, backing.Id)
	})
	if err != nil {
		logger.Error("Failed to finalize refund for backing %d: %v", backing.Id, err)
		return
	}

	logger.Info("Refunded backing %d, amount: %d", backing.Id, backing.Amount)
}

// finishFailedProject 失败项目在没有未退款支持记录时转为ended
func (s *SettlementLogic) finishFailedProject(ctx context.Context, projectId int64) error {
	outstanding, err := s.backingRepo.CountByProjectInStatuses(ctx, projectId, outstandingStatuses)
	if err != nil {
		return err
	}
	if outstanding > 0 {
		return nil
	}

	_, err = s.projectRepo.TransitionStatus(ctx, projectId,
		model.ProjectStatusFailed, model.ProjectStatusEnded, nil)
	return err
}

// verifyLedger 核对项目金额与支持记录之和
func (s *SettlementLogic) verifyLedger(ctx context.Context, project *model.ProjectModel) error {
	sum, err := s.backingRepo.SumAmountInStatuses(ctx, project.Id, outstandingStatuses)
	if err != nil {
		return err
	}
	if sum != project.CurrentAmount {
		logger.Error("Ledger mismatch for project %d: current_amount=%d, confirmed sum=%d",
			project.Id, project.CurrentAmount, sum)
		return fmt.Errorf("%w: 项目 %d 账面 %d 实际 %d",
			model.ErrLedgerMismatch, project.Id, project.CurrentAmount, sum)
	}
	return nil
}
