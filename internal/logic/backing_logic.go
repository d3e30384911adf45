package logic

import (
	"context"
	"fmt"

	"github.com/blues/cfp/internal/clock"
	"github.com/blues/cfp/internal/event"
	"github.com/blues/cfp/internal/gateway"
	"github.com/blues/cfp/internal/logger"
	"github.com/blues/cfp/internal/model"
)

// BackingRepository 支持记录持久化接口
type BackingRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// Create 在同一事务内写入支持记录及其分配明细
	Create(ctx context.Context, backing *model.BackingModel, allocations []model.BackingRewardModel) error
	Get(ctx context.Context, id int64) (*model.BackingModel, error)
	// ConfirmPayment 条件更新：仅当状态为pending时置为confirmed，返回是否生效
	ConfirmPayment(ctx context.Context, id int64, paymentId string) (bool, error)
	// TransitionStatus 条件更新支付状态：仅当当前状态为from时生效
	TransitionStatus(ctx context.Context, id int64, from, to model.BackingStatus, updates map[string]interface{}) (bool, error)
	ListUnreleasedAllocations(ctx context.Context, backingId int64) ([]model.BackingRewardModel, error)
	MarkAllocationsReleased(ctx context.Context, backingId int64) error
	ListByProjectAndStatus(ctx context.Context, projectId int64, status model.BackingStatus) ([]model.BackingModel, error)
	CountByProjectInStatuses(ctx context.Context, projectId int64, statuses []model.BackingStatus) (int64, error)
	// SumAmountInStatuses 统计项目内处于指定状态的支持金额之和
	SumAmountInStatuses(ctx context.Context, projectId int64, statuses []model.BackingStatus) (int64, error)
	CountDistinctBackers(ctx context.Context, projectId int64) (int64, error)
	ListByBacker(ctx context.Context, backerId int64) ([]model.BackingModel, error)
}

// RewardSelection 一次支持中对某个回报档位的选择
type RewardSelection struct {
	RewardId int64 `json:"reward_id" binding:"required"`
	Quantity int64 `json:"quantity" binding:"required,min=1"`
}

// CreateBackingInput 创建支持记录的入参
type CreateBackingInput struct {
	ProjectId     int64
	BackerId      int64
	PaymentMethod string
	Selections    []RewardSelection
}

// BackingLogic 支持（认捐）业务逻辑
type BackingLogic struct {
	repo        BackingRepository
	projectRepo ProjectRepository
	rewardLogic *RewardLogic
	gateway     gateway.PaymentGateway
	clock       clock.Clock
	publisher   event.Publisher
}

// NewBackingLogic 创建支持业务逻辑
func NewBackingLogic(
	repo BackingRepository,
	projectRepo ProjectRepository,
	rewardLogic *RewardLogic,
	pg gateway.PaymentGateway,
	clk clock.Clock,
	publisher event.Publisher,
) *BackingLogic {
	return &BackingLogic{
		repo:        repo,
		projectRepo: projectRepo,
		rewardLogic: rewardLogic,
		gateway:     pg,
		clock:       clk,
		publisher:   publisher,
	}
}

// CreateBacking 创建支持记录
// 多个档位的预留要么全部成功要么全部回滚：任何一个失败，
// 已成功的预留通过补偿性归还撤销，支持记录不会落库
func (b *BackingLogic) CreateBacking(ctx context.Context, input CreateBackingInput) (*model.BackingModel, error) {
	if len(input.Selections) == 0 {
		return nil, fmt.Errorf("%w: 至少选择一个回报档位", model.ErrValidation)
	}
	seen := make(map[int64]bool, len(input.Selections))
	for _, sel := range input.Selections {
		if sel.Quantity <= 0 {
			return nil, fmt.Errorf("%w: 回报数量必须大于0", model.ErrValidation)
		}
		if seen[sel.RewardId] {
			return nil, fmt.Errorf("%w: 回报档位重复选择", model.ErrValidation)
		}
		seen[sel.RewardId] = true
	}

	project, err := b.projectRepo.Get(ctx, input.ProjectId)
	if err != nil {
		return nil, err
	}
	if project.Status != model.ProjectStatusActive {
		return nil, fmt.Errorf("%w: 项目不在进行中", model.ErrCampaignClosed)
	}
	now := b.clock.Now()
	if now.Before(project.StartTime) || now.After(project.EndTime) {
		return nil, fmt.Errorf("%w: 不在众筹时间窗口内", model.ErrCampaignClosed)
	}

	// 逐档位预留，失败时补偿归还之前成功的预留
	var reserved []*ReserveResult
	rollback := func() {
		for _, res := range reserved {
			if err := b.rewardLogic.Release(ctx, res.RewardId, res.Quantity(), res.EarlyBirdQuantity()); err != nil {
				// 补偿失败只能记录，留给账目核对处理
				logger.Error("Failed to rollback reservation for reward %d: %v", res.RewardId, err)
			}
		}
	}

	for _, sel := range input.Selections {
		res, err := b.rewardLogic.Reserve(ctx, sel.RewardId, input.BackerId, sel.Quantity)
		if err != nil {
			rollback()
			return nil, err
		}
		if res.ProjectId != input.ProjectId {
			reserved = append(reserved, res)
			rollback()
			return nil, fmt.Errorf("%w: 回报档位不属于该项目", model.ErrValidation)
		}
		reserved = append(reserved, res)
	}

	// 金额按预留时的成交价计算
	var amount int64
	var allocations []model.BackingRewardModel
	for _, res := range reserved {
		amount += res.Amount
		for _, portion := range res.Portions {
			allocations = append(allocations, model.BackingRewardModel{
				ProjectId:    input.ProjectId,
				RewardId:     res.RewardId,
				BackerId:     input.BackerId,
				Quantity:     portion.Quantity,
				PriceApplied: portion.PriceApplied,
				EarlyBird:    portion.EarlyBird,
			})
		}
	}

	backing := &model.BackingModel{
		ProjectId:     input.ProjectId,
		BackerId:      input.BackerId,
		Amount:        amount,
		PaymentMethod: input.PaymentMethod,
		PaymentStatus: model.BackingStatusPending,
	}

	if err := b.repo.Create(ctx, backing, allocations); err != nil {
		rollback()
		return nil, fmt.Errorf("创建支持记录失败: %w", err)
	}

	return backing, nil
}

// ConfirmPayment 支付确认：pending -> confirmed，只生效一次
// 网关webhook重投时第二次调用返回 ErrAlreadyConfirmed，金额不会重复累加
func (b *BackingLogic) ConfirmPayment(ctx context.Context, backingId int64, paymentId string) error {
	if paymentId == "" {
		return fmt.Errorf("%w: 支付单号不能为空", model.ErrValidation)
	}

	backing, err := b.repo.Get(ctx, backingId)
	if err != nil {
		return err
	}
	if backing.PaymentStatus == model.BackingStatusConfirmed {
		return model.ErrAlreadyConfirmed
	}

	// 向网关核实支付单，网关调用在事务外
	if err := b.gateway.Confirm(ctx, paymentId); err != nil {
		return err
	}

	err = b.repo.WithTx(ctx, func(txCtx context.Context) error {
		ok, err := b.repo.ConfirmPayment(txCtx, backingId, paymentId)
		if err != nil {
			return err
		}
		if !ok {
			current, err := b.repo.Get(txCtx, backingId)
			if err != nil {
				return err
			}
			if current.PaymentStatus == model.BackingStatusConfirmed {
				return model.ErrAlreadyConfirmed
			}
			return fmt.Errorf("%w: 当前支付状态为 %s", model.ErrInvalidStateTransition, current.PaymentStatus)
		}

		// 确认与金额累加在同一事务内
		return b.projectRepo.AddCurrentAmount(txCtx, backing.ProjectId, backing.Amount)
	})
	if err != nil {
		return err
	}

	b.publisher.Publish(ctx, event.Event{
		Type:       event.TypeBackingConfirmed,
		ProjectId:  backing.ProjectId,
		BackingId:  backing.Id,
		Amount:     backing.Amount,
		OccurredAt: b.clock.Now(),
	})

	return nil
}

// CancelBacking 取消支持
// pending可直接取消；confirmed仅在项目进行中可取消（走网关退款）；
// 项目离开active后只能由结算流程退款
func (b *BackingLogic) CancelBacking(ctx context.Context, backingId, callerId int64) error {
	backing, err := b.repo.Get(ctx, backingId)
	if err != nil {
		return err
	}
	if backing.BackerId != callerId {
		return model.ErrForbidden
	}

	switch backing.PaymentStatus {
	case model.BackingStatusPending:
		return b.repo.WithTx(ctx, func(txCtx context.Context) error {
			ok, err := b.repo.TransitionStatus(txCtx, backingId, model.BackingStatusPending, model.BackingStatusCancelled, nil)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: 支持记录已不是待支付状态", model.ErrInvalidStateTransition)
			}
			return b.releaseBacking(txCtx, backingId)
		})

	case model.BackingStatusConfirmed:
		project, err := b.projectRepo.Get(ctx, backing.ProjectId)
		if err != nil {
			return err
		}
		if project.Status != model.ProjectStatusActive {
			return fmt.Errorf("%w: 项目已结束，退款由结算流程处理", model.ErrInvalidStateTransition)
		}

		// 先占住refunding再调网关，避免和结算流程并发时重复退款
		ok, err := b.repo.TransitionStatus(ctx, backingId, model.BackingStatusConfirmed, model.BackingStatusRefunding, nil)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: 支持记录状态已变更", model.ErrInvalidStateTransition)
		}

		// 网关调用在事务外，失败时回退到confirmed由支持者重试
		if err := b.gateway.Refund(ctx, backing.Id, backing.Amount); err != nil {
			if _, rerr := b.repo.TransitionStatus(ctx, backingId, model.BackingStatusRefunding, model.BackingStatusConfirmed, nil); rerr != nil {
				logger.Error("Failed to revert backing %d to confirmed: %v", backingId, rerr)
			}
			return err
		}

		return b.repo.WithTx(ctx, func(txCtx context.Context) error {
			ok, err := b.repo.TransitionStatus(txCtx, backingId, model.BackingStatusRefunding, model.BackingStatusRefunded, map[string]interface{}{
				"refund_reason": "支持者主动取消",
			})
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: 支持记录状态已变更", model.ErrInvalidStateTransition)
			}
			if err := b.projectRepo.AddCurrentAmount(txCtx, backing.ProjectId, -backing.Amount); err != nil {
				return err
			}
			return b.releaseBacking(txCtx, backingId)
		})

	case model.BackingStatusRefundFailed:
		return fmt.Errorf("%w: 等待退款重试", model.ErrRefundFailed)

	default:
		return fmt.Errorf("%w: 当前支付状态 %s 不允许取消", model.ErrInvalidStateTransition, backing.PaymentStatus)
	}
}

// GetBacking 获取支持记录
func (b *BackingLogic) GetBacking(ctx context.Context, id int64) (*model.BackingModel, error) {
	return b.repo.Get(ctx, id)
}

// releaseBacking 归还支持记录的全部未释放分配
func (b *BackingLogic) releaseBacking(ctx context.Context, backingId int64) error {
	allocations, err := b.repo.ListUnreleasedAllocations(ctx, backingId)
	if err != nil {
		return err
	}
	if err := b.rewardLogic.ReleaseAllocations(ctx, allocations); err != nil {
		return err
	}
	return b.repo.MarkAllocationsReleased(ctx, backingId)
}
