package logic

import (
	"context"
	"fmt"

	"github.com/blues/cfp/internal/model"
)

// RewardRepository 回报档位持久化接口
// ApplyReservation/ApplyRelease 必须是带守卫条件的原子更新
type RewardRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, tier *model.RewardTierModel) error
	Get(ctx context.Context, id int64) (*model.RewardTierModel, error)
	// GetForUpdate 在事务内对档位行加锁后读取
	GetForUpdate(ctx context.Context, id int64) (*model.RewardTierModel, error)
	ListByProject(ctx context.Context, projectId int64) ([]model.RewardTierModel, error)
	// SumBackerAllocations 统计某支持者在该档位未释放的累计数量
	SumBackerAllocations(ctx context.Context, rewardId, backerId int64) (int64, error)
	// ApplyReservation 扣减库存并累加早鸟计数，库存不足时不生效
	ApplyReservation(ctx context.Context, rewardId, quantity, earlyBirdQty int64) (bool, error)
	// ApplyRelease 归还库存并回退早鸟计数，超出总量时不生效
	ApplyRelease(ctx context.Context, rewardId, quantity, earlyBirdQty int64) (bool, error)
}

// ReservedPortion 一次预留中的一个价格段
type ReservedPortion struct {
	Quantity     int64
	PriceApplied int64
	EarlyBird    bool
}

// ReserveResult 预留结果
type ReserveResult struct {
	RewardId  int64
	ProjectId int64
	Portions  []ReservedPortion
	Amount    int64
}

// EarlyBirdQuantity 本次预留中按早鸟价成交的数量
func (r *ReserveResult) EarlyBirdQuantity() int64 {
	var total int64
	for _, p := range r.Portions {
		if p.EarlyBird {
			total += p.Quantity
		}
	}
	return total
}

// Quantity 本次预留总数量
func (r *ReserveResult) Quantity() int64 {
	var total int64
	for _, p := range r.Portions {
		total += p.Quantity
	}
	return total
}

// RewardLogic 回报库存业务逻辑
type RewardLogic struct {
	repo        RewardRepository
	projectRepo ProjectRepository
}

// NewRewardLogic 创建回报业务逻辑
func NewRewardLogic(repo RewardRepository, projectRepo ProjectRepository) *RewardLogic {
	return &RewardLogic{
		repo:        repo,
		projectRepo: projectRepo,
	}
}

// CreateReward 创建回报档位，仅限未开始众筹的项目
func (r *RewardLogic) CreateReward(ctx context.Context, tier *model.RewardTierModel) error {
	if err := r.validateTier(tier); err != nil {
		return err
	}

	project, err := r.projectRepo.Get(ctx, tier.ProjectId)
	if err != nil {
		return err
	}
	if project.Status != model.ProjectStatusDraft && project.Status != model.ProjectStatusPendingReview {
		return fmt.Errorf("%w: 众筹开始后不能新增回报档位", model.ErrInvalidStateTransition)
	}

	tier.RemainingQuantity = tier.TotalQuantity
	tier.EarlyBirdGranted = 0

	if err := r.repo.Create(ctx, tier); err != nil {
		return fmt.Errorf("创建回报档位失败: %w", err)
	}

	return nil
}

// Reserve 预留库存
// 核心正确性要求：库存扣减与早鸟计数累加是同一个原子操作，
// 并发预留同一档位时早鸟数量不会超过配额、总量不会超卖
func (r *RewardLogic) Reserve(ctx context.Context, rewardId, backerId, quantity int64) (*ReserveResult, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: 预留数量必须大于0", model.ErrValidation)
	}

	var result *ReserveResult

	err := r.repo.WithTx(ctx, func(txCtx context.Context) error {
		// 行锁住档位，后续检查和扣减在同一事务内完成
		tier, err := r.repo.GetForUpdate(txCtx, rewardId)
		if err != nil {
			return err
		}

		if tier.RemainingQuantity < quantity {
			return model.ErrOutOfStock
		}

		if tier.MaxPerBacker > 0 {
			allocated, err := r.repo.SumBackerAllocations(txCtx, rewardId, backerId)
			if err != nil {
				return err
			}
			if allocated+quantity > tier.MaxPerBacker {
				return model.ErrLimitExceeded
			}
		}

		// 早鸟配额还剩多少，本次预留能吃掉多少
		earlyBirdQty := tier.EarlyBirdLimit - tier.EarlyBirdGranted
		if earlyBirdQty < 0 {
			earlyBirdQty = 0
		}
		if earlyBirdQty > quantity {
			earlyBirdQty = quantity
		}

		ok, err := r.repo.ApplyReservation(txCtx, rewardId, quantity, earlyBirdQty)
		if err != nil {
			return err
		}
		if !ok {
			return model.ErrOutOfStock
		}

		result = &ReserveResult{
			RewardId:  tier.Id,
			ProjectId: tier.ProjectId,
		}
		if earlyBirdQty > 0 {
			result.Portions = append(result.Portions, ReservedPortion{
				Quantity:     earlyBirdQty,
				PriceApplied: tier.EarlyBirdPrice,
				EarlyBird:    true,
			})
			result.Amount += earlyBirdQty * tier.EarlyBirdPrice
		}
		if standardQty := quantity - earlyBirdQty; standardQty > 0 {
			result.Portions = append(result.Portions, ReservedPortion{
				Quantity:     standardQty,
				PriceApplied: tier.Price,
				EarlyBird:    false,
			})
			result.Amount += standardQty * tier.Price
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Release 归还库存（退款或取消时调用），不会超出档位总量
func (r *RewardLogic) Release(ctx context.Context, rewardId, quantity, earlyBirdQty int64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: 归还数量必须大于0", model.ErrValidation)
	}

	return r.repo.WithTx(ctx, func(txCtx context.Context) error {
		ok, err := r.repo.ApplyRelease(txCtx, rewardId, quantity, earlyBirdQty)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("归还数量超出档位 %d 的总量", rewardId)
		}
		return nil
	})
}

// ReleaseAllocations 归还一组分配记录对应的库存，按档位和早鸟标记聚合
func (r *RewardLogic) ReleaseAllocations(ctx context.Context, allocations []model.BackingRewardModel) error {
	type bucket struct {
		quantity     int64
		earlyBirdQty int64
	}
	buckets := make(map[int64]*bucket)
	for _, a := range allocations {
		if a.Released {
			continue
		}
		b, exists := buckets[a.RewardId]
		if !exists {
			b = &bucket{}
			buckets[a.RewardId] = b
		}
		b.quantity += a.Quantity
		if a.EarlyBird {
			b.earlyBirdQty += a.Quantity
		}
	}

	for rewardId, b := range buckets {
		if err := r.Release(ctx, rewardId, b.quantity, b.earlyBirdQty); err != nil {
			return err
		}
	}

	return nil
}

// GetProjectRewards 获取项目的回报档位列表
func (r *RewardLogic) GetProjectRewards(ctx context.Context, projectId int64) ([]model.RewardTierModel, error) {
	return r.repo.ListByProject(ctx, projectId)
}

// validateTier 验证回报档位数据
func (r *RewardLogic) validateTier(tier *model.RewardTierModel) error {
	if tier.Title == "" {
		return fmt.Errorf("%w: 回报标题不能为空", model.ErrValidation)
	}
	if tier.Price <= 0 {
		return fmt.Errorf("%w: 回报价格必须大于0", model.ErrValidation)
	}
	if tier.TotalQuantity <= 0 {
		return fmt.Errorf("%w: 回报总量必须大于0", model.ErrValidation)
	}
	if tier.EarlyBirdLimit < 0 || tier.EarlyBirdLimit > tier.TotalQuantity {
		return fmt.Errorf("%w: 早鸟配额必须在0和总量之间", model.ErrValidation)
	}
	if tier.EarlyBirdLimit > 0 && tier.EarlyBirdPrice <= 0 {
		return fmt.Errorf("%w: 设置早鸟配额时早鸟价格必须大于0", model.ErrValidation)
	}
	if tier.MaxPerBacker < 0 {
		return fmt.Errorf("%w: 单人限购不能为负数", model.ErrValidation)
	}
	return nil
}
