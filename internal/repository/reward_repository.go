package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/blues/cfp/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RewardRepository 回报档位持久化实现
// 库存扣减/归还都是带守卫条件的单条UPDATE，配合行锁保证不超卖
type RewardRepository struct {
	db *gorm.DB
}

// NewRewardRepository 创建回报仓储
func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

func (r *RewardRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

func (r *RewardRepository) Create(ctx context.Context, tier *model.RewardTierModel) error {
	return conn(ctx, r.db).Create(tier).Error
}

func (r *RewardRepository) Get(ctx context.Context, id int64) (*model.RewardTierModel, error) {
	var tier model.RewardTierModel
	if err := conn(ctx, r.db).First(&tier, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 回报档位 %d", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("获取回报档位失败: %w", err)
	}
	return &tier, nil
}

// GetForUpdate 行锁读取，必须在事务内调用
func (r *RewardRepository) GetForUpdate(ctx context.Context, id int64) (*model.RewardTierModel, error) {
	var tier model.RewardTierModel
	if err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&tier, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 回报档位 %d", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("锁定回报档位失败: %w", err)
	}
	return &tier, nil
}

func (r *RewardRepository) ListByProject(ctx context.Context, projectId int64) ([]model.RewardTierModel, error) {
	var tiers []model.RewardTierModel
	if err := conn(ctx, r.db).
		Where("project_id = ?", projectId).
		Order("price ASC").
		Find(&tiers).Error; err != nil {
		return nil, fmt.Errorf("获取回报档位列表失败: %w", err)
	}
	return tiers, nil
}

func (r *RewardRepository) SumBackerAllocations(ctx context.Context, rewardId, backerId int64) (int64, error) {
	var total int64
	if err := conn(ctx, r.db).Model(&model.BackingRewardModel{}).
		Where("reward_id = ? AND backer_id = ? AND released = ?", rewardId, backerId, false).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("统计支持者已购数量失败: %w", err)
	}
	return total, nil
}

// ApplyReservation 扣库存、加早鸟计数，守卫条件写在WHERE里，
// 不满足时整条UPDATE不生效
func (r *RewardRepository) ApplyReservation(ctx context.Context, rewardId, quantity, earlyBirdQty int64) (bool, error) {
	result := conn(ctx, r.db).Model(&model.RewardTierModel{}).
		Where("id = ? AND remaining_quantity >= ? AND early_bird_granted + ? <= early_bird_limit",
			rewardId, quantity, earlyBirdQty).
		Updates(map[string]interface{}{
			"remaining_quantity": gorm.Expr("remaining_quantity - ?", quantity),
			"early_bird_granted": gorm.Expr("early_bird_granted + ?", earlyBirdQty),
		})
	if result.Error != nil {
		return false, fmt.Errorf("预留库存失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ApplyRelease 归还库存，守卫保证不超出总量、早鸟计数不为负
func (r *RewardRepository) ApplyRelease(ctx context.Context, rewardId, quantity, earlyBirdQty int64) (bool, error) {
	result := conn(ctx, r.db).Model(&model.RewardTierModel{}).
		Where("id = ? AND remaining_quantity + ? <= total_quantity AND early_bird_granted >= ?",
			rewardId, quantity, earlyBirdQty).
		Updates(map[string]interface{}{
			"remaining_quantity": gorm.Expr("remaining_quantity + ?", quantity),
			"early_bird_granted": gorm.Expr("early_bird_granted - ?", earlyBirdQty),
		})
	if result.Error != nil {
		return false, fmt.Errorf("归还库存失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
