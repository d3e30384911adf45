package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/blues/cfp/internal/model"
	"gorm.io/gorm"
)

// BackingRepository 支持记录持久化实现
type BackingRepository struct {
	db *gorm.DB
}

// NewBackingRepository 创建支持记录仓储
func NewBackingRepository(db *gorm.DB) *BackingRepository {
	return &BackingRepository{db: db}
}

func (r *BackingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

// Create 支持记录与分配明细在同一事务内落库
func (r *BackingRepository) Create(ctx context.Context, backing *model.BackingModel, allocations []model.BackingRewardModel) error {
	return withTx(ctx, r.db, func(txCtx context.Context) error {
		if err := conn(txCtx, r.db).Create(backing).Error; err != nil {
			return err
		}
		for i := range allocations {
			allocations[i].BackingId = backing.Id
		}
		if len(allocations) > 0 {
			if err := conn(txCtx, r.db).Create(&allocations).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *BackingRepository) Get(ctx context.Context, id int64) (*model.BackingModel, error) {
	var backing model.BackingModel
	if err := conn(ctx, r.db).First(&backing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 支持记录 %d", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("获取支持记录失败: %w", err)
	}
	return &backing, nil
}

// ConfirmPayment 条件确认：WHERE限定pending，webhook重投不会二次生效
func (r *BackingRepository) ConfirmPayment(ctx context.Context, id int64, paymentId string) (bool, error) {
	result := conn(ctx, r.db).Model(&model.BackingModel{}).
		Where("id = ? AND payment_status = ?", id, model.BackingStatusPending).
		Updates(map[string]interface{}{
			"payment_status": model.BackingStatusConfirmed,
			"payment_id":     paymentId,
		})
	if result.Error != nil {
		return false, fmt.Errorf("确认支付失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *BackingRepository) TransitionStatus(ctx context.Context, id int64, from, to model.BackingStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"payment_status": to}
	for k, v := range updates {
		values[k] = v
	}

	result := conn(ctx, r.db).Model(&model.BackingModel{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, fmt.Errorf("更新支付状态失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *BackingRepository) ListUnreleasedAllocations(ctx context.Context, backingId int64) ([]model.BackingRewardModel, error) {
	var allocations []model.BackingRewardModel
	if err := conn(ctx, r.db).
		Where("backing_id = ? AND released = ?", backingId, false).
		Find(&allocations).Error; err != nil {
		return nil, fmt.Errorf("获取分配明细失败: %w", err)
	}
	return allocations, nil
}

func (r *BackingRepository) MarkAllocationsReleased(ctx context.Context, backingId int64) error {
	if err := conn(ctx, r.db).Model(&model.BackingRewardModel{}).
		Where("backing_id = ? AND released = ?", backingId, false).
		Update("released", true).Error; err != nil {
		return fmt.Errorf("标记分配释放失败: %w", err)
	}
	return nil
}

func (r *BackingRepository) ListByProjectAndStatus(ctx context.Context, projectId int64, status model.BackingStatus) ([]model.BackingModel, error) {
	var backings []model.BackingModel
	if err := conn(ctx, r.db).
		Where("project_id = ? AND payment_status = ?", projectId, status).
		Find(&backings).Error; err != nil {
		return nil, fmt.Errorf("按状态查询支持记录失败: %w", err)
	}
	return backings, nil
}

func (r *BackingRepository) CountByProjectInStatuses(ctx context.Context, projectId int64, statuses []model.BackingStatus) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&model.BackingModel{}).
		Where("project_id = ? AND payment_status IN ?", projectId, statuses).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计支持记录数失败: %w", err)
	}
	return count, nil
}

func (r *BackingRepository) SumAmountInStatuses(ctx context.Context, projectId int64, statuses []model.BackingStatus) (int64, error) {
	var total int64
	if err := conn(ctx, r.db).Model(&model.BackingModel{}).
		Where("project_id = ? AND payment_status IN ?", projectId, statuses).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("统计支持金额失败: %w", err)
	}
	return total, nil
}

func (r *BackingRepository) CountDistinctBackers(ctx context.Context, projectId int64) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&model.BackingModel{}).
		Where("project_id = ? AND payment_status IN ?", projectId, []model.BackingStatus{
			model.BackingStatusPending,
			model.BackingStatusConfirmed,
			model.BackingStatusRefunding,
			model.BackingStatusRefundFailed,
			model.BackingStatusRefunded,
		}).
		Distinct("backer_id").
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计支持者数量失败: %w", err)
	}
	return count, nil
}

func (r *BackingRepository) ListByBacker(ctx context.Context, backerId int64) ([]model.BackingModel, error) {
	var backings []model.BackingModel
	if err := conn(ctx, r.db).
		Where("backer_id = ?", backerId).
		Order("created_at DESC").
		Find(&backings).Error; err != nil {
		return nil, fmt.Errorf("获取支持者记录失败: %w", err)
	}
	return backings, nil
}
