package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blues/cfp/internal/model"
	"gorm.io/gorm"
)

// ProjectRepository 项目持久化实现
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目仓储
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.db, fn)
}

func (r *ProjectRepository) Create(ctx context.Context, project *model.ProjectModel) error {
	return conn(ctx, r.db).Create(project).Error
}

func (r *ProjectRepository) Get(ctx context.Context, id int64) (*model.ProjectModel, error) {
	var project model.ProjectModel
	if err := conn(ctx, r.db).First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: 项目 %d", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("获取项目失败: %w", err)
	}
	return &project, nil
}

func (r *ProjectRepository) List(ctx context.Context, status, category string, creatorId int64, page, pageSize int) ([]model.ProjectModel, int64, error) {
	query := conn(ctx, r.db).Model(&model.ProjectModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if creatorId != 0 {
		query = query.Where("creator_id = ?", creatorId)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("获取项目总数失败: %w", err)
	}

	var projects []model.ProjectModel
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("获取项目列表失败: %w", err)
	}

	return projects, total, nil
}

func (r *ProjectRepository) ListByCreator(ctx context.Context, creatorId int64) ([]model.ProjectModel, error) {
	var projects []model.ProjectModel
	if err := conn(ctx, r.db).
		Where("creator_id = ?", creatorId).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("获取创建者项目失败: %w", err)
	}
	return projects, nil
}

// TransitionStatus 条件状态变更，WHERE带上原状态保证只前进一次
func (r *ProjectRepository) TransitionStatus(ctx context.Context, id int64, from, to model.ProjectStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"status": to}
	for k, v := range updates {
		values[k] = v
	}

	result := conn(ctx, r.db).Model(&model.ProjectModel{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return false, fmt.Errorf("更新项目状态失败: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// AddCurrentAmount 原子增减项目当前金额，不经过应用内存的读改写
func (r *ProjectRepository) AddCurrentAmount(ctx context.Context, id int64, delta int64) error {
	result := conn(ctx, r.db).Model(&model.ProjectModel{}).
		Where("id = ?", id).
		Update("current_amount", gorm.Expr("current_amount + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("更新项目金额失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: 项目 %d", model.ErrNotFound, id)
	}
	return nil
}

func (r *ProjectRepository) FindEndedActive(ctx context.Context, now time.Time) ([]model.ProjectModel, error) {
	var projects []model.ProjectModel
	if err := conn(ctx, r.db).
		Where("status = ? AND end_time <= ?", model.ProjectStatusActive, now).
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("查询到期项目失败: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) FindByStatus(ctx context.Context, status model.ProjectStatus) ([]model.ProjectModel, error) {
	var projects []model.ProjectModel
	if err := conn(ctx, r.db).
		Where("status = ?", status).
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("按状态查询项目失败: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) CreateUpdate(ctx context.Context, update *model.ProjectUpdateModel) error {
	return conn(ctx, r.db).Create(update).Error
}

func (r *ProjectRepository) ListUpdates(ctx context.Context, projectId int64) ([]model.ProjectUpdateModel, error) {
	var updates []model.ProjectUpdateModel
	if err := conn(ctx, r.db).
		Where("project_id = ?", projectId).
		Order("created_at DESC").
		Find(&updates).Error; err != nil {
		return nil, fmt.Errorf("获取项目动态失败: %w", err)
	}
	return updates, nil
}
