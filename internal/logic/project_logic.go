package logic

import (
	"context"
	"fmt"
	"time"

	"github.com/blues/cfp/internal/clock"
	"github.com/blues/cfp/internal/event"
	"github.com/blues/cfp/internal/model"
)

// ProjectRepository 项目持久化接口
type ProjectRepository interface {
	Create(ctx context.Context, project *model.ProjectModel) error
	Get(ctx context.Context, id int64) (*model.ProjectModel, error)
	List(ctx context.Context, status, category string, creatorId int64, page, pageSize int) ([]model.ProjectModel, int64, error)
	ListByCreator(ctx context.Context, creatorId int64) ([]model.ProjectModel, error)
	// TransitionStatus 条件更新状态：仅当当前状态为from时生效，返回是否更新成功
	TransitionStatus(ctx context.Context, id int64, from, to model.ProjectStatus, updates map[string]interface{}) (bool, error)
	// AddCurrentAmount 原子增减项目当前金额
	AddCurrentAmount(ctx context.Context, id int64, delta int64) error
	FindEndedActive(ctx context.Context, now time.Time) ([]model.ProjectModel, error)
	FindByStatus(ctx context.Context, status model.ProjectStatus) ([]model.ProjectModel, error)
	CreateUpdate(ctx context.Context, update *model.ProjectUpdateModel) error
	ListUpdates(ctx context.Context, projectId int64) ([]model.ProjectUpdateModel, error)
}

// ProjectLogic 项目生命周期业务逻辑
type ProjectLogic struct {
	repo      ProjectRepository
	clock     clock.Clock
	publisher event.Publisher
}

// NewProjectLogic 创建项目业务逻辑
func NewProjectLogic(repo ProjectRepository, clk clock.Clock, publisher event.Publisher) *ProjectLogic {
	return &ProjectLogic{
		repo:      repo,
		clock:     clk,
		publisher: publisher,
	}
}

// CreateProject 创建项目，初始为草稿状态
func (p *ProjectLogic) CreateProject(ctx context.Context, project *model.ProjectModel) error {
	if err := p.validateProject(project); err != nil {
		return err
	}

	// 设置默认值
	project.Status = model.ProjectStatusDraft
	project.CurrentAmount = 0

	if err := p.repo.Create(ctx, project); err != nil {
		return fmt.Errorf("创建项目失败: %w", err)
	}

	return nil
}

// SubmitForReview 提交审核：draft -> pending_review
func (p *ProjectLogic) SubmitForReview(ctx context.Context, id int64) error {
	if _, err := p.repo.Get(ctx, id); err != nil {
		return err
	}

	ok, err := p.repo.TransitionStatus(ctx, id, model.ProjectStatusDraft, model.ProjectStatusPendingReview, nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: 只有草稿状态可以提交审核", model.ErrInvalidStateTransition)
	}

	return nil
}

// ApproveProject 审核通过：pending_review -> active
func (p *ProjectLogic) ApproveProject(ctx context.Context, id int64, adminId int64) error {
	project, err := p.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	now := p.clock.Now()
	ok, err := p.repo.TransitionStatus(ctx, id, model.ProjectStatusPendingReview, model.ProjectStatusActive, map[string]interface{}{
		"approved_by": adminId,
		"approved_at": &now,
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: 只有待审核状态可以通过审核", model.ErrInvalidStateTransition)
	}

	p.publisher.Publish(ctx, event.Event{
		Type:       event.TypeProjectApproved,
		ProjectId:  project.Id,
		OccurredAt: now,
	})

	return nil
}

// RejectProject 审核驳回：pending_review -> rejected，驳回原因必填
func (p *ProjectLogic) RejectProject(ctx context.Context, id int64, adminId int64, reason string) error {
	if reason == "" {
		return fmt.Errorf("%w: 驳回原因不能为空", model.ErrValidation)
	}

	if _, err := p.repo.Get(ctx, id); err != nil {
		return err
	}

	ok, err := p.repo.TransitionStatus(ctx, id, model.ProjectStatusPendingReview, model.ProjectStatusRejected, map[string]interface{}{
		"approved_by":   adminId,
		"reject_reason": reason,
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: 只有待审核状态可以驳回", model.ErrInvalidStateTransition)
	}

	return nil
}

// CancelProject 取消项目：draft|pending_review -> cancelled，仅创建者可操作
func (p *ProjectLogic) CancelProject(ctx context.Context, id int64, callerId int64) error {
	project, err := p.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if project.CreatorId != callerId {
		return model.ErrForbidden
	}

	for _, from := range []model.ProjectStatus{model.ProjectStatusDraft, model.ProjectStatusPendingReview} {
		ok, err := p.repo.TransitionStatus(ctx, id, from, model.ProjectStatusCancelled, nil)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	return fmt.Errorf("%w: 当前状态不允许取消", model.ErrInvalidStateTransition)
}

// GetProject 获取项目详情
func (p *ProjectLogic) GetProject(ctx context.Context, id int64) (*model.ProjectModel, error) {
	return p.repo.Get(ctx, id)
}

// GetProjects 获取项目列表
func (p *ProjectLogic) GetProjects(ctx context.Context, status, category string, creatorId int64, page, pageSize int) ([]model.ProjectModel, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return p.repo.List(ctx, status, category, creatorId, page, pageSize)
}

// CreateProjectUpdate 发布项目动态，仅创建者可操作
func (p *ProjectLogic) CreateProjectUpdate(ctx context.Context, update *model.ProjectUpdateModel) error {
	if update.Title == "" {
		return fmt.Errorf("%w: 动态标题不能为空", model.ErrValidation)
	}

	project, err := p.repo.Get(ctx, update.ProjectId)
	if err != nil {
		return err
	}
	if project.CreatorId != update.CreatorId {
		return model.ErrForbidden
	}

	if err := p.repo.CreateUpdate(ctx, update); err != nil {
		return fmt.Errorf("发布项目动态失败: %w", err)
	}

	return nil
}

// GetProjectUpdates 获取项目动态列表
func (p *ProjectLogic) GetProjectUpdates(ctx context.Context, projectId int64) ([]model.ProjectUpdateModel, error) {
	if _, err := p.repo.Get(ctx, projectId); err != nil {
		return nil, err
	}
	return p.repo.ListUpdates(ctx, projectId)
}

// validateProject 验证项目数据
func (p *ProjectLogic) validateProject(project *model.ProjectModel) error {
	if project.Title == "" {
		return fmt.Errorf("%w: 项目标题不能为空", model.ErrValidation)
	}
	if project.CreatorId == 0 {
		return fmt.Errorf("%w: 创建者不能为空", model.ErrValidation)
	}
	if project.TargetAmount <= 0 {
		return fmt.Errorf("%w: 目标金额必须大于0", model.ErrValidation)
	}
	if !project.EndTime.After(project.StartTime) {
		return fmt.Errorf("%w: 结束时间必须晚于开始时间", model.ErrValidation)
	}
	return nil
}
