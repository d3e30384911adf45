package logic

import (
	"context"
	"time"

	"github.com/blues/cfp/internal/clock"
	"github.com/blues/cfp/internal/model"
)

// ProjectDetails 项目详情：项目、回报档位和募集统计
type ProjectDetails struct {
	Project              *model.ProjectModel        `json:"project"`
	Rewards              []model.RewardTierModel    `json:"rewards"`
	BackerCount          int64                      `json:"backer_count"`
	BackingCount         int64                      `json:"backing_count"`
	CompletionPercentage float64                    `json:"completion_percentage"`
	RemainingTime        string                     `json:"remaining_time"`
	Updates              []model.ProjectUpdateModel `json:"updates"`
}

// CreatorProjectSummary 创建者视角的单个项目汇总
type CreatorProjectSummary struct {
	ProjectId            int64               `json:"project_id"`
	Title                string              `json:"title"`
	Status               model.ProjectStatus `json:"status"`
	TargetAmount         int64               `json:"target_amount"`
	CurrentAmount        int64               `json:"current_amount"`
	CompletionPercentage float64             `json:"completion_percentage"`
	BackerCount          int64               `json:"backer_count"`
	RefundFailedCount    int64               `json:"refund_failed_count"`
	EndTime              time.Time           `json:"end_time"`
}

// BackerBackingSummary 支持者视角的单笔支持汇总
type BackerBackingSummary struct {
	BackingId     int64               `json:"backing_id"`
	ProjectId     int64               `json:"project_id"`
	ProjectTitle  string              `json:"project_title"`
	ProjectStatus model.ProjectStatus `json:"project_status"`
	Amount        int64               `json:"amount"`
	PaymentStatus model.BackingStatus `json:"payment_status"`
	CreatedAt     time.Time           `json:"created_at"`
}

// DashboardLogic 读侧聚合查询
type DashboardLogic struct {
	projectRepo ProjectRepository
	rewardRepo  RewardRepository
	backingRepo BackingRepository
	clock       clock.Clock
}

// NewDashboardLogic 创建聚合查询逻辑
func NewDashboardLogic(
	projectRepo ProjectRepository,
	rewardRepo RewardRepository,
	backingRepo BackingRepository,
	clk clock.Clock,
) *DashboardLogic {
	return &DashboardLogic{
		projectRepo: projectRepo,
		rewardRepo:  rewardRepo,
		backingRepo: backingRepo,
		clock:       clk,
	}
}

// GetProjectDetails 获取项目详情页数据
func (d *DashboardLogic) GetProjectDetails(ctx context.Context, projectId int64) (*ProjectDetails, error) {
	project, err := d.projectRepo.Get(ctx, projectId)
	if err != nil {
		return nil, err
	}

	rewards, err := d.rewardRepo.ListByProject(ctx, projectId)
	if err != nil {
		return nil, err
	}

	backerCount, err := d.backingRepo.CountDistinctBackers(ctx, projectId)
	if err != nil {
		return nil, err
	}
	backingCount, err := d.backingRepo.CountByProjectInStatuses(ctx, projectId, outstandingStatuses)
	if err != nil {
		return nil, err
	}

	updates, err := d.projectRepo.ListUpdates(ctx, projectId)
	if err != nil {
		return nil, err
	}

	details := &ProjectDetails{
		Project:              project,
		Rewards:              rewards,
		BackerCount:          backerCount,
		BackingCount:         backingCount,
		CompletionPercentage: completionPercentage(project),
		Updates:              updates,
	}

	// 剩余时间只对进行中的项目有意义
	now := d.clock.Now()
	if project.Status == model.ProjectStatusActive && now.Before(project.EndTime) {
		details.RemainingTime = project.EndTime.Sub(now).String()
	}

	return details, nil
}

// GetCreatorDashboard 创建者看板：名下项目的募集情况和退款异常
func (d *DashboardLogic) GetCreatorDashboard(ctx context.Context, creatorId int64) ([]CreatorProjectSummary, error) {
	projects, err := d.projectRepo.ListByCreator(ctx, creatorId)
	if err != nil {
		return nil, err
	}

	summaries := make([]CreatorProjectSummary, 0, len(projects))
	for _, project := range projects {
		backerCount, err := d.backingRepo.CountDistinctBackers(ctx, project.Id)
		if err != nil {
			return nil, err
		}
		// 退款失败的笔数对创建者可见，不隐藏
		refundFailed, err := d.backingRepo.CountByProjectInStatuses(ctx, project.Id,
			[]model.BackingStatus{model.BackingStatusRefundFailed})
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, CreatorProjectSummary{
			ProjectId:            project.Id,
			Title:                project.Title,
			Status:               project.Status,
			TargetAmount:         project.TargetAmount,
			CurrentAmount:        project.CurrentAmount,
			CompletionPercentage: completionPercentage(&project),
			BackerCount:          backerCount,
			RefundFailedCount:    refundFailed,
			EndTime:              project.EndTime,
		})
	}

	return summaries, nil
}

// GetBackerDashboard 支持者看板：自己的全部支持记录
func (d *DashboardLogic) GetBackerDashboard(ctx context.Context, backerId int64) ([]BackerBackingSummary, error) {
	backings, err := d.backingRepo.ListByBacker(ctx, backerId)
	if err != nil {
		return nil, err
	}

	summaries := make([]BackerBackingSummary, 0, len(backings))
	for _, backing := range backings {
		summary := BackerBackingSummary{
			BackingId:     backing.Id,
			ProjectId:     backing.ProjectId,
			Amount:        backing.Amount,
			PaymentStatus: backing.PaymentStatus,
			CreatedAt:     backing.CreatedAt,
		}
		if project, err := d.projectRepo.Get(ctx, backing.ProjectId); err == nil {
			summary.ProjectTitle = project.Title
			summary.ProjectStatus = project.Status
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func completionPercentage(project *model.ProjectModel) float64 {
	if project.TargetAmount <= 0 {
		return 0
	}
	return float64(project.CurrentAmount) / float64(project.TargetAmount) * 100
}
