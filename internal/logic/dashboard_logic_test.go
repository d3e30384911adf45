package logic

import (
	"context"
	"testing"
	"time"

	"github.com/blues/cfp/internal/clock"
	"github.com/blues/cfp/internal/model"
)

func newDashboardFixture() (*DashboardLogic, *memStore) {
	store := newMemStore()
	clk := clock.NewFixed(time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC))
	logic := NewDashboardLogic(
		&fakeProjectRepo{store: store},
		&fakeRewardRepo{store: store},
		&fakeBackingRepo{store: store},
		clk,
	)
	return logic, store
}

func TestGetProjectDetails(t *testing.T) {
	ctx := context.Background()
	logic, store := newDashboardFixture()
	project := activeProject(store)
	project.CurrentAmount = 250000
	store.addTier(&model.RewardTierModel{
		ProjectId: project.Id, Title: "套装", Price: 10000, TotalQuantity: 50,
	})
	// 同一支持者两笔，去重后支持人数为2
	store.addBacking(&model.BackingModel{ProjectId: project.Id, BackerId: 1, Amount: 100000, PaymentStatus: model.BackingStatusConfirmed})
	store.addBacking(&model.BackingModel{ProjectId: project.Id, BackerId: 1, Amount: 50000, PaymentStatus: model.BackingStatusConfirmed})
	store.addBacking(&model.BackingModel{ProjectId: project.Id, BackerId: 2, Amount: 100000, PaymentStatus: model.BackingStatusConfirmed})
	// 待支付和已取消不计入
	store.addBacking(&model.BackingModel{ProjectId: project.Id, BackerId: 3, Amount: 99999, PaymentStatus: model.BackingStatusPending})

	details, err := logic.GetProjectDetails(ctx, project.Id)
	if err != nil {
		t.Fatalf("GetProjectDetails: %v", err)
	}

	if details.BackerCount != 2 {
		t.Errorf("BackerCount = %d, want 2", details.BackerCount)
	}
	if details.BackingCount != 3 {
		t.Errorf("BackingCount = %d, want 3", details.BackingCount)
	}
	if details.CompletionPercentage != 25 {
		t.Errorf("CompletionPercentage = %f, want 25", details.CompletionPercentage)
	}
	if details.RemainingTime == "" {
		t.Error("进行中的项目应返回剩余时间")
	}
	if len(details.Rewards) != 1 {
		t.Errorf("len(Rewards) = %d, want 1", len(details.Rewards))
	}
}

func TestGetCreatorDashboard(t *testing.T) {
	ctx := context.Background()
	logic, store := newDashboardFixture()
	project := activeProject(store)
	project.CurrentAmount = 500000
	store.addBacking(&model.BackingModel{ProjectId: project.Id, BackerId: 1, Amount: 500000, PaymentStatus: model.BackingStatusConfirmed})
	store.addBacking(&model.BackingModel{ProjectId: project.Id, BackerId: 2, Amount: 10000, PaymentStatus: model.BackingStatusRefundFailed})

	summaries, err := logic.GetCreatorDashboard(ctx, project.CreatorId)
	if err != nil {
		t.Fatalf("GetCreatorDashboard: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("len(summaries) = %d, want 1", len(summaries))
	}
	// 退款失败笔数直接展示给创建者
	if summaries[0].RefundFailedCount != 1 {
		t.Errorf("RefundFailedCount = %d, want 1", summaries[0].RefundFailedCount)
	}
	if summaries[0].CompletionPercentage != 50 {
		t.Errorf("CompletionPercentage = %f, want 50", summaries[0].CompletionPercentage)
	}
}

func TestGetBackerDashboard(t *testing.T) {
	ctx := context.Background()
	logic, store := newDashboardFixture()
	project := activeProject(store)
	store.addBacking(&model.BackingModel{ProjectId: project.Id, BackerId: 42, Amount: 10000, PaymentStatus: model.BackingStatusConfirmed})
	store.addBacking(&model.BackingModel{ProjectId: project.Id, BackerId: 42, Amount: 5000, PaymentStatus: model.BackingStatusRefunded})
	store.addBacking(&model.BackingModel{ProjectId: project.Id, BackerId: 7, Amount: 8888, PaymentStatus: model.BackingStatusConfirmed})

	summaries, err := logic.GetBackerDashboard(ctx, 42)
	if err != nil {
		t.Fatalf("GetBackerDashboard: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2", len(summaries))
	}
	for _, s := range summaries {
		if s.ProjectTitle != project.Title {
			t.Errorf("ProjectTitle = %s, want %s", s.ProjectTitle, project.Title)
		}
	}
}
