package model

import (
	"time"
)

// ProjectModel 众筹项目模型
type ProjectModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Title       string `json:"title" gorm:"not null" binding:"required"`
	Description string `json:"description" gorm:"type:text"`
	ImageURL    string `json:"image_url"`
	Category    string `json:"category"`

	// 众筹信息（金额单位：分）
	TargetAmount  int64 `json:"target_amount" gorm:"not null" binding:"required,min=1"`
	CurrentAmount int64 `json:"current_amount" gorm:"default:0"`

	// 时间信息
	StartTime         time.Time `json:"start_time" gorm:"not null"`
	EndTime           time.Time `json:"end_time" gorm:"not null"`
	EstimatedDelivery time.Time `json:"estimated_delivery"`

	// 状态
	Status ProjectStatus `json:"status" gorm:"default:'draft';index"`

	// 创建者信息
	CreatorId   int64  `json:"creator_id" gorm:"not null;index"`
	CreatorName string `json:"creator_name"`

	// 审核信息
	ApprovedBy   int64      `json:"approved_by"`
	ApprovedAt   *time.Time `json:"approved_at"`
	RejectReason string     `json:"reject_reason" gorm:"type:text"`

	// 结算信息：成功结算后指向商品目录的商品ID
	ProductId int64 `json:"product_id"`
}

// ProjectStatus 项目状态
type ProjectStatus string

const (
	ProjectStatusDraft         ProjectStatus = "draft"          // 草稿
	ProjectStatusPendingReview ProjectStatus = "pending_review" // 待审核
	ProjectStatusActive        ProjectStatus = "active"         // 进行中
	ProjectStatusSuccessful    ProjectStatus = "successful"     // 成功
	ProjectStatusFailed        ProjectStatus = "failed"         // 失败
	ProjectStatusRejected      ProjectStatus = "rejected"       // 已驳回
	ProjectStatusCancelled     ProjectStatus = "cancelled"      // 已取消
	ProjectStatusEnded         ProjectStatus = "ended"          // 已结束
)

// IsTerminal 是否为终态
func (s ProjectStatus) IsTerminal() bool {
	switch s {
	case ProjectStatusRejected, ProjectStatusCancelled, ProjectStatusEnded:
		return true
	}
	return false
}

// TableName 自定义表名
func (ProjectModel) TableName() string {
	return "project"
}
