package handler

import (
	"time"

	"github.com/blues/cfp/internal/logic"
)

// 分页信息结构
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"pageSize"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"totalPage"`
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	CreatorId         int64     `json:"creator_id" binding:"required"`
	CreatorName       string    `json:"creator_name"`
	Title             string    `json:"title" binding:"required"`
	Description       string    `json:"description"`
	ImageURL          string    `json:"image_url"`
	Category          string    `json:"category"`
	TargetAmount      int64     `json:"target_amount" binding:"required,min=1"`
	StartTime         time.Time `json:"start_time" binding:"required"`
	EndTime           time.Time `json:"end_time" binding:"required"`
	EstimatedDelivery time.Time `json:"estimated_delivery"`
}

// ReviewRequest 审核请求
type ReviewRequest struct {
	AdminId int64  `json:"admin_id" binding:"required"`
	Reason  string `json:"reason"`
}

// CancelProjectRequest 取消项目请求
type CancelProjectRequest struct {
	CreatorId int64 `json:"creator_id" binding:"required"`
}

// CreateRewardRequest 创建回报档位请求
type CreateRewardRequest struct {
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description"`
	Price          int64  `json:"price" binding:"required,min=1"`
	EarlyBirdPrice int64  `json:"early_bird_price"`
	EarlyBirdLimit int64  `json:"early_bird_limit"`
	TotalQuantity  int64  `json:"total_quantity" binding:"required,min=1"`
	MaxPerBacker   int64  `json:"max_per_backer"`
}

// CreateBackingRequest 创建支持请求
type CreateBackingRequest struct {
	BackerId      int64                   `json:"backer_id" binding:"required"`
	PaymentMethod string                  `json:"payment_method"`
	Selections    []logic.RewardSelection `json:"selections" binding:"required,min=1"`
}

// ConfirmPaymentRequest 支付确认请求（网关webhook）
type ConfirmPaymentRequest struct {
	PaymentId string `json:"payment_id" binding:"required"`
}

// CancelBackingRequest 取消支持请求
type CancelBackingRequest struct {
	BackerId int64 `json:"backer_id" binding:"required"`
}

// CreateProjectUpdateRequest 发布项目动态请求
type CreateProjectUpdateRequest struct {
	CreatorId int64  `json:"creator_id" binding:"required"`
	Title     string `json:"title" binding:"required"`
	Content   string `json:"content"`
}
