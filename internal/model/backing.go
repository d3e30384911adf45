package model

import (
	"time"
)

// BackingModel 支持（认捐）记录
type BackingModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId int64 `json:"project_id" gorm:"not null;index"`
	BackerId  int64 `json:"backer_id" gorm:"not null;index"`

	// 金额（单位：分），确认后不可变
	Amount int64 `json:"amount" gorm:"not null"`

	// 支付信息
	PaymentMethod string        `json:"payment_method"`
	PaymentId     string        `json:"payment_id"`
	PaymentStatus BackingStatus `json:"payment_status" gorm:"default:'pending';index"`
	RefundReason  string        `json:"refund_reason" gorm:"type:text"`
}

// BackingStatus 支持记录支付状态
type BackingStatus string

const (
	BackingStatusPending      BackingStatus = "pending"       // 待支付确认
	BackingStatusConfirmed    BackingStatus = "confirmed"     // 已确认
	BackingStatusCancelled    BackingStatus = "cancelled"     // 已取消
	BackingStatusRefunding    BackingStatus = "refunding"     // 退款中
	BackingStatusRefunded     BackingStatus = "refunded"      // 已退款
	BackingStatusRefundFailed BackingStatus = "refund_failed" // 退款失败
)

// TableName 自定义表名
func (BackingModel) TableName() string {
	return "backing"
}
