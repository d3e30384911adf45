package event

import (
	"context"
	"time"
)

// Type 事件类型，闭集
type Type string

const (
	TypeProjectApproved  Type = "project_approved"
	TypeBackingConfirmed Type = "backing_confirmed"
	TypeProjectSettled   Type = "project_settled"
	TypeRefundFailed     Type = "refund_failed"
)

// Event 业务事件
type Event struct {
	Type       Type      `json:"type"`
	ProjectId  int64     `json:"project_id"`
	BackingId  int64     `json:"backing_id,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	Outcome    string    `json:"outcome,omitempty"` // project_settled: successful / failed
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher 事件发布接口，由调用方注入，替代全局单例
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}
