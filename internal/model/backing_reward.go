package model

import (
	"time"
)

// BackingRewardModel 支持记录与回报档位的分配关系
// 一次选择如果跨越早鸟配额，会拆成早鸟价和标准价两条记录
type BackingRewardModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BackingId int64 `json:"backing_id" gorm:"not null;index"`
	ProjectId int64 `json:"project_id" gorm:"not null;index"`
	RewardId  int64 `json:"reward_id" gorm:"not null;index"`
	BackerId  int64 `json:"backer_id" gorm:"not null;index"`

	Quantity     int64 `json:"quantity" gorm:"not null"`
	PriceApplied int64 `json:"price_applied" gorm:"not null"` // 成交单价（分）
	EarlyBird    bool  `json:"early_bird" gorm:"default:false"`

	// 退款/取消时置位，同时归还库存
	Released bool `json:"released" gorm:"default:false;index"`
}

// TableName 自定义表名
func (BackingRewardModel) TableName() string {
	return "backing_reward"
}
