package model

import (
	"time"
)

// RewardTierModel 回报档位模型
type RewardTierModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId   int64  `json:"project_id" gorm:"not null;index"`
	Title       string `json:"title" gorm:"not null" binding:"required"`
	Description string `json:"description" gorm:"type:text"`

	// 价格信息（单位：分）
	Price          int64 `json:"price" gorm:"not null"`
	EarlyBirdPrice int64 `json:"early_bird_price"`

	// 库存信息
	TotalQuantity     int64 `json:"total_quantity" gorm:"not null"`
	RemainingQuantity int64 `json:"remaining_quantity" gorm:"not null"`
	EarlyBirdLimit    int64 `json:"early_bird_limit" gorm:"default:0"`
	EarlyBirdGranted  int64 `json:"early_bird_granted" gorm:"default:0"`

	// 单人限购，0表示不限
	MaxPerBacker int64 `json:"max_per_backer" gorm:"default:0"`
}

// TableName 自定义表名
func (RewardTierModel) TableName() string {
	return "reward_tier"
}
