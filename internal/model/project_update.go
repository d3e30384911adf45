package model

import (
	"time"
)

// ProjectUpdateModel 项目动态（创建者发布的时间线，只追加不修改）
type ProjectUpdateModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	ProjectId int64  `json:"project_id" gorm:"not null;index"`
	CreatorId int64  `json:"creator_id" gorm:"not null"`
	Title     string `json:"title" gorm:"not null" binding:"required"`
	Content   string `json:"content" gorm:"type:text"`
}

// TableName 自定义表名
func (ProjectUpdateModel) TableName() string {
	return "project_update"
}
