package model

import (
	"errors"
	"time"
)

// ViewFlagModel 每 (实体,用户) 的已读标记
// 独立于状态与评论内容变更,markViewed 幂等
type ViewFlagModel struct {
	EntityID  string    `gorm:"primaryKey;type:varchar(64)"`
	UserID    string    `gorm:"primaryKey;type:varchar(64)"`
	Viewed    bool      `gorm:"not null;default:false"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (ViewFlagModel) TableName() string {
	return "view_flags"
}

// Validate 验证已读标记模型
func (vm *ViewFlagModel) Validate() error {
	if vm.EntityID == "" {
		return errors.New("entity ID is required")
	}
	if vm.UserID == "" {
		return errors.New("user ID is required")
	}
	return nil
}
