package model

import (
	"errors"
	"time"
)

// CommentModel 评论数据模型
// 仅追加,插入顺序构成实体的活动时间线;并发转换双方的评论都会保留
type CommentModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	EntityID  string    `gorm:"type:varchar(64);not null;index"` // 所属实体 ID
	UserID    string    `gorm:"type:varchar(64);not null;index"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"` // 创建时间,不可变
}

// TableName 指定表名
func (CommentModel) TableName() string {
	return "comments"
}

// Validate 验证评论模型
func (cm *CommentModel) Validate() error {
	if cm.ID == "" {
		return errors.New("comment ID is required")
	}
	if cm.EntityID == "" {
		return errors.New("entity ID is required")
	}
	if cm.UserID == "" {
		return errors.New("user ID is required")
	}
	if cm.Text == "" {
		return errors.New("comment text is required")
	}
	return nil
}
