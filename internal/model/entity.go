package model

import (
	"errors"
	"time"
)

// EntityModel 工作流实体数据模型
// 所有变体 (PPE 请求/内部请求/日志请求/任务/考勤表) 共用一张表,按 kind 区分
type EntityModel struct {
	ID           string     `gorm:"primaryKey;type:varchar(64)"`
	Kind         string     `gorm:"type:varchar(32);not null;index"` // 变体类型
	Status       string     `gorm:"type:varchar(32);not null;index"` // 当前状态
	RequesterID  string     `gorm:"type:varchar(64);not null;index"` // 请求人 ID,创建后不可变
	ApproverID   string     `gorm:"type:varchar(64);index"`          // 当前责任审批人 ID,可变
	Revision     int64      `gorm:"not null;default:1"`              // 乐观并发令牌
	ReopenedFrom string     `gorm:"type:varchar(64);index"`          // reopen 来源实体 ID
	Data         []byte     `gorm:"type:jsonb;not null"`             // 序列化后的变体载荷 (子任务/审批申请等)
	CreatedAt    time.Time  `gorm:"not null;index"`
	UpdatedAt    time.Time  `gorm:"not null;index"`
	CompletedAt  *time.Time `gorm:"index"` // 完成时间戳
}

// TableName 指定表名
func (EntityModel) TableName() string {
	return "workflow_entities"
}

// Validate 验证实体模型
func (em *EntityModel) Validate() error {
	if em.ID == "" {
		return errors.New("entity ID is required")
	}
	if em.Kind == "" {
		return errors.New("entity kind is required")
	}
	if em.Status == "" {
		return errors.New("entity status is required")
	}
	if em.RequesterID == "" {
		return errors.New("requester ID is required")
	}
	if em.Revision <= 0 {
		return errors.New("revision must be positive")
	}
	return nil
}
