package model

import (
	"errors"
	"time"
)

// 出箱记录状态
const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessing = "processing"
	OutboxStatusSuccess    = "success"
	OutboxStatusFailed     = "failed"
)

// OutboxModel 通知出箱数据模型
// 引擎事件与实体变更在同一事务中落库,分发器异步消费;
// 发送失败只影响出箱记录状态,从不回滚已提交的实体变更
type OutboxModel struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	EntityID   string    `gorm:"type:varchar(64);not null;index"`
	Type       string    `gorm:"type:varchar(32);not null;index"` // 事件类型
	Data       []byte    `gorm:"type:jsonb;not null"`             // 序列化后的引擎事件
	Status     string    `gorm:"type:varchar(32);not null;default:'pending';index"`
	RetryCount int       `gorm:"type:int;default:0"`
	CreatedAt  time.Time `gorm:"not null;index"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName 指定表名
func (OutboxModel) TableName() string {
	return "notification_outbox"
}

// Validate 验证出箱模型
func (om *OutboxModel) Validate() error {
	if om.ID == "" {
		return errors.New("outbox ID is required")
	}
	if om.EntityID == "" {
		return errors.New("entity ID is required")
	}
	if om.Type == "" {
		return errors.New("event type is required")
	}
	if len(om.Data) == 0 {
		return errors.New("event data is required")
	}
	if om.Status == "" {
		om.Status = OutboxStatusPending
	}
	return nil
}
