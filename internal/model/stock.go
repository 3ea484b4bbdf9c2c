package model

import (
	"errors"
	"time"
)

// StockItemModel 库存物项数据模型
type StockItemModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Name      string    `gorm:"type:varchar(255);not null;index"`
	Quantity  int       `gorm:"not null;default:0"` // 扣减时钳制为 0,不允许负数
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (StockItemModel) TableName() string {
	return "stock_items"
}

// Validate 验证库存物项模型
func (sm *StockItemModel) Validate() error {
	if sm.ID == "" {
		return errors.New("stock item ID is required")
	}
	if sm.Name == "" {
		return errors.New("stock item name is required")
	}
	if sm.Quantity < 0 {
		return errors.New("quantity must not be negative")
	}
	return nil
}

// PpeHistoryModel 员工 PPE 发放历史数据模型
// 仅追加: 重新发放会追加第二条记录,不替换第一条
type PpeHistoryModel struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	EmployeeID string    `gorm:"type:varchar(64);not null;index"`
	RequestID  string    `gorm:"type:varchar(64);not null;index"`
	ItemID     string    `gorm:"type:varchar(64);not null"`
	Quantity   int       `gorm:"not null"`
	IssueDate  time.Time `gorm:"not null;index"`
	IssuedBy   string    `gorm:"type:varchar(64);not null"`
}

// TableName 指定表名
func (PpeHistoryModel) TableName() string {
	return "ppe_history"
}

// Validate 验证发放历史模型
func (pm *PpeHistoryModel) Validate() error {
	if pm.ID == "" {
		return errors.New("history ID is required")
	}
	if pm.EmployeeID == "" {
		return errors.New("employee ID is required")
	}
	if pm.RequestID == "" {
		return errors.New("request ID is required")
	}
	return nil
}
