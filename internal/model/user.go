package model

import (
	"errors"
	"time"
)

// UserModel 用户目录数据模型
// 认证由 OIDC 签发方负责,这里只保存通知分发所需的联系方式与角色
type UserModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Email     string    `gorm:"type:varchar(255);not null;index"`
	Roles     string    `gorm:"type:varchar(255)"` // 逗号分隔的角色列表
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (UserModel) TableName() string {
	return "users"
}

// Validate 验证用户模型
func (um *UserModel) Validate() error {
	if um.ID == "" {
		return errors.New("user ID is required")
	}
	if um.Email == "" {
		return errors.New("user email is required")
	}
	return nil
}
