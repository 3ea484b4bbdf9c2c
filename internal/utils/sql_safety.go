package utils

import (
	"errors"
	"strings"
)

// sortableFields 列表查询允许的排序列
// 排序字段会被拼进 ORDER BY,必须用白名单挡住注入
var sortableFields = map[string]bool{
	"id":           true,
	"kind":         true,
	"status":       true,
	"requester_id": true,
	"approver_id":  true,
	"revision":     true,
	"created_at":   true,
	"updated_at":   true,
	"completed_at": true,
}

// ValidateSortField 验证排序字段,防止 SQL 注入
func ValidateSortField(field string) error {
	if field == "" {
		return errors.New("sort field cannot be empty")
	}
	if !sortableFields[strings.ToLower(field)] {
		return errors.New("sort field is not allowed")
	}
	return nil
}

// ValidateSortOrder 验证排序方向
func ValidateSortOrder(order string) error {
	upperOrder := strings.ToUpper(strings.TrimSpace(order))
	if upperOrder != "ASC" && upperOrder != "DESC" {
		return errors.New("sort order must be ASC or DESC")
	}
	return nil
}

// SanitizeSortOrder 清理排序方向,非法时回落为降序
func SanitizeSortOrder(order string) string {
	upperOrder := strings.ToUpper(strings.TrimSpace(order))
	if upperOrder == "ASC" || upperOrder == "DESC" {
		return upperOrder
	}
	return "DESC"
}
