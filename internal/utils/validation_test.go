package utils_test

import (
	"strings"
	"testing"

	"github.com/siteops/opsflow-gin/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestValidateEntityID 测试实体 ID 格式校验
func TestValidateEntityID(t *testing.T) {
	assert.NoError(t, utils.ValidateEntityID("req-001"))
	assert.NoError(t, utils.ValidateEntityID("a1b2c3_D4"))
	assert.NoError(t, utils.ValidateEntityID("550e8400-e29b-41d4-a716-446655440000"))

	assert.ErrorIs(t, utils.ValidateEntityID(""), utils.ErrEmptyID)
	assert.ErrorIs(t, utils.ValidateEntityID("id with spaces"), utils.ErrInvalidIDFormat)
	assert.ErrorIs(t, utils.ValidateEntityID("id;DROP TABLE"), utils.ErrInvalidIDFormat)
	assert.ErrorIs(t, utils.ValidateEntityID("../etc/passwd"), utils.ErrInvalidIDFormat)
	assert.ErrorIs(t, utils.ValidateEntityID(strings.Repeat("a", 65)), utils.ErrIDTooLong)
}

// TestSanitizeString 测试 HTML 转义与控制字符过滤
func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "&lt;script&gt;alert(1)&lt;/script&gt;", utils.SanitizeString("<script>alert(1)</script>"))
	assert.Equal(t, "abc", utils.SanitizeString("a\x00b\x1bc"))
	// 换行与制表符保留
	assert.Equal(t, "line1\nline2\tend", utils.SanitizeString("line1\nline2\tend"))
}

// TestTrimAndValidate 测试自由文本清理
func TestTrimAndValidate(t *testing.T) {
	out, err := utils.TrimAndValidate("  正常评论  ", 100)
	require.NoError(t, err)
	assert.Equal(t, "正常评论", out)

	_, err = utils.TrimAndValidate("   ", 100)
	assert.ErrorIs(t, err, utils.ErrEmptyString)

	_, err = utils.TrimAndValidate(strings.Repeat("a", 101), 100)
	assert.ErrorIs(t, err, utils.ErrStringTooLong)

	// maxLen 为 0 时不限长度
	_, err = utils.TrimAndValidate(strings.Repeat("a", 101), 0)
	assert.NoError(t, err)
}

// TestValidateSortField 测试排序字段白名单
func TestValidateSortField(t *testing.T) {
	assert.NoError(t, utils.ValidateSortField("created_at"))
	assert.NoError(t, utils.ValidateSortField("Status"))

	assert.Error(t, utils.ValidateSortField(""))
	assert.Error(t, utils.ValidateSortField("data"))
	assert.Error(t, utils.ValidateSortField("created_at; DROP TABLE workflow_entities"))
}

// TestValidateSortOrder 测试排序方向校验
func TestValidateSortOrder(t *testing.T) {
	assert.NoError(t, utils.ValidateSortOrder("asc"))
	assert.NoError(t, utils.ValidateSortOrder(" DESC "))
	assert.Error(t, utils.ValidateSortOrder("random()"))
	assert.Error(t, utils.ValidateSortOrder(""))
}

// TestSanitizeSortOrder 测试排序方向清理回落
func TestSanitizeSortOrder(t *testing.T) {
	assert.Equal(t, "ASC", utils.SanitizeSortOrder("asc"))
	assert.Equal(t, "DESC", utils.SanitizeSortOrder("desc"))
	assert.Equal(t, "DESC", utils.SanitizeSortOrder("evil"))
}
