package workflow

import "errors"

// 引擎错误分类,服务层与 API 层按类别映射处理
var (
	// ErrUnauthorized Actor 缺少当前转换所需的能力或身份关系
	ErrUnauthorized = errors.New("actor lacks capability for this transition")
	// ErrInvalidTransition 当前状态下不存在该动作对应的边
	ErrInvalidTransition = errors.New("no transition from current status for this action")
	// ErrCommentRequired 动作要求非空评论但未提供
	ErrCommentRequired = errors.New("a non-empty comment is required for this action")
	// ErrConcurrentConflict 提交时发现实体已被并发修改 (revision 不匹配)
	ErrConcurrentConflict = errors.New("entity was modified concurrently")
	// ErrUnknownVariant 实体的变体类型未注册
	ErrUnknownVariant = errors.New("unknown workflow variant")
)
