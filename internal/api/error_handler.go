package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/siteops/opsflow-gin/internal/workflow"
	"gorm.io/gorm"
)

// APIError API 错误
type APIError struct {
	Code    int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrorHandlerMiddleware 错误处理中间件
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()

			var apiErr *APIError
			if errors.As(err, &apiErr) {
				Error(c, apiErr.Code, apiErr.Message, apiErr.Detail)
			} else {
				Error(c, http.StatusInternalServerError, "internal server error", err.Error())
			}
		}
	}
}

// WrapError 包装错误
func WrapError(err error, code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Detail:  err.Error(),
	}
}

// RespondError 将服务层错误映射为 HTTP 响应
// 工作流的哨兵错误各有固定状态码,其余按 500 处理
func RespondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrUnauthorized):
		Error(c, http.StatusForbidden, "operation not permitted", err.Error())
	case errors.Is(err, workflow.ErrInvalidTransition):
		Error(c, http.StatusUnprocessableEntity, "invalid transition", err.Error())
	case errors.Is(err, workflow.ErrCommentRequired):
		Error(c, http.StatusBadRequest, "comment required", err.Error())
	case errors.Is(err, workflow.ErrConcurrentConflict):
		Error(c, http.StatusConflict, "concurrent modification, reload and retry", err.Error())
	case errors.Is(err, workflow.ErrUnknownVariant):
		Error(c, http.StatusBadRequest, "unknown variant", err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		Error(c, http.StatusNotFound, "not found", err.Error())
	default:
		Error(c, http.StatusInternalServerError, "internal server error", err.Error())
	}
}
