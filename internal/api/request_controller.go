package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/siteops/opsflow-gin/internal/service"
	"github.com/siteops/opsflow-gin/internal/utils"
)

// commentBody 携带评论的动作请求体
type commentBody struct {
	Comment string `json:"comment"`
}

// RequestController 审批请求控制器
// 覆盖物资请求、内部请求、日志本请求三类变体
type RequestController struct {
	requestService service.RequestService
}

// NewRequestController 创建审批请求控制器
func NewRequestController(requestService service.RequestService) *RequestController {
	return &RequestController{
		requestService: requestService,
	}
}

// validateID 验证实体 ID 并返回错误响应 (如果无效)
func validateID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateEntityID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid entity ID", err.Error())
		return false
	}
	return true
}

// bindComment 绑定评论请求体,body 为空时返回空评论
func bindComment(ctx *gin.Context) (string, bool) {
	var body commentBody
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&body); err != nil {
			Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
			return "", false
		}
	}
	return body.Comment, true
}

// Create 创建审批请求
func (c *RequestController) Create(ctx *gin.Context) {
	var input service.CreateRequestInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	entity, err := c.requestService.Create(ctx.Request.Context(), &input)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// Get 获取请求详情
func (c *RequestController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}

	entity, err := c.requestService.Get(id)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// Approve 批准请求
func (c *RequestController) Approve(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}
	comment, ok := bindComment(ctx)
	if !ok {
		return
	}

	entity, err := c.requestService.Approve(ctx.Request.Context(), id, comment)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// Reject 拒绝请求
func (c *RequestController) Reject(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}
	comment, ok := bindComment(ctx)
	if !ok {
		return
	}

	entity, err := c.requestService.Reject(ctx.Request.Context(), id, comment)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// Issue 发放已批准的请求
func (c *RequestController) Issue(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}

	var input service.IssueInput
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&input); err != nil {
			Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
			return
		}
	}

	entity, err := c.requestService.Issue(ctx.Request.Context(), id, &input)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// Dispute 请求人对发放结果提出争议
func (c *RequestController) Dispute(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}
	comment, ok := bindComment(ctx)
	if !ok {
		return
	}

	entity, err := c.requestService.Dispute(ctx.Request.Context(), id, comment)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// Resolve 裁决争议
func (c *RequestController) Resolve(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}

	var input service.ResolveInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	entity, err := c.requestService.Resolve(ctx.Request.Context(), id, &input)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// Reopen 重开终态请求
func (c *RequestController) Reopen(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}
	comment, ok := bindComment(ctx)
	if !ok {
		return
	}

	entity, err := c.requestService.Reopen(ctx.Request.Context(), id, comment)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}
