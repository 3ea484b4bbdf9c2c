package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/siteops/opsflow-gin/internal/service"
	"github.com/siteops/opsflow-gin/internal/utils"
)

// ActivityController 评论与活动控制器,对所有变体生效
type ActivityController struct {
	activityService service.ActivityService
}

// NewActivityController 创建评论与活动控制器
func NewActivityController(activityService service.ActivityService) *ActivityController {
	return &ActivityController{
		activityService: activityService,
	}
}

// AddComment 追加评论
func (c *ActivityController) AddComment(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}

	var body commentBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	text, err := utils.TrimAndValidate(body.Comment, 4000)
	if err != nil {
		Error(ctx, http.StatusBadRequest, "invalid comment", err.Error())
		return
	}

	entity, err := c.activityService.Comment(ctx.Request.Context(), id, text)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// ListComments 列出评论
func (c *ActivityController) ListComments(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}

	comments, err := c.activityService.ListComments(id)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, comments)
}

// Timeline 活动时间线: 评论与状态变更按时间合并
func (c *ActivityController) Timeline(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}

	items, err := c.activityService.Timeline(id)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, items)
}

// MarkViewed 标记当前用户已读
func (c *ActivityController) MarkViewed(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}

	if err := c.activityService.MarkViewed(ctx.Request.Context(), id); err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, gin.H{"viewed": true})
}
