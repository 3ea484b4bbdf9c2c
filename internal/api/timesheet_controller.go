package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/siteops/opsflow-gin/internal/service"
	"github.com/siteops/opsflow-gin/internal/workflow"
)

// TimesheetController 工时单控制器
type TimesheetController struct {
	timesheetService service.TimesheetService
}

// NewTimesheetController 创建工时单控制器
func NewTimesheetController(timesheetService service.TimesheetService) *TimesheetController {
	return &TimesheetController{
		timesheetService: timesheetService,
	}
}

// Create 创建工时单
func (c *TimesheetController) Create(ctx *gin.Context) {
	var input service.CreateTimesheetInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	entity, err := c.timesheetService.Create(ctx.Request.Context(), &input)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// Get 获取工时单详情
func (c *TimesheetController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}

	entity, err := c.timesheetService.Get(id)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// Acknowledge 现场处理人确认
func (c *TimesheetController) Acknowledge(ctx *gin.Context) {
	c.apply(ctx, c.timesheetService.Acknowledge)
}

// SendToOffice 转交办公室
func (c *TimesheetController) SendToOffice(ctx *gin.Context) {
	c.apply(ctx, c.timesheetService.SendToOffice)
}

// OfficeAcknowledge 办公室确认
func (c *TimesheetController) OfficeAcknowledge(ctx *gin.Context) {
	c.apply(ctx, c.timesheetService.OfficeAcknowledge)
}

// Reject 办公室驳回
func (c *TimesheetController) Reject(ctx *gin.Context) {
	c.apply(ctx, c.timesheetService.Reject)
}

// Reply 提交人答复驳回
func (c *TimesheetController) Reply(ctx *gin.Context) {
	c.apply(ctx, c.timesheetService.Reply)
}

// Reopen 重开已归档工时单
func (c *TimesheetController) Reopen(ctx *gin.Context) {
	c.apply(ctx, c.timesheetService.Reopen)
}

// apply 工时单动作的共同骨架: 校验 ID、绑定评论、调用服务
func (c *TimesheetController) apply(ctx *gin.Context, fn func(reqCtx context.Context, id, comment string) (*workflow.Entity, error)) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}
	comment, ok := bindComment(ctx)
	if !ok {
		return
	}

	entity, err := fn(ctx.Request.Context(), id, comment)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}
