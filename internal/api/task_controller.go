package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/siteops/opsflow-gin/internal/service"
)

// TaskController 任务控制器
type TaskController struct {
	taskService service.TaskService
}

// NewTaskController 创建任务控制器
func NewTaskController(taskService service.TaskService) *TaskController {
	return &TaskController{
		taskService: taskService,
	}
}

// Create 创建任务
func (c *TaskController) Create(ctx *gin.Context) {
	var input service.CreateTaskInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	entity, err := c.taskService.Create(ctx.Request.Context(), &input)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// Get 获取任务详情
func (c *TaskController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}

	entity, err := c.taskService.Get(id)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// UpdateSubtask 更新当前用户的子任务状态
func (c *TaskController) UpdateSubtask(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}

	var input service.UpdateSubtaskInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	entity, err := c.taskService.UpdateSubtask(ctx.Request.Context(), id, &input)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// Submit 提交任务完成
func (c *TaskController) Submit(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}

	entity, err := c.taskService.Submit(ctx.Request.Context(), id)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// Approve 审批人确认完成
func (c *TaskController) Approve(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}
	comment, ok := bindComment(ctx)
	if !ok {
		return
	}

	entity, err := c.taskService.Approve(ctx.Request.Context(), id, comment)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// Return 审批人退回任务
func (c *TaskController) Return(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}
	comment, ok := bindComment(ctx)
	if !ok {
		return
	}

	entity, err := c.taskService.Return(ctx.Request.Context(), id, comment)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}

// Reopen 重开已完成任务
func (c *TaskController) Reopen(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}
	comment, ok := bindComment(ctx)
	if !ok {
		return
	}

	entity, err := c.taskService.Reopen(ctx.Request.Context(), id, comment)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, entity)
}
