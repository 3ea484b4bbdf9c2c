package service

import (
	"context"
	"encoding/json"

	"github.com/siteops/opsflow-gin/internal/workflow"
)

// CreateTaskInput 创建任务入参
type CreateTaskInput struct {
	ApproverID string          `json:"approver_id" binding:"required"`
	Assignees  []string        `json:"assignees" binding:"required,min=1"`
	Payload    json.RawMessage `json:"payload"`
}

// UpdateSubtaskInput 更新子任务状态入参
type UpdateSubtaskInput struct {
	Status string `json:"status" binding:"required"` // To Do | In Progress | Done
}

// TaskService 任务服务
// 任务状态由各指派人的子任务状态聚合得出,完成需审批人确认
type TaskService interface {
	Create(ctx context.Context, input *CreateTaskInput) (*workflow.Entity, error)
	Get(id string) (*workflow.Entity, error)
	UpdateSubtask(ctx context.Context, id string, input *UpdateSubtaskInput) (*workflow.Entity, error)
	// Submit 提交完成: 将提交人的子任务置为 Done,全部完成时进入待审批
	Submit(ctx context.Context, id string) (*workflow.Entity, error)
	Approve(ctx context.Context, id string, comment string) (*workflow.Entity, error)
	// Return 审批人退回,提交人的子任务回到进行中
	Return(ctx context.Context, id string, comment string) (*workflow.Entity, error)
	Reopen(ctx context.Context, id string, comment string) (*workflow.Entity, error)
}

// taskService 任务服务实现
type taskService struct {
	core WorkflowService
}

// NewTaskService 创建任务服务
func NewTaskService(core WorkflowService) TaskService {
	return &taskService{core: core}
}

// Create 创建任务
func (s *taskService) Create(ctx context.Context, input *CreateTaskInput) (*workflow.Entity, error) {
	return s.core.Create(ctx, &CreateEntityRequest{
		Kind:       workflow.KindTask,
		ApproverID: input.ApproverID,
		Assignees:  input.Assignees,
		Payload:    input.Payload,
	})
}

// Get 获取任务详情
func (s *taskService) Get(id string) (*workflow.Entity, error) {
	return s.core.Get(id)
}

// UpdateSubtask 指派人更新自己的子任务状态,任务状态随之重新聚合
func (s *taskService) UpdateSubtask(ctx context.Context, id string, input *UpdateSubtaskInput) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionUpdateSubtask,
		Payload: map[string]string{"status": input.Status},
	})
}

// Submit 提交任务完成
func (s *taskService) Submit(ctx context.Context, id string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind: workflow.ActionSubmit,
	})
}

// Approve 审批人确认任务完成
func (s *taskService) Approve(ctx context.Context, id string, comment string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionApprove,
		Comment: comment,
	})
}

// Return 审批人退回任务,必须附评论
func (s *taskService) Return(ctx context.Context, id string, comment string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionReturn,
		Comment: comment,
	})
}

// Reopen 重开已完成任务,产生子任务全部重置的新任务
func (s *taskService) Reopen(ctx context.Context, id string, comment string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionReopen,
		Comment: comment,
	})
}
