package service

import (
	"context"
	"encoding/json"

	"github.com/siteops/opsflow-gin/internal/workflow"
)

// CreateTimesheetInput 创建工时单入参
type CreateTimesheetInput struct {
	ApproverID string          `json:"approver_id"`
	Payload    json.RawMessage `json:"payload"`
}

// TimesheetService 工时单服务
// 工时单经两级确认: 现场处理人确认后转办公室,办公室确认或驳回
type TimesheetService interface {
	Create(ctx context.Context, input *CreateTimesheetInput) (*workflow.Entity, error)
	Get(id string) (*workflow.Entity, error)
	Acknowledge(ctx context.Context, id string, comment string) (*workflow.Entity, error)
	SendToOffice(ctx context.Context, id string, comment string) (*workflow.Entity, error)
	OfficeAcknowledge(ctx context.Context, id string, comment string) (*workflow.Entity, error)
	Reject(ctx context.Context, id string, comment string) (*workflow.Entity, error)
	// Reply 提交人答复驳回,工时单回到已确认状态重走办公室流程
	Reply(ctx context.Context, id string, comment string) (*workflow.Entity, error)
	Reopen(ctx context.Context, id string, comment string) (*workflow.Entity, error)
}

// timesheetService 工时单服务实现
type timesheetService struct {
	core WorkflowService
}

// NewTimesheetService 创建工时单服务
func NewTimesheetService(core WorkflowService) TimesheetService {
	return &timesheetService{core: core}
}

// Create 创建工时单
func (s *timesheetService) Create(ctx context.Context, input *CreateTimesheetInput) (*workflow.Entity, error) {
	return s.core.Create(ctx, &CreateEntityRequest{
		Kind:       workflow.KindTimesheet,
		ApproverID: input.ApproverID,
		Payload:    input.Payload,
	})
}

// Get 获取工时单详情
func (s *timesheetService) Get(id string) (*workflow.Entity, error) {
	return s.core.Get(id)
}

// Acknowledge 现场处理人确认
func (s *timesheetService) Acknowledge(ctx context.Context, id string, comment string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionAcknowledge,
		Comment: comment,
	})
}

// SendToOffice 转交办公室
func (s *timesheetService) SendToOffice(ctx context.Context, id string, comment string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionSendToOffice,
		Comment: comment,
	})
}

// OfficeAcknowledge 办公室确认,工时单进入终态
func (s *timesheetService) OfficeAcknowledge(ctx context.Context, id string, comment string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionOfficeAcknowledge,
		Comment: comment,
	})
}

// Reject 办公室驳回,必须附评论
func (s *timesheetService) Reject(ctx context.Context, id string, comment string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionReject,
		Comment: comment,
	})
}

// Reply 提交人答复驳回,必须附评论
func (s *timesheetService) Reply(ctx context.Context, id string, comment string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionReply,
		Comment: comment,
	})
}

// Reopen 重开已归档工时单
func (s *timesheetService) Reopen(ctx context.Context, id string, comment string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionReopen,
		Comment: comment,
	})
}
