package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/siteops/opsflow-gin/internal/workflow"
)

// CreateRequestInput 创建审批请求入参
type CreateRequestInput struct {
	Kind       workflow.VariantKind `json:"kind" binding:"required"`
	ApproverID string               `json:"approver_id"`
	Payload    json.RawMessage      `json:"payload"`
}

// IssueInput 发放入参: 物资请求发放时附带库存扣减信息
type IssueInput struct {
	Comment  string `json:"comment"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// ResolveInput 争议裁决入参
type ResolveInput struct {
	Resolution string `json:"resolution" binding:"required"` // reissue | reverse
	Comment    string `json:"comment" binding:"required"`
}

// RequestService 审批请求服务
// 覆盖三类请求变体: 物资请求、内部请求、日志本请求
type RequestService interface {
	Create(ctx context.Context, input *CreateRequestInput) (*workflow.Entity, error)
	Get(id string) (*workflow.Entity, error)
	Approve(ctx context.Context, id string, comment string) (*workflow.Entity, error)
	Reject(ctx context.Context, id string, comment string) (*workflow.Entity, error)
	Issue(ctx context.Context, id string, input *IssueInput) (*workflow.Entity, error)
	Dispute(ctx context.Context, id string, comment string) (*workflow.Entity, error)
	Resolve(ctx context.Context, id string, input *ResolveInput) (*workflow.Entity, error)
	Reopen(ctx context.Context, id string, comment string) (*workflow.Entity, error)
}

// requestService 审批请求服务实现
type requestService struct {
	core WorkflowService
}

// NewRequestService 创建审批请求服务
func NewRequestService(core WorkflowService) RequestService {
	return &requestService{core: core}
}

// requestKinds 本服务接受的变体
var requestKinds = map[workflow.VariantKind]bool{
	workflow.KindPpeRequest:      true,
	workflow.KindInternalRequest: true,
	workflow.KindLogbookRequest:  true,
}

// Create 创建审批请求
func (s *requestService) Create(ctx context.Context, input *CreateRequestInput) (*workflow.Entity, error) {
	if !requestKinds[input.Kind] {
		return nil, fmt.Errorf("%w: %s", workflow.ErrUnknownVariant, input.Kind)
	}
	return s.core.Create(ctx, &CreateEntityRequest{
		Kind:       input.Kind,
		ApproverID: input.ApproverID,
		Payload:    input.Payload,
	})
}

// Get 获取请求详情
func (s *requestService) Get(id string) (*workflow.Entity, error) {
	return s.core.Get(id)
}

// Approve 批准请求
func (s *requestService) Approve(ctx context.Context, id string, comment string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionApprove,
		Comment: comment,
	})
}

// Reject 拒绝请求,必须附评论
func (s *requestService) Reject(ctx context.Context, id string, comment string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionReject,
		Comment: comment,
	})
}

// Issue 发放已批准的请求
func (s *requestService) Issue(ctx context.Context, id string, input *IssueInput) (*workflow.Entity, error) {
	payload := map[string]string{}
	if input.ItemID != "" {
		payload["item_id"] = input.ItemID
		payload["quantity"] = strconv.Itoa(input.Quantity)
	}
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionIssue,
		Comment: input.Comment,
		Payload: payload,
	})
}

// Dispute 请求人对发放结果提出争议,必须附评论
func (s *requestService) Dispute(ctx context.Context, id string, comment string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionDispute,
		Comment: comment,
	})
}

// Resolve 裁决争议: reissue 重新发放,reverse 撤销
func (s *requestService) Resolve(ctx context.Context, id string, input *ResolveInput) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionResolve,
		Comment: input.Comment,
		Payload: map[string]string{"resolution": input.Resolution},
	})
}

// Reopen 重开终态请求,产生关联的新请求
func (s *requestService) Reopen(ctx context.Context, id string, comment string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, id, workflow.Action{
		Kind:    workflow.ActionReopen,
		Comment: comment,
	})
}
