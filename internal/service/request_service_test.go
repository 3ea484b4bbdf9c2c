package service_test

import (
	"testing"

	"github.com/siteops/opsflow-gin/internal/model"
	"github.com/siteops/opsflow-gin/internal/service"
	"github.com/siteops/opsflow-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRequestService_Lifecycle 测试物资请求全流程: 创建→批准→发放→争议→重发
func TestRequestService_Lifecycle(t *testing.T) {
	core, db := newWorkflowService(t)
	svc := service.NewRequestService(core)

	require.NoError(t, db.Create(&model.StockItemModel{ID: "helmet-01", Name: "安全帽", Quantity: 10}).Error)

	e, err := svc.Create(actorCtx("user-001"), &service.CreateRequestInput{
		Kind:       workflow.KindPpeRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, e.Status)

	e, err = svc.Approve(actorCtx("boss", workflow.CapApprove), e.ID, "")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, e.Status)

	e, err = svc.Issue(actorCtx("keeper", workflow.CapIssue), e.ID, &service.IssueInput{
		ItemID: "helmet-01", Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusIssued, e.Status)

	e, err = svc.Dispute(actorCtx("user-001"), e.ID, "尺寸不对")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDisputed, e.Status)

	e, err = svc.Resolve(actorCtx("keeper", workflow.CapIssue), e.ID, &service.ResolveInput{
		Resolution: workflow.ResolutionReissue, Comment: "更换尺寸重新发放",
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusIssued, e.Status)

	// 争议重发追加第二条发放历史
	var count int64
	db.Model(&model.PpeHistoryModel{}).Where("request_id = ?", e.ID).Count(&count)
	assert.Equal(t, int64(2), count)
}

// TestRequestService_Create_RejectsNonRequestKind 测试任务类变体不走请求服务
func TestRequestService_Create_RejectsNonRequestKind(t *testing.T) {
	core, _ := newWorkflowService(t)
	svc := service.NewRequestService(core)

	_, err := svc.Create(actorCtx("user-001"), &service.CreateRequestInput{Kind: workflow.KindTask})
	assert.ErrorIs(t, err, workflow.ErrUnknownVariant)

	_, err = svc.Create(actorCtx("user-001"), &service.CreateRequestInput{Kind: workflow.KindTimesheet})
	assert.ErrorIs(t, err, workflow.ErrUnknownVariant)
}

// TestRequestService_RejectThenReopen 测试拒绝后重开产生新请求
func TestRequestService_RejectThenReopen(t *testing.T) {
	core, db := newWorkflowService(t)
	svc := service.NewRequestService(core)

	e, err := svc.Create(actorCtx("user-001"), &service.CreateRequestInput{
		Kind:       workflow.KindInternalRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)

	_, err = svc.Reject(actorCtx("boss", workflow.CapApprove), e.ID, "预算不足")
	require.NoError(t, err)

	_, err = svc.Reopen(actorCtx("admin", workflow.CapReopen), e.ID, "下季度预算已批")
	require.NoError(t, err)

	var reopened model.EntityModel
	require.NoError(t, db.Where("reopened_from = ?", e.ID).First(&reopened).Error)
	assert.Equal(t, string(workflow.KindInternalRequest), reopened.Kind)
	assert.Equal(t, "Pending", reopened.Status)
}
