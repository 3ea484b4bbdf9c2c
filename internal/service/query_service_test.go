package service_test

import (
	"testing"

	"github.com/siteops/opsflow-gin/internal/service"
	"github.com/siteops/opsflow-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQueryService_ListEntities 测试实体列表过滤与分页
func TestQueryService_ListEntities(t *testing.T) {
	core, db := newWorkflowService(t)
	querySvc := service.NewQueryService(db)

	for i := 0; i < 3; i++ {
		_, err := core.Create(actorCtx("user-001"), &service.CreateEntityRequest{
			Kind:       workflow.KindPpeRequest,
			ApproverID: "boss",
		})
		require.NoError(t, err)
	}
	_, err := core.Create(actorCtx("user-002"), &service.CreateEntityRequest{
		Kind:       workflow.KindTask,
		ApproverID: "boss",
		Assignees:  []string{"user-002"},
	})
	require.NoError(t, err)

	kind := string(workflow.KindPpeRequest)
	summaries, total, err := querySvc.ListEntities(&service.ListEntitiesFilter{Kind: &kind})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, summaries, 3)

	// 分页: 每页 2 条,第二页剩 1 条
	summaries, total, err = querySvc.ListEntities(&service.ListEntitiesFilter{Kind: &kind, Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, summaries, 1)

	// 按请求人过滤
	requester := "user-002"
	summaries, total, err = querySvc.ListEntities(&service.ListEntitiesFilter{RequesterID: &requester})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, summaries, 1)
	assert.Equal(t, string(workflow.KindTask), summaries[0].Kind)
}

// TestQueryService_ListEntities_InvalidSort 测试非法排序字段被拒绝
func TestQueryService_ListEntities_InvalidSort(t *testing.T) {
	_, db := newWorkflowService(t)
	querySvc := service.NewQueryService(db)

	_, _, err := querySvc.ListEntities(&service.ListEntitiesFilter{SortBy: "status; DROP TABLE workflow_entities"})
	assert.Error(t, err)

	_, _, err = querySvc.ListEntities(&service.ListEntitiesFilter{Order: "random()"})
	assert.Error(t, err)
}

// TestQueryService_GetHistory 测试状态历史查询
func TestQueryService_GetHistory(t *testing.T) {
	core, db := newWorkflowService(t)
	querySvc := service.NewQueryService(db)

	e, err := core.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind:       workflow.KindPpeRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)
	_, err = core.Apply(actorCtx("boss", workflow.CapApprove), e.ID, workflow.Action{Kind: workflow.ActionApprove})
	require.NoError(t, err)

	histories, err := querySvc.GetHistory(e.ID)
	require.NoError(t, err)
	require.Len(t, histories, 2)
	assert.Equal(t, "Pending", histories[0].ToState)
	assert.Equal(t, "Approved", histories[1].ToState)
	assert.Equal(t, "boss", histories[1].Operator)
}

// TestQueryService_Inbox 测试收件箱: 仅返回未读的参与实体
func TestQueryService_Inbox(t *testing.T) {
	core, db := newWorkflowService(t)
	querySvc := service.NewQueryService(db)

	e, err := core.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind:       workflow.KindPpeRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)

	// 审批后请求人的已读标记被重置,进入其收件箱
	_, err = core.Apply(actorCtx("boss", workflow.CapApprove), e.ID, workflow.Action{Kind: workflow.ActionApprove})
	require.NoError(t, err)

	inbox, err := querySvc.Inbox("user-001")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, e.ID, inbox[0].ID)

	// 动作执行者自己不收到未读
	inbox, err = querySvc.Inbox("boss")
	require.NoError(t, err)
	assert.Empty(t, inbox)

	// 标记已读后收件箱清空
	require.NoError(t, core.MarkViewed(actorCtx("user-001"), e.ID))
	inbox, err = querySvc.Inbox("user-001")
	require.NoError(t, err)
	assert.Empty(t, inbox)
}

// TestValidateFilterKind 测试变体过滤值校验
func TestValidateFilterKind(t *testing.T) {
	assert.NoError(t, service.ValidateFilterKind("ppe_request"))
	assert.NoError(t, service.ValidateFilterKind("timesheet"))
	assert.Error(t, service.ValidateFilterKind("vacation_request"))
	assert.Error(t, service.ValidateFilterKind(""))
}
