package service_test

import (
	"testing"

	"github.com/siteops/opsflow-gin/internal/service"
	"github.com/siteops/opsflow-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStatisticsService_EntityStatistics 测试按变体与状态统计
func TestStatisticsService_EntityStatistics(t *testing.T) {
	core, db := newWorkflowService(t)
	svc := service.NewStatisticsService(db)

	for i := 0; i < 2; i++ {
		_, err := core.Create(actorCtx("user-001"), &service.CreateEntityRequest{
			Kind:       workflow.KindPpeRequest,
			ApproverID: "boss",
		})
		require.NoError(t, err)
	}
	e, err := core.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind:       workflow.KindInternalRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)
	_, err = core.Apply(actorCtx("boss", workflow.CapApprove), e.ID, workflow.Action{Kind: workflow.ActionApprove})
	require.NoError(t, err)

	byKind, err := svc.GetEntityStatisticsByKind()
	require.NoError(t, err)
	counts := make(map[string]int64)
	for _, s := range byKind {
		counts[s.Kind] = s.Count
	}
	assert.Equal(t, int64(2), counts["ppe_request"])
	assert.Equal(t, int64(1), counts["internal_request"])

	byStatus, err := svc.GetEntityStatisticsByStatus("")
	require.NoError(t, err)
	statusCounts := make(map[string]int64)
	for _, s := range byStatus {
		statusCounts[s.Status] = s.Count
	}
	assert.Equal(t, int64(2), statusCounts["Pending"])
	assert.Equal(t, int64(1), statusCounts["Approved"])

	// 按变体过滤
	byStatus, err = svc.GetEntityStatisticsByStatus("internal_request")
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "Approved", byStatus[0].Status)

	byTime, err := svc.GetEntityStatisticsByTime()
	require.NoError(t, err)
	require.Len(t, byTime, 1, "同一天创建的实体聚合为一条")
	assert.Equal(t, int64(3), byTime[0].Count)
}

// TestStatisticsService_ApprovalStatistics 测试审批比例统计
func TestStatisticsService_ApprovalStatistics(t *testing.T) {
	core, db := newWorkflowService(t)
	svc := service.NewStatisticsService(db)

	approved, err := core.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind: workflow.KindPpeRequest, ApproverID: "boss",
	})
	require.NoError(t, err)
	_, err = core.Apply(actorCtx("boss", workflow.CapApprove), approved.ID, workflow.Action{Kind: workflow.ActionApprove})
	require.NoError(t, err)

	rejected, err := core.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind: workflow.KindPpeRequest, ApproverID: "boss",
	})
	require.NoError(t, err)
	_, err = core.Apply(actorCtx("boss", workflow.CapApprove), rejected.ID, workflow.Action{
		Kind: workflow.ActionReject, Comment: "不需要",
	})
	require.NoError(t, err)

	stats, err := svc.GetApprovalStatistics()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ApprovedCount)
	assert.Equal(t, int64(1), stats.RejectedCount)
	assert.InDelta(t, 50.0, stats.ApprovalRate, 0.01)
	// 创建事件也计入总转换数
	assert.Equal(t, int64(4), stats.TotalTransitions)
}
