package service_test

import (
	"testing"

	"github.com/siteops/opsflow-gin/internal/repository"
	"github.com/siteops/opsflow-gin/internal/service"
	"github.com/siteops/opsflow-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newActivityService(t *testing.T) (service.ActivityService, service.WorkflowService, *gorm.DB) {
	t.Helper()
	core, db := newWorkflowService(t)
	svc := service.NewActivityService(
		core,
		repository.NewCommentRepository(db),
		repository.NewStateHistoryRepository(db),
	)
	return svc, core, db
}

// TestActivityService_Comment 测试评论: 状态不变,出箱产生通知
func TestActivityService_Comment(t *testing.T) {
	svc, core, _ := newActivityService(t)

	e, err := core.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind:       workflow.KindPpeRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)

	updated, err := svc.Comment(actorCtx("user-001"), e.ID, "麻烦尽快审批")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, updated.Status)
	assert.Equal(t, int64(2), updated.Revision)

	comments, err := svc.ListComments(e.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "麻烦尽快审批", comments[0].Text)
	assert.Equal(t, "user-001", comments[0].UserID)
}

// TestActivityService_Comment_NonParticipant 测试非参与者评论被拒
func TestActivityService_Comment_NonParticipant(t *testing.T) {
	svc, core, _ := newActivityService(t)

	e, err := core.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind:       workflow.KindPpeRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)

	_, err = svc.Comment(actorCtx("stranger"), e.ID, "围观")
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)
}

// TestActivityService_Timeline 测试时间线: 评论与状态变更按时间合并
func TestActivityService_Timeline(t *testing.T) {
	svc, core, _ := newActivityService(t)

	e, err := core.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind:       workflow.KindPpeRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)

	_, err = svc.Comment(actorCtx("user-001"), e.ID, "第一条评论")
	require.NoError(t, err)

	_, err = core.Apply(actorCtx("boss", workflow.CapApprove), e.ID, workflow.Action{
		Kind: workflow.ActionApprove, Comment: "同意",
	})
	require.NoError(t, err)

	items, err := svc.Timeline(e.ID)
	require.NoError(t, err)
	// 创建转换 + 评论 + 审批评论 + 审批转换
	require.Len(t, items, 4)

	var transitions, comments int
	for _, item := range items {
		switch item.Type {
		case "transition":
			transitions++
		case "comment":
			comments++
		}
	}
	assert.Equal(t, 2, transitions)
	assert.Equal(t, 2, comments)

	// 时间线按时间升序
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].CreatedAt.Before(items[i-1].CreatedAt))
	}
}
