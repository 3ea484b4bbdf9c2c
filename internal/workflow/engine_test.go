package workflow_test

import (
	"testing"
	"time"

	"github.com/siteops/opsflow-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActor(id string, caps ...workflow.Capability) *workflow.Actor {
	m := make(map[workflow.Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return &workflow.Actor{ID: id, Capabilities: m}
}

// TestEngine_NewEntity 测试按变体初始状态创建实体
func TestEngine_NewEntity(t *testing.T) {
	engine := workflow.NewEngine()

	e, err := engine.NewEntity(workflow.KindPpeRequest, "user-001")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, e.Status)
	assert.Equal(t, "user-001", e.RequesterID)
	assert.Equal(t, int64(1), e.Revision)
	assert.True(t, e.ViewedBy["user-001"], "创建人默认已读")

	task, err := engine.NewEntity(workflow.KindTask, "user-001")
	require.NoError(t, err)
	assert.Equal(t, workflow.TaskToDo, task.Status)

	ts, err := engine.NewEntity(workflow.KindTimesheet, "user-001")
	require.NoError(t, err)
	assert.Equal(t, workflow.TimesheetPending, ts.Status)
}

// TestEngine_NewEntity_UnknownVariant 测试未注册变体报错
func TestEngine_NewEntity_UnknownVariant(t *testing.T) {
	engine := workflow.NewEngine()

	_, err := engine.NewEntity("vacation_request", "user-001")
	assert.ErrorIs(t, err, workflow.ErrUnknownVariant)
}

// TestEngine_Apply_MissingActor 测试缺失 Actor 时拒绝执行
func TestEngine_Apply_MissingActor(t *testing.T) {
	engine := workflow.NewEngine()
	e, err := engine.NewEntity(workflow.KindPpeRequest, "user-001")
	require.NoError(t, err)

	_, err = engine.Apply(e, workflow.Action{Kind: workflow.ActionApprove}, nil)
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	_, err = engine.Apply(e, workflow.Action{Kind: workflow.ActionApprove}, &workflow.Actor{})
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)
}

// TestEngine_Apply_UnknownVariant 测试变体未注册的实体
func TestEngine_Apply_UnknownVariant(t *testing.T) {
	engine := workflow.NewEngine()
	e := &workflow.Entity{ID: "e-001", Kind: "vacation_request", Status: "Pending"}

	_, err := engine.Apply(e, workflow.Action{Kind: workflow.ActionApprove}, newActor("user-001", workflow.CapApprove))
	assert.ErrorIs(t, err, workflow.ErrUnknownVariant)
}

// TestEngine_Apply_FailureLeavesEntityUnchanged 测试失败时原实体不变
func TestEngine_Apply_FailureLeavesEntityUnchanged(t *testing.T) {
	engine := workflow.NewEngine()
	e, err := engine.NewEntity(workflow.KindPpeRequest, "user-001")
	require.NoError(t, err)
	e.ID = "e-001"

	// reject 要求评论,未提供时失败
	_, err = engine.Apply(e, workflow.Action{Kind: workflow.ActionReject}, newActor("boss", workflow.CapApprove))
	assert.ErrorIs(t, err, workflow.ErrCommentRequired)
	assert.Equal(t, workflow.StatusPending, e.Status, "失败后状态不变")
	assert.Equal(t, int64(1), e.Revision, "失败后版本号不变")
	assert.Empty(t, e.Comments)
}

// TestEngine_Apply_Comment 测试纯评论动作: 状态不变,版本号递增
func TestEngine_Apply_Comment(t *testing.T) {
	engine := workflow.NewEngine()
	e, err := engine.NewEntity(workflow.KindPpeRequest, "user-001")
	require.NoError(t, err)
	e.ID = "e-001"
	e.ApproverID = "boss"

	out, err := engine.Apply(e, workflow.Action{Kind: workflow.ActionComment, Comment: "请尽快处理"}, newActor("user-001"))
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusPending, out.Entity.Status, "评论不改变状态")
	assert.Equal(t, int64(2), out.Entity.Revision)
	require.Len(t, out.Entity.Comments, 1)
	assert.Equal(t, "user-001", out.Entity.Comments[0].UserID)
	assert.Equal(t, "请尽快处理", out.Entity.Comments[0].Text)

	require.Len(t, out.Events, 1)
	assert.Equal(t, workflow.EventCommentAdded, out.Events[0].Type)
	assert.Equal(t, []string{"boss"}, out.Events[0].Recipients, "通知对象不含动作执行者")

	// 其他参与者的已读标记被重置
	assert.True(t, out.Entity.ViewedBy["user-001"])
	assert.False(t, out.Entity.ViewedBy["boss"])
}

// TestEngine_Apply_Comment_EmptyText 测试空评论被拒绝
func TestEngine_Apply_Comment_EmptyText(t *testing.T) {
	engine := workflow.NewEngine()
	e, err := engine.NewEntity(workflow.KindPpeRequest, "user-001")
	require.NoError(t, err)

	_, err = engine.Apply(e, workflow.Action{Kind: workflow.ActionComment, Comment: "   "}, newActor("user-001"))
	assert.ErrorIs(t, err, workflow.ErrCommentRequired)
}

// TestEngine_Apply_Comment_NonParticipant 测试非参与者无权评论
func TestEngine_Apply_Comment_NonParticipant(t *testing.T) {
	engine := workflow.NewEngine()
	e, err := engine.NewEntity(workflow.KindPpeRequest, "user-001")
	require.NoError(t, err)

	_, err = engine.Apply(e, workflow.Action{Kind: workflow.ActionComment, Comment: "路过"}, newActor("stranger"))
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	// 持有审批能力的用户即使不是参与者也可评论
	_, err = engine.Apply(e, workflow.Action{Kind: workflow.ActionComment, Comment: "已知悉"}, newActor("boss", workflow.CapApprove))
	assert.NoError(t, err)
}

// TestEngine_MarkViewed 测试已读标记幂等性
func TestEngine_MarkViewed(t *testing.T) {
	engine := workflow.NewEngine()
	e, err := engine.NewEntity(workflow.KindPpeRequest, "user-001")
	require.NoError(t, err)
	e.ApproverID = "boss"

	marked := engine.MarkViewed(e, "boss")
	assert.NotSame(t, e, marked, "首次标记返回副本")
	assert.True(t, marked.ViewedBy["boss"])
	assert.False(t, e.ViewedBy["boss"], "原实体不变")

	// 重复标记直接返回原实体
	again := engine.MarkViewed(marked, "boss")
	assert.Same(t, marked, again)
}

// TestEngine_WithClock 测试注入时钟
func TestEngine_WithClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	engine := workflow.NewEngine(workflow.WithClock(func() time.Time { return fixed }))

	e, err := engine.NewEntity(workflow.KindPpeRequest, "user-001")
	require.NoError(t, err)
	e.ID = "e-001"

	out, err := engine.Apply(e, workflow.Action{Kind: workflow.ActionComment, Comment: "记录"}, newActor("user-001"))
	require.NoError(t, err)
	assert.Equal(t, fixed, out.Entity.Comments[0].Date)
	assert.Equal(t, fixed, out.Events[0].OccurredAt)
}

// TestEngine_Register 测试自定义变体覆盖内置变体
func TestEngine_Register(t *testing.T) {
	engine := workflow.NewEngine()

	_, ok := engine.Variant(workflow.KindTask)
	assert.True(t, ok)
	_, ok = engine.Variant("vacation_request")
	assert.False(t, ok)
}
