package service_test

import (
	"context"
	"testing"

	"github.com/siteops/opsflow-gin/internal/model"
	"github.com/siteops/opsflow-gin/internal/repository"
	"github.com/siteops/opsflow-gin/internal/service"
	"github.com/siteops/opsflow-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDBForService 创建服务层测试数据库
func setupTestDBForService(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.EntityModel{},
		&model.CommentModel{},
		&model.ViewFlagModel{},
		&model.StateHistoryModel{},
		&model.OutboxModel{},
		&model.StockItemModel{},
		&model.PpeHistoryModel{},
		&model.AuditLogModel{},
	)
	require.NoError(t, err)

	return db
}

func newWorkflowService(t *testing.T) (service.WorkflowService, *gorm.DB) {
	t.Helper()
	db := setupTestDBForService(t)
	auditSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	svc := service.NewWorkflowService(db, workflow.NewEngine(), nil, auditSvc)
	return svc, db
}

func actorCtx(id string, caps ...workflow.Capability) context.Context {
	m := make(map[workflow.Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return service.ContextWithActor(context.Background(), &workflow.Actor{ID: id, Capabilities: m})
}

// TestWorkflowService_Create 测试创建实体并落库
func TestWorkflowService_Create(t *testing.T) {
	svc, db := newWorkflowService(t)

	e, err := svc.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind:       workflow.KindPpeRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, workflow.StatusPending, e.Status)
	assert.Equal(t, "user-001", e.RequesterID)

	// 创建事件写入状态历史
	var count int64
	db.Model(&model.StateHistoryModel{}).Where("entity_id = ?", e.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	// 审计日志落库
	db.Model(&model.AuditLogModel{}).Where("resource_id = ? AND action = ?", e.ID, "create").Count(&count)
	assert.Equal(t, int64(1), count)
}

// TestWorkflowService_Create_MissingActor 测试无 Actor 时拒绝创建
func TestWorkflowService_Create_MissingActor(t *testing.T) {
	svc, _ := newWorkflowService(t)

	_, err := svc.Create(context.Background(), &service.CreateEntityRequest{Kind: workflow.KindPpeRequest})
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)
}

// TestWorkflowService_Apply 测试动作管线: 引擎转换 + 历史 + 出箱同事务提交
func TestWorkflowService_Apply(t *testing.T) {
	svc, db := newWorkflowService(t)

	e, err := svc.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind:       workflow.KindPpeRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)

	approved, err := svc.Apply(actorCtx("boss", workflow.CapApprove), e.ID, workflow.Action{Kind: workflow.ActionApprove})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusApproved, approved.Status)
	assert.Equal(t, int64(2), approved.Revision)

	// 状态历史追加一条转换记录
	var histories []model.StateHistoryModel
	db.Where("entity_id = ?", e.ID).Order("created_at ASC").Find(&histories)
	require.Len(t, histories, 2)
	assert.Equal(t, "Pending", histories[1].FromState)
	assert.Equal(t, "Approved", histories[1].ToState)

	// 状态变更事件写入出箱
	var outbox []model.OutboxModel
	db.Where("entity_id = ?", e.ID).Find(&outbox)
	require.Len(t, outbox, 1)
	assert.Equal(t, string(workflow.EventStatusChanged), outbox[0].Type)
	assert.Equal(t, model.OutboxStatusPending, outbox[0].Status)
}

// TestWorkflowService_Apply_IssueSideEffects 测试发放的库存扣减与历史副作用
func TestWorkflowService_Apply_IssueSideEffects(t *testing.T) {
	svc, db := newWorkflowService(t)

	require.NoError(t, db.Create(&model.StockItemModel{ID: "helmet-01", Name: "安全帽", Quantity: 10}).Error)

	e, err := svc.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind:       workflow.KindPpeRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)

	_, err = svc.Apply(actorCtx("boss", workflow.CapApprove), e.ID, workflow.Action{Kind: workflow.ActionApprove})
	require.NoError(t, err)

	issued, err := svc.Apply(actorCtx("keeper", workflow.CapIssue), e.ID, workflow.Action{
		Kind:    workflow.ActionIssue,
		Payload: map[string]string{"item_id": "helmet-01", "quantity": "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusIssued, issued.Status)

	// 库存同事务扣减
	var item model.StockItemModel
	require.NoError(t, db.Where("id = ?", "helmet-01").First(&item).Error)
	assert.Equal(t, 8, item.Quantity)

	// 发放历史记录到请求人名下
	var history []model.PpeHistoryModel
	db.Where("request_id = ?", e.ID).Find(&history)
	require.Len(t, history, 1)
	assert.Equal(t, "user-001", history[0].EmployeeID)
	assert.Equal(t, "keeper", history[0].IssuedBy)
	assert.Equal(t, 2, history[0].Quantity)
}

// TestWorkflowService_Apply_EngineErrorNoWrite 测试引擎失败时事务不落库
func TestWorkflowService_Apply_EngineErrorNoWrite(t *testing.T) {
	svc, db := newWorkflowService(t)

	e, err := svc.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind:       workflow.KindPpeRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)

	_, err = svc.Apply(actorCtx("user-001"), e.ID, workflow.Action{Kind: workflow.ActionApprove})
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	loaded, err := svc.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, loaded.Status)
	assert.Equal(t, int64(1), loaded.Revision)

	var count int64
	db.Model(&model.OutboxModel{}).Where("entity_id = ?", e.ID).Count(&count)
	assert.Zero(t, count, "失败的动作不产生出箱记录")
}

// TestWorkflowService_Apply_Reopen 测试重开在同事务中创建关联实体
func TestWorkflowService_Apply_Reopen(t *testing.T) {
	svc, db := newWorkflowService(t)

	e, err := svc.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind:       workflow.KindInternalRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)

	_, err = svc.Apply(actorCtx("boss", workflow.CapApprove), e.ID, workflow.Action{
		Kind: workflow.ActionReject, Comment: "不符合条件",
	})
	require.NoError(t, err)

	_, err = svc.Apply(actorCtx("admin", workflow.CapReopen), e.ID, workflow.Action{Kind: workflow.ActionReopen})
	require.NoError(t, err)

	var reopened model.EntityModel
	require.NoError(t, db.Where("reopened_from = ?", e.ID).First(&reopened).Error)
	assert.Equal(t, "Pending", reopened.Status)
	assert.Equal(t, "user-001", reopened.RequesterID)
}

// TestWorkflowService_MarkViewed 测试已读标记
func TestWorkflowService_MarkViewed(t *testing.T) {
	svc, _ := newWorkflowService(t)

	e, err := svc.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind:       workflow.KindLogbookRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkViewed(actorCtx("boss"), e.ID))
	require.NoError(t, svc.MarkViewed(actorCtx("boss"), e.ID), "重复标记无副作用")

	loaded, err := svc.Get(e.ID)
	require.NoError(t, err)
	assert.True(t, loaded.ViewedBy["boss"])
}

// TestWorkflowService_Purge 测试管理员清除需要能力
func TestWorkflowService_Purge(t *testing.T) {
	svc, _ := newWorkflowService(t)

	e, err := svc.Create(actorCtx("user-001"), &service.CreateEntityRequest{
		Kind:       workflow.KindPpeRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)

	err = svc.Purge(actorCtx("user-001"), e.ID)
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	require.NoError(t, svc.Purge(actorCtx("admin", workflow.CapPurge), e.ID))

	_, err = svc.Get(e.ID)
	assert.True(t, repository.IsNotFound(err))
}
