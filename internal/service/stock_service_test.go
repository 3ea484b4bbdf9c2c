package service_test

import (
	"testing"

	"github.com/siteops/opsflow-gin/internal/model"
	"github.com/siteops/opsflow-gin/internal/repository"
	"github.com/siteops/opsflow-gin/internal/service"
	"github.com/siteops/opsflow-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStockService_Upsert 测试库存盘点需要发放权限并记录审计
func TestStockService_Upsert(t *testing.T) {
	db := setupTestDBForService(t)
	auditSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	svc := service.NewStockService(repository.NewStockRepository(db), auditSvc)

	// 无权限被拒
	_, err := svc.Upsert(actorCtx("user-001"), &service.UpsertStockItemInput{Name: "安全帽", Quantity: 10})
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	item, err := svc.Upsert(actorCtx("keeper", workflow.CapIssue), &service.UpsertStockItemInput{
		ID: "helmet-01", Name: "安全帽", Quantity: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "helmet-01", item.ID)

	// 再次盘点覆盖数量
	item, err = svc.Upsert(actorCtx("keeper", workflow.CapIssue), &service.UpsertStockItemInput{
		ID: "helmet-01", Name: "安全帽", Quantity: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, item.Quantity)

	loaded, err := svc.Get("helmet-01")
	require.NoError(t, err)
	assert.Equal(t, 6, loaded.Quantity)

	// 盘点动作落审计
	var count int64
	db.Model(&model.AuditLogModel{}).Where("action = ?", "stock_upsert").Count(&count)
	assert.Equal(t, int64(2), count)
}

// TestStockService_UpsertGeneratesID 测试未指定 ID 时自动生成
func TestStockService_UpsertGeneratesID(t *testing.T) {
	db := setupTestDBForService(t)
	svc := service.NewStockService(repository.NewStockRepository(db), nil)

	item, err := svc.Upsert(actorCtx("keeper", workflow.CapIssue), &service.UpsertStockItemInput{
		Name: "手套", Quantity: 50,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
}

// TestStockService_EmployeeHistory 测试员工发放历史查询
func TestStockService_EmployeeHistory(t *testing.T) {
	core, db := newWorkflowService(t)
	svc := service.NewStockService(repository.NewStockRepository(db), nil)

	// 通过完整审批发放管线产生历史
	require.NoError(t, db.Create(&model.StockItemModel{ID: "boots-01", Name: "劳保鞋", Quantity: 4}).Error)

	e, err := core.Create(actorCtx("emp-001"), &service.CreateEntityRequest{
		Kind:       workflow.KindPpeRequest,
		ApproverID: "boss",
	})
	require.NoError(t, err)
	_, err = core.Apply(actorCtx("boss", workflow.CapApprove), e.ID, workflow.Action{Kind: workflow.ActionApprove})
	require.NoError(t, err)
	_, err = core.Apply(actorCtx("keeper", workflow.CapIssue), e.ID, workflow.Action{
		Kind:    workflow.ActionIssue,
		Payload: map[string]string{"item_id": "boots-01", "quantity": "1"},
	})
	require.NoError(t, err)

	records, err := svc.EmployeeHistory("emp-001")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "boots-01", records[0].ItemID)

	records, err = svc.EmployeeHistory("emp-999")
	require.NoError(t, err)
	assert.Empty(t, records)
}
