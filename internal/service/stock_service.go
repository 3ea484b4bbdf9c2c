package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/siteops/opsflow-gin/internal/model"
	"github.com/siteops/opsflow-gin/internal/repository"
	"github.com/siteops/opsflow-gin/internal/workflow"
)

// UpsertStockItemInput 创建或更新库存物项入参
type UpsertStockItemInput struct {
	ID       string `json:"id"`
	Name     string `json:"name" binding:"required"`
	Quantity int    `json:"quantity" binding:"min=0"`
}

// StockService 库存服务
// 库存扣减由发放动作在工作流事务内完成,本服务只负责盘点与查询
type StockService interface {
	Upsert(ctx context.Context, input *UpsertStockItemInput) (*model.StockItemModel, error)
	Get(id string) (*model.StockItemModel, error)
	List() ([]*model.StockItemModel, error)
	EmployeeHistory(employeeID string) ([]*model.PpeHistoryModel, error)
}

// stockService 库存服务实现
type stockService struct {
	stockRepo   repository.StockRepository
	auditLogSvc AuditLogService
}

// NewStockService 创建库存服务
func NewStockService(stockRepo repository.StockRepository, auditLogSvc AuditLogService) StockService {
	return &stockService{
		stockRepo:   stockRepo,
		auditLogSvc: auditLogSvc,
	}
}

// Upsert 创建或盘点库存物项,需要发放权限
func (s *stockService) Upsert(ctx context.Context, input *UpsertStockItemInput) (*model.StockItemModel, error) {
	actor := ActorFromContext(ctx)
	if actor == nil {
		return nil, fmt.Errorf("%w: missing actor", workflow.ErrUnauthorized)
	}
	if !actor.Has(workflow.CapIssue) {
		return nil, fmt.Errorf("%w: stock management requires %s", workflow.ErrUnauthorized, workflow.CapIssue)
	}

	item := &model.StockItemModel{
		ID:        input.ID,
		Name:      input.Name,
		Quantity:  input.Quantity,
		UpdatedAt: time.Now(),
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	if err := s.stockRepo.Save(item); err != nil {
		return nil, err
	}

	if s.auditLogSvc != nil {
		_ = s.auditLogSvc.RecordAction(ctx, actor.ID, "stock_upsert", "stock_item", item.ID, map[string]interface{}{
			"name":     item.Name,
			"quantity": item.Quantity,
		})
	}

	return item, nil
}

// Get 查询单个库存物项
func (s *stockService) Get(id string) (*model.StockItemModel, error) {
	return s.stockRepo.FindByID(id)
}

// List 列出全部库存物项
func (s *stockService) List() ([]*model.StockItemModel, error) {
	return s.stockRepo.FindAll()
}

// EmployeeHistory 查询员工的 PPE 发放历史
func (s *stockService) EmployeeHistory(employeeID string) ([]*model.PpeHistoryModel, error) {
	return s.stockRepo.FindHistoryByEmployee(employeeID)
}
