package repository

import (
	"time"

	"github.com/siteops/opsflow-gin/internal/model"
	"gorm.io/gorm"
)

// StockRepository 库存与 PPE 发放历史仓储接口
type StockRepository interface {
	Save(item *model.StockItemModel) error
	FindByID(id string) (*model.StockItemModel, error)
	FindAll() ([]*model.StockItemModel, error)
	// DecrementClamped 单条原子更新扣减库存,结果钳制为 0
	// 用条件表达式代替读-改-写,消除竞态窗口
	DecrementClamped(id string, quantity int) error
	AppendHistory(record *model.PpeHistoryModel) error
	FindHistoryByEmployee(employeeID string) ([]*model.PpeHistoryModel, error)
}

// stockRepository 库存仓储实现
type stockRepository struct {
	db *gorm.DB
}

// NewStockRepository 创建库存仓储
func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

// Save 保存库存物项
func (r *stockRepository) Save(item *model.StockItemModel) error {
	if err := item.Validate(); err != nil {
		return err
	}
	return r.db.Save(item).Error
}

// FindByID 根据 ID 查找库存物项
func (r *stockRepository) FindByID(id string) (*model.StockItemModel, error) {
	var item model.StockItemModel
	if err := r.db.Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindAll 列出全部库存物项
func (r *stockRepository) FindAll() ([]*model.StockItemModel, error) {
	var items []*model.StockItemModel
	err := r.db.Order("name ASC").Find(&items).Error
	return items, err
}

// DecrementClamped 原子扣减,钳制为 0
func (r *stockRepository) DecrementClamped(id string, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	return r.db.Model(&model.StockItemModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("CASE WHEN quantity > ? THEN quantity - ? ELSE 0 END", quantity, quantity),
			"updated_at": time.Now(),
		}).Error
}

// AppendHistory 追加发放历史记录 (从不覆盖既有记录)
func (r *stockRepository) AppendHistory(record *model.PpeHistoryModel) error {
	if err := record.Validate(); err != nil {
		return err
	}
	return r.db.Create(record).Error
}

// FindHistoryByEmployee 查找员工的发放历史
func (r *stockRepository) FindHistoryByEmployee(employeeID string) ([]*model.PpeHistoryModel, error) {
	var records []*model.PpeHistoryModel
	err := r.db.Where("employee_id = ?", employeeID).Order("issue_date ASC").Find(&records).Error
	return records, err
}
