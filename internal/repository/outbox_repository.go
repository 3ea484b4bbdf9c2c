package repository

import (
	"time"

	"github.com/siteops/opsflow-gin/internal/model"
	"gorm.io/gorm"
)

// OutboxRepository 通知出箱仓储接口
type OutboxRepository interface {
	Save(record *model.OutboxModel) error
	FindByEntityID(entityID string) ([]*model.OutboxModel, error)
	// FindPending 按创建顺序取待发送记录
	FindPending(limit int) ([]*model.OutboxModel, error)
	// Claim 以条件更新认领记录,仅当记录仍为 pending 时成功;
	// 认领失败说明记录已被其他 worker 持有
	Claim(id string) (bool, error)
	// Release 将认领但未投递完成的记录放回 pending
	Release(id string) error
	// ReleaseStale 将停留在 processing 超过给定时长的记录放回 pending
	ReleaseStale(olderThan time.Duration) error
	MarkSuccess(id string) error
	MarkFailed(id string) error
	IncrementRetry(id string) error
}

// outboxRepository 出箱仓储实现
type outboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository 创建出箱仓储
func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

// Save 保存出箱记录
func (r *outboxRepository) Save(record *model.OutboxModel) error {
	if err := record.Validate(); err != nil {
		return err
	}
	return r.db.Save(record).Error
}

// FindByEntityID 根据实体 ID 查找出箱记录
func (r *outboxRepository) FindByEntityID(entityID string) ([]*model.OutboxModel, error) {
	var records []*model.OutboxModel
	err := r.db.Where("entity_id = ?", entityID).Order("created_at ASC").Find(&records).Error
	return records, err
}

// FindPending 查找待发送记录
func (r *outboxRepository) FindPending(limit int) ([]*model.OutboxModel, error) {
	var records []*model.OutboxModel
	query := r.db.Where("status = ?", model.OutboxStatusPending).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

// Claim 认领待发送记录,返回是否认领成功
func (r *outboxRepository) Claim(id string) (bool, error) {
	result := r.db.Model(&model.OutboxModel{}).
		Where("id = ? AND status = ?", id, model.OutboxStatusPending).
		Updates(map[string]interface{}{
			"status":     model.OutboxStatusProcessing,
			"updated_at": time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

// Release 将未投递完成的记录放回 pending
func (r *outboxRepository) Release(id string) error {
	return r.db.Model(&model.OutboxModel{}).
		Where("id = ? AND status = ?", id, model.OutboxStatusProcessing).
		Updates(map[string]interface{}{
			"status":     model.OutboxStatusPending,
			"updated_at": time.Now(),
		}).Error
}

// ReleaseStale 回收上次运行遗留的 processing 记录
func (r *outboxRepository) ReleaseStale(olderThan time.Duration) error {
	return r.db.Model(&model.OutboxModel{}).
		Where("status = ? AND updated_at < ?", model.OutboxStatusProcessing, time.Now().Add(-olderThan)).
		Updates(map[string]interface{}{
			"status":     model.OutboxStatusPending,
			"updated_at": time.Now(),
		}).Error
}

// MarkSuccess 标记发送成功
func (r *outboxRepository) MarkSuccess(id string) error {
	return r.setStatus(id, model.OutboxStatusSuccess)
}

// MarkFailed 标记发送失败 (重试耗尽后)
func (r *outboxRepository) MarkFailed(id string) error {
	return r.setStatus(id, model.OutboxStatusFailed)
}

// IncrementRetry 增加重试计数
func (r *outboxRepository) IncrementRetry(id string) error {
	return r.db.Model(&model.OutboxModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"retry_count": gorm.Expr("retry_count + 1"),
			"updated_at":  time.Now(),
		}).Error
}

func (r *outboxRepository) setStatus(id string, status string) error {
	return r.db.Model(&model.OutboxModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}
