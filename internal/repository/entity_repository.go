package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/siteops/opsflow-gin/internal/model"
	"github.com/siteops/opsflow-gin/internal/workflow"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntityRepository 工作流实体仓储接口
type EntityRepository interface {
	Create(e *workflow.Entity, now time.Time) error
	FindByID(id string) (*workflow.Entity, error)
	FindByFilter(filter *EntityFilter) ([]*model.EntityModel, error)
	// SaveCAS 乐观并发提交: 仅当数据库中的 revision 等于 expected 时写入,
	// 否则返回 workflow.ErrConcurrentConflict
	SaveCAS(e *workflow.Entity, expected int64, now time.Time) error
	// SetViewed 标记某用户已读,重复调用无副作用
	SetViewed(entityID, userID string, now time.Time) error
	// Delete 物理删除实体及其评论、已读标记、历史与出箱记录 (仅管理员清除使用)
	Delete(id string) error
}

// EntityFilter 实体查询过滤器
type EntityFilter struct {
	Kind        *string
	Status      *string
	RequesterID *string
	ApproverID  *string
	StartTime   *string
	EndTime     *string
}

// entityData 序列化进 data 列的变体载荷
type entityData struct {
	Subtasks      []workflow.Subtask      `json:"subtasks,omitempty"`
	ApprovalState workflow.ApprovalState  `json:"approval_state,omitempty"`
	StatusRequest *workflow.StatusRequest `json:"status_request,omitempty"`
	Payload       json.RawMessage         `json:"payload,omitempty"`
}

// entityRepository 实体仓储实现
type entityRepository struct {
	db *gorm.DB
}

// NewEntityRepository 创建实体仓储
func NewEntityRepository(db *gorm.DB) EntityRepository {
	return &entityRepository{db: db}
}

// Create 插入新实体及其初始已读标记
func (r *entityRepository) Create(e *workflow.Entity, now time.Time) error {
	em, err := toModel(e, now, now)
	if err != nil {
		return err
	}
	if err := em.Validate(); err != nil {
		return err
	}
	if err := r.db.Create(em).Error; err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return r.saveViewFlags(e, now)
}

// FindByID 加载实体并装配评论与已读标记
func (r *entityRepository) FindByID(id string) (*workflow.Entity, error) {
	var em model.EntityModel
	if err := r.db.Where("id = ?", id).First(&em).Error; err != nil {
		return nil, err
	}

	e, err := fromModel(&em)
	if err != nil {
		return nil, err
	}

	var comments []*model.CommentModel
	if err := r.db.Where("entity_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	for _, cm := range comments {
		e.Comments = append(e.Comments, workflow.Comment{
			ID:      cm.ID,
			UserID:  cm.UserID,
			Text:    cm.Text,
			Date:    cm.CreatedAt,
			EventID: cm.EntityID,
		})
	}

	var flags []*model.ViewFlagModel
	if err := r.db.Where("entity_id = ?", id).Find(&flags).Error; err != nil {
		return nil, err
	}
	e.ViewedBy = make(map[string]bool, len(flags))
	for _, f := range flags {
		e.ViewedBy[f.UserID] = f.Viewed
	}

	return e, nil
}

// FindByFilter 根据过滤器查找实体
func (r *entityRepository) FindByFilter(filter *EntityFilter) ([]*model.EntityModel, error) {
	var entities []*model.EntityModel
	query := r.db.Model(&model.EntityModel{})

	if filter != nil {
		if filter.Kind != nil {
			query = query.Where("kind = ?", *filter.Kind)
		}
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.RequesterID != nil {
			query = query.Where("requester_id = ?", *filter.RequesterID)
		}
		if filter.ApproverID != nil {
			query = query.Where("approver_id = ?", *filter.ApproverID)
		}
		if filter.StartTime != nil {
			query = query.Where("created_at >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			query = query.Where("created_at <= ?", *filter.EndTime)
		}
	}

	err := query.Order("created_at DESC").Find(&entities).Error
	return entities, err
}

// SaveCAS 条件写入实体行,新增评论行追加,已读标记整体覆盖
func (r *entityRepository) SaveCAS(e *workflow.Entity, expected int64, now time.Time) error {
	em, err := toModel(e, time.Time{}, now)
	if err != nil {
		return err
	}

	res := r.db.Model(&model.EntityModel{}).
		Where("id = ? AND revision = ?", e.ID, expected).
		Updates(map[string]interface{}{
			"status":       em.Status,
			"approver_id":  em.ApproverID,
			"revision":     em.Revision,
			"data":         em.Data,
			"completed_at": em.CompletedAt,
			"updated_at":   now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save entity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: entity %s revision %d", workflow.ErrConcurrentConflict, e.ID, expected)
	}

	// 评论仅追加: 只插入数据库中不存在的评论行
	for _, c := range e.Comments {
		cm := &model.CommentModel{
			ID:        c.ID,
			EntityID:  e.ID,
			UserID:    c.UserID,
			Text:      c.Text,
			CreatedAt: c.Date,
		}
		if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(cm).Error; err != nil {
			return fmt.Errorf("failed to append comment: %w", err)
		}
	}

	return r.saveViewFlags(e, now)
}

// SetViewed 幂等地写入单个已读标记,不触碰实体版本号
func (r *entityRepository) SetViewed(entityID, userID string, now time.Time) error {
	// 实体必须存在,否则会留下孤儿标记行
	var count int64
	if err := r.db.Model(&model.EntityModel{}).Where("id = ?", entityID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}

	flag := &model.ViewFlagModel{
		EntityID:  entityID,
		UserID:    userID,
		Viewed:    true,
		UpdatedAt: now,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"viewed", "updated_at"}),
	}).Create(flag).Error
}

// Delete 物理删除实体及依赖行
func (r *entityRepository) Delete(id string) error {
	if err := r.db.Where("entity_id = ?", id).Delete(&model.CommentModel{}).Error; err != nil {
		return err
	}
	if err := r.db.Where("entity_id = ?", id).Delete(&model.ViewFlagModel{}).Error; err != nil {
		return err
	}
	if err := r.db.Where("entity_id = ?", id).Delete(&model.StateHistoryModel{}).Error; err != nil {
		return err
	}
	if err := r.db.Where("entity_id = ?", id).Delete(&model.OutboxModel{}).Error; err != nil {
		return err
	}
	return r.db.Where("id = ?", id).Delete(&model.EntityModel{}).Error
}

// saveViewFlags 覆盖式写入全部已读标记
func (r *entityRepository) saveViewFlags(e *workflow.Entity, now time.Time) error {
	for userID, viewed := range e.ViewedBy {
		flag := &model.ViewFlagModel{
			EntityID:  e.ID,
			UserID:    userID,
			Viewed:    viewed,
			UpdatedAt: now,
		}
		if err := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"viewed", "updated_at"}),
		}).Create(flag).Error; err != nil {
			return fmt.Errorf("failed to save view flag: %w", err)
		}
	}
	return nil
}

// toModel 将引擎实体转换为数据模型 (createdAt 零值时不覆盖创建时间)
func toModel(e *workflow.Entity, createdAt, updatedAt time.Time) (*model.EntityModel, error) {
	data, err := json.Marshal(&entityData{
		Subtasks:      e.Subtasks,
		ApprovalState: e.ApprovalState,
		StatusRequest: e.StatusRequest,
		Payload:       e.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity data: %w", err)
	}

	return &model.EntityModel{
		ID:           e.ID,
		Kind:         string(e.Kind),
		Status:       string(e.Status),
		RequesterID:  e.RequesterID,
		ApproverID:   e.ApproverID,
		Revision:     e.Revision,
		ReopenedFrom: e.ReopenedFrom,
		Data:         data,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
		CompletedAt:  e.CompletedAt,
	}, nil
}

// fromModel 将数据模型还原为引擎实体 (评论与已读标记由调用方装配)
func fromModel(em *model.EntityModel) (*workflow.Entity, error) {
	var data entityData
	if len(em.Data) > 0 {
		if err := json.Unmarshal(em.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entity data: %w", err)
		}
	}

	approval := data.ApprovalState
	if approval == "" {
		approval = workflow.ApprovalNone
	}

	return &workflow.Entity{
		ID:            em.ID,
		Kind:          workflow.VariantKind(em.Kind),
		Status:        workflow.State(em.Status),
		RequesterID:   em.RequesterID,
		ApproverID:    em.ApproverID,
		Revision:      em.Revision,
		ReopenedFrom:  em.ReopenedFrom,
		Subtasks:      data.Subtasks,
		ApprovalState: approval,
		StatusRequest: data.StatusRequest,
		CompletedAt:   em.CompletedAt,
		Payload:       data.Payload,
	}, nil
}

// IsNotFound 判断是否为记录不存在错误
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
