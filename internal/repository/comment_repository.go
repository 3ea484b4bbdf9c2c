package repository

import (
	"github.com/siteops/opsflow-gin/internal/model"
	"gorm.io/gorm"
)

// CommentRepository 评论仓储接口 (仅追加)
type CommentRepository interface {
	Save(comment *model.CommentModel) error
	FindByEntityID(entityID string) ([]*model.CommentModel, error)
	CountByEntityID(entityID string) (int64, error)
}

// commentRepository 评论仓储实现
type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository 创建评论仓储
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Save 保存评论
func (r *commentRepository) Save(comment *model.CommentModel) error {
	if err := comment.Validate(); err != nil {
		return err
	}
	return r.db.Create(comment).Error
}

// FindByEntityID 按插入顺序查找实体的评论 (活动时间线)
func (r *commentRepository) FindByEntityID(entityID string) ([]*model.CommentModel, error) {
	var comments []*model.CommentModel
	err := r.db.Where("entity_id = ?", entityID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

// CountByEntityID 统计实体的评论数
func (r *commentRepository) CountByEntityID(entityID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.CommentModel{}).Where("entity_id = ?", entityID).Count(&count).Error
	return count, err
}
