package service

import (
	"context"
	"sort"
	"time"

	"github.com/siteops/opsflow-gin/internal/model"
	"github.com/siteops/opsflow-gin/internal/repository"
	"github.com/siteops/opsflow-gin/internal/workflow"
)

// TimelineItem 活动时间线条目: 评论与状态变更按时间合并
type TimelineItem struct {
	Type      string    `json:"type"` // comment | transition
	UserID    string    `json:"user_id"`
	Text      string    `json:"text,omitempty"`
	FromState string    `json:"from_state,omitempty"`
	ToState   string    `json:"to_state,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityService 评论与活动服务
type ActivityService interface {
	// Comment 追加评论: 不改变实体状态,但重置其他参与者的已读标记
	Comment(ctx context.Context, entityID string, text string) (*workflow.Entity, error)
	MarkViewed(ctx context.Context, entityID string) error
	ListComments(entityID string) ([]*model.CommentModel, error)
	Timeline(entityID string) ([]*TimelineItem, error)
}

// activityService 评论与活动服务实现
type activityService struct {
	core        WorkflowService
	commentRepo repository.CommentRepository
	historyRepo repository.StateHistoryRepository
}

// NewActivityService 创建评论与活动服务
func NewActivityService(core WorkflowService, commentRepo repository.CommentRepository, historyRepo repository.StateHistoryRepository) ActivityService {
	return &activityService{
		core:        core,
		commentRepo: commentRepo,
		historyRepo: historyRepo,
	}
}

// Comment 追加评论
func (s *activityService) Comment(ctx context.Context, entityID string, text string) (*workflow.Entity, error) {
	return s.core.Apply(ctx, entityID, workflow.Action{
		Kind:    workflow.ActionComment,
		Comment: text,
	})
}

// MarkViewed 标记当前用户已读
func (s *activityService) MarkViewed(ctx context.Context, entityID string) error {
	return s.core.MarkViewed(ctx, entityID)
}

// ListComments 按时间顺序列出评论
func (s *activityService) ListComments(entityID string) ([]*model.CommentModel, error) {
	return s.commentRepo.FindByEntityID(entityID)
}

// Timeline 合并评论与状态变更为单条时间线
func (s *activityService) Timeline(entityID string) ([]*TimelineItem, error) {
	comments, err := s.commentRepo.FindByEntityID(entityID)
	if err != nil {
		return nil, err
	}
	histories, err := s.historyRepo.FindByEntityID(entityID)
	if err != nil {
		return nil, err
	}

	items := make([]*TimelineItem, 0, len(comments)+len(histories))
	for _, c := range comments {
		items = append(items, &TimelineItem{
			Type:      "comment",
			UserID:    c.UserID,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
		})
	}
	for _, h := range histories {
		items = append(items, &TimelineItem{
			Type:      "transition",
			UserID:    h.Operator,
			Text:      h.Reason,
			FromState: h.FromState,
			ToState:   h.ToState,
			CreatedAt: h.CreatedAt,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}
