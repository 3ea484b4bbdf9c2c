package service

import (
	"fmt"
	"strings"

	"github.com/siteops/opsflow-gin/internal/model"
	"github.com/siteops/opsflow-gin/internal/repository"
	"github.com/siteops/opsflow-gin/internal/utils"
	"github.com/siteops/opsflow-gin/internal/workflow"
	"gorm.io/gorm"
)

// QueryService 查询服务接口
type QueryService interface {
	ListEntities(filter *ListEntitiesFilter) ([]*EntitySummary, int64, error)
	GetHistory(entityID string) ([]*StateHistory, error)
	// Inbox 返回用户参与且尚未查看最新变更的实体
	Inbox(userID string) ([]*EntitySummary, error)
}

// ListEntitiesFilter 实体列表查询过滤器
type ListEntitiesFilter struct {
	Kind        *string
	Status      *string
	RequesterID *string
	ApproverID  *string
	StartTime   *string
	EndTime     *string
	Page        int
	PageSize    int
	SortBy      string
	Order       string
}

// EntitySummary 实体列表摘要,不含评论与载荷明细
type EntitySummary struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	RequesterID  string `json:"requester_id"`
	ApproverID   string `json:"approver_id,omitempty"`
	Revision     int64  `json:"revision"`
	ReopenedFrom string `json:"reopened_from,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// StateHistory 状态历史
type StateHistory struct {
	ID        string `json:"id"`
	EntityID  string `json:"entity_id"`
	FromState string `json:"from_state,omitempty"`
	ToState   string `json:"to_state"`
	Reason    string `json:"reason,omitempty"`
	Operator  string `json:"operator"`
	CreatedAt string `json:"created_at"`
}

// queryService 查询服务实现
type queryService struct {
	db          *gorm.DB
	historyRepo repository.StateHistoryRepository
}

// NewQueryService 创建查询服务
func NewQueryService(db *gorm.DB) QueryService {
	return &queryService{
		db:          db,
		historyRepo: repository.NewStateHistoryRepository(db),
	}
}

// ListEntities 列出工作流实体
func (s *queryService) ListEntities(filter *ListEntitiesFilter) ([]*EntitySummary, int64, error) {
	query := s.db.Model(&model.EntityModel{})

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

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count entities: %w", err)
	}

	// 验证并清理排序字段,防止 SQL 注入
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	if err := utils.ValidateSortField(sortBy); err != nil {
		return nil, 0, fmt.Errorf("invalid sort field: %w", err)
	}

	order := filter.Order
	if order == "" {
		order = "desc"
	}
	if err := utils.ValidateSortOrder(order); err != nil {
		return nil, 0, fmt.Errorf("invalid sort order: %w", err)
	}
	query = query.Order(fmt.Sprintf("%s %s", sortBy, strings.ToUpper(order)))

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	query = query.Offset((page - 1) * pageSize).Limit(pageSize)

	var models []*model.EntityModel
	if err := query.Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to query entities: %w", err)
	}

	return toSummaries(models), total, nil
}

// GetHistory 获取状态历史
func (s *queryService) GetHistory(entityID string) ([]*StateHistory, error) {
	models, err := s.historyRepo.FindByEntityID(entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	histories := make([]*StateHistory, 0, len(models))
	for _, m := range models {
		histories = append(histories, &StateHistory{
			ID:        m.ID,
			EntityID:  m.EntityID,
			FromState: m.FromState,
			ToState:   m.ToState,
			Reason:    m.Reason,
			Operator:  m.Operator,
			CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return histories, nil
}

// Inbox 查询用户未读的参与实体
func (s *queryService) Inbox(userID string) ([]*EntitySummary, error) {
	var models []*model.EntityModel
	err := s.db.Model(&model.EntityModel{}).
		Joins("JOIN view_flags ON view_flags.entity_id = workflow_entities.id").
		Where("view_flags.user_id = ? AND view_flags.viewed = ?", userID, false).
		Order("workflow_entities.updated_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query inbox: %w", err)
	}

	return toSummaries(models), nil
}

// ValidateFilterKind 校验过滤器的变体取值
func ValidateFilterKind(kind string) error {
	switch workflow.VariantKind(kind) {
	case workflow.KindPpeRequest, workflow.KindInternalRequest, workflow.KindLogbookRequest,
		workflow.KindTask, workflow.KindTimesheet:
		return nil
	}
	return fmt.Errorf("unknown kind: %s", kind)
}

// toSummaries 转换为列表摘要
func toSummaries(models []*model.EntityModel) []*EntitySummary {
	summaries := make([]*EntitySummary, 0, len(models))
	for _, em := range models {
		summaries = append(summaries, &EntitySummary{
			ID:           em.ID,
			Kind:         em.Kind,
			Status:       em.Status,
			RequesterID:  em.RequesterID,
			ApproverID:   em.ApproverID,
			Revision:     em.Revision,
			ReopenedFrom: em.ReopenedFrom,
			CreatedAt:    em.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			UpdatedAt:    em.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return summaries
}
