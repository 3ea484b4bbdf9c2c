package service

import (
	"fmt"

	"github.com/siteops/opsflow-gin/internal/model"
	"gorm.io/gorm"
)

// StatisticsService 统计服务接口
type StatisticsService interface {
	GetEntityStatisticsByStatus(kind string) ([]*EntityStatisticsByStatus, error)
	GetEntityStatisticsByKind() ([]*EntityStatisticsByKind, error)
	GetEntityStatisticsByTime() ([]*EntityStatisticsByTime, error)
	GetApprovalStatistics() (*ApprovalStatistics, error)
}

// EntityStatisticsByStatus 按状态统计
type EntityStatisticsByStatus struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// EntityStatisticsByKind 按变体统计
type EntityStatisticsByKind struct {
	Kind  string `json:"kind"`
	Count int64  `json:"count"`
}

// EntityStatisticsByTime 按时间统计
type EntityStatisticsByTime struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// ApprovalStatistics 审批统计
type ApprovalStatistics struct {
	TotalTransitions int64   `json:"total_transitions"`
	ApprovedCount    int64   `json:"approved_count"`
	RejectedCount    int64   `json:"rejected_count"`
	ApprovalRate     float64 `json:"approval_rate"`
}

// statisticsService 统计服务实现
type statisticsService struct {
	db *gorm.DB
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetEntityStatisticsByStatus 按状态统计实体,kind 为空时统计全部变体
func (s *statisticsService) GetEntityStatisticsByStatus(kind string) ([]*EntityStatisticsByStatus, error) {
	var results []struct {
		Status string
		Count  int64
	}

	query := s.db.Model(&model.EntityModel{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get entity statistics by status: %w", err)
	}

	stats := make([]*EntityStatisticsByStatus, 0, len(results))
	for _, r := range results {
		stats = append(stats, &EntityStatisticsByStatus{
			Status: r.Status,
			Count:  r.Count,
		})
	}

	return stats, nil
}

// GetEntityStatisticsByKind 按变体统计实体
func (s *statisticsService) GetEntityStatisticsByKind() ([]*EntityStatisticsByKind, error) {
	var results []struct {
		Kind  string
		Count int64
	}

	err := s.db.Model(&model.EntityModel{}).
		Select("kind, COUNT(*) as count").
		Group("kind").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get entity statistics by kind: %w", err)
	}

	stats := make([]*EntityStatisticsByKind, 0, len(results))
	for _, r := range results {
		stats = append(stats, &EntityStatisticsByKind{
			Kind:  r.Kind,
			Count: r.Count,
		})
	}

	return stats, nil
}

// GetEntityStatisticsByTime 按创建日期统计实体
func (s *statisticsService) GetEntityStatisticsByTime() ([]*EntityStatisticsByTime, error) {
	var results []struct {
		Date  string
		Count int64
	}

	err := s.db.Model(&model.EntityModel{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Group("DATE(created_at)").
		Order("date DESC").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get entity statistics by time: %w", err)
	}

	stats := make([]*EntityStatisticsByTime, 0, len(results))
	for _, r := range results {
		stats = append(stats, &EntityStatisticsByTime{
			Date:  r.Date,
			Count: r.Count,
		})
	}

	return stats, nil
}

// GetApprovalStatistics 从状态历史统计批准/拒绝比例
func (s *statisticsService) GetApprovalStatistics() (*ApprovalStatistics, error) {
	var totalCount int64
	err := s.db.Model(&model.StateHistoryModel{}).Count(&totalCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count transitions: %w", err)
	}

	var approvedCount int64
	err = s.db.Model(&model.StateHistoryModel{}).
		Where("to_state IN ?", []string{"Approved", "Done", "Office Acknowledged"}).
		Count(&approvedCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count approved transitions: %w", err)
	}

	var rejectedCount int64
	err = s.db.Model(&model.StateHistoryModel{}).
		Where("to_state = ?", "Rejected").
		Count(&rejectedCount).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count rejected transitions: %w", err)
	}

	approvalRate := 0.0
	if approvedCount+rejectedCount > 0 {
		approvalRate = float64(approvedCount) / float64(approvedCount+rejectedCount) * 100
	}

	return &ApprovalStatistics{
		TotalTransitions: totalCount,
		ApprovedCount:    approvedCount,
		RejectedCount:    rejectedCount,
		ApprovalRate:     approvalRate,
	}, nil
}
