package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/siteops/opsflow-gin/internal/model"
	"github.com/siteops/opsflow-gin/internal/repository"
)

// AuditLogService 审计日志服务
type AuditLogService interface {
	RecordAction(ctx context.Context, userID string, action string, resourceType string, resourceID string, details interface{}) error
	ListByResource(resourceType, resourceID string) ([]*model.AuditLogModel, error)
	ListRecent(limit int) ([]*model.AuditLogModel, error)
}

// auditLogService 审计日志服务实现
type auditLogService struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditLogService 创建审计日志服务
func NewAuditLogService(auditRepo repository.AuditLogRepository) AuditLogService {
	return &auditLogService{
		auditRepo: auditRepo,
	}
}

// RecordAction 记录操作审计日志
func (s *auditLogService) RecordAction(
	ctx context.Context,
	userID string,
	action string,
	resourceType string,
	resourceID string,
	details interface{},
) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}

	requestID := ""
	if v := ctx.Value("request_id"); v != nil {
		requestID, _ = v.(string)
	}

	ip := ""
	if v := ctx.Value("ip"); v != nil {
		ip, _ = v.(string)
	}

	userAgent := ""
	if v := ctx.Value("user_agent"); v != nil {
		userAgent, _ = v.(string)
	}

	auditLog := &model.AuditLogModel{
		ID:           uuid.New().String(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    requestID,
		IP:           ip,
		UserAgent:    userAgent,
		Details:      detailsJSON,
		CreatedAt:    time.Now(),
	}

	return s.auditRepo.Save(auditLog)
}

// ListByResource 查询某个资源的审计轨迹
func (s *auditLogService) ListByResource(resourceType, resourceID string) ([]*model.AuditLogModel, error) {
	return s.auditRepo.FindByResource(resourceType, resourceID)
}

// ListRecent 查询最近的审计日志
func (s *auditLogService) ListRecent(limit int) ([]*model.AuditLogModel, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.auditRepo.FindRecent(limit)
}
