package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/siteops/opsflow-gin/internal/service"
)

// AdminController 管理端控制器: 实体清除、审计日志、统计
type AdminController struct {
	workflowService   service.WorkflowService
	auditLogService   service.AuditLogService
	statisticsService service.StatisticsService
}

// NewAdminController 创建管理端控制器
func NewAdminController(
	workflowService service.WorkflowService,
	auditLogService service.AuditLogService,
	statisticsService service.StatisticsService,
) *AdminController {
	return &AdminController{
		workflowService:   workflowService,
		auditLogService:   auditLogService,
		statisticsService: statisticsService,
	}
}

// Purge 物理删除实体及其全部从属记录
func (c *AdminController) Purge(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateID(ctx, id) {
		return
	}

	if err := c.workflowService.Purge(ctx.Request.Context(), id); err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, gin.H{"purged": id})
}

// ListAuditLogs 最近的审计日志
func (c *AdminController) ListAuditLogs(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "100"))

	logs, err := c.auditLogService.ListRecent(limit)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, logs)
}

// ResourceAuditLogs 某个资源的审计轨迹
func (c *AdminController) ResourceAuditLogs(ctx *gin.Context) {
	resourceType := ctx.Param("type")
	resourceID := ctx.Param("id")
	if !validateID(ctx, resourceID) {
		return
	}

	logs, err := c.auditLogService.ListByResource(resourceType, resourceID)
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, logs)
}

// Statistics 实体与审批统计
func (c *AdminController) Statistics(ctx *gin.Context) {
	byKind, err := c.statisticsService.GetEntityStatisticsByKind()
	if err != nil {
		RespondError(ctx, err)
		return
	}

	byStatus, err := c.statisticsService.GetEntityStatisticsByStatus(ctx.Query("kind"))
	if err != nil {
		RespondError(ctx, err)
		return
	}

	approval, err := c.statisticsService.GetApprovalStatistics()
	if err != nil {
		RespondError(ctx, err)
		return
	}

	Success(ctx, gin.H{
		"by_kind":   byKind,
		"by_status": byStatus,
		"approval":  approval,
	})
}
