package api

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/siteops/opsflow-gin/internal/auth"
	"github.com/siteops/opsflow-gin/internal/config"
	"github.com/siteops/opsflow-gin/internal/service"
	"github.com/siteops/opsflow-gin/internal/websocket"
	"gorm.io/gorm"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Config    *config.Config
	DB        *gorm.DB
	Hub       *websocket.Hub
	Validator *auth.TokenValidator
	Policy    *auth.Policy

	WorkflowService   service.WorkflowService
	RequestService    service.RequestService
	TaskService       service.TaskService
	TimesheetService  service.TimesheetService
	ActivityService   service.ActivityService
	QueryService      service.QueryService
	StockService      service.StockService
	AuditLogService   service.AuditLogService
	StatisticsService service.StatisticsService
}

// SetupRoutes 配置路由
func SetupRoutes(deps *RouterDeps) *gin.Engine {
	if config.IsProduction(deps.Config) {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(deps.Config.CORS))
	router.Use(ErrorHandlerMiddleware())

	// 健康检查
	healthController := NewHealthController(deps.DB)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 路由
	if deps.Hub != nil && deps.Validator != nil {
		router.GET("/ws", websocket.Handler(deps.Hub, deps.Validator))
	}

	requestController := NewRequestController(deps.RequestService)
	taskController := NewTaskController(deps.TaskService)
	timesheetController := NewTimesheetController(deps.TimesheetService)
	activityController := NewActivityController(deps.ActivityService)
	queryController := NewQueryController(deps.QueryService)
	stockController := NewStockController(deps.StockService)
	adminController := NewAdminController(deps.WorkflowService, deps.AuditLogService, deps.StatisticsService)

	// API v1 路由组
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(100, 200))
	if deps.Validator != nil {
		v1.Use(auth.Middleware(deps.Validator, deps.Policy))
	} else {
		// 未配置 OIDC 时退化为头部声明身份,仅供本地开发
		v1.Use(devAuthMiddleware(deps.Policy))
	}
	{
		// 审批请求路由 (物资/内部/日志本)
		requests := v1.Group("/requests")
		{
			requests.POST("", requestController.Create)
			requests.GET("/:id", requestController.Get)
			requests.POST("/:id/approve", requestController.Approve)
			requests.POST("/:id/reject", requestController.Reject)
			requests.POST("/:id/issue", requestController.Issue)
			requests.POST("/:id/dispute", requestController.Dispute)
			requests.POST("/:id/resolve", requestController.Resolve)
			requests.POST("/:id/reopen", requestController.Reopen)
		}

		// 任务路由
		tasks := v1.Group("/tasks")
		{
			tasks.POST("", taskController.Create)
			tasks.GET("/:id", taskController.Get)
			tasks.PUT("/:id/subtask", taskController.UpdateSubtask)
			tasks.POST("/:id/submit", taskController.Submit)
			tasks.POST("/:id/approve", taskController.Approve)
			tasks.POST("/:id/return", taskController.Return)
			tasks.POST("/:id/reopen", taskController.Reopen)
		}

		// 工时单路由
		timesheets := v1.Group("/timesheets")
		{
			timesheets.POST("", timesheetController.Create)
			timesheets.GET("/:id", timesheetController.Get)
			timesheets.POST("/:id/acknowledge", timesheetController.Acknowledge)
			timesheets.POST("/:id/send-to-office", timesheetController.SendToOffice)
			timesheets.POST("/:id/office-acknowledge", timesheetController.OfficeAcknowledge)
			timesheets.POST("/:id/reject", timesheetController.Reject)
			timesheets.POST("/:id/reply", timesheetController.Reply)
			timesheets.POST("/:id/reopen", timesheetController.Reopen)
		}

		// 评论与活动路由 (所有变体共用)
		entities := v1.Group("/entities")
		{
			entities.GET("", queryController.ListEntities)
			entities.GET("/:id/comments", activityController.ListComments)
			entities.POST("/:id/comments", activityController.AddComment)
			entities.GET("/:id/timeline", activityController.Timeline)
			entities.POST("/:id/viewed", activityController.MarkViewed)
			entities.GET("/:id/history", queryController.GetHistory)
		}

		// 收件箱
		v1.GET("/inbox", queryController.Inbox)

		// 库存与发放历史
		stock := v1.Group("/stock")
		{
			stock.POST("", stockController.Upsert)
			stock.GET("", stockController.List)
			stock.GET("/:id", stockController.Get)
		}
		v1.GET("/employees/:id/ppe-history", stockController.EmployeeHistory)

		// 管理端
		admin := v1.Group("/admin")
		{
			admin.DELETE("/entities/:id", adminController.Purge)
			admin.GET("/audit-logs", adminController.ListAuditLogs)
			admin.GET("/audit-logs/:type/:id", adminController.ResourceAuditLogs)
			admin.GET("/statistics", adminController.Statistics)
		}
	}

	return router
}

// devAuthMiddleware 开发模式身份中间件: 信任请求头声明的用户与角色
func devAuthMiddleware(policy *auth.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			Error(c, 401, "missing X-User-ID header", "")
			c.Abort()
			return
		}

		var roles []string
		if raw := c.GetHeader("X-User-Roles"); raw != "" {
			roles = strings.Split(raw, ",")
		}

		actor := policy.Actor(userID, roles)
		c.Set("user_id", userID)
		c.Set("roles", roles)
		c.Request = c.Request.WithContext(service.ContextWithActor(c.Request.Context(), actor))

		c.Next()
	}
}
