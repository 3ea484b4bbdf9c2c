package container

import (
	"fmt"
	"time"

	"github.com/siteops/opsflow-gin/internal/auth"
	"github.com/siteops/opsflow-gin/internal/config"
	"github.com/siteops/opsflow-gin/internal/database"
	"github.com/siteops/opsflow-gin/internal/notify"
	"github.com/siteops/opsflow-gin/internal/repository"
	"github.com/siteops/opsflow-gin/internal/service"
	"github.com/siteops/opsflow-gin/internal/store"
	"github.com/siteops/opsflow-gin/internal/websocket"
	"github.com/siteops/opsflow-gin/internal/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理数据库、工作流引擎、服务与后台组件的生命周期
type Container struct {
	cfg    *config.Config
	logger *logrus.Logger

	db         *gorm.DB
	engine     *workflow.Engine
	bus        *store.Bus
	hub        *websocket.Hub
	dispatcher *notify.Dispatcher
	validator  *auth.TokenValidator
	policy     *auth.Policy

	workflowService   service.WorkflowService
	requestService    service.RequestService
	taskService       service.TaskService
	timesheetService  service.TimesheetService
	activityService   service.ActivityService
	queryService      service.QueryService
	stockService      service.StockService
	auditLogService   service.AuditLogService
	statisticsService service.StatisticsService

	unsubscribeHub func()
}

// NewContainer 创建依赖注入容器
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	// 数据库带重试: 3 次,初始间隔 1 秒,指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	engine := workflow.NewEngine()
	bus := store.NewBus()
	hub := websocket.NewHub(logger)

	policy, err := auth.LoadPolicy(cfg.Policy.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load capability policy: %w", err)
	}

	var validator *auth.TokenValidator
	if cfg.OIDC.Issuer != "" {
		validator = auth.NewTokenValidator(cfg.OIDC.Issuer, cfg.OIDC.JWKSURL)
	}

	auditLogService := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	workflowService := service.NewWorkflowService(db, engine, bus, auditLogService)

	c := &Container{
		cfg:    cfg,
		logger: logger,

		db:        db,
		engine:    engine,
		bus:       bus,
		hub:       hub,
		validator: validator,
		policy:    policy,

		workflowService:  workflowService,
		requestService:   service.NewRequestService(workflowService),
		taskService:      service.NewTaskService(workflowService),
		timesheetService: service.NewTimesheetService(workflowService),
		activityService: service.NewActivityService(
			workflowService,
			repository.NewCommentRepository(db),
			repository.NewStateHistoryRepository(db),
		),
		queryService:      service.NewQueryService(db),
		stockService:      service.NewStockService(repository.NewStockRepository(db), auditLogService),
		auditLogService:   auditLogService,
		statisticsService: service.NewStatisticsService(db),
	}

	c.dispatcher = notify.NewDispatcher(db, notify.NewSMTPSender(cfg.SMTP), cfg.Notify, logger)

	return c, nil
}

// Start 启动后台组件: 变更总线、WebSocket Hub、通知分发器
func (c *Container) Start() {
	go c.bus.Run()
	go c.hub.Run()
	c.unsubscribeHub = c.hub.BindBus(c.bus)
	c.dispatcher.Start()
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Engine 获取工作流引擎
func (c *Container) Engine() *workflow.Engine {
	return c.engine
}

// Bus 获取变更总线
func (c *Container) Bus() *store.Bus {
	return c.bus
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Dispatcher 获取通知分发器
func (c *Container) Dispatcher() *notify.Dispatcher {
	return c.dispatcher
}

// Validator 获取 Token 验证器,未配置 OIDC 时为 nil
func (c *Container) Validator() *auth.TokenValidator {
	return c.validator
}

// Policy 获取能力策略
func (c *Container) Policy() *auth.Policy {
	return c.policy
}

// WorkflowService 获取工作流服务
func (c *Container) WorkflowService() service.WorkflowService {
	return c.workflowService
}

// RequestService 获取审批请求服务
func (c *Container) RequestService() service.RequestService {
	return c.requestService
}

// TaskService 获取任务服务
func (c *Container) TaskService() service.TaskService {
	return c.taskService
}

// TimesheetService 获取工时单服务
func (c *Container) TimesheetService() service.TimesheetService {
	return c.timesheetService
}

// ActivityService 获取评论与活动服务
func (c *Container) ActivityService() service.ActivityService {
	return c.activityService
}

// QueryService 获取查询服务
func (c *Container) QueryService() service.QueryService {
	return c.queryService
}

// StockService 获取库存服务
func (c *Container) StockService() service.StockService {
	return c.stockService
}

// AuditLogService 获取审计日志服务
func (c *Container) AuditLogService() service.AuditLogService {
	return c.auditLogService
}

// StatisticsService 获取统计服务
func (c *Container) StatisticsService() service.StatisticsService {
	return c.statisticsService
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.dispatcher != nil {
		c.dispatcher.Stop()
	}
	if c.unsubscribeHub != nil {
		c.unsubscribeHub()
	}
	if c.bus != nil {
		c.bus.Close()
	}

	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return nil
}
