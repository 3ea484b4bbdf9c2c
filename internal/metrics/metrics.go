package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 实体创建数
	entitiesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_entities_created_total",
			Help: "Total number of workflow entities created",
		},
		[]string{"kind"},
	)

	// 状态转换数
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Total number of applied workflow actions",
		},
		[]string{"kind", "action"},
	)

	// 被拒绝的转换数 (权限不足、非法转换、并发冲突等)
	transitionErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transition_errors_total",
			Help: "Total number of rejected workflow actions",
		},
		[]string{"action"},
	)

	// 通知投递数
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of notification deliveries",
		},
		[]string{"status"}, // success, failed
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 实体状态分布
	entitiesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "workflow_entities_by_status",
			Help: "Number of workflow entities by kind and status",
		},
		[]string{"kind", "status"},
	)

	// WebSocket 在线连接数
	websocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Number of active websocket connections",
		},
	)
)

var (
	once sync.Once
)

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(entitiesCreatedTotal)
	prometheus.MustRegister(transitionsTotal)
	prometheus.MustRegister(transitionErrorsTotal)
	prometheus.MustRegister(notificationsTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(entitiesByStatus)
	prometheus.MustRegister(websocketConnections)

	// 注册 Go 运行时指标 (只注册一次,已注册则忽略错误)
	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordEntityCreated 记录实体创建
func RecordEntityCreated(kind string) {
	entitiesCreatedTotal.WithLabelValues(kind).Inc()
}

// RecordTransition 记录成功的工作流动作
func RecordTransition(kind, action string) {
	transitionsTotal.WithLabelValues(kind, action).Inc()
}

// RecordTransitionError 记录被拒绝的工作流动作
func RecordTransitionError(action string) {
	transitionErrorsTotal.WithLabelValues(action).Inc()
}

// RecordNotification 记录通知投递结果
func RecordNotification(status string) {
	notificationsTotal.WithLabelValues(status).Inc()
}

// SetWebsocketConnections 更新 WebSocket 在线连接数
func SetWebsocketConnections(count int) {
	websocketConnections.Set(float64(count))
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateEntitiesByStatus 更新实体状态分布指标
func UpdateEntitiesByStatus(kind, status string, count float64) {
	entitiesByStatus.WithLabelValues(kind, status).Set(count)
}
