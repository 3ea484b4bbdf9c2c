package database

import (
	"context"
	"fmt"
	"time"

	"github.com/siteops/opsflow-gin/internal/config"
	"github.com/siteops/opsflow-gin/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取默认连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 从配置中读取连接池参数,未设置的项使用默认值
	poolConfig := GetPoolConfig()
	if cfg.MaxIdleConns > 0 {
		poolConfig.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolConfig.ConnMaxIdleTime = cfg.ConnMaxIdleTime
	}

	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// ConnectWithRetry 带重试的数据库连接 (指数退避)
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb,需要手动建表
	if dialector == "sqlite" || dialector == "sqlite3" {
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		if err := db.AutoMigrate(
			&model.EntityModel{},
			&model.CommentModel{},
			&model.ViewFlagModel{},
			&model.StateHistoryModel{},
			&model.OutboxModel{},
			&model.StockItemModel{},
			&model.PpeHistoryModel{},
			&model.UserModel{},
			&model.AuditLogModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表 (使用 TEXT 替代 jsonb)
func createSQLiteTables(db *gorm.DB) error {
	stmts := []struct {
		name string
		ddl  string
	}{
		{"workflow_entities", `
		CREATE TABLE IF NOT EXISTS workflow_entities (
			id VARCHAR(64) PRIMARY KEY,
			kind VARCHAR(32) NOT NULL,
			status VARCHAR(32) NOT NULL,
			requester_id VARCHAR(64) NOT NULL,
			approver_id VARCHAR(64),
			revision INTEGER NOT NULL DEFAULT 1,
			reopened_from VARCHAR(64),
			data TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			completed_at DATETIME
		)`},
		{"comments", `
		CREATE TABLE IF NOT EXISTS comments (
			id VARCHAR(64) PRIMARY KEY,
			entity_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			text TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`},
		{"view_flags", `
		CREATE TABLE IF NOT EXISTS view_flags (
			entity_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(64) NOT NULL,
			viewed BOOLEAN NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (entity_id, user_id)
		)`},
		{"state_history", `
		CREATE TABLE IF NOT EXISTS state_history (
			id VARCHAR(64) PRIMARY KEY,
			entity_id VARCHAR(64) NOT NULL,
			from_state VARCHAR(32),
			to_state VARCHAR(32) NOT NULL,
			reason TEXT,
			operator VARCHAR(64) NOT NULL,
			created_at DATETIME NOT NULL
		)`},
		{"notification_outbox", `
		CREATE TABLE IF NOT EXISTS notification_outbox (
			id VARCHAR(64) PRIMARY KEY,
			entity_id VARCHAR(64) NOT NULL,
			type VARCHAR(32) NOT NULL,
			data TEXT NOT NULL,
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			retry_count INTEGER DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`},
		{"stock_items", `
		CREATE TABLE IF NOT EXISTS stock_items (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL
		)`},
		{"ppe_history", `
		CREATE TABLE IF NOT EXISTS ppe_history (
			id VARCHAR(64) PRIMARY KEY,
			employee_id VARCHAR(64) NOT NULL,
			request_id VARCHAR(64) NOT NULL,
			item_id VARCHAR(64) NOT NULL,
			quantity INTEGER NOT NULL,
			issue_date DATETIME NOT NULL,
			issued_by VARCHAR(64) NOT NULL
		)`},
		{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			roles VARCHAR(255),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`},
		{"audit_logs", `
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			action VARCHAR(64) NOT NULL,
			resource_type VARCHAR(32) NOT NULL,
			resource_id VARCHAR(64) NOT NULL,
			request_id VARCHAR(64),
			ip VARCHAR(45),
			user_agent TEXT,
			details TEXT,
			created_at DATETIME NOT NULL
		)`},
	}

	for _, s := range stmts {
		if err := db.Exec(s.ddl).Error; err != nil {
			return fmt.Errorf("failed to create %s table: %w", s.name, err)
		}
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	dialector := db.Dialector.Name()

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_entities_kind_status ON workflow_entities(kind, status)",
		"CREATE INDEX IF NOT EXISTS idx_entities_requester ON workflow_entities(requester_id)",
		"CREATE INDEX IF NOT EXISTS idx_entities_approver ON workflow_entities(approver_id)",
		"CREATE INDEX IF NOT EXISTS idx_entities_updated_at ON workflow_entities(updated_at)",
		"CREATE INDEX IF NOT EXISTS idx_comments_entity_id ON comments(entity_id)",
		"CREATE INDEX IF NOT EXISTS idx_comments_created_at ON comments(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_history_entity_id ON state_history(entity_id)",
		"CREATE INDEX IF NOT EXISTS idx_history_created_at ON state_history(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_outbox_status ON notification_outbox(status)",
		"CREATE INDEX IF NOT EXISTS idx_outbox_entity_id ON notification_outbox(entity_id)",
		"CREATE INDEX IF NOT EXISTS idx_outbox_created_at ON notification_outbox(created_at)",
		"CREATE INDEX IF NOT EXISTS idx_ppe_history_employee ON ppe_history(employee_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_logs(user_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at)",
	}

	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// PostgreSQL 特定的 GIN 索引 (JSONB 字段)
	if dialector == "postgres" {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_entities_data_gin ON workflow_entities USING GIN (data)").Error; err != nil {
			return fmt.Errorf("failed to create idx_entities_data_gin: %w", err)
		}
	}

	return nil
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx) == nil
}
