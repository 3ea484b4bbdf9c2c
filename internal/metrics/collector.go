package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Collector 指标收集器
// 周期性扫描数据库,刷新连接池与实体状态分布指标
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			_ = UpdateDatabaseConnections(c.db)
			c.collectEntityCounts()
		}
	}
}

// collectEntityCounts 刷新实体状态分布
func (c *Collector) collectEntityCounts() {
	var results []struct {
		Kind   string
		Status string
		Count  int64
	}
	err := c.db.Table("workflow_entities").
		Select("kind, status, COUNT(*) as count").
		Group("kind").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return
	}

	for _, r := range results {
		UpdateEntitiesByStatus(r.Kind, r.Status, float64(r.Count))
	}
}
