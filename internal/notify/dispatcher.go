package notify

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/siteops/opsflow-gin/internal/config"
	"github.com/siteops/opsflow-gin/internal/metrics"
	"github.com/siteops/opsflow-gin/internal/model"
	"github.com/siteops/opsflow-gin/internal/repository"
	"github.com/siteops/opsflow-gin/internal/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Dispatcher 通知分发器
// 轮询出箱表中的待发送记录,经 worker 池投递;
// 投递失败指数退避重试,耗尽后标记 failed,从不回滚业务数据
type Dispatcher struct {
	outboxRepo repository.OutboxRepository
	userRepo   repository.UserRepository
	sender     Sender
	logger     *logrus.Logger

	workers      int
	maxRetries   int
	pollInterval time.Duration

	queue chan *model.OutboxModel
	stop  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewDispatcher 创建通知分发器
func NewDispatcher(db *gorm.DB, sender Sender, cfg config.NotifyConfig, logger *logrus.Logger) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	pollInterval := time.Duration(cfg.PollInterval) * time.Second
	if cfg.PollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	return &Dispatcher{
		outboxRepo:   repository.NewOutboxRepository(db),
		userRepo:     repository.NewUserRepository(db),
		sender:       sender,
		logger:       logger,
		workers:      workers,
		maxRetries:   maxRetries,
		pollInterval: pollInterval,
		queue:        make(chan *model.OutboxModel, 256),
		stop:         make(chan struct{}),
	}
}

// Start 启动轮询循环与 worker 池
func (d *Dispatcher) Start() {
	// 回收上次进程异常退出时遗留的 processing 记录
	if err := d.outboxRepo.ReleaseStale(0); err != nil {
		d.logger.WithError(err).Warn("failed to release stale outbox records")
	}

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	d.wg.Add(1)
	go d.pollLoop()

	d.logger.WithFields(logrus.Fields{
		"workers":       d.workers,
		"poll_interval": d.pollInterval,
	}).Info("notification dispatcher started")
}

// Stop 停止分发器并等待 worker 退出
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stop) })
	d.wg.Wait()
}

// DrainOnce 手动触发一轮出箱处理 (测试与管理端使用)
func (d *Dispatcher) DrainOnce() error {
	records, err := d.outboxRepo.FindPending(100)
	if err != nil {
		return err
	}
	for _, record := range records {
		claimed, err := d.outboxRepo.Claim(record.ID)
		if err != nil {
			return err
		}
		if !claimed {
			continue
		}
		d.deliver(record)
	}
	return nil
}

// pollLoop 周期拉取待发送记录入队
func (d *Dispatcher) pollLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			records, err := d.outboxRepo.FindPending(100)
			if err != nil {
				d.logger.WithError(err).Error("failed to poll notification outbox")
				continue
			}
			for _, record := range records {
				// 入队前认领,防止同一记录被下一轮重复投递
				claimed, err := d.outboxRepo.Claim(record.ID)
				if err != nil {
					d.logger.WithError(err).WithField("outbox_id", record.ID).Error("failed to claim outbox record")
					continue
				}
				if !claimed {
					continue
				}
				select {
				case d.queue <- record:
				case <-d.stop:
					_ = d.outboxRepo.Release(record.ID)
					return
				default:
					// 队列满,放回 pending 留给下一轮
					_ = d.outboxRepo.Release(record.ID)
				}
			}
		case <-d.stop:
			return
		}
	}
}

// worker 消费队列中的出箱记录
func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case record := <-d.queue:
			d.deliver(record)
		case <-d.stop:
			return
		}
	}
}

// deliver 投递单条记录,带退避重试
func (d *Dispatcher) deliver(record *model.OutboxModel) {
	var evt workflow.Event
	if err := json.Unmarshal(record.Data, &evt); err != nil {
		d.logger.WithError(err).WithField("outbox_id", record.ID).Error("failed to decode outbox event")
		_ = d.outboxRepo.MarkFailed(record.ID)
		metrics.RecordNotification("failed")
		return
	}

	msg, err := d.render(&evt)
	if err != nil {
		d.logger.WithError(err).WithField("outbox_id", record.ID).Error("failed to render notification")
		_ = d.outboxRepo.MarkFailed(record.ID)
		metrics.RecordNotification("failed")
		return
	}
	if msg == nil {
		// 没有可投递的收件人,视为完成
		_ = d.outboxRepo.MarkSuccess(record.ID)
		return
	}

	backoff := time.Second
	for attempt := record.RetryCount; attempt < d.maxRetries; attempt++ {
		err := d.sender.Send(msg)
		if err == nil {
			_ = d.outboxRepo.MarkSuccess(record.ID)
			metrics.RecordNotification("success")
			return
		}
		d.logger.WithError(err).WithFields(logrus.Fields{
			"outbox_id": record.ID,
			"attempt":   attempt + 1,
		}).Warn("notification delivery failed")
		_ = d.outboxRepo.IncrementRetry(record.ID)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-d.stop:
			// 停机打断退避,放回 pending 待下次启动继续
			_ = d.outboxRepo.Release(record.ID)
			return
		}
	}

	_ = d.outboxRepo.MarkFailed(record.ID)
	metrics.RecordNotification("failed")
}

// render 将引擎事件渲染为通知消息,收件人 ID 解析为邮箱
func (d *Dispatcher) render(evt *workflow.Event) (*Message, error) {
	if len(evt.Recipients) == 0 {
		return nil, nil
	}

	users, err := d.userRepo.FindByIDs(evt.Recipients)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipients: %w", err)
	}
	to := make([]string, 0, len(users))
	for _, u := range users {
		if u.Email != "" {
			to = append(to, u.Email)
		}
	}
	if len(to) == 0 {
		return nil, nil
	}

	var subject, body string
	switch evt.Type {
	case workflow.EventStatusChanged:
		subject = fmt.Sprintf("[%s] status changed to %s", evt.Kind, evt.To)
		body = fmt.Sprintf("Entity %s moved from %q to %q by %s.", evt.EntityID, evt.From, evt.To, evt.ActorID)
	case workflow.EventCommentAdded:
		subject = fmt.Sprintf("[%s] new comment", evt.Kind)
		body = fmt.Sprintf("Entity %s received a comment from %s:\n\n%s", evt.EntityID, evt.ActorID, evt.Comment)
	case workflow.EventReopened:
		subject = fmt.Sprintf("[%s] reopened", evt.Kind)
		body = fmt.Sprintf("Entity %s was reopened by %s. A linked follow-up entity was created.", evt.EntityID, evt.ActorID)
	default:
		subject = fmt.Sprintf("[%s] %s", evt.Kind, evt.Type)
		body = fmt.Sprintf("Entity %s: %s by %s.", evt.EntityID, evt.Type, evt.ActorID)
	}
	if evt.Comment != "" && evt.Type == workflow.EventStatusChanged {
		body += "\n\nComment: " + evt.Comment
	}

	return &Message{To: to, Subject: subject, Body: body}, nil
}
