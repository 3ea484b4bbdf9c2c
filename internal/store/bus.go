package store

import (
	"sync"
	"time"

	"github.com/siteops/opsflow-gin/internal/workflow"
)

// Change 已提交的实体变更通知
// 只有在数据库事务提交成功后才会发布,订阅方看到的状态与持久化状态一致
type Change struct {
	EntityID     string                `json:"entity_id"`
	Kind         workflow.VariantKind  `json:"kind"`
	Status       workflow.State        `json:"status"`
	Revision     int64                 `json:"revision"`
	ActorID      string                `json:"actor_id"`
	Participants []string              `json:"participants"`
	OccurredAt   time.Time             `json:"occurred_at"`
}

// Subscriber 变更回调
type Subscriber func(Change)

// subscription 一条订阅: kind 为空时接收所有变体的变更
type subscription struct {
	id   int
	kind workflow.VariantKind
	fn   Subscriber
}

// Bus 进程内实体变更总线
// 显式的订阅/观察者抽象: 消费方注册类型化回调,
// 代替让全局监听器直接改写组件内部状态
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]subscription
	nextID  int
	publish chan Change
	stop    chan struct{}
	once    sync.Once
}

// NewBus 创建变更总线
func NewBus() *Bus {
	return &Bus{
		subs:    make(map[int]subscription),
		publish: make(chan Change, 256),
		stop:    make(chan struct{}),
	}
}

// Run 运行分发循环,在独立 goroutine 中调用
func (b *Bus) Run() {
	for {
		select {
		case change := <-b.publish:
			b.dispatch(change)
		case <-b.stop:
			return
		}
	}
}

// Subscribe 注册回调,kind 为空字符串时订阅所有变体
// 返回取消函数
func (b *Bus) Subscribe(kind workflow.VariantKind, fn Subscriber) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = subscription{id: id, kind: kind, fn: fn}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish 发布变更,队列满时丢弃而不阻塞提交路径
func (b *Bus) Publish(change Change) {
	select {
	case b.publish <- change:
	default:
		// 订阅通道是尽力而为的推送,不允许拖慢写入方
	}
}

// SubscriberCount 当前订阅数 (测试用)
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close 停止分发循环
func (b *Bus) Close() {
	b.once.Do(func() { close(b.stop) })
}

func (b *Bus) dispatch(change Change) {
	b.mu.RLock()
	subs := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		if s.kind == "" || s.kind == change.Kind {
			s.fn(change)
		}
	}
}
