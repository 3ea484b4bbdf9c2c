package store_test

import (
	"sync"
	"testing"
	"time"

	"github.com/siteops/opsflow-gin/internal/store"
	"github.com/siteops/opsflow-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectChanges 线程安全的变更收集器
type collectChanges struct {
	mu      sync.Mutex
	changes []store.Change
}

func (c *collectChanges) add(change store.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.changes = append(c.changes, change)
}

func (c *collectChanges) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.changes)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// TestBus_PublishSubscribe 测试发布订阅基本流程
func TestBus_PublishSubscribe(t *testing.T) {
	bus := store.NewBus()
	go bus.Run()
	defer bus.Close()

	var got collectChanges
	unsubscribe := bus.Subscribe("", got.add)
	defer unsubscribe()

	bus.Publish(store.Change{EntityID: "e-001", Kind: workflow.KindTask, Status: workflow.TaskToDo})

	waitFor(t, func() bool { return got.len() == 1 })
	got.mu.Lock()
	assert.Equal(t, "e-001", got.changes[0].EntityID)
	got.mu.Unlock()
}

// TestBus_KindFilter 测试按变体过滤订阅
func TestBus_KindFilter(t *testing.T) {
	bus := store.NewBus()
	go bus.Run()
	defer bus.Close()

	var tasks, all collectChanges
	defer bus.Subscribe(workflow.KindTask, tasks.add)()
	defer bus.Subscribe("", all.add)()

	bus.Publish(store.Change{EntityID: "e-001", Kind: workflow.KindTask})
	bus.Publish(store.Change{EntityID: "e-002", Kind: workflow.KindTimesheet})

	waitFor(t, func() bool { return all.len() == 2 })
	assert.Equal(t, 1, tasks.len(), "类型化订阅只收到匹配变体")
}

// TestBus_Unsubscribe 测试取消订阅后不再收到变更
func TestBus_Unsubscribe(t *testing.T) {
	bus := store.NewBus()
	go bus.Run()
	defer bus.Close()

	var got collectChanges
	unsubscribe := bus.Subscribe("", got.add)
	require.Equal(t, 1, bus.SubscriberCount())

	unsubscribe()
	assert.Equal(t, 0, bus.SubscriberCount())

	bus.Publish(store.Change{EntityID: "e-001", Kind: workflow.KindTask})
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, got.len())
}

// TestBus_PublishNonBlocking 测试队列满时发布不阻塞
func TestBus_PublishNonBlocking(t *testing.T) {
	bus := store.NewBus() // 不运行 Run,队列只进不出

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(store.Change{EntityID: "e-001"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on full queue")
	}
}
