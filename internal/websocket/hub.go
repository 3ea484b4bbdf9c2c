package websocket

import (
	"encoding/json"
	"sync"

	"github.com/siteops/opsflow-gin/internal/metrics"
	"github.com/siteops/opsflow-gin/internal/store"
	"github.com/sirupsen/logrus"
)

// Hub 管理所有 WebSocket 连接
// 实体变更经总线订阅推送给参与者,前端据此刷新列表与未读标记
type Hub struct {
	clients map[*Client]bool

	// 注册新客户端
	Register chan *Client

	// 注销客户端
	Unregister chan *Client

	logger *logrus.Logger

	mu sync.RWMutex
}

// NewHub 创建新的 Hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run 运行 Hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			metrics.SetWebsocketConnections(len(h.clients))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			metrics.SetWebsocketConnections(len(h.clients))
			h.mu.Unlock()
		}
	}
}

// BindBus 订阅实体变更总线,返回取消订阅函数
func (h *Hub) BindBus(bus *store.Bus) func() {
	return bus.Subscribe("", func(change store.Change) {
		h.PushChange(change)
	})
}

// PushChange 将变更推送给所有参与者 (动作发起人除外,其客户端已拿到响应)
func (h *Hub) PushChange(change store.Change) {
	message, err := json.Marshal(change)
	if err != nil {
		h.logger.WithError(err).Error("failed to marshal change notification")
		return
	}

	for _, userID := range change.Participants {
		if userID == change.ActorID {
			continue
		}
		h.BroadcastToUser(userID, message)
	}
}

// BroadcastToUser 向特定用户的所有连接发送消息
func (h *Hub) BroadcastToUser(userID string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if client.UserID != userID {
			continue
		}
		select {
		case client.Send <- message:
		default:
			close(client.Send)
			delete(h.clients, client)
		}
	}
}

// HasClient 检查客户端是否存在
func (h *Hub) HasClient(clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.ID == clientID {
			return true
		}
	}
	return false
}

// GetClientCount 获取客户端数量
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
