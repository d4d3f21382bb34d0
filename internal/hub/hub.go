// Package hub 维护活跃的 WebSocket 连接集合，并把客户端消息
// 分发到业务逻辑、把结果按协议语义广播回房间。
package hub

import (
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/vexnetworkgroup/BoardJS/internal/repository"
	"github.com/vexnetworkgroup/BoardJS/internal/service"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	// 笔画点序列可能较长，给一个宽裕的上限。
	maxMessageSize = 64 * 1024

	// 光标位置在 Redis 中的存活时间。
	cursorTTL = 30 * time.Second
)

// HubMessage 定义了在 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type    string  // "register", "unregister", "message"
	Client  *Client // 来源连接
	RawData []byte  // 仅用于 message (原始 WebSocket 消息)
}

// Hub 维护活跃客户端集合并协调消息处理。
//
// 房间文档本身的串行化由 RoomService 的按房间互斥锁保证；
// Hub 只负责连接管理和广播，广播顺序即投递顺序（协议没有序列号）。
type Hub struct {
	// 内部通道，处理所有来自 Client 的事件
	messageChan chan HubMessage

	// 客户端集合，按房间 ID 组织: map[roomID]map[*Client]bool
	rooms   map[string]map[*Client]bool
	roomsMu sync.RWMutex

	// 按连接标识索引的在线客户端，用于踢人时解析地址
	bySocket   map[string]*Client
	bySocketMu sync.RWMutex

	// 注入的依赖
	roomService *service.RoomService
	stateRepo   repository.StateRepository
	asynqClient *asynq.Client // 封禁审计任务入队，可为 nil（测试）
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub(roomService *service.RoomService, stateRepo repository.StateRepository, asynqClient *asynq.Client) *Hub {
	if roomService == nil {
		panic("RoomService cannot be nil for Hub")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		rooms:       make(map[string]map[*Client]bool),
		bySocket:    make(map[string]*Client),
		roomService: roomService,
		stateRepo:   stateRepo,
		asynqClient: asynqClient,
	}
}

// Run 启动 Hub 的主事件处理循环。
// 它应该在一个单独的 goroutine 中运行。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			h.registerClient(msg.Client)
		case "unregister":
			h.unregisterClient(msg.Client)
		case "message":
			// 并发处理客户端消息，避免阻塞 Hub 主循环。
			// 同一房间的画板变更由 RoomService 的房间锁串行化。
			go h.handleClientMessage(msg.Client, msg.RawData)
		default:
			log.Warnf("Received unknown hub message type: %s", msg.Type)
		}
	}
	log.Info("Hub is shutting down...")
}

// Stop 关闭 Hub 的消息通道，使 Run 退出。
func (h *Hub) Stop() {
	close(h.messageChan)
}

// QueueMessage 将消息放入 Hub 的处理队列 (非阻塞)。
// 返回 true 如果消息成功入队，false 如果队列已满。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// registerClient 处理客户端注册逻辑。
// 注册只建立连接索引；加入房间由 join-room 消息驱动。
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	h.bySocketMu.Lock()
	h.bySocket[client.SocketID()] = client
	h.bySocketMu.Unlock()

	logrus.WithFields(logrus.Fields{
		"socket_id": client.SocketID(),
		"ip":        client.IP(),
	}).Info("Client registered to Hub")
}

// unregisterClient 处理客户端注销逻辑。
// 如果连接已加入房间，对应成员被置为离线并重新广播成员列表。
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	logCtx := logrus.WithField("socket_id", client.SocketID())

	h.bySocketMu.Lock()
	delete(h.bySocket, client.SocketID())
	h.bySocketMu.Unlock()

	roomID := client.Room()
	if roomID != "" {
		h.removeFromRoom(roomID, client)
		// 离线标记和成员广播在独立 goroutine 中执行，
		// 避免数据库 IO 阻塞 Hub 主循环。
		go h.markOfflineAndBroadcast(roomID, client.SocketID())
	}

	// 关闭 send 通道，使 WritePump 退出；防止重复关闭
	client.closeSend()
	logCtx.Info("Client unregistered from Hub")
}

// resolveSocketIP 把连接标识解析为该连接的网络地址。
func (h *Hub) resolveSocketIP(socketID string) (string, bool) {
	h.bySocketMu.RLock()
	client, ok := h.bySocket[socketID]
	h.bySocketMu.RUnlock()
	if !ok {
		return "", false
	}
	return client.IP(), true
}

// addToRoom 把客户端加入房间的连接集合。
func (h *Hub) addToRoom(roomID string, client *Client) {
	h.roomsMu.Lock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	h.roomsMu.Unlock()
}

// removeFromRoom 把客户端从房间的连接集合中移除；房间变空则删除记录。
func (h *Hub) removeFromRoom(roomID string, client *Client) {
	h.roomsMu.Lock()
	if roomClients, ok := h.rooms[roomID]; ok {
		delete(roomClients, client)
		if len(roomClients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.roomsMu.Unlock()
}

// broadcastToRoom 将消息发送给指定房间的所有客户端。
// exclude 不为 nil 时跳过该连接（用于 update-strokes / update-cursor）。
func (h *Hub) broadcastToRoom(roomID string, payload []byte, exclude *Client) {
	h.roomsMu.RLock()
	roomClients, ok := h.rooms[roomID]
	clientsToSend := make([]*Client, 0, len(roomClients))
	if ok {
		for client := range roomClients {
			if client != exclude {
				clientsToSend = append(clientsToSend, client)
			}
		}
	}
	h.roomsMu.RUnlock()

	if len(clientsToSend) == 0 {
		return
	}

	for _, client := range clientsToSend {
		client.enqueue(payload)
	}
}
