package hub

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client 代表一个连接到 Hub 的 WebSocket 客户端。
//
// 连接的状态机：disconnected → anonymous → authenticated → joined。
// 身份和房间关联是可变状态，由 mu 保护（消息处理在并发 goroutine 中进行）。
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte // 向此客户端发送消息的缓冲通道

	socketID string // 连接标识，创建时分配，不可变
	ip       string // 连接的来源网络地址，升级时捕获，不可变

	mu            sync.Mutex
	authenticated bool
	userID        uint
	username      string
	roomID        string // 当前加入的房间，至多一个；空串表示未加入
}

// NewClient 创建一个新的 Client 实例。
// ip 是该连接的来源地址，踢人封禁时以它为准。
func NewClient(hub *Hub, conn *websocket.Conn, ip string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		socketID: newSocketID(),
		ip:       ip,
	}
}

// Run 启动客户端的读写 goroutine
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) SocketID() string { return c.socketID }
func (c *Client) IP() string       { return c.ip }

// SetIdentity 把 authenticate 消息声明的身份附加到连接上。
func (c *Client) SetIdentity(userID uint, username string) {
	c.mu.Lock()
	c.authenticated = true
	c.userID = userID
	c.username = username
	c.mu.Unlock()
}

// Identity 返回连接当前的身份；ok 为 false 表示尚未认证。
func (c *Client) Identity() (userID uint, username string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.username, c.authenticated
}

// Room 返回连接当前加入的房间 ID，未加入返回空串。
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// SetRoom 更新连接的房间关联。
func (c *Client) SetRoom(roomID string) {
	c.mu.Lock()
	c.roomID = roomID
	c.mu.Unlock()
}

// CloseConn 强制关闭底层连接（踢人时使用）。
func (c *Client) CloseConn() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// enqueue 非阻塞地把消息放入发送队列；队列满则丢弃。
// 慢客户端不应拖住广播，后续由其 WritePump 或注销流程收尾。
func (c *Client) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
		logrus.WithField("socket_id", c.socketID).Warn("Client send channel full, dropping message")
	}
}

// closeSend 关闭发送通道，使 WritePump 退出；防止重复关闭 panic。
func (c *Client) closeSend() {
	select {
	case <-c.send:
		// 通道已关闭或有残留数据
	default:
		close(c.send)
	}
}

// ReadPump 将消息从 WebSocket 连接泵送到 Hub 的消息通道。
// 它在自己的 goroutine 中运行。
func (c *Client) ReadPump() {
	defer func() {
		// 清理操作：请求 Hub 注销此客户端
		unregisterMsg := HubMessage{Type: "unregister", Client: c}
		select {
		case c.hub.messageChan <- unregisterMsg:
		case <-time.After(1 * time.Second):
			logrus.WithField("socket_id", c.socketID).Warn("Timeout sending unregister message to Hub channel")
		}
		c.conn.Close()
		logrus.WithField("socket_id", c.socketID).Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithField("socket_id", c.socketID)
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed normally or read error")
			}
			break
		}

		if messageType != websocket.TextMessage {
			logrus.WithField("socket_id", c.socketID).Debugf("Ignoring non-text message type: %d", messageType)
			continue
		}

		msg := HubMessage{Type: "message", Client: c, RawData: message}
		select {
		case c.hub.messageChan <- msg:
		default:
			// 系统负载过高或 Hub 处理逻辑阻塞时丢弃
			logrus.WithField("socket_id", c.socketID).Warn("Hub message channel full, dropping client message")
		}
	}
}

// WritePump 将消息从 Client 的 send 通道泵送到 WebSocket 连接。
// 它在自己的 goroutine 中运行。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logrus.WithField("socket_id", c.socketID).Info("writePump exited")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// send 通道被 Hub 关闭（注销时）
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithField("socket_id", c.socketID).WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithField("socket_id", c.socketID).WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}

// newSocketID 生成连接标识。
func newSocketID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic("failed to generate socket id")
	}
	return hex.EncodeToString(b)
}
