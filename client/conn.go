package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vexnetworkgroup/BoardJS/internal/dto"
)

const (
	dialTimeout    = 10 * time.Second
	sendBufferSize = 256
)

// Conn 是到服务端 /ws 端点的 WebSocket 传输。
// 它实现 Sender：Send 只入队不等待，缓冲满时丢弃消息并记日志，
// 与协议的 fire-and-forget 语义一致。
type Conn struct {
	ws        *websocket.Conn
	sendCh    chan dto.ClientMessage
	done      chan struct{}
	closeOnce sync.Once

	// onMessage 在读 goroutine 中被调用；为 nil 时消息被丢弃
	onMessage func(dto.ServerMessage)
}

// Dial 建立到服务端的 WebSocket 连接并启动读写 goroutine。
// url 形如 ws://host:port/ws。onMessage 接收所有服务端消息。
func Dial(url string, onMessage func(dto.ServerMessage)) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		ws:        ws,
		sendCh:    make(chan dto.ClientMessage, sendBufferSize),
		done:      make(chan struct{}),
		onMessage: onMessage,
	}
	go c.writeLoop()
	go c.readLoop()
	return c, nil
}

// Send 把消息排入发送队列。
func (c *Conn) Send(msg dto.ClientMessage) {
	select {
	case c.sendCh <- msg:
	default:
		logrus.WithField("type", msg.Type).Warn("Conn: Send buffer full, dropping message")
	}
}

// Close 关闭连接并停止读写 goroutine。
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// --- 便捷方法：构造各类客户端消息 ---

// Authenticate 声明身份（信任声明模型，服务端不回执）。
func (c *Conn) Authenticate(user dto.UserInfo) {
	u := user
	c.Send(dto.ClientMessage{Type: dto.MsgAuthenticate, User: &u})
}

// CreateRoom 请求创建房间；结果经 room-created 消息返回。
func (c *Conn) CreateRoom() {
	c.Send(dto.ClientMessage{Type: dto.MsgCreateRoom})
}

// JoinRoom 请求加入房间；结果经 room-joined 或 join-error 返回。
func (c *Conn) JoinRoom(roomID string) {
	c.Send(dto.ClientMessage{Type: dto.MsgJoinRoom, RoomID: roomID})
}

// KickUser 请求把用户踢出房间（仅房主有效，无效请求被静默忽略）。
func (c *Conn) KickUser(roomID string, userID uint) {
	c.Send(dto.ClientMessage{Type: dto.MsgKickUser, RoomID: roomID, UserIDToKick: userID})
}

// --- 读写 goroutine ---

func (c *Conn) writeLoop() {
	for {
		select {
		case msg := <-c.sendCh:
			data, err := json.Marshal(msg)
			if err != nil {
				logrus.WithError(err).Error("Conn: Failed to marshal outgoing message")
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logrus.WithError(err).Warn("Conn: Write failed, closing connection")
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) readLoop() {
	defer c.Close()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				logrus.WithError(err).Info("Conn: Connection closed by server")
			}
			return
		}

		var msg dto.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logrus.WithError(err).Warn("Conn: Dropping malformed server message")
			continue
		}
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	}
}

// BindEngine 返回一个把画板相关服务端消息路由到引擎的回调，
// 可直接作为 Dial 的 onMessage 传入。非画板消息（成员列表、
// 光标、踢出通知等）交给 fallback 处理，fallback 可以为 nil。
func BindEngine(engine *Engine, fallback func(dto.ServerMessage)) func(dto.ServerMessage) {
	return func(msg dto.ServerMessage) {
		switch msg.Type {
		case dto.MsgNewStroke:
			engine.HandleNewStroke(msg.Stroke)
		case dto.MsgStrokeDeleted:
			engine.HandleStrokeDeleted(msg.StrokeID)
		case dto.MsgStrokesUpdated:
			engine.HandleStrokesUpdated(msg.StrokeIDs, msg.Dx, msg.Dy)
		case dto.MsgBoardCleared:
			engine.HandleBoardCleared()
		default:
			if fallback != nil {
				fallback(msg)
			}
		}
	}
}
