package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vexnetworkgroup/BoardJS/internal/hub"
)

// WebSocketHandler 负责处理 WebSocket 升级请求和客户端注册。
//
// 连接建立后处于匿名状态；身份通过 authenticate 消息声明，
// 房间通过 create-room / join-room 消息进入（URL 不携带房间）。
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewWebSocketHandler 创建 WebSocketHandler 实例
func NewWebSocketHandler(h *hub.Hub) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 允许所有来源连接 (生产环境应配置具体的允许来源)
		CheckOrigin: func(r *http.Request) bool {
			// TODO: Implement proper origin checking for production
			return true
		},
	}

	return &WebSocketHandler{upgrader: upgrader, hub: h}
}

// HandleConnection 处理 WebSocket 连接请求。
// URL: /ws
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	// 1. 捕获来源地址；踢人封禁按这个地址进行
	clientIP := c.ClientIP()
	logCtx := logrus.WithField("ip", clientIP)

	// 2. 升级 HTTP 连接到 WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 会自动发送 HTTP 错误响应，这里只记录日志
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}

	// 3. 创建 Client 并注册到 Hub
	client := hub.NewClient(h.hub, conn, clientIP)
	registerMsg := hub.HubMessage{Type: "register", Client: client}
	if !h.hub.QueueMessage(registerMsg) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		client.CloseConn()
		return
	}

	// 4. 启动客户端的读写 goroutine
	client.Run()
	logCtx.WithField("socket_id", client.SocketID()).Info("WS Handler: Connection upgraded and registered")
}
