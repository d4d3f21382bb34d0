package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vexnetworkgroup/BoardJS/internal/service"
)

// BoardHandler 封装了画板文档的只读 HTTP 接口。
// 实时协作走 WebSocket；这里只提供按房间 ID 拉取文档快照。
type BoardHandler struct {
	roomService *service.RoomService
}

// NewBoardHandler 创建 BoardHandler 实例
func NewBoardHandler(roomService *service.RoomService) *BoardHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for BoardHandler")
	}
	return &BoardHandler{roomService: roomService}
}

// GetBoard 返回指定房间的完整画板文档
func (h *BoardHandler) GetBoard(c *gin.Context) {
	roomID := c.Param("roomId")
	if roomID == "" {
		ErrorResponse(c, http.StatusBadRequest, "Room id is required")
		return
	}

	board, err := h.roomService.LoadBoard(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	logrus.WithField("room_id", roomID).Debug("Handler.GetBoard: Board fetched")
	SuccessResponse(c, http.StatusOK, board)
}
