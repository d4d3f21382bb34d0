package hub

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/vexnetworkgroup/BoardJS/internal/dto"
	"github.com/vexnetworkgroup/BoardJS/internal/service"
	"github.com/vexnetworkgroup/BoardJS/internal/tasks"
)

// 加入失败时返回给客户端的提示文案。
const (
	msgRoomNotFound  = "Room not found."
	msgBanned        = "You are banned from this room."
	msgKickedByOwner = "You have been removed from the room by the owner."
)

// handleClientMessage 解析并分发一条客户端消息。
//
// 消息类型是封闭集合，在这里做穷举处理；未知类型记录日志后丢弃。
// 权限不足和目标房间不存在的变更按协议语义被静默吞掉，
// 调用者不会收到任何反馈（join-room 是唯一把错误回给调用者的操作）。
func (h *Hub) handleClientMessage(client *Client, raw []byte) {
	ctx := context.Background()
	logCtx := logrus.WithField("socket_id", client.SocketID())

	var msg dto.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logCtx.WithError(err).Warn("Failed to unmarshal client message, dropping")
		return
	}
	logCtx = logCtx.WithField("msg_type", msg.Type)

	switch msg.Type {
	case dto.MsgAuthenticate:
		h.handleAuthenticate(client, &msg, logCtx)
	case dto.MsgCreateRoom:
		h.handleCreateRoom(ctx, client, logCtx)
	case dto.MsgJoinRoom:
		h.handleJoinRoom(ctx, client, &msg, logCtx)
	case dto.MsgAddStroke:
		h.handleAddStroke(ctx, client, &msg, logCtx)
	case dto.MsgDeleteStroke:
		h.handleDeleteStroke(ctx, client, &msg, logCtx)
	case dto.MsgUpdateStrokes:
		h.handleUpdateStrokes(ctx, client, &msg, logCtx)
	case dto.MsgClearBoard:
		h.handleClearBoard(ctx, client, &msg, logCtx)
	case dto.MsgCursorMove:
		h.handleCursorMove(ctx, client, &msg, logCtx)
	case dto.MsgKickUser:
		h.handleKickUser(ctx, client, &msg, logCtx)
	default:
		logCtx.Warn("Unknown client message type, dropping")
	}
}

// handleAuthenticate 把消息声明的身份附加到连接上。
// 不与用户存储核对（trust-on-assert），也不回复。
func (h *Hub) handleAuthenticate(client *Client, msg *dto.ClientMessage, logCtx *logrus.Entry) {
	if msg.User == nil {
		logCtx.Warn("authenticate without user payload, dropping")
		return
	}
	client.SetIdentity(msg.User.ID, msg.User.Username)
	logCtx.WithFields(logrus.Fields{
		"user_id":  msg.User.ID,
		"username": msg.User.Username,
	}).Info("Identity attached to connection")
}

// handleCreateRoom 创建新房间并把房间 ID 回给调用者。
func (h *Hub) handleCreateRoom(ctx context.Context, client *Client, logCtx *logrus.Entry) {
	userID, _, ok := client.Identity()
	if !ok {
		logCtx.Warn("create-room from unauthenticated connection, dropping")
		return
	}

	board, err := h.roomService.CreateRoom(ctx, userID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to create room")
		h.sendTo(client, &dto.ServerMessage{Type: dto.MsgRoomCreated, Success: false, Message: "Failed to create room."})
		return
	}
	h.sendTo(client, &dto.ServerMessage{Type: dto.MsgRoomCreated, Success: true, RoomID: board.RoomID})
}

// handleJoinRoom 处理加入房间。
// 加入成功且此前在别的房间时，先离开旧房间；每个连接至多加入一个房间。
// 失败的加入不改变连接状态，只通过 join-error 报告给调用者
// （这是唯一有错误反馈的操作）。
func (h *Hub) handleJoinRoom(ctx context.Context, client *Client, msg *dto.ClientMessage, logCtx *logrus.Entry) {
	userID, username, ok := client.Identity()
	if !ok {
		logCtx.Warn("join-room from unauthenticated connection, dropping")
		return
	}
	logCtx = logCtx.WithFields(logrus.Fields{"room_id": msg.RoomID, "user_id": userID})

	board, err := h.roomService.JoinRoom(ctx, msg.RoomID, userID, username, client.SocketID(), client.IP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRoomNotFound):
			h.sendTo(client, &dto.ServerMessage{Type: dto.MsgJoinError, Success: false, Message: msgRoomNotFound})
		case errors.Is(err, service.ErrForbidden):
			h.sendTo(client, &dto.ServerMessage{Type: dto.MsgJoinError, Success: false, Message: msgBanned})
		default:
			logCtx.WithError(err).Error("Failed to join room")
			h.sendTo(client, &dto.ServerMessage{Type: dto.MsgJoinError, Success: false, Message: "Failed to join room."})
		}
		return
	}

	// 新房间已接纳，此时才离开旧房间
	if prev := client.Room(); prev != "" && prev != msg.RoomID {
		h.removeFromRoom(prev, client)
		client.SetRoom("")
		h.markOfflineAndBroadcast(prev, client.SocketID())
		logCtx.WithField("previous_room", prev).Info("Connection left previous room after joining another")
	}

	h.addToRoom(msg.RoomID, client)
	client.SetRoom(msg.RoomID)

	// 完整画板回给加入者，最新成员列表广播给房间内所有连接
	h.sendTo(client, &dto.ServerMessage{Type: dto.MsgRoomJoined, Success: true, RoomID: board.RoomID, Board: board})
	h.broadcastMessage(msg.RoomID, &dto.ServerMessage{Type: dto.MsgUpdateMembers, Members: board.Members}, nil)
	logCtx.Info("Connection joined room")
}

// handleAddStroke 写入一条笔画并广播给全部成员（包括发送者）。
// 发送者收到携带最终 id 的回声后完成本地乐观记录的确认。
func (h *Hub) handleAddStroke(ctx context.Context, client *Client, msg *dto.ClientMessage, logCtx *logrus.Entry) {
	if !h.requireJoined(client, msg.RoomID, logCtx) {
		return
	}
	if msg.Stroke == nil {
		logCtx.Warn("add-stroke without stroke payload, dropping")
		return
	}

	stroke, err := h.roomService.AddStroke(ctx, msg.RoomID, *msg.Stroke)
	if err != nil {
		// 房间不存在或持久化失败：吞掉，不广播
		logCtx.WithError(err).Warn("add-stroke had no effect")
		return
	}
	h.broadcastMessage(msg.RoomID, &dto.ServerMessage{
		Type:     dto.MsgNewStroke,
		StrokeID: stroke.ID,
		Stroke:   stroke,
	}, nil)
}

// handleDeleteStroke 删除一条笔画。
// 笔画不存在时是幂等的空操作，且不广播。
func (h *Hub) handleDeleteStroke(ctx context.Context, client *Client, msg *dto.ClientMessage, logCtx *logrus.Entry) {
	if !h.requireJoined(client, msg.RoomID, logCtx) {
		return
	}

	existed, err := h.roomService.DeleteStroke(ctx, msg.RoomID, msg.StrokeID)
	if err != nil {
		logCtx.WithError(err).Warn("delete-stroke had no effect")
		return
	}
	if !existed {
		return
	}
	h.broadcastMessage(msg.RoomID, &dto.ServerMessage{
		Type:     dto.MsgStrokeDeleted,
		StrokeID: msg.StrokeID,
	}, nil)
}

// handleUpdateStrokes 批量平移笔画并广播给除发送者以外的成员。
// 发送者在拖拽过程中已经应用了同一增量。
func (h *Hub) handleUpdateStrokes(ctx context.Context, client *Client, msg *dto.ClientMessage, logCtx *logrus.Entry) {
	if !h.requireJoined(client, msg.RoomID, logCtx) {
		return
	}

	if err := h.roomService.MoveStrokes(ctx, msg.RoomID, msg.StrokeIDs, msg.Dx, msg.Dy); err != nil {
		logCtx.WithError(err).Warn("update-strokes had no effect")
		return
	}
	h.broadcastMessage(msg.RoomID, &dto.ServerMessage{
		Type:      dto.MsgStrokesUpdated,
		StrokeIDs: msg.StrokeIDs,
		Dx:        msg.Dx,
		Dy:        msg.Dy,
	}, client)
}

// handleClearBoard 清空画板。
// 非 owner 的调用被静默忽略，调用者得不到任何反馈。
func (h *Hub) handleClearBoard(ctx context.Context, client *Client, msg *dto.ClientMessage, logCtx *logrus.Entry) {
	if !h.requireJoined(client, msg.RoomID, logCtx) {
		return
	}
	userID, _, _ := client.Identity()

	if err := h.roomService.ClearBoard(ctx, msg.RoomID, userID); err != nil {
		// ErrForbidden 在内的全部失败都静默处理
		logCtx.WithError(err).Warn("clear-board had no effect")
		return
	}
	h.broadcastMessage(msg.RoomID, &dto.ServerMessage{Type: dto.MsgBoardCleared}, nil)
}

// handleCursorMove 广播光标位置（fire-and-forget）。
// 位置不进入画板文档；Redis 中只保留每个用户的最新值。
func (h *Hub) handleCursorMove(ctx context.Context, client *Client, msg *dto.ClientMessage, logCtx *logrus.Entry) {
	userID, username, ok := client.Identity()
	roomID := client.Room()
	if !ok || roomID == "" || msg.Pos == nil {
		return
	}

	if err := h.stateRepo.SetCursor(ctx, roomID, userID, *msg.Pos, cursorTTL); err != nil {
		// 光标是易失状态，记录失败后继续广播
		logCtx.WithError(err).Debug("Failed to store cursor position")
	}

	h.broadcastMessage(roomID, &dto.ServerMessage{
		Type: dto.MsgUpdateCursor,
		Pos:  msg.Pos,
		User: &dto.UserInfo{ID: userID, Username: username},
	}, client)
}

// handleKickUser 处理 owner 的踢人请求。
// 非 owner 的调用被静默忽略。封禁按目标连接的地址进行；
// 目标先收到 kicked 通知，然后连接被强制关闭。
func (h *Hub) handleKickUser(ctx context.Context, client *Client, msg *dto.ClientMessage, logCtx *logrus.Entry) {
	if !h.requireJoined(client, msg.RoomID, logCtx) {
		return
	}
	userID, _, _ := client.Identity()
	logCtx = logCtx.WithFields(logrus.Fields{"room_id": msg.RoomID, "target_id": msg.UserIDToKick})

	result, err := h.roomService.KickUser(ctx, msg.RoomID, userID, msg.UserIDToKick, h.resolveSocketIP)
	if err != nil {
		// 权限不足、目标不存在、房间不存在：一律静默
		logCtx.WithError(err).Warn("kick-user had no effect")
		return
	}

	// 通知目标并强制断开
	if result.TargetSocketID != "" {
		h.bySocketMu.RLock()
		target, ok := h.bySocket[result.TargetSocketID]
		h.bySocketMu.RUnlock()
		if ok {
			h.sendTo(target, &dto.ServerMessage{Type: dto.MsgKicked, Message: msgKickedByOwner})
			target.CloseConn()
		}
	}

	h.broadcastMessage(msg.RoomID, &dto.ServerMessage{Type: dto.MsgUpdateMembers, Members: result.Members}, nil)

	// 封禁事件入队审计任务
	if result.BannedIP != "" && h.asynqClient != nil {
		payload, err := tasks.NewBanAuditTask(msg.RoomID, msg.UserIDToKick, result.BannedIP)
		if err != nil {
			logCtx.WithError(err).Error("Failed to build ban audit task payload")
			return
		}
		if _, err := h.asynqClient.Enqueue(asynq.NewTask(tasks.TypeBanAudit, payload), asynq.Queue("low")); err != nil {
			logCtx.WithError(err).Error("Failed to enqueue ban audit task")
		}
	}
}

// --- 辅助函数 ---

// requireJoined 检查连接已认证且已加入目标房间。
// 不满足时静默丢弃（只记录日志）。
func (h *Hub) requireJoined(client *Client, roomID string, logCtx *logrus.Entry) bool {
	if _, _, ok := client.Identity(); !ok {
		logCtx.Warn("Mutation from unauthenticated connection, dropping")
		return false
	}
	if roomID == "" || client.Room() != roomID {
		logCtx.WithField("room_id", roomID).Warn("Mutation for a room the connection has not joined, dropping")
		return false
	}
	return true
}

// sendTo 序列化并发送一条消息给单个客户端。
func (h *Hub) sendTo(client *Client, msg *dto.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal server message")
		return
	}
	client.enqueue(payload)
}

// broadcastMessage 序列化并广播一条消息到房间。
func (h *Hub) broadcastMessage(roomID string, msg *dto.ServerMessage, exclude *Client) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal broadcast message")
		return
	}
	h.broadcastToRoom(roomID, payload, exclude)
}

// markOfflineAndBroadcast 把断开的连接对应的成员置为离线并重新广播成员列表。
func (h *Hub) markOfflineAndBroadcast(roomID, socketID string) {
	members, err := h.roomService.MarkOffline(context.Background(), roomID, socketID)
	if err != nil {
		// 成员已被踢人流程置为离线等情况：没有可广播的变化
		logrus.WithFields(logrus.Fields{"room_id": roomID, "socket_id": socketID}).
			WithError(err).Debug("MarkOffline had no effect")
		return
	}
	h.broadcastMessage(roomID, &dto.ServerMessage{Type: dto.MsgUpdateMembers, Members: members}, nil)
}
