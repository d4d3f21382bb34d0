// Package dto 定义了 WebSocket 协议中客户端与服务端之间传递的消息结构。
// 消息类型是一个封闭集合，由 hub 的分发器做穷举处理。
package dto

import "github.com/vexnetworkgroup/BoardJS/internal/domain"

// 客户端到服务端的消息类型。
const (
	MsgAuthenticate  = "authenticate"
	MsgCreateRoom    = "create-room"
	MsgJoinRoom      = "join-room"
	MsgAddStroke     = "add-stroke"
	MsgDeleteStroke  = "delete-stroke"
	MsgUpdateStrokes = "update-strokes"
	MsgClearBoard    = "clear-board"
	MsgCursorMove    = "cursor-move"
	MsgKickUser      = "kick-user"
)

// 服务端到客户端的消息类型。
const (
	MsgRoomCreated    = "room-created"
	MsgRoomJoined     = "room-joined"
	MsgJoinError      = "join-error"
	MsgNewStroke      = "new-stroke"
	MsgStrokeDeleted  = "stroke-deleted"
	MsgStrokesUpdated = "strokes-updated"
	MsgBoardCleared   = "board-cleared"
	MsgUpdateMembers  = "update-members"
	MsgUpdateCursor   = "update-cursor"
	MsgKicked         = "kicked"
)

// UserInfo 是 authenticate 消息携带的身份对象。
// 服务端不会与用户存储核对（trust-on-assert）。
type UserInfo struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// ClientMessage 表示从客户端 WebSocket 接收的一条消息。
// 各字段按 Type 选择性填充。
type ClientMessage struct {
	Type string `json:"type"`

	User *UserInfo `json:"user,omitempty"` // authenticate

	RoomID string `json:"roomId,omitempty"`

	Stroke    *domain.Stroke `json:"strokeData,omitempty"` // add-stroke
	StrokeID  string         `json:"strokeId,omitempty"`   // delete-stroke
	StrokeIDs []string       `json:"strokeIds,omitempty"`  // update-strokes
	Dx        float64        `json:"dx,omitempty"`
	Dy        float64        `json:"dy,omitempty"`

	Pos *domain.Point `json:"pos,omitempty"` // cursor-move

	UserIDToKick uint `json:"userIdToKick,omitempty"` // kick-user
}

// ServerMessage 表示发送给客户端的一条消息。
type ServerMessage struct {
	Type string `json:"type"`

	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`

	RoomID string        `json:"roomId,omitempty"`
	Board  *domain.Board `json:"boardData,omitempty"` // room-joined 返回完整文档

	Stroke    *domain.Stroke `json:"strokeData,omitempty"` // new-stroke，携带最终确定的 id
	StrokeID  string         `json:"strokeId,omitempty"`
	StrokeIDs []string       `json:"strokeIds,omitempty"`
	Dx        float64        `json:"dx,omitempty"`
	Dy        float64        `json:"dy,omitempty"`

	Members []domain.Member `json:"members,omitempty"` // update-members

	Pos  *domain.Point `json:"pos,omitempty"`  // update-cursor
	User *UserInfo     `json:"user,omitempty"` // update-cursor 的来源用户
}
