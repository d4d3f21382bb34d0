package repository

import (
	"context"
	"time"

	"github.com/vexnetworkgroup/BoardJS/internal/domain"
)

// StateRepository 定义了与房间实时状态相关的操作，由 Redis 实现。
// 这里的状态是易失的（光标位置等），不进入画板文档，也不参与对账。
type StateRepository interface {
	// SetCursor 记录某个用户在房间内的最新光标位置（latest-write-wins）。
	// ttl 控制无更新时的自动过期。
	SetCursor(ctx context.Context, roomID string, userID uint, pos domain.Point, ttl time.Duration) error

	// GetCursors 返回房间内当前记录的全部光标位置，按用户 ID 索引。
	GetCursors(ctx context.Context, roomID string) (map[uint]domain.Point, error)

	// CleanupRoomState 清理房间相关的全部 Redis key。
	// 在房间过期删除后调用。
	CleanupRoomState(ctx context.Context, roomID string) error
}
