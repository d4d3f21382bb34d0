package repository

import (
	"context"
	"time"

	"github.com/vexnetworkgroup/BoardJS/internal/domain"
)

// BoardRepository 定义了画板文档的存储和检索操作。
// 文档按房间 ID 整体读取、整体替换，没有字段级的局部更新。
type BoardRepository interface {
	// Create 持久化一个新画板。房间 ID 冲突时返回 ErrDuplicateEntry。
	Create(ctx context.Context, board *domain.Board) error

	// Load 根据房间 ID 加载完整画板文档。
	// 不存在时返回 ErrBoardNotFound。
	Load(ctx context.Context, roomID string) (*domain.Board, error)

	// Save 用给定文档整体替换已持久化的文档，
	// 并把 LastModified 覆盖为当前时间。ExpiryDate 保持不变。
	Save(ctx context.Context, board *domain.Board) error

	// Delete 删除指定房间的文档。房间不存在不视为错误。
	Delete(ctx context.Context, roomID string) error

	// FindExpiredRoomIDs 返回过期时间早于 now 的所有房间 ID。
	// 供后台过期清扫任务使用。
	FindExpiredRoomIDs(ctx context.Context, now time.Time) ([]string, error)

	// IsRoomIDExists 检查房间 ID 是否已被占用。
	IsRoomIDExists(ctx context.Context, roomID string) (bool, error)
}
