package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/vexnetworkgroup/BoardJS/internal/repository"
	"github.com/vexnetworkgroup/BoardJS/internal/service"
)

// ExpirySweepHandler 处理周期性的过期房间清扫任务。
// 过期时间在房间创建时固定（创建 + 14 天），活跃使用不会延长，
// 因此清扫只看 expiryDate，不看最近活动。
type ExpirySweepHandler struct {
	roomService *service.RoomService
	stateRepo   repository.StateRepository
}

// NewExpirySweepHandler 创建 Handler 实例
func NewExpirySweepHandler(roomService *service.RoomService, stateRepo repository.StateRepository) *ExpirySweepHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for ExpirySweepHandler")
	}
	if stateRepo == nil {
		panic("StateRepository cannot be nil for ExpirySweepHandler")
	}
	return &ExpirySweepHandler{roomService: roomService, stateRepo: stateRepo}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *ExpirySweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())
	logCtx.Info("Processing expiry sweep task...")

	// 给整轮清扫一个上限，避免任务卡死
	sweepCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	deleted, err := h.roomService.DeleteExpiredRooms(sweepCtx, time.Now().UTC())
	if err != nil {
		logCtx.WithError(err).Error("Expiry sweep failed")
		return err
	}

	// 已删除房间的易失状态一并清理
	for _, roomID := range deleted {
		if err := h.stateRepo.CleanupRoomState(sweepCtx, roomID); err != nil {
			logCtx.WithError(err).WithField("room_id", roomID).Warn("Failed to clean up room state after deletion")
		}
	}

	logCtx.WithField("deleted_count", len(deleted)).Info("Expiry sweep task completed")
	return nil
}
