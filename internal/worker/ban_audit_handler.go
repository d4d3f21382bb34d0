package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/vexnetworkgroup/BoardJS/internal/tasks"
)

// BanAuditHandler 处理封禁审计任务：
// 把踢人封禁事件作为结构化审计日志落盘。
type BanAuditHandler struct{}

// NewBanAuditHandler 创建 Handler 实例
func NewBanAuditHandler() *BanAuditHandler {
	return &BanAuditHandler{}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *BanAuditHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.BanAuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// payload 损坏时重试没有意义
		return fmt.Errorf("failed to unmarshal ban audit payload: %v: %w", err, asynq.SkipRetry)
	}

	logrus.WithFields(logrus.Fields{
		"audit":          "ban",
		"room_id":        payload.RoomID,
		"kicked_user_id": payload.KickedUserID,
		"banned_ip":      payload.BannedIP,
	}).Info("Member kicked and address banned")
	return nil
}
