// Package tasks 定义后台任务类型常量和 payload 构造函数。
package tasks

import "encoding/json"

// 任务类型常量
const (
	// TypeExpirySweep 周期性清扫过期房间
	TypeExpirySweep = "board:expiry_sweep"
	// TypeBanAudit 记录一次踢人封禁事件
	TypeBanAudit = "board:ban_audit"
)

// BanAuditPayload 定义封禁审计任务的数据结构
type BanAuditPayload struct {
	RoomID       string `json:"room_id"`
	KickedUserID uint   `json:"kicked_user_id"`
	BannedIP     string `json:"banned_ip"`
}

// NewExpirySweepTask 创建周期性过期清扫任务的 payload。
// 任务本身不携带数据，扫描范围由 handler 在执行时确定。
func NewExpirySweepTask() ([]byte, error) {
	return json.Marshal(struct{}{})
}

// NewBanAuditTask 创建封禁审计任务的 payload。
func NewBanAuditTask(roomID string, kickedUserID uint, bannedIP string) ([]byte, error) {
	payload := BanAuditPayload{
		RoomID:       roomID,
		KickedUserID: kickedUserID,
		BannedIP:     bannedIP,
	}
	return json.Marshal(payload)
}
