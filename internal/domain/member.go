package domain

// MemberStatus 表示成员的在线状态。
type MemberStatus string

const (
	MemberOnline  MemberStatus = "online"
	MemberOffline MemberStatus = "offline"
)

// Member 表示房间的一个参与者身份。
// 每个用户 ID 至多一条记录；断线只切换状态，不删除记录。
type Member struct {
	ID       uint         `json:"id"`                 // 用户 ID
	Username string       `json:"username"`           // 显示名
	Status   MemberStatus `json:"status"`             // online / offline
	SocketID string       `json:"socketId,omitempty"` // 当前关联的连接标识，离线时为空
}
