// Package domain 定义了应用程序中使用的核心数据结构。
package domain

import "time"

// BoardTTL 是画板从创建到过期的固定时长。
// 过期时间在创建时一次性确定，后续活动不会延长它。
const BoardTTL = 14 * 24 * time.Hour

// Board 表示一个房间的权威画板文档。
// 整个文档作为一个整体读取和替换（没有字段级的局部更新）。
type Board struct {
	RoomID       string            `json:"roomId"`       // 房间标识符，6 位随机字符串，创建后不可变
	Owner        uint              `json:"owner"`        // 创建者的用户 ID，拥有清空/踢人权限，不可变
	CreatedAt    time.Time         `json:"createdAt"`    // 创建时间
	LastModified time.Time         `json:"lastModified"` // 最后一次保存的时间，由 Save 覆盖
	ExpiryDate   time.Time         `json:"expiryDate"`   // 过期时间 = CreatedAt + BoardTTL，固定不变
	Strokes      map[string]Stroke `json:"strokes"`      // 笔画集合，key 必须等于 Stroke.ID
	Members      []Member          `json:"members"`      // 成员列表，按首次加入顺序，断线不删除
	BannedIPs    []string          `json:"bannedIps"`    // 被封禁的网络地址集合
}

// NewBoard 创建一个空画板，owner 为创建者的用户 ID。
func NewBoard(roomID string, owner uint, now time.Time) *Board {
	return &Board{
		RoomID:       roomID,
		Owner:        owner,
		CreatedAt:    now,
		LastModified: now,
		ExpiryDate:   now.Add(BoardTTL),
		Strokes:      make(map[string]Stroke),
		Members:      []Member{},
		BannedIPs:    []string{},
	}
}

// IsExpired 判断画板在给定时间点是否已过期。
func (b *Board) IsExpired(now time.Time) bool {
	return now.After(b.ExpiryDate)
}

// IsBanned 判断给定网络地址是否在封禁列表中。
func (b *Board) IsBanned(ip string) bool {
	for _, banned := range b.BannedIPs {
		if banned == ip {
			return true
		}
	}
	return false
}

// UpsertMember 按用户 ID 更新或追加成员记录。
// 已存在的记录被置为在线并更新 socketId，不会产生重复条目。
func (b *Board) UpsertMember(userID uint, username, socketID string) {
	for i := range b.Members {
		if b.Members[i].ID == userID {
			b.Members[i].Username = username
			b.Members[i].Status = MemberOnline
			b.Members[i].SocketID = socketID
			return
		}
	}
	b.Members = append(b.Members, Member{
		ID:       userID,
		Username: username,
		Status:   MemberOnline,
		SocketID: socketID,
	})
}

// MemberBySocketID 根据连接标识查找成员，未找到返回 nil。
func (b *Board) MemberBySocketID(socketID string) *Member {
	for i := range b.Members {
		if b.Members[i].SocketID == socketID {
			return &b.Members[i]
		}
	}
	return nil
}

// MemberByID 根据用户 ID 查找成员，未找到返回 nil。
func (b *Board) MemberByID(userID uint) *Member {
	for i := range b.Members {
		if b.Members[i].ID == userID {
			return &b.Members[i]
		}
	}
	return nil
}
