package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vexnetworkgroup/BoardJS/internal/domain"
	"github.com/vexnetworkgroup/BoardJS/internal/repository"
)

// RoomService 负责房间生命周期和画板变更的业务逻辑。
//
// 画板存储是整体读-改-写的：两个并发变更如果交错，后写者会悄悄覆盖
// 先写者的修改。这里选择按房间加互斥锁，把同一房间的整个
// load-modify-save 窗口串行化；不同房间之间互不竞争。
type RoomService struct {
	boardRepo repository.BoardRepository

	// roomLocks 按房间 ID 保存互斥锁 (map[string]*sync.Mutex)。
	// 锁条目不回收；房间数量有限且条目很小。
	roomLocks sync.Map
}

// NewRoomService 创建 RoomService 实例。
func NewRoomService(boardRepo repository.BoardRepository) *RoomService {
	if boardRepo == nil {
		panic("BoardRepository cannot be nil for RoomService")
	}
	return &RoomService{boardRepo: boardRepo}
}

// lockRoom 返回指定房间的互斥锁，必要时创建。
func (s *RoomService) lockRoom(roomID string) *sync.Mutex {
	v, _ := s.roomLocks.LoadOrStore(roomID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// CreateRoom 创建一个新房间：分配唯一的 6 位房间 ID，
// 以调用者为 owner 持久化一块空画板。
func (s *RoomService) CreateRoom(ctx context.Context, creatorID uint) (*domain.Board, error) {
	logCtx := logrus.WithField("creator_id", creatorID)

	// 1. 生成唯一的房间 ID
	roomID, err := s.generateUniqueRoomID(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate unique room id")
		return nil, ErrInternalServer
	}
	logCtx = logCtx.WithField("room_id", roomID)

	// 2. 创建空画板，过期时间在此刻固定
	board := domain.NewBoard(roomID, creatorID, time.Now().UTC())

	// 3. 持久化
	if err := s.boardRepo.Create(ctx, board); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// 理论上不应发生，生成阶段已检查唯一性
			logCtx.WithError(err).Error("Failed to create board due to duplicate room id")
			return nil, ErrInternalServer
		}
		logCtx.WithError(err).Error("Failed to create board in repository")
		return nil, ErrInternalServer
	}

	logCtx.Info("Room created successfully")
	return board, nil
}

// JoinRoom 处理用户加入房间。
// 房间不存在返回 ErrRoomNotFound；来源地址被封禁返回 ErrForbidden。
// 成功时按用户 ID upsert 成员记录（在线、绑定新连接），返回完整画板。
func (s *RoomService) JoinRoom(ctx context.Context, roomID string, userID uint, username, socketID, ip string) (*domain.Board, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID, "ip": ip})

	mu := s.lockRoom(roomID)
	mu.Lock()
	defer mu.Unlock()

	board, err := s.loadBoard(ctx, roomID, logCtx)
	if err != nil {
		return nil, err
	}

	if board.IsBanned(ip) {
		logCtx.Warn("Join refused: address is banned")
		return nil, ErrForbidden
	}

	board.UpsertMember(userID, username, socketID)

	if err := s.boardRepo.Save(ctx, board); err != nil {
		logCtx.WithError(err).Error("Failed to save board after member upsert")
		return nil, ErrInternalServer
	}

	logCtx.Info("User joined room")
	return board, nil
}

// MarkOffline 在连接断开时把对应成员（按 socketId 匹配）置为离线。
// 返回更新后的成员列表供调用方重新广播。
// 房间不存在或成员不存在时返回 ErrRoomNotFound / ErrUserNotFound。
func (s *RoomService) MarkOffline(ctx context.Context, roomID, socketID string) ([]domain.Member, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "socket_id": socketID})

	mu := s.lockRoom(roomID)
	mu.Lock()
	defer mu.Unlock()

	board, err := s.loadBoard(ctx, roomID, logCtx)
	if err != nil {
		return nil, err
	}

	member := board.MemberBySocketID(socketID)
	if member == nil {
		logCtx.Debug("No member bound to socket, nothing to mark offline")
		return nil, ErrUserNotFound
	}
	member.Status = domain.MemberOffline
	member.SocketID = ""

	if err := s.boardRepo.Save(ctx, board); err != nil {
		logCtx.WithError(err).Error("Failed to save board after marking member offline")
		return nil, ErrInternalServer
	}

	logCtx.WithField("user_id", member.ID).Info("Member marked offline")
	return board.Members, nil
}

// AddStroke 把一条笔画写入画板。
// 客户端未携带 id 时由服务端分配一个新的唯一 id。
// 返回最终确定的笔画，供广播给全部成员（包括发送者，用于对账）。
func (s *RoomService) AddStroke(ctx context.Context, roomID string, stroke domain.Stroke) (*domain.Stroke, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "stroke_id": stroke.ID})

	mu := s.lockRoom(roomID)
	mu.Lock()
	defer mu.Unlock()

	board, err := s.loadBoard(ctx, roomID, logCtx)
	if err != nil {
		return nil, err
	}

	if stroke.ID == "" {
		stroke.ID = newStrokeID()
		logCtx = logCtx.WithField("stroke_id", stroke.ID)
	}
	board.Strokes[stroke.ID] = stroke

	if err := s.boardRepo.Save(ctx, board); err != nil {
		logCtx.WithError(err).Error("Failed to save board after add-stroke")
		return nil, ErrInternalServer
	}

	logCtx.Debug("Stroke added")
	return &stroke, nil
}

// DeleteStroke 从画板中删除一条笔画。
// 返回笔画是否存在：不存在时是幂等的空操作，调用方不应广播。
func (s *RoomService) DeleteStroke(ctx context.Context, roomID, strokeID string) (bool, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "stroke_id": strokeID})

	mu := s.lockRoom(roomID)
	mu.Lock()
	defer mu.Unlock()

	board, err := s.loadBoard(ctx, roomID, logCtx)
	if err != nil {
		return false, err
	}

	if _, ok := board.Strokes[strokeID]; !ok {
		logCtx.Debug("Stroke already absent, delete is a no-op")
		return false, nil
	}
	delete(board.Strokes, strokeID)

	if err := s.boardRepo.Save(ctx, board); err != nil {
		logCtx.WithError(err).Error("Failed to save board after delete-stroke")
		return false, ErrInternalServer
	}

	logCtx.Debug("Stroke deleted")
	return true, nil
}

// MoveStrokes 把给定 id 集合中每条笔画的所有点平移 (dx, dy)。
// 不存在的 id 被静默跳过。
func (s *RoomService) MoveStrokes(ctx context.Context, roomID string, strokeIDs []string, dx, dy float64) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "stroke_count": len(strokeIDs)})

	mu := s.lockRoom(roomID)
	mu.Lock()
	defer mu.Unlock()

	board, err := s.loadBoard(ctx, roomID, logCtx)
	if err != nil {
		return err
	}

	for _, id := range strokeIDs {
		stroke, ok := board.Strokes[id]
		if !ok {
			continue
		}
		board.Strokes[id] = stroke.Translate(dx, dy)
	}

	if err := s.boardRepo.Save(ctx, board); err != nil {
		logCtx.WithError(err).Error("Failed to save board after update-strokes")
		return ErrInternalServer
	}

	logCtx.Debug("Strokes translated")
	return nil
}

// ClearBoard 清空画板的全部笔画。
// 只有房间 owner 有权清空；其他调用者返回 ErrForbidden，
// 由上层决定是否静默（当前协议选择静默，不回错误给客户端）。
func (s *RoomService) ClearBoard(ctx context.Context, roomID string, callerID uint) error {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "caller_id": callerID})

	mu := s.lockRoom(roomID)
	mu.Lock()
	defer mu.Unlock()

	board, err := s.loadBoard(ctx, roomID, logCtx)
	if err != nil {
		return err
	}

	if board.Owner != callerID {
		logCtx.Warn("clear-board rejected: caller is not the room owner")
		return ErrForbidden
	}

	board.Strokes = make(map[string]domain.Stroke)

	if err := s.boardRepo.Save(ctx, board); err != nil {
		logCtx.WithError(err).Error("Failed to save board after clear-board")
		return ErrInternalServer
	}

	logCtx.Info("Board cleared by owner")
	return nil
}

// KickResult 描述一次踢人操作的结果。
type KickResult struct {
	TargetSocketID string          // 目标成员当时绑定的连接标识，离线时为空
	BannedIP       string          // 被追加封禁的地址，未找到在线连接时为空
	Members        []domain.Member // 更新后的成员列表，用于重新广播
}

// KickUser 处理 owner 的踢人请求。
// resolveIP 由调用方提供，在房间锁内把成员的 socketId 解析为当前
// 网络地址（找不到在线连接时返回 ok=false）。
// 封禁按地址而不是按身份：同一用户换地址后仍可重新加入。
// 无论是否找到在线连接，目标成员都会被置为离线。
func (s *RoomService) KickUser(ctx context.Context, roomID string, callerID, targetID uint, resolveIP func(socketID string) (string, bool)) (*KickResult, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "caller_id": callerID, "target_id": targetID})

	mu := s.lockRoom(roomID)
	mu.Lock()
	defer mu.Unlock()

	board, err := s.loadBoard(ctx, roomID, logCtx)
	if err != nil {
		return nil, err
	}

	// 权限检查先于任何状态变更
	if board.Owner != callerID {
		logCtx.Warn("kick-user rejected: caller is not the room owner")
		return nil, ErrForbidden
	}

	target := board.MemberByID(targetID)
	if target == nil {
		logCtx.Warn("kick-user: target member not found in room")
		return nil, ErrUserNotFound
	}

	result := &KickResult{TargetSocketID: target.SocketID}

	// 通过 socketId 解析在线连接的地址；找到才追加封禁
	if target.SocketID != "" && resolveIP != nil {
		if ip, ok := resolveIP(target.SocketID); ok {
			board.BannedIPs = append(board.BannedIPs, ip)
			result.BannedIP = ip
			logCtx.WithField("banned_ip", ip).Info("Address added to ban list")
		}
	}

	target.Status = domain.MemberOffline
	target.SocketID = ""

	if err := s.boardRepo.Save(ctx, board); err != nil {
		logCtx.WithError(err).Error("Failed to save board after kick-user")
		return nil, ErrInternalServer
	}

	result.Members = board.Members
	logCtx.Info("Member kicked")
	return result, nil
}

// LoadBoard 加载完整画板文档（只读用途，不加房间锁）。
func (s *RoomService) LoadBoard(ctx context.Context, roomID string) (*domain.Board, error) {
	return s.loadBoard(ctx, roomID, logrus.WithField("room_id", roomID))
}

// DeleteExpiredRooms 删除过期时间早于 now 的全部房间，返回被删除的房间 ID。
// 供后台清扫任务调用。
func (s *RoomService) DeleteExpiredRooms(ctx context.Context, now time.Time) ([]string, error) {
	ids, err := s.boardRepo.FindExpiredRoomIDs(ctx, now)
	if err != nil {
		logrus.WithError(err).Error("Failed to query expired rooms")
		return nil, ErrInternalServer
	}
	deleted := make([]string, 0, len(ids))
	for _, id := range ids {
		mu := s.lockRoom(id)
		mu.Lock()
		err := s.boardRepo.Delete(ctx, id)
		mu.Unlock()
		if err != nil {
			logrus.WithError(err).WithField("room_id", id).Error("Failed to delete expired room")
			continue
		}
		deleted = append(deleted, id)
	}
	return deleted, nil
}

// --- 私有辅助函数 ---

// loadBoard 加载文档并把仓库错误映射为业务错误。
func (s *RoomService) loadBoard(ctx context.Context, roomID string, logCtx *logrus.Entry) (*domain.Board, error) {
	board, err := s.boardRepo.Load(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrBoardNotFound) {
			logCtx.Warn("Board not found")
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Repository error loading board")
		return nil, ErrInternalServer
	}
	if board == nil { // 防御
		logCtx.Warn("Repository returned nil board without error")
		return nil, ErrRoomNotFound
	}
	return board, nil
}

// generateUniqueRoomID 生成唯一的 6 位房间 ID
func (s *RoomService) generateUniqueRoomID(ctx context.Context) (string, error) {
	const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	const codeLength = 6
	const maxAttempts = 10

	b := make([]byte, codeLength)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for i := range b {
			b[i] = letters[int(b[i])%len(letters)]
		}
		code := string(b)

		exists, err := s.boardRepo.IsRoomIDExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("database error checking room id: %w", err)
		}
		if !exists {
			return code, nil
		}
		logrus.WithField("room_id", code).Warnf("Generated room id already exists, retrying (attempt %d)...", attempt+1)
	}
	return "", fmt.Errorf("failed to generate a unique room id after %d attempts", maxAttempts)
}

// newStrokeID 生成一个新的笔画 id。
// 16 个十六进制字符，冲突概率可以忽略。
func newStrokeID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand 失败说明系统熵源不可用，无法继续
		panic(fmt.Sprintf("failed to generate stroke id: %v", err))
	}
	return hex.EncodeToString(b)
}
