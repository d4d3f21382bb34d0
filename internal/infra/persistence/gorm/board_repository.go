package gormpersistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/vexnetworkgroup/BoardJS/internal/domain"
	"github.com/vexnetworkgroup/BoardJS/internal/repository"
)

// boardRecord 是画板文档在数据库中的行形态：
// 一行一个房间，文档整体序列化为 JSON 存在 Data 列。
type boardRecord struct {
	RoomID       string    `gorm:"primaryKey;size:16"`
	Data         string    `gorm:"type:mediumtext;not null"`
	LastModified time.Time `gorm:"index;not null"`
	ExpiryDate   time.Time `gorm:"index;not null"`
}

// TableName 指定表名为 boards。
func (boardRecord) TableName() string { return "boards" }

// GormBoardRepository 是 BoardRepository 接口的 GORM 实现。
type GormBoardRepository struct {
	db *gorm.DB
}

// NewGormBoardRepository 创建 GormBoardRepository 实例
func NewGormBoardRepository(db *gorm.DB) *GormBoardRepository {
	if db == nil {
		panic("database connection cannot be nil for GormBoardRepository")
	}
	return &GormBoardRepository{db: db}
}

// Create 实现新画板的持久化
func (r *GormBoardRepository) Create(ctx context.Context, board *domain.Board) error {
	record, err := toRecord(board)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Create(record)
	if err := result.Error; err != nil {
		// 唯一约束检查 (以 MySQL 为例)
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create board %s: %w", board.RoomID, err)
	}
	return nil
}

// Load 实现根据房间 ID 加载完整文档
func (r *GormBoardRepository) Load(ctx context.Context, roomID string) (*domain.Board, error) {
	var record boardRecord
	err := r.db.WithContext(ctx).First(&record, "room_id = ?", roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrBoardNotFound
		}
		return nil, fmt.Errorf("gorm: load board %s: %w", roomID, err)
	}
	var board domain.Board
	if err := json.Unmarshal([]byte(record.Data), &board); err != nil {
		return nil, fmt.Errorf("gorm: decode board document %s: %w", roomID, err)
	}
	// map 为 nil 的旧文档统一为可用的空 map
	if board.Strokes == nil {
		board.Strokes = make(map[string]domain.Stroke)
	}
	return &board, nil
}

// Save 实现整体替换文档，并把 LastModified 覆盖为当前时间
func (r *GormBoardRepository) Save(ctx context.Context, board *domain.Board) error {
	board.LastModified = time.Now().UTC()
	record, err := toRecord(board)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Save(record)
	if err := result.Error; err != nil {
		return fmt.Errorf("gorm: save board %s: %w", board.RoomID, err)
	}
	return nil
}

// Delete 实现删除指定房间的文档
func (r *GormBoardRepository) Delete(ctx context.Context, roomID string) error {
	err := r.db.WithContext(ctx).Delete(&boardRecord{}, "room_id = ?", roomID).Error
	if err != nil {
		return fmt.Errorf("gorm: delete board %s: %w", roomID, err)
	}
	return nil
}

// FindExpiredRoomIDs 实现查询所有已过期房间 ID
func (r *GormBoardRepository) FindExpiredRoomIDs(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&boardRecord{}).
		Where("expiry_date < ?", now).
		Pluck("room_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find expired boards: %w", err)
	}
	return ids, nil
}

// IsRoomIDExists 实现检查房间 ID 是否已被占用
func (r *GormBoardRepository) IsRoomIDExists(ctx context.Context, roomID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&boardRecord{}).Where("room_id = ?", roomID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count boards by room id '%s': %w", roomID, err)
	}
	return count > 0, nil
}

// toRecord 把领域文档序列化为数据库行。
func toRecord(board *domain.Board) (*boardRecord, error) {
	data, err := json.Marshal(board)
	if err != nil {
		return nil, fmt.Errorf("gorm: encode board document %s: %w", board.RoomID, err)
	}
	return &boardRecord{
		RoomID:       board.RoomID,
		Data:         string(data),
		LastModified: board.LastModified,
		ExpiryDate:   board.ExpiryDate,
	}, nil
}
