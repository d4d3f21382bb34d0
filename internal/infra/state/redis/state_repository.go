package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/vexnetworkgroup/BoardJS/internal/domain"
)

// RedisStateRepository 是 StateRepository 接口的 Redis 实现
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string // Redis key 前缀，方便多实例共用一个 Redis
}

// NewRedisStateRepository 创建 RedisStateRepository 实例
func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "bj:" // 默认前缀 "bj:" (BoardJS)
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// --- Key Generation Helpers ---

func (r *RedisStateRepository) roomCursorsKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:cursors", r.keyPrefix, roomID)
}

// --- StateRepository Interface Implementation ---

// SetCursor 记录用户最新光标位置到房间的 Hash，并刷新整体过期时间。
// 同一用户的旧位置直接被覆盖（latest-write-wins）。
func (r *RedisStateRepository) SetCursor(ctx context.Context, roomID string, userID uint, pos domain.Point, ttl time.Duration) error {
	key := r.roomCursorsKey(roomID)
	field := strconv.FormatUint(uint64(userID), 10)
	value, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("redis: encode cursor for room %s user %d: %w", roomID, userID, err)
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, field, value)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set cursor for room %s on key %s: %w", roomID, key, err)
	}
	return nil
}

// GetCursors 返回房间内记录的全部光标位置。
func (r *RedisStateRepository) GetCursors(ctx context.Context, roomID string) (map[uint]domain.Point, error) {
	key := r.roomCursorsKey(roomID)
	raw, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: get cursors for room %s from %s: %w", roomID, key, err)
	}
	cursors := make(map[uint]domain.Point, len(raw))
	for field, value := range raw {
		id, parseErr := strconv.ParseUint(field, 10, 64)
		if parseErr != nil {
			logrus.Warnf("redis: skipping malformed cursor field '%s' in %s", field, key)
			continue
		}
		var pos domain.Point
		if err := json.Unmarshal([]byte(value), &pos); err != nil {
			logrus.Warnf("redis: skipping undecodable cursor value for user %d in %s", id, key)
			continue
		}
		cursors[uint(id)] = pos
	}
	return cursors, nil
}

// CleanupRoomState 清理房间相关的全部 Redis key。
func (r *RedisStateRepository) CleanupRoomState(ctx context.Context, roomID string) error {
	keys := []string{
		r.roomCursorsKey(roomID),
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: cleanup state for room %s: %w", roomID, err)
	}
	return nil
}
