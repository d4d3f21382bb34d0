// Package setup 负责初始化基础设施连接（MySQL、Redis）和数据库迁移。
package setup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/vexnetworkgroup/BoardJS/internal/domain"
)

// InitDB 初始化数据库连接并配置连接池。
func InitDB(user, password, host, port, dbName string) (*gorm.DB, error) {
	if user == "" || password == "" {
		return nil, fmt.Errorf("database credentials must be set (DB_USER / DB_PASSWORD)")
	}
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "3306"
	}
	if dbName == "" {
		dbName = "boardjs"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, dbName)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// MigrateDB 自动迁移数据库模式。
// 画板文档表由 gorm 持久化实现内部的行类型声明，
// 这里借助一个匿名等价结构完成建表。
func MigrateDB(db *gorm.DB) error {
	type boardRecord struct {
		RoomID       string    `gorm:"primaryKey;size:16"`
		Data         string    `gorm:"type:mediumtext;not null"`
		LastModified time.Time `gorm:"index;not null"`
		ExpiryDate   time.Time `gorm:"index;not null"`
	}
	if err := db.Table("boards").AutoMigrate(&boardRecord{}); err != nil {
		return fmt.Errorf("failed to migrate boards table: %w", err)
	}
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

// InitRedis 初始化 Redis 连接并验证连通性。
func InitRedis(addr, password string, dbIndex int) (*redis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address must be set (REDIS_ADDR)")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           dbIndex,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxConnAge:   30 * time.Minute,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
