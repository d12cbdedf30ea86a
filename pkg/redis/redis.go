package redis

import (
	"context"
	"fmt"
	"time"

	"fpiersk/config"

	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// InitRedis 初始化Redis连接
// Redis只承载在线状态这类临时数据，连接失败时上层降级为无在线状态
func InitRedis(cfg config.RedisConfig) error {
	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		// 连接池配置
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client = nil
		return fmt.Errorf("redis连接失败: %w", err)
	}
	return nil
}

// Close 关闭Redis连接
func Close() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// set 设置键值并附带TTL
func set(key string, value interface{}, ttl time.Duration) error {
	return client.Set(ctx, key, value, ttl).Err()
}

// get 读取键值
func get(key string) (string, error) {
	return client.Get(ctx, key).Result()
}

// del 删除键
func del(key string) error {
	return client.Del(ctx, key).Err()
}
