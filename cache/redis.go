package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"paydiag/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient 按配置创建客户端，不会立即建立连接
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
		// 诊断工具只发单次命令，不重试
		MaxRetries: -1,
	})
}

// Ping 测试连接并返回往返耗时
func Ping(ctx context.Context, client redis.Cmdable) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := client.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return time.Since(start), nil
}
