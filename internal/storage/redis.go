package storage

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"HoldemSync/config"
)

// ConnectRedis 创建客户端并等待 Redis 可用
func ConnectRedis(ctx context.Context, opts *redis.Options, r config.Retry, logger *log.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(opts)
	err := withRetry(ctx, "redis", r, logger.WithPrefix("storage"), func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
