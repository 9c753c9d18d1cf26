package db

import (
	"context"

	"FMQuery/internal/logger"

	"github.com/redis/go-redis/v9"
)

// InitRedis connects to addr and pings it.
func InitRedis(ctx context.Context, addr string) (*redis.Client, error) {
	if addr == "" {
		addr = "localhost:6379"
		logger.Warn("redis_default_addr", nil)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
