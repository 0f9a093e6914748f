package database

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/intentionbank/backend/internal/config"
	"go.uber.org/zap"
)

// InitRedis initializes the Redis client. Redis is optional: when it cannot be
// reached nil is returned and dependents fall back to running without it.
func InitRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis connection failed, continuing without Redis", zap.Error(err))
		rdb.Close()
		return nil
	}

	logger.Info("Redis connection established", zap.String("addr", cfg.Addr()))
	return rdb
}
