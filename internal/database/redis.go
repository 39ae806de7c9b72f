package database

import (
	"context"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/tresorerie/backend/internal/config"
)

// InitRedis returns a connected client, or nil when Redis is disabled or unreachable.
func InitRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis connection failed, continuing without redis", "error", err)
		rdb.Close()
		return nil
	}

	logger.Info("redis connection established", "addr", cfg.Host+":"+cfg.Port)
	return rdb
}
