package cache

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pointagehq/pointage/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient connects to redis when an address is configured. A nil
// client means callers fall back to their in-process cache.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("redis cache enabled", zap.String("addr", cfg.RedisAddr))
	return client
}

var Module = fx.Module("cache",
	fx.Provide(NewRedisClient),
)
