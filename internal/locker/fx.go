package locker

import (
	"context"

	"github.com/ondasul/airtrack/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("locker",
	fx.Provide(NewLocker),
)

// NewLocker prefers a redis-backed lock when an address is configured so
// concurrent reconcile processes stay mutually exclusive; otherwise locks
// are process-local.
func NewLocker(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Locker {
	if cfg.RedisAddr == "" {
		log.Info("using in-process contract locks")
		return NewMemoryLocker()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				_ = ctx
				return client.Close()
			},
		})
	}
	log.Info("using redis contract locks", zap.String("addr", cfg.RedisAddr))
	return NewRedisLocker(client)
}
