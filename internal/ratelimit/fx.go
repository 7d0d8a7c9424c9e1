package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/loobook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewExportLimiter),
)

// NewExportLimiter returns a nil Limiter when limiting is disabled or Redis is
// not configured.
func NewExportLimiter(cfg config.Config, client *redis.Client, log *zap.Logger) Limiter {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil
	}
	if client == nil {
		log.Warn("export rate limit enabled without redis, downloads are not limited")
		return nil
	}
	rate, burst := limitCfg.ExportRate, limitCfg.ExportBurst
	if rate <= 0 {
		rate = 0.5
	}
	if burst <= 0 {
		burst = 10
	}
	return &exportLimiter{
		bucket: NewTokenBucket(client),
		rate:   rate,
		burst:  burst,
	}
}
