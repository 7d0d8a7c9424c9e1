package reportmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/loobook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("report.metrics",
	fx.Provide(NewPusher),
	fx.Provide(func() *Inventory { return NewInventory(prometheus.DefaultRegisterer) }),
	fx.Invoke(startPushWorker),
)

// startPushWorker periodically refreshes inventory gauges and pushes the
// default registry when pushing is configured.
func startPushWorker(lc fx.Lifecycle, cfg config.Config, pusher Pusher, inv *Inventory, db *gorm.DB, log *zap.Logger) {
	if pusher == nil {
		return
	}
	log = log.Named("report.metrics")
	interval := cfg.Metrics.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting report metrics push worker", zap.Duration("interval", interval))
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				for {
					PushOnce(ctx, pusher, inv, db, log)
					select {
					case <-ticker.C:
					case <-ctx.Done():
						log.Info("stopping report metrics push worker")
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

// PushOnce refreshes gauges and pushes the default registry. Failures are logged only.
func PushOnce(ctx context.Context, pusher Pusher, inv *Inventory, db *gorm.DB, log *zap.Logger) {
	if pusher == nil {
		return
	}
	pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
	defer cancel()

	if err := inv.Refresh(pushCtx, db); err != nil {
		log.Warn("report inventory refresh failed", zap.Error(err))
	}
	if err := pusher.Push(pushCtx, prometheus.DefaultGatherer); err != nil {
		log.Warn("report metrics push failed", zap.Error(err))
	}
}
