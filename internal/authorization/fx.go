package authorization

import (
	"context"

	"github.com/smallbiznis/loobook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
	fx.Invoke(bootstrapAdmins),
)

// bootstrapAdmins grants the admin role to the users listed in the config.
func bootstrapAdmins(lc fx.Lifecycle, cfg config.Config, svc Service, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			for _, username := range cfg.Admin.Bootstrap {
				if err := svc.GrantRole(ctx, username, RoleAdmin); err != nil {
					return err
				}
			}
			if len(cfg.Admin.Bootstrap) > 0 {
				log.Info("admin users bootstrapped", zap.Int("count", len(cfg.Admin.Bootstrap)))
			}
			return nil
		},
	})
}
