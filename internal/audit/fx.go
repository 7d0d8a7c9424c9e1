// Package audit records who generated, deleted, imported or granted what
// through the admin API, reportctl and the monthly close.
package audit

import (
	"github.com/smallbiznis/loobook/internal/audit/repository"
	"github.com/smallbiznis/loobook/internal/audit/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("audit",
	fx.Provide(repository.Provide, service.NewService),
	fx.Decorate(func(log *zap.Logger) *zap.Logger {
		return log.With(zap.String("component", "audit"))
	}),
)
