package migration

import (
	"github.com/smallbiznis/loobook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module migrates the schema on startup unless DATABASE_AUTO_MIGRATE is off.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		log = log.Named("migration").With(zap.String("dialect", conn.Dialector.Name()))
		if !cfg.DBAutoMigrate {
			log.Info("schema migration skipped")
			return nil
		}
		version, err := Migrate(conn)
		if err != nil {
			return err
		}
		log.Info("schema migrated", zap.Uint("version", version))
		return nil
	}),
)
