package db

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/smallbiznis/loobook/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Report periods are computed in UTC, so every connection pins its session
// time zone to UTC.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	switch driverName(cfg) {
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

// DSN renders the connection string for cfg.DBType. Postgres connections
// carry the service name so report queries are visible in pg_stat_activity.
func DSN(cfg config.Config) (string, error) {
	switch driverName(cfg) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&time_zone=%s",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
			url.QueryEscape("'+00:00'"),
		), nil
	case "postgres":
		parts := []string{
			"host=" + cfg.DBHost,
			"user=" + cfg.DBUser,
			"password=" + cfg.DBPassword,
			"dbname=" + cfg.DBName,
			"port=" + cfg.DBPort,
			"sslmode=" + cfg.DBSSLMode,
			"TimeZone=UTC",
		}
		if name := strings.TrimSpace(cfg.AppName); name != "" {
			parts = append(parts, "application_name="+name)
		}
		return strings.Join(parts, " "), nil
	case "sqlite":
		name := strings.TrimSpace(cfg.DBName)
		if name == "" {
			name = "loobook.db"
		}
		if name == ":memory:" {
			return "file::memory:?cache=shared", nil
		}
		return name, nil
	default:
		return "", fmt.Errorf("unsupported database type %q", cfg.DBType)
	}
}

func driverName(cfg config.Config) string {
	name := strings.ToLower(strings.TrimSpace(cfg.DBType))
	if name == "postgresql" {
		return "postgres"
	}
	return name
}
