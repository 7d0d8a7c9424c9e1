package main

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	auditdomain "github.com/smallbiznis/loobook/internal/audit/domain"
	auditrepository "github.com/smallbiznis/loobook/internal/audit/repository"
	auditservice "github.com/smallbiznis/loobook/internal/audit/service"
	"github.com/smallbiznis/loobook/internal/authorization"
	"github.com/smallbiznis/loobook/internal/clock"
	"github.com/smallbiznis/loobook/internal/config"
	"github.com/smallbiznis/loobook/internal/locker"
	"github.com/smallbiznis/loobook/internal/migration"
	"github.com/smallbiznis/loobook/internal/observability/metrics"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/repository"
	"github.com/smallbiznis/loobook/internal/reporting/snapshot"
	"github.com/smallbiznis/loobook/internal/reportmetrics"
	"github.com/smallbiznis/loobook/pkg/db"
	pkglog "github.com/smallbiznis/loobook/pkg/log"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// environment holds the dependencies of one CLI invocation.
type environment struct {
	cfg       config.Config
	log       *zap.Logger
	db        *gorm.DB
	redis     *redis.Client
	records   domain.RecordStore
	snapshots domain.SnapshotService
	audit     auditdomain.Service
	inventory *reportmetrics.Inventory
}

func newEnvironment(logLevel string) (*environment, error) {
	cfg := config.Load()

	log, err := pkglog.NewLogger(cfg, logLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	conn, err := db.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if cfg.DBAutoMigrate {
		if _, err := migration.Migrate(conn); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	settings, err := config.NewReportingConfigHolder()
	if err != nil {
		return nil, fmt.Errorf("reporting config: %w", err)
	}

	node, err := snowflake.NewNode(2)
	if err != nil {
		return nil, err
	}
	clk := clock.SystemClock{}

	env := &environment{
		cfg:       cfg,
		log:       log,
		db:        conn,
		records:   repository.NewRecordStore(conn, node, clk),
		inventory: reportmetrics.NewInventory(prometheus.DefaultRegisterer),
		audit: auditservice.NewService(auditservice.Params{
			DB:    conn,
			Log:   log,
			GenID: node,
			Clock: clk,
			Repo:  auditrepository.Provide(),
		}),
	}

	params := snapshot.Params{
		Records:   env.records,
		Snapshots: repository.NewSnapshotRepository(conn),
		Log:       log,
		Clock:     clk,
		GenID:     node,
		Settings:  settings,
		Observer:  metrics.Reports(),
	}
	env.redis = locker.NewRedisClient(nil, cfg, log)
	if l := locker.NewLocker(env.redis); l != nil {
		params.Locker = l
	}
	env.snapshots = snapshot.NewService(params)

	return env, nil
}

func (e *environment) authorization() (authorization.Service, error) {
	enforcer, err := authorization.NewEnforcer(e.db)
	if err != nil {
		return nil, fmt.Errorf("authorization: %w", err)
	}
	return authorization.NewService(authorization.Params{DB: e.db, Log: e.log, Enforcer: enforcer}), nil
}

// record writes an audit entry. Failures are logged and never fail the command.
func (e *environment) record(ctx context.Context, action, targetType, targetID string, metadata map[string]any) {
	if err := e.audit.Record(ctx, action, targetType, targetID, metadata); err != nil {
		e.log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

func (e *environment) close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = e.log.Sync()
}
