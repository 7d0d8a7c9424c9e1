package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/internal/clock"
	"github.com/smallbiznis/loobook/internal/config"
	"github.com/smallbiznis/loobook/internal/migration"
	"github.com/smallbiznis/loobook/internal/observability"
	"github.com/smallbiznis/loobook/internal/reportmetrics"
	"github.com/smallbiznis/loobook/internal/scheduler"
	"github.com/smallbiznis/loobook/internal/server"
	"github.com/smallbiznis/loobook/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Reporting API, RBAC, cache, locker and exports
		server.Module,

		// Inventory gauges and optional metrics push
		reportmetrics.Module,

		// Monthly close
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
