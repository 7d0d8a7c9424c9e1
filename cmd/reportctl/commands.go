package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/internal/actorcontext"
	auditdomain "github.com/smallbiznis/loobook/internal/audit/domain"
	"github.com/smallbiznis/loobook/internal/authorization"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reportmetrics"
	"github.com/smallbiznis/loobook/pkg/log/ctxlogger"
	"github.com/smallbiznis/loobook/pkg/telemetry/correlation"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type commonFlags struct {
	logLevel string
}

func (c *commonFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to LOG_LEVEL")
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

func jobContext(ctx context.Context, job string) context.Context {
	ctx, _ = correlation.Start(ctx, job)
	return actorcontext.WithActor(ctx, actorcontext.SystemActor)
}

func runGenerate(ctx context.Context, args []string, stdout io.Writer) (int, error) {
	var (
		common   commonFlags
		business string
		year     int
		month    int
		notes    string
	)
	fs := newFlagSet("generate")
	common.bind(fs)
	fs.StringVar(&business, "business", "", "business id")
	fs.IntVar(&year, "year", 0, "report year")
	fs.IntVar(&month, "month", 0, "report month (1-12)")
	fs.StringVar(&notes, "notes", "", "notes stored with the report")
	if err := fs.Parse(args); err != nil {
		return exitUsage, err
	}

	businessID, err := snowflake.ParseString(strings.TrimSpace(business))
	if err != nil || businessID <= 0 {
		return exitUsage, fmt.Errorf("--business: %w", domain.ErrInvalidBusinessID)
	}

	env, err := newEnvironment(common.logLevel)
	if err != nil {
		return exitFailure, err
	}
	defer env.close()

	ctx = jobContext(ctx, "reportctl.generate")
	ctx = correlation.WithPeriod(ctx, year, month)
	ctx = ctxlogger.ContextWithBusiness(ctx, businessID.String())
	log := ctxlogger.WithContext(ctx, env.log)

	snapshot, err := env.snapshots.Generate(ctx, domain.GenerateRequest{
		BusinessID: businessID,
		Year:       year,
		Month:      month,
		Notes:      strings.TrimSpace(notes),
	})
	if err != nil {
		log.Error("report generation failed", zap.Error(err))
		return exitFailure, err
	}
	log.Info("report generated", zap.String("report_id", snapshot.ID.String()))
	env.record(ctx, auditdomain.ActionSnapshotCreate, auditdomain.TargetSnapshot, snapshot.ID.String(), map[string]any{
		"business_id": snapshot.BusinessID.String(),
		"year":        snapshot.Year,
		"month":       snapshot.Month,
	})
	return exitOK, writeJSON(stdout, snapshot)
}

func runBulk(ctx context.Context, args []string, stdout io.Writer) (int, error) {
	var (
		common      commonFlags
		year        int
		month       int
		notes       string
		pushMetrics bool
	)
	fs := newFlagSet("bulk")
	common.bind(fs)
	fs.IntVar(&year, "year", 0, "report year")
	fs.IntVar(&month, "month", 0, "report month (1-12)")
	fs.StringVar(&notes, "notes", "", "notes stored with every report")
	fs.BoolVar(&pushMetrics, "push-metrics", false, "push batch metrics when the run finishes")
	if err := fs.Parse(args); err != nil {
		return exitUsage, err
	}

	env, err := newEnvironment(common.logLevel)
	if err != nil {
		return exitFailure, err
	}
	defer env.close()

	ctx = jobContext(ctx, "reportctl.bulk")
	ctx = correlation.WithPeriod(ctx, year, month)
	log := ctxlogger.WithContext(ctx, env.log)

	result, err := env.snapshots.BulkGenerate(ctx, domain.BulkGenerateRequest{
		Year:  year,
		Month: month,
		Notes: strings.TrimSpace(notes),
	})
	if pushMetrics {
		env.pushMetrics(ctx, log)
	}
	if err != nil {
		log.Error("bulk report generation failed", zap.Error(err))
		return exitFailure, err
	}
	env.record(ctx, auditdomain.ActionSnapshotBulk, auditdomain.TargetSnapshot, "", map[string]any{
		"year":      result.Year,
		"month":     result.Month,
		"succeeded": len(result.Succeeded),
		"skipped":   len(result.Skipped),
		"failed":    len(result.Failed),
	})

	if err := writeJSON(stdout, result); err != nil {
		return exitFailure, err
	}
	if len(result.Failed) > 0 {
		return exitPartial, fmt.Errorf("%d of %d reports failed", len(result.Failed), len(result.Failed)+len(result.Succeeded)+len(result.Skipped))
	}
	return exitOK, nil
}

func runGrant(ctx context.Context, args []string, stdout io.Writer) (int, error) {
	var (
		common commonFlags
		user   string
		role   string
	)
	fs := newFlagSet("grant")
	common.bind(fs)
	fs.StringVar(&user, "user", "", "admin username as forwarded by the gateway")
	fs.StringVar(&role, "role", authorization.RoleViewer, "viewer, analyst or admin")
	if err := fs.Parse(args); err != nil {
		return exitUsage, err
	}

	env, err := newEnvironment(common.logLevel)
	if err != nil {
		return exitFailure, err
	}
	defer env.close()

	ctx = jobContext(ctx, "reportctl.grant")
	authz, err := env.authorization()
	if err != nil {
		return exitFailure, err
	}
	if err := authz.GrantRole(ctx, user, role); err != nil {
		return exitFailure, err
	}
	env.record(ctx, auditdomain.ActionRoleGrant, auditdomain.TargetMember, strings.TrimSpace(user), map[string]any{
		"role": strings.ToLower(strings.TrimSpace(role)),
	})
	return exitOK, writeJSON(stdout, map[string]string{"user": strings.TrimSpace(user), "role": strings.ToLower(strings.TrimSpace(role))})
}

// pushMetrics delivers the batch counters once. Delivery problems are only logged.
func (e *environment) pushMetrics(ctx context.Context, log *zap.Logger) {
	pusher := reportmetrics.NewPusher(e.cfg, log)
	if pusher == nil {
		log.Warn("--push-metrics set but metrics push is not configured")
		return
	}
	reportmetrics.PushOnce(ctx, pusher, e.inventory, e.db, log)
}
