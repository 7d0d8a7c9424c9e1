// Package scheduler closes the books every month by generating the previous
// month's report for every active business.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smallbiznis/loobook/internal/actorcontext"
	auditdomain "github.com/smallbiznis/loobook/internal/audit/domain"
	"github.com/smallbiznis/loobook/internal/authorization"
	"github.com/smallbiznis/loobook/internal/clock"
	"github.com/smallbiznis/loobook/internal/observability/metrics"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/period"
	"github.com/smallbiznis/loobook/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobMonthlyClose = "monthly_close"

	monthlyCloseNotes = "generated by monthly close"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	Log       *zap.Logger
	Snapshots domain.SnapshotService
	AuthzSvc  authorization.Service
	AuditSvc  auditdomain.Service    `optional:"true"`
	Metrics   *metrics.ReportMetrics `optional:"true"`
	Clock     clock.Clock
	Config    Config `optional:"true"`
}

type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	snapshots domain.SnapshotService
	authzSvc  authorization.Service
	auditSvc  auditdomain.Service
	metrics   *metrics.ReportMetrics

	mu         sync.Mutex
	lastClosed string
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Snapshots == nil || p.AuthzSvc == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		snapshots: p.Snapshots,
		authzSvc:  p.AuthzSvc,
		auditSvc:  p.AuditSvc,
		metrics:   p.Metrics,
	}, nil
}

// runJob runs fn as the system actor under timeout. A timed out job is
// logged and counted but not returned as an error.
func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context, run *jobRun) error,
) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = actorcontext.WithActor(ctx, actorcontext.SystemActor)
	ctx, _ = correlation.Start(ctx, name)

	run := newJobRun(name, time.Now())
	s.logJobStart(ctx, run)
	s.metrics.JobStarted(name)

	err := fn(ctx, run)
	if err != nil {
		run.fail()
	}
	s.metrics.JobFinished(name, err, time.Since(run.startedAt))
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	return s.runJob(parent, JobMonthlyClose, s.cfg.JobTimeout, s.MonthlyCloseJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// MonthlyCloseJob generates last month's reports once the close day is
// reached. Businesses that already have a report are skipped by the bulk run,
// so a month with failures is retried on the next tick.
func (s *Scheduler) MonthlyCloseJob(ctx context.Context, run *jobRun) error {
	now := s.clock.Now()
	if now.Day() < s.cfg.CloseDay {
		return nil
	}
	year, month := period.PreviousMonth(now.Year(), int(now.Month()))
	ctx = correlation.WithPeriod(ctx, year, month)
	key, _ := correlation.FromContext(ctx)
	if s.isClosed(key.Period) {
		return nil
	}

	if err := s.authzSvc.Authorize(ctx, actorcontext.SystemActor, authorization.ObjectReport, authorization.ActionReportGenerate); err != nil {
		return err
	}

	result, err := s.snapshots.BulkGenerate(ctx, domain.BulkGenerateRequest{
		Year:  year,
		Month: month,
		Notes: monthlyCloseNotes,
	})
	if errors.Is(err, domain.ErrBulkInProgress) {
		s.logger(ctx).Info("monthly close already running elsewhere")
		return nil
	}
	if err != nil {
		return err
	}

	run.record(result)
	s.recordAudit(ctx, result)

	if len(result.Failed) == 0 {
		s.markClosed(key.Period)
	}
	return nil
}

func (s *Scheduler) recordAudit(ctx context.Context, result *domain.BulkResult) {
	if s.auditSvc == nil {
		return
	}
	err := s.auditSvc.Record(ctx, auditdomain.ActionSnapshotBulk, auditdomain.TargetSnapshot, "", map[string]any{
		"year":      result.Year,
		"month":     result.Month,
		"succeeded": len(result.Succeeded),
		"skipped":   len(result.Skipped),
		"failed":    len(result.Failed),
		"job":       JobMonthlyClose,
	})
	if err != nil {
		s.logger(ctx).Warn("audit record failed", zap.Error(err))
	}
}

func (s *Scheduler) isClosed(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastClosed == key
}

func (s *Scheduler) markClosed(key string) {
	s.mu.Lock()
	s.lastClosed = key
	s.mu.Unlock()
}
