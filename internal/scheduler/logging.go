package scheduler

import (
	"context"
	"time"

	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/pkg/log/ctxlogger"
	"github.com/smallbiznis/loobook/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

// jobRun tallies the businesses one scheduler tick touched.
type jobRun struct {
	job       string
	startedAt time.Time
	period    string
	succeeded int
	skipped   int
	failed    int
}

func newJobRun(job string, startedAt time.Time) *jobRun {
	return &jobRun{job: job, startedAt: startedAt}
}

func (r *jobRun) record(result *domain.BulkResult) {
	if r == nil || result == nil {
		return
	}
	r.succeeded += len(result.Succeeded)
	r.skipped += len(result.Skipped)
	r.failed += len(result.Failed)
}

func (r *jobRun) fail() {
	if r != nil && r.failed == 0 {
		r.failed = 1
	}
}

func (r *jobRun) fields(ctx context.Context) []zap.Field {
	fields := []zap.Field{
		zap.String("job", r.job),
		zap.Int64("duration_ms", time.Since(r.startedAt).Milliseconds()),
		zap.Int("succeeded", r.succeeded),
		zap.Int("skipped", r.skipped),
		zap.Int("failed", r.failed),
	}
	if run, ok := correlation.FromContext(ctx); ok && run.Period != "" {
		fields = append(fields, zap.String("period", run.Period))
	}
	return fields
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return ctxlogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, run *jobRun) {
	s.logger(ctx).Debug("scheduler.job.start", zap.String("job", run.job))
}

// logJobFinish stays quiet for ticks that had nothing to close.
func (s *Scheduler) logJobFinish(ctx context.Context, run *jobRun) {
	log := s.logger(ctx)
	switch {
	case run.failed > 0:
		log.Warn("scheduler.job.finish", run.fields(ctx)...)
	case run.succeeded+run.skipped > 0:
		log.Info("scheduler.job.finish", run.fields(ctx)...)
	default:
		log.Debug("scheduler.job.finish", run.fields(ctx)...)
	}
}
