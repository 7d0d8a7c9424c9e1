// Package correlation tags batch report runs so the log lines, audit entries
// and metric pushes of one run can be joined.
package correlation

import (
	"context"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

type runKey struct{}

// Run identifies one batch invocation. Period is YYYY-MM and stays empty
// until the run is scoped to a month.
type Run struct {
	ID     string
	Job    string
	Period string
}

// Key renders the run as job/period/id, skipping empty parts.
func (r Run) Key() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{r.Job, r.Period, r.ID} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "/")
}

func WithRun(ctx context.Context, run Run) context.Context {
	if run.ID == "" {
		return ctx
	}
	return context.WithValue(ctx, runKey{}, run)
}

func FromContext(ctx context.Context) (Run, bool) {
	if ctx == nil {
		return Run{}, false
	}
	run, ok := ctx.Value(runKey{}).(Run)
	return run, ok
}

// ID returns the run id carried by ctx, or "" outside a run.
func ID(ctx context.Context) string {
	run, _ := FromContext(ctx)
	return run.ID
}

// Start opens a run for job. A run already on ctx keeps its id so nested
// jobs share one correlation id.
func Start(ctx context.Context, job string) (context.Context, Run) {
	run, ok := FromContext(ctx)
	if !ok {
		run = Run{ID: ulid.Make().String()}
	}
	run.Job = strings.TrimSpace(job)
	return WithRun(ctx, run), run
}

// WithPeriod scopes the run on ctx to a report month. Without a run one is
// started with no job.
func WithPeriod(ctx context.Context, year, month int) context.Context {
	run, ok := FromContext(ctx)
	if !ok {
		ctx, run = Start(ctx, "")
	}
	run.Period = fmt.Sprintf("%04d-%02d", year, month)
	return WithRun(ctx, run)
}
