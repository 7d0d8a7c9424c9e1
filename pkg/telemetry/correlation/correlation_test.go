package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartGeneratesRunID(t *testing.T) {
	ctx, run := Start(context.Background(), "reportctl.bulk")

	assert.Len(t, run.ID, 26)
	assert.Equal(t, "reportctl.bulk", run.Job)
	assert.Equal(t, run.ID, ID(ctx))
}

func TestStartKeepsExistingRunID(t *testing.T) {
	ctx := WithRun(context.Background(), Run{ID: "run-1", Job: "outer"})
	ctx, run := Start(ctx, "monthly_close")

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "monthly_close", run.Job)
	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, run, got)
}

func TestWithPeriod(t *testing.T) {
	ctx, _ := Start(context.Background(), "monthly_close")
	ctx = WithPeriod(ctx, 2026, 9)

	run, _ := FromContext(ctx)
	assert.Equal(t, "2026-09", run.Period)
	assert.Equal(t, "monthly_close/2026-09/"+run.ID, run.Key())
}

func TestWithPeriodStartsRun(t *testing.T) {
	ctx := WithPeriod(context.Background(), 2025, 12)

	run, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "2025-12/"+run.ID, run.Key())
}

func TestIDOutsideRun(t *testing.T) {
	assert.Empty(t, ID(context.Background()))
	assert.Empty(t, ID(nil)) //nolint:staticcheck
}
