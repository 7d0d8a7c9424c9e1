package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/internal/actorcontext"
	auditdomain "github.com/smallbiznis/loobook/internal/audit/domain"
	"github.com/smallbiznis/loobook/internal/audit/repository"
	"github.com/smallbiznis/loobook/internal/clock"
	"github.com/smallbiznis/loobook/pkg/db/dbtest"
	"github.com/smallbiznis/loobook/pkg/db/pagination"
	"github.com/smallbiznis/loobook/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()

	db := dbtest.Open(t)
	require.NoError(t, repository.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, clk
}

func TestRecordUsesActorAndCorrelation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorcontext.WithActor(context.Background(), "ayu")
	ctx = correlation.WithRun(ctx, correlation.Run{ID: "01HREQ", Job: "reportctl.generate"})

	require.NoError(t, svc.Record(ctx, auditdomain.ActionSnapshotDelete, auditdomain.TargetSnapshot, "900", map[string]any{"year": 2024, "": "dropped"}))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "ayu", entry.Actor)
	assert.Equal(t, auditdomain.ActionSnapshotDelete, entry.Action)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, "900", *entry.TargetID)
	require.NotNil(t, entry.RequestID)
	assert.Equal(t, "01HREQ", *entry.RequestID)
	assert.Len(t, entry.Metadata, 1)
	assert.Equal(t, int64(1), resp.TotalCount)
}

func TestRecordWithoutActorIsSystem(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.Record(context.Background(), auditdomain.ActionSnapshotBulk, "", "", nil))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, actorcontext.SystemActor, resp.AuditLogs[0].Actor)
	assert.Equal(t, "unknown", resp.AuditLogs[0].TargetType)
	assert.Nil(t, resp.AuditLogs[0].TargetID)
	assert.Nil(t, resp.AuditLogs[0].RequestID)
}

func TestRecordRequiresAction(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Record(context.Background(), " ", auditdomain.TargetSnapshot, "1", nil)

	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListFiltersAndPages(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := actorcontext.WithActor(context.Background(), "ayu")

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, auditdomain.ActionSnapshotCreate, auditdomain.TargetSnapshot, "", nil))
		clk.Advance(time.Minute)
	}
	require.NoError(t, svc.Record(ctx, auditdomain.ActionBusinessUpsert, auditdomain.TargetBusiness, "11", nil))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{Page: 0, PageSize: 2},
		Action:     auditdomain.ActionSnapshotCreate,
	})
	require.NoError(t, err)
	assert.Len(t, resp.AuditLogs, 2)
	assert.Equal(t, int64(3), resp.TotalCount)
	assert.True(t, resp.HasMore)
	assert.True(t, resp.AuditLogs[0].CreatedAt.After(resp.AuditLogs[1].CreatedAt))

	resp, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{Page: 1, PageSize: 2},
		Action:     auditdomain.ActionSnapshotCreate,
	})
	require.NoError(t, err)
	assert.Len(t, resp.AuditLogs, 1)
	assert.False(t, resp.HasMore)

	resp, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{TargetID: "11"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, auditdomain.ActionBusinessUpsert, resp.AuditLogs[0].Action)
}

func TestListRejectsInvertedRange(t *testing.T) {
	svc, _ := newTestService(t)
	start := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)

	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})

	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
