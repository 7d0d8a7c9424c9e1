package server

import (
	"context"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/loobook/internal/audit/domain"
	"github.com/smallbiznis/loobook/internal/ratelimit"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
)

type fakeAuthz struct {
	denied map[string]bool
	calls  []string
}

func (f *fakeAuthz) Authorize(_ context.Context, actor string, object string, action string) error {
	f.calls = append(f.calls, actor+":"+action)
	if f.denied[action] {
		return ErrForbidden
	}
	return nil
}

func (f *fakeAuthz) GrantRole(context.Context, string, string) error { return nil }

func (f *fakeAuthz) RoleOf(context.Context, string) (string, error) { return "admin", nil }

type fakeReportService struct {
	aggregateReq domain.AggregateRequest
	trendReq     domain.TrendRequest
	rankReq      domain.RankRequest
	compareReq   domain.CompareRequest
	imported     []domain.RawRecord
	upserted     domain.UpsertBusinessRequest
	rows         []domain.BusinessPerformanceRow
	err          error
}

func (f *fakeReportService) Aggregate(_ context.Context, req domain.AggregateRequest) (domain.AggregateSnapshot, error) {
	f.aggregateReq = req
	return domain.AggregateSnapshot{TransactionCount: 3}, f.err
}

func (f *fakeReportService) Trend(_ context.Context, req domain.TrendRequest) (domain.Trend, error) {
	f.trendReq = req
	return domain.Trend{Period: req.Period}, f.err
}

func (f *fakeReportService) Rank(_ context.Context, req domain.RankRequest) (domain.RankResult, error) {
	f.rankReq = req
	return domain.RankResult{Rows: f.rows, TotalCount: len(f.rows)}, f.err
}

func (f *fakeReportService) RankAll(_ context.Context, req domain.RankRequest) ([]domain.BusinessPerformanceRow, error) {
	f.rankReq = req
	return f.rows, f.err
}

func (f *fakeReportService) Compare(_ context.Context, req domain.CompareRequest) (domain.CompareResponse, error) {
	f.compareReq = req
	return domain.CompareResponse{CurrentRange: req.Current}, f.err
}

func (f *fakeReportService) ImportRecords(_ context.Context, records []domain.RawRecord) (domain.ImportResult, error) {
	f.imported = records
	if len(records) == 0 {
		return domain.ImportResult{}, domain.ErrEmptyImport
	}
	return domain.ImportResult{Imported: len(records)}, f.err
}

func (f *fakeReportService) UpsertBusiness(_ context.Context, req domain.UpsertBusinessRequest) (*domain.Business, error) {
	f.upserted = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Business{ID: req.ID, Name: req.Name}, nil
}

type fakeSnapshotService struct {
	snapshots   map[snowflake.ID]*domain.ReportSnapshot
	generateReq domain.GenerateRequest
	listReq     domain.ListSnapshotsRequest
	generateErr error
	bulkErr     error
	deleted     []snowflake.ID
}

func (f *fakeSnapshotService) Generate(_ context.Context, req domain.GenerateRequest) (*domain.ReportSnapshot, error) {
	f.generateReq = req
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return &domain.ReportSnapshot{ID: snowflake.ID(500), BusinessID: req.BusinessID, Year: req.Year, Month: req.Month}, nil
}

func (f *fakeSnapshotService) BulkGenerate(_ context.Context, req domain.BulkGenerateRequest) (*domain.BulkResult, error) {
	if f.bulkErr != nil {
		return nil, f.bulkErr
	}
	return &domain.BulkResult{Year: req.Year, Month: req.Month, Succeeded: []snowflake.ID{11}}, nil
}

func (f *fakeSnapshotService) Get(_ context.Context, id snowflake.ID) (*domain.ReportSnapshot, error) {
	snapshot, ok := f.snapshots[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	return snapshot, nil
}

func (f *fakeSnapshotService) GetByPeriod(context.Context, snowflake.ID, int, int) (*domain.ReportSnapshot, error) {
	return nil, domain.ErrReportNotFound
}

func (f *fakeSnapshotService) List(_ context.Context, req domain.ListSnapshotsRequest) (domain.ListSnapshotsResponse, error) {
	f.listReq = req
	return domain.ListSnapshotsResponse{Page: req.Page, PageSize: req.PageSize}, nil
}

func (f *fakeSnapshotService) Delete(_ context.Context, id snowflake.ID) error {
	if _, ok := f.snapshots[id]; !ok {
		return domain.ErrReportNotFound
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRecordStore struct {
	domain.RecordStore
	businesses map[snowflake.ID]*domain.Business
}

func (f *fakeRecordStore) GetBusiness(_ context.Context, id snowflake.ID) (*domain.Business, error) {
	return f.businesses[id], nil
}

type fakeLimiter struct {
	result ratelimit.Result
	err    error
	actors []string
}

func (f *fakeLimiter) AllowExport(_ context.Context, actor string) (ratelimit.Result, error) {
	f.actors = append(f.actors, actor)
	return f.result, f.err
}

type fakeAudit struct {
	entries []string
	listReq auditdomain.ListAuditLogRequest
	err     error
}

func (f *fakeAudit) Record(_ context.Context, action, _ string, targetID string, _ map[string]any) error {
	f.entries = append(f.entries, action+":"+targetID)
	return f.err
}

func (f *fakeAudit) List(_ context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	f.listReq = req
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return auditdomain.ListAuditLogResponse{}, auditdomain.ErrInvalidTimeRange
	}
	return auditdomain.ListAuditLogResponse{AuditLogs: []auditdomain.AuditLog{{ID: 1, Actor: "ayu"}}}, nil
}
