package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/loobook/internal/config"
	"github.com/smallbiznis/loobook/internal/export"
	"github.com/smallbiznis/loobook/internal/ratelimit"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testHarness struct {
	server    *Server
	authz     *fakeAuthz
	audit     *fakeAudit
	reports   *fakeReportService
	snapshots *fakeSnapshotService
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	h := &testHarness{
		authz:   &fakeAuthz{denied: map[string]bool{}},
		audit:   &fakeAudit{},
		reports: &fakeReportService{},
		snapshots: &fakeSnapshotService{snapshots: map[snowflake.ID]*domain.ReportSnapshot{
			snowflake.ID(900): {ID: 900, BusinessID: 11, Year: 2024, Month: 3, CreatedBy: "ayu"},
		}},
	}
	h.server = NewServer(ServerParams{
		Gin:         engine,
		Cfg:         config.Config{Admin: config.AdminConfig{Header: "X-Admin-User"}},
		Log:         zap.NewNop(),
		AuthzSvc:    h.authz,
		AuditSvc:    h.audit,
		ReportSvc:   h.reports,
		SnapshotSvc: h.snapshots,
		Records: &fakeRecordStore{businesses: map[snowflake.ID]*domain.Business{
			snowflake.ID(11): {ID: 11, Name: "Salon Ayu"},
		}},
		Renderer: export.New(),
	})
	return h
}

func (h *testHarness) do(method, target string, body []byte) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("X-Admin-User", "ayu")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	h.server.Engine().ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Error
}

func TestAdminHeaderRequired(t *testing.T) {
	h := newTestHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/reports/aggregate", nil)
	resp := httptest.NewRecorder()
	h.server.Engine().ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "unauthorized", decodeError(t, resp).Type)
	assert.Empty(t, h.authz.calls)
}

func TestForbiddenAction(t *testing.T) {
	h := newTestHarness(t)
	h.authz.denied["report.delete"] = true

	resp := h.do(http.MethodDelete, "/admin/reports/snapshots/900", nil)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Empty(t, h.snapshots.deleted)
	assert.Equal(t, []string{"ayu:report.delete"}, h.authz.calls)
}

func TestGetAggregateParsesQuery(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodGet, "/admin/reports/aggregate?business_id=11&start=2024-03-01&end=2024-03-31&payment_status=paid,unpaid&include_pending=true&time_field=booking_start", nil)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	req := h.reports.aggregateReq
	require.NotNil(t, req.BusinessID)
	assert.Equal(t, snowflake.ID(11), *req.BusinessID)
	require.NotNil(t, req.DateRange)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), req.DateRange.Start)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 999999999, time.UTC), req.DateRange.End)
	assert.Equal(t, []domain.PaymentStatus{domain.PaymentPaid, domain.PaymentUnpaid}, req.PaymentStatuses)
	assert.True(t, req.IncludePending)
	assert.Equal(t, domain.TimeFieldBookingStart, req.TimeField)
}

func TestGetAggregateRejectsHalfOpenRange(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodGet, "/admin/reports/aggregate?start=2024-03-01", nil)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	payload := decodeError(t, resp)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_date_range", payload.Errors[0].Code)
	assert.Equal(t, "date_range", payload.Errors[0].Field)
}

func TestGetAggregateRejectsBadBusinessID(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodGet, "/admin/reports/aggregate?business_id=salon", nil)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_business_id", decodeError(t, resp).Errors[0].Code)
}

func TestGetAggregateUnknownBusiness(t *testing.T) {
	h := newTestHarness(t)
	h.reports.err = domain.ErrBusinessNotFound

	resp := h.do(http.MethodGet, "/admin/reports/aggregate?business_id=77", nil)

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "business not found", decodeError(t, resp).Message)
}

func TestGetTrendDefaults(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodGet, "/admin/reports/trend", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, domain.PeriodDaily, h.reports.trendReq.Period)
	assert.Equal(t, 30, h.reports.trendReq.BucketCount)
	assert.True(t, h.reports.trendReq.ReferenceDate.IsZero())
}

func TestGetTrendRejectsUnknownPeriod(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodGet, "/admin/reports/trend?period=hourly", nil)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_period", decodeError(t, resp).Errors[0].Code)
}

func TestGetRankingsValidation(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodGet, "/admin/reports/rankings?sort_by=profit", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_sort_key", decodeError(t, resp).Errors[0].Code)

	resp = h.do(http.MethodGet, "/admin/reports/rankings?sort_dir=sideways", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_sort_direction", decodeError(t, resp).Errors[0].Code)

	resp = h.do(http.MethodGet, "/admin/reports/rankings?page=two", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_page", decodeError(t, resp).Errors[0].Code)
}

func TestGetRankingsPassesPaging(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodGet, "/admin/reports/rankings?sort_by=completion_rate&sort_dir=ASC&page=2&page_size=5", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, domain.SortByCompletionRate, h.reports.rankReq.SortKey)
	assert.Equal(t, domain.SortAsc, h.reports.rankReq.SortDirection)
	assert.Equal(t, 2, h.reports.rankReq.Page)
	assert.Equal(t, 5, h.reports.rankReq.PageSize)
}

func TestExportRankingsCSV(t *testing.T) {
	h := newTestHarness(t)
	h.reports.rows = []domain.BusinessPerformanceRow{{BusinessID: 11, BusinessName: "Salon Ayu"}}

	resp := h.do(http.MethodGet, "/admin/reports/rankings/export.csv?start=2024-03-01&end=2024-03-31", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, export.ContentTypeCSV, resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "business-rankings-2024-03-01-2024-03-31.csv")
	assert.Contains(t, resp.Body.String(), "Salon Ayu")
	assert.Equal(t, []string{"ayu:report.export"}, h.authz.calls)
}

func TestGetComparisonRequiresCurrentRange(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodGet, "/admin/reports/compare?business_id=11", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = h.do(http.MethodGet, "/admin/reports/compare?business_id=11&start=2024-03-01&end=2024-03-31&previous_start=2023-03-01&previous_end=2023-03-31", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, h.reports.compareReq.Previous)
	assert.Equal(t, 2023, h.reports.compareReq.Previous.Start.Year())
}

func TestCreateSnapshot(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodPost, "/admin/reports/snapshots", []byte(`{"business_id":"11","year":2024,"month":3,"notes":" close "}`))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, domain.GenerateRequest{BusinessID: 11, Year: 2024, Month: 3, Notes: "close"}, h.snapshots.generateReq)

	resp = h.do(http.MethodPost, "/admin/reports/snapshots", []byte(`{"business_id":12,"year":2024,"month":3}`))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, snowflake.ID(12), h.snapshots.generateReq.BusinessID)
}

func TestCreateSnapshotDuplicate(t *testing.T) {
	h := newTestHarness(t)
	h.snapshots.generateErr = &domain.DuplicateReportError{BusinessID: 11, Year: 2024, Month: 3}

	resp := h.do(http.MethodPost, "/admin/reports/snapshots", []byte(`{"business_id":"11","year":2024,"month":3}`))

	require.Equal(t, http.StatusConflict, resp.Code)
	payload := decodeError(t, resp)
	assert.Equal(t, "conflict", payload.Type)
	assert.Contains(t, payload.Message, "2024-03")
}

func TestBulkSnapshotInProgress(t *testing.T) {
	h := newTestHarness(t)
	h.snapshots.bulkErr = domain.ErrBulkInProgress

	resp := h.do(http.MethodPost, "/admin/reports/snapshots/bulk", []byte(`{"year":2024,"month":3}`))

	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestSnapshotLookup(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodGet, "/admin/reports/snapshots/900", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = h.do(http.MethodGet, "/admin/reports/snapshots/901", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "report not found", decodeError(t, resp).Message)

	resp = h.do(http.MethodGet, "/admin/reports/snapshots/abc", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_id", decodeError(t, resp).Errors[0].Code)
}

func TestListSnapshotsFilters(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodGet, "/admin/reports/snapshots?business_id=11&year=2024&month=3&page=1&page_size=10", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	req := h.snapshots.listReq
	require.NotNil(t, req.BusinessID)
	require.NotNil(t, req.Year)
	require.NotNil(t, req.Month)
	assert.Equal(t, 2024, *req.Year)
	assert.Equal(t, 3, *req.Month)
	assert.Equal(t, 1, req.Page)
	assert.Equal(t, 10, req.PageSize)
}

func TestDeleteSnapshot(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodDelete, "/admin/reports/snapshots/900", nil)

	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, []snowflake.ID{900}, h.snapshots.deleted)
}

func TestExportSnapshotCSV(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodGet, "/admin/reports/snapshots/900/export.csv", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Disposition"), "salon-ayu-2024-03.csv")
	assert.Contains(t, resp.Body.String(), "total")
}

func TestImportRecords(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodPost, "/admin/reports/records/import", []byte(`[{"id":"1","businessId":"11","totalFee":"5"}]`))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, h.reports.imported, 1)
	assert.Equal(t, "11", h.reports.imported[0]["businessId"])

	resp = h.do(http.MethodPost, "/admin/reports/records/import", []byte(`[]`))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "empty_import", decodeError(t, resp).Errors[0].Code)

	resp = h.do(http.MethodPost, "/admin/reports/records/import", []byte(`{"id":1}`))
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_request", decodeError(t, resp).Errors[0].Code)
}

func TestImportRecordsKeepsNumericIDs(t *testing.T) {
	h := newTestHarness(t)

	body := []byte(`[{"id":1760000000000000001,"businessId":1760000000000000100,"totalFee":5}]`)
	resp := h.do(http.MethodPost, "/admin/reports/records/import", body)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, h.reports.imported, 1)
	assert.Equal(t, json.Number("1760000000000000001"), h.reports.imported[0]["id"])
	assert.Equal(t, json.Number("1760000000000000100"), h.reports.imported[0]["businessId"])
}

func TestUpsertBusiness(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodPut, "/admin/reports/businesses/11", []byte(`{"name":"Salon Ayu","type":"salon","approval_status":"approved"}`))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, snowflake.ID(11), h.reports.upserted.ID)
	assert.Equal(t, domain.ApprovalApproved, h.reports.upserted.ApprovalStatus)
	assert.Equal(t, []string{"ayu:business.manage"}, h.authz.calls)

	resp = h.do(http.MethodPut, "/admin/reports/businesses/zero", []byte(`{"name":"x"}`))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestExportRateLimited(t *testing.T) {
	h := newTestHarness(t)
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: false, Limit: 10, RetryAfter: 1500 * time.Millisecond}}
	h.server.limiter = limiter

	resp := h.do(http.MethodGet, "/admin/reports/snapshots/900/export.csv", nil)

	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "rate_limited", decodeError(t, resp).Type)
	assert.Equal(t, "2", resp.Header().Get("Retry-After"))
	assert.Equal(t, "10", resp.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, []string{"ayu"}, limiter.actors)
}

func TestExportRateLimiterFailureLetsRequestThrough(t *testing.T) {
	h := newTestHarness(t)
	h.server.limiter = &fakeLimiter{err: ratelimit.ErrNotConfigured}

	resp := h.do(http.MethodGet, "/admin/reports/snapshots/900/export.csv", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestRateLimitNotAppliedToLiveReports(t *testing.T) {
	h := newTestHarness(t)
	limiter := &fakeLimiter{result: ratelimit.Result{Allowed: false}}
	h.server.limiter = limiter

	resp := h.do(http.MethodGet, "/admin/reports/aggregate", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, limiter.actors)
}

func TestMutationsAreAudited(t *testing.T) {
	h := newTestHarness(t)

	h.do(http.MethodPost, "/admin/reports/snapshots", []byte(`{"business_id":"11","year":2024,"month":3}`))
	h.do(http.MethodPost, "/admin/reports/snapshots/bulk", []byte(`{"year":2024,"month":3}`))
	h.do(http.MethodDelete, "/admin/reports/snapshots/900", nil)
	h.do(http.MethodDelete, "/admin/reports/snapshots/901", nil)
	h.do(http.MethodPut, "/admin/reports/businesses/11", []byte(`{"name":"Salon Ayu"}`))
	h.do(http.MethodGet, "/admin/reports/snapshots/900", nil)

	assert.Equal(t, []string{
		"report.snapshot.create:500",
		"report.snapshot.bulk:",
		"report.snapshot.delete:900",
		"business.upsert:11",
	}, h.audit.entries)
}

func TestAuditFailureKeepsResponse(t *testing.T) {
	h := newTestHarness(t)
	h.audit.err = errors.New("db down")

	resp := h.do(http.MethodDelete, "/admin/reports/snapshots/900", nil)

	assert.Equal(t, http.StatusNoContent, resp.Code)
}

func TestListAuditLogs(t *testing.T) {
	h := newTestHarness(t)

	resp := h.do(http.MethodGet, "/admin/reports/audit-logs?action=report.snapshot.delete&actor=ayu&start=2024-04-01&page_size=20", nil)

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "report.snapshot.delete", h.audit.listReq.Action)
	assert.Equal(t, "ayu", h.audit.listReq.Actor)
	assert.Equal(t, 20, h.audit.listReq.PageSize)
	require.NotNil(t, h.audit.listReq.StartAt)
	assert.Nil(t, h.audit.listReq.EndAt)
	assert.Equal(t, []string{"ayu:audit.view"}, h.authz.calls)

	resp = h.do(http.MethodGet, "/admin/reports/audit-logs?start=2024-04-02&end=2024-04-01", nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "invalid_date_range", decodeError(t, resp).Errors[0].Code)
}
