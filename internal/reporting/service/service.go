package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/internal/cache"
	"github.com/smallbiznis/loobook/internal/clock"
	"github.com/smallbiznis/loobook/internal/config"
	"github.com/smallbiznis/loobook/internal/observability/metrics"
	"github.com/smallbiznis/loobook/internal/observability/tracing"
	"github.com/smallbiznis/loobook/internal/reporting/aggregate"
	"github.com/smallbiznis/loobook/internal/reporting/compare"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/filter"
	"github.com/smallbiznis/loobook/internal/reporting/ranking"
	"github.com/smallbiznis/loobook/internal/reporting/trend"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	opAggregate = "aggregate"
	opTrend     = "trend"
	opRank      = "rank"
	opCompare   = "compare"
	opImport    = "import"
)

type Params struct {
	fx.In

	Records  domain.RecordStore
	Log      *zap.Logger
	Clock    clock.Clock
	Settings *config.ReportingConfigHolder `optional:"true"`
	Cache    cache.ReportCache             `optional:"true"`
	Metrics  *metrics.Metrics              `optional:"true"`
}

type Service struct {
	records  domain.RecordStore
	log      *zap.Logger
	clock    clock.Clock
	settings *config.ReportingConfigHolder
	cache    cache.ReportCache
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func NewService(p Params) domain.Service {
	return &Service{
		records:  p.Records,
		log:      p.Log.Named("reporting.service"),
		clock:    p.Clock,
		settings: p.Settings,
		cache:    p.Cache,
		metrics:  p.Metrics,
		tracer:   otel.Tracer("loobook/reporting"),
	}
}

func (s *Service) Aggregate(ctx context.Context, req domain.AggregateRequest) (result domain.AggregateSnapshot, err error) {
	ctx, done := s.begin(ctx, opAggregate, businessAttr(req.BusinessID))
	defer func() { done(err) }()

	if req.DateRange != nil {
		if err := req.DateRange.Validate(); err != nil {
			return domain.AggregateSnapshot{}, err
		}
	}
	if err := s.ensureBusiness(ctx, req.BusinessID); err != nil {
		return domain.AggregateSnapshot{}, err
	}

	field := s.timeField(req.TimeField)
	records, err := s.fetch(ctx, opAggregate, domain.RecordQuery{
		BusinessID: req.BusinessID,
		DateRange:  req.DateRange,
		TimeField:  field,
	})
	if err != nil {
		return domain.AggregateSnapshot{}, err
	}

	scoped := filter.Filter(records, filter.Criteria{
		DateRange:       req.DateRange,
		TimeField:       field,
		BusinessID:      req.BusinessID,
		PaymentStatuses: req.PaymentStatuses,
	})
	return aggregate.AggregateWithOptions(scoped, aggregate.Options{IncludePending: req.IncludePending}), nil
}

func (s *Service) Trend(ctx context.Context, req domain.TrendRequest) (result domain.Trend, err error) {
	ctx, done := s.begin(ctx, opTrend,
		businessAttr(req.BusinessID),
		attribute.String("report.period", string(req.Period)),
		attribute.Int("report.buckets", req.BucketCount),
	)
	defer func() { done(err) }()

	tr := trend.Request{
		Period:        req.Period,
		BucketCount:   req.BucketCount,
		ReferenceDate: req.ReferenceDate,
		TimeField:     s.timeField(req.TimeField),
	}
	if tr.ReferenceDate.IsZero() {
		tr.ReferenceDate = s.clock.Now()
	}
	if err := tr.Validate(); err != nil {
		return domain.Trend{}, err
	}
	if err := s.ensureBusiness(ctx, req.BusinessID); err != nil {
		return domain.Trend{}, err
	}

	// Buckets follow the reference date's location, so the key carries it too.
	key := cache.Key(opTrend, idKey(req.BusinessID), string(tr.Period), strconv.Itoa(tr.BucketCount),
		tr.ReferenceDate.Format(time.RFC3339Nano), tr.ReferenceDate.Location().String(), string(tr.TimeField))
	if cached, ok := s.cachedTrend(ctx, key); ok {
		return cached, nil
	}

	span, err := trend.Span(tr)
	if err != nil {
		return domain.Trend{}, err
	}
	records, err := s.fetch(ctx, opTrend, domain.RecordQuery{
		BusinessID: req.BusinessID,
		DateRange:  &span,
		TimeField:  tr.TimeField,
	})
	if err != nil {
		return domain.Trend{}, err
	}

	result, err = trend.Build(records, tr)
	if err != nil {
		return domain.Trend{}, err
	}
	if s.cache != nil {
		s.cache.SetTrend(key, result, s.settings.Get().CacheTTL)
	}
	return result, nil
}

// Rank validates req before loading anything, so a bad sort key never
// touches the store.
func (s *Service) Rank(ctx context.Context, req domain.RankRequest) (result domain.RankResult, err error) {
	ctx, done := s.begin(ctx, opRank, attribute.String("report.sort_by", string(req.SortKey)))
	defer func() { done(err) }()

	if req.PageSize == 0 {
		req.PageSize = s.defaultPageSize()
	}
	req.TimeField = s.timeField(req.TimeField)
	req, err = ranking.Normalize(req)
	if err != nil {
		return domain.RankResult{}, err
	}

	key := cache.Key(opRank, rangeKey(req.DateRange), string(req.TimeField), string(req.SortKey),
		string(req.SortDirection), strconv.Itoa(req.Page), strconv.Itoa(req.PageSize))
	if cached, ok := s.cachedRanking(ctx, key); ok {
		return cached, nil
	}

	businesses, err := s.records.FetchBusinesses(ctx, domain.BusinessQuery{ActiveOnly: true})
	if err != nil {
		return domain.RankResult{}, err
	}
	records, err := s.fetch(ctx, opRank, domain.RecordQuery{
		DateRange: req.DateRange,
		TimeField: req.TimeField,
	})
	if err != nil {
		return domain.RankResult{}, err
	}

	result, err = ranking.Rank(businesses, records, req)
	if err != nil {
		return domain.RankResult{}, err
	}
	if s.cache != nil {
		s.cache.SetRanking(key, result, s.settings.Get().CacheTTL)
	}
	return result, nil
}

// RankAll returns every ranked row regardless of paging, for exports.
func (s *Service) RankAll(ctx context.Context, req domain.RankRequest) ([]domain.BusinessPerformanceRow, error) {
	req.Page = 0
	req.PageSize = ranking.MaxPageSize
	req.TimeField = s.timeField(req.TimeField)
	req, err := ranking.Normalize(req)
	if err != nil {
		return nil, err
	}

	businesses, err := s.records.FetchBusinesses(ctx, domain.BusinessQuery{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	records, err := s.fetch(ctx, opRank, domain.RecordQuery{DateRange: req.DateRange, TimeField: req.TimeField})
	if err != nil {
		return nil, err
	}
	rows := ranking.Rows(businesses, records, req.DateRange, req.TimeField)
	ranking.Sort(rows, req.SortKey, req.SortDirection)
	return rows, nil
}

// Compare aggregates two windows and reports growth. Without an explicit
// previous window the one of equal length right before Current is used.
func (s *Service) Compare(ctx context.Context, req domain.CompareRequest) (resp domain.CompareResponse, err error) {
	ctx, done := s.begin(ctx, opCompare, businessAttr(req.BusinessID))
	defer func() { done(err) }()

	if err := req.Current.Validate(); err != nil {
		return domain.CompareResponse{}, err
	}
	previous := compare.PreviousRange(req.Current)
	if req.Previous != nil {
		if err := req.Previous.Validate(); err != nil {
			return domain.CompareResponse{}, err
		}
		previous = *req.Previous
	}
	if err := s.ensureBusiness(ctx, req.BusinessID); err != nil {
		return domain.CompareResponse{}, err
	}

	field := s.timeField(req.TimeField)
	span := domain.DateRange{Start: earliest(req.Current.Start, previous.Start), End: latest(req.Current.End, previous.End)}
	records, err := s.fetch(ctx, opCompare, domain.RecordQuery{
		BusinessID: req.BusinessID,
		DateRange:  &span,
		TimeField:  field,
	})
	if err != nil {
		return domain.CompareResponse{}, err
	}

	current := aggregate.Aggregate(filter.Filter(records, filter.Criteria{
		DateRange: &req.Current, TimeField: field, BusinessID: req.BusinessID,
	}))
	prior := aggregate.Aggregate(filter.Filter(records, filter.Criteria{
		DateRange: &previous, TimeField: field, BusinessID: req.BusinessID,
	}))

	return domain.CompareResponse{
		CurrentRange:  req.Current,
		PreviousRange: previous,
		Current:       current,
		Previous:      prior,
		Comparison:    compare.Compare(current, prior),
	}, nil
}

func (s *Service) ImportRecords(ctx context.Context, raws []domain.RawRecord) (result domain.ImportResult, err error) {
	ctx, done := s.begin(ctx, opImport, attribute.Int("report.records", len(raws)))
	defer func() { done(err) }()

	if len(raws) == 0 {
		return domain.ImportResult{}, domain.ErrEmptyImport
	}
	imported, err := s.records.ImportRecords(ctx, raws)
	if err != nil {
		return domain.ImportResult{}, err
	}
	if s.cache != nil {
		s.cache.Invalidate()
	}
	s.metrics.RecordImport(ctx, imported)
	s.log.Info("transaction records imported", zap.Int("count", imported))
	return domain.ImportResult{Imported: imported}, nil
}

func (s *Service) UpsertBusiness(ctx context.Context, req domain.UpsertBusinessRequest) (*domain.Business, error) {
	if req.ID == 0 {
		return nil, domain.ErrInvalidBusinessID
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidBusinessName
	}
	approval, err := domain.ParseApprovalStatus(string(req.ApprovalStatus))
	if err != nil {
		return nil, err
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	now := s.clock.Now()
	business := &domain.Business{
		ID:             req.ID,
		Name:           name,
		Type:           strings.TrimSpace(req.Type),
		ApprovalStatus: approval,
		IsActive:       active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.records.UpsertBusiness(ctx, business); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Invalidate()
	}

	stored, err := s.records.GetBusiness(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return business, nil
	}
	return stored, nil
}

func (s *Service) begin(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "reporting."+operation, trace.WithAttributes(tracing.SafeAttributes(attrs...)...))
	return ctx, func(err error) {
		if err != nil {
			if safeErr := tracing.SafeError(err); safeErr != nil {
				span.RecordError(safeErr)
			}
			span.SetStatus(codes.Error, metrics.ClassifyReportError(err))
		}
		span.End()
		s.metrics.RecordReport(ctx, operation, err, time.Since(start))
	}
}

func (s *Service) fetch(ctx context.Context, operation string, query domain.RecordQuery) ([]domain.TransactionRecord, error) {
	records, err := s.records.FetchTransactionRecords(ctx, query)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRecordsFetched(ctx, operation, len(records))
	return records, nil
}

// ensureBusiness resolves an optional business filter to a known business.
func (s *Service) ensureBusiness(ctx context.Context, id *snowflake.ID) error {
	if id == nil {
		return nil
	}
	if *id == 0 {
		return domain.ErrInvalidBusinessID
	}
	business, err := s.records.GetBusiness(ctx, *id)
	if err != nil {
		return err
	}
	if business == nil {
		return domain.ErrBusinessNotFound
	}
	return nil
}

func (s *Service) cachedTrend(ctx context.Context, key string) (domain.Trend, bool) {
	if s.cache == nil {
		return domain.Trend{}, false
	}
	cached, ok := s.cache.GetTrend(key)
	s.metrics.RecordCacheLookup(ctx, opTrend, ok)
	return cached, ok
}

func (s *Service) cachedRanking(ctx context.Context, key string) (domain.RankResult, bool) {
	if s.cache == nil {
		return domain.RankResult{}, false
	}
	cached, ok := s.cache.GetRanking(key)
	s.metrics.RecordCacheLookup(ctx, opRank, ok)
	return cached, ok
}

func (s *Service) timeField(field domain.TimeField) domain.TimeField {
	if field != "" {
		return field
	}
	parsed, err := domain.ParseTimeField(s.settings.Get().DefaultTimeField)
	if err != nil || parsed == "" {
		return domain.TimeFieldCreatedAt
	}
	return parsed
}

func (s *Service) defaultPageSize() int {
	size := s.settings.Get().DefaultPageSize
	if size <= 0 || size > ranking.MaxPageSize {
		return ranking.DefaultPageSize
	}
	return size
}

func businessAttr(id *snowflake.ID) attribute.KeyValue {
	return attribute.String("report.business_id", idKey(id))
}

func idKey(id *snowflake.ID) string {
	if id == nil {
		return "all"
	}
	return id.String()
}

func rangeKey(r *domain.DateRange) string {
	if r == nil {
		return "all_time"
	}
	return r.Start.UTC().Format(time.RFC3339Nano) + "/" + r.End.UTC().Format(time.RFC3339Nano)
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
