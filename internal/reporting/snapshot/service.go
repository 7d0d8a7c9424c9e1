package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/internal/actorcontext"
	"github.com/smallbiznis/loobook/internal/clock"
	"github.com/smallbiznis/loobook/internal/config"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/period"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultListPageSize = 20
	maxListPageSize     = 100
)

// Locker guards a bulk run so two runs for the same month do not overlap.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

// Observer is notified about generated reports and finished bulk runs.
type Observer interface {
	SnapshotGenerated(ctx context.Context, snapshot *domain.ReportSnapshot)
	BulkCompleted(ctx context.Context, result *domain.BulkResult, elapsed time.Duration)
}

type Params struct {
	fx.In

	Records   domain.RecordStore
	Snapshots domain.SnapshotRepository
	Log       *zap.Logger
	Clock     clock.Clock
	GenID     *snowflake.Node
	Settings  *config.ReportingConfigHolder `optional:"true"`
	Locker    Locker                        `optional:"true"`
	Observer  Observer                      `optional:"true"`
}

type Service struct {
	records   domain.RecordStore
	snapshots domain.SnapshotRepository
	log       *zap.Logger
	clock     clock.Clock
	genID     *snowflake.Node
	settings  *config.ReportingConfigHolder
	locker    Locker
	observer  Observer
}

func NewService(p Params) domain.SnapshotService {
	return &Service{
		records:   p.Records,
		snapshots: p.Snapshots,
		log:       p.Log.Named("reporting.snapshot"),
		clock:     p.Clock,
		genID:     p.GenID,
		settings:  p.Settings,
		locker:    p.Locker,
		observer:  p.Observer,
	}
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.ReportSnapshot, error) {
	if req.BusinessID == 0 {
		return nil, domain.ErrInvalidBusinessID
	}
	if err := period.ValidateMonth(req.Year, req.Month); err != nil {
		return nil, err
	}

	business, err := s.records.GetBusiness(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, domain.ErrBusinessNotFound
	}

	snapshot, err := s.generateFor(ctx, business.ID, req.Year, req.Month, strings.TrimSpace(req.Notes))
	if err != nil {
		return nil, err
	}
	s.log.Info("report snapshot generated",
		zap.String("snapshot_id", snapshot.ID.String()),
		zap.String("business_id", business.ID.String()),
		zap.Int("year", req.Year),
		zap.Int("month", req.Month),
		zap.String("created_by", snapshot.CreatedBy),
	)
	return snapshot, nil
}

// BulkGenerate builds the month's report for every active business. A
// business that already has one is skipped, and a failing business never
// stops the batch.
func (s *Service) BulkGenerate(ctx context.Context, req domain.BulkGenerateRequest) (*domain.BulkResult, error) {
	if err := period.ValidateMonth(req.Year, req.Month); err != nil {
		return nil, err
	}
	cfg := s.settings.Get()
	startedAt := s.clock.Now()

	if s.locker != nil {
		key := bulkLockKey(req.Year, req.Month)
		token, ok, err := s.locker.TryLock(ctx, key, cfg.BulkLockTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrBulkInProgress
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
				s.log.Warn("failed to release bulk lock", zap.String("key", key), zap.Error(err))
			}
		}()
	}

	businesses, err := s.records.FetchBusinesses(ctx, domain.BusinessQuery{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	notes := strings.TrimSpace(req.Notes)
	outcomes := make([]error, len(businesses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.BulkConcurrency)
	for i, business := range businesses {
		g.Go(func() error {
			_, err := s.generateFor(gctx, business.ID, req.Year, req.Month, notes)
			outcomes[i] = err
			return nil
		})
	}
	_ = g.Wait()

	result := &domain.BulkResult{
		Year:      req.Year,
		Month:     req.Month,
		Succeeded: []snowflake.ID{},
		Skipped:   []snowflake.ID{},
		Failed:    []domain.BulkFailure{},
	}
	for i, business := range businesses {
		err := outcomes[i]
		switch {
		case err == nil:
			result.Succeeded = append(result.Succeeded, business.ID)
		case errors.Is(err, domain.ErrDuplicateReport):
			result.Skipped = append(result.Skipped, business.ID)
		default:
			s.log.Warn("bulk report generation failed",
				zap.String("business_id", business.ID.String()),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, domain.BulkFailure{
				BusinessID: business.ID,
				Error:      errorSummary(err),
			})
		}
	}

	elapsed := s.clock.Now().Sub(startedAt)
	s.log.Info("bulk report generation finished",
		zap.Int("year", req.Year),
		zap.Int("month", req.Month),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
		zap.Duration("elapsed", elapsed),
	)
	if s.observer != nil {
		s.observer.BulkCompleted(ctx, result, elapsed)
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.ReportSnapshot, error) {
	if id == 0 {
		return nil, domain.ErrReportNotFound
	}
	snapshot, err := s.snapshots.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, domain.ErrReportNotFound
	}
	return snapshot, nil
}

func (s *Service) GetByPeriod(ctx context.Context, businessID snowflake.ID, year, month int) (*domain.ReportSnapshot, error) {
	if businessID == 0 {
		return nil, domain.ErrInvalidBusinessID
	}
	if err := period.ValidateMonth(year, month); err != nil {
		return nil, err
	}
	snapshot, err := s.snapshots.FindByPeriod(ctx, businessID, year, month)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, domain.ErrReportNotFound
	}
	return snapshot, nil
}

func (s *Service) List(ctx context.Context, req domain.ListSnapshotsRequest) (domain.ListSnapshotsResponse, error) {
	if req.Page < 0 {
		return domain.ListSnapshotsResponse{}, domain.ErrInvalidPage
	}
	if req.PageSize < 0 || req.PageSize > maxListPageSize {
		return domain.ListSnapshotsResponse{}, domain.ErrInvalidPageSize
	}
	if req.PageSize == 0 {
		req.PageSize = defaultListPageSize
	}
	if req.Month != nil && (*req.Month < 1 || *req.Month > 12) {
		return domain.ListSnapshotsResponse{}, domain.ErrInvalidMonth
	}
	if req.Year != nil && (*req.Year < period.MinYear || *req.Year > period.MaxYear) {
		return domain.ListSnapshotsResponse{}, domain.ErrInvalidYear
	}

	filter := domain.SnapshotFilter{
		BusinessID: req.BusinessID,
		Year:       req.Year,
		Month:      req.Month,
		Limit:      req.PageSize,
		Offset:     req.Page * req.PageSize,
	}
	total, err := s.snapshots.Count(ctx, filter)
	if err != nil {
		return domain.ListSnapshotsResponse{}, err
	}
	items, err := s.snapshots.List(ctx, filter)
	if err != nil {
		return domain.ListSnapshotsResponse{}, err
	}
	if items == nil {
		items = []domain.ReportSnapshot{}
	}
	return domain.ListSnapshotsResponse{
		Snapshots:  items,
		TotalCount: total,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return domain.ErrReportNotFound
	}
	deleted, err := s.snapshots.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrReportNotFound
	}
	s.log.Info("report snapshot deleted",
		zap.String("snapshot_id", id.String()),
		zap.String("deleted_by", actorcontext.ActorOrSystem(ctx)),
	)
	return nil
}

func (s *Service) generateFor(ctx context.Context, businessID snowflake.ID, year, month int, notes string) (*domain.ReportSnapshot, error) {
	existing, err := s.snapshots.FindByPeriod(ctx, businessID, year, month)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &domain.DuplicateReportError{BusinessID: businessID, Year: year, Month: month}
	}

	window, err := FetchRange(year, month, time.UTC)
	if err != nil {
		return nil, err
	}
	timeField := s.timeField()
	records, err := s.records.FetchTransactionRecords(ctx, domain.RecordQuery{
		BusinessID: &businessID,
		DateRange:  &window,
		TimeField:  timeField,
	})
	if err != nil {
		return nil, err
	}

	snapshot, err := Build(Input{
		ID:         s.genID.Generate(),
		BusinessID: businessID,
		Year:       year,
		Month:      month,
		Records:    records,
		TimeField:  timeField,
		Location:   time.UTC,
		Notes:      notes,
		CreatedBy:  actorcontext.ActorOrSystem(ctx),
		CreatedAt:  s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.snapshots.Insert(ctx, snapshot); err != nil {
		if errors.Is(err, domain.ErrDuplicateReport) {
			return nil, &domain.DuplicateReportError{BusinessID: businessID, Year: year, Month: month}
		}
		return nil, err
	}
	if s.observer != nil {
		s.observer.SnapshotGenerated(ctx, snapshot)
	}
	return snapshot, nil
}

func (s *Service) timeField() domain.TimeField {
	field, err := domain.ParseTimeField(s.settings.Get().DefaultTimeField)
	if err != nil || field == "" {
		return domain.TimeFieldCreatedAt
	}
	return field
}

func bulkLockKey(year, month int) string {
	return fmt.Sprintf("loobook:reports:bulk:%04d-%02d", year, month)
}

const maxErrorSummary = 256

func errorSummary(err error) string {
	if err == nil {
		return ""
	}
	value := strings.TrimSpace(err.Error())
	if value == "" {
		return "unknown_error"
	}
	if len(value) > maxErrorSummary {
		cut := maxErrorSummary
		for cut > 0 && !utf8.RuneStart(value[cut]) {
			cut--
		}
		return value[:cut]
	}
	return value
}
