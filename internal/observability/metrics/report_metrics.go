package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"gorm.io/gorm"
)

const (
	ReportReasonInvalidArgument  = "invalid_argument"
	ReportReasonNotFound         = "not_found"
	ReportReasonDuplicate        = "duplicate"
	ReportReasonBulkInProgress   = "bulk_in_progress"
	ReportReasonDeadlineExceeded = "deadline_exceeded"
	ReportReasonDB               = "db"
	ReportReasonUnknown          = "unknown"
)

const (
	BulkOutcomeSucceeded = "succeeded"
	BulkOutcomeSkipped   = "skipped"
	BulkOutcomeFailed    = "failed"
)

// ReportMetrics tracks snapshot generation in a Prometheus registry so batch
// runs from the CLI can push the same series the server exposes.
type ReportMetrics struct {
	snapshotsGenerated prometheus.Counter
	snapshotRevenue    prometheus.Counter
	bulkRuns           prometheus.Counter
	bulkItems          *prometheus.CounterVec
	bulkDuration       prometheus.Observer
	lastBulkSuccess    prometheus.Gauge
	bulkItemCounts     map[string]prometheus.Counter

	jobRuns     *prometheus.CounterVec
	jobErrors   *prometheus.CounterVec
	jobTimeouts *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

var (
	reportMetricsOnce sync.Once
	reportMetrics     *ReportMetrics
)

// Reports returns the process-wide report metrics registered on the default registerer.
func Reports() *ReportMetrics {
	return ReportsWithConfig(Config{})
}

// ReportsWithConfig returns the process-wide report metrics using config labels.
func ReportsWithConfig(cfg Config) *ReportMetrics {
	reportMetricsOnce.Do(func() {
		reportMetrics = NewReportMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return reportMetrics
}

// NewReportMetrics registers report collectors on registerer.
func NewReportMetrics(registerer prometheus.Registerer, cfg Config) *ReportMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "loobook-reporting"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	snapshotsGenerated := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "loobook_report_snapshots_generated_total",
		Help:        "Monthly report snapshots persisted.",
		ConstLabels: constLabels,
	})
	snapshotRevenue := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "loobook_report_snapshot_revenue_total",
		Help:        "Total revenue captured by persisted report snapshots.",
		ConstLabels: constLabels,
	})
	bulkRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "loobook_report_bulk_runs_total",
		Help:        "Completed bulk report generation runs.",
		ConstLabels: constLabels,
	})
	bulkItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "loobook_report_bulk_items_total",
		Help:        "Bulk generation items by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	bulkDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "loobook_report_bulk_duration_seconds",
		Help:        "Wall time of bulk report generation runs.",
		Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		ConstLabels: constLabels,
	})
	lastBulkSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "loobook_report_bulk_last_completed_timestamp_seconds",
		Help:        "Unix time of the last completed bulk run.",
		ConstLabels: constLabels,
	})

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "loobook_scheduler_job_runs_total",
		Help:        "Scheduled report jobs started.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "loobook_scheduler_job_errors_total",
		Help:        "Scheduled report jobs that ended with an error.",
		ConstLabels: constLabels,
	}, []string{"job", "reason"})
	jobTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "loobook_scheduler_job_timeouts_total",
		Help:        "Scheduled report jobs stopped by their timeout.",
		ConstLabels: constLabels,
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "loobook_scheduler_job_duration_seconds",
		Help:        "Wall time of scheduled report jobs.",
		Buckets:     []float64{0.1, 0.5, 1, 5, 30, 60, 300, 900, 1800},
		ConstLabels: constLabels,
	}, []string{"job"})

	registerer.MustRegister(
		snapshotsGenerated,
		snapshotRevenue,
		bulkRuns,
		bulkItems,
		bulkDuration,
		lastBulkSuccess,
		jobRuns,
		jobErrors,
		jobTimeouts,
		jobDuration,
	)

	itemCounts := map[string]prometheus.Counter{}
	for _, outcome := range []string{BulkOutcomeSucceeded, BulkOutcomeSkipped, BulkOutcomeFailed} {
		itemCounts[outcome] = bulkItems.WithLabelValues(outcome)
	}

	return &ReportMetrics{
		snapshotsGenerated: snapshotsGenerated,
		snapshotRevenue:    snapshotRevenue,
		bulkRuns:           bulkRuns,
		bulkItems:          bulkItems,
		bulkDuration:       bulkDuration,
		lastBulkSuccess:    lastBulkSuccess,
		bulkItemCounts:     itemCounts,
		jobRuns:            jobRuns,
		jobErrors:          jobErrors,
		jobTimeouts:        jobTimeouts,
		jobDuration:        jobDuration,
	}
}

// SnapshotGenerated records one persisted snapshot.
func (m *ReportMetrics) SnapshotGenerated(_ context.Context, snapshot *domain.ReportSnapshot) {
	if m == nil || snapshot == nil {
		return
	}
	m.snapshotsGenerated.Inc()
	revenue, _ := snapshot.Financials.TotalRevenue.Float64()
	if revenue > 0 {
		m.snapshotRevenue.Add(revenue)
	}
}

// BulkCompleted records the outcome of a bulk run.
func (m *ReportMetrics) BulkCompleted(_ context.Context, result *domain.BulkResult, duration time.Duration) {
	if m == nil || result == nil {
		return
	}
	m.bulkRuns.Inc()
	m.addItems(BulkOutcomeSucceeded, len(result.Succeeded))
	m.addItems(BulkOutcomeSkipped, len(result.Skipped))
	m.addItems(BulkOutcomeFailed, len(result.Failed))
	if duration < 0 {
		duration = 0
	}
	m.bulkDuration.Observe(duration.Seconds())
	m.lastBulkSuccess.SetToCurrentTime()
}

// JobStarted counts one scheduled job run.
func (m *ReportMetrics) JobStarted(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

// JobFinished records the duration and, on failure, the reason of a job run.
func (m *ReportMetrics) JobFinished(job string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
	if err == nil {
		return
	}
	reason := ClassifyReportError(err)
	if reason == ReportReasonDeadlineExceeded {
		m.jobTimeouts.WithLabelValues(job).Inc()
	}
	m.jobErrors.WithLabelValues(job, reason).Inc()
}

func (m *ReportMetrics) addItems(outcome string, count int) {
	if count <= 0 {
		return
	}
	if counter, ok := m.bulkItemCounts[outcome]; ok {
		counter.Add(float64(count))
		return
	}
	m.bulkItems.WithLabelValues(outcome).Add(float64(count))
}

// ClassifyReportError maps report errors to low-cardinality reasons.
func ClassifyReportError(err error) string {
	switch {
	case err == nil:
		return ReportReasonUnknown
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return ReportReasonDeadlineExceeded
	case errors.Is(err, domain.ErrInvalidArgument):
		return ReportReasonInvalidArgument
	case errors.Is(err, domain.ErrNotFound):
		return ReportReasonNotFound
	case errors.Is(err, domain.ErrDuplicateReport):
		return ReportReasonDuplicate
	case errors.Is(err, domain.ErrBulkInProgress):
		return ReportReasonBulkInProgress
	case isDBError(err):
		return ReportReasonDB
	default:
		return ReportReasonUnknown
	}
}

func isDBError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidField) ||
		errors.Is(err, gorm.ErrInvalidData) ||
		errors.Is(err, gorm.ErrUnsupportedDriver) ||
		errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr)
}
