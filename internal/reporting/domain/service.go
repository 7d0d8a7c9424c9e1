package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Aggregate(ctx context.Context, req AggregateRequest) (AggregateSnapshot, error)
	Trend(ctx context.Context, req TrendRequest) (Trend, error)
	Rank(ctx context.Context, req RankRequest) (RankResult, error)
	RankAll(ctx context.Context, req RankRequest) ([]BusinessPerformanceRow, error)
	Compare(ctx context.Context, req CompareRequest) (CompareResponse, error)
	ImportRecords(ctx context.Context, records []RawRecord) (ImportResult, error)
	UpsertBusiness(ctx context.Context, req UpsertBusinessRequest) (*Business, error)
}

type SnapshotService interface {
	Generate(ctx context.Context, req GenerateRequest) (*ReportSnapshot, error)
	BulkGenerate(ctx context.Context, req BulkGenerateRequest) (*BulkResult, error)
	Get(ctx context.Context, id snowflake.ID) (*ReportSnapshot, error)
	GetByPeriod(ctx context.Context, businessID snowflake.ID, year, month int) (*ReportSnapshot, error)
	List(ctx context.Context, req ListSnapshotsRequest) (ListSnapshotsResponse, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

type AggregateRequest struct {
	BusinessID      *snowflake.ID
	DateRange       *DateRange
	TimeField       TimeField
	PaymentStatuses []PaymentStatus
	IncludePending  bool
}

type TrendRequest struct {
	BusinessID    *snowflake.ID
	Period        Period
	BucketCount   int
	ReferenceDate time.Time
	TimeField     TimeField
}

type RankRequest struct {
	DateRange     *DateRange
	TimeField     TimeField
	SortKey       SortKey
	SortDirection SortDirection
	Page          int
	PageSize      int
}

type CompareRequest struct {
	BusinessID *snowflake.ID
	Current    DateRange
	Previous   *DateRange
	TimeField  TimeField
}

type CompareResponse struct {
	CurrentRange  DateRange         `json:"current_range"`
	PreviousRange DateRange         `json:"previous_range"`
	Current       AggregateSnapshot `json:"current"`
	Previous      AggregateSnapshot `json:"previous"`
	Comparison    Comparison        `json:"comparison"`
}

type ImportResult struct {
	Imported int `json:"imported"`
}

type UpsertBusinessRequest struct {
	ID             snowflake.ID   `json:"-"`
	Name           string         `json:"name"`
	Type           string         `json:"type"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	IsActive       *bool          `json:"is_active"`
}

type GenerateRequest struct {
	BusinessID snowflake.ID `json:"business_id"`
	Year       int          `json:"year"`
	Month      int          `json:"month"`
	Notes      string       `json:"notes"`
}

type BulkGenerateRequest struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Notes string `json:"notes"`
}

type ListSnapshotsRequest struct {
	BusinessID *snowflake.ID
	Year       *int
	Month      *int
	Page       int
	PageSize   int
}

type ListSnapshotsResponse struct {
	Snapshots  []ReportSnapshot `json:"snapshots"`
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
}
