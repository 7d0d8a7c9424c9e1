package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// RawRecord is a booking payload as exported by the booking platform.
type RawRecord = datatypes.JSONMap

type RecordQuery struct {
	BusinessID *snowflake.ID
	DateRange  *DateRange
	TimeField  TimeField
}

type BusinessQuery struct {
	ActiveOnly bool
}

// RecordStore supplies transaction records and businesses to the engine.
type RecordStore interface {
	FetchTransactionRecords(ctx context.Context, query RecordQuery) ([]TransactionRecord, error)
	FetchBusinesses(ctx context.Context, query BusinessQuery) ([]Business, error)
	GetBusiness(ctx context.Context, id snowflake.ID) (*Business, error)
	ImportRecords(ctx context.Context, records []RawRecord) (int, error)
	UpsertBusiness(ctx context.Context, business *Business) error
}

type SnapshotFilter struct {
	BusinessID *snowflake.ID
	Year       *int
	Month      *int
	Limit      int
	Offset     int
}

// SnapshotRepository persists report snapshots. Insert must fail with
// ErrDuplicateReport when the (business, year, month) key already exists.
type SnapshotRepository interface {
	Insert(ctx context.Context, snapshot *ReportSnapshot) error
	FindByID(ctx context.Context, id snowflake.ID) (*ReportSnapshot, error)
	FindByPeriod(ctx context.Context, businessID snowflake.ID, year, month int) (*ReportSnapshot, error)
	List(ctx context.Context, filter SnapshotFilter) ([]ReportSnapshot, error)
	Count(ctx context.Context, filter SnapshotFilter) (int64, error)
	Delete(ctx context.Context, id snowflake.ID) (bool, error)
}
