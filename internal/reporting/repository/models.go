package repository

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type transactionRecordRow struct {
	ID            snowflake.ID      `gorm:"primaryKey;autoIncrement:false"`
	BusinessID    snowflake.ID      `gorm:"not null;default:0;index:idx_transaction_records_business_created,priority:1;index:idx_transaction_records_business_start,priority:1"`
	OccurredAt    *time.Time        `gorm:"column:created_at;index:idx_transaction_records_business_created,priority:2"`
	BookingStart  *time.Time        `gorm:"column:booking_start;index:idx_transaction_records_business_start,priority:2"`
	Status        string            `gorm:"type:text;not null;default:''"`
	PaymentStatus string            `gorm:"type:text;not null;default:''"`
	Payload       datatypes.JSONMap `gorm:"not null"`
	ImportedAt    time.Time         `gorm:"not null"`
}

func (transactionRecordRow) TableName() string { return "transaction_records" }

type reportSnapshotRow struct {
	ID                 snowflake.ID                                 `gorm:"primaryKey;autoIncrement:false"`
	BusinessID         snowflake.ID                                 `gorm:"not null;uniqueIndex:ux_report_snapshots_period,priority:1"`
	Year               int                                          `gorm:"not null;uniqueIndex:ux_report_snapshots_period,priority:2"`
	Month              int                                          `gorm:"not null;uniqueIndex:ux_report_snapshots_period,priority:3"`
	Financials         datatypes.JSONType[domain.AggregateSnapshot] `gorm:"not null"`
	PreviousFinancials datatypes.JSONType[domain.AggregateSnapshot] `gorm:"not null"`
	DailyBreakdown     datatypes.JSONType[[]domain.TrendPoint]      `gorm:"not null"`
	Comparison         datatypes.JSONType[domain.Comparison]        `gorm:"not null"`
	Notes              string                                       `gorm:"type:text;not null;default:''"`
	ContentHash        string                                       `gorm:"type:text;not null"`
	CreatedAt          time.Time                                    `gorm:"not null"`
	CreatedBy          string                                       `gorm:"type:text;not null"`
}

func (reportSnapshotRow) TableName() string { return "report_snapshots" }

func toSnapshotRow(s *domain.ReportSnapshot) reportSnapshotRow {
	return reportSnapshotRow{
		ID:                 s.ID,
		BusinessID:         s.BusinessID,
		Year:               s.Year,
		Month:              s.Month,
		Financials:         datatypes.NewJSONType(s.Financials),
		PreviousFinancials: datatypes.NewJSONType(s.PreviousFinancials),
		DailyBreakdown:     datatypes.NewJSONType(s.DailyBreakdown),
		Comparison:         datatypes.NewJSONType(s.Comparison),
		Notes:              s.Notes,
		ContentHash:        s.ContentHash,
		CreatedAt:          s.CreatedAt.UTC(),
		CreatedBy:          s.CreatedBy,
	}
}

func (r reportSnapshotRow) toDomain() domain.ReportSnapshot {
	return domain.ReportSnapshot{
		ID:                 r.ID,
		BusinessID:         r.BusinessID,
		Year:               r.Year,
		Month:              r.Month,
		Financials:         r.Financials.Data(),
		PreviousFinancials: r.PreviousFinancials.Data(),
		DailyBreakdown:     r.DailyBreakdown.Data(),
		Comparison:         r.Comparison.Data(),
		Notes:              r.Notes,
		ContentHash:        r.ContentHash,
		CreatedAt:          r.CreatedAt.UTC(),
		CreatedBy:          r.CreatedBy,
	}
}

// AutoMigrate creates the reporting tables from the row models. Postgres
// deployments use the SQL migrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Business{}, &transactionRecordRow{}, &reportSnapshotRow{})
}
