package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type SettlementStatus string

const (
	StatusPending   SettlementStatus = "pending"
	StatusCompleted SettlementStatus = "completed"
	StatusCancelled SettlementStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case PaymentUnpaid:
		return PaymentUnpaid, nil
	case PaymentPaid:
		return PaymentPaid, nil
	case PaymentRefunded:
		return PaymentRefunded, nil
	default:
		return "", ErrInvalidPaymentStatus
	}
}

// TimeField selects which record timestamp a date range applies to.
type TimeField string

const (
	TimeFieldCreatedAt    TimeField = "created_at"
	TimeFieldBookingStart TimeField = "booking_start"
)

func ParseTimeField(raw string) (TimeField, error) {
	switch TimeField(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return "", nil
	case TimeFieldCreatedAt:
		return TimeFieldCreatedAt, nil
	case TimeFieldBookingStart:
		return TimeFieldBookingStart, nil
	default:
		return "", ErrInvalidTimeField
	}
}

// TransactionRecord is the canonical booking/payment record every component reads.
type TransactionRecord struct {
	ID            snowflake.ID
	BusinessID    snowflake.ID
	TotalFee      decimal.Decimal
	ServiceFee    *decimal.Decimal
	CreatedAt     time.Time
	BookingStart  *time.Time
	Status        SettlementStatus
	PaymentStatus PaymentStatus
	Rating        *float64
}

// IsPaidEquivalent is the only revenue eligibility rule.
func (r TransactionRecord) IsPaidEquivalent() bool {
	return r.PaymentStatus == PaymentPaid || r.Status == StatusCompleted
}

// IsPending reports an open booking that may still turn into revenue.
func (r TransactionRecord) IsPending() bool {
	if r.IsPaidEquivalent() {
		return false
	}
	return r.Status != StatusCancelled && r.PaymentStatus != PaymentRefunded
}

// Timestamp returns the record time used for range matching.
func (r TransactionRecord) Timestamp(field TimeField) (time.Time, bool) {
	switch field {
	case TimeFieldBookingStart:
		if r.BookingStart == nil || r.BookingStart.IsZero() {
			return time.Time{}, false
		}
		return *r.BookingStart, true
	default:
		if r.CreatedAt.IsZero() {
			return time.Time{}, false
		}
		return r.CreatedAt, true
	}
}

type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalRejected  ApprovalStatus = "rejected"
	ApprovalSuspended ApprovalStatus = "suspended"
)

func ParseApprovalStatus(raw string) (ApprovalStatus, error) {
	switch ApprovalStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ApprovalPending:
		return ApprovalPending, nil
	case ApprovalApproved:
		return ApprovalApproved, nil
	case ApprovalRejected:
		return ApprovalRejected, nil
	case ApprovalSuspended:
		return ApprovalSuspended, nil
	default:
		return "", ErrInvalidApproval
	}
}

// Business is a booking owner that revenue is attributed to.
type Business struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"type:text;not null" json:"name"`
	Type           string         `gorm:"type:text;not null" json:"type"`
	ApprovalStatus ApprovalStatus `gorm:"column:approval_status;type:text;not null" json:"approval_status"`
	IsActive       bool           `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (Business) TableName() string { return "businesses" }

func (b Business) Active() bool {
	return b.IsActive && b.ApprovalStatus == ApprovalApproved
}

// DateRange is an inclusive time window.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || r.Start.After(r.End) {
		return ErrInvalidDateRange
	}
	return nil
}

func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

type AggregateSnapshot struct {
	TotalRevenue            decimal.Decimal  `json:"total_revenue"`
	PlatformCommission      decimal.Decimal  `json:"platform_commission"`
	BusinessRevenue         decimal.Decimal  `json:"business_revenue"`
	TransactionCount        int64            `json:"transaction_count"`
	AverageTransactionValue decimal.Decimal  `json:"average_transaction_value"`
	PendingRevenue          *decimal.Decimal `json:"pending_revenue,omitempty"`
}

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

func ParsePeriod(raw string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(raw))) {
	case PeriodDaily:
		return PeriodDaily, nil
	case PeriodWeekly:
		return PeriodWeekly, nil
	case PeriodMonthly:
		return PeriodMonthly, nil
	default:
		return "", ErrInvalidPeriod
	}
}

type TrendPoint struct {
	Label      string            `json:"label"`
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
	Financials AggregateSnapshot `json:"financials"`
}

type Trend struct {
	Period        Period       `json:"period"`
	ReferenceDate time.Time    `json:"reference_date"`
	Points        []TrendPoint `json:"points"`
}

type SortKey string

const (
	SortByTotalRevenue            SortKey = "total_revenue"
	SortByPlatformCommission      SortKey = "platform_commission"
	SortByBusinessRevenue         SortKey = "business_revenue"
	SortByTransactionCount        SortKey = "transaction_count"
	SortByAverageTransactionValue SortKey = "average_transaction_value"
	SortByTotalBookings           SortKey = "total_bookings"
	SortByCompletionRate          SortKey = "completion_rate"
	SortByAverageRating           SortKey = "average_rating"
	SortByReviewCount             SortKey = "review_count"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type BusinessPerformanceRow struct {
	BusinessID     snowflake.ID      `json:"business_id"`
	BusinessName   string            `json:"business_name"`
	BusinessType   string            `json:"business_type"`
	Financials     AggregateSnapshot `json:"financials"`
	TotalBookings  int64             `json:"total_bookings"`
	CompletedCount int64             `json:"completed_count"`
	CompletionRate float64           `json:"completion_rate"`
	AverageRating  *float64          `json:"average_rating,omitempty"`
	ReviewCount    int64             `json:"review_count"`
}

type RankResult struct {
	Rows       []BusinessPerformanceRow `json:"rows"`
	TotalCount int                      `json:"total_count"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
}

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

type ComparisonDirections struct {
	Revenue      Direction `json:"revenue"`
	Commission   Direction `json:"commission"`
	Bookings     Direction `json:"bookings"`
	AverageValue Direction `json:"average_value"`
}

type Comparison struct {
	RevenueGrowthPct      float64              `json:"revenue_growth_pct"`
	CommissionGrowthPct   float64              `json:"commission_growth_pct"`
	BookingsGrowthPct     float64              `json:"bookings_growth_pct"`
	AverageValueGrowthPct float64              `json:"average_value_growth_pct"`
	Directions            ComparisonDirections `json:"directions"`
}

// ReportSnapshot is the stored monthly report of one business.
type ReportSnapshot struct {
	ID                 snowflake.ID      `json:"id"`
	BusinessID         snowflake.ID      `json:"business_id"`
	Year               int               `json:"year"`
	Month              int               `json:"month"`
	Financials         AggregateSnapshot `json:"financials"`
	PreviousFinancials AggregateSnapshot `json:"previous_financials"`
	DailyBreakdown     []TrendPoint      `json:"daily_breakdown"`
	Comparison         Comparison        `json:"comparison"`
	Notes              string            `json:"notes"`
	ContentHash        string            `json:"content_hash"`
	CreatedAt          time.Time         `json:"created_at"`
	CreatedBy          string            `json:"created_by"`
}

type BulkFailure struct {
	BusinessID snowflake.ID `json:"business_id"`
	Error      string       `json:"error"`
}

type BulkResult struct {
	Year      int            `json:"year"`
	Month     int            `json:"month"`
	Succeeded []snowflake.ID `json:"succeeded"`
	Skipped   []snowflake.ID `json:"skipped"`
	Failed    []BulkFailure  `json:"failed"`
}
