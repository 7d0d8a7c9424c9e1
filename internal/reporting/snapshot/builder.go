// Package snapshot assembles and persists monthly business reports.
package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/internal/reporting/aggregate"
	"github.com/smallbiznis/loobook/internal/reporting/compare"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/filter"
	"github.com/smallbiznis/loobook/internal/reporting/period"
	"github.com/smallbiznis/loobook/internal/reporting/trend"
	"golang.org/x/crypto/blake2b"
)

// Input carries everything Build needs. Records may span more than the
// reported month; only the month and the month before it are used.
type Input struct {
	ID         snowflake.ID
	BusinessID snowflake.ID
	Year       int
	Month      int
	Records    []domain.TransactionRecord
	TimeField  domain.TimeField
	Location   *time.Location
	Notes      string
	CreatedBy  string
	CreatedAt  time.Time
}

// FetchRange returns the window of records Build reads for a month: the
// previous month through the end of the reported month.
func FetchRange(year, month int, loc *time.Location) (domain.DateRange, error) {
	current, err := period.MonthRange(year, month, loc)
	if err != nil {
		return domain.DateRange{}, err
	}
	py, pm := period.PreviousMonth(year, month)
	previous, err := period.MonthRange(py, pm, loc)
	if err != nil {
		return domain.DateRange{}, err
	}
	return domain.DateRange{Start: previous.Start, End: current.End}, nil
}

func Build(in Input) (*domain.ReportSnapshot, error) {
	current, err := period.MonthRange(in.Year, in.Month, in.Location)
	if err != nil {
		return nil, err
	}
	py, pm := period.PreviousMonth(in.Year, in.Month)
	previous, err := period.MonthRange(py, pm, in.Location)
	if err != nil {
		return nil, err
	}

	owner := in.BusinessID
	owned := filter.Filter(in.Records, filter.Criteria{BusinessID: &owner})

	currentRecords := filter.Filter(owned, filter.Criteria{DateRange: &current, TimeField: in.TimeField})
	previousRecords := filter.Filter(owned, filter.Criteria{DateRange: &previous, TimeField: in.TimeField})

	daily, err := trend.Build(currentRecords, trend.Request{
		Period:        domain.PeriodDaily,
		BucketCount:   period.DaysInMonth(in.Year, time.Month(in.Month)),
		ReferenceDate: current.End,
		TimeField:     in.TimeField,
	})
	if err != nil {
		return nil, err
	}

	financials := aggregate.Aggregate(currentRecords)
	previousFinancials := aggregate.Aggregate(previousRecords)

	snapshot := &domain.ReportSnapshot{
		ID:                 in.ID,
		BusinessID:         in.BusinessID,
		Year:               in.Year,
		Month:              in.Month,
		Financials:         financials,
		PreviousFinancials: previousFinancials,
		DailyBreakdown:     daily.Points,
		Comparison:         compare.Compare(financials, previousFinancials),
		Notes:              in.Notes,
		CreatedAt:          in.CreatedAt,
		CreatedBy:          in.CreatedBy,
	}
	hash, err := ContentHash(snapshot)
	if err != nil {
		return nil, err
	}
	snapshot.ContentHash = hash
	return snapshot, nil
}

// ContentHash fingerprints the computed figures of a snapshot. Identity,
// notes and creation metadata are excluded so regenerated reports over the
// same records hash equally.
func ContentHash(s *domain.ReportSnapshot) (string, error) {
	payload, err := json.Marshal(struct {
		BusinessID         snowflake.ID             `json:"business_id"`
		Year               int                      `json:"year"`
		Month              int                      `json:"month"`
		Financials         domain.AggregateSnapshot `json:"financials"`
		PreviousFinancials domain.AggregateSnapshot `json:"previous_financials"`
		DailyBreakdown     []domain.TrendPoint      `json:"daily_breakdown"`
		Comparison         domain.Comparison        `json:"comparison"`
	}{
		BusinessID:         s.BusinessID,
		Year:               s.Year,
		Month:              s.Month,
		Financials:         s.Financials,
		PreviousFinancials: s.PreviousFinancials,
		DailyBreakdown:     s.DailyBreakdown,
		Comparison:         s.Comparison,
	})
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
