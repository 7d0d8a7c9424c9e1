// Package trend builds fixed-length bucketed revenue series ending at a
// reference date.
package trend

import (
	"time"

	"github.com/smallbiznis/loobook/internal/reporting/aggregate"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/filter"
	"github.com/smallbiznis/loobook/internal/reporting/period"
)

// MaxBuckets caps a series at one year of daily points.
const MaxBuckets = 366

type Request struct {
	Period        domain.Period
	BucketCount   int
	ReferenceDate time.Time
	TimeField     domain.TimeField
}

type Bucket struct {
	Label string
	Range domain.DateRange
}

func (r Request) Validate() error {
	switch r.Period {
	case domain.PeriodDaily, domain.PeriodWeekly, domain.PeriodMonthly:
	default:
		return domain.ErrInvalidPeriod
	}
	if r.BucketCount < 1 || r.BucketCount > MaxBuckets {
		return domain.ErrInvalidBucketCount
	}
	if r.ReferenceDate.IsZero() {
		return domain.ErrInvalidDateRange
	}
	return nil
}

// Buckets returns the bucket windows of req, oldest first. The last bucket
// always contains the reference date.
func Buckets(req Request) ([]Bucket, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n := req.BucketCount
	ref := req.ReferenceDate
	buckets := make([]Bucket, 0, n)
	for i := 0; i < n; i++ {
		back := n - 1 - i
		var bucket Bucket
		switch req.Period {
		case domain.PeriodDaily:
			start := period.StartOfDay(ref).AddDate(0, 0, -back)
			bucket = Bucket{
				Label: period.DayLabel(start),
				Range: domain.DateRange{Start: start, End: period.EndOfDay(start)},
			}
		case domain.PeriodWeekly:
			last := period.StartOfDay(ref).AddDate(0, 0, -7*back)
			start := last.AddDate(0, 0, -6)
			bucket = Bucket{
				Label: period.WeekLabel(start),
				Range: domain.DateRange{Start: start, End: period.EndOfDay(last)},
			}
		case domain.PeriodMonthly:
			start := period.StartOfMonth(ref).AddDate(0, -back, 0)
			bucket = Bucket{
				Label: period.MonthLabel(start),
				Range: domain.DateRange{Start: start, End: period.EndOfMonth(start)},
			}
		}
		buckets = append(buckets, bucket)
	}
	return buckets, nil
}

// Span is the range covered by all buckets of req, used to bound record fetches.
func Span(req Request) (domain.DateRange, error) {
	buckets, err := Buckets(req)
	if err != nil {
		return domain.DateRange{}, err
	}
	return domain.DateRange{
		Start: buckets[0].Range.Start,
		End:   buckets[len(buckets)-1].Range.End,
	}, nil
}

func Build(records []domain.TransactionRecord, req Request) (domain.Trend, error) {
	buckets, err := Buckets(req)
	if err != nil {
		return domain.Trend{}, err
	}

	span := domain.DateRange{Start: buckets[0].Range.Start, End: buckets[len(buckets)-1].Range.End}
	inSpan := filter.Filter(records, filter.Criteria{DateRange: &span, TimeField: req.TimeField})

	points := make([]domain.TrendPoint, 0, len(buckets))
	for _, bucket := range buckets {
		window := bucket.Range
		scoped := filter.Filter(inSpan, filter.Criteria{DateRange: &window, TimeField: req.TimeField})
		points = append(points, domain.TrendPoint{
			Label:      bucket.Label,
			Start:      window.Start,
			End:        window.End,
			Financials: aggregate.Aggregate(scoped),
		})
	}

	return domain.Trend{
		Period:        req.Period,
		ReferenceDate: req.ReferenceDate,
		Points:        points,
	}, nil
}
