package trend

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidAt(ts time.Time, total int64) domain.TransactionRecord {
	return domain.TransactionRecord{
		TotalFee:      decimal.NewFromInt(total),
		CreatedAt:     ts,
		PaymentStatus: domain.PaymentPaid,
	}
}

func TestBuild_DailyCompleteness(t *testing.T) {
	ref := time.Date(2024, time.March, 15, 13, 45, 0, 0, time.UTC)

	trend, err := Build(nil, Request{Period: domain.PeriodDaily, BucketCount: 30, ReferenceDate: ref})
	require.NoError(t, err)
	require.Len(t, trend.Points, 30)

	last := trend.Points[29]
	assert.Equal(t, "2024-03-15", last.Label)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), last.Start)
	assert.Equal(t, time.Date(2024, time.March, 15, 23, 59, 59, 999999999, time.UTC), last.End)
	assert.Equal(t, "2024-02-15", trend.Points[0].Label)

	for _, point := range trend.Points {
		assert.True(t, point.Financials.TotalRevenue.IsZero())
		assert.Zero(t, point.Financials.TransactionCount)
	}
}

func TestBuild_DailyAssignsRecords(t *testing.T) {
	ref := time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)
	records := []domain.TransactionRecord{
		paidAt(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), 5),
		paidAt(time.Date(2024, time.March, 1, 23, 59, 59, 0, time.UTC), 7),
		paidAt(time.Date(2024, time.March, 3, 12, 0, 0, 0, time.UTC), 3),
		paidAt(time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), 100),
	}

	trend, err := Build(records, Request{Period: domain.PeriodDaily, BucketCount: 3, ReferenceDate: ref})
	require.NoError(t, err)
	require.Len(t, trend.Points, 3)

	assert.Equal(t, "12.00", money.Format(trend.Points[0].Financials.TotalRevenue))
	assert.Equal(t, int64(2), trend.Points[0].Financials.TransactionCount)
	assert.True(t, trend.Points[1].Financials.TotalRevenue.IsZero())
	assert.Equal(t, "3.00", money.Format(trend.Points[2].Financials.TotalRevenue))
}

func TestBuild_WeeklyWindows(t *testing.T) {
	ref := time.Date(2024, time.January, 14, 9, 0, 0, 0, time.UTC)

	buckets, err := Buckets(Request{Period: domain.PeriodWeekly, BucketCount: 2, ReferenceDate: ref})
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	assert.Equal(t, time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC), buckets[1].Range.Start)
	assert.Equal(t, time.Date(2024, time.January, 14, 23, 59, 59, 999999999, time.UTC), buckets[1].Range.End)
	assert.Equal(t, "2024-W02", buckets[1].Label)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), buckets[0].Range.Start)
	assert.Equal(t, "2024-W01", buckets[0].Label)
}

func TestBuild_MonthlyIgnoresDayOfMonth(t *testing.T) {
	ref := time.Date(2024, time.March, 31, 8, 0, 0, 0, time.UTC)
	records := []domain.TransactionRecord{
		paidAt(time.Date(2024, time.February, 29, 23, 0, 0, 0, time.UTC), 10),
		paidAt(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), 4),
	}

	trend, err := Build(records, Request{Period: domain.PeriodMonthly, BucketCount: 3, ReferenceDate: ref})
	require.NoError(t, err)

	labels := []string{trend.Points[0].Label, trend.Points[1].Label, trend.Points[2].Label}
	assert.Equal(t, []string{"2024-01", "2024-02", "2024-03"}, labels)
	assert.Equal(t, time.Date(2024, time.February, 29, 23, 59, 59, 999999999, time.UTC), trend.Points[1].End)
	assert.Equal(t, "4.00", money.Format(trend.Points[0].Financials.TotalRevenue))
	assert.Equal(t, "10.00", money.Format(trend.Points[1].Financials.TotalRevenue))
}

func TestBuild_RejectsInvalidRequests(t *testing.T) {
	ref := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	_, err := Build(nil, Request{Period: "hourly", BucketCount: 3, ReferenceDate: ref})
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)

	_, err = Build(nil, Request{Period: domain.PeriodDaily, BucketCount: 0, ReferenceDate: ref})
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = Build(nil, Request{Period: domain.PeriodDaily, BucketCount: MaxBuckets + 1, ReferenceDate: ref})
	assert.ErrorIs(t, err, domain.ErrInvalidBucketCount)
}

func TestSpan(t *testing.T) {
	ref := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	span, err := Span(Request{Period: domain.PeriodDaily, BucketCount: 7, ReferenceDate: ref})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 9, 0, 0, 0, 0, time.UTC), span.Start)
	assert.Equal(t, time.Date(2024, time.March, 15, 23, 59, 59, 999999999, time.UTC), span.End)
}
