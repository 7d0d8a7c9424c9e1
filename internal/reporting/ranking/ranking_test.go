package ranking

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func rating(v float64) *float64 { return &v }

func record(business snowflake.ID, total int64, status domain.SettlementStatus, payment domain.PaymentStatus, r *float64) domain.TransactionRecord {
	return domain.TransactionRecord{
		BusinessID:    business,
		TotalFee:      decimal.NewFromInt(total),
		CreatedAt:     march,
		Status:        status,
		PaymentStatus: payment,
		Rating:        r,
	}
}

func fixture() ([]domain.Business, []domain.TransactionRecord) {
	businesses := []domain.Business{
		{ID: 30, Name: "Gamma"},
		{ID: 10, Name: "Alpha"},
		{ID: 20, Name: "Beta"},
		{ID: 40, Name: "Delta"},
	}
	records := []domain.TransactionRecord{
		record(10, 10, domain.StatusCompleted, domain.PaymentPaid, rating(5)),
		record(10, 10, domain.StatusPending, domain.PaymentUnpaid, rating(3)),
		record(20, 20, domain.StatusCompleted, domain.PaymentPaid, nil),
		record(30, 20, domain.StatusCancelled, domain.PaymentPaid, rating(4.5)),
		record(30, 0, domain.StatusPending, domain.PaymentUnpaid, nil),
		record(30, 0, domain.StatusPending, domain.PaymentUnpaid, nil),
	}
	return businesses, records
}

func businessIDs(rows []domain.BusinessPerformanceRow) []snowflake.ID {
	out := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.BusinessID)
	}
	return out
}

func TestRank_RowMetrics(t *testing.T) {
	businesses, records := fixture()

	result, err := Rank(businesses, records, domain.RankRequest{SortKey: domain.SortByTotalRevenue})
	require.NoError(t, err)
	require.Equal(t, 4, result.TotalCount)
	assert.Equal(t, DefaultPageSize, result.PageSize)

	byID := map[snowflake.ID]domain.BusinessPerformanceRow{}
	for _, row := range result.Rows {
		byID[row.BusinessID] = row
	}

	alpha := byID[10]
	assert.Equal(t, "10.00", money.Format(alpha.Financials.TotalRevenue))
	assert.Equal(t, int64(2), alpha.TotalBookings)
	assert.Equal(t, 50.0, alpha.CompletionRate)
	require.NotNil(t, alpha.AverageRating)
	assert.Equal(t, 4.0, *alpha.AverageRating)
	assert.Equal(t, int64(2), alpha.ReviewCount)

	gamma := byID[30]
	assert.Equal(t, int64(3), gamma.TotalBookings)
	assert.Equal(t, 0.0, gamma.CompletionRate)

	delta := byID[40]
	assert.Zero(t, delta.TotalBookings)
	assert.Nil(t, delta.AverageRating)
	assert.True(t, delta.Financials.TotalRevenue.IsZero())
}

func TestRank_TieBreakIsDeterministic(t *testing.T) {
	businesses, records := fixture()
	req := domain.RankRequest{SortKey: domain.SortByTotalRevenue, SortDirection: domain.SortDesc}

	first, err := Rank(businesses, records, req)
	require.NoError(t, err)
	second, err := Rank(businesses, records, req)
	require.NoError(t, err)

	// Beta and Gamma both have 20.00; lower id first.
	assert.Equal(t, []snowflake.ID{20, 30, 10, 40}, businessIDs(first.Rows))
	assert.Equal(t, businessIDs(first.Rows), businessIDs(second.Rows))

	asc, err := Rank(businesses, records, domain.RankRequest{SortKey: domain.SortByTotalRevenue, SortDirection: domain.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{40, 10, 20, 30}, businessIDs(asc.Rows))
}

func TestRank_UnratedSortsLowest(t *testing.T) {
	businesses, records := fixture()

	result, err := Rank(businesses, records, domain.RankRequest{SortKey: domain.SortByAverageRating})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{30, 10, 20, 40}, businessIDs(result.Rows))
}

func TestRank_Pagination(t *testing.T) {
	businesses, records := fixture()

	page, err := Rank(businesses, records, domain.RankRequest{SortKey: domain.SortByTotalBookings, Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, page.TotalCount)
	assert.Equal(t, []snowflake.ID{40}, businessIDs(page.Rows))

	past, err := Rank(businesses, records, domain.RankRequest{Page: 5, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, past.TotalCount)
	assert.NotNil(t, past.Rows)
	assert.Empty(t, past.Rows)
}

func TestRank_DateRangeScopesRecords(t *testing.T) {
	businesses, records := fixture()
	window := domain.DateRange{
		Start: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
	}

	result, err := Rank(businesses, records, domain.RankRequest{DateRange: &window})
	require.NoError(t, err)
	for _, row := range result.Rows {
		assert.Zero(t, row.TotalBookings)
	}
}

func TestRank_RejectsBeforeComputing(t *testing.T) {
	businesses, records := fixture()
	inverted := domain.DateRange{Start: march, End: march.Add(-time.Hour)}

	cases := []struct {
		name string
		req  domain.RankRequest
		want error
	}{
		{name: "unknown sort key", req: domain.RankRequest{SortKey: "popularity"}, want: domain.ErrInvalidSortKey},
		{name: "unknown direction", req: domain.RankRequest{SortDirection: "sideways"}, want: domain.ErrInvalidSortDirection},
		{name: "negative page", req: domain.RankRequest{Page: -1}, want: domain.ErrInvalidPage},
		{name: "negative page size", req: domain.RankRequest{PageSize: -5}, want: domain.ErrInvalidPageSize},
		{name: "page size too large", req: domain.RankRequest{PageSize: MaxPageSize + 1}, want: domain.ErrInvalidPageSize},
		{name: "inverted range", req: domain.RankRequest{DateRange: &inverted}, want: domain.ErrInvalidDateRange},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Rank(businesses, records, tc.req)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}
