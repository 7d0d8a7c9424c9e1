// Package ranking computes per-business performance rows and orders them into
// a deterministic, paginated view.
package ranking

import (
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/loobook/internal/reporting/aggregate"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/filter"
	"github.com/smallbiznis/loobook/internal/reporting/money"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 250
)

// ParseSortKey accepts the sort keys exposed by the rankings endpoint.
func ParseSortKey(raw string) (domain.SortKey, error) {
	key := domain.SortKey(raw)
	if key == "" {
		return domain.SortByTotalRevenue, nil
	}
	if _, ok := comparators[key]; !ok {
		return "", domain.ErrInvalidSortKey
	}
	return key, nil
}

func ParseSortDirection(raw string) (domain.SortDirection, error) {
	switch domain.SortDirection(raw) {
	case "", domain.SortDesc:
		return domain.SortDesc, nil
	case domain.SortAsc:
		return domain.SortAsc, nil
	default:
		return "", domain.ErrInvalidSortDirection
	}
}

// Normalize validates req and fills defaults. It never computes anything.
func Normalize(req domain.RankRequest) (domain.RankRequest, error) {
	if req.SortKey == "" {
		req.SortKey = domain.SortByTotalRevenue
	}
	if _, ok := comparators[req.SortKey]; !ok {
		return req, domain.ErrInvalidSortKey
	}
	direction, err := ParseSortDirection(string(req.SortDirection))
	if err != nil {
		return req, err
	}
	req.SortDirection = direction
	if req.Page < 0 {
		return req, domain.ErrInvalidPage
	}
	if req.PageSize < 0 || req.PageSize > MaxPageSize {
		return req, domain.ErrInvalidPageSize
	}
	if req.PageSize == 0 {
		req.PageSize = DefaultPageSize
	}
	if req.DateRange != nil {
		if err := req.DateRange.Validate(); err != nil {
			return req, err
		}
	}
	return req, nil
}

// Rank builds one row per business, sorts, and returns the requested page.
func Rank(businesses []domain.Business, records []domain.TransactionRecord, req domain.RankRequest) (domain.RankResult, error) {
	req, err := Normalize(req)
	if err != nil {
		return domain.RankResult{}, err
	}

	rows := Rows(businesses, records, req.DateRange, req.TimeField)
	Sort(rows, req.SortKey, req.SortDirection)

	result := domain.RankResult{
		TotalCount: len(rows),
		Page:       req.Page,
		PageSize:   req.PageSize,
		Rows:       []domain.BusinessPerformanceRow{},
	}
	start := req.Page * req.PageSize
	if start >= len(rows) {
		return result, nil
	}
	end := start + req.PageSize
	if end > len(rows) {
		end = len(rows)
	}
	result.Rows = rows[start:end]
	return result, nil
}

// Rows computes the unsorted performance rows, one per business in input order.
func Rows(businesses []domain.Business, records []domain.TransactionRecord, window *domain.DateRange, field domain.TimeField) []domain.BusinessPerformanceRow {
	scoped := filter.Filter(records, filter.Criteria{DateRange: window, TimeField: field})
	grouped := filter.GroupByBusiness(scoped)

	rows := make([]domain.BusinessPerformanceRow, 0, len(businesses))
	for _, business := range businesses {
		rows = append(rows, buildRow(business, grouped[business.ID]))
	}
	return rows
}

func buildRow(business domain.Business, records []domain.TransactionRecord) domain.BusinessPerformanceRow {
	row := domain.BusinessPerformanceRow{
		BusinessID:    business.ID,
		BusinessName:  business.Name,
		BusinessType:  business.Type,
		Financials:    aggregate.Aggregate(records),
		TotalBookings: int64(len(records)),
	}

	ratingSum := 0.0
	for _, record := range records {
		if record.Status == domain.StatusCompleted {
			row.CompletedCount++
		}
		if record.Rating != nil {
			ratingSum += *record.Rating
			row.ReviewCount++
		}
	}

	if row.TotalBookings > 0 {
		row.CompletionRate = money.Percent(decimal.NewFromInt(row.CompletedCount), decimal.NewFromInt(row.TotalBookings))
	}
	if row.ReviewCount > 0 {
		avg := money.RoundFloat(ratingSum / float64(row.ReviewCount))
		row.AverageRating = &avg
	}
	return row
}

// comparator returns <0, 0 or >0 in ascending order.
type comparator func(a, b domain.BusinessPerformanceRow) int

var comparators = map[domain.SortKey]comparator{
	domain.SortByTotalRevenue: func(a, b domain.BusinessPerformanceRow) int {
		return a.Financials.TotalRevenue.Cmp(b.Financials.TotalRevenue)
	},
	domain.SortByPlatformCommission: func(a, b domain.BusinessPerformanceRow) int {
		return a.Financials.PlatformCommission.Cmp(b.Financials.PlatformCommission)
	},
	domain.SortByBusinessRevenue: func(a, b domain.BusinessPerformanceRow) int {
		return a.Financials.BusinessRevenue.Cmp(b.Financials.BusinessRevenue)
	},
	domain.SortByTransactionCount: func(a, b domain.BusinessPerformanceRow) int {
		return compareInt(a.Financials.TransactionCount, b.Financials.TransactionCount)
	},
	domain.SortByAverageTransactionValue: func(a, b domain.BusinessPerformanceRow) int {
		return a.Financials.AverageTransactionValue.Cmp(b.Financials.AverageTransactionValue)
	},
	domain.SortByTotalBookings: func(a, b domain.BusinessPerformanceRow) int {
		return compareInt(a.TotalBookings, b.TotalBookings)
	},
	domain.SortByCompletionRate: func(a, b domain.BusinessPerformanceRow) int {
		return compareFloat(a.CompletionRate, b.CompletionRate)
	},
	domain.SortByAverageRating: func(a, b domain.BusinessPerformanceRow) int {
		switch {
		case a.AverageRating == nil && b.AverageRating == nil:
			return 0
		case a.AverageRating == nil:
			return -1
		case b.AverageRating == nil:
			return 1
		}
		return compareFloat(*a.AverageRating, *b.AverageRating)
	},
	domain.SortByReviewCount: func(a, b domain.BusinessPerformanceRow) int {
		return compareInt(a.ReviewCount, b.ReviewCount)
	},
}

// Sort orders rows in place. Equal keys fall back to ascending business id so
// the order is total regardless of direction.
func Sort(rows []domain.BusinessPerformanceRow, key domain.SortKey, direction domain.SortDirection) {
	cmp, ok := comparators[key]
	if !ok {
		cmp = comparators[domain.SortByTotalRevenue]
	}
	sort.SliceStable(rows, func(i, j int) bool {
		c := cmp(rows[i], rows[j])
		if direction != domain.SortAsc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return lessID(rows[i].BusinessID, rows[j].BusinessID)
	})
}

func lessID(a, b snowflake.ID) bool {
	return a.Int64() < b.Int64()
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
