// Package compare computes period-over-period growth between two aggregates.
package compare

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/money"
	"github.com/smallbiznis/loobook/internal/reporting/period"
)

var hundred = decimal.NewFromInt(100)

func Compare(current, previous domain.AggregateSnapshot) domain.Comparison {
	out := domain.Comparison{
		RevenueGrowthPct:      Growth(current.TotalRevenue, previous.TotalRevenue),
		CommissionGrowthPct:   Growth(current.PlatformCommission, previous.PlatformCommission),
		BookingsGrowthPct:     Growth(decimal.NewFromInt(current.TransactionCount), decimal.NewFromInt(previous.TransactionCount)),
		AverageValueGrowthPct: Growth(current.AverageTransactionValue, previous.AverageTransactionValue),
	}
	out.Directions = domain.ComparisonDirections{
		Revenue:      DirectionOf(out.RevenueGrowthPct),
		Commission:   DirectionOf(out.CommissionGrowthPct),
		Bookings:     DirectionOf(out.BookingsGrowthPct),
		AverageValue: DirectionOf(out.AverageValueGrowthPct),
	}
	return out
}

// Growth returns the percentage change from previous to current. Growth from
// zero is +100 when current is positive and 0 otherwise.
func Growth(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		if current.IsPositive() {
			return 100
		}
		return 0
	}
	pct := current.Sub(previous).Mul(hundred).DivRound(previous, money.Scale+4)
	return money.ToFloat(pct)
}

func DirectionOf(growth float64) domain.Direction {
	switch {
	case growth > 0:
		return domain.DirectionUp
	case growth < 0:
		return domain.DirectionDown
	default:
		return domain.DirectionFlat
	}
}

// PreviousRange returns the window of equal length that ends right before r.
func PreviousRange(r domain.DateRange) domain.DateRange {
	return period.ShiftBack(r)
}
