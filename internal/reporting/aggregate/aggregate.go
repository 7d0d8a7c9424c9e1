// Package aggregate reduces transaction records into revenue totals. It is the
// only place commission is derived; every other component calls into it.
package aggregate

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/money"
)

// DefaultServiceFee is the flat platform commission charged when a record
// carries no service fee of its own.
var DefaultServiceFee = decimal.RequireFromString("0.75")

type Options struct {
	// IncludePending fills AggregateSnapshot.PendingRevenue.
	IncludePending bool
}

func Aggregate(records []domain.TransactionRecord) domain.AggregateSnapshot {
	return AggregateWithOptions(records, Options{})
}

func AggregateWithOptions(records []domain.TransactionRecord, opts Options) domain.AggregateSnapshot {
	total := decimal.Zero
	commission := decimal.Zero
	pending := decimal.Zero
	var count int64

	for _, record := range records {
		if !record.IsPaidEquivalent() {
			if opts.IncludePending && record.IsPending() {
				pending = pending.Add(record.TotalFee)
			}
			continue
		}
		total = total.Add(record.TotalFee)
		commission = commission.Add(ServiceFee(record))
		count++
	}

	total = money.Round(total)
	commission = money.Round(commission)

	snapshot := domain.AggregateSnapshot{
		TotalRevenue:            total,
		PlatformCommission:      commission,
		BusinessRevenue:         total.Sub(commission),
		TransactionCount:        count,
		AverageTransactionValue: money.Divide(total, decimal.NewFromInt(count)),
	}
	if opts.IncludePending {
		pending = money.Round(pending)
		snapshot.PendingRevenue = &pending
	}
	return snapshot
}

// ServiceFee returns the commission retained on one record.
func ServiceFee(record domain.TransactionRecord) decimal.Decimal {
	if record.ServiceFee == nil {
		return DefaultServiceFee
	}
	return *record.ServiceFee
}

// Zero is the aggregate of an empty record set.
func Zero() domain.AggregateSnapshot {
	return Aggregate(nil)
}
