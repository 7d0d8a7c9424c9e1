package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/money"
)

var rankingHeader = []string{
	"rank",
	"business_id",
	"business_name",
	"business_type",
	"total_revenue",
	"platform_commission",
	"business_revenue",
	"transaction_count",
	"average_transaction_value",
	"total_bookings",
	"completed_count",
	"completion_rate",
	"average_rating",
	"review_count",
}

var snapshotHeader = []string{
	"label",
	"start",
	"end",
	"total_revenue",
	"platform_commission",
	"business_revenue",
	"transaction_count",
	"average_transaction_value",
}

func (r *renderer) RankingCSV(ctx context.Context, w io.Writer, rows []domain.BusinessPerformanceRow) error {
	out := csv.NewWriter(w)
	if err := out.Write(rankingHeader); err != nil {
		return err
	}
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		rating := ""
		if row.AverageRating != nil {
			rating = strconv.FormatFloat(*row.AverageRating, 'f', 2, 64)
		}
		record := []string{
			strconv.Itoa(i + 1),
			row.BusinessID.String(),
			row.BusinessName,
			row.BusinessType,
			money.Format(row.Financials.TotalRevenue),
			money.Format(row.Financials.PlatformCommission),
			money.Format(row.Financials.BusinessRevenue),
			strconv.FormatInt(row.Financials.TransactionCount, 10),
			money.Format(row.Financials.AverageTransactionValue),
			strconv.FormatInt(row.TotalBookings, 10),
			strconv.FormatInt(row.CompletedCount, 10),
			strconv.FormatFloat(row.CompletionRate, 'f', 2, 64),
			rating,
			strconv.FormatInt(row.ReviewCount, 10),
		}
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

// SnapshotCSV writes the daily breakdown followed by a "total" line for the
// month and a "previous" line for the month before.
func (r *renderer) SnapshotCSV(ctx context.Context, w io.Writer, snapshot *domain.ReportSnapshot) error {
	out := csv.NewWriter(w)
	if err := out.Write(snapshotHeader); err != nil {
		return err
	}
	for _, point := range snapshot.DailyBreakdown {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := out.Write(financialLine(point.Label, point.Start.Format(dateLayout), point.End.Format(dateLayout), point.Financials)); err != nil {
			return err
		}
	}
	if err := out.Write(financialLine("total", "", "", snapshot.Financials)); err != nil {
		return err
	}
	if err := out.Write(financialLine("previous", "", "", snapshot.PreviousFinancials)); err != nil {
		return err
	}
	out.Flush()
	return out.Error()
}

const dateLayout = "2006-01-02"

func financialLine(label, start, end string, f domain.AggregateSnapshot) []string {
	return []string{
		label,
		start,
		end,
		money.Format(f.TotalRevenue),
		money.Format(f.PlatformCommission),
		money.Format(f.BusinessRevenue),
		strconv.FormatInt(f.TransactionCount, 10),
		money.Format(f.AverageTransactionValue),
	}
}
