package export

import (
	"context"
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/loobook/internal/reporting/compare"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/money"
)

var (
	headerText = props.Text{Style: fontstyle.Bold, Size: 9}
	cellText   = props.Text{Size: 9}
	amountText = props.Text{Size: 9, Align: align.Right}
	amountHead = props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
)

func (r *renderer) SnapshotPDF(ctx context.Context, snapshot *domain.ReportSnapshot, business *domain.Business) ([]byte, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("export: nil snapshot")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	businessName := "Business " + snapshot.BusinessID.String()
	if business != nil && business.Name != "" {
		businessName = business.Name
	}

	m.AddRow(12,
		text.NewCol(12, "Monthly report", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New(businessName, props.Text{Style: fontstyle.Bold}),
			text.New(fmt.Sprintf("Period: %04d-%02d", snapshot.Year, snapshot.Month), props.Text{Top: 5}),
			text.New("Generated: "+snapshot.CreatedAt.UTC().Format("2006-01-02 15:04 MST"), props.Text{Top: 10}),
			text.New("Generated by: "+snapshot.CreatedBy, props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New("Report id: "+snapshot.ID.String(), props.Text{Size: 8, Align: align.Right}),
			text.New("Hash: "+snapshot.ContentHash, props.Text{Size: 6, Top: 5, Align: align.Right}),
		),
	)

	addSummary(m, snapshot)

	if snapshot.Notes != "" {
		m.AddRow(16,
			text.NewCol(12, "Notes: "+snapshot.Notes, props.Text{Size: 9, Top: 4}),
		)
	}

	m.AddRow(10,
		text.NewCol(3, "Day", headerText),
		text.NewCol(2, "Bookings", amountHead),
		text.NewCol(2, "Revenue", amountHead),
		text.NewCol(3, "Commission", amountHead),
		text.NewCol(2, "Net", amountHead),
	)
	for _, point := range snapshot.DailyBreakdown {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := point.Financials
		m.AddRow(6,
			text.NewCol(3, point.Label, cellText),
			text.NewCol(2, strconv.FormatInt(f.TransactionCount, 10), amountText),
			text.NewCol(2, money.Format(f.TotalRevenue), amountText),
			text.NewCol(3, money.Format(f.PlatformCommission), amountText),
			text.NewCol(2, money.Format(f.BusinessRevenue), amountText),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func addSummary(m core.Maroto, snapshot *domain.ReportSnapshot) {
	current := snapshot.Financials
	previous := snapshot.PreviousFinancials
	cmp := snapshot.Comparison

	m.AddRow(10,
		text.NewCol(4, "Summary", props.Text{Size: 12, Style: fontstyle.Bold, Top: 2}),
		text.NewCol(3, "This month", amountHead),
		text.NewCol(3, "Last month", amountHead),
		text.NewCol(2, "Growth", amountHead),
	)

	lines := []struct {
		label    string
		current  string
		previous string
		growth   float64
	}{
		{"Total revenue", money.Format(current.TotalRevenue), money.Format(previous.TotalRevenue), cmp.RevenueGrowthPct},
		{"Platform commission", money.Format(current.PlatformCommission), money.Format(previous.PlatformCommission), cmp.CommissionGrowthPct},
		{"Business revenue", money.Format(current.BusinessRevenue), money.Format(previous.BusinessRevenue), compare.Growth(current.BusinessRevenue, previous.BusinessRevenue)},
		{"Transactions", strconv.FormatInt(current.TransactionCount, 10), strconv.FormatInt(previous.TransactionCount, 10), cmp.BookingsGrowthPct},
		{"Average value", money.Format(current.AverageTransactionValue), money.Format(previous.AverageTransactionValue), cmp.AverageValueGrowthPct},
	}
	for _, line := range lines {
		m.AddRow(7,
			text.NewCol(4, line.label, cellText),
			text.NewCol(3, line.current, amountText),
			text.NewCol(3, line.previous, amountText),
			text.NewCol(2, fmt.Sprintf("%+.2f%%", line.growth), amountText),
		)
	}
}
