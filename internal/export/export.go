// Package export renders stored reports and rankings as downloadable files.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"go.uber.org/fx"
)

const (
	ContentTypePDF = "application/pdf"
	ContentTypeCSV = "text/csv; charset=utf-8"
)

var Module = fx.Module("export",
	fx.Provide(New),
)

// Renderer turns report data into file payloads.
type Renderer interface {
	SnapshotPDF(ctx context.Context, snapshot *domain.ReportSnapshot, business *domain.Business) ([]byte, error)
	SnapshotCSV(ctx context.Context, w io.Writer, snapshot *domain.ReportSnapshot) error
	RankingCSV(ctx context.Context, w io.Writer, rows []domain.BusinessPerformanceRow) error
}

type renderer struct{}

func New() Renderer {
	return &renderer{}
}

// SnapshotFilename builds a download name such as "salon-ayu-2024-03.pdf".
func SnapshotFilename(businessName string, snapshot *domain.ReportSnapshot, ext string) string {
	base := slug.Make(strings.TrimSpace(businessName))
	if base == "" {
		base = "business-" + snapshot.BusinessID.String()
	}
	return fmt.Sprintf("%s-%04d-%02d.%s", base, snapshot.Year, snapshot.Month, strings.TrimPrefix(ext, "."))
}

// RankingFilename names a ranking export after its window.
func RankingFilename(window *domain.DateRange) string {
	if window == nil {
		return "business-rankings-all-time.csv"
	}
	name := slug.Make(fmt.Sprintf("business rankings %s %s",
		window.Start.Format(time.DateOnly),
		window.End.Format(time.DateOnly),
	))
	return name + ".csv"
}
