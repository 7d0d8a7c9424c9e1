package tracing

import (
	"path"
	"strings"
)

const reportRoutePrefix = "/admin/reports/"

// Route describes a matched gin route in reporting terms. Report is the
// first path segment under /admin/reports (aggregate, snapshots, ...) and
// Format is the export file type for download routes.
type Route struct {
	Pattern string
	Report  string
	Format  string
}

func DescribeRoute(pattern string) Route {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return Route{Pattern: "unknown"}
	}
	route := Route{Pattern: pattern}
	rest, ok := strings.CutPrefix(pattern, reportRoutePrefix)
	if !ok {
		return route
	}
	route.Report, _, _ = strings.Cut(rest, "/")
	if base := path.Base(rest); strings.HasPrefix(base, "export.") {
		route.Format = strings.TrimPrefix(path.Ext(base), ".")
	}
	return route
}

// Probe reports whether the route is a health or metrics scrape.
func (r Route) Probe() bool {
	return r.Pattern == "/health" || r.Pattern == "/metrics"
}
