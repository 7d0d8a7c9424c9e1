package reporting

import (
	"github.com/smallbiznis/loobook/internal/locker"
	"github.com/smallbiznis/loobook/internal/observability/metrics"
	"github.com/smallbiznis/loobook/internal/reporting/repository"
	"github.com/smallbiznis/loobook/internal/reporting/service"
	"github.com/smallbiznis/loobook/internal/reporting/snapshot"
	"go.uber.org/fx"
)

var Module = fx.Module("reporting",
	fx.Provide(repository.NewRecordStore),
	fx.Provide(repository.NewSnapshotRepository),
	fx.Provide(provideSnapshotLocker),
	fx.Provide(provideSnapshotObserver),
	fx.Provide(service.NewService),
	fx.Provide(snapshot.NewService),
)

// provideSnapshotLocker keeps a disabled locker as a nil interface so the
// snapshot service skips locking.
func provideSnapshotLocker(l *locker.Locker) snapshot.Locker {
	if l == nil {
		return nil
	}
	return l
}

func provideSnapshotObserver(m *metrics.ReportMetrics) snapshot.Observer {
	if m == nil {
		return nil
	}
	return m
}
