package reportmetrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"gorm.io/gorm"
)

// Inventory exposes stored report and business counts as gauges.
type Inventory struct {
	businessesActive prometheus.Gauge
	snapshotsStored  prometheus.Gauge
}

func NewInventory(registerer prometheus.Registerer) *Inventory {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	inv := &Inventory{
		businessesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loobook_businesses_active",
			Help: "Businesses that are active and approved.",
		}),
		snapshotsStored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "loobook_report_snapshots_stored",
			Help: "Report snapshots currently stored.",
		}),
	}
	registerer.MustRegister(inv.businessesActive, inv.snapshotsStored)
	return inv
}

// Refresh re-counts businesses and snapshots. Count failures leave the
// previous gauge values untouched.
func (i *Inventory) Refresh(ctx context.Context, db *gorm.DB) error {
	if i == nil || db == nil {
		return nil
	}
	var active int64
	if err := db.WithContext(ctx).Table("businesses").
		Where("is_active = ? AND approval_status = ?", true, domain.ApprovalApproved).
		Count(&active).Error; err != nil {
		return err
	}
	var stored int64
	if err := db.WithContext(ctx).Table("report_snapshots").Count(&stored).Error; err != nil {
		return err
	}
	i.businessesActive.Set(float64(active))
	i.snapshotsStored.Set(float64(stored))
	return nil
}
