// Package filter selects the records relevant to one computation and owns the
// normalization of raw booking payloads into canonical records.
package filter

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
)

// Criteria narrows a record set. Zero-valued fields do not constrain.
type Criteria struct {
	DateRange       *domain.DateRange
	TimeField       domain.TimeField
	BusinessID      *snowflake.ID
	PaymentStatuses []domain.PaymentStatus
	Statuses        []domain.SettlementStatus
}

func (c Criteria) IsEmpty() bool {
	return c.DateRange == nil && c.BusinessID == nil && len(c.PaymentStatuses) == 0 && len(c.Statuses) == 0
}

// Filter returns the records matching c in input order.
func Filter(records []domain.TransactionRecord, c Criteria) []domain.TransactionRecord {
	if c.IsEmpty() {
		return records
	}
	out := make([]domain.TransactionRecord, 0, len(records))
	for _, record := range records {
		if Matches(record, c) {
			out = append(out, record)
		}
	}
	return out
}

func Matches(record domain.TransactionRecord, c Criteria) bool {
	if c.BusinessID != nil {
		if record.BusinessID == 0 || record.BusinessID != *c.BusinessID {
			return false
		}
	}
	if c.DateRange != nil {
		ts, ok := record.Timestamp(c.TimeField)
		if !ok || !c.DateRange.Contains(ts) {
			return false
		}
	}
	if len(c.PaymentStatuses) > 0 && !containsPayment(c.PaymentStatuses, record.PaymentStatus) {
		return false
	}
	if len(c.Statuses) > 0 && !containsStatus(c.Statuses, record.Status) {
		return false
	}
	return true
}

// GroupByBusiness partitions records by owner, keeping input order inside each
// group. Records without an owner are dropped.
func GroupByBusiness(records []domain.TransactionRecord) map[snowflake.ID][]domain.TransactionRecord {
	groups := make(map[snowflake.ID][]domain.TransactionRecord)
	for _, record := range records {
		if record.BusinessID == 0 {
			continue
		}
		groups[record.BusinessID] = append(groups[record.BusinessID], record)
	}
	return groups
}

func containsPayment(set []domain.PaymentStatus, value domain.PaymentStatus) bool {
	if value == "" {
		return false
	}
	for _, item := range set {
		if item == value {
			return true
		}
	}
	return false
}

func containsStatus(set []domain.SettlementStatus, value domain.SettlementStatus) bool {
	if value == "" {
		return false
	}
	for _, item := range set {
		if item == value {
			return true
		}
	}
	return false
}
