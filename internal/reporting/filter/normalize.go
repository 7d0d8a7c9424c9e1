package filter

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/money"
)

// Field names seen in exported booking payloads, most specific first.
var (
	idFields            = []string{"id", "bookingId", "booking_id", "_id"}
	businessFields      = []string{"businessId", "business_id", "ownerId", "owner_id", "business.id"}
	totalFeeFields      = []string{"totalFee", "total_fee", "totalAmount", "total_amount", "amount", "payment.amount"}
	serviceFeeFields    = []string{"serviceFee", "service_fee", "commission", "platformFee", "platform_fee"}
	createdAtFields     = []string{"createdAt", "created_at", "timestamp", "bookedAt"}
	bookingStartFields  = []string{"bookingStart", "booking_start", "startTime", "start_time", "date"}
	statusFields        = []string{"status", "bookingStatus", "booking_status"}
	paymentStatusFields = []string{"paymentStatus", "payment_status", "payment.status"}
	ratingFields        = []string{"rating", "review.rating", "reviewRating"}
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize maps a raw payload to the canonical record. It never fails:
// unreadable optional fields are left absent and an unreadable totalFee is zero.
func Normalize(raw domain.RawRecord) domain.TransactionRecord {
	record := domain.TransactionRecord{
		ID:            parseID(lookup(raw, idFields)),
		BusinessID:    parseID(lookup(raw, businessFields)),
		Status:        normalizeStatus(lookup(raw, statusFields)),
		PaymentStatus: normalizePaymentStatus(lookup(raw, paymentStatusFields)),
	}

	if fee, ok := money.Parse(lookup(raw, totalFeeFields)); ok {
		record.TotalFee = fee
	} else {
		record.TotalFee = decimal.Zero
	}
	if fee, ok := money.Parse(lookup(raw, serviceFeeFields)); ok && !fee.IsNegative() {
		record.ServiceFee = &fee
	}
	if ts, ok := parseTime(lookup(raw, createdAtFields)); ok {
		record.CreatedAt = ts
	}
	if ts, ok := parseTime(lookup(raw, bookingStartFields)); ok {
		record.BookingStart = &ts
	}
	if rating, ok := parseRating(lookup(raw, ratingFields)); ok {
		record.Rating = &rating
	}
	return record
}

func NormalizeAll(raws []domain.RawRecord) []domain.TransactionRecord {
	out := make([]domain.TransactionRecord, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw))
	}
	return out
}

func lookup(raw map[string]any, names []string) any {
	for _, name := range names {
		if value, ok := lookupPath(raw, name); ok && value != nil {
			return value
		}
	}
	return nil
}

func lookupPath(raw map[string]any, path string) (any, bool) {
	if raw == nil {
		return nil, false
	}
	if value, ok := raw[path]; ok {
		return value, true
	}
	head, rest, nested := strings.Cut(path, ".")
	if !nested {
		return nil, false
	}
	child, ok := asMap(raw[head])
	if !ok {
		return nil, false
	}
	return lookupPath(child, rest)
}

func asMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case domain.RawRecord:
		return typed, true
	default:
		return nil, false
	}
}

const maxExactFloatInt = 1 << 53

func parseID(value any) snowflake.ID {
	switch typed := value.(type) {
	case snowflake.ID:
		return typed
	case int64:
		if typed > 0 {
			return snowflake.ID(typed)
		}
	case int:
		if typed > 0 {
			return snowflake.ID(typed)
		}
	case float64:
		// Past 2^53 a float64 no longer identifies a single integer.
		if typed > 0 && typed == math.Trunc(typed) && typed <= maxExactFloatInt {
			return snowflake.ID(int64(typed))
		}
	case json.Number:
		if parsed, err := typed.Int64(); err == nil && parsed > 0 {
			return snowflake.ID(parsed)
		}
	case string:
		if parsed, err := snowflake.ParseString(strings.TrimSpace(typed)); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 0
}

func parseTime(value any) (time.Time, bool) {
	switch typed := value.(type) {
	case time.Time:
		if typed.IsZero() {
			return time.Time{}, false
		}
		return typed.UTC(), true
	case *time.Time:
		if typed == nil {
			return time.Time{}, false
		}
		return parseTime(*typed)
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, trimmed); err == nil {
				return parsed.UTC(), true
			}
		}
		if unix, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return fromUnix(unix)
		}
	case float64:
		return fromUnix(int64(typed))
	case int64:
		return fromUnix(typed)
	case int:
		return fromUnix(int64(typed))
	case json.Number:
		if unix, err := typed.Int64(); err == nil {
			return fromUnix(unix)
		}
	default:
		// Firestore-style {"seconds": ..., "nanoseconds": ...} timestamps.
		if m, ok := asMap(value); ok {
			seconds := lookup(m, []string{"seconds", "_seconds"})
			nanos := lookup(m, []string{"nanoseconds", "_nanoseconds"})
			sec, okSec := toInt64(seconds)
			if !okSec || sec <= 0 {
				return time.Time{}, false
			}
			nsec, _ := toInt64(nanos)
			return time.Unix(sec, nsec).UTC(), true
		}
	}
	return time.Time{}, false
}

// fromUnix accepts both second and millisecond epochs.
func fromUnix(value int64) (time.Time, bool) {
	if value <= 0 {
		return time.Time{}, false
	}
	if value >= 1_000_000_000_000 {
		return time.UnixMilli(value).UTC(), true
	}
	return time.Unix(value, 0).UTC(), true
}

func toInt64(value any) (int64, bool) {
	switch typed := value.(type) {
	case int64:
		return typed, true
	case int:
		return int64(typed), true
	case float64:
		return int64(typed), true
	case json.Number:
		parsed, err := typed.Int64()
		return parsed, err == nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func parseRating(value any) (float64, bool) {
	var rating float64
	switch typed := value.(type) {
	case float64:
		rating = typed
	case int:
		rating = float64(typed)
	case int64:
		rating = float64(typed)
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		rating = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		rating = parsed
	default:
		return 0, false
	}
	if math.IsNaN(rating) || rating < 0 || rating > 5 {
		return 0, false
	}
	return rating, true
}

func normalizeStatus(value any) domain.SettlementStatus {
	raw, _ := value.(string)
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "booked", "confirmed", "upcoming":
		return domain.StatusPending
	case "completed", "complete", "done", "finished":
		return domain.StatusCompleted
	case "cancelled", "canceled":
		return domain.StatusCancelled
	default:
		return ""
	}
}

func normalizePaymentStatus(value any) domain.PaymentStatus {
	raw, _ := value.(string)
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "unpaid", "pending", "requires_payment":
		return domain.PaymentUnpaid
	case "paid", "succeeded", "success", "captured":
		return domain.PaymentPaid
	case "refunded":
		return domain.PaymentRefunded
	default:
		return ""
	}
}
