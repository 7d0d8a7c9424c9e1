package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/smallbiznis/loobook/internal/reporting/period"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalSnowflakeID(value string) (*snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed <= 0 {
		return nil, domain.ErrInvalidBusinessID
	}
	return &parsed, nil
}

// parseOptionalTime accepts RFC3339 or a plain date. A plain date resolves to
// the first or last instant of that UTC day.
func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		if endOfDay {
			parsed = period.EndOfDay(parsed)
		} else {
			parsed = period.StartOfDay(parsed)
		}
		return &parsed, nil
	}
	return nil, domain.ErrInvalidDateRange
}

// parseDateRange returns nil when both bounds are empty. A half-open range is
// rejected.
func parseDateRange(startRaw, endRaw string) (*domain.DateRange, error) {
	start, err := parseOptionalTime(startRaw, false)
	if err != nil {
		return nil, err
	}
	end, err := parseOptionalTime(endRaw, true)
	if err != nil {
		return nil, err
	}
	if start == nil && end == nil {
		return nil, nil
	}
	if start == nil || end == nil {
		return nil, domain.ErrInvalidDateRange
	}
	window := domain.DateRange{Start: *start, End: *end}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	return &window, nil
}

// parsePaymentStatuses accepts repeated and comma separated values.
func parsePaymentStatuses(values []string) ([]domain.PaymentStatus, error) {
	var statuses []domain.PaymentStatus
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			status, err := domain.ParsePaymentStatus(part)
			if err != nil {
				return nil, err
			}
			statuses = append(statuses, status)
		}
	}
	return statuses, nil
}

func parseSnapshotID(value string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return 0, newValidationError("id", "invalid_id", "invalid id")
	}
	return parsed, nil
}
