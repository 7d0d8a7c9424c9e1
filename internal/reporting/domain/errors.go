package domain

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrInvalidArgument = errors.New("invalid_argument")
	ErrNotFound        = errors.New("not_found")
	ErrDuplicateReport = errors.New("duplicate_report")
	ErrBulkInProgress  = errors.New("bulk_generation_in_progress")
)

var (
	ErrInvalidSortKey       = newCodedError("invalid_sort_key", ErrInvalidArgument)
	ErrInvalidSortDirection = newCodedError("invalid_sort_direction", ErrInvalidArgument)
	ErrInvalidDateRange     = newCodedError("invalid_date_range", ErrInvalidArgument)
	ErrInvalidPage          = newCodedError("invalid_page", ErrInvalidArgument)
	ErrInvalidPageSize      = newCodedError("invalid_page_size", ErrInvalidArgument)
	ErrInvalidPeriod        = newCodedError("invalid_period", ErrInvalidArgument)
	ErrInvalidBucketCount   = newCodedError("invalid_bucket_count", ErrInvalidArgument)
	ErrInvalidTimeField     = newCodedError("invalid_time_field", ErrInvalidArgument)
	ErrInvalidYear          = newCodedError("invalid_year", ErrInvalidArgument)
	ErrInvalidMonth         = newCodedError("invalid_month", ErrInvalidArgument)
	ErrInvalidBusinessID    = newCodedError("invalid_business_id", ErrInvalidArgument)
	ErrInvalidBusinessName  = newCodedError("invalid_business_name", ErrInvalidArgument)
	ErrInvalidPaymentStatus = newCodedError("invalid_payment_status", ErrInvalidArgument)
	ErrInvalidApproval      = newCodedError("invalid_approval_status", ErrInvalidArgument)
	ErrEmptyImport          = newCodedError("empty_import", ErrInvalidArgument)

	ErrBusinessNotFound = newCodedError("business_not_found", ErrNotFound)
	ErrReportNotFound   = newCodedError("report_not_found", ErrNotFound)
)

// codedError is a sentinel that also matches its category with errors.Is.
type codedError struct {
	code string
	kind error
}

func newCodedError(code string, kind error) error {
	return &codedError{code: code, kind: kind}
}

func (e *codedError) Error() string { return e.code }

func (e *codedError) Is(target error) bool {
	return target == e.kind
}

// DuplicateReportError reports an existing snapshot for the same business and month.
type DuplicateReportError struct {
	BusinessID snowflake.ID
	Year       int
	Month      int
}

func (e *DuplicateReportError) Error() string {
	return fmt.Sprintf("duplicate_report: business %s already has a report for %04d-%02d", e.BusinessID, e.Year, e.Month)
}

func (e *DuplicateReportError) Is(target error) bool {
	return target == ErrDuplicateReport
}
