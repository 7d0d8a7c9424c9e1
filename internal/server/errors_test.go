package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/smallbiznis/loobook/internal/authorization"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		kind    string
		message string
	}{
		{nil, http.StatusInternalServerError, "internal_error", "internal server error"},
		{authorization.ErrInvalidActor, http.StatusUnauthorized, "unauthorized", "unauthorized"},
		{fmt.Errorf("grant: %w", authorization.ErrForbidden), http.StatusForbidden, "forbidden", "forbidden"},
		{domain.ErrBulkInProgress, http.StatusConflict, "conflict", "conflict"},
		{ErrRateLimited, http.StatusTooManyRequests, "rate_limited", "too many requests"},
		{domain.ErrBusinessNotFound, http.StatusNotFound, "not_found", "business not found"},
		{gorm.ErrRecordNotFound, http.StatusNotFound, "not_found", "not found"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "service_unavailable", "service unavailable"},
		{errors.New("disk full"), http.StatusInternalServerError, "internal_error", "internal server error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, "%v", tc.err)
		assert.Equal(t, tc.kind, payload.Type, "%v", tc.err)
		assert.Equal(t, tc.message, payload.Message, "%v", tc.err)
	}
}

func TestMapErrorDuplicateKeepsMessage(t *testing.T) {
	err := fmt.Errorf("business 7 2024-03: %w", domain.ErrDuplicateReport)

	status, payload := mapError(err)

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, err.Error(), payload.Message)
}

func TestMapErrorValidationCodes(t *testing.T) {
	status, payload := mapError(fmt.Errorf("trend: %w", domain.ErrInvalidBucketCount))

	assert.Equal(t, http.StatusBadRequest, status)
	if assert.Len(t, payload.Errors, 1) {
		assert.Equal(t, "invalid_bucket_count", payload.Errors[0].Code)
		assert.Equal(t, "bucket_count", payload.Errors[0].Field)
	}

	kind, code := classifyErrorForLog(domain.ErrEmptyImport)
	assert.Equal(t, "validation_error", kind)
	assert.Equal(t, "empty_import", code)
}
