package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/loobook/internal/authorization"
	"github.com/smallbiznis/loobook/internal/reporting/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrRateLimited        = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{Errors: []ValidationError{{Field: field, Code: code, Message: message}}}
}

// errorRule maps a family of sentinel errors to one response.
type errorRule struct {
	status  int
	kind    string
	message func(error) string
	targets []error
}

func fixedMessage(msg string) func(error) string {
	return func(error) string { return msg }
}

var errorRules = []errorRule{
	{http.StatusUnauthorized, "unauthorized", fixedMessage("unauthorized"),
		[]error{ErrUnauthorized, authorization.ErrInvalidActor}},
	{http.StatusForbidden, "forbidden", fixedMessage("forbidden"),
		[]error{ErrForbidden, authorization.ErrForbidden}},
	// The duplicate message names the business and month already reported.
	{http.StatusConflict, "conflict", func(err error) string { return err.Error() },
		[]error{domain.ErrDuplicateReport}},
	{http.StatusConflict, "conflict", fixedMessage("conflict"),
		[]error{ErrConflict, domain.ErrBulkInProgress}},
	{http.StatusTooManyRequests, "rate_limited", fixedMessage("too many requests"),
		[]error{ErrRateLimited}},
	{http.StatusNotFound, "not_found", notFoundMessage,
		[]error{ErrNotFound, domain.ErrNotFound, gorm.ErrRecordNotFound}},
	{http.StatusServiceUnavailable, "service_unavailable", fixedMessage("service unavailable"),
		[]error{ErrServiceUnavailable, context.DeadlineExceeded}},
}

func (r errorRule) matches(err error) bool {
	for _, target := range r.targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}
	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{{
				Field:   validationErrorField(code),
				Code:    code,
				Message: validationErrorMessage(code),
			}},
		}
	}
	for _, rule := range errorRules {
		if rule.matches(err) {
			return rule.status, errorPayload{Type: rule.kind, Message: rule.message(err)}
		}
	}
	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

// classifyErrorForLog returns the response type and most specific code of err.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, authorization.ErrInvalidRole):
		return true
	default:
		return false
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrBusinessNotFound):
		return "business not found"
	case errors.Is(err, domain.ErrReportNotFound):
		return "report not found"
	default:
		return "not found"
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, domain.ErrInvalidArgument):
		return domainErrorCode(err)
	default:
		return err.Error()
	}
}

// domainErrorCode unwraps to the coded sentinel so wrapped messages do not
// leak into the response code.
func domainErrorCode(err error) string {
	for current := err; current != nil; current = errors.Unwrap(current) {
		msg := current.Error()
		if !strings.Contains(msg, " ") && !strings.Contains(msg, ":") {
			return msg
		}
	}
	return domain.ErrInvalidArgument.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if code == "empty_import" {
		return "records"
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "empty_import":
		return "at least one record is required"
	case "invalid_date_range":
		return "start and end must both be set and start must not be after end"
	default:
		return "invalid value"
	}
}
