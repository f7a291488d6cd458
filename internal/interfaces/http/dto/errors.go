package dto

import (
	"net/http"
	"strings"
)

// General error codes. Domain error codes are passed through unchanged;
// these cover failures raised by the HTTP layer itself.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeConflict:        http.StatusConflict,

	// Shared domain codes
	"NOT_FOUND":            http.StatusNotFound,
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"INVALID_INPUT":        http.StatusBadRequest,
	"INVALID_STATE":        http.StatusUnprocessableEntity,
	"INSUFFICIENT_STOCK":   http.StatusUnprocessableEntity,
	"UNAUTHORIZED":         http.StatusUnauthorized,
	"FORBIDDEN":            http.StatusForbidden,
	"EXTERNAL_SERVICE":     http.StatusBadGateway,

	// Auth
	"INVALID_CREDENTIALS":   http.StatusUnauthorized,
	"TOKEN_EXPIRED":         http.StatusUnauthorized,
	"TOKEN_INVALID":         http.StatusUnauthorized,
	"TOKEN_REVOKED":         http.StatusUnauthorized,
	"TOKEN_MAX_REFRESH":     http.StatusUnauthorized,
	"ACCOUNT_DEACTIVATED":   http.StatusForbidden,
	"EMAIL_NOT_CONFIRMED":   http.StatusForbidden,
	"SELF_MODIFICATION":     http.StatusForbidden,
	"SUPABASE_UID_CONFLICT": http.StatusConflict,

	// Catalog, quotes and orders
	"CATEGORY_HAS_PRODUCTS": http.StatusConflict,
	"QUOTE_NOT_DELETABLE":   http.StatusUnprocessableEntity,
	"ORDER_NOT_DELETABLE":   http.StatusUnprocessableEntity,
	"COD_NOT_ALLOWED":       http.StatusUnprocessableEntity,
	"PRODUCT_UNAVAILABLE":   http.StatusUnprocessableEntity,
	"RUC_REQUIRED":          http.StatusUnprocessableEntity,
	"DOCUMENT_REQUIRED":     http.StatusUnprocessableEntity,
	"PAYMENT_UNAVAILABLE":   http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorStatus returns the status for a code carried by a domain
// error. Unlisted INVALID_* codes are input errors; any other unlisted
// code is a broken business rule.
func DomainErrorStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") || strings.HasPrefix(code, "EMPTY_") {
		return http.StatusBadRequest
	}
	return http.StatusUnprocessableEntity
}
