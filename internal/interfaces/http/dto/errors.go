package dto

import "net/http"

// API error codes. Format: ERR_<CATEGORY>[_<DESCRIPTION>]
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	ErrCodeValidation = "ERR_VALIDATION"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"

	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"

	ErrCodeNotConnected        = "ERR_NOT_CONNECTED"
	ErrCodePrerequisiteMissing = "ERR_PREREQUISITE_MISSING"
	ErrCodeConfiguration       = "ERR_CONFIGURATION"

	ErrCodeUpstream            = "ERR_UPSTREAM"
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTimeout     = "ERR_UPSTREAM_TIMEOUT"
	ErrCodeRateLimited         = "ERR_RATE_LIMITED"

	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps API error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,

	ErrCodeNotConnected:        http.StatusConflict,
	ErrCodePrerequisiteMissing: http.StatusConflict,
	ErrCodeConfiguration:       http.StatusServiceUnavailable,

	ErrCodeUpstream:            http.StatusBadGateway,
	ErrCodeUpstreamUnavailable: http.StatusServiceUnavailable,
	ErrCodeUpstreamTimeout:     http.StatusGatewayTimeout,
	ErrCodeRateLimited:         http.StatusTooManyRequests,

	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
}

// domainErrorCodes maps domain error codes to API error codes
var domainErrorCodes = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"ALREADY_EXISTS":        ErrCodeConflict,
	"CONFLICT":              ErrCodeConflict,
	"OPTIMISTIC_LOCK_ERROR": ErrCodeConcurrencyConflict,
	"INVALID_INPUT":         ErrCodeValidation,
	"INVALID_STATE":         ErrCodeInvalidState,
	"CONFIGURATION_ERROR":   ErrCodeConfiguration,
	"NOT_CONNECTED":         ErrCodeNotConnected,
	"PREREQUISITE_MISSING":  ErrCodePrerequisiteMissing,

	"INVALID_AMOUNT":         ErrCodeValidation,
	"INVALID_PAYMENT_METHOD": ErrCodeValidation,
	"INVALID_INVOICE":        ErrCodeValidation,
	"INVALID_INVOICE_TYPE":   ErrCodeValidation,
	"INVALID_INVOICE_NUMBER": ErrCodeValidation,
	"INVALID_PAYMENT_NUMBER": ErrCodeValidation,
	"INVALID_ORDER_NUMBER":   ErrCodeValidation,
	"INVALID_QUANTITY":       ErrCodeValidation,
	"EXCEEDS_AMOUNT_DUE":     ErrCodeBusinessRule,
	"ALREADY_PAID":           ErrCodeBusinessRule,
	"HAS_PAYMENTS":           ErrCodeBusinessRule,
}

// GetHTTPStatus returns the HTTP status for an API error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromDomainCode converts a domain error code to its API error code.
// Unknown codes are business rule violations.
func FromDomainCode(code string) string {
	if apiCode, ok := domainErrorCodes[code]; ok {
		return apiCode
	}
	return ErrCodeBusinessRule
}
