package dto

import (
	"net/http"

	"github.com/erp/settlement/internal/domain/shared"
)

// Transport-level error codes. Domain failures keep their own codes
// (EXCEEDS_BALANCE, SEQUENCE_EXHAUSTED, ...) in responses.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeTenantRequired   = "TENANT_REQUIRED"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeRequestTooLarge  = "REQUEST_TOO_LARGE"
	ErrCodeDuplicateRequest = "DUPLICATE_REQUEST"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

var transportStatus = map[string]int{
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeTenantRequired:   http.StatusUnauthorized,
	ErrCodeRateLimited:      http.StatusTooManyRequests,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeDuplicateRequest: http.StatusConflict,
	ErrCodeInternal:         http.StatusInternalServerError,
}

var kindStatus = map[shared.ErrorKind]int{
	shared.KindValidation:        http.StatusBadRequest,
	shared.KindNotFound:          http.StatusNotFound,
	shared.KindInvalidState:      http.StatusUnprocessableEntity,
	shared.KindLimitExceeded:     http.StatusUnprocessableEntity,
	shared.KindSequenceExhausted: http.StatusConflict,
	shared.KindConflict:          http.StatusConflict,
}

// GetHTTPStatus returns the status code for an error code. Transport codes
// have fixed statuses; any other non-empty code is classified by its domain kind.
func GetHTTPStatus(code string) int {
	if status, ok := transportStatus[code]; ok {
		return status
	}
	if code == "" {
		return http.StatusInternalServerError
	}
	if status, ok := kindStatus[shared.KindOf(shared.NewDomainError(code, ""))]; ok {
		return status
	}
	return http.StatusInternalServerError
}
