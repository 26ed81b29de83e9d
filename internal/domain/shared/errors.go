package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same error code, so that
// errors.Is(err, ErrNotFound) matches any NOT_FOUND error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// Settlement error codes shared across bounded contexts
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInvalidQuantity     = "INVALID_QUANTITY"
	CodeInvalidDiscount     = "INVALID_DISCOUNT"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidState        = "INVALID_STATE"
	CodeCreditLimitExceeded = "CREDIT_LIMIT_EXCEEDED"
	CodeDiscountExceedsBase = "DISCOUNT_EXCEEDS_BASE"
	CodeExceedsBalance      = "EXCEEDS_BALANCE"
	CodeNoActiveSequence    = "NO_ACTIVE_SEQUENCE"
	CodeSequenceExhausted   = "SEQUENCE_EXHAUSTED"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// ErrorKind groups error codes into the categories callers branch on
type ErrorKind string

const (
	KindValidation        ErrorKind = "Validation"
	KindNotFound          ErrorKind = "NotFound"
	KindInvalidState      ErrorKind = "InvalidState"
	KindLimitExceeded     ErrorKind = "LimitExceeded"
	KindSequenceExhausted ErrorKind = "SequenceExhausted"
	KindConflict          ErrorKind = "Conflict"
	KindInternal          ErrorKind = "Internal"
)

var codeKinds = map[string]ErrorKind{
	CodeNotFound:            KindNotFound,
	CodeInvalidState:        KindInvalidState,
	CodeCreditLimitExceeded: KindLimitExceeded,
	CodeDiscountExceedsBase: KindLimitExceeded,
	CodeExceedsBalance:      KindLimitExceeded,
	CodeNoActiveSequence:    KindSequenceExhausted,
	CodeSequenceExhausted:   KindSequenceExhausted,
	CodeConcurrencyConflict: KindConflict,
	"ALREADY_EXISTS":        KindConflict,
	"OPEN_BLOCK_EXISTS":     KindConflict,
}

// KindOf classifies err. Any DomainError with an unmapped code is a
// validation failure; anything that is not a DomainError is internal.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if !errors.As(err, &de) {
		return KindInternal
	}
	if kind, ok := codeKinds[de.Code]; ok {
		return kind
	}
	return KindValidation
}

// CodeOf returns the DomainError code carried by err, or "" if there is none
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
