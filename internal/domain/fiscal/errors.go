package fiscal

import (
	"errors"

	"github.com/erp/settlement/internal/domain/shared"
)

var (
	// ErrNoActiveSequence is returned when no open, unexpired block exists for a document type
	ErrNoActiveSequence = shared.NewDomainError(shared.CodeNoActiveSequence, "No active fiscal sequence block for document type")
	// ErrSequenceExhausted is returned when allocation gave up after its retry budget
	ErrSequenceExhausted = shared.NewDomainError(shared.CodeSequenceExhausted, "Could not allocate a fiscal number")
	// ErrOpenBlockExists is returned when creating a second open block for the same type
	ErrOpenBlockExists = shared.NewDomainError("OPEN_BLOCK_EXISTS", "An open fiscal sequence block already exists for this document type")
)

// IsSequenceExhausted reports whether err means no fiscal number could be issued
func IsSequenceExhausted(err error) bool {
	return errors.Is(err, ErrNoActiveSequence) || errors.Is(err, ErrSequenceExhausted)
}
