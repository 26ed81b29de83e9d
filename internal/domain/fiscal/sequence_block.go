package fiscal

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
)

// MaxSequenceNumber is the largest number that fits the 8-digit sequence field
const MaxSequenceNumber int64 = 99_999_999

// BlockStatus represents the status of a sequence block
type BlockStatus string

const (
	BlockStatusOpen   BlockStatus = "open"
	BlockStatusClosed BlockStatus = "closed"
)

// IsValid checks if the status is valid
func (s BlockStatus) IsValid() bool {
	return s == BlockStatusOpen || s == BlockStatusClosed
}

// String returns the string representation
func (s BlockStatus) String() string {
	return string(s)
}

// SequenceBlock is a government-authorized range of fiscal numbers for one
// document type. Numbers are handed out strictly in order, start first.
type SequenceBlock struct {
	shared.TenantAggregateRoot
	Series        string
	DocumentType  DocumentType
	StartSequence int64
	EndSequence   int64
	UsedCount     int64
	Status        BlockStatus
	ExpiresAt     time.Time
	ClosedAt      *time.Time
	Retired       bool
}

// NewSequenceBlock creates an open block with no numbers used
func NewSequenceBlock(
	tenantID uuid.UUID,
	series string,
	docType DocumentType,
	start, end int64,
	expiresAt time.Time,
	now time.Time,
) (*SequenceBlock, error) {
	series = strings.TrimSpace(series)
	if series == "" {
		return nil, shared.NewDomainError("INVALID_SERIES", "Series cannot be empty")
	}
	if len(series) > 10 {
		return nil, shared.NewDomainError("INVALID_SERIES", "Series cannot exceed 10 characters")
	}
	if !docType.IsValid() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Invalid fiscal document type")
	}
	if start < 1 {
		return nil, shared.NewDomainError("INVALID_RANGE", "Start sequence must be at least 1")
	}
	if end < start {
		return nil, shared.NewDomainError("INVALID_RANGE", "End sequence cannot be before start sequence")
	}
	if end > MaxSequenceNumber {
		return nil, shared.NewDomainError("INVALID_RANGE", fmt.Sprintf("End sequence cannot exceed %d", MaxSequenceNumber))
	}
	if !expiresAt.After(now) {
		return nil, shared.NewDomainError("INVALID_EXPIRATION", "Expiration must be in the future")
	}

	block := &SequenceBlock{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Series:              series,
		DocumentType:        docType,
		StartSequence:       start,
		EndSequence:         end,
		Status:              BlockStatusOpen,
		ExpiresAt:           expiresAt,
	}
	block.AddDomainEvent(NewSequenceBlockCreatedEvent(block))
	return block, nil
}

// Capacity returns how many numbers the block holds
func (b *SequenceBlock) Capacity() int64 {
	return b.EndSequence - b.StartSequence + 1
}

// Remaining returns how many numbers have not been handed out yet
func (b *SequenceBlock) Remaining() int64 {
	return b.Capacity() - b.UsedCount
}

// IsOpen returns true if the block can still issue numbers
func (b *SequenceBlock) IsOpen() bool {
	return b.Status == BlockStatusOpen && !b.Retired
}

// IsExpired returns true if the block's authorization has lapsed at now
func (b *SequenceBlock) IsExpired(now time.Time) bool {
	return !now.Before(b.ExpiresAt)
}

// NextCandidate returns the sequence number the next allocation will take
func (b *SequenceBlock) NextCandidate() int64 {
	return b.StartSequence + b.UsedCount
}

// Format renders a sequence number as series + type code + 8-digit number
func (b *SequenceBlock) Format(seq int64) string {
	return fmt.Sprintf("%s%s%08d", b.Series, b.DocumentType, seq)
}

// Consume takes the next number from the block. The block closes as soon
// as its last number is taken.
func (b *SequenceBlock) Consume(now time.Time) (int64, string, error) {
	if !b.IsOpen() {
		return 0, "", shared.NewDomainError(shared.CodeInvalidState, "Sequence block is closed")
	}
	if b.Remaining() <= 0 {
		b.close(now)
		return 0, "", shared.NewDomainError(shared.CodeInvalidState, "Sequence block has no numbers left")
	}

	seq := b.NextCandidate()
	number := b.Format(seq)
	b.UsedCount++
	b.UpdatedAt = now
	b.IncrementVersion()
	b.AddDomainEvent(NewFiscalNumberAllocatedEvent(b, seq, number))

	if b.UsedCount >= b.Capacity() {
		b.close(now)
	}
	return seq, number, nil
}

// Expire closes an open block whose expiration has passed
func (b *SequenceBlock) Expire(now time.Time) error {
	if b.Status != BlockStatusOpen {
		return shared.NewDomainError(shared.CodeInvalidState, "Sequence block is already closed")
	}
	if !b.IsExpired(now) {
		return shared.NewDomainError(shared.CodeInvalidState, "Sequence block has not expired")
	}
	b.UpdatedAt = now
	b.IncrementVersion()
	b.close(now)
	return nil
}

// Retire soft-deletes the block; a retired block never issues numbers again
func (b *SequenceBlock) Retire(now time.Time) error {
	if b.Retired {
		return shared.NewDomainError(shared.CodeInvalidState, "Sequence block is already retired")
	}
	b.Retired = true
	b.UpdatedAt = now
	b.IncrementVersion()
	if b.Status == BlockStatusOpen {
		b.close(now)
	}
	return nil
}

func (b *SequenceBlock) close(now time.Time) {
	b.Status = BlockStatusClosed
	b.ClosedAt = &now
	b.AddDomainEvent(NewSequenceBlockClosedEvent(b))
}
