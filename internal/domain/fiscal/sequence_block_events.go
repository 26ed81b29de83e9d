package fiscal

import (
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	EventTypeSequenceBlockCreated  = "SequenceBlockCreated"
	EventTypeFiscalNumberAllocated = "FiscalNumberAllocated"
	EventTypeSequenceBlockClosed   = "SequenceBlockClosed"

	aggregateTypeSequenceBlock = "SequenceBlock"
)

// SequenceBlockCreatedEvent is raised when a new block is registered
type SequenceBlockCreatedEvent struct {
	shared.BaseDomainEvent
	BlockID       uuid.UUID    `json:"block_id"`
	Series        string       `json:"series"`
	DocumentType  DocumentType `json:"document_type"`
	StartSequence int64        `json:"start_sequence"`
	EndSequence   int64        `json:"end_sequence"`
	ExpiresAt     time.Time    `json:"expires_at"`
}

// EventType returns the event type name
func (e *SequenceBlockCreatedEvent) EventType() string {
	return EventTypeSequenceBlockCreated
}

// NewSequenceBlockCreatedEvent creates a new SequenceBlockCreatedEvent
func NewSequenceBlockCreatedEvent(b *SequenceBlock) *SequenceBlockCreatedEvent {
	return &SequenceBlockCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSequenceBlockCreated, aggregateTypeSequenceBlock, b.ID, b.TenantID),
		BlockID:         b.ID,
		Series:          b.Series,
		DocumentType:    b.DocumentType,
		StartSequence:   b.StartSequence,
		EndSequence:     b.EndSequence,
		ExpiresAt:       b.ExpiresAt,
	}
}

// FiscalNumberAllocatedEvent is raised for every number taken from a block
type FiscalNumberAllocatedEvent struct {
	shared.BaseDomainEvent
	BlockID      uuid.UUID    `json:"block_id"`
	DocumentType DocumentType `json:"document_type"`
	Sequence     int64        `json:"sequence"`
	FiscalNumber string       `json:"fiscal_number"`
}

// EventType returns the event type name
func (e *FiscalNumberAllocatedEvent) EventType() string {
	return EventTypeFiscalNumberAllocated
}

// NewFiscalNumberAllocatedEvent creates a new FiscalNumberAllocatedEvent
func NewFiscalNumberAllocatedEvent(b *SequenceBlock, seq int64, number string) *FiscalNumberAllocatedEvent {
	return &FiscalNumberAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFiscalNumberAllocated, aggregateTypeSequenceBlock, b.ID, b.TenantID),
		BlockID:         b.ID,
		DocumentType:    b.DocumentType,
		Sequence:        seq,
		FiscalNumber:    number,
	}
}

// SequenceBlockClosedEvent is raised when a block is exhausted, expired or retired
type SequenceBlockClosedEvent struct {
	shared.BaseDomainEvent
	BlockID      uuid.UUID    `json:"block_id"`
	DocumentType DocumentType `json:"document_type"`
	UsedCount    int64        `json:"used_count"`
	Capacity     int64        `json:"capacity"`
}

// EventType returns the event type name
func (e *SequenceBlockClosedEvent) EventType() string {
	return EventTypeSequenceBlockClosed
}

// NewSequenceBlockClosedEvent creates a new SequenceBlockClosedEvent
func NewSequenceBlockClosedEvent(b *SequenceBlock) *SequenceBlockClosedEvent {
	return &SequenceBlockClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSequenceBlockClosed, aggregateTypeSequenceBlock, b.ID, b.TenantID),
		BlockID:         b.ID,
		DocumentType:    b.DocumentType,
		UsedCount:       b.UsedCount,
		Capacity:        b.Capacity(),
	}
}
