package fiscal

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SequenceBlockFilter narrows block listings
type SequenceBlockFilter struct {
	DocumentType   *DocumentType
	Status         *BlockStatus
	IncludeRetired bool
}

// SequenceBlockRepository defines persistence operations for sequence blocks
type SequenceBlockRepository interface {
	// FindByID finds a block by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*SequenceBlock, error)

	// FindByIDForUpdate finds and row-locks a block. Must be called inside a transaction.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*SequenceBlock, error)

	// FindOldestOpenForUpdate locks and returns the oldest open, non-retired block
	// for the document type. Returns shared.ErrNotFound if none exists.
	// Must be called inside a transaction.
	FindOldestOpenForUpdate(ctx context.Context, tenantID uuid.UUID, docType DocumentType) (*SequenceBlock, error)

	// ExistsOpen reports whether an open, non-retired block exists for the document type
	ExistsOpen(ctx context.Context, tenantID uuid.UUID, docType DocumentType) (bool, error)

	// FindAll lists blocks, oldest first
	FindAll(ctx context.Context, tenantID uuid.UUID, filter SequenceBlockFilter) ([]SequenceBlock, error)

	// FindExpiredOpenForUpdate locks up to limit open blocks, across all
	// tenants, whose expiration is at or before now. Rows locked by another
	// transaction are skipped. Must be called inside a transaction.
	FindExpiredOpenForUpdate(ctx context.Context, now time.Time, limit int) ([]SequenceBlock, error)

	// Save creates or updates a block
	Save(ctx context.Context, block *SequenceBlock) error
}

// IssuedNumberChecker reports whether a fiscal number already appears on an issued document
type IssuedNumberChecker interface {
	IsIssued(ctx context.Context, tenantID uuid.UUID, fiscalNumber string) (bool, error)
}
