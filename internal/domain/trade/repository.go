package trade

import (
	"context"

	"github.com/google/uuid"
)

// DraftRepository defines persistence operations for drafts
type DraftRepository interface {
	// FindByID loads a draft with all its lines
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Draft, error)

	// FindByIDForUpdate loads and row-locks a draft. Must be called inside a transaction.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Draft, error)

	// Save creates or updates a draft and its lines
	Save(ctx context.Context, draft *Draft) error
}

// InvoiceRepository defines persistence operations for invoices
type InvoiceRepository interface {
	// FindByID loads an invoice with its lines
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// FindByIDForUpdate loads and row-locks an invoice. Must be called inside a transaction.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// ListByReceivable returns the credit invoices charged to a receivable
	// account, oldest first, cancelled ones included
	ListByReceivable(ctx context.Context, tenantID, accountID uuid.UUID) ([]*Invoice, error)

	// ListBySession returns the invoices issued in a cash-register session,
	// oldest first, cancelled ones included
	ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]*Invoice, error)

	// IsIssued reports whether any invoice, cancelled or not, carries the fiscal number
	IsIssued(ctx context.Context, tenantID uuid.UUID, fiscalNumber string) (bool, error)

	// Save creates or updates an invoice and its lines
	Save(ctx context.Context, invoice *Invoice) error
}
