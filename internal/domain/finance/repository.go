package finance

import (
	"context"

	"github.com/google/uuid"
)

// ReceivableAccountRepository defines persistence operations for receivable accounts
type ReceivableAccountRepository interface {
	// FindByID finds an account by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ReceivableAccount, error)

	// FindByIDForUpdate finds and row-locks an account. Must be called inside a transaction.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*ReceivableAccount, error)

	// FindPendingByCustomerForUpdate locks the customer's Pending account.
	// Returns shared.ErrNotFound if the customer has none.
	FindPendingByCustomerForUpdate(ctx context.Context, tenantID, customerID uuid.UUID) (*ReceivableAccount, error)

	// FindPendingByCustomer returns the customer's Pending account without
	// locking it. Returns shared.ErrNotFound if the customer has none.
	FindPendingByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (*ReceivableAccount, error)

	// Save creates or updates an account
	Save(ctx context.Context, account *ReceivableAccount) error
}
