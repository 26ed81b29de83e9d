package settlement

import (
	"context"
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionScope runs fn inside one database transaction. If fn returns an
// error the transaction is rolled back, otherwise it is committed.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories hands out repositories bound to the current transaction.
//
// Invoices doubles as the allocator's fiscal.IssuedNumberChecker so the
// collision check reads inside the same transaction that consumes the number.
type TransactionalRepositories interface {
	SequenceBlocks() fiscal.SequenceBlockRepository
	Receivables() finance.ReceivableAccountRepository
	Drafts() trade.DraftRepository
	Invoices() trade.InvoiceRepository
}

// NoOpTransactionScope runs fn against plain repositories without a transaction.
// Useful for tests with in-memory fakes.
type NoOpTransactionScope struct {
	blocks      fiscal.SequenceBlockRepository
	receivables finance.ReceivableAccountRepository
	drafts      trade.DraftRepository
	invoices    trade.InvoiceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(
	blocks fiscal.SequenceBlockRepository,
	receivables finance.ReceivableAccountRepository,
	drafts trade.DraftRepository,
	invoices trade.InvoiceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{blocks: blocks, receivables: receivables, drafts: drafts, invoices: invoices}
}

// Execute calls fn directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) SequenceBlocks() fiscal.SequenceBlockRepository   { return s.blocks }
func (s *NoOpTransactionScope) Receivables() finance.ReceivableAccountRepository { return s.receivables }
func (s *NoOpTransactionScope) Drafts() trade.DraftRepository                    { return s.drafts }
func (s *NoOpTransactionScope) Invoices() trade.InvoiceRepository                { return s.invoices }

// CustomerCreditDirectory looks up how much credit a customer may carry
type CustomerCreditDirectory interface {
	// CreditLimit returns the customer's credit limit.
	// Returns shared.ErrNotFound if the customer does not exist.
	CreditLimit(ctx context.Context, tenantID, customerID uuid.UUID) (decimal.Decimal, error)
}

// ProductInfo is the catalog data a draft line copies
type ProductInfo struct {
	ID        uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
}

// ProductCatalog resolves products for draft lines
type ProductCatalog interface {
	// FindProduct returns the product with the tax rate of its tax type.
	// Returns shared.ErrNotFound if the product does not exist or is deleted.
	FindProduct(ctx context.Context, tenantID, productID uuid.UUID) (*ProductInfo, error)
}

// DocumentLocker serializes work on one document across service instances
type DocumentLocker interface {
	// Lock acquires key for at most ttl. It fails with shared.ErrConcurrencyConflict
	// when another holder has it. The returned func releases the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// NoopDocumentLocker always grants the lock
type NoopDocumentLocker struct{}

// Lock implements DocumentLocker
func (NoopDocumentLocker) Lock(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

// Metrics is the subset of telemetry.SettlementMetrics the services record to
type Metrics interface {
	RecordInvoiceFinalized(ctx context.Context, tenantID uuid.UUID, kind string, isCredit bool, total decimal.Decimal, elapsed time.Duration)
	RecordFinalizeFailed(ctx context.Context, tenantID uuid.UUID, kind string, elapsed time.Duration)
	RecordAllocation(ctx context.Context, docType string, attempts int, outcome string)
	RecordInvoiceCancelled(ctx context.Context, tenantID uuid.UUID)
	RecordPaymentApplied(ctx context.Context, tenantID uuid.UUID)
	RecordBatchPayment(ctx context.Context, tenantID uuid.UUID, succeeded, rejected int)
}

type noopMetrics struct{}

func (noopMetrics) RecordInvoiceFinalized(context.Context, uuid.UUID, string, bool, decimal.Decimal, time.Duration) {
}
func (noopMetrics) RecordFinalizeFailed(context.Context, uuid.UUID, string, time.Duration) {}
func (noopMetrics) RecordAllocation(context.Context, string, int, string)                   {}
func (noopMetrics) RecordInvoiceCancelled(context.Context, uuid.UUID)                       {}
func (noopMetrics) RecordPaymentApplied(context.Context, uuid.UUID)                         {}
func (noopMetrics) RecordBatchPayment(context.Context, uuid.UUID, int, int)                 {}
