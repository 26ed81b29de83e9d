package persistence

import (
	"context"

	"github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/erp/settlement/internal/domain/trade"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos settlement.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// SequenceBlocks returns the fiscal block repository scoped to the current transaction.
func (r *gormTransactionalRepositories) SequenceBlocks() fiscal.SequenceBlockRepository {
	return NewGormSequenceBlockRepository(r.tx)
}

// Receivables returns the receivable account repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Receivables() finance.ReceivableAccountRepository {
	return NewGormReceivableAccountRepository(r.tx)
}

// Drafts returns the draft repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Drafts() trade.DraftRepository {
	return NewGormDraftRepository(r.tx)
}

// Invoices returns the invoice repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Invoices() trade.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

var (
	_ settlement.TransactionScope          = (*GormTransactionScope)(nil)
	_ settlement.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
