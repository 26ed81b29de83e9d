package settlement

import (
	"context"
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

// MockSequenceBlockRepository is a mock implementation of fiscal.SequenceBlockRepository
type MockSequenceBlockRepository struct {
	mock.Mock
}

var _ fiscal.SequenceBlockRepository = (*MockSequenceBlockRepository)(nil)

func (m *MockSequenceBlockRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*fiscal.SequenceBlock, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.SequenceBlock), args.Error(1)
}

func (m *MockSequenceBlockRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*fiscal.SequenceBlock, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.SequenceBlock), args.Error(1)
}

func (m *MockSequenceBlockRepository) FindOldestOpenForUpdate(ctx context.Context, tenantID uuid.UUID, docType fiscal.DocumentType) (*fiscal.SequenceBlock, error) {
	args := m.Called(ctx, tenantID, docType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.SequenceBlock), args.Error(1)
}

func (m *MockSequenceBlockRepository) ExistsOpen(ctx context.Context, tenantID uuid.UUID, docType fiscal.DocumentType) (bool, error) {
	args := m.Called(ctx, tenantID, docType)
	return args.Bool(0), args.Error(1)
}

func (m *MockSequenceBlockRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter fiscal.SequenceBlockFilter) ([]fiscal.SequenceBlock, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fiscal.SequenceBlock), args.Error(1)
}

func (m *MockSequenceBlockRepository) FindExpiredOpenForUpdate(ctx context.Context, now time.Time, limit int) ([]fiscal.SequenceBlock, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fiscal.SequenceBlock), args.Error(1)
}

func (m *MockSequenceBlockRepository) Save(ctx context.Context, block *fiscal.SequenceBlock) error {
	args := m.Called(ctx, block)
	return args.Error(0)
}

// MockReceivableAccountRepository is a mock implementation of finance.ReceivableAccountRepository
type MockReceivableAccountRepository struct {
	mock.Mock
}

var _ finance.ReceivableAccountRepository = (*MockReceivableAccountRepository)(nil)

func (m *MockReceivableAccountRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.ReceivableAccount, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ReceivableAccount), args.Error(1)
}

func (m *MockReceivableAccountRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.ReceivableAccount, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ReceivableAccount), args.Error(1)
}

func (m *MockReceivableAccountRepository) FindPendingByCustomerForUpdate(ctx context.Context, tenantID, customerID uuid.UUID) (*finance.ReceivableAccount, error) {
	args := m.Called(ctx, tenantID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ReceivableAccount), args.Error(1)
}

func (m *MockReceivableAccountRepository) FindPendingByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (*finance.ReceivableAccount, error) {
	args := m.Called(ctx, tenantID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ReceivableAccount), args.Error(1)
}

func (m *MockReceivableAccountRepository) Save(ctx context.Context, account *finance.ReceivableAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockDraftRepository is a mock implementation of trade.DraftRepository
type MockDraftRepository struct {
	mock.Mock
}

var _ trade.DraftRepository = (*MockDraftRepository)(nil)

func (m *MockDraftRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.Draft, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Draft), args.Error(1)
}

func (m *MockDraftRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.Draft, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Draft), args.Error(1)
}

func (m *MockDraftRepository) Save(ctx context.Context, draft *trade.Draft) error {
	args := m.Called(ctx, draft)
	return args.Error(0)
}

// MockInvoiceRepository is a mock implementation of trade.InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

var _ trade.InvoiceRepository = (*MockInvoiceRepository)(nil)

func (m *MockInvoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListByReceivable(ctx context.Context, tenantID, accountID uuid.UUID) ([]*trade.Invoice, error) {
	args := m.Called(ctx, tenantID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trade.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]*trade.Invoice, error) {
	args := m.Called(ctx, tenantID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trade.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) IsIssued(ctx context.Context, tenantID uuid.UUID, fiscalNumber string) (bool, error) {
	args := m.Called(ctx, tenantID, fiscalNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *trade.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

// MockCreditDirectory is a mock implementation of CustomerCreditDirectory
type MockCreditDirectory struct {
	mock.Mock
}

func (m *MockCreditDirectory) CreditLimit(ctx context.Context, tenantID, customerID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, customerID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockProductCatalog is a mock implementation of ProductCatalog
type MockProductCatalog struct {
	mock.Mock
}

func (m *MockProductCatalog) FindProduct(ctx context.Context, tenantID, productID uuid.UUID) (*ProductInfo, error) {
	args := m.Called(ctx, tenantID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProductInfo), args.Error(1)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockDocumentLocker is a mock implementation of DocumentLocker
type MockDocumentLocker struct {
	mock.Mock
	released int
}

func (m *MockDocumentLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	args := m.Called(ctx, key, ttl)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func() { m.released++ }, nil
}

type testRepos struct {
	blocks      *MockSequenceBlockRepository
	receivables *MockReceivableAccountRepository
	drafts      *MockDraftRepository
	invoices    *MockInvoiceRepository
}

func newTestRepos() *testRepos {
	return &testRepos{
		blocks:      new(MockSequenceBlockRepository),
		receivables: new(MockReceivableAccountRepository),
		drafts:      new(MockDraftRepository),
		invoices:    new(MockInvoiceRepository),
	}
}

func (r *testRepos) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(r.blocks, r.receivables, r.drafts, r.invoices)
}

func (r *testRepos) assertExpectations(t mock.TestingT) {
	r.blocks.AssertExpectations(t)
	r.receivables.AssertExpectations(t)
	r.drafts.AssertExpectations(t)
	r.invoices.AssertExpectations(t)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
