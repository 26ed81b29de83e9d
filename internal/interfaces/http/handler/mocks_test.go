package handler

import (
	"context"

	"github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockDraftOperations is a mock implementation of DraftOperations
type MockDraftOperations struct {
	mock.Mock
}

var _ DraftOperations = (*MockDraftOperations)(nil)

func draftResult(args mock.Arguments) (*trade.Draft, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Draft), args.Error(1)
}

func (m *MockDraftOperations) CreateDraft(ctx context.Context, tenantID uuid.UUID, customerID *uuid.UUID) (*trade.Draft, error) {
	return draftResult(m.Called(ctx, tenantID, customerID))
}

func (m *MockDraftOperations) GetDraft(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error) {
	return draftResult(m.Called(ctx, tenantID, draftID))
}

func (m *MockDraftOperations) AddLine(ctx context.Context, tenantID, draftID uuid.UUID, input settlement.AddLineInput) (*trade.Draft, error) {
	return draftResult(m.Called(ctx, tenantID, draftID, input))
}

func (m *MockDraftOperations) RemoveLine(ctx context.Context, tenantID, draftID, lineID uuid.UUID) (*trade.Draft, error) {
	return draftResult(m.Called(ctx, tenantID, draftID, lineID))
}

func (m *MockDraftOperations) ApplyLineDiscount(ctx context.Context, tenantID, draftID, lineID uuid.UUID, discount *trade.Discount) (*trade.Draft, error) {
	return draftResult(m.Called(ctx, tenantID, draftID, lineID, discount))
}

func (m *MockDraftOperations) ApplyGlobalDiscount(ctx context.Context, tenantID, draftID uuid.UUID, discount trade.Discount) (*trade.Draft, error) {
	return draftResult(m.Called(ctx, tenantID, draftID, discount))
}

func (m *MockDraftOperations) RemoveGlobalDiscount(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error) {
	return draftResult(m.Called(ctx, tenantID, draftID))
}

func (m *MockDraftOperations) HoldDraft(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error) {
	return draftResult(m.Called(ctx, tenantID, draftID))
}

func (m *MockDraftOperations) ResumeDraft(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error) {
	return draftResult(m.Called(ctx, tenantID, draftID))
}

func (m *MockDraftOperations) DiscardDraft(ctx context.Context, tenantID, draftID uuid.UUID) (*trade.Draft, error) {
	return draftResult(m.Called(ctx, tenantID, draftID))
}

// MockSettlementOperations is a mock implementation of SettlementOperations
type MockSettlementOperations struct {
	mock.Mock
}

var _ SettlementOperations = (*MockSettlementOperations)(nil)

func invoiceResult(args mock.Arguments) (*trade.Invoice, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Invoice), args.Error(1)
}

func accountResult(args mock.Arguments) (*finance.ReceivableAccount, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.ReceivableAccount), args.Error(1)
}

func (m *MockSettlementOperations) FinalizeDocument(ctx context.Context, tenantID, draftID uuid.UUID, payment trade.PaymentDetails) (*trade.Invoice, error) {
	return invoiceResult(m.Called(ctx, tenantID, draftID, payment))
}

func (m *MockSettlementOperations) CancelInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, reason string) (*trade.Invoice, error) {
	return invoiceResult(m.Called(ctx, tenantID, invoiceID, reason))
}

func (m *MockSettlementOperations) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*trade.Invoice, error) {
	return invoiceResult(m.Called(ctx, tenantID, invoiceID))
}

func (m *MockSettlementOperations) RecordPayment(ctx context.Context, tenantID, accountID uuid.UUID, amount decimal.Decimal, reference string) (*finance.ReceivableAccount, error) {
	return accountResult(m.Called(ctx, tenantID, accountID, amount, reference))
}

func (m *MockSettlementOperations) RecordBatchPayment(ctx context.Context, tenantID uuid.UUID, items []settlement.BatchPaymentItem) (*settlement.BatchPaymentResult, error) {
	args := m.Called(ctx, tenantID, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.BatchPaymentResult), args.Error(1)
}

func (m *MockSettlementOperations) GetReceivable(ctx context.Context, tenantID, accountID uuid.UUID) (*finance.ReceivableAccount, error) {
	return accountResult(m.Called(ctx, tenantID, accountID))
}

func (m *MockSettlementOperations) GetPendingReceivable(ctx context.Context, tenantID, customerID uuid.UUID) (*finance.ReceivableAccount, error) {
	return accountResult(m.Called(ctx, tenantID, customerID))
}

func invoiceListResult(args mock.Arguments) ([]*trade.Invoice, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trade.Invoice), args.Error(1)
}

func (m *MockSettlementOperations) ListReceivableInvoices(ctx context.Context, tenantID, accountID uuid.UUID) ([]*trade.Invoice, error) {
	return invoiceListResult(m.Called(ctx, tenantID, accountID))
}

func (m *MockSettlementOperations) ListSessionInvoices(ctx context.Context, tenantID, sessionID uuid.UUID) ([]*trade.Invoice, error) {
	return invoiceListResult(m.Called(ctx, tenantID, sessionID))
}

// MockSequenceBlockOperations is a mock implementation of SequenceBlockOperations
type MockSequenceBlockOperations struct {
	mock.Mock
}

var _ SequenceBlockOperations = (*MockSequenceBlockOperations)(nil)

func (m *MockSequenceBlockOperations) CreateBlock(ctx context.Context, tenantID uuid.UUID, input settlement.CreateBlockInput) (*fiscal.SequenceBlock, error) {
	args := m.Called(ctx, tenantID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.SequenceBlock), args.Error(1)
}

func (m *MockSequenceBlockOperations) ListBlocks(ctx context.Context, tenantID uuid.UUID, filter fiscal.SequenceBlockFilter) ([]fiscal.SequenceBlock, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]fiscal.SequenceBlock), args.Error(1)
}

func (m *MockSequenceBlockOperations) RetireBlock(ctx context.Context, tenantID, blockID uuid.UUID) (*fiscal.SequenceBlock, error) {
	args := m.Called(ctx, tenantID, blockID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fiscal.SequenceBlock), args.Error(1)
}
