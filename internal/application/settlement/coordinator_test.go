package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type coordinatorFixture struct {
	repos     *testRepos
	credit    *MockCreditDirectory
	publisher *MockEventPublisher
	locker    *MockDocumentLocker
	coord     *SettlementCoordinator
	tenantID  uuid.UUID
}

func newCoordinatorFixture() *coordinatorFixture {
	f := &coordinatorFixture{
		repos:     newTestRepos(),
		credit:    new(MockCreditDirectory),
		publisher: new(MockEventPublisher),
		locker:    new(MockDocumentLocker),
		tenantID:  uuid.New(),
	}
	allocator, _ := newTestAllocator(3)
	f.coord = NewSettlementCoordinator(
		f.repos.scope(),
		allocator,
		newTestLedger(),
		f.credit,
		f.publisher,
		nil,
		WithDocumentLocker(f.locker, time.Minute),
	)
	f.coord.now = fixedNow
	return f
}

func openDraft(t *testing.T, tenantID uuid.UUID) *trade.Draft {
	t.Helper()
	draft := trade.NewDraft(tenantID, nil)
	_, err := draft.AddLine(uuid.New(), "Coffee beans 1kg", d("1"), d("100.00"), d("18"), nil, testNow)
	require.NoError(t, err)
	_, err = draft.AddLine(uuid.New(), "Paper filters", d("2"), d("25.00"), d("0"), nil, testNow)
	require.NoError(t, err)
	draft.ClearDomainEvents()
	return draft
}

func cashPayment() trade.PaymentDetails {
	return trade.PaymentDetails{
		Kind:                  trade.InvoiceKindFinalConsumer,
		CashRegisterSessionID: uuid.New(),
		Tenders:               trade.Tenders{{Method: trade.TenderMethodCash, Amount: d("200")}},
	}
}

func creditPayment(customerID uuid.UUID) trade.PaymentDetails {
	return trade.PaymentDetails{
		Kind:                  trade.InvoiceKindFinalConsumer,
		CashRegisterSessionID: uuid.New(),
		IsCredit:              true,
		CustomerID:            &customerID,
	}
}

func (f *coordinatorFixture) expectLock(draftID uuid.UUID) {
	f.locker.On("Lock", mock.Anything, draftLockKey(f.tenantID, draftID), time.Minute).Return(nil)
}

func (f *coordinatorFixture) expectAllocation(t *testing.T) *fiscal.SequenceBlock {
	block := newTestBlock(t, f.tenantID, 1, 10, testNow.Add(24*time.Hour))
	f.repos.blocks.On("FindOldestOpenForUpdate", mock.Anything, f.tenantID, fiscal.DocumentTypeFinalConsumer).Return(block, nil)
	f.repos.blocks.On("Save", mock.Anything, block).Return(nil)
	f.repos.invoices.On("IsIssued", mock.Anything, f.tenantID, "B0200000001").Return(false, nil)
	return block
}

func TestFinalizeDocument_CashSale(t *testing.T) {
	f := newCoordinatorFixture()
	draft := openDraft(t, f.tenantID)
	f.expectLock(draft.ID)
	f.repos.drafts.On("FindByIDForUpdate", mock.Anything, f.tenantID, draft.ID).Return(draft, nil)
	block := f.expectAllocation(t)
	f.repos.invoices.On("Save", mock.Anything, mock.AnythingOfType("*trade.Invoice")).Return(nil)
	f.repos.drafts.On("Save", mock.Anything, draft).Return(nil)

	var published []shared.DomainEvent
	f.publisher.On("Publish", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		published = args.Get(1).([]shared.DomainEvent)
	}).Return(nil)

	inv, err := f.coord.FinalizeDocument(context.Background(), f.tenantID, draft.ID, cashPayment())

	require.NoError(t, err)
	assert.Equal(t, "B0200000001", inv.FiscalNumber)
	assert.Equal(t, trade.InvoiceStatusCompleted, inv.Status)
	assert.True(t, inv.GrandTotal.Equal(d("168")))
	assert.Nil(t, inv.ReceivableAccountID)
	assert.Equal(t, trade.DraftStatusCompleted, draft.Status)
	assert.Equal(t, inv.ID, *draft.InvoiceID)
	assert.Equal(t, int64(1), block.UsedCount)
	assert.Equal(t, 1, f.locker.released)

	types := make([]string, 0, len(published))
	for _, e := range published {
		types = append(types, e.EventType())
	}
	assert.Equal(t, []string{fiscal.EventTypeFiscalNumberAllocated, trade.EventTypeInvoiceIssued}, types)
	f.repos.assertExpectations(t)
	f.credit.AssertNotCalled(t, "CreditLimit", mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalizeDocument_CreditSaleOpensReceivable(t *testing.T) {
	f := newCoordinatorFixture()
	customerID := uuid.New()
	draft := openDraft(t, f.tenantID)
	f.expectLock(draft.ID)
	f.repos.drafts.On("FindByIDForUpdate", mock.Anything, f.tenantID, draft.ID).Return(draft, nil)
	f.credit.On("CreditLimit", mock.Anything, f.tenantID, customerID).Return(d("1000"), nil)
	f.repos.receivables.On("FindPendingByCustomerForUpdate", mock.Anything, f.tenantID, customerID).Return(nil, shared.ErrNotFound)

	var saved *finance.ReceivableAccount
	f.repos.receivables.On("Save", mock.Anything, mock.AnythingOfType("*finance.ReceivableAccount")).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*finance.ReceivableAccount)
	}).Return(nil)
	f.expectAllocation(t)
	f.repos.invoices.On("Save", mock.Anything, mock.AnythingOfType("*trade.Invoice")).Return(nil)
	f.repos.drafts.On("Save", mock.Anything, draft).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	inv, err := f.coord.FinalizeDocument(context.Background(), f.tenantID, draft.ID, creditPayment(customerID))

	require.NoError(t, err)
	require.NotNil(t, saved)
	require.NotNil(t, inv.ReceivableAccountID)
	assert.Equal(t, saved.ID, *inv.ReceivableAccountID)
	assert.True(t, saved.AmountCharged.Equal(d("168")))
	assert.True(t, inv.IsCredit)
	assert.Equal(t, customerID, *inv.CustomerID)
}

func TestFinalizeDocument_LostAccountInsertRace(t *testing.T) {
	t.Run("second attempt charges the account opened concurrently", func(t *testing.T) {
		f := newCoordinatorFixture()
		customerID := uuid.New()
		draft := openDraft(t, f.tenantID)
		existing, err := finance.NewReceivableAccount(f.tenantID, customerID, d("50"), d("1000"))
		require.NoError(t, err)
		existing.ClearDomainEvents()

		f.expectLock(draft.ID)
		f.repos.drafts.On("FindByIDForUpdate", mock.Anything, f.tenantID, draft.ID).Return(draft, nil)
		f.credit.On("CreditLimit", mock.Anything, f.tenantID, customerID).Return(d("1000"), nil)
		f.repos.receivables.On("FindPendingByCustomerForUpdate", mock.Anything, f.tenantID, customerID).Return(nil, shared.ErrNotFound).Once()
		f.repos.receivables.On("FindPendingByCustomerForUpdate", mock.Anything, f.tenantID, customerID).Return(existing, nil).Once()
		f.repos.receivables.On("Save", mock.Anything, mock.AnythingOfType("*finance.ReceivableAccount")).Return(shared.ErrAlreadyExists).Once()
		f.repos.receivables.On("Save", mock.Anything, existing).Return(nil).Once()
		f.expectAllocation(t)
		f.repos.invoices.On("Save", mock.Anything, mock.AnythingOfType("*trade.Invoice")).Return(nil)
		f.repos.drafts.On("Save", mock.Anything, draft).Return(nil)
		f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

		inv, err := f.coord.FinalizeDocument(context.Background(), f.tenantID, draft.ID, creditPayment(customerID))

		require.NoError(t, err)
		require.NotNil(t, inv.ReceivableAccountID)
		assert.Equal(t, existing.ID, *inv.ReceivableAccountID)
		assert.True(t, existing.AmountCharged.Equal(d("218")))
		assert.Equal(t, trade.DraftStatusCompleted, draft.Status)
		assert.Equal(t, 1, f.locker.released)
		f.repos.assertExpectations(t)
	})

	t.Run("repeated conflicts give up", func(t *testing.T) {
		f := newCoordinatorFixture()
		customerID := uuid.New()
		draft := openDraft(t, f.tenantID)

		f.expectLock(draft.ID)
		f.repos.drafts.On("FindByIDForUpdate", mock.Anything, f.tenantID, draft.ID).Return(draft, nil)
		f.credit.On("CreditLimit", mock.Anything, f.tenantID, customerID).Return(d("1000"), nil)
		f.repos.receivables.On("FindPendingByCustomerForUpdate", mock.Anything, f.tenantID, customerID).Return(nil, shared.ErrNotFound)
		f.repos.receivables.On("Save", mock.Anything, mock.AnythingOfType("*finance.ReceivableAccount")).Return(shared.ErrAlreadyExists)

		_, err := f.coord.FinalizeDocument(context.Background(), f.tenantID, draft.ID, creditPayment(customerID))

		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		f.repos.receivables.AssertNumberOfCalls(t, "Save", finalizeAttempts)
		assert.Equal(t, trade.DraftStatusOpen, draft.Status)
		f.repos.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestFinalizeDocument_ChargesRecomputedTotal(t *testing.T) {
	f := newCoordinatorFixture()
	customerID := uuid.New()
	draft := openDraft(t, f.tenantID)
	// stale cached amounts, as if a stored row drifted
	draft.GrandTotal = d("999")
	draft.TaxTotal = d("831")
	draft.Lines[0].TaxAmount = d("831")

	f.expectLock(draft.ID)
	f.repos.drafts.On("FindByIDForUpdate", mock.Anything, f.tenantID, draft.ID).Return(draft, nil)
	f.credit.On("CreditLimit", mock.Anything, f.tenantID, customerID).Return(d("200"), nil)
	f.repos.receivables.On("FindPendingByCustomerForUpdate", mock.Anything, f.tenantID, customerID).Return(nil, shared.ErrNotFound)

	var saved *finance.ReceivableAccount
	f.repos.receivables.On("Save", mock.Anything, mock.AnythingOfType("*finance.ReceivableAccount")).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*finance.ReceivableAccount)
	}).Return(nil)
	f.expectAllocation(t)
	f.repos.invoices.On("Save", mock.Anything, mock.AnythingOfType("*trade.Invoice")).Return(nil)
	f.repos.drafts.On("Save", mock.Anything, draft).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	inv, err := f.coord.FinalizeDocument(context.Background(), f.tenantID, draft.ID, creditPayment(customerID))

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.AmountCharged.Equal(d("168")), "charged %s", saved.AmountCharged)
	assert.True(t, inv.GrandTotal.Equal(d("168")))
	assert.True(t, inv.TaxTotal.Equal(d("18")))
	assert.True(t, inv.Lines[0].TaxAmount.Equal(d("18")))
}

func TestFinalizeDocument_CreditLimitStopsBeforeAllocation(t *testing.T) {
	f := newCoordinatorFixture()
	customerID := uuid.New()
	draft := openDraft(t, f.tenantID)
	f.expectLock(draft.ID)
	f.repos.drafts.On("FindByIDForUpdate", mock.Anything, f.tenantID, draft.ID).Return(draft, nil)
	f.credit.On("CreditLimit", mock.Anything, f.tenantID, customerID).Return(d("100"), nil)
	f.repos.receivables.On("FindPendingByCustomerForUpdate", mock.Anything, f.tenantID, customerID).Return(nil, shared.ErrNotFound)

	_, err := f.coord.FinalizeDocument(context.Background(), f.tenantID, draft.ID, creditPayment(customerID))

	assert.Equal(t, shared.KindLimitExceeded, shared.KindOf(err))
	assert.Equal(t, trade.DraftStatusOpen, draft.Status)
	f.repos.blocks.AssertNotCalled(t, "FindOldestOpenForUpdate", mock.Anything, mock.Anything, mock.Anything)
	f.repos.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	assert.Equal(t, 1, f.locker.released)
}

func TestFinalizeDocument_NoActiveSequence(t *testing.T) {
	f := newCoordinatorFixture()
	draft := openDraft(t, f.tenantID)
	f.expectLock(draft.ID)
	f.repos.drafts.On("FindByIDForUpdate", mock.Anything, f.tenantID, draft.ID).Return(draft, nil)
	f.repos.blocks.On("FindOldestOpenForUpdate", mock.Anything, f.tenantID, fiscal.DocumentTypeFinalConsumer).Return(nil, shared.ErrNotFound)

	_, err := f.coord.FinalizeDocument(context.Background(), f.tenantID, draft.ID, cashPayment())

	assert.ErrorIs(t, err, fiscal.ErrNoActiveSequence)
	assert.Equal(t, shared.KindSequenceExhausted, shared.KindOf(err))
	f.repos.drafts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestFinalizeDocument_Rejections(t *testing.T) {
	t.Run("draft locked by another finalization", func(t *testing.T) {
		f := newCoordinatorFixture()
		draftID := uuid.New()
		f.locker.On("Lock", mock.Anything, draftLockKey(f.tenantID, draftID), time.Minute).Return(shared.ErrConcurrencyConflict)

		_, err := f.coord.FinalizeDocument(context.Background(), f.tenantID, draftID, cashPayment())

		assert.Equal(t, shared.KindConflict, shared.KindOf(err))
		f.repos.drafts.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("held draft", func(t *testing.T) {
		f := newCoordinatorFixture()
		draft := openDraft(t, f.tenantID)
		require.NoError(t, draft.Hold(testNow))
		f.expectLock(draft.ID)
		f.repos.drafts.On("FindByIDForUpdate", mock.Anything, f.tenantID, draft.ID).Return(draft, nil)

		_, err := f.coord.FinalizeDocument(context.Background(), f.tenantID, draft.ID, cashPayment())
		assert.Equal(t, shared.KindInvalidState, shared.KindOf(err))
	})

	t.Run("missing register session", func(t *testing.T) {
		f := newCoordinatorFixture()
		draft := openDraft(t, f.tenantID)
		f.expectLock(draft.ID)
		f.repos.drafts.On("FindByIDForUpdate", mock.Anything, f.tenantID, draft.ID).Return(draft, nil)
		details := cashPayment()
		details.CashRegisterSessionID = uuid.Nil

		_, err := f.coord.FinalizeDocument(context.Background(), f.tenantID, draft.ID, details)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	})

	t.Run("unknown draft", func(t *testing.T) {
		f := newCoordinatorFixture()
		draftID := uuid.New()
		f.expectLock(draftID)
		f.repos.drafts.On("FindByIDForUpdate", mock.Anything, f.tenantID, draftID).Return(nil, shared.ErrNotFound)

		_, err := f.coord.FinalizeDocument(context.Background(), f.tenantID, draftID, cashPayment())
		assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
	})
}

func TestFinalizeDocument_PublishFailureIsSwallowed(t *testing.T) {
	f := newCoordinatorFixture()
	draft := openDraft(t, f.tenantID)
	f.expectLock(draft.ID)
	f.repos.drafts.On("FindByIDForUpdate", mock.Anything, f.tenantID, draft.ID).Return(draft, nil)
	f.expectAllocation(t)
	f.repos.invoices.On("Save", mock.Anything, mock.AnythingOfType("*trade.Invoice")).Return(nil)
	f.repos.drafts.On("Save", mock.Anything, draft).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("audit sink offline"))

	inv, err := f.coord.FinalizeDocument(context.Background(), f.tenantID, draft.ID, cashPayment())

	require.NoError(t, err)
	assert.NotNil(t, inv)
}

func issuedCreditInvoice(t *testing.T, tenantID uuid.UUID, account *finance.ReceivableAccount) *trade.Invoice {
	t.Helper()
	draft := openDraft(t, tenantID)
	inv, err := trade.NewInvoiceFromDraft(draft, "B0200000009", creditPayment(account.CustomerID), &account.ID, testNow)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

func TestCancelInvoice_ReversesCreditCharge(t *testing.T) {
	f := newCoordinatorFixture()
	account := pendingAccount(t, f.tenantID, uuid.New(), "300")
	inv := issuedCreditInvoice(t, f.tenantID, account)
	inv.GrandTotal = d("300")

	f.repos.invoices.On("FindByIDForUpdate", mock.Anything, f.tenantID, inv.ID).Return(inv, nil)
	f.repos.receivables.On("FindByIDForUpdate", mock.Anything, f.tenantID, account.ID).Return(account, nil)
	f.repos.receivables.On("Save", mock.Anything, account).Return(nil)
	f.repos.invoices.On("Save", mock.Anything, inv).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	got, err := f.coord.CancelInvoice(context.Background(), f.tenantID, inv.ID, "wrong customer")

	require.NoError(t, err)
	assert.True(t, got.IsCancelled())
	assert.True(t, got.Deleted)
	assert.True(t, account.AmountCharged.IsZero())
	assert.True(t, account.IsCancelled())
	f.repos.assertExpectations(t)
}

func TestCancelInvoice_AlreadyCancelled(t *testing.T) {
	f := newCoordinatorFixture()
	account := pendingAccount(t, f.tenantID, uuid.New(), "168")
	inv := issuedCreditInvoice(t, f.tenantID, account)
	require.NoError(t, inv.Cancel("first", testNow))
	f.repos.invoices.On("FindByIDForUpdate", mock.Anything, f.tenantID, inv.ID).Return(inv, nil)

	_, err := f.coord.CancelInvoice(context.Background(), f.tenantID, inv.ID, "second")

	assert.Equal(t, shared.KindInvalidState, shared.KindOf(err))
	f.repos.receivables.AssertNotCalled(t, "FindByIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordPayment(t *testing.T) {
	f := newCoordinatorFixture()
	account := pendingAccount(t, f.tenantID, uuid.New(), "500")
	f.repos.receivables.On("FindByIDForUpdate", mock.Anything, f.tenantID, account.ID).Return(account, nil)
	f.repos.receivables.On("Save", mock.Anything, account).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	got, err := f.coord.RecordPayment(context.Background(), f.tenantID, account.ID, d("500"), "transfer 889")
	require.NoError(t, err)
	assert.True(t, got.IsPaid())

	_, err = f.coord.RecordPayment(context.Background(), f.tenantID, account.ID, d("10"), "")
	assert.Equal(t, shared.KindInvalidState, shared.KindOf(err))
}

func TestRecordBatchPayment_PartialSuccess(t *testing.T) {
	f := newCoordinatorFixture()
	first := pendingAccount(t, f.tenantID, uuid.New(), "100")
	second := pendingAccount(t, f.tenantID, uuid.New(), "50")
	missing := uuid.New()

	f.repos.receivables.On("FindByIDForUpdate", mock.Anything, f.tenantID, first.ID).Return(first, nil)
	f.repos.receivables.On("FindByIDForUpdate", mock.Anything, f.tenantID, second.ID).Return(second, nil)
	f.repos.receivables.On("FindByIDForUpdate", mock.Anything, f.tenantID, missing).Return(nil, shared.ErrNotFound)
	f.repos.receivables.On("Save", mock.Anything, mock.AnythingOfType("*finance.ReceivableAccount")).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	result, err := f.coord.RecordBatchPayment(context.Background(), f.tenantID, []BatchPaymentItem{
		{AccountID: first.ID, Amount: d("40")},
		{AccountID: missing, Amount: d("10")},
		{AccountID: second.ID, Amount: d("60")},
		{AccountID: uuid.Nil, Amount: d("5")},
		{AccountID: first.ID, Amount: d("60")},
		{AccountID: second.ID, Amount: d("-1")},
	})

	require.NoError(t, err)
	require.Len(t, result.Succeeded, 2)
	assert.Equal(t, 0, result.Succeeded[0].Index)
	assert.True(t, result.Succeeded[0].Balance.Equal(d("60")))
	assert.Equal(t, 4, result.Succeeded[1].Index)
	assert.Equal(t, finance.ReceivableStatusPaid, result.Succeeded[1].Status)

	codes := map[int]string{}
	for _, r := range result.Rejected {
		codes[r.Index] = r.Code
	}
	assert.Equal(t, map[int]string{
		1: shared.CodeNotFound,
		2: shared.CodeExceedsBalance,
		3: shared.CodeInvalidInput,
		5: shared.CodeInvalidAmount,
	}, codes)
	assert.True(t, second.AmountPaid.IsZero())
	assert.True(t, first.IsPaid())

	assert.NotEqual(t, uuid.Nil, result.BatchID)
	require.Len(t, first.PaymentRecords, 2)
	for _, rec := range first.PaymentRecords {
		require.NotNil(t, rec.BatchID)
		assert.Equal(t, result.BatchID, *rec.BatchID)
	}
}

func TestRecordBatchPayment_InfrastructureErrorAborts(t *testing.T) {
	f := newCoordinatorFixture()
	account := pendingAccount(t, f.tenantID, uuid.New(), "100")
	broken := uuid.New()
	f.repos.receivables.On("FindByIDForUpdate", mock.Anything, f.tenantID, account.ID).Return(account, nil)
	f.repos.receivables.On("FindByIDForUpdate", mock.Anything, f.tenantID, broken).Return(nil, errors.New("connection reset"))
	f.repos.receivables.On("Save", mock.Anything, account).Return(nil)

	result, err := f.coord.RecordBatchPayment(context.Background(), f.tenantID, []BatchPaymentItem{
		{AccountID: account.ID, Amount: d("10")},
		{AccountID: broken, Amount: d("10")},
	})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, shared.KindInternal, shared.KindOf(err))
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestRecordBatchPayment_EmptyBatch(t *testing.T) {
	f := newCoordinatorFixture()
	_, err := f.coord.RecordBatchPayment(context.Background(), f.tenantID, nil)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
}

func TestGetPendingReceivable(t *testing.T) {
	f := newCoordinatorFixture()
	customerID := uuid.New()
	account := pendingAccount(t, f.tenantID, customerID, "75")
	f.repos.receivables.On("FindPendingByCustomer", mock.Anything, f.tenantID, customerID).Return(account, nil)
	f.repos.receivables.On("FindPendingByCustomer", mock.Anything, f.tenantID, mock.Anything).Return(nil, shared.ErrNotFound)

	got, err := f.coord.GetPendingReceivable(context.Background(), f.tenantID, customerID)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	_, err = f.coord.GetPendingReceivable(context.Background(), f.tenantID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
	f.repos.receivables.AssertNotCalled(t, "FindPendingByCustomerForUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestListReceivableInvoices(t *testing.T) {
	t.Run("lists invoices charged to the account", func(t *testing.T) {
		f := newCoordinatorFixture()
		account := pendingAccount(t, f.tenantID, uuid.New(), "168")
		inv := issuedCreditInvoice(t, f.tenantID, account)
		f.repos.receivables.On("FindByID", mock.Anything, f.tenantID, account.ID).Return(account, nil)
		f.repos.invoices.On("ListByReceivable", mock.Anything, f.tenantID, account.ID).Return([]*trade.Invoice{inv}, nil)

		got, err := f.coord.ListReceivableInvoices(context.Background(), f.tenantID, account.ID)

		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, inv.ID, got[0].ID)
	})

	t.Run("unknown account is not found", func(t *testing.T) {
		f := newCoordinatorFixture()
		missing := uuid.New()
		f.repos.receivables.On("FindByID", mock.Anything, f.tenantID, missing).Return(nil, shared.ErrNotFound)

		_, err := f.coord.ListReceivableInvoices(context.Background(), f.tenantID, missing)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		f.repos.invoices.AssertNotCalled(t, "ListByReceivable", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestListSessionInvoices(t *testing.T) {
	f := newCoordinatorFixture()
	sessionID := uuid.New()
	f.repos.invoices.On("ListBySession", mock.Anything, f.tenantID, sessionID).Return([]*trade.Invoice{}, nil)

	got, err := f.coord.ListSessionInvoices(context.Background(), f.tenantID, sessionID)

	require.NoError(t, err)
	assert.Empty(t, got)
	f.repos.assertExpectations(t)
}
