package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultDraftLockTTL = 30 * time.Second

// SettlementCoordinator turns drafts into invoices and settles receivables.
// Each operation is one transaction; events are published only after commit.
type SettlementCoordinator struct {
	txScope   TransactionScope
	allocator *FiscalSequenceAllocator
	ledger    *ReceivablesLedger
	credit    CustomerCreditDirectory
	publisher shared.EventPublisher
	locker    DocumentLocker
	metrics   Metrics
	logger    *zap.Logger
	lockTTL   time.Duration
	now       func() time.Time
}

// CoordinatorOption customizes a SettlementCoordinator
type CoordinatorOption func(*SettlementCoordinator)

// WithDocumentLocker guards finalization with a cross-instance draft lock
func WithDocumentLocker(locker DocumentLocker, ttl time.Duration) CoordinatorOption {
	return func(c *SettlementCoordinator) {
		c.locker = locker
		if ttl > 0 {
			c.lockTTL = ttl
		}
	}
}

// WithMetrics records settlement metrics
func WithMetrics(m Metrics) CoordinatorOption {
	return func(c *SettlementCoordinator) { c.metrics = m }
}

// NewSettlementCoordinator creates a SettlementCoordinator
func NewSettlementCoordinator(
	txScope TransactionScope,
	allocator *FiscalSequenceAllocator,
	ledger *ReceivablesLedger,
	credit CustomerCreditDirectory,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	opts ...CoordinatorOption,
) *SettlementCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &SettlementCoordinator{
		txScope:   txScope,
		allocator: allocator,
		ledger:    ledger,
		credit:    credit,
		publisher: publisher,
		locker:    NoopDocumentLocker{},
		metrics:   noopMetrics{},
		logger:    logger,
		lockTTL:   defaultDraftLockTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// finalizeAttempts bounds how often a finalization that lost an insert race
// is run again in a fresh transaction.
const finalizeAttempts = 2

func draftLockKey(tenantID, draftID uuid.UUID) string {
	return fmt.Sprintf("settlement:draft:%s:%s", tenantID, draftID)
}

// FinalizeDocument converts an Open draft into an invoice: credit is charged
// when the sale is on credit, a fiscal number is allocated and the draft is
// marked Completed. Nothing survives if any step fails.
func (c *SettlementCoordinator) FinalizeDocument(
	ctx context.Context,
	tenantID, draftID uuid.UUID,
	details trade.PaymentDetails,
) (*trade.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "finalize_document")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrDraftID, draftID.String(),
		telemetry.SpanAttrIsCredit, details.IsCredit,
		telemetry.SpanAttrDocumentType, details.Kind.DocumentType().String(),
	)
	start := c.now()

	release, err := c.locker.Lock(ctx, draftLockKey(tenantID, draftID), c.lockTTL)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer release()

	var (
		invoice *trade.Invoice
		events  []shared.DomainEvent
		opErr   error
	)
	labels := telemetry.OperationLabels("finalize_document", tenantID.String(), details.Kind.DocumentType().String())
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		for attempt := 1; attempt <= finalizeAttempts; attempt++ {
			opErr = c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
				events = nil
				inv, evts, err := c.finalize(ctx, repos, tenantID, draftID, details)
				if err != nil {
					return err
				}
				invoice, events = inv, evts
				return nil
			})
			if !errors.Is(opErr, shared.ErrAlreadyExists) || attempt == finalizeAttempts {
				break
			}
			// a concurrent sale opened the customer's account first; the next
			// attempt finds it and charges it under the row lock
			c.logger.Info("Retrying finalization after a conflicting insert",
				zap.String("draft_id", draftID.String()),
				zap.Int("attempt", attempt),
			)
		}
	})
	if opErr != nil {
		telemetry.RecordError(span, opErr)
		c.metrics.RecordFinalizeFailed(ctx, tenantID, string(shared.KindOf(opErr)), c.now().Sub(start))
		c.logger.Info("Draft finalization rejected",
			zap.String("draft_id", draftID.String()),
			zap.String("code", shared.CodeOf(opErr)),
			zap.Error(opErr),
		)
		return nil, opErr
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoice.ID.String(),
		telemetry.SpanAttrFiscalNumber, invoice.FiscalNumber,
		telemetry.SpanAttrAmount, invoice.GrandTotal.StringFixed(2),
	)
	c.metrics.RecordInvoiceFinalized(ctx, tenantID, string(invoice.Kind), invoice.IsCredit, invoice.GrandTotal, c.now().Sub(start))
	c.logger.Info("Invoice issued",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("fiscal_number", invoice.FiscalNumber),
		zap.String("grand_total", invoice.GrandTotal.StringFixed(2)),
		zap.Bool("is_credit", invoice.IsCredit),
	)
	c.publish(ctx, events)
	return invoice, nil
}

func (c *SettlementCoordinator) finalize(
	ctx context.Context,
	repos TransactionalRepositories,
	tenantID, draftID uuid.UUID,
	details trade.PaymentDetails,
) (*trade.Invoice, []shared.DomainEvent, error) {
	var events []shared.DomainEvent

	draft, err := repos.Drafts().FindByIDForUpdate(ctx, tenantID, draftID)
	if err != nil {
		return nil, nil, err
	}
	if err := draft.EnsureFinalizable(); err != nil {
		return nil, nil, err
	}
	if err := draft.Recalculate(); err != nil {
		return nil, nil, err
	}
	if details.CustomerID == nil {
		details.CustomerID = draft.CustomerID
	}
	if err := details.Validate(draft.GrandTotal); err != nil {
		return nil, nil, err
	}

	var accountID *uuid.UUID
	if details.IsCredit {
		limit, err := c.credit.CreditLimit(ctx, tenantID, *details.CustomerID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to look up credit limit: %w", err)
		}
		account, err := c.ledger.ChargeCredit(ctx, repos.Receivables(), tenantID, *details.CustomerID, draft.GrandTotal, limit)
		if err != nil {
			return nil, nil, err
		}
		accountID = &account.ID
		events = append(events, account.PullDomainEvents()...)
	}

	alloc, err := c.allocator.Allocate(ctx, repos.SequenceBlocks(), repos.Invoices(), tenantID, details.Kind.DocumentType())
	if err != nil {
		return nil, nil, err
	}
	events = append(events, alloc.Events...)

	now := c.now()
	invoice, err := trade.NewInvoiceFromDraft(draft, alloc.FiscalNumber, details, accountID, now)
	if err != nil {
		return nil, nil, err
	}
	if err := draft.MarkCompleted(invoice.ID, now); err != nil {
		return nil, nil, err
	}
	if err := repos.Invoices().Save(ctx, invoice); err != nil {
		return nil, nil, fmt.Errorf("failed to save invoice: %w", err)
	}
	if err := repos.Drafts().Save(ctx, draft); err != nil {
		return nil, nil, fmt.Errorf("failed to save draft: %w", err)
	}
	events = append(events, draft.PullDomainEvents()...)
	events = append(events, invoice.PullDomainEvents()...)
	return invoice, events, nil
}

// CancelInvoice voids a Completed invoice and, for credit invoices, reverses
// the charge on its receivable account.
func (c *SettlementCoordinator) CancelInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, reason string) (*trade.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "cancel_invoice")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
	)

	var (
		invoice *trade.Invoice
		events  []shared.DomainEvent
	)
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		events = nil
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if err := inv.Cancel(reason, c.now()); err != nil {
			return err
		}
		if inv.ReceivableAccountID != nil {
			account, err := c.ledger.ReverseCharge(ctx, repos.Receivables(), tenantID, *inv.ReceivableAccountID, inv.GrandTotal)
			if err != nil {
				return err
			}
			events = append(events, account.PullDomainEvents()...)
		}
		if err := repos.Invoices().Save(ctx, inv); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}
		events = append(events, inv.PullDomainEvents()...)
		invoice = inv
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	c.metrics.RecordInvoiceCancelled(ctx, tenantID)
	c.logger.Info("Invoice cancelled",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("fiscal_number", invoice.FiscalNumber),
	)
	c.publish(ctx, events)
	return invoice, nil
}

// RecordPayment applies one payment to a receivable account
func (c *SettlementCoordinator) RecordPayment(
	ctx context.Context,
	tenantID, accountID uuid.UUID,
	amount decimal.Decimal,
	reference string,
) (*finance.ReceivableAccount, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "record_payment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrAccountID, accountID.String(),
		telemetry.SpanAttrAmount, amount.String(),
	)

	var (
		account *finance.ReceivableAccount
		events  []shared.DomainEvent
	)
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		acc, err := c.ledger.ApplyPayment(ctx, repos.Receivables(), tenantID, accountID, amount, reference)
		if err != nil {
			return err
		}
		account, events = acc, acc.PullDomainEvents()
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	c.metrics.RecordPaymentApplied(ctx, tenantID)
	c.publish(ctx, events)
	return account, nil
}

// BatchPaymentItem is one payment in a batch
type BatchPaymentItem struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Reference string
}

// BatchPaymentSuccess describes an applied batch item
type BatchPaymentSuccess struct {
	Index     int
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Balance   decimal.Decimal
	Status    finance.ReceivableStatus
}

// BatchPaymentRejection describes a batch item that was skipped and why
type BatchPaymentRejection struct {
	Index     int
	AccountID uuid.UUID
	Amount    decimal.Decimal
	Code      string
	Message   string
}

// BatchPaymentResult separates applied and rejected items. BatchID is
// stamped on every payment record the batch applied.
type BatchPaymentResult struct {
	BatchID   uuid.UUID
	Succeeded []BatchPaymentSuccess
	Rejected  []BatchPaymentRejection
}

// RecordBatchPayment applies payments to several accounts in one transaction.
// A business rejection only skips its own item; an infrastructure failure
// aborts the whole batch.
func (c *SettlementCoordinator) RecordBatchPayment(ctx context.Context, tenantID uuid.UUID, items []BatchPaymentItem) (*BatchPaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "record_batch_payment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrItemCount, len(items),
	)

	if len(items) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Batch must contain at least one payment")
	}

	batchID := uuid.New()
	telemetry.SetAttributes(span, telemetry.SpanAttrBatchID, batchID.String())

	var (
		result *BatchPaymentResult
		events []shared.DomainEvent
	)
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		res := &BatchPaymentResult{
			BatchID:   batchID,
			Succeeded: make([]BatchPaymentSuccess, 0, len(items)),
			Rejected:  make([]BatchPaymentRejection, 0),
		}
		events = nil
		for i, item := range items {
			reject := func(code, message string) {
				res.Rejected = append(res.Rejected, BatchPaymentRejection{
					Index: i, AccountID: item.AccountID, Amount: item.Amount, Code: code, Message: message,
				})
			}
			if item.AccountID == uuid.Nil {
				reject(shared.CodeInvalidInput, "Receivable account ID is required")
				continue
			}

			account, err := c.ledger.ApplyBatchPayment(ctx, repos.Receivables(), tenantID, item.AccountID, batchID, item.Amount, item.Reference)
			if err != nil {
				if shared.KindOf(err) == shared.KindInternal {
					return fmt.Errorf("batch item %d: %w", i, err)
				}
				reject(shared.CodeOf(err), err.Error())
				continue
			}
			events = append(events, account.PullDomainEvents()...)
			res.Succeeded = append(res.Succeeded, BatchPaymentSuccess{
				Index:     i,
				AccountID: account.ID,
				Amount:    item.Amount.Round(2),
				Balance:   account.Balance(),
				Status:    account.Status,
			})
		}
		result = res
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	c.metrics.RecordBatchPayment(ctx, tenantID, len(result.Succeeded), len(result.Rejected))
	c.logger.Info("Batch payment recorded",
		zap.String("batch_id", batchID.String()),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("rejected", len(result.Rejected)),
	)
	c.publish(ctx, events)
	return result, nil
}

// GetInvoice loads an invoice with its lines
func (c *SettlementCoordinator) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*trade.Invoice, error) {
	var invoice *trade.Invoice
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		inv, err := repos.Invoices().FindByID(ctx, tenantID, invoiceID)
		invoice = inv
		return err
	})
	return invoice, err
}

// GetReceivable loads a receivable account
func (c *SettlementCoordinator) GetReceivable(ctx context.Context, tenantID, accountID uuid.UUID) (*finance.ReceivableAccount, error) {
	var account *finance.ReceivableAccount
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		acc, err := repos.Receivables().FindByID(ctx, tenantID, accountID)
		account = acc
		return err
	})
	return account, err
}

// GetPendingReceivable returns the customer's open credit account
func (c *SettlementCoordinator) GetPendingReceivable(ctx context.Context, tenantID, customerID uuid.UUID) (*finance.ReceivableAccount, error) {
	var account *finance.ReceivableAccount
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		acc, err := repos.Receivables().FindPendingByCustomer(ctx, tenantID, customerID)
		account = acc
		return err
	})
	return account, err
}

// ListReceivableInvoices returns the credit invoices charged to an account.
// An unknown account is NOT_FOUND rather than an empty list.
func (c *SettlementCoordinator) ListReceivableInvoices(ctx context.Context, tenantID, accountID uuid.UUID) ([]*trade.Invoice, error) {
	var invoices []*trade.Invoice
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.Receivables().FindByID(ctx, tenantID, accountID); err != nil {
			return err
		}
		list, err := repos.Invoices().ListByReceivable(ctx, tenantID, accountID)
		invoices = list
		return err
	})
	return invoices, err
}

// ListSessionInvoices returns the invoices issued in a cash-register session
func (c *SettlementCoordinator) ListSessionInvoices(ctx context.Context, tenantID, sessionID uuid.UUID) ([]*trade.Invoice, error) {
	var invoices []*trade.Invoice
	err := c.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		list, err := repos.Invoices().ListBySession(ctx, tenantID, sessionID)
		invoices = list
		return err
	})
	return invoices, err
}

// publish hands committed events to the audit sink. Failures are logged and
// never reach the caller.
func (c *SettlementCoordinator) publish(ctx context.Context, events []shared.DomainEvent) {
	publishEvents(ctx, c.publisher, c.logger, events)
}

func publishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, events []shared.DomainEvent) {
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish settlement events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}
