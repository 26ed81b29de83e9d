package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrTenantID     = attribute.Key("tenant_id")
	AttrInvoiceKind  = attribute.Key("invoice_kind")
	AttrDocumentType = attribute.Key("document_type")
	AttrIsCredit     = attribute.Key("is_credit")
	AttrOutcome      = attribute.Key("outcome")
)

// SettlementMetrics records invoice finalization, fiscal number allocation
// and receivable activity.
type SettlementMetrics struct {
	invoicesFinalized  *Counter
	invoicesCancelled  *Counter
	invoicedAmount     *Counter
	finalizeFailures   *Counter
	finalizeDuration   *Histogram
	allocationAttempts *Histogram
	paymentsApplied    *Counter
	batchItems         *Counter
}

// NewSettlementMetrics creates the settlement instruments on meter
func NewSettlementMetrics(meter metric.Meter) (*SettlementMetrics, error) {
	var (
		m   SettlementMetrics
		err error
	)
	if m.invoicesFinalized, err = NewCounter(meter, "settlement_invoices_finalized_total",
		"Invoices issued from drafts", "{invoice}"); err != nil {
		return nil, err
	}
	if m.invoicesCancelled, err = NewCounter(meter, "settlement_invoices_cancelled_total",
		"Invoices cancelled", "{invoice}"); err != nil {
		return nil, err
	}
	if m.invoicedAmount, err = NewCounter(meter, "settlement_invoiced_amount_cents_total",
		"Grand total of issued invoices in cents", "{cent}"); err != nil {
		return nil, err
	}
	if m.finalizeFailures, err = NewCounter(meter, "settlement_finalize_failures_total",
		"Finalization attempts that rolled back", "{attempt}"); err != nil {
		return nil, err
	}
	if m.finalizeDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "settlement_finalize_duration_seconds",
		Description: "Time spent finalizing a draft",
		Unit:        "s",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}); err != nil {
		return nil, err
	}
	if m.allocationAttempts, err = NewHistogram(meter, HistogramOpts{
		Name:        "settlement_fiscal_allocation_attempts",
		Description: "Attempts needed to allocate a fiscal number",
		Unit:        "{attempt}",
		Buckets:     []float64{1, 2, 3, 5, 10},
	}); err != nil {
		return nil, err
	}
	if m.paymentsApplied, err = NewCounter(meter, "settlement_payments_applied_total",
		"Payments applied to receivable accounts", "{payment}"); err != nil {
		return nil, err
	}
	if m.batchItems, err = NewCounter(meter, "settlement_batch_payment_items_total",
		"Batch payment items by outcome", "{item}"); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordInvoiceFinalized records a successful finalization
func (m *SettlementMetrics) RecordInvoiceFinalized(ctx context.Context, tenantID uuid.UUID, kind string, isCredit bool, total decimal.Decimal, elapsed time.Duration) {
	attrs := []attribute.KeyValue{AttrTenantID.String(tenantID.String()), AttrInvoiceKind.String(kind), AttrIsCredit.Bool(isCredit)}
	m.invoicesFinalized.Inc(ctx, attrs...)
	m.invoicedAmount.Add(ctx, total.Shift(2).IntPart(), attrs...)
	m.finalizeDuration.RecordDuration(ctx, elapsed, AttrOutcome.String("ok"))
}

// RecordFinalizeFailed records a rolled-back finalization, keyed by error kind
func (m *SettlementMetrics) RecordFinalizeFailed(ctx context.Context, tenantID uuid.UUID, kind string, elapsed time.Duration) {
	m.finalizeFailures.Inc(ctx, AttrTenantID.String(tenantID.String()), AttrOutcome.String(kind))
	m.finalizeDuration.RecordDuration(ctx, elapsed, AttrOutcome.String("error"))
}

// RecordAllocation records how many attempts an allocation took
func (m *SettlementMetrics) RecordAllocation(ctx context.Context, docType string, attempts int, outcome string) {
	m.allocationAttempts.Record(ctx, float64(attempts), AttrDocumentType.String(docType), AttrOutcome.String(outcome))
}

// RecordInvoiceCancelled records a cancellation
func (m *SettlementMetrics) RecordInvoiceCancelled(ctx context.Context, tenantID uuid.UUID) {
	m.invoicesCancelled.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordPaymentApplied records a single applied payment
func (m *SettlementMetrics) RecordPaymentApplied(ctx context.Context, tenantID uuid.UUID) {
	m.paymentsApplied.Inc(ctx, AttrTenantID.String(tenantID.String()))
}

// RecordBatchPayment records batch outcomes
func (m *SettlementMetrics) RecordBatchPayment(ctx context.Context, tenantID uuid.UUID, succeeded, rejected int) {
	tenant := AttrTenantID.String(tenantID.String())
	m.batchItems.Add(ctx, int64(succeeded), tenant, AttrOutcome.String("succeeded"))
	m.batchItems.Add(ctx, int64(rejected), tenant, AttrOutcome.String("rejected"))
	m.paymentsApplied.Add(ctx, int64(succeeded), tenant)
}
