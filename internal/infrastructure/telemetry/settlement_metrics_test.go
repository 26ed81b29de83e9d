package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestSettlementMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	m, err := NewSettlementMetrics(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	tenant := uuid.New()
	m.RecordInvoiceFinalized(ctx, tenant, "final-consumer", false, decimal.RequireFromString("151.20"), 20*time.Millisecond)
	m.RecordInvoiceFinalized(ctx, tenant, "credit-fiscal", true, decimal.RequireFromString("10.05"), 5*time.Millisecond)
	m.RecordFinalizeFailed(ctx, tenant, "SequenceExhausted", time.Millisecond)
	m.RecordAllocation(ctx, "02", 2, "ok")
	m.RecordInvoiceCancelled(ctx, tenant)
	m.RecordPaymentApplied(ctx, tenant)
	m.RecordBatchPayment(ctx, tenant, 3, 1)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["settlement_invoices_finalized_total"]))
	assert.Equal(t, int64(16125), sumOf(t, data["settlement_invoiced_amount_cents_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["settlement_finalize_failures_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["settlement_invoices_cancelled_total"]))
	assert.Equal(t, int64(4), sumOf(t, data["settlement_payments_applied_total"]))
	assert.Equal(t, int64(4), sumOf(t, data["settlement_batch_payment_items_total"]))

	hist, ok := data["settlement_fiscal_allocation_attempts"].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.Equal(t, float64(2), hist.DataPoints[0].Sum)
}
