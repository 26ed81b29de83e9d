package event

import (
	"context"
	"testing"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuditLogHandler_LogsEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewAuditLogHandler(zap.New(core))
	tenantID := uuid.New()
	evt := newTestEvent("InvoiceIssued", tenantID)

	require.NoError(t, h.Handle(context.Background(), evt))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "settlement event", entry.Message)
	assert.Equal(t, "audit", entry.LoggerName)

	fields := entry.ContextMap()
	assert.Equal(t, "InvoiceIssued", fields["event_type"])
	assert.Equal(t, "Invoice", fields["aggregate_type"])
	assert.Equal(t, evt.AggregateID().String(), fields["aggregate_id"])
	assert.Equal(t, tenantID.String(), fields["tenant_id"])
	assert.Contains(t, fields, "payload")
	assert.Nil(t, h.EventTypes())
}

func TestAuditLogHandler_UsesRequestTenant(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewAuditLogHandler(zap.New(core))
	tenantID := uuid.New()
	ctx := logger.WithRequestID(logger.WithTenantID(context.Background(), tenantID.String()), "req-42")

	require.NoError(t, h.Handle(ctx, newTestEvent("ReceivableCharged", tenantID)))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, tenantID.String(), fields["tenant_id"])
	tenantFields := 0
	for _, f := range logs.All()[0].Context {
		if f.Key == "tenant_id" {
			tenantFields++
		}
	}
	assert.Equal(t, 1, tenantFields)
}

type unencodableEvent struct {
	shared.BaseDomainEvent
	Callback func() `json:"callback"`
}

func TestAuditLogHandler_EncodeFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewAuditLogHandler(zap.New(core))
	evt := &unencodableEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("Broken", "Invoice", uuid.New(), uuid.New()),
		Callback:        func() {},
	}

	err := h.Handle(context.Background(), evt)

	assert.ErrorContains(t, err, "encode Broken payload")
	assert.Zero(t, logs.Len())
}

func TestAuditLogHandler_OnBusWithDedup(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	store := new(MockIdempotencyStore)
	bus := startedBus(t)
	bus.Subscribe(NewIdempotentHandler(NewAuditLogHandler(zap.New(core)), store, nil))

	evt := newTestEvent("ReceivablePaymentApplied", uuid.New())
	key := "event:" + evt.EventID().String()
	store.On("MarkProcessed", mock.Anything, key, shared.DefaultIdempotencyConfig().TTL).Return(true, nil).Once()
	store.On("MarkProcessed", mock.Anything, key, shared.DefaultIdempotencyConfig().TTL).Return(false, nil).Once()

	require.NoError(t, bus.Publish(context.Background(), evt))
	require.NoError(t, bus.Publish(context.Background(), evt))

	assert.Equal(t, 1, logs.Len())
	store.AssertExpectations(t)
}
