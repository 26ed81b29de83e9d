package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
	FiscalNumber string `json:"fiscal_number"`
}

func newTestEvent(eventType string, tenantID uuid.UUID) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Invoice", uuid.New(), tenantID),
		FiscalNumber:    "B0200000001",
	}
}

type recordingHandler struct {
	mu      sync.Mutex
	types   []string
	handled []shared.DomainEvent
	err     error
	panics  bool
}

func newRecordingHandler(types ...string) *recordingHandler {
	return &recordingHandler{types: types}
}

func (h *recordingHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panics {
		panic("boom")
	}
	h.handled = append(h.handled, evt)
	return h.err
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func (h *recordingHandler) received() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func startedBus(t *testing.T) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })
	return bus
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := startedBus(t)
	issued := newRecordingHandler("InvoiceIssued")
	paid := newRecordingHandler("ReceivablePaid")
	bus.Subscribe(issued)
	bus.Subscribe(paid)

	evt := newTestEvent("InvoiceIssued", uuid.New())
	require.NoError(t, bus.Publish(context.Background(), evt))

	require.Len(t, issued.received(), 1)
	assert.Equal(t, evt, issued.received()[0])
	assert.Empty(t, paid.received())
}

func TestInMemoryEventBus_WildcardSeesEverything(t *testing.T) {
	bus := startedBus(t)
	all := newRecordingHandler()
	bus.Subscribe(all)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent("InvoiceIssued", uuid.New()),
		newTestEvent("ReceivableCharged", uuid.New()),
		nil,
	))

	assert.Len(t, all.received(), 2)
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandlerTypes(t *testing.T) {
	bus := startedBus(t)
	h := newRecordingHandler("InvoiceIssued")
	bus.Subscribe(h, "InvoiceCancelled")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("InvoiceIssued", uuid.New())))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("InvoiceCancelled", uuid.New())))

	require.Len(t, h.received(), 1)
	assert.Equal(t, "InvoiceCancelled", h.received()[0].EventType())
}

func TestInMemoryEventBus_HandlerFailuresAreSwallowed(t *testing.T) {
	bus := startedBus(t)
	failing := newRecordingHandler()
	failing.err = errors.New("disk full")
	panicking := newRecordingHandler()
	panicking.panics = true
	healthy := newRecordingHandler()
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("ReceivablePaid", uuid.New()))

	require.NoError(t, err)
	assert.Len(t, healthy.received(), 1)
	delivered, failed := bus.Stats()
	assert.Equal(t, int64(1), delivered)
	assert.Equal(t, int64(2), failed)
}

func TestInMemoryEventBus_DropsWhenStopped(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := newRecordingHandler()
	bus.Subscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("InvoiceIssued", uuid.New())))
	assert.Empty(t, h.received())

	require.NoError(t, bus.Start(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("InvoiceIssued", uuid.New())))
	assert.Len(t, h.received(), 1)

	require.NoError(t, bus.Stop(context.Background()))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("InvoiceIssued", uuid.New())))
	assert.Len(t, h.received(), 1)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := startedBus(t)
	h := newRecordingHandler("InvoiceIssued")
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("InvoiceIssued", uuid.New())))
	assert.Empty(t, h.received())
}
