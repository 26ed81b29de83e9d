package event

import (
	"context"
	"sync/atomic"

	"github.com/erp/settlement/internal/domain/shared"
	"go.uber.org/zap"
)

// eventKeyPrefix keeps event ids apart from Idempotency-Key request keys
// when both live in the same store.
const eventKeyPrefix = "event:"

// IdempotencyStats is a snapshot of an IdempotentHandler's counters
type IdempotencyStats struct {
	Processed int64 `json:"processed"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

// IdempotentHandler lets each event id through to the wrapped handler once
// per TTL, so a re-published event does not produce a second audit entry.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger

	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the default TTL and enablement
func WithIdempotencyConfig(cfg shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = cfg
	}
}

// NewIdempotentHandler wraps handler with de-duplication by event id
func NewIdempotentHandler(handler shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle forwards evt unless its id was already seen. A store failure does
// not block delivery: a duplicate audit line is preferable to a missing one.
func (h *IdempotentHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	if !h.config.Enabled || h.store == nil {
		return h.forward(ctx, evt)
	}

	key := eventKeyPrefix + evt.EventID().String()
	fresh, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		h.logger.Warn("idempotency check failed, delivering anyway",
			zap.String("event_id", evt.EventID().String()),
			zap.String("event_type", evt.EventType()),
			zap.Error(err),
		)
	case !fresh:
		h.duplicate.Add(1)
		h.logger.Debug("duplicate event skipped",
			zap.String("event_id", evt.EventID().String()),
			zap.String("event_type", evt.EventType()),
		)
		return nil
	}
	return h.forward(ctx, evt)
}

// Stats returns the handler's counters
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		Processed: h.processed.Load(),
		Duplicate: h.duplicate.Load(),
		Failed:    h.failed.Load(),
	}
}

// forward delivers evt to the wrapped handler. The idempotency key is kept
// on failure and expires with its TTL.
func (h *IdempotentHandler) forward(ctx context.Context, evt shared.DomainEvent) error {
	if err := h.handler.Handle(ctx, evt); err != nil {
		h.failed.Add(1)
		return err
	}
	h.processed.Add(1)
	return nil
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
