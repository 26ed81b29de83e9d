package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes every settlement event to the audit log as one
// structured entry carrying the full event payload.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an audit handler that logs under the "audit" name
func NewAuditLogHandler(l *zap.Logger) *AuditLogHandler {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuditLogHandler{logger: l.Named("audit")}
}

// EventTypes returns nil: the audit log receives all events
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs evt. A payload that cannot be encoded is an error so the bus
// reports it; nothing is retried.
func (h *AuditLogHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", evt.EventType(), err)
	}

	fields := []zap.Field{
		zap.String("event_id", evt.EventID().String()),
		zap.String("event_type", evt.EventType()),
		zap.String("aggregate_type", evt.AggregateType()),
		zap.String("aggregate_id", evt.AggregateID().String()),
		zap.Time("occurred_at", evt.OccurredAt().UTC().Truncate(time.Millisecond)),
		zap.Any("payload", json.RawMessage(payload)),
	}
	if logger.GetTenantID(ctx) == "" {
		fields = append(fields, zap.String("tenant_id", evt.TenantID().String()))
	}

	logger.Enrich(ctx, h.logger).Info("settlement event", fields...)
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
