package trade

import (
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeDraftDiscarded   = "DraftDiscarded"
	EventTypeInvoiceIssued    = "InvoiceIssued"
	EventTypeInvoiceCancelled = "InvoiceCancelled"
)

// DraftDiscardedEvent is raised when a draft is abandoned without finalizing
type DraftDiscardedEvent struct {
	shared.BaseDomainEvent
	DraftID   uuid.UUID `json:"draft_id"`
	LineCount int       `json:"line_count"`
}

// EventType returns the event type name
func (e *DraftDiscardedEvent) EventType() string {
	return EventTypeDraftDiscarded
}

// NewDraftDiscardedEvent creates a new DraftDiscardedEvent
func NewDraftDiscardedEvent(d *Draft) *DraftDiscardedEvent {
	return &DraftDiscardedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDraftDiscarded, "Draft", d.ID, d.TenantID),
		DraftID:         d.ID,
		LineCount:       len(d.Lines),
	}
}

// InvoiceIssuedEvent is raised when a draft is finalized into an invoice
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	InvoiceID           uuid.UUID       `json:"invoice_id"`
	DraftID             uuid.UUID       `json:"draft_id"`
	FiscalNumber        string          `json:"fiscal_number"`
	Kind                InvoiceKind     `json:"kind"`
	IsCredit            bool            `json:"is_credit"`
	ReceivableAccountID *uuid.UUID      `json:"receivable_account_id,omitempty"`
	GrandTotal          decimal.Decimal `json:"grand_total"`
}

// EventType returns the event type name
func (e *InvoiceIssuedEvent) EventType() string {
	return EventTypeInvoiceIssued
}

// NewInvoiceIssuedEvent creates a new InvoiceIssuedEvent
func NewInvoiceIssuedEvent(inv *Invoice) *InvoiceIssuedEvent {
	return &InvoiceIssuedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventTypeInvoiceIssued, "Invoice", inv.ID, inv.TenantID),
		InvoiceID:           inv.ID,
		DraftID:             inv.DraftID,
		FiscalNumber:        inv.FiscalNumber,
		Kind:                inv.Kind,
		IsCredit:            inv.IsCredit,
		ReceivableAccountID: inv.ReceivableAccountID,
		GrandTotal:          inv.GrandTotal,
	}
}

// InvoiceCancelledEvent is raised when an issued invoice is voided
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID    uuid.UUID       `json:"invoice_id"`
	FiscalNumber string          `json:"fiscal_number"`
	Reason       string          `json:"reason"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

// EventType returns the event type name
func (e *InvoiceCancelledEvent) EventType() string {
	return EventTypeInvoiceCancelled
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, "Invoice", inv.ID, inv.TenantID),
		InvoiceID:       inv.ID,
		FiscalNumber:    inv.FiscalNumber,
		Reason:          inv.CancelReason,
		GrandTotal:      inv.GrandTotal,
	}
}
