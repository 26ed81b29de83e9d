package finance

import (
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeReceivableAccountOpened  = "ReceivableAccountOpened"
	EventTypeReceivableCharged        = "ReceivableCharged"
	EventTypeReceivablePaymentApplied = "ReceivablePaymentApplied"
	EventTypeReceivablePaid           = "ReceivablePaid"
	EventTypeReceivableChargeReversed = "ReceivableChargeReversed"
	EventTypeReceivableCancelled      = "ReceivableCancelled"

	aggregateTypeReceivable = "ReceivableAccount"
)

// ReceivableAccountOpenedEvent is raised when a customer's first Pending account is opened
type ReceivableAccountOpenedEvent struct {
	shared.BaseDomainEvent
	AccountID  uuid.UUID       `json:"account_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *ReceivableAccountOpenedEvent) EventType() string {
	return EventTypeReceivableAccountOpened
}

// NewReceivableAccountOpenedEvent creates a new ReceivableAccountOpenedEvent
func NewReceivableAccountOpenedEvent(ra *ReceivableAccount) *ReceivableAccountOpenedEvent {
	return &ReceivableAccountOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceivableAccountOpened, aggregateTypeReceivable, ra.ID, ra.TenantID),
		AccountID:       ra.ID,
		CustomerID:      ra.CustomerID,
		Amount:          ra.AmountCharged,
	}
}

// ReceivableChargedEvent is raised when a credit sale is added to an existing account
type ReceivableChargedEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID       `json:"account_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Amount        decimal.Decimal `json:"amount"`
	AmountCharged decimal.Decimal `json:"amount_charged"`
}

// EventType returns the event type name
func (e *ReceivableChargedEvent) EventType() string {
	return EventTypeReceivableCharged
}

// NewReceivableChargedEvent creates a new ReceivableChargedEvent
func NewReceivableChargedEvent(ra *ReceivableAccount, amount decimal.Decimal) *ReceivableChargedEvent {
	return &ReceivableChargedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceivableCharged, aggregateTypeReceivable, ra.ID, ra.TenantID),
		AccountID:       ra.ID,
		CustomerID:      ra.CustomerID,
		Amount:          amount,
		AmountCharged:   ra.AmountCharged,
	}
}

// ReceivablePaymentAppliedEvent is raised for each payment applied
type ReceivablePaymentAppliedEvent struct {
	shared.BaseDomainEvent
	AccountID  uuid.UUID       `json:"account_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Balance    decimal.Decimal `json:"balance"`
	BatchID    *uuid.UUID      `json:"batch_id,omitempty"`
}

// EventType returns the event type name
func (e *ReceivablePaymentAppliedEvent) EventType() string {
	return EventTypeReceivablePaymentApplied
}

// NewReceivablePaymentAppliedEvent creates a new ReceivablePaymentAppliedEvent
func NewReceivablePaymentAppliedEvent(ra *ReceivableAccount, amount decimal.Decimal) *ReceivablePaymentAppliedEvent {
	return &ReceivablePaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceivablePaymentApplied, aggregateTypeReceivable, ra.ID, ra.TenantID),
		AccountID:       ra.ID,
		CustomerID:      ra.CustomerID,
		Amount:          amount,
		Balance:         ra.Balance(),
	}
}

// ReceivablePaidEvent is raised when the account is fully settled
type ReceivablePaidEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID       `json:"account_id"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	AmountCharged decimal.Decimal `json:"amount_charged"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
}

// EventType returns the event type name
func (e *ReceivablePaidEvent) EventType() string {
	return EventTypeReceivablePaid
}

// NewReceivablePaidEvent creates a new ReceivablePaidEvent
func NewReceivablePaidEvent(ra *ReceivableAccount) *ReceivablePaidEvent {
	return &ReceivablePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceivablePaid, aggregateTypeReceivable, ra.ID, ra.TenantID),
		AccountID:       ra.ID,
		CustomerID:      ra.CustomerID,
		AmountCharged:   ra.AmountCharged,
		AmountPaid:      ra.AmountPaid,
	}
}

// ReceivableChargeReversedEvent is raised when a cancelled invoice is taken off the account
type ReceivableChargeReversedEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID       `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	AmountCharged decimal.Decimal `json:"amount_charged"`
}

// EventType returns the event type name
func (e *ReceivableChargeReversedEvent) EventType() string {
	return EventTypeReceivableChargeReversed
}

// NewReceivableChargeReversedEvent creates a new ReceivableChargeReversedEvent
func NewReceivableChargeReversedEvent(ra *ReceivableAccount, amount decimal.Decimal) *ReceivableChargeReversedEvent {
	return &ReceivableChargeReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceivableChargeReversed, aggregateTypeReceivable, ra.ID, ra.TenantID),
		AccountID:       ra.ID,
		Amount:          amount,
		AmountCharged:   ra.AmountCharged,
	}
}

// ReceivableCancelledEvent is raised when reversals bring the charge to zero
type ReceivableCancelledEvent struct {
	shared.BaseDomainEvent
	AccountID  uuid.UUID `json:"account_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}

// EventType returns the event type name
func (e *ReceivableCancelledEvent) EventType() string {
	return EventTypeReceivableCancelled
}

// NewReceivableCancelledEvent creates a new ReceivableCancelledEvent
func NewReceivableCancelledEvent(ra *ReceivableAccount) *ReceivableCancelledEvent {
	return &ReceivableCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceivableCancelled, aggregateTypeReceivable, ra.ID, ra.TenantID),
		AccountID:       ra.ID,
		CustomerID:      ra.CustomerID,
	}
}
