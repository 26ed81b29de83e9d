package finance

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivableStatus represents the status of a receivable account
type ReceivableStatus string

const (
	ReceivableStatusPending   ReceivableStatus = "PENDING"   // Open line of credit with a balance owed
	ReceivableStatusPaid      ReceivableStatus = "PAID"      // Fully settled
	ReceivableStatusCancelled ReceivableStatus = "CANCELLED" // All charges were reversed
)

// IsValid checks if the status is valid
func (s ReceivableStatus) IsValid() bool {
	switch s {
	case ReceivableStatusPending, ReceivableStatusPaid, ReceivableStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s ReceivableStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further charge or payment is possible
func (s ReceivableStatus) IsTerminal() bool {
	return s == ReceivableStatusPaid || s == ReceivableStatusCancelled
}

// CanApplyPayment returns true if payment can be applied in this status
func (s ReceivableStatus) CanApplyPayment() bool {
	return s == ReceivableStatusPending
}

// PaymentRecord is one payment applied to the account
type PaymentRecord struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
	BatchID   *uuid.UUID      `json:"batch_id,omitempty"` // set when applied as part of a batch
	AppliedAt time.Time       `json:"applied_at"`
}

// PaymentRecords is a slice of PaymentRecord that implements GORM Scanner/Valuer for JSON storage
type PaymentRecords []PaymentRecord

// Value implements driver.Valuer
func (p PaymentRecords) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (p *PaymentRecords) Scan(value interface{}) error {
	if value == nil {
		*p = PaymentRecords{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan PaymentRecords: unsupported type")
	}

	if len(bytes) == 0 {
		*p = PaymentRecords{}
		return nil
	}

	return json.Unmarshal(bytes, p)
}

// ReceivableAccount is a customer's running line of credit. A customer has
// at most one Pending account; new credit sales add to it.
type ReceivableAccount struct {
	shared.TenantAggregateRoot
	CustomerID     uuid.UUID
	AmountCharged  decimal.Decimal
	AmountPaid     decimal.Decimal
	Status         ReceivableStatus
	PaymentRecords PaymentRecords
	PaidAt         *time.Time
	CancelledAt    *time.Time
}

// CheckCreditLimit rejects a charge that would push the balance past the limit
func CheckCreditLimit(balance, amount, creditLimit decimal.Decimal) error {
	if balance.Add(amount).GreaterThan(creditLimit) {
		return shared.NewDomainError(shared.CodeCreditLimitExceeded,
			fmt.Sprintf("Credit limit of %s exceeded: current balance %s, charge %s",
				creditLimit.StringFixed(2), balance.StringFixed(2), amount.StringFixed(2)))
	}
	return nil
}

// NewReceivableAccount opens a Pending account with a first charge.
// The credit limit is checked against a zero balance.
func NewReceivableAccount(tenantID, customerID uuid.UUID, amount, creditLimit decimal.Decimal) (*ReceivableAccount, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Charge amount must be positive")
	}
	if err := CheckCreditLimit(decimal.Zero, amount, creditLimit); err != nil {
		return nil, err
	}

	ra := &ReceivableAccount{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		CustomerID:          customerID,
		AmountCharged:       amount,
		AmountPaid:          decimal.Zero,
		Status:              ReceivableStatusPending,
		PaymentRecords:      PaymentRecords{},
	}
	ra.AddDomainEvent(NewReceivableAccountOpenedEvent(ra))
	return ra, nil
}

// Balance returns the amount still owed
func (ra *ReceivableAccount) Balance() decimal.Decimal {
	return ra.AmountCharged.Sub(ra.AmountPaid)
}

// Charge adds a credit sale to a Pending account
func (ra *ReceivableAccount) Charge(amount, creditLimit decimal.Decimal, now time.Time) error {
	if ra.Status != ReceivableStatusPending {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot charge a receivable in %s status", ra.Status))
	}
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Charge amount must be positive")
	}
	if err := CheckCreditLimit(ra.Balance(), amount, creditLimit); err != nil {
		return err
	}

	ra.AmountCharged = ra.AmountCharged.Add(amount)
	ra.UpdatedAt = now
	ra.IncrementVersion()
	ra.AddDomainEvent(NewReceivableChargedEvent(ra, amount))
	return nil
}

// MaxPaymentReferenceLength bounds the free-text reference of a payment
const MaxPaymentReferenceLength = 100

// ApplyPayment records a payment against the balance. Payments above the
// remaining balance are rejected rather than silently overpaying.
func (ra *ReceivableAccount) ApplyPayment(amount decimal.Decimal, reference string, now time.Time) error {
	return ra.applyPayment(amount, reference, nil, now)
}

// ApplyBatchPayment is ApplyPayment for one item of a batch; the record
// carries the batch ID so the batch can be traced later.
func (ra *ReceivableAccount) ApplyBatchPayment(batchID uuid.UUID, amount decimal.Decimal, reference string, now time.Time) error {
	return ra.applyPayment(amount, reference, &batchID, now)
}

func (ra *ReceivableAccount) applyPayment(amount decimal.Decimal, reference string, batchID *uuid.UUID, now time.Time) error {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Payment amount must be positive")
	}
	if len(reference) > MaxPaymentReferenceLength {
		return shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Payment reference exceeds %d characters", MaxPaymentReferenceLength))
	}
	if !ra.Status.CanApplyPayment() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot apply payment to a receivable in %s status", ra.Status))
	}
	if amount.GreaterThan(ra.Balance()) {
		return shared.NewDomainError(shared.CodeExceedsBalance,
			fmt.Sprintf("Payment %s exceeds remaining balance %s", amount.StringFixed(2), ra.Balance().StringFixed(2)))
	}

	ra.PaymentRecords = append(ra.PaymentRecords, PaymentRecord{
		ID:        uuid.New(),
		Amount:    amount,
		Reference: reference,
		BatchID:   batchID,
		AppliedAt: now,
	})
	ra.AmountPaid = ra.AmountPaid.Add(amount)
	ra.UpdatedAt = now
	ra.IncrementVersion()
	applied := NewReceivablePaymentAppliedEvent(ra, amount)
	applied.BatchID = batchID
	ra.AddDomainEvent(applied)

	if ra.AmountPaid.GreaterThanOrEqual(ra.AmountCharged) {
		ra.Status = ReceivableStatusPaid
		ra.PaidAt = &now
		ra.AddDomainEvent(NewReceivablePaidEvent(ra))
	}
	return nil
}

// ReverseCharge takes a cancelled sale back off the account. It is a no-op
// unless the account is Pending and reports whether anything changed.
func (ra *ReceivableAccount) ReverseCharge(amount decimal.Decimal, now time.Time) (bool, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return false, shared.NewDomainError(shared.CodeInvalidAmount, "Reversal amount must be positive")
	}
	if ra.Status != ReceivableStatusPending {
		return false, nil
	}

	ra.AmountCharged = ra.AmountCharged.Sub(amount)
	ra.UpdatedAt = now
	ra.IncrementVersion()
	ra.AddDomainEvent(NewReceivableChargeReversedEvent(ra, amount))

	switch {
	case !ra.AmountCharged.IsPositive():
		ra.AmountCharged = decimal.Zero
		ra.Status = ReceivableStatusCancelled
		ra.CancelledAt = &now
		ra.AddDomainEvent(NewReceivableCancelledEvent(ra))
	case ra.AmountPaid.GreaterThanOrEqual(ra.AmountCharged):
		// Payments already cover what remains.
		ra.Status = ReceivableStatusPaid
		ra.PaidAt = &now
		ra.AddDomainEvent(NewReceivablePaidEvent(ra))
	}
	return true, nil
}

// IsPending returns true if the account is Pending
func (ra *ReceivableAccount) IsPending() bool {
	return ra.Status == ReceivableStatusPending
}

// IsPaid returns true if the account is Paid
func (ra *ReceivableAccount) IsPaid() bool {
	return ra.Status == ReceivableStatusPaid
}

// IsCancelled returns true if the account is Cancelled
func (ra *ReceivableAccount) IsCancelled() bool {
	return ra.Status == ReceivableStatusCancelled
}
