package trade

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InvoiceKind is the commercial kind of invoice, which decides the fiscal document type
type InvoiceKind string

const (
	InvoiceKindCreditFiscal  InvoiceKind = "credit-fiscal"
	InvoiceKindFinalConsumer InvoiceKind = "final-consumer"
	InvoiceKindSpecialRegime InvoiceKind = "special-regime"
	InvoiceKindGovernmental  InvoiceKind = "governmental"
)

var kindDocumentTypes = map[InvoiceKind]fiscal.DocumentType{
	InvoiceKindCreditFiscal:  fiscal.DocumentTypeCreditFiscal,
	InvoiceKindFinalConsumer: fiscal.DocumentTypeFinalConsumer,
	InvoiceKindSpecialRegime: fiscal.DocumentTypeSpecialRegime,
	InvoiceKindGovernmental:  fiscal.DocumentTypeGovernmental,
}

// IsValid checks if the kind is known
func (k InvoiceKind) IsValid() bool {
	_, ok := kindDocumentTypes[k]
	return ok
}

// DocumentType returns the fiscal document type code for the kind
func (k InvoiceKind) DocumentType() fiscal.DocumentType {
	return kindDocumentTypes[k]
}

// RequiresCustomerTaxID reports whether the buyer's tax id must appear on the invoice
func (k InvoiceKind) RequiresCustomerTaxID() bool {
	return k == InvoiceKindCreditFiscal || k == InvoiceKindGovernmental
}

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusCompleted InvoiceStatus = "COMPLETED"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// TenderMethod is how part of a sale was paid
type TenderMethod string

const (
	TenderMethodCash     TenderMethod = "cash"
	TenderMethodCard     TenderMethod = "card"
	TenderMethodTransfer TenderMethod = "transfer"
	TenderMethodOther    TenderMethod = "other"
)

// IsValid checks if the tender method is known
func (m TenderMethod) IsValid() bool {
	switch m {
	case TenderMethodCash, TenderMethodCard, TenderMethodTransfer, TenderMethodOther:
		return true
	}
	return false
}

// Tender is one payment instrument used at the register
type Tender struct {
	Method    TenderMethod    `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference,omitempty"`
}

// Tenders implements GORM Scanner/Valuer for JSON storage
type Tenders []Tender

// Value implements driver.Valuer
func (t Tenders) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (t *Tenders) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*t = Tenders{}
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Tenders: unsupported type")
	}
	if len(bytes) == 0 {
		*t = Tenders{}
		return nil
	}
	return json.Unmarshal(bytes, t)
}

// Sum returns the total tendered
func (t Tenders) Sum() decimal.Decimal {
	return lo.Reduce(t, func(acc decimal.Decimal, tender Tender, _ int) decimal.Decimal {
		return acc.Add(tender.Amount)
	}, decimal.Zero)
}

// PaymentDetails describes how a draft is being settled at finalization
type PaymentDetails struct {
	Kind                  InvoiceKind
	CashRegisterSessionID uuid.UUID
	IsCredit              bool
	CustomerID            *uuid.UUID
	CustomerTaxID         string
	Tenders               Tenders
}

// Validate checks the payment details against the document total
func (p PaymentDetails) Validate(grandTotal decimal.Decimal) error {
	if !p.Kind.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown invoice kind %q", p.Kind))
	}
	if p.CashRegisterSessionID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Cash register session is required")
	}
	if p.IsCredit && (p.CustomerID == nil || *p.CustomerID == uuid.Nil) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Credit sales require a customer")
	}
	if p.Kind.RequiresCustomerTaxID() && strings.TrimSpace(p.CustomerTaxID) == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Customer tax ID is required for %s invoices", p.Kind))
	}
	for i, tender := range p.Tenders {
		if !tender.Method.IsValid() {
			return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Tender %d: unknown method %q", i+1, tender.Method))
		}
		if !tender.Amount.IsPositive() {
			return shared.NewDomainError(shared.CodeInvalidAmount, fmt.Sprintf("Tender %d: amount must be positive", i+1))
		}
	}
	if !p.IsCredit && len(p.Tenders) > 0 && p.Tenders.Sum().LessThan(grandTotal) {
		return shared.NewDomainError("INSUFFICIENT_TENDER",
			fmt.Sprintf("Tendered %s does not cover total %s", p.Tenders.Sum().StringFixed(2), grandTotal.StringFixed(2)))
	}
	return nil
}

// InvoiceLine is the immutable snapshot of a draft line on an issued invoice
type InvoiceLine struct {
	ID                 uuid.UUID
	InvoiceID          uuid.UUID
	ProductID          uuid.UUID
	ProductName        string
	Quantity           decimal.Decimal
	UnitPrice          decimal.Decimal
	TaxRate            decimal.Decimal
	Discount           *Discount
	Subtotal           decimal.Decimal
	LineDiscountAmount decimal.Decimal
	GlobalShare        decimal.Decimal
	TaxAmount          decimal.Decimal
	Total              decimal.Decimal
}

// Invoice is a finalized fiscal document
type Invoice struct {
	shared.TenantAggregateRoot
	DraftID               uuid.UUID
	FiscalNumber          string
	Kind                  InvoiceKind
	Status                InvoiceStatus
	CustomerID            *uuid.UUID
	CustomerTaxID         string
	CashRegisterSessionID uuid.UUID
	IsCredit              bool
	ReceivableAccountID   *uuid.UUID
	Tenders               Tenders
	GlobalDiscount        *Discount
	GlobalDiscountAmount  decimal.Decimal
	Subtotal              decimal.Decimal
	TaxTotal              decimal.Decimal
	GrandTotal            decimal.Decimal
	Lines                 []InvoiceLine
	IssuedAt              time.Time
	Deleted               bool
	CancelledAt           *time.Time
	CancelReason          string
}

// NewInvoiceFromDraft snapshots a finalizable draft under the allocated fiscal number
func NewInvoiceFromDraft(
	draft *Draft,
	fiscalNumber string,
	details PaymentDetails,
	receivableAccountID *uuid.UUID,
	now time.Time,
) (*Invoice, error) {
	if err := draft.EnsureFinalizable(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(fiscalNumber) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Fiscal number is required")
	}
	if details.IsCredit && receivableAccountID == nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Credit invoice requires a receivable account")
	}

	inv := &Invoice{
		TenantAggregateRoot:   shared.NewTenantAggregateRoot(draft.TenantID),
		DraftID:               draft.ID,
		FiscalNumber:          fiscalNumber,
		Kind:                  details.Kind,
		Status:                InvoiceStatusCompleted,
		CustomerID:            lo.Ternary(details.CustomerID != nil, details.CustomerID, draft.CustomerID),
		CustomerTaxID:         strings.TrimSpace(details.CustomerTaxID),
		CashRegisterSessionID: details.CashRegisterSessionID,
		IsCredit:              details.IsCredit,
		ReceivableAccountID:   receivableAccountID,
		Tenders:               lo.Ternary(details.Tenders != nil, details.Tenders, Tenders{}),
		GlobalDiscount:        draft.GlobalDiscount.Clone(),
		GlobalDiscountAmount:  draft.GlobalDiscountAmount,
		Subtotal:              draft.Subtotal,
		TaxTotal:              draft.TaxTotal,
		GrandTotal:            draft.GrandTotal,
		IssuedAt:              now,
	}
	inv.Lines = lo.Map(draft.ActiveLines(), func(l DocumentLine, _ int) InvoiceLine {
		return InvoiceLine{
			ID:                 uuid.New(),
			InvoiceID:          inv.ID,
			ProductID:          l.ProductID,
			ProductName:        l.ProductName,
			Quantity:           l.Quantity,
			UnitPrice:          l.UnitPrice,
			TaxRate:            l.TaxRate,
			Discount:           l.Discount.Clone(),
			Subtotal:           l.Subtotal,
			LineDiscountAmount: l.LineDiscountAmount,
			GlobalShare:        l.GlobalShare,
			TaxAmount:          l.TaxAmount,
			Total:              l.Total,
		}
	})
	inv.AddDomainEvent(NewInvoiceIssuedEvent(inv))
	return inv, nil
}

// IsCancelled returns true if the invoice was cancelled
func (inv *Invoice) IsCancelled() bool {
	return inv.Status == InvoiceStatusCancelled
}

// Cancel voids a Completed invoice. The reason is optional; the fiscal number stays consumed.
func (inv *Invoice) Cancel(reason string, now time.Time) error {
	if inv.Status != InvoiceStatusCompleted {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot cancel invoice in %s status", inv.Status))
	}
	inv.Status = InvoiceStatusCancelled
	inv.Deleted = true
	inv.CancelledAt = &now
	inv.CancelReason = strings.TrimSpace(reason)
	inv.UpdatedAt = now
	inv.IncrementVersion()
	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv))
	return nil
}
