package handler

import (
	"time"

	"github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/finance"
	"github.com/erp/settlement/internal/domain/fiscal"
	"github.com/erp/settlement/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountInput is a percentage or flat-amount discount
// @Description Discount applied to a line or to the whole draft
type DiscountInput struct {
	Type  string           `json:"type" binding:"required,discount_type" example:"PERCENTAGE"`
	Value *decimal.Decimal `json:"value" binding:"required" swaggertype:"string" example:"10"`
}

func (d *DiscountInput) toDomain() (*trade.Discount, error) {
	return trade.NewDiscount(trade.DiscountType(d.Type), *d.Value)
}

// CreateDraftRequest opens a draft, optionally for a known customer
type CreateDraftRequest struct {
	CustomerID *uuid.UUID `json:"customer_id" swaggertype:"string" format:"uuid"`
}

// AddLineRequest adds a product line to a draft. Price and tax rate default
// to the catalog values.
type AddLineRequest struct {
	ProductID uuid.UUID        `json:"product_id" binding:"required" swaggertype:"string" format:"uuid"`
	Quantity  *decimal.Decimal `json:"quantity" binding:"required" swaggertype:"string" example:"2"`
	UnitPrice *decimal.Decimal `json:"unit_price" swaggertype:"string" example:"10.00"`
	TaxRate   *decimal.Decimal `json:"tax_rate" swaggertype:"string" example:"13"`
	Discount  *DiscountInput   `json:"discount"`
}

// LineDiscountRequest sets or clears (discount: null) a line discount
type LineDiscountRequest struct {
	Discount *DiscountInput `json:"discount"`
}

// TenderInput is one payment instrument used at the register
type TenderInput struct {
	Method    string           `json:"method" binding:"required,tender_method" example:"cash"`
	Amount    *decimal.Decimal `json:"amount" binding:"required" swaggertype:"string" example:"20.00"`
	Reference string           `json:"reference" binding:"max=100"`
}

// FinalizeRequest carries the payment details of a draft being finalized
type FinalizeRequest struct {
	Kind                  string        `json:"kind" binding:"required,invoice_kind" example:"final-consumer"`
	CashRegisterSessionID uuid.UUID     `json:"cash_register_session_id" binding:"required" swaggertype:"string" format:"uuid"`
	IsCredit              bool          `json:"is_credit"`
	CustomerID            *uuid.UUID    `json:"customer_id" swaggertype:"string" format:"uuid"`
	CustomerTaxID         string        `json:"customer_tax_id" binding:"max=50"`
	Tenders               []TenderInput `json:"tenders" binding:"dive"`
}

func (r *FinalizeRequest) toDomain() trade.PaymentDetails {
	tenders := make(trade.Tenders, 0, len(r.Tenders))
	for _, t := range r.Tenders {
		tenders = append(tenders, trade.Tender{
			Method:    trade.TenderMethod(t.Method),
			Amount:    *t.Amount,
			Reference: t.Reference,
		})
	}
	return trade.PaymentDetails{
		Kind:                  trade.InvoiceKind(r.Kind),
		CashRegisterSessionID: r.CashRegisterSessionID,
		IsCredit:              r.IsCredit,
		CustomerID:            r.CustomerID,
		CustomerTaxID:         r.CustomerTaxID,
		Tenders:               tenders,
	}
}

// CancelInvoiceRequest carries the optional cancellation reason
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"max=500" example:"Wrong customer"`
}

// PaymentRequest applies a payment to a receivable account
type PaymentRequest struct {
	Amount    *decimal.Decimal `json:"amount" binding:"required" swaggertype:"string" example:"50.00"`
	Reference string           `json:"reference" binding:"max=100" example:"TRX-1029"`
}

// BatchPaymentItemRequest is one payment of a batch. Items are not validated
// at the edge: a malformed item is rejected on its own in the batch result.
type BatchPaymentItemRequest struct {
	AccountID uuid.UUID        `json:"account_id" swaggertype:"string" format:"uuid"`
	Amount    *decimal.Decimal `json:"amount" swaggertype:"string" example:"50.00"`
	Reference string           `json:"reference"`
}

func (r BatchPaymentItemRequest) toItem() settlement.BatchPaymentItem {
	amount := decimal.Zero
	if r.Amount != nil {
		amount = *r.Amount
	}
	return settlement.BatchPaymentItem{AccountID: r.AccountID, Amount: amount, Reference: r.Reference}
}

// BatchPaymentRequest applies several payments in one transaction
type BatchPaymentRequest struct {
	Payments []BatchPaymentItemRequest `json:"payments" binding:"required,min=1,max=500"`
}

// CreateSequenceBlockRequest registers an authorized fiscal number range
type CreateSequenceBlockRequest struct {
	Series        string    `json:"series" binding:"required,max=20" example:"A"`
	DocumentType  string    `json:"document_type" binding:"required,document_type" example:"02"`
	StartSequence int64     `json:"start_sequence" binding:"required,gte=1" example:"1"`
	EndSequence   int64     `json:"end_sequence" binding:"required,gtefield=StartSequence" example:"1000"`
	ExpiresAt     time.Time `json:"expires_at" binding:"required"`
}

// ListSequenceBlocksQuery filters the block listing
type ListSequenceBlocksQuery struct {
	DocumentType   string `form:"document_type" binding:"omitempty,document_type"`
	Status         string `form:"status" binding:"omitempty,oneof=open closed"`
	IncludeRetired bool   `form:"include_retired"`
}

func (q *ListSequenceBlocksQuery) toFilter() fiscal.SequenceBlockFilter {
	var filter fiscal.SequenceBlockFilter
	if q.DocumentType != "" {
		dt := fiscal.DocumentType(q.DocumentType)
		filter.DocumentType = &dt
	}
	if q.Status != "" {
		st := fiscal.BlockStatus(q.Status)
		filter.Status = &st
	}
	filter.IncludeRetired = q.IncludeRetired
	return filter
}

// DiscountResponse describes an applied discount
type DiscountResponse struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value" swaggertype:"string"`
}

func toDiscountResponse(d *trade.Discount) *DiscountResponse {
	if d == nil {
		return nil
	}
	return &DiscountResponse{Type: string(d.Type), Value: d.Value}
}

// LineResponse is a draft or invoice line with its derived amounts
type LineResponse struct {
	ID                 uuid.UUID         `json:"id"`
	ProductID          uuid.UUID         `json:"product_id"`
	ProductName        string            `json:"product_name"`
	Quantity           decimal.Decimal   `json:"quantity" swaggertype:"string"`
	UnitPrice          decimal.Decimal   `json:"unit_price" swaggertype:"string"`
	TaxRate            decimal.Decimal   `json:"tax_rate" swaggertype:"string"`
	Discount           *DiscountResponse `json:"discount,omitempty"`
	Subtotal           decimal.Decimal   `json:"subtotal" swaggertype:"string"`
	LineDiscountAmount decimal.Decimal   `json:"line_discount_amount" swaggertype:"string"`
	GlobalShare        decimal.Decimal   `json:"global_discount_share" swaggertype:"string"`
	TaxAmount          decimal.Decimal   `json:"tax_amount" swaggertype:"string"`
	Total              decimal.Decimal   `json:"total" swaggertype:"string"`
}

// DraftResponse represents a draft in API responses
type DraftResponse struct {
	ID                   uuid.UUID         `json:"id"`
	TenantID             uuid.UUID         `json:"tenant_id"`
	CustomerID           *uuid.UUID        `json:"customer_id,omitempty"`
	Status               string            `json:"status"`
	Lines                []LineResponse    `json:"lines"`
	GlobalDiscount       *DiscountResponse `json:"global_discount,omitempty"`
	GlobalDiscountAmount decimal.Decimal   `json:"global_discount_amount" swaggertype:"string"`
	Subtotal             decimal.Decimal   `json:"subtotal" swaggertype:"string"`
	TaxTotal             decimal.Decimal   `json:"tax_total" swaggertype:"string"`
	GrandTotal           decimal.Decimal   `json:"grand_total" swaggertype:"string"`
	InvoiceID            *uuid.UUID        `json:"invoice_id,omitempty"`
	CompletedAt          *time.Time        `json:"completed_at,omitempty"`
	CancelledAt          *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	Version              int               `json:"version"`
}

func toDraftResponse(d *trade.Draft) DraftResponse {
	active := d.ActiveLines()
	lines := make([]LineResponse, 0, len(active))
	for _, l := range active {
		lines = append(lines, LineResponse{
			ID:                 l.ID,
			ProductID:          l.ProductID,
			ProductName:        l.ProductName,
			Quantity:           l.Quantity,
			UnitPrice:          l.UnitPrice,
			TaxRate:            l.TaxRate,
			Discount:           toDiscountResponse(l.Discount),
			Subtotal:           l.Subtotal,
			LineDiscountAmount: l.LineDiscountAmount,
			GlobalShare:        l.GlobalShare,
			TaxAmount:          l.TaxAmount,
			Total:              l.Total,
		})
	}
	return DraftResponse{
		ID:                   d.ID,
		TenantID:             d.TenantID,
		CustomerID:           d.CustomerID,
		Status:               string(d.Status),
		Lines:                lines,
		GlobalDiscount:       toDiscountResponse(d.GlobalDiscount),
		GlobalDiscountAmount: d.GlobalDiscountAmount,
		Subtotal:             d.Subtotal,
		TaxTotal:             d.TaxTotal,
		GrandTotal:           d.GrandTotal,
		InvoiceID:            d.InvoiceID,
		CompletedAt:          d.CompletedAt,
		CancelledAt:          d.CancelledAt,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
		Version:              d.Version,
	}
}

// TenderResponse is a tender recorded on an invoice
type TenderResponse struct {
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string"`
	Reference string          `json:"reference,omitempty"`
}

// InvoiceResponse represents an issued invoice in API responses
type InvoiceResponse struct {
	ID                    uuid.UUID         `json:"id"`
	TenantID              uuid.UUID         `json:"tenant_id"`
	DraftID               uuid.UUID         `json:"draft_id"`
	FiscalNumber          string            `json:"fiscal_number" example:"A0200000001"`
	Kind                  string            `json:"kind"`
	DocumentType          string            `json:"document_type"`
	Status                string            `json:"status"`
	CustomerID            *uuid.UUID        `json:"customer_id,omitempty"`
	CustomerTaxID         string            `json:"customer_tax_id,omitempty"`
	CashRegisterSessionID uuid.UUID         `json:"cash_register_session_id"`
	IsCredit              bool              `json:"is_credit"`
	ReceivableAccountID   *uuid.UUID        `json:"receivable_account_id,omitempty"`
	Tenders               []TenderResponse  `json:"tenders"`
	GlobalDiscount        *DiscountResponse `json:"global_discount,omitempty"`
	GlobalDiscountAmount  decimal.Decimal   `json:"global_discount_amount" swaggertype:"string"`
	Subtotal              decimal.Decimal   `json:"subtotal" swaggertype:"string"`
	TaxTotal              decimal.Decimal   `json:"tax_total" swaggertype:"string"`
	GrandTotal            decimal.Decimal   `json:"grand_total" swaggertype:"string"`
	Lines                 []LineResponse    `json:"lines"`
	IssuedAt              time.Time         `json:"issued_at"`
	CancelledAt           *time.Time        `json:"cancelled_at,omitempty"`
	CancelReason          string            `json:"cancel_reason,omitempty"`
}

func toInvoiceResponse(inv *trade.Invoice) InvoiceResponse {
	lines := make([]LineResponse, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, LineResponse{
			ID:                 l.ID,
			ProductID:          l.ProductID,
			ProductName:        l.ProductName,
			Quantity:           l.Quantity,
			UnitPrice:          l.UnitPrice,
			TaxRate:            l.TaxRate,
			Discount:           toDiscountResponse(l.Discount),
			Subtotal:           l.Subtotal,
			LineDiscountAmount: l.LineDiscountAmount,
			GlobalShare:        l.GlobalShare,
			TaxAmount:          l.TaxAmount,
			Total:              l.Total,
		})
	}
	tenders := make([]TenderResponse, 0, len(inv.Tenders))
	for _, t := range inv.Tenders {
		tenders = append(tenders, TenderResponse{Method: string(t.Method), Amount: t.Amount, Reference: t.Reference})
	}
	return InvoiceResponse{
		ID:                    inv.ID,
		TenantID:              inv.TenantID,
		DraftID:               inv.DraftID,
		FiscalNumber:          inv.FiscalNumber,
		Kind:                  string(inv.Kind),
		DocumentType:          inv.Kind.DocumentType().String(),
		Status:                string(inv.Status),
		CustomerID:            inv.CustomerID,
		CustomerTaxID:         inv.CustomerTaxID,
		CashRegisterSessionID: inv.CashRegisterSessionID,
		IsCredit:              inv.IsCredit,
		ReceivableAccountID:   inv.ReceivableAccountID,
		Tenders:               tenders,
		GlobalDiscount:        toDiscountResponse(inv.GlobalDiscount),
		GlobalDiscountAmount:  inv.GlobalDiscountAmount,
		Subtotal:              inv.Subtotal,
		TaxTotal:              inv.TaxTotal,
		GrandTotal:            inv.GrandTotal,
		Lines:                 lines,
		IssuedAt:              inv.IssuedAt,
		CancelledAt:           inv.CancelledAt,
		CancelReason:          inv.CancelReason,
	}
}

func toInvoiceResponses(invoices []*trade.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv))
	}
	return out
}

// PaymentRecordResponse is one payment applied to an account
type PaymentRecordResponse struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string"`
	Reference string          `json:"reference,omitempty"`
	BatchID   *uuid.UUID      `json:"batch_id,omitempty"`
	AppliedAt time.Time       `json:"applied_at"`
}

// ReceivableResponse represents a receivable account in API responses
type ReceivableResponse struct {
	ID            uuid.UUID               `json:"id"`
	TenantID      uuid.UUID               `json:"tenant_id"`
	CustomerID    uuid.UUID               `json:"customer_id"`
	AmountCharged decimal.Decimal         `json:"amount_charged" swaggertype:"string"`
	AmountPaid    decimal.Decimal         `json:"amount_paid" swaggertype:"string"`
	Balance       decimal.Decimal         `json:"balance" swaggertype:"string"`
	Status        string                  `json:"status"`
	Payments      []PaymentRecordResponse `json:"payments"`
	PaidAt        *time.Time              `json:"paid_at,omitempty"`
	CancelledAt   *time.Time              `json:"cancelled_at,omitempty"`
	UpdatedAt     time.Time               `json:"updated_at"`
	Version       int                     `json:"version"`
}

func toReceivableResponse(ra *finance.ReceivableAccount) ReceivableResponse {
	payments := make([]PaymentRecordResponse, 0, len(ra.PaymentRecords))
	for _, p := range ra.PaymentRecords {
		payments = append(payments, PaymentRecordResponse{
			ID: p.ID, Amount: p.Amount, Reference: p.Reference, BatchID: p.BatchID, AppliedAt: p.AppliedAt,
		})
	}
	return ReceivableResponse{
		ID:            ra.ID,
		TenantID:      ra.TenantID,
		CustomerID:    ra.CustomerID,
		AmountCharged: ra.AmountCharged,
		AmountPaid:    ra.AmountPaid,
		Balance:       ra.Balance(),
		Status:        string(ra.Status),
		Payments:      payments,
		PaidAt:        ra.PaidAt,
		CancelledAt:   ra.CancelledAt,
		UpdatedAt:     ra.UpdatedAt,
		Version:       ra.Version,
	}
}

// BatchPaymentResponse lists applied and rejected batch items by position
type BatchPaymentResponse struct {
	BatchID   uuid.UUID                       `json:"batch_id"`
	Succeeded []BatchPaymentSuccessResponse   `json:"succeeded"`
	Rejected  []BatchPaymentRejectionResponse `json:"rejected"`
}

// BatchPaymentSuccessResponse is an applied batch item
type BatchPaymentSuccessResponse struct {
	Index     int             `json:"index"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string"`
	Balance   decimal.Decimal `json:"balance" swaggertype:"string"`
	Status    string          `json:"status"`
}

// BatchPaymentRejectionResponse is a skipped batch item and the reason
type BatchPaymentRejectionResponse struct {
	Index     int             `json:"index"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string"`
	Code      string          `json:"code"`
	Message   string          `json:"message"`
}

func toBatchPaymentResponse(r *settlement.BatchPaymentResult) BatchPaymentResponse {
	resp := BatchPaymentResponse{
		BatchID:   r.BatchID,
		Succeeded: make([]BatchPaymentSuccessResponse, 0, len(r.Succeeded)),
		Rejected:  make([]BatchPaymentRejectionResponse, 0, len(r.Rejected)),
	}
	for _, s := range r.Succeeded {
		resp.Succeeded = append(resp.Succeeded, BatchPaymentSuccessResponse{
			Index: s.Index, AccountID: s.AccountID, Amount: s.Amount, Balance: s.Balance, Status: string(s.Status),
		})
	}
	for _, rj := range r.Rejected {
		resp.Rejected = append(resp.Rejected, BatchPaymentRejectionResponse{
			Index: rj.Index, AccountID: rj.AccountID, Amount: rj.Amount, Code: rj.Code, Message: rj.Message,
		})
	}
	return resp
}

// SequenceBlockResponse represents a fiscal number block in API responses
type SequenceBlockResponse struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	Series        string     `json:"series"`
	DocumentType  string     `json:"document_type"`
	StartSequence int64      `json:"start_sequence"`
	EndSequence   int64      `json:"end_sequence"`
	UsedCount     int64      `json:"used_count"`
	Remaining     int64      `json:"remaining"`
	Status        string     `json:"status"`
	ExpiresAt     time.Time  `json:"expires_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	Retired       bool       `json:"retired"`
	CreatedAt     time.Time  `json:"created_at"`
	Version       int        `json:"version"`
}

func toSequenceBlockResponse(b *fiscal.SequenceBlock) SequenceBlockResponse {
	return SequenceBlockResponse{
		ID:            b.ID,
		TenantID:      b.TenantID,
		Series:        b.Series,
		DocumentType:  b.DocumentType.String(),
		StartSequence: b.StartSequence,
		EndSequence:   b.EndSequence,
		UsedCount:     b.UsedCount,
		Remaining:     b.Remaining(),
		Status:        b.Status.String(),
		ExpiresAt:     b.ExpiresAt,
		ClosedAt:      b.ClosedAt,
		Retired:       b.Retired,
		CreatedAt:     b.CreatedAt,
		Version:       b.Version,
	}
}
