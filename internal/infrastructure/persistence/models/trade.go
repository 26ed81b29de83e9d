package models

import (
	"time"

	"github.com/erp/settlement/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func discountColumnsFromDomain(d *trade.Discount) DiscountColumns {
	if d == nil {
		return DiscountColumns{}
	}
	t := string(d.Type)
	v := d.Value
	return DiscountColumns{DiscountType: &t, DiscountValue: &v}
}

// ToDomain returns nil when no discount is stored
func (c DiscountColumns) ToDomain() *trade.Discount {
	if c.DiscountType == nil || c.DiscountValue == nil {
		return nil
	}
	return &trade.Discount{Type: trade.DiscountType(*c.DiscountType), Value: *c.DiscountValue}
}

// DraftModel is the persistence model for the Draft aggregate root.
type DraftModel struct {
	TenantAggregateModel
	CustomerID           *uuid.UUID        `gorm:"type:uuid;index"`
	Status               trade.DraftStatus `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	GlobalDiscount       DiscountColumns   `gorm:"embedded;embeddedPrefix:global_"`
	GlobalDiscountAmount decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Subtotal             decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	TaxTotal             decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	GrandTotal           decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	InvoiceID            *uuid.UUID        `gorm:"type:uuid"`
	CompletedAt          *time.Time
	CancelledAt          *time.Time
	Lines                []DraftLineModel `gorm:"foreignKey:DraftID;references:ID"`
}

// TableName returns the table name for GORM
func (DraftModel) TableName() string {
	return "drafts"
}

// ToDomain converts the persistence model to a domain Draft.
func (m *DraftModel) ToDomain() *trade.Draft {
	draft := &trade.Draft{
		TenantAggregateRoot:  m.ToDomainTenantAggregateRoot(),
		CustomerID:           m.CustomerID,
		Status:               m.Status,
		GlobalDiscount:       m.GlobalDiscount.ToDomain(),
		GlobalDiscountAmount: m.GlobalDiscountAmount,
		Subtotal:             m.Subtotal,
		TaxTotal:             m.TaxTotal,
		GrandTotal:           m.GrandTotal,
		InvoiceID:            m.InvoiceID,
		CompletedAt:          m.CompletedAt,
		CancelledAt:          m.CancelledAt,
		Lines:                make([]trade.DocumentLine, len(m.Lines)),
	}
	for i := range m.Lines {
		draft.Lines[i] = *m.Lines[i].ToDomain()
	}
	return draft
}

// FromDomain populates the persistence model from a domain Draft.
func (m *DraftModel) FromDomain(d *trade.Draft) {
	m.FromDomainTenantAggregateRoot(d.TenantAggregateRoot)
	m.CustomerID = d.CustomerID
	m.Status = d.Status
	m.GlobalDiscount = discountColumnsFromDomain(d.GlobalDiscount)
	m.GlobalDiscountAmount = d.GlobalDiscountAmount
	m.Subtotal = d.Subtotal
	m.TaxTotal = d.TaxTotal
	m.GrandTotal = d.GrandTotal
	m.InvoiceID = d.InvoiceID
	m.CompletedAt = d.CompletedAt
	m.CancelledAt = d.CancelledAt
	m.Lines = make([]DraftLineModel, len(d.Lines))
	for i := range d.Lines {
		m.Lines[i] = *DraftLineModelFromDomain(&d.Lines[i], d.TenantID, i)
	}
}

// DraftModelFromDomain creates a new persistence model from a domain Draft.
func DraftModelFromDomain(d *trade.Draft) *DraftModel {
	m := &DraftModel{}
	m.FromDomain(d)
	return m
}

// DraftLineModel is the persistence model for a draft line. Position keeps
// the order lines were added in, which decides where rounding lands.
type DraftLineModel struct {
	BaseModel
	TenantID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	DraftID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position           int             `gorm:"not null"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName        string          `gorm:"type:varchar(200);not null"`
	Quantity           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxRate            decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	Discount           DiscountColumns `gorm:"embedded"`
	Removed            bool            `gorm:"not null;default:false"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineDiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	GlobalShare        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total              decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (DraftLineModel) TableName() string {
	return "draft_lines"
}

// ToDomain converts the persistence model to a domain DocumentLine.
func (m *DraftLineModel) ToDomain() *trade.DocumentLine {
	return &trade.DocumentLine{
		ID:                 m.ID,
		DraftID:            m.DraftID,
		ProductID:          m.ProductID,
		ProductName:        m.ProductName,
		Quantity:           m.Quantity,
		UnitPrice:          m.UnitPrice,
		TaxRate:            m.TaxRate,
		Discount:           m.Discount.ToDomain(),
		Removed:            m.Removed,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
		Subtotal:           m.Subtotal,
		LineDiscountAmount: m.LineDiscountAmount,
		GlobalShare:        m.GlobalShare,
		TaxAmount:          m.TaxAmount,
		Total:              m.Total,
	}
}

// DraftLineModelFromDomain creates a new persistence model from a domain DocumentLine.
func DraftLineModelFromDomain(l *trade.DocumentLine, tenantID uuid.UUID, position int) *DraftLineModel {
	return &DraftLineModel{
		BaseModel:          BaseModel{ID: l.ID, CreatedAt: l.CreatedAt, UpdatedAt: l.UpdatedAt},
		TenantID:           tenantID,
		DraftID:            l.DraftID,
		Position:           position,
		ProductID:          l.ProductID,
		ProductName:        l.ProductName,
		Quantity:           l.Quantity,
		UnitPrice:          l.UnitPrice,
		TaxRate:            l.TaxRate,
		Discount:           discountColumnsFromDomain(l.Discount),
		Removed:            l.Removed,
		Subtotal:           l.Subtotal,
		LineDiscountAmount: l.LineDiscountAmount,
		GlobalShare:        l.GlobalShare,
		TaxAmount:          l.TaxAmount,
		Total:              l.Total,
	}
}

// InvoiceModel is the persistence model for the Invoice aggregate root.
// Cancelled invoices stay in the table so their fiscal numbers remain consumed;
// (tenant_id, fiscal_number) is unique, see the migrations.
type InvoiceModel struct {
	TenantAggregateModel
	DraftID               uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex"`
	FiscalNumber          string              `gorm:"type:varchar(20);not null;index"`
	Kind                  trade.InvoiceKind   `gorm:"type:varchar(20);not null"`
	Status                trade.InvoiceStatus `gorm:"type:varchar(20);not null;default:'COMPLETED';index"`
	CustomerID            *uuid.UUID          `gorm:"type:uuid;index"`
	CustomerTaxID         string              `gorm:"type:varchar(20)"`
	CashRegisterSessionID uuid.UUID           `gorm:"type:uuid;not null;index"`
	IsCredit              bool                `gorm:"not null;default:false"`
	ReceivableAccountID   *uuid.UUID          `gorm:"type:uuid;index"`
	Tenders               trade.Tenders       `gorm:"type:jsonb;default:'[]'"`
	GlobalDiscount        DiscountColumns     `gorm:"embedded;embeddedPrefix:global_"`
	GlobalDiscountAmount  decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	Subtotal              decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	TaxTotal              decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	GrandTotal            decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	IssuedAt              time.Time           `gorm:"not null;index"`
	Deleted               bool                `gorm:"not null;default:false"`
	CancelledAt           *time.Time
	CancelReason          string             `gorm:"type:varchar(500)"`
	Lines                 []InvoiceLineModel `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice.
func (m *InvoiceModel) ToDomain() *trade.Invoice {
	tenders := m.Tenders
	if tenders == nil {
		tenders = trade.Tenders{}
	}
	inv := &trade.Invoice{
		TenantAggregateRoot:   m.ToDomainTenantAggregateRoot(),
		DraftID:               m.DraftID,
		FiscalNumber:          m.FiscalNumber,
		Kind:                  m.Kind,
		Status:                m.Status,
		CustomerID:            m.CustomerID,
		CustomerTaxID:         m.CustomerTaxID,
		CashRegisterSessionID: m.CashRegisterSessionID,
		IsCredit:              m.IsCredit,
		ReceivableAccountID:   m.ReceivableAccountID,
		Tenders:               tenders,
		GlobalDiscount:        m.GlobalDiscount.ToDomain(),
		GlobalDiscountAmount:  m.GlobalDiscountAmount,
		Subtotal:              m.Subtotal,
		TaxTotal:              m.TaxTotal,
		GrandTotal:            m.GrandTotal,
		IssuedAt:              m.IssuedAt,
		Deleted:               m.Deleted,
		CancelledAt:           m.CancelledAt,
		CancelReason:          m.CancelReason,
		Lines:                 make([]trade.InvoiceLine, len(m.Lines)),
	}
	for i := range m.Lines {
		inv.Lines[i] = *m.Lines[i].ToDomain()
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice.
func (m *InvoiceModel) FromDomain(inv *trade.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.DraftID = inv.DraftID
	m.FiscalNumber = inv.FiscalNumber
	m.Kind = inv.Kind
	m.Status = inv.Status
	m.CustomerID = inv.CustomerID
	m.CustomerTaxID = inv.CustomerTaxID
	m.CashRegisterSessionID = inv.CashRegisterSessionID
	m.IsCredit = inv.IsCredit
	m.ReceivableAccountID = inv.ReceivableAccountID
	m.Tenders = inv.Tenders
	m.GlobalDiscount = discountColumnsFromDomain(inv.GlobalDiscount)
	m.GlobalDiscountAmount = inv.GlobalDiscountAmount
	m.Subtotal = inv.Subtotal
	m.TaxTotal = inv.TaxTotal
	m.GrandTotal = inv.GrandTotal
	m.IssuedAt = inv.IssuedAt
	m.Deleted = inv.Deleted
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason
	m.Lines = make([]InvoiceLineModel, len(inv.Lines))
	for i := range inv.Lines {
		m.Lines[i] = *InvoiceLineModelFromDomain(&inv.Lines[i], inv.TenantID, i, inv.IssuedAt)
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *trade.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceLineModel is the persistence model for an invoice line snapshot
type InvoiceLineModel struct {
	BaseModel
	TenantID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position           int             `gorm:"not null"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName        string          `gorm:"type:varchar(200);not null"`
	Quantity           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxRate            decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	Discount           DiscountColumns `gorm:"embedded"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LineDiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	GlobalShare        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Total              decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineModel) TableName() string {
	return "invoice_lines"
}

// ToDomain converts the persistence model to a domain InvoiceLine.
func (m *InvoiceLineModel) ToDomain() *trade.InvoiceLine {
	return &trade.InvoiceLine{
		ID:                 m.ID,
		InvoiceID:          m.InvoiceID,
		ProductID:          m.ProductID,
		ProductName:        m.ProductName,
		Quantity:           m.Quantity,
		UnitPrice:          m.UnitPrice,
		TaxRate:            m.TaxRate,
		Discount:           m.Discount.ToDomain(),
		Subtotal:           m.Subtotal,
		LineDiscountAmount: m.LineDiscountAmount,
		GlobalShare:        m.GlobalShare,
		TaxAmount:          m.TaxAmount,
		Total:              m.Total,
	}
}

// InvoiceLineModelFromDomain creates a new persistence model from a domain InvoiceLine.
func InvoiceLineModelFromDomain(l *trade.InvoiceLine, tenantID uuid.UUID, position int, issuedAt time.Time) *InvoiceLineModel {
	return &InvoiceLineModel{
		BaseModel:          BaseModel{ID: l.ID, CreatedAt: issuedAt, UpdatedAt: issuedAt},
		TenantID:           tenantID,
		InvoiceID:          l.InvoiceID,
		Position:           position,
		ProductID:          l.ProductID,
		ProductName:        l.ProductName,
		Quantity:           l.Quantity,
		UnitPrice:          l.UnitPrice,
		TaxRate:            l.TaxRate,
		Discount:           discountColumnsFromDomain(l.Discount),
		Subtotal:           l.Subtotal,
		LineDiscountAmount: l.LineDiscountAmount,
		GlobalShare:        l.GlobalShare,
		TaxAmount:          l.TaxAmount,
		Total:              l.Total,
	}
}
