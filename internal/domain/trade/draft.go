package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// DraftStatus represents the status of a draft document
type DraftStatus string

const (
	DraftStatusOpen      DraftStatus = "OPEN"
	DraftStatusPending   DraftStatus = "PENDING" // held at the register
	DraftStatusCompleted DraftStatus = "COMPLETED"
	DraftStatusCancelled DraftStatus = "CANCELLED"
)

// IsValid checks if the status is a valid DraftStatus
func (s DraftStatus) IsValid() bool {
	switch s {
	case DraftStatusOpen, DraftStatusPending, DraftStatusCompleted, DraftStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of DraftStatus
func (s DraftStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s DraftStatus) CanTransitionTo(target DraftStatus) bool {
	switch s {
	case DraftStatusOpen:
		return target == DraftStatusPending || target == DraftStatusCompleted || target == DraftStatusCancelled
	case DraftStatusPending:
		return target == DraftStatusOpen || target == DraftStatusCancelled
	case DraftStatusCompleted, DraftStatusCancelled:
		return false
	}
	return false
}

// DocumentLine is one line of a draft. Quantity, price, tax rate and the
// line discount are inputs; every money amount is derived by Prorate.
type DocumentLine struct {
	ID          uuid.UUID
	DraftID     uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
	Discount    *Discount
	Removed     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Subtotal           decimal.Decimal
	LineDiscountAmount decimal.Decimal
	GlobalShare        decimal.Decimal
	TaxAmount          decimal.Decimal
	Total              decimal.Decimal
}

func (l *DocumentLine) prorationLine() ProrationLine {
	return ProrationLine{
		UnitPrice: l.UnitPrice,
		Quantity:  l.Quantity,
		TaxRate:   l.TaxRate,
		Discount:  l.Discount,
	}
}

func (l *DocumentLine) setAmounts(a LineAmounts) {
	l.Subtotal = a.Subtotal
	l.LineDiscountAmount = a.LineDiscount
	l.GlobalShare = a.GlobalShare
	l.TaxAmount = a.Tax
	l.Total = a.Total
}

func (l *DocumentLine) clearAmounts() {
	l.setAmounts(LineAmounts{
		Subtotal: decimal.Zero, LineDiscount: decimal.Zero, GlobalShare: decimal.Zero,
		Tax: decimal.Zero, Total: decimal.Zero,
	})
}

// Draft is a pre-invoice being assembled at the register. It is mutable
// only while Open.
type Draft struct {
	shared.TenantAggregateRoot
	CustomerID           *uuid.UUID
	Status               DraftStatus
	Lines                []DocumentLine
	GlobalDiscount       *Discount
	GlobalDiscountAmount decimal.Decimal
	Subtotal             decimal.Decimal
	TaxTotal             decimal.Decimal
	GrandTotal           decimal.Decimal
	InvoiceID            *uuid.UUID
	CompletedAt          *time.Time
	CancelledAt          *time.Time
}

// NewDraft creates an empty Open draft
func NewDraft(tenantID uuid.UUID, customerID *uuid.UUID) *Draft {
	return &Draft{
		TenantAggregateRoot:  shared.NewTenantAggregateRoot(tenantID),
		CustomerID:           customerID,
		Status:               DraftStatusOpen,
		Lines:                make([]DocumentLine, 0),
		GlobalDiscountAmount: decimal.Zero,
		Subtotal:             decimal.Zero,
		TaxTotal:             decimal.Zero,
		GrandTotal:           decimal.Zero,
	}
}

// ActiveLines returns the lines that have not been removed
func (d *Draft) ActiveLines() []DocumentLine {
	return lo.Filter(d.Lines, func(l DocumentLine, _ int) bool { return !l.Removed })
}

// ActiveLineCount returns the number of lines that have not been removed
func (d *Draft) ActiveLineCount() int {
	return lo.CountBy(d.Lines, func(l DocumentLine) bool { return !l.Removed })
}

// IsOpen returns true if the draft can be edited or finalized
func (d *Draft) IsOpen() bool {
	return d.Status == DraftStatusOpen
}

// Recalculate derives every line amount and the document totals from the
// stored inputs. With no active lines all totals are zero.
func (d *Draft) Recalculate() error {
	active := make([]int, 0, len(d.Lines))
	for i := range d.Lines {
		if d.Lines[i].Removed {
			d.Lines[i].clearAmounts()
			continue
		}
		active = append(active, i)
	}

	if len(active) == 0 {
		d.GlobalDiscountAmount = decimal.Zero
		d.Subtotal = decimal.Zero
		d.TaxTotal = decimal.Zero
		d.GrandTotal = decimal.Zero
		return nil
	}

	inputs := lo.Map(active, func(i int, _ int) ProrationLine { return d.Lines[i].prorationLine() })
	result, err := Prorate(inputs, d.GlobalDiscount)
	if err != nil {
		return err
	}

	for j, i := range active {
		d.Lines[i].setAmounts(result.Lines[j])
	}
	d.GlobalDiscountAmount = result.GlobalDiscount
	d.Subtotal = result.Subtotal
	d.TaxTotal = result.TaxTotal
	d.GrandTotal = result.GrandTotal
	return nil
}

// mutate applies change and recomputes totals; on any failure the draft
// is restored to its previous state.
func (d *Draft) mutate(now time.Time, change func() error) error {
	if !d.IsOpen() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot modify draft in %s status", d.Status))
	}

	lines := make([]DocumentLine, len(d.Lines))
	copy(lines, d.Lines)
	global := d.GlobalDiscount
	globalAmount, subtotal, taxTotal, grandTotal := d.GlobalDiscountAmount, d.Subtotal, d.TaxTotal, d.GrandTotal

	err := change()
	if err == nil {
		err = d.Recalculate()
	}
	if err != nil {
		d.Lines = lines
		d.GlobalDiscount = global
		d.GlobalDiscountAmount, d.Subtotal, d.TaxTotal, d.GrandTotal = globalAmount, subtotal, taxTotal, grandTotal
		return err
	}

	d.UpdatedAt = now
	d.IncrementVersion()
	return nil
}

func (d *Draft) findActiveLine(lineID uuid.UUID) (int, error) {
	for i := range d.Lines {
		if d.Lines[i].ID == lineID && !d.Lines[i].Removed {
			return i, nil
		}
	}
	return -1, shared.NewDomainError(shared.CodeNotFound, "Draft line not found")
}

// AddLine appends a product line
func (d *Draft) AddLine(
	productID uuid.UUID,
	productName string,
	quantity, unitPrice, taxRate decimal.Decimal,
	discount *Discount,
	now time.Time,
) (*DocumentLine, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	productName = strings.TrimSpace(productName)
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product name cannot be empty")
	}

	line := DocumentLine{
		ID:          uuid.New(),
		DraftID:     d.ID,
		ProductID:   productID,
		ProductName: productName,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TaxRate:     taxRate,
		Discount:    discount.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := d.mutate(now, func() error {
		d.Lines = append(d.Lines, line)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d.Lines[len(d.Lines)-1], nil
}

// RemoveLine soft-removes a line. Removing the last active line also drops
// the global discount, since there is nothing left for it to apply to.
func (d *Draft) RemoveLine(lineID uuid.UUID, now time.Time) error {
	return d.mutate(now, func() error {
		i, err := d.findActiveLine(lineID)
		if err != nil {
			return err
		}
		d.Lines[i].Removed = true
		d.Lines[i].UpdatedAt = now
		if d.ActiveLineCount() == 0 {
			d.GlobalDiscount = nil
		}
		return nil
	})
}

// ApplyLineDiscount sets or, with nil, clears a line's own discount
func (d *Draft) ApplyLineDiscount(lineID uuid.UUID, discount *Discount, now time.Time) error {
	return d.mutate(now, func() error {
		i, err := d.findActiveLine(lineID)
		if err != nil {
			return err
		}
		d.Lines[i].Discount = discount.Clone()
		d.Lines[i].UpdatedAt = now
		return nil
	})
}

// ApplyGlobalDiscount replaces the document-level discount
func (d *Draft) ApplyGlobalDiscount(discount *Discount, now time.Time) error {
	if discount == nil {
		return shared.NewDomainError(shared.CodeInvalidDiscount, "Discount is required")
	}
	return d.mutate(now, func() error {
		if d.ActiveLineCount() == 0 {
			return shared.NewDomainError(shared.CodeInvalidDiscount, "Nothing to discount: draft has no lines")
		}
		d.GlobalDiscount = discount.Clone()
		return nil
	})
}

// RemoveGlobalDiscount drops the document-level discount
func (d *Draft) RemoveGlobalDiscount(now time.Time) error {
	return d.mutate(now, func() error {
		d.GlobalDiscount = nil
		return nil
	})
}

// Hold parks an Open draft
func (d *Draft) Hold(now time.Time) error {
	return d.transition(DraftStatusPending, now)
}

// Resume reopens a held draft
func (d *Draft) Resume(now time.Time) error {
	return d.transition(DraftStatusOpen, now)
}

// Discard cancels a draft that was never finalized
func (d *Draft) Discard(now time.Time) error {
	if err := d.transition(DraftStatusCancelled, now); err != nil {
		return err
	}
	for i := range d.Lines {
		d.Lines[i].Removed = true
		d.Lines[i].UpdatedAt = now
	}
	d.CancelledAt = &now
	d.AddDomainEvent(NewDraftDiscardedEvent(d))
	return nil
}

// EnsureFinalizable checks the draft is Open and has at least one line
func (d *Draft) EnsureFinalizable() error {
	if !d.IsOpen() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot finalize draft in %s status", d.Status))
	}
	if d.ActiveLineCount() == 0 {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot finalize a draft without lines")
	}
	return nil
}

// MarkCompleted records that the draft became the given invoice
func (d *Draft) MarkCompleted(invoiceID uuid.UUID, now time.Time) error {
	if err := d.EnsureFinalizable(); err != nil {
		return err
	}
	if err := d.transition(DraftStatusCompleted, now); err != nil {
		return err
	}
	d.InvoiceID = &invoiceID
	d.CompletedAt = &now
	return nil
}

func (d *Draft) transition(target DraftStatus, now time.Time) error {
	if !d.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot move draft from %s to %s", d.Status, target))
	}
	d.Status = target
	d.UpdatedAt = now
	d.IncrementVersion()
	return nil
}
