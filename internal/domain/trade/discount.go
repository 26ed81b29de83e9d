package trade

import (
	"fmt"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DiscountType represents how a discount value is interpreted
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	DiscountTypeAmount     DiscountType = "AMOUNT"
)

var hundred = decimal.NewFromInt(100)

// IsValid checks if the discount type is valid
func (t DiscountType) IsValid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeAmount
}

// String returns the string representation
func (t DiscountType) String() string {
	return string(t)
}

// Discount is a percentage or a flat amount. A nil *Discount means no discount.
type Discount struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// NewDiscount creates a validated discount
func NewDiscount(discountType DiscountType, value decimal.Decimal) (*Discount, error) {
	d := &Discount{Type: discountType, Value: value}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the discount's type and bounds
func (d *Discount) Validate() error {
	switch d.Type {
	case DiscountTypePercentage:
		if d.Value.IsNegative() || d.Value.GreaterThan(hundred) {
			return shared.NewDomainError(shared.CodeInvalidDiscount, "Percentage discount must be between 0 and 100")
		}
	case DiscountTypeAmount:
		if d.Value.IsNegative() {
			return shared.NewDomainError(shared.CodeInvalidDiscount, "Amount discount cannot be negative")
		}
	default:
		return shared.NewDomainError(shared.CodeInvalidDiscount, fmt.Sprintf("Unknown discount type %q", d.Type))
	}
	return nil
}

// AmountOn returns the monetary discount against base, rounded to cents
func (d *Discount) AmountOn(base decimal.Decimal) decimal.Decimal {
	if d.Type == DiscountTypePercentage {
		return base.Mul(d.Value).Div(hundred).Round(2)
	}
	return d.Value.Round(2)
}

// Clone returns a copy so callers can't alias the stored discount
func (d *Discount) Clone() *Discount {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
