package trade

import (
	"fmt"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ProrationLine is the input for one document line
type ProrationLine struct {
	UnitPrice decimal.Decimal
	Quantity  decimal.Decimal
	TaxRate   decimal.Decimal // percentage, e.g. 18 for 18%
	Discount  *Discount
}

// LineAmounts holds the computed money amounts of one line
type LineAmounts struct {
	Subtotal     decimal.Decimal // round2(price * qty)
	LineDiscount decimal.Decimal
	Base         decimal.Decimal // Subtotal - LineDiscount
	GlobalShare  decimal.Decimal
	FinalBase    decimal.Decimal // Base - GlobalShare
	Tax          decimal.Decimal
	Total        decimal.Decimal // FinalBase + Tax
}

// ProrationResult holds line and document totals
type ProrationResult struct {
	Lines          []LineAmounts
	GlobalBase     decimal.Decimal
	GlobalDiscount decimal.Decimal
	Subtotal       decimal.Decimal
	TaxTotal       decimal.Decimal
	GrandTotal     decimal.Decimal
}

func sumDecimals(values []decimal.Decimal) decimal.Decimal {
	return lo.Reduce(values, func(acc decimal.Decimal, v decimal.Decimal, _ int) decimal.Decimal {
		return acc.Add(v)
	}, decimal.Zero)
}

// Prorate computes line discounts, spreads the optional global discount
// across lines in proportion to their discounted base, and computes tax on
// what is left. The rounding remainder of the spread lands on the last line
// carrying a base so that the shares add up to the global amount exactly.
// No share is ever negative or larger than its line's base.
//
// Prorate is pure: the same input always produces the same output, and
// Prorate(lines, nil) is the undiscounted computation.
func Prorate(lines []ProrationLine, global *Discount) (*ProrationResult, error) {
	if len(lines) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "At least one line is required")
	}

	result := &ProrationResult{Lines: make([]LineAmounts, len(lines))}

	for i, line := range lines {
		if !line.Quantity.IsPositive() {
			return nil, shared.NewDomainError(shared.CodeInvalidQuantity, fmt.Sprintf("Line %d: quantity must be positive", i+1))
		}
		if line.UnitPrice.IsNegative() {
			return nil, shared.NewDomainError(shared.CodeInvalidAmount, fmt.Sprintf("Line %d: unit price cannot be negative", i+1))
		}
		if line.TaxRate.IsNegative() || line.TaxRate.GreaterThan(hundred) {
			return nil, shared.NewDomainError("INVALID_TAX_RATE", fmt.Sprintf("Line %d: tax rate must be between 0 and 100", i+1))
		}

		subtotal := line.UnitPrice.Mul(line.Quantity).Round(2)
		lineDiscount := decimal.Zero
		if line.Discount != nil {
			if err := line.Discount.Validate(); err != nil {
				return nil, err
			}
			lineDiscount = line.Discount.AmountOn(subtotal)
			if lineDiscount.GreaterThan(subtotal) {
				return nil, shared.NewDomainError(shared.CodeDiscountExceedsBase,
					fmt.Sprintf("Line %d: discount %s exceeds line subtotal %s", i+1, lineDiscount.StringFixed(2), subtotal.StringFixed(2)))
			}
		}

		result.Lines[i] = LineAmounts{
			Subtotal:     subtotal,
			LineDiscount: lineDiscount,
			Base:         subtotal.Sub(lineDiscount),
			GlobalShare:  decimal.Zero,
		}
	}

	result.GlobalBase = sumDecimals(lo.Map(result.Lines, func(l LineAmounts, _ int) decimal.Decimal { return l.Base }))

	if global != nil {
		if err := global.Validate(); err != nil {
			return nil, err
		}
		if !result.GlobalBase.IsPositive() {
			return nil, shared.NewDomainError(shared.CodeInvalidDiscount, "Nothing to discount: document base is zero")
		}
		globalAmount := global.AmountOn(result.GlobalBase)
		if globalAmount.GreaterThan(result.GlobalBase) {
			return nil, shared.NewDomainError(shared.CodeDiscountExceedsBase,
				fmt.Sprintf("Global discount %s exceeds document base %s", globalAmount.StringFixed(2), result.GlobalBase.StringFixed(2)))
		}
		result.GlobalDiscount = globalAmount

		spreadGlobal(result.Lines, result.GlobalBase, globalAmount)
	} else {
		result.GlobalDiscount = decimal.Zero
	}

	for i, line := range lines {
		amounts := &result.Lines[i]
		amounts.FinalBase = amounts.Base.Sub(amounts.GlobalShare)
		amounts.Tax = amounts.FinalBase.Mul(line.TaxRate).Div(hundred).Round(2)
		amounts.Total = amounts.FinalBase.Add(amounts.Tax)
	}

	result.Subtotal = sumDecimals(lo.Map(result.Lines, func(l LineAmounts, _ int) decimal.Decimal { return l.FinalBase }))
	result.TaxTotal = sumDecimals(lo.Map(result.Lines, func(l LineAmounts, _ int) decimal.Decimal { return l.Tax }))
	result.GrandTotal = result.Subtotal.Add(result.TaxTotal)
	return result, nil
}

// spreadGlobal assigns each line its cent-rounded proportional share of
// amount and settles the rounding remainder on the last positive-base line.
// A remainder that does not fit in [0, base] on that line spills backwards
// onto earlier lines, each kept within [0, base]. amount never exceeds
// globalBase, so the spill always finds room.
func spreadGlobal(lines []LineAmounts, globalBase, amount decimal.Decimal) {
	_, last, _ := lo.FindLastIndexOf(lines, func(l LineAmounts) bool { return l.Base.IsPositive() })

	allocated := decimal.Zero
	for i := range lines {
		if i == last {
			continue
		}
		share := decimal.Min(amount.Mul(lines[i].Base).Div(globalBase).Round(2), lines[i].Base)
		lines[i].GlobalShare = share
		allocated = allocated.Add(share)
	}

	rest := amount.Sub(allocated)
	lines[last].GlobalShare = decimal.Min(decimal.Max(rest, decimal.Zero), lines[last].Base)
	spill := rest.Sub(lines[last].GlobalShare)

	for i := last - 1; i >= 0 && !spill.IsZero(); i-- {
		l := &lines[i]
		if spill.IsPositive() {
			take := decimal.Min(l.Base.Sub(l.GlobalShare), spill)
			l.GlobalShare = l.GlobalShare.Add(take)
			spill = spill.Sub(take)
		} else {
			take := decimal.Min(l.GlobalShare, spill.Neg())
			l.GlobalShare = l.GlobalShare.Sub(take)
			spill = spill.Add(take)
		}
	}
}
