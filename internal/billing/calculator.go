// Package billing holds the pure financial arithmetic shared by invoices,
// estimates and recurring templates. All amounts round to two decimal places
// (minor units) at each stage so stored totals always reconcile exactly.
package billing

import (
	"strings"

	"github.com/shopspring/decimal"

	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
)

// LineItem is the minimal shape the calculator needs from any billable line.
// Invoice, estimate and template lines all reduce to this.
type LineItem struct {
	Name      string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// Amount returns the line amount rounded to minor units
func (li LineItem) Amount() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice).Round(2)
}

// IsBlank reports whether the line carries no billable content and should be
// dropped before totalling
func (li LineItem) IsBlank() bool {
	return strings.TrimSpace(li.Name) == ""
}

// Totals is the full financial breakdown of a document
type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// ComputeTotals derives the complete financial breakdown from line items and
// document-level tax and discount settings.
//
// The pipeline is fixed: blank lines are dropped, each surviving line rounds
// to minor units, tax applies to the subtotal, and percent discounts are
// taken from the subtotal before tax. A discount large enough to push the
// total negative is clamped so the total never drops below zero;
// DiscountAmount then reflects the amount actually applied, which also caps
// percent values above 100.
func ComputeTotals(items []LineItem, taxRate decimal.Decimal, discountType types.DiscountType, discountValue decimal.Decimal) (Totals, error) {
	if taxRate.IsNegative() {
		return Totals{}, ierr.NewError("tax rate cannot be negative").
			WithHint("Tax rate must be between 0 and 100").
			Mark(ierr.ErrValidation)
	}
	if discountValue.IsNegative() {
		return Totals{}, ierr.NewError("discount value cannot be negative").
			WithHint("Discount value must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	if !discountValue.IsZero() {
		if err := discountType.Validate(); err != nil {
			return Totals{}, err
		}
	}
	if taxRateExceedsHundred(taxRate) {
		return Totals{}, ierr.NewError("tax rate cannot exceed 100").
			WithHint("Tax rate must be between 0 and 100").
			Mark(ierr.ErrValidation)
	}

	subtotal := decimal.Zero
	for _, item := range items {
		if item.IsBlank() {
			continue
		}
		if item.Quantity.IsNegative() || item.UnitPrice.IsNegative() {
			return Totals{}, ierr.NewError("line item amounts cannot be negative").
				WithHint("Quantity and unit price must be zero or positive").
				WithReportableDetails(map[string]any{"name": item.Name}).
				Mark(ierr.ErrValidation)
		}
		subtotal = subtotal.Add(item.Amount())
	}

	taxAmount := subtotal.Mul(taxRate).Div(decimal.NewFromInt(100)).Round(2)
	preDiscount := subtotal.Add(taxAmount)

	var discountAmount decimal.Decimal
	switch {
	case discountValue.IsZero():
		discountAmount = decimal.Zero
	case discountType == types.DiscountTypePercent:
		discountAmount = subtotal.Mul(discountValue).Div(decimal.NewFromInt(100)).Round(2)
	default:
		discountAmount = discountValue.Round(2)
	}

	// Clamp: the discount can zero the document out but never invert it.
	if discountAmount.GreaterThan(preDiscount) {
		discountAmount = preDiscount
	}

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      taxAmount,
		DiscountAmount: discountAmount,
		Total:          preDiscount.Sub(discountAmount),
	}, nil
}

func taxRateExceedsHundred(rate decimal.Decimal) bool {
	return rate.GreaterThan(decimal.NewFromInt(100))
}
