package invoice

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/corebill/corebill/internal/billing"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
)

// LineItem is a single billable row on an invoice. TaxRate here is carried
// for display only; the invoice-level rate governs the tax computation.
type LineItem struct {
	ID           string          `db:"id" json:"id"`
	InvoiceID    string          `db:"invoice_id" json:"invoice_id"`
	ProductID    string          `db:"product_id" json:"product_id,omitempty"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description,omitempty"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	TaxRate      decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	DisplayOrder int             `db:"display_order" json:"display_order"`

	types.BaseModel
}

func (li *LineItem) Validate() error {
	if li.Quantity.IsNegative() {
		return ierr.NewError("line item quantity cannot be negative").
			WithHint("Quantity must be zero or positive").
			WithReportableDetails(map[string]any{"name": li.Name}).
			Mark(ierr.ErrValidation)
	}
	if li.UnitPrice.IsNegative() {
		return ierr.NewError("line item unit price cannot be negative").
			WithHint("Unit price must be zero or positive").
			WithReportableDetails(map[string]any{"name": li.Name}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToBillingItem adapts the line for the totals calculator
func (li *LineItem) ToBillingItem() billing.LineItem {
	return billing.LineItem{
		Name:      li.Name,
		Quantity:  li.Quantity,
		UnitPrice: li.UnitPrice,
	}
}

// BillingItems adapts a full slice for the totals calculator
func BillingItems(items []*LineItem) []billing.LineItem {
	out := make([]billing.LineItem, 0, len(items))
	for _, li := range items {
		out = append(out, li.ToBillingItem())
	}
	return out
}

// ValidCount returns how many items carry a non-empty name. Only those
// contribute to the financial totals, and an invoice needs at least one to
// be sendable.
func ValidCount(items []*LineItem) int {
	n := 0
	for _, li := range items {
		if strings.TrimSpace(li.Name) != "" {
			n++
		}
	}
	return n
}
