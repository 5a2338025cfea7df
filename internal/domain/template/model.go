package template

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebill/corebill/internal/billing"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
)

// Template drives recurring invoice generation. The scheduler materializes
// one invoice per template per due tick, then rolls NextRunDate forward by
// the template frequency using calendar arithmetic. Completion clears
// NextRunDate; only active templates carry a schedule.
type Template struct {
	ID              string                   `db:"id" json:"id"`
	Name            string                   `db:"name" json:"name"`
	ContactID       string                   `db:"contact_id" json:"contact_id"`
	Frequency       types.RecurringFrequency `db:"frequency" json:"frequency"`
	RecurringStatus types.RecurringStatus    `db:"recurring_status" json:"recurring_status"`
	Currency        string                   `db:"currency" json:"currency"`

	StartDate   time.Time  `db:"start_date" json:"start_date"`
	EndDate     *time.Time `db:"end_date" json:"end_date,omitempty"`
	NextRunDate *time.Time `db:"next_run_date" json:"next_run_date,omitempty"`

	// MaxOccurrences of zero means unbounded
	MaxOccurrences    int        `db:"max_occurrences" json:"max_occurrences"`
	InvoicesGenerated int        `db:"invoices_generated" json:"invoices_generated"`
	LastGeneratedAt   *time.Time `db:"last_generated_at" json:"last_generated_at,omitempty"`

	// AutoSend issues generated invoices immediately instead of leaving
	// them in draft
	AutoSend     bool               `db:"auto_send" json:"auto_send"`
	PaymentTerms types.PaymentTerms `db:"payment_terms" json:"payment_terms"`

	TaxRate       decimal.Decimal    `db:"tax_rate" json:"tax_rate"`
	DiscountType  types.DiscountType `db:"discount_type" json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal    `db:"discount_value" json:"discount_value"`

	Notes    string         `db:"notes" json:"notes,omitempty"`
	Metadata types.Metadata `db:"metadata" json:"metadata,omitempty"`

	// SourceInvoiceID points at the invoice this template was created from,
	// when it was seeded by "make recurring" on an existing invoice
	SourceInvoiceID string `db:"source_invoice_id" json:"source_invoice_id,omitempty"`

	LineItems []*LineItem `db:"-" json:"line_items"`

	types.BaseModel
}

// IsDue reports whether the scheduler should generate an invoice now
func (t *Template) IsDue(now time.Time) bool {
	return t.RecurringStatus == types.RecurringStatusActive &&
		t.NextRunDate != nil && !t.NextRunDate.After(now)
}

// IsExhausted reports whether the template has reached its end date or its
// occurrence cap and must complete instead of rescheduling
func (t *Template) IsExhausted(nextRun time.Time) bool {
	if t.EndDate != nil && nextRun.After(*t.EndDate) {
		return true
	}
	if t.MaxOccurrences > 0 && t.InvoicesGenerated >= t.MaxOccurrences {
		return true
	}
	return false
}

func (t *Template) Validate() error {
	if err := t.Frequency.Validate(); err != nil {
		return err
	}
	if err := t.RecurringStatus.Validate(); err != nil {
		return err
	}
	if t.ContactID == "" {
		return ierr.NewError("contact_id is required").
			WithHint("Template must reference a contact").
			Mark(ierr.ErrValidation)
	}
	if t.EndDate != nil && t.EndDate.Before(t.StartDate) {
		return ierr.NewError("end date before start date").
			WithHint("End date must be after the start date").
			Mark(ierr.ErrValidation)
	}
	if t.MaxOccurrences < 0 {
		return ierr.NewError("max occurrences cannot be negative").
			WithHint("Use zero for an unbounded template").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// LineItem is a single row carried onto each generated invoice
type LineItem struct {
	ID           string          `db:"id" json:"id"`
	TemplateID   string          `db:"template_id" json:"template_id"`
	ProductID    string          `db:"product_id" json:"product_id,omitempty"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description,omitempty"`
	Quantity     decimal.Decimal `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	TaxRate      decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	DisplayOrder int             `db:"display_order" json:"display_order"`

	types.BaseModel
}

// BillingItems adapts template lines for the totals calculator
func BillingItems(items []*LineItem) []billing.LineItem {
	out := make([]billing.LineItem, 0, len(items))
	for _, li := range items {
		out = append(out, billing.LineItem{
			Name:      li.Name,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
		})
	}
	return out
}
