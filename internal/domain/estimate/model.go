package estimate

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebill/corebill/internal/billing"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
)

// Estimate is a quote that can later convert into an invoice. Its financial
// shape mirrors the invoice so conversion is a field-for-field carry-over.
type Estimate struct {
	ID             string               `db:"id" json:"id"`
	EstimateNumber string               `db:"estimate_number" json:"estimate_number"`
	ContactID      string               `db:"contact_id" json:"contact_id"`
	EstimateStatus types.EstimateStatus `db:"estimate_status" json:"estimate_status"`
	Currency       string               `db:"currency" json:"currency"`

	CustomerName    string        `db:"customer_name" json:"customer_name"`
	CustomerEmail   string        `db:"customer_email" json:"customer_email"`
	CustomerPhone   string        `db:"customer_phone" json:"customer_phone"`
	CustomerAddress types.Address `db:"customer_address" json:"customer_address"`

	IssueDate time.Time  `db:"issue_date" json:"issue_date"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`

	Subtotal       decimal.Decimal    `db:"subtotal" json:"subtotal"`
	TaxRate        decimal.Decimal    `db:"tax_rate" json:"tax_rate"`
	TaxAmount      decimal.Decimal    `db:"tax_amount" json:"tax_amount"`
	DiscountType   types.DiscountType `db:"discount_type" json:"discount_type,omitempty"`
	DiscountValue  decimal.Decimal    `db:"discount_value" json:"discount_value"`
	DiscountAmount decimal.Decimal    `db:"discount_amount" json:"discount_amount"`
	Total          decimal.Decimal    `db:"total" json:"total"`

	Notes    string         `db:"notes" json:"notes,omitempty"`
	Terms    string         `db:"terms" json:"terms,omitempty"`
	Metadata types.Metadata `db:"metadata" json:"metadata,omitempty"`

	SentAt     *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	AcceptedAt *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	DeclinedAt *time.Time `db:"declined_at" json:"declined_at,omitempty"`

	// Set once the estimate has been converted; conversion is one-shot
	ConvertedInvoiceID string     `db:"converted_invoice_id" json:"converted_invoice_id,omitempty"`
	ConvertedAt        *time.Time `db:"converted_at" json:"converted_at,omitempty"`

	LineItems []*LineItem `db:"-" json:"line_items"`

	types.BaseModel
}

// IsEditable reports whether financial fields may still change
func (e *Estimate) IsEditable() bool {
	return e.EstimateStatus == types.EstimateStatusDraft
}

// IsExpired checks the expiry cutoff against now; sent estimates past their
// expiry behave as expired even before the sweeper persists the status
func (e *Estimate) IsExpired(now time.Time) bool {
	if e.EstimateStatus == types.EstimateStatusExpired {
		return true
	}
	return e.EstimateStatus == types.EstimateStatusSent &&
		e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// CanTransitionTo validates a status transition against the lifecycle machine
func (e *Estimate) CanTransitionTo(target types.EstimateStatus) error {
	if err := target.Validate(); err != nil {
		return err
	}

	allowed := map[types.EstimateStatus][]types.EstimateStatus{
		types.EstimateStatusDraft:    {types.EstimateStatusSent},
		types.EstimateStatusSent:     {types.EstimateStatusAccepted, types.EstimateStatusDeclined, types.EstimateStatusExpired},
		types.EstimateStatusAccepted: {},
		types.EstimateStatusDeclined: {},
		types.EstimateStatusExpired:  {},
	}

	for _, next := range allowed[e.EstimateStatus] {
		if next == target {
			return nil
		}
	}

	return ierr.NewError("invalid estimate status transition").
		WithHintf("Cannot move estimate from %s to %s", e.EstimateStatus, target).
		WithReportableDetails(map[string]any{
			"estimate_id": e.ID,
			"from":        e.EstimateStatus,
			"to":          target,
		}).
		Mark(ierr.ErrConflict)
}

// CanConvert reports whether the estimate is eligible for conversion to an
// invoice. Sent or accepted estimates qualify, each at most once; drafts,
// declined and expired estimates do not.
func (e *Estimate) CanConvert() error {
	if e.ConvertedInvoiceID != "" {
		return ierr.NewError("estimate already converted").
			WithHintf("Estimate was already converted to invoice %s", e.ConvertedInvoiceID).
			WithReportableDetails(map[string]any{
				"estimate_id": e.ID,
				"invoice_id":  e.ConvertedInvoiceID,
			}).
			Mark(ierr.ErrConflict)
	}
	if e.EstimateStatus != types.EstimateStatusSent && e.EstimateStatus != types.EstimateStatusAccepted {
		return ierr.NewError("only sent or accepted estimates can convert").
			WithHintf("Estimate is in status %s", e.EstimateStatus).
			WithReportableDetails(map[string]any{"estimate_id": e.ID, "status": e.EstimateStatus}).
			Mark(ierr.ErrConflict)
	}
	return nil
}

// LineItem is a single row on an estimate
type LineItem struct {
	ID           string          `db:"id" json:"id"`
	EstimateID   string          `db:"estimate_id" json:"estimate_id"`
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

// BillingItems adapts estimate lines for the totals calculator
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
