package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
)

// Invoice is the aggregate root of the billing core. Customer fields are a
// point-in-time snapshot taken when the invoice leaves draft; edits to the
// contact afterwards never touch an issued invoice.
type Invoice struct {
	ID            string              `db:"id" json:"id"`
	InvoiceNumber string              `db:"invoice_number" json:"invoice_number"`
	ContactID     string              `db:"contact_id" json:"contact_id"`
	InvoiceStatus types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`
	Currency      string              `db:"currency" json:"currency"`

	// Customer snapshot, frozen at send time
	CustomerName    string        `db:"customer_name" json:"customer_name"`
	CustomerEmail   string        `db:"customer_email" json:"customer_email"`
	CustomerPhone   string        `db:"customer_phone" json:"customer_phone"`
	CustomerAddress types.Address `db:"customer_address" json:"customer_address"`

	IssueDate    time.Time          `db:"issue_date" json:"issue_date"`
	DueDate      *time.Time         `db:"due_date" json:"due_date,omitempty"`
	PaymentTerms types.PaymentTerms `db:"payment_terms" json:"payment_terms"`

	Subtotal       decimal.Decimal    `db:"subtotal" json:"subtotal"`
	TaxRate        decimal.Decimal    `db:"tax_rate" json:"tax_rate"`
	TaxAmount      decimal.Decimal    `db:"tax_amount" json:"tax_amount"`
	DiscountType   types.DiscountType `db:"discount_type" json:"discount_type,omitempty"`
	DiscountValue  decimal.Decimal    `db:"discount_value" json:"discount_value"`
	DiscountAmount decimal.Decimal    `db:"discount_amount" json:"discount_amount"`
	Total          decimal.Decimal    `db:"total" json:"total"`
	AmountPaid     decimal.Decimal    `db:"amount_paid" json:"amount_paid"`
	AmountDue      decimal.Decimal    `db:"amount_due" json:"amount_due"`

	Notes    string         `db:"notes" json:"notes,omitempty"`
	Terms    string         `db:"terms" json:"terms,omitempty"`
	Metadata types.Metadata `db:"metadata" json:"metadata,omitempty"`

	SentAt      *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	LastSentAt  *time.Time `db:"last_sent_at" json:"last_sent_at,omitempty"`
	ViewedAt    *time.Time `db:"viewed_at" json:"viewed_at,omitempty"`
	PaidAt      *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	RefundedAt  *time.Time `db:"refunded_at" json:"refunded_at,omitempty"`

	// Set when the scheduler generated this invoice from a template
	RecurringTemplateID string `db:"recurring_template_id" json:"recurring_template_id,omitempty"`
	IdempotencyKey      string `db:"idempotency_key" json:"idempotency_key,omitempty"`

	// Set once a recurring template has been derived from this invoice
	IsRecurringSource bool `db:"is_recurring_source" json:"is_recurring_source"`

	// Set when the invoice was converted from an accepted estimate
	SourceEstimateID string `db:"source_estimate_id" json:"source_estimate_id,omitempty"`

	// Version guards concurrent financial writes; every update that touches
	// money increments it and stale writers get a conflict.
	Version int `db:"version" json:"version"`

	LineItems []*LineItem `db:"-" json:"line_items"`

	types.BaseModel
}

// DisplayStatus projects the persisted status against the due date
func (i *Invoice) DisplayStatus(now time.Time) types.InvoiceDisplayStatus {
	return types.DeriveDisplayStatus(i.InvoiceStatus, i.DueDate, now)
}

// IsEditable reports whether financial fields may still change
func (i *Invoice) IsEditable() bool {
	return i.InvoiceStatus == types.InvoiceStatusDraft
}

// CanTransitionTo validates a status transition against the lifecycle
// machine. Payments drive sent/viewed/partial/paid internally; this guards
// the externally requested transitions as well.
func (i *Invoice) CanTransitionTo(target types.InvoiceStatus) error {
	if err := target.Validate(); err != nil {
		return err
	}

	allowed := map[types.InvoiceStatus][]types.InvoiceStatus{
		types.InvoiceStatusDraft:     {types.InvoiceStatusSent, types.InvoiceStatusCancelled},
		types.InvoiceStatusSent:      {types.InvoiceStatusViewed, types.InvoiceStatusPartial, types.InvoiceStatusPaid, types.InvoiceStatusCancelled},
		types.InvoiceStatusViewed:    {types.InvoiceStatusPartial, types.InvoiceStatusPaid, types.InvoiceStatusCancelled},
		types.InvoiceStatusPartial:   {types.InvoiceStatusPaid, types.InvoiceStatusCancelled, types.InvoiceStatusRefunded},
		types.InvoiceStatusPaid:      {types.InvoiceStatusRefunded},
		types.InvoiceStatusCancelled: {},
		types.InvoiceStatusRefunded:  {},
	}

	for _, next := range allowed[i.InvoiceStatus] {
		if next == target {
			return nil
		}
	}

	return ierr.NewError("invalid invoice status transition").
		WithHintf("Cannot move invoice from %s to %s", i.InvoiceStatus, target).
		WithReportableDetails(map[string]any{
			"invoice_id": i.ID,
			"from":       i.InvoiceStatus,
			"to":         target,
		}).
		Mark(ierr.ErrConflict)
}

// ApplyPayment moves paid/due balances for a payment of the given amount and
// advances the status. The caller clamps the amount to AmountDue first.
func (i *Invoice) ApplyPayment(amount decimal.Decimal, paidAt time.Time) error {
	if !i.InvoiceStatus.AcceptsPayment() {
		return ierr.NewError("invoice does not accept payments").
			WithHintf("Invoice in status %s cannot receive payments", i.InvoiceStatus).
			WithReportableDetails(map[string]any{"invoice_id": i.ID, "status": i.InvoiceStatus}).
			Mark(ierr.ErrConflict)
	}
	if !amount.IsPositive() {
		return ierr.NewError("payment amount must be positive").
			WithHint("Payment amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if amount.GreaterThan(i.AmountDue) {
		return ierr.NewError("payment exceeds amount due").
			WithHintf("Amount due is %s", i.AmountDue).
			WithReportableDetails(map[string]any{"invoice_id": i.ID, "amount_due": i.AmountDue}).
			Mark(ierr.ErrValidation)
	}

	i.AmountPaid = i.AmountPaid.Add(amount)
	i.AmountDue = i.Total.Sub(i.AmountPaid)

	if i.AmountDue.IsZero() {
		i.InvoiceStatus = types.InvoiceStatusPaid
		i.PaidAt = &paidAt
	} else {
		i.InvoiceStatus = types.InvoiceStatusPartial
	}
	return nil
}

func (i *Invoice) Validate() error {
	if err := i.InvoiceStatus.Validate(); err != nil {
		return err
	}
	if i.ContactID == "" {
		return ierr.NewError("contact_id is required").
			WithHint("Invoice must reference a contact").
			Mark(ierr.ErrValidation)
	}
	if i.Total.IsNegative() {
		return ierr.NewError("invoice total cannot be negative").
			WithHint("Totals must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	if i.AmountPaid.GreaterThan(i.Total) {
		return ierr.NewError("amount paid cannot exceed total").
			WithReportableDetails(map[string]any{
				"amount_paid": i.AmountPaid,
				"total":       i.Total,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
