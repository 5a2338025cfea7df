package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
)

// Payment is an immutable record of money applied to an invoice. It is never
// updated after creation; corrections happen through refunds on the invoice.
//
// Amount is what was applied to the invoice. When a payer tenders more than
// the amount due, the applied amount is clamped and the excess lands in
// OverpaymentAmount so it stays visible for reconciliation.
type Payment struct {
	ID                string              `db:"id" json:"id"`
	InvoiceID         string              `db:"invoice_id" json:"invoice_id"`
	Amount            decimal.Decimal     `db:"amount" json:"amount"`
	OverpaymentAmount decimal.Decimal     `db:"overpayment_amount" json:"overpayment_amount"`
	Currency          string              `db:"currency" json:"currency"`
	PaymentMethod     types.PaymentMethod `db:"payment_method" json:"payment_method"`
	PaymentDate       time.Time           `db:"payment_date" json:"payment_date"`
	Reference         string              `db:"reference" json:"reference,omitempty"`
	Notes             string              `db:"notes" json:"notes,omitempty"`

	// Gateway fields, set only for card and payment link collections
	GatewayPaymentID string `db:"gateway_payment_id" json:"gateway_payment_id,omitempty"`
	PaymentLinkURL   string `db:"payment_link_url" json:"payment_link_url,omitempty"`

	IdempotencyKey string         `db:"idempotency_key" json:"idempotency_key,omitempty"`
	Metadata       types.Metadata `db:"metadata" json:"metadata,omitempty"`

	types.BaseModel
}

func (p *Payment) Validate() error {
	if p.InvoiceID == "" {
		return ierr.NewError("invoice_id is required").
			WithHint("Payment must reference an invoice").
			Mark(ierr.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return ierr.NewError("payment amount must be positive").
			WithHint("Payment amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if p.OverpaymentAmount.IsNegative() {
		return ierr.NewError("overpayment amount cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return p.PaymentMethod.Validate()
}

// Repository provides access to payment storage. There is no Update: payment
// records are append-only.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Payment, error)
	List(ctx context.Context, filter *types.PaymentFilter) ([]*Payment, error)
	Count(ctx context.Context, filter *types.PaymentFilter) (int, error)
}
