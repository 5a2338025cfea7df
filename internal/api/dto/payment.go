package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebill/corebill/internal/domain/payment"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
	"github.com/corebill/corebill/internal/validator"
)

// RecordPaymentRequest applies a manually collected payment to an invoice
type RecordPaymentRequest struct {
	InvoiceID     string              `json:"invoice_id" validate:"required"`
	Amount        decimal.Decimal     `json:"amount" validate:"required"`
	PaymentMethod types.PaymentMethod `json:"payment_method" validate:"required"`
	PaymentDate   *time.Time          `json:"payment_date,omitempty"`
	Reference     string              `json:"reference,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	Metadata      types.Metadata      `json:"metadata,omitempty"`
}

func (r *RecordPaymentRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("payment amount must be positive").
			WithHint("Payment amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return r.PaymentMethod.Validate()
}

// ChargeInvoiceRequest collects a card payment through the gateway for the
// full amount due
type ChargeInvoiceRequest struct {
	InvoiceID string `json:"invoice_id" validate:"required"`
}

func (r *ChargeInvoiceRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// CreatePaymentLinkRequest asks for a hosted checkout URL for an invoice
type CreatePaymentLinkRequest struct {
	InvoiceID string `json:"invoice_id" validate:"required"`
}

func (r *CreatePaymentLinkRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// PaymentResponse is the client-facing payment shape
type PaymentResponse struct {
	*payment.Payment
}

// NewPaymentResponse builds a payment response
func NewPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{Payment: p}
}

// PaymentLinkResponse carries a hosted checkout URL
type PaymentLinkResponse struct {
	InvoiceID  string `json:"invoice_id"`
	SessionID  string `json:"session_id"`
	PaymentURL string `json:"payment_url"`
}

// ListPaymentsResponse is a paginated list of payments
type ListPaymentsResponse struct {
	Items []*PaymentResponse `json:"items"`
	Total int                `json:"total"`
}
