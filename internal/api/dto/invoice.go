package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebill/corebill/internal/domain/invoice"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
	"github.com/corebill/corebill/internal/validator"
)

// LineItemRequest is the shared line item input for invoices, estimates and
// recurring templates
type LineItemRequest struct {
	ProductID   string          `json:"product_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate,omitempty"`
}

func (r *LineItemRequest) Validate() error {
	if r.Quantity.IsNegative() {
		return ierr.NewError("quantity cannot be negative").
			WithHint("Line item quantity must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	if r.UnitPrice.IsNegative() {
		return ierr.NewError("unit price cannot be negative").
			WithHint("Line item unit price must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CreateInvoiceRequest creates a draft invoice
type CreateInvoiceRequest struct {
	ContactID     string              `json:"contact_id" validate:"required"`
	Currency      string              `json:"currency,omitempty"`
	IssueDate     *time.Time          `json:"issue_date,omitempty"`
	PaymentTerms  *types.PaymentTerms `json:"payment_terms,omitempty"`
	DueDate       *time.Time          `json:"due_date,omitempty"`
	TaxRate       decimal.Decimal     `json:"tax_rate,omitempty"`
	DiscountType  types.DiscountType  `json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal     `json:"discount_value,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	Terms         string              `json:"terms,omitempty"`
	Metadata      types.Metadata      `json:"metadata,omitempty"`
	LineItems     []LineItemRequest   `json:"line_items"`
}

func (r *CreateInvoiceRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if r.PaymentTerms != nil {
		if err := r.PaymentTerms.Validate(); err != nil {
			return err
		}
	}
	for i := range r.LineItems {
		if err := r.LineItems[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// UpdateInvoiceRequest edits a draft invoice. Nil fields are left unchanged.
type UpdateInvoiceRequest struct {
	IssueDate     *time.Time          `json:"issue_date,omitempty"`
	PaymentTerms  *types.PaymentTerms `json:"payment_terms,omitempty"`
	DueDate       *time.Time          `json:"due_date,omitempty"`
	TaxRate       *decimal.Decimal    `json:"tax_rate,omitempty"`
	DiscountType  *types.DiscountType `json:"discount_type,omitempty"`
	DiscountValue *decimal.Decimal    `json:"discount_value,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	Terms         *string             `json:"terms,omitempty"`
	Metadata      types.Metadata      `json:"metadata,omitempty"`
	LineItems     []LineItemRequest   `json:"line_items,omitempty"`
}

func (r *UpdateInvoiceRequest) Validate() error {
	if r.PaymentTerms != nil {
		if err := r.PaymentTerms.Validate(); err != nil {
			return err
		}
	}
	for i := range r.LineItems {
		if err := r.LineItems[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// InvoiceResponse is the client-facing invoice shape. DisplayStatus folds in
// the derived overdue projection.
type InvoiceResponse struct {
	*invoice.Invoice
	DisplayStatus types.InvoiceDisplayStatus `json:"display_status"`
}

// NewInvoiceResponse builds a response with the display status projected
// against the given time
func NewInvoiceResponse(inv *invoice.Invoice, now time.Time) *InvoiceResponse {
	return &InvoiceResponse{
		Invoice:       inv,
		DisplayStatus: inv.DisplayStatus(now),
	}
}

// ListInvoicesResponse is a paginated list of invoices
type ListInvoicesResponse struct {
	Items []*InvoiceResponse `json:"items"`
	Total int                `json:"total"`
}
