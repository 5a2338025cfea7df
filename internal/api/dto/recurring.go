package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebill/corebill/internal/domain/template"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
	"github.com/corebill/corebill/internal/validator"
)

// CreateTemplateRequest creates a recurring invoice template
type CreateTemplateRequest struct {
	Name           string                   `json:"name" validate:"required"`
	ContactID      string                   `json:"contact_id" validate:"required"`
	Frequency      types.RecurringFrequency `json:"frequency" validate:"required"`
	Currency       string                   `json:"currency,omitempty"`
	StartDate      time.Time                `json:"start_date" validate:"required"`
	EndDate        *time.Time               `json:"end_date,omitempty"`
	MaxOccurrences int                      `json:"max_occurrences,omitempty"`
	AutoSend       bool                     `json:"auto_send,omitempty"`
	PaymentTerms   types.PaymentTerms       `json:"payment_terms,omitempty"`
	TaxRate        decimal.Decimal          `json:"tax_rate,omitempty"`
	DiscountType   types.DiscountType       `json:"discount_type,omitempty"`
	DiscountValue  decimal.Decimal          `json:"discount_value,omitempty"`
	Notes          string                   `json:"notes,omitempty"`
	Metadata       types.Metadata           `json:"metadata,omitempty"`
	LineItems      []LineItemRequest        `json:"line_items"`
}

func (r *CreateTemplateRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.Frequency.Validate(); err != nil {
		return err
	}
	if err := r.PaymentTerms.Validate(); err != nil {
		return err
	}
	if r.EndDate != nil && r.EndDate.Before(r.StartDate) {
		return ierr.NewError("end date before start date").
			WithHint("End date must be after the start date").
			Mark(ierr.ErrValidation)
	}
	if r.MaxOccurrences < 0 {
		return ierr.NewError("max occurrences cannot be negative").
			WithHint("Use zero for an unbounded template").
			Mark(ierr.ErrValidation)
	}
	if len(r.LineItems) == 0 {
		return ierr.NewError("at least one line item is required").
			WithHint("Recurring templates must carry at least one line item").
			Mark(ierr.ErrValidation)
	}
	for i := range r.LineItems {
		if err := r.LineItems[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MakeRecurringRequest seeds a template from an existing invoice
type MakeRecurringRequest struct {
	InvoiceID      string                   `json:"invoice_id" validate:"required"`
	Name           string                   `json:"name,omitempty"`
	Frequency      types.RecurringFrequency `json:"frequency" validate:"required"`
	StartDate      time.Time                `json:"start_date" validate:"required"`
	EndDate        *time.Time               `json:"end_date,omitempty"`
	MaxOccurrences int                      `json:"max_occurrences,omitempty"`
	AutoSend       bool                     `json:"auto_send,omitempty"`
}

func (r *MakeRecurringRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.Frequency.Validate()
}

// TemplateResponse is the client-facing template shape
type TemplateResponse struct {
	*template.Template
}

// NewTemplateResponse builds a template response
func NewTemplateResponse(tmpl *template.Template) *TemplateResponse {
	return &TemplateResponse{Template: tmpl}
}

// ListTemplatesResponse is a paginated list of templates
type ListTemplatesResponse struct {
	Items []*TemplateResponse `json:"items"`
	Total int                 `json:"total"`
}

// ProcessDueTemplatesResponse summarizes one scheduler tick
type ProcessDueTemplatesResponse struct {
	ProcessedCount int      `json:"processed_count"`
	SkippedCount   int      `json:"skipped_count"`
	FailedCount    int      `json:"failed_count"`
	InvoiceIDs     []string `json:"invoice_ids"`
}
