package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebill/corebill/internal/domain/estimate"
	"github.com/corebill/corebill/internal/types"
	"github.com/corebill/corebill/internal/validator"
)

// CreateEstimateRequest creates a draft estimate
type CreateEstimateRequest struct {
	ContactID     string             `json:"contact_id" validate:"required"`
	Currency      string             `json:"currency,omitempty"`
	IssueDate     *time.Time         `json:"issue_date,omitempty"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	TaxRate       decimal.Decimal    `json:"tax_rate,omitempty"`
	DiscountType  types.DiscountType `json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal    `json:"discount_value,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	Terms         string             `json:"terms,omitempty"`
	Metadata      types.Metadata     `json:"metadata,omitempty"`
	LineItems     []LineItemRequest  `json:"line_items"`
}

func (r *CreateEstimateRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	for i := range r.LineItems {
		if err := r.LineItems[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// UpdateEstimateRequest edits a draft estimate. Nil fields are left unchanged.
type UpdateEstimateRequest struct {
	IssueDate     *time.Time          `json:"issue_date,omitempty"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
	TaxRate       *decimal.Decimal    `json:"tax_rate,omitempty"`
	DiscountType  *types.DiscountType `json:"discount_type,omitempty"`
	DiscountValue *decimal.Decimal    `json:"discount_value,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	Terms         *string             `json:"terms,omitempty"`
	Metadata      types.Metadata      `json:"metadata,omitempty"`
	LineItems     []LineItemRequest   `json:"line_items,omitempty"`
}

func (r *UpdateEstimateRequest) Validate() error {
	for i := range r.LineItems {
		if err := r.LineItems[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ConvertEstimateRequest controls the estimate to invoice conversion
type ConvertEstimateRequest struct {
	PaymentTerms *types.PaymentTerms `json:"payment_terms,omitempty"`
	IssueDate    *time.Time          `json:"issue_date,omitempty"`
}

func (r *ConvertEstimateRequest) Validate() error {
	if r.PaymentTerms != nil {
		return r.PaymentTerms.Validate()
	}
	return nil
}

// EstimateResponse is the client-facing estimate shape
type EstimateResponse struct {
	*estimate.Estimate
}

// NewEstimateResponse builds an estimate response
func NewEstimateResponse(est *estimate.Estimate) *EstimateResponse {
	return &EstimateResponse{Estimate: est}
}

// ListEstimatesResponse is a paginated list of estimates
type ListEstimatesResponse struct {
	Items []*EstimateResponse `json:"items"`
	Total int                 `json:"total"`
}
