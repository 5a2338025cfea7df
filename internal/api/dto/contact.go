package dto

import (
	"github.com/shopspring/decimal"

	"github.com/corebill/corebill/internal/domain/contact"
	"github.com/corebill/corebill/internal/domain/product"
	"github.com/corebill/corebill/internal/types"
	"github.com/corebill/corebill/internal/validator"
)

// CreateContactRequest creates a billable customer
type CreateContactRequest struct {
	Name     string         `json:"name" validate:"required"`
	Email    string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone    string         `json:"phone,omitempty"`
	Company  string         `json:"company,omitempty"`
	Address  types.Address  `json:"address,omitempty"`
	Notes    string         `json:"notes,omitempty"`
	Metadata types.Metadata `json:"metadata,omitempty"`
}

func (r *CreateContactRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// UpdateContactRequest edits a contact. Nil fields are left unchanged.
type UpdateContactRequest struct {
	Name     *string        `json:"name,omitempty"`
	Email    *string        `json:"email,omitempty" validate:"omitempty,email"`
	Phone    *string        `json:"phone,omitempty"`
	Company  *string        `json:"company,omitempty"`
	Address  *types.Address `json:"address,omitempty"`
	Notes    *string        `json:"notes,omitempty"`
	Metadata types.Metadata `json:"metadata,omitempty"`
}

func (r *UpdateContactRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// ContactResponse is the client-facing contact shape
type ContactResponse struct {
	*contact.Contact
}

// ListContactsResponse is a paginated list of contacts
type ListContactsResponse struct {
	Items []*ContactResponse `json:"items"`
	Total int                `json:"total"`
}

// CreateProductRequest creates a catalog entry
type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Currency    string          `json:"currency,omitempty"`
	TaxRate     decimal.Decimal `json:"tax_rate,omitempty"`
	Metadata    types.Metadata  `json:"metadata,omitempty"`
}

func (r *CreateProductRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// UpdateProductRequest edits a catalog entry. Nil fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Currency    *string          `json:"currency,omitempty"`
	TaxRate     *decimal.Decimal `json:"tax_rate,omitempty"`
	Metadata    types.Metadata   `json:"metadata,omitempty"`
}

func (r *UpdateProductRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// ProductResponse is the client-facing product shape
type ProductResponse struct {
	*product.Product
}

// ListProductsResponse is a paginated list of products
type ListProductsResponse struct {
	Items []*ProductResponse `json:"items"`
	Total int                `json:"total"`
}
