package product

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
)

// Product is a reusable catalog entry that prefills line items. Lines copy
// its name and price at insertion time, so catalog edits never reprice
// existing documents.
type Product struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description,omitempty"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Currency    string          `db:"currency" json:"currency"`
	TaxRate     decimal.Decimal `db:"tax_rate" json:"tax_rate"`

	Metadata types.Metadata `db:"metadata" json:"metadata,omitempty"`

	types.BaseModel
}

func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ierr.NewError("product name is required").
			WithHint("Please provide a product name").
			Mark(ierr.ErrValidation)
	}
	if p.UnitPrice.IsNegative() {
		return ierr.NewError("product unit price cannot be negative").
			WithHint("Unit price must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Repository provides access to product storage
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *types.QueryFilter) ([]*Product, error)
	Count(ctx context.Context, filter *types.QueryFilter) (int, error)
}
