package invoice

import (
	"context"

	"github.com/corebill/corebill/internal/types"
)

// Repository provides access to invoice storage.
// Update performs an optimistic version check: it fails with
// ErrVersionConflict when the stored version no longer matches the one on
// the passed invoice, and increments the version on success.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	CreateWithLineItems(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)
	ExistsNumber(ctx context.Context, invoiceNumber string) (bool, error)
}
