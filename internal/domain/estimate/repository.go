package estimate

import (
	"context"

	"github.com/corebill/corebill/internal/types"
)

// Repository provides access to estimate storage
type Repository interface {
	Create(ctx context.Context, est *Estimate) error
	CreateWithLineItems(ctx context.Context, est *Estimate) error
	Get(ctx context.Context, id string) (*Estimate, error)
	Update(ctx context.Context, est *Estimate) error
	List(ctx context.Context, filter *types.EstimateFilter) ([]*Estimate, error)
	Count(ctx context.Context, filter *types.EstimateFilter) (int, error)
	ExistsNumber(ctx context.Context, number string) (bool, error)
}
