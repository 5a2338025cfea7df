package template

import (
	"context"
	"time"

	"github.com/corebill/corebill/internal/types"
)

// Repository provides access to recurring template storage
type Repository interface {
	Create(ctx context.Context, tmpl *Template) error
	CreateWithLineItems(ctx context.Context, tmpl *Template) error
	Get(ctx context.Context, id string) (*Template, error)
	Update(ctx context.Context, tmpl *Template) error
	List(ctx context.Context, filter *types.TemplateFilter) ([]*Template, error)
	Count(ctx context.Context, filter *types.TemplateFilter) (int, error)
	// ListDue returns active templates whose next run date is at or before
	// the given cutoff
	ListDue(ctx context.Context, cutoff time.Time) ([]*Template, error)
}
