package contact

import (
	"context"
	"strings"

	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
)

// Contact is a billable customer. Invoices and estimates snapshot these
// fields at send time, so later edits here never rewrite issued documents.
type Contact struct {
	ID      string        `db:"id" json:"id"`
	Name    string        `db:"name" json:"name"`
	Email   string        `db:"email" json:"email,omitempty"`
	Phone   string        `db:"phone" json:"phone,omitempty"`
	Company string        `db:"company" json:"company,omitempty"`
	Address types.Address `db:"address" json:"address"`

	Notes    string         `db:"notes" json:"notes,omitempty"`
	Metadata types.Metadata `db:"metadata" json:"metadata,omitempty"`

	types.BaseModel
}

func (c *Contact) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ierr.NewError("contact name is required").
			WithHint("Please provide a contact name").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Repository provides access to contact storage
type Repository interface {
	Create(ctx context.Context, c *Contact) error
	Get(ctx context.Context, id string) (*Contact, error)
	Update(ctx context.Context, c *Contact) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter *types.QueryFilter) ([]*Contact, error)
	Count(ctx context.Context, filter *types.QueryFilter) (int, error)
}
