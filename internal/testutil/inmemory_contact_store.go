package testutil

import (
	"context"

	"github.com/corebill/corebill/internal/domain/contact"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
)

// InMemoryContactStore implements contact.Repository
type InMemoryContactStore struct {
	*InMemoryStore[*contact.Contact]
}

func NewInMemoryContactStore() *InMemoryContactStore {
	return &InMemoryContactStore{
		InMemoryStore: NewInMemoryStore[*contact.Contact](),
	}
}

func copyContact(c *contact.Contact) *contact.Contact {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (s *InMemoryContactStore) Create(ctx context.Context, c *contact.Contact) error {
	if c == nil {
		return ierr.NewError("contact cannot be nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, c.ID, copyContact(c))
}

func (s *InMemoryContactStore) Get(ctx context.Context, id string) (*contact.Contact, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || c.Status == types.StatusDeleted {
		return nil, ierr.NewError("contact not found").
			WithHintf("Contact %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return copyContact(c), nil
}

func (s *InMemoryContactStore) Update(ctx context.Context, c *contact.Contact) error {
	return s.InMemoryStore.Update(ctx, c.ID, copyContact(c))
}

func (s *InMemoryContactStore) Delete(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	c.Status = types.StatusDeleted
	return s.InMemoryStore.Update(ctx, id, c)
}

func (s *InMemoryContactStore) List(ctx context.Context, filter *types.QueryFilter) ([]*contact.Contact, error) {
	contacts, err := s.InMemoryStore.List(ctx, filter, contactFilterFn, contactSortFn)
	if err != nil {
		return nil, err
	}
	out := make([]*contact.Contact, len(contacts))
	for i, c := range contacts {
		out[i] = copyContact(c)
	}
	return out, nil
}

func (s *InMemoryContactStore) Count(ctx context.Context, filter *types.QueryFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, contactFilterFn)
}

func contactFilterFn(ctx context.Context, c *contact.Contact, filter interface{}) bool {
	if c.OrgID != types.GetOrgID(ctx) {
		return false
	}
	if f, ok := filter.(*types.QueryFilter); ok && f != nil {
		return c.Status == f.GetStatus()
	}
	return c.Status != types.StatusDeleted
}

func contactSortFn(i, j *contact.Contact) bool {
	return i.CreatedAt.After(j.CreatedAt)
}
