package testutil

import (
	"context"
	"sync"

	"github.com/corebill/corebill/internal/domain/invoice"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
)

// InMemoryInvoiceStore implements invoice.Repository with the same
// optimistic version semantics as the postgres repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
	mu sync.Mutex
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	c.LineItems = make([]*invoice.LineItem, len(inv.LineItems))
	for i, li := range inv.LineItems {
		itemCopy := *li
		c.LineItems[i] = &itemCopy
	}
	return &c
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) CreateWithLineItems(ctx context.Context, inv *invoice.Invoice) error {
	return s.Create(ctx, inv)
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("invoice not found").
			WithHintf("Invoice %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) GetByIdempotencyKey(ctx context.Context, key string) (*invoice.Invoice, error) {
	invoices, err := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, inv *invoice.Invoice, _ interface{}) bool {
		return inv.IdempotencyKey == key && inv.Status != types.StatusDeleted
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, ierr.NewError("invoice not found").
			WithHint("No invoice exists for this idempotency key").
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(invoices[0]), nil
}

// Update enforces the optimistic version check and increments the version,
// mirroring the postgres repository
func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.InMemoryStore.Get(ctx, inv.ID)
	if err != nil {
		return ierr.NewError("invoice not found").
			WithHintf("Invoice %s does not exist", inv.ID).
			Mark(ierr.ErrNotFound)
	}
	if existing.Version != inv.Version {
		return ierr.NewError("invoice was modified concurrently").
			WithHint("The invoice changed since it was read, retry the operation").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"version":    inv.Version,
			}).
			Mark(ierr.ErrVersionConflict)
	}

	updated := copyInvoice(inv)
	updated.Version++
	if err := s.InMemoryStore.Update(ctx, inv.ID, updated); err != nil {
		return err
	}
	inv.Version++
	return nil
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	invoices, err := s.InMemoryStore.List(ctx, filter, invoiceFilterFn, invoiceSortFn)
	if err != nil {
		return nil, err
	}
	out := make([]*invoice.Invoice, len(invoices))
	for i, inv := range invoices {
		out[i] = copyInvoice(inv)
	}
	return out, nil
}

func (s *InMemoryInvoiceStore) Count(ctx context.Context, filter *types.InvoiceFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, invoiceFilterFn)
}

func (s *InMemoryInvoiceStore) ExistsNumber(ctx context.Context, invoiceNumber string) (bool, error) {
	invoices, err := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, inv *invoice.Invoice, _ interface{}) bool {
		return inv.InvoiceNumber == invoiceNumber && inv.Status != types.StatusDeleted
	}, nil)
	if err != nil {
		return false, err
	}
	return len(invoices) > 0, nil
}

func invoiceFilterFn(ctx context.Context, inv *invoice.Invoice, filter interface{}) bool {
	f, ok := filter.(*types.InvoiceFilter)
	if !ok || f == nil {
		return inv.Status != types.StatusDeleted
	}

	if inv.OrgID != types.GetOrgID(ctx) {
		return false
	}
	if inv.Status != f.GetStatus() {
		return false
	}
	if len(f.InvoiceIDs) > 0 && !containsString(f.InvoiceIDs, inv.ID) {
		return false
	}
	if f.ContactID != "" && inv.ContactID != f.ContactID {
		return false
	}
	if len(f.InvoiceStatus) > 0 {
		matched := false
		for _, st := range f.InvoiceStatus {
			if inv.InvoiceStatus == st {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.InvoiceNumber != "" && inv.InvoiceNumber != f.InvoiceNumber {
		return false
	}
	if f.RecurringTemplateID != "" && inv.RecurringTemplateID != f.RecurringTemplateID {
		return false
	}
	if f.DueDateBefore != nil && (inv.DueDate == nil || !inv.DueDate.Before(*f.DueDateBefore)) {
		return false
	}
	if f.DueDateAfter != nil && (inv.DueDate == nil || !inv.DueDate.After(*f.DueDateAfter)) {
		return false
	}
	if f.TimeRangeFilter != nil {
		if f.StartTime != nil && inv.CreatedAt.Before(*f.StartTime) {
			return false
		}
		if f.EndTime != nil && inv.CreatedAt.After(*f.EndTime) {
			return false
		}
	}
	return true
}

func invoiceSortFn(i, j *invoice.Invoice) bool {
	return i.CreatedAt.After(j.CreatedAt)
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
