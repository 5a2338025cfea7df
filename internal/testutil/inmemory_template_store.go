package testutil

import (
	"context"
	"time"

	"github.com/corebill/corebill/internal/domain/template"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
)

// InMemoryTemplateStore implements template.Repository
type InMemoryTemplateStore struct {
	*InMemoryStore[*template.Template]
}

func NewInMemoryTemplateStore() *InMemoryTemplateStore {
	return &InMemoryTemplateStore{
		InMemoryStore: NewInMemoryStore[*template.Template](),
	}
}

func copyTemplate(tmpl *template.Template) *template.Template {
	if tmpl == nil {
		return nil
	}
	c := *tmpl
	c.LineItems = make([]*template.LineItem, len(tmpl.LineItems))
	for i, li := range tmpl.LineItems {
		itemCopy := *li
		c.LineItems[i] = &itemCopy
	}
	return &c
}

func (s *InMemoryTemplateStore) Create(ctx context.Context, tmpl *template.Template) error {
	if tmpl == nil {
		return ierr.NewError("template cannot be nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, tmpl.ID, copyTemplate(tmpl))
}

func (s *InMemoryTemplateStore) CreateWithLineItems(ctx context.Context, tmpl *template.Template) error {
	return s.Create(ctx, tmpl)
}

func (s *InMemoryTemplateStore) Get(ctx context.Context, id string) (*template.Template, error) {
	tmpl, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("recurring template not found").
			WithHintf("Template %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return copyTemplate(tmpl), nil
}

func (s *InMemoryTemplateStore) Update(ctx context.Context, tmpl *template.Template) error {
	return s.InMemoryStore.Update(ctx, tmpl.ID, copyTemplate(tmpl))
}

func (s *InMemoryTemplateStore) List(ctx context.Context, filter *types.TemplateFilter) ([]*template.Template, error) {
	templates, err := s.InMemoryStore.List(ctx, filter, templateFilterFn, templateSortFn)
	if err != nil {
		return nil, err
	}
	out := make([]*template.Template, len(templates))
	for i, tmpl := range templates {
		out[i] = copyTemplate(tmpl)
	}
	return out, nil
}

func (s *InMemoryTemplateStore) Count(ctx context.Context, filter *types.TemplateFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, templateFilterFn)
}

func (s *InMemoryTemplateStore) ListDue(ctx context.Context, cutoff time.Time) ([]*template.Template, error) {
	templates, err := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, tmpl *template.Template, _ interface{}) bool {
		return tmpl.OrgID == types.GetOrgID(ctx) &&
			tmpl.Status == types.StatusPublished &&
			tmpl.RecurringStatus == types.RecurringStatusActive &&
			tmpl.NextRunDate != nil && !tmpl.NextRunDate.After(cutoff)
	}, func(i, j *template.Template) bool {
		return i.NextRunDate.Before(*j.NextRunDate)
	})
	if err != nil {
		return nil, err
	}
	out := make([]*template.Template, len(templates))
	for i, tmpl := range templates {
		out[i] = copyTemplate(tmpl)
	}
	return out, nil
}

func templateFilterFn(ctx context.Context, tmpl *template.Template, filter interface{}) bool {
	f, ok := filter.(*types.TemplateFilter)
	if !ok || f == nil {
		return tmpl.Status != types.StatusDeleted
	}

	if tmpl.OrgID != types.GetOrgID(ctx) {
		return false
	}
	if tmpl.Status != f.GetStatus() {
		return false
	}
	if len(f.TemplateIDs) > 0 && !containsString(f.TemplateIDs, tmpl.ID) {
		return false
	}
	if f.ContactID != "" && tmpl.ContactID != f.ContactID {
		return false
	}
	if f.RecurringStatus != nil && tmpl.RecurringStatus != *f.RecurringStatus {
		return false
	}
	if f.Frequency != nil && tmpl.Frequency != *f.Frequency {
		return false
	}
	if f.DueBefore != nil && (tmpl.NextRunDate == nil || tmpl.NextRunDate.After(*f.DueBefore)) {
		return false
	}
	return true
}

func templateSortFn(i, j *template.Template) bool {
	return i.CreatedAt.After(j.CreatedAt)
}
