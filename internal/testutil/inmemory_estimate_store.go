package testutil

import (
	"context"

	"github.com/corebill/corebill/internal/domain/estimate"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
)

// InMemoryEstimateStore implements estimate.Repository
type InMemoryEstimateStore struct {
	*InMemoryStore[*estimate.Estimate]
}

func NewInMemoryEstimateStore() *InMemoryEstimateStore {
	return &InMemoryEstimateStore{
		InMemoryStore: NewInMemoryStore[*estimate.Estimate](),
	}
}

func copyEstimate(est *estimate.Estimate) *estimate.Estimate {
	if est == nil {
		return nil
	}
	c := *est
	c.LineItems = make([]*estimate.LineItem, len(est.LineItems))
	for i, li := range est.LineItems {
		itemCopy := *li
		c.LineItems[i] = &itemCopy
	}
	return &c
}

func (s *InMemoryEstimateStore) Create(ctx context.Context, est *estimate.Estimate) error {
	if est == nil {
		return ierr.NewError("estimate cannot be nil").Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, est.ID, copyEstimate(est))
}

func (s *InMemoryEstimateStore) CreateWithLineItems(ctx context.Context, est *estimate.Estimate) error {
	return s.Create(ctx, est)
}

func (s *InMemoryEstimateStore) Get(ctx context.Context, id string) (*estimate.Estimate, error) {
	est, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("estimate not found").
			WithHintf("Estimate %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return copyEstimate(est), nil
}

func (s *InMemoryEstimateStore) Update(ctx context.Context, est *estimate.Estimate) error {
	return s.InMemoryStore.Update(ctx, est.ID, copyEstimate(est))
}

func (s *InMemoryEstimateStore) List(ctx context.Context, filter *types.EstimateFilter) ([]*estimate.Estimate, error) {
	estimates, err := s.InMemoryStore.List(ctx, filter, estimateFilterFn, estimateSortFn)
	if err != nil {
		return nil, err
	}
	out := make([]*estimate.Estimate, len(estimates))
	for i, est := range estimates {
		out[i] = copyEstimate(est)
	}
	return out, nil
}

func (s *InMemoryEstimateStore) Count(ctx context.Context, filter *types.EstimateFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, estimateFilterFn)
}

func (s *InMemoryEstimateStore) ExistsNumber(ctx context.Context, number string) (bool, error) {
	filter := types.NewNoLimitEstimateFilter()
	filter.EstimateNumber = number
	count, err := s.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func estimateFilterFn(ctx context.Context, est *estimate.Estimate, filter interface{}) bool {
	f, ok := filter.(*types.EstimateFilter)
	if !ok || f == nil {
		return est.Status != types.StatusDeleted
	}

	if est.OrgID != types.GetOrgID(ctx) {
		return false
	}
	if est.Status != f.GetStatus() {
		return false
	}
	if len(f.EstimateIDs) > 0 && !containsString(f.EstimateIDs, est.ID) {
		return false
	}
	if f.ContactID != "" && est.ContactID != f.ContactID {
		return false
	}
	if len(f.EstimateStatus) > 0 {
		matched := false
		for _, st := range f.EstimateStatus {
			if est.EstimateStatus == st {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.EstimateNumber != "" && est.EstimateNumber != f.EstimateNumber {
		return false
	}
	if f.ExpiresBefore != nil && (est.ExpiresAt == nil || !est.ExpiresAt.Before(*f.ExpiresBefore)) {
		return false
	}
	return true
}

func estimateSortFn(i, j *estimate.Estimate) bool {
	return i.CreatedAt.After(j.CreatedAt)
}
