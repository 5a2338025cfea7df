package types

import (
	"time"

	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/samber/lo"
)

// EstimateStatus is the lifecycle state of an estimate
type EstimateStatus string

const (
	EstimateStatusDraft    EstimateStatus = "draft"
	EstimateStatusSent     EstimateStatus = "sent"
	EstimateStatusAccepted EstimateStatus = "accepted"
	EstimateStatusDeclined EstimateStatus = "declined"
	EstimateStatusExpired  EstimateStatus = "expired"
)

func (s EstimateStatus) Validate() error {
	allowed := []EstimateStatus{
		EstimateStatusDraft,
		EstimateStatusSent,
		EstimateStatusAccepted,
		EstimateStatusDeclined,
		EstimateStatusExpired,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid estimate status").
			WithHint("Invalid estimate status").
			WithReportableDetails(map[string]any{"status": s, "allowed": allowed}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (s EstimateStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the estimate admits no further transitions
func (s EstimateStatus) IsTerminal() bool {
	return s == EstimateStatusDeclined || s == EstimateStatusExpired
}

// EstimateFilter represents the filter options for estimate queries
type EstimateFilter struct {
	*QueryFilter
	*TimeRangeFilter

	EstimateIDs    []string         `json:"estimate_ids,omitempty" form:"estimate_ids"`
	ContactID      string           `json:"contact_id,omitempty" form:"contact_id"`
	EstimateStatus []EstimateStatus `json:"estimate_status,omitempty" form:"estimate_status"`
	EstimateNumber string           `json:"estimate_number,omitempty" form:"estimate_number"`
	ExpiresBefore  *time.Time       `json:"expires_before,omitempty" form:"expires_before"`
}

func NewEstimateFilter() *EstimateFilter {
	return &EstimateFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

func NewNoLimitEstimateFilter() *EstimateFilter {
	return &EstimateFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *EstimateFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}
	if f.TimeRangeFilter != nil {
		if err := f.TimeRangeFilter.Validate(); err != nil {
			return err
		}
	}
	for _, status := range f.EstimateStatus {
		if err := status.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f *EstimateFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

func (f *EstimateFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOffset()
	}
	return f.QueryFilter.GetOffset()
}

func (f *EstimateFilter) GetStatus() Status {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetStatus()
	}
	return f.QueryFilter.GetStatus()
}

func (f *EstimateFilter) GetSort() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetSort()
	}
	return f.QueryFilter.GetSort()
}

func (f *EstimateFilter) GetOrder() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOrder()
	}
	return f.QueryFilter.GetOrder()
}

func (f *EstimateFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().IsUnlimited()
	}
	return f.QueryFilter.IsUnlimited()
}
