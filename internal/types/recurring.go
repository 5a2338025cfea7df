package types

import (
	"time"

	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/samber/lo"
)

// RecurringFrequency controls how far apart generated invoices are spaced
type RecurringFrequency string

const (
	RecurringFrequencyWeekly    RecurringFrequency = "weekly"
	RecurringFrequencyMonthly   RecurringFrequency = "monthly"
	RecurringFrequencyQuarterly RecurringFrequency = "quarterly"
	RecurringFrequencyYearly    RecurringFrequency = "yearly"
)

func (f RecurringFrequency) Validate() error {
	allowed := []RecurringFrequency{
		RecurringFrequencyWeekly,
		RecurringFrequencyMonthly,
		RecurringFrequencyQuarterly,
		RecurringFrequencyYearly,
	}
	if !lo.Contains(allowed, f) {
		return ierr.NewError("invalid recurring frequency").
			WithHint("Frequency must be one of weekly, monthly, quarterly, yearly").
			WithReportableDetails(map[string]any{"frequency": f}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (f RecurringFrequency) String() string {
	return string(f)
}

// RecurringStatus is the lifecycle state of a recurring template
type RecurringStatus string

const (
	// RecurringStatusActive templates are picked up by the scheduler
	RecurringStatusActive RecurringStatus = "active"
	// RecurringStatusPaused templates are skipped but keep their schedule
	RecurringStatusPaused RecurringStatus = "paused"
	// RecurringStatusCompleted templates have reached their end date or
	// max occurrence count and never run again
	RecurringStatusCompleted RecurringStatus = "completed"
)

func (s RecurringStatus) Validate() error {
	allowed := []RecurringStatus{
		RecurringStatusActive,
		RecurringStatusPaused,
		RecurringStatusCompleted,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid recurring status").
			WithHint("Status must be one of active, paused, completed").
			WithReportableDetails(map[string]any{"status": s}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (s RecurringStatus) String() string {
	return string(s)
}

// TemplateFilter represents the filter options for listing recurring templates
type TemplateFilter struct {
	*QueryFilter
	*TimeRangeFilter

	TemplateIDs     []string            `json:"template_ids,omitempty" form:"template_ids"`
	ContactID       string              `json:"contact_id,omitempty" form:"contact_id"`
	RecurringStatus *RecurringStatus    `json:"recurring_status,omitempty" form:"recurring_status"`
	Frequency       *RecurringFrequency `json:"frequency,omitempty" form:"frequency"`
	DueBefore       *time.Time          `json:"due_before,omitempty" form:"due_before"`
}

func NewTemplateFilter() *TemplateFilter {
	return &TemplateFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

func NewNoLimitTemplateFilter() *TemplateFilter {
	return &TemplateFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *TemplateFilter) Validate() error {
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
	if f.RecurringStatus != nil {
		if err := f.RecurringStatus.Validate(); err != nil {
			return err
		}
	}
	if f.Frequency != nil {
		if err := f.Frequency.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f *TemplateFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

func (f *TemplateFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOffset()
	}
	return f.QueryFilter.GetOffset()
}

func (f *TemplateFilter) GetStatus() Status {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetStatus()
	}
	return f.QueryFilter.GetStatus()
}

func (f *TemplateFilter) GetSort() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetSort()
	}
	return f.QueryFilter.GetSort()
}

func (f *TemplateFilter) GetOrder() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOrder()
	}
	return f.QueryFilter.GetOrder()
}

func (f *TemplateFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().IsUnlimited()
	}
	return f.QueryFilter.IsUnlimited()
}
