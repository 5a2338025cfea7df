package types

import (
	"time"

	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/samber/lo"
)

// InvoiceStatus is the persisted lifecycle state of an invoice.
// "overdue" is intentionally absent: it is a projection of sent/viewed/partial
// against the due date, computed at read time by DeriveDisplayStatus.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusViewed    InvoiceStatus = "viewed"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	InvoiceStatusRefunded  InvoiceStatus = "refunded"
)

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusSent,
		InvoiceStatusViewed,
		InvoiceStatusPartial,
		InvoiceStatusPaid,
		InvoiceStatusCancelled,
		InvoiceStatusRefunded,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Invalid invoice status").
			WithReportableDetails(map[string]any{"status": s, "allowed": allowed}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status admits no further transitions
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusCancelled || s == InvoiceStatusRefunded
}

// AcceptsPayment reports whether a payment may be applied in this state
func (s InvoiceStatus) AcceptsPayment() bool {
	switch s {
	case InvoiceStatusSent, InvoiceStatusViewed, InvoiceStatusPartial:
		return true
	default:
		return false
	}
}

// InvoiceDisplayStatus extends the persisted statuses with the derived
// overdue state returned to clients
type InvoiceDisplayStatus string

const (
	InvoiceDisplayStatusOverdue InvoiceDisplayStatus = "overdue"
)

// DeriveDisplayStatus maps a persisted status plus the due date onto what a
// client should see. Only outstanding invoices (sent, viewed, partial) can
// show as overdue; draft, paid and terminal states pass through unchanged.
func DeriveDisplayStatus(status InvoiceStatus, dueDate *time.Time, now time.Time) InvoiceDisplayStatus {
	if dueDate != nil && status.AcceptsPayment() && now.After(*dueDate) {
		return InvoiceDisplayStatusOverdue
	}
	return InvoiceDisplayStatus(status)
}

// DiscountType selects how an invoice-level discount value is interpreted
type DiscountType string

const (
	// DiscountTypeFixed treats the discount value as an absolute amount
	DiscountTypeFixed DiscountType = "fixed"
	// DiscountTypePercent treats the discount value as a percentage of the
	// pre-tax subtotal; values above 100 still clamp the total at zero
	DiscountTypePercent DiscountType = "percent"
)

func (d DiscountType) Validate() error {
	allowed := []DiscountType{DiscountTypeFixed, DiscountTypePercent}
	if !lo.Contains(allowed, d) {
		return ierr.NewError("invalid discount type").
			WithHint("Discount type must be fixed or percent").
			WithReportableDetails(map[string]any{"discount_type": d}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (d DiscountType) String() string {
	return string(d)
}

// InvoiceFilter represents the filter options for invoice queries
type InvoiceFilter struct {
	*QueryFilter
	*TimeRangeFilter

	InvoiceIDs          []string        `json:"invoice_ids,omitempty" form:"invoice_ids"`
	ContactID           string          `json:"contact_id,omitempty" form:"contact_id"`
	InvoiceStatus       []InvoiceStatus `json:"invoice_status,omitempty" form:"invoice_status"`
	InvoiceNumber       string          `json:"invoice_number,omitempty" form:"invoice_number"`
	RecurringTemplateID string          `json:"recurring_template_id,omitempty" form:"recurring_template_id"`
	DueDateBefore       *time.Time      `json:"due_date_before,omitempty" form:"due_date_before"`
	DueDateAfter        *time.Time      `json:"due_date_after,omitempty" form:"due_date_after"`
}

func NewInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

func NewNoLimitInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

func (f *InvoiceFilter) Validate() error {
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
	for _, status := range f.InvoiceStatus {
		if err := status.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f *InvoiceFilter) GetLimit() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetLimit()
	}
	return f.QueryFilter.GetLimit()
}

func (f *InvoiceFilter) GetOffset() int {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOffset()
	}
	return f.QueryFilter.GetOffset()
}

func (f *InvoiceFilter) GetStatus() Status {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetStatus()
	}
	return f.QueryFilter.GetStatus()
}

func (f *InvoiceFilter) GetSort() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetSort()
	}
	return f.QueryFilter.GetSort()
}

func (f *InvoiceFilter) GetOrder() string {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().GetOrder()
	}
	return f.QueryFilter.GetOrder()
}

func (f *InvoiceFilter) IsUnlimited() bool {
	if f.QueryFilter == nil {
		return NewDefaultQueryFilter().IsUnlimited()
	}
	return f.QueryFilter.IsUnlimited()
}

// PaymentTerms is the number of days between issue date and due date
type PaymentTerms int

const (
	PaymentTermsDueOnReceipt PaymentTerms = 0
	PaymentTermsNet7         PaymentTerms = 7
	PaymentTermsNet15        PaymentTerms = 15
	PaymentTermsNet30        PaymentTerms = 30
	PaymentTermsNet60        PaymentTerms = 60
)

func (p PaymentTerms) Validate() error {
	if p < 0 {
		return ierr.NewError("invalid payment terms").
			WithHint("Payment terms must be zero or a positive number of days").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// DueDate resolves the due date from an issue date
func (p PaymentTerms) DueDate(issueDate time.Time) time.Time {
	return issueDate.AddDate(0, 0, int(p))
}
