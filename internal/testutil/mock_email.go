package testutil

import (
	"context"
	"sync"

	"github.com/corebill/corebill/internal/email"
	ierr "github.com/corebill/corebill/internal/errors"
)

// MockEmailSender records sent documents and can be told to fail
type MockEmailSender struct {
	mu sync.Mutex

	FailSends bool

	Invoices  []email.InvoiceEmail
	Estimates []email.InvoiceEmail
}

var _ email.Sender = (*MockEmailSender)(nil)

func NewMockEmailSender() *MockEmailSender {
	return &MockEmailSender{}
}

func (m *MockEmailSender) SendInvoice(ctx context.Context, msg email.InvoiceEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSends {
		return ierr.NewError("email delivery failed").
			WithHint("The email provider rejected the message").
			Mark(ierr.ErrExternalService)
	}
	m.Invoices = append(m.Invoices, msg)
	return nil
}

func (m *MockEmailSender) SendEstimate(ctx context.Context, msg email.InvoiceEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSends {
		return ierr.NewError("email delivery failed").
			WithHint("The email provider rejected the message").
			Mark(ierr.ErrExternalService)
	}
	m.Estimates = append(m.Estimates, msg)
	return nil
}

// SentInvoiceCount returns how many invoice emails were delivered
func (m *MockEmailSender) SentInvoiceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Invoices)
}
