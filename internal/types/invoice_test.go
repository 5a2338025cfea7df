package types

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestDeriveDisplayStatus(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	past := lo.ToPtr(now.AddDate(0, 0, -5))
	future := lo.ToPtr(now.AddDate(0, 0, 5))

	tests := []struct {
		name    string
		status  InvoiceStatus
		dueDate *time.Time
		want    InvoiceDisplayStatus
	}{
		{"sent past due shows overdue", InvoiceStatusSent, past, InvoiceDisplayStatusOverdue},
		{"viewed past due shows overdue", InvoiceStatusViewed, past, InvoiceDisplayStatusOverdue},
		{"partial past due shows overdue", InvoiceStatusPartial, past, InvoiceDisplayStatusOverdue},
		{"sent before due stays sent", InvoiceStatusSent, future, InvoiceDisplayStatus(InvoiceStatusSent)},
		{"draft past due stays draft", InvoiceStatusDraft, past, InvoiceDisplayStatus(InvoiceStatusDraft)},
		{"paid past due stays paid", InvoiceStatusPaid, past, InvoiceDisplayStatus(InvoiceStatusPaid)},
		{"cancelled past due stays cancelled", InvoiceStatusCancelled, past, InvoiceDisplayStatus(InvoiceStatusCancelled)},
		{"refunded past due stays refunded", InvoiceStatusRefunded, past, InvoiceDisplayStatus(InvoiceStatusRefunded)},
		{"nil due date never overdue", InvoiceStatusSent, nil, InvoiceDisplayStatus(InvoiceStatusSent)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveDisplayStatus(tt.status, tt.dueDate, now))
		})
	}
}

func TestInvoiceStatusAcceptsPayment(t *testing.T) {
	assert.True(t, InvoiceStatusSent.AcceptsPayment())
	assert.True(t, InvoiceStatusViewed.AcceptsPayment())
	assert.True(t, InvoiceStatusPartial.AcceptsPayment())
	assert.False(t, InvoiceStatusDraft.AcceptsPayment())
	assert.False(t, InvoiceStatusPaid.AcceptsPayment())
	assert.False(t, InvoiceStatusCancelled.AcceptsPayment())
	assert.False(t, InvoiceStatusRefunded.AcceptsPayment())
}

func TestPaymentTermsDueDate(t *testing.T) {
	issue := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, issue, PaymentTermsDueOnReceipt.DueDate(issue))
	assert.Equal(t, issue.AddDate(0, 0, 30), PaymentTermsNet30.DueDate(issue))
	assert.Error(t, PaymentTerms(-1).Validate())
	assert.NoError(t, PaymentTermsNet15.Validate())
}
