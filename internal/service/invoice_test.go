package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/corebill/corebill/internal/api/dto"
	"github.com/corebill/corebill/internal/domain/contact"
	"github.com/corebill/corebill/internal/domain/product"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/idempotency"
	"github.com/corebill/corebill/internal/testutil"
	"github.com/corebill/corebill/internal/types"
	"github.com/corebill/corebill/internal/webhook"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  InvoiceService
	email    *testutil.MockEmailSender
	webhooks *testutil.MockWebhookPublisher

	contact *contact.Contact
	product *product.Product
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.email = testutil.NewMockEmailSender()
	s.webhooks = testutil.NewMockWebhookPublisher()
	s.service = NewInvoiceService(ServiceParams{
		Logger:               s.GetLogger(),
		Config:               s.GetConfig(),
		DB:                   s.GetDB(),
		EmailSender:          s.email,
		WebhookPublisher:     s.webhooks,
		IdempotencyGenerator: idempotency.NewGenerator(),
		InvoiceRepo:          s.GetStores().InvoiceRepo,
		EstimateRepo:         s.GetStores().EstimateRepo,
		TemplateRepo:         s.GetStores().TemplateRepo,
		PaymentRepo:          s.GetStores().PaymentRepo,
		ContactRepo:          s.GetStores().ContactRepo,
		ProductRepo:          s.GetStores().ProductRepo,
	})
	s.setupTestData()
}

func (s *InvoiceServiceSuite) setupTestData() {
	s.contact = &contact.Contact{
		ID:        "cont_test_1",
		Name:      "Acme Corp",
		Email:     "billing@acme.test",
		Phone:     "+1-555-0100",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().ContactRepo.Create(s.GetContext(), s.contact))

	s.product = &product.Product{
		ID:        "prod_test_1",
		Name:      "Consulting Hour",
		UnitPrice: decimal.RequireFromString("150.00"),
		Currency:  "usd",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().ProductRepo.Create(s.GetContext(), s.product))
}

func (s *InvoiceServiceSuite) createDraft(taxRate string) *dto.InvoiceResponse {
	resp, err := s.service.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		ContactID: s.contact.ID,
		TaxRate:   decimal.RequireFromString(taxRate),
		LineItems: []dto.LineItemRequest{
			{Name: "Widget", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("49.99")},
			{Name: "Gadget", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("100.02")},
		},
	})
	s.NoError(err)
	return resp
}

func (s *InvoiceServiceSuite) TestCreateInvoiceComputesTotals() {
	resp := s.createDraft("10")

	s.Equal(types.InvoiceStatusDraft, resp.InvoiceStatus)
	s.Empty(resp.InvoiceNumber)
	s.True(decimal.RequireFromString("200.00").Equal(resp.Subtotal))
	s.True(decimal.RequireFromString("20.00").Equal(resp.TaxAmount))
	s.True(decimal.RequireFromString("220.00").Equal(resp.Total))
	s.True(resp.Total.Equal(resp.AmountDue))
	s.True(resp.AmountPaid.IsZero())
	s.Len(resp.LineItems, 2)
	s.Equal(1, resp.Version)
}

func (s *InvoiceServiceSuite) TestCreateInvoicePrefillsFromProduct() {
	resp, err := s.service.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		ContactID: s.contact.ID,
		LineItems: []dto.LineItemRequest{
			{ProductID: s.product.ID, Quantity: decimal.NewFromInt(3)},
		},
	})
	s.NoError(err)

	s.Equal("Consulting Hour", resp.LineItems[0].Name)
	s.True(decimal.RequireFromString("150.00").Equal(resp.LineItems[0].UnitPrice))
	s.True(decimal.RequireFromString("450.00").Equal(resp.Total))
}

func (s *InvoiceServiceSuite) TestCreateInvoiceUnknownContact() {
	_, err := s.service.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		ContactID: "cont_missing",
		LineItems: []dto.LineItemRequest{
			{Name: "Widget", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
		},
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestUpdateDraftRecomputesTotals() {
	draft := s.createDraft("0")

	resp, err := s.service.UpdateInvoice(s.GetContext(), draft.ID, &dto.UpdateInvoiceRequest{
		TaxRate: lo.ToPtr(decimal.RequireFromString("20")),
	})
	s.NoError(err)
	s.True(decimal.RequireFromString("40.00").Equal(resp.TaxAmount))
	s.True(decimal.RequireFromString("240.00").Equal(resp.Total))
}

func (s *InvoiceServiceSuite) TestUpdateRejectedAfterSend() {
	draft := s.createDraft("0")
	_, err := s.service.SendInvoice(s.GetContext(), draft.ID)
	s.NoError(err)

	_, err = s.service.UpdateInvoice(s.GetContext(), draft.ID, &dto.UpdateInvoiceRequest{
		Notes: lo.ToPtr("too late"),
	})
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *InvoiceServiceSuite) TestSendAssignsNumberAndSnapshot() {
	draft := s.createDraft("10")

	sent, err := s.service.SendInvoice(s.GetContext(), draft.ID)
	s.NoError(err)

	s.Equal(types.InvoiceStatusSent, sent.InvoiceStatus)
	s.NotEmpty(sent.InvoiceNumber)
	s.Contains(sent.InvoiceNumber, s.GetConfig().Billing.InvoiceNumberPrefix)
	s.Equal("Acme Corp", sent.CustomerName)
	s.Equal("billing@acme.test", sent.CustomerEmail)
	s.NotNil(sent.SentAt)
	s.NotNil(sent.DueDate)
	s.Equal(1, s.email.SentInvoiceCount())
	s.Equal([]string{webhook.EventInvoiceSent}, s.webhooks.EventNames())
}

func (s *InvoiceServiceSuite) TestSendResolvesDueDateFromTerms() {
	issue := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	resp, err := s.service.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		ContactID:    s.contact.ID,
		IssueDate:    &issue,
		PaymentTerms: lo.ToPtr(types.PaymentTermsNet30),
		LineItems: []dto.LineItemRequest{
			{Name: "Widget", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
	})
	s.NoError(err)

	sent, err := s.service.SendInvoice(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Equal(issue.AddDate(0, 0, 30), *sent.DueDate)
}

func (s *InvoiceServiceSuite) TestContactEditDoesNotTouchIssuedInvoice() {
	draft := s.createDraft("0")
	sent, err := s.service.SendInvoice(s.GetContext(), draft.ID)
	s.NoError(err)
	s.Equal("Acme Corp", sent.CustomerName)

	s.contact.Name = "Acme Corp (renamed)"
	s.NoError(s.GetStores().ContactRepo.Update(s.GetContext(), s.contact))

	got, err := s.service.GetInvoice(s.GetContext(), draft.ID)
	s.NoError(err)
	s.Equal("Acme Corp", got.CustomerName)
}

func (s *InvoiceServiceSuite) TestResendRefreshesLastSentOnly() {
	draft := s.createDraft("0")
	sent, err := s.service.SendInvoice(s.GetContext(), draft.ID)
	s.NoError(err)

	resent, err := s.service.SendInvoice(s.GetContext(), draft.ID)
	s.NoError(err)

	s.Equal(sent.InvoiceNumber, resent.InvoiceNumber)
	s.Equal(sent.SentAt.Unix(), resent.SentAt.Unix())
	s.False(resent.LastSentAt.Before(*sent.LastSentAt))
	s.Equal(2, s.email.SentInvoiceCount())
}

func (s *InvoiceServiceSuite) TestSendWithNoValidLineItemsRejected() {
	resp, err := s.service.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		ContactID: s.contact.ID,
		LineItems: []dto.LineItemRequest{
			{Name: "  ", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
		},
	})
	s.NoError(err)

	_, err = s.service.SendInvoice(s.GetContext(), resp.ID)
	s.Error(err)
	s.True(ierr.IsValidation(err))
	s.Empty(s.webhooks.EventNames())
}

func (s *InvoiceServiceSuite) TestSendWithoutRecipientRejected() {
	noEmail := &contact.Contact{
		ID:        "cont_no_email",
		Name:      "Walk-in Customer",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().ContactRepo.Create(s.GetContext(), noEmail))

	resp, err := s.service.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		ContactID: noEmail.ID,
		LineItems: []dto.LineItemRequest{
			{Name: "Widget", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
		},
	})
	s.NoError(err)

	_, err = s.service.SendInvoice(s.GetContext(), resp.ID)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestSendCancelledInvoiceRejected() {
	draft := s.createDraft("0")
	_, err := s.service.CancelInvoice(s.GetContext(), draft.ID)
	s.NoError(err)

	_, err = s.service.SendInvoice(s.GetContext(), draft.ID)
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *InvoiceServiceSuite) TestEmailFailureDoesNotBlockIssuance() {
	s.email.FailSends = true
	draft := s.createDraft("0")

	sent, err := s.service.SendInvoice(s.GetContext(), draft.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusSent, sent.InvoiceStatus)
	s.Equal(0, s.email.SentInvoiceCount())
}

func (s *InvoiceServiceSuite) TestWebhookFailureDoesNotBlockIssuance() {
	s.webhooks.FailPublishes = true
	draft := s.createDraft("0")

	sent, err := s.service.SendInvoice(s.GetContext(), draft.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusSent, sent.InvoiceStatus)
	s.Empty(s.webhooks.EventNames())
}

func (s *InvoiceServiceSuite) TestMarkViewed() {
	draft := s.createDraft("0")
	_, err := s.service.SendInvoice(s.GetContext(), draft.ID)
	s.NoError(err)

	viewed, err := s.service.MarkViewed(s.GetContext(), draft.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusViewed, viewed.InvoiceStatus)
	s.NotNil(viewed.ViewedAt)

	// A second view is a no-op
	again, err := s.service.MarkViewed(s.GetContext(), draft.ID)
	s.NoError(err)
	s.Equal(viewed.ViewedAt.Unix(), again.ViewedAt.Unix())
}

func (s *InvoiceServiceSuite) TestMarkViewedOnDraftIsNoOp() {
	draft := s.createDraft("0")

	resp, err := s.service.MarkViewed(s.GetContext(), draft.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusDraft, resp.InvoiceStatus)
	s.Nil(resp.ViewedAt)
}

func (s *InvoiceServiceSuite) TestCancelDraft() {
	draft := s.createDraft("0")

	cancelled, err := s.service.CancelInvoice(s.GetContext(), draft.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusCancelled, cancelled.InvoiceStatus)
	s.NotNil(cancelled.CancelledAt)
}

func (s *InvoiceServiceSuite) TestCancelPaidInvoiceRejected() {
	draft := s.createDraft("0")
	_, err := s.service.SendInvoice(s.GetContext(), draft.ID)
	s.NoError(err)

	payments := NewPaymentService(ServiceParams{
		Logger:      s.GetLogger(),
		Config:      s.GetConfig(),
		DB:          s.GetDB(),
		InvoiceRepo: s.GetStores().InvoiceRepo,
		PaymentRepo: s.GetStores().PaymentRepo,
	})
	_, err = payments.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:     draft.ID,
		Amount:        draft.Total,
		PaymentMethod: types.PaymentMethodBankTransfer,
	})
	s.NoError(err)

	_, err = s.service.CancelInvoice(s.GetContext(), draft.ID)
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *InvoiceServiceSuite) TestRefundPaidInvoice() {
	draft := s.createDraft("0")
	_, err := s.service.SendInvoice(s.GetContext(), draft.ID)
	s.NoError(err)

	payments := NewPaymentService(ServiceParams{
		Logger:      s.GetLogger(),
		Config:      s.GetConfig(),
		DB:          s.GetDB(),
		InvoiceRepo: s.GetStores().InvoiceRepo,
		PaymentRepo: s.GetStores().PaymentRepo,
	})
	_, err = payments.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:     draft.ID,
		Amount:        draft.Total,
		PaymentMethod: types.PaymentMethodCash,
	})
	s.NoError(err)

	refunded, err := s.service.RefundInvoice(s.GetContext(), draft.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusRefunded, refunded.InvoiceStatus)
	s.NotNil(refunded.RefundedAt)
}

func (s *InvoiceServiceSuite) TestRefundUnpaidInvoiceRejected() {
	draft := s.createDraft("0")
	_, err := s.service.SendInvoice(s.GetContext(), draft.ID)
	s.NoError(err)

	_, err = s.service.RefundInvoice(s.GetContext(), draft.ID)
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *InvoiceServiceSuite) TestConcurrentUpdateConflicts() {
	draft := s.createDraft("0")

	// Two readers pick up the same version; the second write must fail
	first, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), draft.ID)
	s.NoError(err)
	second, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), draft.ID)
	s.NoError(err)

	first.Notes = "writer one"
	s.NoError(s.GetStores().InvoiceRepo.Update(s.GetContext(), first))

	second.Notes = "writer two"
	err = s.GetStores().InvoiceRepo.Update(s.GetContext(), second)
	s.Error(err)
	s.True(ierr.IsVersionConflict(err))
}

func (s *InvoiceServiceSuite) TestDisplayStatusOverdueProjection() {
	past := time.Now().UTC().AddDate(0, 0, -10)
	resp, err := s.service.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		ContactID: s.contact.ID,
		IssueDate: &past,
		DueDate:   lo.ToPtr(past.AddDate(0, 0, 7)),
		LineItems: []dto.LineItemRequest{
			{Name: "Widget", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
		},
	})
	s.NoError(err)

	// Drafts never show overdue regardless of the due date
	s.Equal(types.InvoiceDisplayStatus(types.InvoiceStatusDraft), resp.DisplayStatus)

	_, err = s.service.SendInvoice(s.GetContext(), resp.ID)
	s.NoError(err)

	got, err := s.service.GetInvoice(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Equal(types.InvoiceDisplayStatusOverdue, got.DisplayStatus)
	// The persisted status is untouched by the projection
	s.Equal(types.InvoiceStatusSent, got.InvoiceStatus)
}

func (s *InvoiceServiceSuite) TestListInvoicesByStatus() {
	s.createDraft("0")
	draft := s.createDraft("0")
	_, err := s.service.SendInvoice(s.GetContext(), draft.ID)
	s.NoError(err)

	filter := types.NewInvoiceFilter()
	filter.InvoiceStatus = []types.InvoiceStatus{types.InvoiceStatusSent}
	resp, err := s.service.ListInvoices(s.GetContext(), filter)
	s.NoError(err)
	s.Equal(1, resp.Total)
	s.Equal(draft.ID, resp.Items[0].ID)
}

func (s *InvoiceServiceSuite) TestDiscountClampedToTotal() {
	resp, err := s.service.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		ContactID:     s.contact.ID,
		DiscountType:  types.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(500),
		LineItems: []dto.LineItemRequest{
			{Name: "Widget", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
	})
	s.NoError(err)

	s.True(resp.Total.IsZero())
	s.True(decimal.RequireFromString("100.00").Equal(resp.DiscountAmount))
}
