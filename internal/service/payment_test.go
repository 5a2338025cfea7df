package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/corebill/corebill/internal/api/dto"
	"github.com/corebill/corebill/internal/domain/contact"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/idempotency"
	"github.com/corebill/corebill/internal/testutil"
	"github.com/corebill/corebill/internal/types"
	"github.com/corebill/corebill/internal/webhook"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  PaymentService
	invoices InvoiceService
	gateway  *testutil.MockGateway
	webhooks *testutil.MockWebhookPublisher
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.gateway = testutil.NewMockGateway()
	s.webhooks = testutil.NewMockWebhookPublisher()

	params := ServiceParams{
		Logger:               s.GetLogger(),
		Config:               s.GetConfig(),
		DB:                   s.GetDB(),
		Gateway:              s.gateway,
		WebhookPublisher:     s.webhooks,
		IdempotencyGenerator: idempotency.NewGenerator(),
		InvoiceRepo:          s.GetStores().InvoiceRepo,
		EstimateRepo:         s.GetStores().EstimateRepo,
		TemplateRepo:         s.GetStores().TemplateRepo,
		PaymentRepo:          s.GetStores().PaymentRepo,
		ContactRepo:          s.GetStores().ContactRepo,
		ProductRepo:          s.GetStores().ProductRepo,
	}
	s.service = NewPaymentService(params)
	s.invoices = NewInvoiceService(params)

	cont := &contact.Contact{
		ID:        "cont_test_1",
		Name:      "Acme Corp",
		Email:     "billing@acme.test",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().ContactRepo.Create(s.GetContext(), cont))
}

// sentInvoice creates and issues an invoice totalling 220.00
func (s *PaymentServiceSuite) sentInvoice() *dto.InvoiceResponse {
	resp, err := s.invoices.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		ContactID: "cont_test_1",
		TaxRate:   decimal.RequireFromString("10"),
		LineItems: []dto.LineItemRequest{
			{Name: "Widget", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)},
		},
	})
	s.NoError(err)

	sent, err := s.invoices.SendInvoice(s.GetContext(), resp.ID)
	s.NoError(err)
	return sent
}

func (s *PaymentServiceSuite) TestPartialThenFullPayment() {
	inv := s.sentInvoice()

	p1, err := s.service.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: types.PaymentMethodBankTransfer,
	})
	s.NoError(err)
	s.True(decimal.NewFromInt(100).Equal(p1.Amount))
	s.True(p1.OverpaymentAmount.IsZero())

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPartial, got.InvoiceStatus)
	s.True(decimal.RequireFromString("120.00").Equal(got.AmountDue))
	s.Nil(got.PaidAt)

	_, err = s.service.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        decimal.RequireFromString("120.00"),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.NoError(err)

	got, err = s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, got.InvoiceStatus)
	s.True(got.AmountDue.IsZero())
	s.NotNil(got.PaidAt)

	// Settlement fires invoice.paid exactly once, after the full payment
	s.Equal([]string{webhook.EventInvoiceSent, webhook.EventInvoicePaid}, s.webhooks.EventNames())
}

func (s *PaymentServiceSuite) TestOverpaymentClampedAndFlagged() {
	inv := s.sentInvoice()

	p, err := s.service.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        decimal.NewFromInt(300),
		PaymentMethod: types.PaymentMethodCheck,
	})
	s.NoError(err)

	s.True(decimal.RequireFromString("220.00").Equal(p.Amount))
	s.True(decimal.RequireFromString("80.00").Equal(p.OverpaymentAmount))

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, got.InvoiceStatus)
	s.True(got.AmountDue.IsZero())
	// The applied amount never exceeds the invoice total
	s.True(got.AmountPaid.Equal(got.Total))
}

func (s *PaymentServiceSuite) TestPaymentOnDraftRejected() {
	draft, err := s.invoices.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		ContactID: "cont_test_1",
		LineItems: []dto.LineItemRequest{
			{Name: "Widget", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)},
		},
	})
	s.NoError(err)

	_, err = s.service.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:     draft.ID,
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *PaymentServiceSuite) TestPaymentOnCancelledInvoiceRejected() {
	inv := s.sentInvoice()
	_, err := s.invoices.CancelInvoice(s.GetContext(), inv.ID)
	s.NoError(err)

	_, err = s.service.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.Error(err)
	s.True(ierr.IsConflict(err))

	// The rejected payment leaves the balances untouched
	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(got.AmountPaid.IsZero())
	s.True(got.Total.Equal(got.AmountDue))
}

func (s *PaymentServiceSuite) TestPaymentOnPaidInvoiceRejected() {
	inv := s.sentInvoice()

	_, err := s.service.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        inv.Total,
		PaymentMethod: types.PaymentMethodCash,
	})
	s.NoError(err)

	_, err = s.service.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        decimal.NewFromInt(1),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *PaymentServiceSuite) TestChargeInvoice() {
	inv := s.sentInvoice()

	p, err := s.service.ChargeInvoice(s.GetContext(), &dto.ChargeInvoiceRequest{InvoiceID: inv.ID})
	s.NoError(err)

	s.Equal(types.PaymentMethodCard, p.PaymentMethod)
	s.Equal("pi_test_1", p.GatewayPaymentID)
	s.NotEmpty(p.IdempotencyKey)
	s.True(inv.Total.Equal(p.Amount))
	s.Equal(1, s.gateway.ChargeCount())

	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, got.InvoiceStatus)
}

func (s *PaymentServiceSuite) TestChargeRetryIsIdempotent() {
	inv := s.sentInvoice()

	first, err := s.service.ChargeInvoice(s.GetContext(), &dto.ChargeInvoiceRequest{InvoiceID: inv.ID})
	s.NoError(err)

	// The invoice is paid now, so a blind retry short-circuits on the
	// recorded payment instead of reaching the gateway
	second, err := s.service.ChargeInvoice(s.GetContext(), &dto.ChargeInvoiceRequest{InvoiceID: inv.ID})
	s.Error(err)
	s.True(ierr.IsConflict(err))
	s.Equal(1, s.gateway.ChargeCount())
	s.NotNil(first)
	s.Nil(second)
}

func (s *PaymentServiceSuite) TestChargeDeclined() {
	inv := s.sentInvoice()
	s.gateway.FailCharges = true

	_, err := s.service.ChargeInvoice(s.GetContext(), &dto.ChargeInvoiceRequest{InvoiceID: inv.ID})
	s.Error(err)
	s.True(ierr.IsExternalService(err))

	// A declined charge leaves the invoice untouched
	got, err := s.invoices.GetInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusSent, got.InvoiceStatus)
	s.True(got.AmountPaid.IsZero())
}

func (s *PaymentServiceSuite) TestChargeWithoutGateway() {
	inv := s.sentInvoice()

	noGateway := NewPaymentService(ServiceParams{
		Logger:               s.GetLogger(),
		Config:               s.GetConfig(),
		DB:                   s.GetDB(),
		IdempotencyGenerator: idempotency.NewGenerator(),
		InvoiceRepo:          s.GetStores().InvoiceRepo,
		PaymentRepo:          s.GetStores().PaymentRepo,
	})

	_, err := noGateway.ChargeInvoice(s.GetContext(), &dto.ChargeInvoiceRequest{InvoiceID: inv.ID})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestCreatePaymentLink() {
	inv := s.sentInvoice()

	link, err := s.service.CreatePaymentLink(s.GetContext(), &dto.CreatePaymentLinkRequest{InvoiceID: inv.ID})
	s.NoError(err)

	s.Equal(inv.ID, link.InvoiceID)
	s.Equal("cs_test_1", link.SessionID)
	s.NotEmpty(link.PaymentURL)

	// No payment is recorded until checkout completes
	payments, err := s.service.ListPayments(s.GetContext(), nil)
	s.NoError(err)
	s.Equal(0, payments.Total)
}

func (s *PaymentServiceSuite) TestPaymentLinkOnPaidInvoiceRejected() {
	inv := s.sentInvoice()
	_, err := s.service.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        inv.Total,
		PaymentMethod: types.PaymentMethodCash,
	})
	s.NoError(err)

	_, err = s.service.CreatePaymentLink(s.GetContext(), &dto.CreatePaymentLinkRequest{InvoiceID: inv.ID})
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *PaymentServiceSuite) TestListPaymentsByInvoice() {
	first := s.sentInvoice()
	second := s.sentInvoice()

	_, err := s.service.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:     first.ID,
		Amount:        decimal.NewFromInt(50),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.NoError(err)
	_, err = s.service.RecordPayment(s.GetContext(), &dto.RecordPaymentRequest{
		InvoiceID:     second.ID,
		Amount:        decimal.NewFromInt(75),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.NoError(err)

	filter := types.NewPaymentFilter()
	filter.InvoiceID = first.ID
	resp, err := s.service.ListPayments(s.GetContext(), filter)
	s.NoError(err)
	s.Equal(1, resp.Total)
	s.True(decimal.NewFromInt(50).Equal(resp.Items[0].Amount))
}
