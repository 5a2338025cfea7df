package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/corebill/corebill/internal/api/dto"
	"github.com/corebill/corebill/internal/domain/contact"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/idempotency"
	"github.com/corebill/corebill/internal/testutil"
	"github.com/corebill/corebill/internal/types"
)

type EstimateServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  EstimateService
	invoices InvoiceService
	email    *testutil.MockEmailSender

	contact *contact.Contact
}

func TestEstimateService(t *testing.T) {
	suite.Run(t, new(EstimateServiceSuite))
}

func (s *EstimateServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.email = testutil.NewMockEmailSender()

	params := ServiceParams{
		Logger:               s.GetLogger(),
		Config:               s.GetConfig(),
		DB:                   s.GetDB(),
		EmailSender:          s.email,
		IdempotencyGenerator: idempotency.NewGenerator(),
		InvoiceRepo:          s.GetStores().InvoiceRepo,
		EstimateRepo:         s.GetStores().EstimateRepo,
		TemplateRepo:         s.GetStores().TemplateRepo,
		PaymentRepo:          s.GetStores().PaymentRepo,
		ContactRepo:          s.GetStores().ContactRepo,
		ProductRepo:          s.GetStores().ProductRepo,
	}
	s.service = NewEstimateService(params)
	s.invoices = NewInvoiceService(params)

	s.contact = &contact.Contact{
		ID:        "cont_test_1",
		Name:      "Acme Corp",
		Email:     "billing@acme.test",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().ContactRepo.Create(s.GetContext(), s.contact))
}

func (s *EstimateServiceSuite) createDraft(opts func(*dto.CreateEstimateRequest)) *dto.EstimateResponse {
	req := &dto.CreateEstimateRequest{
		ContactID: s.contact.ID,
		TaxRate:   decimal.RequireFromString("10"),
		Terms:     "Net payment due within 15 days",
		LineItems: []dto.LineItemRequest{
			{Name: "Design work", Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(125)},
		},
	}
	if opts != nil {
		opts(req)
	}
	resp, err := s.service.CreateEstimate(s.GetContext(), req)
	s.NoError(err)
	return resp
}

func (s *EstimateServiceSuite) accepted() *dto.EstimateResponse {
	draft := s.createDraft(nil)
	_, err := s.service.SendEstimate(s.GetContext(), draft.ID)
	s.NoError(err)
	accepted, err := s.service.AcceptEstimate(s.GetContext(), draft.ID)
	s.NoError(err)
	return accepted
}

func (s *EstimateServiceSuite) TestCreateEstimateComputesTotals() {
	resp := s.createDraft(nil)

	s.Equal(types.EstimateStatusDraft, resp.EstimateStatus)
	s.Empty(resp.EstimateNumber)
	s.True(decimal.RequireFromString("500.00").Equal(resp.Subtotal))
	s.True(decimal.RequireFromString("50.00").Equal(resp.TaxAmount))
	s.True(decimal.RequireFromString("550.00").Equal(resp.Total))
}

func (s *EstimateServiceSuite) TestUpdateDraftOnly() {
	draft := s.createDraft(nil)
	_, err := s.service.SendEstimate(s.GetContext(), draft.ID)
	s.NoError(err)

	_, err = s.service.UpdateEstimate(s.GetContext(), draft.ID, &dto.UpdateEstimateRequest{
		Notes: lo.ToPtr("too late"),
	})
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *EstimateServiceSuite) TestSendAssignsNumberAndSnapshot() {
	draft := s.createDraft(nil)

	sent, err := s.service.SendEstimate(s.GetContext(), draft.ID)
	s.NoError(err)

	s.Equal(types.EstimateStatusSent, sent.EstimateStatus)
	s.NotEmpty(sent.EstimateNumber)
	s.Contains(sent.EstimateNumber, s.GetConfig().Billing.EstimateNumberPrefix)
	s.Equal("Acme Corp", sent.CustomerName)
	s.NotNil(sent.SentAt)
	s.Len(s.email.Estimates, 1)
}

func (s *EstimateServiceSuite) TestAcceptAndDecline() {
	accepted := s.accepted()
	s.Equal(types.EstimateStatusAccepted, accepted.EstimateStatus)
	s.NotNil(accepted.AcceptedAt)

	// Accepted is terminal for the quote lifecycle
	_, err := s.service.DeclineEstimate(s.GetContext(), accepted.ID)
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *EstimateServiceSuite) TestDeclineSentEstimate() {
	draft := s.createDraft(nil)
	_, err := s.service.SendEstimate(s.GetContext(), draft.ID)
	s.NoError(err)

	declined, err := s.service.DeclineEstimate(s.GetContext(), draft.ID)
	s.NoError(err)
	s.Equal(types.EstimateStatusDeclined, declined.EstimateStatus)
	s.NotNil(declined.DeclinedAt)
}

func (s *EstimateServiceSuite) TestAcceptDraftRejected() {
	draft := s.createDraft(nil)

	_, err := s.service.AcceptEstimate(s.GetContext(), draft.ID)
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *EstimateServiceSuite) TestExpiredEstimateCannotBeAccepted() {
	past := time.Now().UTC().AddDate(0, 0, -1)
	draft := s.createDraft(func(req *dto.CreateEstimateRequest) {
		req.ExpiresAt = &past
	})
	_, err := s.service.SendEstimate(s.GetContext(), draft.ID)
	s.NoError(err)

	_, err = s.service.AcceptEstimate(s.GetContext(), draft.ID)
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *EstimateServiceSuite) TestExpireSweep() {
	now := time.Now().UTC()
	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 30)

	stale := s.createDraft(func(req *dto.CreateEstimateRequest) {
		req.ExpiresAt = &past
	})
	fresh := s.createDraft(func(req *dto.CreateEstimateRequest) {
		req.ExpiresAt = &future
	})
	_, err := s.service.SendEstimate(s.GetContext(), stale.ID)
	s.NoError(err)
	_, err = s.service.SendEstimate(s.GetContext(), fresh.ID)
	s.NoError(err)

	count, err := s.service.ExpireEstimates(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, count)

	got, err := s.service.GetEstimate(s.GetContext(), stale.ID)
	s.NoError(err)
	s.Equal(types.EstimateStatusExpired, got.EstimateStatus)

	got, err = s.service.GetEstimate(s.GetContext(), fresh.ID)
	s.NoError(err)
	s.Equal(types.EstimateStatusSent, got.EstimateStatus)
}

func (s *EstimateServiceSuite) TestConvertCopiesFinancialsAndSnapshot() {
	accepted := s.accepted()

	inv, err := s.service.ConvertToInvoice(s.GetContext(), accepted.ID, &dto.ConvertEstimateRequest{
		PaymentTerms: lo.ToPtr(types.PaymentTermsNet15),
	})
	s.NoError(err)

	s.Equal(types.InvoiceStatusDraft, inv.InvoiceStatus)
	s.Equal(accepted.ID, inv.SourceEstimateID)
	s.Equal(accepted.ContactID, inv.ContactID)
	s.Equal(accepted.CustomerName, inv.CustomerName)
	s.True(accepted.Subtotal.Equal(inv.Subtotal))
	s.True(accepted.TaxAmount.Equal(inv.TaxAmount))
	s.True(accepted.Total.Equal(inv.Total))
	s.True(accepted.Total.Equal(inv.AmountDue))
	s.Equal(types.PaymentTermsNet15, inv.PaymentTerms)
	s.Equal(accepted.Terms, inv.Terms)
	s.Len(inv.LineItems, len(accepted.LineItems))
	s.Equal(accepted.LineItems[0].Name, inv.LineItems[0].Name)

	got, err := s.service.GetEstimate(s.GetContext(), accepted.ID)
	s.NoError(err)
	s.Equal(inv.ID, got.ConvertedInvoiceID)
	s.NotNil(got.ConvertedAt)
}

func (s *EstimateServiceSuite) TestConvertIsOneShot() {
	accepted := s.accepted()

	_, err := s.service.ConvertToInvoice(s.GetContext(), accepted.ID, nil)
	s.NoError(err)

	_, err = s.service.ConvertToInvoice(s.GetContext(), accepted.ID, nil)
	s.Error(err)
	s.True(ierr.IsConflict(err))

	// Only one invoice came out of the estimate
	invoices, err := s.invoices.ListInvoices(s.GetContext(), nil)
	s.NoError(err)
	s.Equal(1, invoices.Total)
}

func (s *EstimateServiceSuite) TestConvertSentEstimate() {
	draft := s.createDraft(nil)
	sent, err := s.service.SendEstimate(s.GetContext(), draft.ID)
	s.NoError(err)

	// Acceptance is not a prerequisite; a sent quote can convert directly
	inv, err := s.service.ConvertToInvoice(s.GetContext(), sent.ID, nil)
	s.NoError(err)
	s.Equal(sent.ID, inv.SourceEstimateID)
}

func (s *EstimateServiceSuite) TestConvertDraftRejected() {
	draft := s.createDraft(nil)

	_, err := s.service.ConvertToInvoice(s.GetContext(), draft.ID, nil)
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *EstimateServiceSuite) TestConvertDeclinedRejected() {
	draft := s.createDraft(nil)
	_, err := s.service.SendEstimate(s.GetContext(), draft.ID)
	s.NoError(err)
	_, err = s.service.DeclineEstimate(s.GetContext(), draft.ID)
	s.NoError(err)

	_, err = s.service.ConvertToInvoice(s.GetContext(), draft.ID, nil)
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *EstimateServiceSuite) TestConvertExpiredRejected() {
	past := time.Now().UTC().AddDate(0, 0, -1)
	draft := s.createDraft(func(req *dto.CreateEstimateRequest) {
		req.ExpiresAt = &past
	})
	_, err := s.service.SendEstimate(s.GetContext(), draft.ID)
	s.NoError(err)

	// Past-expiry counts even before the sweeper persists the status
	_, err = s.service.ConvertToInvoice(s.GetContext(), draft.ID, nil)
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *EstimateServiceSuite) TestConvertedInvoiceIsIndependentlySendable() {
	accepted := s.accepted()

	inv, err := s.service.ConvertToInvoice(s.GetContext(), accepted.ID, nil)
	s.NoError(err)

	sent, err := s.invoices.SendInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusSent, sent.InvoiceStatus)
	s.NotEmpty(sent.InvoiceNumber)
	s.NotEqual(accepted.EstimateNumber, sent.InvoiceNumber)
}

func (s *EstimateServiceSuite) TestListEstimatesByStatus() {
	s.createDraft(nil)
	draft := s.createDraft(nil)
	_, err := s.service.SendEstimate(s.GetContext(), draft.ID)
	s.NoError(err)

	filter := types.NewEstimateFilter()
	filter.EstimateStatus = []types.EstimateStatus{types.EstimateStatusSent}
	resp, err := s.service.ListEstimates(s.GetContext(), filter)
	s.NoError(err)
	s.Equal(1, resp.Total)
	s.Equal(draft.ID, resp.Items[0].ID)
}
