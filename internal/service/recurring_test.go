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

type RecurringServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  RecurringService
	invoices InvoiceService
	email    *testutil.MockEmailSender
}

func TestRecurringService(t *testing.T) {
	suite.Run(t, new(RecurringServiceSuite))
}

func (s *RecurringServiceSuite) SetupTest() {
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
	s.service = NewRecurringService(params)
	s.invoices = NewInvoiceService(params)

	cont := &contact.Contact{
		ID:        "cont_test_1",
		Name:      "Acme Corp",
		Email:     "billing@acme.test",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().ContactRepo.Create(s.GetContext(), cont))
}

func (s *RecurringServiceSuite) createTemplate(start time.Time, opts func(*dto.CreateTemplateRequest)) *dto.TemplateResponse {
	req := &dto.CreateTemplateRequest{
		Name:      "Monthly retainer",
		ContactID: "cont_test_1",
		Frequency: types.RecurringFrequencyMonthly,
		StartDate: start,
		TaxRate:   decimal.RequireFromString("10"),
		LineItems: []dto.LineItemRequest{
			{Name: "Retainer", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(500)},
		},
	}
	if opts != nil {
		opts(req)
	}
	resp, err := s.service.CreateTemplate(s.GetContext(), req)
	s.NoError(err)
	return resp
}

func (s *RecurringServiceSuite) TestCreateTemplate() {
	start := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	tmpl := s.createTemplate(start, nil)

	s.Equal(types.RecurringStatusActive, tmpl.RecurringStatus)
	s.Equal(start, *tmpl.NextRunDate)
	s.Equal(0, tmpl.InvoicesGenerated)
	s.Len(tmpl.LineItems, 1)
}

func (s *RecurringServiceSuite) TestCreateTemplateRequiresLineItems() {
	_, err := s.service.CreateTemplate(s.GetContext(), &dto.CreateTemplateRequest{
		Name:      "Empty",
		ContactID: "cont_test_1",
		Frequency: types.RecurringFrequencyMonthly,
		StartDate: time.Now().UTC(),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *RecurringServiceSuite) TestProcessDueGeneratesOneDraft() {
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	tmpl := s.createTemplate(start, nil)

	resp, err := s.service.ProcessDueTemplates(s.GetContext(), start)
	s.NoError(err)
	s.Equal(1, resp.ProcessedCount)
	s.Equal(0, resp.SkippedCount)
	s.Equal(0, resp.FailedCount)
	s.Len(resp.InvoiceIDs, 1)

	inv, err := s.invoices.GetInvoice(s.GetContext(), resp.InvoiceIDs[0])
	s.NoError(err)
	s.Equal(types.InvoiceStatusDraft, inv.InvoiceStatus)
	s.Equal(tmpl.ID, inv.RecurringTemplateID)
	s.NotEmpty(inv.IdempotencyKey)
	s.True(decimal.RequireFromString("550").Equal(inv.Total))
	s.Equal(start, inv.IssueDate)

	got, err := s.service.GetTemplate(s.GetContext(), tmpl.ID)
	s.NoError(err)
	s.Equal(1, got.InvoicesGenerated)
	s.Equal(time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), *got.NextRunDate)
	s.NotNil(got.LastGeneratedAt)
}

func (s *RecurringServiceSuite) TestReplayedTickSkipsWithoutDoubleGenerating() {
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	tmpl := s.createTemplate(start, nil)

	_, err := s.service.ProcessDueTemplates(s.GetContext(), start)
	s.NoError(err)

	// Rewind the schedule to simulate a crashed tick that generated the
	// invoice but never advanced the template
	stored, err := s.GetStores().TemplateRepo.Get(s.GetContext(), tmpl.ID)
	s.NoError(err)
	stored.NextRunDate = &start
	stored.InvoicesGenerated = 0
	s.NoError(s.GetStores().TemplateRepo.Update(s.GetContext(), stored))

	resp, err := s.service.ProcessDueTemplates(s.GetContext(), start)
	s.NoError(err)
	s.Equal(0, resp.ProcessedCount)
	s.Equal(1, resp.SkippedCount)

	// Only one invoice exists for the template and the schedule moved on
	filter := types.NewInvoiceFilter()
	filter.RecurringTemplateID = tmpl.ID
	invoices, err := s.invoices.ListInvoices(s.GetContext(), filter)
	s.NoError(err)
	s.Equal(1, invoices.Total)

	got, err := s.service.GetTemplate(s.GetContext(), tmpl.ID)
	s.NoError(err)
	s.Equal(time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), *got.NextRunDate)
}

func (s *RecurringServiceSuite) TestMonthEndScheduleClamps() {
	start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	tmpl := s.createTemplate(start, nil)

	_, err := s.service.ProcessDueTemplates(s.GetContext(), start)
	s.NoError(err)

	got, err := s.service.GetTemplate(s.GetContext(), tmpl.ID)
	s.NoError(err)
	// Jan 31 + 1 month clamps to the last day of February
	s.Equal(time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), *got.NextRunDate)
}

func (s *RecurringServiceSuite) TestCatchUpTickStampsIssueDateAtTickTime() {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.createTemplate(start, nil)

	// The template lags well behind; the invoice is dated when it was
	// actually generated, not at the stale run date
	tick := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	resp, err := s.service.ProcessDueTemplates(s.GetContext(), tick)
	s.NoError(err)
	s.Equal(1, resp.ProcessedCount)

	inv, err := s.invoices.GetInvoice(s.GetContext(), resp.InvoiceIDs[0])
	s.NoError(err)
	s.Equal(tick, inv.IssueDate)
}

func (s *RecurringServiceSuite) TestTemplateNotDueIsUntouched() {
	future := time.Now().UTC().AddDate(0, 1, 0)
	s.createTemplate(future, nil)

	resp, err := s.service.ProcessDueTemplates(s.GetContext(), time.Now().UTC())
	s.NoError(err)
	s.Equal(0, resp.ProcessedCount)
	s.Equal(0, resp.SkippedCount)
}

func (s *RecurringServiceSuite) TestMaxOccurrencesCompletesTemplate() {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tmpl := s.createTemplate(start, func(req *dto.CreateTemplateRequest) {
		req.MaxOccurrences = 1
	})

	resp, err := s.service.ProcessDueTemplates(s.GetContext(), start)
	s.NoError(err)
	s.Equal(1, resp.ProcessedCount)

	got, err := s.service.GetTemplate(s.GetContext(), tmpl.ID)
	s.NoError(err)
	s.Equal(types.RecurringStatusCompleted, got.RecurringStatus)
	s.Nil(got.NextRunDate)

	// A completed template is never due again
	resp, err = s.service.ProcessDueTemplates(s.GetContext(), start.AddDate(0, 2, 0))
	s.NoError(err)
	s.Equal(0, resp.ProcessedCount)
}

func (s *RecurringServiceSuite) TestEndDateCompletesTemplate() {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	tmpl := s.createTemplate(start, func(req *dto.CreateTemplateRequest) {
		req.EndDate = &end
	})

	_, err := s.service.ProcessDueTemplates(s.GetContext(), start)
	s.NoError(err)

	got, err := s.service.GetTemplate(s.GetContext(), tmpl.ID)
	s.NoError(err)
	// The next run would land past the end date
	s.Equal(types.RecurringStatusCompleted, got.RecurringStatus)
	s.Nil(got.NextRunDate)
}

func (s *RecurringServiceSuite) TestPauseAndResume() {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tmpl := s.createTemplate(start, nil)

	paused, err := s.service.PauseTemplate(s.GetContext(), tmpl.ID)
	s.NoError(err)
	s.Equal(types.RecurringStatusPaused, paused.RecurringStatus)

	// Paused templates are skipped by the scheduler
	resp, err := s.service.ProcessDueTemplates(s.GetContext(), start)
	s.NoError(err)
	s.Equal(0, resp.ProcessedCount)

	resumed, err := s.service.ResumeTemplate(s.GetContext(), tmpl.ID)
	s.NoError(err)
	s.Equal(types.RecurringStatusActive, resumed.RecurringStatus)

	resp, err = s.service.ProcessDueTemplates(s.GetContext(), start)
	s.NoError(err)
	s.Equal(1, resp.ProcessedCount)
}

func (s *RecurringServiceSuite) TestPauseCompletedTemplateRejected() {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tmpl := s.createTemplate(start, func(req *dto.CreateTemplateRequest) {
		req.MaxOccurrences = 1
	})
	_, err := s.service.ProcessDueTemplates(s.GetContext(), start)
	s.NoError(err)

	_, err = s.service.PauseTemplate(s.GetContext(), tmpl.ID)
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *RecurringServiceSuite) TestAutoSendIssuesGeneratedInvoice() {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.createTemplate(start, func(req *dto.CreateTemplateRequest) {
		req.AutoSend = true
	})

	resp, err := s.service.ProcessDueTemplates(s.GetContext(), start)
	s.NoError(err)
	s.Equal(1, resp.ProcessedCount)

	inv, err := s.invoices.GetInvoice(s.GetContext(), resp.InvoiceIDs[0])
	s.NoError(err)
	s.Equal(types.InvoiceStatusSent, inv.InvoiceStatus)
	s.NotEmpty(inv.InvoiceNumber)
	s.Equal("Acme Corp", inv.CustomerName)
	s.Equal(1, s.email.SentInvoiceCount())
}

func (s *RecurringServiceSuite) TestMakeRecurringFromInvoice() {
	draft, err := s.invoices.CreateInvoice(s.GetContext(), &dto.CreateInvoiceRequest{
		ContactID: "cont_test_1",
		TaxRate:   decimal.RequireFromString("5"),
		LineItems: []dto.LineItemRequest{
			{Name: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(25)},
			{Name: "Support", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(40)},
		},
	})
	s.NoError(err)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tmpl, err := s.service.MakeRecurring(s.GetContext(), &dto.MakeRecurringRequest{
		InvoiceID: draft.ID,
		Frequency: types.RecurringFrequencyMonthly,
		StartDate: start,
	})
	s.NoError(err)

	s.Equal(draft.ID, tmpl.SourceInvoiceID)
	s.Equal("cont_test_1", tmpl.ContactID)
	s.True(decimal.RequireFromString("5").Equal(tmpl.TaxRate))
	s.Len(tmpl.LineItems, 2)
	s.Equal("Hosting", tmpl.LineItems[0].Name)

	// The generated invoice reproduces the source invoice's financials
	resp, err := s.service.ProcessDueTemplates(s.GetContext(), start)
	s.NoError(err)
	s.Equal(1, resp.ProcessedCount)

	inv, err := s.invoices.GetInvoice(s.GetContext(), resp.InvoiceIDs[0])
	s.NoError(err)
	s.True(draft.Total.Equal(inv.Total))

	// The source invoice is flagged so the UI can show the linkage
	source, err := s.invoices.GetInvoice(s.GetContext(), draft.ID)
	s.NoError(err)
	s.True(source.IsRecurringSource)
}

func (s *RecurringServiceSuite) TestWeeklyScheduleGeneratesEachTick() {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	tmpl := s.createTemplate(start, func(req *dto.CreateTemplateRequest) {
		req.Name = "Weekly retainer"
		req.Frequency = types.RecurringFrequencyWeekly
	})

	for tick := 0; tick < 3; tick++ {
		resp, err := s.service.ProcessDueTemplates(s.GetContext(), start.AddDate(0, 0, 7*tick))
		s.NoError(err)
		s.Equal(1, resp.ProcessedCount)
	}

	filter := types.NewInvoiceFilter()
	filter.RecurringTemplateID = tmpl.ID
	invoices, err := s.invoices.ListInvoices(s.GetContext(), filter)
	s.NoError(err)
	s.Equal(3, invoices.Total)
	for _, inv := range invoices.Items {
		s.Equal(tmpl.ID, inv.RecurringTemplateID)
	}

	got, err := s.service.GetTemplate(s.GetContext(), tmpl.ID)
	s.NoError(err)
	s.Equal(3, got.InvoicesGenerated)
	s.Equal(start.AddDate(0, 0, 21), *got.NextRunDate)
}

func (s *RecurringServiceSuite) TestListTemplatesByStatus() {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.createTemplate(start, nil)
	tmpl := s.createTemplate(start, nil)
	_, err := s.service.PauseTemplate(s.GetContext(), tmpl.ID)
	s.NoError(err)

	filter := types.NewTemplateFilter()
	filter.RecurringStatus = lo.ToPtr(types.RecurringStatusPaused)
	resp, err := s.service.ListTemplates(s.GetContext(), filter)
	s.NoError(err)
	s.Equal(1, resp.Total)
	s.Equal(tmpl.ID, resp.Items[0].ID)
}
