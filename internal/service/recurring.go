package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/corebill/corebill/internal/api/dto"
	"github.com/corebill/corebill/internal/billing"
	"github.com/corebill/corebill/internal/domain/invoice"
	"github.com/corebill/corebill/internal/domain/template"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/idempotency"
	"github.com/corebill/corebill/internal/types"
)

// RecurringService manages invoice templates and the scheduler tick that
// materializes invoices from them.
type RecurringService interface {
	CreateTemplate(ctx context.Context, req *dto.CreateTemplateRequest) (*dto.TemplateResponse, error)
	MakeRecurring(ctx context.Context, req *dto.MakeRecurringRequest) (*dto.TemplateResponse, error)
	GetTemplate(ctx context.Context, id string) (*dto.TemplateResponse, error)
	ListTemplates(ctx context.Context, filter *types.TemplateFilter) (*dto.ListTemplatesResponse, error)
	PauseTemplate(ctx context.Context, id string) (*dto.TemplateResponse, error)
	ResumeTemplate(ctx context.Context, id string) (*dto.TemplateResponse, error)
	ProcessDueTemplates(ctx context.Context, now time.Time) (*dto.ProcessDueTemplatesResponse, error)
}

type recurringService struct {
	ServiceParams
	invoiceService InvoiceService
}

// NewRecurringService creates a new recurring template service
func NewRecurringService(params ServiceParams) RecurringService {
	return &recurringService{
		ServiceParams:  params,
		invoiceService: NewInvoiceService(params),
	}
}

func (s *recurringService) CreateTemplate(ctx context.Context, req *dto.CreateTemplateRequest) (*dto.TemplateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.ContactRepo.Get(ctx, req.ContactID); err != nil {
		return nil, err
	}

	lineItems, err := s.buildLineItems(ctx, req.LineItems)
	if err != nil {
		return nil, err
	}

	tmpl := &template.Template{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TEMPLATE),
		Name:            req.Name,
		ContactID:       req.ContactID,
		Frequency:       req.Frequency,
		RecurringStatus: types.RecurringStatusActive,
		Currency:        defaultCurrency(req.Currency),
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		NextRunDate:     lo.ToPtr(req.StartDate),
		MaxOccurrences:  req.MaxOccurrences,
		AutoSend:        req.AutoSend,
		PaymentTerms:    req.PaymentTerms,
		TaxRate:         req.TaxRate,
		DiscountType:    req.DiscountType,
		DiscountValue:   req.DiscountValue,
		Notes:           req.Notes,
		Metadata:        req.Metadata,
		LineItems:       lineItems,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	if err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.TemplateRepo.CreateWithLineItems(ctx, tmpl)
	}); err != nil {
		return nil, err
	}

	s.Logger.Infow("created recurring template",
		"template_id", tmpl.ID,
		"frequency", tmpl.Frequency,
		"next_run_date", tmpl.NextRunDate)

	return dto.NewTemplateResponse(tmpl), nil
}

// MakeRecurring seeds a template from an existing invoice, copying its line
// items and financial settings
func (s *recurringService) MakeRecurring(ctx context.Context, req *dto.MakeRecurringRequest) (*dto.TemplateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = "Recurring from " + inv.InvoiceNumber
		if inv.InvoiceNumber == "" {
			name = "Recurring from draft invoice"
		}
	}

	lineItems := make([]*template.LineItem, 0, len(inv.LineItems))
	for i, li := range inv.LineItems {
		lineItems = append(lineItems, &template.LineItem{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TEMPLATE_LINE_ITEM),
			ProductID:    li.ProductID,
			Name:         li.Name,
			Description:  li.Description,
			Quantity:     li.Quantity,
			UnitPrice:    li.UnitPrice,
			TaxRate:      li.TaxRate,
			DisplayOrder: i,
			BaseModel:    types.GetDefaultBaseModel(ctx),
		})
	}

	tmpl := &template.Template{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TEMPLATE),
		Name:            name,
		ContactID:       inv.ContactID,
		Frequency:       req.Frequency,
		RecurringStatus: types.RecurringStatusActive,
		Currency:        inv.Currency,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		NextRunDate:     lo.ToPtr(req.StartDate),
		MaxOccurrences:  req.MaxOccurrences,
		AutoSend:        req.AutoSend,
		PaymentTerms:    inv.PaymentTerms,
		TaxRate:         inv.TaxRate,
		DiscountType:    inv.DiscountType,
		DiscountValue:   inv.DiscountValue,
		Notes:           inv.Notes,
		SourceInvoiceID: inv.ID,
		LineItems:       lineItems,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	if err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.TemplateRepo.CreateWithLineItems(ctx, tmpl); err != nil {
			return err
		}
		if !inv.IsRecurringSource {
			inv.IsRecurringSource = true
			inv.UpdatedAt = time.Now().UTC()
			inv.UpdatedBy = types.GetUserID(ctx)
			return s.InvoiceRepo.Update(ctx, inv)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	s.Logger.Infow("created recurring template from invoice",
		"template_id", tmpl.ID,
		"source_invoice_id", inv.ID)

	return dto.NewTemplateResponse(tmpl), nil
}

func (s *recurringService) GetTemplate(ctx context.Context, id string) (*dto.TemplateResponse, error) {
	tmpl, err := s.TemplateRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewTemplateResponse(tmpl), nil
}

func (s *recurringService) ListTemplates(ctx context.Context, filter *types.TemplateFilter) (*dto.ListTemplatesResponse, error) {
	if filter == nil {
		filter = types.NewTemplateFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	templates, err := s.TemplateRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.TemplateRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.TemplateResponse, len(templates))
	for i, tmpl := range templates {
		items[i] = dto.NewTemplateResponse(tmpl)
	}
	return &dto.ListTemplatesResponse{Items: items, Total: total}, nil
}

func (s *recurringService) PauseTemplate(ctx context.Context, id string) (*dto.TemplateResponse, error) {
	return s.setRecurringStatus(ctx, id, types.RecurringStatusActive, types.RecurringStatusPaused)
}

// ResumeTemplate reactivates a paused template. The schedule is untouched:
// a next run date in the past means the scheduler fires on its next tick.
func (s *recurringService) ResumeTemplate(ctx context.Context, id string) (*dto.TemplateResponse, error) {
	return s.setRecurringStatus(ctx, id, types.RecurringStatusPaused, types.RecurringStatusActive)
}

func (s *recurringService) setRecurringStatus(ctx context.Context, id string, from, to types.RecurringStatus) (*dto.TemplateResponse, error) {
	var updated *template.Template
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		tmpl, err := s.TemplateRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if tmpl.RecurringStatus != from {
			return ierr.NewError("invalid template status transition").
				WithHintf("Cannot move template from %s to %s", tmpl.RecurringStatus, to).
				WithReportableDetails(map[string]any{
					"template_id": tmpl.ID,
					"from":        tmpl.RecurringStatus,
					"to":          to,
				}).
				Mark(ierr.ErrConflict)
		}

		tmpl.RecurringStatus = to
		tmpl.UpdatedAt = time.Now().UTC()
		tmpl.UpdatedBy = types.GetUserID(ctx)
		if err := s.TemplateRepo.Update(ctx, tmpl); err != nil {
			return err
		}
		updated = tmpl
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("changed template status",
		"template_id", updated.ID,
		"recurring_status", updated.RecurringStatus)

	return dto.NewTemplateResponse(updated), nil
}

// ProcessDueTemplates is one scheduler tick: each due template produces at
// most one invoice, keyed by (template, run date) so a replayed tick cannot
// double-generate. One failing template never blocks the others.
func (s *recurringService) ProcessDueTemplates(ctx context.Context, now time.Time) (*dto.ProcessDueTemplatesResponse, error) {
	resp := &dto.ProcessDueTemplatesResponse{InvoiceIDs: make([]string, 0)}

	due, err := s.TemplateRepo.ListDue(ctx, now)
	if err != nil {
		return nil, err
	}

	for _, tmpl := range due {
		inv, skipped, err := s.processTemplate(ctx, tmpl, now)
		if err != nil {
			resp.FailedCount++
			s.Logger.Errorw("failed to process recurring template",
				"template_id", tmpl.ID,
				"error", err)
			continue
		}
		if skipped {
			resp.SkippedCount++
			continue
		}

		resp.ProcessedCount++
		resp.InvoiceIDs = append(resp.InvoiceIDs, inv.ID)

		if tmpl.AutoSend {
			// Issuance failures surface in logs; the draft stays for a
			// manual send
			if _, err := s.invoiceService.SendInvoice(ctx, inv.ID); err != nil {
				s.Logger.Errorw("failed to auto-send generated invoice",
					"template_id", tmpl.ID,
					"invoice_id", inv.ID,
					"error", err)
			}
		}
	}

	s.Logger.Infow("processed due templates",
		"due", len(due),
		"processed", resp.ProcessedCount,
		"skipped", resp.SkippedCount,
		"failed", resp.FailedCount)

	return resp, nil
}

func (s *recurringService) processTemplate(ctx context.Context, tmpl *template.Template, now time.Time) (*invoice.Invoice, bool, error) {
	runDate := *tmpl.NextRunDate
	key := s.IdempotencyGenerator.GenerateKey(idempotency.ScopeRecurringInvoice, map[string]interface{}{
		"template_id": tmpl.ID,
		"run_date":    runDate.Format("2006-01-02"),
	})

	// A previous run for this tick already produced the invoice; just make
	// sure the schedule is advanced.
	if _, err := s.InvoiceRepo.GetByIdempotencyKey(ctx, key); err == nil {
		if err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			return s.advanceSchedule(ctx, tmpl, runDate, now, false)
		}); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	inv, err := s.buildInvoiceFromTemplate(ctx, tmpl, now, key)
	if err != nil {
		return nil, false, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.InvoiceRepo.CreateWithLineItems(ctx, inv); err != nil {
			return err
		}
		return s.advanceSchedule(ctx, tmpl, runDate, now, true)
	})
	if err != nil {
		return nil, false, err
	}

	s.Logger.Infow("generated invoice from template",
		"template_id", tmpl.ID,
		"invoice_id", inv.ID,
		"run_date", runDate,
		"next_run_date", tmpl.NextRunDate)

	return inv, false, nil
}

// advanceSchedule rolls the template forward one period by calendar
// arithmetic. Hitting the end date or the occurrence cap completes the
// template and clears its schedule.
func (s *recurringService) advanceSchedule(ctx context.Context, tmpl *template.Template, runDate, now time.Time, generated bool) error {
	next, err := types.NextRunDate(runDate, tmpl.Frequency)
	if err != nil {
		return err
	}

	tmpl.NextRunDate = &next
	if generated {
		tmpl.InvoicesGenerated++
		tmpl.LastGeneratedAt = &now
	}
	if tmpl.IsExhausted(next) {
		tmpl.RecurringStatus = types.RecurringStatusCompleted
		tmpl.NextRunDate = nil
	}
	tmpl.UpdatedAt = now
	tmpl.UpdatedBy = types.GetUserID(ctx)
	return s.TemplateRepo.Update(ctx, tmpl)
}

// buildInvoiceFromTemplate materializes one draft. The issue date is the
// tick time, not the scheduled run date, so a catch-up run dates its invoice
// when it was actually generated; the run date only feeds the idempotency key.
func (s *recurringService) buildInvoiceFromTemplate(ctx context.Context, tmpl *template.Template, issueDate time.Time, key string) (*invoice.Invoice, error) {
	lineItems := make([]*invoice.LineItem, 0, len(tmpl.LineItems))
	for i, li := range tmpl.LineItems {
		lineItems = append(lineItems, &invoice.LineItem{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			ProductID:    li.ProductID,
			Name:         li.Name,
			Description:  li.Description,
			Quantity:     li.Quantity,
			UnitPrice:    li.UnitPrice,
			TaxRate:      li.TaxRate,
			Amount:       li.Quantity.Mul(li.UnitPrice).Round(2),
			DisplayOrder: i,
			BaseModel:    types.GetDefaultBaseModel(ctx),
		})
	}

	inv := &invoice.Invoice{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		ContactID:           tmpl.ContactID,
		InvoiceStatus:       types.InvoiceStatusDraft,
		Currency:            tmpl.Currency,
		IssueDate:           issueDate,
		PaymentTerms:        tmpl.PaymentTerms,
		TaxRate:             tmpl.TaxRate,
		DiscountType:        tmpl.DiscountType,
		DiscountValue:       tmpl.DiscountValue,
		Notes:               tmpl.Notes,
		RecurringTemplateID: tmpl.ID,
		IdempotencyKey:      key,
		Version:             1,
		LineItems:           lineItems,
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}

	totals, err := billing.ComputeTotals(invoice.BillingItems(lineItems), inv.TaxRate, inv.DiscountType, inv.DiscountValue)
	if err != nil {
		return nil, err
	}
	inv.Subtotal = totals.Subtotal
	inv.TaxAmount = totals.TaxAmount
	inv.DiscountAmount = totals.DiscountAmount
	inv.Total = totals.Total
	inv.AmountDue = totals.Total

	return inv, nil
}

// buildLineItems resolves product references for template lines
func (s *recurringService) buildLineItems(ctx context.Context, reqs []dto.LineItemRequest) ([]*template.LineItem, error) {
	items := make([]*template.LineItem, 0, len(reqs))
	for i, req := range reqs {
		item := &template.LineItem{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TEMPLATE_LINE_ITEM),
			ProductID:    req.ProductID,
			Name:         req.Name,
			Description:  req.Description,
			Quantity:     req.Quantity,
			UnitPrice:    req.UnitPrice,
			TaxRate:      req.TaxRate,
			DisplayOrder: i,
			BaseModel:    types.GetDefaultBaseModel(ctx),
		}

		if req.ProductID != "" {
			prod, err := s.ProductRepo.Get(ctx, req.ProductID)
			if err != nil {
				return nil, err
			}
			if item.Name == "" {
				item.Name = prod.Name
			}
			if item.UnitPrice.IsZero() {
				item.UnitPrice = prod.UnitPrice
			}
			if item.TaxRate.IsZero() {
				item.TaxRate = prod.TaxRate
			}
		}
		items = append(items, item)
	}
	return items, nil
}
