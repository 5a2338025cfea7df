package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/corebill/corebill/internal/api/dto"
	"github.com/corebill/corebill/internal/billing"
	"github.com/corebill/corebill/internal/domain/contact"
	"github.com/corebill/corebill/internal/domain/estimate"
	"github.com/corebill/corebill/internal/domain/invoice"
	"github.com/corebill/corebill/internal/email"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
)

// EstimateService drives the quote lifecycle: draft edits, sending with
// customer snapshotting, accept/decline, expiry and the one-shot conversion
// into a draft invoice.
type EstimateService interface {
	CreateEstimate(ctx context.Context, req *dto.CreateEstimateRequest) (*dto.EstimateResponse, error)
	GetEstimate(ctx context.Context, id string) (*dto.EstimateResponse, error)
	ListEstimates(ctx context.Context, filter *types.EstimateFilter) (*dto.ListEstimatesResponse, error)
	UpdateEstimate(ctx context.Context, id string, req *dto.UpdateEstimateRequest) (*dto.EstimateResponse, error)
	SendEstimate(ctx context.Context, id string) (*dto.EstimateResponse, error)
	AcceptEstimate(ctx context.Context, id string) (*dto.EstimateResponse, error)
	DeclineEstimate(ctx context.Context, id string) (*dto.EstimateResponse, error)
	ExpireEstimates(ctx context.Context, now time.Time) (int, error)
	ConvertToInvoice(ctx context.Context, id string, req *dto.ConvertEstimateRequest) (*dto.InvoiceResponse, error)
}

type estimateService struct {
	ServiceParams
}

// NewEstimateService creates a new estimate service
func NewEstimateService(params ServiceParams) EstimateService {
	return &estimateService{ServiceParams: params}
}

func (s *estimateService) CreateEstimate(ctx context.Context, req *dto.CreateEstimateRequest) (*dto.EstimateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cont, err := s.ContactRepo.Get(ctx, req.ContactID)
	if err != nil {
		return nil, err
	}

	lineItems, err := s.buildLineItems(ctx, req.LineItems)
	if err != nil {
		return nil, err
	}

	est := &estimate.Estimate{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ESTIMATE),
		ContactID:      cont.ID,
		EstimateStatus: types.EstimateStatusDraft,
		Currency:       defaultCurrency(req.Currency),
		IssueDate:      lo.FromPtrOr(req.IssueDate, time.Now().UTC()),
		ExpiresAt:      req.ExpiresAt,
		TaxRate:        req.TaxRate,
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		Notes:          req.Notes,
		Terms:          req.Terms,
		Metadata:       req.Metadata,
		LineItems:      lineItems,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}

	if err := s.recomputeTotals(est); err != nil {
		return nil, err
	}

	if err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.EstimateRepo.CreateWithLineItems(ctx, est)
	}); err != nil {
		return nil, err
	}

	s.Logger.Infow("created draft estimate",
		"estimate_id", est.ID,
		"contact_id", est.ContactID,
		"total", est.Total)

	return dto.NewEstimateResponse(est), nil
}

func (s *estimateService) GetEstimate(ctx context.Context, id string) (*dto.EstimateResponse, error) {
	est, err := s.EstimateRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewEstimateResponse(est), nil
}

func (s *estimateService) ListEstimates(ctx context.Context, filter *types.EstimateFilter) (*dto.ListEstimatesResponse, error) {
	if filter == nil {
		filter = types.NewEstimateFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	estimates, err := s.EstimateRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.EstimateRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.EstimateResponse, len(estimates))
	for i, est := range estimates {
		items[i] = dto.NewEstimateResponse(est)
	}
	return &dto.ListEstimatesResponse{Items: items, Total: total}, nil
}

func (s *estimateService) UpdateEstimate(ctx context.Context, id string, req *dto.UpdateEstimateRequest) (*dto.EstimateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *estimate.Estimate
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		est, err := s.EstimateRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !est.IsEditable() {
			return ierr.NewError("only draft estimates can be edited").
				WithHintf("Estimate is in status %s", est.EstimateStatus).
				WithReportableDetails(map[string]any{"estimate_id": est.ID, "status": est.EstimateStatus}).
				Mark(ierr.ErrConflict)
		}

		if req.IssueDate != nil {
			est.IssueDate = *req.IssueDate
		}
		if req.ExpiresAt != nil {
			est.ExpiresAt = req.ExpiresAt
		}
		if req.TaxRate != nil {
			est.TaxRate = *req.TaxRate
		}
		if req.DiscountType != nil {
			est.DiscountType = *req.DiscountType
		}
		if req.DiscountValue != nil {
			est.DiscountValue = *req.DiscountValue
		}
		if req.Notes != nil {
			est.Notes = *req.Notes
		}
		if req.Terms != nil {
			est.Terms = *req.Terms
		}
		if req.Metadata != nil {
			est.Metadata = req.Metadata
		}
		if req.LineItems != nil {
			lineItems, err := s.buildLineItems(ctx, req.LineItems)
			if err != nil {
				return err
			}
			est.LineItems = lineItems
		}

		if err := s.recomputeTotals(est); err != nil {
			return err
		}

		est.UpdatedAt = time.Now().UTC()
		est.UpdatedBy = types.GetUserID(ctx)
		if err := s.EstimateRepo.Update(ctx, est); err != nil {
			return err
		}
		updated = est
		return nil
	})
	if err != nil {
		return nil, err
	}

	return dto.NewEstimateResponse(updated), nil
}

// SendEstimate issues a draft: it assigns the estimate number and freezes
// the customer snapshot, then delivers the email after commit.
func (s *estimateService) SendEstimate(ctx context.Context, id string) (*dto.EstimateResponse, error) {
	now := time.Now().UTC()

	var sent *estimate.Estimate
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		est, err := s.EstimateRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := est.CanTransitionTo(types.EstimateStatusSent); err != nil {
			return err
		}

		cont, err := s.ContactRepo.Get(ctx, est.ContactID)
		if err != nil {
			return err
		}
		if err := s.issue(ctx, est, cont, now); err != nil {
			return err
		}

		est.UpdatedAt = now
		est.UpdatedBy = types.GetUserID(ctx)
		if err := s.EstimateRepo.Update(ctx, est); err != nil {
			return err
		}
		sent = est
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deliverEstimate(ctx, sent)

	return dto.NewEstimateResponse(sent), nil
}

func (s *estimateService) issue(ctx context.Context, est *estimate.Estimate, cont *contact.Contact, now time.Time) error {
	if est.EstimateNumber == "" {
		number, err := assignDocumentNumber(ctx, s.Config.Billing, s.Config.Billing.EstimateNumberPrefix, s.EstimateRepo.ExistsNumber)
		if err != nil {
			return err
		}
		est.EstimateNumber = number
	}

	est.CustomerName = cont.Name
	est.CustomerEmail = cont.Email
	est.CustomerPhone = cont.Phone
	est.CustomerAddress = cont.Address

	est.EstimateStatus = types.EstimateStatusSent
	est.SentAt = &now
	return nil
}

func (s *estimateService) deliverEstimate(ctx context.Context, est *estimate.Estimate) {
	if s.EmailSender == nil || est.CustomerEmail == "" {
		return
	}

	msg := email.InvoiceEmail{
		To:             est.CustomerEmail,
		CustomerName:   est.CustomerName,
		DocumentNumber: est.EstimateNumber,
		Total:          est.Total,
		Currency:       est.Currency,
	}
	if est.ExpiresAt != nil {
		msg.DueDate = est.ExpiresAt.Format("2006-01-02")
	}

	if err := s.EmailSender.SendEstimate(ctx, msg); err != nil {
		s.Logger.Errorw("estimate email delivery failed",
			"estimate_id", est.ID,
			"estimate_number", est.EstimateNumber,
			"error", err)
	}
}

// AcceptEstimate records customer acceptance. An estimate past its expiry
// cannot be accepted even if the sweeper has not run yet.
func (s *estimateService) AcceptEstimate(ctx context.Context, id string) (*dto.EstimateResponse, error) {
	now := time.Now().UTC()

	var accepted *estimate.Estimate
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		est, err := s.EstimateRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if est.IsExpired(now) {
			return ierr.NewError("estimate has expired").
				WithHint("Expired estimates cannot be accepted").
				WithReportableDetails(map[string]any{"estimate_id": est.ID, "expires_at": est.ExpiresAt}).
				Mark(ierr.ErrConflict)
		}
		if err := est.CanTransitionTo(types.EstimateStatusAccepted); err != nil {
			return err
		}

		est.EstimateStatus = types.EstimateStatusAccepted
		est.AcceptedAt = &now
		est.UpdatedAt = now
		est.UpdatedBy = types.GetUserID(ctx)
		if err := s.EstimateRepo.Update(ctx, est); err != nil {
			return err
		}
		accepted = est
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("accepted estimate", "estimate_id", accepted.ID)
	return dto.NewEstimateResponse(accepted), nil
}

func (s *estimateService) DeclineEstimate(ctx context.Context, id string) (*dto.EstimateResponse, error) {
	now := time.Now().UTC()

	var declined *estimate.Estimate
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		est, err := s.EstimateRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := est.CanTransitionTo(types.EstimateStatusDeclined); err != nil {
			return err
		}

		est.EstimateStatus = types.EstimateStatusDeclined
		est.DeclinedAt = &now
		est.UpdatedAt = now
		est.UpdatedBy = types.GetUserID(ctx)
		if err := s.EstimateRepo.Update(ctx, est); err != nil {
			return err
		}
		declined = est
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("declined estimate", "estimate_id", declined.ID)
	return dto.NewEstimateResponse(declined), nil
}

// ExpireEstimates sweeps sent estimates past their expiry cutoff into the
// expired status and returns how many were swept.
func (s *estimateService) ExpireEstimates(ctx context.Context, now time.Time) (int, error) {
	filter := types.NewNoLimitEstimateFilter()
	filter.EstimateStatus = []types.EstimateStatus{types.EstimateStatusSent}
	filter.ExpiresBefore = &now

	candidates, err := s.EstimateRepo.List(ctx, filter)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, est := range candidates {
		err := s.DB.WithTx(ctx, func(ctx context.Context) error {
			est, err := s.EstimateRepo.Get(ctx, est.ID)
			if err != nil {
				return err
			}
			if !est.IsExpired(now) {
				return nil
			}
			if err := est.CanTransitionTo(types.EstimateStatusExpired); err != nil {
				return err
			}

			est.EstimateStatus = types.EstimateStatusExpired
			est.UpdatedAt = now
			est.UpdatedBy = types.GetUserID(ctx)
			if err := s.EstimateRepo.Update(ctx, est); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			s.Logger.Errorw("failed to expire estimate",
				"estimate_id", est.ID,
				"error", err)
		}
	}

	if expired > 0 {
		s.Logger.Infow("expired estimates", "count", expired)
	}
	return expired, nil
}

// ConvertToInvoice turns a sent or accepted estimate into a draft invoice
// carrying the estimate's snapshot, line items and financial settings.
// Conversion is one-shot: the estimate records the invoice it produced and
// refuses to convert again.
func (s *estimateService) ConvertToInvoice(ctx context.Context, id string, req *dto.ConvertEstimateRequest) (*dto.InvoiceResponse, error) {
	if req == nil {
		req = &dto.ConvertEstimateRequest{}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	var inv *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		est, err := s.EstimateRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if est.IsExpired(now) {
			return ierr.NewError("estimate has expired").
				WithHint("Expired estimates cannot be converted").
				WithReportableDetails(map[string]any{"estimate_id": est.ID, "expires_at": est.ExpiresAt}).
				Mark(ierr.ErrConflict)
		}
		if err := est.CanConvert(); err != nil {
			return err
		}

		inv = s.buildInvoiceFromEstimate(ctx, est, req, now)
		if err := s.InvoiceRepo.CreateWithLineItems(ctx, inv); err != nil {
			return err
		}

		est.ConvertedInvoiceID = inv.ID
		est.ConvertedAt = &now
		est.UpdatedAt = now
		est.UpdatedBy = types.GetUserID(ctx)
		return s.EstimateRepo.Update(ctx, est)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("converted estimate to invoice",
		"estimate_id", id,
		"invoice_id", inv.ID)

	return dto.NewInvoiceResponse(inv, now), nil
}

func (s *estimateService) buildInvoiceFromEstimate(ctx context.Context, est *estimate.Estimate, req *dto.ConvertEstimateRequest, now time.Time) *invoice.Invoice {
	lineItems := make([]*invoice.LineItem, 0, len(est.LineItems))
	for i, li := range est.LineItems {
		lineItems = append(lineItems, &invoice.LineItem{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
			ProductID:    li.ProductID,
			Name:         li.Name,
			Description:  li.Description,
			Quantity:     li.Quantity,
			UnitPrice:    li.UnitPrice,
			TaxRate:      li.TaxRate,
			Amount:       li.Amount,
			DisplayOrder: i,
			BaseModel:    types.GetDefaultBaseModel(ctx),
		})
	}

	return &invoice.Invoice{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		ContactID:        est.ContactID,
		InvoiceStatus:    types.InvoiceStatusDraft,
		Currency:         est.Currency,
		CustomerName:     est.CustomerName,
		CustomerEmail:    est.CustomerEmail,
		CustomerPhone:    est.CustomerPhone,
		CustomerAddress:  est.CustomerAddress,
		IssueDate:        lo.FromPtrOr(req.IssueDate, now),
		PaymentTerms:     lo.FromPtrOr(req.PaymentTerms, types.PaymentTermsDueOnReceipt),
		Subtotal:         est.Subtotal,
		TaxRate:          est.TaxRate,
		TaxAmount:        est.TaxAmount,
		DiscountType:     est.DiscountType,
		DiscountValue:    est.DiscountValue,
		DiscountAmount:   est.DiscountAmount,
		Total:            est.Total,
		AmountDue:        est.Total,
		Notes:            est.Notes,
		Terms:            est.Terms,
		SourceEstimateID: est.ID,
		Version:          1,
		LineItems:        lineItems,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
}

func (s *estimateService) buildLineItems(ctx context.Context, reqs []dto.LineItemRequest) ([]*estimate.LineItem, error) {
	items := make([]*estimate.LineItem, 0, len(reqs))
	for i, req := range reqs {
		item := &estimate.LineItem{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ESTIMATE_LINE_ITEM),
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

		item.Amount = item.Quantity.Mul(item.UnitPrice).Round(2)
		items = append(items, item)
	}
	return items, nil
}

func (s *estimateService) recomputeTotals(est *estimate.Estimate) error {
	totals, err := billing.ComputeTotals(estimate.BillingItems(est.LineItems), est.TaxRate, est.DiscountType, est.DiscountValue)
	if err != nil {
		return err
	}

	est.Subtotal = totals.Subtotal
	est.TaxAmount = totals.TaxAmount
	est.DiscountAmount = totals.DiscountAmount
	est.Total = totals.Total
	return nil
}
