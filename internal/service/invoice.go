package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/corebill/corebill/internal/api/dto"
	"github.com/corebill/corebill/internal/billing"
	"github.com/corebill/corebill/internal/domain/contact"
	"github.com/corebill/corebill/internal/domain/invoice"
	"github.com/corebill/corebill/internal/email"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/types"
	"github.com/corebill/corebill/internal/webhook"
)

// InvoiceService drives the invoice lifecycle: draft edits, issuance with
// customer snapshotting, view tracking, cancellation and refunds.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req *dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
	UpdateInvoice(ctx context.Context, id string, req *dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	SendInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	MarkViewed(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	CancelInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	RefundInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
}

type invoiceService struct {
	ServiceParams
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{ServiceParams: params}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req *dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// The contact must exist, but its details are not copied yet; the
	// snapshot happens at send time.
	cont, err := s.ContactRepo.Get(ctx, req.ContactID)
	if err != nil {
		return nil, err
	}

	lineItems, err := s.buildLineItems(ctx, req.LineItems)
	if err != nil {
		return nil, err
	}

	issueDate := lo.FromPtrOr(req.IssueDate, time.Now().UTC())
	terms := lo.FromPtrOr(req.PaymentTerms, types.PaymentTermsDueOnReceipt)

	inv := &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		ContactID:     cont.ID,
		InvoiceStatus: types.InvoiceStatusDraft,
		Currency:      defaultCurrency(req.Currency),
		IssueDate:     issueDate,
		PaymentTerms:  terms,
		DueDate:       req.DueDate,
		TaxRate:       req.TaxRate,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		Notes:         req.Notes,
		Terms:         req.Terms,
		Metadata:      req.Metadata,
		Version:       1,
		LineItems:     lineItems,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}

	if err := s.recomputeTotals(inv); err != nil {
		return nil, err
	}

	if err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.InvoiceRepo.CreateWithLineItems(ctx, inv)
	}); err != nil {
		return nil, err
	}

	s.Logger.Infow("created draft invoice",
		"invoice_id", inv.ID,
		"contact_id", inv.ContactID,
		"total", inv.Total)

	return dto.NewInvoiceResponse(inv, time.Now().UTC()), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv, time.Now().UTC()), nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	invoices, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	items := make([]*dto.InvoiceResponse, len(invoices))
	for i, inv := range invoices {
		items[i] = dto.NewInvoiceResponse(inv, now)
	}
	return &dto.ListInvoicesResponse{Items: items, Total: total}, nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req *dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if !inv.IsEditable() {
			return ierr.NewError("only draft invoices can be edited").
				WithHintf("Invoice is in status %s", inv.InvoiceStatus).
				WithReportableDetails(map[string]any{"invoice_id": inv.ID, "status": inv.InvoiceStatus}).
				Mark(ierr.ErrConflict)
		}

		if req.IssueDate != nil {
			inv.IssueDate = *req.IssueDate
		}
		if req.PaymentTerms != nil {
			inv.PaymentTerms = *req.PaymentTerms
		}
		if req.DueDate != nil {
			inv.DueDate = req.DueDate
		}
		if req.TaxRate != nil {
			inv.TaxRate = *req.TaxRate
		}
		if req.DiscountType != nil {
			inv.DiscountType = *req.DiscountType
		}
		if req.DiscountValue != nil {
			inv.DiscountValue = *req.DiscountValue
		}
		if req.Notes != nil {
			inv.Notes = *req.Notes
		}
		if req.Terms != nil {
			inv.Terms = *req.Terms
		}
		if req.Metadata != nil {
			inv.Metadata = req.Metadata
		}
		if req.LineItems != nil {
			lineItems, err := s.buildLineItems(ctx, req.LineItems)
			if err != nil {
				return err
			}
			inv.LineItems = lineItems
		}

		if err := s.recomputeTotals(inv); err != nil {
			return err
		}

		inv.UpdatedAt = time.Now().UTC()
		inv.UpdatedBy = types.GetUserID(ctx)
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	return dto.NewInvoiceResponse(updated, time.Now().UTC()), nil
}

// SendInvoice issues a draft: it assigns the invoice number, freezes the
// customer snapshot and resolves the due date. Re-sending an already issued
// invoice only refreshes delivery, it never re-snapshots.
func (s *invoiceService) SendInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	now := time.Now().UTC()

	var sent *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}

		switch {
		case inv.InvoiceStatus == types.InvoiceStatusDraft:
			cont, err := s.ContactRepo.Get(ctx, inv.ContactID)
			if err != nil {
				return err
			}
			if err := s.issue(ctx, inv, cont, now); err != nil {
				return err
			}
		case inv.InvoiceStatus.AcceptsPayment():
			// Re-send of an outstanding invoice
			inv.LastSentAt = &now
		default:
			return ierr.NewError("invoice cannot be sent").
				WithHintf("Invoice in status %s cannot be sent", inv.InvoiceStatus).
				WithReportableDetails(map[string]any{"invoice_id": inv.ID, "status": inv.InvoiceStatus}).
				Mark(ierr.ErrConflict)
		}

		inv.UpdatedAt = now
		inv.UpdatedBy = types.GetUserID(ctx)
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
		sent = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Delivery happens after the state is committed: a failed email never
	// rolls back issuance, the invoice just needs a re-send.
	s.deliverInvoice(ctx, sent)
	s.publishWebhook(ctx, webhook.EventInvoiceSent, sent)

	return dto.NewInvoiceResponse(sent, now), nil
}

func (s *invoiceService) issue(ctx context.Context, inv *invoice.Invoice, cont *contact.Contact, now time.Time) error {
	if err := inv.CanTransitionTo(types.InvoiceStatusSent); err != nil {
		return err
	}

	if invoice.ValidCount(inv.LineItems) == 0 {
		return ierr.NewError("invoice has no valid line items").
			WithHint("Add at least one named line item before sending").
			WithReportableDetails(map[string]any{"invoice_id": inv.ID}).
			Mark(ierr.ErrValidation)
	}
	if cont.Email == "" {
		return ierr.NewError("invoice has no recipient").
			WithHint("The contact has no email address to deliver to").
			WithReportableDetails(map[string]any{"invoice_id": inv.ID, "contact_id": cont.ID}).
			Mark(ierr.ErrValidation)
	}

	if inv.InvoiceNumber == "" {
		number, err := assignDocumentNumber(ctx, s.Config.Billing, s.Config.Billing.InvoiceNumberPrefix, s.InvoiceRepo.ExistsNumber)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = number
	}

	inv.CustomerName = cont.Name
	inv.CustomerEmail = cont.Email
	inv.CustomerPhone = cont.Phone
	inv.CustomerAddress = cont.Address

	if inv.DueDate == nil {
		due := inv.PaymentTerms.DueDate(inv.IssueDate)
		inv.DueDate = &due
	}

	inv.InvoiceStatus = types.InvoiceStatusSent
	inv.SentAt = &now
	inv.LastSentAt = &now
	return nil
}

func (s *invoiceService) deliverInvoice(ctx context.Context, inv *invoice.Invoice) {
	if s.EmailSender == nil || inv.CustomerEmail == "" {
		return
	}

	msg := email.InvoiceEmail{
		To:             inv.CustomerEmail,
		CustomerName:   inv.CustomerName,
		DocumentNumber: inv.InvoiceNumber,
		Total:          inv.Total,
		Currency:       inv.Currency,
	}
	if inv.DueDate != nil {
		msg.DueDate = inv.DueDate.Format("2006-01-02")
	}

	if err := s.EmailSender.SendInvoice(ctx, msg); err != nil {
		s.Logger.Errorw("invoice email delivery failed",
			"invoice_id", inv.ID,
			"invoice_number", inv.InvoiceNumber,
			"error", err)
	}
}

// MarkViewed records the first customer view. Repeat views are no-ops.
func (s *invoiceService) MarkViewed(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	now := time.Now().UTC()

	var viewed *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}

		if inv.InvoiceStatus != types.InvoiceStatusSent {
			// Already viewed, paying or terminal; viewing changes nothing
			viewed = inv
			return nil
		}

		inv.InvoiceStatus = types.InvoiceStatusViewed
		inv.ViewedAt = &now
		inv.UpdatedAt = now
		inv.UpdatedBy = types.GetUserID(ctx)
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
		viewed = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	return dto.NewInvoiceResponse(viewed, now), nil
}

func (s *invoiceService) CancelInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	now := time.Now().UTC()

	var cancelled *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := inv.CanTransitionTo(types.InvoiceStatusCancelled); err != nil {
			return err
		}

		inv.InvoiceStatus = types.InvoiceStatusCancelled
		inv.CancelledAt = &now
		inv.UpdatedAt = now
		inv.UpdatedBy = types.GetUserID(ctx)
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
		cancelled = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("cancelled invoice", "invoice_id", cancelled.ID)
	return dto.NewInvoiceResponse(cancelled, now), nil
}

// RefundInvoice marks a paid or partially paid invoice as refunded. The
// payment records stay untouched; refunded is a terminal invoice state.
func (s *invoiceService) RefundInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	now := time.Now().UTC()

	var refunded *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := inv.CanTransitionTo(types.InvoiceStatusRefunded); err != nil {
			return err
		}

		inv.InvoiceStatus = types.InvoiceStatusRefunded
		inv.RefundedAt = &now
		inv.UpdatedAt = now
		inv.UpdatedBy = types.GetUserID(ctx)
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
		refunded = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("refunded invoice", "invoice_id", refunded.ID, "amount_paid", refunded.AmountPaid)
	s.publishWebhook(ctx, webhook.EventInvoiceRefunded, refunded)
	return dto.NewInvoiceResponse(refunded, now), nil
}

// buildLineItems resolves product references and computes per-line amounts.
// A line referencing a product inherits the product's name, price and tax
// rate wherever the request leaves them unset.
func (s *invoiceService) buildLineItems(ctx context.Context, reqs []dto.LineItemRequest) ([]*invoice.LineItem, error) {
	items := make([]*invoice.LineItem, 0, len(reqs))
	for i, req := range reqs {
		item := &invoice.LineItem{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
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

		if err := item.Validate(); err != nil {
			return nil, err
		}
		item.Amount = item.Quantity.Mul(item.UnitPrice).Round(2)
		items = append(items, item)
	}
	return items, nil
}

func (s *invoiceService) recomputeTotals(inv *invoice.Invoice) error {
	totals, err := billing.ComputeTotals(invoice.BillingItems(inv.LineItems), inv.TaxRate, inv.DiscountType, inv.DiscountValue)
	if err != nil {
		return err
	}

	inv.Subtotal = totals.Subtotal
	inv.TaxAmount = totals.TaxAmount
	inv.DiscountAmount = totals.DiscountAmount
	inv.Total = totals.Total
	inv.AmountDue = totals.Total.Sub(inv.AmountPaid)
	return nil
}

func defaultCurrency(currency string) string {
	if currency == "" {
		return "usd"
	}
	return currency
}
