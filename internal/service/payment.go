package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/corebill/corebill/internal/api/dto"
	"github.com/corebill/corebill/internal/domain/invoice"
	"github.com/corebill/corebill/internal/domain/payment"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/gateway"
	"github.com/corebill/corebill/internal/idempotency"
	"github.com/corebill/corebill/internal/types"
	"github.com/corebill/corebill/internal/webhook"
)

// PaymentService applies money to invoices. Manual collection goes through
// RecordPayment; card collection goes through the gateway.
type PaymentService interface {
	RecordPayment(ctx context.Context, req *dto.RecordPaymentRequest) (*dto.PaymentResponse, error)
	ChargeInvoice(ctx context.Context, req *dto.ChargeInvoiceRequest) (*dto.PaymentResponse, error)
	CreatePaymentLink(ctx context.Context, req *dto.CreatePaymentLinkRequest) (*dto.PaymentLinkResponse, error)
	GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error)
	ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error)
}

type paymentService struct {
	ServiceParams
}

// NewPaymentService creates a new payment service
func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{ServiceParams: params}
}

// RecordPayment applies a manually collected payment. A tender above the
// amount due is clamped: the applied amount settles the invoice exactly and
// the excess is kept on the payment record as OverpaymentAmount.
func (s *paymentService) RecordPayment(ctx context.Context, req *dto.RecordPaymentRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	paidAt := lo.FromPtrOr(req.PaymentDate, time.Now().UTC())

	var rec *payment.Payment
	var settled *invoice.Invoice
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
		if err != nil {
			return err
		}

		applied, overpayment, err := clampToDue(inv, req.Amount)
		if err != nil {
			return err
		}

		rec = &payment.Payment{
			ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
			InvoiceID:         inv.ID,
			Amount:            applied,
			OverpaymentAmount: overpayment,
			Currency:          inv.Currency,
			PaymentMethod:     req.PaymentMethod,
			PaymentDate:       paidAt,
			Reference:         req.Reference,
			Notes:             req.Notes,
			Metadata:          req.Metadata,
			BaseModel:         types.GetDefaultBaseModel(ctx),
		}
		if err := rec.Validate(); err != nil {
			return err
		}
		if err := s.PaymentRepo.Create(ctx, rec); err != nil {
			return err
		}

		if err := inv.ApplyPayment(applied, paidAt); err != nil {
			return err
		}
		inv.UpdatedAt = time.Now().UTC()
		inv.UpdatedBy = types.GetUserID(ctx)
		settled = inv
		return s.InvoiceRepo.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("recorded payment",
		"payment_id", rec.ID,
		"invoice_id", rec.InvoiceID,
		"amount", rec.Amount,
		"overpayment", rec.OverpaymentAmount,
		"method", rec.PaymentMethod)

	if settled.InvoiceStatus == types.InvoiceStatusPaid {
		s.publishWebhook(ctx, webhook.EventInvoicePaid, settled)
	}

	return dto.NewPaymentResponse(rec), nil
}

// ChargeInvoice collects the full amount due by card through the gateway,
// then records the resulting payment. The idempotency key covers the charge
// so a retried request cannot double-charge.
func (s *paymentService) ChargeInvoice(ctx context.Context, req *dto.ChargeInvoiceRequest) (*dto.PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.Gateway == nil {
		return nil, ierr.NewError("payment gateway is not configured").
			WithHint("Card collection requires a configured payment gateway").
			Mark(ierr.ErrValidation)
	}

	inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.InvoiceStatus.AcceptsPayment() {
		return nil, ierr.NewError("invoice does not accept payments").
			WithHintf("Invoice in status %s cannot be charged", inv.InvoiceStatus).
			WithReportableDetails(map[string]any{"invoice_id": inv.ID, "status": inv.InvoiceStatus}).
			Mark(ierr.ErrConflict)
	}

	key := s.IdempotencyGenerator.GenerateKey(idempotency.ScopePayment, map[string]interface{}{
		"invoice_id": inv.ID,
		"amount":     inv.AmountDue.String(),
	})

	// A previous identical charge already went through
	if existing, err := s.PaymentRepo.GetByIdempotencyKey(ctx, key); err == nil {
		return dto.NewPaymentResponse(existing), nil
	}

	chargedAmount := inv.AmountDue
	result, err := s.Gateway.Charge(ctx, &gateway.ChargeRequest{
		InvoiceID:      inv.ID,
		InvoiceNumber:  inv.InvoiceNumber,
		Amount:         chargedAmount,
		Currency:       inv.Currency,
		CustomerEmail:  inv.CustomerEmail,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}

	paidAt := time.Now().UTC()
	var rec *payment.Payment
	var settled *invoice.Invoice
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		// Re-read inside the transaction; the charge may have raced a
		// manual payment
		inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
		if err != nil {
			return err
		}

		applied, overpayment, err := clampToDue(inv, chargedAmount)
		if err != nil {
			return err
		}

		rec = &payment.Payment{
			ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
			InvoiceID:         inv.ID,
			Amount:            applied,
			OverpaymentAmount: overpayment,
			Currency:          inv.Currency,
			PaymentMethod:     types.PaymentMethodCard,
			PaymentDate:       paidAt,
			GatewayPaymentID:  result.GatewayPaymentID,
			IdempotencyKey:    key,
			BaseModel:         types.GetDefaultBaseModel(ctx),
		}
		if err := s.PaymentRepo.Create(ctx, rec); err != nil {
			return err
		}

		if err := inv.ApplyPayment(applied, paidAt); err != nil {
			return err
		}
		inv.UpdatedAt = paidAt
		inv.UpdatedBy = types.GetUserID(ctx)
		settled = inv
		return s.InvoiceRepo.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("charged invoice",
		"payment_id", rec.ID,
		"invoice_id", rec.InvoiceID,
		"gateway_payment_id", rec.GatewayPaymentID,
		"amount", rec.Amount)

	if settled.InvoiceStatus == types.InvoiceStatusPaid {
		s.publishWebhook(ctx, webhook.EventInvoicePaid, settled)
	}

	return dto.NewPaymentResponse(rec), nil
}

// CreatePaymentLink returns a hosted checkout URL for the amount due. No
// payment is recorded until the customer completes checkout.
func (s *paymentService) CreatePaymentLink(ctx context.Context, req *dto.CreatePaymentLinkRequest) (*dto.PaymentLinkResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.Gateway == nil {
		return nil, ierr.NewError("payment gateway is not configured").
			WithHint("Payment links require a configured payment gateway").
			Mark(ierr.ErrValidation)
	}

	inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.InvoiceStatus.AcceptsPayment() {
		return nil, ierr.NewError("invoice does not accept payments").
			WithHintf("Invoice in status %s cannot take a payment link", inv.InvoiceStatus).
			WithReportableDetails(map[string]any{"invoice_id": inv.ID, "status": inv.InvoiceStatus}).
			Mark(ierr.ErrConflict)
	}

	result, err := s.Gateway.CreatePaymentLink(ctx, &gateway.PaymentLinkRequest{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Amount:        inv.AmountDue,
		Currency:      inv.Currency,
		CustomerEmail: inv.CustomerEmail,
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created payment link",
		"invoice_id", inv.ID,
		"session_id", result.SessionID)

	return &dto.PaymentLinkResponse{
		InvoiceID:  inv.ID,
		SessionID:  result.SessionID,
		PaymentURL: result.PaymentURL,
	}, nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*dto.PaymentResponse, error) {
	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewPaymentResponse(p), nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter *types.PaymentFilter) (*dto.ListPaymentsResponse, error) {
	if filter == nil {
		filter = types.NewPaymentFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	payments, err := s.PaymentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.PaymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PaymentResponse, len(payments))
	for i, p := range payments {
		items[i] = dto.NewPaymentResponse(p)
	}
	return &dto.ListPaymentsResponse{Items: items, Total: total}, nil
}

// clampToDue splits a tendered amount into the applied portion and the
// overpayment excess. Payments on settled or terminal invoices are rejected
// by the caller via AcceptsPayment; this guards the arithmetic.
func clampToDue(inv *invoice.Invoice, tendered decimal.Decimal) (applied, overpayment decimal.Decimal, err error) {
	if !inv.InvoiceStatus.AcceptsPayment() {
		return decimal.Zero, decimal.Zero, ierr.NewError("invoice does not accept payments").
			WithHintf("Invoice in status %s cannot receive payments", inv.InvoiceStatus).
			WithReportableDetails(map[string]any{"invoice_id": inv.ID, "status": inv.InvoiceStatus}).
			Mark(ierr.ErrConflict)
	}
	if !tendered.IsPositive() {
		return decimal.Zero, decimal.Zero, ierr.NewError("payment amount must be positive").
			WithHint("Payment amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}

	if tendered.GreaterThan(inv.AmountDue) {
		return inv.AmountDue, tendered.Sub(inv.AmountDue), nil
	}
	return tendered, decimal.Zero, nil
}
