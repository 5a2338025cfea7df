package gateway

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"

	"github.com/corebill/corebill/internal/config"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/logger"
)

type stripeGateway struct {
	client     *stripe.Client
	successURL string
	cancelURL  string
	logger     *logger.Logger
}

// NewStripeGateway creates a Stripe-backed payment gateway. Returns nil when
// Stripe is disabled in config; callers treat a nil gateway as "card
// collection unavailable".
func NewStripeGateway(cfg config.StripeConfig, logger *logger.Logger) Gateway {
	if !cfg.Enabled || cfg.SecretKey == "" {
		return nil
	}

	return &stripeGateway{
		client:     stripe.NewClient(cfg.SecretKey, nil),
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		logger:     logger,
	}
}

func (g *stripeGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	amountInCents := req.Amount.Mul(decimal.NewFromInt(100)).IntPart()
	params := &stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String(req.Currency),
		Confirm:  stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: g.metadata(req.InvoiceID, req.InvoiceNumber, req.Metadata),
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	paymentIntent, err := g.client.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		g.logger.Errorw("failed to create stripe payment intent",
			"invoice_id", req.InvoiceID,
			"error", err)
		return nil, ierr.WithError(err).
			WithHint("Card charge failed at the payment processor").
			WithReportableDetails(map[string]any{"invoice_id": req.InvoiceID}).
			Mark(ierr.ErrExternalService)
	}

	g.logger.Infow("stripe charge created",
		"invoice_id", req.InvoiceID,
		"payment_intent_id", paymentIntent.ID,
		"status", paymentIntent.Status)

	return &ChargeResult{
		GatewayPaymentID: paymentIntent.ID,
		Status:           string(paymentIntent.Status),
	}, nil
}

func (g *stripeGateway) CreatePaymentLink(ctx context.Context, req *PaymentLinkRequest) (*PaymentLinkResult, error) {
	amountInCents := req.Amount.Mul(decimal.NewFromInt(100)).IntPart()
	metadata := g.metadata(req.InvoiceID, req.InvoiceNumber, req.Metadata)

	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String("payment"),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		Metadata:   metadata,
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(amountInCents),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String("Invoice " + req.InvoiceNumber),
					},
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	session, err := g.client.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		g.logger.Errorw("failed to create stripe checkout session",
			"invoice_id", req.InvoiceID,
			"error", err)
		return nil, ierr.WithError(err).
			WithHint("Unable to create a hosted payment link").
			WithReportableDetails(map[string]any{"invoice_id": req.InvoiceID}).
			Mark(ierr.ErrExternalService)
	}

	g.logger.Infow("stripe payment link created",
		"invoice_id", req.InvoiceID,
		"session_id", session.ID)

	return &PaymentLinkResult{
		SessionID:  session.ID,
		PaymentURL: session.URL,
	}, nil
}

func (g *stripeGateway) metadata(invoiceID, invoiceNumber string, extra map[string]string) map[string]string {
	md := map[string]string{
		"invoice_id":     invoiceID,
		"invoice_number": invoiceNumber,
	}
	for k, v := range extra {
		md[k] = v
	}
	return md
}
