package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeRequest asks the gateway to collect a card payment immediately
type ChargeRequest struct {
	InvoiceID      string
	InvoiceNumber  string
	Amount         decimal.Decimal
	Currency       string
	CustomerEmail  string
	IdempotencyKey string
	Metadata       map[string]string
}

// ChargeResult is the gateway's record of a completed charge
type ChargeResult struct {
	GatewayPaymentID string
	Status           string
}

// PaymentLinkRequest asks the gateway for a hosted checkout URL the customer
// can pay through later
type PaymentLinkRequest struct {
	InvoiceID     string
	InvoiceNumber string
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
	Metadata      map[string]string
}

// PaymentLinkResult carries the hosted checkout session back to the caller
type PaymentLinkResult struct {
	SessionID  string
	PaymentURL string
}

// Gateway abstracts the payment processor. The core only needs two
// operations: an immediate charge and a hosted payment link.
type Gateway interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
	CreatePaymentLink(ctx context.Context, req *PaymentLinkRequest) (*PaymentLinkResult, error)
}
