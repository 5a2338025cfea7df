package testutil

import (
	"context"
	"fmt"
	"sync"

	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/gateway"
)

// MockGateway records charge and payment link calls and can be told to fail
type MockGateway struct {
	mu sync.Mutex

	FailCharges bool
	FailLinks   bool

	Charges []*gateway.ChargeRequest
	Links   []*gateway.PaymentLinkRequest
}

var _ gateway.Gateway = (*MockGateway)(nil)

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) Charge(ctx context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailCharges {
		return nil, ierr.NewError("charge declined").
			WithHint("Card charge failed at the payment processor").
			Mark(ierr.ErrExternalService)
	}

	g.Charges = append(g.Charges, req)
	return &gateway.ChargeResult{
		GatewayPaymentID: fmt.Sprintf("pi_test_%d", len(g.Charges)),
		Status:           "succeeded",
	}, nil
}

func (g *MockGateway) CreatePaymentLink(ctx context.Context, req *gateway.PaymentLinkRequest) (*gateway.PaymentLinkResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.FailLinks {
		return nil, ierr.NewError("payment link creation failed").
			WithHint("Unable to create a hosted payment link").
			Mark(ierr.ErrExternalService)
	}

	g.Links = append(g.Links, req)
	return &gateway.PaymentLinkResult{
		SessionID:  fmt.Sprintf("cs_test_%d", len(g.Links)),
		PaymentURL: fmt.Sprintf("https://pay.example.com/cs_test_%d", len(g.Links)),
	}, nil
}

// ChargeCount returns how many charges have been recorded
func (g *MockGateway) ChargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Charges)
}
