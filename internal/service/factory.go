package service

import (
	"context"

	"github.com/corebill/corebill/internal/cache"
	"github.com/corebill/corebill/internal/config"
	"github.com/corebill/corebill/internal/domain/contact"
	"github.com/corebill/corebill/internal/domain/estimate"
	"github.com/corebill/corebill/internal/domain/invoice"
	"github.com/corebill/corebill/internal/domain/payment"
	"github.com/corebill/corebill/internal/domain/product"
	"github.com/corebill/corebill/internal/domain/template"
	"github.com/corebill/corebill/internal/email"
	"github.com/corebill/corebill/internal/gateway"
	"github.com/corebill/corebill/internal/idempotency"
	"github.com/corebill/corebill/internal/logger"
	"github.com/corebill/corebill/internal/postgres"
	"github.com/corebill/corebill/internal/webhook"
)

// ServiceParams bundles everything services need. A single struct keeps
// constructor signatures stable as dependencies grow.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// External integrations; any of these may be nil when disabled in config
	Gateway          gateway.Gateway
	EmailSender      email.Sender
	WebhookPublisher webhook.Publisher

	IdempotencyGenerator *idempotency.Generator

	// Cache may be nil, in which case lookups always hit storage
	Cache cache.Cache

	// Repositories
	InvoiceRepo  invoice.Repository
	EstimateRepo estimate.Repository
	TemplateRepo template.Repository
	PaymentRepo  payment.Repository
	ContactRepo  contact.Repository
	ProductRepo  product.Repository
}

// publishWebhook delivers a lifecycle event after the owning transaction has
// committed. Failures are logged, never propagated.
func (p ServiceParams) publishWebhook(ctx context.Context, eventName string, payload interface{}) {
	if p.WebhookPublisher == nil {
		return
	}
	if err := p.WebhookPublisher.Publish(ctx, eventName, payload); err != nil {
		p.Logger.Errorw("webhook delivery failed",
			"event_name", eventName,
			"error", err)
	}
}
