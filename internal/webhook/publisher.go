package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/corebill/corebill/internal/config"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/httpclient"
	"github.com/corebill/corebill/internal/logger"
	"github.com/corebill/corebill/internal/types"
)

// Event names delivered to the configured endpoint
const (
	EventInvoiceSent     = "invoice.sent"
	EventInvoicePaid     = "invoice.paid"
	EventInvoiceRefunded = "invoice.refunded"
)

// Event is the envelope posted to the webhook endpoint
type Event struct {
	ID        string      `json:"id"`
	EventName string      `json:"event_name"`
	OrgID     string      `json:"org_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Publisher delivers lifecycle events to an external endpoint. Callers treat
// delivery as best-effort: a failed publish is logged, never rolled back.
type Publisher interface {
	Publish(ctx context.Context, eventName string, payload interface{}) error
}

type publisher struct {
	client httpclient.Client
	url    string
	logger *logger.Logger
}

// NewPublisher creates a webhook publisher. Returns nil when webhooks are
// disabled in config; callers treat a nil publisher as "no subscriber".
func NewPublisher(client httpclient.Client, cfg config.WebhookConfig, logger *logger.Logger) Publisher {
	if !cfg.Enabled || cfg.URL == "" {
		return nil
	}

	return &publisher{
		client: client,
		url:    cfg.URL,
		logger: logger,
	}
}

func (p *publisher) Publish(ctx context.Context, eventName string, payload interface{}) error {
	event := &Event{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName: eventName,
		OrgID:     types.GetOrgID(ctx),
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	body, err := json.Marshal(event)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize webhook event").
			Mark(ierr.ErrSystem)
	}

	// Send rejects non-success endpoint responses with ErrExternalService
	if _, err := p.client.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    p.url,
		Headers: map[string]string{
			"X-Webhook-Event": eventName,
			"X-Webhook-ID":    event.ID,
		},
		Body: body,
	}); err != nil {
		return err
	}

	p.logger.Debugw("delivered webhook event",
		"event_id", event.ID,
		"event_name", eventName)
	return nil
}
