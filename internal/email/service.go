package email

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/corebill/corebill/internal/logger"
)

// InvoiceEmail carries everything the delivery template needs. Amounts are
// preformatted so the sender stays free of financial logic.
type InvoiceEmail struct {
	To             string
	CustomerName   string
	DocumentNumber string
	Total          decimal.Decimal
	Currency       string
	DueDate        string
	PaymentLinkURL string
}

// Sender delivers billing documents to customers. Implementations must be
// safe to call from transactional code paths: delivery failures are reported
// to the caller, never panicked.
type Sender interface {
	SendInvoice(ctx context.Context, msg InvoiceEmail) error
	SendEstimate(ctx context.Context, msg InvoiceEmail) error
}

type service struct {
	client *EmailClient
	logger *logger.Logger
}

// NewService creates an email sender backed by the configured client
func NewService(client *EmailClient, logger *logger.Logger) Sender {
	return &service{
		client: client,
		logger: logger,
	}
}

func (s *service) SendInvoice(ctx context.Context, msg InvoiceEmail) error {
	subject := fmt.Sprintf("Invoice %s", msg.DocumentNumber)
	return s.send(ctx, msg, subject, "invoice")
}

func (s *service) SendEstimate(ctx context.Context, msg InvoiceEmail) error {
	subject := fmt.Sprintf("Estimate %s", msg.DocumentNumber)
	return s.send(ctx, msg, subject, "estimate")
}

func (s *service) send(ctx context.Context, msg InvoiceEmail, subject, kind string) error {
	if !s.client.IsEnabled() {
		s.logger.Debugw("email disabled, skipping delivery",
			"document_number", msg.DocumentNumber,
			"kind", kind)
		return nil
	}

	html := renderDocumentHTML(msg, kind)
	text := renderDocumentText(msg, kind)

	id, err := s.client.SendEmail(ctx, s.client.GetFromAddress(), msg.To, subject, html, text)
	if err != nil {
		s.logger.Errorw("failed to send document email",
			"document_number", msg.DocumentNumber,
			"kind", kind,
			"error", err)
		return err
	}

	s.logger.Infow("document email sent",
		"document_number", msg.DocumentNumber,
		"kind", kind,
		"email_id", id)
	return nil
}

func renderDocumentHTML(msg InvoiceEmail, kind string) string {
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your %s <strong>%s</strong> for <strong>%s %s</strong> is ready.</p>",
		msg.CustomerName, kind, msg.DocumentNumber, msg.Currency, msg.Total.StringFixed(2))
	if msg.DueDate != "" {
		body += fmt.Sprintf("<p>Payment is due by %s.</p>", msg.DueDate)
	}
	if msg.PaymentLinkURL != "" {
		body += fmt.Sprintf(`<p><a href="%s">Pay now</a></p>`, msg.PaymentLinkURL)
	}
	return body
}

func renderDocumentText(msg InvoiceEmail, kind string) string {
	body := fmt.Sprintf("Hi %s,\n\nYour %s %s for %s %s is ready.\n",
		msg.CustomerName, kind, msg.DocumentNumber, msg.Currency, msg.Total.StringFixed(2))
	if msg.DueDate != "" {
		body += fmt.Sprintf("Payment is due by %s.\n", msg.DueDate)
	}
	if msg.PaymentLinkURL != "" {
		body += fmt.Sprintf("Pay online: %s\n", msg.PaymentLinkURL)
	}
	return body
}
