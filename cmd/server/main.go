package main

import (
	"log"

	"github.com/corebill/corebill/internal/api"
	"github.com/corebill/corebill/internal/api/cron"
	v1 "github.com/corebill/corebill/internal/api/v1"
	"github.com/corebill/corebill/internal/cache"
	"github.com/corebill/corebill/internal/config"
	"github.com/corebill/corebill/internal/email"
	"github.com/corebill/corebill/internal/gateway"
	"github.com/corebill/corebill/internal/httpclient"
	"github.com/corebill/corebill/internal/idempotency"
	"github.com/corebill/corebill/internal/logger"
	"github.com/corebill/corebill/internal/postgres"
	"github.com/corebill/corebill/internal/repository"
	"github.com/corebill/corebill/internal/service"
	"github.com/corebill/corebill/internal/webhook"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg, err := logger.NewLogger(logger.Config{Level: cfg.Logging.Level})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logg.Sync()

	db, err := postgres.NewDB(cfg, logg)
	if err != nil {
		logg.Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	emailClient := email.NewEmailClient(email.Config{
		Enabled:     cfg.Email.Enabled,
		APIKey:      cfg.Email.APIKey,
		FromAddress: cfg.Email.FromAddress,
		ReplyTo:     cfg.Email.ReplyTo,
	})

	params := service.ServiceParams{
		Logger: logg,
		Config: cfg,
		DB:     db,

		Gateway:          gateway.NewStripeGateway(cfg.Stripe, logg),
		EmailSender:      email.NewService(emailClient, logg),
		WebhookPublisher: webhook.NewPublisher(httpclient.NewDefaultClient(), cfg.Webhook, logg),

		IdempotencyGenerator: idempotency.NewGenerator(),
		Cache:                cache.NewInMemoryCache(),

		InvoiceRepo:  repository.NewInvoiceRepository(db, logg),
		EstimateRepo: repository.NewEstimateRepository(db, logg),
		TemplateRepo: repository.NewTemplateRepository(db, logg),
		PaymentRepo:  repository.NewPaymentRepository(db, logg),
		ContactRepo:  repository.NewContactRepository(db, logg),
		ProductRepo:  repository.NewProductRepository(db, logg),
	}

	invoiceService := service.NewInvoiceService(params)
	estimateService := service.NewEstimateService(params)
	recurringService := service.NewRecurringService(params)
	paymentService := service.NewPaymentService(params)
	contactService := service.NewContactService(params)
	productService := service.NewProductService(params)

	handlers := api.Handlers{
		Health:    v1.NewHealthHandler(),
		Invoice:   v1.NewInvoiceHandler(invoiceService, logg),
		Estimate:  v1.NewEstimateHandler(estimateService, logg),
		Recurring: v1.NewRecurringHandler(recurringService, logg),
		Payment:   v1.NewPaymentHandler(paymentService, logg),
		Contact:   v1.NewContactHandler(contactService, logg),
		Product:   v1.NewProductHandler(productService, logg),
		Cron:      cron.NewRecurringHandler(recurringService, estimateService, logg),
	}

	router := api.NewRouter(handlers)

	logg.Infow("starting server", "address", cfg.Server.Address)
	if err := router.Run(cfg.Server.Address); err != nil {
		logg.Fatalw("server stopped", "error", err)
	}
}
