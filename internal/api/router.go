package api

import (
	"github.com/gin-gonic/gin"

	"github.com/corebill/corebill/internal/api/cron"
	v1 "github.com/corebill/corebill/internal/api/v1"
	"github.com/corebill/corebill/internal/rest/middleware"
)

type Handlers struct {
	Health    *v1.HealthHandler
	Invoice   *v1.InvoiceHandler
	Estimate  *v1.EstimateHandler
	Recurring *v1.RecurringHandler
	Payment   *v1.PaymentHandler
	Contact   *v1.ContactHandler
	Product   *v1.ProductHandler
	Cron      *cron.RecurringHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		middleware.CORSMiddleware,
		middleware.RequestIDMiddleware,
		middleware.OrgContextMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	// v1 routes
	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Invoice routes
	invoices := router.Group("/invoices")
	{
		invoices.POST("", handlers.Invoice.CreateInvoice)
		invoices.GET("", handlers.Invoice.ListInvoices)
		invoices.GET("/:id", handlers.Invoice.GetInvoice)
		invoices.PUT("/:id", handlers.Invoice.UpdateInvoice)
		invoices.POST("/:id/send", handlers.Invoice.SendInvoice)
		invoices.POST("/:id/view", handlers.Invoice.MarkViewed)
		invoices.POST("/:id/cancel", handlers.Invoice.CancelInvoice)
		invoices.POST("/:id/refund", handlers.Invoice.RefundInvoice)
		invoices.POST("/:id/payments", handlers.Payment.RecordPayment)
		invoices.POST("/:id/charge", handlers.Payment.ChargeInvoice)
		invoices.POST("/:id/payment-link", handlers.Payment.CreatePaymentLink)
		invoices.POST("/:id/make-recurring", handlers.Recurring.MakeRecurring)
	}

	// Estimate routes
	estimates := router.Group("/estimates")
	{
		estimates.POST("", handlers.Estimate.CreateEstimate)
		estimates.GET("", handlers.Estimate.ListEstimates)
		estimates.GET("/:id", handlers.Estimate.GetEstimate)
		estimates.PUT("/:id", handlers.Estimate.UpdateEstimate)
		estimates.POST("/:id/send", handlers.Estimate.SendEstimate)
		estimates.POST("/:id/accept", handlers.Estimate.AcceptEstimate)
		estimates.POST("/:id/decline", handlers.Estimate.DeclineEstimate)
		estimates.POST("/:id/convert", handlers.Estimate.ConvertEstimate)
	}

	// Recurring template routes
	templates := router.Group("/templates")
	{
		templates.POST("", handlers.Recurring.CreateTemplate)
		templates.GET("", handlers.Recurring.ListTemplates)
		templates.GET("/:id", handlers.Recurring.GetTemplate)
		templates.POST("/:id/pause", handlers.Recurring.PauseTemplate)
		templates.POST("/:id/resume", handlers.Recurring.ResumeTemplate)
	}

	// Payment routes
	payments := router.Group("/payments")
	{
		payments.GET("", handlers.Payment.ListPayments)
		payments.GET("/:id", handlers.Payment.GetPayment)
	}

	// Contact routes
	contacts := router.Group("/contacts")
	{
		contacts.POST("", handlers.Contact.CreateContact)
		contacts.GET("", handlers.Contact.ListContacts)
		contacts.GET("/:id", handlers.Contact.GetContact)
		contacts.PUT("/:id", handlers.Contact.UpdateContact)
		contacts.DELETE("/:id", handlers.Contact.DeleteContact)
	}

	// Product routes
	products := router.Group("/products")
	{
		products.POST("", handlers.Product.CreateProduct)
		products.GET("", handlers.Product.ListProducts)
		products.GET("/:id", handlers.Product.GetProduct)
		products.PUT("/:id", handlers.Product.UpdateProduct)
		products.DELETE("/:id", handlers.Product.DeleteProduct)
	}

	// Cron routes, hit by an external scheduler
	crons := router.Group("/cron")
	{
		crons.POST("/recurring/process", handlers.Cron.ProcessDueTemplates)
		crons.POST("/estimates/expire", handlers.Cron.ExpireEstimates)
	}
}
