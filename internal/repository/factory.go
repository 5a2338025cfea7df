package repository

import (
	"github.com/corebill/corebill/internal/domain/contact"
	"github.com/corebill/corebill/internal/domain/estimate"
	"github.com/corebill/corebill/internal/domain/invoice"
	"github.com/corebill/corebill/internal/domain/payment"
	"github.com/corebill/corebill/internal/domain/product"
	"github.com/corebill/corebill/internal/domain/template"
	"github.com/corebill/corebill/internal/logger"
	"github.com/corebill/corebill/internal/postgres"
	postgresRepo "github.com/corebill/corebill/internal/repository/postgres"
)

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}

func NewEstimateRepository(db *postgres.DB, logger *logger.Logger) estimate.Repository {
	return postgresRepo.NewEstimateRepository(db, logger)
}

func NewTemplateRepository(db *postgres.DB, logger *logger.Logger) template.Repository {
	return postgresRepo.NewTemplateRepository(db, logger)
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentRepository(db, logger)
}

func NewContactRepository(db *postgres.DB, logger *logger.Logger) contact.Repository {
	return postgresRepo.NewContactRepository(db, logger)
}

func NewProductRepository(db *postgres.DB, logger *logger.Logger) product.Repository {
	return postgresRepo.NewProductRepository(db, logger)
}
