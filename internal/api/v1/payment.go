package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/corebill/corebill/internal/api/dto"
	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/logger"
	"github.com/corebill/corebill/internal/service"
	"github.com/corebill/corebill/internal/types"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *logger.Logger
}

func NewPaymentHandler(paymentService service.PaymentService, logger *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// RecordPayment applies a manually collected payment to an invoice
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req dto.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}
	req.InvoiceID = c.Param("id")

	resp, err := h.paymentService.RecordPayment(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ChargeInvoice collects the amount due by card through the gateway
func (h *PaymentHandler) ChargeInvoice(c *gin.Context) {
	req := dto.ChargeInvoiceRequest{InvoiceID: c.Param("id")}

	resp, err := h.paymentService.ChargeInvoice(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// CreatePaymentLink returns a hosted checkout URL for the amount due
func (h *PaymentHandler) CreatePaymentLink(c *gin.Context) {
	req := dto.CreatePaymentLinkRequest{InvoiceID: c.Param("id")}

	resp, err := h.paymentService.CreatePaymentLink(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetPayment returns a payment by ID
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	resp, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListPayments lists payments with optional filtering
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	var filter types.PaymentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid query parameters").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.paymentService.ListPayments(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
