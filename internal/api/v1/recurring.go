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

type RecurringHandler struct {
	recurringService service.RecurringService
	logger           *logger.Logger
}

func NewRecurringHandler(recurringService service.RecurringService, logger *logger.Logger) *RecurringHandler {
	return &RecurringHandler{
		recurringService: recurringService,
		logger:           logger,
	}
}

// CreateTemplate creates a recurring invoice template
func (h *RecurringHandler) CreateTemplate(c *gin.Context) {
	var req dto.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.recurringService.CreateTemplate(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// MakeRecurring seeds a template from an existing invoice
func (h *RecurringHandler) MakeRecurring(c *gin.Context) {
	var req dto.MakeRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}
	req.InvoiceID = c.Param("id")

	resp, err := h.recurringService.MakeRecurring(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetTemplate returns a template by ID
func (h *RecurringHandler) GetTemplate(c *gin.Context) {
	resp, err := h.recurringService.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListTemplates lists templates with optional filtering
func (h *RecurringHandler) ListTemplates(c *gin.Context) {
	var filter types.TemplateFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid query parameters").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.recurringService.ListTemplates(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// PauseTemplate suspends scheduling for a template
func (h *RecurringHandler) PauseTemplate(c *gin.Context) {
	resp, err := h.recurringService.PauseTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ResumeTemplate reactivates a paused template
func (h *RecurringHandler) ResumeTemplate(c *gin.Context) {
	resp, err := h.recurringService.ResumeTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
