package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/corebill/corebill/internal/logger"
	"github.com/corebill/corebill/internal/service"
)

// RecurringHandler exposes the scheduler ticks as cron endpoints. An external
// scheduler (cron, Cloud Scheduler, systemd timer) hits these periodically.
type RecurringHandler struct {
	recurringService service.RecurringService
	estimateService  service.EstimateService
	logger           *logger.Logger
}

func NewRecurringHandler(
	recurringService service.RecurringService,
	estimateService service.EstimateService,
	logger *logger.Logger,
) *RecurringHandler {
	return &RecurringHandler{
		recurringService: recurringService,
		estimateService:  estimateService,
		logger:           logger,
	}
}

// ProcessDueTemplates generates invoices for all due recurring templates
func (h *RecurringHandler) ProcessDueTemplates(c *gin.Context) {
	resp, err := h.recurringService.ProcessDueTemplates(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Errorw("failed to process due templates", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExpireEstimates sweeps sent estimates past their expiry into expired
func (h *RecurringHandler) ExpireEstimates(c *gin.Context) {
	count, err := h.estimateService.ExpireEstimates(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.logger.Errorw("failed to expire estimates", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"expired_count": count})
}
