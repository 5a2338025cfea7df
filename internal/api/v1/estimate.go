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

type EstimateHandler struct {
	estimateService service.EstimateService
	logger          *logger.Logger
}

func NewEstimateHandler(estimateService service.EstimateService, logger *logger.Logger) *EstimateHandler {
	return &EstimateHandler{
		estimateService: estimateService,
		logger:          logger,
	}
}

// CreateEstimate creates a draft estimate
func (h *EstimateHandler) CreateEstimate(c *gin.Context) {
	var req dto.CreateEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorw("failed to bind request", "error", err)
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.estimateService.CreateEstimate(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetEstimate returns an estimate by ID
func (h *EstimateHandler) GetEstimate(c *gin.Context) {
	resp, err := h.estimateService.GetEstimate(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListEstimates lists estimates with optional filtering
func (h *EstimateHandler) ListEstimates(c *gin.Context) {
	var filter types.EstimateFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid query parameters").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.estimateService.ListEstimates(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateEstimate edits a draft estimate
func (h *EstimateHandler) UpdateEstimate(c *gin.Context) {
	var req dto.UpdateEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.estimateService.UpdateEstimate(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SendEstimate issues a draft estimate
func (h *EstimateHandler) SendEstimate(c *gin.Context) {
	resp, err := h.estimateService.SendEstimate(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AcceptEstimate records customer acceptance
func (h *EstimateHandler) AcceptEstimate(c *gin.Context) {
	resp, err := h.estimateService.AcceptEstimate(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeclineEstimate records customer rejection
func (h *EstimateHandler) DeclineEstimate(c *gin.Context) {
	resp, err := h.estimateService.DeclineEstimate(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ConvertEstimate converts an accepted estimate into a draft invoice
func (h *EstimateHandler) ConvertEstimate(c *gin.Context) {
	var req dto.ConvertEstimateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
			return
		}
	}

	resp, err := h.estimateService.ConvertToInvoice(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
