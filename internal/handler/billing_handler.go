package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/service"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/response"
)

// BillingHandler exposes the manual billing cycle trigger.
type BillingHandler struct {
	billing *service.BillingService
}

// NewBillingHandler constructs BillingHandler.
func NewBillingHandler(billing *service.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// Trigger godoc
// @Summary Queue a billing cycle
// @Description Enqueues a run that marks expired contracts, flags overdue invoices and issues the next month's rent invoices.
// @Tags Billing
// @Security BearerAuth
// @Produce json
// @Success 202 {object} response.Envelope
// @Router /billing/run [post]
func (h *BillingHandler) Trigger(c *gin.Context) {
	if err := h.billing.Trigger(); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"queued": true}, nil)
}
