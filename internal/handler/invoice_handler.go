package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/service"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/response"
)

// InvoiceHandler exposes invoice endpoints.
type InvoiceHandler struct {
	invoices *service.InvoiceService
}

// NewInvoiceHandler constructs InvoiceHandler.
func NewInvoiceHandler(invoices *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

func invoiceFilterFromQuery(c *gin.Context) models.InvoiceFilter {
	var filter models.InvoiceFilter
	if status := c.Query("status"); status != "" {
		v := models.InvoiceStatus(status)
		filter.Status = &v
	}
	if invoiceType := c.Query("type"); invoiceType != "" {
		v := models.InvoiceType(invoiceType)
		filter.Type = &v
	}
	filter.ContractID = c.Query("contractId")
	filter.UserID = c.Query("userId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}

// List godoc
// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by type"
// @Param contractId query string false "Filter by contract"
// @Param userId query string false "Filter by tenant (staff only)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	actor, _ := currentActor(c)
	invoices, pagination, err := h.invoices.List(c.Request.Context(), actor, invoiceFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoices, pagination)
}

// Get godoc
// @Summary Get invoice detail
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	actor, _ := currentActor(c)
	invoice, err := h.invoices.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Pay godoc
// @Summary Pay an invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param payload body service.PayInvoiceRequest true "Payment payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/{id}/pay [post]
func (h *InvoiceHandler) Pay(c *gin.Context) {
	var req service.PayInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor, _ := currentActor(c)
	invoice, err := h.invoices.Pay(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Summary godoc
// @Summary Summarise invoice totals
// @Tags Invoices
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /invoices/summary [get]
func (h *InvoiceHandler) Summary(c *gin.Context) {
	actor, _ := currentActor(c)
	summary, err := h.invoices.Summary(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Export godoc
// @Summary Export invoices as CSV or PDF
// @Tags Invoices
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /invoices/export [get]
func (h *InvoiceHandler) Export(c *gin.Context) {
	actor, _ := currentActor(c)
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	file, err := h.invoices.Export(c.Request.Context(), actor, invoiceFilterFromQuery(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+file.FileName)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
