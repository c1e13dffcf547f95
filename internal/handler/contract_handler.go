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

// ContractHandler exposes tenancy contract endpoints.
type ContractHandler struct {
	contracts *service.ContractService
}

// NewContractHandler constructs ContractHandler.
func NewContractHandler(contracts *service.ContractService) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

// List godoc
// @Summary List contracts
// @Tags Contracts
// @Produce json
// @Param status query string false "Filter by status"
// @Param roomId query string false "Filter by room"
// @Param userId query string false "Filter by tenant (staff only)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contracts [get]
func (h *ContractHandler) List(c *gin.Context) {
	var filter models.ContractFilter
	if status := c.Query("status"); status != "" {
		v := models.ContractStatus(status)
		filter.Status = &v
	}
	filter.RoomID = c.Query("roomId")
	filter.UserID = c.Query("userId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	actor, _ := currentActor(c)
	contracts, pagination, err := h.contracts.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contracts, pagination)
}

// Get godoc
// @Summary Get contract detail
// @Tags Contracts
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contracts/{id} [get]
func (h *ContractHandler) Get(c *gin.Context) {
	actor, _ := currentActor(c)
	contract, err := h.contracts.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contract, nil)
}

// Create godoc
// @Summary Create a contract directly
// @Description Staff shortcut that assigns a student to a room with the same derivation as application approval.
// @Tags Contracts
// @Accept json
// @Produce json
// @Param payload body service.ContractCreateRequest true "Contract payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /contracts [post]
func (h *ContractHandler) Create(c *gin.Context) {
	var req service.ContractCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor, _ := currentActor(c)
	result, err := h.contracts.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Terminate godoc
// @Summary Terminate an active contract
// @Tags Contracts
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contracts/{id}/terminate [post]
func (h *ContractHandler) Terminate(c *gin.Context) {
	actor, _ := currentActor(c)
	contract, err := h.contracts.Terminate(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contract, nil)
}

// Delete godoc
// @Summary Delete a contract and its invoices
// @Tags Contracts
// @Produce json
// @Param id path string true "Contract ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /contracts/{id} [delete]
func (h *ContractHandler) Delete(c *gin.Context) {
	actor, _ := currentActor(c)
	if err := h.contracts.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
