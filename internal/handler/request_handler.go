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

// RequestHandler exposes maintenance/complaint ticket endpoints.
type RequestHandler struct {
	requests *service.RequestService
}

// NewRequestHandler constructs RequestHandler.
func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// List godoc
// @Summary List requests
// @Tags Requests
// @Produce json
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by type"
// @Param roomId query string false "Filter by room"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	var filter models.RequestFilter
	if status := c.Query("status"); status != "" {
		v := models.RequestStatus(status)
		filter.Status = &v
	}
	if requestType := c.Query("type"); requestType != "" {
		v := models.RequestType(requestType)
		filter.Type = &v
	}
	filter.RoomID = c.Query("roomId")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	actor, _ := currentActor(c)
	requests, pagination, err := h.requests.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get request detail
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	actor, _ := currentActor(c)
	request, err := h.requests.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Create godoc
// @Summary Raise a maintenance or complaint ticket
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body service.RequestCreateRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var req service.RequestCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor, _ := currentActor(c)
	request, err := h.requests.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

type requestStatusPayload struct {
	Status models.RequestStatus `json:"status" binding:"required"`
}

// UpdateStatus godoc
// @Summary Move a request along its lifecycle
// @Description Allowed transitions: pending to in_progress, pending to rejected, in_progress to completed.
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body requestStatusPayload true "Target status"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/status [put]
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	var payload requestStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor, _ := currentActor(c)
	request, err := h.requests.Transition(c.Request.Context(), actor, c.Param("id"), payload.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
