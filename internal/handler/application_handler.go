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

// ApplicationHandler exposes room application endpoints.
type ApplicationHandler struct {
	applications *service.ApplicationService
}

// NewApplicationHandler constructs ApplicationHandler.
func NewApplicationHandler(applications *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

// List godoc
// @Summary List applications
// @Tags Applications
// @Produce json
// @Param status query string false "Filter by status"
// @Param roomId query string false "Filter by room"
// @Param userId query string false "Filter by applicant (staff only)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	var filter models.ApplicationFilter
	if status := c.Query("status"); status != "" {
		v := models.ApplicationStatus(status)
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
	applications, pagination, err := h.applications.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applications, pagination)
}

// Get godoc
// @Summary Get application detail
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	actor, _ := currentActor(c)
	application, err := h.applications.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}

// Create godoc
// @Summary Submit a room application
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body service.ApplicationCreateRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /applications [post]
func (h *ApplicationHandler) Create(c *gin.Context) {
	var req service.ApplicationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor, _ := currentActor(c)
	application, err := h.applications.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, application)
}

// Approve godoc
// @Summary Approve an application
// @Description Flips the application to approved and derives the contract, first invoice and room assignment in one transaction.
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /applications/{id}/approve [post]
func (h *ApplicationHandler) Approve(c *gin.Context) {
	actor, _ := currentActor(c)
	result, err := h.applications.Approve(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject an application
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /applications/{id}/reject [post]
func (h *ApplicationHandler) Reject(c *gin.Context) {
	actor, _ := currentActor(c)
	application, err := h.applications.Reject(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, application, nil)
}
