package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edumarket/course-market-api/internal/models"
	"github.com/edumarket/course-market-api/internal/service"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
	"github.com/edumarket/course-market-api/pkg/response"
)

// PurchaseHandler exposes reservation and enrollment endpoints.
type PurchaseHandler struct {
	purchases *service.PurchaseService
}

// NewPurchaseHandler constructs PurchaseHandler.
func NewPurchaseHandler(purchases *service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases}
}

// Create godoc
// @Summary Reserve or enroll in a course
// @Tags Purchases
// @Accept json
// @Produce json
// @Param payload body service.CreatePurchaseRequest true "Purchase payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /purchases [post]
func (h *PurchaseHandler) Create(c *gin.Context) {
	var req service.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	purchase, err := h.purchases.Create(c.Request.Context(), identityFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, purchase)
}

// List godoc
// @Summary List purchases
// @Tags Purchases
// @Produce json
// @Param courseId query string false "Filter by course (required for instructors and admins)"
// @Param state query string false "Filter by state (reservado or inscrito)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /purchases [get]
func (h *PurchaseHandler) List(c *gin.Context) {
	var filter models.PurchaseFilter
	filter.CourseID = c.Query("courseId")
	filter.State = models.PurchaseState(c.Query("state"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	purchases, pagination, err := h.purchases.List(c.Request.Context(), identityFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, purchases, pagination)
}

// Delete godoc
// @Summary Unenroll from a course
// @Tags Purchases
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /purchases/{courseId} [delete]
func (h *PurchaseHandler) Delete(c *gin.Context) {
	state, err := h.purchases.Unenroll(c.Request.Context(), identityFromContext(c), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"course_id": c.Param("courseId"), "state": state}, nil)
}
