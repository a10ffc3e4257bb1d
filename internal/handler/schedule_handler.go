package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edumarket/course-market-api/internal/service"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
	"github.com/edumarket/course-market-api/pkg/response"
)

// ScheduleHandler exposes schedule endpoints nested under courses.
type ScheduleHandler struct {
	schedules *service.ScheduleService
}

// NewScheduleHandler constructs ScheduleHandler.
func NewScheduleHandler(schedules *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// List godoc
// @Summary List course schedules
// @Tags Schedules
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.schedules.List(c.Request.Context(), identityFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Get godoc
// @Summary Get schedule detail
// @Tags Schedules
// @Produce json
// @Param id path string true "Course ID"
// @Param scheduleId path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/schedules/{scheduleId} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.schedules.Get(c.Request.Context(), identityFromContext(c), c.Param("id"), c.Param("scheduleId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Create godoc
// @Summary Add schedule to course
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.ScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.schedules.Create(c.Request.Context(), identityFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Update godoc
// @Summary Update schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param scheduleId path string true "Schedule ID"
// @Param payload body service.ScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/schedules/{scheduleId} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.schedules.Update(c.Request.Context(), identityFromContext(c), c.Param("id"), c.Param("scheduleId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Course ID"
// @Param scheduleId path string true "Schedule ID"
// @Success 204 "No Content"
// @Router /courses/{id}/schedules/{scheduleId} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), identityFromContext(c), c.Param("id"), c.Param("scheduleId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
