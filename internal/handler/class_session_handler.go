package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusflow/ums-api/internal/models"
	"github.com/campusflow/ums-api/internal/service"
	appErrors "github.com/campusflow/ums-api/pkg/errors"
	"github.com/campusflow/ums-api/pkg/response"
)

// ClassSessionHandler exposes class session endpoints.
type ClassSessionHandler struct {
	sessions *service.ClassSessionService
	metrics  *service.MetricsService
}

// NewClassSessionHandler constructs ClassSessionHandler.
func NewClassSessionHandler(sessions *service.ClassSessionService, metrics *service.MetricsService) *ClassSessionHandler {
	return &ClassSessionHandler{sessions: sessions, metrics: metrics}
}

// List godoc
// @Summary List class sessions
// @Tags ClassSessions
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param lecturerId query string false "Filter by lecturer"
// @Param studentId query string false "Filter by enrolled student"
// @Param day query string false "Filter by day of week"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *ClassSessionHandler) List(c *gin.Context) {
	var filter models.ClassSessionFilter
	filter.CourseID = c.Query("courseId")
	filter.LecturerID = c.Query("lecturerId")
	filter.StudentID = c.Query("studentId")
	if raw := c.Query("day"); raw != "" {
		day, err := models.ParseDayOfWeek(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Day = day
	}
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	sessions, pagination, err := h.sessions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Get godoc
// @Summary Get class session detail
// @Tags ClassSessions
// @Produce json
// @Param id path string true "Class session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *ClassSessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Seats godoc
// @Summary Report remaining capacity for a class session
// @Tags ClassSessions
// @Produce json
// @Param id path string true "Class session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/seats [get]
func (h *ClassSessionHandler) Seats(c *gin.Context) {
	seats, err := h.sessions.AvailableSeats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"session_id":      c.Param("id"),
		"available_seats": seats,
		"has_capacity":    seats > 0,
	}, nil)
}

// Create godoc
// @Summary Schedule a class session
// @Tags ClassSessions
// @Accept json
// @Produce json
// @Param payload body service.CreateClassSessionRequest true "Class session payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions [post]
func (h *ClassSessionHandler) Create(c *gin.Context) {
	var req service.CreateClassSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.metrics, err)
		return
	}
	response.Created(c, session)
}

// Update godoc
// @Summary Update a class session
// @Tags ClassSessions
// @Accept json
// @Produce json
// @Param id path string true "Class session ID"
// @Param payload body service.UpdateClassSessionRequest true "Class session payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *ClassSessionHandler) Update(c *gin.Context) {
	var req service.UpdateClassSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.sessions.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.metrics, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Delete godoc
// @Summary Delete a class session
// @Tags ClassSessions
// @Produce json
// @Param id path string true "Class session ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id} [delete]
func (h *ClassSessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.metrics, err)
		return
	}
	response.NoContent(c)
}
