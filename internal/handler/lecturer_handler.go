package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusflow/ums-api/internal/models"
	"github.com/campusflow/ums-api/internal/service"
	appErrors "github.com/campusflow/ums-api/pkg/errors"
	"github.com/campusflow/ums-api/pkg/response"
)

// LecturerHandler exposes lecturer endpoints including course assignments.
type LecturerHandler struct {
	lecturers *service.LecturerService
	metrics   *service.MetricsService
}

// NewLecturerHandler constructs LecturerHandler.
func NewLecturerHandler(lecturers *service.LecturerService, metrics *service.MetricsService) *LecturerHandler {
	return &LecturerHandler{lecturers: lecturers, metrics: metrics}
}

// List godoc
// @Summary List lecturers
// @Tags Lecturers
// @Produce json
// @Param departmentId query string false "Filter by department"
// @Param courseId query string false "Filter by assigned course"
// @Param search query string false "Search by name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /lecturers [get]
func (h *LecturerHandler) List(c *gin.Context) {
	var filter models.LecturerFilter
	filter.DepartmentID = c.Query("departmentId")
	filter.CourseID = c.Query("courseId")
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	lecturers, pagination, err := h.lecturers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecturers, pagination)
}

// Get godoc
// @Summary Get lecturer detail
// @Tags Lecturers
// @Produce json
// @Param id path string true "Lecturer ID"
// @Success 200 {object} response.Envelope
// @Router /lecturers/{id} [get]
func (h *LecturerHandler) Get(c *gin.Context) {
	lecturer, err := h.lecturers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lecturer, nil)
}

// Create godoc
// @Summary Create lecturer
// @Tags Lecturers
// @Accept json
// @Produce json
// @Param payload body service.CreateLecturerRequest true "Lecturer payload"
// @Success 201 {object} response.Envelope
// @Router /lecturers [post]
func (h *LecturerHandler) Create(c *gin.Context) {
	var req service.CreateLecturerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lecturer, err := h.lecturers.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.metrics, err)
		return
	}
	response.Created(c, lecturer)
}

// Update godoc
// @Summary Update lecturer
// @Tags Lecturers
// @Accept json
// @Produce json
// @Param id path string true "Lecturer ID"
// @Param payload body service.UpdateLecturerRequest true "Lecturer payload"
// @Success 200 {object} response.Envelope
// @Router /lecturers/{id} [put]
func (h *LecturerHandler) Update(c *gin.Context) {
	var req service.UpdateLecturerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	lecturer, err := h.lecturers.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.metrics, err)
		return
	}
	response.JSON(c, http.StatusOK, lecturer, nil)
}

// Delete godoc
// @Summary Delete lecturer
// @Tags Lecturers
// @Produce json
// @Param id path string true "Lecturer ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /lecturers/{id} [delete]
func (h *LecturerHandler) Delete(c *gin.Context) {
	if err := h.lecturers.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.metrics, err)
		return
	}
	response.NoContent(c)
}

// AssignCourse godoc
// @Summary Grant a lecturer the right to teach a course
// @Tags Lecturers
// @Produce json
// @Param id path string true "Lecturer ID"
// @Param courseId path string true "Course ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lecturers/{id}/courses/{courseId} [post]
func (h *LecturerHandler) AssignCourse(c *gin.Context) {
	result, err := h.lecturers.AssignCourse(c.Request.Context(), c.Param("id"), c.Param("courseId"))
	if err != nil {
		respondError(c, h.metrics, err)
		return
	}
	response.Created(c, result)
}

// UnassignCourse godoc
// @Summary Revoke a lecturer's right to teach a course
// @Tags Lecturers
// @Produce json
// @Param id path string true "Lecturer ID"
// @Param courseId path string true "Course ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /lecturers/{id}/courses/{courseId} [delete]
func (h *LecturerHandler) UnassignCourse(c *gin.Context) {
	if err := h.lecturers.UnassignCourse(c.Request.Context(), c.Param("id"), c.Param("courseId")); err != nil {
		respondError(c, h.metrics, err)
		return
	}
	response.NoContent(c)
}
