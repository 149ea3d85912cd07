package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusflow/ums-api/internal/service"
	appErrors "github.com/campusflow/ums-api/pkg/errors"
	"github.com/campusflow/ums-api/pkg/response"
)

// EnrollmentHandler exposes enrollment and withdrawal endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	metrics     *service.MetricsService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, metrics *service.MetricsService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, metrics: metrics}
}

// Enroll godoc
// @Summary Enroll a student into a class session
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.metrics, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordEnrollment()
	}
	response.Created(c, result)
}

// Withdraw godoc
// @Summary Withdraw a student from a class session
// @Tags Enrollments
// @Produce json
// @Param studentId path string true "Student ID"
// @Param sessionId path string true "Class session ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /enrollments/{studentId}/{sessionId} [delete]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	if err := h.enrollments.Withdraw(c.Request.Context(), c.Param("studentId"), c.Param("sessionId")); err != nil {
		respondError(c, h.metrics, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordWithdrawal()
	}
	response.NoContent(c)
}
