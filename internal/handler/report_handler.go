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

// ReportHandler exposes schedule report endpoints.
type ReportHandler struct {
	reports *service.ReportService
	metrics *service.MetricsService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService, metrics *service.MetricsService) *ReportHandler {
	return &ReportHandler{reports: reports, metrics: metrics}
}

type bulkReportRequest struct {
	StudentIDs []string `json:"student_ids"`
	Format     string   `json:"format"`
}

func reportFormat(raw string) models.ReportFormat {
	if raw == "" {
		raw = string(models.ReportFormatTXT)
	}
	return models.ReportFormat(strings.ToLower(strings.TrimSpace(raw)))
}

// Generate godoc
// @Summary Generate a student schedule report synchronously
// @Tags Reports
// @Produce json
// @Param id path string true "Student ID"
// @Param format query string false "Report format (txt, csv, pdf)"
// @Success 201 {object} response.Envelope
// @Router /reports/students/{id} [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	format := reportFormat(c.Query("format"))
	result, err := h.reports.Generate(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordReport(string(format))
	}
	response.Created(c, result)
}

// Enqueue godoc
// @Summary Queue a student schedule report for background generation
// @Tags Reports
// @Produce json
// @Param id path string true "Student ID"
// @Param format query string false "Report format (txt, csv, pdf)"
// @Success 202 {object} response.Envelope
// @Router /reports/students/{id}/async [post]
func (h *ReportHandler) Enqueue(c *gin.Context) {
	job, err := h.reports.Enqueue(c.Request.Context(), c.Param("id"), reportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// JobStatus godoc
// @Summary Inspect a queued report job
// @Tags Reports
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /reports/jobs/{jobId} [get]
func (h *ReportHandler) JobStatus(c *gin.Context) {
	job, err := h.reports.JobStatus(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// GenerateBulk godoc
// @Summary Generate schedule reports for several students
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body bulkReportRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /reports/bulk [post]
func (h *ReportHandler) GenerateBulk(c *gin.Context) {
	var req bulkReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	format := reportFormat(req.Format)
	summary, err := h.reports.GenerateBulk(c.Request.Context(), req.StudentIDs, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		for i := 0; i < summary.Succeeded; i++ {
			h.metrics.RecordReport(string(format))
		}
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Download godoc
// @Summary Download a previously generated report file
// @Tags Reports
// @Produce octet-stream
// @Param name path string true "File name"
// @Success 200 {file} binary
// @Router /reports/files/{name} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	file, err := h.reports.Open(c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat report file"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+info.Name()+`"`)
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}
