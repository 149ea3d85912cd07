package models

import "time"

// ReportFormat enumerates supported report output formats.
type ReportFormat string

const (
	ReportFormatTXT ReportFormat = "txt"
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// Valid reports whether the format is one of the supported values.
func (f ReportFormat) Valid() bool {
	switch f {
	case ReportFormatTXT, ReportFormatCSV, ReportFormatPDF:
		return true
	}
	return false
}

// ReportStatus captures the background job lifecycle.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// ReportJob is the persisted record of an asynchronous report request.
type ReportJob struct {
	ID           string       `db:"id" json:"id"`
	StudentID    string       `db:"student_external_id" json:"student_id"`
	Format       ReportFormat `db:"format" json:"format"`
	Status       ReportStatus `db:"status" json:"status"`
	FileName     *string      `db:"file_name" json:"file_name,omitempty"`
	ErrorMessage *string      `db:"error_message" json:"error,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
}

// ReportResult describes one generated report file.
type ReportResult struct {
	StudentID   string       `json:"student_id"`
	StudentName string       `json:"student_name"`
	Format      ReportFormat `json:"format"`
	FileName    string       `json:"file_name"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// BulkReportSummary aggregates a fan-out/fan-in bulk generation run.
type BulkReportSummary struct {
	TotalRequests int       `json:"total_requests"`
	Succeeded     int       `json:"succeeded"`
	Failed        int       `json:"failed"`
	FileNames     []string  `json:"file_names"`
	GeneratedAt   time.Time `json:"generated_at"`
}
