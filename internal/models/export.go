package models

import "time"

// ExportKind identifies what an export job produces.
type ExportKind string

const (
	ExportRosterCSV     ExportKind = "ROSTER_CSV"
	ExportTranscriptPDF ExportKind = "TRANSCRIPT_PDF"
)

// ExportStatus tracks the lifecycle of an export job.
type ExportStatus string

const (
	ExportPending   ExportStatus = "PENDING"
	ExportRunning   ExportStatus = "RUNNING"
	ExportCompleted ExportStatus = "COMPLETED"
	ExportFailed    ExportStatus = "FAILED"
)

// ExportJob describes an asynchronous roster/transcript export.
type ExportJob struct {
	ID          string       `json:"id"`
	Kind        ExportKind   `json:"kind"`
	StudentID   string       `json:"student_id,omitempty"`
	RequestedBy string       `json:"requested_by"`
	Status      ExportStatus `json:"status"`
	FileName    string       `json:"file_name,omitempty"`
	Token       string       `json:"token,omitempty"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
