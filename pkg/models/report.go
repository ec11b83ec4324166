package models

import (
	"encoding/json"
	"time"

	"subsea_intel/pkg/core/store"
)

// ReportDocument is an uploaded market-report PDF with its generated summary.
type ReportDocument struct {
	ID            string    `json:"id"`
	FileName      string    `json:"file_name"`
	FilePath      string    `json:"file_path"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	AISummary     string    `json:"ai_summary"`
	UploadedBy    *string   `json:"uploaded_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (d ReportDocument) ToRow() store.Row {
	return store.Row{
		"id":              d.ID,
		"file_name":       d.FileName,
		"file_path":       d.FilePath,
		"file_size_bytes": d.FileSizeBytes,
		"ai_summary":      d.AISummary,
		"uploaded_by":     store.Val(d.UploadedBy),
		"created_at":      d.CreatedAt,
	}
}

func DocumentFromRow(r store.Row) ReportDocument {
	d := ReportDocument{
		ID:         r.String("id"),
		FileName:   r.String("file_name"),
		FilePath:   r.String("file_path"),
		AISummary:  r.String("ai_summary"),
		UploadedBy: r.StringPtr("uploaded_by"),
	}
	if n, ok := r.Float("file_size_bytes"); ok {
		d.FileSizeBytes = int64(n)
	}
	d.CreatedAt, _ = r.Time("created_at")
	return d
}

// AiReport is the metadata row written once per generated PDF report.
type AiReport struct {
	ID             string                 `json:"id"`
	UserID         *string                `json:"user_id,omitempty"`
	RequestText    string                 `json:"request_text"`
	Title          string                 `json:"title"`
	Summary        string                 `json:"summary"`
	ReportMarkdown string                 `json:"report_markdown"`
	PeriodFrom     *int                   `json:"period_from,omitempty"`
	PeriodTo       *int                   `json:"period_to,omitempty"`
	Filters        map[string]interface{} `json:"filters"`
	StoragePath    string                 `json:"storage_path"`
	FileName       string                 `json:"file_name"`
	CreatedAt      time.Time              `json:"created_at"`
}

// ToRow encodes Filters as JSON text for the jsonb column.
func (a AiReport) ToRow() store.Row {
	filters, _ := json.Marshal(a.Filters)
	return store.Row{
		"id":              a.ID,
		"user_id":         store.Val(a.UserID),
		"request_text":    a.RequestText,
		"title":           a.Title,
		"summary":         a.Summary,
		"report_markdown": a.ReportMarkdown,
		"period_from":     store.Val(a.PeriodFrom),
		"period_to":       store.Val(a.PeriodTo),
		"filters":         string(filters),
		"storage_path":    a.StoragePath,
		"file_name":       a.FileName,
		"created_at":      a.CreatedAt,
	}
}
