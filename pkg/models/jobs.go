package models

import (
	"time"

	"subsea_intel/pkg/core/store"
)

// Status values shared by import jobs and batches.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Job types.
const (
	JobSpreadsheet  = "spreadsheet"
	JobPDFContracts = "pdf_contracts"
	JobPDFReport    = "pdf_report"
)

type ImportBatch struct {
	ID              string     `json:"id"`
	FileName        string     `json:"file_name"`
	Status          string     `json:"status"`
	RecordsTotal    int        `json:"records_total"`
	RecordsImported int        `json:"records_imported"`
	RecordsSkipped  int        `json:"records_skipped"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	UploadedBy      *string    `json:"uploaded_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func (b ImportBatch) ToRow() store.Row {
	return store.Row{
		"id":               b.ID,
		"file_name":        b.FileName,
		"status":           b.Status,
		"records_total":    b.RecordsTotal,
		"records_imported": b.RecordsImported,
		"records_skipped":  b.RecordsSkipped,
		"error_message":    store.Val(b.ErrorMessage),
		"uploaded_by":      store.Val(b.UploadedBy),
		"created_at":       b.CreatedAt,
		"completed_at":     store.Val(b.CompletedAt),
	}
}

func BatchFromRow(r store.Row) ImportBatch {
	b := ImportBatch{
		ID:           r.String("id"),
		FileName:     r.String("file_name"),
		Status:       r.String("status"),
		ErrorMessage: r.StringPtr("error_message"),
		UploadedBy:   r.StringPtr("uploaded_by"),
	}
	b.RecordsTotal, _ = r.Int("records_total")
	b.RecordsImported, _ = r.Int("records_imported")
	b.RecordsSkipped, _ = r.Int("records_skipped")
	b.CreatedAt, _ = r.Time("created_at")
	if t, ok := r.Time("completed_at"); ok {
		b.CompletedAt = &t
	}
	return b
}

// ImportJob is a queued unit of import work pointing at an uploaded file.
type ImportJob struct {
	ID              string     `json:"id"`
	JobType         string     `json:"job_type"`
	Status          string     `json:"status"`
	FileName        string     `json:"file_name"`
	FilePath        string     `json:"file_path"`
	BatchID         *string    `json:"batch_id,omitempty"`
	CreatedBy       *string    `json:"created_by,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
	RecordsTotal    int        `json:"records_total"`
	RecordsImported int        `json:"records_imported"`
	RecordsSkipped  int        `json:"records_skipped"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func (j ImportJob) ToRow() store.Row {
	return store.Row{
		"id":               j.ID,
		"job_type":         j.JobType,
		"status":           j.Status,
		"file_name":        j.FileName,
		"file_path":        j.FilePath,
		"batch_id":         store.Val(j.BatchID),
		"created_by":       store.Val(j.CreatedBy),
		"error_message":    store.Val(j.ErrorMessage),
		"records_total":    j.RecordsTotal,
		"records_imported": j.RecordsImported,
		"records_skipped":  j.RecordsSkipped,
		"created_at":       j.CreatedAt,
		"completed_at":     store.Val(j.CompletedAt),
	}
}

func JobFromRow(r store.Row) ImportJob {
	j := ImportJob{
		ID:           r.String("id"),
		JobType:      r.String("job_type"),
		Status:       r.String("status"),
		FileName:     r.String("file_name"),
		FilePath:     r.String("file_path"),
		BatchID:      r.StringPtr("batch_id"),
		CreatedBy:    r.StringPtr("created_by"),
		ErrorMessage: r.StringPtr("error_message"),
	}
	j.RecordsTotal, _ = r.Int("records_total")
	j.RecordsImported, _ = r.Int("records_imported")
	j.RecordsSkipped, _ = r.Int("records_skipped")
	j.CreatedAt, _ = r.Time("created_at")
	if t, ok := r.Time("completed_at"); ok {
		j.CompletedAt = &t
	}
	return j
}
