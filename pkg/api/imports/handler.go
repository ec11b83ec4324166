// Package imports exposes import job intake and processing over HTTP.
package imports

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"subsea_intel/pkg/api/httpx"
	"subsea_intel/pkg/core/ingest"
	"subsea_intel/pkg/core/store"
	"subsea_intel/pkg/logger"
	"subsea_intel/pkg/models"
)

// MaxUploadBytes bounds one uploaded file.
const MaxUploadBytes = 64 << 20

// ProcessTimeout bounds a background import run.
const ProcessTimeout = 15 * time.Minute

// Jobs is the part of ingest.Service the handler needs.
type Jobs interface {
	CreateJob(ctx context.Context, in ingest.JobInput) (models.ImportJob, error)
	GetJob(ctx context.Context, id string) (models.ImportJob, error)
	GetBatch(ctx context.Context, id string) (models.ImportBatch, error)
	ProcessImportJob(ctx context.Context, jobID string) (models.ImportJob, error)
}

var _ Jobs = (*ingest.Service)(nil)

type Handler struct {
	jobs Jobs
	log  *logger.Logger
	wg   sync.WaitGroup

	mu      sync.Mutex
	running map[string]bool
}

func NewHandler(jobs Jobs, log *logger.Logger) *Handler {
	return &Handler{
		jobs:    jobs,
		log:     logger.OrNop(log).With("component", "api.imports"),
		running: map[string]bool{},
	}
}

// Routes mounts the import endpoints under /api/imports.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/imports", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Post("/{id}/process", h.HandleProcess)
	})
}

// JobStatus is a job with its batch when one exists.
type JobStatus struct {
	Job   models.ImportJob    `json:"job"`
	Batch *models.ImportBatch `json:"batch,omitempty"`
}

// HandleCreate accepts a multipart upload in field "file" and queues a job.
// An optional "job_type" field selects pdf_contracts for PDFs.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "expected a multipart upload with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "upload could not be read")
		return
	}

	in := ingest.JobInput{
		Type:     r.FormValue("job_type"),
		FileName: header.Filename,
		Data:     data,
	}
	if uid := httpx.UserID(r); uid != "" {
		in.CreatedBy = &uid
	}
	job, err := h.jobs.CreateJob(r.Context(), in)
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedFile) {
			httpx.WriteError(w, http.StatusUnsupportedMediaType, "only spreadsheets and PDFs can be imported")
			return
		}
		h.log.Error("create import job failed", "file", header.Filename, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, ingest.HumanError(err))
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, job)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	out := JobStatus{Job: job}
	if job.BatchID != nil {
		if b, err := h.jobs.GetBatch(r.Context(), *job.BatchID); err == nil {
			out.Batch = &b
		} else if !errors.Is(err, store.ErrNotFound) {
			h.log.Warn("batch lookup failed", "batch_id", *job.BatchID, "error", err)
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleProcess starts the job in the background and answers 202. Progress
// is polled through HandleGet.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadJob(w, r)
	if !ok {
		return
	}
	switch job.Status {
	case models.StatusCompleted:
		httpx.WriteJSON(w, http.StatusOK, job)
		return
	case models.StatusProcessing:
		httpx.WriteJSON(w, http.StatusConflict, job)
		return
	}
	if !h.claim(job.ID) {
		httpx.WriteJSON(w, http.StatusConflict, job)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.release(job.ID)
		ctx, cancel := context.WithTimeout(ctx, ProcessTimeout)
		defer cancel()
		if _, err := h.jobs.ProcessImportJob(ctx, job.ID); err != nil {
			h.log.Warn("import job did not complete", "job_id", job.ID, "error", err)
		}
	}()
	httpx.WriteJSON(w, http.StatusAccepted, job)
}

// claim marks a job as running in this process; false if it already is.
func (h *Handler) claim(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running[id] {
		return false
	}
	h.running[id] = true
	return true
}

func (h *Handler) release(id string) {
	h.mu.Lock()
	delete(h.running, id)
	h.mu.Unlock()
}

// Wait blocks until background runs started by HandleProcess finish.
func (h *Handler) Wait() { h.wg.Wait() }

func (h *Handler) loadJob(w http.ResponseWriter, r *http.Request) (models.ImportJob, bool) {
	id := chi.URLParam(r, "id")
	job, err := h.jobs.GetJob(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "import job not found")
		return job, false
	case err != nil:
		h.log.Error("job lookup failed", "job_id", id, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "import job could not be loaded")
		return job, false
	}
	return job, true
}
