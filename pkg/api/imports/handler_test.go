package imports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"subsea_intel/pkg/core/ingest"
	"subsea_intel/pkg/core/store"
	"subsea_intel/pkg/models"
)

type mockJobs struct {
	mu        sync.Mutex
	jobs      map[string]models.ImportJob
	created   []ingest.JobInput
	processed []string
	createErr error
}

func newMockJobs(jobs ...models.ImportJob) *mockJobs {
	m := &mockJobs{jobs: map[string]models.ImportJob{}}
	for _, j := range jobs {
		m.jobs[j.ID] = j
	}
	return m
}

func (m *mockJobs) CreateJob(ctx context.Context, in ingest.JobInput) (models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return models.ImportJob{}, m.createErr
	}
	m.created = append(m.created, in)
	job := models.ImportJob{ID: "job-1", JobType: models.JobSpreadsheet, Status: models.StatusPending, FileName: in.FileName, CreatedBy: in.CreatedBy}
	m.jobs[job.ID] = job
	return job, nil
}

func (m *mockJobs) GetJob(ctx context.Context, id string) (models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return j, store.ErrNotFound
	}
	return j, nil
}

func (m *mockJobs) GetBatch(ctx context.Context, id string) (models.ImportBatch, error) {
	return models.ImportBatch{ID: id, Status: models.StatusCompleted, RecordsTotal: 3}, nil
}

func (m *mockJobs) ProcessImportJob(ctx context.Context, jobID string) (models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed = append(m.processed, jobID)
	return m.jobs[jobID], nil
}

func router(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func multipartBody(t *testing.T, fileName string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestHandleCreate(t *testing.T) {
	jobs := newMockJobs()
	h := NewHandler(jobs, nil)

	body, ct := multipartBody(t, "awards.pdf", []byte("%PDF-1.4"), map[string]string{"job_type": models.JobPDFContracts})
	req := httptest.NewRequest(http.MethodPost, "/api/imports", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("X-User-ID", "user-7")
	rec := httptest.NewRecorder()
	router(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	if len(jobs.created) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs.created))
	}
	in := jobs.created[0]
	if in.FileName != "awards.pdf" || in.Type != models.JobPDFContracts || string(in.Data) != "%PDF-1.4" {
		t.Errorf("job input = %+v", in)
	}
	if in.CreatedBy == nil || *in.CreatedBy != "user-7" {
		t.Errorf("created by = %v", in.CreatedBy)
	}
}

func TestHandleCreateErrors(t *testing.T) {
	tests := []struct {
		name      string
		createErr error
		noFile    bool
		want      int
	}{
		{"unsupported", fmt.Errorf("notes.txt: %w", ingest.ErrUnsupportedFile), false, http.StatusUnsupportedMediaType},
		{"storage down", fmt.Errorf("upload: boom"), false, http.StatusInternalServerError},
		{"missing file", nil, true, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := newMockJobs()
			jobs.createErr = tt.createErr
			var req *http.Request
			if tt.noFile {
				req = httptest.NewRequest(http.MethodPost, "/api/imports", bytes.NewBufferString("{}"))
				req.Header.Set("Content-Type", "application/json")
			} else {
				body, ct := multipartBody(t, "notes.txt", []byte("hello"), nil)
				req = httptest.NewRequest(http.MethodPost, "/api/imports", body)
				req.Header.Set("Content-Type", ct)
			}
			rec := httptest.NewRecorder()
			router(NewHandler(jobs, nil)).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestHandleGet(t *testing.T) {
	batch := "batch-1"
	jobs := newMockJobs(models.ImportJob{ID: "j1", Status: models.StatusCompleted, BatchID: &batch})
	h := router(NewHandler(jobs, nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports/j1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got JobStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Job.ID != "j1" || got.Batch == nil || got.Batch.ID != "batch-1" {
		t.Errorf("response = %+v", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imports/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing job status %d", rec.Code)
	}
}

func TestHandleProcessRunsInBackground(t *testing.T) {
	jobs := newMockJobs(
		models.ImportJob{ID: "pending", Status: models.StatusPending},
		models.ImportJob{ID: "done", Status: models.StatusCompleted},
	)
	h := NewHandler(jobs, nil)
	r := router(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/imports/pending/process", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/imports/done/process", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("completed job should not be re-run, status %d", rec.Code)
	}

	h.Wait()
	if len(jobs.processed) != 1 || jobs.processed[0] != "pending" {
		t.Errorf("processed = %v", jobs.processed)
	}
}

func TestHandleProcessRejectsRunningJob(t *testing.T) {
	jobs := newMockJobs(
		models.ImportJob{ID: "busy", Status: models.StatusProcessing},
		models.ImportJob{ID: "pending", Status: models.StatusPending},
	)
	h := NewHandler(jobs, nil)
	r := router(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/imports/busy/process", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("processing job: status %d, want 409", rec.Code)
	}
	var got models.ImportJob
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil || got.ID != "busy" {
		t.Errorf("body = %s (%v)", rec.Body.String(), err)
	}

	// A run already started by this handler also blocks a second one.
	if !h.claim("pending") {
		t.Fatal("claim on idle job failed")
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/imports/pending/process", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("in-flight job: status %d, want 409", rec.Code)
	}
	h.release("pending")

	h.Wait()
	if len(jobs.processed) != 0 {
		t.Errorf("processed = %v, want none", jobs.processed)
	}
}
