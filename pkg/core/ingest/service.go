package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"subsea_intel/pkg/core/extract"
	"subsea_intel/pkg/core/merge"
	"subsea_intel/pkg/core/schema"
	"subsea_intel/pkg/core/storage"
	"subsea_intel/pkg/core/store"
	"subsea_intel/pkg/logger"
	"subsea_intel/pkg/models"
)

// ErrUnsupportedFile is returned for uploads that are neither a workbook nor a PDF.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Options configures a Service.
type Options struct {
	ImportBucket    string
	SystemUserEmail string
}

// Service creates and processes import jobs. Batches run one at a time per
// process so the additive merge of one batch never interleaves with another.
type Service struct {
	store       store.RowStore
	files       storage.Storage
	extractor   *extract.Extractor
	merger      *merge.Engine
	log         *logger.Logger
	bucket      string
	systemEmail string

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

func NewService(rs store.RowStore, files storage.Storage, extractor *extract.Extractor, log *logger.Logger, opts Options) *Service {
	log = logger.OrNop(log).With("component", "ingest")
	bucket := opts.ImportBucket
	if bucket == "" {
		bucket = "imports"
	}
	return &Service{
		store:       rs,
		files:       files,
		extractor:   extractor,
		merger:      merge.NewEngine(rs, log),
		log:         log,
		bucket:      bucket,
		systemEmail: opts.SystemUserEmail,
		now:         time.Now,
		newID:       func() string { return uuid.NewString() },
	}
}

// JobInput is an uploaded file awaiting import.
type JobInput struct {
	Type      string // optional; chooses between the two PDF modes
	FileName  string
	Data      []byte
	CreatedBy *string
}

// InferJobType picks the job type from the file extension. PDFs default to
// market-report extraction unless contract extraction was requested.
func InferJobType(fileName string, data []byte, requested string) (string, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm", ".xls", ".html", ".htm":
		return models.JobSpreadsheet, nil
	case ".pdf":
		if requested == models.JobPDFContracts {
			return models.JobPDFContracts, nil
		}
		return models.JobPDFReport, nil
	}
	if looksLikeHTML(data) {
		return models.JobSpreadsheet, nil
	}
	return "", fmt.Errorf("%s: %w", fileName, ErrUnsupportedFile)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func safeFileName(name string) string {
	base := unsafeName.ReplaceAllString(filepath.Base(name), "_")
	if base == "" || base == "." {
		return "upload"
	}
	return base
}

// CreateJob stores the uploaded file and queues a pending job for it.
func (s *Service) CreateJob(ctx context.Context, in JobInput) (models.ImportJob, error) {
	if len(in.Data) == 0 {
		return models.ImportJob{}, fmt.Errorf("empty upload %q", in.FileName)
	}
	jobType, err := InferJobType(in.FileName, in.Data, in.Type)
	if err != nil {
		return models.ImportJob{}, err
	}

	id := s.newID()
	path := fmt.Sprintf("imports/%s/%s", id, safeFileName(in.FileName))
	if err := s.files.Upload(ctx, s.bucket, path, in.Data, storage.ContentTypeFor(in.FileName)); err != nil {
		return models.ImportJob{}, fmt.Errorf("upload %s: %w", in.FileName, err)
	}

	job := models.ImportJob{
		ID:        id,
		JobType:   jobType,
		Status:    models.StatusPending,
		FileName:  in.FileName,
		FilePath:  path,
		CreatedBy: in.CreatedBy,
		CreatedAt: s.now().UTC(),
	}
	if err := s.saveJob(ctx, job); err != nil {
		return models.ImportJob{}, err
	}
	s.log.Info("import job created", "job_id", id, "job_type", jobType, "file", in.FileName, "bytes", len(in.Data))
	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (models.ImportJob, error) {
	row, err := store.SelectOne(ctx, s.store, models.TableJobs, store.Eq("id", id))
	if err != nil {
		return models.ImportJob{}, err
	}
	return models.JobFromRow(row), nil
}

func (s *Service) GetBatch(ctx context.Context, id string) (models.ImportBatch, error) {
	row, err := store.SelectOne(ctx, s.store, models.TableBatches, store.Eq("id", id))
	if err != nil {
		return models.ImportBatch{}, err
	}
	return models.BatchFromRow(row), nil
}

// run carries the per-job values resolved once at batch start.
type run struct {
	batch    models.ImportBatch
	uploader *string
	fileName string
	filePath string
	log      *logger.Logger
}

type outcome struct {
	total  int
	counts merge.Result
}

// ProcessImportJob runs one job to completion or failure. A completed job is
// returned unchanged. On failure the batch and job record a readable
// error_message and the error is returned; rows already written stay.
func (s *Service) ProcessImportJob(ctx context.Context, jobID string) (models.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return models.ImportJob{}, fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.Status == models.StatusCompleted {
		s.log.Info("job already completed", "job_id", jobID)
		return job, nil
	}

	r, err := s.begin(ctx, &job)
	if err != nil {
		s.failJob(ctx, &job, err)
		return job, err
	}
	r.log.Info("import started", "file", job.FileName)
	start := s.now()

	out, runErr := s.dispatch(ctx, r, job)
	if runErr != nil {
		r.log.Error("import failed", "error", runErr, "elapsed", s.now().Sub(start).String())
		s.finish(ctx, &job, r, out, runErr)
		return job, runErr
	}
	s.finish(ctx, &job, r, out, nil)
	r.log.Info("import completed", "total", out.total, "imported", out.counts.Imported, "skipped", out.counts.Skipped, "elapsed", s.now().Sub(start).String())
	return job, nil
}

func (s *Service) begin(ctx context.Context, job *models.ImportJob) (*run, error) {
	uploader := job.CreatedBy
	if uploader == nil {
		id, err := s.resolveSystemUser(ctx)
		if err != nil {
			s.log.Warn("system uploader unavailable", "error", err)
		} else {
			uploader = &id
		}
	}

	batch := models.ImportBatch{
		ID:         s.newID(),
		FileName:   job.FileName,
		Status:     models.StatusProcessing,
		UploadedBy: uploader,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.saveBatch(ctx, batch); err != nil {
		return nil, err
	}

	job.Status = models.StatusProcessing
	job.BatchID = &batch.ID
	job.ErrorMessage = nil
	job.CompletedAt = nil
	if err := s.saveJob(ctx, *job); err != nil {
		return nil, err
	}
	return &run{
		batch:    batch,
		uploader: uploader,
		fileName: job.FileName,
		filePath: job.FilePath,
		log:      s.log.With("job_id", job.ID, "batch_id", batch.ID, "job_type", job.JobType),
	}, nil
}

func (s *Service) dispatch(ctx context.Context, r *run, job models.ImportJob) (outcome, error) {
	data, err := s.files.Download(ctx, s.bucket, job.FilePath)
	if err != nil {
		return outcome{}, fmt.Errorf("download %s: %w", job.FilePath, err)
	}
	switch job.JobType {
	case models.JobSpreadsheet:
		return s.runSpreadsheet(ctx, r, data)
	case models.JobPDFContracts:
		return s.runPDFContracts(ctx, r, data)
	case models.JobPDFReport:
		return s.runPDFReport(ctx, r, data)
	}
	return outcome{}, fmt.Errorf("job type %q: %w", job.JobType, ErrUnsupportedFile)
}

// finish records the terminal state on the batch and mirrors it on the job.
// It writes with a detached context so a cancelled run is still recorded.
func (s *Service) finish(ctx context.Context, job *models.ImportJob, r *run, out outcome, runErr error) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	done := s.now().UTC()
	b := r.batch
	b.RecordsTotal = out.total
	b.RecordsImported = out.counts.Imported
	b.RecordsSkipped = out.counts.Skipped
	b.CompletedAt = &done
	b.Status = models.StatusCompleted
	if runErr != nil {
		msg := HumanError(runErr)
		b.Status = models.StatusFailed
		b.ErrorMessage = &msg
	}
	if err := s.saveBatch(wctx, b); err != nil {
		r.log.Error("failed to record batch status", "status", b.Status, "error", err)
	}
	r.batch = b

	job.Status = b.Status
	job.ErrorMessage = b.ErrorMessage
	job.RecordsTotal = b.RecordsTotal
	job.RecordsImported = b.RecordsImported
	job.RecordsSkipped = b.RecordsSkipped
	job.CompletedAt = &done
	if err := s.saveJob(wctx, *job); err != nil {
		r.log.Error("failed to record job status", "status", job.Status, "error", err)
	}
}

// failJob marks a job failed when no batch could be started.
func (s *Service) failJob(ctx context.Context, job *models.ImportJob, cause error) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	msg := HumanError(cause)
	done := s.now().UTC()
	job.Status = models.StatusFailed
	job.ErrorMessage = &msg
	job.CompletedAt = &done
	if err := s.saveJob(wctx, *job); err != nil {
		s.log.Error("failed to record job status", "job_id", job.ID, "error", err)
	}
}

func (s *Service) saveJob(ctx context.Context, job models.ImportJob) error {
	row := job.ToRow()
	if job.ErrorMessage == nil {
		// COALESCE would keep a stale message from an earlier failed run.
		row["error_message"] = ""
	}
	if _, err := s.store.Upsert(ctx, models.TableJobs, []store.Row{row}, models.ConflictColumns[models.TableJobs]); err != nil {
		return fmt.Errorf("save job %s: %w", job.ID, err)
	}
	return nil
}

func (s *Service) saveBatch(ctx context.Context, b models.ImportBatch) error {
	if _, err := s.store.Upsert(ctx, models.TableBatches, []store.Row{b.ToRow()}, models.ConflictColumns[models.TableBatches]); err != nil {
		return fmt.Errorf("save batch %s: %w", b.ID, err)
	}
	return nil
}

// resolveSystemUser finds the profile used as uploader for jobs without a
// creator, creating it on first use.
func (s *Service) resolveSystemUser(ctx context.Context) (string, error) {
	if s.systemEmail == "" {
		return "", errors.New("SYSTEM_USER_EMAIL is not set")
	}
	lookup := func() (string, error) {
		row, err := store.SelectOne(ctx, s.store, models.TableProfiles, store.Eq("email", s.systemEmail))
		if err != nil {
			return "", err
		}
		if id := row.String("id"); id != "" {
			return id, nil
		}
		return "", store.ErrNotFound
	}

	id, err := lookup()
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return id, err
	}

	newID := s.newID()
	_, insErr := s.store.Upsert(ctx, models.TableProfiles, []store.Row{{
		"id":        newID,
		"email":     s.systemEmail,
		"full_name": "System Import",
	}}, []string{"id"})
	if insErr != nil {
		// A concurrent insert may have won the unique email.
		if id, err := lookup(); err == nil {
			return id, nil
		}
		return "", fmt.Errorf("create system profile: %w", insErr)
	}
	return newID, nil
}

// spreadsheetRun is the input to the table stages. mapped is complete
// before the first stage runs; the derived stages read all four fact lists.
type spreadsheetRun struct {
	batchID string
	mapped  schema.Result
}

// stage writes one table. Primary stages count toward the batch totals;
// derived stages are logged only.
type stage struct {
	table   string
	primary bool
	rows    func(*spreadsheetRun) []store.Row
}

func factRows[T models.Fact](facts []T, batchID string) []store.Row {
	out := make([]store.Row, len(facts))
	for i, f := range facts {
		out[i] = f.ToRow(batchID)
	}
	return out
}

var spreadsheetStages = []stage{
	{models.TableXMT, true, func(r *spreadsheetRun) []store.Row { return factRows(r.mapped.XMT, r.batchID) }},
	{models.TableSURF, true, func(r *spreadsheetRun) []store.Row { return factRows(r.mapped.SURF, r.batchID) }},
	{models.TableSubseaUnits, true, func(r *spreadsheetRun) []store.Row { return factRows(r.mapped.Subsea, r.batchID) }},
	{models.TableAwards, true, func(r *spreadsheetRun) []store.Row { return factRows(r.mapped.Awards, r.batchID) }},
	{models.TableProjects, false, func(r *spreadsheetRun) []store.Row {
		projects := RollupProjects(r.mapped)
		rows := make([]store.Row, len(projects))
		for i, p := range projects {
			rows[i] = p.ToRow()
		}
		return rows
	}},
	{models.TableContracts, false, func(r *spreadsheetRun) []store.Row {
		batchID := r.batchID
		contracts := ContractsFromAwards(r.mapped.Awards, &batchID)
		rows := make([]store.Row, len(contracts))
		for i, c := range contracts {
			rows[i] = c.ToRow()
		}
		return rows
	}},
}

func (s *Service) runSpreadsheet(ctx context.Context, r *run, data []byte) (outcome, error) {
	sheets, err := ReadWorkbook(data, r.fileName)
	if err != nil {
		return outcome{}, err
	}

	sr := &spreadsheetRun{batchID: r.batch.ID}
	for _, sh := range sheets {
		typ, res := schema.MapSheet(sh)
		if typ == schema.SheetNone {
			r.log.Info("sheet skipped", "sheet", sh.Name, "columns", len(sh.Columns))
			continue
		}
		r.log.Info("sheet mapped", "sheet", sh.Name, "type", string(typ), "rows", res.Total(), "dropped", res.Dropped)
		sr.mapped.Append(res)
	}

	out := outcome{total: sr.mapped.Total() + sr.mapped.Dropped}
	out.counts.Skipped = sr.mapped.Dropped
	if sr.mapped.Total() == 0 {
		r.log.Warn("no recognizable rows in workbook", "sheets", len(sheets))
		return out, nil
	}

	for _, st := range spreadsheetStages {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		rows := st.rows(sr)
		if len(rows) == 0 {
			continue
		}
		res := s.merger.UpsertChunked(ctx, st.table, rows, models.ConflictColumns[st.table])
		if st.primary {
			out.counts.Add(res)
		} else if res.Skipped > 0 {
			r.log.Warn("derived rows skipped", "table", st.table, "skipped", res.Skipped)
		}
	}
	return out, nil
}

func (s *Service) runPDFContracts(ctx context.Context, r *run, data []byte) (outcome, error) {
	rows, err := s.extractor.ExtractContracts(ctx, data, r.fileName)
	if err != nil {
		return outcome{}, err
	}
	out := outcome{total: len(rows)}

	batchID := r.batch.ID
	seen := map[string]bool{}
	var contracts []store.Row
	for _, row := range rows {
		c := extract.ToContract(row, r.fileName, &batchID)
		if seen[c.ExternalID] {
			out.counts.Skipped++
			continue
		}
		seen[c.ExternalID] = true
		contracts = append(contracts, c.ToRow())
	}
	if out.counts.Skipped > 0 {
		r.log.Info("duplicate contract rows in document", "count", out.counts.Skipped)
	}
	out.counts.Add(s.merger.UpsertChunked(ctx, models.TableContracts, contracts, models.ConflictColumns[models.TableContracts]))
	return out, nil
}

func (s *Service) runPDFReport(ctx context.Context, r *run, data []byte) (outcome, error) {
	rep, err := s.extractor.ExtractMarketReport(ctx, data, r.fileName)
	if err != nil {
		return outcome{}, err
	}

	summary := BuildReportSummary(rep, r.fileName)
	if err := s.upsertDocument(ctx, r, summary, int64(len(data))); err != nil {
		return outcome{}, err
	}

	forecasts := DedupeForecasts(rep.Forecasts, "report:"+r.fileName)
	rows := make([]store.Row, len(forecasts))
	for i, f := range forecasts {
		rows[i] = f.ToRow()
	}
	out := outcome{total: 1 + len(forecasts), counts: merge.Result{Imported: 1}}
	out.counts.Add(s.merger.UpsertChunked(ctx, models.TableForecasts, rows, models.ConflictColumns[models.TableForecasts]))
	return out, nil
}

// upsertDocument updates the document with the same file name, or inserts a
// new one owned by the run's uploader.
func (s *Service) upsertDocument(ctx context.Context, r *run, summary string, size int64) error {
	doc := models.ReportDocument{
		FileName:      r.fileName,
		FilePath:      r.filePath,
		FileSizeBytes: size,
		AISummary:     summary,
		UploadedBy:    r.uploader,
		CreatedAt:     s.now().UTC(),
	}

	existing, err := store.SelectOne(ctx, s.store, models.TableDocuments, store.Eq("file_name", r.fileName))
	isNew := errors.Is(err, store.ErrNotFound)
	if err != nil && !isNew {
		return fmt.Errorf("look up document %s: %w", r.fileName, err)
	}
	if isNew {
		doc.ID = s.newID()
	} else {
		doc.ID = existing.String("id")
	}

	row := doc.ToRow()
	if !isNew {
		delete(row, "created_at")
		row["uploaded_by"] = nil
	}
	if _, err := s.store.Upsert(ctx, models.TableDocuments, []store.Row{row}, models.ConflictColumns[models.TableDocuments]); err != nil {
		return fmt.Errorf("save document %s: %w", r.fileName, err)
	}
	r.log.Info("document summary stored", "document_id", doc.ID, "updated", !isNew)
	return nil
}
