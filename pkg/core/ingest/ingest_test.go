package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"subsea_intel/pkg/core/agent"
	"subsea_intel/pkg/core/extract"
	"subsea_intel/pkg/core/llm"
	"subsea_intel/pkg/core/storage"
	"subsea_intel/pkg/core/store"
	"subsea_intel/pkg/models"
)

type fixture struct {
	svc   *Service
	rows  *store.MemoryStore
	files *storage.MemoryStorage
	stub  *llm.StubProvider
}

func newFixture() *fixture {
	stub := &llm.StubProvider{}
	rows := store.NewMemoryStore()
	files := storage.NewMemoryStorage()
	ex := extract.NewExtractor(agent.NewManager(agent.Config{ActiveProvider: "stub"}, stub), nil, nil)
	svc := NewService(rows, files, ex, nil, Options{ImportBucket: "imports", SystemUserEmail: "system@example.com"})
	return &fixture{svc: svc, rows: rows, files: files, stub: stub}
}

func writeSheet(t *testing.T, f *excelize.File, name string, rows [][]interface{}) {
	t.Helper()
	if _, err := f.NewSheet(name); err != nil {
		t.Fatal(err)
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(name, cell, &rows[i]); err != nil {
			t.Fatal(err)
		}
	}
}

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	writeSheet(t, f, "XMT", [][]interface{}{
		{"Subsea XMT forecast"},
		{"Year", "Development Project", "Asset", "Country", "Operator", "XMT Purpose", "State", "XMTs (# Installed)"},
		{2025, "Johan Sverdrup", "JS-1", "Norway", "Equinor", "Production", "Planned", 4},
		{2025, "Johan Sverdrup", "JS-1", "Norway", "Equinor", "Production", "Planned", 2},
		{2026, "Johan Sverdrup", "JS-1", "Norway", "", "Injection", "Planned", 3},
		{2026, "", "X", "Norway", "Equinor", "Production", "Planned", 1},
	})
	writeSheet(t, f, "SURF", [][]interface{}{
		{"Year", "Development Project", "Asset", "Country", "SURF Line Group", "KM Surf Lines"},
		{2026, "Johan Sverdrup", "JS-1", "Norway", "Flowlines", 12.5},
	})
	writeSheet(t, f, "Upcoming Awards", [][]interface{}{
		{"Year", "Project", "Asset", "Country", "Operator", "XMTs Awarded"},
		{2027, "Bacalhau", "", "Brazil", "Equinor", 19},
	})
	writeSheet(t, f, "Notes", [][]interface{}{
		{"Comment", "Author"},
		{"ignore me", "analyst"},
	})
	if err := f.DeleteSheet("Sheet1"); err != nil {
		t.Fatal(err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadWorkbookSkipsTitleRows(t *testing.T) {
	sheets, err := ReadWorkbook(buildWorkbook(t), "forecast.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	if len(sheets) != 4 {
		t.Fatalf("expected 4 sheets, got %d", len(sheets))
	}
	xmt := sheets[0]
	if xmt.Name != "XMT" || xmt.Columns[0] != "Year" || len(xmt.Rows) != 4 {
		t.Errorf("unexpected XMT sheet: %+v", xmt.Columns)
	}
	if xmt.Rows[0]["XMTs (# Installed)"] != "4" {
		t.Errorf("cell values should be text, got %v", xmt.Rows[0])
	}
}

func TestReadWorkbookHTMLExport(t *testing.T) {
	html := `<html><body><h2>Upcoming Awards</h2><table>
		<tr><th>Year</th><th>Development Project</th><th>Country</th><th>XMTs Awarded</th></tr>
		<tr><td>2026</td><td>Mero 4</td><td>Brazil</td><td>12</td></tr>
		<tr><td></td><td></td><td></td><td></td></tr>
	</table></body></html>`
	sheets, err := ReadWorkbook([]byte(html), "export.xls")
	if err != nil {
		t.Fatal(err)
	}
	if len(sheets) != 1 || sheets[0].Name != "Upcoming Awards" || len(sheets[0].Rows) != 1 {
		t.Fatalf("unexpected sheets %+v", sheets)
	}
	if sheets[0].Rows[0]["Development Project"] != "Mero 4" {
		t.Errorf("row = %v", sheets[0].Rows[0])
	}
}

func TestReadWorkbookLegacyXLS(t *testing.T) {
	_, err := ReadWorkbook([]byte{0xD0, 0xCF, 0x11, 0xE0}, "old.xls")
	if !errors.Is(err, ErrLegacyXLS) {
		t.Errorf("expected ErrLegacyXLS, got %v", err)
	}
}

func TestInferJobType(t *testing.T) {
	tests := []struct {
		file, requested, want string
		wantErr               bool
	}{
		{"a.xlsx", "", models.JobSpreadsheet, false},
		{"a.XLS", models.JobPDFContracts, models.JobSpreadsheet, false},
		{"a.pdf", "", models.JobPDFReport, false},
		{"a.pdf", models.JobPDFContracts, models.JobPDFContracts, false},
		{"a.docx", "", "", true},
	}
	for _, tt := range tests {
		got, err := InferJobType(tt.file, nil, tt.requested)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("InferJobType(%q, %q) = %q, %v", tt.file, tt.requested, got, err)
		}
	}
}

func TestProcessSpreadsheetJob(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()

	job, err := fx.svc.CreateJob(ctx, JobInput{FileName: "forecast 2025.xlsx", Data: buildWorkbook(t)})
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.StatusPending || !strings.HasSuffix(job.FilePath, "/forecast_2025.xlsx") {
		t.Fatalf("unexpected job %+v", job)
	}

	done, err := fx.svc.ProcessImportJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != models.StatusCompleted {
		t.Fatalf("status = %s (%v)", done.Status, done.ErrorMessage)
	}
	if done.RecordsTotal != 6 || done.RecordsImported != 5 || done.RecordsSkipped != 1 {
		t.Errorf("counts total=%d imported=%d skipped=%d", done.RecordsTotal, done.RecordsImported, done.RecordsSkipped)
	}

	batch, err := fx.svc.GetBatch(ctx, *done.BatchID)
	if err != nil || batch.Status != models.StatusCompleted || batch.CompletedAt == nil {
		t.Errorf("batch = %+v, %v", batch, err)
	}

	xmt := fx.rows.Rows(models.TableXMT)
	if len(xmt) != 2 {
		t.Fatalf("expected 2 merged xmt rows, got %d", len(xmt))
	}
	if xmt[0]["xmts_installed"] != 6.0 || xmt[0]["batch_id"] != batch.ID {
		t.Errorf("same-key rows should sum: %v", xmt[0])
	}

	projects := fx.rows.Rows(models.TableProjects)
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	js := models.ProjectFromRow(projects[0])
	if js.XMTCount != 9 || js.SurfKM != 12.5 || *js.FirstYear != 2025 || *js.LastYear != 2026 || *js.Operator != "Equinor" {
		t.Errorf("unexpected roll-up %+v", js)
	}

	contracts := fx.rows.Rows(models.TableContracts)
	if len(contracts) != 1 || contracts[0]["external_id"] != "award-2027-bacalhau-" || contracts[0]["contract_type"] != models.ContractSubsea {
		t.Errorf("unexpected award contracts %v", contracts)
	}

	calls := fx.rows.UpsertCalls()
	again, err := fx.svc.ProcessImportJob(ctx, job.ID)
	if err != nil || again.Status != models.StatusCompleted || fx.rows.UpsertCalls() != calls {
		t.Errorf("completed job must be a no-op: %v, %d upserts", err, fx.rows.UpsertCalls()-calls)
	}
}

const reportReply = "```json\n" + `{
  "report_period": "Q3 2025",
  "summary": "Subsea spend keeps growing.",
  "highlights": ["Record tree awards"],
  "key_figures": {"Global subsea capex 2025": "USD 42bn"},
  "forecasts": [
    {"year": 2026, "metric": "Subsea Capex USD bn", "value": 40, "unit": "USD bn"},
    {"year": 2026, "metric": "Europe Subsea Capex", "value": 10, "unit": "USD billion"},
    {"year": 2026, "metric": "Total subsea spend", "value": 42, "unit": "USD bn"}
  ]
}` + "\n```"

func TestProcessReportJob(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	fx.stub.Reply = reportReply

	for i := 0; i < 2; i++ {
		job, err := fx.svc.CreateJob(ctx, JobInput{FileName: "market-q3.pdf", Data: []byte("%PDF-1.7")})
		if err != nil {
			t.Fatal(err)
		}
		done, err := fx.svc.ProcessImportJob(ctx, job.ID)
		if err != nil {
			t.Fatal(err)
		}
		if done.RecordsTotal != 3 || done.RecordsImported != 3 {
			t.Errorf("run %d counts %+v", i, done)
		}
	}

	docs := fx.rows.Rows(models.TableDocuments)
	if len(docs) != 1 {
		t.Fatalf("re-upload must update the same document, got %d", len(docs))
	}
	summary := docs[0]["ai_summary"].(string)
	for _, want := range []string{"## Q3 2025", "### Highlights", "- Record tree awards", "```json", "USD 42bn"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}

	profiles := fx.rows.Rows(models.TableProfiles)
	if len(profiles) != 1 || docs[0]["uploaded_by"] != profiles[0]["id"] {
		t.Errorf("document should be owned by the system profile: %v / %v", docs[0]["uploaded_by"], profiles)
	}

	byMetric := map[string]float64{}
	for _, r := range fx.rows.Rows(models.TableForecasts) {
		f := models.ForecastFromRow(r)
		byMetric[f.Metric] = f.Value
	}
	if byMetric["subsea_spend_usd_bn"] != 42 || byMetric["europe_subsea_spend_total_usd_bn"] != 10 || len(byMetric) != 2 {
		t.Errorf("forecasts = %v", byMetric)
	}
}

func TestProcessContractsJob(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	fx.stub.Reply = `{"contracts": [
		{"supplier": "TechnipFMC", "operator": "Equinor", "value": "USD 500m", "segment": "iEPCI"},
		{"supplier": "TechnipFMC", "operator": "Equinor", "value": "USD 500m", "segment": "iEPCI"},
		{"supplier": "OneSubsea", "operator": "Aker BP", "segment": "SPS"}
	]}`
	job, err := fx.svc.CreateJob(ctx, JobInput{Type: models.JobPDFContracts, FileName: "awards.pdf", Data: []byte("%PDF")})
	if err != nil {
		t.Fatal(err)
	}
	done, err := fx.svc.ProcessImportJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.RecordsTotal != 3 || done.RecordsImported != 2 || done.RecordsSkipped != 1 {
		t.Errorf("counts %+v", done)
	}
	contracts := fx.rows.Rows(models.TableContracts)
	if len(contracts) != 2 || contracts[0]["estimated_value_usd"] != 500e6 {
		t.Errorf("contracts = %v", contracts)
	}
}

func TestProcessJobFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	fx.stub.Err = errors.New("quota exceeded")

	job, err := fx.svc.CreateJob(ctx, JobInput{FileName: "r.pdf", Data: []byte("%PDF")})
	if err != nil {
		t.Fatal(err)
	}
	done, err := fx.svc.ProcessImportJob(ctx, job.ID)
	if err == nil {
		t.Fatal("expected error")
	}
	if done.Status != models.StatusFailed || done.ErrorMessage == nil || !strings.Contains(*done.ErrorMessage, "quota exceeded") {
		t.Errorf("job = %+v", done)
	}
	batch, _ := fx.svc.GetBatch(ctx, *done.BatchID)
	if batch.Status != models.StatusFailed || batch.ErrorMessage == nil {
		t.Errorf("batch = %+v", batch)
	}

	// A retry after the cause is fixed clears the old message.
	fx.stub.Err = nil
	fx.stub.Reply = reportReply
	done, err = fx.svc.ProcessImportJob(ctx, job.ID)
	if err != nil || done.Status != models.StatusCompleted {
		t.Fatalf("retry = %+v, %v", done, err)
	}
	stored, _ := fx.svc.GetJob(ctx, job.ID)
	if stored.ErrorMessage != nil {
		t.Errorf("stale error message kept: %q", *stored.ErrorMessage)
	}
}

func TestProcessJobMissingFile(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	fx.rows.Seed(models.TableJobs, models.ImportJob{
		ID: "job-1", JobType: models.JobSpreadsheet, Status: models.StatusPending,
		FileName: "gone.xlsx", FilePath: "imports/job-1/gone.xlsx",
	}.ToRow())

	done, err := fx.svc.ProcessImportJob(ctx, "job-1")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected storage.ErrNotFound, got %v", err)
	}
	if *done.ErrorMessage != "The uploaded file could not be found in storage." {
		t.Errorf("message = %q", *done.ErrorMessage)
	}
}
