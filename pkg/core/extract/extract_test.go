package extract

import (
	"context"
	"errors"
	"math"
	"testing"

	"subsea_intel/pkg/core/agent"
	"subsea_intel/pkg/core/llm"
	"subsea_intel/pkg/models"
)

func newTestExtractor(stub *llm.StubProvider) *Extractor {
	m := agent.NewManager(agent.Config{ActiveProvider: "stub"}, stub)
	return NewExtractor(m, nil, nil)
}

func TestExtractStructuredSendsPDFInline(t *testing.T) {
	stub := &llm.StubProvider{Reply: "Here is the data:\n```json\n{\"a\":1}\n```"}
	obj, err := newTestExtractor(stub).ExtractStructured(context.Background(), []byte("%PDF-1.7"), "r.pdf", "extract")
	if err != nil {
		t.Fatal(err)
	}
	if obj["a"] != 1.0 {
		t.Errorf("got %v", obj)
	}
	call := stub.Calls[0]
	if call.File == nil || call.File.MIMEType != "application/pdf" || string(call.File.Data) != "%PDF-1.7" {
		t.Errorf("file not attached: %+v", call.File)
	}
	if call.Options[llm.OptTemperature] != 0.0 || call.Options[llm.OptMaxOutputTokens] != MaxOutputTokens {
		t.Errorf("unexpected options %v", call.Options)
	}
}

func TestExtractStructuredGarbageYieldsEmpty(t *testing.T) {
	stub := &llm.StubProvider{Reply: "not json at all"}
	obj, err := newTestExtractor(stub).ExtractStructured(context.Background(), []byte("x"), "r.pdf", "extract")
	if err != nil || len(obj) != 0 {
		t.Errorf("got %v, %v", obj, err)
	}
}

func TestExtractStructuredCallFailure(t *testing.T) {
	stub := &llm.StubProvider{Err: errors.New("quota")}
	if _, err := newTestExtractor(stub).ExtractStructured(context.Background(), []byte("x"), "r.pdf", "p"); err == nil {
		t.Error("expected call error")
	}
	m := agent.NewManager(agent.Config{ActiveProvider: "none"})
	if _, err := NewExtractor(m, nil, nil).ExtractStructured(context.Background(), []byte("x"), "r.pdf", "p"); err == nil {
		t.Error("expected missing provider error")
	}
}

func TestExtractContracts(t *testing.T) {
	stub := &llm.StubProvider{Reply: `Sure! {"contracts": [
		{"date": "2025-03", "supplier": "TechnipFMC", "operator": "Equinor", "project": "Johan Castberg", "value": "USD 250 million", "segment": "iEPCI", "region": "North Sea"},
		{"supplier": null, "operator": "", "project": null},
		{"supplier": "Subsea7", "operator": "Petrobras", "value": "sizeable", "segment": "SURF"}
	]}`}
	rows, err := newTestExtractor(stub).ExtractContracts(context.Background(), []byte("%PDF"), "awards.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	c := ToContract(rows[0], "awards.pdf", nil)
	if c.ContractType != models.ContractEPCI || *c.Date != "2025-03-01" || *c.EstimatedValueUSD != 250e6 {
		t.Errorf("unexpected contract %+v", c)
	}
	if ToContract(rows[1], "awards.pdf", nil).EstimatedValueUSD != nil {
		t.Error("wording without figures must not produce a value")
	}
	if stub.Calls[0].SystemPrompt == "" {
		t.Error("system prompt not sent")
	}
}

func TestContractExternalIDStable(t *testing.T) {
	a := ContractRow{Supplier: "Subsea7", Operator: "Petrobras", Scope: "flexible  risers"}
	b := ContractRow{Supplier: "subsea7 ", Operator: "PETROBRAS", Scope: "Flexible risers"}
	if ContractExternalID(a) != ContractExternalID(b) {
		t.Error("cosmetic differences should hash to the same id")
	}
	b.Value = "USD 10m"
	if ContractExternalID(a) == ContractExternalID(b) {
		t.Error("different content should hash differently")
	}
}

func TestClassifyContractType(t *testing.T) {
	tests := map[string]string{
		"iEPCI":             models.ContractEPCI,
		"Subsea production": models.ContractSPS,
		"SPS":               models.ContractSPS,
		"SURF":              models.ContractSURF,
		"Drilling":          models.ContractOther,
		"":                  models.ContractOther,
	}
	for in, want := range tests {
		if got := ClassifyContractType(in); got != want {
			t.Errorf("ClassifyContractType(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseUSDValue(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"USD 1.2bn", 1.2e9, true},
		{"$250m", 250e6, true},
		{"$250-300m", 300e6, true},
		{"US$ 45 million", 45e6, true},
		{"1,500 million", 1.5e9, true},
		{"March 2025: USD 80 million", 80e6, true},
		{"NOK 3 billion", 0, false},
		{"EUR 120m", 0, false},
		{"sizeable", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got := ParseUSDValue(tt.in)
		if (got != nil) != tt.ok {
			t.Errorf("ParseUSDValue(%q) = %v, want ok=%v", tt.in, got, tt.ok)
			continue
		}
		if got != nil && math.Abs(*got-tt.want) > 1e-6 {
			t.Errorf("ParseUSDValue(%q) = %v, want %v", tt.in, *got, tt.want)
		}
	}
}

func TestDecodeMarketReport(t *testing.T) {
	rep := DecodeMarketReport(map[string]interface{}{
		"report_period": "Q3 2025",
		"summary":       "Spend is rising.",
		"highlights":    []interface{}{"Record awards", nil, " "},
		"key_figures":   map[string]interface{}{"Global subsea capex": "USD 42bn"},
		"forecasts": []interface{}{
			map[string]interface{}{"year": 2026.0, "metric": "Subsea Capex", "value": 45.5, "unit": "USD bn"},
			map[string]interface{}{"year": "2027E", "metric": "XMT installations", "value": "~410 units"},
			map[string]interface{}{"year": "soon", "metric": "x", "value": 1.0},
			map[string]interface{}{"year": 2026.0, "metric": "", "value": 1.0},
		},
	})
	if rep.ReportPeriod != "Q3 2025" || len(rep.Highlights) != 1 {
		t.Errorf("unexpected header fields %+v", rep)
	}
	if len(rep.Forecasts) != 2 {
		t.Fatalf("expected 2 forecasts, got %+v", rep.Forecasts)
	}
	if rep.Forecasts[1].Year != 2027 || rep.Forecasts[1].Value != 410 {
		t.Errorf("loose forecast parse = %+v", rep.Forecasts[1])
	}
}

func TestDecodeContractReplyShapes(t *testing.T) {
	const rows = `[{"supplier": "TechnipFMC", "operator": "Equinor", "segment": "iEPCI"},
		{"supplier": "Subsea7", "operator": "Petrobras", "segment": "SURF"}]`
	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{"fenced array", "```json\n" + rows + "\n```", []string{"TechnipFMC", "Subsea7"}},
		{"bare array", rows, []string{"TechnipFMC", "Subsea7"}},
		{"array after commentary", "Found two awards:\n" + rows, []string{"TechnipFMC", "Subsea7"}},
		{"wrapped object", `{"awards": ` + rows + `}`, []string{"TechnipFMC", "Subsea7"}},
		{"single row object", `{"supplier": "Saipem", "operator": "Eni"}`, []string{"Saipem"}},
		{"empty array", "[]", nil},
		{"prose", "No contract table in this document.", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeContractReply(tt.reply)
			if len(got) != len(tt.want) {
				t.Fatalf("decoded %d rows, want %d: %+v", len(got), len(tt.want), got)
			}
			for i, s := range tt.want {
				if got[i].Supplier != s {
					t.Errorf("row %d supplier = %q, want %q", i, got[i].Supplier, s)
				}
			}
		})
	}
}

func TestExtractContractsBareArrayReply(t *testing.T) {
	stub := &llm.StubProvider{Reply: "```json\n[{\"supplier\": \"TechnipFMC\", \"project\": \"Johan Castberg\"}, {\"supplier\": \"Subsea7\", \"project\": \"Mero 4\"}]\n```"}
	rows, err := newTestExtractor(stub).ExtractContracts(context.Background(), []byte("%PDF"), "awards.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1].Project != "Mero 4" {
		t.Errorf("rows = %+v", rows)
	}
}
