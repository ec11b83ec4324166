package ingest

import (
	"encoding/json"
	"strings"
	"testing"

	"subsea_intel/pkg/core/extract"
	"subsea_intel/pkg/core/schema"
	"subsea_intel/pkg/models"
)

func sp(s string) *string   { return &s }
func ip(i int) *int         { return &i }
func fp(f float64) *float64 { return &f }

func TestRollupProjects(t *testing.T) {
	attrs := models.ProjectAttrs{DevelopmentProject: "Mero", Asset: sp("Mero-2"), Country: sp("Brazil")}
	withOp := attrs
	withOp.Operator = sp("Petrobras")

	res := schema.Result{
		XMT:    []models.XMTRow{{ProjectAttrs: attrs, Year: ip(2027), XMTInstalled: fp(5)}},
		SURF:   []models.SURFRow{{ProjectAttrs: withOp, Year: ip(2025), KMSurf: fp(30)}},
		Subsea: []models.SubseaUnitRow{{ProjectAttrs: attrs, UnitCount: fp(2)}},
		Awards: []models.AwardRow{{ProjectAttrs: models.ProjectAttrs{DevelopmentProject: "Mero", Asset: sp("Mero-2"), Country: sp("Brazil"), Operator: sp("Shell")}, Year: ip(2029)}},
	}
	projects := RollupProjects(res)
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(projects))
	}
	p := projects[0]
	if p.XMTCount != 5 || p.SurfKM != 30 || p.SubseaUnitCount != 2 {
		t.Errorf("numeric roll-up wrong: %+v", p)
	}
	if *p.FirstYear != 2025 || *p.LastYear != 2029 {
		t.Errorf("year range %d-%d", *p.FirstYear, *p.LastYear)
	}
	if *p.Operator != "Petrobras" {
		t.Errorf("first non-null operator should win, got %s", *p.Operator)
	}
}

func TestContractsFromAwards(t *testing.T) {
	awards := []models.AwardRow{{
		ProjectAttrs: models.ProjectAttrs{DevelopmentProject: "Rosebank", Asset: sp("FPSO"), Operator: sp("Equinor"), Continent: sp("Europe")},
		Year:         ip(2026),
		XMTsAwarded:  fp(10),
	}}
	batch := "b1"
	got := ContractsFromAwards(awards, &batch)
	if len(got) != 1 {
		t.Fatal("expected one contract")
	}
	c := got[0]
	if c.ExternalID != "award-2026-rosebank-fpso" || *c.Date != "2026-01-01" || *c.ProjectName != "Rosebank / FPSO" {
		t.Errorf("unexpected contract %+v", c)
	}
	if c.Source != SourceAwards || *c.Description != "Upcoming award: 10 XMTs" || *c.Region != "Europe" {
		t.Errorf("unexpected contract fields %+v", c)
	}
}

func TestDedupeForecastsLastWins(t *testing.T) {
	got := DedupeForecasts([]extract.ForecastPoint{
		{Year: 2026, Metric: "XMT Installations", Value: 300, Unit: "units"},
		{Year: 2027, Metric: "XMT Installations", Value: 320},
		{Year: 2026, Metric: "xmt installations forecast", Value: 310, Unit: "#"},
	}, "report:x.pdf")
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].Year != 2026 || got[0].Value != 310 || got[0].Metric != "xmt_installations" || *got[0].Unit != "units" {
		t.Errorf("later entry should win: %+v", got[0])
	}
	if got[1].Unit != nil {
		t.Errorf("missing unit should stay nil")
	}
}

func TestBuildReportSummary(t *testing.T) {
	md := BuildReportSummary(extract.MarketReport{
		ReportTitle: "Subsea Outlook",
		Summary:     "Growth continues.",
		KeyFigures:  map[string]interface{}{"capex": 42.0},
	}, "outlook.pdf")
	if !strings.HasPrefix(md, "## Subsea Outlook\n") {
		t.Errorf("heading should fall back to title:\n%s", md)
	}
	if strings.Contains(md, "### Highlights") {
		t.Error("highlights section should be omitted when empty")
	}
	start := strings.Index(md, "```json\n")
	end := strings.LastIndex(md, "\n```")
	var figures map[string]interface{}
	if start < 0 || end < start || json.Unmarshal([]byte(md[start+8:end]), &figures) != nil || figures["capex"] != 42.0 {
		t.Errorf("key figures block is not valid json:\n%s", md)
	}

	md = BuildReportSummary(extract.MarketReport{}, "uploads/q4-outlook.pdf")
	if !strings.HasPrefix(md, "## q4-outlook\n") || !strings.Contains(md, "```json\n{}\n```") {
		t.Errorf("file name fallback wrong:\n%s", md)
	}
}
