package assistant

import (
	"context"
	"strings"
	"testing"

	"subsea_intel/pkg/models"
)

func sampleSummary() DataSummary {
	return DataSummary{
		FromYear: intp(2024),
		ToYear:   intp(2026),
		Counts:   map[string]int{models.TableXMT: 2, models.TableForecasts: 1},
		Included: map[string]int{models.TableXMT: 2, models.TableForecasts: 1},
		Context: ContextPayload{
			YearTotals:   map[string][]YearValue{"xmts_installed": {{Year: 2025, Value: 6}, {Year: 2026, Value: 3}}},
			TopCountries: []NameCount{{Name: "Norway", Count: 2}},
			Forecasts:    []ForecastSeries{{Metric: "subsea_spend_usd_bn", Unit: "USD bn", LatestYear: 2026, LatestValue: 42, Points: []YearValue{{2026, 42}}}},
		},
	}
}

func TestGenerateStripsAnswerMarkdown(t *testing.T) {
	runner := &fakeRunner{fn: func(string, string, string) (string, error) {
		return `{"answer": "## Result\n**Six** trees in [2025](https://example.com/x).",
			"report_markdown": "## Should be dropped",
			"follow_ups": ["a", "b", "c", "d"]}`, nil
	}}
	g := NewGenerator(runner, nil, nil)
	ans := g.Generate(context.Background(), models.AgentPlan{Intent: models.IntentQuestion, Language: "en"}, sampleSummary(), userTurn("How many?"))

	if ans.Answer != "Result\n\nSix trees in 2025 (https://example.com/x)." {
		t.Errorf("answer = %q", ans.Answer)
	}
	if ans.ReportMarkdown != "" || ans.Fallback {
		t.Errorf("questions carry no report: %+v", ans)
	}
	if len(ans.FollowUps) != 3 {
		t.Errorf("follow ups = %v", ans.FollowUps)
	}
	if !strings.Contains(runner.last["answer"], `"subsea_spend_usd_bn"`) {
		t.Error("answer prompt should carry the context json")
	}
}

func TestGenerateFallbackOnModelFailure(t *testing.T) {
	g := NewGenerator(failingRunner(), nil, nil)
	plan := models.AgentPlan{Intent: models.IntentReport, Language: "en", ProjectKeywords: []string{"johan", "sverdrup"}, FromYear: intp(2024), ToYear: intp(2026)}
	ans := g.Generate(context.Background(), plan, sampleSummary(), userTurn("Report for Johan Sverdrup 2024-2026"))

	if !ans.Fallback {
		t.Error("expected fallback")
	}
	if !strings.Contains(ans.Answer, "2 matching rows in xmt_data") || !strings.Contains(ans.Answer, "xmts_installed: 9") {
		t.Errorf("answer = %q", ans.Answer)
	}
	if ans.ReportTitle != "Subsea market report: Johan Sverdrup (2024-2026)" {
		t.Errorf("title = %q", ans.ReportTitle)
	}
	for _, want := range []string{"### Data coverage", "| xmt_data | 2 |", "| 2025 | 6 |", "| subsea_spend_usd_bn | 2026 | 42 | USD bn |", "- Norway: 2"} {
		if !strings.Contains(ans.ReportMarkdown, want) {
			t.Errorf("report missing %q:\n%s", want, ans.ReportMarkdown)
		}
	}
}

func TestGenerateFallbackNorwegianNoData(t *testing.T) {
	ans := FallbackAnswer(models.AgentPlan{Intent: models.IntentQuestion, Language: "no"}, DataSummary{Counts: map[string]int{}})
	if !strings.Contains(ans.Answer, "Ingen lagrede data") {
		t.Errorf("answer = %q", ans.Answer)
	}
}

func TestGenerateFillsMissingReport(t *testing.T) {
	runner := &fakeRunner{fn: func(string, string, string) (string, error) {
		return `{"answer": "Here is your report.", "report_title": "", "report_markdown": ""}`, nil
	}}
	plan := models.AgentPlan{Intent: models.IntentReport, Language: "en"}
	ans := NewGenerator(runner, nil, nil).Generate(context.Background(), plan, sampleSummary(), userTurn("report please"))
	if ans.Answer != "Here is your report." || ans.Fallback {
		t.Errorf("model answer should be kept: %+v", ans)
	}
	if !strings.HasPrefix(ans.ReportMarkdown, "## Subsea market report") || ans.ReportTitle == "" {
		t.Errorf("report should be filled from data: %q", ans.ReportMarkdown)
	}
}

func TestGenerateAcceptsProseReply(t *testing.T) {
	runner := &fakeRunner{fn: func(string, string, string) (string, error) {
		return "There are **six** trees.", nil
	}}
	ans := NewGenerator(runner, nil, nil).Generate(context.Background(), models.AgentPlan{Intent: models.IntentQuestion}, sampleSummary(), userTurn("?"))
	if ans.Answer != "There are six trees." || ans.Fallback {
		t.Errorf("answer = %+v", ans)
	}
}
