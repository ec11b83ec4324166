package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"subsea_intel/pkg/core/agent"
	"subsea_intel/pkg/core/llm"
	"subsea_intel/pkg/core/prompt"
	"subsea_intel/pkg/core/utils"
	"subsea_intel/pkg/logger"
	"subsea_intel/pkg/models"
)

// Answer is one generated chat turn. Report fields are set only for
// report requests.
type Answer struct {
	Answer         string   `json:"answer"`
	ReportTitle    string   `json:"report_title,omitempty"`
	ReportSummary  string   `json:"report_summary,omitempty"`
	ReportMarkdown string   `json:"report_markdown,omitempty"`
	FollowUps      []string `json:"follow_ups"`
	Fallback       bool     `json:"fallback"`
}

const (
	answerTurns  = 12
	maxFollowUps = 3
)

type Generator struct {
	llm     PromptRunner
	prompts *prompt.Registry
	log     *logger.Logger
}

func NewGenerator(runner PromptRunner, prompts *prompt.Registry, log *logger.Logger) *Generator {
	if prompts == nil {
		prompts = prompt.NewDefaultRegistry()
	}
	return &Generator{llm: runner, prompts: prompts, log: logger.OrNop(log)}
}

// Generate asks the answer model for the turn. The chat answer is reduced
// to plain text; report markdown is kept as written. When the model is
// unavailable or returns nothing usable, the answer and report are built
// from the summary alone.
func (g *Generator) Generate(ctx context.Context, plan models.AgentPlan, sum DataSummary, conversation []models.ChatMessage) Answer {
	wantReport := plan.Intent == models.IntentReport
	out, err := g.callModel(ctx, plan, sum, conversation)
	if err != nil {
		g.log.Warn("answer model failed, using fallback", "error", err)
		out = FallbackAnswer(plan, sum)
		out.Fallback = true
		return out
	}
	if wantReport && strings.TrimSpace(out.ReportMarkdown) == "" {
		fb := FallbackAnswer(plan, sum)
		out.ReportTitle, out.ReportSummary, out.ReportMarkdown = fb.ReportTitle, fb.ReportSummary, fb.ReportMarkdown
	}
	if wantReport && out.ReportTitle == "" {
		out.ReportTitle = reportTitle(plan)
	}
	if !wantReport {
		out.ReportTitle, out.ReportSummary, out.ReportMarkdown = "", "", ""
	}
	return out
}

func (g *Generator) callModel(ctx context.Context, plan models.AgentPlan, sum DataSummary, conversation []models.ChatMessage) (Answer, error) {
	if g.llm == nil {
		return Answer{}, fmt.Errorf("no answer model configured")
	}
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return Answer{}, err
	}
	ctxJSON, err := json.Marshal(struct {
		FromYear *int           `json:"from_year,omitempty"`
		ToYear   *int           `json:"to_year,omitempty"`
		Counts   map[string]int `json:"matching_rows"`
		Warnings []string       `json:"warnings,omitempty"`
		Data     ContextPayload `json:"data"`
	}{sum.FromYear, sum.ToYear, sum.Counts, sum.Warnings, sum.Context})
	if err != nil {
		return Answer{}, err
	}

	system, user, err := g.prompts.Render(prompt.AgentAnswer, prompt.Vars{
		"Language":     languageName(plan.Language),
		"Intent":       plan.Intent,
		"Plan":         string(planJSON),
		"Context":      string(ctxJSON),
		"Conversation": formatConversation(conversation, answerTurns),
	})
	if err != nil {
		return Answer{}, err
	}
	reply, err := g.llm.ExecutePrompt(ctx, agent.AgentAnswer, user, system, map[string]interface{}{
		llm.OptTemperature:     0.2,
		llm.OptMaxOutputTokens: 16384,
		llm.OptJSON:            true,
	})
	if err != nil {
		return Answer{}, err
	}

	obj := utils.ParseJSONObject(reply)
	out := Answer{
		Answer:         utils.StripMarkdown(stringField(obj, "answer")),
		ReportTitle:    utils.StripMarkdown(stringField(obj, "report_title")),
		ReportSummary:  utils.StripMarkdown(stringField(obj, "report_summary")),
		ReportMarkdown: utils.CleanMarkdown(stringField(obj, "report_markdown")),
		FollowUps:      stringList(obj, "follow_ups", false),
	}
	if len(out.FollowUps) > maxFollowUps {
		out.FollowUps = out.FollowUps[:maxFollowUps]
	}
	if out.Answer == "" {
		// A reply that is prose rather than JSON is still an answer.
		if len(obj) == 0 && strings.TrimSpace(reply) != "" {
			out.Answer = utils.StripMarkdown(utils.StripCodeFence(reply))
			return out, nil
		}
		return Answer{}, fmt.Errorf("answer reply held no answer (%d bytes)", len(reply))
	}
	return out, nil
}

func languageName(code string) string {
	if code == "no" {
		return "Norwegian (bokmål)"
	}
	return "English"
}

func reportTitle(plan models.AgentPlan) string {
	var parts []string
	if len(plan.ProjectKeywords) > 0 {
		parts = append(parts, titleCase(strings.Join(plan.ProjectKeywords, " ")))
	}
	if len(plan.Countries) > 0 {
		parts = append(parts, strings.Join(plan.Countries, ", "))
	}
	base := "Subsea market report"
	if plan.Language == "no" {
		base = "Subsea markedsrapport"
	}
	if len(parts) > 0 {
		base += ": " + strings.Join(parts, " / ")
	}
	if p := periodLabel(plan.FromYear, plan.ToYear); p != "" {
		base += " (" + p + ")"
	}
	return base
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[:1])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

func periodLabel(from, to *int) string {
	switch {
	case from != nil && to != nil && *from == *to:
		return fmt.Sprint(*from)
	case from != nil && to != nil:
		return fmt.Sprintf("%d-%d", *from, *to)
	case from != nil:
		return fmt.Sprintf("%d-", *from)
	case to != nil:
		return fmt.Sprintf("-%d", *to)
	}
	return ""
}

// fallback text in both supported languages
type phrases struct {
	intro, noData, rowsIn, topCountries, topOperators, yearly, forecasts, contracts, coverage, table, rows, year, metric, latest, value, unit, summary, warnings string
}

var texts = map[string]phrases{
	"en": {
		intro:        "The language model is unavailable, so this is a summary of the matching data.",
		noData:       "No stored data matched the request.",
		rowsIn:       "%d matching rows in %s",
		topCountries: "Top countries",
		topOperators: "Top operators",
		yearly:       "Yearly totals",
		forecasts:    "Forecasts",
		contracts:    "Contracts",
		coverage:     "Data coverage",
		table:        "Table",
		rows:         "Rows",
		year:         "Year",
		metric:       "Metric",
		latest:       "Latest year",
		value:        "Value",
		unit:         "Unit",
		summary:      "Generated from %d matching rows across %d tables.",
		warnings:     "Warnings",
	},
	"no": {
		intro:        "Språkmodellen er utilgjengelig, så dette er en oppsummering av dataene som passer.",
		noData:       "Ingen lagrede data passet til forespørselen.",
		rowsIn:       "%d rader i %s",
		topCountries: "Største land",
		topOperators: "Største operatører",
		yearly:       "Årlige totaler",
		forecasts:    "Prognoser",
		contracts:    "Kontrakter",
		coverage:     "Datadekning",
		table:        "Tabell",
		rows:         "Rader",
		year:         "År",
		metric:       "Måltall",
		latest:       "Siste år",
		value:        "Verdi",
		unit:         "Enhet",
		summary:      "Laget fra %d rader i %d tabeller.",
		warnings:     "Advarsler",
	},
}

func phrasesFor(lang string) phrases {
	if p, ok := texts[lang]; ok {
		return p
	}
	return texts["en"]
}

// FallbackAnswer builds the turn from counts and totals without a model.
func FallbackAnswer(plan models.AgentPlan, sum DataSummary) Answer {
	p := phrasesFor(plan.Language)
	tables := sortedTables(sum.Counts)
	total := 0
	for _, t := range tables {
		total += sum.Counts[t]
	}

	var ans strings.Builder
	ans.WriteString(p.intro)
	if total == 0 {
		ans.WriteString(" " + p.noData)
	} else {
		var parts []string
		for _, t := range tables {
			if sum.Counts[t] > 0 {
				parts = append(parts, fmt.Sprintf(p.rowsIn, sum.Counts[t], t))
			}
		}
		ans.WriteString(" " + strings.Join(parts, "; ") + ".")
		for _, key := range sortedKeys(sum.Context.YearTotals) {
			v := 0.0
			for _, yv := range sum.Context.YearTotals[key] {
				v += yv.Value
			}
			ans.WriteString(fmt.Sprintf(" %s: %s.", key, formatNumber(v)))
		}
		if len(sum.Context.TopCountries) > 0 {
			ans.WriteString(fmt.Sprintf(" %s: %s.", p.topCountries, joinNames(sum.Context.TopCountries, 3)))
		}
	}

	out := Answer{Answer: ans.String(), FollowUps: []string{}}
	if plan.Intent == models.IntentReport {
		out.ReportTitle = reportTitle(plan)
		out.ReportSummary = fmt.Sprintf(p.summary, total, len(tables))
		out.ReportMarkdown = fallbackReport(out.ReportTitle, p, sum, tables)
	}
	return out
}

func fallbackReport(title string, p phrases, sum DataSummary, tables []string) string {
	var md strings.Builder
	fmt.Fprintf(&md, "## %s\n\n", title)

	fmt.Fprintf(&md, "### %s\n\n| %s | %s |\n|---|---:|\n", p.coverage, p.table, p.rows)
	for _, t := range tables {
		fmt.Fprintf(&md, "| %s | %d |\n", t, sum.Counts[t])
	}
	md.WriteString("\n")

	if keys := sortedKeys(sum.Context.YearTotals); len(keys) > 0 {
		years := map[int]bool{}
		for _, k := range keys {
			for _, yv := range sum.Context.YearTotals[k] {
				years[yv.Year] = true
			}
		}
		var ys []int
		for y := range years {
			ys = append(ys, y)
		}
		sort.Ints(ys)
		fmt.Fprintf(&md, "### %s\n\n| %s | %s |\n|---|%s\n", p.yearly, p.year, strings.Join(keys, " | "), strings.Repeat("---:|", len(keys)))
		for _, y := range ys {
			cells := make([]string, len(keys))
			for i, k := range keys {
				cells[i] = "-"
				for _, yv := range sum.Context.YearTotals[k] {
					if yv.Year == y {
						cells[i] = formatNumber(yv.Value)
					}
				}
			}
			fmt.Fprintf(&md, "| %d | %s |\n", y, strings.Join(cells, " | "))
		}
		md.WriteString("\n")
	}

	if c := sum.Context.ContractTotals; c != nil {
		fmt.Fprintf(&md, "### %s\n\n", p.contracts)
		types := make([]string, 0, len(c.ByType))
		for t := range c.ByType {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Fprintf(&md, "- %s: %d\n", t, c.ByType[t])
		}
		if c.WithValue > 0 {
			fmt.Fprintf(&md, "- USD: %s (%d)\n", formatNumber(c.TotalValueUSD), c.WithValue)
		}
		md.WriteString("\n")
	}

	for _, group := range []struct {
		title string
		names []NameCount
	}{{p.topCountries, sum.Context.TopCountries}, {p.topOperators, sum.Context.TopOperators}} {
		if len(group.names) == 0 {
			continue
		}
		fmt.Fprintf(&md, "### %s\n\n", group.title)
		for _, n := range group.names {
			fmt.Fprintf(&md, "- %s: %d\n", n.Name, n.Count)
		}
		md.WriteString("\n")
	}

	if len(sum.Context.Forecasts) > 0 {
		fmt.Fprintf(&md, "### %s\n\n| %s | %s | %s | %s |\n|---|---:|---:|---|\n", p.forecasts, p.metric, p.latest, p.value, p.unit)
		for _, f := range sum.Context.Forecasts {
			fmt.Fprintf(&md, "| %s | %d | %s | %s |\n", f.Metric, f.LatestYear, formatNumber(f.LatestValue), f.Unit)
		}
		md.WriteString("\n")
	}

	if len(sum.Warnings) > 0 {
		fmt.Fprintf(&md, "### %s\n\n", p.warnings)
		for _, w := range sum.Warnings {
			fmt.Fprintf(&md, "- %s\n", w)
		}
	}
	return strings.TrimSpace(md.String())
}

func sortedTables(counts map[string]int) []string {
	var out []string
	for _, t := range PlanTables {
		if _, ok := counts[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

func sortedKeys(m map[string][]YearValue) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func joinNames(names []NameCount, n int) string {
	if len(names) > n {
		names = names[:n]
	}
	parts := make([]string, len(names))
	for i, nc := range names {
		parts[i] = fmt.Sprintf("%s (%d)", nc.Name, nc.Count)
	}
	return strings.Join(parts, ", ")
}

func formatNumber(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.2f bn", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1f m", v/1e6)
	case v == float64(int64(v)):
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
