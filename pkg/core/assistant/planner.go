// Package assistant answers chat requests over the stored subsea data: it
// plans the lookup, builds a bounded context from the row store, asks the
// answer model and, for report requests, renders and stores a PDF.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"subsea_intel/pkg/core/agent"
	"subsea_intel/pkg/core/llm"
	"subsea_intel/pkg/core/prompt"
	"subsea_intel/pkg/core/utils"
	"subsea_intel/pkg/logger"
	"subsea_intel/pkg/models"
)

// PromptRunner sends a text prompt to the provider routed for an agent.
type PromptRunner interface {
	ExecutePrompt(ctx context.Context, agentType, prompt, systemPrompt string, options map[string]interface{}) (string, error)
}

var _ PromptRunner = (*agent.Manager)(nil)

// PlanTables are the tables a plan may include, in context order.
var PlanTables = []string{
	models.TableXMT,
	models.TableSURF,
	models.TableSubseaUnits,
	models.TableAwards,
	models.TableProjects,
	models.TableContracts,
	models.TableForecasts,
	models.TableDocuments,
}

// planTurns is how much conversation the planner sees.
const planTurns = 8

type Planner struct {
	llm     PromptRunner
	prompts *prompt.Registry
	log     *logger.Logger
	now     func() time.Time
}

func NewPlanner(runner PromptRunner, prompts *prompt.Registry, log *logger.Logger) *Planner {
	if prompts == nil {
		prompts = prompt.NewDefaultRegistry()
	}
	return &Planner{llm: runner, prompts: prompts, log: logger.OrNop(log), now: time.Now}
}

// BuildPlan always returns a plan. The model's fields win; anything it
// leaves out or gets wrong comes from HeuristicPlan on the latest user
// message. If the model call fails the heuristic plan is used as is.
func (p *Planner) BuildPlan(ctx context.Context, conversation []models.ChatMessage) models.AgentPlan {
	latest := LatestUserMessage(conversation)
	h := HeuristicPlan(latest)

	if p.llm == nil {
		return h
	}
	system, user, err := p.prompts.Render(prompt.AgentPlan, prompt.Vars{
		"Today":        p.now().Format("2006-01-02"),
		"Tables":       strings.Join(PlanTables, ", "),
		"Conversation": formatConversation(conversation, planTurns),
	})
	if err != nil {
		p.log.Warn("plan prompt unavailable", "error", err)
		return h
	}
	reply, err := p.llm.ExecutePrompt(ctx, agent.AgentPlanner, user, system, map[string]interface{}{
		llm.OptTemperature:     0.1,
		llm.OptMaxOutputTokens: 2048,
		llm.OptJSON:            true,
	})
	if err != nil {
		p.log.Warn("planner model failed, using heuristic plan", "error", err)
		return h
	}
	obj := utils.ParseJSONObject(reply)
	if len(obj) == 0 {
		p.log.Warn("planner reply held no JSON, using heuristic plan", "reply_len", len(reply))
		return h
	}
	return mergePlan(obj, h)
}

// LatestUserMessage returns the last user turn, or the last turn of any
// role when no user turn exists.
func LatestUserMessage(conversation []models.ChatMessage) string {
	for i := len(conversation) - 1; i >= 0; i-- {
		if conversation[i].Role == "user" && strings.TrimSpace(conversation[i].Content) != "" {
			return strings.TrimSpace(conversation[i].Content)
		}
	}
	if n := len(conversation); n > 0 {
		return strings.TrimSpace(conversation[n-1].Content)
	}
	return ""
}

func formatConversation(conversation []models.ChatMessage, turns int) string {
	if len(conversation) > turns {
		conversation = conversation[len(conversation)-turns:]
	}
	var sb strings.Builder
	for _, m := range conversation {
		role := m.Role
		if role == "" {
			role = "user"
		}
		fmt.Fprintf(&sb, "%s: %s\n", role, strings.TrimSpace(m.Content))
	}
	return strings.TrimSpace(sb.String())
}

var (
	yearRe      = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	reportRe    = regexp.MustCompile(`(?i)\b(rapport|rapporten|report|pdf|dokument|document|briefing|write[- ]?up|notat)\b`)
	norwegianRe = regexp.MustCompile(`(?i)\b(hva|hvilke|hvilken|hvor|hvordan|hvem|ikke|jeg|meg|kan du|lag|gi|vis|om|og|til|mellom|prosjekter|kontrakter|prognoser?|rapport|oversikt|neste|siste|mange)\b`)
	norwegianCh = regexp.MustCompile(`[æøåÆØÅ]`)
)

// Function words in English and Norwegian, plus request verbs that never
// name a project.
var stopwords = toSet(`
a about after all also an and any are as at be been but by can could did do does for from give had has have
how i in into is it its list me more most my of on or our please show so some tell than that the their them
then there these they this those to up us was we were what when where which who why will with would you your
make create write generate need want like summary overview report pdf document between during since until latest
next last year years per each total compared versus vs much many
og i på til av for med er som det den de et en ei om har kan vil skal ikke jeg du vi meg oss hva hvilke hvilken
hvor hvordan hvem når mellom fra etter før under over alle alt noen mer mest lag gi vis skriv fortell rapport
rapporten oversikt dokument siste neste år årene totalt sammenlignet per hver mange mye
`)

// Domain terms steer tables and focus but are not project names.
var domainTerms = toSet(`
subsea xmt xmts tree trees christmas surf umbilical umbilicals riser risers flowline flowlines pipeline pipelines
unit units manifold manifolds contract contracts kontrakt kontrakter award awards awarded tildeling tildelinger
project projects prosjekt prosjekter forecast forecasts prognose prognoser market marked spend spending capex
investment investments installed installations installation operator operators operatør operatører country
countries land supplier suppliers leverandør leverandører field fields felt data value values verdi outlook trend
trends growth vekst region regions
`)

var knownCountries = map[string]string{
	"norway": "Norway", "norge": "Norway", "norwegian": "Norway", "norsk": "Norway",
	"brazil": "Brazil", "brasil": "Brazil",
	"uk": "United Kingdom", "britain": "United Kingdom", "storbritannia": "United Kingdom",
	"usa": "United States", "america": "United States",
	"guyana": "Guyana", "suriname": "Suriname", "angola": "Angola", "nigeria": "Nigeria",
	"mozambique": "Mozambique", "egypt": "Egypt", "australia": "Australia", "malaysia": "Malaysia",
	"indonesia": "Indonesia", "india": "India", "china": "China", "mexico": "Mexico",
	"canada": "Canada", "namibia": "Namibia", "senegal": "Senegal", "israel": "Israel",
	"denmark": "Denmark", "danmark": "Denmark", "netherlands": "Netherlands",
}

var knownOperators = map[string]string{
	"equinor": "Equinor", "petrobras": "Petrobras", "shell": "Shell", "bp": "BP",
	"exxonmobil": "ExxonMobil", "exxon": "ExxonMobil", "chevron": "Chevron",
	"totalenergies": "TotalEnergies", "total": "TotalEnergies", "eni": "Eni",
	"conocophillips": "ConocoPhillips", "woodside": "Woodside", "aker": "Aker BP",
	"akerbp": "Aker BP", "vår": "Vår Energi", "harbour": "Harbour Energy",
	"petronas": "Petronas", "cnooc": "CNOOC", "santos": "Santos", "omv": "OMV", "wintershall": "Wintershall Dea",
}

// Table hints map request words onto the tables worth fetching.
var tableHints = []struct {
	re     *regexp.Regexp
	tables []string
}{
	{regexp.MustCompile(`(?i)xmt|tree|trær|juletre`), []string{models.TableXMT, models.TableProjects}},
	{regexp.MustCompile(`(?i)surf|umbilical|riser|flowline|pipeline|rørledning`), []string{models.TableSURF, models.TableProjects}},
	{regexp.MustCompile(`(?i)manifold|subsea unit|units?\b|enheter`), []string{models.TableSubseaUnits}},
	{regexp.MustCompile(`(?i)award|tildel`), []string{models.TableAwards, models.TableContracts}},
	{regexp.MustCompile(`(?i)contract|kontrakt|supplier|leverandør|epci|sps`), []string{models.TableContracts}},
	{regexp.MustCompile(`(?i)forecast|prognose|spend|capex|market|marked|brent|outlook|utsikt`), []string{models.TableForecasts, models.TableDocuments}},
	{regexp.MustCompile(`(?i)project|prosjekt|field|felt`), []string{models.TableProjects}},
}

func toSet(words string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}

func tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// HeuristicPlan extracts a plan from one message without a model: years,
// report intent, language, known countries and operators, table hints and
// the remaining words of three or more letters as project keywords.
func HeuristicPlan(text string) models.AgentPlan {
	plan := models.AgentPlan{
		Intent:          models.IntentQuestion,
		Language:        "en",
		ProjectKeywords: []string{},
		Countries:       []string{},
		Operators:       []string{},
		IncludeTables:   []string{},
		FocusPoints:     []string{},
	}
	if reportRe.MatchString(text) {
		plan.Intent = models.IntentReport
		plan.ReportScope = truncateRunes(strings.TrimSpace(text), 200)
	}
	if norwegianCh.MatchString(text) || len(norwegianRe.FindAllString(text, -1)) >= 2 {
		plan.Language = "no"
	}

	var years []int
	for _, y := range yearRe.FindAllString(text, -1) {
		n, _ := strconv.Atoi(y)
		years = append(years, n)
	}
	if len(years) > 0 {
		sort.Ints(years)
		from, to := years[0], years[len(years)-1]
		plan.FromYear, plan.ToYear = &from, &to
	}

	seen := map[string]bool{}
	add := func(list *[]string, v string) {
		if !seen[v] {
			seen[v] = true
			*list = append(*list, v)
		}
	}
	toks := tokens(text)
	for i, tok := range toks {
		switch {
		case tok == "bp" && i > 0 && toks[i-1] == "aker":
		case knownCountries[tok] != "":
			add(&plan.Countries, knownCountries[tok])
		case knownOperators[tok] != "" && !stopwords[tok]:
			add(&plan.Operators, knownOperators[tok])
		case len([]rune(tok)) < 3, stopwords[tok], isDigits(tok):
		case domainTerms[tok]:
			add(&plan.FocusPoints, tok)
		default:
			add(&plan.ProjectKeywords, tok)
		}
	}

	if plan.Intent == models.IntentQuestion {
		tables := map[string]bool{}
		for _, hint := range tableHints {
			if hint.re.MatchString(text) {
				for _, t := range hint.tables {
					tables[t] = true
				}
			}
		}
		for _, t := range PlanTables {
			if tables[t] {
				plan.IncludeTables = append(plan.IncludeTables, t)
			}
		}
	}
	return plan
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func truncateRunes(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n])
}

// mergePlan takes each field from the model reply when it is present and
// valid, else from the heuristic plan.
func mergePlan(obj map[string]interface{}, h models.AgentPlan) models.AgentPlan {
	plan := h

	switch v := strings.ToLower(stringField(obj, "intent")); v {
	case models.IntentQuestion, models.IntentReport:
		plan.Intent = v
	}
	if s := stringField(obj, "report_scope"); s != "" {
		plan.ReportScope = s
	}
	switch v := strings.ToLower(stringField(obj, "language")); v {
	case "no", "nb", "nn", "norwegian", "norsk":
		plan.Language = "no"
	case "en", "english":
		plan.Language = "en"
	}

	if list := stringList(obj, "project_keywords", true); len(list) > 0 {
		plan.ProjectKeywords = list
	}
	if list := stringList(obj, "countries", false); len(list) > 0 {
		plan.Countries = list
	}
	if list := stringList(obj, "operators", false); len(list) > 0 {
		plan.Operators = list
	}
	if list := stringList(obj, "focus_points", false); len(list) > 0 {
		plan.FocusPoints = list
	}

	known := map[string]bool{}
	for _, t := range PlanTables {
		known[t] = true
	}
	var tables []string
	for _, t := range stringList(obj, "include_tables", true) {
		if known[t] {
			tables = append(tables, t)
		}
	}
	if len(tables) > 0 {
		plan.IncludeTables = tables
	}

	if y, ok := yearField(obj, "from_year"); ok {
		plan.FromYear = &y
	}
	if y, ok := yearField(obj, "to_year"); ok {
		plan.ToYear = &y
	}
	if plan.FromYear != nil && plan.ToYear != nil && *plan.FromYear > *plan.ToYear {
		plan.FromYear, plan.ToYear = plan.ToYear, plan.FromYear
	}
	return plan
}

func stringField(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

func stringList(obj map[string]interface{}, key string, lower bool) []string {
	arr, ok := obj[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, it := range arr {
		s, ok := it.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if lower {
			s = strings.ToLower(s)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func yearField(obj map[string]interface{}, key string) (int, bool) {
	var y int
	switch v := obj[key].(type) {
	case float64:
		y = int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		y = int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		y = n
	default:
		return 0, false
	}
	if y < 1900 || y > 2100 {
		return 0, false
	}
	return y, true
}
