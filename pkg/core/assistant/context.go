package assistant

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"subsea_intel/pkg/core/store"
	"subsea_intel/pkg/logger"
	"subsea_intel/pkg/models"
)

// DataSummary is the bounded slice of the store handed to the answer model.
type DataSummary struct {
	FromYear *int           `json:"from_year,omitempty"`
	ToYear   *int           `json:"to_year,omitempty"`
	Counts   map[string]int `json:"counts"`   // rows matching the plan
	Included map[string]int `json:"included"` // rows kept after ranking and caps
	Warnings []string       `json:"warnings,omitempty"`
	Context  ContextPayload `json:"context"`
}

type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type YearValue struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// ForecastSeries is one metric's trend: the latest point and up to the last
// twelve points by year.
type ForecastSeries struct {
	Metric      string      `json:"metric"`
	Unit        string      `json:"unit,omitempty"`
	LatestYear  int         `json:"latest_year"`
	LatestValue float64     `json:"latest_value"`
	Points      []YearValue `json:"points"`
}

type DocumentExcerpt struct {
	FileName  string `json:"file_name"`
	CreatedAt string `json:"created_at,omitempty"`
	Excerpt   string `json:"excerpt"`
}

type ContractTotals struct {
	Count         int            `json:"count"`
	WithValue     int            `json:"with_value"`
	TotalValueUSD float64        `json:"total_value_usd"`
	ByType        map[string]int `json:"by_type"`
}

// ContextPayload is serialized into the answer prompt.
type ContextPayload struct {
	Rows           map[string][]store.Row `json:"rows"`
	TopCountries   []NameCount            `json:"top_countries,omitempty"`
	TopOperators   []NameCount            `json:"top_operators,omitempty"`
	YearTotals     map[string][]YearValue `json:"year_totals,omitempty"`
	ContractTotals *ContractTotals        `json:"contract_totals,omitempty"`
	Forecasts      []ForecastSeries       `json:"forecast_series,omitempty"`
	Documents      []DocumentExcerpt      `json:"documents,omitempty"`
}

const (
	topN           = 10
	seriesPoints   = 12
	maxDocuments   = 20
	excerptRunes   = 1500
	fetchParallels = 4
)

type yearSum struct {
	key    string
	column string
}

type tableSpec struct {
	cap         int
	yearCol     string
	dateCol     string
	firstCol    string // year range columns for roll-ups
	lastCol     string
	textCols    []string
	countryCols []string
	operatorCol string
	sums        []yearSum
	// keywordFree tables hold market-level rows with no project names, so
	// project keywords only rank them.
	keywordFree bool
	// stampCol breaks ties between rows without a year, newest first.
	stampCol string
}

var attrText = []string{"development_project", "asset", "country", "continent", "operator", "surf_contractor", "facility_category", "field_type"}

var tableSpecs = map[string]tableSpec{
	models.TableXMT: {
		cap: 600, yearCol: "year", textCols: append([]string{"xmt_purpose", "state"}, attrText...),
		countryCols: []string{"country", "continent"}, operatorCol: "operator",
		sums: []yearSum{{"xmts_installed", "xmts_installed"}},
	},
	models.TableSURF: {
		cap: 600, yearCol: "year", textCols: append([]string{"line_group", "design_type"}, attrText...),
		countryCols: []string{"country", "continent"}, operatorCol: "operator",
		sums: []yearSum{{"surf_km", "km_surf_lines"}},
	},
	models.TableSubseaUnits: {
		cap: 400, yearCol: "year", textCols: append([]string{"unit_category"}, attrText...),
		countryCols: []string{"country", "continent"}, operatorCol: "operator",
		sums: []yearSum{{"subsea_units", "unit_count"}},
	},
	models.TableAwards: {
		cap: 500, yearCol: "year", textCols: append([]string{"pipeline_phase"}, attrText...),
		countryCols: []string{"country", "continent"}, operatorCol: "operator",
		sums: []yearSum{{"awarded_xmts", "xmts_awarded"}, {"awarded_surf_km", "surf_km_awarded"}},
	},
	models.TableProjects: {
		cap: 900, firstCol: "first_year", lastCol: "last_year", textCols: attrText,
		countryCols: []string{"country", "continent"}, operatorCol: "operator",
	},
	models.TableContracts: {
		cap: 800, dateCol: "date",
		textCols:    []string{"supplier", "operator", "project_name", "description", "contract_type", "region", "country", "pipeline_phase"},
		countryCols: []string{"country", "region"}, operatorCol: "operator",
	},
	models.TableForecasts: {
		cap: 300, yearCol: "year", textCols: []string{"metric", "unit", "source"}, keywordFree: true,
	},
	models.TableDocuments: {
		cap: maxDocuments, textCols: []string{"file_name", "ai_summary"}, stampCol: "created_at",
	},
}

// payloadDrop lists bookkeeping columns left out of the prompt.
var payloadDrop = map[string]bool{"id": true, "batch_id": true, "created_at": true, "updated_at": true, "uploaded_by": true}

type ContextBuilder struct {
	store store.RowStore
	log   *logger.Logger
}

func NewContextBuilder(rs store.RowStore, log *logger.Logger) *ContextBuilder {
	return &ContextBuilder{store: rs, log: logger.OrNop(log).With("component", "context")}
}

// BuildContext fetches the plan's tables concurrently, keeps the relevant
// rows, ranks and caps them, and derives the aggregates. A table that fails
// to load adds a warning and contributes no rows.
func (b *ContextBuilder) BuildContext(ctx context.Context, plan models.AgentPlan) DataSummary {
	sum := DataSummary{
		FromYear: plan.FromYear,
		ToYear:   plan.ToYear,
		Counts:   map[string]int{},
		Included: map[string]int{},
		Context:  ContextPayload{Rows: map[string][]store.Row{}},
	}

	var tables []string
	for _, t := range PlanTables {
		if plan.Includes(t) {
			tables = append(tables, t)
		}
	}

	fetched := make(map[string][]store.Row, len(tables))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallels)
	for _, table := range tables {
		g.Go(func() error {
			rows, err := store.SelectAll(gctx, b.store, table, store.Query{OrderBy: orderFor(table)})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				b.log.Warn("table fetch failed", "table", table, "error", err)
				sum.Warnings = append(sum.Warnings, fmt.Sprintf("%s could not be loaded: %v", table, err))
				return nil
			}
			fetched[table] = rows
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(sum.Warnings)

	f := newRelevance(plan)
	matched := map[string][]store.Row{}
	included := map[string][]store.Row{}
	for _, table := range tables {
		rows, ok := fetched[table]
		if !ok {
			continue
		}
		spec := tableSpecs[table]
		kept := f.rank(spec, rows)
		sum.Counts[table] = len(kept)
		matched[table] = kept
		if len(kept) > spec.cap {
			sum.Warnings = append(sum.Warnings, fmt.Sprintf("%s: showing the top %d of %d matching rows", table, spec.cap, len(kept)))
			kept = kept[:spec.cap]
		}
		sum.Included[table] = len(kept)
		included[table] = kept
		if table == models.TableDocuments {
			continue
		}
		payload := make([]store.Row, len(kept))
		for i, r := range kept {
			payload[i] = compactRow(r)
		}
		sum.Context.Rows[table] = payload
	}

	c := &sum.Context
	c.TopCountries = topNames(matched, func(spec tableSpec) string {
		if len(spec.countryCols) == 0 {
			return ""
		}
		return spec.countryCols[0]
	})
	c.TopOperators = topNames(matched, func(spec tableSpec) string { return spec.operatorCol })
	c.YearTotals = yearTotals(matched)
	c.ContractTotals = contractTotals(matched[models.TableContracts])
	c.Forecasts = forecastSeries(matched[models.TableForecasts])
	c.Documents = documentExcerpts(included[models.TableDocuments])

	b.log.Info("context built", "tables", len(tables), "counts", sum.Counts, "warnings", len(sum.Warnings))
	return sum
}

func orderFor(table string) []store.Order {
	cols := models.ConflictColumns[table]
	out := make([]store.Order, len(cols))
	for i, c := range cols {
		out[i] = store.Order{Column: c}
	}
	return out
}

func compactRow(r store.Row) store.Row {
	out := make(store.Row, len(r))
	for k, v := range r {
		if v == nil || payloadDrop[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// relevance holds the plan's filters in matching form.
type relevance struct {
	from, to  *int
	keywords  []string
	focus     []string
	countries []string
	operators []string
}

func newRelevance(plan models.AgentPlan) *relevance {
	lower := func(in []string) []string {
		var out []string
		for _, s := range in {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	r := &relevance{
		from:      plan.FromYear,
		to:        plan.ToYear,
		keywords:  lower(plan.ProjectKeywords),
		countries: lower(plan.Countries),
		operators: lower(plan.Operators),
	}
	seen := map[string]bool{}
	for _, fp := range plan.FocusPoints {
		for _, tok := range tokens(fp) {
			if len([]rune(tok)) >= 3 && !stopwords[tok] && !seen[tok] {
				seen[tok] = true
				r.focus = append(r.focus, tok)
			}
		}
	}
	return r
}

type scoredRow struct {
	row     store.Row
	hits    int
	recency int
	stamp   time.Time
}

// rank filters rows and orders them by keyword hits, then most recent year,
// then newest stamp.
func (f *relevance) rank(spec tableSpec, rows []store.Row) []store.Row {
	var kept []scoredRow
	for _, r := range rows {
		lo, hi, hasYear := rowYears(spec, r)
		if hasYear && !f.inRange(lo, hi) {
			continue
		}
		if len(f.countries) > 0 && len(spec.countryCols) > 0 && !matchAny(r, spec.countryCols, f.countries) {
			continue
		}
		if len(f.operators) > 0 && spec.operatorCol != "" && !matchAny(r, []string{spec.operatorCol}, f.operators) {
			continue
		}
		text := rowText(r, spec.textCols)
		kw := countHits(text, f.keywords)
		if len(f.keywords) > 0 && kw == 0 && !spec.keywordFree {
			continue
		}
		s := scoredRow{row: r, hits: kw + countHits(text, f.focus), recency: hi}
		if spec.stampCol != "" {
			s.stamp, _ = r.Time(spec.stampCol)
		}
		kept = append(kept, s)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.hits != b.hits {
			return a.hits > b.hits
		}
		if a.recency != b.recency {
			return a.recency > b.recency
		}
		return a.stamp.After(b.stamp)
	})
	out := make([]store.Row, len(kept))
	for i, s := range kept {
		out[i] = s.row
	}
	return out
}

func (f *relevance) inRange(lo, hi int) bool {
	if f.to != nil && lo > *f.to {
		return false
	}
	if f.from != nil && hi < *f.from {
		return false
	}
	return true
}

// rowYears returns the year span a row covers. Rows without any year
// report false and are never excluded by the year filter.
func rowYears(spec tableSpec, r store.Row) (lo, hi int, ok bool) {
	switch {
	case spec.yearCol != "":
		y, ok := r.Int(spec.yearCol)
		return y, y, ok
	case spec.dateCol != "":
		if t, ok := r.Time(spec.dateCol); ok {
			return t.Year(), t.Year(), true
		}
		if s := r.String(spec.dateCol); len(s) >= 4 {
			if n, err := strconv.Atoi(yearRe.FindString(s)); err == nil {
				return n, n, true
			}
		}
	case spec.firstCol != "":
		first, okF := r.Int(spec.firstCol)
		last, okL := r.Int(spec.lastCol)
		switch {
		case okF && okL:
			return first, last, true
		case okF:
			return first, first, true
		case okL:
			return last, last, true
		}
	}
	return 0, 0, false
}

func matchAny(r store.Row, cols, filters []string) bool {
	for _, c := range cols {
		v := strings.ToLower(r.String(c))
		if v == "" {
			continue
		}
		for _, f := range filters {
			if strings.Contains(v, f) {
				return true
			}
		}
	}
	return false
}

func rowText(r store.Row, cols []string) string {
	var sb strings.Builder
	for _, c := range cols {
		if s := r.String(c); s != "" {
			sb.WriteString(strings.ToLower(s))
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

func countHits(text string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			n++
		}
	}
	return n
}

func topNames(matched map[string][]store.Row, col func(tableSpec) string) []NameCount {
	counts := map[string]int{}
	for table, rows := range matched {
		c := col(tableSpecs[table])
		if c == "" {
			continue
		}
		for _, r := range rows {
			if v := r.String(c); v != "" {
				counts[v]++
			}
		}
	}
	out := make([]NameCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, NameCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

func yearTotals(matched map[string][]store.Row) map[string][]YearValue {
	out := map[string][]YearValue{}
	for table, rows := range matched {
		spec := tableSpecs[table]
		for _, s := range spec.sums {
			byYear := map[int]float64{}
			for _, r := range rows {
				y, okY := r.Int(spec.yearCol)
				v, okV := r.Float(s.column)
				if okY && okV {
					byYear[y] += v
				}
			}
			if len(byYear) == 0 {
				continue
			}
			series := make([]YearValue, 0, len(byYear))
			for y, v := range byYear {
				series = append(series, YearValue{Year: y, Value: v})
			}
			sort.Slice(series, func(i, j int) bool { return series[i].Year < series[j].Year })
			out[s.key] = series
		}
	}
	return out
}

func contractTotals(rows []store.Row) *ContractTotals {
	if len(rows) == 0 {
		return nil
	}
	t := &ContractTotals{Count: len(rows), ByType: map[string]int{}}
	for _, r := range rows {
		if v, ok := r.Float("estimated_value_usd"); ok {
			t.WithValue++
			t.TotalValueUSD += v
		}
		typ := r.String("contract_type")
		if typ == "" {
			typ = models.ContractOther
		}
		t.ByType[typ]++
	}
	return t
}

func forecastSeries(rows []store.Row) []ForecastSeries {
	byMetric := map[string]*ForecastSeries{}
	var order []string
	for _, r := range rows {
		metric := r.String("metric")
		y, okY := r.Int("year")
		v, okV := r.Float("value")
		if metric == "" || !okY || !okV {
			continue
		}
		s, ok := byMetric[metric]
		if !ok {
			s = &ForecastSeries{Metric: metric}
			byMetric[metric] = s
			order = append(order, metric)
		}
		if u := r.String("unit"); u != "" {
			s.Unit = u
		}
		s.Points = append(s.Points, YearValue{Year: y, Value: v})
	}
	sort.Strings(order)
	out := make([]ForecastSeries, 0, len(order))
	for _, m := range order {
		s := byMetric[m]
		sort.Slice(s.Points, func(i, j int) bool { return s.Points[i].Year < s.Points[j].Year })
		if len(s.Points) > seriesPoints {
			s.Points = s.Points[len(s.Points)-seriesPoints:]
		}
		last := s.Points[len(s.Points)-1]
		s.LatestYear, s.LatestValue = last.Year, last.Value
		out = append(out, *s)
	}
	return out
}

// documentExcerpts keeps the ranked order of rows.
func documentExcerpts(rows []store.Row) []DocumentExcerpt {
	out := make([]DocumentExcerpt, 0, len(rows))
	for _, r := range rows {
		d := models.DocumentFromRow(r)
		ex := DocumentExcerpt{FileName: d.FileName, Excerpt: truncateRunes(d.AISummary, excerptRunes)}
		if !d.CreatedAt.IsZero() {
			ex.CreatedAt = d.CreatedAt.UTC().Format("2006-01-02")
		}
		out = append(out, ex)
	}
	return out
}
