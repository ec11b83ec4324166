// Package extract sends PDFs to a multimodal model and turns its replies into
// typed contract rows and market-report analyses.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"subsea_intel/pkg/core/agent"
	"subsea_intel/pkg/core/llm"
	"subsea_intel/pkg/core/prompt"
	"subsea_intel/pkg/core/store"
	"subsea_intel/pkg/core/utils"
	"subsea_intel/pkg/logger"
)

// MaxOutputTokens is the reply ceiling for extraction calls. Contract tables
// in long reports produce large replies.
const MaxOutputTokens = 32768

// FileRouter resolves the document-capable provider for an agent.
type FileRouter interface {
	GetFileProvider(agentType string) (llm.FileProvider, error)
}

var _ FileRouter = (*agent.Manager)(nil)

type Extractor struct {
	router  FileRouter
	prompts *prompt.Registry
	log     *logger.Logger
}

func NewExtractor(router FileRouter, prompts *prompt.Registry, log *logger.Logger) *Extractor {
	if prompts == nil {
		prompts = prompt.NewDefaultRegistry()
	}
	return &Extractor{router: router, prompts: prompts, log: logger.OrNop(log)}
}

// ExtractStructured sends the PDF inline with prompt and recovers a JSON
// object from the reply. A reply without usable JSON yields an empty map;
// only a missing provider or a failed call return an error.
func (e *Extractor) ExtractStructured(ctx context.Context, pdf []byte, fileName, instruction string) (map[string]interface{}, error) {
	return e.extract(ctx, pdf, fileName, "", instruction)
}

func (e *Extractor) extract(ctx context.Context, pdf []byte, fileName, system, instruction string) (map[string]interface{}, error) {
	reply, err := e.call(ctx, pdf, fileName, system, instruction)
	if err != nil {
		return nil, err
	}
	obj := utils.ParseJSONObject(reply)
	if len(obj) == 0 {
		e.log.Warn("model reply held no JSON object", "file", fileName, "reply_len", len(reply))
	}
	return obj, nil
}

func (e *Extractor) call(ctx context.Context, pdf []byte, fileName, system, instruction string) (string, error) {
	provider, err := e.router.GetFileProvider(agent.AgentExtractor)
	if err != nil {
		return "", err
	}
	if len(pdf) == 0 {
		return "", fmt.Errorf("empty document %s", fileName)
	}

	reply, err := provider.GenerateWithFile(ctx, instruction, system, llm.File{
		Name:     fileName,
		MIMEType: "application/pdf",
		Data:     pdf,
	}, map[string]interface{}{
		llm.OptTemperature:     0.0,
		llm.OptMaxOutputTokens: MaxOutputTokens,
		llm.OptJSON:            true,
	})
	if err != nil {
		return "", fmt.Errorf("extraction call for %s: %w", fileName, err)
	}
	return reply, nil
}

// ContractRow is one award as read from a document, values kept as text.
type ContractRow struct {
	Date     string `json:"date"`
	Supplier string `json:"supplier"`
	Operator string `json:"operator"`
	Project  string `json:"project"`
	Value    string `json:"value"`
	Scope    string `json:"scope"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Segment  string `json:"segment"`
	Duration string `json:"duration"`
}

// ExtractContracts runs the contract-table prompt and decodes its rows.
func (e *Extractor) ExtractContracts(ctx context.Context, pdf []byte, fileName string) ([]ContractRow, error) {
	system, user, err := e.prompts.Render(prompt.ExtractionContracts, prompt.Vars{"FileName": fileName})
	if err != nil {
		return nil, err
	}
	reply, err := e.call(ctx, pdf, fileName, system, user)
	if err != nil {
		return nil, err
	}
	rows := DecodeContractReply(reply)
	if len(rows) == 0 {
		e.log.Warn("no contract rows in model reply", "file", fileName, "reply_len", len(reply))
	}
	e.log.Info("contracts extracted", "file", fileName, "rows", len(rows))
	return rows, nil
}

var contractKeys = []string{"contracts", "awards", "rows", "data"}

// DecodeContractReply reads contract rows from raw model text. The reply may
// be an object wrapping the rows, a bare array or a single row object.
func DecodeContractReply(reply string) []ContractRow {
	if strings.HasPrefix(utils.StripCodeFence(reply), "[") {
		return decodeContractItems(utils.ParseJSONArray(reply))
	}
	obj := utils.ParseJSONObject(reply)
	if items, ok := contractItems(obj); ok {
		return decodeContractItems(items)
	}
	if arr := utils.ParseJSONArray(reply); len(arr) > 0 {
		return decodeContractItems(arr)
	}
	if len(obj) == 0 {
		return nil
	}
	return decodeContractItems([]interface{}{obj})
}

// DecodeContracts reads the contract array from a decoded extraction reply.
// Rows naming neither supplier, operator nor project are dropped.
func DecodeContracts(obj map[string]interface{}) []ContractRow {
	items, _ := contractItems(obj)
	return decodeContractItems(items)
}

func contractItems(obj map[string]interface{}) ([]interface{}, bool) {
	for _, key := range contractKeys {
		if arr, ok := obj[key].([]interface{}); ok {
			return arr, true
		}
	}
	return nil, false
}

func decodeContractItems(items []interface{}) []ContractRow {
	var out []ContractRow
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		r := store.Row(m)
		row := ContractRow{
			Date:     first(r, "date", "award_date"),
			Supplier: first(r, "supplier", "contractor"),
			Operator: first(r, "operator", "client"),
			Project:  first(r, "project", "project_name", "field"),
			Value:    first(r, "value", "contract_value", "estimated_value"),
			Scope:    first(r, "scope", "description"),
			Region:   first(r, "region", "basin"),
			Country:  first(r, "country"),
			Segment:  first(r, "segment", "contract_type", "type"),
			Duration: first(r, "duration"),
		}
		if row.Supplier == "" && row.Operator == "" && row.Project == "" {
			continue
		}
		out = append(out, row)
	}
	return out
}

// MarketReport is the analysis of one market-report PDF.
type MarketReport struct {
	ReportPeriod string                 `json:"report_period"`
	ReportTitle  string                 `json:"report_title"`
	Summary      string                 `json:"summary"`
	Highlights   []string               `json:"highlights"`
	KeyFigures   map[string]interface{} `json:"key_figures"`
	Forecasts    []ForecastPoint        `json:"forecasts"`
}

// ForecastPoint is a raw forecast as printed in a report, before metric
// normalization.
type ForecastPoint struct {
	Year   int     `json:"year"`
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
}

// ExtractMarketReport runs the market-report prompt and decodes the result.
func (e *Extractor) ExtractMarketReport(ctx context.Context, pdf []byte, fileName string) (MarketReport, error) {
	system, user, err := e.prompts.Render(prompt.ExtractionMarketReport, prompt.Vars{"FileName": fileName})
	if err != nil {
		return MarketReport{}, err
	}
	obj, err := e.extract(ctx, pdf, fileName, system, user)
	if err != nil {
		return MarketReport{}, err
	}
	rep := DecodeMarketReport(obj)
	e.log.Info("market report extracted", "file", fileName, "highlights", len(rep.Highlights), "forecasts", len(rep.Forecasts))
	return rep, nil
}

var yearRe = regexp.MustCompile(`\b(?:19|20)\d{2}`)

// DecodeMarketReport reads an analysis reply. Forecast entries without a
// year, metric or numeric value are skipped.
func DecodeMarketReport(obj map[string]interface{}) MarketReport {
	r := store.Row(obj)
	rep := MarketReport{
		ReportPeriod: r.String("report_period"),
		ReportTitle:  r.String("report_title"),
		Summary:      r.String("summary"),
		KeyFigures:   map[string]interface{}{},
	}

	switch h := obj["highlights"].(type) {
	case []interface{}:
		for _, v := range h {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" && v != nil {
				rep.Highlights = append(rep.Highlights, s)
			}
		}
	case string:
		for _, line := range strings.Split(h, "\n") {
			if s := strings.TrimSpace(strings.TrimLeft(line, "-*• ")); s != "" {
				rep.Highlights = append(rep.Highlights, s)
			}
		}
	}

	if kf, ok := obj["key_figures"].(map[string]interface{}); ok {
		rep.KeyFigures = kf
	}

	if arr, ok := obj["forecasts"].([]interface{}); ok {
		for _, it := range arr {
			m, ok := it.(map[string]interface{})
			if !ok {
				continue
			}
			fr := store.Row(m)
			year, ok := parseYear(fr)
			if !ok {
				continue
			}
			value, ok := fr.Float("value")
			if !ok {
				value, ok = parseLooseNumber(fr.String("value"))
			}
			metric := fr.String("metric")
			if !ok || metric == "" {
				continue
			}
			rep.Forecasts = append(rep.Forecasts, ForecastPoint{
				Year:   year,
				Metric: metric,
				Value:  value,
				Unit:   fr.String("unit"),
			})
		}
	}
	return rep
}

func parseYear(r store.Row) (int, bool) {
	if y, ok := r.Int("year"); ok && y >= 1900 && y <= 2100 {
		return y, true
	}
	if m := yearRe.FindString(r.String("year")); m != "" {
		y, err := strconv.Atoi(m)
		return y, err == nil
	}
	return 0, false
}

var looseNumber = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// parseLooseNumber reads the first number in text such as "12.5 bn" or "~3,400".
func parseLooseNumber(text string) (float64, bool) {
	m := looseNumber.FindString(strings.ReplaceAll(text, ",", ""))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	return f, err == nil
}

func first(r store.Row, keys ...string) string {
	for _, k := range keys {
		if s := r.String(k); s != "" && !strings.EqualFold(s, "null") && s != "-" {
			return s
		}
	}
	return ""
}
