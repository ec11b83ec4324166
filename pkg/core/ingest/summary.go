package ingest

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"subsea_intel/pkg/core/extract"
	"subsea_intel/pkg/core/forecast"
	"subsea_intel/pkg/models"
)

// BuildReportSummary renders the stored ai_summary for a market report. The
// shape is read back by the dashboard: a "##" heading, an optional
// "### Highlights" list, the executive summary, and a fenced json block of
// key figures.
func BuildReportSummary(rep extract.MarketReport, fileName string) string {
	heading := rep.ReportPeriod
	if heading == "" {
		heading = rep.ReportTitle
	}
	if heading == "" {
		heading = strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	}

	var sb strings.Builder
	sb.WriteString("## " + heading + "\n\n")

	if len(rep.Highlights) > 0 {
		sb.WriteString("### Highlights\n\n")
		for _, h := range rep.Highlights {
			sb.WriteString("- " + h + "\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("### Executive summary\n\n")
	if rep.Summary != "" {
		sb.WriteString(rep.Summary + "\n\n")
	} else {
		sb.WriteString("No summary was extracted from this report.\n\n")
	}

	figures := rep.KeyFigures
	if figures == nil {
		figures = map[string]interface{}{}
	}
	b, err := json.MarshalIndent(figures, "", "  ")
	if err != nil {
		b = []byte("{}")
	}
	sb.WriteString("### Key figures\n\n```json\n")
	sb.Write(b)
	sb.WriteString("\n```\n")
	return sb.String()
}

// DedupeForecasts normalizes metric names and units and keeps one record per
// (year, metric). A later point overwrites an earlier one; output order is
// that of first appearance.
func DedupeForecasts(points []extract.ForecastPoint, source string) []models.ForecastRecord {
	type key struct {
		year   int
		metric string
	}
	index := map[key]int{}
	var out []models.ForecastRecord
	for _, p := range points {
		metric := forecast.NormalizeForecastMetric(p.Metric)
		if metric == "" {
			continue
		}
		rec := models.ForecastRecord{Year: p.Year, Metric: metric, Value: p.Value}
		if u := forecast.NormalizeForecastUnit(p.Unit); u != "" {
			rec.Unit = &u
		}
		if source != "" {
			s := source
			rec.Source = &s
		}
		k := key{p.Year, metric}
		if i, ok := index[k]; ok {
			out[i] = rec
			continue
		}
		index[k] = len(out)
		out = append(out, rec)
	}
	return out
}
