package models

import "subsea_intel/pkg/core/store"

// ForecastRecord is one point of a canonical metric time series.
type ForecastRecord struct {
	Year   int     `json:"year"`
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Unit   *string `json:"unit,omitempty"`
	Source *string `json:"source,omitempty"`
}

func (f ForecastRecord) ToRow() store.Row {
	return store.Row{
		"year":   f.Year,
		"metric": f.Metric,
		"value":  f.Value,
		"unit":   store.Val(f.Unit),
		"source": store.Val(f.Source),
	}
}

func ForecastFromRow(r store.Row) ForecastRecord {
	f := ForecastRecord{
		Metric: r.String("metric"),
		Unit:   r.StringPtr("unit"),
		Source: r.StringPtr("source"),
	}
	f.Year, _ = r.Int("year")
	f.Value, _ = r.Float("value")
	return f
}
