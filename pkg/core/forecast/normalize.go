// Package forecast canonicalizes the free-text metric names and units found
// in market reports so that series from different reports line up.
package forecast

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeMetricKey lowercases text and collapses every run of
// non-alphanumerics to a single underscore.
func NormalizeMetricKey(text string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(text), "_"), "_")
}

type metricRule struct {
	slug string
	all  []*regexp.Regexp
	none []*regexp.Regexp
}

func (r metricRule) match(s string) bool {
	for _, re := range r.all {
		if !re.MatchString(s) {
			return false
		}
	}
	for _, re := range r.none {
		if re.MatchString(s) {
			return false
		}
	}
	return true
}

var (
	spendWord  = regexp.MustCompile(`subsea|capex|spend|expenditure|investment`)
	growthWord = regexp.MustCompile(`yoy|y_o_y|year_on_year|year_over_year|growth|change|pct|percent`)
)

// words matches any of the given tokens as whole underscore-separated words.
func words(tokens string) *regexp.Regexp {
	return regexp.MustCompile(`(^|_)(` + tokens + `)(_|$)`)
}

// regionRules run before the global rules so a regional figure is never
// booked as global spend.
var regionRules = []metricRule{
	{slug: "europe_subsea_spend_total_usd_bn", all: []*regexp.Regexp{words(`europe|european|north_sea|uk|norway`), spendWord}},
	{slug: "north_america_subsea_spend_total_usd_bn", all: []*regexp.Regexp{words(`north_america|north_american|gulf_of_mexico|gom|usa|us_gulf|canada`), spendWord}},
	{slug: "south_america_subsea_spend_total_usd_bn", all: []*regexp.Regexp{words(`south_america|south_american|latin_america|latam|brazil|guyana`), spendWord}},
	{slug: "africa_subsea_spend_total_usd_bn", all: []*regexp.Regexp{words(`africa|african|west_africa`), spendWord}},
	{slug: "asia_pacific_subsea_spend_total_usd_bn", all: []*regexp.Regexp{words(`asia|apac|asia_pacific|pacific|australia`), spendWord}},
	{slug: "middle_east_subsea_spend_total_usd_bn", all: []*regexp.Regexp{words(`middle_east|mena|caspian`), spendWord}},
}

var globalRules = []metricRule{
	{slug: "subsea_spend_yoy_pct", all: []*regexp.Regexp{spendWord, growthWord}},
	{slug: "subsea_spend_usd_bn", all: []*regexp.Regexp{regexp.MustCompile(`subsea`), regexp.MustCompile(`capex|spend|expenditure|investment|market`)}},
	{slug: "subsea_spend_usd_bn", all: []*regexp.Regexp{regexp.MustCompile(`^(total_)?(capex|spend)(_usd)?(_bn|_billion)?$`)}},
	{slug: "xmt_installations", all: []*regexp.Regexp{regexp.MustCompile(`xmt|x_mas_tree|christmas_tree|subsea_tree|tree_install`)}},
	{slug: "surf_km", all: []*regexp.Regexp{regexp.MustCompile(`surf|umbilical|riser|flowline`)}},
	{slug: "brent_usd_bbl", all: []*regexp.Regexp{regexp.MustCompile(`brent|oil_price`)}},
	{slug: "pipeline_km", all: []*regexp.Regexp{regexp.MustCompile(`pipeline|pipelay`)}, none: []*regexp.Regexp{regexp.MustCompile(`phase`)}},
}

// NormalizeForecastMetric maps a metric name to its canonical slug, or to
// its plain slug when no family matches.
func NormalizeForecastMetric(text string) string {
	key := NormalizeMetricKey(text)
	if key == "" {
		return ""
	}
	for _, r := range regionRules {
		if r.match(key) {
			return r.slug
		}
	}
	for _, r := range globalRules {
		if r.match(key) {
			return r.slug
		}
	}
	return key
}

// Canonical units.
const (
	UnitUSDBn  = "USD bn"
	UnitPct    = "%"
	UnitKM     = "km"
	UnitUnits  = "units"
	UnitUSDBbl = "USD/bbl"
)

var unitRules = []struct {
	unit string
	re   *regexp.Regexp
}{
	{UnitUSDBbl, regexp.MustCompile(`(?i)(/|per\s*)(bbl|barrel)`)},
	{UnitUSDBn, regexp.MustCompile(`(?i)(usd|us\$|\$).*(bn|billion|b\b)|^\s*(bn|billion)\s*$|(bn|billion)\s*(usd|\$)`)},
	{UnitPct, regexp.MustCompile(`(?i)%|percent|pct`)},
	{UnitKM, regexp.MustCompile(`(?i)^\s*(km|kilomet(er|re)s?)\s*$`)},
	{UnitUnits, regexp.MustCompile(`(?i)^\s*(#|no\.?|number|count|units?|trees|xmts?)\s*$`)},
}

// NormalizeForecastUnit maps unit text to the fixed vocabulary, passing
// unrecognized units through trimmed.
func NormalizeForecastUnit(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}
	for _, r := range unitRules {
		if r.re.MatchString(t) {
			return r.unit
		}
	}
	return t
}
