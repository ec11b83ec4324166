package schema

import (
	"subsea_intel/pkg/models"
)

// Sheet is one worksheet as read from a workbook: header names plus rows
// keyed by header.
type Sheet struct {
	Name    string
	Columns []string
	Rows    []map[string]interface{}
}

// Result holds the typed rows mapped from one or more sheets.
type Result struct {
	XMT     []models.XMTRow
	SURF    []models.SURFRow
	Subsea  []models.SubseaUnitRow
	Awards  []models.AwardRow
	Dropped int
}

// Total counts every mapped row.
func (r *Result) Total() int {
	return len(r.XMT) + len(r.SURF) + len(r.Subsea) + len(r.Awards)
}

// Append merges another result into r.
func (r *Result) Append(o Result) {
	r.XMT = append(r.XMT, o.XMT...)
	r.SURF = append(r.SURF, o.SURF...)
	r.Subsea = append(r.Subsea, o.Subsea...)
	r.Awards = append(r.Awards, o.Awards...)
	r.Dropped += o.Dropped
}

// columnSet resolves canonical fields to the sheet's actual headers once.
type columnSet map[string]string

func resolve(columns []string, fields map[string][]string) columnSet {
	cs := columnSet{}
	for field, patterns := range fields {
		if col, ok := FuzzyCol(columns, patterns...); ok {
			cs[field] = col
		}
	}
	return cs
}

func (cs columnSet) get(row map[string]interface{}, field string) interface{} {
	col, ok := cs[field]
	if !ok {
		return nil
	}
	return row[col]
}

var attrFields = map[string][]string{
	"development_project":  {"development project", "project name", "project"},
	"asset":                {"asset"},
	"country":              {"country"},
	"continent":            {"continent", "region"},
	"operator":             {"operator"},
	"surf_contractor":      {"surf contractor", "contractor"},
	"facility_category":    {"facility category", "facility"},
	"field_type":           {"field type"},
	"water_depth_category": {"water depth"},
	"field_size_category":  {"field size"},
	"year":                 {"year"},
}

var typeFields = map[SheetType]map[string][]string{
	SheetXMT: {
		"xmt_purpose":    {"xmt purpose", "purpose"},
		"state":          {"state", "status"},
		"xmts_installed": {"xmts (# installed)", "installed", "xmts"},
	},
	SheetSURF: {
		"line_group":    {"surf line group", "line group"},
		"design_type":   {"design"},
		"km_surf_lines": {"km surf lines", "surf km", "km"},
	},
	SheetSubsea: {
		"unit_category": {"unit category", "unit type", "subsea unit"},
		"unit_count":    {"units (#)", "# units", "unit count", "units", "count"},
	},
	SheetAwards: {
		"xmts_awarded":    {"xmts awarded"},
		"surf_km_awarded": {"km surf", "surf km"},
		"pipeline_phase":  {"phase", "stage"},
	},
}

func mergeFields(a, b map[string][]string) map[string][]string {
	out := make(map[string][]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func attrs(cs columnSet, row map[string]interface{}) (models.ProjectAttrs, bool) {
	project := Str(cs.get(row, "development_project"))
	if project == nil {
		return models.ProjectAttrs{}, false
	}
	return models.ProjectAttrs{
		DevelopmentProject: *project,
		Asset:              Str(cs.get(row, "asset")),
		Country:            Str(cs.get(row, "country")),
		Continent:          Str(cs.get(row, "continent")),
		Operator:           Str(cs.get(row, "operator")),
		SurfContractor:     Str(cs.get(row, "surf_contractor")),
		FacilityCategory:   Str(cs.get(row, "facility_category")),
		FieldType:          Str(cs.get(row, "field_type")),
		WaterDepthCategory: Str(cs.get(row, "water_depth_category")),
		FieldSizeCategory:  Str(cs.get(row, "field_size_category")),
	}, true
}

// MapSheet detects the sheet type and maps every row. Rows without a
// development project are dropped and counted. Unknown sheets map to an
// empty result with SheetNone.
func MapSheet(sheet Sheet) (SheetType, Result) {
	typ := DetectSheetType(sheet.Columns, sheet.Name)
	var res Result
	if typ == SheetNone {
		return typ, res
	}
	cs := resolve(sheet.Columns, mergeFields(attrFields, typeFields[typ]))

	for _, row := range sheet.Rows {
		a, ok := attrs(cs, row)
		if !ok {
			res.Dropped++
			continue
		}
		year := Int(cs.get(row, "year"))
		switch typ {
		case SheetXMT:
			res.XMT = append(res.XMT, models.XMTRow{
				ProjectAttrs: a,
				Year:         year,
				XMTPurpose:   Str(cs.get(row, "xmt_purpose")),
				State:        Str(cs.get(row, "state")),
				XMTInstalled: Num(cs.get(row, "xmts_installed")),
			})
		case SheetSURF:
			res.SURF = append(res.SURF, models.SURFRow{
				ProjectAttrs: a,
				Year:         year,
				LineGroup:    Str(cs.get(row, "line_group")),
				DesignType:   Str(cs.get(row, "design_type")),
				KMSurf:       Num(cs.get(row, "km_surf_lines")),
			})
		case SheetSubsea:
			res.Subsea = append(res.Subsea, models.SubseaUnitRow{
				ProjectAttrs: a,
				Year:         year,
				UnitCategory: Str(cs.get(row, "unit_category")),
				UnitCount:    Num(cs.get(row, "unit_count")),
			})
		case SheetAwards:
			res.Awards = append(res.Awards, models.AwardRow{
				ProjectAttrs:  a,
				Year:          year,
				XMTsAwarded:   Num(cs.get(row, "xmts_awarded")),
				SurfKMAwarded: Num(cs.get(row, "surf_km_awarded")),
				PipelinePhase: Str(cs.get(row, "pipeline_phase")),
			})
		}
	}
	return typ, res
}
