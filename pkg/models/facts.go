package models

import "subsea_intel/pkg/core/store"

// ProjectAttrs are the identity and categorical columns shared by every raw
// fact table and by the project roll-up.
type ProjectAttrs struct {
	DevelopmentProject string  `json:"development_project"`
	Asset              *string `json:"asset,omitempty"`
	Country            *string `json:"country,omitempty"`
	Continent          *string `json:"continent,omitempty"`
	Operator           *string `json:"operator,omitempty"`
	SurfContractor     *string `json:"surf_contractor,omitempty"`
	FacilityCategory   *string `json:"facility_category,omitempty"`
	FieldType          *string `json:"field_type,omitempty"`
	WaterDepthCategory *string `json:"water_depth_category,omitempty"`
	FieldSizeCategory  *string `json:"field_size_category,omitempty"`
}

func (a ProjectAttrs) fill(r store.Row) {
	r["development_project"] = a.DevelopmentProject
	r["asset"] = keyStr(a.Asset)
	r["country"] = keyStr(a.Country)
	r["continent"] = store.Val(a.Continent)
	r["operator"] = store.Val(a.Operator)
	r["surf_contractor"] = store.Val(a.SurfContractor)
	r["facility_category"] = store.Val(a.FacilityCategory)
	r["field_type"] = store.Val(a.FieldType)
	r["water_depth_category"] = store.Val(a.WaterDepthCategory)
	r["field_size_category"] = store.Val(a.FieldSizeCategory)
}

// keyStr stores absent key parts as "" so unique constraints treat them as
// equal; Postgres never matches NULL against NULL on conflict.
func keyStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func projectAttrsFromRow(r store.Row) ProjectAttrs {
	return ProjectAttrs{
		DevelopmentProject: r.String("development_project"),
		Asset:              r.StringPtr("asset"),
		Country:            r.StringPtr("country"),
		Continent:          r.StringPtr("continent"),
		Operator:           r.StringPtr("operator"),
		SurfContractor:     r.StringPtr("surf_contractor"),
		FacilityCategory:   r.StringPtr("facility_category"),
		FieldType:          r.StringPtr("field_type"),
		WaterDepthCategory: r.StringPtr("water_depth_category"),
		FieldSizeCategory:  r.StringPtr("field_size_category"),
	}
}

// Fact is implemented by the four raw spreadsheet record types.
type Fact interface {
	Table() string
	Attrs() ProjectAttrs
	FactYear() *int
	ToRow(batchID string) store.Row
}

// XMTRow is one line of an XMT (christmas tree) installation sheet.
type XMTRow struct {
	ProjectAttrs
	Year         *int     `json:"year,omitempty"`
	XMTPurpose   *string  `json:"xmt_purpose,omitempty"`
	State        *string  `json:"state,omitempty"`
	XMTInstalled *float64 `json:"xmts_installed,omitempty"`
}

func (x XMTRow) Table() string       { return TableXMT }
func (x XMTRow) Attrs() ProjectAttrs { return x.ProjectAttrs }
func (x XMTRow) FactYear() *int      { return x.Year }

func (x XMTRow) ToRow(batchID string) store.Row {
	r := store.Row{}
	x.fill(r)
	r["year"] = store.Val(x.Year)
	r["xmt_purpose"] = keyStr(x.XMTPurpose)
	r["state"] = keyStr(x.State)
	r["xmts_installed"] = store.Val(x.XMTInstalled)
	if batchID != "" {
		r["batch_id"] = batchID
	}
	return r
}

// SURFRow is one line of a SURF (umbilicals, risers, flowlines) sheet.
type SURFRow struct {
	ProjectAttrs
	Year       *int     `json:"year,omitempty"`
	LineGroup  *string  `json:"line_group,omitempty"`
	DesignType *string  `json:"design_type,omitempty"`
	KMSurf     *float64 `json:"km_surf_lines,omitempty"`
}

func (s SURFRow) Table() string       { return TableSURF }
func (s SURFRow) Attrs() ProjectAttrs { return s.ProjectAttrs }
func (s SURFRow) FactYear() *int      { return s.Year }

func (s SURFRow) ToRow(batchID string) store.Row {
	r := store.Row{}
	s.fill(r)
	r["year"] = store.Val(s.Year)
	r["line_group"] = keyStr(s.LineGroup)
	r["design_type"] = store.Val(s.DesignType)
	r["km_surf_lines"] = store.Val(s.KMSurf)
	if batchID != "" {
		r["batch_id"] = batchID
	}
	return r
}

// SubseaUnitRow is one line of a subsea unit (manifolds, templates, pumps) sheet.
type SubseaUnitRow struct {
	ProjectAttrs
	Year         *int     `json:"year,omitempty"`
	UnitCategory *string  `json:"unit_category,omitempty"`
	UnitCount    *float64 `json:"unit_count,omitempty"`
}

func (s SubseaUnitRow) Table() string       { return TableSubseaUnits }
func (s SubseaUnitRow) Attrs() ProjectAttrs { return s.ProjectAttrs }
func (s SubseaUnitRow) FactYear() *int      { return s.Year }

func (s SubseaUnitRow) ToRow(batchID string) store.Row {
	r := store.Row{}
	s.fill(r)
	r["year"] = store.Val(s.Year)
	r["unit_category"] = keyStr(s.UnitCategory)
	r["unit_count"] = store.Val(s.UnitCount)
	if batchID != "" {
		r["batch_id"] = batchID
	}
	return r
}

// AwardRow is one line of an upcoming-awards sheet.
type AwardRow struct {
	ProjectAttrs
	Year          *int     `json:"year,omitempty"`
	XMTsAwarded   *float64 `json:"xmts_awarded,omitempty"`
	SurfKMAwarded *float64 `json:"surf_km_awarded,omitempty"`
	PipelinePhase *string  `json:"pipeline_phase,omitempty"`
}

func (a AwardRow) Table() string       { return TableAwards }
func (a AwardRow) Attrs() ProjectAttrs { return a.ProjectAttrs }
func (a AwardRow) FactYear() *int      { return a.Year }

func (a AwardRow) ToRow(batchID string) store.Row {
	r := store.Row{}
	a.fill(r)
	r["year"] = store.Val(a.Year)
	r["xmts_awarded"] = store.Val(a.XMTsAwarded)
	r["surf_km_awarded"] = store.Val(a.SurfKMAwarded)
	r["pipeline_phase"] = store.Val(a.PipelinePhase)
	if batchID != "" {
		r["batch_id"] = batchID
	}
	return r
}

// ProjectRecord is the roll-up of every fact row sharing
// (development_project, asset, country).
type ProjectRecord struct {
	ProjectAttrs
	XMTCount        float64 `json:"xmt_count"`
	SurfKM          float64 `json:"surf_km"`
	SubseaUnitCount float64 `json:"subsea_unit_count"`
	FirstYear       *int    `json:"first_year,omitempty"`
	LastYear        *int    `json:"last_year,omitempty"`
}

func (p ProjectRecord) ToRow() store.Row {
	r := store.Row{}
	p.fill(r)
	r["xmt_count"] = p.XMTCount
	r["surf_km"] = p.SurfKM
	r["subsea_unit_count"] = p.SubseaUnitCount
	r["first_year"] = store.Val(p.FirstYear)
	r["last_year"] = store.Val(p.LastYear)
	return r
}

func ProjectFromRow(r store.Row) ProjectRecord {
	p := ProjectRecord{ProjectAttrs: projectAttrsFromRow(r)}
	p.XMTCount, _ = r.Float("xmt_count")
	p.SurfKM, _ = r.Float("surf_km")
	p.SubseaUnitCount, _ = r.Float("subsea_unit_count")
	p.FirstYear = r.IntPtr("first_year")
	p.LastYear = r.IntPtr("last_year")
	return p
}
