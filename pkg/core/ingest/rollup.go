package ingest

import (
	"fmt"
	"strings"

	"subsea_intel/pkg/core/forecast"
	"subsea_intel/pkg/core/schema"
	"subsea_intel/pkg/models"
)

// SourceAwards tags contracts synthesized from upcoming-award rows.
const SourceAwards = "awards_import"

func projectKey(a models.ProjectAttrs) string {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return strings.TrimSpace(*p)
	}
	return a.DevelopmentProject + "||" + deref(a.Asset) + "||" + deref(a.Country)
}

// RollupProjects folds every mapped fact row into one ProjectRecord per
// (development_project, asset, country). Categorical fields keep the first
// non-null value seen, counts sum, and first/last year track the year range.
// Rows are visited XMT, SURF, subsea units, then awards.
func RollupProjects(res schema.Result) []models.ProjectRecord {
	index := map[string]int{}
	var out []models.ProjectRecord

	visit := func(f models.Fact) *models.ProjectRecord {
		a := f.Attrs()
		k := projectKey(a)
		i, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, models.ProjectRecord{ProjectAttrs: a})
			i = len(out) - 1
		} else {
			fillAttrs(&out[i].ProjectAttrs, a)
		}
		p := &out[i]
		if y := f.FactYear(); y != nil {
			if p.FirstYear == nil || *y < *p.FirstYear {
				v := *y
				p.FirstYear = &v
			}
			if p.LastYear == nil || *y > *p.LastYear {
				v := *y
				p.LastYear = &v
			}
		}
		return p
	}

	for _, x := range res.XMT {
		p := visit(x)
		if x.XMTInstalled != nil {
			p.XMTCount += *x.XMTInstalled
		}
	}
	for _, s := range res.SURF {
		p := visit(s)
		if s.KMSurf != nil {
			p.SurfKM += *s.KMSurf
		}
	}
	for _, u := range res.Subsea {
		p := visit(u)
		if u.UnitCount != nil {
			p.SubseaUnitCount += *u.UnitCount
		}
	}
	for _, a := range res.Awards {
		visit(a)
	}
	return out
}

func fillAttrs(dst *models.ProjectAttrs, src models.ProjectAttrs) {
	for _, f := range []struct{ d, s **string }{
		{&dst.Continent, &src.Continent},
		{&dst.Operator, &src.Operator},
		{&dst.SurfContractor, &src.SurfContractor},
		{&dst.FacilityCategory, &src.FacilityCategory},
		{&dst.FieldType, &src.FieldType},
		{&dst.WaterDepthCategory, &src.WaterDepthCategory},
		{&dst.FieldSizeCategory, &src.FieldSizeCategory},
	} {
		if *f.d == nil && *f.s != nil {
			*f.d = *f.s
		}
	}
}

// AwardExternalID is the deterministic contract id for an award row.
func AwardExternalID(a models.AwardRow) string {
	year := "na"
	if a.Year != nil {
		year = fmt.Sprint(*a.Year)
	}
	asset := ""
	if a.Asset != nil {
		asset = *a.Asset
	}
	return "award-" + year + "-" + forecast.NormalizeMetricKey(a.DevelopmentProject) + "-" + forecast.NormalizeMetricKey(asset)
}

// ContractsFromAwards synthesizes one contract per award row.
func ContractsFromAwards(awards []models.AwardRow, batchID *string) []models.ContractRecord {
	out := make([]models.ContractRecord, 0, len(awards))
	for _, a := range awards {
		project := a.DevelopmentProject
		if a.Asset != nil && *a.Asset != "" && !strings.EqualFold(*a.Asset, project) {
			project += " / " + *a.Asset
		}
		var date *string
		if a.Year != nil {
			d := fmt.Sprintf("%04d-01-01", *a.Year)
			date = &d
		}
		out = append(out, models.ContractRecord{
			ExternalID:    AwardExternalID(a),
			Date:          date,
			Supplier:      a.SurfContractor,
			Operator:      a.Operator,
			ProjectName:   &project,
			Description:   awardDescription(a),
			ContractType:  models.ContractSubsea,
			Region:        a.Continent,
			Country:       a.Country,
			Source:        SourceAwards,
			PipelinePhase: a.PipelinePhase,
			BatchID:       batchID,
		})
	}
	return out
}

func awardDescription(a models.AwardRow) *string {
	var parts []string
	if a.XMTsAwarded != nil && *a.XMTsAwarded > 0 {
		parts = append(parts, fmt.Sprintf("%g XMTs", *a.XMTsAwarded))
	}
	if a.SurfKMAwarded != nil && *a.SurfKMAwarded > 0 {
		parts = append(parts, fmt.Sprintf("%g km SURF", *a.SurfKMAwarded))
	}
	if len(parts) == 0 {
		return nil
	}
	s := "Upcoming award: " + strings.Join(parts, ", ")
	return &s
}
