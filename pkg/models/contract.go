package models

import "subsea_intel/pkg/core/store"

// ContractRecord is a contract award, either synthesized from an awards
// sheet or extracted from a PDF.
type ContractRecord struct {
	ExternalID        string   `json:"external_id"`
	Date              *string  `json:"date,omitempty"` // YYYY-MM-DD
	Supplier          *string  `json:"supplier,omitempty"`
	Operator          *string  `json:"operator,omitempty"`
	ProjectName       *string  `json:"project_name,omitempty"`
	Description       *string  `json:"description,omitempty"`
	ContractType      string   `json:"contract_type"`
	Region            *string  `json:"region,omitempty"`
	Country           *string  `json:"country,omitempty"`
	Source            string   `json:"source"`
	PipelinePhase     *string  `json:"pipeline_phase,omitempty"`
	EstimatedValueUSD *float64 `json:"estimated_value_usd,omitempty"`
	BatchID           *string  `json:"batch_id,omitempty"`
}

func (c ContractRecord) ToRow() store.Row {
	return store.Row{
		"external_id":         c.ExternalID,
		"date":                store.Val(c.Date),
		"supplier":            store.Val(c.Supplier),
		"operator":            store.Val(c.Operator),
		"project_name":        store.Val(c.ProjectName),
		"description":         store.Val(c.Description),
		"contract_type":       c.ContractType,
		"region":              store.Val(c.Region),
		"country":             store.Val(c.Country),
		"source":              c.Source,
		"pipeline_phase":      store.Val(c.PipelinePhase),
		"estimated_value_usd": store.Val(c.EstimatedValueUSD),
		"batch_id":            store.Val(c.BatchID),
	}
}

func ContractFromRow(r store.Row) ContractRecord {
	c := ContractRecord{
		ExternalID:        r.String("external_id"),
		Supplier:          r.StringPtr("supplier"),
		Operator:          r.StringPtr("operator"),
		ProjectName:       r.StringPtr("project_name"),
		Description:       r.StringPtr("description"),
		ContractType:      r.String("contract_type"),
		Region:            r.StringPtr("region"),
		Country:           r.StringPtr("country"),
		Source:            r.String("source"),
		PipelinePhase:     r.StringPtr("pipeline_phase"),
		EstimatedValueUSD: r.FloatPtr("estimated_value_usd"),
		BatchID:           r.StringPtr("batch_id"),
	}
	if t, ok := r.Time("date"); ok {
		d := t.Format("2006-01-02")
		c.Date = &d
	}
	return c
}
