// Package models holds the typed records exchanged between the import
// pipeline, the agent and the row store. Each record converts to and from a
// store.Row at one place so business code never handles loose maps.
package models

// Table names.
const (
	TableXMT         = "xmt_data"
	TableSURF        = "surf_data"
	TableSubseaUnits = "subsea_unit_data"
	TableAwards      = "upcoming_awards"
	TableProjects    = "projects"
	TableContracts   = "contracts"
	TableForecasts   = "forecasts"
	TableDocuments   = "documents"
	TableBatches     = "import_batches"
	TableJobs        = "import_jobs"
	TableAiReports   = "ai_reports"
	TableProfiles    = "profiles"
)

// ConflictColumns is the identity key used when upserting each table.
var ConflictColumns = map[string][]string{
	TableXMT:         {"year", "development_project", "asset", "xmt_purpose", "state"},
	TableSURF:        {"year", "development_project", "asset", "line_group"},
	TableSubseaUnits: {"year", "development_project", "asset", "unit_category"},
	TableAwards:      {"year", "development_project", "asset"},
	TableProjects:    {"development_project", "asset", "country"},
	TableContracts:   {"external_id"},
	TableForecasts:   {"year", "metric"},
	TableDocuments:   {"id"},
	TableBatches:     {"id"},
	TableJobs:        {"id"},
	TableAiReports:   {"id"},
	TableProfiles:    {"email"},
}

// Contract types.
const (
	ContractEPCI   = "EPCI"
	ContractSPS    = "SPS"
	ContractSURF   = "SURF"
	ContractSubsea = "Subsea"
	ContractOther  = "Other"
)
