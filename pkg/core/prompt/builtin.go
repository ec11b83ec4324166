package prompt

// Built-in prompt IDs.
const (
	ExtractionContracts    = "extraction.contracts"
	ExtractionMarketReport = "extraction.market_report"
	AgentPlan              = "agent.plan"
	AgentAnswer            = "agent.answer"
)

func builtins() []*PromptTemplate {
	return []*PromptTemplate{
		{
			ID:       ExtractionContracts,
			Name:     "Contract award table extraction",
			Category: "extraction",
			Version:  "1",
			SystemPrompt: `You are a data extraction engine for the subsea oil and gas industry.
You read contract award tables and announcements in PDF documents and return structured data.
Only report contracts that are explicitly present in the document. Never invent suppliers, operators or values.
Reply with a single JSON object and nothing else.`,
			UserPromptTmpl: `Document: {{.FileName}}

Extract every contract award in the attached PDF. Return exactly this JSON shape:
{
  "contracts": [
    {
      "date": "YYYY-MM-DD, YYYY-MM or null",
      "supplier": "awarded contractor",
      "operator": "client / field operator",
      "project": "field or development name",
      "value": "value exactly as written, e.g. USD 250 million, or null",
      "scope": "short scope of work",
      "region": "region or basin",
      "country": "country or null",
      "segment": "EPCI, SPS, SURF, subsea services or other segment label",
      "duration": "contract duration as written or null"
    }
  ]
}
If the document holds no contract awards return {"contracts": []}.`,
			Variables: []PromptVariable{{Name: "FileName", Type: "string", Required: true}},
		},
		{
			ID:       ExtractionMarketReport,
			Name:     "Market report analysis",
			Category: "extraction",
			Version:  "1",
			SystemPrompt: `You are an analyst for the subsea oil and gas market.
You read market reports and summarize them for a sales team, and you extract every numeric forecast the report states.
Use only figures printed in the document. Reply with a single JSON object and nothing else.`,
			UserPromptTmpl: `Document: {{.FileName}}

Analyse the attached market report and return exactly this JSON shape:
{
  "report_period": "period covered, e.g. Q3 2025",
  "report_title": "title of the report",
  "summary": "executive summary in 4-8 sentences",
  "highlights": ["short bullet", "..."],
  "key_figures": {"name of figure": "value with unit"},
  "forecasts": [
    {"year": 2026, "metric": "metric name as written", "value": 12.5, "unit": "unit as written"}
  ]
}
Forecast values must be plain numbers. Include regional splits (Europe, North America, South America, Africa, Asia Pacific, Middle East) when the report gives them.`,
			Variables: []PromptVariable{{Name: "FileName", Type: "string", Required: true}},
		},
		{
			ID:       AgentPlan,
			Name:     "Agent request planner",
			Category: "agent",
			Version:  "1",
			SystemPrompt: `You plan database lookups for a subsea sales-intelligence assistant.
Given a conversation, decide what the user wants and which data is needed. Reply with one JSON object only.`,
			UserPromptTmpl: `Today is {{.Today}}.
Available tables: {{.Tables}}.

Conversation (oldest first):
{{.Conversation}}

Return exactly this JSON shape:
{
  "intent": "question" or "report",
  "report_scope": "one line describing the report, empty for questions",
  "language": "en" or "no",
  "project_keywords": ["project, field or asset names"],
  "countries": ["country names"],
  "operators": ["operator companies"],
  "from_year": 2024 or null,
  "to_year": 2026 or null,
  "include_tables": ["table names from the list above"],
  "focus_points": ["topics the answer must cover"]
}
Use "report" only when the user asks for a report, PDF or document.`,
			Variables: []PromptVariable{
				{Name: "Today", Type: "string", Required: true},
				{Name: "Tables", Type: "string", Required: true},
				{Name: "Conversation", Type: "string", Required: true},
			},
		},
		{
			ID:       AgentAnswer,
			Name:     "Agent answer and report writer",
			Category: "agent",
			Version:  "1",
			SystemPrompt: `You are a sales-intelligence assistant for a subsea equipment supplier.
Use ONLY the data in the supplied context. If the context does not contain the answer, say so plainly.
Never invent projects, contracts, values or forecasts. Answer in the requested language.
Reply with one JSON object only.`,
			UserPromptTmpl: `Language: {{.Language}}
Intent: {{.Intent}}

Plan:
{{.Plan}}

Context data:
{{.Context}}

Conversation (oldest first):
{{.Conversation}}

Return exactly this JSON shape:
{
  "answer": "chat answer in plain text",
  "report_title": "title when intent is report, else empty",
  "report_summary": "two sentence summary when intent is report, else empty",
  "report_markdown": "full report in Markdown when intent is report, else empty. Use ## and ### headings, bullet lists and pipe tables",
  "follow_ups": ["up to three short follow-up questions"]
}`,
			Variables: []PromptVariable{
				{Name: "Language", Type: "string", Required: true},
				{Name: "Intent", Type: "string", Required: true},
				{Name: "Plan", Type: "object", Required: true},
				{Name: "Context", Type: "object", Required: true},
				{Name: "Conversation", Type: "string", Required: true},
			},
		},
	}
}
