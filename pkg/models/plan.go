package models

// Plan intents.
const (
	IntentQuestion = "question"
	IntentReport   = "report"
)

// AgentPlan is the per-turn query plan. It is never persisted.
type AgentPlan struct {
	Intent          string   `json:"intent"`
	ReportScope     string   `json:"report_scope"`
	Language        string   `json:"language"` // "en" or "no"
	ProjectKeywords []string `json:"project_keywords"`
	Countries       []string `json:"countries"`
	Operators       []string `json:"operators"`
	FromYear        *int     `json:"from_year,omitempty"`
	ToYear          *int     `json:"to_year,omitempty"`
	IncludeTables   []string `json:"include_tables"`
	FocusPoints     []string `json:"focus_points"`
}

// Includes reports whether a table is requested. An empty list includes all.
func (p AgentPlan) Includes(table string) bool {
	if len(p.IncludeTables) == 0 {
		return true
	}
	for _, t := range p.IncludeTables {
		if t == table {
			return true
		}
	}
	return false
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
