// Package prompt holds the prompt library used for model calls. Built-in
// templates are registered at start-up and JSON files in a prompts
// directory can override them without a rebuild.
package prompt

// PromptTemplate is a reusable prompt with metadata.
type PromptTemplate struct {
	ID               string           `json:"id"` // e.g. "extraction.contracts"
	Name             string           `json:"name"`
	Category         string           `json:"category"` // extraction, agent
	Description      string           `json:"description"`
	SystemPrompt     string           `json:"system_prompt"`
	UserPromptTmpl   string           `json:"user_prompt_template"` // text/template source
	ResponseSchemaID string           `json:"response_schema_ref"`
	Variables        []PromptVariable `json:"variables"`
	Version          string           `json:"version"`
}

// PromptVariable documents one template variable.
type PromptVariable struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, int, array, object
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     string `json:"default"`
}

// ResponseSchema is the expected JSON shape of a reply, kept as raw JSON
// Schema text.
type ResponseSchema struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	JSONSchema  string `json:"json_schema"`
}

// Vars are the values substituted into a user prompt template.
type Vars map[string]interface{}
