package llm

import (
	"context"
	"errors"
)

// ErrNoCredentials is returned when a provider has no API key configured.
var ErrNoCredentials = errors.New("llm credentials not configured")

// Option keys understood by every provider. Unknown keys are ignored.
const (
	OptModel           = "model"
	OptTemperature     = "temperature"       // float64
	OptMaxOutputTokens = "max_output_tokens" // int
	OptJSON            = "json"              // bool: ask for a JSON mime type when supported
)

// Provider is the interface for all LLM providers.
type Provider interface {
	Name() string
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// File is an inline attachment sent alongside the prompt.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// FileProvider is implemented by multimodal providers that accept inline
// documents (PDFs) next to the text instruction.
type FileProvider interface {
	Provider
	GenerateWithFile(ctx context.Context, prompt string, systemPrompt string, file File, options map[string]interface{}) (string, error)
}

func optString(options map[string]interface{}, key, fallback string) string {
	if v, ok := options[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func optFloat(options map[string]interface{}, key string, fallback float64) float64 {
	switch v := options[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return fallback
}

func optInt(options map[string]interface{}, key string, fallback int) int {
	switch v := options[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func optBool(options map[string]interface{}, key string) bool {
	v, _ := options[key].(bool)
	return v
}
