package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GeminiProvider implements FileProvider using the official GenAI SDK.
type GeminiProvider struct {
	APIKey string
	Model  string // e.g. "gemini-2.5-flash"

	mu     sync.Mutex
	client *genai.Client
}

// Ensure interface compliance
var _ FileProvider = (*GeminiProvider)(nil)

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	if p.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w (GEMINI_API_KEY)", ErrNoCredentials)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	p.client = client
	return client, nil
}

func (p *GeminiProvider) buildConfig(systemPrompt string, options map[string]interface{}) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(optFloat(options, OptTemperature, 0.2))),
	}
	if n := optInt(options, OptMaxOutputTokens, 0); n > 0 {
		config.MaxOutputTokens = int32(n)
	}
	if optBool(options, OptJSON) {
		config.ResponseMIMEType = "application/json"
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	return config
}

// GenerateResponse sends a text-only generateContent request.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}
	model := optString(options, OptModel, p.model())

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), p.buildConfig(systemPrompt, options))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	return strings.TrimSpace(result.Text()), nil
}

// GenerateWithFile sends the document as inline data followed by the
// instruction text in a single user turn.
func (p *GeminiProvider) GenerateWithFile(ctx context.Context, prompt string, systemPrompt string, file File, options map[string]interface{}) (string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}
	model := optString(options, OptModel, p.model())
	mime := file.MIMEType
	if mime == "" {
		mime = "application/pdf"
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(file.Data, mime),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	result, err := client.Models.GenerateContent(ctx, model, contents, p.buildConfig(systemPrompt, options))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed for %s: %w", file.Name, err)
	}
	return strings.TrimSpace(result.Text()), nil
}

func (p *GeminiProvider) model() string {
	if p.Model != "" {
		return p.Model
	}
	return "gemini-2.5-flash"
}
