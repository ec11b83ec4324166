package llm

import (
	"context"
	"fmt"
	"strings"

	legacy "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// LegacyGeminiProvider talks to Gemini through the older generative-ai-go
// client. It is kept as a routable provider for deployments pinned to it.
type LegacyGeminiProvider struct {
	APIKey string
	Model  string
}

var _ FileProvider = (*LegacyGeminiProvider)(nil)

func (p *LegacyGeminiProvider) Name() string { return "gemini_legacy" }

func (p *LegacyGeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	return p.generate(ctx, systemPrompt, options, legacy.Text(prompt))
}

func (p *LegacyGeminiProvider) GenerateWithFile(ctx context.Context, prompt string, systemPrompt string, file File, options map[string]interface{}) (string, error) {
	mime := file.MIMEType
	if mime == "" {
		mime = "application/pdf"
	}
	return p.generate(ctx, systemPrompt, options, legacy.Blob{MIMEType: mime, Data: file.Data}, legacy.Text(prompt))
}

func (p *LegacyGeminiProvider) generate(ctx context.Context, systemPrompt string, options map[string]interface{}, parts ...legacy.Part) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("gemini_legacy: %w (GEMINI_API_KEY)", ErrNoCredentials)
	}
	client, err := legacy.NewClient(ctx, option.WithAPIKey(p.APIKey))
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	name := p.Model
	if name == "" {
		name = "gemini-1.5-pro"
	}
	model := client.GenerativeModel(optString(options, OptModel, name))
	model.SetTemperature(float32(optFloat(options, OptTemperature, 0.2)))
	if n := optInt(options, OptMaxOutputTokens, 0); n > 0 {
		model.SetMaxOutputTokens(int32(n))
	}
	if optBool(options, OptJSON) {
		model.ResponseMIMEType = "application/json"
	}
	if systemPrompt != "" {
		model.SystemInstruction = &legacy.Content{Parts: []legacy.Part{legacy.Text(systemPrompt)}}
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini_legacy generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(legacy.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
