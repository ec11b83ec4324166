package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAICompatProvider calls any chat-completions endpoint that follows the
// OpenAI wire format (OpenRouter, DeepSeek, vLLM gateways). Documents are sent
// as base64 data URIs in a "file" content part.
type OpenAICompatProvider struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

var _ FileProvider = (*OpenAICompatProvider)(nil)

type compatRequest struct {
	Model          string          `json:"model"`
	Messages       []compatMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type compatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []contentPart
}

type contentPart struct {
	Type string    `json:"type"`
	Text string    `json:"text,omitempty"`
	File *filePart `json:"file,omitempty"`
}

type filePart struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type compatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *OpenAICompatProvider) Name() string { return "openai_compat" }

func (p *OpenAICompatProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	return p.do(ctx, systemPrompt, prompt, options)
}

func (p *OpenAICompatProvider) GenerateWithFile(ctx context.Context, prompt string, systemPrompt string, file File, options map[string]interface{}) (string, error) {
	mime := file.MIMEType
	if mime == "" {
		mime = "application/pdf"
	}
	parts := []contentPart{
		{Type: "file", File: &filePart{
			Filename: file.Name,
			FileData: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(file.Data),
		}},
		{Type: "text", Text: prompt},
	}
	return p.do(ctx, systemPrompt, parts, options)
}

func (p *OpenAICompatProvider) do(ctx context.Context, systemPrompt string, userContent interface{}, options map[string]interface{}) (string, error) {
	if p.APIKey == "" {
		return "", fmt.Errorf("openai_compat: %w (OPENAI_COMPAT_API_KEY)", ErrNoCredentials)
	}

	var messages []compatMessage
	if systemPrompt != "" {
		messages = append(messages, compatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, compatMessage{Role: "user", Content: userContent})

	reqBody := compatRequest{
		Model:       optString(options, OptModel, p.Model),
		Messages:    messages,
		Temperature: optFloat(options, OptTemperature, 0.2),
		MaxTokens:   optInt(options, OptMaxOutputTokens, 0),
	}
	if optBool(options, OptJSON) {
		reqBody.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	jsonBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("openai_compat marshal: %w", err)
	}

	url := strings.TrimRight(p.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("openai_compat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai_compat call: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("openai_compat read body: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai_compat: status=%d body=%s", res.StatusCode, truncate(string(body), 500))
	}

	var response compatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("openai_compat unmarshal: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openai_compat: no choices in response")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
