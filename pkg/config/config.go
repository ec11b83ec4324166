// Package config loads process configuration from the environment (and an
// optional .env file) plus the per-agent model routing YAML.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"subsea_intel/pkg/core/agent"
)

const (
	StorageModeGCS    = "gcs"
	StorageModeMemory = "memory"
)

// Config is the flattened runtime configuration.
type Config struct {
	DatabaseURL string

	GeminiAPIKey string
	GeminiModel  string
	LLMProvider  string

	OpenAICompatBaseURL string
	OpenAICompatAPIKey  string
	OpenAICompatModel   string

	StorageMode  string
	ImportBucket string
	ReportBucket string

	SystemUserEmail string
	LogMode         string
	HTTPAddr        string
	ModelsConfig    string
	PromptsDir      string
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	// A missing .env is normal in deployed environments.
	_ = godotenv.Load()

	return Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         envOr("GEMINI_MODEL", "gemini-2.5-flash"),
		LLMProvider:         envOr("LLM_PROVIDER", "gemini"),
		OpenAICompatBaseURL: envOr("OPENAI_COMPAT_BASE_URL", "https://openrouter.ai/api/v1"),
		OpenAICompatAPIKey:  os.Getenv("OPENAI_COMPAT_API_KEY"),
		OpenAICompatModel:   envOr("OPENAI_COMPAT_MODEL", "google/gemini-2.5-flash"),
		StorageMode:         strings.ToLower(envOr("STORAGE_MODE", StorageModeGCS)),
		ImportBucket:        envOr("IMPORT_BUCKET", "imports"),
		ReportBucket:        envOr("REPORT_BUCKET", "ai-reports"),
		SystemUserEmail:     envOr("SYSTEM_USER_EMAIL", "system@subsea-intel.local"),
		LogMode:             envOr("LOG_MODE", "dev"),
		HTTPAddr:            envOr("HTTP_ADDR", ":8080"),
		ModelsConfig:        envOr("MODELS_CONFIG", "config/models.yaml"),
		PromptsDir:          os.Getenv("PROMPTS_DIR"),
	}
}

// Validate reports configuration that makes the process unusable.
func (c Config) Validate() error {
	switch c.StorageMode {
	case StorageModeGCS, StorageModeMemory:
	default:
		return fmt.Errorf("invalid STORAGE_MODE %q (want gcs or memory)", c.StorageMode)
	}
	if c.StorageMode == StorageModeGCS && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}
	return nil
}

// LoadAgentConfig decodes the model routing file. A missing file yields a
// config that routes every agent to the default provider.
func LoadAgentConfig(path, defaultProvider string) (agent.Config, error) {
	cfg := agent.Config{ActiveProvider: defaultProvider}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.ActiveProvider == "" {
		cfg.ActiveProvider = defaultProvider
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
