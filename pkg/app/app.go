// Package app wires configuration into the store, object storage, model
// providers and the core services shared by the API server and the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"subsea_intel/pkg/config"
	"subsea_intel/pkg/core/agent"
	"subsea_intel/pkg/core/assistant"
	"subsea_intel/pkg/core/extract"
	"subsea_intel/pkg/core/ingest"
	"subsea_intel/pkg/core/llm"
	"subsea_intel/pkg/core/prompt"
	"subsea_intel/pkg/core/storage"
	"subsea_intel/pkg/core/store"
	"subsea_intel/pkg/logger"
)

type App struct {
	Config    config.Config
	Log       *logger.Logger
	Store     store.RowStore
	Files     storage.Storage
	Agents    *agent.Manager
	Prompts   *prompt.Registry
	Ingest    *ingest.Service
	Assistant *assistant.Service

	closers []func()
}

// New builds every dependency from cfg. Without DATABASE_URL in memory
// storage mode the row store is kept in process.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logger.OrNop(log)
	a := &App{Config: cfg, Log: log}

	if cfg.DatabaseURL != "" {
		pool, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		a.Store = store.NewPGStore(pool)
		log.Info("row store ready", "backend", "postgres", "max_conns", poolSize(pool))
	} else {
		a.Store = store.NewMemoryStore()
		log.Warn("DATABASE_URL not set, rows are kept in memory")
	}

	switch cfg.StorageMode {
	case config.StorageModeMemory:
		a.Files = storage.NewMemoryStorage()
	default:
		gcs, err := storage.NewGCSStorage(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("object storage: %w", err)
		}
		a.closers = append(a.closers, func() { _ = gcs.Close() })
		a.Files = gcs
	}

	agentCfg, err := config.LoadAgentConfig(cfg.ModelsConfig, cfg.LLMProvider)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Agents = agent.NewManager(agentCfg, Providers(cfg)...)
	log.Info("model routing ready", "active", a.Agents.GetActiveProvider(), "available", a.Agents.Available())

	a.Prompts = prompt.NewDefaultRegistry()
	if cfg.PromptsDir != "" {
		if err := prompt.LoadFromDirectory(a.Prompts, cfg.PromptsDir, log); err != nil {
			log.Warn("prompt overrides not loaded, using built-in prompts", "dir", cfg.PromptsDir, "error", err)
		}
	}

	a.Ingest = ingest.NewService(a.Store, a.Files, extract.NewExtractor(a.Agents, a.Prompts, log), log, ingest.Options{
		ImportBucket:    cfg.ImportBucket,
		SystemUserEmail: cfg.SystemUserEmail,
	})
	a.Assistant = assistant.NewService(a.Agents, a.Prompts, a.Store, a.Files, log, assistant.Options{
		ReportBucket: cfg.ReportBucket,
	})
	return a, nil
}

// Providers registers every model backend; missing credentials surface on
// first use as llm.ErrNoCredentials.
func Providers(cfg config.Config) []llm.Provider {
	return []llm.Provider{
		&llm.GeminiProvider{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel},
		&llm.LegacyGeminiProvider{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel},
		&llm.OpenAICompatProvider{
			BaseURL:    cfg.OpenAICompatBaseURL,
			APIKey:     cfg.OpenAICompatAPIKey,
			Model:      cfg.OpenAICompatModel,
			HTTPClient: &http.Client{Timeout: 5 * time.Minute},
		},
	}
}

// Close releases pools and clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	a.Log.Sync()
}

func poolSize(p *pgxpool.Pool) int32 {
	return p.Config().MaxConns
}
