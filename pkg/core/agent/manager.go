package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"subsea_intel/pkg/core/llm"
)

// Agent names used for provider routing.
const (
	AgentExtractor = "extractor"
	AgentPlanner   = "planner"
	AgentAnswer    = "answer"
)

type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

type AgentConfig struct {
	Provider    string `yaml:"provider"` // Optional override
	Description string `yaml:"description"`
}

// Manager routes each agent to a configured LLM provider.
type Manager struct {
	mu        sync.RWMutex
	config    Config
	providers map[string]llm.Provider
}

func NewManager(config Config, providers ...llm.Provider) *Manager {
	m := &Manager{
		config:    config,
		providers: make(map[string]llm.Provider),
	}
	for _, p := range providers {
		if p != nil {
			m.providers[p.Name()] = p
		}
	}
	return m
}

// GetProvider resolves the provider for an agent: agent override first, then
// the global active provider. Returns nil when neither is registered.
func (m *Manager) GetProvider(agentType string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return p
		}
	}
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p
	}
	return nil
}

// GetFileProvider resolves a provider that accepts inline documents.
func (m *Manager) GetFileProvider(agentType string) (llm.FileProvider, error) {
	p := m.GetProvider(agentType)
	if p == nil {
		return nil, fmt.Errorf("no provider configured for agent %q", agentType)
	}
	fp, ok := p.(llm.FileProvider)
	if !ok {
		return nil, fmt.Errorf("provider %s cannot read documents", p.Name())
	}
	return fp, nil
}

// ExecutePrompt sends a text prompt through the agent's provider.
func (m *Manager) ExecutePrompt(ctx context.Context, agentType string, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	provider := m.GetProvider(agentType)
	if provider == nil {
		return "", fmt.Errorf("no provider configured for agent %q", agentType)
	}
	return provider.GenerateResponse(ctx, prompt, systemPrompt, options)
}

func (m *Manager) SetGlobalProvider(newProvider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[newProvider]; !ok {
		return fmt.Errorf("provider %s not found", newProvider)
	}
	m.config.ActiveProvider = newProvider
	return nil
}

func (m *Manager) GetActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ActiveProvider
}

// Available lists registered provider names in sorted order.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
