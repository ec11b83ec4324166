package agent

import (
	"context"
	"testing"

	"subsea_intel/pkg/core/llm"
)

type namedStub struct {
	llm.StubProvider
	name string
}

func (n *namedStub) Name() string { return n.name }

func TestGetProviderRouting(t *testing.T) {
	gemini := &namedStub{name: "gemini", StubProvider: llm.StubProvider{Reply: "from gemini"}}
	compat := &namedStub{name: "openai_compat", StubProvider: llm.StubProvider{Reply: "from compat"}}

	mgr := NewManager(Config{
		ActiveProvider: "gemini",
		Agents: map[string]AgentConfig{
			AgentPlanner: {Provider: "openai_compat"},
			AgentAnswer:  {Provider: "missing"},
		},
	}, gemini, compat)

	if got := mgr.GetProvider(AgentPlanner).Name(); got != "openai_compat" {
		t.Errorf("planner routed to %s, want openai_compat", got)
	}
	if got := mgr.GetProvider(AgentAnswer).Name(); got != "gemini" {
		t.Errorf("answer with unknown override routed to %s, want gemini", got)
	}
	if got := mgr.GetProvider(AgentExtractor).Name(); got != "gemini" {
		t.Errorf("extractor routed to %s, want gemini", got)
	}

	out, err := mgr.ExecutePrompt(context.Background(), AgentPlanner, "hi", "", nil)
	if err != nil || out != "from compat" {
		t.Errorf("ExecutePrompt = %q, %v", out, err)
	}
}

func TestNoProviderConfigured(t *testing.T) {
	mgr := NewManager(Config{ActiveProvider: "gemini"})
	if _, err := mgr.ExecutePrompt(context.Background(), AgentAnswer, "hi", "", nil); err == nil {
		t.Error("expected error with no providers registered")
	}
	if _, err := mgr.GetFileProvider(AgentExtractor); err == nil {
		t.Error("expected error from GetFileProvider")
	}
}

func TestSetGlobalProvider(t *testing.T) {
	mgr := NewManager(Config{ActiveProvider: "gemini"}, &namedStub{name: "gemini"}, &namedStub{name: "gemini_legacy"})
	if err := mgr.SetGlobalProvider("nope"); err == nil {
		t.Error("expected error switching to unknown provider")
	}
	if err := mgr.SetGlobalProvider("gemini_legacy"); err != nil {
		t.Fatalf("SetGlobalProvider: %v", err)
	}
	if mgr.GetActiveProvider() != "gemini_legacy" {
		t.Errorf("active provider = %s", mgr.GetActiveProvider())
	}
	if got := mgr.Available(); len(got) != 2 || got[0] != "gemini" {
		t.Errorf("Available = %v", got)
	}
}
