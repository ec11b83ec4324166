package assistant

import (
	"context"
	"errors"
	"sync"
)

// fakeRunner answers prompts through fn and records the agents called.
type fakeRunner struct {
	mu    sync.Mutex
	fn    func(agentType, prompt, system string) (string, error)
	calls []string
	last  map[string]string
}

func (f *fakeRunner) ExecutePrompt(ctx context.Context, agentType, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, agentType)
	if f.last == nil {
		f.last = map[string]string{}
	}
	f.last[agentType] = prompt
	f.mu.Unlock()
	if f.fn == nil {
		return "", errors.New("model unavailable")
	}
	return f.fn(agentType, prompt, systemPrompt)
}

func failingRunner() *fakeRunner {
	return &fakeRunner{fn: func(string, string, string) (string, error) {
		return "", errors.New("503 service unavailable")
	}}
}

func intp(v int) *int { return &v }
