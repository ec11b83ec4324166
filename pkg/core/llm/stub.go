package llm

import (
	"context"
	"sync"
)

// StubProvider returns canned replies. It records every call so tests can
// assert on prompts and options.
type StubProvider struct {
	Reply string
	Err   error
	// ReplyFunc, when set, takes precedence over Reply/Err.
	ReplyFunc func(prompt, systemPrompt string) (string, error)

	mu    sync.Mutex
	Calls []StubCall
}

type StubCall struct {
	Prompt       string
	SystemPrompt string
	File         *File
	Options      map[string]interface{}
}

var _ FileProvider = (*StubProvider)(nil)

func (s *StubProvider) Name() string { return "stub" }

func (s *StubProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	return s.record(StubCall{Prompt: prompt, SystemPrompt: systemPrompt, Options: options})
}

func (s *StubProvider) GenerateWithFile(ctx context.Context, prompt string, systemPrompt string, file File, options map[string]interface{}) (string, error) {
	f := file
	return s.record(StubCall{Prompt: prompt, SystemPrompt: systemPrompt, File: &f, Options: options})
}

func (s *StubProvider) record(call StubCall) (string, error) {
	s.mu.Lock()
	s.Calls = append(s.Calls, call)
	s.mu.Unlock()
	if s.ReplyFunc != nil {
		return s.ReplyFunc(call.Prompt, call.SystemPrompt)
	}
	return s.Reply, s.Err
}

// CallCount returns the number of recorded calls.
func (s *StubProvider) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Calls)
}
