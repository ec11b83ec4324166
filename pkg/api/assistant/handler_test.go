package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"subsea_intel/pkg/core/assistant"
	"subsea_intel/pkg/models"
)

type mockConversations struct {
	fn   func(req assistant.Request) (assistant.Response, error)
	last assistant.Request
}

func (m *mockConversations) RunAgentConversation(ctx context.Context, req assistant.Request) (assistant.Response, error) {
	m.last = req
	return m.fn(req)
}

func post(t *testing.T, h *Handler, body string, userID string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.Routes(r)
	req := httptest.NewRequest(http.MethodPost, "/api/agent/chat", bytes.NewBufferString(body))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleChat(t *testing.T) {
	svc := &mockConversations{fn: func(req assistant.Request) (assistant.Response, error) {
		return assistant.Response{Answer: "Six trees.", FollowUps: []string{}, Plan: models.AgentPlan{Intent: models.IntentQuestion}}, nil
	}}
	rec := post(t, NewHandler(svc, nil), `{"messages":[{"role":"user","content":"How many trees?"}]}`, "user-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var resp assistant.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "Six trees." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if svc.last.UserID != "user-1" || len(svc.last.Messages) != 1 {
		t.Errorf("request = %+v", svc.last)
	}
}

func TestHandleChatErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"bad json", `{"messages":`, nil, http.StatusBadRequest},
		{"empty", `{"messages":[]}`, assistant.ErrEmptyConversation, http.StatusBadRequest},
		{"internal", `{"messages":[{"role":"user","content":"hi"}]}`, errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockConversations{fn: func(assistant.Request) (assistant.Response, error) {
				return assistant.Response{}, tt.err
			}}
			if rec := post(t, NewHandler(svc, nil), tt.body, ""); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
