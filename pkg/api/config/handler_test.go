package config

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"subsea_intel/pkg/core/agent"
	"subsea_intel/pkg/core/llm"
)

func TestConfigSwitch(t *testing.T) {
	mgr := agent.NewManager(agent.Config{ActiveProvider: "gemini"}, &llm.GeminiProvider{}, &llm.StubProvider{})
	r := chi.NewRouter()
	NewHandler(mgr).Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/config/switch", bytes.NewBufferString(`{"provider":"stub"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var got Response
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.ActiveProvider != "stub" || len(got.Available) != 2 {
		t.Errorf("response = %+v", got)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/config/switch", bytes.NewBufferString(`{"provider":"missing"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown provider status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.ActiveProvider != "stub" {
		t.Errorf("active provider = %q", got.ActiveProvider)
	}
}
