package config

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"subsea_intel/pkg/api/httpx"
)

type Response struct {
	ActiveProvider string   `json:"active_provider"`
	Available      []string `json:"available"`
}

type SwitchRequest struct {
	Provider string `json:"provider"`
}

// Router is the provider switch of agent.Manager.
type Router interface {
	GetActiveProvider() string
	SetGlobalProvider(name string) error
	Available() []string
}

// Handler holds dependencies for config endpoints
type Handler struct {
	agents Router
}

func NewHandler(agents Router) *Handler {
	return &Handler{agents: agents}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/config", h.HandleConfig)
	r.Post("/api/config/switch", h.HandleSwitch)
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.current())
}

func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	var req SwitchRequest
	if err := httpx.DecodeJSON(w, r, 4096, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.agents.SetGlobalProvider(req.Provider); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.current())
}

func (h *Handler) current() Response {
	return Response{ActiveProvider: h.agents.GetActiveProvider(), Available: h.agents.Available()}
}
