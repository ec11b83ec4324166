package assistant

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"subsea_intel/pkg/api/httpx"
	"subsea_intel/pkg/core/assistant"
	"subsea_intel/pkg/logger"
)

const maxBody = 1 << 20

// Conversations is the part of assistant.Service the handler needs.
type Conversations interface {
	RunAgentConversation(ctx context.Context, req assistant.Request) (assistant.Response, error)
}

var _ Conversations = (*assistant.Service)(nil)

// Handler provides HTTP handlers for the market intelligence agent
type Handler struct {
	svc Conversations
	log *logger.Logger
}

func NewHandler(svc Conversations, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: logger.OrNop(log).With("component", "api.assistant")}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/agent/chat", h.HandleChat)
}

// HandleChat answers one turn. The body is {"messages": [{role, content}]};
// the caller identity comes from X-User-ID unless the body names one.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req assistant.Request
	if err := httpx.DecodeJSON(w, r, maxBody, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		req.UserID = httpx.UserID(r)
	}

	resp, err := h.svc.RunAgentConversation(r.Context(), req)
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyConversation) {
			httpx.WriteError(w, http.StatusBadRequest, "Write a question first.")
			return
		}
		h.log.Error("agent turn failed", "user_id", req.UserID, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "The assistant could not answer right now.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
