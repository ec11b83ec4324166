// Package reports renders caller-supplied markdown to PDF.
package reports

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"subsea_intel/pkg/api/httpx"
	"subsea_intel/pkg/core/report"
	"subsea_intel/pkg/logger"
)

const maxBody = 4 << 20

type RenderRequest struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	RequestText string `json:"request_text,omitempty"`
	Markdown    string `json:"markdown"`
}

type Handler struct {
	log *logger.Logger
	now func() time.Time
}

func NewHandler(log *logger.Logger) *Handler {
	return &Handler{log: logger.OrNop(log).With("component", "api.reports"), now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/reports/pdf", h.HandleRender)
}

// HandleRender streams the PDF back; nothing is stored.
func (h *Handler) HandleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := httpx.DecodeJSON(w, r, maxBody, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Markdown) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "markdown is required")
		return
	}

	now := h.now().UTC()
	pdf, pages, err := report.Render(report.Document{
		Title:       req.Title,
		Subtitle:    req.Subtitle,
		RequestText: req.RequestText,
		Markdown:    req.Markdown,
		GeneratedAt: now,
	})
	if err != nil {
		h.log.Error("render failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "The PDF could not be generated.")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.FileName(req.Title, now)))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Header().Set("X-Report-Pages", strconv.Itoa(pages))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
