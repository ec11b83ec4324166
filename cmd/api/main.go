package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"subsea_intel/pkg/api/assistant"
	apiconfig "subsea_intel/pkg/api/config"
	"subsea_intel/pkg/api/httpx"
	"subsea_intel/pkg/api/imports"
	"subsea_intel/pkg/api/reports"
	"subsea_intel/pkg/app"
	"subsea_intel/pkg/config"
	"subsea_intel/pkg/logger"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		log = logger.Nop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer a.Close()

	importHandler := imports.NewHandler(a.Ingest, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httpx.CORS)
	r.Use(httpx.RequestLog(log))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	apiconfig.NewHandler(a.Agents).Routes(r)
	importHandler.Routes(r)
	assistant.NewHandler(a.Assistant, log).Routes(r)
	reports.NewHandler(log).Routes(r)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// report turns run two model calls and a render
		WriteTimeout: 6 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown", "error", err)
		}
	}()

	log.Info("API server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", "error", err)
	}
	importHandler.Wait()
	log.Info("server stopped")
}
