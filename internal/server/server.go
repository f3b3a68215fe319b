// Package server assembles the portal HTTP API: form schemas, submissions
// and the states lookup component.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/devotel/go-insurance-forms/components/regions"
	"github.com/devotel/go-insurance-forms/pkg/model"
)

// Config holds server configuration.
type Config struct {
	Addr    string
	Schemas []model.FormSchema
	Store   *SubmissionStore
	Logger  *slog.Logger

	// Regions overrides the states component's embedded dataset.
	Regions map[string][]string
}

// New builds the router with all routes registered.
func New(cfg Config) (http.Handler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h, err := NewHandler(cfg.Schemas, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/insurance/forms", h.ListForms)
	r.Get("/api/insurance/forms/submissions", h.ListSubmissions)
	r.Get("/api/insurance/forms/{formID}", h.GetForm)
	r.Post("/api/insurance/forms/submit", h.Submit)

	var regionOpts []regions.OptionFn
	if cfg.Regions != nil {
		regionOpts = append(regionOpts, regions.WithRegions(cfg.Regions))
	}
	if _, err := regions.New(regionOpts...).RegisterRoutes(r, ""); err != nil {
		return nil, err
	}

	return r, nil
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler, err := New(cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("portal server listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("portal server shutting down")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// requestLogger logs one line per request with status and latency.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"elapsed", time.Since(started),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}
