// Package server exposes the pipeline's trigger surface over HTTP: an
// on-demand ingest endpoint and a read-only status/events view.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"wartracker/internal/ports"
	"wartracker/internal/usecase"
)

const maxTriggerBody = 4 << 10

// API bundles the HTTP handlers around the cycle runner.
type API struct {
	runner *usecase.Runner
	store  ports.ArticleStore
	events ports.EventStore
	logger *slog.Logger
}

// New wires the trigger surface.
func New(runner *usecase.Runner, store ports.ArticleStore, events ports.EventStore, logger *slog.Logger) *API {
	return &API{runner: runner, store: store, events: events, logger: logger}
}

// Routes builds the handler tree.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/ingest", a.withJSON(http.HandlerFunc(a.handleIngest)))
	mux.Handle("GET /api/status", a.withJSON(http.HandlerFunc(a.handleStatus)))
	mux.Handle("GET /api/events", a.withJSON(http.HandlerFunc(a.handleEvents)))
	return mux
}

func (a *API) handleIngest(w http.ResponseWriter, r *http.Request) {
	var opts usecase.CycleOptions
	if err := decodeJSON(r, maxTriggerBody, &opts); err != nil {
		respondErr(w, http.StatusBadRequest, err)
		return
	}

	if a.logger != nil {
		a.logger.Info("on-demand ingest triggered", "batch_size", opts.BatchSize, "max_concurrent", opts.MaxConcurrent)
	}

	stats, err := a.runner.Trigger(r.Context(), opts)
	if errors.Is(err, usecase.ErrCycleRunning) {
		respondErr(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		// Partial statistics still travel with the error response.
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error": err.Error(),
			"stats": stats,
		})
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	pending, err := a.store.CountUnprocessed(r.Context())
	if err != nil {
		respondErr(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"run":     a.runner.State(),
		"pending": pending,
	})
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := a.events.RecentEvents(r.Context(), 50)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (a *API) withJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(r *http.Request, maxBody int64, out any) error {
	if r.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, code int, payload any) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondErr(w http.ResponseWriter, code int, err error) {
	respondJSON(w, code, map[string]string{"error": err.Error()})
}
