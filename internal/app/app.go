package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"wartracker/internal/classify"
	"wartracker/internal/config"
	"wartracker/internal/dedup"
	"wartracker/internal/feed"
	"wartracker/internal/infrastructure/scheduler"
	"wartracker/internal/infrastructure/storage"
	"wartracker/internal/llm"
	"wartracker/internal/logging"
	"wartracker/internal/server"
	"wartracker/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	return &Application{cfg: cfg, logger: baseLogger}
}

// Run connects the store, starts the interval scheduler and serves the HTTP
// trigger surface until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	store, err := storage.Open(ctx, a.cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	defer store.Close()

	registry := feed.NewRegistry(a.cfg.Sources())
	fetcher := feed.NewFetcher(nil, a.logger.With("component", "fetcher"))
	engine := dedup.NewEngine(store, a.logger.With("component", "dedup"),
		a.cfg.Pipeline.UpsertChunk, a.cfg.Pipeline.WritesPerSec)

	gateway := classify.NewGateway(llm.NewClient(a.cfg.LLM),
		a.logger.With("component", "classify"), a.cfg.Pipeline.MinConfidence)

	orch := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Registry:   registry,
		Fetcher:    fetcher,
		Engine:     engine,
		Store:      store,
		Events:     store,
		Classifier: gateway,
		Logger:     a.logger.With("component", "orchestrator"),
		Pipeline:   a.cfg.Pipeline,
	})
	runner := usecase.NewRunner(orch)

	sched := usecase.NewScheduler(
		scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval), runner)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop(context.Background())

	api := server.New(runner, store, store, a.logger.With("component", "http"))
	httpServer := &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http listening", "addr", a.cfg.Server.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}
